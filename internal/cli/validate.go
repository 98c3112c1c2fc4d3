package cli

import (
	"fmt"
	"sort"

	"github.com/spf13/cobra"

	"github.com/stwalsh4118/groundwork/internal/report"
	"github.com/stwalsh4118/groundwork/internal/repository"
)

func newValidateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "validate",
		Short: "Run the post-load integrity report",
		Long:  "Run the read-only referential-integrity, range, and duplicate checks against the loaded data and print the structured report.",
		RunE:  runValidate,
	}
}

func runValidate(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	a, err := newApp(ctx)
	if err != nil {
		return err
	}
	defer a.close()

	validator := report.NewValidator(repository.NewStatsRepository(a.db), a.log)
	rep, err := validator.Run(ctx)
	if err != nil {
		return err
	}

	if isJSON() {
		return printJSON(rep)
	}

	fmt.Printf("Validation %s (healthy: %v)\n", rep.RunID, rep.Healthy)
	fmt.Println("Table counts:")
	for _, table := range repository.LoadedTables {
		fmt.Printf("  %-26s %d\n", table, rep.TableCounts[table])
	}
	printCheckSection("Referential errors", rep.ReferentialErrors)
	printCheckSection("Range violations", rep.RangeViolations)
	printCheckSection("Duplicates", rep.DuplicateCounts)
	return nil
}

// printCheckSection lists only the checks that found problems.
func printCheckSection(title string, counts map[string]int64) {
	var failing []string
	for name, count := range counts {
		if count > 0 {
			failing = append(failing, name)
		}
	}
	if len(failing) == 0 {
		fmt.Printf("%s: none\n", title)
		return
	}
	sort.Strings(failing)
	fmt.Printf("%s:\n", title)
	for _, name := range failing {
		fmt.Printf("  %-44s %d\n", name, counts[name])
	}
}
