package cli

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/spf13/cobra"

	"github.com/stwalsh4118/groundwork/internal/loader"
	"github.com/stwalsh4118/groundwork/internal/mapping"
	"github.com/stwalsh4118/groundwork/internal/normalize"
	"github.com/stwalsh4118/groundwork/internal/repository"
	"github.com/stwalsh4118/groundwork/internal/resolve"
)

var (
	flagInput   string
	flagMapping string
)

func newRunCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Load a batch of raw JSON property records",
		Long:  "Read raw JSON records from a file or directory, normalize them against the field mapping, and load them into the database one transaction per record.",
		RunE:  runRun,
	}

	cmd.Flags().StringVar(&flagInput, "input", "", "JSON file or directory of JSON files (default: INPUT_DIR)")
	cmd.Flags().StringVar(&flagMapping, "mapping", "", "field mapping YAML (default: MAPPING_FILE)")

	return cmd
}

func runRun(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	a, err := newApp(ctx)
	if err != nil {
		return err
	}
	defer a.close()

	mappingPath := flagMapping
	if mappingPath == "" {
		mappingPath = a.cfg.Pipeline.MappingFile
	}
	fieldConfig, err := mapping.LoadFieldConfig(mappingPath)
	if err != nil {
		return err
	}
	a.log.Info("Field mapping loaded", map[string]interface{}{
		"path":   mappingPath,
		"fields": fieldConfig.Len(),
	})

	input := flagInput
	if input == "" {
		input = a.cfg.Pipeline.InputDir
	}
	files, err := inputFiles(input)
	if err != nil {
		return err
	}
	if len(files) == 0 {
		return fmt.Errorf("no JSON files found at %q", input)
	}

	resolver := resolve.New(repository.NewMasterRepository(a.db), a.log)
	if err := resolver.Seed(ctx); err != nil {
		return err
	}

	normalizer := normalize.New(fieldConfig, a.log)
	batchLoader := loader.New(repository.NewRecordRepository(a.db), resolver, normalizer, a.log)

	for _, file := range files {
		records, err := readRecords(file)
		if err != nil {
			return fmt.Errorf("reading %s: %w", file, err)
		}

		a.log.Info("Loading batch", map[string]interface{}{
			"file":    file,
			"records": len(records),
		})

		rep, err := batchLoader.LoadBatch(ctx, records)
		if printErr := printLoadReport(file, rep); printErr != nil {
			return printErr
		}
		if err != nil {
			return err
		}
	}

	return nil
}

// inputFiles expands a path into the list of JSON files to load.
func inputFiles(path string) ([]string, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("input %q: %w", path, err)
	}

	if !info.IsDir() {
		return []string{path}, nil
	}

	entries, err := os.ReadDir(path)
	if err != nil {
		return nil, fmt.Errorf("reading input directory %q: %w", path, err)
	}

	var files []string
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		if strings.EqualFold(filepath.Ext(entry.Name()), ".json") {
			files = append(files, filepath.Join(path, entry.Name()))
		}
	}
	sort.Strings(files)
	return files, nil
}

// readRecords parses a JSON file holding either an array of records or a
// single record object.
func readRecords(path string) ([]map[string]interface{}, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var records []map[string]interface{}
	if err := json.Unmarshal(data, &records); err == nil {
		return records, nil
	}

	var single map[string]interface{}
	if err := json.Unmarshal(data, &single); err != nil {
		return nil, fmt.Errorf("not a JSON object or array of objects: %w", err)
	}
	return []map[string]interface{}{single}, nil
}

func printLoadReport(file string, rep *loader.LoadReport) error {
	if rep == nil {
		return nil
	}
	if isJSON() {
		return printJSON(rep)
	}

	fmt.Printf("Batch %s (%s)\n", rep.RunID, file)
	fmt.Printf("  total:    %d\n", rep.Total)
	fmt.Printf("  inserted: %d\n", rep.Inserted)
	fmt.Printf("  skipped:  %d\n", rep.Skipped)
	fmt.Printf("  failed:   %d\n", rep.Failed)
	fmt.Printf("  duration: %s\n", rep.Duration)
	for _, failure := range rep.Failures {
		fmt.Printf("  record %d", failure.Index)
		if failure.Address != "" {
			fmt.Printf(" (%s)", failure.Address)
		}
		fmt.Printf(" rejected while %s:\n", failure.State)
		for _, reason := range failure.Reasons {
			fmt.Printf("    - %s\n", reason)
		}
	}
	return nil
}
