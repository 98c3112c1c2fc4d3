// Package cli defines the cobra command tree for groundwork.
package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/stwalsh4118/groundwork/internal/config"
	"github.com/stwalsh4118/groundwork/internal/database"
	"github.com/stwalsh4118/groundwork/internal/logger"
)

var flagFormat string

// NewRootCmd creates the root cobra command with global flags.
func NewRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "groundwork",
		Short:         "Load denormalized property records into a normalized schema",
		Long:          "groundwork reads raw JSON property records, normalizes them against a declarative field mapping, and loads them transactionally into the relational property schema.",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	root.PersistentFlags().StringVar(&flagFormat, "format", "text", "output format (text|json)")

	root.AddCommand(
		newRunCmd(),
		newValidateCmd(),
		newServeCmd(),
		newVersionCmd(),
	)

	return root
}

// app bundles the shared runtime pieces every command needs.
type app struct {
	cfg *config.Config
	log *logger.Logger
	db  *database.Database
}

// newApp loads configuration, builds the logger, and connects the pool.
func newApp(ctx context.Context) (*app, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}

	log := logger.New(cfg.Server.Env)

	db, err := database.NewPostgresPool(ctx, cfg.Database)
	if err != nil {
		return nil, fmt.Errorf("connecting to database: %w", err)
	}

	return &app{cfg: cfg, log: log, db: db}, nil
}

func (a *app) close() {
	if a.db != nil {
		a.db.Close()
	}
}

func isJSON() bool {
	return flagFormat == "json"
}

func printJSON(v interface{}) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
