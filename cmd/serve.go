package cmd

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/agentic-research/genui/internal/action"
	"github.com/agentic-research/genui/internal/catalog"
	"github.com/agentic-research/genui/internal/checks"
	"github.com/agentic-research/genui/internal/config"
	"github.com/agentic-research/genui/internal/server"
	"github.com/agentic-research/genui/internal/state"
	"github.com/agentic-research/genui/internal/store"
	"github.com/go-git/go-billy/v5/osfs"
	"github.com/spf13/cobra"
)

var serveListen string

func init() {
	serveCmd.Flags().StringVarP(&serveListen, "listen", "l", "", "Bind address (overrides config)")
	rootCmd.AddCommand(serveCmd)
}

var serveCmd = &cobra.Command{
	Use:   "serve [script.jsonl]",
	Short: "Serve the demo stream and engine endpoints over HTTP",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load(configPath)
		if err != nil {
			return err
		}
		if len(args) == 1 {
			cfg.Script = args[0]
		}
		if serveListen != "" {
			cfg.Listen = serveListen
		}

		var script string
		if cfg.Script != "" {
			raw, err := os.ReadFile(cfg.Script)
			if err != nil {
				return fmt.Errorf("read script: %w", err)
			}
			script = string(raw)
			fmt.Printf("Replaying %s on /v1/stream\n", cfg.Script)
		}

		var cat *catalog.Catalog
		if cfg.CatalogDir != "" {
			cat, err = catalog.Load(osfs.New(cfg.CatalogDir), ".")
			if err != nil {
				return fmt.Errorf("load catalog: %w", err)
			}
			fmt.Printf("Loaded %d catalog types from %s\n", len(cat.Types()), cfg.CatalogDir)
		}

		sessions, err := store.Open(cfg.SessionDB)
		if err != nil {
			return fmt.Errorf("open session db: %w", err)
		}
		defer func() { _ = sessions.Close() }() // safe to ignore

		log := slog.Default()
		st := state.NewStore(nil)
		srv := server.New(server.Options{
			Logger:   log,
			Script:   script,
			Store:    st,
			Actions:  action.NewEngine(st, log),
			Checks:   checks.NewEngine(st),
			Catalog:  cat,
			Sessions: sessions,
		})
		return srv.Run(cfg.Listen)
	},
}
