package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/yungbote/neurobridge-coursestore/internal/app"
	"github.com/yungbote/neurobridge-coursestore/internal/learning/validation"
)

var errChecksFailed = errors.New("invariant checks failed")

func newRootCmd() *cobra.Command {
	var configPath string
	root := &cobra.Command{
		Use:           "coursestore",
		Short:         "Hierarchical course content store",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVar(&configPath, "config", "", "YAML config file (default $"+app.ConfigPathEnv+")")

	load := func() (app.Config, error) { return app.LoadConfig(configPath) }

	root.AddCommand(
		&cobra.Command{
			Use:   "serve",
			Short: "Run the HTTP API",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, _ []string) error {
				cfg, err := load()
				if err != nil {
					return err
				}
				ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
				defer stop()
				a, err := app.New(ctx, cfg)
				if err != nil {
					return err
				}
				defer a.Close()
				return a.Serve(ctx)
			},
		},
		&cobra.Command{
			Use:   "migrate",
			Short: "Apply the schema and indexes",
			Args:  cobra.NoArgs,
			RunE: func(_ *cobra.Command, _ []string) error {
				cfg, err := load()
				if err != nil {
					return err
				}
				return app.Migrate(cfg)
			},
		},
		&cobra.Command{
			Use:   "check",
			Short: "Run tree invariant checks over every course",
			Long:  "Prints one JSON report per course and exits non-zero when any check fails.",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, _ []string) error {
				cfg, err := load()
				if err != nil {
					return err
				}
				a, err := app.New(cmd.Context(), cfg)
				if err != nil {
					return err
				}
				defer a.Close()
				reports, err := a.CheckAll(cmd.Context())
				if err != nil {
					return err
				}
				return writeReports(cmd.OutOrStdout(), reports)
			},
		},
	)
	root.SetContext(context.Background())
	return root
}

func writeReports(w io.Writer, reports []validation.InvariantReport) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	failed := 0
	for _, r := range reports {
		if err := enc.Encode(r); err != nil {
			return err
		}
		if r.Status == validation.StatusFail {
			failed++
		}
	}
	fmt.Fprintf(w, "checked %d courses, %d failing\n", len(reports), failed)
	if failed > 0 {
		return fmt.Errorf("%w: %d of %d courses", errChecksFailed, failed, len(reports))
	}
	return nil
}
