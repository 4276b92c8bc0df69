package main

import (
	"context"
	"os"

	"github.com/spf13/cobra"
)

const serviceName = "project-service"

func main() {
	rootCmd := &cobra.Command{
		Use:          "project-service",
		Short:        "Project category hierarchy service",
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(cmd.Context())
		},
	}
	rootCmd.AddCommand(serveCmd(), reconcileCmd())

	if err := rootCmd.ExecuteContext(context.Background()); err != nil {
		os.Exit(1)
	}
}

func serveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Start the HTTP API",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(cmd.Context())
		},
	}
}

func reconcileCmd() *cobra.Command {
	var tenant string
	cmd := &cobra.Command{
		Use:   "reconcile",
		Short: "Repair child counters and materialized paths",
		Long: "Recomputes childCount, hasChildren and children from parentId and re-derives " +
			"level, path and pathArray from the roots. Safe to run repeatedly.",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runReconcile(cmd.Context(), tenant)
		},
	}
	cmd.Flags().StringVar(&tenant, "tenant", "", "reconcile a single tenant (default: every tenant)")
	return cmd
}
