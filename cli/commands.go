package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/Octogonapus/BenchLab/benchmark"
	benchmarkorchestrator "github.com/Octogonapus/BenchLab/benchmark_orchestrator"
	"github.com/Octogonapus/BenchLab/report"
	"github.com/Octogonapus/BenchLab/report/console"
	systemmonitor "github.com/Octogonapus/BenchLab/system_monitor"
	"github.com/fatih/color"
	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

func newRunCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "run",
		Short: "Run the selected benchmarks (the default command)",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runSession(cmd)
		},
	}
}

func runSession(cmd *cobra.Command) error {
	v, err := newViper(cmd.Flags())
	if err != nil {
		return err
	}
	cfg, err := sessionConfig(v)
	if err != nil {
		return err
	}

	rep := console.New(cmd.OutOrStdout(), v.GetBool("progress") && !color.NoColor)
	sess, err := benchmarkorchestrator.NewLocalBenchmarkOrchestrator().RunSession(cmd.Context(), cfg, rep)
	if err != nil {
		return err
	}

	if path := v.GetString("report"); path != "" {
		if err := report.WriteFile(path, sess); err != nil {
			return err
		}
		slog.Info("wrote session report", slog.String("path", path))
	}

	if sess.Cancelled || errors.Is(cmd.Context().Err(), context.Canceled) {
		return &exitError{code: exitCancelled, msg: "session cancelled"}
	}
	if failed := sess.Failed(); len(failed) > 0 {
		slog.Warn("session completed with failed tests", slog.Int("failed", len(failed)))
	}
	return nil
}

func newListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List the available tests",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runList(cmd)
		},
	}
}

func runList(cmd *cobra.Command) error {
	v, err := newViper(cmd.Flags())
	if err != nil {
		return err
	}
	params := familySections(v)
	registry := benchmark.Default()

	table := tablewriter.NewWriter(cmd.OutOrStdout())
	table.Header("Category", "Test", "Label", "Available")
	for _, e := range registry.Entries() {
		available := "yes"
		if !registry.Available(e.Category, params[e.Category]) {
			available = "no"
		}
		_ = table.Append(string(e.Category), e.ID, e.Label, available)
	}
	return table.Render()
}

func newInfoCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "info",
		Short: "Describe this host",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			v, err := newViper(cmd.Flags())
			if err != nil {
				return err
			}
			gpuAvailable := benchmark.Default().Available(benchmark.GPU, familySection(v, benchmark.GPU))
			host := systemmonitor.DescribeHost(cmd.Context(), gpuAvailable)
			enc := yaml.NewEncoder(cmd.OutOrStdout())
			defer enc.Close()
			return enc.Encode(host)
		},
	}
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the version",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, _ []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "benchlab %s (go %s)\n", version, systemmonitor.GoVersion())
		},
	}
}
