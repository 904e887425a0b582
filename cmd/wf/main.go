package main

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"

	"github.com/zacczakk/workflows/internal/config"
	"github.com/zacczakk/workflows/internal/launchd"
	"github.com/zacczakk/workflows/internal/logging"
	"github.com/zacczakk/workflows/internal/models"
	"github.com/zacczakk/workflows/internal/power"
	"github.com/zacczakk/workflows/internal/reconcile"
	"github.com/zacczakk/workflows/internal/runner"
	"github.com/zacczakk/workflows/internal/schedule"
	"github.com/zacczakk/workflows/internal/state"
	"github.com/zacczakk/workflows/internal/status"
)

var logLevel string

func main() {
	rootCmd := &cobra.Command{
		Use:   "wf",
		Short: "Declarative recurring workflow manager",
		Long:  "wf syncs workflows declared in workflows.yaml against launchd and pmset.",
		// Unrecognized subcommands fall through to help rather than an error.
		Args: cobra.ArbitraryArgs,
		Run: func(cmd *cobra.Command, args []string) {
			_ = cmd.Help()
		},
	}

	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "log level (debug, info, warn, error)")

	rootCmd.AddCommand(newListCommand())
	rootCmd.AddCommand(newStatusCommand())
	rootCmd.AddCommand(newRunCommand())
	rootCmd.AddCommand(newLogsCommand())
	rootCmd.AddCommand(newInstallCommand())
	rootCmd.AddCommand(newUninstallCommand())
	rootCmd.AddCommand(newEnableCommand())
	rootCmd.AddCommand(newDisableCommand())

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// setup resolves filesystem paths and loads the validated config.
func setup() (*models.Config, config.Paths, error) {
	paths, err := config.ResolvePaths()
	if err != nil {
		return nil, config.Paths{}, fmt.Errorf("resolve paths: %w", err)
	}
	cfg, err := config.Load(paths.ConfigFile)
	if err != nil {
		return nil, config.Paths{}, err
	}
	return cfg, paths, nil
}

func newReconciler(cfg *models.Config, paths config.Paths) *reconcile.Reconciler {
	log := logging.New(logLevel)
	return reconcile.New(cfg, paths,
		&launchd.Launchctl{UID: paths.UID},
		&power.Pmset{}, log)
}

func sortWorkflows(cfg *models.Config, by string) []models.Workflow {
	names := cfg.Names()
	workflows := make([]models.Workflow, 0, len(names))
	for _, name := range names {
		workflows = append(workflows, cfg.Workflows[name])
	}
	if by == "schedule" {
		sort.SliceStable(workflows, func(i, j int) bool {
			return schedule.MinuteOfDay(workflows[i].Schedule) < schedule.MinuteOfDay(workflows[j].Schedule)
		})
	}
	return workflows
}

var (
	nameStyle = lipgloss.NewStyle().Bold(true)
	dimStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("243"))
	offStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("243")).Strikethrough(true)
)

// padTo right-pads s to width terminal cells. Styled strings carry ANSI
// escapes that %-Ns would count, skewing the columns.
func padTo(s string, width int) string {
	if w := lipgloss.Width(s); w < width {
		return s + strings.Repeat(" ", width-w)
	}
	return s
}

func newListCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List configured workflows",
		RunE: func(cmd *cobra.Command, args []string) error {
			sortBy, _ := cmd.Flags().GetString("sort")

			cfg, _, err := setup()
			if err != nil {
				return err
			}

			if len(cfg.Workflows) == 0 {
				fmt.Println("No workflows configured.")
				return nil
			}

			for _, wf := range sortWorkflows(cfg, sortBy) {
				name := nameStyle.Render(wf.Name)
				if !wf.Enabled {
					name = offStyle.Render(wf.Name)
				}
				line := fmt.Sprintf("  %s %-20s %s", padTo(name, 35),
					schedule.Describe(wf.Schedule), dimStyle.Render(wf.Description))
				if !wf.Enabled {
					line += dimStyle.Render("  (disabled)")
				}
				fmt.Println(line)
			}
			return nil
		},
	}

	cmd.Flags().String("sort", "name", "Sort order: name or schedule")
	return cmd
}

func newStatusCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "status",
		Short: "Show workflow health against launchd and pmset",
		RunE: func(cmd *cobra.Command, args []string) error {
			sortBy, _ := cmd.Flags().GetString("sort")

			cfg, paths, err := setup()
			if err != nil {
				return err
			}

			sched := &launchd.Launchctl{UID: paths.UID}
			snapshot, err := sched.List()
			if err != nil {
				return fmt.Errorf("read registered workflows: %w", err)
			}

			store := state.NewStore(paths.Resolve(cfg.Meta.StateDir))
			items := status.Collect(cfg, snapshot, store)
			if sortBy == "schedule" {
				sort.SliceStable(items, func(i, j int) bool {
					return schedule.MinuteOfDay(items[i].Schedule) < schedule.MinuteOfDay(items[j].Schedule)
				})
			}

			wake, _ := (&power.Pmset{}).CurrentWake()

			fmt.Print(status.Render(items, wake))
			return nil
		},
	}

	cmd.Flags().String("sort", "name", "Sort order: name or schedule")
	return cmd
}

func newRunCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "run <name>",
		Short: "Run a workflow now, recording the outcome",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, paths, err := setup()
			if err != nil {
				return err
			}

			store := state.NewStore(paths.Resolve(cfg.Meta.StateDir))
			r := runner.New(cfg, paths, store, logging.New(logLevel))

			fmt.Printf("Running %s ...\n", args[0])
			code, err := r.Run(args[0])
			if err != nil {
				return err
			}
			if code != 0 {
				fmt.Fprintf(os.Stderr, "%s exited with code %d\n", args[0], code)
				os.Exit(code)
			}
			return nil
		},
	}
}

func newLogsCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "logs <name>",
		Short: "Print a workflow's captured stdout and stderr",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			name := args[0]

			cfg, paths, err := setup()
			if err != nil {
				return err
			}
			if _, ok := cfg.Workflows[name]; !ok {
				return fmt.Errorf("unknown workflow %q", name)
			}

			logDir := paths.Resolve(cfg.Meta.LogDir)
			found := false
			for _, stream := range []struct{ label, path string }{
				{"stdout", filepath.Join(logDir, name+".out.log")},
				{"stderr", filepath.Join(logDir, name+".err.log")},
			} {
				data, err := os.ReadFile(stream.path)
				if err != nil {
					continue
				}
				found = true
				fmt.Printf("=== %s (%s) ===\n", stream.label, stream.path)
				os.Stdout.Write(data)
				if len(data) > 0 && data[len(data)-1] != '\n' {
					fmt.Println()
				}
			}
			if !found {
				fmt.Printf("No logs found for %q.\n", name)
			}
			return nil
		},
	}
}

func newInstallCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "install",
		Short: "Register all enabled workflows with launchd and schedule the wake",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, paths, err := setup()
			if err != nil {
				return err
			}

			result, err := newReconciler(cfg, paths).Install()
			if err != nil {
				return err
			}

			fmt.Printf("Installed %d workflow(s)", len(result.Succeeded))
			if len(result.Failed) > 0 {
				fmt.Printf(", %d failed: %v", len(result.Failed), result.Failed)
			}
			fmt.Println()
			return nil
		},
	}
}

func newUninstallCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "uninstall",
		Short: "Remove all workflows from launchd and clear the wake schedule",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, paths, err := setup()
			if err != nil {
				return err
			}

			results, err := newReconciler(cfg, paths).Uninstall()
			if err != nil {
				return err
			}

			for _, res := range results {
				fmt.Printf("  %-35s %s\n", res.Name, res.Outcome)
			}
			return nil
		},
	}
}

func newEnableCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "enable <name>",
		Short: "Register one workflow with launchd",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, paths, err := setup()
			if err != nil {
				return err
			}

			if err := newReconciler(cfg, paths).Enable(args[0]); err != nil {
				return err
			}
			fmt.Printf("Enabled %q.\n", args[0])
			return nil
		},
	}
}

func newDisableCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "disable <name>",
		Short: "Deregister one workflow from launchd",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, paths, err := setup()
			if err != nil {
				return err
			}

			if err := newReconciler(cfg, paths).Disable(args[0]); err != nil {
				return err
			}
			fmt.Printf("Disabled %q.\n", args[0])
			return nil
		},
	}
}
