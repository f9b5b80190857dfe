// Package cli holds the oracledash command tree.
package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"OracleDash/internal/di"
	"OracleDash/internal/display"
	"OracleDash/internal/domain/models"
	"OracleDash/internal/usecase"
	"OracleDash/pkg/config"

	"github.com/spf13/cobra"
)

// Version is stamped at build time with -ldflags.
var Version = "dev"

// NewRootCmd creates the root command
func NewRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "oracledash",
		Short: "Dashboard for the compute price oracle",
		Long: `oracledash polls the compute price oracle, shapes its signals, predictions,
causal graph and learning history into dashboard panels, and serves them over
HTTP and websocket or prints them to the terminal.`,
		SilenceUsage: true,
	}

	rootCmd.AddCommand(newServeCmd())
	rootCmd.AddCommand(newStatusCmd())
	rootCmd.AddCommand(newCycleCmd())
	rootCmd.AddCommand(newVersionCmd())

	rootCmd.PersistentFlags().String("config", "config/config.yaml", "Configuration file path")
	rootCmd.PersistentFlags().Bool("debug", false, "Enable debug logging")

	return rootCmd
}

// loadConfig reads --config and applies --debug.
func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	path, _ := cmd.Flags().GetString("config")
	cfg, err := config.LoadWithEnv(path)
	if err != nil {
		return nil, fmt.Errorf("config load failed: %w", err)
	}
	if debug, _ := cmd.Flags().GetBool("debug"); debug {
		cfg.Log.Level = "debug"
	}
	return cfg, nil
}

// oneShot adjusts config for commands that print to the terminal and exit:
// logs go to stderr and no metrics are registered.
func oneShot(cmd *cobra.Command, cfg *config.Config) {
	cfg.Log.Output = "stderr"
	if debug, _ := cmd.Flags().GetBool("debug"); !debug {
		cfg.Log.Level = "warn"
	}
	cfg.Metrics.Enabled = false
}

func newServeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Poll the oracle and serve the dashboard API",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			app, cleanup, err := di.InitializeApp(cfg)
			if err != nil {
				return fmt.Errorf("app initialization failed: %w", err)
			}
			defer cleanup()
			return app.Run()
		},
	}
}

func newStatusCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "status [PANEL...]",
		Short: "Fetch every panel once and print it",
		Long: `Fetch every resource once and print the dashboard panels.
Example: oracledash status prediction graph --width=100`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			oneShot(cmd, cfg)
			timeout, _ := cmd.Flags().GetDuration("timeout")
			width, _ := cmd.Flags().GetInt("width")
			asJSON, _ := cmd.Flags().GetBool("json")

			dash, cleanup, err := di.InitializeDashboard(cfg)
			if err != nil {
				return err
			}
			defer cleanup()

			ctx, cancel := context.WithTimeout(cmd.Context(), timeout)
			defer cancel()
			dash.Revalidate(ctx)

			panels, err := selectPanels(dash, args)
			if err != nil {
				return err
			}
			if asJSON {
				enc := json.NewEncoder(cmd.OutOrStdout())
				enc.SetIndent("", "  ")
				return enc.Encode(panels)
			}
			fmt.Fprintln(cmd.OutOrStdout(), display.Render(panels, width))
			return nil
		},
	}

	cmd.Flags().Duration("timeout", 30*time.Second, "How long to wait for the oracle")
	cmd.Flags().Int("width", display.DefaultWidth, "Panel width in columns")
	cmd.Flags().Bool("json", false, "Print panel envelopes as JSON")
	return cmd
}

// selectPanels returns the named panels, or all of them when none are named.
func selectPanels(dash *usecase.Dashboard, names []string) ([]usecase.Panel, error) {
	if len(names) == 0 {
		return dash.Panels(), nil
	}
	out := make([]usecase.Panel, 0, len(names))
	for _, name := range names {
		p, err := dash.Panel(name)
		if err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, nil
}

func newCycleCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "cycle",
		Short: "Run one prediction cycle on the oracle",
		Long: `Ask the oracle to run one prediction cycle. With --actual-price the latest
prediction is evaluated against it.
Example: oracledash cycle --actual-price=0.95`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			oneShot(cmd, cfg)
			req, err := cycleRequest(cmd)
			if err != nil {
				return err
			}
			timeout, _ := cmd.Flags().GetDuration("timeout")
			width, _ := cmd.Flags().GetInt("width")

			dash, cleanup, err := di.InitializeDashboard(cfg)
			if err != nil {
				return err
			}
			defer cleanup()

			ctx, cancel := context.WithTimeout(cmd.Context(), timeout)
			defer cancel()
			if req.ActualPrice != nil && req.PreviousPredictionID == nil {
				// Load the latest prediction so it can be named for evaluation.
				dash.Revalidate(ctx)
			}
			out, err := dash.RunCycle(ctx, req)
			if err != nil {
				return fmt.Errorf("cycle failed: %w", err)
			}
			fmt.Fprintln(cmd.OutOrStdout(), display.RenderCycle(out, width))
			return nil
		},
	}

	cmd.Flags().Float64("actual-price", 0, "Observed price to evaluate the previous prediction against")
	cmd.Flags().String("previous-id", "", "Prediction id to evaluate (defaults to the latest)")
	cmd.Flags().Duration("timeout", 2*time.Minute, "How long to wait for the cycle")
	cmd.Flags().Int("width", display.DefaultWidth, "Panel width in columns")
	return cmd
}

// cycleRequest builds the request from flags. Unset flags stay nil so the
// oracle sees them as absent.
func cycleRequest(cmd *cobra.Command) (models.CycleRunRequest, error) {
	var req models.CycleRunRequest
	if cmd.Flags().Changed("actual-price") {
		price, _ := cmd.Flags().GetFloat64("actual-price")
		if price < 0 {
			return req, fmt.Errorf("actual-price must be >= 0")
		}
		req.ActualPrice = &price
	}
	if cmd.Flags().Changed("previous-id") {
		id, _ := cmd.Flags().GetString("previous-id")
		if id == "" {
			return req, fmt.Errorf("previous-id cannot be empty")
		}
		req.PreviousPredictionID = &id
	}
	return req, nil
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Show version information",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "oracledash %s\n", Version)
		},
	}
}
