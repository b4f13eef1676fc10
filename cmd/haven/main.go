// Command haven is the CLI for the local-first meal planner.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/haven-app/haven/internal/config"
	"github.com/haven-app/haven/internal/logging"
)

var (
	configPath string
	offline    bool
	quiet      bool

	cfg  config.Config
	logs *logging.Factory
)

var rootCmd = &cobra.Command{
	Use:   "haven",
	Short: "Local-first meal planning",
	Long: `haven keeps recipes, a meal plan and water intake on this machine and
mirrors every change to an optional remote database.

Everything works offline. When a remote is configured, local changes are
pushed as they happen and a reconciliation pass pulls remote data in.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		loaded, err := config.Load(configPath)
		if err != nil {
			return err
		}
		if quiet {
			loaded.Log.Quiet = true
		}
		cfg = loaded
		logs = logging.NewFactory(cfg.Log)
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if logs != nil {
			_ = logs.Close()
		}
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "config file (default ~/.haven/config.toml)")
	rootCmd.PersistentFlags().BoolVar(&offline, "offline", false, "never contact the remote")
	rootCmd.PersistentFlags().BoolVarP(&quiet, "quiet", "q", false, "suppress log output on stderr")

	rootCmd.AddGroup(
		&cobra.Group{ID: "data", Title: "Data:"},
		&cobra.Group{ID: "sync", Title: "Sync:"},
		&cobra.Group{ID: "advanced", Title: "Advanced:"},
	)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
