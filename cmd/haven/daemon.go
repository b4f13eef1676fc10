package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/haven-app/haven/internal/daemon"
	"github.com/haven-app/haven/internal/ui"
)

var daemonCmd = &cobra.Command{
	Use:     "daemon",
	GroupID: "advanced",
	Short:   "Watch the recipe inbox and session file",
	Long: `Run in the foreground, importing recipes and following sign-in state.

  - Every *.json file written to the inbox directory is saved as a recipe.
    A file without an id uses its file name (minus .json) as the id.
  - Writing the session file (endpoint, credential, owner) signs in and
    reconciles. Removing it, or clearing its endpoint, signs out.

Paths default to <data_dir>/inbox and <data_dir>/session.toml.`,
	Run: func(cmd *cobra.Command, args []string) {
		ctx, cancel := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer cancel()

		core := openCore(ctx)
		defer closeCore(core)

		d, err := daemon.NewWithConfig(core, cfg.Daemon.InboxDir, cfg.Daemon.SessionFile, &daemon.Config{
			DebounceInterval: cfg.Daemon.Debounce,
			Logger:           logs.New("daemon"),
		})
		if err != nil {
			closeCore(core)
			fatalf("Error: %v", err)
		}
		if err := d.Start(ctx); err != nil {
			closeCore(core)
			fatalf("Error: failed to start daemon: %v", err)
		}

		fmt.Printf("%s Watching %s\n", ui.RenderPass("✓"), ui.RenderAccent(cfg.Daemon.InboxDir))
		fmt.Printf("  Session file: %s\n", cfg.Daemon.SessionFile)
		fmt.Println("\nPress Ctrl+C to stop...")

		<-ctx.Done()

		fmt.Println("\nShutting down daemon...")
		d.Drain(context.Background())
		if err := d.Stop(); err != nil {
			fmt.Fprintf(os.Stderr, "Error during shutdown: %v\n", err)
		}
	},
}

func init() {
	rootCmd.AddCommand(daemonCmd)
}
