package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/haven-app/haven/internal/remote"
	"github.com/haven-app/haven/internal/ui"
)

var syncCmd = &cobra.Command{
	Use:     "sync",
	GroupID: "sync",
	Short:   "Run a reconciliation pass against the remote",
	Long: `Fetch every remote collection and merge it with local data.

Remote records win when both sides have the same key. Local records the
remote doesn't have are kept and stay marked local.`,
	Run: func(cmd *cobra.Command, args []string) {
		if offline {
			fatalf("Error: sync is not available with --offline")
		}
		ctx := cmd.Context()
		core := openCore(ctx)
		defer closeCore(core)

		res, err := core.Reconcile(ctx)
		if errors.Is(err, remote.ErrNotConfigured) {
			closeCore(core)
			fatalf("Error: no remote configured (run: haven remote configure <endpoint>)")
		}
		if err != nil {
			closeCore(core)
			fatalf("%s Sync failed: %v", ui.RenderFail("✗"), err)
		}

		s := res.Stats
		fmt.Printf("%s Synced (pass %d)\n", ui.RenderPass("✓"), res.Seq)
		fmt.Printf("  Recipes: %d cloud, %d local\n", s.Recipes.Cloud, s.Recipes.Local)
		fmt.Printf("  Plan:    %d cloud, %d local\n", s.Plan.Cloud, s.Plan.Local)
		fmt.Printf("  Water:   %d cloud, %d local\n", s.Water.Cloud, s.Water.Local)
	},
}

var remoteCmd = &cobra.Command{
	Use:     "remote",
	GroupID: "sync",
	Short:   "Configure the remote database",
}

var remoteConfigureCmd = &cobra.Command{
	Use:   "configure <endpoint>",
	Short: "Set the remote endpoint and reconcile",
	Long: `Store the remote endpoint and credential, then run a reconciliation pass.

Endpoints:
  libsql://<db>.turso.io   hosted libSQL (requires --credential)
  https://...              libSQL over HTTP (requires --credential)
  file:/path/to/db         a SQLite file, useful for sharing on one machine

The config is kept even when the first pass fails.`,
	Args: cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		credential, _ := cmd.Flags().GetString("credential")
		owner, _ := cmd.Flags().GetString("owner")
		if credential == "" {
			credential = os.Getenv("HAVEN_REMOTE_CREDENTIAL")
		}

		ctx := cmd.Context()
		core := openCore(ctx)
		defer closeCore(core)

		rc := remote.Config{Endpoint: args[0], Credential: credential, Owner: owner}
		if err := core.Connect(ctx, rc); err != nil {
			if errors.Is(err, remote.ErrInvalidConfig) {
				closeCore(core)
				fatalf("Error: %v", err)
			}
			fmt.Fprintf(os.Stderr, "%s Remote saved, but the first sync failed: %v\n", ui.RenderWarn("⚠"), err)
			return
		}
		fmt.Printf("%s Remote configured: %s\n", ui.RenderPass("✓"), ui.RenderAccent(rc.Redacted()))
	},
}

var remoteDisconnectCmd = &cobra.Command{
	Use:   "disconnect",
	Short: "Forget the remote; local data is kept",
	Run: func(cmd *cobra.Command, args []string) {
		ctx := cmd.Context()
		core := openCore(ctx)
		defer closeCore(core)

		if err := core.DisconnectRemote(ctx); err != nil {
			closeCore(core)
			fatalf("Error: %v", err)
		}
		fmt.Printf("%s Remote disconnected\n", ui.RenderPass("✓"))
	},
}

var statusCmd = &cobra.Command{
	Use:     "status",
	GroupID: "sync",
	Short:   "Show the sync status and remote",
	Run: func(cmd *cobra.Command, args []string) {
		core := openCore(cmd.Context())
		defer closeCore(core)

		asJSON, _ := cmd.Flags().GetBool("json")
		snap := core.SyncStatus()
		rc, configured := core.RemoteConfig()
		if asJSON {
			out := map[string]any{"status": snap, "durable": core.Durable()}
			if configured {
				out["remote"] = rc.Redacted()
			}
			printJSON(out)
			return
		}

		fmt.Println(ui.RenderStatus(snap))
		if configured {
			fmt.Printf("  Remote: %s\n", rc.Redacted())
			fmt.Printf("  Owner:  %s\n", rc.OwnerOrPublic())
		} else {
			fmt.Printf("  Remote: %s\n", ui.RenderMuted("not configured"))
		}
		fmt.Printf("  Data:   %s\n", cfg.DBPath())
	},
}

func init() {
	remoteConfigureCmd.Flags().String("credential", "", "auth token (default $HAVEN_REMOTE_CREDENTIAL)")
	remoteConfigureCmd.Flags().String("owner", "", "owner id for remote rows (default from config)")
	statusCmd.Flags().Bool("json", false, "output JSON")

	remoteCmd.AddCommand(remoteConfigureCmd, remoteDisconnectCmd)
	rootCmd.AddCommand(syncCmd, remoteCmd, statusCmd)
}
