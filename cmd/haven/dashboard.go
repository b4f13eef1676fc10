package main

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/haven-app/haven/internal/dashboard"
	"github.com/haven-app/haven/internal/ui"
)

var dashboardCmd = &cobra.Command{
	Use:     "dashboard",
	GroupID: "advanced",
	Short:   "Serve the live grocery list and sync status",
	Long: `Start an HTTP and WebSocket server on localhost.

Routes:
  GET  /grocery?days=7   the grocery list
  POST /grocery/toggle   {"key": "..."} checks or unchecks an item
  GET  /status           sync status
  GET  /health
  WS   /ws               live updates

WebSocket messages:
  - sync_status: the sync state changed
  - grocery_update: the grocery list changed
  - plan_update: a recipe, plan cell or water count changed

Checked grocery items live as long as the server runs.`,
	Run: func(cmd *cobra.Command, args []string) {
		port, _ := cmd.Flags().GetInt("port")
		if !cmd.Flags().Changed("port") {
			port = cfg.Dashboard.Port
		}
		host, _ := cmd.Flags().GetString("host")

		ctx, cancel := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer cancel()

		core := openCore(ctx)
		defer closeCore(core)

		logger := logs.New("dashboard")
		server := dashboard.NewServer(&dashboard.Config{
			Host:   host,
			Port:   port,
			Source: core,
			Logger: logger,
		})
		if err := server.Start(); err != nil {
			closeCore(core)
			fatalf("Error: failed to start dashboard: %v", err)
		}

		events := core.Subscribe()
		defer core.Unsubscribe(events)
		changes := core.Tracker().Subscribe()
		defer core.Tracker().Unsubscribe(changes)

		handler := dashboard.NewHandler(server, core, logger)
		handler.GroceryDays = cfg.Grocery.WindowDays
		go handler.Run(ctx, events, changes)

		addr := server.GetAddr()
		fmt.Printf("%s Dashboard on %s\n", ui.RenderPass("✓"), ui.RenderAccent("http://"+addr))
		fmt.Printf("  WebSocket: ws://%s/ws\n", addr)
		fmt.Println("\nPress Ctrl+C to stop...")

		<-ctx.Done()

		fmt.Println("\nShutting down dashboard server...")
		if err := server.Stop(); err != nil {
			fmt.Fprintf(os.Stderr, "Error during shutdown: %v\n", err)
		}
	},
}

func init() {
	dashboardCmd.Flags().IntP("port", "p", 8080, "port to listen on (default from config)")
	dashboardCmd.Flags().String("host", "127.0.0.1", "address to bind")
	rootCmd.AddCommand(dashboardCmd)
}
