package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/haven-app/haven/internal/ui"
)

var groceryCmd = &cobra.Command{
	Use:     "grocery",
	GroupID: "data",
	Short:   "Show the grocery list for the coming days",
	Long: `Aggregate the ingredients of every meal planned from today over the
next 3, 7 or 14 days, grouped by store.

Checked items are remembered only while a process runs (e.g. the dashboard);
use the dashboard to tick items off while shopping.`,
	Run: func(cmd *cobra.Command, args []string) {
		days, _ := cmd.Flags().GetInt("days")
		if !cmd.Flags().Changed("days") {
			days = cfg.Grocery.WindowDays
		}
		asJSON, _ := cmd.Flags().GetBool("json")

		core := openCore(cmd.Context())
		defer closeCore(core)

		list, err := core.GroceryList(days)
		if err != nil {
			closeCore(core)
			fatalf("Error: %v", err)
		}
		if asJSON {
			printJSON(list)
			return
		}
		fmt.Print(ui.RenderGrocery(list))
	},
}

func init() {
	groceryCmd.Flags().Int("days", 7, "window in days (3, 7 or 14)")
	groceryCmd.Flags().Bool("json", false, "output JSON")
	rootCmd.AddCommand(groceryCmd)
}
