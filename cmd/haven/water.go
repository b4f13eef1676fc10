package main

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/haven-app/haven/internal/schema"
	"github.com/haven-app/haven/internal/ui"
)

var waterCmd = &cobra.Command{
	Use:     "water",
	GroupID: "data",
	Short:   "Track daily water intake",
}

var waterAddCmd = &cobra.Command{
	Use:   "add <delta>",
	Short: "Add (or with a negative delta, remove) glasses of water",
	Long: `Adjust a profile's water count for a day. The count never drops below zero.

  haven water add 1
  haven water add -- -2 --profile M --date yesterday`,
	Args: cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		delta, err := strconv.Atoi(args[0])
		if err != nil {
			fatalf("Error: invalid delta %q", args[0])
		}
		d, _ := cmd.Flags().GetString("date")
		date := mustDay(d)
		p, _ := cmd.Flags().GetString("profile")
		profile, err := schema.ParseProfile(p)
		if err != nil {
			fatalf("Error: %v", err)
		}

		ctx := cmd.Context()
		core := openCore(ctx)
		defer closeCore(core)

		amount, err := core.AdjustWater(ctx, date, profile, delta)
		if err != nil {
			closeCore(core)
			fatalf("Error: %v", err)
		}
		fmt.Printf("%s %s on %s: %s\n", ui.RenderPass("✓"), profile, date, ui.RenderAccent(strconv.Itoa(amount)))
	},
}

var waterShowCmd = &cobra.Command{
	Use:   "show [date]",
	Short: "Show water intake for a day",
	Args:  cobra.MaximumNArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		day := ""
		if len(args) == 1 {
			day = args[0]
		}
		date := mustDay(day)

		core := openCore(cmd.Context())
		defer closeCore(core)

		water := core.Water(date)
		fmt.Println(ui.RenderHeader("Water " + date))
		for _, p := range schema.Profiles {
			fmt.Printf("  %s  %d\n", p, water[p])
		}
	},
}

func init() {
	waterAddCmd.Flags().StringP("profile", "p", string(schema.ProfileV), "profile (V or M)")
	waterAddCmd.Flags().StringP("date", "d", "", "day to adjust (default today)")

	waterCmd.AddCommand(waterAddCmd, waterShowCmd)
	rootCmd.AddCommand(waterCmd)
}
