package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/haven-app/haven/internal/schema"
	"github.com/haven-app/haven/internal/ui"
)

var planCmd = &cobra.Command{
	Use:     "plan",
	GroupID: "data",
	Short:   "Assign recipes to days and slots",
}

// planCell parses the shared <date> <slot> <recipe-id> arguments and --profile.
func planCell(cmd *cobra.Command, args []string) (string, schema.Slot, string, schema.Profile) {
	date := mustDay(args[0])
	slot, err := schema.ParseSlot(args[1])
	if err != nil {
		fatalf("Error: %v", err)
	}
	p, _ := cmd.Flags().GetString("profile")
	profile, err := schema.ParseProfile(p)
	if err != nil {
		fatalf("Error: %v", err)
	}
	return date, slot, args[2], profile
}

var planAssignCmd = &cobra.Command{
	Use:   "assign <date> <slot> <recipe-id>",
	Short: "Plan a recipe for a profile",
	Long: `Plan a recipe in one slot of one day.

Dates are YYYY-MM-DD or phrases like "tomorrow" and "next friday".
Slots: Pre-Breakfast, Breakfast, Lunch, Snacks, Dinner, Post-Dinner.

Assigning the same recipe to the same profile twice is a no-op.`,
	Args: cobra.ExactArgs(3),
	Run: func(cmd *cobra.Command, args []string) {
		date, slot, recipeID, profile := planCell(cmd, args)

		ctx := cmd.Context()
		core := openCore(ctx)
		defer closeCore(core)

		changed, err := core.AssignMeal(ctx, date, slot, recipeID, profile)
		if err != nil {
			closeCore(core)
			fatalf("Error: %v", err)
		}
		if !changed {
			fmt.Printf("%s Already planned\n", ui.RenderMuted("•"))
			return
		}
		fmt.Printf("%s Planned %s for %s %s (%s)\n", ui.RenderPass("✓"), recipeID, date, slot, profile)
		if _, ok := core.Recipe(recipeID); !ok {
			fmt.Printf("%s %s is not in the recipe catalog; it will be skipped until it is\n", ui.RenderWarn("!"), recipeID)
		}
	},
}

var planUnassignCmd = &cobra.Command{
	Use:   "unassign <date> <slot> <recipe-id>",
	Short: "Remove a planned recipe",
	Args:  cobra.ExactArgs(3),
	Run: func(cmd *cobra.Command, args []string) {
		date, slot, recipeID, profile := planCell(cmd, args)

		ctx := cmd.Context()
		core := openCore(ctx)
		defer closeCore(core)

		changed, err := core.UnassignMeal(ctx, date, slot, recipeID, profile)
		if err != nil {
			closeCore(core)
			fatalf("Error: %v", err)
		}
		if !changed {
			fmt.Printf("%s Nothing to remove\n", ui.RenderMuted("•"))
			return
		}
		fmt.Printf("%s Removed %s from %s %s (%s)\n", ui.RenderPass("✓"), recipeID, date, slot, profile)
	},
}

var planShowCmd = &cobra.Command{
	Use:   "show [date]",
	Short: "Show one day: meals, macros, water and prep tasks",
	Args:  cobra.MaximumNArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		day := ""
		if len(args) == 1 {
			day = args[0]
		}
		date := mustDay(day)

		core := openCore(cmd.Context())
		defer closeCore(core)

		recipes := schema.RecipesByID(core.Recipes())
		fmt.Print(ui.RenderDay(date, core.Plan(), recipes, core.Water(date)))
	},
}

func init() {
	for _, c := range []*cobra.Command{planAssignCmd, planUnassignCmd} {
		c.Flags().StringP("profile", "p", string(schema.ProfileV), "profile (V or M)")
	}

	planCmd.AddCommand(planAssignCmd, planUnassignCmd, planShowCmd)
	rootCmd.AddCommand(planCmd)
}
