package main

import (
	"encoding/json"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/haven-app/haven/internal/schema"
	"github.com/haven-app/haven/internal/ui"
)

var recipeCmd = &cobra.Command{
	Use:     "recipe",
	GroupID: "data",
	Short:   "Manage the recipe catalog",
}

var recipeAddCmd = &cobra.Command{
	Use:   "add [name]",
	Short: "Add or replace a recipe",
	Long: `Add a recipe from flags, from a JSON file, or every JSON file in a directory.

Ingredients are given as "item:quantity:unit[:store]", e.g.

  haven recipe add "Dal" -i "Lentils:1:cup" -i "Ghee:2:tbsp:Costco"
  haven recipe add --file dal.json
  haven recipe add --dir ./recipes

A recipe with the id of an existing one replaces it.`,
	Args: cobra.MaximumNArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		file, _ := cmd.Flags().GetString("file")
		dir, _ := cmd.Flags().GetString("dir")

		var recipes []schema.Recipe
		switch {
		case dir != "":
			all, err := schema.ReadAllRecipeFiles(dir)
			if err != nil {
				fatalf("Error: %v", err)
			}
			for _, r := range all {
				recipes = append(recipes, *r)
			}
		case file != "":
			r, err := schema.ReadRecipeFile(file)
			if err != nil {
				fatalf("Error: %v", err)
			}
			recipes = append(recipes, *r)
		default:
			if len(args) == 0 {
				fatalf("Error: a recipe name, --file or --dir is required")
			}
			r, err := recipeFromFlags(cmd, args[0])
			if err != nil {
				fatalf("Error: %v", err)
			}
			recipes = append(recipes, r)
		}

		ctx := cmd.Context()
		core := openCore(ctx)
		defer closeCore(core)

		failed := 0
		for _, r := range recipes {
			saved, err := core.SaveRecipe(ctx, r)
			if err != nil {
				fmt.Fprintf(os.Stderr, "%s %s: %v\n", ui.RenderFail("✗"), r.Name, err)
				failed++
				continue
			}
			fmt.Printf("%s Saved %s %s\n", ui.RenderPass("✓"), saved.Name, ui.RenderMuted("("+saved.ID+")"))
		}
		if failed > 0 {
			closeCore(core)
			os.Exit(1)
		}
	},
}

func recipeFromFlags(cmd *cobra.Command, name string) (schema.Recipe, error) {
	id, _ := cmd.Flags().GetString("id")
	difficulty, _ := cmd.Flags().GetString("difficulty")
	eatOut, _ := cmd.Flags().GetBool("eat-out")
	ingredients, _ := cmd.Flags().GetStringArray("ingredient")
	prep, _ := cmd.Flags().GetStringArray("prep")
	calories, _ := cmd.Flags().GetFloat64("calories")
	protein, _ := cmd.Flags().GetFloat64("protein")
	carbs, _ := cmd.Flags().GetFloat64("carbs")
	fat, _ := cmd.Flags().GetFloat64("fat")
	fiber, _ := cmd.Flags().GetFloat64("fiber")

	r := schema.Recipe{
		ID:         id,
		Name:       name,
		Difficulty: schema.Difficulty(difficulty),
		Macros:     schema.Macros{Calories: calories, Protein: protein, Carbs: carbs, Fat: fat, Fiber: fiber},
	}
	if eatOut {
		r.Kind = schema.KindEatOut
	}
	for _, arg := range ingredients {
		ing, err := parseIngredient(arg)
		if err != nil {
			return schema.Recipe{}, err
		}
		r.Ingredients = append(r.Ingredients, ing)
	}
	for _, arg := range prep {
		task, duration, _ := strings.Cut(arg, ":")
		r.PrepTasks = append(r.PrepTasks, schema.PrepTask{Task: strings.TrimSpace(task), Duration: strings.TrimSpace(duration)})
	}
	return r, nil
}

// parseIngredient parses "item:quantity:unit[:store]".
func parseIngredient(arg string) (schema.Ingredient, error) {
	parts := strings.Split(arg, ":")
	if len(parts) < 3 || len(parts) > 4 {
		return schema.Ingredient{}, fmt.Errorf("ingredient %q: want item:quantity:unit[:store]", arg)
	}
	qty, err := strconv.ParseFloat(strings.TrimSpace(parts[1]), 64)
	if err != nil {
		return schema.Ingredient{}, fmt.Errorf("ingredient %q: invalid quantity", arg)
	}
	ing := schema.Ingredient{
		Item:     strings.TrimSpace(parts[0]),
		Quantity: qty,
		Unit:     strings.TrimSpace(parts[2]),
	}
	if len(parts) == 4 {
		ing.StoreName = strings.TrimSpace(parts[3])
	}
	return ing, nil
}

var recipeListCmd = &cobra.Command{
	Use:   "list",
	Short: "List recipes",
	Run: func(cmd *cobra.Command, args []string) {
		core := openCore(cmd.Context())
		defer closeCore(core)

		asJSON, _ := cmd.Flags().GetBool("json")
		recipes := core.Recipes()
		if asJSON {
			printJSON(recipes)
			return
		}
		fmt.Print(ui.RenderRecipes(recipes))
	},
}

var recipeShowCmd = &cobra.Command{
	Use:   "show <id>",
	Short: "Show one recipe as JSON",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		core := openCore(cmd.Context())
		defer closeCore(core)

		r, ok := core.Recipe(args[0])
		if !ok {
			closeCore(core)
			fatalf("Error: recipe %s not found", args[0])
		}
		printJSON(r)
	},
}

var recipeDeleteCmd = &cobra.Command{
	Use:   "delete <id>",
	Short: "Delete a recipe and every plan entry that uses it",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		ctx := cmd.Context()
		core := openCore(ctx)
		defer closeCore(core)

		if err := core.DeleteRecipe(ctx, args[0]); err != nil {
			closeCore(core)
			fatalf("Error deleting recipe: %v", err)
		}
		fmt.Printf("%s Deleted %s\n", ui.RenderPass("✓"), args[0])
	},
}

func printJSON(v any) {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		fatalf("Error encoding output: %v", err)
	}
}

func init() {
	recipeAddCmd.Flags().String("id", "", "recipe id (generated when empty)")
	recipeAddCmd.Flags().String("difficulty", "", "Easy, Medium or Hard")
	recipeAddCmd.Flags().Bool("eat-out", false, "mark as an eat-out entry")
	recipeAddCmd.Flags().StringArrayP("ingredient", "i", nil, "item:quantity:unit[:store] (repeatable)")
	recipeAddCmd.Flags().StringArray("prep", nil, "task:duration (repeatable)")
	recipeAddCmd.Flags().Float64("calories", 0, "calories per serving")
	recipeAddCmd.Flags().Float64("protein", 0, "protein (g)")
	recipeAddCmd.Flags().Float64("carbs", 0, "carbs (g)")
	recipeAddCmd.Flags().Float64("fat", 0, "fat (g)")
	recipeAddCmd.Flags().Float64("fiber", 0, "fiber (g)")
	recipeAddCmd.Flags().String("file", "", "read the recipe from a JSON file")
	recipeAddCmd.Flags().String("dir", "", "read every *.json recipe file in a directory")

	recipeListCmd.Flags().Bool("json", false, "output JSON")

	recipeCmd.AddCommand(recipeAddCmd, recipeListCmd, recipeShowCmd, recipeDeleteCmd)
	rootCmd.AddCommand(recipeCmd)
}
