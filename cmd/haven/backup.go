package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/haven-app/haven/internal/migrate"
	"github.com/haven-app/haven/internal/ui"
)

var exportCmd = &cobra.Command{
	Use:     "export <path>",
	GroupID: "advanced",
	Short:   "Export recipes, the meal plan and water intake to a file",
	Long: `Write a portable backup. The format follows the extension:

  .jsonl / .ndjson   one record per line
  .yaml / .yml       one document

Provenance markers are not exported.`,
	Args: cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		core := openCore(cmd.Context())
		defer closeCore(core)

		b, err := migrate.ExportFile(args[0], core.Snapshot())
		if err != nil {
			closeCore(core)
			fatalf("Error: %v", err)
		}
		fmt.Printf("%s Exported %d recipes, %d planned meals, %d water entries to %s\n",
			ui.RenderPass("✓"), len(b.Recipes), len(b.Plan), len(b.Water), args[0])
	},
}

var importCmd = &cobra.Command{
	Use:     "import <path>",
	GroupID: "advanced",
	Short:   "Import a backup written by export",
	Long: `Merge a backup into local data. Recipes replace ones with the same id,
meals already planned are skipped and water counts are set to the backed-up
amounts. Every write is mirrored to the remote like any other change.`,
	Args: cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		dryRun, _ := cmd.Flags().GetBool("dry-run")

		b, err := migrate.ReadFile(args[0])
		if err != nil {
			fatalf("Error: %v", err)
		}

		ctx := cmd.Context()
		core := openCore(ctx)
		defer closeCore(core)

		res, err := migrate.Apply(ctx, core, b, migrate.ApplyOptions{DryRun: dryRun})
		if err != nil {
			closeCore(core)
			fatalf("Error: %v", err)
		}

		verb := "Imported"
		if dryRun {
			verb = "Would import"
		}
		fmt.Printf("%s %s %d recipes, %d planned meals, %d water entries\n",
			ui.RenderPass("✓"), verb, res.Recipes, res.Meals, res.Water)
		if len(res.Errors) > 0 {
			fmt.Fprintf(os.Stderr, "%s %d entries skipped:\n", ui.RenderWarn("⚠"), len(res.Errors))
			for _, e := range res.Errors {
				fmt.Fprintf(os.Stderr, "  %s\n", e)
			}
		}
	},
}

func init() {
	importCmd.Flags().Bool("dry-run", false, "validate and count without writing")
	rootCmd.AddCommand(exportCmd, importCmd)
}
