package main

import (
	"fmt"
	"os"
	"path/filepath"

	"fridge-vision/internal/core/recipe"
	"fridge-vision/internal/infrastructure/config"

	"github.com/spf13/cobra"
)

func convertCommand() *cobra.Command {
	var (
		in    string
		out   string
		limit int
		vocab []string
	)

	cmd := &cobra.Command{
		Use:   "convert",
		Short: "Convert a recipe CSV (title, ingredients, url) into the JSON catalog",
		RunE: func(cmd *cobra.Command, args []string) error {
			f, err := os.Open(in)
			if err != nil {
				return fmt.Errorf("open csv: %w", err)
			}
			defer f.Close()

			recipes, stats, err := recipe.ConvertCSV(f, recipe.NewNormalizer(vocab), limit)
			if err != nil {
				return err
			}

			if dir := filepath.Dir(out); dir != "" {
				if err := os.MkdirAll(dir, 0o755); err != nil {
					return fmt.Errorf("create output directory: %w", err)
				}
			}
			w, err := os.Create(out)
			if err != nil {
				return fmt.Errorf("create catalog: %w", err)
			}
			if err := recipe.WriteCatalog(w, recipes); err != nil {
				w.Close()
				return fmt.Errorf("write catalog: %w", err)
			}
			if err := w.Close(); err != nil {
				return err
			}

			st := recipe.Stats(recipes, 10)
			fmt.Fprintf(cmd.OutOrStdout(), "rows read:          %d\n", stats.Rows)
			fmt.Fprintf(cmd.OutOrStdout(), "recipes written:    %d\n", stats.Kept)
			fmt.Fprintf(cmd.OutOrStdout(), "rows dropped:       %d\n", stats.Dropped)
			fmt.Fprintf(cmd.OutOrStdout(), "unique ingredients: %d\n", st.UniqueIngredients)
			fmt.Fprintf(cmd.OutOrStdout(), "avg per recipe:     %.1f\n", st.AvgIngredients)
			fmt.Fprintf(cmd.OutOrStdout(), "saved to %s\n", out)
			return nil
		},
	}

	cmd.Flags().StringVar(&in, "in", "recipes.csv", "input CSV file")
	cmd.Flags().StringVar(&out, "out", "data/recipes.json", "output JSON catalog")
	cmd.Flags().IntVar(&limit, "limit", 10000, "maximum rows to convert (0 for all)")
	cmd.Flags().StringSliceVar(&vocab, "vocab", config.DefaultClasses, "ingredient vocabulary used for normalization")
	return cmd
}
