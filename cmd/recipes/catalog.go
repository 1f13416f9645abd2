package main

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"fridge-vision/internal/core/recipe"
	"fridge-vision/internal/pkg/common"

	"github.com/spf13/cobra"
)

func readCatalog(path string) ([]recipe.Recipe, error) {
	recipes, err := recipe.ReadCatalog(path)
	if err != nil {
		return nil, fmt.Errorf("read catalog %s: %w", path, err)
	}
	return recipes, nil
}

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func validateCommand() *cobra.Command {
	var (
		file string
		top  int
	)

	cmd := &cobra.Command{
		Use:   "validate",
		Short: "Load a catalog and report counts and empty recipes",
		RunE: func(cmd *cobra.Command, args []string) error {
			recipes, err := readCatalog(file)
			if err != nil {
				return err
			}
			store := recipe.NewStore(recipes)
			st := recipe.Stats(store.Recipes(), top)

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "entries:            %d\n", len(recipes))
			fmt.Fprintf(out, "valid recipes:      %d\n", store.Len())
			fmt.Fprintf(out, "unique ingredients: %d\n", st.UniqueIngredients)
			fmt.Fprintf(out, "avg per recipe:     %.1f\n", st.AvgIngredients)
			fmt.Fprintf(out, "empty recipes:      %d\n", len(st.EmptyRecipes))
			for _, ic := range st.TopIngredients {
				fmt.Fprintf(out, "  %-20s %d\n", ic.Name, ic.Count)
			}

			if skipped := len(recipes) - store.Len(); skipped > 0 {
				return fmt.Errorf("%d entries have invalid or duplicate ids", skipped)
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&file, "file", "data/recipes.json", "catalog file (JSON or YAML)")
	cmd.Flags().IntVar(&top, "top", 10, "number of most common ingredients to list")
	return cmd
}

func searchCommand() *cobra.Command {
	var file, query string

	cmd := &cobra.Command{
		Use:   "search",
		Short: "Search recipes by name or ingredient",
		RunE: func(cmd *cobra.Command, args []string) error {
			if strings.TrimSpace(query) == "" {
				return fmt.Errorf("--query is required")
			}
			recipes, err := readCatalog(file)
			if err != nil {
				return err
			}

			results := recipe.NewStore(recipes).Search(query)
			for _, r := range results {
				fmt.Fprintf(cmd.OutOrStdout(), "%4d  %s  [%s]\n", r.ID, r.Name, strings.Join(r.Ingredients, ", "))
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%d recipes match %q\n", len(results), query)
			return nil
		},
	}

	cmd.Flags().StringVar(&file, "file", "data/recipes.json", "catalog file (JSON or YAML)")
	cmd.Flags().StringVar(&query, "query", "", "search text")
	return cmd
}

func recommendCommand() *cobra.Command {
	var (
		file        string
		ingredients []string
		topK        int
		minMatch    int
		asJSON      bool
	)

	cmd := &cobra.Command{
		Use:   "recommend",
		Short: "Rank catalog recipes against a list of available ingredients",
		RunE: func(cmd *cobra.Command, args []string) error {
			available := common.SplitList(ingredients)
			if len(available) == 0 {
				return fmt.Errorf("--ingredients is required")
			}
			recipes, err := readCatalog(file)
			if err != nil {
				return err
			}

			ranked := recipe.NewMatcher(recipe.NewStore(recipes)).Recommend(available, topK, minMatch)
			if asJSON {
				return printJSON(cmd.OutOrStdout(), ranked)
			}
			for i, r := range ranked {
				fmt.Fprintf(cmd.OutOrStdout(), "%d. %s  score=%.1f  match=%.1f%%  missing=[%s]\n",
					i+1, r.Name, r.Score, r.MatchPercentage, strings.Join(r.MissingIngredients, ", "))
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&file, "file", "data/recipes.json", "catalog file (JSON or YAML)")
	cmd.Flags().StringSliceVar(&ingredients, "ingredients", nil, "available ingredients, comma separated")
	cmd.Flags().IntVar(&topK, "top-k", 5, "number of recipes to return (0 for all)")
	cmd.Flags().IntVar(&minMatch, "min-match", 1, "minimum matched ingredients")
	cmd.Flags().BoolVar(&asJSON, "json", false, "print JSON")
	return cmd
}
