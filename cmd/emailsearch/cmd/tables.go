package cmd

import (
	"encoding/json"
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/wesm/emailsearch/internal/query"
)

var tablesJSON bool

var tablesCmd = &cobra.Command{
	Use:   "tables",
	Short: "List the dataset's tables and their categories",
	RunE: func(cmd *cobra.Command, args []string) error {
		engine, err := newEngine(logger)
		if err != nil {
			return err
		}
		defer engine.Close()

		ctx := cmd.Context()
		dataset, err := engine.DatasetConfig(ctx)
		if err != nil {
			return fmt.Errorf("load dataset config: %w", err)
		}

		// Category lists are independent; fetch them concurrently. The
		// client's rate limiter still caps the request rate.
		categories := make([][]string, len(dataset.Tables))
		g, gctx := errgroup.WithContext(ctx)
		for i, t := range dataset.Tables {
			g.Go(func() error {
				cats, err := engine.Categories(gctx, t.ID)
				if err != nil {
					return fmt.Errorf("categories for %s: %w", t.Label, err)
				}
				categories[i] = cats
				return nil
			})
		}
		if err := g.Wait(); err != nil {
			return err
		}

		if tablesJSON {
			return outputTablesJSON(cmd.OutOrStdout(), dataset, categories)
		}
		return outputTables(cmd.OutOrStdout(), dataset, categories)
	},
}

func outputTables(w io.Writer, dataset *query.DatasetConfig, categories [][]string) error {
	fmt.Fprintf(w, "Dataset: %s\n\n", dataset.DatasetName)

	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tLABEL\tTABLE\tCATEGORIES")
	fmt.Fprintln(tw, "──\t─────\t─────\t──────────")
	for i, t := range dataset.Tables {
		id := t.ID
		if id == "" {
			id = "(default)"
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%d\n", id, t.Label, dataset.QualifiedName(t.ID), len(categories[i]))
	}
	if err := tw.Flush(); err != nil {
		return err
	}

	for i, t := range dataset.Tables {
		if len(categories[i]) == 0 {
			continue
		}
		fmt.Fprintf(w, "\n%s:\n", t.Label)
		for _, c := range categories[i] {
			fmt.Fprintf(w, "  %s\n", c)
		}
	}
	return nil
}

func outputTablesJSON(w io.Writer, dataset *query.DatasetConfig, categories [][]string) error {
	type tableOut struct {
		ID         string   `json:"id"`
		Label      string   `json:"label"`
		Table      string   `json:"table"`
		Categories []string `json:"categories"`
	}
	out := struct {
		Dataset string     `json:"dataset"`
		Tables  []tableOut `json:"tables"`
	}{Dataset: dataset.DatasetName, Tables: []tableOut{}}

	for i, t := range dataset.Tables {
		cats := categories[i]
		if cats == nil {
			cats = []string{}
		}
		out.Tables = append(out.Tables, tableOut{ID: t.ID, Label: t.Label, Table: t.TableName, Categories: cats})
	}

	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(out)
}

func init() {
	rootCmd.AddCommand(tablesCmd)
	tablesCmd.Flags().BoolVar(&tablesJSON, "json", false, "output as JSON")
}
