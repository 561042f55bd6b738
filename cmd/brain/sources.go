package main

import (
	"fmt"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/spf13/cobra"

	"github.com/misterprompt/brain-ai/internal/fetch"
)

var sourcesCmd = &cobra.Command{
	Use:   "sources",
	Short: "List the data sources in the catalog",
	RunE:  runSources,
}

func runSources(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if cfg.Catalog.Path == "" {
		fmt.Println("No catalog configured. Set catalog.path or BRAIN_CATALOG.")
		return nil
	}

	specs, err := fetch.LoadCatalog(cfg.Catalog.Path)
	if err != nil {
		return err
	}

	reg := fetch.NewRegistry()
	if err := reg.Replace(fetch.Builder{}.Build(specs)); err != nil {
		return err
	}
	urls := make(map[string]string, len(specs))
	for _, s := range specs {
		urls[s.ID] = s.URL
	}

	var rows [][]string
	for _, e := range reg.Entries() {
		id := e.Source.ID()
		rows = append(rows, []string{id, e.Name, string(e.Tier), string(e.Category), urls[id]})
	}

	t := table.New().
		Border(lipgloss.RoundedBorder()).
		BorderStyle(lipgloss.NewStyle().Foreground(lipgloss.Color("8"))).
		Headers("ID", "NAME", "TIER", "CATEGORY", "URL").
		Rows(rows...).
		StyleFunc(func(row, col int) lipgloss.Style {
			if row == table.HeaderRow {
				return headerStyle
			}
			if col == 4 {
				return mutedStyle
			}
			return cellStyle
		})

	fmt.Println(t.String())
	fmt.Printf("%d sources from %s\n", reg.Len(), cfg.Catalog.Path)
	return nil
}
