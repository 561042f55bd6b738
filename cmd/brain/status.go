package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strconv"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/spf13/cobra"

	"github.com/misterprompt/brain-ai/internal/breaker"
	"github.com/misterprompt/brain-ai/internal/router"
)

var statusJSON bool

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show provider health, quota and breaker state",
	Long: `Display every configured provider in routing order.

Shows:
  - Availability and the last error seen
  - Calls used today against the daily quota
  - Circuit breaker state and consecutive failures`,
	RunE: runStatus,
}

func init() {
	statusCmd.Flags().BoolVar(&statusJSON, "json", false, "Print the status as JSON")
}

var (
	headerStyle = lipgloss.NewStyle().Bold(true).Padding(0, 1)
	cellStyle   = lipgloss.NewStyle().Padding(0, 1)
	okStyle     = cellStyle.Foreground(lipgloss.Color("2"))
	warnStyle   = cellStyle.Foreground(lipgloss.Color("3"))
	badStyle    = cellStyle.Foreground(lipgloss.Color("1"))
	mutedStyle  = cellStyle.Foreground(lipgloss.Color("8"))
)

func runStatus(cmd *cobra.Command, args []string) error {
	ctx := context.Background()
	a, err := setup(ctx, true)
	if err != nil {
		return err
	}
	defer a.Close()

	statuses := a.router.Status(ctx)
	if statusJSON {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(statuses)
	}

	fmt.Println(renderStatus(statuses))
	fmt.Printf("cache: %s", a.cache.Backend())
	if st, ok := a.cache.Stats(); ok {
		fmt.Printf(" (%d entries, %d hits, %d misses, %d evictions)", st.Entries, st.Hits, st.Misses, st.Evictions)
	}
	fmt.Println()
	return nil
}

// renderStatus lays the statuses out as a table.
func renderStatus(statuses []router.ProviderStatus) string {
	rows := make([][]string, len(statuses))
	for i, st := range statuses {
		rows[i] = []string{
			st.Name,
			string(st.Kind),
			st.Model,
			strconv.Itoa(st.Priority),
			availability(st),
			quotaCell(st),
			breakerCell(st),
			st.LastError,
		}
	}

	t := table.New().
		Border(lipgloss.RoundedBorder()).
		BorderStyle(lipgloss.NewStyle().Foreground(lipgloss.Color("8"))).
		Headers("PROVIDER", "KIND", "MODEL", "PRI", "UP", "QUOTA", "BREAKER", "LAST ERROR").
		Rows(rows...).
		StyleFunc(func(row, col int) lipgloss.Style {
			if row == table.HeaderRow {
				return headerStyle
			}
			if row < 0 || row >= len(statuses) {
				return cellStyle
			}
			st := statuses[row]
			switch col {
			case 4:
				if st.Available {
					return okStyle
				}
				return badStyle
			case 6:
				switch st.Breaker {
				case breaker.StateOpen:
					return badStyle
				case breaker.StateHalfOpen:
					return warnStyle
				}
				return okStyle
			case 7:
				return mutedStyle
			}
			return cellStyle
		})

	return t.String()
}

func availability(st router.ProviderStatus) string {
	if st.Available {
		return "yes"
	}
	return "no"
}

func quotaCell(st router.ProviderStatus) string {
	if st.DailyQuota <= 0 {
		return fmt.Sprintf("%d / ∞", st.UsedToday)
	}
	return fmt.Sprintf("%d / %d", st.UsedToday, st.DailyQuota)
}

func breakerCell(st router.ProviderStatus) string {
	if st.Failures > 0 {
		return fmt.Sprintf("%s (%d)", st.BreakerStr, st.Failures)
	}
	return st.BreakerStr
}
