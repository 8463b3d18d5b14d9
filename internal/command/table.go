package command

import (
	"fmt"
	"io"

	"github.com/charmbracelet/lipgloss/v2"
	"github.com/charmbracelet/lipgloss/v2/table"
)

// writeTable renders rows borderless. Empty headers print no header line.
func writeTable(w io.Writer, headers []string, rows [][]string) error {
	t := table.New().
		BorderBottom(false).
		BorderTop(false).
		BorderLeft(false).
		BorderRight(false).
		Border(lipgloss.HiddenBorder()).
		StyleFunc(func(_, col int) lipgloss.Style {
			if col > 0 {
				return lipgloss.NewStyle().PaddingLeft(1)
			}
			return lipgloss.NewStyle()
		}).
		Headers().
		Rows(rows...)

	if len(headers) > 0 {
		t = t.Headers(headers...).BorderHeader(false)
	}
	_, err := fmt.Fprintln(w, t)
	return err
}
