package main

import (
	"io"
	"os"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"
	"github.com/mattn/go-isatty"

	"github.com/bnema/ffpoc/internal/domain"
	"github.com/bnema/ffpoc/internal/infrastructure/digest"
)

type summaryRow struct {
	label string
	value string
}

func summaryRows(run *domain.Run, status string, paths []string) []summaryRow {
	rows := []summaryRow{
		{"Action", string(run.Action)},
		{"Input", run.InputName},
		{"Status", status},
		{"Elapsed", domain.FormatElapsed(run.Duration())},
	}
	if run.Status == domain.RunSucceeded {
		rows = append(rows,
			summaryRow{"Output size", domain.FormatSize(run.OutputSize)},
			summaryRow{"Digest", digest.Short(run.OutputDigest)},
		)
		for _, p := range paths {
			rows = append(rows, summaryRow{"Saved to", p})
		}
	} else {
		rows = append(rows, summaryRow{"Failure", string(run.FailureKind)})
	}
	return rows
}

// renderSummary draws the rows as a two-column table; plain ASCII when the
// output is not a terminal.
func renderSummary(rows []summaryRow, tty bool) string {
	tw := table.NewWriter()
	if tty {
		tw.SetStyle(table.StyleRounded)
	} else {
		tw.SetStyle(table.StyleDefault)
	}

	for _, r := range rows {
		tw.AppendRow(table.Row{r.label, r.value})
	}
	tw.SetColumnConfigs([]table.ColumnConfig{
		{Number: 1, Align: text.AlignLeft},
		{Number: 2, Align: text.AlignLeft},
	})
	return tw.Render()
}

func isTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	if !ok {
		return false
	}
	return isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
}
