package cli

import (
	"fmt"
	"strconv"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"

	"github.com/forPelevin/hlfinish/internal/pipeline"
)

const maxErrWidth = 60

func renderSummary(res pipeline.Result) string {
	tw := table.NewWriter()
	tw.SetStyle(table.StyleRounded)
	tw.Style().Format.Header = text.FormatDefault
	tw.AppendHeader(table.Row{"clip", "final", "cropped", "subtitled", "style", "plan", "events", "error"})

	for _, c := range res.Manifest.Clips {
		plan := c.Plan
		if c.Crop != nil {
			plan = fmt.Sprintf("%s %dx%d+%d+%d", c.Plan, c.Crop.Width, c.Crop.Height, c.Crop.X, c.Crop.Y)
		}
		tw.AppendRow(table.Row{
			c.ID,
			c.Final,
			yesNo(c.Cropped),
			yesNo(c.Subtitled),
			c.StyleUsed,
			plan,
			strconv.Itoa(c.Events),
			truncate(c.Error, maxErrWidth),
		})
	}

	tw.SetColumnConfigs([]table.ColumnConfig{
		{Number: 7, Align: text.AlignRight, AlignHeader: text.AlignLeft},
	})
	return tw.Render()
}

func yesNo(b bool) string {
	if b {
		return "yes"
	}
	return "no"
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-1]) + "…"
}
