package main

import (
	"strconv"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"

	"github.com/Sriram-PR/top250-scraper/pkg/models"
)

const maxCellWidth = 40

// renderSplitTable formats the first n rows (all when n <= 0) of the split table
func renderSplitTable(rows models.SplitDataset, n int) string {
	if n <= 0 || n > len(rows) {
		n = len(rows)
	}

	tw := table.NewWriter()
	tw.SetStyle(table.StyleRounded)
	tw.AppendHeader(table.Row{models.ColPageIndex, models.ColTitle, models.ColRating, models.ColYear, models.ColGenre, models.ColCast})

	for _, r := range rows[:n] {
		tw.AppendRow(table.Row{strconv.Itoa(r.PageIndex), r.Title, r.Rating, r.Year, r.Genre, r.Cast})
	}

	tw.SetColumnConfigs([]table.ColumnConfig{
		{Number: 1, Align: text.AlignRight, AlignHeader: text.AlignLeft},
		{Number: 3, Align: text.AlignRight, AlignHeader: text.AlignLeft},
		{Number: 4, Align: text.AlignRight, AlignHeader: text.AlignLeft},
		{Number: 5, WidthMax: maxCellWidth},
		{Number: 6, WidthMax: maxCellWidth},
	})

	return tw.Render()
}
