package main

import (
	"strconv"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"

	"github.com/cwygoda/get/internal/domain"
)

// renderGroups lists buckets as a numbered table, first item and last item
// in natural order.
func renderGroups(buckets []domain.Bucket) string {
	tw := table.NewWriter()
	tw.SetStyle(table.StyleRounded)
	tw.AppendHeader(table.Row{"#", "Group", "Items", "From", "To"})

	for i, b := range buckets {
		from, to := "", ""
		if n := len(b.Items); n > 0 {
			from, to = b.Items[0].Number, b.Items[n-1].Number
		}
		tw.AppendRow(table.Row{strconv.Itoa(i + 1), b.Label, strconv.Itoa(len(b.Items)), from, to})
	}

	tw.SetColumnConfigs([]table.ColumnConfig{
		{Number: 1, Align: text.AlignRight, AlignHeader: text.AlignLeft},
		{Number: 3, Align: text.AlignRight, AlignHeader: text.AlignLeft},
	})
	return tw.Render()
}
