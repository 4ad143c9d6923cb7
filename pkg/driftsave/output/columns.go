package output

import (
	"strconv"
	"strings"
)

// column describes one table column shared by the text formatters.
type column struct {
	title string
	right bool
	value func(Row) string
}

var (
	colStatus   = column{"STATUS", false, func(r Row) string { return r.Status }}
	colIndex    = column{"#", true, func(r Row) string { return strconv.Itoa(r.Index) }}
	colOffset   = column{"OFFSET", false, func(r Row) string { return hexOffset(r.Offset) }}
	colStored   = column{"STORED", true, func(r Row) string { return strconv.Itoa(r.StoredLen) }}
	colCapacity = column{"CAPACITY", true, func(r Row) string { return strconv.Itoa(r.Capacity) }}
	colNew      = column{"NEW", true, func(r Row) string { return strconv.Itoa(r.NewLen) }}
	colHeadroom = column{"HEADROOM", true, func(r Row) string { return strconv.Itoa(r.Headroom) }}
	colKind     = column{"KIND", false, func(r Row) string { return r.Kind }}
	colName     = column{"NAME", false, func(r Row) string { return r.Name }}
	colNote     = column{"NOTE", false, func(r Row) string { return r.Note }}
)

// columnsFor picks the columns that carry information for r.
func columnsFor(r *Result) []column {
	if r.HasStatus() {
		return []column{colStatus, colIndex, colOffset, colCapacity, colNew, colHeadroom, colName, colNote}
	}
	if r.Operation == "inspect" {
		return []column{colIndex, colOffset, colStored}
	}
	return []column{colIndex, colOffset, colStored, colCapacity, colKind, colName}
}

// cells renders every row of r as plain strings.
func cells(r *Result, cols []column) [][]string {
	out := make([][]string, len(r.Rows))
	for i, row := range r.Rows {
		line := make([]string, len(cols))
		for j, c := range cols {
			line[j] = c.value(row)
		}
		out[i] = line
	}
	return out
}

// widths returns the display width of each column.
func widths(cols []column, rows [][]string) []int {
	w := make([]int, len(cols))
	for i, c := range cols {
		w[i] = len(c.title)
	}
	for _, row := range rows {
		for i, cell := range row {
			if len(cell) > w[i] {
				w[i] = len(cell)
			}
		}
	}
	return w
}

// pad aligns s within width.
func pad(s string, width int, right bool) string {
	if len(s) >= width {
		return s
	}
	fill := strings.Repeat(" ", width-len(s))
	if right {
		return fill + s
	}
	return s + fill
}
