package export

// Table is a rendered report: a title, summary lines printed above the grid and
// positional rows aligned with Headers.
type Table struct {
	Title   string
	Summary []string
	Headers []string
	Rows    [][]string
}

func (t Table) cell(row []string, i int) string {
	if i < len(row) {
		return row[i]
	}
	return ""
}
