package models

import "math"

// PageSize is the number of raw rows shown per page
const PageSize = 5

// Table is the ordered set of trips loaded for one city.
// Filtering returns a new Table; Rows of an existing Table are never mutated.
type Table struct {
	City   string        `json:"city"`
	Schema Schema        `json:"schema"`
	Rows   []*TripRecord `json:"rows"`
}

// NewTable creates a table for a city
func NewTable(city string, schema Schema, rows []*TripRecord) *Table {
	return &Table{City: city, Schema: schema, Rows: rows}
}

// Len returns the number of rows
func (t *Table) Len() int {
	if t == nil {
		return 0
	}
	return len(t.Rows)
}

// IsEmpty reports whether the table has no rows
func (t *Table) IsEmpty() bool {
	return t.Len() == 0
}

// FilterTable keeps rows matching both the month and the day selector.
// Row order is preserved and the input table is left untouched.
func FilterTable(table *Table, month MonthSelector, day DaySelector) *Table {
	if table == nil {
		return &Table{}
	}

	rows := make([]*TripRecord, 0, len(table.Rows))
	dayName := day.Name()
	for _, trip := range table.Rows {
		if !month.IsAll() && trip.Month != month.Ordinal() {
			continue
		}
		if !day.IsAll() && trip.DayOfWeek != dayName {
			continue
		}
		rows = append(rows, trip)
	}

	return &Table{City: table.City, Schema: table.Schema, Rows: rows}
}

// PageWindow returns the rows of the zero-based page for the given page size.
// Pages past the end are empty.
func PageWindow(table *Table, page, size int) []*TripRecord {
	if page < 0 || size <= 0 || page > (math.MaxInt-size)/size {
		return []*TripRecord{}
	}
	start := page * size
	if start >= table.Len() {
		return []*TripRecord{}
	}
	end := start + size
	if end > table.Len() {
		end = table.Len()
	}
	return table.Rows[start:end]
}

// RowPaginator is a cursor over a table's raw rows.
// Create a new paginator whenever a new filtered table is established.
type RowPaginator struct {
	table  *Table
	cursor int
}

// NewRowPaginator starts a paginator at row 0
func NewRowPaginator(table *Table) *RowPaginator {
	return &RowPaginator{table: table}
}

// NextPage returns up to PageSize rows and advances the cursor by PageSize
func (p *RowPaginator) NextPage() []*TripRecord {
	rows := PageWindow(p.table, p.cursor/PageSize, PageSize)
	p.cursor += PageSize
	return rows
}

// HasMore reports whether NextPage would return at least one row
func (p *RowPaginator) HasMore() bool {
	return p.cursor < p.table.Len()
}

// Cursor returns the index of the first row of the next page
func (p *RowPaginator) Cursor() int {
	return p.cursor
}
