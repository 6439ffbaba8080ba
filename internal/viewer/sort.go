package viewer

import (
	"fmt"
	"sort"

	"staffDirectoryViewer/internal/models"
)

// Column is the key of a sortable table column.
type Column string

const (
	ColumnNone      Column = ""
	ColumnOffice    Column = "adraOffice"
	ColumnFirstName Column = "firstName"
	ColumnLastName  Column = "lastName"
	ColumnJobTitle  Column = "jobTitle"
	ColumnWorkPhone Column = "workPhone"
	ColumnEmail     Column = "email"
	ColumnSkypeID   Column = "skypeId"
)

// ColumnInfo describes one visible data column of the staff table.
type ColumnInfo struct {
	Key  Column
	Name string
}

// Columns lists the visible data columns in display order.
var Columns = []ColumnInfo{
	{ColumnOffice, "ADRA Office"},
	{ColumnFirstName, "First Name"},
	{ColumnLastName, "Last Name"},
	{ColumnJobTitle, "Job Title"},
	{ColumnWorkPhone, "Work Phone"},
	{ColumnEmail, "Email"},
	{ColumnSkypeID, "Skype ID"},
}

var accessors = map[Column]func(models.DisplayRecord) string{
	ColumnOffice:    func(r models.DisplayRecord) string { return r.PartitionLabel },
	ColumnFirstName: func(r models.DisplayRecord) string { return r.FirstName },
	ColumnLastName:  func(r models.DisplayRecord) string { return r.LastName },
	ColumnJobTitle:  func(r models.DisplayRecord) string { return r.JobTitle },
	ColumnWorkPhone: func(r models.DisplayRecord) string { return r.WorkPhone },
	ColumnEmail:     func(r models.DisplayRecord) string { return r.Email },
	ColumnSkypeID:   func(r models.DisplayRecord) string { return r.MessagingID },
}

// ParseColumn validates a column key coming from a request.
func ParseColumn(key string) (Column, error) {
	column := Column(key)
	if _, ok := accessors[column]; !ok {
		return ColumnNone, fmt.Errorf("%w: %q", ErrUnknownColumn, key)
	}
	return column, nil
}

// SortState is the last clicked column and its direction. The zero value is
// the load-time order delivered by the store.
type SortState struct {
	Column     Column `json:"column,omitempty"`
	Descending bool   `json:"descending,omitempty"`
}

// Next returns the state after a click on column: clicking the same column
// again flips the direction, any other column starts ascending.
func (s SortState) Next(column Column) SortState {
	if s.Column == column {
		return SortState{Column: column, Descending: !s.Descending}
	}
	return SortState{Column: column}
}

// compare is a three-way comparison; ties are equal and keep their order.
func compare(a, b string) int {
	if a < b {
		return -1
	}
	if a > b {
		return 1
	}
	return 0
}

// sortRecords returns a sorted copy of records; records itself is not touched.
// Ties keep their input order in both directions, so descending is the exact
// reverse of ascending only when the keys are distinct.
func sortRecords(records []models.DisplayRecord, state SortState) []models.DisplayRecord {
	sorted := append([]models.DisplayRecord(nil), records...)
	get, ok := accessors[state.Column]
	if !ok {
		return sorted
	}

	sort.SliceStable(sorted, func(i, j int) bool {
		c := compare(get(sorted[i]), get(sorted[j]))
		if state.Descending {
			return c > 0
		}
		return c < 0
	})
	return sorted
}
