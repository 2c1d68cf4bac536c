package models

// Class is a teaching group defining the population of class-level reports.
type Class struct {
	ID      int64  `db:"id" json:"id"`
	Name    string `db:"name" json:"name"`
	Grade   string `db:"grade" json:"grade"`
	Section string `db:"section" json:"section"`
}
