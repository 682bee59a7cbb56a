package models

// Faculty is a teaching staff member.
type Faculty struct {
	ID         string `db:"id" json:"id"`
	FullName   string `db:"full_name" json:"full_name"`
	Department string `db:"department" json:"department"`
	Active     bool   `db:"active" json:"active"`
}
