package models

// SemesterPerformance is one derived row of a student's transcript summary.
type SemesterPerformance struct {
	Semester string  `json:"semester"`
	Credits  int     `json:"credits"`
	SPI      float64 `json:"spi"`
	CPI      float64 `json:"cpi"`
}
