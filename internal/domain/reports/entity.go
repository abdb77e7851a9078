package reports

import (
	"time"
)

// ReportID identifies a stored report.
type ReportID string

// Department enum
type Department string

const (
	DeptGeneralMedicine  Department = "General Medicine"
	DeptPediatrics       Department = "Pediatrics"
	DeptOrthopedics      Department = "Orthopedics"
	DeptGynecology       Department = "Gynecology"
	DeptDermatology      Department = "Dermatology"
	DeptCardiology       Department = "Cardiology"
	DeptNeurology        Department = "Neurology"
	DeptGastroenterology Department = "Gastroenterology"
	DeptOphthalmology    Department = "Ophthalmology"
	DeptENT              Department = "ENT"
	DeptPsychiatry       Department = "Psychiatry"
)

// Departments lists every selectable department, in display order.
func Departments() []Department {
	return []Department{
		DeptGeneralMedicine,
		DeptPediatrics,
		DeptOrthopedics,
		DeptGynecology,
		DeptDermatology,
		DeptCardiology,
		DeptNeurology,
		DeptGastroenterology,
		DeptOphthalmology,
		DeptENT,
		DeptPsychiatry,
	}
}

// Valid reports whether d is one of the fixed departments.
func (d Department) Valid() bool {
	for _, dep := range Departments() {
		if d == dep {
			return true
		}
	}
	return false
}

// Role of an authenticated user.
type Role string

const (
	RolePatient Role = "patient"
	RoleDoctor  Role = "doctor"
)

// Aggregate Root: Report
//
// Analysis is immutable once the row exists; only the urgent and bookmark
// flags may change afterwards.
type Report struct {
	ID                 ReportID          `json:"id"`
	UserID             string            `json:"user_id"`
	Department         Department        `json:"department"`
	Responses          map[string]string `json:"responses"`
	Analysis           string            `json:"analysis"`
	VisitID            string            `json:"visit_id"`
	DocIDs             []string          `json:"doc_ids,omitempty"`
	IsVisibleToDoctors bool              `json:"is_visible_to_doctors"`
	IsUrgent           bool              `json:"is_urgent"`
	IsBookmarked       bool              `json:"is_bookmarked"`
	CreatedAt          time.Time         `json:"created_at"`
}

// FlagUpdate is a partial update of the mutable flags; nil fields are left
// untouched.
type FlagUpdate struct {
	IsUrgent     *bool `json:"is_urgent,omitempty"`
	IsBookmarked *bool `json:"is_bookmarked,omitempty"`
}

// Empty reports whether the update would change nothing.
func (u FlagUpdate) Empty() bool {
	return u.IsUrgent == nil && u.IsBookmarked == nil
}
