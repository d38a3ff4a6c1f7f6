// Package models defines the domain types for the feature tree.
package models

import "time"

// Status is the lifecycle state of a feature or workflow.
type Status string

// Known statuses. Transitions between the first three are caller-driven.
const (
	StatusPlanned    Status = "planned"
	StatusInProgress Status = "in-progress"
	StatusDone       Status = "done"
	StatusDeleted    Status = "deleted"
)

// Statuses lists every valid status value.
func Statuses() []Status {
	return []Status{StatusPlanned, StatusInProgress, StatusDone, StatusDeleted}
}

// Valid reports whether s is one of the known statuses.
func (s Status) Valid() bool {
	switch s {
	case StatusPlanned, StatusInProgress, StatusDone, StatusDeleted:
		return true
	}
	return false
}

// Protected reports whether a child in this status blocks removal of its parent.
func (s Status) Protected() bool {
	return s == StatusInProgress || s == StatusDone
}

// Feature is an atomic, implementable unit of functionality.
type Feature struct {
	ID             string    `json:"id"`
	ParentID       string    `json:"parent_id,omitempty"`
	Name           string    `json:"name"`
	Description    string    `json:"description,omitempty"`
	Status         Status    `json:"status"`
	CodeSymbols    []string  `json:"code_symbols,omitempty"`
	Files          []string  `json:"files,omitempty"`
	TechnicalNotes string    `json:"technical_notes,omitempty"`
	CommitIDs      []string  `json:"commit_ids,omitempty"`
	Uses           []string  `json:"uses,omitempty"`
	CreatedAt      time.Time `json:"created_at"`
	UpdatedAt      time.Time `json:"updated_at"`
}

// Workflow is a user-facing journey composed of features.
type Workflow struct {
	ID          string    `json:"id"`
	ParentID    string    `json:"parent_id,omitempty"`
	Name        string    `json:"name"`
	Description string    `json:"description,omitempty"`
	Purpose     string    `json:"purpose,omitempty"`
	DependsOn   []string  `json:"depends_on,omitempty"`
	Mermaid     string    `json:"mermaid,omitempty"`
	Status      Status    `json:"status"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// DeleteType tells which branch a delete took.
type DeleteType string

const (
	DeleteHard DeleteType = "hard" // row and index entry removed
	DeleteSoft DeleteType = "soft" // status flipped to deleted
)
