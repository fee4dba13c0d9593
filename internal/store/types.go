package store

import (
	"errors"
	"time"

	"lab-tracker-backend/internal/model"
)

var (
	ErrPersonNotFound = errors.New("person not found")
	ErrEmailExists    = errors.New("Email already exists")
	ErrRecordNotFound = errors.New("record not found")
	// ErrToggleConflict means the open record was closed by someone else
	// between reading and updating it.
	ErrToggleConflict = errors.New("occupancy changed concurrently")
)

// Action is the direction of an occupancy transition.
type Action string

const (
	ActionEntry Action = "entry"
	ActionExit  Action = "exit"
)

// Transition is the outcome of toggling one (person, lab) pair.
type Transition struct {
	Action Action
	Record model.LabRecord
	At     time.Time
}

// LastExit is the most recent closed record of one person.
type LastExit struct {
	PersonID int64
	Name     string
	LabName  string
	ExitTime time.Time
}
