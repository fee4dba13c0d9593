package model

import "time"

// LabRecord is one entry/exit interval for a person in a lab.
// ExitTime is nil while the person is inside; at most one such open record
// exists per (PersonID, LabName).
type LabRecord struct {
	ID        int64      `gorm:"primaryKey"`
	PersonID  int64      `gorm:"not null;index"`
	LabName   string     `gorm:"size:128;not null;index"`
	EntryTime time.Time  `gorm:"not null;index"`
	ExitTime  *time.Time `gorm:"index"`

	// Associations
	Person Person `gorm:"constraint:OnDelete:CASCADE"`
}

// IsOpen reports whether the person is still inside.
func (r LabRecord) IsOpen() bool {
	return r.ExitTime == nil
}
