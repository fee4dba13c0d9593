package model

import "time"

// Person is a registered lab user. The ID is the number printed on the badge.
type Person struct {
	ID               int64     `gorm:"primaryKey;autoIncrement" json:"id"`
	Name             string    `gorm:"size:256;not null" json:"name"`
	Email            string    `gorm:"uniqueIndex;size:256;not null" json:"email"`
	Phone            string    `gorm:"size:64" json:"phone"`
	Department       string    `gorm:"size:128" json:"department"`
	RegistrationDate time.Time `gorm:"not null;autoCreateTime" json:"registration_date"`
}
