// Package events fans occupancy transitions out to downstream consumers.
package events

import (
	"context"
	"errors"
	"time"
)

// Transition is the wire form of an entry or exit.
type Transition struct {
	Action    string    `json:"action"`
	RecordID  int64     `json:"record_id"`
	PersonID  int64     `json:"person_id"`
	Name      string    `json:"name"`
	Email     string    `json:"email"`
	LabName   string    `json:"lab_name"`
	Timestamp time.Time `json:"timestamp"`
}

// Publisher delivers transitions somewhere outside the process.
type Publisher interface {
	Publish(ctx context.Context, t Transition) error
	Close() error
}

// Multi publishes to every wrapped publisher and joins their errors.
type Multi []Publisher

func (m Multi) Publish(ctx context.Context, t Transition) error {
	var errs []error
	for _, p := range m {
		if err := p.Publish(ctx, t); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func (m Multi) Close() error {
	var errs []error
	for _, p := range m {
		if err := p.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
