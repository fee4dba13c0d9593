// Package occupancy decides whether a badge presentation is an entry or an
// exit and records it.
package occupancy

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"lab-tracker-backend/internal/events"
	"lab-tracker-backend/internal/identity"
	"lab-tracker-backend/internal/logging"
	"lab-tracker-backend/internal/notification"
	"lab-tracker-backend/internal/store"
)

// ErrUnknownPerson is matched by UnknownPersonError.
var ErrUnknownPerson = errors.New("unknown person")

// UnknownPersonError is returned when a badge id is not registered.
type UnknownPersonError struct {
	ID int64
}

func (e *UnknownPersonError) Error() string {
	return fmt.Sprintf("No person found with ID: %d", e.ID)
}

func (e *UnknownPersonError) Is(target error) bool {
	return target == ErrUnknownPerson
}

// Result is what a scan produced.
type Result struct {
	Action    store.Action
	Person    identity.Payload
	LabName   string
	Timestamp time.Time
	RecordID  int64
}

// Dispatcher queues push notifications.
type Dispatcher interface {
	Dispatch(job notification.Job) bool
}

// Engine toggles occupancy for validated identities.
type Engine struct {
	store      store.Store
	publisher  events.Publisher
	dispatcher Dispatcher
	logger     *zap.Logger
	now        func() time.Time
}

// Option customises an Engine.
type Option func(*Engine)

// WithPublisher fans every transition out to p.
func WithPublisher(p events.Publisher) Option {
	return func(e *Engine) { e.publisher = p }
}

// WithDispatcher queues a push notification for every transition.
func WithDispatcher(d Dispatcher) Option {
	return func(e *Engine) { e.dispatcher = d }
}

// WithClock overrides time.Now.
func WithClock(now func() time.Time) Option {
	return func(e *Engine) { e.now = now }
}

// NewEngine creates an engine backed by s.
func NewEngine(s store.Store, logger *zap.Logger, opts ...Option) *Engine {
	e := &Engine{
		store:  s,
		logger: logging.OrNop(logger),
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Now reads the engine's clock.
func (e *Engine) Now() time.Time {
	return e.now()
}

// SubmitScan validates decoded badge text and toggles the person's state in lab.
func (e *Engine) SubmitScan(ctx context.Context, qrContent, labName string) (Result, error) {
	payload, err := identity.Validate(qrContent)
	if err != nil {
		return Result{}, err
	}
	return e.Submit(ctx, payload, labName)
}

// SubmitManual resolves a typed id through the registry and then behaves
// exactly like a camera scan of that person's badge.
func (e *Engine) SubmitManual(ctx context.Context, personID int64, labName string) (Result, error) {
	payload, err := e.Lookup(ctx, personID)
	if err != nil {
		return Result{}, err
	}
	return e.Submit(ctx, payload, labName)
}

// Lookup resolves a badge id to the registered identity.
func (e *Engine) Lookup(ctx context.Context, personID int64) (identity.Payload, error) {
	p, err := e.store.GetPerson(ctx, personID)
	if errors.Is(err, store.ErrPersonNotFound) {
		return identity.Payload{}, &UnknownPersonError{ID: personID}
	}
	if err != nil {
		return identity.Payload{}, err
	}
	return identity.Payload{ID: p.ID, Name: p.Name, Email: p.Email}, nil
}

// Submit toggles the (payload.ID, labName) pair. The returned identity is the
// registry's, so camera and manual submissions produce the same result.
func (e *Engine) Submit(ctx context.Context, payload identity.Payload, labName string) (Result, error) {
	person, err := e.Lookup(ctx, payload.ID)
	if err != nil {
		return Result{}, err
	}

	if err := e.store.EnsureLabs(ctx, []string{labName}); err != nil {
		return Result{}, err
	}

	tr, err := e.store.ToggleOccupancy(ctx, person.ID, labName, e.now())
	if err != nil {
		return Result{}, err
	}

	res := Result{
		Action:    tr.Action,
		Person:    person,
		LabName:   labName,
		Timestamp: tr.At,
		RecordID:  tr.Record.ID,
	}
	e.logger.Info("occupancy transition",
		zap.String("action", string(res.Action)),
		zap.Int64("person_id", person.ID),
		zap.String("lab", labName),
		zap.Int64("record_id", res.RecordID))

	e.fanOut(ctx, res)
	return res, nil
}

// fanOut is best-effort: failures are logged and never reach the scanner.
func (e *Engine) fanOut(ctx context.Context, res Result) {
	if e.publisher != nil {
		ev := events.Transition{
			Action:    string(res.Action),
			RecordID:  res.RecordID,
			PersonID:  res.Person.ID,
			Name:      res.Person.Name,
			Email:     res.Person.Email,
			LabName:   res.LabName,
			Timestamp: res.Timestamp,
		}
		if err := e.publisher.Publish(ctx, ev); err != nil {
			e.logger.Warn("failed to publish transition", zap.Int64("record_id", res.RecordID), zap.Error(err))
		}
	}

	if e.dispatcher != nil {
		e.dispatcher.Dispatch(notification.Job{
			LabName:    res.LabName,
			PersonName: res.Person.Name,
			Action:     string(res.Action),
		})
	}
}
