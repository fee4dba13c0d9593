package scan

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"lab-tracker-backend/internal/identity"
	"lab-tracker-backend/internal/logging"
	"lab-tracker-backend/internal/parse"
)

// ErrNotRunning is returned by Tick when no camera run is active.
var ErrNotRunning = errors.New("scan session is not running")

// Submitter is the server side of a scan.
type Submitter interface {
	SubmitScan(ctx context.Context, qrContent, labName string) (Result, error)
	LookupPerson(ctx context.Context, id int64) (identity.Payload, error)
}

// Notifier receives the outcome of every attempt that was not suppressed.
type Notifier interface {
	OnSuccess(res Result)
	OnFailure(err error)
}

// SessionConfig holds the fixed parameters of a kiosk.
type SessionConfig struct {
	LabName      string
	PollInterval time.Duration
	Resolution   Resolution
}

// Session owns the camera for one kiosk and runs the scan pipeline.
//
// Each tick handles one frame to completion before the next is scheduled, so
// there is never more than one submission in flight. Manual entry shares the
// same lock.
type Session struct {
	cfg      SessionConfig
	source   Source
	decoder  Decoder
	client   Submitter
	notifier Notifier
	logger   *zap.Logger

	// pipeline serialises camera ticks and manual submissions.
	pipeline sync.Mutex

	mu      sync.Mutex
	current *run
}

type run struct {
	id     string
	stream Stream
	cancel context.CancelFunc
	done   chan struct{}

	// dedup is only touched under Session.pipeline.
	dedup Deduplicator
}

// NewSession wires a session together.
func NewSession(cfg SessionConfig, source Source, decoder Decoder, client Submitter, notifier Notifier, logger *zap.Logger) *Session {
	return &Session{
		cfg:      cfg,
		source:   source,
		decoder:  decoder,
		client:   client,
		notifier: notifier,
		logger:   logging.OrNop(logger),
	}
}

// Start acquires the camera and begins polling. A previous run is stopped
// first and the new run starts with an empty dedup slot; Start does not wait
// for the previous run's in-flight submission. The first frame is read one
// poll interval after Start. Cancelling ctx ends the run and releases the
// camera like Stop.
func (s *Session) Start(ctx context.Context) error {
	s.Stop()

	ctx, cancel := context.WithCancel(ctx)
	stream, err := s.source.Start(ctx, s.cfg.Resolution)
	if err != nil {
		cancel()
		if !errors.Is(err, ErrCameraUnavailable) {
			err = fmt.Errorf("%w: %v", ErrCameraUnavailable, err)
		}
		s.logger.Error("camera start failed", zap.Error(err))
		s.notifier.OnFailure(err)
		return err
	}

	r := &run{
		id:     uuid.NewString(),
		stream: stream,
		cancel: cancel,
		done:   make(chan struct{}),
	}

	s.mu.Lock()
	s.current = r
	s.mu.Unlock()

	s.logger.Info("scan session started", zap.String("run_id", r.id), zap.String("lab", s.cfg.LabName))
	go s.loop(ctx, r)
	return nil
}

// Stop cancels polling and releases the camera. A submission already in
// flight finishes but its result is dropped. Stop is safe to call at any time.
func (s *Session) Stop() {
	s.mu.Lock()
	r := s.current
	s.current = nil
	s.mu.Unlock()

	if r == nil {
		return
	}
	s.release(r)
	s.logger.Info("scan session stopped", zap.String("run_id", r.id))
}

// Running reports whether a camera run is active.
func (s *Session) Running() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.current != nil
}

// Done is closed when the active run's polling loop has exited. It returns
// nil when nothing is running.
func (s *Session) Done() <-chan struct{} {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.current == nil {
		return nil
	}
	return s.current.done
}

func (s *Session) release(r *run) {
	r.cancel()
	if err := r.stream.Stop(); err != nil {
		s.logger.Warn("camera release failed", zap.String("run_id", r.id), zap.Error(err))
	}
}

func (s *Session) isCurrent(r *run) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.current == r
}

func (s *Session) loop(ctx context.Context, r *run) {
	defer close(r.done)

	timer := time.NewTimer(s.cfg.PollInterval)
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			s.endRun(r, ctx.Err())
			return
		case <-timer.C:
			if !s.tick(ctx, r) {
				return
			}
			timer.Reset(s.cfg.PollInterval)
		}
	}
}

// Tick processes one frame of the active run synchronously.
func (s *Session) Tick(ctx context.Context) error {
	s.mu.Lock()
	r := s.current
	s.mu.Unlock()
	if r == nil {
		return ErrNotRunning
	}
	s.tick(ctx, r)
	return nil
}

// tick returns false once the run has ended.
func (s *Session) tick(ctx context.Context, r *run) bool {
	img, err := r.stream.Frame()
	if err != nil {
		s.endRun(r, err)
		return false
	}
	if img == nil {
		return true
	}

	raw, ok := s.decoder.Decode(img)
	if !ok {
		return true
	}

	s.pipeline.Lock()
	defer s.pipeline.Unlock()

	if !s.isCurrent(r) || !r.dedup.Accept(raw) {
		return true
	}

	if _, err := identity.Validate(raw); err != nil {
		s.deliver(r, Result{}, err)
		return true
	}

	// The submission outlives Stop; its result is discarded instead.
	res, err := s.client.SubmitScan(context.WithoutCancel(ctx), raw, s.cfg.LabName)
	if errors.Is(err, ErrTransport) {
		// Let the same badge be presented again.
		r.dedup.Reset()
	}
	s.deliver(r, res, err)
	return true
}

func (s *Session) endRun(r *run, err error) {
	s.mu.Lock()
	owned := s.current == r
	if owned {
		s.current = nil
	}
	s.mu.Unlock()
	if !owned {
		return
	}

	s.release(r)
	switch {
	case errors.Is(err, io.EOF):
		s.logger.Info("frame source exhausted", zap.String("run_id", r.id))
		return
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		s.logger.Info("scan session cancelled", zap.String("run_id", r.id))
		return
	}
	s.logger.Error("camera failed", zap.String("run_id", r.id), zap.Error(err))
	s.notifier.OnFailure(err)
}

func (s *Session) deliver(r *run, res Result, err error) {
	if !s.isCurrent(r) {
		s.logger.Debug("discarding result of stopped run", zap.String("run_id", r.id))
		return
	}
	s.report(res, err)
}

func (s *Session) report(res Result, err error) {
	if err != nil {
		s.logger.Info("scan failed", zap.Error(err))
		s.notifier.OnFailure(err)
		return
	}
	s.logger.Info("scan recorded",
		zap.String("action", res.Action),
		zap.Int64("person_id", res.Person.ID),
		zap.String("lab", res.LabName))
	s.notifier.OnSuccess(res)
}

// SubmitManual handles a typed badge id: the id is resolved through the
// registry and the resulting payload is submitted exactly like a camera scan.
// The outcome is also reported to the notifier.
func (s *Session) SubmitManual(ctx context.Context, input string) (Result, error) {
	id, err := parse.PersonID(input)
	if err != nil {
		s.notifier.OnFailure(err)
		return Result{}, err
	}

	s.pipeline.Lock()
	defer s.pipeline.Unlock()

	res, err := s.submitManual(ctx, id)
	s.report(res, err)
	return res, err
}

func (s *Session) submitManual(ctx context.Context, id int64) (Result, error) {
	person, err := s.client.LookupPerson(ctx, id)
	if err != nil {
		return Result{}, err
	}
	return s.client.SubmitScan(ctx, person.Encode(), s.cfg.LabName)
}
