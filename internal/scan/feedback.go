package scan

import (
	"context"
	"fmt"
	"io"
	"os/exec"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"lab-tracker-backend/internal/logging"
)

// Level distinguishes acknowledgements from errors on the display.
type Level int

const (
	LevelReady Level = iota
	LevelSuccess
	LevelError
)

// Message is one line of kiosk feedback.
type Message struct {
	Level Level
	Text  string
}

// Display renders feedback to the person at the kiosk.
type Display interface {
	Show(m Message)
}

// Chime plays the acknowledgement sound.
type Chime interface {
	Play(ctx context.Context) error
}

// CommandChime plays a sound by running an external command, for example
// ["aplay", "-q", "/usr/share/sounds/beep.wav"]. An empty command is silent.
type CommandChime struct {
	Args    []string
	Timeout time.Duration
}

func (c CommandChime) Play(ctx context.Context) error {
	if len(c.Args) == 0 {
		return nil
	}
	timeout := c.Timeout
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	return exec.CommandContext(ctx, c.Args[0], c.Args[1:]...).Run()
}

// TerminalDisplay writes feedback lines to w.
type TerminalDisplay struct {
	mu sync.Mutex
	w  io.Writer
}

// NewTerminalDisplay creates a display writing to w.
func NewTerminalDisplay(w io.Writer) *TerminalDisplay {
	return &TerminalDisplay{w: w}
}

func (d *TerminalDisplay) Show(m Message) {
	d.mu.Lock()
	defer d.mu.Unlock()

	prefix := "  "
	switch m.Level {
	case LevelSuccess:
		prefix = "OK"
	case LevelError:
		prefix = "!!"
	}
	fmt.Fprintf(d.w, "[%s] %s\n", prefix, m.Text)
}

// Feedback acknowledges transitions and surfaces errors. A success message
// is replaced by the ready prompt after a delay; an error stays until the next
// success.
type Feedback struct {
	display      Display
	chime        Chime
	dismissAfter time.Duration
	logger       *zap.Logger

	mu    sync.Mutex
	shown uint64
	timer *time.Timer
}

// NewFeedback creates a Feedback. chime may be nil.
func NewFeedback(display Display, chime Chime, dismissAfter time.Duration, logger *zap.Logger) *Feedback {
	return &Feedback{
		display:      display,
		chime:        chime,
		dismissAfter: dismissAfter,
		logger:       logging.OrNop(logger),
	}
}

// SuccessText formats a transition the way the kiosk shows it.
func SuccessText(res Result) string {
	return fmt.Sprintf("%s: %s <%s> | %s | %s",
		strings.ToUpper(res.Action), res.Person.Name, res.Person.Email, res.LabName, res.Timestamp)
}

// Ready shows the idle prompt.
func (f *Feedback) Ready(labName string) {
	f.show(Message{Level: LevelReady, Text: "Ready to scan for " + labName})
}

// OnSuccess chimes and shows res until dismissAfter has passed.
func (f *Feedback) OnSuccess(res Result) {
	if f.chime != nil {
		go func() {
			if err := f.chime.Play(context.Background()); err != nil {
				// Audio is best-effort.
				f.logger.Debug("chime failed", zap.Error(err))
			}
		}()
	}

	seq := f.show(Message{Level: LevelSuccess, Text: SuccessText(res)})
	if f.dismissAfter <= 0 {
		return
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	if f.shown != seq {
		return
	}
	f.timer = time.AfterFunc(f.dismissAfter, func() {
		f.mu.Lock()
		current := f.shown == seq
		f.mu.Unlock()
		if current {
			f.show(Message{Level: LevelReady, Text: "Ready to scan"})
		}
	})
}

// OnFailure shows err. It cancels any pending dismissal so the error stays.
func (f *Feedback) OnFailure(err error) {
	f.show(Message{Level: LevelError, Text: err.Error()})
}

func (f *Feedback) show(m Message) uint64 {
	f.mu.Lock()
	f.shown++
	seq := f.shown
	if f.timer != nil {
		f.timer.Stop()
		f.timer = nil
	}
	f.mu.Unlock()

	f.display.Show(m)
	return seq
}
