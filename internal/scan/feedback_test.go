package scan

import (
	"bytes"
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"lab-tracker-backend/internal/identity"
)

type recordingDisplay struct {
	mu   sync.Mutex
	msgs []Message
}

func (d *recordingDisplay) Show(m Message) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.msgs = append(d.msgs, m)
}

func (d *recordingDisplay) all() []Message {
	d.mu.Lock()
	defer d.mu.Unlock()
	return append([]Message(nil), d.msgs...)
}

type chimeFunc func(ctx context.Context) error

func (f chimeFunc) Play(ctx context.Context) error { return f(ctx) }

var adaEntry = Result{
	Action:    "entry",
	Person:    identity.Payload{ID: 7, Name: "Ada", Email: "ada@example.org"},
	LabName:   "Main Lab",
	Timestamp: "2026-10-19 09:00:00",
}

func TestFeedback_SuccessAutoDismisses(t *testing.T) {
	display := &recordingDisplay{}
	played := make(chan struct{}, 1)
	chime := chimeFunc(func(context.Context) error {
		played <- struct{}{}
		return errors.New("no audio device")
	})

	f := NewFeedback(display, chime, 20*time.Millisecond, nil)
	f.OnSuccess(adaEntry)

	select {
	case <-played:
	case <-time.After(time.Second):
		t.Fatal("chime not played")
	}

	require.Eventually(t, func() bool { return len(display.all()) == 2 }, time.Second, 5*time.Millisecond)
	msgs := display.all()
	assert.Equal(t, Message{Level: LevelSuccess, Text: "ENTRY: Ada <ada@example.org> | Main Lab | 2026-10-19 09:00:00"}, msgs[0])
	assert.Equal(t, LevelReady, msgs[1].Level)
}

func TestFeedback_ErrorPersists(t *testing.T) {
	display := &recordingDisplay{}
	f := NewFeedback(display, nil, 20*time.Millisecond, nil)

	f.OnSuccess(adaEntry)
	f.OnFailure(errors.New("No person found with ID: 9"))

	time.Sleep(60 * time.Millisecond)
	msgs := display.all()
	require.Len(t, msgs, 2, "the pending dismissal must not clear the error")
	assert.Equal(t, Message{Level: LevelError, Text: "No person found with ID: 9"}, msgs[1])
}

func TestCommandChime(t *testing.T) {
	assert.NoError(t, CommandChime{}.Play(context.Background()))
	assert.Error(t, CommandChime{Args: []string{"/nonexistent/chime-player"}}.Play(context.Background()))
}

func TestTerminalDisplay(t *testing.T) {
	var buf bytes.Buffer
	d := NewTerminalDisplay(&buf)
	d.Show(Message{Level: LevelSuccess, Text: "ENTRY: Ada"})
	d.Show(Message{Level: LevelError, Text: "bad badge"})
	d.Show(Message{Level: LevelReady, Text: "Ready to scan"})
	assert.Equal(t, "[OK] ENTRY: Ada\n[!!] bad badge\n[  ] Ready to scan\n", buf.String())
}
