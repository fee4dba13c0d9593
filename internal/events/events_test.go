package events

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	mqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"lab-tracker-backend/config"
)

func sampleTransition() Transition {
	return Transition{
		Action:    "entry",
		RecordID:  11,
		PersonID:  7,
		Name:      "Ada",
		Email:     "ada@example.org",
		LabName:   "Main Lab",
		Timestamp: time.Date(2026, 10, 19, 9, 30, 0, 0, time.UTC),
	}
}

func TestRedisPublisher_Publish(t *testing.T) {
	mr := miniredis.RunT(t)
	ctx := context.Background()

	p, err := NewRedisPublisher(ctx, config.RedisConfig{Addr: mr.Addr(), Stream: "lab:transitions"})
	require.NoError(t, err)
	defer p.Close()

	require.NoError(t, p.Publish(ctx, sampleTransition()))

	entries, err := p.client.XRange(ctx, "lab:transitions", "-", "+").Result()
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "entry", entries[0].Values["action"])
	assert.Equal(t, "Main Lab", entries[0].Values["lab_name"])

	var got Transition
	require.NoError(t, json.Unmarshal([]byte(entries[0].Values["data"].(string)), &got))
	assert.Equal(t, sampleTransition(), got)
}

func TestNewRedisPublisher_Unreachable(t *testing.T) {
	mr := miniredis.RunT(t)
	addr := mr.Addr()
	mr.Close()

	_, err := NewRedisPublisher(context.Background(), config.RedisConfig{Addr: addr, Stream: "s"})
	assert.Error(t, err)
}

type fakeToken struct {
	err error
}

func (t *fakeToken) Wait() bool                     { return true }
func (t *fakeToken) WaitTimeout(time.Duration) bool { return true }
func (t *fakeToken) Done() <-chan struct{} {
	ch := make(chan struct{})
	close(ch)
	return ch
}
func (t *fakeToken) Error() error { return t.err }

// fakeMQTTClient records publishes; unused methods panic via the nil embed.
type fakeMQTTClient struct {
	mqtt.Client
	topics   []string
	payloads [][]byte
	err      error
}

func (c *fakeMQTTClient) Publish(topic string, qos byte, retained bool, payload interface{}) mqtt.Token {
	c.topics = append(c.topics, topic)
	c.payloads = append(c.payloads, payload.([]byte))
	return &fakeToken{err: c.err}
}

func (c *fakeMQTTClient) Disconnect(uint) {}

func TestMQTTPublisher_Publish(t *testing.T) {
	client := &fakeMQTTClient{}
	p := newMQTTPublisher(client, "labs/", 1)

	require.NoError(t, p.Publish(context.Background(), sampleTransition()))
	require.Len(t, client.topics, 1)
	assert.Equal(t, "labs/main-lab/entry", client.topics[0])

	var got Transition
	require.NoError(t, json.Unmarshal(client.payloads[0], &got))
	assert.Equal(t, "Ada", got.Name)
}

func TestMQTTPublisher_PublishError(t *testing.T) {
	client := &fakeMQTTClient{err: errors.New("not connected")}
	p := newMQTTPublisher(client, "labs", 0)

	err := p.Publish(context.Background(), sampleTransition())
	assert.ErrorContains(t, err, "not connected")
}

type recordingPublisher struct {
	published []Transition
	err       error
	closed    bool
}

func (r *recordingPublisher) Publish(_ context.Context, t Transition) error {
	r.published = append(r.published, t)
	return r.err
}

func (r *recordingPublisher) Close() error {
	r.closed = true
	return nil
}

func TestMulti(t *testing.T) {
	ok := &recordingPublisher{}
	failing := &recordingPublisher{err: errors.New("boom")}
	m := Multi{failing, ok}

	err := m.Publish(context.Background(), sampleTransition())
	assert.ErrorContains(t, err, "boom")
	assert.Len(t, ok.published, 1, "one failing publisher does not stop the others")

	require.NoError(t, m.Close())
	assert.True(t, ok.closed)
	assert.True(t, failing.closed)
}
