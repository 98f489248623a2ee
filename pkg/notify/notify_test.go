package notify

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/Gobusters/ectologger"
	"github.com/goccy/go-json"
	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func silentLogger() ectologger.Logger {
	return ectologger.NewEctoLogger(func(_ ectologger.EctoLogMessage) {})
}

type recordingNotifier struct {
	mu     sync.Mutex
	events []Event
	err    error
	panic  bool
}

func (r *recordingNotifier) Notify(ctx context.Context, evt Event) error {
	if r.panic {
		panic("boom")
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, evt)
	return r.err
}

type ctxKey struct{}

func TestDispatcherOutlivesRequestContext(t *testing.T) {
	rec := &recordingNotifier{}
	d := NewDispatcher(rec, silentLogger(), 0)

	ctx, cancel := context.WithCancel(context.WithValue(context.Background(), ctxKey{}, "v"))
	cancel()

	d.Dispatch(ctx, Event{Type: EventCreated, Entity: "visitor", RecordID: "1"})
	d.Wait()

	require.Len(t, rec.events, 1)
	assert.NotEmpty(t, rec.events[0].ID)
	assert.False(t, rec.events[0].OccurredAt.IsZero())
}

func TestDispatcherSwallowsFailures(t *testing.T) {
	d := NewDispatcher(&recordingNotifier{err: errors.New("unreachable")}, silentLogger(), 0)
	d.Dispatch(context.Background(), Event{Entity: "visitor"})
	d.Wait()

	d = NewDispatcher(&recordingNotifier{panic: true}, silentLogger(), 0)
	d.Dispatch(context.Background(), Event{Entity: "visitor"})
	d.Wait()
}

type fakeWriter struct {
	msgs []kafka.Message
	err  error
}

func (f *fakeWriter) WriteMessages(_ context.Context, msgs ...kafka.Message) error {
	f.msgs = append(f.msgs, msgs...)
	return f.err
}

func (f *fakeWriter) Close() error { return nil }

func TestKafkaNotifier(t *testing.T) {
	w := &fakeWriter{}
	k := &KafkaNotifier{writer: w, topic: "changes", logger: silentLogger()}

	err := k.Notify(context.Background(), Event{
		Type:     EventCreated,
		Entity:   "visitor",
		TenantID: "t1",
		RecordID: "r1",
		Record:   map[string]any{"first_name": "Ada"},
	})
	require.NoError(t, err)
	require.Len(t, w.msgs, 1)

	msg := w.msgs[0]
	assert.Equal(t, "t1:r1", string(msg.Key))

	var decoded map[string]any
	require.NoError(t, json.Unmarshal(msg.Value, &decoded))
	assert.Equal(t, "visitor", decoded["entity"])
	assert.Equal(t, "created", decoded["type"])

	headers := map[string]string{}
	for _, h := range msg.Headers {
		headers[h.Key] = string(h.Value)
	}
	assert.Equal(t, "t1", headers["tenant_id"])

	w.err = errors.New("broker down")
	assert.Error(t, k.Notify(context.Background(), Event{Entity: "visitor"}))
}

func TestParseBrokers(t *testing.T) {
	assert.Equal(t, []string{"a:9092", "b:9092"}, ParseBrokers(" a:9092, ,b:9092 "))
	assert.Nil(t, ParseBrokers(""))
}
