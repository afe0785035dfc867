package consumer

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeReader struct {
	mu        sync.Mutex
	messages  []kafka.Message
	committed []int64
	closed    bool
	drained   chan struct{}
}

func (r *fakeReader) FetchMessage(ctx context.Context) (kafka.Message, error) {
	r.mu.Lock()
	if len(r.messages) > 0 {
		msg := r.messages[0]
		r.messages = r.messages[1:]
		r.mu.Unlock()
		return msg, nil
	}
	r.mu.Unlock()

	select {
	case r.drained <- struct{}{}:
	default:
	}
	<-ctx.Done()
	return kafka.Message{}, ctx.Err()
}

func (r *fakeReader) CommitMessages(_ context.Context, msgs ...kafka.Message) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, m := range msgs {
		r.committed = append(r.committed, m.Offset)
	}
	return nil
}

func (r *fakeReader) Close() error {
	r.closed = true
	return nil
}

type fakeProcessor struct {
	mu      sync.Mutex
	seen    []string
	flushed int
}

func (p *fakeProcessor) Process(_ context.Context, msg map[string]interface{}) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	id, _ := msg["trial_id"].(string)
	if id == "" {
		return errors.New("no trial id")
	}
	p.seen = append(p.seen, id)
	return nil
}

func (p *fakeProcessor) Flush() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.flushed++
}

func TestKafkaConsumer_ProcessesAndCommits(t *testing.T) {
	reader := &fakeReader{
		drained: make(chan struct{}, 1),
		messages: []kafka.Message{
			{Offset: 1, Value: []byte(`{"trial_id":"a","kind":"event"}`)},
			{Offset: 2, Value: []byte(`not json`)},
			{Offset: 3, Value: []byte(`{"kind":"end"}`)},
			{Offset: 4, Value: []byte(`{"trial_id":"b","kind":"end"}`)},
		},
	}
	proc := &fakeProcessor{}
	c := &KafkaConsumer{reader: reader, topic: "t", group: "g", processor: proc}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		c.Start(ctx)
		close(done)
	}()

	<-reader.drained
	cancel()
	<-done

	require.NoError(t, c.Close())

	assert.Equal(t, []string{"a", "b"}, proc.seen)
	assert.Equal(t, []int64{1, 2, 3, 4}, reader.committed)
	assert.Equal(t, 1, proc.flushed)
	assert.True(t, reader.closed)
}
