package audit

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/dmitrijs2005/medkeeper/internal/logging"
	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeChannel struct {
	published []amqp.Publishing
	keys      []string
	err       error
	closed    bool
}

func (f *fakeChannel) PublishWithContext(ctx context.Context, exchange, key string, mandatory, immediate bool, msg amqp.Publishing) error {
	if f.err != nil {
		return f.err
	}
	f.keys = append(f.keys, key)
	f.published = append(f.published, msg)
	return nil
}

func (f *fakeChannel) Close() error { f.closed = true; return nil }

type fakeConn struct{ closed bool }

func (f *fakeConn) Close() error { f.closed = true; return nil }

func TestAMQPPublisher_PublishesPersistentJSON(t *testing.T) {
	ch := &fakeChannel{}
	conn := &fakeConn{}
	p := newAMQPPublisher(conn, ch, "medkeeper.audit")

	at := time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC)
	require.NoError(t, p.Publish(context.Background(), Event{Type: RecordCreated, PatientID: 1, RecordID: 2, At: at}))

	require.Len(t, ch.published, 1)
	msg := ch.published[0]
	assert.Equal(t, "medkeeper.audit", ch.keys[0])
	assert.Equal(t, "application/json", msg.ContentType)
	assert.Equal(t, amqp.Persistent, msg.DeliveryMode)
	assert.Equal(t, "record.created", msg.Type)

	var got Event
	require.NoError(t, json.Unmarshal(msg.Body, &got))
	assert.Equal(t, RecordCreated, got.Type)
	assert.Equal(t, int64(2), got.RecordID)
	assert.True(t, at.Equal(got.At))

	require.NoError(t, p.Close())
	assert.True(t, ch.closed)
	assert.True(t, conn.closed)
}

func TestAMQPPublisher_PublishError(t *testing.T) {
	ch := &fakeChannel{err: errors.New("channel closed")}
	p := newAMQPPublisher(&fakeConn{}, ch, "q")

	err := p.Publish(context.Background(), Event{Type: Logout})
	require.ErrorContains(t, err, "channel closed")
}

func TestLogPublisher_WritesIDsOnly(t *testing.T) {
	var buf bytes.Buffer
	l, err := logging.New("info", logging.FormatText, &buf)
	require.NoError(t, err)

	p := NewLogPublisher(l)
	require.NoError(t, p.Publish(context.Background(), Event{Type: LoginSucceeded, PatientID: 7, SessionID: "s-1", At: time.Now()}))
	require.NoError(t, p.Close())

	out := buf.String()
	assert.Contains(t, out, "event=login.succeeded")
	assert.Contains(t, out, "patient_id=7")
	assert.Contains(t, out, "session_id=s-1")
	assert.Contains(t, out, "module=audit")
	assert.NotContains(t, out, "record_id")
}

func TestMemory(t *testing.T) {
	m := NewMemory()
	ctx := context.Background()
	require.NoError(t, m.Publish(ctx, Event{Type: PatientRegistered}))
	require.NoError(t, m.Publish(ctx, Event{Type: LoginFailed}))

	assert.Equal(t, []EventType{PatientRegistered, LoginFailed}, m.Types())
	assert.Len(t, m.Events(), 2)
	require.NoError(t, m.Close())
}
