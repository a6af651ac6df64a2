package events_test

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jonesrussell/north-cloud/huginn/internal/events"
)

func newPublisher(t *testing.T, maxLen int64) (*events.RedisPublisher, *miniredis.Miniredis) {
	t.Helper()

	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	return events.NewRedisPublisher(client, maxLen, nil), mr
}

func TestRedisPublisher_PublishViolations(t *testing.T) {
	t.Parallel()

	pub, mr := newPublisher(t, 0)

	event := &events.ViolationEvent{
		ContractorID: 5,
		SessionID:    11,
		PageID:       99,
		URL:          "https://acme.test/",
		Violations:   []events.ViolationItem{{WordFound: "казино", Severity: "high", Position: 7}},
	}
	require.NoError(t, pub.PublishViolations(context.Background(), event))
	assert.NotEqual(t, uuid.Nil, event.EventID)

	entries, err := mr.Stream(events.StreamViolations)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	require.Len(t, entries[0].Values, 2)
	assert.Equal(t, "event", entries[0].Values[0])

	var decoded events.ViolationEvent
	require.NoError(t, json.Unmarshal([]byte(entries[0].Values[1]), &decoded))
	assert.Equal(t, int64(99), decoded.PageID)
	assert.Equal(t, "казино", decoded.Violations[0].WordFound)
	assert.Equal(t, event.EventID, decoded.EventID)
}

func TestRedisPublisher_PublishScanResult(t *testing.T) {
	t.Parallel()

	pub, mr := newPublisher(t, 100)

	msg := "cancelled"
	require.NoError(t, pub.PublishScanResult(context.Background(), &events.ScanResultEvent{
		SessionID:    11,
		ContractorID: 5,
		Status:       "failed",
		ErrorMessage: &msg,
	}))

	entries, err := mr.Stream(events.StreamScanResults)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Contains(t, entries[0].Values[1], `"error_message":"cancelled"`)
}

func TestRedisPublisher_ServerDown(t *testing.T) {
	t.Parallel()

	pub, mr := newPublisher(t, 0)
	mr.Close()

	err := pub.PublishScanResult(context.Background(), &events.ScanResultEvent{SessionID: 1})
	assert.Error(t, err)
}

func TestNopPublisher(t *testing.T) {
	t.Parallel()

	var p events.Publisher = events.NopPublisher{}
	assert.NoError(t, p.PublishViolations(context.Background(), &events.ViolationEvent{}))
	assert.NoError(t, p.PublishScanResult(context.Background(), &events.ScanResultEvent{}))
}
