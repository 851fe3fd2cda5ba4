package notification

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type redisStub struct {
	channel string
	payload []byte
	err     error
}

func (s *redisStub) Publish(ctx context.Context, channel string, message interface{}) *redis.IntCmd {
	s.channel = channel
	s.payload, _ = message.([]byte)
	cmd := redis.NewIntCmd(ctx)
	if s.err != nil {
		cmd.SetErr(s.err)
	} else {
		cmd.SetVal(1)
	}
	return cmd
}

func TestRedisPublisherEncodesEvent(t *testing.T) {
	stub := &redisStub{}
	p := NewRedisPublisher(stub, "quest-events")
	questID := uuid.New()

	err := p.Publish(context.Background(), Event{Type: TypeQuestRejected, QuestID: questID, Reason: "too vague"})
	require.NoError(t, err)

	assert.Equal(t, "quest-events", stub.channel)
	var got Event
	require.NoError(t, json.Unmarshal(stub.payload, &got))
	assert.Equal(t, TypeQuestRejected, got.Type)
	assert.Equal(t, questID, got.QuestID)
	assert.Equal(t, "too vague", got.Reason)
}

func TestRedisPublisherWrapsError(t *testing.T) {
	stub := &redisStub{err: errors.New("connection refused")}
	p := NewRedisPublisher(stub, "quest-events")

	err := p.Publish(context.Background(), Event{Type: TypeQuestApproved})
	assert.ErrorContains(t, err, "publish quest_approved event")
}

func TestNilPublisherIsSafe(t *testing.T) {
	var p *RedisPublisher
	assert.NoError(t, p.Publish(context.Background(), Event{}))
	assert.NoError(t, NopPublisher{}.Publish(context.Background(), Event{}))
}
