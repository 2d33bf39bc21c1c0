package hooks

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"goa.design/agentcore/runtime/agent"
)

func TestBusPublishFanOut(t *testing.T) {
	bus := NewBus()
	ctx := context.Background()

	count := 0
	sub := SubscriberFunc(func(ctx context.Context, event Event) error {
		count++
		return nil
	})
	_, err := bus.Register(sub)
	require.NoError(t, err)

	evt1 := NewEvent(agent.EventAgentStarted, "run1", "agent1", "", "session1", 1, AgentStartedPayload{})
	require.NoError(t, bus.Publish(ctx, evt1))
	evt2 := NewEvent(agent.EventAgentDone, "run1", "agent1", "", "session1", 2, AgentDonePayload{Text: "done"})
	require.NoError(t, bus.Publish(ctx, evt2))
	require.Equal(t, 2, count)
}

func TestBusRegisterNil(t *testing.T) {
	bus := NewBus()
	_, err := bus.Register(nil)
	require.Error(t, err)
}

func TestSubscriptionClose(t *testing.T) {
	bus := NewBus()
	ctx := context.Background()
	count := 0
	sub := SubscriberFunc(func(ctx context.Context, event Event) error {
		count++
		return nil
	})
	subscription, err := bus.Register(sub)
	require.NoError(t, err)

	evt1 := NewEvent(agent.EventAgentStarted, "run1", "agent1", "", "session1", 1, AgentStartedPayload{})
	require.NoError(t, bus.Publish(ctx, evt1))
	require.NoError(t, subscription.Close())

	evt2 := NewEvent(agent.EventAgentDone, "run1", "agent1", "", "session1", 2, AgentDonePayload{Text: "done"})
	require.NoError(t, bus.Publish(ctx, evt2))
	require.Equal(t, 1, count)
}
