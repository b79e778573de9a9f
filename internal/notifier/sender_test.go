package notifier

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/teemow/focusbot/internal/logging"
	"github.com/teemow/focusbot/internal/signal"
)

func TestSignalSender_Routes(t *testing.T) {
	var calls [][]string
	run := func(_ context.Context, args ...string) (string, string, error) {
		calls = append(calls, args)
		if args[2] == "listGroups" {
			return "Id: grp== Name: Focus Active: true Blocked: false\n", "", nil
		}
		return "", "", nil
	}
	client, err := signal.NewClientWithRunner("+15551234567", run)
	require.NoError(t, err)
	sender := NewSignalSender(client)

	require.NoError(t, sender.Send(context.Background(), "+15559876543", "hi"))
	assert.Equal(t, []string{"-u", "+15551234567", "send", "+15559876543", "-m", "hi"}, calls[0])

	require.NoError(t, sender.Send(context.Background(), "Focus", "hi"))
	last := calls[len(calls)-1]
	assert.Equal(t, []string{"-u", "+15551234567", "send", "-g", "grp==", "-m", "hi"}, last)
}

func TestLogSender(t *testing.T) {
	assert.NoError(t, NewLogSender(logging.Discard()).Send(context.Background(), "+1555", "text"))
}

func TestChatRegistry(t *testing.T) {
	r := NewChatRegistry("")
	assert.Empty(t, r.Get())
	r.Set("+15550001111")
	assert.Equal(t, "+15550001111", r.Get())
}
