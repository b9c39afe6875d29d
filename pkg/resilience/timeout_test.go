package resilience

import (
	"context"
	"errors"
	"testing"
	"time"

	apperrors "github.com/Adithya-Monish-Kumar-K/medmind/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWithTimeoutReturnsValue(t *testing.T) {
	got, err := WithTimeout(context.Background(), time.Second, "fast", func(context.Context) (string, error) {
		return "done", nil
	})
	require.NoError(t, err)
	assert.Equal(t, "done", got)
}

func TestWithTimeoutPassesError(t *testing.T) {
	boom := errors.New("boom")
	_, err := WithTimeout(context.Background(), time.Second, "failing", func(context.Context) (int, error) {
		return 0, boom
	})
	assert.ErrorIs(t, err, boom)
}

func TestWithTimeoutExpires(t *testing.T) {
	_, err := WithTimeout(context.Background(), 20*time.Millisecond, "slow", func(context.Context) (string, error) {
		time.Sleep(200 * time.Millisecond)
		return "late", nil
	})
	require.Error(t, err)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.ErrorIs(t, err, apperrors.ErrTimeout)
	assert.Contains(t, err.Error(), "slow")
}

func TestWithTimeoutParentCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := WithTimeout(ctx, time.Second, "cancelled", func(ctx context.Context) (string, error) {
		<-ctx.Done()
		return "", ctx.Err()
	})
	assert.ErrorIs(t, err, context.Canceled)
}

func TestWithTimeoutDisabled(t *testing.T) {
	got, err := WithTimeout(context.Background(), 0, "direct", func(ctx context.Context) (int, error) {
		_, hasDeadline := ctx.Deadline()
		assert.False(t, hasDeadline)
		return 7, nil
	})
	require.NoError(t, err)
	assert.Equal(t, 7, got)
}
