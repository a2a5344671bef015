package ctxkeys

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRequestID(t *testing.T) {
	_, ok := RequestID(context.Background())
	assert.False(t, ok)

	id, ok := RequestID(WithRequestID(context.Background(), "req-1"))
	assert.True(t, ok)
	assert.Equal(t, "req-1", id)

	_, ok = RequestID(WithRequestID(context.Background(), ""))
	assert.False(t, ok)
}

func TestCallID(t *testing.T) {
	ctx := WithCallID(WithRequestID(context.Background(), "req-1"), "call_9")

	id, ok := CallID(ctx)
	assert.True(t, ok)
	assert.Equal(t, "call_9", id)

	rid, _ := RequestID(ctx)
	assert.Equal(t, "req-1", rid)
}
