package apperr

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestKindOf(t *testing.T) {
	err := New(KindConflict, "seat already booked")
	assert.Equal(t, KindConflict, KindOf(err))

	wrapped := fmt.Errorf("creating booking: %w", err)
	assert.Equal(t, KindConflict, KindOf(wrapped))

	assert.Equal(t, KindUnknown, KindOf(errors.New("plain")))
}

func TestWrapUnwraps(t *testing.T) {
	inner := errors.New("db down")
	err := Wrap(KindExternal, "notification failed", inner)

	require.ErrorIs(t, err, inner)
	assert.Contains(t, err.Error(), "notification failed")
	assert.Contains(t, err.Error(), "db down")
}

func TestIsMatchesByKind(t *testing.T) {
	err := New(KindResourceExhausted, "no remaining uses")
	assert.ErrorIs(t, err, New(KindResourceExhausted, ""))
	assert.NotErrorIs(t, err, New(KindNotFound, ""))
}
