package errors

import (
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestWithContext(t *testing.T) {
	assert.NoError(t, WithContext(nil, "ignored"))

	base := New("permission denied")
	err := WithContext(WithContext(base, "open"), "copy")
	assert.EqualError(t, err, "copy: open: permission denied")
	assert.Equal(t, base, RootCause(err))
	assert.True(t, Is(err, base))
}

func TestRootCauseTypedError(t *testing.T) {
	err := WithContext(FileNotFound{Path: "/src"}, "walk")
	_, ok := RootCause(err).(FileNotFound)
	assert.True(t, ok)
}

func TestEntryIOFailureUnwrap(t *testing.T) {
	err := WithContext(EntryIOFailure{
		Op:   "delete",
		Path: "/dst/a.txt",
		Err:  os.ErrPermission,
	}, "prune")
	assert.EqualError(t, err, `prune: delete "/dst/a.txt": permission denied`)
	assert.True(t, Is(err, os.ErrPermission))

	var entryErr EntryIOFailure
	assert.True(t, As(err, &entryErr))
	assert.Equal(t, "/dst/a.txt", entryErr.Path)
}

func TestFriendlyError(t *testing.T) {
	err := NewFriendlyError("interval must be positive, got %d", -1)
	friendly, ok := err.(FriendlyError)
	assert.True(t, ok)
	assert.Equal(t, "interval must be positive, got -1", friendly.FriendlyMessage())
}
