package domainerrors

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestHasCode(t *testing.T) {
	base := New(CodeNotFound, "participant not found")

	assert.True(t, HasCode(base, CodeNotFound))
	assert.False(t, HasCode(base, CodeConflict))

	wrapped := Wrap(base, CodeTransport, "request failed")
	assert.True(t, HasCode(wrapped, CodeTransport))
	assert.True(t, HasCode(wrapped, CodeNotFound), "inner code survives wrapping")

	plain := errors.New("plain")
	assert.False(t, HasCode(plain, CodeNotFound))
	assert.False(t, HasCode(nil, CodeNotFound))
}

func TestCodeOf(t *testing.T) {
	assert.Equal(t, CodeValidation, CodeOf(New(CodeValidation, "age out of range")))
	assert.Equal(t, CodeInternal, CodeOf(errors.New("plain")))

	// Outermost code wins.
	wrapped := Wrap(New(CodeNotFound, "missing"), CodeTransport, "request failed")
	assert.Equal(t, CodeTransport, CodeOf(wrapped))
}

func TestMessageOf(t *testing.T) {
	assert.Equal(t, "Subject ID already exists", MessageOf(New(CodeConflict, "Subject ID already exists"), "fallback"))
	assert.Equal(t, "fallback", MessageOf(errors.New("plain"), "fallback"))

	// Coded errors found deeper in a fmt-wrapped chain still answer.
	chained := fmt.Errorf("store: %w", New(CodeTransport, "connection refused"))
	assert.Equal(t, "connection refused", MessageOf(chained, "fallback"))
}

func TestErrorString(t *testing.T) {
	assert.Equal(t, "missing", New(CodeNotFound, "missing").Error())

	cause := errors.New("dial tcp: connection refused")
	assert.Equal(t, "request failed: dial tcp: connection refused", Wrap(cause, CodeTransport, "request failed").Error())
	assert.ErrorIs(t, Wrap(cause, CodeTransport, "request failed"), cause)
}
