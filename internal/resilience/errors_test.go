package resilience

import (
	"errors"
	"fmt"
	"net"
	"syscall"
	"testing"

	"github.com/rotisserie/eris"
	"github.com/stretchr/testify/assert"
)

type statusErr struct{ code int }

func (e *statusErr) Error() string   { return fmt.Sprintf("status %d", e.code) }
func (e *statusErr) Temporary() bool { return IsTransientHTTPStatus(e.code) }

func TestIsTransient(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{"nil", nil, false},
		{"plain", errors.New("bad input"), false},
		{"explicit", NewTransientError(errors.New("x"), 503), true},
		{"wrapped explicit", fmt.Errorf("call: %w", NewTransientError(errors.New("x"), 429)), true},
		{"client 429", &statusErr{code: 429}, true},
		{"client 404", &statusErr{code: 404}, false},
		{"eris wrapped client 502", eris.Wrap(&statusErr{code: 502}, "apify: start run"), true},
		{"conn reset", fmt.Errorf("read: %w", syscall.ECONNRESET), true},
		{"timeout", &net.DNSError{IsTimeout: true}, true},
		{"message pattern", errors.New("write tcp: broken pipe"), true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, IsTransient(tt.err))
		})
	}
}

func TestIsTransientHTTPStatus(t *testing.T) {
	for _, code := range []int{408, 429, 500, 502, 503, 504, 529} {
		assert.True(t, IsTransientHTTPStatus(code), code)
	}
	for _, code := range []int{200, 400, 401, 404, 422} {
		assert.False(t, IsTransientHTTPStatus(code), code)
	}
}

func TestTransientError_Unwrap(t *testing.T) {
	inner := errors.New("inner")
	te := NewTransientError(inner, 503)
	assert.ErrorIs(t, te, inner)
	assert.Equal(t, "inner", te.Error())
}
