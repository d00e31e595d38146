package caldav

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/NeoPrint3D/caldav-mcp/internal/domain"
)

type timeoutErr struct{}

func (timeoutErr) Error() string   { return "i/o timeout" }
func (timeoutErr) Timeout() bool   { return true }
func (timeoutErr) Temporary() bool { return true }

func TestClassify(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want domain.ErrorKind
	}{
		{"unauthorized", errors.New("HTTP 401 Unauthorized"), domain.ErrAuthFailed},
		{"forbidden", errors.New("403 Forbidden"), domain.ErrAuthFailed},
		{"not found", errors.New("HTTP 404 Not Found"), domain.ErrNotFound},
		{"gone", errors.New("410 Gone"), domain.ErrNotFound},
		{"conflict", errors.New("HTTP 409 Conflict"), domain.ErrRemoteConflict},
		{"precondition failed", errors.New("412 Precondition Failed"), domain.ErrRemoteConflict},
		{"status at end", errors.New("unexpected status: 404"), domain.ErrNotFound},
		{"server error", errors.New("HTTP 500 Internal Server Error"), domain.ErrTransport},
		{"connection refused", errors.New("dial tcp: connection refused"), domain.ErrTransport},
		{"deadline", context.DeadlineExceeded, domain.ErrTransport},
		{"canceled", context.Canceled, domain.ErrTransport},
		{"net timeout", timeoutErr{}, domain.ErrTransport},
		{"wrapped deadline", fmt.Errorf("query: %w", context.DeadlineExceeded), domain.ErrTransport},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := classify(tt.err, "op failed")
			if got.Kind != tt.want {
				t.Errorf("classify(%v) kind = %v, want %v", tt.err, got.Kind, tt.want)
			}
			if !errors.Is(got, tt.err) {
				t.Errorf("classify(%v) lost the cause chain", tt.err)
			}
		})
	}
}

// A domain error produced deeper in the stack passes through untouched
// instead of being reclassified as transport.
func TestClassifyPassesThroughTypedErrors(t *testing.T) {
	orig := domain.Errorf(domain.ErrMalformedObject, "bad DTSTART")
	got := classify(fmt.Errorf("decode: %w", orig), "get object")
	if got.Kind != domain.ErrMalformedObject {
		t.Errorf("kind = %v, want malformed_calendar_object", got.Kind)
	}
}

func TestRetryableAlignment(t *testing.T) {
	// Only transport failures are retry-eligible; everything classify can
	// produce from an HTTP status is terminal.
	if !domain.Retryable(classify(errors.New("dial tcp: connection refused"), "connect")) {
		t.Error("transport error not retryable")
	}
	for _, err := range []error{
		errors.New("HTTP 401 Unauthorized"),
		errors.New("HTTP 404 Not Found"),
		errors.New("HTTP 409 Conflict"),
	} {
		if domain.Retryable(classify(err, "op")) {
			t.Errorf("%v classified retryable", err)
		}
	}
}
