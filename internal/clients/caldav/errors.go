package caldav

import (
	"context"
	"errors"
	"fmt"
	"net"
	"strings"

	"github.com/NeoPrint3D/caldav-mcp/internal/domain"
)

// classify maps a go-webdav client error onto the error taxonomy. The
// library reports HTTP failures through an internal error type, so the
// status code is recovered from the error text; authentication rejections
// are distinguished from transport faults because they are not
// retry-eligible without operator intervention.
func classify(err error, format string, args ...interface{}) *domain.Error {
	msg := fmt.Sprintf(format, args...)

	var de *domain.Error
	if errors.As(err, &de) {
		return de
	}

	kind := domain.ErrTransport
	switch {
	case errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled):
		kind = domain.ErrTransport
	case isTimeout(err):
		kind = domain.ErrTransport
	case containsStatus(err, "401", "403"):
		kind = domain.ErrAuthFailed
	case containsStatus(err, "404", "410"):
		kind = domain.ErrNotFound
	case containsStatus(err, "409", "412"):
		kind = domain.ErrRemoteConflict
	}

	return domain.WrapError(kind, err, "%s", msg)
}

func isTimeout(err error) bool {
	var netErr net.Error
	return errors.As(err, &netErr) && netErr.Timeout()
}

func containsStatus(err error, codes ...string) bool {
	text := err.Error()
	for _, code := range codes {
		if strings.Contains(text, code+" ") || strings.HasSuffix(text, code) ||
			strings.Contains(text, "HTTP "+code) || strings.Contains(text, ": "+code) {
			return true
		}
	}
	return false
}
