// Package gateway defines the error contract shared by the payment
// gateway clients. A RejectedError is a definitive refusal; anything
// else that fails is ambiguous and may have been applied remotely.
package gateway

import (
	"context"
	"errors"
	"fmt"
	"net"
)

// RejectedError is a definitive rejection: the gateway received the
// request and refused it with a code.
type RejectedError struct {
	Provider string
	Code     string
	Desc     string
}

func (e *RejectedError) Error() string {
	return fmt.Sprintf("%s rejected request: code=%s desc=%s", e.Provider, e.Code, e.Desc)
}

// IsAmbiguous reports whether the outcome of a gateway call is
// unknown: the request may or may not have been applied. Timeouts and
// transport failures are ambiguous; a RejectedError is not.
func IsAmbiguous(err error) bool {
	if err == nil {
		return false
	}
	var rejected *RejectedError
	if errors.As(err, &rejected) {
		return false
	}
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return true
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return true
	}
	// Remaining transport errors: the request may have reached the
	// gateway even though the response never came back.
	return true
}
