package utils

import (
	"errors"
	"net"
)

// IsTemporaryErr reports whether a transport error is worth a caller retry.
// Timeouts and errors advertising Temporary() qualify; everything else at the
// network level is treated as transient.
func IsTemporaryErr(err error) bool {
	if err == nil {
		return false
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return true
	}
	var tempErr interface{ Temporary() bool }
	if errors.As(err, &tempErr) {
		return tempErr.Temporary()
	}
	// consider all other network-level issues as transient
	return true
}
