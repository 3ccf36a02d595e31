package provider

import (
	"errors"
	"fmt"
)

// Well-known EIP-1193 provider error codes.
const (
	// CodeUserRejected is returned when the user dismisses the wallet's
	// authorization prompt. A forged instant rejection with this code is
	// the signature of a hijacked provider.
	CodeUserRejected = 4001

	// CodeUnauthorized is returned when the method requires an
	// authorization the caller does not hold.
	CodeUnauthorized = 4100

	// CodeUnsupportedMethod is returned for methods the wallet does not
	// implement.
	CodeUnsupportedMethod = 4200
)

// RPCError is a provider-side request failure carrying the wallet's
// numeric error code.
type RPCError struct {
	Code    int
	Message string
}

func (e *RPCError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("provider error %d", e.Code)
	}
	return fmt.Sprintf("%s (code %d)", e.Message, e.Code)
}

// IsUserRejection reports whether err is a provider rejection with the
// standard user-cancel code.
func IsUserRejection(err error) bool {
	var re *RPCError
	return errors.As(err, &re) && re.Code == CodeUserRejected
}
