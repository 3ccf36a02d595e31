// Package errors provides structured error handling for Beacon.
// It defines sentinel errors, exit codes, and helpers for adding
// context, details, and suggestions to errors.
//
//nolint:revive // Package name intentionally shadows stdlib for domain-specific error handling
package errors

import (
	"errors"
	"fmt"
	"sort"
)

// Exit codes used by the CLI.
const (
	ExitSuccess  = 0 // Successful execution
	ExitGeneral  = 1 // General/unknown error
	ExitInput    = 2 // Invalid input
	ExitAuth     = 3 // Authorization refused by the user or wallet
	ExitNotFound = 4 // Resource not found
	ExitConflict = 5 // Conflicting wallet software (hijack)
)

// BeaconError is the structured error type for Beacon.
type BeaconError struct {
	Code       string            // Machine-readable error code
	Message    string            // Human-readable message
	Details    map[string]string // Additional context
	Suggestion string            // Actionable suggestion for user
	Cause      error             // Underlying error
	ExitCode   int               // Exit code for CLI
}

func (e *BeaconError) Error() string {
	msg := e.Message

	// Include details in error message (sorted for deterministic output)
	if len(e.Details) > 0 {
		keys := make([]string, 0, len(e.Details))
		for k := range e.Details {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			msg = fmt.Sprintf("%s (%s: %s)", msg, k, e.Details[k])
		}
	}

	if e.Cause != nil {
		return fmt.Sprintf("%s: %v", msg, e.Cause)
	}
	return msg
}

func (e *BeaconError) Unwrap() error {
	return e.Cause
}

// Is implements errors.Is for BeaconError.
func (e *BeaconError) Is(target error) bool {
	var t *BeaconError
	if errors.As(target, &t) {
		return e.Code == t.Code
	}
	return false
}

// Sentinel errors.
var (
	ErrGeneral = &BeaconError{
		Code:     "GENERAL_ERROR",
		Message:  "an error occurred",
		ExitCode: ExitGeneral,
	}

	ErrInvalidInput = &BeaconError{
		Code:     "INVALID_INPUT",
		Message:  "invalid input",
		ExitCode: ExitInput,
	}

	// Resolution errors.
	ErrNoWalletSoftware = &BeaconError{
		Code:     "NO_WALLET_SOFTWARE",
		Message:  "no wallet extension detected",
		ExitCode: ExitNotFound,
	}

	ErrWalletNotFound = &BeaconError{
		Code:     "WALLET_NOT_FOUND",
		Message:  "no verified provider found for the requested wallet",
		ExitCode: ExitNotFound,
	}

	ErrUnknownWallet = &BeaconError{
		Code:     "UNKNOWN_WALLET",
		Message:  "wallet id is not in the supported catalog",
		ExitCode: ExitInput,
	}

	// Connection errors.
	ErrUserRejected = &BeaconError{
		Code:     "USER_REJECTED",
		Message:  "connection cancelled by user",
		ExitCode: ExitAuth,
	}

	ErrSuspectedHijack = &BeaconError{
		Code:     "SUSPECTED_HIJACK",
		Message:  "connection auto-rejected, provider is likely hijacked by another wallet extension",
		ExitCode: ExitConflict,
	}

	ErrRequestFailed = &BeaconError{
		Code:     "REQUEST_FAILED",
		Message:  "provider request failed",
		ExitCode: ExitGeneral,
	}

	ErrConnectBusy = &BeaconError{
		Code:     "CONNECT_BUSY",
		Message:  "a connect attempt is already in flight",
		ExitCode: ExitInput,
	}

	ErrNotConnected = &BeaconError{
		Code:     "NOT_CONNECTED",
		Message:  "no wallet is connected",
		ExitCode: ExitNotFound,
	}

	// Persistence errors.
	ErrSessionCorrupted = &BeaconError{
		Code:     "SESSION_CORRUPTED",
		Message:  "persisted session record is corrupted",
		ExitCode: ExitGeneral,
	}

	ErrSessionNotFound = &BeaconError{
		Code:     "SESSION_NOT_FOUND",
		Message:  "no persisted session record",
		ExitCode: ExitNotFound,
	}

	// Config errors.
	ErrConfigNotFound = &BeaconError{
		Code:     "CONFIG_NOT_FOUND",
		Message:  "configuration file not found",
		ExitCode: ExitNotFound,
	}

	ErrConfigInvalid = &BeaconError{
		Code:     "CONFIG_INVALID",
		Message:  "configuration file is invalid",
		ExitCode: ExitInput,
	}

	// Fixture errors.
	ErrFixtureInvalid = &BeaconError{
		Code:     "FIXTURE_INVALID",
		Message:  "environment fixture file is invalid",
		ExitCode: ExitInput,
	}
)

// New creates a new BeaconError with the given code and message.
func New(code, message string) *BeaconError {
	return &BeaconError{
		Code:     code,
		Message:  message,
		ExitCode: ExitGeneral,
	}
}

// Wrap wraps an error with additional context.
func Wrap(err error, format string, args ...any) error {
	if err == nil {
		return nil
	}

	msg := fmt.Sprintf(format, args...)

	var be *BeaconError
	if errors.As(err, &be) {
		return &BeaconError{
			Code:       be.Code,
			Message:    fmt.Sprintf("%s: %s", msg, be.Message),
			Details:    be.Details,
			Suggestion: be.Suggestion,
			Cause:      err,
			ExitCode:   be.ExitCode,
		}
	}

	return &BeaconError{
		Code:     "GENERAL_ERROR",
		Message:  msg,
		Cause:    err,
		ExitCode: ExitGeneral,
	}
}

// WithDetails adds details to an error.
func WithDetails(err error, details map[string]string) error {
	if err == nil {
		return nil
	}

	var be *BeaconError
	if errors.As(err, &be) {
		return &BeaconError{
			Code:       be.Code,
			Message:    be.Message,
			Details:    details,
			Suggestion: be.Suggestion,
			Cause:      be.Cause,
			ExitCode:   be.ExitCode,
		}
	}

	return &BeaconError{
		Code:     "GENERAL_ERROR",
		Message:  err.Error(),
		Details:  details,
		Cause:    err,
		ExitCode: ExitGeneral,
	}
}

// WithSuggestion adds a suggestion to an error.
func WithSuggestion(err error, suggestion string) error {
	if err == nil {
		return nil
	}

	var be *BeaconError
	if errors.As(err, &be) {
		return &BeaconError{
			Code:       be.Code,
			Message:    be.Message,
			Details:    be.Details,
			Suggestion: suggestion,
			Cause:      be.Cause,
			ExitCode:   be.ExitCode,
		}
	}

	return &BeaconError{
		Code:       "GENERAL_ERROR",
		Message:    err.Error(),
		Suggestion: suggestion,
		Cause:      err,
		ExitCode:   ExitGeneral,
	}
}

// ExitCode returns the appropriate exit code for an error.
func ExitCode(err error) int {
	if err == nil {
		return ExitSuccess
	}

	var be *BeaconError
	if errors.As(err, &be) {
		return be.ExitCode
	}

	return ExitGeneral
}

// Code returns the error code for an error.
func Code(err error) string {
	var be *BeaconError
	if errors.As(err, &be) {
		return be.Code
	}
	return "GENERAL_ERROR"
}

// Is wraps errors.Is for convenience.
func Is(err, target error) bool {
	return errors.Is(err, target)
}

// As wraps errors.As for convenience.
func As(err error, target any) bool {
	return errors.As(err, target)
}
