package errors

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestErrorMessage(t *testing.T) {
	t.Parallel()

	t.Run("plain message", func(t *testing.T) {
		t.Parallel()
		assert.Equal(t, "no wallet extension detected", ErrNoWalletSoftware.Error())
	})

	t.Run("details are sorted and appended", func(t *testing.T) {
		t.Parallel()
		err := WithDetails(ErrWalletNotFound, map[string]string{
			"wallet": "metamask",
			"tier":   "directory",
		})
		assert.Equal(t,
			"no verified provider found for the requested wallet (tier: directory) (wallet: metamask)",
			err.Error())
	})

	t.Run("cause is appended", func(t *testing.T) {
		t.Parallel()
		err := Wrap(errors.New("disk full"), "writing session record")
		assert.Equal(t, "writing session record: disk full", err.Error())
	})
}

func TestWrapPreservesCodeAndExit(t *testing.T) {
	t.Parallel()

	err := Wrap(ErrSessionCorrupted, "loading record")

	var be *BeaconError
	require.ErrorAs(t, err, &be)
	assert.Equal(t, "SESSION_CORRUPTED", be.Code)
	assert.Equal(t, ExitGeneral, be.ExitCode)
	assert.ErrorIs(t, err, ErrSessionCorrupted)
}

func TestWrapNil(t *testing.T) {
	t.Parallel()
	assert.NoError(t, Wrap(nil, "context"))
	assert.NoError(t, WithDetails(nil, nil))
	assert.NoError(t, WithSuggestion(nil, "do a thing"))
}

func TestWithSuggestion(t *testing.T) {
	t.Parallel()

	err := WithSuggestion(ErrWalletNotFound, "install the extension")

	var be *BeaconError
	require.ErrorAs(t, err, &be)
	assert.Equal(t, "install the extension", be.Suggestion)
	assert.ErrorIs(t, err, ErrWalletNotFound)

	// The sentinel itself stays untouched.
	assert.Empty(t, ErrWalletNotFound.Suggestion)
}

func TestIsMatchesByCode(t *testing.T) {
	t.Parallel()

	decorated := WithDetails(WithSuggestion(ErrSuspectedHijack, "disable it"), map[string]string{"wallet": "metamask"})
	assert.ErrorIs(t, decorated, ErrSuspectedHijack)
	assert.NotErrorIs(t, decorated, ErrUserRejected)

	wrapped := fmt.Errorf("outer: %w", decorated)
	assert.ErrorIs(t, wrapped, ErrSuspectedHijack)
}

func TestExitCode(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		err  error
		want int
	}{
		{name: "nil", err: nil, want: ExitSuccess},
		{name: "user rejection", err: ErrUserRejected, want: ExitAuth},
		{name: "hijack", err: ErrSuspectedHijack, want: ExitConflict},
		{name: "not found", err: ErrWalletNotFound, want: ExitNotFound},
		{name: "bad input", err: ErrUnknownWallet, want: ExitInput},
		{name: "decorated keeps exit code", err: WithSuggestion(ErrSuspectedHijack, "x"), want: ExitConflict},
		{name: "foreign error", err: errors.New("boom"), want: ExitGeneral},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.want, ExitCode(tt.err))
		})
	}
}

func TestCode(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "USER_REJECTED", Code(ErrUserRejected))
	assert.Equal(t, "GENERAL_ERROR", Code(errors.New("boom")))
	assert.Equal(t, "CUSTOM", Code(New("CUSTOM", "custom failure")))
}
