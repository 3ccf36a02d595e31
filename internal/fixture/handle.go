// Package fixture builds simulated provider environments from YAML
// descriptions: fake wallet handles, the globals they occupy, and the
// announcements they broadcast. The CLI loads one to exercise discovery
// and resolution without a browser; the test suites assemble them in
// code.
package fixture

import (
	"context"
	"sync"
	"time"

	"github.com/chainlog/beacon/internal/provider"
)

// Rejection scripts an error response for the account-access request.
// Delay models how long the wallet took to answer; a forged auto-reject
// answers near-instantly, a human takes seconds.
type Rejection struct {
	Code    int
	Message string
	Delay   time.Duration
}

// FakeHandle is a scriptable provider handle. It implements the optional
// capability interfaces so fixtures can model flag-carrying wallets and
// multi-injection shared slots.
type FakeHandle struct {
	mu sync.Mutex

	flags    provider.Flags
	subs     []provider.Handle
	accounts []string
	// authorized mirrors prior account access: the silent account query
	// returns accounts only when true.
	authorized bool
	chainID    string
	balances   map[string]string
	reject     *Rejection

	// advance receives the scripted rejection delay instead of sleeping,
	// so tests drive a manual clock. Nil means the delay is only recorded.
	advance func(time.Duration)

	listeners map[string][]provider.Listener
	calls     []string
}

// NewFakeHandle creates an empty fake handle.
func NewFakeHandle() *FakeHandle {
	return &FakeHandle{
		balances:  make(map[string]string),
		listeners: make(map[string][]provider.Listener),
	}
}

// WithFlags sets the self-described identity flags.
func (h *FakeHandle) WithFlags(f provider.Flags) *FakeHandle {
	h.flags = f
	return h
}

// WithSubProviders sets the multi-injection providers array.
func (h *FakeHandle) WithSubProviders(subs ...provider.Handle) *FakeHandle {
	h.subs = subs
	return h
}

// WithAccounts sets the accounts granted by the access request.
func (h *FakeHandle) WithAccounts(accounts ...string) *FakeHandle {
	h.accounts = accounts
	return h
}

// WithAuthorized marks the handle as previously authorized, so the
// silent account query succeeds.
func (h *FakeHandle) WithAuthorized() *FakeHandle {
	h.authorized = true
	return h
}

// WithChainID sets the hex chain id response.
func (h *FakeHandle) WithChainID(hex string) *FakeHandle {
	h.chainID = hex
	return h
}

// WithBalance sets the hex wei balance for one address.
func (h *FakeHandle) WithBalance(address, hexWei string) *FakeHandle {
	h.balances[address] = hexWei
	return h
}

// WithRejection scripts the access request to fail.
func (h *FakeHandle) WithRejection(r Rejection) *FakeHandle {
	h.reject = &r
	return h
}

// WithClockAdvance routes the scripted rejection delay into the given
// function instead of wall time.
func (h *FakeHandle) WithClockAdvance(advance func(time.Duration)) *FakeHandle {
	h.advance = advance
	return h
}

// Calls returns the request methods issued so far, in order.
func (h *FakeHandle) Calls() []string {
	h.mu.Lock()
	defer h.mu.Unlock()
	out := make([]string, len(h.calls))
	copy(out, h.calls)
	return out
}

// Request implements provider.Handle.
func (h *FakeHandle) Request(_ context.Context, method string, params ...any) (any, error) {
	h.mu.Lock()
	h.calls = append(h.calls, method)
	reject := h.reject
	advance := h.advance
	h.mu.Unlock()

	switch method {
	case provider.MethodRequestAccounts:
		if reject != nil {
			if advance != nil {
				advance(reject.Delay)
			} else if reject.Delay > 0 {
				time.Sleep(reject.Delay)
			}
			msg := reject.Message
			if msg == "" {
				msg = "request rejected"
			}
			return nil, &provider.RPCError{Code: reject.Code, Message: msg}
		}
		h.mu.Lock()
		h.authorized = true
		accounts := append([]string(nil), h.accounts...)
		h.mu.Unlock()
		return accounts, nil

	case provider.MethodAccounts:
		h.mu.Lock()
		defer h.mu.Unlock()
		if !h.authorized {
			return []string{}, nil
		}
		return append([]string(nil), h.accounts...), nil

	case provider.MethodChainID:
		if h.chainID == "" {
			return "0x1", nil
		}
		return h.chainID, nil

	case provider.MethodGetBalance:
		if len(params) == 0 {
			return "0x0", nil
		}
		address, _ := params[0].(string)
		h.mu.Lock()
		defer h.mu.Unlock()
		if wei, ok := h.balances[address]; ok {
			return wei, nil
		}
		return "0x0", nil

	default:
		return nil, &provider.RPCError{
			Code:    provider.CodeUnsupportedMethod,
			Message: "method not supported: " + method,
		}
	}
}

// On implements provider.Handle.
func (h *FakeHandle) On(event string, l provider.Listener) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.listeners[event] = append(h.listeners[event], l)
}

// RemoveListener implements provider.Handle.
func (h *FakeHandle) RemoveListener(event string, l provider.Listener) {
	h.mu.Lock()
	defer h.mu.Unlock()

	current := h.listeners[event]
	next := current[:0]
	for _, existing := range current {
		if existing != l {
			next = append(next, existing)
		}
	}
	h.listeners[event] = next
}

// Emit delivers an event to the attached listeners, simulating the
// wallet pushing a change.
func (h *FakeHandle) Emit(event string, payload any) {
	h.mu.Lock()
	ls := append([]provider.Listener(nil), h.listeners[event]...)
	h.mu.Unlock()

	for _, l := range ls {
		l.HandleProviderEvent(event, payload)
	}
}

// ListenerCount reports the attached listeners for an event.
func (h *FakeHandle) ListenerCount(event string) int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.listeners[event])
}

// IdentityFlags implements provider.FlagCarrier.
func (h *FakeHandle) IdentityFlags() provider.Flags {
	return h.flags
}

// Providers implements provider.MultiProvider.
func (h *FakeHandle) Providers() []provider.Handle {
	return h.subs
}

// ManualClock is a hand-advanced clock for deterministic timing tests.
type ManualClock struct {
	mu sync.Mutex
	t  time.Time
}

// NewManualClock creates a clock starting at the given instant.
func NewManualClock(start time.Time) *ManualClock {
	return &ManualClock{t: start}
}

// Now returns the current instant.
func (c *ManualClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

// Advance moves the clock forward.
func (c *ManualClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.t = c.t.Add(d)
}
