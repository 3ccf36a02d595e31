package session

import (
	"context"
	"sync"
	"time"

	"github.com/chainlog/beacon/internal/chain"
	"github.com/chainlog/beacon/internal/config"
	"github.com/chainlog/beacon/internal/identity"
	"github.com/chainlog/beacon/internal/provider"
	"github.com/chainlog/beacon/internal/resolver"
	beaconerr "github.com/chainlog/beacon/pkg/errors"
)

// DefaultHijackThreshold is the rejection-speed cutoff: a user-rejection
// code arriving faster than this is reclassified as a forged auto-reject,
// because a human cannot read and dismiss a wallet prompt that quickly.
// The heuristic is best effort and deliberately not stronger than that.
const DefaultHijackThreshold = 1500 * time.Millisecond

// Options configures a Session.
type Options struct {
	// HijackThreshold overrides DefaultHijackThreshold.
	HijackThreshold time.Duration

	// Logger receives diagnostics. Nil means discard.
	Logger *config.Logger

	// Clock overrides time.Now for the rejection-speed measurement.
	Clock func() time.Time
}

// Session drives the connection state machine over a resolved provider
// handle. It holds at most one handle at a time, is the single writer of
// the observable State, and owns the listener attach/detach pairing.
type Session struct {
	res   *resolver.Resolver
	store Store
	log   *config.Logger

	threshold time.Duration
	now       func() time.Time

	mu           sync.Mutex
	state        State
	active       provider.Handle
	connecting   bool
	connectingID string

	observers    map[int]func(State)
	nextObserver int

	refreshWG sync.WaitGroup
}

// New creates a session over the given resolver and record store.
func New(res *resolver.Resolver, store Store, opts Options) *Session {
	if opts.HijackThreshold <= 0 {
		opts.HijackThreshold = DefaultHijackThreshold
	}
	if opts.Logger == nil {
		opts.Logger = config.NullLogger()
	}
	if opts.Clock == nil {
		opts.Clock = time.Now
	}
	if store == nil {
		store = NewMemoryStore()
	}
	return &Session{
		res:       res,
		store:     store,
		log:       opts.Logger,
		threshold: opts.HijackThreshold,
		now:       opts.Clock,
		observers: make(map[int]func(State)),
	}
}

// State returns a copy of the current connection state.
func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// ActiveHandle returns the verified handle of the current connection, or
// nil. Downstream collaborators (contract layer) must use this instead of
// reading wallet globals, or the hijack problem comes straight back.
func (s *Session) ActiveHandle() provider.Handle {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.active
}

// Busy reports whether a connect attempt is in flight, and for which
// wallet id.
func (s *Session) Busy() (bool, string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.connecting, s.connectingID
}

// Subscribe registers a read-only observer of state changes. The returned
// cancel function removes the registration.
func (s *Session) Subscribe(fn func(State)) (cancel func()) {
	s.mu.Lock()
	id := s.nextObserver
	s.nextObserver++
	s.observers[id] = fn
	s.mu.Unlock()

	return func() {
		s.mu.Lock()
		delete(s.observers, id)
		s.mu.Unlock()
	}
}

// Connect resolves the wallet id and performs the connect exchange:
// account access, then chain id, then balance, strictly in that order
// (the balance query is address-scoped). At most one attempt may be in
// flight; re-entrant calls fail fast with CONNECT_BUSY.
func (s *Session) Connect(ctx context.Context, walletID string) error {
	if !identity.Known(walletID) {
		return beaconerr.WithDetails(beaconerr.ErrUnknownWallet, map[string]string{"wallet": walletID})
	}

	s.mu.Lock()
	if s.connecting {
		inFlight := s.connectingID
		s.mu.Unlock()
		return beaconerr.WithDetails(beaconerr.ErrConnectBusy, map[string]string{"wallet": inFlight})
	}
	s.connecting = true
	s.connectingID = walletID
	s.mu.Unlock()

	defer func() {
		s.mu.Lock()
		s.connecting = false
		s.connectingID = ""
		s.mu.Unlock()
	}()

	handle := s.res.Resolve(walletID)
	if handle == nil {
		return s.notFoundError(walletID)
	}

	start := s.now()
	rawAccounts, err := handle.Request(ctx, provider.MethodRequestAccounts)
	if err != nil {
		return s.classifyRejection(walletID, err, s.now().Sub(start))
	}

	accounts := toStringSlice(rawAccounts)
	if len(accounts) == 0 {
		return beaconerr.WithDetails(beaconerr.ErrUserRejected, map[string]string{"wallet": walletID})
	}
	address := accounts[0]
	if !chain.ValidAddress(address) {
		return requestFailed(nil, map[string]string{"wallet": walletID, "address": address})
	}

	chainID, err := s.fetchChainID(ctx, handle)
	if err != nil {
		return requestFailed(err, map[string]string{"wallet": walletID})
	}

	balance := s.fetchBalance(ctx, handle, address)
	name := s.detectProviderName(handle)

	// Exclusive ownership: release listeners on any previously held
	// handle before adopting this one, so switching wallets or repeating
	// a connect never leaves a stale registration behind.
	s.mu.Lock()
	s.detachLocked()
	s.active = handle
	s.state = connectedState(address, chainID, balance, name)
	st := s.state
	s.mu.Unlock()

	if saveErr := s.store.Save(&Record{WalletID: walletID, Address: address, ChainID: chainID}); saveErr != nil {
		s.log.Error("session: persisting record: %v", saveErr)
	}

	s.attach(handle)
	s.notify(st)
	s.log.Debug("session: connected %s as %s on chain %d", walletID, address, chainID)
	return nil
}

// Disconnect detaches listeners, clears the connection state, and erases
// the persisted record. Idempotent when already idle.
func (s *Session) Disconnect() {
	s.mu.Lock()
	wasConnected := s.state.Connected || s.active != nil
	s.detachLocked()
	s.state = State{}
	st := s.state
	s.mu.Unlock()

	if err := s.store.Clear(); err != nil {
		s.log.Error("session: clearing record: %v", err)
	}
	if wasConnected {
		s.notify(st)
	}
}

// Close releases listeners and waits for in-flight balance refreshes.
// Unlike Disconnect it keeps the persisted record, so the next startup
// can still reconnect silently.
func (s *Session) Close() {
	s.mu.Lock()
	s.detachLocked()
	s.mu.Unlock()
	s.refreshWG.Wait()
}

// TryAutoConnect attempts a silent reconnect from the persisted record.
// It issues only the non-prompting account-list query, never the access
// request, so revisiting the page cannot pop a wallet's UI. Every failure
// is swallowed: the user simply stays disconnected.
func (s *Session) TryAutoConnect(ctx context.Context) {
	rec, err := s.store.Load()
	if err != nil {
		if !beaconerr.Is(err, beaconerr.ErrSessionNotFound) {
			s.log.Debug("session: auto-reconnect: %v", err)
		}
		return
	}

	handle := s.res.Resolve(rec.WalletID)
	if handle == nil {
		s.log.Debug("session: auto-reconnect: %s no longer resolvable", rec.WalletID)
		return
	}

	rawAccounts, err := handle.Request(ctx, provider.MethodAccounts)
	if err != nil {
		s.log.Debug("session: auto-reconnect: account query: %v", err)
		return
	}
	accounts := toStringSlice(rawAccounts)
	if len(accounts) == 0 {
		s.log.Debug("session: auto-reconnect: no authorized accounts")
		return
	}
	address := accounts[0]

	chainID, err := s.fetchChainID(ctx, handle)
	if err != nil {
		s.log.Debug("session: auto-reconnect: chain query: %v", err)
		return
	}

	balance := s.fetchBalance(ctx, handle, address)
	name := s.detectProviderName(handle)

	s.mu.Lock()
	s.detachLocked()
	s.active = handle
	s.state = connectedState(address, chainID, balance, name)
	st := s.state
	s.mu.Unlock()

	s.attach(handle)
	s.notify(st)
	s.log.Debug("session: silently reconnected %s as %s", rec.WalletID, address)
}

// HandleProviderEvent implements provider.Listener for the change events
// of the active handle.
func (s *Session) HandleProviderEvent(event string, payload any) {
	switch event {
	case provider.EventAccountsChanged:
		s.onAccountsChanged(toStringSlice(payload))
	case provider.EventChainChanged:
		if hex, ok := payload.(string); ok {
			s.onChainChanged(hex)
		}
	}
}

// onAccountsChanged handles the wallet switching or revoking accounts.
// An empty list means access was revoked: full disconnect.
func (s *Session) onAccountsChanged(accounts []string) {
	if len(accounts) == 0 {
		s.Disconnect()
		return
	}

	address := accounts[0]

	s.mu.Lock()
	if !s.state.Connected {
		s.mu.Unlock()
		return
	}
	handle := s.active
	s.state.Address = address
	s.state.ShortAddress = chain.ShortenAddress(address)
	st := s.state
	s.mu.Unlock()

	s.notify(st)
	s.refreshBalanceAsync(handle, address)
}

// onChainChanged updates the chain projection and refreshes the balance.
// The stale balance stays visible until the refresh lands.
func (s *Session) onChainChanged(hex string) {
	id, err := chain.ParseID(hex)
	if err != nil {
		s.log.Debug("session: chainChanged with bad payload %q: %v", hex, err)
		return
	}

	s.mu.Lock()
	if !s.state.Connected {
		s.mu.Unlock()
		return
	}
	handle := s.active
	address := s.state.Address
	s.state.ChainID = id
	s.state.ChainName = chain.Name(id)
	st := s.state
	s.mu.Unlock()

	s.notify(st)
	if address != "" {
		s.refreshBalanceAsync(handle, address)
	}
}

// refreshBalanceAsync fetches the balance off the event path and folds it
// into the state once resolved.
func (s *Session) refreshBalanceAsync(handle provider.Handle, address string) {
	if handle == nil {
		return
	}
	s.refreshWG.Add(1)
	go func() {
		defer s.refreshWG.Done()
		balance := s.fetchBalance(context.Background(), handle, address)

		s.mu.Lock()
		if !s.state.Connected || !provider.Same(s.active, handle) {
			s.mu.Unlock()
			return
		}
		s.state.Balance = balance
		st := s.state
		s.mu.Unlock()

		s.notify(st)
	}()
}

// WaitRefresh blocks until in-flight balance refreshes settle.
func (s *Session) WaitRefresh() {
	s.refreshWG.Wait()
}

// fetchChainID queries and decodes the active chain id.
func (s *Session) fetchChainID(ctx context.Context, h provider.Handle) (int64, error) {
	raw, err := h.Request(ctx, provider.MethodChainID)
	if err != nil {
		return 0, err
	}
	hex, ok := raw.(string)
	if !ok {
		return 0, beaconerr.New("BAD_CHAIN_ID", "provider returned a non-string chain id")
	}
	return chain.ParseID(hex)
}

// fetchBalance queries the native balance. Failures are never fatal; a
// zero display value stands in until a later refresh succeeds.
func (s *Session) fetchBalance(ctx context.Context, h provider.Handle, address string) string {
	raw, err := h.Request(ctx, provider.MethodGetBalance, address, "latest")
	if err != nil {
		s.log.Debug("session: balance query for %s: %v", address, err)
		return "0.0000 ETH"
	}
	hex, ok := raw.(string)
	if !ok {
		return "0.0000 ETH"
	}
	wei, err := chain.ParseWei(hex)
	if err != nil {
		s.log.Debug("session: balance decode for %s: %v", address, err)
		return "0.0000 ETH"
	}
	return chain.FormatEther(wei) + " ETH"
}

// classifyRejection maps a failed access request onto the error taxonomy.
// A genuine user rejection takes seconds; one arriving under the
// threshold cannot be a human decision and is reported as a suspected
// hijack instead.
func (s *Session) classifyRejection(walletID string, err error, elapsed time.Duration) error {
	if provider.IsUserRejection(err) {
		if elapsed < s.threshold {
			s.log.Error("session: %s rejected in %s (< %s), suspected hijack", walletID, elapsed, s.threshold)
			return beaconerr.WithSuggestion(
				beaconerr.WithDetails(beaconerr.ErrSuspectedHijack, map[string]string{
					"wallet":  walletID,
					"elapsed": elapsed.String(),
				}),
				"disable the conflicting wallet extension in the browser and retry",
			)
		}
		return beaconerr.WithDetails(beaconerr.ErrUserRejected, map[string]string{"wallet": walletID})
	}
	return requestFailed(err, map[string]string{"wallet": walletID})
}

// notFoundError distinguishes "no wallet software at all" from "this
// specific wallet not found".
func (s *Session) notFoundError(walletID string) error {
	dirEmpty := s.res.Directory() == nil || s.res.Directory().Len() == 0
	if !s.res.Runtime().HasAnySoftware() && dirEmpty {
		return beaconerr.WithSuggestion(beaconerr.ErrNoWalletSoftware,
			"install a wallet extension and reload the page")
	}

	err := beaconerr.WithDetails(beaconerr.ErrWalletNotFound, map[string]string{"wallet": walletID})
	if desc, ok := identity.Describe(walletID); ok {
		err = beaconerr.WithSuggestion(err,
			"confirm the "+desc.Name+" extension is installed ("+desc.DownloadURL+") and reload the page")
	}
	return err
}

// detectProviderName reports which wallet family the handle actually
// belongs to, by reference identity against dedicated globals first and
// identity flags second. Connecting to MetaMask and seeing another name
// here is exactly the hijack symptom this subsystem exists to catch.
func (s *Session) detectProviderName(h provider.Handle) string {
	rt := s.res.Runtime()
	ev := identity.Examine(h)

	switch {
	case provider.Same(h, rt.Dedicated(identity.OKX)) || ev.Claimed(identity.OKX):
		return "OKX Wallet"
	case provider.Same(h, rt.Dedicated(identity.TokenPocket)) || ev.Claimed(identity.TokenPocket):
		return "TokenPocket"
	case provider.Same(h, rt.Dedicated(identity.Binance)) || ev.Claimed(identity.Binance):
		return "Binance Web3"
	case provider.Same(h, rt.Dedicated(identity.Trust)) || ev.Claimed(identity.Trust):
		return "Trust Wallet"
	case ev.Claimed(identity.Coinbase):
		return "Coinbase Wallet"
	case ev.Claimed(identity.ImToken):
		return "imToken"
	case ev.Claimed(identity.OneKey):
		return "OneKey"
	case ev.Claimed(identity.Huobi):
		return "Huobi Wallet"
	case ev.MetaMaskMarker || ev.Claimed(identity.MetaMask):
		return "MetaMask"
	default:
		return "Web3 Wallet"
	}
}

// attach registers the session for change events on the handle.
func (s *Session) attach(h provider.Handle) {
	h.On(provider.EventAccountsChanged, s)
	h.On(provider.EventChainChanged, s)
}

// detachLocked releases listeners on the active handle. Caller holds the
// lock.
func (s *Session) detachLocked() {
	if s.active == nil {
		return
	}
	s.active.RemoveListener(provider.EventAccountsChanged, s)
	s.active.RemoveListener(provider.EventChainChanged, s)
	s.active = nil
}

// notify delivers a state copy to every observer, outside the lock.
func (s *Session) notify(st State) {
	s.mu.Lock()
	fns := make([]func(State), 0, len(s.observers))
	for _, fn := range s.observers {
		fns = append(fns, fn)
	}
	s.mu.Unlock()

	for _, fn := range fns {
		fn(st)
	}
}

// requestFailed wraps a raw provider failure in the taxonomy.
func requestFailed(cause error, details map[string]string) error {
	e := *beaconerr.ErrRequestFailed
	if cause != nil {
		e.Message = e.Message + ": " + cause.Error()
		e.Cause = cause
	}
	e.Details = details
	return &e
}

// toStringSlice normalizes an account-list payload, which arrives either
// as []string or as []any of strings depending on the bridge.
func toStringSlice(v any) []string {
	switch vv := v.(type) {
	case []string:
		return vv
	case []any:
		out := make([]string, 0, len(vv))
		for _, item := range vv {
			if s, ok := item.(string); ok {
				out = append(out, s)
			}
		}
		return out
	default:
		return nil
	}
}
