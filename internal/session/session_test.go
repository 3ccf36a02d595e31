package session

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/chainlog/beacon/internal/fixture"
	"github.com/chainlog/beacon/internal/identity"
	"github.com/chainlog/beacon/internal/provider"
	"github.com/chainlog/beacon/internal/registry"
	"github.com/chainlog/beacon/internal/resolver"
	beaconerr "github.com/chainlog/beacon/pkg/errors"
)

const (
	testAddr    = "0x1234567890abcdef1234567890abcdef12345678"
	testAddr2   = "0xabcdefabcdefabcdefabcdefabcdefabcdefabcd"
	oneEtherHex = "0xde0b6b3a7640000"
	twoEtherHex = "0x1bc16d674ec80000"
)

// newMetaMaskHandle builds a scripted MetaMask provider with one account
// on mainnet holding one ether.
func newMetaMaskHandle() *fixture.FakeHandle {
	return fixture.NewFakeHandle().
		WithFlags(provider.Flags{IsMetaMask: true, MetaMaskMarker: true}).
		WithAccounts(testAddr).
		WithChainID("0x1").
		WithBalance(testAddr, oneEtherHex).
		WithBalance(testAddr2, twoEtherHex)
}

// newResolverWith builds a resolver whose directory announces the given
// handle under the given RDNS.
func newResolverWith(rdns, name string, h provider.Handle) *resolver.Resolver {
	bus := registry.NewMemoryBus()
	dir := registry.NewDirectory(bus, nil)
	dir.Init()
	bus.Announce(registry.Announcement{UUID: "uuid-" + rdns, Name: name, RDNS: rdns, Provider: h})
	return resolver.New(dir, provider.EmptyRuntime(), nil)
}

func TestConnectHappyPath(t *testing.T) {
	t.Parallel()

	mm := newMetaMaskHandle()
	store := NewMemoryStore()
	sess := New(newResolverWith("io.metamask", "MetaMask", mm), store, Options{})

	require.NoError(t, sess.Connect(context.Background(), identity.MetaMask))

	st := sess.State()
	assert.True(t, st.Connected)
	assert.Equal(t, testAddr, st.Address)
	assert.Equal(t, "0x1234...5678", st.ShortAddress)
	assert.Equal(t, int64(1), st.ChainID)
	assert.Equal(t, "Ethereum Mainnet", st.ChainName)
	assert.Equal(t, "1.0000 ETH", st.Balance)
	assert.Equal(t, "MetaMask", st.ProviderName)

	rec, err := store.Load()
	require.NoError(t, err)
	assert.Equal(t, &Record{WalletID: identity.MetaMask, Address: testAddr, ChainID: 1}, rec)

	assert.Equal(t, 1, mm.ListenerCount(provider.EventAccountsChanged))
	assert.Equal(t, 1, mm.ListenerCount(provider.EventChainChanged))
	assert.Same(t, provider.Handle(mm), sess.ActiveHandle())
}

func TestConnectRequestOrder(t *testing.T) {
	t.Parallel()

	mm := newMetaMaskHandle()
	sess := New(newResolverWith("io.metamask", "MetaMask", mm), NewMemoryStore(), Options{})

	require.NoError(t, sess.Connect(context.Background(), identity.MetaMask))

	calls := mm.Calls()
	require.Len(t, calls, 3)
	assert.Equal(t, provider.MethodRequestAccounts, calls[0])
	assert.Equal(t, provider.MethodChainID, calls[1])
	assert.Equal(t, provider.MethodGetBalance, calls[2])
}

func TestConnectUnknownWallet(t *testing.T) {
	t.Parallel()

	sess := New(resolver.New(nil, provider.EmptyRuntime(), nil), NewMemoryStore(), Options{})
	err := sess.Connect(context.Background(), "rainbow")
	assert.ErrorIs(t, err, beaconerr.ErrUnknownWallet)
}

func TestConnectNoWalletSoftware(t *testing.T) {
	t.Parallel()

	sess := New(resolver.New(nil, provider.EmptyRuntime(), nil), NewMemoryStore(), Options{})
	err := sess.Connect(context.Background(), identity.MetaMask)
	assert.ErrorIs(t, err, beaconerr.ErrNoWalletSoftware)
}

func TestConnectWalletNotFound(t *testing.T) {
	t.Parallel()

	// Another wallet is installed, just not the requested one.
	okx := fixture.NewFakeHandle().WithFlags(provider.Flags{IsOKX: true})
	rt := provider.NewRuntime(nil, map[string]provider.Handle{identity.OKX: okx})
	sess := New(resolver.New(nil, rt, nil), NewMemoryStore(), Options{})

	err := sess.Connect(context.Background(), identity.Trust)
	assert.ErrorIs(t, err, beaconerr.ErrWalletNotFound)

	var berr *beaconerr.BeaconError
	require.ErrorAs(t, err, &berr)
	assert.Contains(t, berr.Suggestion, "Trust Wallet")
}

func TestConnectSlowRejectionIsUserDecision(t *testing.T) {
	t.Parallel()

	clock := fixture.NewManualClock(time.Unix(1_700_000_000, 0))
	mm := newMetaMaskHandle().
		WithRejection(fixture.Rejection{Code: provider.CodeUserRejected, Delay: 4 * time.Second}).
		WithClockAdvance(clock.Advance)
	sess := New(newResolverWith("io.metamask", "MetaMask", mm), NewMemoryStore(), Options{Clock: clock.Now})

	err := sess.Connect(context.Background(), identity.MetaMask)
	assert.ErrorIs(t, err, beaconerr.ErrUserRejected)
	assert.False(t, sess.State().Connected)
}

func TestConnectFastRejectionIsSuspectedHijack(t *testing.T) {
	t.Parallel()

	clock := fixture.NewManualClock(time.Unix(1_700_000_000, 0))
	mm := newMetaMaskHandle().
		WithRejection(fixture.Rejection{Code: provider.CodeUserRejected, Delay: 40 * time.Millisecond}).
		WithClockAdvance(clock.Advance)
	sess := New(newResolverWith("io.metamask", "MetaMask", mm), NewMemoryStore(), Options{Clock: clock.Now})

	err := sess.Connect(context.Background(), identity.MetaMask)
	assert.ErrorIs(t, err, beaconerr.ErrSuspectedHijack)
}

func TestConnectThresholdBoundary(t *testing.T) {
	t.Parallel()

	// Exactly at the threshold counts as a plausible human rejection.
	clock := fixture.NewManualClock(time.Unix(1_700_000_000, 0))
	mm := newMetaMaskHandle().
		WithRejection(fixture.Rejection{Code: provider.CodeUserRejected, Delay: DefaultHijackThreshold}).
		WithClockAdvance(clock.Advance)
	sess := New(newResolverWith("io.metamask", "MetaMask", mm), NewMemoryStore(), Options{Clock: clock.Now})

	err := sess.Connect(context.Background(), identity.MetaMask)
	assert.ErrorIs(t, err, beaconerr.ErrUserRejected)
}

func TestConnectCustomThreshold(t *testing.T) {
	t.Parallel()

	clock := fixture.NewManualClock(time.Unix(1_700_000_000, 0))
	mm := newMetaMaskHandle().
		WithRejection(fixture.Rejection{Code: provider.CodeUserRejected, Delay: 2 * time.Second}).
		WithClockAdvance(clock.Advance)
	sess := New(newResolverWith("io.metamask", "MetaMask", mm), NewMemoryStore(), Options{
		Clock:           clock.Now,
		HijackThreshold: 3 * time.Second,
	})

	err := sess.Connect(context.Background(), identity.MetaMask)
	assert.ErrorIs(t, err, beaconerr.ErrSuspectedHijack)
}

func TestConnectNonRejectionFailure(t *testing.T) {
	t.Parallel()

	mm := newMetaMaskHandle().
		WithRejection(fixture.Rejection{Code: provider.CodeUnauthorized, Message: "locked"})
	sess := New(newResolverWith("io.metamask", "MetaMask", mm), NewMemoryStore(), Options{})

	err := sess.Connect(context.Background(), identity.MetaMask)
	assert.ErrorIs(t, err, beaconerr.ErrRequestFailed)
	assert.NotErrorIs(t, err, beaconerr.ErrUserRejected)
}

func TestConnectBusy(t *testing.T) {
	t.Parallel()

	clock := fixture.NewManualClock(time.Unix(1_700_000_000, 0))
	var busyErr error
	mm := newMetaMaskHandle().
		WithRejection(fixture.Rejection{Code: provider.CodeUserRejected, Delay: 4 * time.Second})
	sess := New(newResolverWith("io.metamask", "MetaMask", mm), NewMemoryStore(), Options{Clock: clock.Now})

	// Re-enter Connect while the first attempt is waiting on the wallet.
	mm.WithClockAdvance(func(d time.Duration) {
		clock.Advance(d)
		busyErr = sess.Connect(context.Background(), identity.MetaMask)
	})

	err := sess.Connect(context.Background(), identity.MetaMask)
	assert.ErrorIs(t, err, beaconerr.ErrUserRejected)
	assert.ErrorIs(t, busyErr, beaconerr.ErrConnectBusy)

	busy, _ := sess.Busy()
	assert.False(t, busy, "busy flag released after the attempt settles")
}

func TestConnectBalanceFailureIsNotFatal(t *testing.T) {
	t.Parallel()

	// No balance scripted for the account: the fake returns 0x0, and a
	// connect still succeeds with a zero display value.
	mm := fixture.NewFakeHandle().
		WithFlags(provider.Flags{IsMetaMask: true, MetaMaskMarker: true}).
		WithAccounts(testAddr).
		WithChainID("0x89")
	sess := New(newResolverWith("io.metamask", "MetaMask", mm), NewMemoryStore(), Options{})

	require.NoError(t, sess.Connect(context.Background(), identity.MetaMask))
	st := sess.State()
	assert.Equal(t, "0.0000 ETH", st.Balance)
	assert.Equal(t, "Polygon", st.ChainName)
}

func TestProviderNameBackDetection(t *testing.T) {
	t.Parallel()

	t.Run("dedicated trust global", func(t *testing.T) {
		t.Parallel()
		trust := fixture.NewFakeHandle().
			WithFlags(provider.Flags{IsTrust: true}).
			WithAccounts(testAddr).
			WithChainID("0x1")
		rt := provider.NewRuntime(nil, map[string]provider.Handle{identity.Trust: trust})
		sess := New(resolver.New(nil, rt, nil), NewMemoryStore(), Options{})

		require.NoError(t, sess.Connect(context.Background(), identity.Trust))
		assert.Equal(t, "Trust Wallet", sess.State().ProviderName)
	})

	t.Run("flagless announced handle falls back to generic name", func(t *testing.T) {
		t.Parallel()
		anon := fixture.NewFakeHandle().
			WithAccounts(testAddr).
			WithChainID("0x1")
		sess := New(newResolverWith("com.trustwallet.app", "Trust Wallet", anon), NewMemoryStore(), Options{})

		require.NoError(t, sess.Connect(context.Background(), identity.Trust))
		assert.Equal(t, "Web3 Wallet", sess.State().ProviderName)
	})
}

func TestDisconnect(t *testing.T) {
	t.Parallel()

	mm := newMetaMaskHandle()
	store := NewMemoryStore()
	sess := New(newResolverWith("io.metamask", "MetaMask", mm), store, Options{})
	require.NoError(t, sess.Connect(context.Background(), identity.MetaMask))

	sess.Disconnect()

	assert.Equal(t, State{}, sess.State())
	assert.Nil(t, sess.ActiveHandle())
	assert.Equal(t, 0, mm.ListenerCount(provider.EventAccountsChanged))
	assert.Equal(t, 0, mm.ListenerCount(provider.EventChainChanged))

	_, err := store.Load()
	assert.ErrorIs(t, err, beaconerr.ErrSessionNotFound)

	// Idempotent.
	sess.Disconnect()
	assert.Equal(t, State{}, sess.State())
}

func TestAccountsChangedSwitchesAddress(t *testing.T) {
	t.Parallel()

	mm := newMetaMaskHandle()
	sess := New(newResolverWith("io.metamask", "MetaMask", mm), NewMemoryStore(), Options{})
	require.NoError(t, sess.Connect(context.Background(), identity.MetaMask))

	mm.Emit(provider.EventAccountsChanged, []string{testAddr2})
	sess.WaitRefresh()

	st := sess.State()
	assert.True(t, st.Connected)
	assert.Equal(t, testAddr2, st.Address)
	assert.Equal(t, "0xabcd...abcd", st.ShortAddress)
	assert.Equal(t, "2.0000 ETH", st.Balance, "balance refreshed for the new account")
}

func TestAccountsChangedEmptyDisconnects(t *testing.T) {
	t.Parallel()

	mm := newMetaMaskHandle()
	store := NewMemoryStore()
	sess := New(newResolverWith("io.metamask", "MetaMask", mm), store, Options{})
	require.NoError(t, sess.Connect(context.Background(), identity.MetaMask))

	mm.Emit(provider.EventAccountsChanged, []string{})

	assert.False(t, sess.State().Connected)
	_, err := store.Load()
	assert.ErrorIs(t, err, beaconerr.ErrSessionNotFound, "revoked access erases the record")
}

func TestChainChangedUpdatesProjection(t *testing.T) {
	t.Parallel()

	mm := newMetaMaskHandle()
	sess := New(newResolverWith("io.metamask", "MetaMask", mm), NewMemoryStore(), Options{})
	require.NoError(t, sess.Connect(context.Background(), identity.MetaMask))

	mm.Emit(provider.EventChainChanged, "0x38")
	sess.WaitRefresh()

	st := sess.State()
	assert.Equal(t, int64(56), st.ChainID)
	assert.Equal(t, "BNB Smart Chain", st.ChainName)
}

func TestChainChangedBadPayloadIgnored(t *testing.T) {
	t.Parallel()

	mm := newMetaMaskHandle()
	sess := New(newResolverWith("io.metamask", "MetaMask", mm), NewMemoryStore(), Options{})
	require.NoError(t, sess.Connect(context.Background(), identity.MetaMask))

	mm.Emit(provider.EventChainChanged, "not-a-chain")
	mm.Emit(provider.EventChainChanged, 42)

	assert.Equal(t, int64(1), sess.State().ChainID)
}

func TestEventsIgnoredWhenDisconnected(t *testing.T) {
	t.Parallel()

	mm := newMetaMaskHandle()
	sess := New(newResolverWith("io.metamask", "MetaMask", mm), NewMemoryStore(), Options{})

	// Never connected: stray events must not fabricate state.
	sess.HandleProviderEvent(provider.EventAccountsChanged, []string{testAddr})
	sess.HandleProviderEvent(provider.EventChainChanged, "0x38")

	assert.Equal(t, State{}, sess.State())
}

func TestSubscribeObservesTransitions(t *testing.T) {
	t.Parallel()

	mm := newMetaMaskHandle()
	sess := New(newResolverWith("io.metamask", "MetaMask", mm), NewMemoryStore(), Options{})

	var seen []State
	cancel := sess.Subscribe(func(st State) { seen = append(seen, st) })

	require.NoError(t, sess.Connect(context.Background(), identity.MetaMask))
	sess.Disconnect()

	require.Len(t, seen, 2)
	assert.True(t, seen[0].Connected)
	assert.False(t, seen[1].Connected)

	cancel()
	require.NoError(t, sess.Connect(context.Background(), identity.MetaMask))
	assert.Len(t, seen, 2, "canceled observer receives nothing")
}

func TestTryAutoConnectSilentSuccess(t *testing.T) {
	t.Parallel()

	mm := newMetaMaskHandle().WithAuthorized()
	store := NewMemoryStore()
	require.NoError(t, store.Save(&Record{WalletID: identity.MetaMask, Address: testAddr, ChainID: 1}))
	sess := New(newResolverWith("io.metamask", "MetaMask", mm), store, Options{})

	sess.TryAutoConnect(context.Background())

	st := sess.State()
	assert.True(t, st.Connected)
	assert.Equal(t, testAddr, st.Address)
	assert.Equal(t, "1.0000 ETH", st.Balance)

	assert.NotContains(t, mm.Calls(), provider.MethodRequestAccounts,
		"silent reconnect must never prompt")
	assert.Contains(t, mm.Calls(), provider.MethodAccounts)
}

func TestTryAutoConnectWithoutRecord(t *testing.T) {
	t.Parallel()

	mm := newMetaMaskHandle().WithAuthorized()
	sess := New(newResolverWith("io.metamask", "MetaMask", mm), NewMemoryStore(), Options{})

	sess.TryAutoConnect(context.Background())

	assert.False(t, sess.State().Connected)
	assert.Empty(t, mm.Calls(), "no record, no provider traffic")
}

func TestTryAutoConnectUnresolvableWallet(t *testing.T) {
	t.Parallel()

	store := NewMemoryStore()
	require.NoError(t, store.Save(&Record{WalletID: identity.Trust, Address: testAddr, ChainID: 1}))
	sess := New(resolver.New(nil, provider.EmptyRuntime(), nil), store, Options{})

	// The wallet was uninstalled since the record was written. Stay
	// disconnected without surfacing an error.
	sess.TryAutoConnect(context.Background())
	assert.False(t, sess.State().Connected)
}

func TestTryAutoConnectAuthorizationRevoked(t *testing.T) {
	t.Parallel()

	mm := newMetaMaskHandle() // not authorized: eth_accounts returns empty
	store := NewMemoryStore()
	require.NoError(t, store.Save(&Record{WalletID: identity.MetaMask, Address: testAddr, ChainID: 1}))
	sess := New(newResolverWith("io.metamask", "MetaMask", mm), store, Options{})

	sess.TryAutoConnect(context.Background())
	assert.False(t, sess.State().Connected)
}

func TestCloseKeepsRecord(t *testing.T) {
	t.Parallel()

	mm := newMetaMaskHandle()
	store := NewMemoryStore()
	sess := New(newResolverWith("io.metamask", "MetaMask", mm), store, Options{})
	require.NoError(t, sess.Connect(context.Background(), identity.MetaMask))

	sess.Close()

	assert.Equal(t, 0, mm.ListenerCount(provider.EventAccountsChanged))
	_, err := store.Load()
	assert.NoError(t, err, "disposal keeps the record for the next startup")
}
