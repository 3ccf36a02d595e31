package resolver

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/chainlog/beacon/internal/fixture"
	"github.com/chainlog/beacon/internal/identity"
	"github.com/chainlog/beacon/internal/provider"
	"github.com/chainlog/beacon/internal/registry"
)

// newDirectory builds an initialized directory pre-loaded with the given
// announcements.
func newDirectory(anns ...registry.Announcement) *registry.Directory {
	bus := registry.NewMemoryBus()
	dir := registry.NewDirectory(bus, nil)
	dir.Init()
	for _, a := range anns {
		bus.Announce(a)
	}
	return dir
}

func announce(rdns, name string, h provider.Handle) registry.Announcement {
	return registry.Announcement{UUID: "uuid-" + rdns, Name: name, RDNS: rdns, Provider: h}
}

func TestResolveViaDirectory(t *testing.T) {
	t.Parallel()

	t.Run("announcement matched by rdns", func(t *testing.T) {
		t.Parallel()
		mm := fixture.NewFakeHandle().WithFlags(provider.Flags{IsMetaMask: true, MetaMaskMarker: true})
		dir := newDirectory(announce("io.metamask", "MetaMask", mm))
		r := New(dir, provider.EmptyRuntime(), nil)

		assert.Same(t, mm, r.Resolve(identity.MetaMask))
	})

	t.Run("unmapped rdns matched by announced name", func(t *testing.T) {
		t.Parallel()
		mm := fixture.NewFakeHandle().WithFlags(provider.Flags{IsMetaMask: true, MetaMaskMarker: true})
		dir := newDirectory(announce("org.example.forked", "MetaMask Fork", mm))
		r := New(dir, provider.EmptyRuntime(), nil)

		assert.Same(t, mm, r.Resolve(identity.MetaMask))
	})

	t.Run("directory wins over dedicated global", func(t *testing.T) {
		t.Parallel()
		announced := fixture.NewFakeHandle().WithFlags(provider.Flags{IsTokenPocket: true})
		global := fixture.NewFakeHandle().WithFlags(provider.Flags{IsTokenPocket: true})
		dir := newDirectory(announce("pro.tokenpocket", "TokenPocket", announced))
		rt := provider.NewRuntime(nil, map[string]provider.Handle{identity.TokenPocket: global})
		r := New(dir, rt, nil)

		assert.Same(t, announced, r.Resolve(identity.TokenPocket))
	})

	t.Run("announcement pointing at the aggressive global is rejected", func(t *testing.T) {
		t.Parallel()
		// OKX forges a MetaMask announcement that reuses its own handle.
		planted := fixture.NewFakeHandle().WithFlags(provider.Flags{IsMetaMask: true})
		dir := newDirectory(announce("io.metamask", "MetaMask", planted))
		rt := provider.NewRuntime(nil, map[string]provider.Handle{identity.OKX: planted})
		r := New(dir, rt, nil)

		assert.Nil(t, r.Resolve(identity.MetaMask))
	})

	t.Run("aggressive family's own announcement is trusted", func(t *testing.T) {
		t.Parallel()
		okx := fixture.NewFakeHandle().WithFlags(provider.Flags{IsOKX: true})
		dir := newDirectory(announce("com.okx.wallet", "OKX Wallet", okx))
		r := New(dir, provider.EmptyRuntime(), nil)

		assert.Same(t, okx, r.Resolve(identity.OKX))
	})
}

func TestResolveViaDedicatedGlobal(t *testing.T) {
	t.Parallel()

	t.Run("dedicated global resolves without announcements", func(t *testing.T) {
		t.Parallel()
		tp := fixture.NewFakeHandle().WithFlags(provider.Flags{IsTokenPocket: true})
		rt := provider.NewRuntime(nil, map[string]provider.Handle{identity.TokenPocket: tp})
		r := New(nil, rt, nil)

		assert.Same(t, tp, r.Resolve(identity.TokenPocket))
	})

	t.Run("aggressive dedicated global is accepted unconditionally", func(t *testing.T) {
		t.Parallel()
		okx := fixture.NewFakeHandle()
		rt := provider.NewRuntime(nil, map[string]provider.Handle{identity.OKX: okx})
		r := New(nil, rt, nil)

		assert.Same(t, okx, r.Resolve(identity.OKX))
	})
}

func TestResolveViaProvidersArray(t *testing.T) {
	t.Parallel()

	t.Run("genuine entry found among forged ones", func(t *testing.T) {
		t.Parallel()
		// OKX registered itself into the array forging MetaMask's primary
		// flag; the genuine MetaMask entry carries the internal marker.
		okx := fixture.NewFakeHandle().WithFlags(provider.Flags{IsMetaMask: true, IsOKX: true})
		forged := fixture.NewFakeHandle().WithFlags(provider.Flags{IsMetaMask: true})
		genuine := fixture.NewFakeHandle().WithFlags(provider.Flags{IsMetaMask: true, MetaMaskMarker: true})
		shared := fixture.NewFakeHandle().
			WithFlags(provider.Flags{IsMetaMask: true, IsOKX: true}).
			WithSubProviders(okx, forged, genuine)
		rt := provider.NewRuntime(shared, map[string]provider.Handle{identity.OKX: okx})
		r := New(nil, rt, nil)

		assert.Same(t, genuine, r.Resolve(identity.MetaMask))
	})

	t.Run("marker-less claim alone does not resolve metamask", func(t *testing.T) {
		t.Parallel()
		forged := fixture.NewFakeHandle().WithFlags(provider.Flags{IsMetaMask: true})
		shared := fixture.NewFakeHandle().
			WithFlags(provider.Flags{IsOKX: true}).
			WithSubProviders(forged)
		rt := provider.NewRuntime(shared, nil)
		r := New(nil, rt, nil)

		assert.Nil(t, r.Resolve(identity.MetaMask))
	})

	t.Run("array entry referencing the aggressive global is skipped", func(t *testing.T) {
		t.Parallel()
		planted := fixture.NewFakeHandle().WithFlags(provider.Flags{IsBinance: true})
		shared := fixture.NewFakeHandle().WithSubProviders(planted)
		rt := provider.NewRuntime(shared, map[string]provider.Handle{identity.OKX: planted})
		r := New(nil, rt, nil)

		assert.Nil(t, r.Resolve(identity.Binance))
	})

	t.Run("non-metamask wallets need only their flag", func(t *testing.T) {
		t.Parallel()
		trust := fixture.NewFakeHandle().WithFlags(provider.Flags{IsTrust: true})
		shared := fixture.NewFakeHandle().WithSubProviders(trust)
		rt := provider.NewRuntime(shared, nil)
		r := New(nil, rt, nil)

		assert.Same(t, trust, r.Resolve(identity.Trust))
	})
}

func TestResolveViaSharedGlobal(t *testing.T) {
	t.Parallel()

	t.Run("honest shared global resolves its claimed wallet", func(t *testing.T) {
		t.Parallel()
		shared := fixture.NewFakeHandle().WithFlags(provider.Flags{IsMetaMask: true, MetaMaskMarker: true})
		r := New(nil, provider.NewRuntime(shared, nil), nil)

		assert.Same(t, shared, r.Resolve(identity.MetaMask))
	})

	t.Run("shared global is blocked while the aggressive family is present", func(t *testing.T) {
		t.Parallel()
		shared := fixture.NewFakeHandle().WithFlags(provider.Flags{IsMetaMask: true, MetaMaskMarker: true})
		okx := fixture.NewFakeHandle().WithFlags(provider.Flags{IsOKX: true})
		rt := provider.NewRuntime(shared, map[string]provider.Handle{identity.OKX: okx})
		r := New(nil, rt, nil)

		assert.Nil(t, r.Resolve(identity.MetaMask), "no fallback to an untrusted slot")
	})

	t.Run("metamask claim alongside tokenpocket claim is rejected", func(t *testing.T) {
		t.Parallel()
		// TokenPocket wears the forged MetaMask flag on the shared slot.
		shared := fixture.NewFakeHandle().WithFlags(provider.Flags{IsMetaMask: true, IsTokenPocket: true})
		r := New(nil, provider.NewRuntime(shared, nil), nil)

		assert.Nil(t, r.Resolve(identity.MetaMask))
		assert.Same(t, shared, r.Resolve(identity.TokenPocket))
	})

	t.Run("aggressive self-claim on the shared slot is trusted", func(t *testing.T) {
		t.Parallel()
		shared := fixture.NewFakeHandle().WithFlags(provider.Flags{IsOKX: true, IsMetaMask: true})
		r := New(nil, provider.NewRuntime(shared, nil), nil)

		assert.Same(t, shared, r.Resolve(identity.OKX))
		assert.Nil(t, r.Resolve(identity.MetaMask))
	})
}

func TestResolveHardwareBridge(t *testing.T) {
	t.Parallel()

	t.Run("ledger resolves through the announced metamask", func(t *testing.T) {
		t.Parallel()
		mm := fixture.NewFakeHandle().WithFlags(provider.Flags{IsMetaMask: true, MetaMaskMarker: true})
		dir := newDirectory(announce("io.metamask", "MetaMask", mm))
		r := New(dir, provider.EmptyRuntime(), nil)

		assert.Same(t, mm, r.Resolve(identity.Ledger))
		assert.Same(t, mm, r.Resolve(identity.Trezor))
	})

	t.Run("bridge never uses the guarded shared-global tier", func(t *testing.T) {
		t.Parallel()
		shared := fixture.NewFakeHandle().WithFlags(provider.Flags{IsMetaMask: true, MetaMaskMarker: true})
		r := New(nil, provider.NewRuntime(shared, nil), nil)

		// Direct metamask still resolves from the honest shared slot,
		// but the bridge path stops at the stronger tiers.
		assert.Same(t, shared, r.Resolve(identity.MetaMask))
		assert.Nil(t, r.Resolve(identity.Ledger))
	})

	t.Run("no bridge software means no hardware resolve", func(t *testing.T) {
		t.Parallel()
		r := New(nil, provider.EmptyRuntime(), nil)
		assert.Nil(t, r.Resolve(identity.Ledger))
	})
}

func TestResolveAbsence(t *testing.T) {
	t.Parallel()

	t.Run("empty environment resolves nothing", func(t *testing.T) {
		t.Parallel()
		r := New(nil, provider.EmptyRuntime(), nil)
		for _, desc := range identity.Catalog() {
			assert.Nil(t, r.Resolve(desc.ID), desc.ID)
		}
	})

	t.Run("unknown wallet id resolves to nil", func(t *testing.T) {
		t.Parallel()
		shared := fixture.NewFakeHandle().WithFlags(provider.Flags{IsMetaMask: true})
		r := New(nil, provider.NewRuntime(shared, nil), nil)
		assert.Nil(t, r.Resolve("rainbow"))
	})
}

func TestDetect(t *testing.T) {
	t.Parallel()

	mm := fixture.NewFakeHandle().WithFlags(provider.Flags{IsMetaMask: true, MetaMaskMarker: true})
	dir := newDirectory(announce("io.metamask", "MetaMask", mm))
	r := New(dir, provider.EmptyRuntime(), nil)

	t.Run("agrees with resolve for software wallets", func(t *testing.T) {
		t.Parallel()
		assert.True(t, r.Detect(identity.MetaMask))
		assert.False(t, r.Detect(identity.OKX))
	})

	t.Run("hardware ids always report false", func(t *testing.T) {
		t.Parallel()
		require.NotNil(t, r.Resolve(identity.Ledger), "bridge is resolvable")
		assert.False(t, r.Detect(identity.Ledger))
		assert.False(t, r.Detect(identity.Trezor))
	})
}

func TestWallets(t *testing.T) {
	t.Parallel()

	mm := fixture.NewFakeHandle().WithFlags(provider.Flags{IsMetaMask: true, MetaMaskMarker: true})
	a := announce("io.metamask", "MetaMask", mm)
	a.Icon = "data:image/png;base64,AAAA"
	dir := newDirectory(a)
	r := New(dir, provider.EmptyRuntime(), nil)

	wallets := r.Wallets()
	require.Len(t, wallets, len(identity.Catalog()))

	byID := make(map[string]WalletStatus, len(wallets))
	for _, ws := range wallets {
		byID[ws.ID] = ws
	}

	assert.True(t, byID[identity.MetaMask].Detected)
	assert.Equal(t, "data:image/png;base64,AAAA", byID[identity.MetaMask].Icon)
	assert.False(t, byID[identity.OKX].Detected)
	assert.False(t, byID[identity.Ledger].Detected, "hardware never shows as browser-detected")
	assert.Empty(t, byID[identity.OKX].Icon)
}

func TestDiagnose(t *testing.T) {
	t.Parallel()

	okx := fixture.NewFakeHandle().WithFlags(provider.Flags{IsOKX: true})
	shared := fixture.NewFakeHandle().
		WithFlags(provider.Flags{IsMetaMask: true, IsOKX: true}).
		WithSubProviders(okx)
	mm := fixture.NewFakeHandle().WithFlags(provider.Flags{IsMetaMask: true, MetaMaskMarker: true})
	dir := newDirectory(announce("io.metamask", "MetaMask", mm))
	rt := provider.NewRuntime(shared, map[string]provider.Handle{identity.OKX: okx})
	r := New(dir, rt, nil)

	d := r.Diagnose()

	assert.True(t, d.SharedInjected)
	require.NotNil(t, d.SharedFlags)
	assert.True(t, d.SharedFlags.IsOKX)
	assert.True(t, d.HijackPresent)
	assert.Equal(t, []string{identity.OKX}, d.DedicatedGlobals)

	require.Len(t, d.ProvidersArray, 1)
	assert.True(t, d.ProvidersArray[0].IsAggrDediRef)

	require.Len(t, d.Announcements, 1)
	assert.Equal(t, identity.MetaMask, d.Announcements[0].MappedWallet)
	assert.False(t, d.Announcements[0].Hijacked)
	assert.False(t, d.Announcements[0].SameAsShared)
}
