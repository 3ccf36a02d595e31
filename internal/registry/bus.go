// Package registry implements the provider discovery directory: a
// page-session registry of wallet announcements delivered over a
// two-message broadcast protocol (request from the page, announce from
// each installed wallet).
package registry

import (
	"sync"

	"github.com/chainlog/beacon/internal/provider"
)

// Announcement is one wallet's self-advertisement. The RDNS string is the
// identity anchor; the handle is a borrowed reference to the announcing
// wallet's provider object.
type Announcement struct {
	UUID     string
	Name     string
	Icon     string
	RDNS     string
	Provider provider.Handle
}

// Valid reports whether the announcement carries the mandatory RDNS.
// Announcements without one are silently discarded by the directory.
func (a Announcement) Valid() bool {
	return a.RDNS != "" && a.Provider != nil
}

// Bus is the broadcast channel between the page and installed wallets.
// Subscribe and OnRequest return cancel functions releasing the
// subscription; both may be called before any wallet has attached.
type Bus interface {
	// Announce broadcasts a wallet's announcement to page-side listeners.
	Announce(a Announcement)

	// Subscribe attaches a page-side listener for announcements.
	Subscribe(fn func(Announcement)) (cancel func())

	// Request broadcasts the page's discovery request; wallets respond by
	// re-announcing.
	Request()

	// OnRequest attaches a wallet-side listener for discovery requests.
	OnRequest(fn func()) (cancel func())
}

// MemoryBus is the in-process Bus used by the embedder glue, the CLI
// fixture harness, and tests. Delivery is synchronous: a broadcast
// returns after every listener ran, so a reader never observes a
// half-delivered announcement.
type MemoryBus struct {
	mu          sync.Mutex
	nextID      int
	subscribers map[int]func(Announcement)
	requesters  map[int]func()
}

// NewMemoryBus creates an empty in-process bus.
func NewMemoryBus() *MemoryBus {
	return &MemoryBus{
		subscribers: make(map[int]func(Announcement)),
		requesters:  make(map[int]func()),
	}
}

// Announce delivers the announcement to all current subscribers.
func (b *MemoryBus) Announce(a Announcement) {
	for _, fn := range b.snapshotSubscribers() {
		fn(a)
	}
}

// Subscribe attaches an announcement listener.
func (b *MemoryBus) Subscribe(fn func(Announcement)) (cancel func()) {
	b.mu.Lock()
	id := b.nextID
	b.nextID++
	b.subscribers[id] = fn
	b.mu.Unlock()

	return func() {
		b.mu.Lock()
		delete(b.subscribers, id)
		b.mu.Unlock()
	}
}

// Request delivers the discovery request to all wallet-side listeners.
func (b *MemoryBus) Request() {
	b.mu.Lock()
	fns := make([]func(), 0, len(b.requesters))
	for _, fn := range b.requesters {
		fns = append(fns, fn)
	}
	b.mu.Unlock()

	for _, fn := range fns {
		fn()
	}
}

// OnRequest attaches a discovery-request listener.
func (b *MemoryBus) OnRequest(fn func()) (cancel func()) {
	b.mu.Lock()
	id := b.nextID
	b.nextID++
	b.requesters[id] = fn
	b.mu.Unlock()

	return func() {
		b.mu.Lock()
		delete(b.requesters, id)
		b.mu.Unlock()
	}
}

func (b *MemoryBus) snapshotSubscribers() []func(Announcement) {
	b.mu.Lock()
	defer b.mu.Unlock()

	fns := make([]func(Announcement), 0, len(b.subscribers))
	for _, fn := range b.subscribers {
		fns = append(fns, fn)
	}
	return fns
}
