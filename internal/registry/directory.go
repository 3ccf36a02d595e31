package registry

import (
	"sync"

	"golang.org/x/time/rate"

	"github.com/chainlog/beacon/internal/config"
)

// Re-broadcast limiter defaults. Opening the wallet picker re-emits the
// discovery request to catch late-initializing extensions; the limiter
// keeps a picker being toggled rapidly from flooding the bus.
const (
	DefaultRefreshPerSecond = 1
	DefaultRefreshBurst     = 3
)

// Directory collects wallet announcements, keyed by RDNS. At most one
// live entry exists per RDNS; a later announcement for the same identity
// replaces the earlier one, because extensions re-announce after late
// initialization. No Directory operation blocks or fails.
type Directory struct {
	mu          sync.RWMutex
	entries     map[string]Announcement
	order       []string // RDNS values in first-seen order

	bus         Bus
	unsubscribe func()
	initialized bool

	limiter *rate.Limiter
	log     *config.Logger
}

// NewDirectory creates a directory bound to the given bus. Call Init to
// start listening; the constructor performs no I/O so tests can assemble
// isolated registries.
func NewDirectory(bus Bus, log *config.Logger) *Directory {
	if log == nil {
		log = config.NullLogger()
	}
	return &Directory{
		entries: make(map[string]Announcement),
		bus:     bus,
		limiter: rate.NewLimiter(rate.Limit(DefaultRefreshPerSecond), DefaultRefreshBurst),
		log:     log,
	}
}

// SetRefreshLimit replaces the re-broadcast limiter with the configured
// rate. Non-positive values keep the corresponding default, so a partial
// discovery config section cannot disable refresh outright.
func (d *Directory) SetRefreshLimit(perSecond float64, burst int) {
	if perSecond <= 0 {
		perSecond = DefaultRefreshPerSecond
	}
	if burst <= 0 {
		burst = DefaultRefreshBurst
	}

	d.mu.Lock()
	d.limiter = rate.NewLimiter(rate.Limit(perSecond), burst)
	d.mu.Unlock()
}

// Init subscribes to the bus and emits the initial discovery request.
// Idempotent: only the first call has any effect. Wallets may announce
// before, during, or after the request; all paths land in upsert.
func (d *Directory) Init() {
	d.mu.Lock()
	if d.initialized || d.bus == nil {
		d.mu.Unlock()
		return
	}
	d.initialized = true
	d.mu.Unlock()

	d.unsubscribe = d.bus.Subscribe(d.upsert)
	d.bus.Request()
}

// Dispose releases the bus subscription and clears collected entries.
func (d *Directory) Dispose() {
	d.mu.Lock()
	unsub := d.unsubscribe
	d.unsubscribe = nil
	d.initialized = false
	d.entries = make(map[string]Announcement)
	d.order = nil
	d.mu.Unlock()

	if unsub != nil {
		unsub()
	}
}

// Refresh re-emits the discovery request, rate limited. Called whenever
// the wallet picker opens, because extensions can initialize after first
// page load.
func (d *Directory) Refresh() {
	d.mu.RLock()
	ready := d.initialized
	limiter := d.limiter
	d.mu.RUnlock()
	if !ready {
		return
	}

	if !limiter.Allow() {
		d.log.Debug("registry: refresh suppressed by rate limit")
		return
	}
	d.bus.Request()
}

// Lookup returns the live announcement for an RDNS.
func (d *Directory) Lookup(rdns string) (Announcement, bool) {
	d.mu.RLock()
	defer d.mu.RUnlock()

	a, ok := d.entries[rdns]
	return a, ok
}

// Snapshot returns the live announcements in first-seen order.
func (d *Directory) Snapshot() []Announcement {
	d.mu.RLock()
	defer d.mu.RUnlock()

	out := make([]Announcement, 0, len(d.order))
	for _, rdns := range d.order {
		out = append(out, d.entries[rdns])
	}
	return out
}

// Len returns the number of live entries.
func (d *Directory) Len() int {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return len(d.entries)
}

// upsert records an announcement, last write wins per RDNS. The entry is
// replaced wholesale under the lock so a concurrent reader never sees a
// partially written announcement.
func (d *Directory) upsert(a Announcement) {
	if !a.Valid() {
		d.log.Debug("registry: discarding malformed announcement (name=%q)", a.Name)
		return
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	if _, seen := d.entries[a.RDNS]; !seen {
		d.order = append(d.order, a.RDNS)
	}
	d.entries[a.RDNS] = a
	d.log.Debug("registry: announced %s (rdns=%s)", a.Name, a.RDNS)
}
