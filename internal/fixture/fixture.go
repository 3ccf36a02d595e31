package fixture

import (
	"os"
	"time"

	"github.com/google/uuid"
	"gopkg.in/yaml.v3"

	"github.com/chainlog/beacon/internal/config"
	"github.com/chainlog/beacon/internal/identity"
	"github.com/chainlog/beacon/internal/provider"
	"github.com/chainlog/beacon/internal/registry"
	beaconerr "github.com/chainlog/beacon/pkg/errors"
)

// Spec is the YAML shape of an environment fixture. Handles are declared
// once under a fixture-local name and referenced by that name from the
// shared slot, dedicated globals, providers arrays, and announcements.
type Spec struct {
	Handles map[string]HandleSpec `yaml:"handles"`

	// Shared names the handle occupying the shared injection slot.
	Shared string `yaml:"shared"`

	// Dedicated maps wallet ids to the handles behind their dedicated
	// globals.
	Dedicated map[string]string `yaml:"dedicated"`

	Announcements []AnnouncementSpec `yaml:"announcements"`
}

// HandleSpec describes one fake provider handle.
type HandleSpec struct {
	Flags      FlagsSpec         `yaml:"flags"`
	Providers  []string          `yaml:"providers"`
	Accounts   []string          `yaml:"accounts"`
	Authorized bool              `yaml:"authorized"`
	ChainID    string            `yaml:"chain_id"`
	Balances   map[string]string `yaml:"balances"`
	Reject     *RejectSpec       `yaml:"reject"`
}

// FlagsSpec mirrors the identity-flag surface.
type FlagsSpec struct {
	IsMetaMask     bool `yaml:"is_metamask"`
	MetaMaskMarker bool `yaml:"metamask_marker"`
	IsTokenPocket  bool `yaml:"is_tokenpocket"`
	IsOKX          bool `yaml:"is_okx"`
	IsBinance      bool `yaml:"is_binance"`
	IsTrust        bool `yaml:"is_trust"`
	IsCoinbase     bool `yaml:"is_coinbase"`
	IsImToken      bool `yaml:"is_imtoken"`
	IsOneKey       bool `yaml:"is_onekey"`
	IsHuobi        bool `yaml:"is_huobi"`
}

// RejectSpec scripts the access request to fail.
type RejectSpec struct {
	Code    int    `yaml:"code"`
	Message string `yaml:"message"`
	DelayMS int    `yaml:"delay_ms"`
}

// AnnouncementSpec describes one discovery announcement.
type AnnouncementSpec struct {
	UUID   string `yaml:"uuid"`
	Name   string `yaml:"name"`
	Icon   string `yaml:"icon"`
	RDNS   string `yaml:"rdns"`
	Handle string `yaml:"handle"`
}

// Environment is an assembled fixture: the fake handles by name, the
// runtime snapshot they occupy, and a live directory already populated
// through a discovery round on the in-process bus.
type Environment struct {
	Handles   map[string]*FakeHandle
	Runtime   *provider.Runtime
	Bus       *registry.MemoryBus
	Directory *registry.Directory
}

// Close disposes the directory subscription.
func (e *Environment) Close() {
	if e.Directory != nil {
		e.Directory.Dispose()
	}
}

// Load reads and assembles a fixture file.
func Load(path string, log *config.Logger) (*Environment, error) {
	// #nosec G304 -- fixture path is an explicit operator argument
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, beaconerr.Wrap(err, "reading fixture %s", path)
	}
	return Parse(data, log)
}

// Parse assembles a fixture from YAML bytes.
func Parse(data []byte, log *config.Logger) (*Environment, error) {
	var spec Spec
	if err := yaml.Unmarshal(data, &spec); err != nil {
		return nil, beaconerr.WithDetails(beaconerr.ErrFixtureInvalid,
			map[string]string{"error": err.Error()})
	}
	return Build(spec, log)
}

// Build assembles a fixture from a decoded spec. Handles are built in two
// passes so providers arrays can reference handles declared later.
func Build(spec Spec, log *config.Logger) (*Environment, error) {
	handles := make(map[string]*FakeHandle, len(spec.Handles))
	for name := range spec.Handles {
		handles[name] = NewFakeHandle()
	}

	for name, hs := range spec.Handles {
		h := handles[name]
		h.WithFlags(provider.Flags{
			IsMetaMask:     hs.Flags.IsMetaMask,
			MetaMaskMarker: hs.Flags.MetaMaskMarker,
			IsTokenPocket:  hs.Flags.IsTokenPocket,
			IsOKX:          hs.Flags.IsOKX,
			IsBinance:      hs.Flags.IsBinance,
			IsTrust:        hs.Flags.IsTrust,
			IsCoinbase:     hs.Flags.IsCoinbase,
			IsImToken:      hs.Flags.IsImToken,
			IsOneKey:       hs.Flags.IsOneKey,
			IsHuobi:        hs.Flags.IsHuobi,
		})
		h.WithAccounts(hs.Accounts...)
		if hs.Authorized {
			h.WithAuthorized()
		}
		if hs.ChainID != "" {
			h.WithChainID(hs.ChainID)
		}
		for address, wei := range hs.Balances {
			h.WithBalance(address, wei)
		}
		if hs.Reject != nil {
			h.WithRejection(Rejection{
				Code:    hs.Reject.Code,
				Message: hs.Reject.Message,
				Delay:   time.Duration(hs.Reject.DelayMS) * time.Millisecond,
			})
		}
		if len(hs.Providers) > 0 {
			subs := make([]provider.Handle, 0, len(hs.Providers))
			for _, ref := range hs.Providers {
				sub, ok := handles[ref]
				if !ok {
					return nil, unknownHandle(name, ref)
				}
				subs = append(subs, sub)
			}
			h.WithSubProviders(subs...)
		}
	}

	var shared provider.Handle
	if spec.Shared != "" {
		h, ok := handles[spec.Shared]
		if !ok {
			return nil, unknownHandle("shared", spec.Shared)
		}
		shared = h
	}

	dedicated := make(map[string]provider.Handle, len(spec.Dedicated))
	for walletID, ref := range spec.Dedicated {
		if !identity.Known(walletID) {
			return nil, beaconerr.WithDetails(beaconerr.ErrFixtureInvalid,
				map[string]string{"dedicated": walletID, "error": "unknown wallet id"})
		}
		h, ok := handles[ref]
		if !ok {
			return nil, unknownHandle("dedicated."+walletID, ref)
		}
		dedicated[walletID] = h
	}

	env := &Environment{
		Handles: handles,
		Runtime: provider.NewRuntime(shared, dedicated),
		Bus:     registry.NewMemoryBus(),
	}

	// Wallet side: each announcement re-broadcasts on every discovery
	// request, the way extensions answer the request event.
	for _, as := range spec.Announcements {
		h, ok := handles[as.Handle]
		if !ok {
			return nil, unknownHandle("announcements."+as.RDNS, as.Handle)
		}
		a := registry.Announcement{
			UUID:     as.UUID,
			Name:     as.Name,
			Icon:     as.Icon,
			RDNS:     as.RDNS,
			Provider: h,
		}
		if a.UUID == "" {
			a.UUID = uuid.NewString()
		}
		env.Bus.OnRequest(func() { env.Bus.Announce(a) })
	}

	env.Directory = registry.NewDirectory(env.Bus, log)
	env.Directory.Init()
	return env, nil
}

func unknownHandle(where, ref string) error {
	return beaconerr.WithDetails(beaconerr.ErrFixtureInvalid,
		map[string]string{"at": where, "error": "references undeclared handle " + ref})
}
