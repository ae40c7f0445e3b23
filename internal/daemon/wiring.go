package daemon

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"

	"farmd/config"
	"farmd/internal/bootstrap"
	"farmd/internal/device/camera"
	"farmd/internal/device/firstboot"
	"farmd/internal/device/gpiomon"
	"farmd/internal/device/leds"
	"farmd/internal/device/updater"
	"farmd/internal/netwatch"
	"farmd/internal/recovery"
	"farmd/internal/settings"
	"farmd/internal/supervisor"
	"farmd/internal/support/buildinfo"
	"farmd/internal/telemetry"
	"farmd/internal/timesync"
)

type app struct {
	tree          *supervisor.Tree
	store         *settings.Store
	traceShutdown func(context.Context) error
}

func (a *app) close() {
	if a.traceShutdown != nil {
		if err := a.traceShutdown(context.Background()); err != nil {
			slog.Warn("trace provider shutdown failed", "err", err)
		}
	}
	if err := a.store.Close(); err != nil {
		slog.Warn("settings store close failed", "err", err)
	}
}

// wire assembles the supervision tree from the device configuration.
// Construction failures here are fatal: a device that cannot open its
// settings store or reach rtnetlink has nothing useful to supervise.
func wire(cfg config.Device) (*app, error) {
	provider, shutdown := telemetry.NewProvider()
	tracer := telemetry.Tracer(provider)
	a := &app{traceShutdown: shutdown}

	store, err := settings.Open(filepath.Join(cfg.DataRoot, "settings.db"))
	if err != nil {
		a.close()
		return nil, fmt.Errorf("open settings store: %w", err)
	}
	a.store = store
	dispatcher := settings.NewDispatcher()
	store.Notify(dispatcher)

	syncer := timesync.New(timesync.WithPool(cfg.NTPPool))

	watchers, err := buildWatchers(cfg, syncer)
	if err != nil {
		a.close()
		return nil, err
	}

	tree := &supervisor.Tree{Tracer: tracer}
	tree.PreAuth = append(tree.PreAuth, ledDriver(cfg, tree, watchers))
	for _, w := range watchers {
		tree.PreAuth = append(tree.PreAuth, w)
	}
	if len(cfg.Camera.Command) > 0 {
		tree.PreAuth = append(tree.PreAuth, &camera.Capture{
			Pipeline: camera.ExecPipeline{Command: cfg.Camera.Command},
		})
	}

	tree.Init = initStrategies(cfg, store)

	tree.PostAuth = append(tree.PostAuth, &bootstrap.Bootstrap{
		Credentials: credentialStore{store: store},
		Authorizer:  &bootstrap.HTTPAuthorizer{},
		Recovery:    recovery.New(cfg.DataRoot, store),
		Group: &supervisor.AuthGroup{
			Build: func(bootstrap.Token) []supervisor.Subsystem {
				return authenticatedSubsystems(cfg, dispatcher)
			},
		},
	})

	a.tree = tree
	return a, nil
}

func buildWatchers(cfg config.Device, syncer *timesync.NTP) ([]*netwatch.Watcher, error) {
	if len(cfg.Interfaces) == 0 {
		return nil, nil
	}
	platform, err := netwatch.NewPlatform()
	if err != nil {
		return nil, fmt.Errorf("interface registry: %w", err)
	}

	watchers := make([]*netwatch.Watcher, 0, len(cfg.Interfaces))
	for _, iface := range cfg.Interfaces {
		watchers = append(watchers, netwatch.New(netwatch.Config{
			Interface: iface.Name,
			Options: netwatch.Options{
				DHCP:    iface.Mode == "dhcp",
				Address: iface.Prefix(),
			},
			ProbeHost:  cfg.ProbeHost,
			Registry:   platform,
			Configurer: platform,
			Resolver:   netwatch.StdResolver{},
			TimeSync:   syncer,
		}))
	}
	return watchers, nil
}

// initStrategies builds one first-boot configurator per configured
// identity; an unconfigured device still gets the default one so the
// factory seeds always land.
func initStrategies(cfg config.Device, store *settings.Store) []supervisor.Subsystem {
	seeds := firstboot.Seeds{
		Email:    cfg.FirstBoot.Email,
		Password: cfg.FirstBoot.Password,
		Server:   cfg.FirstBoot.Server,
	}
	identities := cfg.Init
	if len(identities) == 0 {
		identities = []string{""}
	}

	subs := make([]supervisor.Subsystem, 0, len(identities))
	for _, identity := range identities {
		subs = append(subs, &firstboot.Configurator{Identity: identity, Store: store, Seeds: seeds})
	}
	return subs
}

func authenticatedSubsystems(cfg config.Device, dispatcher *settings.Dispatcher) []supervisor.Subsystem {
	var subs []supervisor.Subsystem
	if cfg.UpdateURL != "" {
		subs = append(subs, &updater.Checker{
			Endpoint: cfg.UpdateURL,
			Version:  buildinfo.Version,
			Interval: cfg.UpdateInterval.Std(),
		})
	}
	if len(cfg.GPIOPins) > 0 {
		subs = append(subs, &gpiomon.Monitor{
			Pins:   cfg.GPIOPins,
			Reader: gpiomon.SysfsReader{},
			Events: dispatcher,
		})
	}
	return subs
}

// ledDriver mirrors tree and connectivity state onto the chassis LEDs.
func ledDriver(cfg config.Device, tree *supervisor.Tree, watchers []*netwatch.Watcher) *leds.Driver {
	return &leds.Driver{
		Power:   exportPin(cfg.LEDs.Power),
		Network: exportPin(cfg.LEDs.Network),
		Fault:   exportPin(cfg.LEDs.Fault),
		Source: func() leds.Status {
			switch tree.Phase() {
			case supervisor.BootRestarting:
				return leds.StatusFault
			case supervisor.BootRunning:
				for _, w := range watchers {
					if w.State().Connected {
						return leds.StatusOnline
					}
				}
				return leds.StatusBooting
			default:
				return leds.StatusBooting
			}
		},
	}
}

func exportPin(number int) leds.Pin {
	if number < 0 {
		return nil
	}
	pin := leds.SysfsPin{Number: number}
	if err := pin.Export(); err != nil {
		slog.Warn("gpio export failed, indicator disabled", "pin", number, "err", err)
		return nil
	}
	return pin
}

// credentialStore adapts the settings store to the bootstrap
// credential fields.
type credentialStore struct {
	store *settings.Store
}

func (c credentialStore) Get(ctx context.Context, field string) (string, bool, error) {
	key, ok := map[string]string{
		bootstrap.FieldEmail:    settings.KeyAuthEmail,
		bootstrap.FieldPassword: settings.KeyAuthPassword,
		bootstrap.FieldServer:   settings.KeyAuthServer,
	}[field]
	if !ok {
		return "", false, fmt.Errorf("unknown credential field %q", field)
	}
	return c.store.Get(ctx, key)
}
