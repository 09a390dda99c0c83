package daemon

import (
	"fmt"
	"strings"

	"procctl/internal/config"
	"procctl/internal/control"
	"procctl/internal/notify"
	"procctl/internal/registry"
	"procctl/internal/source"
)

// Core bundles the in-process components the daemon serves.
type Core struct {
	Controller *control.Controller
	Events     *notify.Notifier
}

// NewCore wires a listing source, registry, notifier and controller from cfg.
func NewCore(cfg config.Config) (*Core, error) {
	kind, err := source.ParseKind(cfg.Source)
	if err != nil {
		return nil, err
	}
	lister, err := source.New(kind, cfg.Exclude)
	if err != nil {
		return nil, err
	}
	killer, err := newKiller(cfg)
	if err != nil {
		return nil, err
	}

	events := notify.New()
	ctrl := control.New(
		registry.New(lister),
		killer,
		control.ExecLauncher{},
		events,
		control.Options{Timeout: cfg.ControlTimeout, ListTimeout: cfg.ListTimeout},
	)
	return &Core{Controller: ctrl, Events: events}, nil
}

func newKiller(cfg config.Config) (control.Killer, error) {
	switch strings.ToLower(cfg.Killer) {
	case "native":
		return control.NativeKiller{}, nil
	case "", "command":
		cmd := control.DefaultKillCommand()
		if len(cfg.KillCommand) > 0 {
			parsed, err := control.ParseKillCommand(cfg.KillCommand)
			if err != nil {
				return nil, err
			}
			cmd = parsed
		}
		return control.NewCommandKiller(cmd, nil), nil
	default:
		return nil, fmt.Errorf("unknown killer %q", cfg.Killer)
	}
}
