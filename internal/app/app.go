package app

// Options configures the client facade.
type Options struct {
	// ConfigPath is handed to a daemon started in-process by StartDaemon.
	// Empty means defaults plus PROCCTL_* environment overrides.
	ConfigPath string
}

// App is the client side of procctl. Each call dials the daemon socket, runs
// one RPC, and turns status errors back into *control.Error values.
type App struct {
	cfgPath string
}

func New(opts Options) *App {
	return &App{cfgPath: opts.ConfigPath}
}
