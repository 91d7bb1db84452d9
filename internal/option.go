package internal

// Option configures the editing server before Run starts it.
type Option func(*application)

// application carries the resolved runtime configuration for Run.
type application struct {
	config *Config
}

// WithConfig supplies the loaded configuration. Run refuses to start
// without one.
func WithConfig(cfg *Config) Option {
	return func(a *application) {
		a.config = cfg
	}
}
