package internal

// Option is a functional option for configuring the application.
type Option func(*application)

type application struct {
	config *Config
	userID int64
}

// WithConfig sets the application configuration.
func WithConfig(cfg *Config) Option {
	return func(a *application) {
		a.config = cfg
	}
}

// WithUserID sets the user the MCP server acts as. Zero falls back to the
// configured development user.
func WithUserID(id int64) Option {
	return func(a *application) {
		a.userID = id
	}
}

func newApplication(opts []Option) (*application, error) {
	app := &application{}
	for _, opt := range opts {
		opt(app)
	}
	if app.config == nil {
		return nil, errConfigRequired
	}
	return app, nil
}
