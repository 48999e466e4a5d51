package platform

import (
	"log/slog"

	"github.com/aretw0/metabind/pkg/core"
	"github.com/aretw0/metabind/pkg/render"
	"github.com/aretw0/metabind/pkg/schema"
)

// Adapter names accepted by WithAdapter.
const (
	AdapterFS     = "fs"
	AdapterSQLite = "sqlite"
	AdapterMemory = "memory"
)

// options holds the internal configuration for a site.
type options struct {
	store       core.Store
	registry    *schema.Registry
	schemaFiles []string
	title       render.TitleFunc
	logger      *slog.Logger
	adapter     string
	config      map[string]interface{}
}

// Option defines a functional option for configuring a site.
type Option func(*options)

func defaultOptions() *options {
	return &options{
		adapter: AdapterFS,
		config:  make(map[string]interface{}),
	}
}

func parseOptions(opts []Option) *options {
	o := defaultOptions()
	for _, opt := range opts {
		opt(o)
	}
	if o.logger == nil {
		o.logger = slog.New(slog.DiscardHandler)
	}
	return o
}

// WithLogger sets the logger shared by every component.
func WithLogger(logger *slog.Logger) Option {
	return func(o *options) {
		o.logger = logger
	}
}

// WithStore injects a storage backend. Adapter selection is skipped.
func WithStore(store core.Store) Option {
	return func(o *options) {
		o.store = store
	}
}

// WithAdapter selects the storage backend by name: "fs" (default), "sqlite" or "memory".
func WithAdapter(name string) Option {
	return func(o *options) {
		o.adapter = name
	}
}

// WithRegistry uses reg instead of the built-in block definitions.
// The registry is sealed when the site is created.
func WithRegistry(reg *schema.Registry) Option {
	return func(o *options) {
		o.registry = reg
	}
}

// WithSchemaFile loads extra block definitions from a YAML file.
func WithSchemaFile(path string) Option {
	return func(o *options) {
		o.schemaFiles = append(o.schemaFiles, path)
	}
}

// WithTitle sets where list blocks take their fallback title from.
func WithTitle(fn render.TitleFunc) Option {
	return func(o *options) {
		o.title = fn
	}
}

// WithAutoInit creates the site directory (and git repository when versioned).
func WithAutoInit(auto bool) Option {
	return func(o *options) {
		o.config["auto_init"] = auto
	}
}

// WithVersioning commits every write of the fs backend to git.
// When unset, versioning follows whether the site is already a git repository.
func WithVersioning(enabled bool) Option {
	return func(o *options) {
		o.config["versioned"] = enabled
	}
}

// WithForceTemp forces the site into a temporary directory.
func WithForceTemp(force bool) Option {
	return func(o *options) {
		o.config["temp_dir"] = force
	}
}

// WithMustExist requires the site directory to exist already.
func WithMustExist(must bool) Option {
	return func(o *options) {
		o.config["must_exist"] = must
	}
}

// WithSystemDir sets the hidden directory holding the instance index.
func WithSystemDir(name string) Option {
	return func(o *options) {
		o.config["system_dir"] = name
	}
}

// WithEventBuffer sets the buffer of watch channels. Zero means 100.
func WithEventBuffer(size int) Option {
	return func(o *options) {
		o.config["event_buffer"] = size
	}
}

// WithWatcherErrorHandler receives errors raised inside the watch loop,
// which are otherwise only logged.
func WithWatcherErrorHandler(fn func(error)) Option {
	return func(o *options) {
		o.config["watcher_error_handler"] = fn
	}
}

// WithReadOnly rejects every write with core.ErrReadOnly.
// Read-only sites skip directory creation and bypass the dev sandbox.
func WithReadOnly(enabled bool) Option {
	return func(o *options) {
		o.config["read_only"] = enabled
	}
}

// WithDevSafety controls the sandbox used under `go run` and `go test`.
// By default the site is redirected into a temporary directory.
//
// CAUTION: only disable this if you are sure your code is safe.
func WithDevSafety(enabled bool) Option {
	return func(o *options) {
		o.config["dev_safety"] = enabled
	}
}

func (o *options) bool(key string) bool {
	v, _ := o.config[key].(bool)
	return v
}
