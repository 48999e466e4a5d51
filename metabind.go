package metabind

import (
	"context"
	"log/slog"

	"github.com/aretw0/metabind/internal/platform"
	"github.com/aretw0/metabind/pkg/core"
	"github.com/aretw0/metabind/pkg/render"
	"github.com/aretw0/metabind/pkg/schema"
)

// --- Types ---

// Site is an opened site: registry, storage, binder and renderer.
type Site = platform.Site

// Scope addresses a post and one block placement on it.
type Scope = core.Scope

// Adapter names accepted by WithAdapter.
const (
	AdapterFS     = platform.AdapterFS
	AdapterSQLite = platform.AdapterSQLite
	AdapterMemory = platform.AdapterMemory
)

// --- Configuration ---

// Option defines a functional option for configuring a site.
type Option = platform.Option

// WithAutoInit creates the site directory (and git repository when versioned) if missing.
func WithAutoInit(auto bool) Option {
	return platform.WithAutoInit(auto)
}

// WithVersioning enables or disables git revisions for the fs adapter.
func WithVersioning(enabled bool) Option {
	return platform.WithVersioning(enabled)
}

// WithForceTemp forces the use of a temporary directory (useful for testing).
func WithForceTemp(force bool) Option {
	return platform.WithForceTemp(force)
}

// WithMustExist ensures the site directory must already exist.
func WithMustExist(must bool) Option {
	return platform.WithMustExist(must)
}

// WithLogger sets the logger used by every component.
func WithLogger(logger *slog.Logger) Option {
	return platform.WithLogger(logger)
}

// WithStore injects a custom storage backend.
func WithStore(store core.Store) Option {
	return platform.WithStore(store)
}

// WithAdapter selects the storage backend by name.
func WithAdapter(name string) Option {
	return platform.WithAdapter(name)
}

// WithRegistry replaces the built-in block definitions.
func WithRegistry(reg *schema.Registry) Option {
	return platform.WithRegistry(reg)
}

// WithSchemaFile registers the block definitions of a YAML file.
func WithSchemaFile(path string) Option {
	return platform.WithSchemaFile(path)
}

// WithTitle sets the title used when a block has no title field value.
func WithTitle(fn render.TitleFunc) Option {
	return platform.WithTitle(fn)
}

// WithSystemDir sets the hidden directory name (default ".metabind").
func WithSystemDir(name string) Option {
	return platform.WithSystemDir(name)
}

// WithEventBuffer sets the size of the change event buffer.
func WithEventBuffer(size int) Option {
	return platform.WithEventBuffer(size)
}

// WithReadOnly rejects every write.
func WithReadOnly(enabled bool) Option {
	return platform.WithReadOnly(enabled)
}

// WithDevSafety toggles the temporary sandbox used under `go run` and `go test`.
func WithDevSafety(enabled bool) Option {
	return platform.WithDevSafety(enabled)
}

// --- Factory ---

// New opens a site.
func New(uri string, opts ...Option) (*Site, error) {
	return platform.New(uri, opts...)
}

// Init opens the storage backend alone.
func Init(uri string, opts ...Option) (core.Store, error) {
	return platform.Init(uri, opts...)
}

// --- Safety & Utils ---

// ResolveSitePath determines the actual path for the site based on safety rules.
func ResolveSitePath(userPath string, forceTemp bool) string {
	return platform.ResolveSitePath(userPath, forceTemp)
}

// IsDevRun checks if the current process is running via `go run` or `go test`.
func IsDevRun() bool {
	return platform.IsDevRun()
}

// FindSiteRoot recursively looks upwards for a site root indicator.
func FindSiteRoot(startDir string) (string, error) {
	return platform.FindRoot(startDir)
}

// --- Revision messages ---

const (
	ChangePlace  = platform.ChangePlace
	ChangeRemove = platform.ChangeRemove
	ChangeEdit   = platform.ChangeEdit
	ChangeImport = platform.ChangeImport
)

// FormatChangeReason builds a revision message for versioned sites.
func FormatChangeReason(kind, postID, subject, body string) string {
	return platform.FormatChangeReason(kind, postID, subject, body)
}

// AppendFooter appends the metabind footer to a free-form message.
func AppendFooter(msg string) string {
	return platform.AppendFooter(msg)
}

// WithChangeReason attaches a revision message to ctx.
func WithChangeReason(ctx context.Context, msg string) context.Context {
	return platform.WithChangeReason(ctx, msg)
}
