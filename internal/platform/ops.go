package platform

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/aretw0/metabind/pkg/adapters/fs"
	"github.com/aretw0/metabind/pkg/adapters/memory"
	"github.com/aretw0/metabind/pkg/adapters/sqlite"
	"github.com/aretw0/metabind/pkg/core"
)

// Init opens (and prepares) the storage backend for a site.
// The uri is adapter-specific: a directory for "fs", a database file for
// "sqlite" and ignored for "memory".
func Init(uri string, opts ...Option) (core.Store, error) {
	return initStore(uri, parseOptions(opts))
}

func initStore(uri string, o *options) (core.Store, error) {
	if o.store != nil {
		return o.store, nil
	}

	var store core.Store
	switch o.adapter {
	case AdapterFS:
		store = initFS(uri, o)
	case AdapterSQLite:
		store = initSQLite(uri, o)
	case AdapterMemory:
		if o.bool("read_only") {
			store = memory.NewReadOnly()
		} else {
			store = memory.New()
		}
	default:
		return nil, fmt.Errorf("unknown adapter: %s", o.adapter)
	}

	if err := store.Initialize(context.Background()); err != nil {
		return nil, err
	}
	return store, nil
}

// resolvePath applies the dev sandbox to a user supplied path.
func resolvePath(path string, o *options) (string, bool) {
	readOnly := o.bool("read_only")
	devSafety := true
	if v, ok := o.config["dev_safety"].(bool); ok {
		devSafety = v
	}
	bypass := readOnly || !devSafety

	useTemp := o.bool("temp_dir") || (IsDevRun() && !bypass)
	resolved := ResolveSitePath(path, useTemp)

	if IsDevRun() {
		switch {
		case bypass && readOnly:
			o.logger.Debug("running in READ-ONLY mode (bypassing dev sandbox)", "path", resolved)
		case bypass:
			o.logger.Warn("running in UNSAFE mode (bypassing dev sandbox)", "path", resolved)
		default:
			o.logger.Debug("running in SAFE mode (dev sandbox enabled)", "path", resolved)
		}
	}
	if useTemp && resolved != path {
		o.logger.Warn("site redirected to sandbox", "original_path", path, "resolved_path", resolved)
	}
	return resolved, useTemp
}

func initFS(path string, o *options) *fs.Store {
	resolved, useTemp := resolvePath(path, o)

	autoInit := o.bool("auto_init")
	systemDir, _ := o.config["system_dir"].(string)
	errorHandler, _ := o.config["watcher_error_handler"].(func(error))

	versioned, set := o.config["versioned"].(bool)
	if !set {
		_, err := os.Stat(filepath.Join(resolved, ".git"))
		versioned = err == nil
		if versioned {
			o.logger.Debug("auto-detected versioned site", "reason", ".git present")
		}
	}

	return fs.NewStore(fs.Config{
		Path:         resolved,
		AutoInit:     autoInit,
		Versioned:    versioned,
		MustExist:    o.bool("must_exist") || (!autoInit && !useTemp),
		ReadOnly:     o.bool("read_only"),
		Logger:       o.logger,
		SystemDir:    systemDir,
		ErrorHandler: errorHandler,
	})
}

func initSQLite(path string, o *options) *sqlite.Store {
	if path != sqlite.MemoryPath {
		if path == "" {
			path = "metabind.db"
		}
		resolved, _ := resolvePath(path, o)
		if filepath.Ext(resolved) == "" {
			resolved = filepath.Join(resolved, "metabind.db")
		}
		path = resolved
	}
	return sqlite.New(sqlite.Config{
		Path:     path,
		ReadOnly: o.bool("read_only"),
		Logger:   o.logger,
	})
}
