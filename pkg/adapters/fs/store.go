// Package fs stores posts as Markdown documents on disk: YAML frontmatter for
// post meta and block comments for placements and their attributes.
//
//	<root>/posts/<post id>.md
//	<root>/<system dir>/index.json
//
// When versioning is enabled the root is a git repository and every write is
// committed as one revision.
package fs

import (
	"context"
	"errors"
	"fmt"
	iofs "io/fs"
	"log/slog"
	"maps"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/aretw0/metabind/pkg/core"
	"github.com/aretw0/metabind/pkg/git"
)

const (
	postsDir         = "posts"
	postExt          = ".md"
	DefaultSystemDir = ".metabind"
)

// Config holds the configuration for the file store.
type Config struct {
	Path         string
	AutoInit     bool // create the directory and, when Versioned, the git repository
	Versioned    bool // commit every write
	MustExist    bool
	ReadOnly     bool
	Logger       *slog.Logger
	SystemDir    string // index location, e.g. ".metabind"
	ErrorHandler func(error)
}

// Store implements core.Store on the filesystem.
type Store struct {
	Path   string
	config Config
	git    *git.Client
	cache  *cache

	// mu serializes read-modify-write cycles on post documents in this process.
	mu sync.RWMutex

	stateMu       sync.RWMutex
	watcherActive bool
	lastReconcile *time.Time
}

// NewStore creates a file store. Call Initialize before use.
func NewStore(config Config) *Store {
	if config.SystemDir == "" {
		config.SystemDir = DefaultSystemDir
	}
	if config.Logger == nil {
		config.Logger = slog.New(slog.DiscardHandler)
	}
	return &Store{
		Path:   config.Path,
		config: config,
		git:    git.NewClient(config.Path, config.SystemDir+".lock", config.Logger),
		cache:  newCache(config.Path, config.SystemDir),
	}
}

// Initialize prepares the directory (and repository) and rebuilds the
// instance index from the documents on disk.
func (s *Store) Initialize(ctx context.Context) error {
	if s.config.MustExist {
		info, err := os.Stat(s.Path)
		if os.IsNotExist(err) {
			return fmt.Errorf("site path does not exist: %s", s.Path)
		}
		if err != nil {
			return err
		}
		if !info.IsDir() {
			return fmt.Errorf("site path is not a directory: %s", s.Path)
		}
	} else if !s.config.ReadOnly {
		if err := os.MkdirAll(filepath.Join(s.Path, postsDir), 0o755); err != nil {
			return fmt.Errorf("failed to create site directory: %w", err)
		}
	}

	if s.config.Versioned && !s.config.ReadOnly {
		if err := s.initRepo(); err != nil {
			return err
		}
	}

	if err := s.cache.Load(); err != nil {
		return err
	}
	if _, err := s.Reconcile(ctx); err != nil {
		return fmt.Errorf("failed to index posts: %w", err)
	}
	return nil
}

func (s *Store) initRepo() error {
	if !git.IsInstalled() {
		return errors.New("git is not installed")
	}

	fresh := false
	if !s.git.IsRepo() {
		if !s.config.AutoInit {
			return fmt.Errorf("path is not a git repository: %s", s.Path)
		}
		if err := s.git.Init(); err != nil {
			return fmt.Errorf("failed to git init: %w", err)
		}
		fresh = true
	}
	if err := s.git.EnsureIdentity("metabind", "metabind@localhost"); err != nil {
		return fmt.Errorf("failed to configure git identity: %w", err)
	}

	changed, err := s.ensureIgnore()
	if err != nil {
		return fmt.Errorf("failed to ensure .gitignore: %w", err)
	}
	if changed && fresh {
		if err := s.git.Add(".gitignore"); err != nil {
			return fmt.Errorf("failed to add .gitignore: %w", err)
		}
		if err := s.git.Commit(fmt.Sprintf("chore: configure %s ignore", s.config.SystemDir)); err != nil {
			return fmt.Errorf("failed to commit .gitignore: %w", err)
		}
	}
	return nil
}

// ensureIgnore keeps the system directory and lock file out of revisions.
func (s *Store) ensureIgnore() (bool, error) {
	path := filepath.Join(s.Path, ".gitignore")
	content, err := os.ReadFile(path)
	if err != nil && !os.IsNotExist(err) {
		return false, err
	}

	have := make(map[string]bool)
	for _, line := range strings.Split(string(content), "\n") {
		have[strings.TrimSpace(line)] = true
	}

	var missing []string
	for _, entry := range []string{s.config.SystemDir + "/", s.config.SystemDir + ".lock"} {
		if !have[entry] {
			missing = append(missing, entry)
		}
	}
	if len(missing) == 0 {
		return false, nil
	}

	out := string(content)
	if out != "" && !strings.HasSuffix(out, "\n") {
		out += "\n"
	}
	out += strings.Join(missing, "\n") + "\n"
	return true, os.WriteFile(path, []byte(out), 0o644)
}

// Close persists the instance index.
func (s *Store) Close() error {
	if s.config.ReadOnly {
		return nil
	}
	return s.cache.Save()
}

// --- paths ---

func checkPostID(id string) error {
	if id == "" || id == "." || id == ".." || strings.ContainsAny(id, `/\`) || strings.HasPrefix(id, ".") {
		return fmt.Errorf("%w: bad post ID %q", core.ErrInvalidScope, id)
	}
	return nil
}

func relPath(postID string) string {
	return postsDir + "/" + postID + postExt
}

func (s *Store) fullPath(postID string) string {
	return filepath.Join(s.Path, postsDir, postID+postExt)
}

// --- documents ---

func (s *Store) readPost(postID string) (*post, error) {
	f, err := os.Open(s.fullPath(postID))
	if os.IsNotExist(err) {
		return &post{ID: postID, Meta: make(core.Metadata)}, nil
	}
	if err != nil {
		return nil, err
	}
	defer f.Close()

	p, err := parsePost(f, postID)
	if err != nil {
		return nil, fmt.Errorf("failed to parse post %s: %w", postID, err)
	}
	return p, nil
}

// writePost replaces the post document, refreshes the index and commits when versioned.
func (s *Store) writePost(ctx context.Context, p *post, msg string) error {
	data, err := serializePost(p)
	if err != nil {
		return fmt.Errorf("failed to serialize post %s: %w", p.ID, err)
	}
	full := s.fullPath(p.ID)
	if err := writeFileAtomic(full, data, 0o644); err != nil {
		return err
	}

	info, err := os.Stat(full)
	if err != nil {
		return err
	}
	s.cache.Set(relPath(p.ID), &indexEntry{PostID: p.ID, Instances: p.instanceIDs(), LastModified: info.ModTime()})

	if s.config.Versioned {
		if reason, ok := ctx.Value(core.ChangeReasonKey).(string); ok && reason != "" {
			msg = reason
		}
		return s.commit(relPath(p.ID), msg)
	}
	return nil
}

func (s *Store) commit(rel, msg string) error {
	unlock, err := s.git.Lock()
	if err != nil {
		return fmt.Errorf("failed to acquire git lock: %w", err)
	}
	defer unlock()

	if err := s.git.Add(rel); err != nil {
		return fmt.Errorf("failed to git add: %w", err)
	}
	status, err := s.git.Status(rel)
	if err != nil {
		return err
	}
	if status == "" {
		return nil
	}
	if err := s.git.Commit(msg); err != nil {
		return fmt.Errorf("failed to git commit: %w", err)
	}
	return nil
}

// update runs fn on the current document of postID and writes the result.
func (s *Store) update(ctx context.Context, postID, msg string, fn func(p *post) error) error {
	if s.config.ReadOnly {
		return core.ErrReadOnly
	}
	if err := checkPostID(postID); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	p, err := s.readPost(postID)
	if err != nil {
		return err
	}
	if err := fn(p); err != nil {
		return err
	}

	prev, err := s.snapshot(postID)
	if err != nil {
		return err
	}
	if err := s.writePost(ctx, p, msg); err != nil {
		if rerr := s.restore(prev); rerr != nil {
			return errors.Join(err, fmt.Errorf("failed to restore post %s: %w", postID, rerr))
		}
		return err
	}
	return nil
}

// postSnapshot is the on-disk state of a post before a write.
type postSnapshot struct {
	postID string
	data   []byte
	exists bool
	entry  *indexEntry
}

func (s *Store) snapshot(postID string) (postSnapshot, error) {
	snap := postSnapshot{postID: postID}
	data, err := os.ReadFile(s.fullPath(postID))
	switch {
	case err == nil:
		snap.data, snap.exists = data, true
	case !os.IsNotExist(err):
		return snap, err
	}
	if entry, ok := s.cache.Peek(relPath(postID)); ok {
		e := *entry
		snap.entry = &e
	}
	return snap, nil
}

// restore puts a post document and its index entry back after a failed write.
func (s *Store) restore(snap postSnapshot) error {
	full := s.fullPath(snap.postID)
	rel := relPath(snap.postID)

	if !snap.exists {
		if err := os.Remove(full); err != nil && !os.IsNotExist(err) {
			return err
		}
		s.cache.Delete(rel)
		return nil
	}

	if err := writeFileAtomic(full, snap.data, 0o644); err != nil {
		return err
	}
	info, err := os.Stat(full)
	if err != nil {
		return err
	}
	entry := &indexEntry{PostID: snap.postID, LastModified: info.ModTime()}
	if snap.entry != nil {
		entry.Instances = snap.entry.Instances
	} else if p, perr := s.readPost(snap.postID); perr == nil {
		entry.Instances = p.instanceIDs()
	}
	s.cache.Set(rel, entry)
	s.config.Logger.Warn("write rolled back", "post", snap.postID)
	return nil
}

func (s *Store) postOf(instanceID string) (string, error) {
	postID, ok := s.cache.PostOf(instanceID)
	if !ok {
		return "", fmt.Errorf("instance %s: %w", instanceID, core.ErrNotFound)
	}
	return postID, nil
}

// --- core.MetaStore ---

func (s *Store) GetMeta(ctx context.Context, postID, key string) (any, bool, error) {
	if err := checkPostID(postID); err != nil {
		return nil, false, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	p, err := s.readPost(postID)
	if err != nil {
		return nil, false, err
	}
	v, ok := p.Meta[key]
	return v, ok, nil
}

func (s *Store) SetMeta(ctx context.Context, postID, key string, value any) error {
	return s.update(ctx, postID, fmt.Sprintf("update %s on post %s", key, postID), func(p *post) error {
		p.Meta[key] = value
		return nil
	})
}

func (s *Store) Meta(ctx context.Context, postID string) (core.Metadata, error) {
	if err := checkPostID(postID); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	p, err := s.readPost(postID)
	if err != nil {
		return nil, err
	}
	return p.Meta, nil
}

// --- core.AttributeStore ---

func (s *Store) Place(ctx context.Context, inst core.BlockInstance) error {
	if inst.ID == "" {
		return fmt.Errorf("%w: placement needs an ID", core.ErrInvalidScope)
	}
	msg := fmt.Sprintf("place %s on post %s", inst.Type, inst.PostID)
	return s.update(ctx, inst.PostID, msg, func(p *post) error {
		if prev, ok := s.cache.PostOf(inst.ID); ok && prev != inst.PostID {
			return fmt.Errorf("instance %s already placed on post %s", inst.ID, prev)
		}
		inst.Attributes = maps.Clone(inst.Attributes)
		if inst.Attributes == nil {
			inst.Attributes = make(core.Metadata)
		}
		if i := p.index(inst.ID); i >= 0 {
			p.Blocks[i] = inst
		} else {
			p.Blocks = append(p.Blocks, inst)
		}
		return nil
	})
}

func (s *Store) Instance(ctx context.Context, id string) (core.BlockInstance, error) {
	postID, err := s.postOf(id)
	if err != nil {
		return core.BlockInstance{}, err
	}
	blocks, err := s.Instances(ctx, postID)
	if err != nil {
		return core.BlockInstance{}, err
	}
	for _, b := range blocks {
		if b.ID == id {
			return b, nil
		}
	}
	return core.BlockInstance{}, fmt.Errorf("instance %s: %w", id, core.ErrNotFound)
}

func (s *Store) Instances(ctx context.Context, postID string) ([]core.BlockInstance, error) {
	if err := checkPostID(postID); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	p, err := s.readPost(postID)
	if err != nil {
		return nil, err
	}
	return p.Blocks, nil
}

func (s *Store) Remove(ctx context.Context, id string) error {
	postID, err := s.postOf(id)
	if err != nil {
		return err
	}
	return s.update(ctx, postID, "remove block "+id, func(p *post) error {
		i := p.index(id)
		if i < 0 {
			return fmt.Errorf("instance %s: %w", id, core.ErrNotFound)
		}
		p.Blocks = append(p.Blocks[:i], p.Blocks[i+1:]...)
		return nil
	})
}

func (s *Store) GetAttribute(ctx context.Context, instanceID, key string) (any, bool, error) {
	inst, err := s.Instance(ctx, instanceID)
	if err != nil {
		return nil, false, err
	}
	v, ok := inst.Attributes[key]
	return v, ok, nil
}

func (s *Store) SetAttribute(ctx context.Context, instanceID, key string, value any) error {
	postID, err := s.postOf(instanceID)
	if err != nil {
		return err
	}
	msg := fmt.Sprintf("update %s on block %s", key, instanceID)
	return s.update(ctx, postID, msg, func(p *post) error {
		i := p.index(instanceID)
		if i < 0 {
			return fmt.Errorf("instance %s: %w", instanceID, core.ErrNotFound)
		}
		p.Blocks[i].Attributes[key] = value
		return nil
	})
}

// Revisions lists the commits touching a post, newest first.
func (s *Store) Revisions(ctx context.Context, postID string, limit int) ([]string, error) {
	if !s.config.Versioned {
		return nil, errors.New("store is not versioned")
	}
	if err := checkPostID(postID); err != nil {
		return nil, err
	}
	return s.git.Log(relPath(postID), limit)
}

// --- index maintenance ---

// Reconcile brings the index in line with the documents on disk and returns
// the changes it found, as if they had been watched.
func (s *Store) Reconcile(ctx context.Context) ([]core.Event, error) {
	dir := filepath.Join(s.Path, postsDir)
	seen := make(map[string]bool)
	var events []core.Event

	err := filepath.WalkDir(dir, func(path string, d iofs.DirEntry, err error) error {
		if err != nil {
			if os.IsNotExist(err) && path == dir {
				return filepath.SkipDir
			}
			return err
		}
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if d.IsDir() {
			if path != dir {
				return filepath.SkipDir
			}
			return nil
		}
		name := d.Name()
		if isTempFile(name) || filepath.Ext(name) != postExt {
			return nil
		}

		postID := strings.TrimSuffix(name, postExt)
		seen[relPath(postID)] = true
		evs, err := s.refresh(postID)
		if err != nil {
			s.config.Logger.Warn("skipping unreadable post", "post", postID, "error", err)
			return nil
		}
		events = append(events, evs...)
		return nil
	})
	if err != nil {
		return nil, err
	}

	var gone []string
	s.cache.index.mu.RLock()
	for rel, e := range s.cache.index.Entries {
		if !seen[rel] {
			gone = append(gone, e.PostID)
		}
	}
	s.cache.index.mu.RUnlock()
	for _, postID := range gone {
		evs, _ := s.refresh(postID)
		events = append(events, evs...)
	}

	s.recordReconcile()
	if !s.config.ReadOnly {
		if err := s.cache.Save(); err != nil {
			s.config.Logger.Warn("failed to save index", "error", err)
		}
	}
	return events, nil
}

// refresh re-indexes one post document and reports how it differs from the
// indexed version. Documents whose mtime matches the index are unchanged.
func (s *Store) refresh(postID string) ([]core.Event, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rel := relPath(postID)
	now := time.Now().Unix()
	prev, hadPrev := s.cache.Peek(rel)

	info, err := os.Stat(s.fullPath(postID))
	if os.IsNotExist(err) {
		if !hadPrev {
			return nil, nil
		}
		s.cache.Delete(rel)
		events := []core.Event{{Type: core.EventDelete, PostID: postID, Timestamp: now}}
		for _, id := range prev.Instances {
			events = append(events, core.Event{Type: core.EventDelete, PostID: postID, InstanceID: id, Timestamp: now})
		}
		return events, nil
	}
	if err != nil {
		return nil, err
	}
	if _, fresh := s.cache.Get(rel, info.ModTime()); fresh {
		return nil, nil
	}

	p, err := s.readPost(postID)
	if err != nil {
		return nil, err
	}
	ids := p.instanceIDs()
	s.cache.Set(rel, &indexEntry{PostID: postID, Instances: ids, LastModified: info.ModTime()})

	if !hadPrev {
		events := []core.Event{{Type: core.EventCreate, PostID: postID, Timestamp: now}}
		for _, id := range ids {
			events = append(events, core.Event{Type: core.EventCreate, PostID: postID, InstanceID: id, Timestamp: now})
		}
		return events, nil
	}

	events := []core.Event{{Type: core.EventModify, PostID: postID, Timestamp: now}}
	before := make(map[string]bool, len(prev.Instances))
	for _, id := range prev.Instances {
		before[id] = true
	}
	for _, id := range ids {
		t := core.EventCreate
		if before[id] {
			t = core.EventModify
			delete(before, id)
		}
		events = append(events, core.Event{Type: t, PostID: postID, InstanceID: id, Timestamp: now})
	}
	for _, id := range prev.Instances {
		if before[id] {
			events = append(events, core.Event{Type: core.EventDelete, PostID: postID, InstanceID: id, Timestamp: now})
		}
	}
	return events, nil
}

var _ core.Store = (*Store)(nil)
var _ core.Watchable = (*Store)(nil)
