package daemon

import (
	"context"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/haven-app/haven/internal/remote"
	"github.com/haven-app/haven/internal/schema"
)

// Core is the part of the haven core the daemon drives.
type Core interface {
	SaveRecipe(ctx context.Context, r schema.Recipe) (schema.Recipe, error)
	RemoteConfig() (remote.Config, bool)
	Connect(ctx context.Context, cfg remote.Config) error
	DisconnectRemote(ctx context.Context) error
	AuthChanged(ctx context.Context) error
}

// Config holds configuration for the daemon.
type Config struct {
	// DebounceInterval is how long a path must be quiet before it is
	// processed. Editors often write a file several times in a row.
	DebounceInterval time.Duration

	Logger *log.Logger
}

// DefaultConfig returns sensible defaults.
func DefaultConfig() *Config {
	return &Config{
		DebounceInterval: 500 * time.Millisecond,
		Logger:           log.New(os.Stderr, "[daemon] ", log.LstdFlags),
	}
}

type queuedChange struct {
	typ FileType
	op  EventOp
	at  time.Time
}

// Daemon imports recipes dropped into the inbox and turns session file
// changes into sign-in and sign-out.
type Daemon struct {
	core        Core
	inboxDir    string
	sessionFile string
	config      *Config

	watcher       *FileWatcher
	changeQueue   map[string]queuedChange
	changeQueueMu sync.Mutex

	// processMu serializes processing between the ticker and Drain.
	processMu sync.Mutex

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// New creates a daemon with the default config.
func New(core Core, inboxDir, sessionFile string) (*Daemon, error) {
	return NewWithConfig(core, inboxDir, sessionFile, DefaultConfig())
}

// NewWithConfig creates a daemon. Missing inbox and session directories are
// created.
func NewWithConfig(core Core, inboxDir, sessionFile string, config *Config) (*Daemon, error) {
	if core == nil {
		return nil, fmt.Errorf("core cannot be nil")
	}
	if inboxDir == "" {
		return nil, fmt.Errorf("inboxDir cannot be empty")
	}
	if sessionFile == "" {
		return nil, fmt.Errorf("sessionFile cannot be empty")
	}
	if config == nil {
		config = DefaultConfig()
	}
	if config.Logger == nil {
		config.Logger = DefaultConfig().Logger
	}
	if config.DebounceInterval <= 0 {
		config.DebounceInterval = DefaultConfig().DebounceInterval
	}

	for _, dir := range []string{inboxDir, filepath.Dir(sessionFile)} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("failed to create %s: %w", dir, err)
		}
	}

	watcher, err := NewFileWatcher()
	if err != nil {
		return nil, err
	}

	ctx, cancel := context.WithCancel(context.Background())
	return &Daemon{
		core:        core,
		inboxDir:    inboxDir,
		sessionFile: sessionFile,
		config:      config,
		watcher:     watcher,
		changeQueue: make(map[string]queuedChange),
		ctx:         ctx,
		cancel:      cancel,
	}, nil
}

// Start imports the inbox, applies the current session, then watches for
// changes until ctx is cancelled or Stop is called.
func (d *Daemon) Start(ctx context.Context) error {
	d.config.Logger.Println("Starting daemon")

	if err := d.ImportInbox(ctx); err != nil {
		return fmt.Errorf("initial import failed: %w", err)
	}
	if err := d.ApplySession(ctx); err != nil {
		d.config.Logger.Printf("Warning: applying session: %v", err)
	}

	if err := d.watcher.Start(d.inboxDir, d.sessionFile); err != nil {
		return err
	}
	d.config.Logger.Printf("Watching: %s, %s", d.inboxDir, d.sessionFile)

	d.wg.Add(2)
	go d.watchFileEvents()
	go d.processChangeQueue()

	select {
	case <-ctx.Done():
		d.config.Logger.Println("Shutdown signal received")
		return d.Stop()
	case <-d.ctx.Done():
		return nil
	}
}

// Stop shuts the daemon down. Queued changes that have not been processed
// are dropped.
func (d *Daemon) Stop() error {
	d.config.Logger.Println("Stopping daemon")

	d.cancel()
	if err := d.watcher.Stop(); err != nil {
		d.config.Logger.Printf("Error closing watcher: %v", err)
	}
	d.wg.Wait()

	d.config.Logger.Println("Daemon stopped")
	return nil
}

// ImportInbox saves every recipe file currently in the inbox.
func (d *Daemon) ImportInbox(ctx context.Context) error {
	paths, err := filepath.Glob(filepath.Join(d.inboxDir, "*.json"))
	if err != nil {
		return fmt.Errorf("failed to list inbox: %w", err)
	}
	sort.Strings(paths)

	d.config.Logger.Printf("Importing %d recipe files", len(paths))
	for _, path := range paths {
		if err := d.importRecipe(ctx, path); err != nil {
			d.config.Logger.Printf("Warning: skipping %s: %v", filepath.Base(path), err)
		}
	}
	return nil
}

// importRecipe saves one inbox file. A file without an id takes its name
// (minus .json) as id, so re-importing the same file replaces the recipe.
func (d *Daemon) importRecipe(ctx context.Context, path string) error {
	rec, err := schema.ReadRecipeFile(path)
	if err != nil {
		return err
	}
	if rec.ID == "" {
		rec.ID = strings.TrimSuffix(filepath.Base(path), ".json")
	}

	saved, err := d.core.SaveRecipe(ctx, *rec)
	if err != nil {
		return err
	}
	d.config.Logger.Printf("Imported recipe: %s (%s)", saved.ID, saved.Name)
	return nil
}

// ApplySession brings the core's remote in line with the session file.
// Signing in with the already configured remote runs a fresh pass.
func (d *Daemon) ApplySession(ctx context.Context) error {
	s, err := ReadSession(d.sessionFile)
	if err != nil {
		return err
	}

	current, configured := d.core.RemoteConfig()
	if !s.SignedIn() {
		if !configured {
			return d.core.AuthChanged(ctx)
		}
		d.config.Logger.Println("Session ended, disconnecting remote")
		return d.core.DisconnectRemote(ctx)
	}

	cfg := s.Config()
	if configured && sameRemote(current, cfg) {
		d.config.Logger.Println("Session refreshed, reconciling")
		return d.core.AuthChanged(ctx)
	}

	d.config.Logger.Printf("Session started for %s", cfg.Redacted())
	return d.core.Connect(ctx, cfg)
}

func sameRemote(a, b remote.Config) bool {
	if a.Endpoint != b.Endpoint || a.Credential != b.Credential {
		return false
	}
	return b.Owner == "" || a.Owner == b.Owner
}

func (d *Daemon) watchFileEvents() {
	defer d.wg.Done()

	for {
		select {
		case <-d.ctx.Done():
			return

		case event, ok := <-d.watcher.Events():
			if !ok {
				return
			}
			d.config.Logger.Printf("File event: %s %s %s", event.Op, event.Type, event.Path)
			d.queueChange(event)

		case err, ok := <-d.watcher.Errors():
			if !ok {
				return
			}
			d.config.Logger.Printf("Watcher error: %v", err)
		}
	}
}

func (d *Daemon) queueChange(event FileEvent) {
	d.changeQueueMu.Lock()
	defer d.changeQueueMu.Unlock()

	d.changeQueue[event.Path] = queuedChange{typ: event.Type, op: event.Op, at: time.Now()}
}

func (d *Daemon) processChangeQueue() {
	defer d.wg.Done()

	ticker := time.NewTicker(d.config.DebounceInterval / 2)
	defer ticker.Stop()

	for {
		select {
		case <-d.ctx.Done():
			return
		case <-ticker.C:
			d.processPendingChanges(d.ctx, false)
		}
	}
}

// Drain processes every queued change immediately, ignoring the debounce.
func (d *Daemon) Drain(ctx context.Context) {
	d.processPendingChanges(ctx, true)
}

// processPendingChanges handles queued paths that have been quiet for the
// debounce interval. The session is applied before recipes so imports are
// mirrored to the remote that is current.
func (d *Daemon) processPendingChanges(ctx context.Context, force bool) {
	d.processMu.Lock()
	defer d.processMu.Unlock()

	now := time.Now()
	var session bool
	var recipes []string

	d.changeQueueMu.Lock()
	for path, ch := range d.changeQueue {
		if !force && now.Sub(ch.at) < d.config.DebounceInterval {
			continue
		}
		switch ch.typ {
		case TypeSession:
			session = true
		case TypeRecipe:
			if ch.op != OpDelete {
				recipes = append(recipes, path)
			}
		}
		delete(d.changeQueue, path)
	}
	d.changeQueueMu.Unlock()

	if session {
		if err := d.ApplySession(ctx); err != nil {
			d.config.Logger.Printf("Error applying session: %v", err)
		}
	}

	sort.Strings(recipes)
	for _, path := range recipes {
		if _, err := os.Stat(path); os.IsNotExist(err) {
			continue
		}
		d.config.Logger.Printf("Processing change: %s", path)
		if err := d.importRecipe(ctx, path); err != nil {
			d.config.Logger.Printf("Error importing %s: %v", path, err)
		}
	}
}
