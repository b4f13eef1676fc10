package daemon

import (
	"errors"
	"fmt"
	"path/filepath"
	"sync"

	"github.com/fsnotify/fsnotify"
)

// EventOp is what happened to a watched file.
type EventOp int

const (
	OpCreate EventOp = iota
	OpModify
	// OpDelete covers removal and renaming away; editors that save through a
	// temp file produce a rename followed by a create.
	OpDelete
)

var opNames = [...]string{OpCreate: "create", OpModify: "modify", OpDelete: "delete"}

func (op EventOp) String() string {
	if op < 0 || int(op) >= len(opNames) {
		return "unknown"
	}
	return opNames[op]
}

// FileType says which watched file an event is about.
type FileType int

const (
	TypeRecipe  FileType = iota // inbox/*.json
	TypeSession                 // the session file
)

func (ft FileType) String() string {
	switch ft {
	case TypeRecipe:
		return "recipe"
	case TypeSession:
		return "session"
	}
	return "unknown"
}

// FileEvent is a file system event for the inbox or the session file.
type FileEvent struct {
	Path string
	Type FileType
	Op   EventOp
}

type watcherState int

const (
	stateIdle watcherState = iota
	stateRunning
	stateStopped
)

// FileWatcher reports changes to recipe files in the inbox and to the
// session file. fsnotify only watches directories, so the session file's
// parent is watched and unrelated names in it are dropped.
type FileWatcher struct {
	fsw    *fsnotify.Watcher
	events chan FileEvent
	errors chan error
	done   chan struct{}
	wg     sync.WaitGroup

	mu    sync.Mutex
	state watcherState

	inboxDir    string
	sessionFile string
}

// NewFileWatcher creates an idle FileWatcher.
func NewFileWatcher() (*FileWatcher, error) {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("failed to create fsnotify watcher: %w", err)
	}
	return &FileWatcher{
		fsw:    fsw,
		events: make(chan FileEvent, 100),
		errors: make(chan error, 10),
		done:   make(chan struct{}),
	}, nil
}

// Start begins watching. inboxDir and the session file's directory must
// exist. A FileWatcher can be started once.
func (fw *FileWatcher) Start(inboxDir, sessionFile string) error {
	fw.mu.Lock()
	defer fw.mu.Unlock()

	switch fw.state {
	case stateRunning:
		return errors.New("watcher already running")
	case stateStopped:
		return errors.New("watcher already stopped")
	}

	var err error
	if fw.inboxDir, err = filepath.Abs(inboxDir); err != nil {
		return fmt.Errorf("invalid inbox directory %s: %w", inboxDir, err)
	}
	if fw.sessionFile, err = filepath.Abs(sessionFile); err != nil {
		return fmt.Errorf("invalid session file %s: %w", sessionFile, err)
	}

	dirs := []string{fw.inboxDir}
	if sessionDir := filepath.Dir(fw.sessionFile); sessionDir != fw.inboxDir {
		dirs = append(dirs, sessionDir)
	}
	for i, dir := range dirs {
		if err := fw.fsw.Add(dir); err != nil {
			for _, added := range dirs[:i] {
				_ = fw.fsw.Remove(added)
			}
			return fmt.Errorf("failed to watch %s: %w", dir, err)
		}
	}

	fw.state = stateRunning
	fw.wg.Add(1)
	go fw.run()
	return nil
}

// Stop closes the watcher along with the Events and Errors channels.
// Calling it again is a no-op.
func (fw *FileWatcher) Stop() error {
	fw.mu.Lock()
	prev := fw.state
	fw.state = stateStopped
	fw.mu.Unlock()
	if prev == stateStopped {
		return nil
	}

	close(fw.done)
	err := fw.fsw.Close()
	fw.wg.Wait()
	close(fw.events)
	close(fw.errors)
	if err != nil {
		return fmt.Errorf("failed to close watcher: %w", err)
	}
	return nil
}

func (fw *FileWatcher) Events() <-chan FileEvent { return fw.events }

func (fw *FileWatcher) Errors() <-chan error { return fw.errors }

// IsRunning reports whether the watcher has started and not stopped.
func (fw *FileWatcher) IsRunning() bool {
	fw.mu.Lock()
	defer fw.mu.Unlock()
	return fw.state == stateRunning
}

func (fw *FileWatcher) run() {
	defer fw.wg.Done()

	for {
		select {
		case <-fw.done:
			return
		case ev, ok := <-fw.fsw.Events:
			if !ok {
				return
			}
			fe, keep := fw.convertEvent(ev)
			if keep && !send(fw.events, fe, fw.done) {
				return
			}
		case err, ok := <-fw.fsw.Errors:
			if !ok || !send(fw.errors, err, fw.done) {
				return
			}
		}
	}
}

// send delivers v unless done closes first.
func send[T any](ch chan<- T, v T, done <-chan struct{}) bool {
	select {
	case ch <- v:
		return true
	case <-done:
		return false
	}
}

func (fw *FileWatcher) convertEvent(ev fsnotify.Event) (FileEvent, bool) {
	typ, ok := fw.classify(ev.Name)
	if !ok {
		return FileEvent{}, false
	}
	fe := FileEvent{Path: ev.Name, Type: typ}
	switch {
	case ev.Has(fsnotify.Create):
		fe.Op = OpCreate
	case ev.Has(fsnotify.Write):
		fe.Op = OpModify
	case ev.Has(fsnotify.Remove), ev.Has(fsnotify.Rename):
		fe.Op = OpDelete
	default:
		// chmod
		return FileEvent{}, false
	}
	return fe, true
}

func (fw *FileWatcher) classify(name string) (FileType, bool) {
	abs, err := filepath.Abs(name)
	if err != nil {
		return 0, false
	}
	switch {
	case abs == fw.sessionFile:
		return TypeSession, true
	case filepath.Dir(abs) == fw.inboxDir && filepath.Ext(abs) == ".json":
		return TypeRecipe, true
	}
	return 0, false
}
