// Package daemon runs haven in the background, reacting to two kinds of file
// changes:
//
//   - Recipe files (*.json) dropped into the inbox directory are saved through
//     the core, exactly like `haven recipe add --file`. Saving is idempotent,
//     so the same file may be dropped again after editing.
//   - The session file (TOML) holds the signed-in remote. Writing it is a
//     sign-in and deleting it, or clearing its endpoint, is a sign-out. Both
//     are auth-state changes: the core reconnects or disconnects and runs a
//     reconciliation pass.
//
// Events are debounced per path: a path is processed once it has been quiet
// for Config.DebounceInterval.
//
//	d, err := daemon.New(core, cfg.Daemon.InboxDir, cfg.Daemon.SessionFile)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	if err := d.Start(ctx); err != nil { // blocks until ctx is done
//	    log.Fatal(err)
//	}
package daemon
