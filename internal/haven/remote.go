package haven

import (
	"context"
	"errors"
	"fmt"

	"github.com/haven-app/haven/internal/local"
	"github.com/haven-app/haven/internal/reconcile"
	"github.com/haven-app/haven/internal/remote"
)

// RemoteConfig returns the configured remote, if any.
func (c *Core) RemoteConfig() (remote.Config, bool) {
	c.remoteMu.Lock()
	defer c.remoteMu.Unlock()
	if c.remoteCfg == nil {
		return remote.Config{}, false
	}
	return *c.remoteCfg, true
}

// ConfigureRemote stores endpoint and credential as the remote config and
// treats it as an auth-state change, running a reconciliation pass.
func (c *Core) ConfigureRemote(ctx context.Context, endpoint, credential string) error {
	return c.Connect(ctx, remote.Config{Endpoint: endpoint, Credential: credential})
}

// Connect is ConfigureRemote with an explicit owner. The config is persisted
// before the pass runs, so it survives a failed pass.
func (c *Core) Connect(ctx context.Context, cfg remote.Config) error {
	if err := cfg.Validate(); err != nil {
		return err
	}
	if cfg.Owner == "" {
		cfg.Owner = c.owner
	}
	if err := local.SaveJSON(ctx, c.store, local.KeyRemoteConfig, cfg); err != nil {
		return err
	}
	if err := c.attach(cfg); err != nil {
		return err
	}
	c.logger.Printf("Remote configured: %s (owner %s)", cfg.Redacted(), cfg.OwnerOrPublic())
	return c.AuthChanged(ctx)
}

// DisconnectRemote forgets the remote config. Local data is kept.
func (c *Core) DisconnectRemote(ctx context.Context) error {
	if err := c.store.Delete(ctx, local.KeyRemoteConfig); err != nil {
		return err
	}

	c.remoteMu.Lock()
	old := c.adapter
	c.adapter = nil
	c.remoteCfg = nil
	c.remoteMu.Unlock()

	c.Flush()
	if old != nil {
		if err := old.Close(); err != nil {
			c.logger.Printf("Warning: closing remote: %v", err)
		}
	}

	c.transition(c.tracker.LocalOnly())
	c.events.emit(Event{Kind: EventRemoteChanged})
	return nil
}

// attach swaps in an adapter for cfg, closing the previous one once its
// queued mirrors have drained.
func (c *Core) attach(cfg remote.Config) error {
	if cfg.Owner == "" {
		cfg.Owner = c.owner
	}

	var adapter remote.Adapter
	if !c.offline {
		a, err := c.connect(cfg)
		if err != nil {
			return fmt.Errorf("failed to set up remote: %w", err)
		}
		adapter = a
	}

	c.remoteMu.Lock()
	old := c.adapter
	c.adapter = adapter
	c.remoteCfg = &cfg
	c.remoteMu.Unlock()

	if old != nil {
		c.Flush()
		if err := old.Close(); err != nil {
			c.logger.Printf("Warning: closing previous remote: %v", err)
		}
	}
	c.events.emit(Event{Kind: EventRemoteChanged})
	return nil
}

func (c *Core) currentAdapter() remote.Adapter {
	c.remoteMu.Lock()
	defer c.remoteMu.Unlock()
	return c.adapter
}

// AuthChanged handles an auth-state event: with no remote the status
// becomes local-only; otherwise pending mirrors are flushed and a
// reconciliation pass runs. A pass that lost the race to a newer one is not
// an error.
func (c *Core) AuthChanged(ctx context.Context) error {
	a := c.currentAdapter()
	if a == nil {
		c.transition(c.tracker.LocalOnly())
		return nil
	}

	c.Flush()
	_, err := c.engine.Pass(ctx, a, c)
	if errors.Is(err, reconcile.ErrSuperseded) {
		return nil
	}
	if err != nil {
		return err
	}
	c.events.emit(Event{Kind: EventReconciled})
	return nil
}

// Reconcile runs an explicit, user-requested pass.
func (c *Core) Reconcile(ctx context.Context) (reconcile.Result, error) {
	a := c.currentAdapter()
	if a == nil {
		return reconcile.Result{}, remote.ErrNotConfigured
	}

	c.Flush()
	res, err := c.engine.Pass(ctx, a, c)
	if err != nil {
		return res, err
	}
	c.events.emit(Event{Kind: EventReconciled})
	return res, nil
}

func (c *Core) transition(err error) {
	if err != nil {
		c.logger.Printf("Warning: %v", err)
	}
}
