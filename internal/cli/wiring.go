package cli

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/afero"

	"github.com/calebmoore/qaforge/internal/agent"
	"github.com/calebmoore/qaforge/internal/config"
	"github.com/calebmoore/qaforge/internal/db"
	"github.com/calebmoore/qaforge/internal/engine"
	"github.com/calebmoore/qaforge/internal/record"
	"github.com/calebmoore/qaforge/internal/review"
)

// openDB opens and migrates the audit database at its configured path.
func openDB(cfg *config.Config) (*db.DB, error) {
	path := cfg.DB.Path
	if path == "" {
		var err error
		path, err = db.DefaultDBPath()
		if err != nil {
			return nil, err
		}
	}
	d, err := db.Open(path)
	if err != nil {
		return nil, err
	}
	if err := d.Migrate(); err != nil {
		d.Close()
		return nil, err
	}
	return d, nil
}

// newStore builds the record store for the configured backend.
func newStore(ctx context.Context, cfg *config.Config) (record.Store, error) {
	switch cfg.Store.Backend {
	case "postgres":
		return record.OpenPostgres(ctx, cfg.Store.PostgresDSN)
	case "fs", "":
		if cfg.Store.BaseDir != "" {
			return record.NewFS(afero.NewOsFs(), cfg.Store.BaseDir), nil
		}
		return record.DefaultFS()
	default:
		return nil, fmt.Errorf("unknown store backend %q", cfg.Store.Backend)
	}
}

// newChannel builds the review channel. autoApprove forces the auto channel
// regardless of the configured mode.
func newChannel(cfg *config.Config, autoApprove bool) review.Channel {
	if autoApprove || cfg.Review.Mode == "auto" {
		return &review.Auto{Value: "auto-approved"}
	}
	return &review.Console{In: os.Stdin, Out: os.Stderr}
}

// newRunner wires a fully configured engine runner.
func newRunner(ctx context.Context, cfg *config.Config, autoApprove bool) (*engine.Runner, *db.DB, error) {
	if cfg.Agent.Command == "" {
		return nil, nil, fmt.Errorf("agent.command is not configured (run 'qaforge config validate')")
	}

	database, err := openDB(cfg)
	if err != nil {
		return nil, nil, fmt.Errorf("open audit db: %w", err)
	}

	store, err := newStore(ctx, cfg)
	if err != nil {
		database.Close()
		return nil, nil, fmt.Errorf("open record store: %w", err)
	}

	a := &agent.Script{
		Command: cfg.Agent.Command,
		Args:    cfg.Agent.Args,
		Timeout: cfg.Agent.AgentTimeout(),
	}

	r := engine.NewRunner(a, store, newChannel(cfg, autoApprove), database)
	r.SetProgress(os.Stderr)
	if d := cfg.Agent.AgentTimeout(); d > 0 {
		r.SetInvokeTimeout(d)
	}
	if d := cfg.Review.ReviewTimeout(); d > 0 {
		r.SetReviewTimeout(d)
	}
	return r, database, nil
}
