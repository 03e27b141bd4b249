package cli

import (
	"context"
	"fmt"
	"io"

	"github.com/plesql/plesql/internal/audit"
	"github.com/plesql/plesql/internal/bridge"
	"github.com/plesql/plesql/internal/interp"
	"github.com/plesql/plesql/internal/registry"
	"github.com/plesql/plesql/internal/store"
	"github.com/plesql/plesql/internal/ui"
)

// app bundles the collaborators a command needs: the database, the
// definition registry loaded from it, the audit log and an engine wired to
// all of them.
type app struct {
	db     *store.Database
	defs   *registry.Registry
	audit  *audit.Logger
	engine *interp.Engine
}

// openDatabase opens the configured database.
func openDatabase() (*store.Database, error) {
	db, err := store.Open(getConfig().DatabasePath())
	if err != nil {
		return nil, handleError(codeFor(err, ErrDatabaseError), err, "Check the database setting with 'plesql config show'")
	}
	return db, nil
}

// openApp opens the database and builds an engine. PRINT output goes to
// sink; pass nil to collect it only in run results.
func openApp(ctx context.Context, sink interp.Sink) (*app, error) {
	c := getConfig()
	db, err := openDatabase()
	if err != nil {
		return nil, err
	}

	auditLog := audit.New(c.AuditPath(), c.Audit.Enabled)
	defs := registry.New(
		registry.WithStore(db),
		registry.WithLogger(logger),
		registry.WithListener(auditLog.Listener(func(err error) {
			logger.Warn("audit write failed", "error", err)
		})),
	)
	if err := defs.Load(ctx); err != nil {
		db.Close()
		return nil, handleError(codeFor(err, ErrDatabaseError), fmt.Errorf("failed to load definitions: %w", err), "")
	}

	bridgeOpts := []bridge.SQLOption{bridge.WithLogger(logger)}
	if c.Engine.ReadOnlyQueries {
		bridgeOpts = append(bridgeOpts, bridge.ReadOnly())
	}

	opts := []interp.Option{
		interp.WithRegistry(defs),
		interp.WithBridge(bridge.NewSQL(db, bridgeOpts...)),
		interp.WithLogger(logger),
		interp.WithMaxCallDepth(c.Engine.MaxCallDepth),
		interp.WithMaxLoopIterations(c.Engine.MaxLoopIterations),
		interp.WithTimeout(c.Engine.Timeout.Duration),
	}
	if sink != nil {
		opts = append(opts, interp.WithSink(sink))
	}

	return &app{
		db:     db,
		defs:   defs,
		audit:  auditLog,
		engine: interp.New(opts...),
	}, nil
}

func (a *app) Close() error {
	return a.db.Close()
}

// consoleSink returns the sink for PRINT output in text mode. JSON mode
// reports output inside the response instead.
func consoleSink(w io.Writer) interp.Sink {
	if isJSONOutput() {
		return nil
	}
	c := getConfig()
	display := ui.NewDisplayContext(w, c.Output.Color)
	return ui.NewConsole(w,
		ui.WithMinSeverity(c.MinSeverity()),
		ui.WithColor(display.Color),
	)
}
