package config

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/cognicore/justify/pkg/justify/kb"
	"github.com/cognicore/justify/pkg/justify/logging"
	"github.com/cognicore/justify/pkg/justify/parse"
	"github.com/cognicore/justify/pkg/justify/store"
	"github.com/cognicore/justify/pkg/justify/store/memstore"
	"github.com/cognicore/justify/pkg/justify/store/sqlite"
)

// Loader constructs components from a Config
type Loader struct {
	Config Config
}

// Components holds everything built from the configuration
type Components struct {
	Logger  *zap.Logger
	Journal store.Journal // nil when the driver is "none"
	Items   []kb.Item
}

// Close releases the journal and flushes the logger.
func (c *Components) Close() error {
	var err error
	if c.Journal != nil {
		err = c.Journal.Close()
	}
	if c.Logger != nil {
		_ = c.Logger.Sync()
	}
	return err
}

// Load builds the logger, opens the journal and parses every source.
func (l *Loader) Load(ctx context.Context) (*Components, error) {
	if err := l.Config.Validate(); err != nil {
		return nil, err
	}

	comp := &Components{}

	logger, err := logging.New(l.Config.Log)
	if err != nil {
		return nil, fmt.Errorf("build logger: %w", err)
	}
	comp.Logger = logger

	switch l.Config.Journal.Driver {
	case DriverMemory:
		comp.Journal = memstore.New()
	case DriverSQLite:
		j, err := sqlite.OpenSQLite(ctx, l.Config.Journal.Path)
		if err != nil {
			return nil, fmt.Errorf("open journal: %w", err)
		}
		comp.Journal = j
	}

	if len(l.Config.Sources) > 0 {
		items, err := parse.ReadFiles(ctx, l.Config.Sources...)
		if err != nil {
			comp.Close()
			return nil, fmt.Errorf("load sources: %w", err)
		}
		comp.Items = items
	}

	return comp, nil
}
