// Package logging builds zap loggers and reports knowledge-base events
// through them.
package logging

import (
	"fmt"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/cognicore/justify/pkg/justify/internalerr"
	"github.com/cognicore/justify/pkg/justify/kb"
)

// Config selects the logger flavour and threshold.
type Config struct {
	Level       string `yaml:"level"`
	Development bool   `yaml:"development"`
}

// New builds a logger. An empty level means info.
func New(cfg Config) (*zap.Logger, error) {
	level := zapcore.InfoLevel
	if cfg.Level != "" {
		l, err := zapcore.ParseLevel(cfg.Level)
		if err != nil {
			return nil, fmt.Errorf("%w: log level %q", internalerr.ErrInvalidConfig, cfg.Level)
		}
		level = l
	}

	zc := zap.NewProductionConfig()
	if cfg.Development {
		zc = zap.NewDevelopmentConfig()
	}
	zc.Level = zap.NewAtomicLevelAt(level)

	logger, err := zc.Build()
	if err != nil {
		return nil, fmt.Errorf("failed to initialize logger: %w", err)
	}
	return logger, nil
}

type observer struct {
	log *zap.Logger
}

// NewObserver reports events on log. Assertions, retractions and queries
// log at info; the derivation traffic logs at debug.
func NewObserver(log *zap.Logger) kb.Observer {
	if log == nil {
		log = zap.NewNop()
	}
	return observer{log: log.Named("kb")}
}

func (o observer) Observe(e kb.Event) {
	fields := []zap.Field{
		zap.String("entity", e.Entity.String()),
		zap.String("text", e.Text),
	}
	if e.ID != 0 {
		fields = append(fields, zap.Int("id", e.ID))
	}

	switch e.Kind {
	case kb.EventAsserted, kb.EventRetracted:
		o.log.Info(e.Kind.String(), fields...)
	case kb.EventAsked:
		o.log.Info("asked", append(fields, zap.Int("answers", e.Answers))...)
	case kb.EventInferenceAttempted:
		if ce := o.log.Check(zapcore.DebugLevel, "inference-attempted"); ce != nil {
			ce.Write(append(fields,
				zap.Int("fact_id", int(e.Fact)),
				zap.String("fact", e.FactText),
			)...)
		}
	default:
		o.log.Debug(e.Kind.String(), append(fields, zap.Bool("asserted", e.Asserted))...)
	}
}
