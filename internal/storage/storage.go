// Package storage contains the sink contract and the factory wiring the
// concrete backends (databases and flat files). The pipeline hands a
// validated master table to one or more sinks and otherwise does not care
// where rows land.
package storage

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"giftetl/pkg/table"
)

// WriteMode controls how a database-like sink treats an existing target.
type WriteMode string

const (
	// ModeReplace drops and recreates the target before writing.
	ModeReplace WriteMode = "replace"
	// ModeAppend adds rows, creating the target only if missing.
	ModeAppend WriteMode = "append"
	// ModeFail errors when the target already exists.
	ModeFail WriteMode = "fail"
)

// ParseWriteMode maps a config string onto a WriteMode. Empty means append.
func ParseWriteMode(s string) (WriteMode, error) {
	switch WriteMode(s) {
	case "":
		return ModeAppend, nil
	case ModeReplace, ModeAppend, ModeFail:
		return WriteMode(s), nil
	default:
		return "", fmt.Errorf("unknown write mode %q", s)
	}
}

// Sink accepts a table and reports the number of rows written.
type Sink interface {
	Name() string
	Write(ctx context.Context, t table.Table) (int64, error)
	Close() error
}

// Config carries everything a backend factory may need. Backends read the
// fields relevant to them and ignore the rest.
type Config struct {
	Kind  string
	DSN   string
	Table string
	Mode  WriteMode

	// File sink options.
	Dir    string
	Prefix string

	Log *slog.Logger
}

// Factory opens a sink for a Config. Backends register one per kind from
// their init functions.
type Factory func(ctx context.Context, cfg Config) (Sink, error)

var (
	regMu     sync.RWMutex
	factories = map[string]Factory{}
)

// Register installs (or replaces) the factory for a sink kind.
func Register(kind string, fn Factory) {
	regMu.Lock()
	defer regMu.Unlock()
	factories[kind] = fn
}

// New opens a sink of the configured kind. Unknown kinds are an error
// listing what has been registered, which usually means a missing blank
// import of giftetl/internal/storage/all.
func New(ctx context.Context, cfg Config) (Sink, error) {
	regMu.RLock()
	fn, ok := factories[cfg.Kind]
	regMu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("no sink registered for kind %q (registered: %v)", cfg.Kind, registeredKinds())
	}
	if cfg.Log == nil {
		cfg.Log = slog.Default()
	}
	return fn(ctx, cfg)
}

func registeredKinds() []string {
	regMu.RLock()
	defer regMu.RUnlock()
	kinds := make([]string, 0, len(factories))
	for k := range factories {
		kinds = append(kinds, k)
	}
	return kinds
}
