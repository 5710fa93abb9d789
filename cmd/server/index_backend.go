package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"voxelyard.dev/internal/contact"
	"voxelyard.dev/internal/persistence/indexdb"
	"voxelyard.dev/internal/sim/catalogs"
	"voxelyard.dev/internal/sim/tuning"
	"voxelyard.dev/internal/sim/world"
)

type runtimeIndex interface {
	world.TickLogger
	world.AuditLogger
	contact.Recorder
	Close() error
	Stats() indexdb.QueueStats
	Submissions(ctx context.Context, session string) ([]contact.Submission, error)
	UpsertCatalogs(configDir string, cat *catalogs.BlockCatalog, tune tuning.Tuning) error
}

// openRuntimeIndex returns a nil interface when indexing is off.
func openRuntimeIndex(sessionDir string, disableDB bool) (runtimeIndex, error) {
	if disableDB {
		return nil, nil
	}

	backend := strings.ToLower(strings.TrimSpace(os.Getenv("VY_INDEX_BACKEND")))
	if backend == "" {
		backend = "sqlite"
	}

	switch backend {
	case "none", "off", "disabled":
		return nil, nil
	case "sqlite":
		idx, err := indexdb.OpenSQLite(filepath.Join(sessionDir, "index", "session.sqlite"))
		if err != nil {
			return nil, err
		}
		return idx, nil
	default:
		return nil, fmt.Errorf("unsupported VY_INDEX_BACKEND: %s", backend)
	}
}

type multiTickLogger struct {
	a world.TickLogger
	b world.TickLogger
}

func (m multiTickLogger) WriteTick(entry world.TickLogEntry) error {
	if m.a != nil {
		_ = m.a.WriteTick(entry)
	}
	if m.b != nil {
		_ = m.b.WriteTick(entry)
	}
	return nil
}

type multiAuditLogger struct {
	a world.AuditLogger
	b world.AuditLogger
}

func (m multiAuditLogger) WriteAudit(entry world.AuditEntry) error {
	if m.a != nil {
		_ = m.a.WriteAudit(entry)
	}
	if m.b != nil {
		_ = m.b.WriteAudit(entry)
	}
	return nil
}
