// Package log stores the record of one play session on disk. A session
// directory holds two streams, each a run of zstd-compressed JSON-lines
// segments cut on the hour:
//
//	<session>/events/events-YYYY-MM-DD-HH.jsonl.zst   one entry per tick
//	<session>/audit/audit-YYYY-MM-DD-HH.jsonl.zst     pickups, placements, resets
//
// The events stream is enough to rebuild the session; the audit stream marks
// the resets that happened between ticks.
package log

import (
	"bufio"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/klauspost/compress/zstd"

	"voxelyard.dev/internal/sim/world"
)

const (
	EventsStream = "events"
	AuditStream  = "audit"

	segmentLayout = "2006-01-02-15"
)

// StreamDir is where a session keeps the segments of stream.
func StreamDir(sessionDir, stream string) string {
	return filepath.Join(sessionDir, stream)
}

// StreamFiles lists the segments of stream in sessionDir, oldest first.
func StreamFiles(sessionDir, stream string) ([]string, error) {
	return ListFiles(StreamDir(sessionDir, stream), stream)
}

// SegmentWriter appends JSON lines to the current hour's segment of one
// stream, opening a new segment when the hour changes. Every line is flushed
// through the encoder so a crash loses at most the unfinished zstd frame.
type SegmentWriter struct {
	dir    string
	stream string
	now    func() time.Time

	mu      sync.Mutex
	segment string
	f       *os.File
	enc     *zstd.Encoder
	buf     *bufio.Writer
}

func NewSegmentWriter(dir, stream string) *SegmentWriter {
	return &SegmentWriter{dir: dir, stream: stream, now: time.Now}
}

func (s *SegmentWriter) Write(v any) error {
	line, err := json.Marshal(v)
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if seg := s.now().UTC().Format(segmentLayout); seg != s.segment {
		if err := s.openLocked(seg); err != nil {
			return err
		}
	}
	if _, err := s.buf.Write(append(line, '\n')); err != nil {
		return err
	}
	return s.buf.Flush()
}

func (s *SegmentWriter) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closeLocked()
}

func (s *SegmentWriter) openLocked(seg string) error {
	if err := s.closeLocked(); err != nil {
		return err
	}
	if err := os.MkdirAll(s.dir, 0o755); err != nil {
		return err
	}
	name := fmt.Sprintf("%s-%s.jsonl.zst", s.stream, seg)
	f, err := os.OpenFile(filepath.Join(s.dir, name), os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return err
	}
	enc, err := zstd.NewWriter(f, zstd.WithEncoderLevel(zstd.SpeedFastest))
	if err != nil {
		_ = f.Close()
		return err
	}
	s.f, s.enc, s.buf = f, enc, bufio.NewWriterSize(enc, 64*1024)
	s.segment = seg
	return nil
}

func (s *SegmentWriter) closeLocked() error {
	if s.f == nil {
		return nil
	}
	_ = s.buf.Flush()
	err := s.enc.Close()
	_ = s.f.Close()
	s.f, s.enc, s.buf = nil, nil, nil
	s.segment = ""
	return err
}

// TickLogger is the session's events stream.
type TickLogger struct{ w *SegmentWriter }

func NewTickLogger(sessionDir string) *TickLogger {
	return &TickLogger{w: NewSegmentWriter(StreamDir(sessionDir, EventsStream), EventsStream)}
}

func (l *TickLogger) WriteTick(e world.TickLogEntry) error { return l.w.Write(e) }
func (l *TickLogger) Close() error                         { return l.w.Close() }

// AuditLogger is the session's audit stream: interaction outcomes and resets.
type AuditLogger struct{ w *SegmentWriter }

func NewAuditLogger(sessionDir string) *AuditLogger {
	return &AuditLogger{w: NewSegmentWriter(StreamDir(sessionDir, AuditStream), AuditStream)}
}

func (l *AuditLogger) WriteAudit(e world.AuditEntry) error { return l.w.Write(e) }
func (l *AuditLogger) Close() error                        { return l.w.Close() }
