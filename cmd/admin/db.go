package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"voxelyard.dev/internal/contact"
	"voxelyard.dev/internal/persistence/indexdb"
)

// Interaction actions worth counting in a summary.
var summaryActions = []string{"PICKED_RESOURCE", "PICKED_PLACED", "PLACED", "CELL_OCCUPIED", "OUT_OF_BOUNDS", "NO_PLACEMENT_CELL", "RESET"}

type sessionSummary struct {
	Session       string         `json:"session"`
	LastTick      uint64         `json:"last_tick"`
	LastDigest    string         `json:"last_digest,omitempty"`
	CatalogDigest string         `json:"catalog_digest,omitempty"`
	Interactions  map[string]int `json:"interactions"`
	Manifests     int            `json:"manifests"`
}

func dbCmd(args []string) {
	fs := flag.NewFlagSet("db", flag.ExitOnError)
	dataDir := fs.String("data", "./data", "runtime data directory")
	session := fs.String("session", "", "session id (required)")
	dbPath := fs.String("db", "", "sqlite db path (optional)")
	_ = fs.Parse(args)

	q := "summary"
	if fs.NArg() > 0 {
		q = strings.TrimSpace(fs.Arg(0))
	}
	if strings.TrimSpace(*session) == "" {
		fmt.Fprintln(os.Stderr, "missing -session")
		os.Exit(2)
	}

	path := strings.TrimSpace(*dbPath)
	if path == "" {
		path = filepath.Join(*dataDir, "sessions", *session, "index", "session.sqlite")
	}
	if _, err := os.Stat(path); err != nil {
		fmt.Fprintln(os.Stderr, "open:", err)
		os.Exit(1)
	}
	idx, err := indexdb.OpenSQLite(path)
	if err != nil {
		fmt.Fprintln(os.Stderr, "open:", err)
		os.Exit(1)
	}
	defer idx.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	switch q {
	case "summary":
		s, err := summarize(ctx, idx, *session)
		if err != nil {
			fmt.Fprintln(os.Stderr, "summary:", err)
			os.Exit(1)
		}
		printJSON(s)
	case "manifests":
		subs, err := idx.Submissions(ctx, *session)
		if err != nil {
			fmt.Fprintln(os.Stderr, "query:", err)
			os.Exit(1)
		}
		for _, s := range subs {
			printJSON(s)
		}
	default:
		fmt.Fprintln(os.Stderr, "unknown query:", q)
		os.Exit(2)
	}
}

type sessionIndex interface {
	LastTick(ctx context.Context) (uint64, string, bool, error)
	CountInteractions(ctx context.Context, action string) (int, error)
	CatalogDigest(ctx context.Context, name string) (string, error)
	Submissions(ctx context.Context, session string) ([]contact.Submission, error)
}

func summarize(ctx context.Context, idx sessionIndex, session string) (sessionSummary, error) {
	s := sessionSummary{Session: session, Interactions: map[string]int{}}

	tick, digest, ok, err := idx.LastTick(ctx)
	if err != nil {
		return s, fmt.Errorf("last tick: %w", err)
	}
	if ok {
		s.LastTick, s.LastDigest = tick, digest
	}
	// A missing catalog row only means the server ran without upserting.
	if d, err := idx.CatalogDigest(ctx, "blocks_ordered"); err == nil {
		s.CatalogDigest = d
	}
	for _, a := range summaryActions {
		n, err := idx.CountInteractions(ctx, a)
		if err != nil {
			return s, fmt.Errorf("count %s: %w", a, err)
		}
		if n > 0 {
			s.Interactions[a] = n
		}
	}
	subs, err := idx.Submissions(ctx, session)
	if err != nil {
		return s, fmt.Errorf("manifests: %w", err)
	}
	s.Manifests = len(subs)
	return s, nil
}
