package indexdb

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"voxelyard.dev/internal/contact"
)

// Submissions lists the outbox for a session, oldest first.
func (s *SQLiteIndex) Submissions(ctx context.Context, session string) ([]contact.Submission, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT session,recipient,subject,body,mailto,total,created_at FROM manifests WHERE session=? ORDER BY id`, session)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []contact.Submission
	for rows.Next() {
		var (
			sub     contact.Submission
			created string
		)
		if err := rows.Scan(&sub.Session, &sub.Recipient, &sub.Subject, &sub.Body, &sub.Mailto, &sub.Total, &created); err != nil {
			return nil, err
		}
		if t, err := time.Parse(time.RFC3339Nano, created); err == nil {
			sub.CreatedAt = t
		}
		out = append(out, sub)
	}
	return out, rows.Err()
}

// CountInteractions returns how many interactions with the given action were
// indexed. An empty action counts all of them.
func (s *SQLiteIndex) CountInteractions(ctx context.Context, action string) (int, error) {
	var n int
	var err error
	if action == "" {
		err = s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM interactions`).Scan(&n)
	} else {
		err = s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM interactions WHERE action=?`, action).Scan(&n)
	}
	return n, err
}

// LastTick returns the newest indexed tick and its digest.
func (s *SQLiteIndex) LastTick(ctx context.Context) (tick uint64, digest string, ok bool, err error) {
	var t int64
	err = s.db.QueryRowContext(ctx, `SELECT tick,digest FROM ticks ORDER BY tick DESC LIMIT 1`).Scan(&t, &digest)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return 0, "", false, nil
		}
		return 0, "", false, err
	}
	return uint64(t), digest, true, nil
}

func (s *SQLiteIndex) CatalogDigest(ctx context.Context, name string) (string, error) {
	var d string
	err := s.db.QueryRowContext(ctx, `SELECT digest FROM catalogs WHERE name=?`, name).Scan(&d)
	return d, err
}
