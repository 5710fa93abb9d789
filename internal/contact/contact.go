// Package contact hands a finished build over to the studio: a mail-client
// link for touch devices, the raw text for clipboard copy, and a record in
// the outbox.
package contact

import (
	"time"

	"voxelyard.dev/internal/sim/manifest"
)

type Submission struct {
	Session   string    `json:"session"`
	Recipient string    `json:"recipient"`
	Subject   string    `json:"subject"`
	Body      string    `json:"body"`
	Mailto    string    `json:"mailto"`
	Total     int       `json:"total"`
	CreatedAt time.Time `json:"created_at"`
}

// Recorder stores submissions. Implementations must not block the caller.
type Recorder interface {
	RecordSubmission(s Submission)
}

func NewSubmission(session string, c manifest.Contact, m manifest.Manifest) Submission {
	return Submission{
		Session:   session,
		Recipient: c.Address,
		Subject:   c.Subject,
		Body:      m.Text,
		Mailto:    manifest.MailtoURL(c, m.Text),
		Total:     m.Total,
		CreatedAt: m.GeneratedAt,
	}
}

// Desk builds submissions for one session and records them when a recorder
// is configured.
type Desk struct {
	Session  string
	Contact  manifest.Contact
	Recorder Recorder
}

func (d Desk) Submit(m manifest.Manifest) Submission {
	s := NewSubmission(d.Session, d.Contact, m)
	if d.Recorder != nil {
		d.Recorder.RecordSubmission(s)
	}
	return s
}
