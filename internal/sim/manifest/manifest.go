// Package manifest summarises a build: how many blocks of each type were
// placed, formatted as the hand-off message for the contact collaborator.
package manifest

import (
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"voxelyard.dev/internal/sim/catalogs"
	"voxelyard.dev/internal/sim/inventory"
)

// ErrNothingPlaced is returned when a manifest is requested for an empty
// build. Callers surface it to the user as a rejected action.
var ErrNothingPlaced = errors.New("manifest: no blocks placed")

type Entry struct {
	TypeID string `json:"type_id"`
	Name   string `json:"name"`
	Count  int    `json:"count"`
}

type Manifest struct {
	Entries     []Entry   `json:"entries"`
	Total       int       `json:"total"`
	GeneratedAt time.Time `json:"generated_at"`
	Text        string    `json:"text"`
}

// Contact addresses the hand-off message.
type Contact struct {
	Address  string
	TeamName string
	Subject  string
}

const dateLayout = "1/2/2006"

// Generate groups placed blocks by type in catalog order. Blocks whose type
// is not in the catalog are ignored, and do not count towards the total.
func Generate(placed []inventory.PlacedBlock, cat *catalogs.BlockCatalog, now time.Time, c Contact) (Manifest, error) {
	counts := make(map[string]int, cat.Len())
	for _, b := range placed {
		if _, ok := cat.Get(b.TypeID); ok {
			counts[b.TypeID]++
		}
	}
	m := Manifest{GeneratedAt: now}
	for _, def := range cat.All() {
		n := counts[def.ID]
		if n == 0 {
			continue
		}
		m.Entries = append(m.Entries, Entry{TypeID: def.ID, Name: def.Name, Count: n})
		m.Total += n
	}
	if m.Total == 0 {
		return Manifest{}, ErrNothingPlaced
	}
	m.Text = render(m, c)
	return m, nil
}

func render(m Manifest, c Contact) string {
	team := c.TeamName
	if team == "" {
		team = "Project"
	}
	var b strings.Builder
	fmt.Fprintf(&b, "Subject: Interactive Project Build Submission - %s\n\n", m.GeneratedAt.Format(dateLayout))
	fmt.Fprintf(&b, "Dear %s Team,\n\n", team)
	b.WriteString("I have used your interactive builder to design a preliminary project structure. ")
	b.WriteString("Below is the technical summary of the required modules and components:\n\n")
	b.WriteString("--- PROJECT MANIFEST ---\n")
	for _, e := range m.Entries {
		fmt.Fprintf(&b, "- %s x%d\n", e.Name, e.Count)
	}
	b.WriteString("------------------------\n\n")
	fmt.Fprintf(&b, "Total Modules: %d\n\n", m.Total)
	b.WriteString("I would like to request a consultation to discuss the feasibility and implementation of this configuration.\n\n")
	b.WriteString("Best regards,\n[Your Name]")
	return b.String()
}

// MailtoURL builds the mail-client link carrying subject and body.
func MailtoURL(c Contact, body string) string {
	q := url.Values{}
	q.Set("subject", c.Subject)
	q.Set("body", body)
	u := url.URL{
		Scheme:   "mailto",
		Opaque:   c.Address,
		RawQuery: strings.ReplaceAll(q.Encode(), "+", "%20"),
	}
	return u.String()
}
