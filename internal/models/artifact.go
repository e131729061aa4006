package models

import "time"

// ReportArtifact is the rendered output for one job: a self-contained HTML
// report, a PDF export derived from the same canonical content, and the
// static assets (stylesheet, copied screenshots).
//
// Immutable once produced. ContentHash is a sha256 digest of the canonical
// content (generation timestamp excluded) so identical inputs produce
// identical hashes, which makes redeployment idempotent.
type ReportArtifact struct {
	Client      string            `json:"client"`
	Month       string            `json:"month"`
	HTML        []byte            `json:"-"`
	PDF         []byte            `json:"-"`
	Assets      map[string][]byte `json:"-"`
	ContentHash string            `json:"content_hash"`
	GeneratedAt time.Time         `json:"generated_at"`
}

// ArchiveEntry is one past report reference in a client's archive.
type ArchiveEntry struct {
	Month       string    `json:"month"`
	ContentHash string    `json:"content_hash"`
	URL         string    `json:"url"`
	DeployedAt  time.Time `json:"deployed_at"`
}

// ArchiveIndex is the per-client ordered sequence of past reports.
// Entries are kept oldest-first by month token and are never pruned;
// re-running a month supersedes its entry in place rather than appending.
type ArchiveIndex struct {
	Client  string         `json:"client"`
	Entries []ArchiveEntry `json:"entries"`
}

// Upsert adds or replaces the entry for its month, keeping oldest-first
// order by month token. Returns true when an existing month was superseded.
func (a *ArchiveIndex) Upsert(entry ArchiveEntry) bool {
	for i, e := range a.Entries {
		if e.Month == entry.Month {
			a.Entries[i] = entry
			return true
		}
	}
	// Insert keeping month-token order.
	at := len(a.Entries)
	for i, e := range a.Entries {
		if entry.Month < e.Month {
			at = i
			break
		}
	}
	a.Entries = append(a.Entries, ArchiveEntry{})
	copy(a.Entries[at+1:], a.Entries[at:])
	a.Entries[at] = entry
	return false
}

// DeploymentRecord records one successful deployment of an artifact.
// One-to-one with a deployed artifact content hash.
type DeploymentRecord struct {
	ContentHash string    `json:"content_hash" badgerhold:"key"`
	URL         string    `json:"url"`
	DeployedAt  time.Time `json:"deployed_at"`
	Target      string    `json:"target"` // hosting target identifier ("local", "s3")
}
