package models

import (
	"testing"
	"time"
)

func TestArchiveIndex_Upsert(t *testing.T) {
	t.Run("appends new months oldest first", func(t *testing.T) {
		index := &ArchiveIndex{Client: "acme"}

		index.Upsert(ArchiveEntry{Month: "2025_05_May", ContentHash: "aaa"})
		index.Upsert(ArchiveEntry{Month: "2025_03_March", ContentHash: "bbb"})
		index.Upsert(ArchiveEntry{Month: "2025_04_April", ContentHash: "ccc"})

		if len(index.Entries) != 3 {
			t.Fatalf("expected 3 entries, got %d", len(index.Entries))
		}
		want := []string{"2025_03_March", "2025_04_April", "2025_05_May"}
		for i, m := range want {
			if index.Entries[i].Month != m {
				t.Errorf("entry %d: expected %s, got %s", i, m, index.Entries[i].Month)
			}
		}
	})

	t.Run("supersedes same month in place", func(t *testing.T) {
		index := &ArchiveIndex{Client: "acme"}
		index.Upsert(ArchiveEntry{Month: "2025_04_April", ContentHash: "old"})
		index.Upsert(ArchiveEntry{Month: "2025_05_May", ContentHash: "may"})

		superseded := index.Upsert(ArchiveEntry{Month: "2025_04_April", ContentHash: "new"})

		if !superseded {
			t.Error("expected supersede to be reported")
		}
		if len(index.Entries) != 2 {
			t.Fatalf("expected index length unchanged at 2, got %d", len(index.Entries))
		}
		if index.Entries[0].Month != "2025_04_April" || index.Entries[0].ContentHash != "new" {
			t.Errorf("expected April superseded in place, got %+v", index.Entries[0])
		}
	})

	t.Run("insert reports no supersede", func(t *testing.T) {
		index := &ArchiveIndex{}
		if index.Upsert(ArchiveEntry{Month: "2025_05_May"}) {
			t.Error("first insert should not report supersede")
		}
	})
}

func TestArchiveIndex_UpsertKeepsDeployedAt(t *testing.T) {
	index := &ArchiveIndex{}
	first := time.Date(2025, 5, 1, 9, 0, 0, 0, time.UTC)
	second := first.Add(24 * time.Hour)

	index.Upsert(ArchiveEntry{Month: "2025_05_May", DeployedAt: first})
	index.Upsert(ArchiveEntry{Month: "2025_05_May", DeployedAt: second})

	if !index.Entries[0].DeployedAt.Equal(second) {
		t.Errorf("expected superseding entry's timestamp, got %v", index.Entries[0].DeployedAt)
	}
}
