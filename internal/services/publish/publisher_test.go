package publish

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/quimbydigital/client-report-automations/internal/common"
	"github.com/quimbydigital/client-report-automations/internal/models"
)

type fakeTarget struct {
	puts    map[string][]byte
	failKey string
}

func newFakeTarget() *fakeTarget {
	return &fakeTarget{puts: make(map[string][]byte)}
}

func (f *fakeTarget) Put(_ context.Context, key string, data []byte, _ string) error {
	if f.failKey != "" && key == f.failKey {
		return &DeploymentError{Transient: true, Reason: "upload " + key}
	}
	f.puts[key] = data
	return nil
}

func (f *fakeTarget) URLFor(key string) string { return "https://reports.test/" + key }
func (f *fakeTarget) Name() string             { return "fake" }

type fakeArchive struct {
	deployments map[string]*models.DeploymentRecord
	indexes     map[string]*models.ArchiveIndex
	upserts     int
}

func newFakeArchive() *fakeArchive {
	return &fakeArchive{
		deployments: make(map[string]*models.DeploymentRecord),
		indexes:     make(map[string]*models.ArchiveIndex),
	}
}

func (f *fakeArchive) GetIndex(_ context.Context, client string) (*models.ArchiveIndex, error) {
	if idx, ok := f.indexes[client]; ok {
		return idx, nil
	}
	return &models.ArchiveIndex{Client: client}, nil
}

func (f *fakeArchive) UpsertEntry(_ context.Context, client string, entry models.ArchiveEntry) error {
	f.upserts++
	idx, ok := f.indexes[client]
	if !ok {
		idx = &models.ArchiveIndex{Client: client}
		f.indexes[client] = idx
	}
	idx.Upsert(entry)
	return nil
}

func (f *fakeArchive) GetDeployment(_ context.Context, hash string) (*models.DeploymentRecord, error) {
	return f.deployments[hash], nil
}

func (f *fakeArchive) SaveDeployment(_ context.Context, record *models.DeploymentRecord) error {
	f.deployments[record.ContentHash] = record
	return nil
}

func sampleArtifact() *models.ReportArtifact {
	return &models.ReportArtifact{
		Client:      "Acme Corp",
		Month:       "2025_05_May",
		HTML:        []byte("<html>report</html>"),
		PDF:         []byte("%PDF-fake"),
		Assets:      map[string][]byte{"assets/style.css": []byte("body{}")},
		ContentHash: "aabbccddeeff00112233445566778899aabbccddeeff00112233445566778899",
	}
}

func newTestPublisher(tgt target, archive *fakeArchive) *Publisher {
	return &Publisher{
		target:  tgt,
		archive: archive,
		logger:  common.GetLogger(),
	}
}

func TestPublisher_Publish(t *testing.T) {
	ctx := context.Background()

	t.Run("uploads files and records deployment", func(t *testing.T) {
		tgt := newFakeTarget()
		archive := newFakeArchive()
		publisher := newTestPublisher(tgt, archive)

		record, err := publisher.Publish(ctx, sampleArtifact())
		require.NoError(t, err)

		assert.Equal(t, "https://reports.test/acme-corp/2025_05_May/report.html", record.URL)
		assert.Equal(t, "fake", record.Target)
		assert.Len(t, tgt.puts, 3)
		assert.Contains(t, tgt.puts, "acme-corp/2025_05_May/report.html")
		assert.Contains(t, tgt.puts, "acme-corp/2025_05_May/report.pdf")
		assert.Contains(t, tgt.puts, "acme-corp/2025_05_May/assets/style.css")

		idx := archive.indexes["Acme Corp"]
		require.NotNil(t, idx)
		require.Len(t, idx.Entries, 1)
		assert.Equal(t, "2025_05_May", idx.Entries[0].Month)
	})

	t.Run("second publish with the same hash skips upload", func(t *testing.T) {
		tgt := newFakeTarget()
		archive := newFakeArchive()
		publisher := newTestPublisher(tgt, archive)

		artifact := sampleArtifact()
		first, err := publisher.Publish(ctx, artifact)
		require.NoError(t, err)

		uploadsAfterFirst := len(tgt.puts)
		tgt.puts = make(map[string][]byte)

		second, err := publisher.Publish(ctx, artifact)
		require.NoError(t, err)

		assert.Equal(t, 3, uploadsAfterFirst)
		assert.Empty(t, tgt.puts, "no files should be re-uploaded")
		assert.Equal(t, first.URL, second.URL)
		assert.Equal(t, first.DeployedAt, second.DeployedAt)
		assert.Equal(t, 2, archive.upserts, "archive entry is upserted on both runs")
	})

	t.Run("re-running a month supersedes its archive entry", func(t *testing.T) {
		tgt := newFakeTarget()
		archive := newFakeArchive()
		publisher := newTestPublisher(tgt, archive)

		first := sampleArtifact()
		_, err := publisher.Publish(ctx, first)
		require.NoError(t, err)

		second := sampleArtifact()
		second.HTML = []byte("<html>revised</html>")
		second.ContentHash = "ffeeddccbbaa99887766554433221100ffeeddccbbaa99887766554433221100"
		_, err = publisher.Publish(ctx, second)
		require.NoError(t, err)

		idx := archive.indexes["Acme Corp"]
		require.Len(t, idx.Entries, 1, "same month must supersede, not append")
		assert.Equal(t, second.ContentHash, idx.Entries[0].ContentHash)
	})

	t.Run("upload failure surfaces a deployment error", func(t *testing.T) {
		tgt := newFakeTarget()
		tgt.failKey = "acme-corp/2025_05_May/report.pdf"
		archive := newFakeArchive()
		publisher := newTestPublisher(tgt, archive)

		_, err := publisher.Publish(ctx, sampleArtifact())
		require.Error(t, err)

		var depErr *DeploymentError
		require.ErrorAs(t, err, &depErr)
		assert.True(t, depErr.Transient)
		assert.Empty(t, archive.deployments, "failed deployment must not be recorded")
	})
}

func TestSlugify(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"Acme Corp", "acme-corp"},
		{"  Quimby Digital  ", "quimby-digital"},
		{"Client_42", "client-42"},
		{"ACME", "acme"},
	}
	for _, tt := range tests {
		if got := slugify(tt.in); got != tt.want {
			t.Errorf("slugify(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestContentTypeFor(t *testing.T) {
	tests := []struct {
		name, want string
	}{
		{"report.html", "text/html; charset=utf-8"},
		{"report.pdf", "application/pdf"},
		{"assets/style.css", "text/css"},
		{"assets/shot.png", "image/png"},
		{"assets/shot.JPG", "image/jpeg"},
		{"data.bin", "application/octet-stream"},
	}
	for _, tt := range tests {
		if got := contentTypeFor(tt.name); got != tt.want {
			t.Errorf("contentTypeFor(%q) = %q, want %q", tt.name, got, tt.want)
		}
	}
}
