package jobs

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/quimbydigital/client-report-automations/internal/common"
	"github.com/quimbydigital/client-report-automations/internal/interfaces"
	"github.com/quimbydigital/client-report-automations/internal/models"
	"github.com/quimbydigital/client-report-automations/internal/services/inputs"
	"github.com/quimbydigital/client-report-automations/internal/services/publish"
)

type fakeDocs struct {
	kpis  *models.KpiSet
	err   error
	block chan struct{} // when set, Extract waits until the channel closes
}

func (f *fakeDocs) Extract(ctx context.Context, _ string) (*models.KpiSet, error) {
	if f.block != nil {
		select {
		case <-f.block:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	if f.err != nil {
		return nil, f.err
	}
	return f.kpis, nil
}

type fakeMetrics struct {
	metrics  []models.ExtractedMetric
	warnings []string
}

func (f *fakeMetrics) Extract(_ context.Context, _ []models.PlatformScreenshot) ([]models.ExtractedMetric, []string) {
	return f.metrics, f.warnings
}

type fakeInsights struct{}

func (f *fakeInsights) Generate(_ *models.KpiSet, _, _ []models.ExtractedMetric, highlights string) (*models.InsightBundle, error) {
	takeaway := models.Insight{Statement: "Engagement Rate met target.", Category: models.InsightKpiGap}
	return &models.InsightBundle{KeyTakeaway: takeaway, Insights: []models.Insight{takeaway}}, nil
}

type fakeRenderer struct{}

func (f *fakeRenderer) Render(in *interfaces.RenderInput) (*models.ReportArtifact, error) {
	return &models.ReportArtifact{
		Client:      in.Client,
		Month:       in.Month,
		HTML:        []byte("<html></html>"),
		PDF:         []byte("%PDF-fake"),
		ContentHash: "deadbeefdeadbeefdeadbeefdeadbeefdeadbeefdeadbeefdeadbeefdeadbeef",
	}, nil
}

type fakePublisher struct {
	mu       sync.Mutex
	calls    int
	failN    int  // fail the first N calls
	failHard bool // failures are permanent instead of transient
}

func (f *fakePublisher) Publish(_ context.Context, artifact *models.ReportArtifact) (*models.DeploymentRecord, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	if f.calls <= f.failN {
		return nil, &publish.DeploymentError{Transient: !f.failHard, Reason: "upload"}
	}
	return &models.DeploymentRecord{
		ContentHash: artifact.ContentHash,
		URL:         "https://reports.test/acme/" + artifact.Month + "/report.html",
		Target:      "fake",
	}, nil
}

func (f *fakePublisher) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

type fakeNotifier struct {
	mu      sync.Mutex
	ready   int
	missing int
	failed  int

	lastDegraded bool
	lastMissing  []string
}

func (f *fakeNotifier) NotifyReportReady(_ context.Context, _, _, _ string, degraded bool, _ []string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.ready++
	f.lastDegraded = degraded
	return nil
}

func (f *fakeNotifier) NotifyMissingData(_ context.Context, _, _ string, missing []string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.missing++
	f.lastMissing = missing
	return nil
}

func (f *fakeNotifier) NotifyError(_ context.Context, _, _, _ string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.failed++
	return nil
}

func (f *fakeNotifier) counts() (ready, missing, failed int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.ready, f.missing, f.failed
}

type fakeJobStore struct {
	mu   sync.Mutex
	jobs map[string]models.ReportJob
}

func newFakeJobStore() *fakeJobStore {
	return &fakeJobStore{jobs: make(map[string]models.ReportJob)}
}

func (f *fakeJobStore) SaveJob(_ context.Context, job *models.ReportJob) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.jobs[job.Key()] = *job
	return nil
}

func (f *fakeJobStore) GetJob(_ context.Context, client, month string) (*models.ReportJob, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	job, ok := f.jobs[models.JobKey(client, month)]
	if !ok {
		return nil, errors.New("job not found")
	}
	return &job, nil
}

func (f *fakeJobStore) ListJobs(_ context.Context) ([]*models.ReportJob, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []*models.ReportJob
	for key := range f.jobs {
		job := f.jobs[key]
		out = append(out, &job)
	}
	return out, nil
}

type fakeIndexStore struct{}

func (f *fakeIndexStore) GetIndex(_ context.Context, client string) (*models.ArchiveIndex, error) {
	return &models.ArchiveIndex{Client: client}, nil
}
func (f *fakeIndexStore) UpsertEntry(_ context.Context, _ string, _ models.ArchiveEntry) error {
	return nil
}
func (f *fakeIndexStore) GetDeployment(_ context.Context, _ string) (*models.DeploymentRecord, error) {
	return nil, nil
}
func (f *fakeIndexStore) SaveDeployment(_ context.Context, _ *models.DeploymentRecord) error {
	return nil
}

// harness wires an orchestrator over a real on-disk client layout.
type harness struct {
	orch      *Orchestrator
	store     *fakeJobStore
	notifier  *fakeNotifier
	publisher *fakePublisher
	docs      *fakeDocs
	root      string
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	config := common.NewDefaultConfig()
	config.Jobs.StageTimeout = "10s"
	config.Jobs.JobDeadline = "30s"
	config.Jobs.RetryBackoff = "1ms"
	config.Jobs.MaxRetries = 2

	h := &harness{
		store:    newFakeJobStore(),
		notifier: &fakeNotifier{},
		publisher: &fakePublisher{},
		docs: &fakeDocs{kpis: &models.KpiSet{Kpis: []models.Kpi{
			{Metric: "Engagement Rate", Target: 5, Unit: "%"},
		}}},
		root: t.TempDir(),
	}

	h.orch = NewOrchestrator(config, Deps{
		Scanner:   inputs.NewScanner(h.root, common.GetLogger()),
		Documents: h.docs,
		Metrics: &fakeMetrics{metrics: []models.ExtractedMetric{
			{Platform: models.PlatformInstagram, Name: "Engagement Rate", Value: 6.2, Unit: "%", Confidence: 0.9, Verified: true},
		}},
		Insights:  &fakeInsights{},
		Renderer:  &fakeRenderer{},
		Publisher: h.publisher,
		Notifier:  h.notifier,
		JobStore:  h.store,
		Archive:   &fakeIndexStore{},
	}, common.GetLogger())
	return h
}

func (h *harness) layoutClient(t *testing.T, client, month string) {
	t.Helper()
	dir := filepath.Join(h.root, client)
	files := map[string]string{
		filepath.Join(dir, "Strategy_Deck", "strategy.pdf"):              "%PDF-fake",
		filepath.Join(dir, "Monthly_Data", month, "instagram_may.png"):   "png",
		filepath.Join(dir, "Monthly_Data", month, "may_highlights.txt"):  "Reel went viral.",
	}
	for path, content := range files {
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			t.Fatal(err)
		}
		if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
			t.Fatal(err)
		}
	}
}

func TestOrchestrator_Submit(t *testing.T) {
	ctx := context.Background()

	t.Run("runs the pipeline to completion", func(t *testing.T) {
		h := newHarness(t)
		h.layoutClient(t, "acme", "2025_05_May")

		job, err := h.orch.Submit(ctx, "acme", "2025_05_May")
		if err != nil {
			t.Fatal(err)
		}
		if job.Status != models.JobStatusPending {
			t.Errorf("submitted job status = %s, want pending", job.Status)
		}
		h.orch.Wait()

		stored, err := h.store.GetJob(ctx, "acme", "2025_05_May")
		if err != nil {
			t.Fatal(err)
		}
		if stored.Status != models.JobStatusComplete {
			t.Fatalf("status = %s (%s), want complete", stored.Status, stored.Error)
		}
		if stored.URL == "" {
			t.Error("completed job has no URL")
		}
		if stored.Degraded {
			t.Errorf("full inputs should not degrade: %v", stored.Warnings)
		}

		ready, missing, failed := h.notifier.counts()
		if ready != 1 || missing != 0 || failed != 0 {
			t.Errorf("notifications: ready=%d missing=%d failed=%d, want exactly one ready", ready, missing, failed)
		}
	})

	t.Run("resolves the latest month when none given", func(t *testing.T) {
		h := newHarness(t)
		h.layoutClient(t, "acme", "2025_04_April")
		h.layoutClient(t, "acme", "2025_05_May")

		job, err := h.orch.Submit(ctx, "acme", "")
		if err != nil {
			t.Fatal(err)
		}
		if job.Month != "2025_05_May" {
			t.Errorf("resolved month = %s", job.Month)
		}
		h.orch.Wait()
	})

	t.Run("rejects a duplicate in-flight submit", func(t *testing.T) {
		h := newHarness(t)
		h.layoutClient(t, "acme", "2025_05_May")
		h.docs.block = make(chan struct{})

		if _, err := h.orch.Submit(ctx, "acme", "2025_05_May"); err != nil {
			t.Fatal(err)
		}
		if _, err := h.orch.Submit(ctx, "acme", "2025_05_May"); !errors.Is(err, ErrJobAlreadyRunning) {
			t.Errorf("err = %v, want ErrJobAlreadyRunning", err)
		}

		close(h.docs.block)
		h.orch.Wait()

		// The month is free again once the first run finished.
		if _, err := h.orch.Submit(ctx, "acme", "2025_05_May"); err != nil {
			t.Errorf("resubmit after completion failed: %v", err)
		}
		h.orch.Wait()
	})

	t.Run("partial inputs complete degraded", func(t *testing.T) {
		h := newHarness(t)
		// Screenshots and highlights, no strategy deck.
		dir := filepath.Join(h.root, "acme", "Monthly_Data", "2025_05_May")
		if err := os.MkdirAll(dir, 0o755); err != nil {
			t.Fatal(err)
		}
		if err := os.WriteFile(filepath.Join(dir, "ig.png"), []byte("png"), 0o644); err != nil {
			t.Fatal(err)
		}

		if _, err := h.orch.Submit(ctx, "acme", "2025_05_May"); err != nil {
			t.Fatal(err)
		}
		h.orch.Wait()

		stored, err := h.store.GetJob(ctx, "acme", "2025_05_May")
		if err != nil {
			t.Fatal(err)
		}
		if stored.Status != models.JobStatusComplete {
			t.Fatalf("status = %s (%s), want complete", stored.Status, stored.Error)
		}
		if !stored.Degraded || len(stored.Warnings) == 0 {
			t.Errorf("partial inputs should degrade: degraded=%v warnings=%v", stored.Degraded, stored.Warnings)
		}

		ready, missing, failed := h.notifier.counts()
		if ready != 1 || missing != 0 || failed != 0 {
			t.Errorf("notifications: ready=%d missing=%d failed=%d", ready, missing, failed)
		}
		if !h.notifier.lastDegraded {
			t.Error("ready notification should carry the degraded flag")
		}
	})

	t.Run("no inputs fails with a missing-data notification", func(t *testing.T) {
		h := newHarness(t)
		if err := os.MkdirAll(filepath.Join(h.root, "acme"), 0o755); err != nil {
			t.Fatal(err)
		}

		if _, err := h.orch.Submit(ctx, "acme", "2025_05_May"); err != nil {
			t.Fatal(err)
		}
		h.orch.Wait()

		stored, err := h.store.GetJob(ctx, "acme", "2025_05_May")
		if err != nil {
			t.Fatal(err)
		}
		if stored.Status != models.JobStatusFailed {
			t.Fatalf("status = %s, want failed", stored.Status)
		}

		ready, missing, failed := h.notifier.counts()
		if ready != 0 || missing != 1 || failed != 0 {
			t.Errorf("notifications: ready=%d missing=%d failed=%d, want exactly one missing-data", ready, missing, failed)
		}
		if len(h.notifier.lastMissing) != 3 {
			t.Errorf("missing items = %v", h.notifier.lastMissing)
		}
	})

	t.Run("zero extracted data fails the job", func(t *testing.T) {
		h := newHarness(t)
		h.layoutClient(t, "acme", "2025_05_May")
		h.docs.kpis = &models.KpiSet{}
		h.orch.metrics = &fakeMetrics{warnings: []string{"screenshot instagram_may.png: OCR failed"}}

		if _, err := h.orch.Submit(ctx, "acme", "2025_05_May"); err != nil {
			t.Fatal(err)
		}
		h.orch.Wait()

		stored, err := h.store.GetJob(ctx, "acme", "2025_05_May")
		if err != nil {
			t.Fatal(err)
		}
		if stored.Status != models.JobStatusFailed || stored.FailedStage != models.StageExtract {
			t.Fatalf("status = %s, failed stage = %s", stored.Status, stored.FailedStage)
		}

		ready, missing, failed := h.notifier.counts()
		if ready != 0 || missing != 0 || failed != 1 {
			t.Errorf("notifications: ready=%d missing=%d failed=%d, want exactly one error", ready, missing, failed)
		}
	})
}

func TestOrchestrator_Deploy(t *testing.T) {
	ctx := context.Background()

	t.Run("transient failures are retried", func(t *testing.T) {
		h := newHarness(t)
		h.layoutClient(t, "acme", "2025_05_May")
		h.publisher.failN = 2

		if _, err := h.orch.Submit(ctx, "acme", "2025_05_May"); err != nil {
			t.Fatal(err)
		}
		h.orch.Wait()

		stored, err := h.store.GetJob(ctx, "acme", "2025_05_May")
		if err != nil {
			t.Fatal(err)
		}
		if stored.Status != models.JobStatusComplete {
			t.Fatalf("status = %s (%s), want complete after retries", stored.Status, stored.Error)
		}
		if h.publisher.callCount() != 3 {
			t.Errorf("publish calls = %d, want 3", h.publisher.callCount())
		}
	})

	t.Run("retries exhausted fails the job", func(t *testing.T) {
		h := newHarness(t)
		h.layoutClient(t, "acme", "2025_05_May")
		h.publisher.failN = 10

		if _, err := h.orch.Submit(ctx, "acme", "2025_05_May"); err != nil {
			t.Fatal(err)
		}
		h.orch.Wait()

		stored, err := h.store.GetJob(ctx, "acme", "2025_05_May")
		if err != nil {
			t.Fatal(err)
		}
		if stored.Status != models.JobStatusFailed || stored.FailedStage != models.StageDeploy {
			t.Fatalf("status = %s, failed stage = %s", stored.Status, stored.FailedStage)
		}
		if h.publisher.callCount() != 3 {
			t.Errorf("publish calls = %d, want maxRetries+1", h.publisher.callCount())
		}
	})

	t.Run("permanent failure is not retried", func(t *testing.T) {
		h := newHarness(t)
		h.layoutClient(t, "acme", "2025_05_May")
		h.publisher.failN = 10
		h.publisher.failHard = true

		if _, err := h.orch.Submit(ctx, "acme", "2025_05_May"); err != nil {
			t.Fatal(err)
		}
		h.orch.Wait()

		if h.publisher.callCount() != 1 {
			t.Errorf("publish calls = %d, want 1 for a permanent failure", h.publisher.callCount())
		}
		_, _, failed := h.notifier.counts()
		if failed != 1 {
			t.Errorf("error notifications = %d, want 1", failed)
		}
	})
}

func TestOrchestrator_SubmitAll(t *testing.T) {
	h := newHarness(t)
	h.layoutClient(t, "acme", "2025_05_May")
	h.layoutClient(t, "zenith", "2025_05_May")

	jobs, err := h.orch.SubmitAll(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if len(jobs) != 2 {
		t.Fatalf("submitted %d jobs, want 2", len(jobs))
	}
	h.orch.Wait()

	for _, client := range []string{"acme", "zenith"} {
		stored, err := h.store.GetJob(context.Background(), client, "2025_05_May")
		if err != nil {
			t.Fatal(err)
		}
		if stored.Status != models.JobStatusComplete {
			t.Errorf("%s status = %s (%s)", client, stored.Status, stored.Error)
		}
	}
}
