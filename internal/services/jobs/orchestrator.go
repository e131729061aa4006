package jobs

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"github.com/ternarybob/arbor"
	"golang.org/x/sync/errgroup"

	"github.com/quimbydigital/client-report-automations/internal/common"
	"github.com/quimbydigital/client-report-automations/internal/interfaces"
	"github.com/quimbydigital/client-report-automations/internal/models"
	"github.com/quimbydigital/client-report-automations/internal/services/inputs"
	"github.com/quimbydigital/client-report-automations/internal/services/publish"
)

// ErrJobAlreadyRunning rejects a submit for a (client, month) pair that
// already has a job in flight.
var ErrJobAlreadyRunning = errors.New("a job for this client and month is already running")

// Orchestrator drives report jobs through the pipeline:
// scan inputs, extract, analyze, render, deploy, notify.
//
// One job per (client, month) runs at a time; re-submitting a finished
// month starts a fresh run that supersedes the previous report.
type Orchestrator struct {
	config    *common.Config
	scanner   *inputs.Scanner
	documents interfaces.DocumentExtractor
	metrics   interfaces.MetricExtractor
	insights  interfaces.InsightEngine
	renderer  interfaces.ReportRenderer
	publisher interfaces.Publisher
	notifier  interfaces.Notifier
	jobStore  interfaces.JobStorage
	archive   interfaces.ArchiveStorage
	logger    arbor.ILogger

	mu       sync.Mutex
	inFlight map[string]struct{}

	stageTimeout time.Duration
	jobDeadline  time.Duration
	retryBackoff time.Duration
	maxRetries   int

	wg sync.WaitGroup
}

// Deps bundles the orchestrator's collaborators.
type Deps struct {
	Scanner   *inputs.Scanner
	Documents interfaces.DocumentExtractor
	Metrics   interfaces.MetricExtractor
	Insights  interfaces.InsightEngine
	Renderer  interfaces.ReportRenderer
	Publisher interfaces.Publisher
	Notifier  interfaces.Notifier
	JobStore  interfaces.JobStorage
	Archive   interfaces.ArchiveStorage
}

func NewOrchestrator(config *common.Config, deps Deps, logger arbor.ILogger) *Orchestrator {
	stageTimeout, _ := time.ParseDuration(config.Jobs.StageTimeout)
	jobDeadline, _ := time.ParseDuration(config.Jobs.JobDeadline)
	retryBackoff, _ := time.ParseDuration(config.Jobs.RetryBackoff)

	return &Orchestrator{
		config:       config,
		scanner:      deps.Scanner,
		documents:    deps.Documents,
		metrics:      deps.Metrics,
		insights:     deps.Insights,
		renderer:     deps.Renderer,
		publisher:    deps.Publisher,
		notifier:     deps.Notifier,
		jobStore:     deps.JobStore,
		archive:      deps.Archive,
		logger:       logger,
		inFlight:     make(map[string]struct{}),
		stageTimeout: stageTimeout,
		jobDeadline:  jobDeadline,
		retryBackoff: retryBackoff,
		maxRetries:   config.Jobs.MaxRetries,
	}
}

// Submit starts a job for a client month. An empty month resolves to the
// client's latest month directory. Returns the pending job immediately;
// the pipeline runs in the background.
func (o *Orchestrator) Submit(ctx context.Context, client, month string) (*models.ReportJob, error) {
	if month == "" {
		latest, err := o.scanner.LatestMonth(client)
		if err != nil {
			return nil, err
		}
		month = latest
	}

	key := models.JobKey(client, month)

	o.mu.Lock()
	if _, running := o.inFlight[key]; running {
		o.mu.Unlock()
		return nil, fmt.Errorf("%w: %s %s", ErrJobAlreadyRunning, client, month)
	}
	o.inFlight[key] = struct{}{}
	o.mu.Unlock()

	now := time.Now()
	job := &models.ReportJob{
		ID:        common.NewJobID(),
		Client:    client,
		Month:     month,
		Status:    models.JobStatusPending,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := o.jobStore.SaveJob(ctx, job); err != nil {
		o.release(key)
		return nil, fmt.Errorf("failed to save job: %w", err)
	}

	o.logger.Info().
		Str("job_id", job.ID).
		Str("client", client).
		Str("month", month).
		Msg("Job submitted")

	o.wg.Add(1)
	go func() {
		defer o.wg.Done()
		defer o.release(key)
		o.run(job)
	}()

	snapshot := *job
	return &snapshot, nil
}

// SubmitAll submits a job for every client directory's latest month.
// Clients whose month is already running are skipped.
func (o *Orchestrator) SubmitAll(ctx context.Context) ([]*models.ReportJob, error) {
	clients, err := o.scanner.ListClients()
	if err != nil {
		return nil, err
	}

	var submitted []*models.ReportJob
	for _, client := range clients {
		job, err := o.Submit(ctx, client, "")
		if err != nil {
			if errors.Is(err, ErrJobAlreadyRunning) {
				o.logger.Info().Str("client", client).Msg("Skipping client, job already running")
				continue
			}
			o.logger.Warn().Err(err).Str("client", client).Msg("Failed to submit client job")
			continue
		}
		submitted = append(submitted, job)
	}
	return submitted, nil
}

// Status returns the stored job for a client month.
func (o *Orchestrator) Status(ctx context.Context, client, month string) (*models.ReportJob, error) {
	return o.jobStore.GetJob(ctx, client, month)
}

// List returns all stored jobs, newest first.
func (o *Orchestrator) List(ctx context.Context) ([]*models.ReportJob, error) {
	return o.jobStore.ListJobs(ctx)
}

// Wait blocks until all in-flight jobs have finished. Used on shutdown.
func (o *Orchestrator) Wait() {
	o.wg.Wait()
}

func (o *Orchestrator) release(key string) {
	o.mu.Lock()
	delete(o.inFlight, key)
	o.mu.Unlock()
}

// run executes the pipeline for one job. It owns the job's lifecycle from
// pending to a terminal state and sends exactly one notification.
func (o *Orchestrator) run(job *models.ReportJob) {
	ctx, cancel := context.WithTimeout(context.Background(), o.jobDeadline)
	defer cancel()

	in, err := o.scanner.Scan(job.Client, job.Month)
	if err != nil {
		o.fail(ctx, job, models.StageExtract, err, in)
		return
	}
	job.SourceDir = in.ClientDir
	for _, item := range in.Missing {
		job.AddWarning("missing input: %s", item)
	}

	kpis, extracted, ok := o.stageExtract(ctx, job, in)
	if !ok {
		return
	}

	bundle, ok := o.stageAnalyze(ctx, job, in, kpis, extracted)
	if !ok {
		return
	}

	artifact, ok := o.stageRender(ctx, job, in, bundle, extracted)
	if !ok {
		return
	}

	record, ok := o.stageDeploy(ctx, job, artifact)
	if !ok {
		return
	}

	job.URL = record.URL
	job.Degraded = len(job.Warnings) > 0
	if err := job.Transition(models.JobStatusComplete); err != nil {
		o.logger.Error().Err(err).Str("job_id", job.ID).Msg("Invalid completion transition")
	}
	o.save(ctx, job)

	o.logger.Info().
		Str("job_id", job.ID).
		Str("client", job.Client).
		Str("month", job.Month).
		Str("url", job.URL).
		Bool("degraded", job.Degraded).
		Int("warnings", len(job.Warnings)).
		Msg("Job complete")

	if err := o.notifier.NotifyReportReady(ctx, job.Client, job.Month, job.URL, job.Degraded, job.Warnings); err != nil {
		o.logger.Warn().Err(err).Str("job_id", job.ID).Msg("Failed to send completion notification")
	}
}

// stageExtract runs document and screenshot extraction in parallel.
// Either side failing in isolation degrades the job; both sides empty
// fails it.
func (o *Orchestrator) stageExtract(ctx context.Context, job *models.ReportJob, in *inputs.ClientInputs) (*models.KpiSet, []models.ExtractedMetric, bool) {
	if !o.transition(ctx, job, models.JobStatusExtracting) {
		return nil, nil, false
	}

	stageCtx, cancel := context.WithTimeout(ctx, o.stageTimeout)
	defer cancel()

	var (
		kpis      = &models.KpiSet{}
		extracted []models.ExtractedMetric
		warnings  []string
		warnMu    sync.Mutex
	)

	g, gctx := errgroup.WithContext(stageCtx)
	if in.StrategyDeck != "" {
		g.Go(func() error {
			set, err := o.documents.Extract(gctx, in.StrategyDeck)
			if err != nil {
				warnMu.Lock()
				warnings = append(warnings, fmt.Sprintf("strategy deck unreadable: %v", err))
				warnMu.Unlock()
				return nil
			}
			kpis = set
			return nil
		})
	}
	if len(in.Screenshots) > 0 {
		g.Go(func() error {
			metrics, imageWarnings := o.metrics.Extract(gctx, in.Screenshots)
			warnMu.Lock()
			extracted = metrics
			warnings = append(warnings, imageWarnings...)
			warnMu.Unlock()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		o.fail(ctx, job, models.StageExtract, err, in)
		return nil, nil, false
	}
	if err := stageCtx.Err(); err != nil {
		o.fail(ctx, job, models.StageExtract, fmt.Errorf("extraction timed out: %w", err), in)
		return nil, nil, false
	}

	for _, w := range warnings {
		job.AddWarning("%s", w)
	}
	job.Warnings = append(job.Warnings, kpis.Warnings...)

	if len(kpis.Kpis) == 0 && len(extracted) == 0 {
		o.fail(ctx, job, models.StageExtract, errors.New("no KPIs or metrics could be extracted"), in)
		return nil, nil, false
	}

	o.dumpProcessed(in, job.Month+"_strategy_data.json", kpis)
	o.dumpProcessed(in, job.Month+"_metrics_data.json", extracted)

	o.logger.Info().
		Str("job_id", job.ID).
		Int("kpis", len(kpis.Kpis)).
		Int("metrics", len(extracted)).
		Int("warnings", len(job.Warnings)).
		Msg("Extraction complete")

	o.save(ctx, job)
	return kpis, extracted, true
}

func (o *Orchestrator) stageAnalyze(ctx context.Context, job *models.ReportJob, in *inputs.ClientInputs, kpis *models.KpiSet, extracted []models.ExtractedMetric) (*models.InsightBundle, bool) {
	if !o.transition(ctx, job, models.JobStatusAnalyzing) {
		return nil, false
	}

	prior := o.loadPriorMetrics(in)

	bundle, err := o.insights.Generate(kpis, extracted, prior, in.Highlights)
	if err != nil {
		o.fail(ctx, job, models.StageAnalyze, err, in)
		return nil, false
	}

	o.dumpProcessed(in, job.Month+"_insights.json", bundle)

	o.logger.Info().
		Str("job_id", job.ID).
		Int("insights", len(bundle.Insights)).
		Int("prior_metrics", len(prior)).
		Msg("Analysis complete")

	o.save(ctx, job)
	return bundle, true
}

func (o *Orchestrator) stageRender(ctx context.Context, job *models.ReportJob, in *inputs.ClientInputs, bundle *models.InsightBundle, extracted []models.ExtractedMetric) (*models.ReportArtifact, bool) {
	if !o.transition(ctx, job, models.JobStatusRendering) {
		return nil, false
	}

	index, err := o.archive.GetIndex(ctx, job.Client)
	if err != nil {
		o.fail(ctx, job, models.StageRender, err, in)
		return nil, false
	}

	artifact, err := o.renderer.Render(&interfaces.RenderInput{
		Client:     job.Client,
		Month:      job.Month,
		Bundle:     bundle,
		Metrics:    extracted,
		Shots:      in.Screenshots,
		Highlights: in.Highlights,
		Archive:    index,
	})
	if err != nil {
		o.fail(ctx, job, models.StageRender, err, in)
		return nil, false
	}
	job.ContentHash = artifact.ContentHash

	o.writeLocalCopy(in, artifact)

	o.logger.Info().
		Str("job_id", job.ID).
		Str("content_hash", artifact.ContentHash[:12]).
		Msg("Render complete")

	o.save(ctx, job)
	return artifact, true
}

// stageDeploy publishes the artifact, retrying transient failures with
// exponential backoff.
func (o *Orchestrator) stageDeploy(ctx context.Context, job *models.ReportJob, artifact *models.ReportArtifact) (*models.DeploymentRecord, bool) {
	if !o.transition(ctx, job, models.JobStatusDeploying) {
		return nil, false
	}

	backoff := o.retryBackoff
	var lastErr error
	for attempt := 0; attempt <= o.maxRetries; attempt++ {
		if attempt > 0 {
			o.logger.Warn().
				Str("job_id", job.ID).
				Int("attempt", attempt).
				Str("backoff", backoff.String()).
				Err(lastErr).
				Msg("Retrying deployment")
			select {
			case <-time.After(backoff):
			case <-ctx.Done():
				o.fail(ctx, job, models.StageDeploy, fmt.Errorf("deployment timed out: %w", ctx.Err()), nil)
				return nil, false
			}
			backoff *= 2
		}

		stageCtx, cancel := context.WithTimeout(ctx, o.stageTimeout)
		record, err := o.publisher.Publish(stageCtx, artifact)
		cancel()
		if err == nil {
			return record, true
		}
		lastErr = err

		var depErr *publish.DeploymentError
		if !errors.As(err, &depErr) || !depErr.Transient {
			break
		}
	}

	o.fail(ctx, job, models.StageDeploy, lastErr, nil)
	return nil, false
}

func (o *Orchestrator) transition(ctx context.Context, job *models.ReportJob, status models.JobStatus) bool {
	if err := ctx.Err(); err != nil {
		o.fail(ctx, job, stageFor(status), fmt.Errorf("job deadline exceeded: %w", err), nil)
		return false
	}
	if err := job.Transition(status); err != nil {
		o.logger.Error().Err(err).Str("job_id", job.ID).Msg("Invalid transition")
		return false
	}
	o.save(ctx, job)
	return true
}

// fail marks the job failed, persists it and sends the single terminal
// notification. Missing-input failures get the missing-data notification;
// everything else gets the error notification.
func (o *Orchestrator) fail(ctx context.Context, job *models.ReportJob, stage string, cause error, in *inputs.ClientInputs) {
	job.Fail(stage, cause)
	o.save(ctx, job)

	o.logger.Error().
		Str("job_id", job.ID).
		Str("client", job.Client).
		Str("month", job.Month).
		Str("stage", stage).
		Err(cause).
		Msg("Job failed")

	// Notifications run against a fresh context so a blown job deadline
	// doesn't also swallow the failure notice.
	notifyCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	var notifyErr error
	if errors.Is(cause, inputs.ErrInputMissing) && in != nil && len(in.Missing) > 0 {
		notifyErr = o.notifier.NotifyMissingData(notifyCtx, job.Client, job.Month, in.Missing)
	} else {
		notifyErr = o.notifier.NotifyError(notifyCtx, job.Client, job.Month, fmt.Sprintf("stage %s: %v", stage, cause))
	}
	if notifyErr != nil {
		o.logger.Warn().Err(notifyErr).Str("job_id", job.ID).Msg("Failed to send failure notification")
	}
}

func (o *Orchestrator) save(ctx context.Context, job *models.ReportJob) {
	saveCtx := ctx
	if ctx.Err() != nil {
		var cancel context.CancelFunc
		saveCtx, cancel = context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
	}
	if err := o.jobStore.SaveJob(saveCtx, job); err != nil {
		o.logger.Error().Err(err).Str("job_id", job.ID).Msg("Failed to persist job")
	}
}

// dumpProcessed writes an extraction stage's output as JSON into the
// client's Processed_Data directory for audit and reprocessing.
func (o *Orchestrator) dumpProcessed(in *inputs.ClientInputs, filename string, v interface{}) {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		o.logger.Warn().Err(err).Str("file", filename).Msg("Failed to encode processed data")
		return
	}
	path := filepath.Join(in.ProcessedDir, filename)
	if err := os.WriteFile(path, data, 0o644); err != nil {
		o.logger.Warn().Err(err).Str("file", filename).Msg("Failed to write processed data")
	}
}

// loadPriorMetrics reads the previous month's extracted metrics from
// Processed_Data, when that month was processed before.
func (o *Orchestrator) loadPriorMetrics(in *inputs.ClientInputs) []models.ExtractedMetric {
	prev := o.previousMonth(in)
	if prev == "" {
		return nil
	}
	data, err := os.ReadFile(filepath.Join(in.ProcessedDir, prev+"_metrics_data.json"))
	if err != nil {
		return nil
	}
	var metrics []models.ExtractedMetric
	if err := json.Unmarshal(data, &metrics); err != nil {
		o.logger.Warn().Err(err).Str("month", prev).Msg("Failed to parse prior metrics")
		return nil
	}
	return metrics
}

// previousMonth finds the month directory immediately before the job's
// month in sorted order.
func (o *Orchestrator) previousMonth(in *inputs.ClientInputs) string {
	entries, err := os.ReadDir(filepath.Join(in.ClientDir, "Monthly_Data"))
	if err != nil {
		return ""
	}
	var months []string
	for _, e := range entries {
		if e.IsDir() {
			months = append(months, e.Name())
		}
	}
	sort.Strings(months)
	prev := ""
	for _, m := range months {
		if m >= in.Month {
			break
		}
		prev = m
	}
	return prev
}

// writeLocalCopy drops the rendered report into Generated_Reports so the
// account manager has a copy alongside the client's source data.
func (o *Orchestrator) writeLocalCopy(in *inputs.ClientInputs, artifact *models.ReportArtifact) {
	dir := filepath.Join(in.ReportsDir, artifact.Month)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		o.logger.Warn().Err(err).Str("dir", dir).Msg("Failed to create local report directory")
		return
	}
	files := map[string][]byte{
		"report.html": artifact.HTML,
		"report.pdf":  artifact.PDF,
	}
	for name, data := range artifact.Assets {
		files[name] = data
	}
	for name, data := range files {
		path := filepath.Join(dir, name)
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			o.logger.Warn().Err(err).Str("file", name).Msg("Failed to create local report directory")
			continue
		}
		if err := os.WriteFile(path, data, 0o644); err != nil {
			o.logger.Warn().Err(err).Str("file", name).Msg("Failed to write local report copy")
		}
	}
}

func stageFor(status models.JobStatus) string {
	switch status {
	case models.JobStatusExtracting:
		return models.StageExtract
	case models.JobStatusAnalyzing:
		return models.StageAnalyze
	case models.JobStatusRendering:
		return models.StageRender
	case models.JobStatusDeploying:
		return models.StageDeploy
	default:
		return string(status)
	}
}
