package metrics

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/quimbydigital/client-report-automations/internal/common"
	"github.com/quimbydigital/client-report-automations/internal/interfaces"
	"github.com/quimbydigital/client-report-automations/internal/models"
)

// fakeVision returns scripted OCR results keyed by payload content, and
// fails for payloads in its error set.
type fakeVision struct {
	results map[string][]interfaces.VisionLine
	fail    map[string]bool
	calls   int
}

func (f *fakeVision) ReadImage(_ context.Context, data []byte, _ string) (*interfaces.VisionResult, error) {
	f.calls++
	key := string(data)
	if f.fail[key] {
		return nil, errors.New("model refused the image")
	}
	return &interfaces.VisionResult{Lines: f.results[key]}, nil
}

func (f *fakeVision) Name() string { return "fake" }
func (f *fakeVision) Close() error { return nil }

func testConfig() *common.Config {
	config := common.NewDefaultConfig()
	config.Vision.RateLimit = "1ms"
	config.Extraction.OCRTimeout = "5s"
	return config
}

func writeShot(t *testing.T, dir, name, payload string) models.PlatformScreenshot {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(payload), 0o644); err != nil {
		t.Fatal(err)
	}
	return models.PlatformScreenshot{Path: path, Filename: name, Platform: models.PlatformOther}
}

func TestExtractor_Extract(t *testing.T) {
	logger := common.GetLogger()

	t.Run("extracts labeled metrics from known platform", func(t *testing.T) {
		dir := t.TempDir()
		vision := &fakeVision{
			results: map[string][]interfaces.VisionLine{
				"ig": {
					{Text: "Accounts reached 8,200", Confidence: 0.95},
					{Text: "Engagement rate 6.2%", Confidence: 0.9},
					{Text: "Ad spend 120", Confidence: 0.9}, // not in the label dictionary
				},
			},
		}
		extractor, err := NewExtractor(vision, testConfig(), logger)
		if err != nil {
			t.Fatal(err)
		}

		shots := []models.PlatformScreenshot{writeShot(t, dir, "instagram_may.png", "ig")}
		metrics, warnings := extractor.Extract(context.Background(), shots)

		if len(warnings) != 0 {
			t.Fatalf("unexpected warnings: %v", warnings)
		}
		if len(metrics) != 2 {
			t.Fatalf("expected 2 metrics, got %+v", metrics)
		}
		if metrics[0].Name != "Reach" || metrics[0].Value != 8200 || metrics[0].Platform != models.PlatformInstagram {
			t.Errorf("unexpected first metric: %+v", metrics[0])
		}
		if metrics[1].Name != "Engagement Rate" || metrics[1].Unit != "%" {
			t.Errorf("unexpected second metric: %+v", metrics[1])
		}
		if !metrics[0].Verified {
			t.Error("0.95 confidence should be verified at the 0.70 threshold")
		}
	})

	t.Run("corrupt image is isolated with a warning", func(t *testing.T) {
		dir := t.TempDir()
		vision := &fakeVision{
			results: map[string][]interfaces.VisionLine{
				"good": {{Text: "Followers 1,500", Confidence: 0.9}},
			},
			fail: map[string]bool{"bad": true},
		}
		extractor, err := NewExtractor(vision, testConfig(), logger)
		if err != nil {
			t.Fatal(err)
		}

		shots := []models.PlatformScreenshot{
			writeShot(t, dir, "facebook_page.png", "good"),
			writeShot(t, dir, "facebook_corrupt.png", "bad"),
		}
		metrics, warnings := extractor.Extract(context.Background(), shots)

		if len(metrics) != 1 || metrics[0].Name != "Followers" {
			t.Fatalf("expected the good screenshot's metrics, got %+v", metrics)
		}
		if len(warnings) != 1 {
			t.Fatalf("expected 1 warning, got %v", warnings)
		}
	})

	t.Run("unreadable file is isolated with a warning", func(t *testing.T) {
		dir := t.TempDir()
		vision := &fakeVision{}
		extractor, err := NewExtractor(vision, testConfig(), logger)
		if err != nil {
			t.Fatal(err)
		}

		shots := []models.PlatformScreenshot{
			{Path: filepath.Join(dir, "missing.png"), Filename: "missing.png", Platform: models.PlatformOther},
		}
		metrics, warnings := extractor.Extract(context.Background(), shots)

		if len(metrics) != 0 {
			t.Errorf("expected no metrics, got %+v", metrics)
		}
		if len(warnings) != 1 {
			t.Errorf("expected 1 warning, got %v", warnings)
		}
		if vision.calls != 0 {
			t.Errorf("vision should not be called for unreadable files, got %d calls", vision.calls)
		}
	})

	t.Run("low confidence marks metric unverified", func(t *testing.T) {
		dir := t.TempDir()
		vision := &fakeVision{
			results: map[string][]interfaces.VisionLine{
				"blurry": {{Text: "Reach 9,000", Confidence: 0.4}},
			},
		}
		extractor, err := NewExtractor(vision, testConfig(), logger)
		if err != nil {
			t.Fatal(err)
		}

		shots := []models.PlatformScreenshot{writeShot(t, dir, "fb_blurry.png", "blurry")}
		metrics, _ := extractor.Extract(context.Background(), shots)

		if len(metrics) != 1 {
			t.Fatalf("expected 1 metric, got %+v", metrics)
		}
		if metrics[0].Verified {
			t.Error("0.4 confidence should be unverified")
		}
	})

	t.Run("unknown platform keeps literal labels", func(t *testing.T) {
		dir := t.TempDir()
		vision := &fakeVision{
			results: map[string][]interfaces.VisionLine{
				"misc": {
					{Text: "Newsletter signups: 320", Confidence: 0.9},
					{Text: "12,000", Confidence: 0.9}, // number without a label is dropped
				},
			},
		}
		extractor, err := NewExtractor(vision, testConfig(), logger)
		if err != nil {
			t.Fatal(err)
		}

		shots := []models.PlatformScreenshot{writeShot(t, dir, "dashboard.png", "misc")}
		metrics, _ := extractor.Extract(context.Background(), shots)

		if len(metrics) != 1 {
			t.Fatalf("expected 1 metric, got %+v", metrics)
		}
		if metrics[0].Name != "Newsletter signups" || metrics[0].Platform != models.PlatformOther {
			t.Errorf("unexpected metric: %+v", metrics[0])
		}
	})

	t.Run("platform classified from OCR text when filename is unhinted", func(t *testing.T) {
		dir := t.TempDir()
		vision := &fakeVision{
			results: map[string][]interfaces.VisionLine{
				"tiktok-body": {
					{Text: "TikTok Analytics", Confidence: 0.9},
					{Text: "Video views 45.2K", Confidence: 0.88},
				},
			},
		}
		extractor, err := NewExtractor(vision, testConfig(), logger)
		if err != nil {
			t.Fatal(err)
		}

		shots := []models.PlatformScreenshot{writeShot(t, dir, "screenshot_03.png", "tiktok-body")}
		metrics, _ := extractor.Extract(context.Background(), shots)

		if len(metrics) != 1 {
			t.Fatalf("expected 1 metric, got %+v", metrics)
		}
		if metrics[0].Platform != models.PlatformTikTok || metrics[0].Value != 45200 {
			t.Errorf("unexpected metric: %+v", metrics[0])
		}
	})
}
