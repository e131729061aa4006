package metrics

import (
	"testing"

	"github.com/quimbydigital/client-report-automations/internal/models"
)

func TestRegistry_ClassifyFilename(t *testing.T) {
	registry := NewRegistry()

	tests := []struct {
		filename string
		want     models.Platform
	}{
		{"facebook_overview_may.png", models.PlatformFacebook},
		{"fb_reach.jpg", models.PlatformFacebook},
		{"instagram_insights.png", models.PlatformInstagram},
		{"ig_profile.jpeg", models.PlatformInstagram},
		{"tiktok_analytics.png", models.PlatformTikTok},
		{"tt_followers.png", models.PlatformTikTok},
		{"attachment_1.png", models.PlatformOther}, // "tt" must not match inside a word
		{"screenshot.png", models.PlatformOther},
	}

	for _, tt := range tests {
		t.Run(tt.filename, func(t *testing.T) {
			if got := registry.ClassifyFilename(tt.filename); got != tt.want {
				t.Errorf("ClassifyFilename(%q) = %s, want %s", tt.filename, got, tt.want)
			}
		})
	}
}

func TestRegistry_ClassifyText(t *testing.T) {
	registry := NewRegistry()

	tests := []struct {
		name string
		text string
		want models.Platform
	}{
		{"meta business header", "Meta Business Suite\nPage Overview\nReach 12,400", models.PlatformFacebook},
		{"instagram dashboard", "Professional Dashboard\nAccounts reached 8,200", models.PlatformInstagram},
		{"tiktok views", "Video views 45.2K\nFor You 62%", models.PlatformTikTok},
		{"unbranded", "Weekly summary\nTotal: 1,000", models.PlatformOther},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := registry.ClassifyText(tt.text); got != tt.want {
				t.Errorf("ClassifyText = %s, want %s", got, tt.want)
			}
		})
	}
}

func TestRegistry_Register(t *testing.T) {
	registry := NewRegistry()
	registry.Register(&PlatformProfile{
		Platform:      models.Platform("linkedin"),
		FilenameHints: []string{"linkedin"},
	})

	if got := registry.ClassifyFilename("linkedin_page.png"); got != models.Platform("linkedin") {
		t.Errorf("expected registered platform, got %s", got)
	}
	if registry.ProfileFor(models.Platform("linkedin")) == nil {
		t.Error("expected profile lookup for registered platform")
	}
}

func TestMatchLabel(t *testing.T) {
	profile := NewRegistry().ProfileFor(models.PlatformInstagram)

	tests := map[string]string{
		"Accounts reached": "Reach",
		"Engagement rate":  "Engagement Rate", // longest alias wins over "engagement"
		"Profile visits":   "Profile Visits",
		"Ad spend":         "",
	}
	for label, want := range tests {
		if got := profile.matchLabel(label); got != want {
			t.Errorf("matchLabel(%q) = %q, want %q", label, got, want)
		}
	}
}
