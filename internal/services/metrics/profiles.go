package metrics

import (
	"strings"

	"github.com/quimbydigital/client-report-automations/internal/models"
)

// PlatformProfile describes how to recognize one platform's screenshots
// and which metric labels its analytics UI shows. Profiles are additive:
// supporting a new platform means registering a new profile, not branching
// in the extractor.
type PlatformProfile struct {
	Platform models.Platform

	// FilenameHints are matched against lowercased screenshot filenames.
	FilenameHints []string

	// TextSignatures are UI strings that identify the platform when the
	// filename gives no hint.
	TextSignatures []string

	// Labels maps a canonical metric name to the label aliases the
	// platform's UI uses for it.
	Labels map[string][]string
}

// Registry holds the known platform profiles.
type Registry struct {
	profiles []*PlatformProfile
}

// NewRegistry returns a registry with the built-in platform profiles.
func NewRegistry() *Registry {
	return &Registry{profiles: []*PlatformProfile{
		{
			Platform:       models.PlatformFacebook,
			FilenameHints:  []string{"facebook", "fb", "meta"},
			TextSignatures: []string{"facebook", "meta business", "page overview"},
			Labels: map[string][]string{
				"Reach":           {"reach", "people reached", "accounts reached"},
				"Impressions":     {"impressions", "views"},
				"Engagement":      {"engagement", "interactions", "post engagement"},
				"Engagement Rate": {"engagement rate"},
				"Followers":       {"followers", "page followers", "new followers"},
				"Clicks":          {"link clicks", "clicks", "website clicks"},
			},
		},
		{
			Platform:       models.PlatformInstagram,
			FilenameHints:  []string{"instagram", "ig", "insta"},
			TextSignatures: []string{"instagram", "professional dashboard", "accounts reached"},
			Labels: map[string][]string{
				"Reach":           {"accounts reached", "reach"},
				"Impressions":     {"impressions", "views"},
				"Engagement":      {"accounts engaged", "interactions", "engagement"},
				"Engagement Rate": {"engagement rate"},
				"Followers":       {"followers", "total followers", "follower growth"},
				"Profile Visits":  {"profile visits", "profile activity"},
			},
		},
		{
			Platform:       models.PlatformTikTok,
			FilenameHints:  []string{"tiktok", "tik_tok", "tik-tok", "tt"},
			TextSignatures: []string{"tiktok", "video views", "for you"},
			Labels: map[string][]string{
				"Video Views":     {"video views", "views"},
				"Reach":           {"reached audience", "reach"},
				"Engagement":      {"engagement", "likes", "interactions"},
				"Engagement Rate": {"engagement rate"},
				"Followers":       {"followers", "net followers", "follower growth"},
				"Shares":          {"shares"},
			},
		},
	}}
}

// Register adds a profile to the registry.
func (r *Registry) Register(p *PlatformProfile) {
	r.profiles = append(r.profiles, p)
}

// ClassifyFilename infers the platform from a screenshot filename hint.
// Returns PlatformOther when no profile matches.
func (r *Registry) ClassifyFilename(filename string) models.Platform {
	name := strings.ToLower(filename)
	for _, p := range r.profiles {
		for _, hint := range p.FilenameHints {
			if containsToken(name, hint) {
				return p.Platform
			}
		}
	}
	return models.PlatformOther
}

// ClassifyText infers the platform from OCR'd screenshot text.
// Returns PlatformOther when no signature matches.
func (r *Registry) ClassifyText(text string) models.Platform {
	lower := strings.ToLower(text)
	for _, p := range r.profiles {
		for _, sig := range p.TextSignatures {
			if strings.Contains(lower, sig) {
				return p.Platform
			}
		}
	}
	return models.PlatformOther
}

// ProfileFor returns the profile for a platform, nil for PlatformOther.
func (r *Registry) ProfileFor(platform models.Platform) *PlatformProfile {
	for _, p := range r.profiles {
		if p.Platform == platform {
			return p
		}
	}
	return nil
}

// containsToken matches a hint against a filename on token boundaries,
// so the "tt" hint does not fire inside "attachment".
func containsToken(name, hint string) bool {
	if len(hint) > 2 {
		return strings.Contains(name, hint)
	}
	for _, tok := range strings.FieldsFunc(name, func(r rune) bool {
		return r == '_' || r == '-' || r == '.' || r == ' '
	}) {
		if tok == hint {
			return true
		}
	}
	return false
}
