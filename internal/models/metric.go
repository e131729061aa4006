package models

// Platform identifies the social platform a screenshot was captured from.
type Platform string

const (
	PlatformFacebook  Platform = "facebook"
	PlatformInstagram Platform = "instagram"
	PlatformTikTok    Platform = "tiktok"
	PlatformOther     Platform = "other"
)

// PlatformScreenshot is a single input image with its inferred platform tag.
// Bytes are loaded lazily by the extractor; Path is the on-disk reference.
type PlatformScreenshot struct {
	Path     string   `json:"path"`
	Filename string   `json:"filename"`
	Platform Platform `json:"platform"`
}

// ExtractedMetric is one named value recognized in a screenshot.
//
// Confidence below the configured threshold marks the metric unverified
// rather than discarding it: unverified metrics still appear in the report
// but are excluded from KPI-gap comparison.
type ExtractedMetric struct {
	Platform   Platform `json:"platform"`
	Name       string   `json:"name"`
	Value      float64  `json:"value"`
	Unit       string   `json:"unit,omitempty"`
	Confidence float64  `json:"confidence"`
	Verified   bool     `json:"verified"`
	Source     string   `json:"source"` // screenshot filename
}
