// -----------------------------------------------------------------------
// Vision Provider Interface - multimodal OCR over screenshot images
// -----------------------------------------------------------------------

package interfaces

import "context"

// VisionLine is one line of text recognized in an image, with the
// provider's confidence in the read.
type VisionLine struct {
	Text       string  `json:"text"`
	Confidence float64 `json:"confidence"`
}

// VisionResult is the OCR output for a single image.
type VisionResult struct {
	Lines []VisionLine `json:"lines"`
}

// VisionProvider defines the interface for multimodal OCR. Implementations
// (Gemini, Claude) are selected by configuration; the extractor does not
// depend on a concrete provider.
type VisionProvider interface {
	// ReadImage performs OCR over the image bytes and returns recognized
	// text lines with confidence scores.
	ReadImage(ctx context.Context, data []byte, mimeType string) (*VisionResult, error)

	// Name returns the provider identifier ("gemini", "claude").
	Name() string

	Close() error
}
