package verifier

import "context"

// Verdict is the photo classifier's opinion of one submission.
type Verdict struct {
	// Category is the classifier's best guess, normalized to the
	// platform's category names.
	Category string `json:"category"`
	// Confidence is the classifier's self-reported certainty in [0,1].
	Confidence float64 `json:"confidence"`
}

// Client abstracts the photo verification provider.
// Implementations must be concurrency-safe if used across goroutines.
type Client interface {
	// Verify classifies the photo and reports how confident the model
	// is. The claimed category is passed so the provider can answer a
	// direct match/mismatch question rather than free-classify.
	Verify(ctx context.Context, imageData []byte, claimedCategory string) (*Verdict, error)
	// SourceName returns a short provider label to persist alongside
	// the verdict (e.g., "Gemini", "Stub").
	SourceName() string
}
