// Package collab declares the external collaborator interfaces the client
// consumes. Implementations live outside this repository; the client only
// depends on these contracts.
package collab

import "context"

// Transcriber turns captured audio into text.
type Transcriber interface {
	Transcribe(ctx context.Context, audio []byte) (string, error)
}

// ConceptSuggestion is one extracted category/value candidate with the
// extractor's confidence.
type ConceptSuggestion struct {
	Category   string
	Value      string
	Confidence float64
}

// ConceptExtractor proposes concepts from free-form curator notes.
type ConceptExtractor interface {
	ExtractConcepts(ctx context.Context, text string) ([]ConceptSuggestion, error)
}

// ImageAnalyzer labels a venue photo.
type ImageAnalyzer interface {
	AnalyzeImage(ctx context.Context, image []byte) ([]string, error)
}

// PlaceCandidate is a third-party directory match for a venue query.
type PlaceCandidate struct {
	Name      string
	Address   string
	Latitude  float64
	Longitude float64
}

// PlaceDirectory looks up candidate venues in an external place registry.
type PlaceDirectory interface {
	LookupPlace(ctx context.Context, query string) ([]PlaceCandidate, error)
}

// IdentityProvider supplies the opaque token attached to every remote call.
// The sync manager never inspects it.
type IdentityProvider interface {
	CurrentIdentity(ctx context.Context) (string, error)
}

// StaticIdentity is an IdentityProvider returning a fixed token, useful for
// tests and for CLI sessions that already hold one.
type StaticIdentity string

func (s StaticIdentity) CurrentIdentity(ctx context.Context) (string, error) {
	return string(s), nil
}
