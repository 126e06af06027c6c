package identity

import "context"

// Recognizer finds person entities in text. Implementations are built and
// torn down by the caller and handed to NewExtractor.
type Recognizer interface {
	PersonEntities(ctx context.Context, text string) ([]string, error)
}

// NopRecognizer is used when no entity engine is available
type NopRecognizer struct{}

// PersonEntities always returns no entities
func (NopRecognizer) PersonEntities(context.Context, string) ([]string, error) {
	return nil, nil
}

// RecognizerFunc adapts a function to the Recognizer interface
type RecognizerFunc func(ctx context.Context, text string) ([]string, error)

// PersonEntities calls f
func (f RecognizerFunc) PersonEntities(ctx context.Context, text string) ([]string, error) {
	return f(ctx, text)
}
