package services

import (
	"context"
	"errors"
)

// AffirmationGenerator produces new affirmation texts for a category and
// language. Implementations wrap an external generation vendor.
type AffirmationGenerator interface {
	Generate(ctx context.Context, lang, category string, count int) ([]string, error)
}

// ErrGeneratorNotConfigured indicates no generation vendor is wired in
var ErrGeneratorNotConfigured = errors.New("affirmation generator is not configured")
