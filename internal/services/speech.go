package services

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"io"

	"dailymind-api/internal/database"
	"dailymind-api/internal/models"
	"dailymind-api/internal/storage"
	"dailymind-api/pkg/logging"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Synthesizer turns text into spoken audio. Implementations wrap a TTS
// vendor; the service layer only sees bytes.
type Synthesizer interface {
	Synthesize(ctx context.Context, text, lang string) ([]byte, error)
}

// ErrSynthesizerNotConfigured indicates no TTS vendor is wired in
var ErrSynthesizerNotConfigured = errors.New("speech synthesizer is not configured")

// SpeechService synthesizes text to audio with a two-level cache: Redis for
// the hash to file mapping, then the speech_cache table, then the vendor.
type SpeechService struct {
	synthesizer Synthesizer
	store       storage.Store
}

// NewSpeechService creates a speech service; synthesizer may be nil
func NewSpeechService(synthesizer Synthesizer, store storage.Store) *SpeechService {
	return &SpeechService{
		synthesizer: synthesizer,
		store:       store,
	}
}

// Synthesize returns the audio for text, reusing cached output when the same
// text was synthesized before. Identical text always maps to one stored file.
func (s *SpeechService) Synthesize(ctx context.Context, text, lang string) ([]byte, error) {
	hash := textHash(text)
	cacheKey := "speech_cache:" + hash

	// Redis fast path holds the file name for the hash
	if fileName, err := database.GetCache(ctx, cacheKey); err == nil && fileName != "" {
		if data, err := s.readStored(fileName); err == nil {
			return data, nil
		}
	}

	// Durable cache in the database
	cached, err := database.GetSpeechCache(hash)
	if err == nil {
		data, readErr := s.readStored(cached.FilePath)
		if readErr == nil {
			if err := database.SetCache(ctx, cacheKey, cached.FilePath, 0); err != nil {
				logging.Warnf("Failed to cache speech file name: %v", err)
			}
			return data, nil
		}
		logging.Warnf("Cached speech file %s missing, re-synthesizing: %v", cached.FilePath, readErr)
	} else if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("failed to query speech cache: %w", err)
	}

	if s.synthesizer == nil {
		return nil, ErrSynthesizerNotConfigured
	}

	data, err := s.synthesizer.Synthesize(ctx, text, lang)
	if err != nil {
		return nil, fmt.Errorf("speech synthesis failed: %w", err)
	}

	fileName := uuid.New().String() + ".mp3"
	if err := s.store.Save(fileName, data); err != nil {
		return nil, fmt.Errorf("failed to store audio: %w", err)
	}

	record := &models.SpeechCache{
		TextHash: hash,
		Text:     text,
		FilePath: fileName,
	}
	if err := database.CreateSpeechCache(record); err != nil {
		// Another request may have raced us; the audio is still good
		logging.Warnf("Failed to record speech cache entry: %v", err)
		if removeErr := s.store.Remove(fileName); removeErr != nil {
			logging.Warnf("Failed to remove orphaned audio file %s: %v", fileName, removeErr)
		}
		return data, nil
	}

	if err := database.SetCache(ctx, cacheKey, fileName, 0); err != nil {
		logging.Warnf("Failed to cache speech file name: %v", err)
	}

	return data, nil
}

func (s *SpeechService) readStored(fileName string) ([]byte, error) {
	f, err := s.store.Open(fileName)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return io.ReadAll(f)
}

func textHash(text string) string {
	sum := sha256.Sum256([]byte(text))
	return hex.EncodeToString(sum[:])
}
