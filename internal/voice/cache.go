package voice

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"sync"

	"github.com/rs/zerolog"
)

// Cache memoises synthesized audio URLs by language and text for the life
// of the process. Entries are never evicted: alert voice texts are few and
// an SOS announcement must not wait on the TTS endpoint a second time.
type Cache struct {
	synth  Synthesizer
	logger zerolog.Logger

	mu      sync.RWMutex
	entries map[string]string
}

// NewCache wraps synth with a content-addressed cache.
func NewCache(synth Synthesizer, logger zerolog.Logger) *Cache {
	if synth == nil {
		synth = Disabled{}
	}
	return &Cache{
		synth:   synth,
		logger:  logger,
		entries: make(map[string]string),
	}
}

// Key returns the cache key for text in language.
func Key(text, language string) string {
	sum := sha256.Sum256([]byte(language + "\x00" + text))
	return hex.EncodeToString(sum[:])
}

// URL returns the audio URL for text, synthesizing it on a cache miss.
// Failures are not cached.
func (c *Cache) URL(ctx context.Context, text, language string) (string, error) {
	key := Key(text, language)

	c.mu.RLock()
	url, ok := c.entries[key]
	c.mu.RUnlock()
	if ok {
		return url, nil
	}

	url, err := c.synth.Synthesize(ctx, text, language)
	if err != nil {
		return "", err
	}

	c.mu.Lock()
	c.entries[key] = url
	c.mu.Unlock()

	c.logger.Debug().Str("key", key[:12]).Str("language", language).Msg("voice synthesized")
	return url, nil
}

// Len returns the number of cached entries.
func (c *Cache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}
