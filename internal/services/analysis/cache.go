package analysis

import (
	"context"
	"crypto/sha256"
	"encoding/binary"
	"encoding/hex"
	"encoding/json"
	"hash"
	"math"
	"time"

	pipeline "levelscope/internal/analysis"
	"levelscope/internal/domain/levels"
	"levelscope/pkg/errors"
	"levelscope/pkg/logger"
)

const keyPrefix = "levelscope:analysis"

// Store is the byte-level backend of the cache. Get returns an error wrapping
// errors.ErrNotFound on a miss.
type Store interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
}

// Cache stores finished analyses under a fingerprint of everything that
// determines them, so a hit is byte-identical to a fresh run.
type Cache struct {
	store Store
	ttl   time.Duration
	log   *logger.Logger
}

// NewCache creates a new analysis cache
func NewCache(store Store, ttl time.Duration, log *logger.Logger) *Cache {
	return &Cache{
		store: store,
		ttl:   ttl,
		log:   log.With("component", "analysis_cache"),
	}
}

// Get returns the cached analysis for key. A miss is (nil, false, nil).
func (c *Cache) Get(ctx context.Context, key string) (*levels.ScoredAnalysis, bool, error) {
	data, err := c.store.Get(ctx, key)
	if errors.Is(err, errors.ErrNotFound) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, errors.Wrap(err, "failed to get from cache")
	}

	var cached levels.ScoredAnalysis
	if err := json.Unmarshal(data, &cached); err != nil {
		// a corrupt entry behaves like a miss and is overwritten by the next Set
		c.log.Warnw("Dropping undecodable cache entry", "key", key, "error", err)
		return nil, false, nil
	}

	c.log.Debugw("Cache hit", "key", key, "symbol", cached.Symbol)
	return &cached, true, nil
}

// Set stores an analysis under key
func (c *Cache) Set(ctx context.Context, key string, result *levels.ScoredAnalysis) error {
	data, err := json.Marshal(result)
	if err != nil {
		return errors.Wrap(err, "marshal analysis")
	}
	if err := c.store.Set(ctx, key, data, c.ttl); err != nil {
		return errors.Wrap(err, "failed to set cache")
	}
	return nil
}

// CacheKey builds the cache key of a request under a tuning fingerprint.
// Every field that can change the output is hashed.
func CacheKey(req pipeline.Request, tuningFingerprint string) string {
	h := sha256.New()

	writeString(h, req.Symbol)
	writeString(h, req.Interval)
	writeString(h, tuningFingerprint)
	if req.Now.IsZero() {
		writeString(h, "")
	} else {
		writeString(h, req.Now.UTC().Format(time.RFC3339Nano))
	}

	var buf [8]byte
	writeUint := func(v uint64) {
		binary.BigEndian.PutUint64(buf[:], v)
		h.Write(buf[:])
	}
	writeUint(uint64(len(req.Bars)))
	for _, b := range req.Bars {
		writeUint(uint64(b.Time.UnixNano()))
		writeUint(math.Float64bits(b.Open))
		writeUint(math.Float64bits(b.High))
		writeUint(math.Float64bits(b.Low))
		writeUint(math.Float64bits(b.Close))
		writeUint(math.Float64bits(b.Volume))
	}

	sum := h.Sum(nil)
	return keyPrefix + ":" + req.Symbol + ":" + req.Interval + ":" + hex.EncodeToString(sum[:16])
}

// writeString writes a length-prefixed string so field boundaries are unambiguous
func writeString(h hash.Hash, s string) {
	var buf [8]byte
	binary.BigEndian.PutUint64(buf[:], uint64(len(s)))
	h.Write(buf[:])
	h.Write([]byte(s))
}
