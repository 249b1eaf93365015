package vision

import (
	"crypto/sha256"
	"encoding/hex"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
)

// WrapLRU caches descriptors by image digest. Decode failures are not cached.
func WrapLRU(e Extractor, size int, ttl time.Duration) Extractor {
	if e == nil || size <= 0 || ttl <= 0 {
		return e
	}
	return &lruExtractor{
		next:  e,
		cache: expirable.NewLRU[string, Vector](size, nil, ttl),
	}
}

type lruExtractor struct {
	next  Extractor
	cache *expirable.LRU[string, Vector]
}

func (l *lruExtractor) Extract(data []byte) (Vector, error) {
	sum := sha256.Sum256(data)
	key := hex.EncodeToString(sum[:])
	if cached, ok := l.cache.Get(key); ok {
		return cloneVector(cached), nil
	}
	vec, err := l.next.Extract(data)
	if err != nil {
		return nil, err
	}
	l.cache.Add(key, cloneVector(vec))
	return vec, nil
}

func (l *lruExtractor) Dim() int {
	return l.next.Dim()
}

func (l *lruExtractor) Fingerprint() string {
	return l.next.Fingerprint()
}

func cloneVector(v Vector) Vector {
	if v == nil {
		return nil
	}
	out := make(Vector, len(v))
	copy(out, v)
	return out
}
