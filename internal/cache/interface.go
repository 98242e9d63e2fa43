package cache

import "time"

// Cache stores rendered summary text by key. The serving layer is the only
// writer; entries expire rather than being invalidated. Implementations are
// safe for concurrent use.
type Cache interface {
	Get(key string) (string, bool)
	Set(key, value string)
	SetWithTTL(key, value string, ttl time.Duration)
	Delete(key string)
	Clear()
}
