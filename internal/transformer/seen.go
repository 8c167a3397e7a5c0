package transformer

import "github.com/zeebo/xxh3"

// SeenSet remembers order identifiers already emitted by a Cleaner.
//
// Keys are stored as 128-bit xxh3 digests instead of the raw strings, so
// memory per key is fixed no matter how long the identifiers are. A SeenSet
// shared across batches makes deduplication global over the whole stream.
type SeenSet struct {
	keys map[xxh3.Uint128]struct{}
}

// NewSeenSet returns an empty set sized for hint keys.
func NewSeenSet(hint int) *SeenSet {
	if hint < 0 {
		hint = 0
	}
	return &SeenSet{keys: make(map[xxh3.Uint128]struct{}, hint)}
}

// Add records id and reports whether it was new.
func (s *SeenSet) Add(id string) bool {
	k := xxh3.HashString128(id)
	if _, ok := s.keys[k]; ok {
		return false
	}
	s.keys[k] = struct{}{}
	return true
}

// Has reports whether id was added before.
func (s *SeenSet) Has(id string) bool {
	_, ok := s.keys[xxh3.HashString128(id)]
	return ok
}

// Len returns the number of distinct ids seen.
func (s *SeenSet) Len() int { return len(s.keys) }
