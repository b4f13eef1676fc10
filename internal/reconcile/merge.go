package reconcile

import (
	"github.com/haven-app/haven/internal/schema"
)

// Record is one keyed value of a collection together with its provenance.
type Record[K comparable, V any] struct {
	Key        K
	Value      V
	Provenance schema.Provenance
}

// Records keys every value with key.
func Records[K comparable, V any](values []V, key func(V) K) []Record[K, V] {
	out := make([]Record[K, V], len(values))
	for i, v := range values {
		out[i] = Record[K, V]{Key: key(v), Value: v}
	}
	return out
}

// Merge is last-writer-wins at record granularity. Every local record is
// stamped ProvenanceLocal; every remote record is stamped ProvenanceCloud
// and replaces the local record with the same key, or is appended if there
// is none. Local order is preserved and new remote records follow in remote
// order. Neither input is modified.
func Merge[K comparable, V any](local, remote []Record[K, V]) []Record[K, V] {
	out := make([]Record[K, V], 0, len(local)+len(remote))
	index := make(map[K]int, len(local)+len(remote))

	put := func(r Record[K, V], p schema.Provenance) {
		r.Provenance = p
		if i, ok := index[r.Key]; ok {
			out[i] = r
			return
		}
		index[r.Key] = len(out)
		out = append(out, r)
	}

	for _, r := range local {
		put(r, schema.ProvenanceLocal)
	}
	for _, r := range remote {
		put(r, schema.ProvenanceCloud)
	}
	return out
}

// Count tallies records by provenance.
type Count struct {
	Cloud int `json:"cloud"`
	Local int `json:"local"`
}

func count[K comparable, V any](records []Record[K, V]) Count {
	var c Count
	for _, r := range records {
		if r.Provenance == schema.ProvenanceCloud {
			c.Cloud++
		} else {
			c.Local++
		}
	}
	return c
}
