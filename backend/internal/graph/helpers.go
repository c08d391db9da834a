package graph

import (
	"github.com/neo4j/neo4j-go-driver/v5/neo4j"
)

// ============================================================================
// Record decoding
// ============================================================================

// value reads key from record as T, returning the zero value when the key
// is missing, null or of another type.
func value[T neo4j.RecordValue](record *neo4j.Record, key string) T {
	v, _, err := neo4j.GetRecordValue[T](record, key)
	if err != nil {
		var zero T
		return zero
	}
	return v
}

// number reads a numeric column that Cypher may return as integer or float
func number(record *neo4j.Record, key string) float64 {
	raw, ok := record.Get(key)
	if !ok {
		return 0
	}
	switch v := raw.(type) {
	case float64:
		return v
	case int64:
		return float64(v)
	}
	return 0
}

func stringList(record *neo4j.Record, key string) []string {
	items := value[[]any](record, key)
	out := make([]string, 0, len(items))
	for _, item := range items {
		if s, ok := item.(string); ok {
			out = append(out, s)
		}
	}
	return out
}

func relatedEntityFrom(record *neo4j.Record) RelatedEntity {
	return RelatedEntity{
		ID:        value[string](record, "id"),
		Name:      value[string](record, "name"),
		Timestamp: value[int64](record, "timestamp"),
		Score:     number(record, "score"),
		Via:       stringList(record, "via"),
	}
}
