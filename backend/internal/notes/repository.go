package notes

import (
	"context"
	"sort"
)

// Repository is the note store. List returns notes ordered by timestamp,
// then id. Get and Remove return *errors.ErrNoteNotFound for unknown ids.
type Repository interface {
	List(ctx context.Context) ([]Note, error)
	Get(ctx context.Context, id string) (Note, error)
	Upsert(ctx context.Context, note Note) error
	Remove(ctx context.Context, id string) error
}

// CategoryStore persists the ordered category list
type CategoryStore interface {
	ListCategories(ctx context.Context) ([]Category, error)
	SaveCategories(ctx context.Context, categories []Category) error
}

// Store is a repository that also keeps categories
type Store interface {
	Repository
	CategoryStore
	Close() error
}

// SortChronological orders notes by timestamp, then id, in place
func SortChronological(ns []Note) {
	sort.SliceStable(ns, func(i, j int) bool {
		if ns[i].Timestamp != ns[j].Timestamp {
			return ns[i].Timestamp < ns[j].Timestamp
		}
		return ns[i].ID < ns[j].ID
	})
}
