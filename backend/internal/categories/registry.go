// Package categories manages the ordered, index-addressed category list.
package categories

import (
	"context"
	"strings"
	"sync"

	"go.uber.org/zap"

	"knowledge-weaver/backend/internal/notes"
	apperrors "knowledge-weaver/backend/pkg/errors"
	"knowledge-weaver/backend/pkg/logger"
)

// Registry serializes read-modify-write cycles on the category list.
// Names are unique case-insensitively. Deleting a category leaves notes
// tagged with it untouched.
type Registry struct {
	store  notes.CategoryStore
	mu     sync.Mutex
	logger *zap.Logger
}

// NewRegistry creates a registry over store
func NewRegistry(store notes.CategoryStore) *Registry {
	return &Registry{
		store:  store,
		logger: logger.Get(),
	}
}

// List returns every category in registry order
func (r *Registry) List(ctx context.Context) ([]notes.Category, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.store.ListCategories(ctx)
}

// Add appends a category, rejecting case-insensitive duplicates
func (r *Registry) Add(ctx context.Context, c notes.Category) (notes.Category, error) {
	c = clean(c)
	if c.Category == "" {
		return notes.Category{}, apperrors.ErrInvalidCategory
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	cats, err := r.store.ListCategories(ctx)
	if err != nil {
		return notes.Category{}, err
	}
	if indexOf(cats, c.Category, -1) >= 0 {
		return notes.Category{}, apperrors.NewCategoryExists(c.Category)
	}
	if err := r.store.SaveCategories(ctx, append(cats, c)); err != nil {
		return notes.Category{}, err
	}
	r.logger.Info("Category added", zap.String("category", c.Category))
	return c, nil
}

// Update replaces the category at index. The new name may not clash with a
// category at any other index.
func (r *Registry) Update(ctx context.Context, index int, c notes.Category) (notes.Category, error) {
	c = clean(c)
	if c.Category == "" {
		return notes.Category{}, apperrors.ErrInvalidCategory
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	cats, err := r.store.ListCategories(ctx)
	if err != nil {
		return notes.Category{}, err
	}
	if index < 0 || index >= len(cats) {
		return notes.Category{}, apperrors.NewCategoryNotFound(index)
	}
	if indexOf(cats, c.Category, index) >= 0 {
		return notes.Category{}, apperrors.NewCategoryExists(c.Category)
	}
	cats[index] = c
	if err := r.store.SaveCategories(ctx, cats); err != nil {
		return notes.Category{}, err
	}
	return c, nil
}

// Delete removes and returns the category at index
func (r *Registry) Delete(ctx context.Context, index int) (notes.Category, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	cats, err := r.store.ListCategories(ctx)
	if err != nil {
		return notes.Category{}, err
	}
	if index < 0 || index >= len(cats) {
		return notes.Category{}, apperrors.NewCategoryNotFound(index)
	}
	removed := cats[index]
	cats = append(cats[:index], cats[index+1:]...)
	if err := r.store.SaveCategories(ctx, cats); err != nil {
		return notes.Category{}, err
	}
	r.logger.Info("Category deleted", zap.String("category", removed.Category))
	return removed, nil
}

// EnsureAll appends every category whose name is not yet registered and
// returns the ones that were added. Existing definitions are kept.
func (r *Registry) EnsureAll(ctx context.Context, candidates []notes.Category) ([]notes.Category, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	cats, err := r.store.ListCategories(ctx)
	if err != nil {
		return nil, err
	}
	var added []notes.Category
	for _, c := range candidates {
		c = clean(c)
		if c.Category == "" || indexOf(cats, c.Category, -1) >= 0 {
			continue
		}
		cats = append(cats, c)
		added = append(added, c)
	}
	if len(added) == 0 {
		return nil, nil
	}
	if err := r.store.SaveCategories(ctx, cats); err != nil {
		return nil, err
	}
	for _, c := range added {
		r.logger.Info("Category registered", zap.String("category", c.Category))
	}
	return added, nil
}

func clean(c notes.Category) notes.Category {
	c.Category = strings.TrimSpace(c.Category)
	c.Definition = strings.TrimSpace(c.Definition)
	return c
}

// indexOf finds name case-insensitively, ignoring position skip
func indexOf(cats []notes.Category, name string, skip int) int {
	for i, c := range cats {
		if i != skip && strings.EqualFold(c.Category, name) {
			return i
		}
	}
	return -1
}
