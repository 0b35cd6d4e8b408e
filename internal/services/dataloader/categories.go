package dataloader

import (
	"strings"

	"budgetinsights/internal/models"
)

// categoryResolver maps the category cell of an import to a ledger category.
// Cells match a category id first, then a name ignoring case. Unknown cells
// become a slug id so the row still groups with its peers.
type categoryResolver struct {
	byID   map[string]models.Category
	byName map[string]models.Category
}

func newCategoryResolver(categories []models.Category) *categoryResolver {
	r := &categoryResolver{
		byID:   make(map[string]models.Category, len(categories)),
		byName: make(map[string]models.Category, len(categories)),
	}
	for _, c := range categories {
		r.byID[c.ID] = c
		name := strings.ToLower(strings.TrimSpace(c.Name))
		if _, taken := r.byName[name]; !taken {
			r.byName[name] = c
		}
	}
	return r
}

func (r *categoryResolver) resolve(cell string) (models.Category, bool) {
	cell = strings.TrimSpace(cell)
	if cell == "" {
		return models.Category{}, false
	}
	if c, ok := r.byID[cell]; ok {
		return c, true
	}
	if c, ok := r.byName[strings.ToLower(cell)]; ok {
		return c, true
	}
	return models.Category{ID: slug(cell)}, false
}

// slug lowercases s and joins its words with dashes
func slug(s string) string {
	var b strings.Builder
	dash := false
	for _, r := range strings.ToLower(s) {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			if dash && b.Len() > 0 {
				b.WriteByte('-')
			}
			b.WriteRune(r)
			dash = false
		default:
			dash = true
		}
	}
	return b.String()
}
