package services

import (
	"gorm.io/gorm"
)

// RecipeFilter is one named predicate over the recipes table. Filters are
// combined with AND.
type RecipeFilter func(*gorm.DB) *gorm.DB

// WithTags keeps recipes carrying at least one of the given tag slugs.
func WithTags(slugs ...string) RecipeFilter {
	return func(db *gorm.DB) *gorm.DB {
		return db.Where(
			"EXISTS (SELECT 1 FROM recipe_tags JOIN tags ON tags.id = recipe_tags.tag_id "+
				"WHERE recipe_tags.recipe_id = recipes.id AND tags.slug IN ?)",
			slugs,
		)
	}
}

func ByAuthor(authorID uint) RecipeFilter {
	return func(db *gorm.DB) *gorm.DB {
		return db.Where("recipes.author_id = ?", authorID)
	}
}

// FavoritedBy keeps recipes in (want) or out of (!want) the user's favorites.
func FavoritedBy(userID uint, want bool) RecipeFilter {
	return membership("favorites", userID, want)
}

// InShoppingCartOf keeps recipes in (want) or out of (!want) the user's cart.
func InShoppingCartOf(userID uint, want bool) RecipeFilter {
	return membership("shopping_cart_items", userID, want)
}

func membership(table string, userID uint, want bool) RecipeFilter {
	clause := "EXISTS (SELECT 1 FROM " + table + " WHERE " + table + ".recipe_id = recipes.id AND " + table + ".user_id = ?)"
	if !want {
		clause = "NOT " + clause
	}
	return func(db *gorm.DB) *gorm.DB {
		return db.Where(clause, userID)
	}
}

// RecipeQuery is the parsed filter set of a recipe listing.
type RecipeQuery struct {
	Tags             []string
	AuthorID         *uint
	IsFavorited      *bool
	IsInShoppingCart *bool
}

// Filters turns the query into predicates. Membership filters only apply to
// an identified viewer; anonymous listings ignore them.
func (q RecipeQuery) Filters(viewerID *uint) []RecipeFilter {
	var filters []RecipeFilter

	if len(q.Tags) > 0 {
		filters = append(filters, WithTags(q.Tags...))
	}
	if q.AuthorID != nil {
		filters = append(filters, ByAuthor(*q.AuthorID))
	}
	if viewerID != nil {
		if q.IsFavorited != nil {
			filters = append(filters, FavoritedBy(*viewerID, *q.IsFavorited))
		}
		if q.IsInShoppingCart != nil {
			filters = append(filters, InShoppingCartOf(*viewerID, *q.IsInShoppingCart))
		}
	}

	return filters
}

// Apply adds every filter to db.
func Apply(db *gorm.DB, filters ...RecipeFilter) *gorm.DB {
	for _, f := range filters {
		db = f(db)
	}
	return db
}
