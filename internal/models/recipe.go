package models

import (
	"time"
)

type Recipe struct {
	ID          uint      `gorm:"primaryKey" json:"id"`
	AuthorID    *uint     `gorm:"index" json:"author_id"`
	Name        string    `gorm:"size:200;not null" json:"name"`
	Image       string    `gorm:"not null;default:''" json:"image"`
	Text        string    `gorm:"type:text;not null" json:"text"`
	CookingTime int       `gorm:"not null;check:chk_cooking_time_positive,cooking_time >= 1" json:"cooking_time"`
	CreatedAt   time.Time `gorm:"autoCreateTime;index" json:"created_at"`
	UpdatedAt   time.Time `gorm:"autoUpdateTime" json:"updated_at"`

	Author      *User              `gorm:"foreignKey:AuthorID;constraint:OnUpdate:CASCADE,OnDelete:SET NULL;" json:"-"`
	Tags        []Tag              `gorm:"many2many:recipe_tags;constraint:OnUpdate:CASCADE,OnDelete:CASCADE;" json:"-"`
	Ingredients []IngredientRecipe `gorm:"foreignKey:RecipeID;constraint:OnUpdate:CASCADE,OnDelete:CASCADE;" json:"-"`
}

type RecipeResponse struct {
	ID               uint                       `json:"id"`
	Tags             []Tag                      `json:"tags"`
	Author           *UserResponse              `json:"author"`
	Ingredients      []IngredientAmountResponse `json:"ingredients"`
	IsFavorited      bool                       `json:"is_favorited"`
	IsInShoppingCart bool                       `json:"is_in_shopping_cart"`
	Name             string                     `json:"name"`
	Image            string                     `json:"image"`
	Text             string                     `json:"text"`
	CookingTime      int                        `json:"cooking_time"`
}

type RecipeShortResponse struct {
	ID          uint   `json:"id"`
	Name        string `json:"name"`
	Image       string `json:"image"`
	CookingTime int    `json:"cooking_time"`
}

// RecipeFlags carries the per-viewer annotations of a recipe.
type RecipeFlags struct {
	IsFavorited      bool
	IsInShoppingCart bool
	AuthorSubscribed bool
}

// ToResponse expects Author, Tags and Ingredients.Ingredient to be preloaded.
// imageURL maps a stored image key to its public URL.
func (r *Recipe) ToResponse(flags RecipeFlags, imageURL func(string) string) RecipeResponse {
	var author *UserResponse
	if r.Author != nil {
		resp := r.Author.ToResponse(flags.AuthorSubscribed)
		author = &resp
	}

	tags := make([]Tag, len(r.Tags))
	copy(tags, r.Tags)

	ingredients := make([]IngredientAmountResponse, len(r.Ingredients))
	for i, ir := range r.Ingredients {
		ingredients[i] = IngredientAmountResponse{
			ID:              ir.IngredientID,
			Name:            ir.Ingredient.Name,
			MeasurementUnit: ir.Ingredient.MeasurementUnit,
			Amount:          ir.Amount,
		}
	}

	return RecipeResponse{
		ID:               r.ID,
		Tags:             tags,
		Author:           author,
		Ingredients:      ingredients,
		IsFavorited:      flags.IsFavorited,
		IsInShoppingCart: flags.IsInShoppingCart,
		Name:             r.Name,
		Image:            imageURL(r.Image),
		Text:             r.Text,
		CookingTime:      r.CookingTime,
	}
}

func (r *Recipe) ToShortResponse(imageURL func(string) string) RecipeShortResponse {
	return RecipeShortResponse{
		ID:          r.ID,
		Name:        r.Name,
		Image:       imageURL(r.Image),
		CookingTime: r.CookingTime,
	}
}
