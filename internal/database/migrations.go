package database

import (
	"foodgram-api/internal/models"

	"gorm.io/gorm"
)

// Migrate creates the schema. Referential rules live in the foreign keys:
// edges cascade with their user or recipe, recipes.author_id is set to NULL.
func Migrate(db *gorm.DB) error {
	return db.AutoMigrate(
		&models.User{},
		&models.Tag{},
		&models.Ingredient{},
		&models.Recipe{},
		&models.IngredientRecipe{},
		&models.Favorite{},
		&models.ShoppingCartItem{},
		&models.Subscription{},
	)
}
