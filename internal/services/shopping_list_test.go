package services

import (
	"testing"

	"foodgram-api/internal/models"

	"github.com/stretchr/testify/assert"
)

func TestRenderShoppingList(t *testing.T) {
	items := []models.ShoppingListItem{
		{Name: "egg", MeasurementUnit: "pcs", Amount: 3},
		{Name: "flour", MeasurementUnit: "g", Amount: 150},
	}

	got := string(RenderShoppingList(items))

	assert.Equal(t, " - egg (pcs) -  - 3\n - flour (g) -  - 150", got)
}

func TestRenderShoppingListEmpty(t *testing.T) {
	assert.Empty(t, RenderShoppingList(nil))
}
