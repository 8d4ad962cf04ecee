package validation

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type amountInput struct {
	ID     uint `json:"id" validate:"required"`
	Amount int  `json:"amount" validate:"min=1"`
}

type recipeInput struct {
	Name        string        `json:"name" validate:"required,max=200"`
	CookingTime int           `json:"cooking_time" validate:"min=1"`
	Ingredients []amountInput `json:"ingredients" validate:"required,min=1,dive"`
	Slug        string        `json:"slug" validate:"omitempty,slug"`
}

func TestValidateStructPasses(t *testing.T) {
	err := ValidateStruct(&recipeInput{
		Name:        "Omelette",
		CookingTime: 10,
		Ingredients: []amountInput{{ID: 1, Amount: 2}},
		Slug:        "breakfast_1",
	})
	assert.NoError(t, err)
}

func TestValidateStructUsesJSONFieldNames(t *testing.T) {
	err := ValidateStruct(&recipeInput{
		CookingTime: 0,
		Ingredients: []amountInput{{ID: 1, Amount: 0}},
	})
	require.Error(t, err)

	var verr *RequestValidationError
	require.True(t, errors.As(err, &verr))

	fields := verr.Fields()
	assert.Equal(t, "This field is required.", fields["name"])
	assert.Contains(t, fields, "cooking_time")
	assert.Contains(t, fields, "ingredients[0].amount")
}

func TestValidateStructSlug(t *testing.T) {
	err := ValidateStruct(&recipeInput{
		Name:        "Omelette",
		CookingTime: 1,
		Ingredients: []amountInput{{ID: 1, Amount: 1}},
		Slug:        "not a slug!",
	})

	var verr *RequestValidationError
	require.True(t, errors.As(err, &verr))
	assert.Contains(t, verr.Fields(), "slug")
}

func TestNewFieldError(t *testing.T) {
	err := NewFieldError("tags", "Duplicate values are not allowed.")
	assert.Equal(t, "tags: Duplicate values are not allowed.", err.Error())
}
