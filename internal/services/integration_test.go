//go:build integration

package services

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"foodgram-api/internal/database"
	"foodgram-api/internal/models"
	"foodgram-api/internal/pagination"
	"foodgram-api/internal/storage"
	"foodgram-api/internal/testinfra"
	"foodgram-api/internal/validation"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

const pixelPNG = "data:image/png;base64,iVBORw0KGgoAAAANSUhEUgAAAAEAAAABCAYAAAAfFcSJAAAADUlEQVR42mNkYPhfDwAChwGA60e6kgAAAABJRU5ErkJggg=="

type memoryStore struct {
	mu      sync.Mutex
	saved   int
	deleted []string
}

func (m *memoryStore) Save(ctx context.Context, img storage.Image) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.saved++
	return fmt.Sprintf("recipes/images/%d%s", m.saved, img.Extension), nil
}

func (m *memoryStore) Delete(ctx context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.deleted = append(m.deleted, key)
	return nil
}

func (m *memoryStore) URL(key string) string {
	return "http://media.test/" + key
}

type fixture struct {
	db            *gorm.DB
	store         *memoryStore
	recipes       *RecipeService
	membership    *MembershipService
	shoppingList  *ShoppingListService
	subscriptions *SubscriptionService
	users         *UserService
	auth          *AuthService

	nextID int
}

func setup(t *testing.T) *fixture {
	t.Helper()
	testinfra.SkipIfNoDocker(t)

	pg := testinfra.NewPostgres(t)
	db, err := database.Connect(database.Options{URL: pg.DSN})
	require.NoError(t, err)
	t.Cleanup(func() { database.Close(db) }) //nolint:errcheck
	require.NoError(t, database.Migrate(db))

	store := &memoryStore{}
	recipes := NewRecipeService(db, store, nil)
	return &fixture{
		db:            db,
		store:         store,
		recipes:       recipes,
		membership:    NewMembershipService(db, recipes),
		shoppingList:  NewShoppingListService(db),
		subscriptions: NewSubscriptionService(db, recipes),
		users:         NewUserService(db),
		auth:          NewAuthService(db, "secret", time.Hour),
	}
}

func (f *fixture) user(t *testing.T) models.User {
	t.Helper()
	f.nextID++
	u, err := f.auth.Register(context.Background(), RegisterInput{
		Email:     fmt.Sprintf("user%d@example.com", f.nextID),
		Username:  fmt.Sprintf("user%d", f.nextID),
		FirstName: "Test",
		LastName:  "User",
		Password:  "password123",
	})
	require.NoError(t, err)
	return *u
}

func (f *fixture) tag(t *testing.T, slug string) models.Tag {
	t.Helper()
	f.nextID++
	tag := models.Tag{Name: slug, Color: fmt.Sprintf("#%06d", f.nextID), Slug: slug}
	require.NoError(t, f.db.Create(&tag).Error)
	return tag
}

func (f *fixture) ingredient(t *testing.T, name, unit string) models.Ingredient {
	t.Helper()
	ing := models.Ingredient{Name: name, MeasurementUnit: unit}
	require.NoError(t, f.db.Create(&ing).Error)
	return ing
}

func (f *fixture) recipe(t *testing.T, author models.User, tag models.Tag, amounts map[uint]int) *models.RecipeResponse {
	t.Helper()
	items := make([]IngredientAmountInput, 0, len(amounts))
	for id, amount := range amounts {
		items = append(items, IngredientAmountInput{ID: id, Amount: amount})
	}
	resp, err := f.recipes.Create(context.Background(), Actor{UserID: author.ID}, CreateRecipeInput{
		Ingredients: items,
		Tags:        []uint{tag.ID},
		Image:       pixelPNG,
		Name:        fmt.Sprintf("recipe by %s", author.Username),
		Text:        "mix and bake",
		CookingTime: 10,
	})
	require.NoError(t, err)
	return resp
}

func count(t *testing.T, db *gorm.DB, model any, where string, args ...any) int64 {
	t.Helper()
	var n int64
	require.NoError(t, db.Model(model).Where(where, args...).Count(&n).Error)
	return n
}

func TestIntegration(t *testing.T) {
	f := setup(t)
	ctx := context.Background()

	breakfast := f.tag(t, "breakfast")
	dinner := f.tag(t, "dinner")
	egg := f.ingredient(t, "egg", "pcs")
	flour := f.ingredient(t, "flour", "g")

	t.Run("duplicate favorite is rejected", func(t *testing.T) {
		u := f.user(t)
		r := f.recipe(t, u, breakfast, map[uint]int{egg.ID: 1})

		short, err := f.membership.Add(ctx, Favorites, u.ID, r.ID)
		require.NoError(t, err)
		assert.Equal(t, r.ID, short.ID)
		assert.Equal(t, "http://media.test/recipes/images/"+fmt.Sprint(f.store.saved)+".png", short.Image)

		_, err = f.membership.Add(ctx, Favorites, u.ID, r.ID)
		assert.ErrorIs(t, err, ErrAlreadyAdded)
		assert.EqualValues(t, 1, count(t, f.db, &models.Favorite{}, "user_id = ? AND recipe_id = ?", u.ID, r.ID))
	})

	t.Run("adding a missing recipe is not found", func(t *testing.T) {
		u := f.user(t)
		_, err := f.membership.Add(ctx, ShoppingCart, u.ID, 999999)
		assert.ErrorIs(t, err, ErrRecipeNotFound)
	})

	t.Run("removing a missing edge deletes nothing", func(t *testing.T) {
		u := f.user(t)
		other := f.user(t)
		r := f.recipe(t, u, breakfast, map[uint]int{egg.ID: 1})
		_, err := f.membership.Add(ctx, Favorites, other.ID, r.ID)
		require.NoError(t, err)

		err = f.membership.Remove(ctx, Favorites, u.ID, r.ID)
		assert.ErrorIs(t, err, ErrAlreadyRemoved)
		assert.EqualValues(t, 1, count(t, f.db, &models.Favorite{}, "recipe_id = ?", r.ID))

		require.NoError(t, f.membership.Remove(ctx, Favorites, other.ID, r.ID))
		assert.EqualValues(t, 0, count(t, f.db, &models.Favorite{}, "recipe_id = ?", r.ID))
	})

	t.Run("shopping list sums amounts per ingredient", func(t *testing.T) {
		u := f.user(t)
		a := f.recipe(t, u, breakfast, map[uint]int{egg.ID: 2, flour.ID: 100})
		b := f.recipe(t, u, dinner, map[uint]int{egg.ID: 1, flour.ID: 50})

		_, err := f.shoppingList.Build(ctx, u.ID)
		assert.ErrorIs(t, err, ErrEmptyCart)

		for _, r := range []*models.RecipeResponse{a, b} {
			_, err := f.membership.Add(ctx, ShoppingCart, u.ID, r.ID)
			require.NoError(t, err)
		}

		items, err := f.shoppingList.Build(ctx, u.ID)
		require.NoError(t, err)
		assert.Equal(t, []models.ShoppingListItem{
			{Name: "egg", MeasurementUnit: "pcs", Amount: 3},
			{Name: "flour", MeasurementUnit: "g", Amount: 150},
		}, items)
	})

	t.Run("cart whose recipes lost their ingredients is not empty", func(t *testing.T) {
		u := f.user(t)
		r := f.recipe(t, u, breakfast, map[uint]int{egg.ID: 1})
		_, err := f.membership.Add(ctx, ShoppingCart, u.ID, r.ID)
		require.NoError(t, err)
		require.NoError(t, f.db.Where("recipe_id = ?", r.ID).Delete(&models.IngredientRecipe{}).Error)

		items, err := f.shoppingList.Build(ctx, u.ID)
		require.NoError(t, err)
		assert.Empty(t, items)
	})

	t.Run("writes for a deleted account report it gone", func(t *testing.T) {
		u := f.user(t)
		author := f.user(t)
		r := f.recipe(t, author, breakfast, map[uint]int{egg.ID: 1})

		require.NoError(t, f.auth.DeleteAccount(ctx, u.ID, DeleteAccountInput{CurrentPassword: "password123"}))

		_, found, err := f.users.LookupAccount(ctx, u.ID)
		require.NoError(t, err)
		assert.False(t, found)

		_, err = f.membership.Add(ctx, Favorites, u.ID, r.ID)
		assert.ErrorIs(t, err, ErrAccountGone)

		_, err = f.subscriptions.Subscribe(ctx, u.ID, author.ID, 3)
		assert.ErrorIs(t, err, ErrAccountGone)

		_, err = f.recipes.Create(ctx, Actor{UserID: u.ID}, CreateRecipeInput{
			Ingredients: []IngredientAmountInput{{ID: egg.ID, Amount: 1}},
			Tags:        []uint{breakfast.ID},
			Image:       pixelPNG,
			Name:        "orphan",
			Text:        "never stored",
			CookingTime: 5,
		})
		assert.ErrorIs(t, err, ErrAccountGone)
		assert.EqualValues(t, 0, count(t, f.db, &models.Recipe{}, "name = ?", "orphan"))
	})

	t.Run("configured emails become administrators", func(t *testing.T) {
		existing := f.user(t)
		admins := NewAuthService(f.db, "secret", time.Hour, strings.ToUpper(existing.Email), " chef@example.com ")

		promoted, err := admins.PromoteAdmins(ctx)
		require.NoError(t, err)
		assert.EqualValues(t, 1, promoted)

		isAdmin, found, err := f.users.LookupAccount(ctx, existing.ID)
		require.NoError(t, err)
		assert.True(t, found)
		assert.True(t, isAdmin)

		promoted, err = admins.PromoteAdmins(ctx)
		require.NoError(t, err)
		assert.Zero(t, promoted)

		chef, err := admins.Register(ctx, RegisterInput{
			Email:     "chef@example.com",
			Username:  "chef",
			FirstName: "Head",
			LastName:  "Chef",
			Password:  "password123",
		})
		require.NoError(t, err)
		assert.True(t, chef.IsAdmin)

		isAdmin, _, err = f.users.LookupAccount(ctx, f.user(t).ID)
		require.NoError(t, err)
		assert.False(t, isAdmin)
	})

	t.Run("deleting a recipe cascades its edges", func(t *testing.T) {
		u := f.user(t)
		r := f.recipe(t, u, breakfast, map[uint]int{egg.ID: 2, flour.ID: 10})
		_, err := f.membership.Add(ctx, Favorites, u.ID, r.ID)
		require.NoError(t, err)
		_, err = f.membership.Add(ctx, ShoppingCart, u.ID, r.ID)
		require.NoError(t, err)

		require.NoError(t, f.recipes.Delete(ctx, r.ID, Actor{UserID: u.ID}))

		assert.EqualValues(t, 0, count(t, f.db, &models.Favorite{}, "recipe_id = ?", r.ID))
		assert.EqualValues(t, 0, count(t, f.db, &models.ShoppingCartItem{}, "recipe_id = ?", r.ID))
		assert.EqualValues(t, 0, count(t, f.db, &models.IngredientRecipe{}, "recipe_id = ?", r.ID))
		assert.EqualValues(t, 1, count(t, f.db, &models.User{}, "id = ?", u.ID))
		assert.Contains(t, f.store.deleted, "recipes/images/"+fmt.Sprint(f.store.saved)+".png")
	})

	t.Run("only the author or an admin may delete", func(t *testing.T) {
		u := f.user(t)
		other := f.user(t)
		r := f.recipe(t, u, breakfast, map[uint]int{egg.ID: 1})

		assert.ErrorIs(t, f.recipes.Delete(ctx, r.ID, Actor{UserID: other.ID}), ErrForbidden)
		assert.NoError(t, f.recipes.Delete(ctx, r.ID, Actor{UserID: other.ID, IsAdmin: true}))
	})

	t.Run("deleting a user keeps their recipes", func(t *testing.T) {
		u := f.user(t)
		r := f.recipe(t, u, breakfast, map[uint]int{egg.ID: 1})

		require.NoError(t, f.auth.DeleteAccount(ctx, u.ID, DeleteAccountInput{CurrentPassword: "password123"}))

		var recipe models.Recipe
		require.NoError(t, f.db.First(&recipe, r.ID).Error)
		assert.Nil(t, recipe.AuthorID)

		got, err := f.recipes.Get(ctx, r.ID, nil)
		require.NoError(t, err)
		assert.Nil(t, got.Author)
	})

	t.Run("is_favorited is scoped to the viewer", func(t *testing.T) {
		author := f.user(t)
		viewer := f.user(t)
		other := f.user(t)
		mine := f.recipe(t, author, dinner, map[uint]int{flour.ID: 1})
		theirs := f.recipe(t, author, dinner, map[uint]int{flour.ID: 2})

		_, err := f.membership.Add(ctx, Favorites, viewer.ID, mine.ID)
		require.NoError(t, err)
		_, err = f.membership.Add(ctx, Favorites, other.ID, theirs.ID)
		require.NoError(t, err)

		query := RecipeQuery{AuthorID: &author.ID, IsFavorited: boolPtr(true)}
		results, total, err := f.recipes.List(ctx, &viewer.ID, query, pagination.Params{Page: 1, Limit: 10})
		require.NoError(t, err)
		require.EqualValues(t, 1, total)
		assert.Equal(t, mine.ID, results[0].ID)
		assert.True(t, results[0].IsFavorited)

		results, total, err = f.recipes.List(ctx, nil, query, pagination.Params{Page: 1, Limit: 10})
		require.NoError(t, err)
		assert.EqualValues(t, 2, total)
		for _, r := range results {
			assert.False(t, r.IsFavorited)
		}
	})

	t.Run("tag filter and pagination", func(t *testing.T) {
		author := f.user(t)
		lunch := f.tag(t, "lunch")
		first := f.recipe(t, author, lunch, map[uint]int{egg.ID: 1})
		second := f.recipe(t, author, lunch, map[uint]int{egg.ID: 1})

		query := RecipeQuery{Tags: []string{"lunch", "missing"}}
		page, total, err := f.recipes.List(ctx, nil, query, pagination.Params{Page: 1, Limit: 1})
		require.NoError(t, err)
		assert.EqualValues(t, 2, total)
		require.Len(t, page, 1)
		assert.Equal(t, second.ID, page[0].ID)

		page, _, err = f.recipes.List(ctx, nil, query, pagination.Params{Page: 2, Limit: 1})
		require.NoError(t, err)
		require.Len(t, page, 1)
		assert.Equal(t, first.ID, page[0].ID)

		page, _, err = f.recipes.List(ctx, nil, query, pagination.Params{Page: 5, Limit: 1})
		require.NoError(t, err)
		assert.Empty(t, page)
	})

	t.Run("create validates references", func(t *testing.T) {
		u := f.user(t)
		_, err := f.recipes.Create(ctx, Actor{UserID: u.ID}, CreateRecipeInput{
			Ingredients: []IngredientAmountInput{{ID: 424242, Amount: 1}},
			Tags:        []uint{breakfast.ID},
			Image:       pixelPNG,
			Name:        "ghost",
			Text:        "nothing",
			CookingTime: 1,
		})
		var verr *validation.RequestValidationError
		require.ErrorAs(t, err, &verr)
		assert.Contains(t, verr.Fields(), "ingredients")

		_, err = f.recipes.Create(ctx, Actor{UserID: u.ID}, CreateRecipeInput{
			Ingredients: []IngredientAmountInput{{ID: egg.ID, Amount: 1}},
			Tags:        []uint{breakfast.ID},
			Image:       "data:text/plain;base64,aGVsbG8=",
			Name:        "bad image",
			Text:        "nothing",
			CookingTime: 1,
		})
		require.ErrorAs(t, err, &verr)
		assert.Contains(t, verr.Fields(), "image")
	})

	t.Run("update replaces ingredients and tags", func(t *testing.T) {
		u := f.user(t)
		r := f.recipe(t, u, breakfast, map[uint]int{egg.ID: 2, flour.ID: 100})
		name := "renamed"

		got, err := f.recipes.Update(ctx, r.ID, Actor{UserID: u.ID}, UpdateRecipeInput{
			Ingredients: []IngredientAmountInput{{ID: flour.ID, Amount: 300}},
			Tags:        []uint{dinner.ID},
			Name:        &name,
		})
		require.NoError(t, err)
		assert.Equal(t, "renamed", got.Name)
		require.Len(t, got.Ingredients, 1)
		assert.Equal(t, 300, got.Ingredients[0].Amount)
		require.Len(t, got.Tags, 1)
		assert.Equal(t, "dinner", got.Tags[0].Slug)
		assert.Equal(t, r.Text, got.Text)

		_, err = f.recipes.Update(ctx, r.ID, Actor{UserID: f.user(t).ID}, UpdateRecipeInput{Name: &name})
		assert.ErrorIs(t, err, ErrForbidden)
	})

	t.Run("subscriptions", func(t *testing.T) {
		follower := f.user(t)
		author := f.user(t)
		for i := 0; i < 4; i++ {
			f.recipe(t, author, breakfast, map[uint]int{egg.ID: 1})
		}

		_, err := f.subscriptions.Subscribe(ctx, follower.ID, follower.ID, 3)
		assert.ErrorIs(t, err, ErrSelfSubscription)

		_, err = f.subscriptions.Subscribe(ctx, follower.ID, 999999, 3)
		assert.ErrorIs(t, err, ErrUserNotFound)

		card, err := f.subscriptions.Subscribe(ctx, follower.ID, author.ID, 2)
		require.NoError(t, err)
		assert.True(t, card.IsSubscribed)
		assert.Len(t, card.Recipes, 2)
		assert.EqualValues(t, 4, card.RecipesCount)

		_, err = f.subscriptions.Subscribe(ctx, follower.ID, author.ID, 2)
		assert.ErrorIs(t, err, ErrAlreadySubscribed)

		cards, total, err := f.subscriptions.List(ctx, follower.ID, pagination.Params{Page: 1, Limit: 10}, 3)
		require.NoError(t, err)
		assert.EqualValues(t, 1, total)
		require.Len(t, cards, 1)
		assert.Len(t, cards[0].Recipes, 3)

		viewed, err := f.users.GetByID(ctx, author.ID, &follower.ID)
		require.NoError(t, err)
		assert.True(t, viewed.IsSubscribed)

		require.NoError(t, f.subscriptions.Unsubscribe(ctx, follower.ID, author.ID))
		assert.ErrorIs(t, f.subscriptions.Unsubscribe(ctx, follower.ID, author.ID), ErrNotSubscribed)
	})
}
