package services

import (
	"context"
	"errors"
	"fmt"

	"foodgram-api/internal/logging"
	"foodgram-api/internal/models"
	"foodgram-api/internal/pagination"
	"foodgram-api/internal/storage"
	"foodgram-api/internal/validation"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"gorm.io/gorm"
)

type RecipeService struct {
	db             *gorm.DB
	store          storage.ImageStore
	jobs           Jobs
	recipesCreated metric.Int64Counter
	recipesDeleted metric.Int64Counter
}

func NewRecipeService(db *gorm.DB, store storage.ImageStore, jobs Jobs) *RecipeService {
	return &RecipeService{
		db:             db,
		store:          store,
		jobs:           jobs,
		recipesCreated: newCounter("recipes.created", "Total number of recipes created"),
		recipesDeleted: newCounter("recipes.deleted", "Total number of recipes deleted"),
	}
}

type IngredientAmountInput struct {
	ID     uint `json:"id" validate:"required"`
	Amount int  `json:"amount" validate:"min=1,max=32000"`
}

type CreateRecipeInput struct {
	Ingredients []IngredientAmountInput `json:"ingredients" validate:"required,min=1,unique=ID,dive"`
	Tags        []uint                  `json:"tags" validate:"required,min=1,unique,dive,required"`
	Image       string                  `json:"image" validate:"required"`
	Name        string                  `json:"name" validate:"required,max=200"`
	Text        string                  `json:"text" validate:"required"`
	CookingTime int                     `json:"cooking_time" validate:"min=1,max=32000"`
}

// UpdateRecipeInput changes only the fields present in the request. A given
// ingredient or tag list replaces the old one entirely.
type UpdateRecipeInput struct {
	Ingredients []IngredientAmountInput `json:"ingredients" validate:"omitempty,unique=ID,dive"`
	Tags        []uint                  `json:"tags" validate:"omitempty,unique,dive,required"`
	Image       *string                 `json:"image" validate:"omitnil,min=1"`
	Name        *string                 `json:"name" validate:"omitnil,min=1,max=200"`
	Text        *string                 `json:"text" validate:"omitnil,min=1"`
	CookingTime *int                    `json:"cooking_time" validate:"omitnil,min=1,max=32000"`
}

func (s *RecipeService) Create(ctx context.Context, actor Actor, input CreateRecipeInput) (*models.RecipeResponse, error) {
	ctx, span := tracer.Start(ctx, "recipe.create")
	defer span.End()

	span.SetAttributes(
		attribute.Int64("author.id", int64(actor.UserID)),
		attribute.String("recipe.name", input.Name),
	)

	tags, err := s.loadTags(ctx, input.Tags)
	if err != nil {
		return nil, err
	}
	if err := s.checkIngredients(ctx, input.Ingredients); err != nil {
		return nil, err
	}

	imageKey, err := s.saveImage(ctx, input.Image)
	if err != nil {
		return nil, err
	}

	authorID := actor.UserID
	recipe := models.Recipe{
		AuthorID:    &authorID,
		Name:        input.Name,
		Image:       imageKey,
		Text:        input.Text,
		CookingTime: input.CookingTime,
		Tags:        tags,
		Ingredients: ingredientRows(input.Ingredients),
	}

	if err := s.db.WithContext(ctx).Omit("Tags.*").Create(&recipe).Error; err != nil {
		s.discardImage(ctx, imageKey)
		if errors.Is(err, gorm.ErrForeignKeyViolated) {
			return nil, missingReference(ctx, s.db, actor.UserID, err)
		}
		return nil, err
	}

	addCount(ctx, s.recipesCreated)
	span.SetAttributes(attribute.Int64("recipe.id", int64(recipe.ID)))

	logging.Info(ctx).
		Uint("recipe_id", recipe.ID).
		Uint("author_id", actor.UserID).
		Msg("recipe created")

	if s.jobs != nil {
		if err := s.jobs.EnqueueRecipePublished(ctx, recipe.ID, actor.UserID, recipe.Name); err != nil {
			logging.Warn(ctx).Err(err).Uint("recipe_id", recipe.ID).Msg("failed to enqueue recipe published job")
		}
	}

	viewer := actor.UserID
	return s.Get(ctx, recipe.ID, &viewer)
}

func (s *RecipeService) Update(ctx context.Context, id uint, actor Actor, input UpdateRecipeInput) (*models.RecipeResponse, error) {
	ctx, span := tracer.Start(ctx, "recipe.update")
	defer span.End()

	span.SetAttributes(
		attribute.Int64("recipe.id", int64(id)),
		attribute.Int64("user.id", int64(actor.UserID)),
	)

	recipe, err := s.find(ctx, id)
	if err != nil {
		return nil, err
	}
	if !canModify(recipe, actor) {
		return nil, ErrForbidden
	}

	if input.Ingredients != nil && len(input.Ingredients) == 0 {
		return nil, validation.NewFieldError("ingredients", "At least one ingredient is required.")
	}
	if input.Tags != nil && len(input.Tags) == 0 {
		return nil, validation.NewFieldError("tags", "At least one tag is required.")
	}

	var tags []models.Tag
	if input.Tags != nil {
		if tags, err = s.loadTags(ctx, input.Tags); err != nil {
			return nil, err
		}
	}
	if input.Ingredients != nil {
		if err := s.checkIngredients(ctx, input.Ingredients); err != nil {
			return nil, err
		}
	}

	updates := make(map[string]any)
	if input.Name != nil {
		updates["name"] = *input.Name
	}
	if input.Text != nil {
		updates["text"] = *input.Text
	}
	if input.CookingTime != nil {
		updates["cooking_time"] = *input.CookingTime
	}

	oldImage := recipe.Image
	newImage := ""
	if input.Image != nil {
		if newImage, err = s.saveImage(ctx, *input.Image); err != nil {
			return nil, err
		}
		updates["image"] = newImage
	}

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if len(updates) > 0 {
			if err := tx.Model(recipe).Updates(updates).Error; err != nil {
				return err
			}
		}
		if input.Tags != nil {
			if err := tx.Model(recipe).Omit("Tags.*").Association("Tags").Replace(tags); err != nil {
				return err
			}
		}
		if input.Ingredients != nil {
			if err := tx.Where("recipe_id = ?", recipe.ID).Delete(&models.IngredientRecipe{}).Error; err != nil {
				return err
			}
			rows := ingredientRows(input.Ingredients)
			for i := range rows {
				rows[i].RecipeID = recipe.ID
			}
			if err := tx.Omit("Ingredient").Create(&rows).Error; err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		if newImage != "" {
			s.discardImage(ctx, newImage)
		}
		return nil, err
	}

	if newImage != "" && oldImage != "" {
		s.discardImage(ctx, oldImage)
	}

	logging.Info(ctx).
		Uint("recipe_id", recipe.ID).
		Uint("user_id", actor.UserID).
		Msg("recipe updated")

	viewer := actor.UserID
	return s.Get(ctx, recipe.ID, &viewer)
}

// Delete removes the recipe. Its tag links, ingredient rows, favorites and
// cart entries are removed by the database cascade.
func (s *RecipeService) Delete(ctx context.Context, id uint, actor Actor) error {
	ctx, span := tracer.Start(ctx, "recipe.delete")
	defer span.End()

	span.SetAttributes(
		attribute.Int64("recipe.id", int64(id)),
		attribute.Int64("user.id", int64(actor.UserID)),
	)

	recipe, err := s.find(ctx, id)
	if err != nil {
		return err
	}
	if !canModify(recipe, actor) {
		return ErrForbidden
	}

	if err := s.db.WithContext(ctx).Delete(recipe).Error; err != nil {
		return err
	}

	addCount(ctx, s.recipesDeleted)
	if recipe.Image != "" {
		s.discardImage(ctx, recipe.Image)
	}

	logging.Info(ctx).
		Uint("recipe_id", id).
		Uint("user_id", actor.UserID).
		Msg("recipe deleted")

	return nil
}

func (s *RecipeService) Get(ctx context.Context, id uint, viewerID *uint) (*models.RecipeResponse, error) {
	ctx, span := tracer.Start(ctx, "recipe.get")
	defer span.End()

	span.SetAttributes(attribute.Int64("recipe.id", int64(id)))

	var recipe models.Recipe
	if err := s.withDetails(s.db.WithContext(ctx)).First(&recipe, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrRecipeNotFound
		}
		return nil, err
	}

	responses, err := s.annotate(ctx, viewerID, []models.Recipe{recipe})
	if err != nil {
		return nil, err
	}
	return &responses[0], nil
}

// List returns one page of recipes matching every filter, newest first,
// together with the total number of matches.
func (s *RecipeService) List(ctx context.Context, viewerID *uint, query RecipeQuery, params pagination.Params) ([]models.RecipeResponse, int64, error) {
	ctx, span := tracer.Start(ctx, "recipe.list")
	defer span.End()

	span.SetAttributes(
		attribute.Int("pagination.page", params.Page),
		attribute.Int("pagination.limit", params.Limit),
		attribute.StringSlice("filter.tags", query.Tags),
	)

	filtered := Apply(s.db.WithContext(ctx).Model(&models.Recipe{}), query.Filters(viewerID)...)

	var total int64
	if err := filtered.Session(&gorm.Session{}).Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var recipes []models.Recipe
	if err := s.withDetails(filtered.Session(&gorm.Session{})).
		Order("recipes.created_at DESC").
		Order("recipes.id DESC").
		Offset(params.Offset()).
		Limit(params.Limit).
		Find(&recipes).Error; err != nil {
		return nil, 0, err
	}

	span.SetAttributes(
		attribute.Int64("result.total_count", total),
		attribute.Int("result.count", len(recipes)),
	)

	responses, err := s.annotate(ctx, viewerID, recipes)
	if err != nil {
		return nil, 0, err
	}
	return responses, total, nil
}

// ImageURL maps a stored image key to its public URL.
func (s *RecipeService) ImageURL(key string) string {
	if key == "" {
		return ""
	}
	return s.store.URL(key)
}

func (s *RecipeService) withDetails(db *gorm.DB) *gorm.DB {
	return db.
		Preload("Author").
		Preload("Tags", func(db *gorm.DB) *gorm.DB { return db.Order("tags.id") }).
		Preload("Ingredients", func(db *gorm.DB) *gorm.DB { return db.Order("ingredient_recipes.id") }).
		Preload("Ingredients.Ingredient")
}

// annotate computes the viewer flags for a batch of recipes with one query
// per relation.
func (s *RecipeService) annotate(ctx context.Context, viewerID *uint, recipes []models.Recipe) ([]models.RecipeResponse, error) {
	favorited := map[uint]bool{}
	carted := map[uint]bool{}
	subscribed := map[uint]bool{}

	if viewerID != nil && len(recipes) > 0 {
		recipeIDs := make([]uint, 0, len(recipes))
		authorIDs := make([]uint, 0, len(recipes))
		for _, r := range recipes {
			recipeIDs = append(recipeIDs, r.ID)
			if r.AuthorID != nil {
				authorIDs = append(authorIDs, *r.AuthorID)
			}
		}

		db := s.db.WithContext(ctx)
		var err error
		if favorited, err = idSet(db.Model(&models.Favorite{}).
			Where("user_id = ? AND recipe_id IN ?", *viewerID, recipeIDs), "recipe_id"); err != nil {
			return nil, err
		}
		if carted, err = idSet(db.Model(&models.ShoppingCartItem{}).
			Where("user_id = ? AND recipe_id IN ?", *viewerID, recipeIDs), "recipe_id"); err != nil {
			return nil, err
		}
		if len(authorIDs) > 0 {
			if subscribed, err = idSet(db.Model(&models.Subscription{}).
				Where("user_id = ? AND author_id IN ?", *viewerID, authorIDs), "author_id"); err != nil {
				return nil, err
			}
		}
	}

	responses := make([]models.RecipeResponse, len(recipes))
	for i := range recipes {
		r := &recipes[i]
		flags := models.RecipeFlags{
			IsFavorited:      favorited[r.ID],
			IsInShoppingCart: carted[r.ID],
		}
		if r.AuthorID != nil {
			flags.AuthorSubscribed = subscribed[*r.AuthorID]
		}
		responses[i] = r.ToResponse(flags, s.ImageURL)
	}
	return responses, nil
}

func idSet(query *gorm.DB, column string) (map[uint]bool, error) {
	var ids []uint
	if err := query.Pluck(column, &ids).Error; err != nil {
		return nil, err
	}
	set := make(map[uint]bool, len(ids))
	for _, id := range ids {
		set[id] = true
	}
	return set, nil
}

func (s *RecipeService) find(ctx context.Context, id uint) (*models.Recipe, error) {
	var recipe models.Recipe
	if err := s.db.WithContext(ctx).First(&recipe, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrRecipeNotFound
		}
		return nil, err
	}
	return &recipe, nil
}

func canModify(recipe *models.Recipe, actor Actor) bool {
	if actor.IsAdmin {
		return true
	}
	return recipe.AuthorID != nil && *recipe.AuthorID == actor.UserID
}

func (s *RecipeService) loadTags(ctx context.Context, ids []uint) ([]models.Tag, error) {
	var tags []models.Tag
	if err := s.db.WithContext(ctx).Where("id IN ?", ids).Order("id").Find(&tags).Error; err != nil {
		return nil, err
	}
	if len(tags) != len(ids) {
		found := make(map[uint]bool, len(tags))
		for _, t := range tags {
			found[t.ID] = true
		}
		for _, id := range ids {
			if !found[id] {
				return nil, validation.NewFieldError("tags", fmt.Sprintf("Invalid pk \"%d\" - object does not exist.", id))
			}
		}
	}
	return tags, nil
}

func (s *RecipeService) checkIngredients(ctx context.Context, items []IngredientAmountInput) error {
	ids := make([]uint, len(items))
	for i, item := range items {
		ids[i] = item.ID
	}

	var found []uint
	if err := s.db.WithContext(ctx).Model(&models.Ingredient{}).Where("id IN ?", ids).Pluck("id", &found).Error; err != nil {
		return err
	}
	if len(found) == len(ids) {
		return nil
	}

	exists := make(map[uint]bool, len(found))
	for _, id := range found {
		exists[id] = true
	}
	for _, id := range ids {
		if !exists[id] {
			return validation.NewFieldError("ingredients", fmt.Sprintf("Invalid pk \"%d\" - object does not exist.", id))
		}
	}
	return nil
}

func ingredientRows(items []IngredientAmountInput) []models.IngredientRecipe {
	rows := make([]models.IngredientRecipe, len(items))
	for i, item := range items {
		rows[i] = models.IngredientRecipe{IngredientID: item.ID, Amount: item.Amount}
	}
	return rows
}

func (s *RecipeService) saveImage(ctx context.Context, encoded string) (string, error) {
	img, err := storage.DecodeImage(encoded)
	if err != nil {
		return "", validation.NewFieldError("image", "Upload a valid image.")
	}
	return s.store.Save(ctx, img)
}

// discardImage hands the file to the worker, or removes it inline when no
// queue is configured.
func (s *RecipeService) discardImage(ctx context.Context, key string) {
	if s.jobs != nil {
		if err := s.jobs.EnqueueImageDelete(ctx, key); err != nil {
			logging.Warn(ctx).Err(err).Str("image_key", key).Msg("failed to enqueue image delete job")
		}
		return
	}
	if err := s.store.Delete(ctx, key); err != nil {
		logging.Warn(ctx).Err(err).Str("image_key", key).Msg("failed to delete image")
	}
}
