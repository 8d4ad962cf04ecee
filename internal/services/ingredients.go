package services

import (
	"context"
	"errors"
	"strings"

	"foodgram-api/internal/logging"
	"foodgram-api/internal/models"

	"go.opentelemetry.io/otel/attribute"
	"gorm.io/gorm"
)

var ErrIngredientExists = errors.New("ingredient with this name and measurement unit already exists")

type IngredientService struct {
	db *gorm.DB
}

func NewIngredientService(db *gorm.DB) *IngredientService {
	return &IngredientService{db: db}
}

type CreateIngredientInput struct {
	Name            string `json:"name" validate:"required,max=200"`
	MeasurementUnit string `json:"measurement_unit" validate:"required,max=200"`
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

// Search lists ingredients whose name starts with prefix, ignoring case.
// An empty prefix lists everything.
func (s *IngredientService) Search(ctx context.Context, prefix string) ([]models.Ingredient, error) {
	ctx, span := tracer.Start(ctx, "ingredient.search")
	defer span.End()

	span.SetAttributes(attribute.String("search.prefix", prefix))

	query := s.db.WithContext(ctx).Model(&models.Ingredient{})
	if prefix != "" {
		query = query.Where("name ILIKE ?", likeEscaper.Replace(prefix)+"%")
	}

	ingredients := make([]models.Ingredient, 0)
	if err := query.Order("name").Order("id").Find(&ingredients).Error; err != nil {
		return nil, err
	}

	span.SetAttributes(attribute.Int("result.count", len(ingredients)))
	return ingredients, nil
}

func (s *IngredientService) Get(ctx context.Context, id uint) (*models.Ingredient, error) {
	ctx, span := tracer.Start(ctx, "ingredient.get")
	defer span.End()

	span.SetAttributes(attribute.Int64("ingredient.id", int64(id)))

	var ingredient models.Ingredient
	if err := s.db.WithContext(ctx).First(&ingredient, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrIngredientNotFound
		}
		return nil, err
	}
	return &ingredient, nil
}

// Create inserts all ingredients in one transaction; any duplicate aborts
// the whole batch.
func (s *IngredientService) Create(ctx context.Context, inputs []CreateIngredientInput) ([]models.Ingredient, error) {
	ctx, span := tracer.Start(ctx, "ingredient.create")
	defer span.End()

	span.SetAttributes(attribute.Int("ingredient.count", len(inputs)))

	ingredients := make([]models.Ingredient, len(inputs))
	for i, in := range inputs {
		ingredients[i] = models.Ingredient{Name: in.Name, MeasurementUnit: in.MeasurementUnit}
	}

	if err := s.db.WithContext(ctx).Create(&ingredients).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil, ErrIngredientExists
		}
		return nil, err
	}

	logging.Info(ctx).Int("count", len(ingredients)).Msg("ingredients created")
	return ingredients, nil
}
