package services

import (
	"context"
	"errors"

	"foodgram-api/internal/logging"
	"foodgram-api/internal/models"

	"go.opentelemetry.io/otel/attribute"
	"gorm.io/gorm"
)

var ErrTagExists = errors.New("tag with this name, color or slug already exists")

type TagService struct {
	db *gorm.DB
}

func NewTagService(db *gorm.DB) *TagService {
	return &TagService{db: db}
}

type CreateTagInput struct {
	Name  string `json:"name" validate:"required,max=200"`
	Color string `json:"color" validate:"required,hexcolor,len=7"`
	Slug  string `json:"slug" validate:"required,max=200,slug"`
}

func (s *TagService) List(ctx context.Context) ([]models.Tag, error) {
	ctx, span := tracer.Start(ctx, "tag.list")
	defer span.End()

	tags := make([]models.Tag, 0)
	if err := s.db.WithContext(ctx).Order("id").Find(&tags).Error; err != nil {
		return nil, err
	}
	return tags, nil
}

func (s *TagService) Get(ctx context.Context, id uint) (*models.Tag, error) {
	ctx, span := tracer.Start(ctx, "tag.get")
	defer span.End()

	span.SetAttributes(attribute.Int64("tag.id", int64(id)))

	var tag models.Tag
	if err := s.db.WithContext(ctx).First(&tag, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrTagNotFound
		}
		return nil, err
	}
	return &tag, nil
}

func (s *TagService) Create(ctx context.Context, input CreateTagInput) (*models.Tag, error) {
	ctx, span := tracer.Start(ctx, "tag.create")
	defer span.End()

	span.SetAttributes(attribute.String("tag.slug", input.Slug))

	tag := models.Tag{Name: input.Name, Color: input.Color, Slug: input.Slug}
	if err := s.db.WithContext(ctx).Create(&tag).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil, ErrTagExists
		}
		return nil, err
	}

	logging.Info(ctx).Uint("tag_id", tag.ID).Str("slug", tag.Slug).Msg("tag created")
	return &tag, nil
}
