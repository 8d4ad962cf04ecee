package services

import (
	"context"
	"errors"

	"foodgram-api/internal/models"
	"foodgram-api/internal/pagination"

	"go.opentelemetry.io/otel/attribute"
	"gorm.io/gorm"
)

type UserService struct {
	db *gorm.DB
}

func NewUserService(db *gorm.DB) *UserService {
	return &UserService{db: db}
}

func (s *UserService) GetByID(ctx context.Context, id uint, viewerID *uint) (*models.UserResponse, error) {
	ctx, span := tracer.Start(ctx, "user.get_by_id")
	defer span.End()

	span.SetAttributes(attribute.Int64("user.id", int64(id)))

	var user models.User
	if err := s.db.WithContext(ctx).First(&user, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, err
	}

	subscribed, err := s.subscribedTo(ctx, viewerID, []uint{user.ID})
	if err != nil {
		return nil, err
	}

	resp := user.ToResponse(subscribed[user.ID])
	return &resp, nil
}

func (s *UserService) List(ctx context.Context, viewerID *uint, params pagination.Params) ([]models.UserResponse, int64, error) {
	ctx, span := tracer.Start(ctx, "user.list")
	defer span.End()

	span.SetAttributes(
		attribute.Int("pagination.page", params.Page),
		attribute.Int("pagination.limit", params.Limit),
	)

	var total int64
	if err := s.db.WithContext(ctx).Model(&models.User{}).Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var users []models.User
	if err := s.db.WithContext(ctx).
		Order("id").
		Offset(params.Offset()).
		Limit(params.Limit).
		Find(&users).Error; err != nil {
		return nil, 0, err
	}

	ids := make([]uint, len(users))
	for i, u := range users {
		ids[i] = u.ID
	}
	subscribed, err := s.subscribedTo(ctx, viewerID, ids)
	if err != nil {
		return nil, 0, err
	}

	responses := make([]models.UserResponse, len(users))
	for i := range users {
		responses[i] = users[i].ToResponse(subscribed[users[i].ID])
	}
	return responses, total, nil
}

func (s *UserService) subscribedTo(ctx context.Context, viewerID *uint, authorIDs []uint) (map[uint]bool, error) {
	if viewerID == nil || len(authorIDs) == 0 {
		return map[uint]bool{}, nil
	}
	return idSet(s.db.WithContext(ctx).Model(&models.Subscription{}).
		Where("user_id = ? AND author_id IN ?", *viewerID, authorIDs), "author_id")
}

// LookupAccount reports whether userID still exists and whether it is an
// administrator right now.
func (s *UserService) LookupAccount(ctx context.Context, userID uint) (bool, bool, error) {
	var user models.User
	err := s.db.WithContext(ctx).Select("id", "is_admin").Take(&user, userID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return false, false, nil
	}
	if err != nil {
		return false, false, err
	}
	return user.IsAdmin, true, nil
}
