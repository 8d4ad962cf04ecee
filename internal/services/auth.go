package services

import (
	"context"
	"errors"
	"strings"
	"time"

	"foodgram-api/internal/logging"
	"foodgram-api/internal/middleware"
	"foodgram-api/internal/models"
	"foodgram-api/internal/validation"

	"github.com/golang-jwt/jwt/v5"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

type AuthService struct {
	db                  *gorm.DB
	jwtSecret           string
	jwtExpiresIn        time.Duration
	adminEmails         map[string]bool
	registrationCounter metric.Int64Counter
	loginCounter        metric.Int64Counter
}

// NewAuthService builds the account service. Accounts registered under one of
// adminEmails, compared case-insensitively, become administrators.
func NewAuthService(db *gorm.DB, jwtSecret string, jwtExpiresIn time.Duration, adminEmails ...string) *AuthService {
	admins := make(map[string]bool, len(adminEmails))
	for _, email := range adminEmails {
		if email = strings.ToLower(strings.TrimSpace(email)); email != "" {
			admins[email] = true
		}
	}

	return &AuthService{
		db:                  db,
		jwtSecret:           jwtSecret,
		jwtExpiresIn:        jwtExpiresIn,
		adminEmails:         admins,
		registrationCounter: newCounter("auth.registration.total", "Total number of user registrations"),
		loginCounter:        newCounter("auth.login.attempts", "Total number of login attempts"),
	}
}

type RegisterInput struct {
	Email     string `json:"email" validate:"required,email,max=254"`
	Username  string `json:"username" validate:"required,max=150,username"`
	FirstName string `json:"first_name" validate:"required,max=150"`
	LastName  string `json:"last_name" validate:"required,max=150"`
	Password  string `json:"password" validate:"required,min=8,max=128"`
}

type LoginInput struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

type TokenResponse struct {
	AuthToken string `json:"auth_token"`
}

type SetPasswordInput struct {
	CurrentPassword string `json:"current_password" validate:"required"`
	NewPassword     string `json:"new_password" validate:"required,min=8,max=128"`
}

type DeleteAccountInput struct {
	CurrentPassword string `json:"current_password" validate:"required"`
}

func (s *AuthService) Register(ctx context.Context, input RegisterInput) (*models.User, error) {
	ctx, span := tracer.Start(ctx, "user.register")
	defer span.End()

	span.SetAttributes(attribute.String("user.email", input.Email))

	if strings.EqualFold(input.Username, "me") {
		return nil, validation.NewFieldError("username", "This username is reserved.")
	}

	var existing int64
	if err := s.db.WithContext(ctx).Model(&models.User{}).
		Where("email = ? OR username = ?", input.Email, input.Username).
		Count(&existing).Error; err != nil {
		return nil, err
	}
	if existing > 0 {
		span.SetAttributes(attribute.Bool("user.exists", true))
		return nil, ErrUserExists
	}

	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(input.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, err
	}

	user := models.User{
		Email:        input.Email,
		Username:     input.Username,
		FirstName:    input.FirstName,
		LastName:     input.LastName,
		PasswordHash: string(hashedPassword),
		IsAdmin:      s.adminEmails[strings.ToLower(input.Email)],
	}

	if err := s.db.WithContext(ctx).Create(&user).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil, ErrUserExists
		}
		return nil, err
	}

	addCount(ctx, s.registrationCounter)

	span.SetAttributes(attribute.Int64("user.id", int64(user.ID)))

	logging.Info(ctx).
		Uint("user_id", user.ID).
		Str("username", user.Username).
		Msg("user registered")

	return &user, nil
}

// PromoteAdmins grants the administrator flag to existing accounts listed in
// adminEmails and returns how many changed.
func (s *AuthService) PromoteAdmins(ctx context.Context) (int64, error) {
	if len(s.adminEmails) == 0 {
		return 0, nil
	}

	emails := make([]string, 0, len(s.adminEmails))
	for email := range s.adminEmails {
		emails = append(emails, email)
	}

	result := s.db.WithContext(ctx).Model(&models.User{}).
		Where("LOWER(email) IN ? AND is_admin = ?", emails, false).
		Update("is_admin", true)
	if result.Error != nil {
		return 0, result.Error
	}

	if result.RowsAffected > 0 {
		logging.Info(ctx).Int64("promoted", result.RowsAffected).Msg("administrators promoted")
	}
	return result.RowsAffected, nil
}

func (s *AuthService) Login(ctx context.Context, input LoginInput) (*TokenResponse, error) {
	ctx, span := tracer.Start(ctx, "user.login")
	defer span.End()

	span.SetAttributes(attribute.String("user.email", input.Email))

	addCount(ctx, s.loginCounter)

	var user models.User
	if err := s.db.WithContext(ctx).Where("email = ?", input.Email).First(&user).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			span.SetAttributes(attribute.Bool("login.success", false))
			return nil, ErrInvalidCredentials
		}
		return nil, err
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(input.Password)); err != nil {
		span.SetAttributes(attribute.Bool("login.success", false))
		return nil, ErrInvalidCredentials
	}

	token, err := s.GenerateToken(&user)
	if err != nil {
		return nil, err
	}

	span.SetAttributes(attribute.Bool("login.success", true))

	logging.Info(ctx).
		Uint("user_id", user.ID).
		Msg("user logged in")

	return &TokenResponse{AuthToken: token}, nil
}

func (s *AuthService) SetPassword(ctx context.Context, userID uint, input SetPasswordInput) error {
	ctx, span := tracer.Start(ctx, "user.set_password")
	defer span.End()

	user, err := s.checkPassword(ctx, userID, input.CurrentPassword)
	if err != nil {
		return err
	}

	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(input.NewPassword), bcrypt.DefaultCost)
	if err != nil {
		return err
	}

	if err := s.db.WithContext(ctx).Model(user).Update("password_hash", string(hashedPassword)).Error; err != nil {
		return err
	}

	logging.Info(ctx).Uint("user_id", userID).Msg("password changed")
	return nil
}

// DeleteAccount removes the user. Their edges go with them; recipes they
// authored stay with a NULL author.
func (s *AuthService) DeleteAccount(ctx context.Context, userID uint, input DeleteAccountInput) error {
	ctx, span := tracer.Start(ctx, "user.delete")
	defer span.End()

	user, err := s.checkPassword(ctx, userID, input.CurrentPassword)
	if err != nil {
		return err
	}

	if err := s.db.WithContext(ctx).Delete(user).Error; err != nil {
		return err
	}

	logging.Info(ctx).Uint("user_id", userID).Msg("user deleted")
	return nil
}

func (s *AuthService) checkPassword(ctx context.Context, userID uint, password string) (*models.User, error) {
	var user models.User
	if err := s.db.WithContext(ctx).First(&user, userID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, err
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		return nil, ErrWrongPassword
	}

	return &user, nil
}

func (s *AuthService) GenerateToken(user *models.User) (string, error) {
	claims := middleware.JWTClaims{
		UserID:  user.ID,
		Email:   user.Email,
		IsAdmin: user.IsAdmin,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(s.jwtExpiresIn)),
			IssuedAt:  jwt.NewNumericDate(time.Now()),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(s.jwtSecret))
}
