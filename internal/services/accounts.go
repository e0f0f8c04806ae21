package services

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"inkwell/internal/apperr"
	"inkwell/internal/models"

	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

// AccountService is the credential store: signup, password checks and user lookups.
type AccountService struct {
	db   *gorm.DB
	cost int
}

func NewAccountService(db *gorm.DB, bcryptCost int) *AccountService {
	if bcryptCost < bcrypt.MinCost {
		bcryptCost = bcrypt.DefaultCost
	}
	return &AccountService{db: db, cost: bcryptCost}
}

func (s *AccountService) Signup(ctx context.Context, in SignupInput) (*models.User, error) {
	in.Username = strings.TrimSpace(in.Username)
	in.Email = strings.TrimSpace(in.Email)
	in.FirstName = strings.TrimSpace(in.FirstName)
	in.LastName = strings.TrimSpace(in.LastName)
	if err := Validate(in); err != nil {
		return nil, err
	}

	if err := s.checkTaken(ctx, in.Username, in.Email); err != nil {
		return nil, err
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(in.Password1), s.cost)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}

	user := &models.User{
		Username:  in.Username,
		Email:     in.Email,
		Password:  string(hash),
		FirstName: in.FirstName,
		LastName:  in.LastName,
	}
	if err := s.db.WithContext(ctx).Create(user).Error; err != nil {
		// 并发注册时由唯一索引兜底，再查一次确定冲突字段
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			if terr := s.checkTaken(ctx, user.Username, user.Email); terr != nil {
				return nil, terr
			}
		}
		return nil, fmt.Errorf("create user: %w", err)
	}
	return user, nil
}

// checkTaken returns a validation error naming every field already in use.
func (s *AccountService) checkTaken(ctx context.Context, username, email string) error {
	v := apperr.ValidationErrors{}

	var count int64
	if err := s.db.WithContext(ctx).Model(&models.User{}).Where("username = ?", username).Count(&count).Error; err != nil {
		return fmt.Errorf("check username: %w", err)
	}
	if count > 0 {
		v.Add("username", "A user with that username already exists.")
	}

	if err := s.db.WithContext(ctx).Model(&models.User{}).Where("LOWER(email) = LOWER(?)", email).Count(&count).Error; err != nil {
		return fmt.Errorf("check email: %w", err)
	}
	if count > 0 {
		v.Add("email", "A user with that email already exists.")
	}
	return v.OrNil()
}

// Authenticate returns the user when password matches, ErrInvalidCredentials otherwise.
func (s *AccountService) Authenticate(ctx context.Context, username, password string) (*models.User, error) {
	var user models.User
	err := s.db.WithContext(ctx).Where("username = ?", strings.TrimSpace(username)).First(&user).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, apperr.ErrInvalidCredentials
	}
	if err != nil {
		return nil, fmt.Errorf("load user: %w", err)
	}
	if bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(password)) != nil {
		return nil, apperr.ErrInvalidCredentials
	}
	return &user, nil
}

func (s *AccountService) ByID(ctx context.Context, id uint) (*models.User, error) {
	var user models.User
	if err := s.db.WithContext(ctx).First(&user, id).Error; err != nil {
		return nil, notFound(err, "user")
	}
	return &user, nil
}

func (s *AccountService) ByUsername(ctx context.Context, username string) (*models.User, error) {
	var user models.User
	if err := s.db.WithContext(ctx).Where("username = ?", username).First(&user).Error; err != nil {
		return nil, notFound(err, "user "+username)
	}
	return &user, nil
}
