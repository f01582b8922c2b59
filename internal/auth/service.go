package auth

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/yourusername/task-tracker/internal/models"
	"github.com/yourusername/task-tracker/internal/repository"
	"github.com/yourusername/task-tracker/internal/validation"
)

var (
	// ErrInvalidCredentials はメールアドレスかパスワードが誤っている場合に返されます。
	// どちらが誤っていたかは区別しません。
	ErrInvalidCredentials = errors.New("invalid email or password")
	// ErrDuplicateUsername はユーザー名が既に使われている場合に返されます。
	ErrDuplicateUsername = errors.New("username already taken")
	// ErrDuplicateEmail はメールアドレスが既に登録されている場合に返されます。
	ErrDuplicateEmail = errors.New("email already registered")
	// ErrUserNotFound はユーザーが存在しない場合に返されます。
	ErrUserNotFound = errors.New("user not found")
)

const (
	msgDuplicateUsername = "That username is taken. Please choose a different one."
	msgDuplicateEmail    = "That email is already registered. Please use a different one or log in."
	msgPasswordTooLong   = "Field cannot be longer than 72 bytes."
)

// UserRepository はユーザーの永続化に必要な操作です。
type UserRepository interface {
	Create(ctx context.Context, user *models.User) error
	FindByID(ctx context.Context, id string) (*models.User, error)
	FindByEmail(ctx context.Context, email string) (*models.User, error)
	UsernameExists(ctx context.Context, username string) (bool, error)
	EmailExists(ctx context.Context, email string) (bool, error)
}

// RegisterInput は登録フォームの入力です。
type RegisterInput struct {
	Username        string `form:"username" validate:"required,min=2,max=20"`
	Email           string `form:"email" validate:"required,email,max=254"`
	Password        string `form:"password" validate:"required"`
	ConfirmPassword string `form:"confirm_password" validate:"required,eqfield=Password"`
}

// LoginInput はログインフォームの入力です。
type LoginInput struct {
	Email    string `form:"email" validate:"required"`
	Password string `form:"password" validate:"required"`
}

// Service は登録とログインの業務ロジックです。
type Service struct {
	repo      UserRepository
	hasher    *PasswordHasher
	validator *validation.Validator
	dummyHash string
}

// NewService は Service を作成します。
func NewService(repo UserRepository, hasher *PasswordHasher, validator *validation.Validator) (*Service, error) {
	// 存在しないメールアドレスでも照合時間を揃えるためのハッシュ
	dummyHash, err := hasher.Hash(uuid.NewString())
	if err != nil {
		return nil, fmt.Errorf("failed to prepare password hasher: %w", err)
	}
	return &Service{
		repo:      repo,
		hasher:    hasher,
		validator: validator,
		dummyHash: dummyHash,
	}, nil
}

// NormalizeEmail は比較用にメールアドレスを正規化します（前後の空白除去と小文字化）。
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// Register はユーザーを登録します。ログインは行いません。
func (s *Service) Register(ctx context.Context, input RegisterInput) (*models.User, error) {
	input.Username = strings.TrimSpace(input.Username)
	input.Email = NormalizeEmail(input.Email)

	if err := s.validator.Struct(input); err != nil {
		return nil, err
	}
	if len(input.Password) > maxPasswordBytes {
		return nil, validation.Field("password", msgPasswordTooLong, nil)
	}

	if err := s.checkUnique(ctx, input.Username, input.Email); err != nil {
		return nil, err
	}

	passwordHash, err := s.hasher.Hash(input.Password)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	now := time.Now().UTC()
	user := &models.User{
		ID:           uuid.NewString(),
		Username:     input.Username,
		Email:        input.Email,
		PasswordHash: passwordHash,
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	if err := s.repo.Create(ctx, user); err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			// 事前チェックの後に同時登録された場合
			if uerr := s.checkUnique(ctx, input.Username, input.Email); uerr != nil {
				return nil, uerr
			}
		}
		return nil, fmt.Errorf("failed to create user: %w", err)
	}

	return user, nil
}

func (s *Service) checkUnique(ctx context.Context, username, email string) error {
	exists, err := s.repo.UsernameExists(ctx, username)
	if err != nil {
		return fmt.Errorf("failed to check username: %w", err)
	}
	if exists {
		return validation.Field("username", msgDuplicateUsername, ErrDuplicateUsername)
	}

	exists, err = s.repo.EmailExists(ctx, email)
	if err != nil {
		return fmt.Errorf("failed to check email: %w", err)
	}
	if exists {
		return validation.Field("email", msgDuplicateEmail, ErrDuplicateEmail)
	}
	return nil
}

// Login は認証情報を検証し、ユーザーを返します。
func (s *Service) Login(ctx context.Context, input LoginInput) (*models.User, error) {
	input.Email = NormalizeEmail(input.Email)
	if err := s.validator.Struct(input); err != nil {
		return nil, err
	}

	// bcrypt は72バイトを超える部分を無視するため、長すぎる入力は一致させない
	if len(input.Password) > maxPasswordBytes {
		s.hasher.Verify(input.Password[:maxPasswordBytes], s.dummyHash)
		return nil, ErrInvalidCredentials
	}

	user, err := s.repo.FindByEmail(ctx, input.Email)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			s.hasher.Verify(input.Password, s.dummyHash)
			return nil, ErrInvalidCredentials
		}
		return nil, fmt.Errorf("failed to find user: %w", err)
	}

	if !s.hasher.Verify(input.Password, user.PasswordHash) {
		return nil, ErrInvalidCredentials
	}
	return user, nil
}

// UserByID は ID でユーザーを取得します。
func (s *Service) UserByID(ctx context.Context, id string) (*models.User, error) {
	user, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("failed to find user: %w", err)
	}
	return user, nil
}
