// 文件路径: internal/service/user.go
// 模块说明: 管理后台账号：创建、列表、重置密码与首个超级管理员初始化。
package service

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/mail"
	"strings"
	"time"

	"github.com/amiwrpremium/xtls-crud/internal/repository"
	"github.com/amiwrpremium/xtls-crud/internal/support/hash"
)

// MinPasswordLength is the shortest accepted password.
const MinPasswordLength = 8

// UserService manages panel accounts.
type UserService interface {
	Create(ctx context.Context, input CreateUserInput) (*UserView, error)
	List(ctx context.Context, input UserListInput) (*UserList, error)
	ResetPassword(ctx context.Context, email, password string) error
	// EnsureSuperuser creates the account when it does not exist yet.
	EnsureSuperuser(ctx context.Context, email, password string) (bool, error)
}

// CreateUserInput is the payload for Create.
type CreateUserInput struct {
	Email       string `json:"email"`
	Password    string `json:"password"`
	FullName    string `json:"full_name"`
	IsSuperuser bool   `json:"is_superuser"`
	IsActive    *bool  `json:"is_active"`
}

// UserListInput filters List.
type UserListInput struct {
	Keyword string
	Skip    int
	Limit   int
}

// UserView is the public shape of a user; the password hash never leaves the service.
type UserView struct {
	ID          int64  `json:"id"`
	Email       string `json:"email"`
	FullName    string `json:"full_name"`
	IsActive    bool   `json:"is_active"`
	IsSuperuser bool   `json:"is_superuser"`
	CreatedAt   int64  `json:"created_at"`
}

// UserList is one page of users.
type UserList struct {
	Items []*UserView `json:"items"`
	Total int64       `json:"total"`
}

type userService struct {
	users  repository.UserRepository
	tokens repository.TokenRepository
	hasher hash.Hasher
	logger *slog.Logger
}

// NewUserService wires the user service. tokens may be nil.
func NewUserService(users repository.UserRepository, tokens repository.TokenRepository, hasher hash.Hasher, logger *slog.Logger) UserService {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &userService{users: users, tokens: tokens, hasher: hasher, logger: logger.With("component", "user")}
}

func (s *userService) Create(ctx context.Context, input CreateUserInput) (*UserView, error) {
	email, err := validateEmail(input.Email)
	if err != nil {
		return nil, err
	}
	if err := validatePassword(input.Password); err != nil {
		return nil, err
	}
	if _, err := s.users.FindByEmail(ctx, email); err == nil {
		return nil, ErrEmailExists
	} else if !errors.Is(err, repository.ErrNotFound) {
		return nil, err
	}
	hashed, err := s.hasher.Hash(input.Password)
	if err != nil {
		return nil, err
	}
	now := time.Now().Unix()
	user := &repository.User{
		Email:       email,
		Password:    hashed,
		FullName:    strings.TrimSpace(input.FullName),
		IsActive:    valueOr(input.IsActive, true),
		IsSuperuser: input.IsSuperuser,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	created, err := s.users.Create(ctx, user)
	if err != nil {
		if errors.Is(err, repository.ErrConflict) {
			return nil, ErrEmailExists
		}
		return nil, fmt.Errorf("create user: %w", err)
	}
	s.logger.InfoContext(ctx, "user created", "id", created.ID, "email", created.Email, "superuser", created.IsSuperuser)
	return userViewOf(created), nil
}

func (s *userService) List(ctx context.Context, input UserListInput) (*UserList, error) {
	skip, limit := repository.NormalizePage(input.Skip, input.Limit)
	users, err := s.users.List(ctx, repository.UserFilter{Keyword: input.Keyword, Skip: skip, Limit: limit})
	if err != nil {
		return nil, fmt.Errorf("list users: %w", err)
	}
	total, err := s.users.Count(ctx)
	if err != nil {
		return nil, fmt.Errorf("count users: %w", err)
	}
	items := make([]*UserView, 0, len(users))
	for _, u := range users {
		items = append(items, userViewOf(u))
	}
	return &UserList{Items: items, Total: total}, nil
}

func (s *userService) ResetPassword(ctx context.Context, email, password string) error {
	normalized, err := validateEmail(email)
	if err != nil {
		return err
	}
	if err := validatePassword(password); err != nil {
		return err
	}
	user, err := s.users.FindByEmail(ctx, normalized)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return ErrNotFound
		}
		return err
	}
	hashed, err := s.hasher.Hash(password)
	if err != nil {
		return err
	}
	user.Password = hashed
	user.UpdatedAt = time.Now().Unix()
	if err := s.users.Save(ctx, user); err != nil {
		return fmt.Errorf("save user: %w", err)
	}
	// 重置密码后注销所有刷新令牌。
	if s.tokens != nil {
		if err := s.tokens.DeleteByUser(ctx, user.ID); err != nil {
			return fmt.Errorf("revoke refresh tokens: %w", err)
		}
	}
	s.logger.InfoContext(ctx, "user password reset", "id", user.ID)
	return nil
}

func (s *userService) EnsureSuperuser(ctx context.Context, email, password string) (bool, error) {
	normalized, err := validateEmail(email)
	if err != nil {
		return false, err
	}
	if _, err := s.users.FindByEmail(ctx, normalized); err == nil {
		return false, nil
	} else if !errors.Is(err, repository.ErrNotFound) {
		return false, err
	}
	if password == "" {
		return false, fmt.Errorf("%w: first superuser password is not configured / 未配置初始管理员密码", ErrInvalidPassword)
	}
	if _, err := s.Create(ctx, CreateUserInput{Email: normalized, Password: password, FullName: "Administrator", IsSuperuser: true}); err != nil {
		return false, err
	}
	return true, nil
}

func userViewOf(u *repository.User) *UserView {
	return &UserView{
		ID:          u.ID,
		Email:       u.Email,
		FullName:    u.FullName,
		IsActive:    u.IsActive,
		IsSuperuser: u.IsSuperuser,
		CreatedAt:   u.CreatedAt,
	}
}

func validateEmail(email string) (string, error) {
	normalized := normalizeEmail(email)
	addr, err := mail.ParseAddress(normalized)
	if err != nil || addr.Address != normalized {
		return "", ErrInvalidEmail
	}
	return normalized, nil
}

func validatePassword(password string) error {
	if len(password) < MinPasswordLength {
		return fmt.Errorf("%w: at least %d characters / 至少 %d 个字符", ErrInvalidPassword, MinPasswordLength, MinPasswordLength)
	}
	if len(password) > hash.MaxPasswordBytes {
		return fmt.Errorf("%w: at most %d bytes / 最多 %d 字节", ErrInvalidPassword, hash.MaxPasswordBytes, hash.MaxPasswordBytes)
	}
	return nil
}
