// Package auth はメール+パスワード認証とセッション管理を提供する。
package auth

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/hitoshi/givebox/internal/model"
	"github.com/hitoshi/givebox/internal/repository"
)

// Sanitizer はユーザー入力テキストのサニタイズに必要なインターフェース。
type Sanitizer interface {
	Sanitize(raw string) string
}

// Service は認証に関するビジネスロジックを提供する。
type Service struct {
	users     repository.UserRepository
	sessions  repository.SessionRepository
	sanitizer Sanitizer

	// テストで差し替え可能にする
	now   func() time.Time
	newID func() string
}

// NewService はServiceを生成する。
func NewService(users repository.UserRepository, sessions repository.SessionRepository, sanitizer Sanitizer) *Service {
	return &Service{
		users:     users,
		sessions:  sessions,
		sanitizer: sanitizer,
		now:       time.Now,
		newID:     uuid.NewString,
	}
}

// SignupInput はユーザー登録の入力。
// 必須チェック（email/name/password）はハンドラー側で行う。
type SignupInput struct {
	Email     string
	Name      string
	Password  string
	AvatarURL string
	Bio       string
}

// Signup はユーザーを登録し、ログイン済みセッションを作成する。
// 所属大学はメールドメインから判定する。
// メールアドレスが登録済みの場合はConflictエラーを返す。
func (s *Service) Signup(ctx context.Context, in SignupInput) (*model.User, string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(in.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, "", fmt.Errorf("failed to hash password: %w", err)
	}

	email := strings.TrimSpace(in.Email)
	rec := &model.UserRecord{
		User: model.User{
			ID:         s.newID(),
			Email:      email,
			Name:       s.sanitizer.Sanitize(strings.TrimSpace(in.Name)),
			AvatarURL:  strings.TrimSpace(in.AvatarURL),
			University: model.UniversityForEmail(email),
			Tags:       []model.Tag{},
			Bio:        s.sanitizer.Sanitize(in.Bio),
			CreatedAt:  s.now().UTC(),
		},
		Password: string(hash),
	}

	if err := s.users.Create(ctx, rec); err != nil {
		if err == repository.ErrDuplicateEmail {
			return nil, "", model.NewEmailInUseError()
		}
		return nil, "", fmt.Errorf("failed to create user: %w", err)
	}

	token, err := s.createSession(ctx, rec.ID)
	if err != nil {
		return nil, "", err
	}

	user := rec.Public()
	return &user, token, nil
}

// Login はメールアドレスとパスワードを検証し、新しいセッションを作成する。
// ユーザー不在とパスワード不一致は区別せず同じエラーを返す。
func (s *Service) Login(ctx context.Context, email, password string) (*model.User, string, error) {
	rec, err := s.users.FindByEmail(ctx, strings.TrimSpace(email))
	if err != nil {
		return nil, "", fmt.Errorf("failed to find user: %w", err)
	}
	if rec == nil {
		return nil, "", model.NewInvalidCredentialsError()
	}

	if err := bcrypt.CompareHashAndPassword([]byte(rec.Password), []byte(password)); err != nil {
		return nil, "", model.NewInvalidCredentialsError()
	}

	token, err := s.createSession(ctx, rec.ID)
	if err != nil {
		return nil, "", err
	}

	user := rec.Public()
	return &user, token, nil
}

// UserByID は指定IDのユーザーを取得する。見つからない場合はnilを返す。
func (s *Service) UserByID(ctx context.Context, id string) (*model.UserRecord, error) {
	rec, err := s.users.FindByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to find user: %w", err)
	}
	return rec, nil
}

// createSession は新しいセッションを作成し、トークンを返す。
func (s *Service) createSession(ctx context.Context, userID string) (string, error) {
	session := &model.Session{
		Token:     s.newID(),
		UserID:    userID,
		CreatedAt: s.now().UTC(),
	}
	if err := s.sessions.Create(ctx, session); err != nil {
		return "", fmt.Errorf("failed to create session: %w", err)
	}
	return session.Token, nil
}
