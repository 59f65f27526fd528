package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/hitoshi/givebox/internal/model"
)

// PostgresSessionRepo はPostgreSQLを使用したセッションリポジトリ。
type PostgresSessionRepo struct {
	db *sql.DB
}

// NewPostgresSessionRepo はPostgresSessionRepoを生成する。
func NewPostgresSessionRepo(db *sql.DB) *PostgresSessionRepo {
	return &PostgresSessionRepo{db: db}
}

// Create はセッションを作成する。
func (r *PostgresSessionRepo) Create(ctx context.Context, session *model.Session) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO sessions (token, user_id, created_at)
		 VALUES ($1, $2, $3)`,
		session.Token, session.UserID, session.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create session: %w", err)
	}
	return nil
}

// FindUserByToken はトークンからセッションの持ち主を1ホップで解決する。
// セッションまたはユーザーが存在しない場合はnilを返す。
func (r *PostgresSessionRepo) FindUserByToken(ctx context.Context, token string) (*model.UserRecord, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT u.id, u.email, u.name, u.avatar_url, u.university, u.tags, u.bio, u.password, u.created_at
		 FROM sessions s
		 JOIN users u ON u.id = s.user_id
		 WHERE s.token = $1`,
		token,
	)
	user, err := scanUserRow(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find user by session token: %w", err)
	}
	return user, nil
}

// compile-time interface check
var _ SessionRepository = (*PostgresSessionRepo)(nil)
