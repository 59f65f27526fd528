package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/lib/pq"

	"github.com/hitoshi/givebox/internal/model"
)

// pqUniqueViolation はPostgreSQLの一意性制約違反のエラーコード。
const pqUniqueViolation = "23505"

// userColumns はユーザーのSELECT句。scanUserRowの読み取り順と一致させる。
const userColumns = `id, email, name, avatar_url, university, tags, bio, password, created_at`

// PostgresUserRepo はPostgreSQLを使用したユーザーリポジトリ。
type PostgresUserRepo struct {
	db *sql.DB
}

// NewPostgresUserRepo はPostgresUserRepoを生成する。
func NewPostgresUserRepo(db *sql.DB) *PostgresUserRepo {
	return &PostgresUserRepo{db: db}
}

// rowScanner は*sql.Rowと*sql.Rowsの共通部分。
type rowScanner interface {
	Scan(dest ...any) error
}

// scanUserRow は1行分のユーザーレコードを読み取る。
func scanUserRow(row rowScanner) (*model.UserRecord, error) {
	user := &model.UserRecord{}
	var university, tags []byte
	err := row.Scan(
		&user.ID, &user.Email, &user.Name, &user.AvatarURL,
		&university, &tags, &user.Bio, &user.Password, &user.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	user.University = scanUniversity(university)
	user.Tags = scanTags(tags)
	return user, nil
}

// FindByID は指定IDのユーザーを取得する。見つからない場合はnilを返す。
func (r *PostgresUserRepo) FindByID(ctx context.Context, id string) (*model.UserRecord, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+userColumns+` FROM users WHERE id = $1`,
		id,
	)
	user, err := scanUserRow(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find user by ID: %w", err)
	}
	return user, nil
}

// FindByEmail はメールアドレスでユーザーを検索する。大文字小文字を区別しない。
func (r *PostgresUserRepo) FindByEmail(ctx context.Context, email string) (*model.UserRecord, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+userColumns+` FROM users WHERE lower(email) = lower($1)`,
		email,
	)
	user, err := scanUserRow(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find user by email: %w", err)
	}
	return user, nil
}

// FindByIDs は指定ID群のユーザーをまとめて取得する。存在しないIDは結果から抜ける。
func (r *PostgresUserRepo) FindByIDs(ctx context.Context, ids []string) ([]model.UserRecord, error) {
	if len(ids) == 0 {
		return []model.UserRecord{}, nil
	}

	rows, err := r.db.QueryContext(ctx,
		`SELECT `+userColumns+` FROM users WHERE id = ANY($1)`,
		pq.Array(ids),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to find users by IDs: %w", err)
	}
	defer rows.Close()

	users := make([]model.UserRecord, 0, len(ids))
	for rows.Next() {
		user, err := scanUserRow(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan user: %w", err)
		}
		users = append(users, *user)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate users: %w", err)
	}
	return users, nil
}

// List は全ユーザーを取得する。
func (r *PostgresUserRepo) List(ctx context.Context) ([]model.UserRecord, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+userColumns+` FROM users ORDER BY created_at ASC, id ASC`,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list users: %w", err)
	}
	defer rows.Close()

	users := make([]model.UserRecord, 0)
	for rows.Next() {
		user, err := scanUserRow(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan user: %w", err)
		}
		users = append(users, *user)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate users: %w", err)
	}
	return users, nil
}

// Create はユーザーを作成する。
// lower(email)の一意インデックスと衝突した場合はErrDuplicateEmailを返す。
func (r *PostgresUserRepo) Create(ctx context.Context, user *model.UserRecord) error {
	university, err := marshalJSONB(user.University)
	if err != nil {
		return err
	}
	tags, err := marshalJSONB(user.Tags)
	if err != nil {
		return err
	}

	_, err = r.db.ExecContext(ctx,
		`INSERT INTO users (id, email, name, avatar_url, university, tags, bio, password, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
		user.ID, user.Email, user.Name, user.AvatarURL,
		university, tags, user.Bio, user.Password, user.CreatedAt,
	)
	if err != nil {
		if pqErr, ok := err.(*pq.Error); ok && string(pqErr.Code) == pqUniqueViolation {
			return ErrDuplicateEmail
		}
		return fmt.Errorf("failed to insert user: %w", err)
	}
	return nil
}

// UpdateProfile はプロフィールを部分更新し、更新後のレコードを返す。
// ユーザーが存在しない場合はnilを返す。
func (r *PostgresUserRepo) UpdateProfile(ctx context.Context, userID string, patch ProfilePatch) (*model.UserRecord, error) {
	current, err := r.FindByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	if current == nil {
		return nil, nil
	}

	applyProfilePatch(current, patch)

	tags, err := marshalJSONB(current.Tags)
	if err != nil {
		return nil, err
	}

	_, err = r.db.ExecContext(ctx,
		`UPDATE users SET name = $2, avatar_url = $3, bio = $4, tags = $5 WHERE id = $1`,
		userID, current.Name, current.AvatarURL, current.Bio, tags,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to update user profile: %w", err)
	}
	return current, nil
}

// compile-time interface check
var _ UserRepository = (*PostgresUserRepo)(nil)
