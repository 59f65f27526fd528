package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/lib/pq"

	"github.com/hitoshi/givebox/internal/model"
)

// listingColumns は出品のSELECT句。scanListingRowの読み取り順と一致させる。
const listingColumns = `id, title, description, images, category, condition, tags, status, location, seller_id, claimed_by_id, created_at, expires_at`

// PostgresListingRepo はPostgreSQLを使用した出品リポジトリ。
type PostgresListingRepo struct {
	db *sql.DB
}

// NewPostgresListingRepo はPostgresListingRepoを生成する。
func NewPostgresListingRepo(db *sql.DB) *PostgresListingRepo {
	return &PostgresListingRepo{db: db}
}

// scanListingRow は1行分の出品レコードを読み取る。
func scanListingRow(row rowScanner) (*model.ListingRecord, error) {
	listing := &model.ListingRecord{}
	var images, tags []byte
	var claimedByID sql.NullString
	err := row.Scan(
		&listing.ID, &listing.Title, &listing.Description, &images,
		&listing.Category, &listing.Condition, &tags, &listing.Status,
		&listing.Location, &listing.SellerID, &claimedByID,
		&listing.CreatedAt, &listing.ExpiresAt,
	)
	if err != nil {
		return nil, err
	}
	listing.Images = scanStrings(images)
	listing.Tags = scanTags(tags)
	if claimedByID.Valid {
		listing.ClaimedByID = &claimedByID.String
	}
	return listing, nil
}

// List は全出品を新しい順で取得する。
func (r *PostgresListingRepo) List(ctx context.Context) ([]model.ListingRecord, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+listingColumns+` FROM listings ORDER BY created_at DESC, id DESC`,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list listings: %w", err)
	}
	defer rows.Close()

	return collectListings(rows)
}

// FindByID は指定IDの出品を取得する。見つからない場合はnilを返す。
func (r *PostgresListingRepo) FindByID(ctx context.Context, id string) (*model.ListingRecord, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+listingColumns+` FROM listings WHERE id = $1`,
		id,
	)
	listing, err := scanListingRow(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find listing by ID: %w", err)
	}
	return listing, nil
}

// FindByIDs は指定ID群の出品をまとめて取得する。存在しないIDは結果から抜ける。
func (r *PostgresListingRepo) FindByIDs(ctx context.Context, ids []string) ([]model.ListingRecord, error) {
	if len(ids) == 0 {
		return []model.ListingRecord{}, nil
	}

	rows, err := r.db.QueryContext(ctx,
		`SELECT `+listingColumns+` FROM listings WHERE id = ANY($1)`,
		pq.Array(ids),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to find listings by IDs: %w", err)
	}
	defer rows.Close()

	return collectListings(rows)
}

// collectListings は結果セットを出品レコードのスライスに読み取る。
func collectListings(rows *sql.Rows) ([]model.ListingRecord, error) {
	listings := make([]model.ListingRecord, 0)
	for rows.Next() {
		listing, err := scanListingRow(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan listing: %w", err)
		}
		listings = append(listings, *listing)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate listings: %w", err)
	}
	return listings, nil
}

// Create は出品を作成する。created_at降順の一覧で先頭に現れる。
func (r *PostgresListingRepo) Create(ctx context.Context, listing *model.ListingRecord) error {
	images, err := marshalJSONB(listing.Images)
	if err != nil {
		return err
	}
	tags, err := marshalJSONB(listing.Tags)
	if err != nil {
		return err
	}

	_, err = r.db.ExecContext(ctx,
		`INSERT INTO listings (id, title, description, images, category, condition, tags, status, location, seller_id, claimed_by_id, created_at, expires_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)`,
		listing.ID, listing.Title, listing.Description, images,
		listing.Category, listing.Condition, tags, listing.Status,
		listing.Location, listing.SellerID, claimedByValue(listing.ClaimedByID),
		listing.CreatedAt, listing.ExpiresAt,
	)
	if err != nil {
		return fmt.Errorf("failed to insert listing: %w", err)
	}
	return nil
}

// Update は出品レコード全体を上書きする。
func (r *PostgresListingRepo) Update(ctx context.Context, listing *model.ListingRecord) error {
	images, err := marshalJSONB(listing.Images)
	if err != nil {
		return err
	}
	tags, err := marshalJSONB(listing.Tags)
	if err != nil {
		return err
	}

	_, err = r.db.ExecContext(ctx,
		`UPDATE listings
		 SET title = $2, description = $3, images = $4, category = $5, condition = $6,
		     tags = $7, status = $8, location = $9, claimed_by_id = $10, expires_at = $11
		 WHERE id = $1`,
		listing.ID, listing.Title, listing.Description, images,
		listing.Category, listing.Condition, tags, listing.Status,
		listing.Location, claimedByValue(listing.ClaimedByID), listing.ExpiresAt,
	)
	if err != nil {
		return fmt.Errorf("failed to update listing: %w", err)
	}
	return nil
}

// Delete は指定IDの出品を物理削除する。
// 会話・メッセージは外部キーの対象外のため残る。
func (r *PostgresListingRepo) Delete(ctx context.Context, id string) error {
	_, err := r.db.ExecContext(ctx,
		`DELETE FROM listings WHERE id = $1`,
		id,
	)
	if err != nil {
		return fmt.Errorf("failed to delete listing: %w", err)
	}
	return nil
}

// claimedByValue は*stringをNULL許容カラム用の値に変換する。
func claimedByValue(id *string) any {
	if id == nil {
		return nil
	}
	return *id
}

// compile-time interface check
var _ ListingRepository = (*PostgresListingRepo)(nil)
