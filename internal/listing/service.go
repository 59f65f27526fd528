// Package listing は出品のCRUDと所有権・状態の不変条件を提供する。
package listing

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/hitoshi/givebox/internal/model"
	"github.com/hitoshi/givebox/internal/repository"
	"github.com/hitoshi/givebox/internal/view"
)

// defaultListingTTL は新規出品のデフォルト掲載期間。
const defaultListingTTL = 30 * 24 * time.Hour

// Sanitizer はユーザー入力テキストのサニタイズに必要なインターフェース。
type Sanitizer interface {
	Sanitize(raw string) string
}

// Service は出品に関するビジネスロジックを提供する。
// 所有権チェックと状態の不変条件はこの層で担保し、リポジトリは書き込みに専念する。
type Service struct {
	listings  repository.ListingRepository
	users     repository.UserRepository
	sanitizer Sanitizer

	// テストで差し替え可能にする
	now   func() time.Time
	newID func() string
}

// NewService はServiceを生成する。
func NewService(listings repository.ListingRepository, users repository.UserRepository, sanitizer Sanitizer) *Service {
	return &Service{
		listings:  listings,
		users:     users,
		sanitizer: sanitizer,
		now:       time.Now,
		newID:     uuid.NewString,
	}
}

// List は全出品を新しい順で展開して返す。
func (s *Service) List(ctx context.Context) ([]model.Listing, error) {
	records, err := s.listings.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list listings: %w", err)
	}

	users, err := s.usersForListings(ctx, records)
	if err != nil {
		return nil, err
	}

	listings := make([]model.Listing, 0, len(records))
	for _, rec := range records {
		inflated, err := view.InflateListing(rec, users)
		if err != nil {
			return nil, err
		}
		listings = append(listings, *inflated)
	}
	return listings, nil
}

// Find は指定IDの出品を展開して返す。見つからない場合はNotFoundエラーを返す。
func (s *Service) Find(ctx context.Context, id string) (*model.Listing, error) {
	rec, err := s.listings.FindByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to find listing: %w", err)
	}
	if rec == nil {
		return nil, model.NewListingNotFoundError()
	}

	users, err := s.usersForListings(ctx, []model.ListingRecord{*rec})
	if err != nil {
		return nil, err
	}
	return view.InflateListing(*rec, users)
}

// CreateInput は出品作成の入力。
// 必須チェック（title/description/category/condition/location）はハンドラー側で行う。
type CreateInput struct {
	Title       string
	Description string
	Images      []string
	Category    model.Category
	Condition   model.Condition
	Tags        []model.Tag
	Location    string
	ExpiresAt   *time.Time
}

// Create は出品を作成する。
// 状態はAvailable、受け取り手は無し、掲載期限は指定が無ければ30日後。
func (s *Service) Create(ctx context.Context, sellerID string, in CreateInput) (*model.Listing, error) {
	seller, err := s.users.FindByID(ctx, sellerID)
	if err != nil {
		return nil, fmt.Errorf("failed to find seller: %w", err)
	}
	if seller == nil {
		return nil, model.NewSellerNotFoundError()
	}

	now := s.now().UTC()
	expiresAt := now.Add(defaultListingTTL)
	if in.ExpiresAt != nil {
		expiresAt = in.ExpiresAt.UTC()
	}

	images := in.Images
	if images == nil {
		images = []string{}
	}
	tags := in.Tags
	if tags == nil {
		tags = []model.Tag{}
	}

	rec := &model.ListingRecord{
		ID:          s.newID(),
		Title:       s.sanitizer.Sanitize(in.Title),
		Description: s.sanitizer.Sanitize(in.Description),
		Images:      images,
		Category:    in.Category,
		Condition:   in.Condition,
		Tags:        tags,
		Status:      model.ListingStatusAvailable,
		Location:    s.sanitizer.Sanitize(in.Location),
		SellerID:    sellerID,
		ClaimedByID: nil,
		CreatedAt:   now,
		ExpiresAt:   expiresAt,
	}

	if err := s.listings.Create(ctx, rec); err != nil {
		return nil, fmt.Errorf("failed to create listing: %w", err)
	}

	return view.InflateListing(*rec, []model.UserRecord{*seller})
}

// UpdatePatch は出品部分更新の内容を表す。nilフィールドは変更しない。
// ClaimedByIDのみ「未指定」「null指定」「値指定」の3値を区別する。
type UpdatePatch struct {
	Title       *string
	Description *string
	Images      *[]string
	Category    *model.Category
	Condition   *model.Condition
	Tags        *[]model.Tag
	Status      *model.ListingStatus
	Location    *string
	ClaimedByID model.NullableString
	ExpiresAt   *time.Time
}

// Update は出品を部分更新する。出品者本人のみ実行できる。
// 更新後の状態がAvailableの場合、受け取り手は必ずクリアする。
func (s *Service) Update(ctx context.Context, id, userID string, patch UpdatePatch) (*model.Listing, error) {
	rec, err := s.listings.FindByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to find listing: %w", err)
	}
	if rec == nil {
		return nil, model.NewListingNotFoundError()
	}
	if rec.SellerID != userID {
		return nil, model.NewListingEditForbiddenError()
	}

	if patch.Title != nil {
		rec.Title = s.sanitizer.Sanitize(*patch.Title)
	}
	if patch.Description != nil {
		rec.Description = s.sanitizer.Sanitize(*patch.Description)
	}
	if patch.Images != nil {
		rec.Images = *patch.Images
	}
	if patch.Category != nil {
		rec.Category = *patch.Category
	}
	if patch.Condition != nil {
		rec.Condition = *patch.Condition
	}
	if patch.Tags != nil {
		rec.Tags = *patch.Tags
	}
	if patch.Status != nil {
		rec.Status = *patch.Status
	}
	if patch.Location != nil {
		rec.Location = s.sanitizer.Sanitize(*patch.Location)
	}
	if patch.ClaimedByID.Set {
		rec.ClaimedByID = patch.ClaimedByID.Value
	}
	if patch.ExpiresAt != nil {
		rec.ExpiresAt = patch.ExpiresAt.UTC()
	}

	// Availableな出品に受け取り手は存在しない
	if rec.Status == model.ListingStatusAvailable {
		rec.ClaimedByID = nil
	}

	if err := s.listings.Update(ctx, rec); err != nil {
		return nil, fmt.Errorf("failed to update listing: %w", err)
	}

	users, err := s.usersForListings(ctx, []model.ListingRecord{*rec})
	if err != nil {
		return nil, err
	}
	return view.InflateListing(*rec, users)
}

// Delete は出品を物理削除する。出品者本人のみ実行できる。
// 紐づく会話は削除されず、削除済みプレースホルダー付きで表示され続ける。
func (s *Service) Delete(ctx context.Context, id, userID string) error {
	rec, err := s.listings.FindByID(ctx, id)
	if err != nil {
		return fmt.Errorf("failed to find listing: %w", err)
	}
	if rec == nil {
		return model.NewListingNotFoundError()
	}
	if rec.SellerID != userID {
		return model.NewListingDeleteForbiddenError()
	}

	if err := s.listings.Delete(ctx, id); err != nil {
		return fmt.Errorf("failed to delete listing: %w", err)
	}
	return nil
}

// usersForListings は出品群の出品者・受け取り手をまとめて取得する。
func (s *Service) usersForListings(ctx context.Context, records []model.ListingRecord) ([]model.UserRecord, error) {
	ids := make([]string, 0, len(records)*2)
	seen := make(map[string]bool, len(records)*2)
	for _, rec := range records {
		if !seen[rec.SellerID] {
			seen[rec.SellerID] = true
			ids = append(ids, rec.SellerID)
		}
		if rec.ClaimedByID != nil && !seen[*rec.ClaimedByID] {
			seen[*rec.ClaimedByID] = true
			ids = append(ids, *rec.ClaimedByID)
		}
	}

	users, err := s.users.FindByIDs(ctx, ids)
	if err != nil {
		return nil, fmt.Errorf("failed to load users for listings: %w", err)
	}
	return users, nil
}
