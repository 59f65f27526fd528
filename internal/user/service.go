// Package user はユーザープロフィールのドメインロジックを提供する。
package user

import (
	"context"
	"fmt"

	"github.com/hitoshi/givebox/internal/model"
	"github.com/hitoshi/givebox/internal/repository"
)

// ListingLister は全出品の展開済み一覧に必要なインターフェース。
// listing.Serviceの部分集合として定義する。
type ListingLister interface {
	List(ctx context.Context) ([]model.Listing, error)
}

// Sanitizer はユーザー入力テキストのサニタイズに必要なインターフェース。
type Sanitizer interface {
	Sanitize(raw string) string
}

// Service はユーザープロフィールのサービス層。
type Service struct {
	users     repository.UserRepository
	listings  ListingLister
	sanitizer Sanitizer
}

// NewService はServiceを生成する。
func NewService(users repository.UserRepository, listings ListingLister, sanitizer Sanitizer) *Service {
	return &Service{
		users:     users,
		listings:  listings,
		sanitizer: sanitizer,
	}
}

// Profile はプロフィール画面に必要な情報一式。
type Profile struct {
	User model.User
	// Listings は対象ユーザーが出品した出品の一覧。
	Listings []model.Listing
	// ClaimedListings は対象ユーザーが受け取り手の出品の一覧。
	// 本人が自分のプロフィールを見ている場合のみ設定される。
	ClaimedListings []model.Listing
}

// Profile は指定ユーザーのプロフィールを取得する。
// requestedIDが"me"の場合は閲覧者自身のプロフィールを返す。
// 受け取り済み一覧は本人にのみ見せる。
func (s *Service) Profile(ctx context.Context, requestedID string, viewer *model.UserRecord) (*Profile, error) {
	var target *model.UserRecord
	if requestedID == "me" {
		target = viewer
	} else {
		found, err := s.users.FindByID(ctx, requestedID)
		if err != nil {
			return nil, fmt.Errorf("failed to find user: %w", err)
		}
		target = found
	}
	if target == nil {
		return nil, model.NewUserNotFoundError()
	}

	all, err := s.listings.List(ctx)
	if err != nil {
		return nil, err
	}

	listings := make([]model.Listing, 0)
	for _, l := range all {
		if l.Seller.ID == target.ID {
			listings = append(listings, l)
		}
	}

	claimed := make([]model.Listing, 0)
	if viewer != nil && viewer.ID == target.ID {
		for _, l := range all {
			if l.ClaimedBy != nil && l.ClaimedBy.ID == target.ID {
				claimed = append(claimed, l)
			}
		}
	}

	return &Profile{
		User:            target.Public(),
		Listings:        listings,
		ClaimedListings: claimed,
	}, nil
}

// UpdatePatch はプロフィール部分更新の入力。nilフィールドは変更しない。
type UpdatePatch struct {
	Name      *string
	AvatarURL *string
	Bio       *string
	Tags      *[]model.Tag
}

// UpdateProfile はプロフィールを部分更新し、更新後の公開ユーザー情報を返す。
// 本人チェック（"me"または自分のID）はハンドラー側で行う。
func (s *Service) UpdateProfile(ctx context.Context, userID string, patch UpdatePatch) (*model.User, error) {
	repoPatch := repository.ProfilePatch{
		AvatarURL: patch.AvatarURL,
		Tags:      patch.Tags,
	}
	if patch.Name != nil {
		name := s.sanitizer.Sanitize(*patch.Name)
		repoPatch.Name = &name
	}
	if patch.Bio != nil {
		bio := s.sanitizer.Sanitize(*patch.Bio)
		repoPatch.Bio = &bio
	}

	rec, err := s.users.UpdateProfile(ctx, userID, repoPatch)
	if err != nil {
		return nil, fmt.Errorf("failed to update profile: %w", err)
	}
	if rec == nil {
		return nil, model.NewUserNotFoundError()
	}

	user := rec.Public()
	return &user, nil
}
