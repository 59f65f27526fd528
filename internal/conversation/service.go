// Package conversation は出品に紐づく会話とメッセージのビジネスロジックを提供する。
package conversation

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/hitoshi/givebox/internal/model"
	"github.com/hitoshi/givebox/internal/repository"
	"github.com/hitoshi/givebox/internal/view"
)

// MaxAttachments は1メッセージに添付できる画像数の上限。
// 入力検証はハンドラー側で行う。
const MaxAttachments = 4

// Sanitizer はユーザー入力テキストのサニタイズに必要なインターフェース。
type Sanitizer interface {
	Sanitize(raw string) string
}

// Service は会話に関するビジネスロジックを提供する。
// 参加者チェックと出品状態によるメッセージ送信の可否はこの層で担保する。
type Service struct {
	conversations repository.ConversationRepository
	listings      repository.ListingRepository
	users         repository.UserRepository
	sanitizer     Sanitizer

	// テストで差し替え可能にする
	now   func() time.Time
	newID func() string
}

// NewService はServiceを生成する。
func NewService(
	conversations repository.ConversationRepository,
	listings repository.ListingRepository,
	users repository.UserRepository,
	sanitizer Sanitizer,
) *Service {
	return &Service{
		conversations: conversations,
		listings:      listings,
		users:         users,
		sanitizer:     sanitizer,
		now:           time.Now,
		newID:         uuid.NewString,
	}
}

// ListForUser は指定ユーザーが参加する会話を新しい順で展開して返す。
func (s *Service) ListForUser(ctx context.Context, userID string) ([]model.Conversation, error) {
	records, err := s.conversations.ListByParticipant(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list conversations: %w", err)
	}

	listings, users, err := s.contextForConversations(ctx, records)
	if err != nil {
		return nil, err
	}

	conversations := make([]model.Conversation, 0, len(records))
	for _, rec := range records {
		inflated, err := view.InflateConversation(rec, users, listings)
		if err != nil {
			return nil, err
		}
		conversations = append(conversations, *inflated)
	}
	return conversations, nil
}

// CreateForListing は出品への問い合わせ会話を作成する。
// 同じ(出品, 問い合わせ者)の組の会話が既にあればそれを返す（冪等）。
// 出品者自身は自分の出品に問い合わせできない。
func (s *Service) CreateForListing(ctx context.Context, listingID, requesterID string) (*model.Conversation, error) {
	listing, err := s.listings.FindByID(ctx, listingID)
	if err != nil {
		return nil, fmt.Errorf("failed to find listing: %w", err)
	}
	if listing == nil {
		return nil, model.NewListingNotFoundError()
	}
	if listing.SellerID == requesterID {
		return nil, model.NewSelfConversationError()
	}

	existing, err := s.conversations.FindByListingAndParticipant(ctx, listingID, requesterID)
	if err != nil {
		return nil, fmt.Errorf("failed to find conversation: %w", err)
	}
	if existing != nil {
		return s.inflateOne(ctx, existing)
	}

	rec := &model.ConversationRecord{
		ID:             s.newID(),
		ListingID:      listingID,
		ParticipantIDs: []string{listing.SellerID, requesterID},
		Messages:       []model.MessageRecord{},
		CreatedAt:      s.now().UTC(),
	}
	if err := s.conversations.Create(ctx, rec); err != nil {
		return nil, fmt.Errorf("failed to create conversation: %w", err)
	}

	return s.inflateOne(ctx, rec)
}

// Find は指定IDの会話を展開して返す。参加者のみ閲覧できる。
func (s *Service) Find(ctx context.Context, conversationID, userID string) (*model.Conversation, error) {
	rec, err := s.conversations.FindByID(ctx, conversationID)
	if err != nil {
		return nil, fmt.Errorf("failed to find conversation: %w", err)
	}
	if rec == nil {
		return nil, model.NewConversationNotFoundError()
	}
	if !rec.HasParticipant(userID) {
		return nil, model.NewConversationAccessForbiddenError()
	}
	return s.inflateOne(ctx, rec)
}

// AppendMessage は会話にメッセージを追記し、メッセージと更新後の会話を返す。
//
// 参加者のみ送信でき、紐づく出品が存在して（削除済みでなく）かつ
// Available状態である必要がある。本文はサニタイズ済みで保存する。
func (s *Service) AppendMessage(ctx context.Context, conversationID, senderID, body string, attachments []string) (*model.Message, *model.Conversation, error) {
	rec, err := s.conversations.FindByID(ctx, conversationID)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to find conversation: %w", err)
	}
	if rec == nil {
		return nil, nil, model.NewConversationNotFoundError()
	}
	if !rec.HasParticipant(senderID) {
		return nil, nil, model.NewConversationMessageForbiddenError()
	}

	listing, err := s.listings.FindByID(ctx, rec.ListingID)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to find listing: %w", err)
	}
	if listing == nil {
		return nil, nil, model.NewListingDeletedMessagingClosedError()
	}
	if listing.Status != model.ListingStatusAvailable {
		return nil, nil, model.NewListingClosedMessagingClosedError()
	}

	if attachments == nil {
		attachments = []string{}
	}

	msg := &model.MessageRecord{
		ID:             s.newID(),
		ConversationID: conversationID,
		SenderID:       senderID,
		Body:           s.sanitizer.Sanitize(body),
		Attachments:    attachments,
		Read:           false,
		CreatedAt:      s.now().UTC(),
	}
	if err := s.conversations.AppendMessage(ctx, msg); err != nil {
		return nil, nil, fmt.Errorf("failed to append message: %w", err)
	}

	// 保存後の会話を読み直して返す
	updated, err := s.conversations.FindByID(ctx, conversationID)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to reload conversation: %w", err)
	}
	if updated == nil {
		return nil, nil, fmt.Errorf("conversation disappeared after append: %s", conversationID)
	}

	inflated, err := s.inflateOne(ctx, updated)
	if err != nil {
		return nil, nil, err
	}

	for i := range inflated.Messages {
		if inflated.Messages[i].ID == msg.ID {
			return &inflated.Messages[i], inflated, nil
		}
	}
	return nil, nil, fmt.Errorf("failed to load saved message: %s", msg.ID)
}

// MarkRead は会話内の自分以外が送ったメッセージを既読にし、更新後の会話を返す。
// 未読が無い場合も成功として扱う（冪等）。参加者のみ実行できる。
func (s *Service) MarkRead(ctx context.Context, conversationID, userID string) (*model.Conversation, error) {
	rec, err := s.conversations.FindByID(ctx, conversationID)
	if err != nil {
		return nil, fmt.Errorf("failed to find conversation: %w", err)
	}
	if rec == nil {
		return nil, model.NewConversationNotFoundError()
	}
	if !rec.HasParticipant(userID) {
		return nil, model.NewConversationAccessForbiddenError()
	}

	if _, err := s.conversations.MarkRead(ctx, conversationID, userID); err != nil {
		return nil, fmt.Errorf("failed to mark conversation read: %w", err)
	}

	updated, err := s.conversations.FindByID(ctx, conversationID)
	if err != nil {
		return nil, fmt.Errorf("failed to reload conversation: %w", err)
	}
	if updated == nil {
		return nil, model.NewConversationNotFoundError()
	}
	return s.inflateOne(ctx, updated)
}

// inflateOne は1件の会話を展開する。
func (s *Service) inflateOne(ctx context.Context, rec *model.ConversationRecord) (*model.Conversation, error) {
	listings, users, err := s.contextForConversations(ctx, []model.ConversationRecord{*rec})
	if err != nil {
		return nil, err
	}
	return view.InflateConversation(*rec, users, listings)
}

// contextForConversations は会話群の展開に必要な出品とユーザーをまとめて取得する。
// ユーザーは参加者・送信者に加え、出品の出品者・受け取り手も含める。
func (s *Service) contextForConversations(ctx context.Context, records []model.ConversationRecord) ([]model.ListingRecord, []model.UserRecord, error) {
	listingIDs := make([]string, 0, len(records))
	seenListing := make(map[string]bool, len(records))
	userIDs := make([]string, 0, len(records)*2)
	seenUser := make(map[string]bool, len(records)*2)

	addUser := func(id string) {
		if id != "" && !seenUser[id] {
			seenUser[id] = true
			userIDs = append(userIDs, id)
		}
	}

	for _, rec := range records {
		if !seenListing[rec.ListingID] {
			seenListing[rec.ListingID] = true
			listingIDs = append(listingIDs, rec.ListingID)
		}
		for _, id := range rec.ParticipantIDs {
			addUser(id)
		}
		for _, msg := range rec.Messages {
			addUser(msg.SenderID)
		}
	}

	listings, err := s.listings.FindByIDs(ctx, listingIDs)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to load listings for conversations: %w", err)
	}
	for _, listing := range listings {
		addUser(listing.SellerID)
		if listing.ClaimedByID != nil {
			addUser(*listing.ClaimedByID)
		}
	}

	users, err := s.users.FindByIDs(ctx, userIDs)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to load users for conversations: %w", err)
	}
	return listings, users, nil
}
