// Package view は永続化レコードをAPIレスポンス形状へ展開する純粋関数群を提供する。
//
// 展開に必要なユーザー・出品は呼び出し側がまとめて取得して渡す。
// この層はストレージにも時計にもアクセスせず、同じ入力には常に同じ出力を返す。
package view

import (
	"fmt"

	"github.com/hitoshi/givebox/internal/model"
)

// deletedListingTitle 以下は削除済み出品プレースホルダーの固定文言。
const (
	deletedListingTitle       = "Deleted listing"
	deletedListingDescription = "This listing was deleted."
	deletedListingLocation    = "Deleted"
)

// deletedUser は会話の参加者もユーザー一覧も解決できない場合の最終フォールバック。
var deletedUser = model.User{
	ID:    "deleted-user",
	Email: "deleted@university.edu",
	Name:  "Deleted User",
}

// userByID はユーザー一覧から指定IDのレコードを探す。
func userByID(users []model.UserRecord, id string) *model.UserRecord {
	for i := range users {
		if users[i].ID == id {
			return &users[i]
		}
	}
	return nil
}

// listingByID は出品一覧から指定IDのレコードを探す。
func listingByID(listings []model.ListingRecord, id string) *model.ListingRecord {
	for i := range listings {
		if listings[i].ID == id {
			return &listings[i]
		}
	}
	return nil
}

// InflateListing は出品レコードの出品者・受け取り手をユーザー情報に展開する。
// 出品者が解決できない場合は内部不整合としてNotFoundエラーを返す。
// 受け取り手が解決できない場合はclaimedByをnullにする。
func InflateListing(rec model.ListingRecord, users []model.UserRecord) (*model.Listing, error) {
	seller := userByID(users, rec.SellerID)
	if seller == nil {
		return nil, &model.APIError{
			Kind:    model.ErrKindNotFound,
			Message: fmt.Sprintf("Seller %s not found", rec.SellerID),
		}
	}

	var claimedBy *model.User
	if rec.ClaimedByID != nil {
		if claimer := userByID(users, *rec.ClaimedByID); claimer != nil {
			u := claimer.Public()
			claimedBy = &u
		}
	}

	images := rec.Images
	if images == nil {
		images = []string{}
	}
	tags := rec.Tags
	if tags == nil {
		tags = []model.Tag{}
	}

	return &model.Listing{
		ID:          rec.ID,
		Title:       rec.Title,
		Description: rec.Description,
		Images:      images,
		Category:    rec.Category,
		Condition:   rec.Condition,
		Tags:        tags,
		Status:      rec.Status,
		Location:    rec.Location,
		Seller:      seller.Public(),
		ClaimedBy:   claimedBy,
		CreatedAt:   rec.CreatedAt,
		ExpiresAt:   rec.ExpiresAt,
	}, nil
}

// InflateMessage はメッセージレコードの送信者をユーザー情報に展開する。
// 送信者が解決できない場合は内部不整合としてNotFoundエラーを返す。
func InflateMessage(rec model.MessageRecord, users []model.UserRecord) (*model.Message, error) {
	sender := userByID(users, rec.SenderID)
	if sender == nil {
		return nil, &model.APIError{
			Kind:    model.ErrKindNotFound,
			Message: fmt.Sprintf("Sender %s not found", rec.SenderID),
		}
	}

	attachments := rec.Attachments
	if attachments == nil {
		attachments = []string{}
	}

	return &model.Message{
		ID:             rec.ID,
		ConversationID: rec.ConversationID,
		Sender:         sender.Public(),
		Body:           rec.Body,
		Attachments:    attachments,
		Read:           rec.Read,
		CreatedAt:      rec.CreatedAt,
	}, nil
}

// InflateConversation は会話レコードの出品・参加者・メッセージを展開する。
//
// 出品が削除済みの場合は削除済みプレースホルダーを合成する。解決できない
// 参加者は黙って除外する（退会ユーザーの会話でも他の参加者は会話を開ける）。
// lastMessageは最後のメッセージ、メッセージが無い場合はnull。
func InflateConversation(rec model.ConversationRecord, users []model.UserRecord, listings []model.ListingRecord) (*model.Conversation, error) {
	var listing *model.Listing
	if found := listingByID(listings, rec.ListingID); found != nil {
		inflated, err := InflateListing(*found, users)
		if err != nil {
			return nil, err
		}
		listing = inflated
	} else {
		listing = deletedListingPlaceholder(rec, users)
	}

	participants := make([]model.User, 0, len(rec.ParticipantIDs))
	for _, id := range rec.ParticipantIDs {
		if u := userByID(users, id); u != nil {
			participants = append(participants, u.Public())
		}
	}

	messages := make([]model.Message, 0, len(rec.Messages))
	for _, msgRec := range rec.Messages {
		msg, err := InflateMessage(msgRec, users)
		if err != nil {
			return nil, err
		}
		messages = append(messages, *msg)
	}

	var lastMessage *model.Message
	if len(messages) > 0 {
		lastMessage = &messages[len(messages)-1]
	}

	return &model.Conversation{
		ID:           rec.ID,
		Listing:      *listing,
		Participants: participants,
		Messages:     messages,
		LastMessage:  lastMessage,
		CreatedAt:    rec.CreatedAt,
	}, nil
}

// deletedListingPlaceholder は削除済み出品の代替表示を合成する。
// 出品者欄には解決できた最初の参加者、いなければユーザー一覧の先頭、
// それも無ければ合成の削除済みユーザーを入れる。
// タイムスタンプは会話レコードの作成時刻を使い、時計は読まない。
func deletedListingPlaceholder(rec model.ConversationRecord, users []model.UserRecord) *model.Listing {
	seller := deletedUser
	found := false
	for _, id := range rec.ParticipantIDs {
		if u := userByID(users, id); u != nil {
			seller = u.Public()
			found = true
			break
		}
	}
	if !found && len(users) > 0 {
		seller = users[0].Public()
	}

	return &model.Listing{
		ID:          rec.ListingID,
		Title:       deletedListingTitle,
		Description: deletedListingDescription,
		Images:      []string{},
		Category:    model.CategoryOther,
		Condition:   model.ConditionGood,
		Tags:        []model.Tag{},
		Status:      model.ListingStatusGone,
		Location:    deletedListingLocation,
		Seller:      seller,
		ClaimedBy:   nil,
		CreatedAt:   rec.CreatedAt,
		ExpiresAt:   rec.CreatedAt,
	}
}
