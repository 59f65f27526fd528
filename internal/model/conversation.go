package model

import "time"

// MessageRecord は永続化するメッセージレコード。
type MessageRecord struct {
	ID             string    `json:"id"`
	ConversationID string    `json:"conversationId"`
	SenderID       string    `json:"senderId"`
	Body           string    `json:"body"`
	Attachments    []string  `json:"attachments"`
	Read           bool      `json:"read"`
	CreatedAt      time.Time `json:"createdAt"`
}

// ConversationRecord は永続化する会話レコード。
// 参加者は出品者と問い合わせ者の2名で、(出品, 問い合わせ者)の組ごとに1件だけ存在する。
type ConversationRecord struct {
	ID             string          `json:"id"`
	ListingID      string          `json:"listingId"`
	ParticipantIDs []string        `json:"participantIds"`
	Messages       []MessageRecord `json:"messages"`
	CreatedAt      time.Time       `json:"createdAt"`
}

// HasParticipant は指定ユーザーが会話の参加者かを返す。
func (c *ConversationRecord) HasParticipant(userID string) bool {
	for _, id := range c.ParticipantIDs {
		if id == userID {
			return true
		}
	}
	return false
}

// Message は送信者情報を展開済みのAPIレスポンス用メッセージ。
type Message struct {
	ID             string    `json:"id"`
	ConversationID string    `json:"conversationId"`
	Sender         User      `json:"sender"`
	Body           string    `json:"body"`
	Attachments    []string  `json:"attachments"`
	Read           bool      `json:"read"`
	CreatedAt      time.Time `json:"createdAt"`
}

// Conversation は出品・参加者・メッセージを展開済みのAPIレスポンス用会話。
// 出品が削除済みの場合、Listingには削除済みプレースホルダーが入る。
type Conversation struct {
	ID           string    `json:"id"`
	Listing      Listing   `json:"listing"`
	Participants []User    `json:"participants"`
	Messages     []Message `json:"messages"`
	LastMessage  *Message  `json:"lastMessage"`
	CreatedAt    time.Time `json:"createdAt"`
}
