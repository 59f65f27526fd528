// Package repository はデータ永続化のインターフェースを定義する。
//
// 同じ契約をPostgreSQL実装（postgres_*.go）とJSONファイル実装（file_store.go）が満たす。
// サービス層はどちらのバックエンドかを一切意識しない。
package repository

import (
	"context"
	"errors"

	"github.com/hitoshi/givebox/internal/model"
)

// ErrDuplicateEmail は登録済みメールアドレスでの再登録を表すセンチネルエラー。
// 両バックエンドが同じエラーを返し、サービス層がUIエラーへ変換する。
var ErrDuplicateEmail = errors.New("email already registered")

// ProfilePatch はプロフィール部分更新の内容を表す。
// nilフィールドは変更しない。
type ProfilePatch struct {
	Name      *string
	AvatarURL *string
	Bio       *string
	Tags      *[]model.Tag
}

// UserRepository はユーザーデータの永続化インターフェース。
type UserRepository interface {
	// FindByID は指定IDのユーザーを取得する。見つからない場合はnilを返す。
	FindByID(ctx context.Context, id string) (*model.UserRecord, error)

	// FindByEmail はメールアドレスでユーザーを検索する。大文字小文字を区別しない。
	// 見つからない場合はnilを返す。
	FindByEmail(ctx context.Context, email string) (*model.UserRecord, error)

	// FindByIDs は指定ID群のユーザーをまとめて取得する。存在しないIDは結果から抜ける。
	FindByIDs(ctx context.Context, ids []string) ([]model.UserRecord, error)

	// List は全ユーザーを取得する。
	List(ctx context.Context) ([]model.UserRecord, error)

	// Create はユーザーを作成する。
	// メールアドレスが登録済みの場合はErrDuplicateEmailを返す。
	Create(ctx context.Context, user *model.UserRecord) error

	// UpdateProfile はプロフィールを部分更新し、更新後のレコードを返す。
	// ユーザーが存在しない場合はnilを返す。
	UpdateProfile(ctx context.Context, userID string, patch ProfilePatch) (*model.UserRecord, error)
}

// SessionRepository はセッションデータの永続化インターフェース。
type SessionRepository interface {
	// Create はセッションを作成する。
	Create(ctx context.Context, session *model.Session) error

	// FindUserByToken はトークンからセッションの持ち主を1ホップで解決する。
	// セッションまたはユーザーが存在しない場合はnilを返す。
	FindUserByToken(ctx context.Context, token string) (*model.UserRecord, error)
}

// ListingRepository は出品データの永続化インターフェース。
type ListingRepository interface {
	// List は全出品を新しい順で取得する。
	List(ctx context.Context) ([]model.ListingRecord, error)

	// FindByID は指定IDの出品を取得する。見つからない場合はnilを返す。
	FindByID(ctx context.Context, id string) (*model.ListingRecord, error)

	// FindByIDs は指定ID群の出品をまとめて取得する。存在しないIDは結果から抜ける。
	FindByIDs(ctx context.Context, ids []string) ([]model.ListingRecord, error)

	// Create は出品を作成する。一覧の先頭（最新）に現れる。
	Create(ctx context.Context, listing *model.ListingRecord) error

	// Update は出品レコード全体を上書きする。
	Update(ctx context.Context, listing *model.ListingRecord) error

	// Delete は指定IDの出品を物理削除する。会話レコードは残る。
	Delete(ctx context.Context, id string) error
}

// ConversationRepository は会話・メッセージデータの永続化インターフェース。
type ConversationRepository interface {
	// ListByParticipant は指定ユーザーが参加する会話を新しい順で取得する。
	// 各会話のメッセージは古い順に並ぶ。
	ListByParticipant(ctx context.Context, userID string) ([]model.ConversationRecord, error)

	// FindByID は指定IDの会話をメッセージ込みで取得する。見つからない場合はnilを返す。
	FindByID(ctx context.Context, id string) (*model.ConversationRecord, error)

	// FindByListingAndParticipant は出品と参加者の組で会話を検索する。見つからない場合はnilを返す。
	FindByListingAndParticipant(ctx context.Context, listingID, userID string) (*model.ConversationRecord, error)

	// Create は会話を作成する。
	Create(ctx context.Context, conversation *model.ConversationRecord) error

	// AppendMessage は会話にメッセージを追記する。
	AppendMessage(ctx context.Context, message *model.MessageRecord) error

	// MarkRead は指定ユーザー以外が送った未読メッセージを既読にする。
	// 1件以上更新した場合はtrueを返す。冪等。
	MarkRead(ctx context.Context, conversationID, userID string) (bool, error)
}
