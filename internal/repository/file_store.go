package repository

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/hitoshi/givebox/internal/model"
)

// Document はデモ用JSONストアのファイル全体を表す。
// importサブコマンドがこのファイルを読んでPostgreSQLへ取り込むため、
// フィールド名はファイル上のキーと一致させる。
type Document struct {
	Users         []model.UserRecord         `json:"users"`
	Listings      []model.ListingRecord      `json:"listings"`
	Sessions      []model.Session            `json:"sessions"`
	Conversations []model.ConversationRecord `json:"conversations"`
}

// FileStore は単一JSONファイルを使用したデモ用ストア。
// 全リポジトリインターフェースを1つの実装で満たす。
//
// 毎回の操作でファイル全体を読み直し、変更操作ではファイル全体を書き戻す。
// 読み書きサイクルはプロセス内ミューテックスで直列化し、書き込みは
// 一時ファイル経由のリネームで行うため、読み手が書きかけのドキュメントを
// 観測することはない。プロセスをまたぐ同時書き込みは後勝ちになる。
type FileStore struct {
	path string
	mu   sync.Mutex
	now  func() time.Time
}

// NewFileStore は指定パスのJSONファイルを使うFileStoreを生成する。
// ファイルは初回アクセス時にシードデータ付きで作成される。
func NewFileStore(path string) *FileStore {
	return &FileStore{
		path: path,
		now:  time.Now,
	}
}

// load はドキュメントを読み込む。
// ファイルが存在しない、または解釈できない場合はシードデータで再生成する。
func (s *FileStore) load() (*Document, error) {
	data, err := os.ReadFile(s.path)
	if err == nil {
		doc := &Document{}
		if jsonErr := json.Unmarshal(data, doc); jsonErr == nil {
			return doc, nil
		}
	}

	// 壊れたファイルはデモデータとして価値がないため、シードで上書きする
	doc, err := SeedDocument(s.now())
	if err != nil {
		return nil, fmt.Errorf("failed to build seed document: %w", err)
	}
	if err := s.save(doc); err != nil {
		return nil, fmt.Errorf("failed to write seed document: %w", err)
	}
	return doc, nil
}

// save はドキュメント全体を書き戻す。
// 同一ディレクトリ内の一時ファイルに書いてからリネームする。
func (s *FileStore) save(doc *Document) error {
	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("failed to create data directory: %w", err)
	}

	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal document: %w", err)
	}

	tmp, err := os.CreateTemp(dir, ".demo-db-*.json")
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("failed to write temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("failed to close temp file: %w", err)
	}
	if err := os.Rename(tmpName, s.path); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("failed to replace document: %w", err)
	}
	return nil
}

// PingContext はストアの読み書きが可能かを確認する。ヘルスチェック用。
func (s *FileStore) PingContext(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, err := s.load()
	return err
}

// --- UserRepository ---

// FindUserByID は指定IDのユーザーを取得する。見つからない場合はnilを返す。
func (s *FileStore) FindUserByID(ctx context.Context, id string) (*model.UserRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	doc, err := s.load()
	if err != nil {
		return nil, err
	}
	for i := range doc.Users {
		if doc.Users[i].ID == id {
			return &doc.Users[i], nil
		}
	}
	return nil, nil
}

// FindUserByEmail はメールアドレスでユーザーを検索する。大文字小文字を区別しない。
func (s *FileStore) FindUserByEmail(ctx context.Context, email string) (*model.UserRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	doc, err := s.load()
	if err != nil {
		return nil, err
	}
	return findUserByEmail(doc, email), nil
}

func findUserByEmail(doc *Document, email string) *model.UserRecord {
	for i := range doc.Users {
		if strings.EqualFold(doc.Users[i].Email, email) {
			return &doc.Users[i]
		}
	}
	return nil
}

// FindUsersByIDs は指定ID群のユーザーをまとめて取得する。
func (s *FileStore) FindUsersByIDs(ctx context.Context, ids []string) ([]model.UserRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	doc, err := s.load()
	if err != nil {
		return nil, err
	}

	wanted := make(map[string]bool, len(ids))
	for _, id := range ids {
		wanted[id] = true
	}

	users := make([]model.UserRecord, 0, len(ids))
	for _, u := range doc.Users {
		if wanted[u.ID] {
			users = append(users, u)
		}
	}
	return users, nil
}

// ListUsers は全ユーザーを取得する。
func (s *FileStore) ListUsers(ctx context.Context) ([]model.UserRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	doc, err := s.load()
	if err != nil {
		return nil, err
	}
	return doc.Users, nil
}

// CreateUser はユーザーを作成する。メールアドレスが登録済みの場合はErrDuplicateEmailを返す。
func (s *FileStore) CreateUser(ctx context.Context, user *model.UserRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	doc, err := s.load()
	if err != nil {
		return err
	}
	if findUserByEmail(doc, user.Email) != nil {
		return ErrDuplicateEmail
	}
	doc.Users = append(doc.Users, *user)
	return s.save(doc)
}

// UpdateProfile はプロフィールを部分更新し、更新後のレコードを返す。
func (s *FileStore) UpdateProfile(ctx context.Context, userID string, patch ProfilePatch) (*model.UserRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	doc, err := s.load()
	if err != nil {
		return nil, err
	}
	for i := range doc.Users {
		if doc.Users[i].ID != userID {
			continue
		}
		applyProfilePatch(&doc.Users[i], patch)
		if err := s.save(doc); err != nil {
			return nil, err
		}
		return &doc.Users[i], nil
	}
	return nil, nil
}

func applyProfilePatch(user *model.UserRecord, patch ProfilePatch) {
	if patch.Name != nil {
		user.Name = *patch.Name
	}
	if patch.AvatarURL != nil {
		user.AvatarURL = *patch.AvatarURL
	}
	if patch.Bio != nil {
		user.Bio = *patch.Bio
	}
	if patch.Tags != nil {
		user.Tags = *patch.Tags
	}
}

// --- SessionRepository ---

// CreateSession はセッションを作成する。
func (s *FileStore) CreateSession(ctx context.Context, session *model.Session) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	doc, err := s.load()
	if err != nil {
		return err
	}
	doc.Sessions = append(doc.Sessions, *session)
	return s.save(doc)
}

// FindUserByToken はトークンからセッションの持ち主を解決する。
func (s *FileStore) FindUserByToken(ctx context.Context, token string) (*model.UserRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	doc, err := s.load()
	if err != nil {
		return nil, err
	}
	for _, sess := range doc.Sessions {
		if sess.Token != token {
			continue
		}
		for i := range doc.Users {
			if doc.Users[i].ID == sess.UserID {
				return &doc.Users[i], nil
			}
		}
		return nil, nil
	}
	return nil, nil
}

// --- ListingRepository ---

// ListListings は全出品を新しい順で取得する。
// 新規出品はドキュメント先頭に追記されるため、格納順がそのまま新しい順になる。
func (s *FileStore) ListListings(ctx context.Context) ([]model.ListingRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	doc, err := s.load()
	if err != nil {
		return nil, err
	}
	return doc.Listings, nil
}

// FindListingByID は指定IDの出品を取得する。見つからない場合はnilを返す。
func (s *FileStore) FindListingByID(ctx context.Context, id string) (*model.ListingRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	doc, err := s.load()
	if err != nil {
		return nil, err
	}
	for i := range doc.Listings {
		if doc.Listings[i].ID == id {
			return &doc.Listings[i], nil
		}
	}
	return nil, nil
}

// FindListingsByIDs は指定ID群の出品をまとめて取得する。
func (s *FileStore) FindListingsByIDs(ctx context.Context, ids []string) ([]model.ListingRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	doc, err := s.load()
	if err != nil {
		return nil, err
	}

	wanted := make(map[string]bool, len(ids))
	for _, id := range ids {
		wanted[id] = true
	}

	listings := make([]model.ListingRecord, 0, len(ids))
	for _, l := range doc.Listings {
		if wanted[l.ID] {
			listings = append(listings, l)
		}
	}
	return listings, nil
}

// CreateListing は出品をドキュメント先頭に追加する。
func (s *FileStore) CreateListing(ctx context.Context, listing *model.ListingRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	doc, err := s.load()
	if err != nil {
		return err
	}
	doc.Listings = append([]model.ListingRecord{*listing}, doc.Listings...)
	return s.save(doc)
}

// UpdateListing は出品レコード全体を上書きする。存在しないIDは何もしない。
func (s *FileStore) UpdateListing(ctx context.Context, listing *model.ListingRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	doc, err := s.load()
	if err != nil {
		return err
	}
	for i := range doc.Listings {
		if doc.Listings[i].ID == listing.ID {
			doc.Listings[i] = *listing
			return s.save(doc)
		}
	}
	return nil
}

// DeleteListing は指定IDの出品を物理削除する。会話レコードは残す。
func (s *FileStore) DeleteListing(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	doc, err := s.load()
	if err != nil {
		return err
	}
	kept := doc.Listings[:0]
	for _, l := range doc.Listings {
		if l.ID != id {
			kept = append(kept, l)
		}
	}
	doc.Listings = kept
	return s.save(doc)
}

// --- ConversationRepository ---

// ListByParticipant は指定ユーザーが参加する会話を新しい順で取得する。
func (s *FileStore) ListByParticipant(ctx context.Context, userID string) ([]model.ConversationRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	doc, err := s.load()
	if err != nil {
		return nil, err
	}
	convs := make([]model.ConversationRecord, 0)
	for _, c := range doc.Conversations {
		if c.HasParticipant(userID) {
			convs = append(convs, c)
		}
	}
	return convs, nil
}

// FindConversationByID は指定IDの会話を取得する。見つからない場合はnilを返す。
func (s *FileStore) FindConversationByID(ctx context.Context, id string) (*model.ConversationRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	doc, err := s.load()
	if err != nil {
		return nil, err
	}
	for i := range doc.Conversations {
		if doc.Conversations[i].ID == id {
			return &doc.Conversations[i], nil
		}
	}
	return nil, nil
}

// FindByListingAndParticipant は出品と参加者の組で会話を検索する。
func (s *FileStore) FindByListingAndParticipant(ctx context.Context, listingID, userID string) (*model.ConversationRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	doc, err := s.load()
	if err != nil {
		return nil, err
	}
	for i := range doc.Conversations {
		c := &doc.Conversations[i]
		if c.ListingID == listingID && c.HasParticipant(userID) {
			return c, nil
		}
	}
	return nil, nil
}

// CreateConversation は会話をドキュメント先頭に追加する。
func (s *FileStore) CreateConversation(ctx context.Context, conversation *model.ConversationRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	doc, err := s.load()
	if err != nil {
		return err
	}
	doc.Conversations = append([]model.ConversationRecord{*conversation}, doc.Conversations...)
	return s.save(doc)
}

// AppendMessage は会話にメッセージを追記する。
func (s *FileStore) AppendMessage(ctx context.Context, message *model.MessageRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	doc, err := s.load()
	if err != nil {
		return err
	}
	for i := range doc.Conversations {
		if doc.Conversations[i].ID == message.ConversationID {
			doc.Conversations[i].Messages = append(doc.Conversations[i].Messages, *message)
			return s.save(doc)
		}
	}
	return fmt.Errorf("conversation not found: %s", message.ConversationID)
}

// MarkRead は指定ユーザー以外が送った未読メッセージを既読にする。
// 変更が無い場合はファイルを書き戻さない。
func (s *FileStore) MarkRead(ctx context.Context, conversationID, userID string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	doc, err := s.load()
	if err != nil {
		return false, err
	}
	for i := range doc.Conversations {
		if doc.Conversations[i].ID != conversationID {
			continue
		}
		changed := false
		msgs := doc.Conversations[i].Messages
		for j := range msgs {
			if msgs[j].SenderID != userID && !msgs[j].Read {
				msgs[j].Read = true
				changed = true
			}
		}
		if !changed {
			return false, nil
		}
		if err := s.save(doc); err != nil {
			return false, err
		}
		return true, nil
	}
	return false, nil
}

// LoadDocument はデモ用JSONファイルを読み込む。importサブコマンド用。
// FileStoreのloadと異なり、ファイルが読めない場合はシードせずエラーを返す。
func LoadDocument(path string) (*Document, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read document: %w", err)
	}
	doc := &Document{}
	if err := json.Unmarshal(data, doc); err != nil {
		return nil, fmt.Errorf("failed to parse document: %w", err)
	}
	return doc, nil
}
