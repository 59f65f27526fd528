package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/lib/pq"

	"github.com/hitoshi/givebox/internal/model"
)

// PostgresConversationRepo はPostgreSQLを使用した会話リポジトリ。
// 会話本体はconversationsテーブル、メッセージはmessagesテーブルに分かれる。
type PostgresConversationRepo struct {
	db *sql.DB
}

// NewPostgresConversationRepo はPostgresConversationRepoを生成する。
func NewPostgresConversationRepo(db *sql.DB) *PostgresConversationRepo {
	return &PostgresConversationRepo{db: db}
}

// scanConversationRow は1行分の会話レコードを読み取る。メッセージは含まない。
func scanConversationRow(row rowScanner) (*model.ConversationRecord, error) {
	conv := &model.ConversationRecord{}
	var participantIDs []byte
	err := row.Scan(&conv.ID, &conv.ListingID, &participantIDs, &conv.CreatedAt)
	if err != nil {
		return nil, err
	}
	conv.ParticipantIDs = scanStrings(participantIDs)
	conv.Messages = []model.MessageRecord{}
	return conv, nil
}

// ListByParticipant は指定ユーザーが参加する会話を新しい順で取得する。
// participant_idsはjsonb配列のため、キー存在演算子(?)で参加判定する。
func (r *PostgresConversationRepo) ListByParticipant(ctx context.Context, userID string) ([]model.ConversationRecord, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, listing_id, participant_ids, created_at
		 FROM conversations
		 WHERE participant_ids ? $1
		 ORDER BY created_at DESC, id DESC`,
		userID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list conversations: %w", err)
	}
	defer rows.Close()

	convs := make([]model.ConversationRecord, 0)
	for rows.Next() {
		conv, err := scanConversationRow(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan conversation: %w", err)
		}
		convs = append(convs, *conv)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate conversations: %w", err)
	}

	if err := r.attachMessages(ctx, convs); err != nil {
		return nil, err
	}
	return convs, nil
}

// FindByID は指定IDの会話をメッセージ込みで取得する。見つからない場合はnilを返す。
func (r *PostgresConversationRepo) FindByID(ctx context.Context, id string) (*model.ConversationRecord, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT id, listing_id, participant_ids, created_at
		 FROM conversations
		 WHERE id = $1`,
		id,
	)
	conv, err := scanConversationRow(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find conversation: %w", err)
	}

	convs := []model.ConversationRecord{*conv}
	if err := r.attachMessages(ctx, convs); err != nil {
		return nil, err
	}
	return &convs[0], nil
}

// FindByListingAndParticipant は出品と参加者の組で会話を検索する。見つからない場合はnilを返す。
func (r *PostgresConversationRepo) FindByListingAndParticipant(ctx context.Context, listingID, userID string) (*model.ConversationRecord, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT id, listing_id, participant_ids, created_at
		 FROM conversations
		 WHERE listing_id = $1 AND participant_ids ? $2
		 ORDER BY created_at DESC
		 LIMIT 1`,
		listingID, userID,
	)
	conv, err := scanConversationRow(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find conversation by listing: %w", err)
	}

	convs := []model.ConversationRecord{*conv}
	if err := r.attachMessages(ctx, convs); err != nil {
		return nil, err
	}
	return &convs[0], nil
}

// Create は会話を作成する。メッセージの挿入はAppendMessageで行う。
func (r *PostgresConversationRepo) Create(ctx context.Context, conversation *model.ConversationRecord) error {
	participantIDs, err := marshalJSONB(conversation.ParticipantIDs)
	if err != nil {
		return err
	}

	_, err = r.db.ExecContext(ctx,
		`INSERT INTO conversations (id, listing_id, participant_ids, created_at)
		 VALUES ($1, $2, $3, $4)`,
		conversation.ID, conversation.ListingID, participantIDs, conversation.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to insert conversation: %w", err)
	}
	return nil
}

// AppendMessage は会話にメッセージを追記する。
func (r *PostgresConversationRepo) AppendMessage(ctx context.Context, message *model.MessageRecord) error {
	attachments, err := marshalJSONB(message.Attachments)
	if err != nil {
		return err
	}

	_, err = r.db.ExecContext(ctx,
		`INSERT INTO messages (id, conversation_id, sender_id, body, attachments, read, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		message.ID, message.ConversationID, message.SenderID,
		message.Body, attachments, message.Read, message.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to insert message: %w", err)
	}
	return nil
}

// MarkRead は指定ユーザー以外が送った未読メッセージを既読にする。
// 1件以上更新した場合はtrueを返す。冪等。
func (r *PostgresConversationRepo) MarkRead(ctx context.Context, conversationID, userID string) (bool, error) {
	result, err := r.db.ExecContext(ctx,
		`UPDATE messages
		 SET read = true
		 WHERE conversation_id = $1 AND sender_id <> $2 AND read = false`,
		conversationID, userID,
	)
	if err != nil {
		return false, fmt.Errorf("failed to mark messages read: %w", err)
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to get rows affected: %w", err)
	}
	return rowsAffected > 0, nil
}

// attachMessages は会話群のメッセージを1クエリでまとめて読み込み、会話ごとに振り分ける。
// メッセージは会話内で古い順に並ぶ。
func (r *PostgresConversationRepo) attachMessages(ctx context.Context, convs []model.ConversationRecord) error {
	if len(convs) == 0 {
		return nil
	}

	ids := make([]string, len(convs))
	index := make(map[string]int, len(convs))
	for i := range convs {
		ids[i] = convs[i].ID
		index[convs[i].ID] = i
		convs[i].Messages = []model.MessageRecord{}
	}

	rows, err := r.db.QueryContext(ctx,
		`SELECT id, conversation_id, sender_id, body, attachments, read, created_at
		 FROM messages
		 WHERE conversation_id = ANY($1)
		 ORDER BY created_at ASC, id ASC`,
		pq.Array(ids),
	)
	if err != nil {
		return fmt.Errorf("failed to load messages: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		msg := model.MessageRecord{}
		var attachments []byte
		err := rows.Scan(
			&msg.ID, &msg.ConversationID, &msg.SenderID,
			&msg.Body, &attachments, &msg.Read, &msg.CreatedAt,
		)
		if err != nil {
			return fmt.Errorf("failed to scan message: %w", err)
		}
		msg.Attachments = scanStrings(attachments)

		if i, ok := index[msg.ConversationID]; ok {
			convs[i].Messages = append(convs[i].Messages, msg)
		}
	}
	if err := rows.Err(); err != nil {
		return fmt.Errorf("failed to iterate messages: %w", err)
	}
	return nil
}

// compile-time interface check
var _ ConversationRepository = (*PostgresConversationRepo)(nil)
