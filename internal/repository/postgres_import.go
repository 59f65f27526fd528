package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/hitoshi/givebox/internal/model"
)

// ImportDocument はデモ用JSONドキュメントの内容をPostgreSQLへ取り込む。
// 既存データを消してから投入するため、全体を1つのトランザクションで行い、
// 途中で失敗した場合は元の状態に戻る。
func ImportDocument(ctx context.Context, db *sql.DB, doc *Document) error {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	// 外部キーの依存順に削除
	for _, table := range []string{"messages", "conversations", "sessions", "listings", "users"} {
		if _, err := tx.ExecContext(ctx, `DELETE FROM `+table); err != nil {
			return fmt.Errorf("failed to clear table %s: %w", table, err)
		}
	}

	for i := range doc.Users {
		if err := importUser(ctx, tx, &doc.Users[i]); err != nil {
			return err
		}
	}
	for i := range doc.Listings {
		if err := importListing(ctx, tx, &doc.Listings[i]); err != nil {
			return err
		}
	}
	for _, session := range doc.Sessions {
		_, err := tx.ExecContext(ctx,
			`INSERT INTO sessions (token, user_id, created_at) VALUES ($1, $2, $3)`,
			session.Token, session.UserID, session.CreatedAt,
		)
		if err != nil {
			return fmt.Errorf("failed to import session: %w", err)
		}
	}
	for i := range doc.Conversations {
		if err := importConversation(ctx, tx, &doc.Conversations[i]); err != nil {
			return err
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

func importUser(ctx context.Context, tx *sql.Tx, user *model.UserRecord) error {
	university, err := marshalJSONB(user.University)
	if err != nil {
		return err
	}
	tags, err := marshalJSONB(user.Tags)
	if err != nil {
		return err
	}

	_, err = tx.ExecContext(ctx,
		`INSERT INTO users (id, email, name, avatar_url, university, tags, bio, password, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
		user.ID, user.Email, user.Name, user.AvatarURL,
		university, tags, user.Bio, user.Password, user.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to import user %s: %w", user.ID, err)
	}
	return nil
}

func importListing(ctx context.Context, tx *sql.Tx, listing *model.ListingRecord) error {
	images, err := marshalJSONB(listing.Images)
	if err != nil {
		return err
	}
	tags, err := marshalJSONB(listing.Tags)
	if err != nil {
		return err
	}

	_, err = tx.ExecContext(ctx,
		`INSERT INTO listings (id, title, description, images, category, condition, tags, status, location, seller_id, claimed_by_id, created_at, expires_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)`,
		listing.ID, listing.Title, listing.Description, images,
		listing.Category, listing.Condition, tags, listing.Status,
		listing.Location, listing.SellerID, claimedByValue(listing.ClaimedByID),
		listing.CreatedAt, listing.ExpiresAt,
	)
	if err != nil {
		return fmt.Errorf("failed to import listing %s: %w", listing.ID, err)
	}
	return nil
}

func importConversation(ctx context.Context, tx *sql.Tx, conversation *model.ConversationRecord) error {
	participantIDs, err := marshalJSONB(conversation.ParticipantIDs)
	if err != nil {
		return err
	}

	_, err = tx.ExecContext(ctx,
		`INSERT INTO conversations (id, listing_id, participant_ids, created_at)
		 VALUES ($1, $2, $3, $4)`,
		conversation.ID, conversation.ListingID, participantIDs, conversation.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to import conversation %s: %w", conversation.ID, err)
	}

	for _, msg := range conversation.Messages {
		attachments, err := marshalJSONB(msg.Attachments)
		if err != nil {
			return err
		}
		_, err = tx.ExecContext(ctx,
			`INSERT INTO messages (id, conversation_id, sender_id, body, attachments, read, created_at)
			 VALUES ($1, $2, $3, $4, $5, $6, $7)`,
			msg.ID, msg.ConversationID, msg.SenderID,
			msg.Body, attachments, msg.Read, msg.CreatedAt,
		)
		if err != nil {
			return fmt.Errorf("failed to import message %s: %w", msg.ID, err)
		}
	}
	return nil
}
