package handler

import (
	"context"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/hitoshi/givebox/internal/conversation"
	"github.com/hitoshi/givebox/internal/middleware"
	"github.com/hitoshi/givebox/internal/model"
)

// ConversationServiceInterface は会話ハンドラーが必要とするサービスインターフェース。
type ConversationServiceInterface interface {
	// ListForUser は指定ユーザーが参加する会話を新しい順で返す。
	ListForUser(ctx context.Context, userID string) ([]model.Conversation, error)
	// CreateForListing は出品への問い合わせ会話を作成する（冪等）。
	CreateForListing(ctx context.Context, listingID, requesterID string) (*model.Conversation, error)
	// AppendMessage は会話にメッセージを追記する。
	AppendMessage(ctx context.Context, conversationID, senderID, body string, attachments []string) (*model.Message, *model.Conversation, error)
	// MarkRead は自分以外が送ったメッセージを既読にする（冪等）。
	MarkRead(ctx context.Context, conversationID, userID string) (*model.Conversation, error)
}

// ConversationUserFinder は会話一覧レスポンスのcurrentUser解決に使う。
type ConversationUserFinder interface {
	UserByID(ctx context.Context, id string) (*model.UserRecord, error)
}

// ConversationMetrics は会話ハンドラーが記録するメトリクス。
type ConversationMetrics interface {
	RecordMessageSent()
}

// ConversationHandler は会話とメッセージのHTTPハンドラー。
type ConversationHandler struct {
	service ConversationServiceInterface
	users   ConversationUserFinder
	metrics ConversationMetrics // nilの場合は記録しない
}

// NewConversationHandler はConversationHandlerを生成する。
func NewConversationHandler(service ConversationServiceInterface, users ConversationUserFinder, metrics ConversationMetrics) *ConversationHandler {
	return &ConversationHandler{
		service: service,
		users:   users,
		metrics: metrics,
	}
}

// createConversationRequest は会話作成リクエストのボディ。
type createConversationRequest struct {
	ListingID string `json:"listingId"`
}

// sendMessageRequest はメッセージ送信リクエストのボディ。
type sendMessageRequest struct {
	Body        string   `json:"body"`
	Attachments []string `json:"attachments"`
}

// conversationResponse は会話1件のレスポンス。
type conversationResponse struct {
	Conversation model.Conversation `json:"conversation"`
}

// conversationsResponse は会話一覧のレスポンス。
type conversationsResponse struct {
	Conversations []model.Conversation `json:"conversations"`
	CurrentUser   model.User           `json:"currentUser"`
}

// messageResponse はメッセージ送信成功時のレスポンス。
type messageResponse struct {
	Message      model.Message      `json:"message"`
	Conversation model.Conversation `json:"conversation"`
}

// ListConversations は自分が参加する会話の一覧を返す。
// GET /api/conversations
func (h *ConversationHandler) ListConversations(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUserID(w, r)
	if !ok {
		return
	}

	conversations, err := h.service.ListForUser(r.Context(), userID)
	if err != nil {
		middleware.WriteError(w, err)
		return
	}

	current, err := h.users.UserByID(r.Context(), userID)
	if err != nil {
		middleware.WriteError(w, err)
		return
	}
	if current == nil {
		middleware.WriteAPIError(w, model.NewInvalidSessionError())
		return
	}

	writeJSON(w, http.StatusOK, conversationsResponse{
		Conversations: conversations,
		CurrentUser:   current.Public(),
	})
}

// CreateConversation は出品への問い合わせ会話を作成する。
// POST /api/conversations
func (h *ConversationHandler) CreateConversation(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUserID(w, r)
	if !ok {
		return
	}

	var req createConversationRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	if strings.TrimSpace(req.ListingID) == "" {
		middleware.WriteAPIError(w, model.NewValidationError("listingId is required"))
		return
	}

	created, err := h.service.CreateForListing(r.Context(), req.ListingID, userID)
	if err != nil {
		middleware.WriteError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, conversationResponse{Conversation: *created})
}

// SendMessage は会話にメッセージを送信する。
// POST /api/conversations/{id}/messages
func (h *ConversationHandler) SendMessage(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUserID(w, r)
	if !ok {
		return
	}

	conversationID := chi.URLParam(r, "id")

	var req sendMessageRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	body := strings.TrimSpace(req.Body)
	if body == "" && len(req.Attachments) == 0 {
		middleware.WriteAPIError(w, model.NewValidationError("Message body or attachment is required"))
		return
	}
	if len(req.Attachments) > conversation.MaxAttachments {
		middleware.WriteAPIError(w, model.NewValidationError("Too many attachments"))
		return
	}

	message, updated, err := h.service.AppendMessage(r.Context(), conversationID, userID, body, req.Attachments)
	if err != nil {
		middleware.WriteError(w, err)
		return
	}

	if h.metrics != nil {
		h.metrics.RecordMessageSent()
	}

	writeJSON(w, http.StatusOK, messageResponse{
		Message:      *message,
		Conversation: *updated,
	})
}

// MarkConversationRead は会話内の自分以外のメッセージを既読にする。
// PATCH /api/conversations/{id}/messages
func (h *ConversationHandler) MarkConversationRead(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUserID(w, r)
	if !ok {
		return
	}

	conversationID := chi.URLParam(r, "id")

	updated, err := h.service.MarkRead(r.Context(), conversationID, userID)
	if err != nil {
		middleware.WriteError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, conversationResponse{Conversation: *updated})
}
