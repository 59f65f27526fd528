package handler

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/hitoshi/givebox/internal/middleware"
	"github.com/hitoshi/givebox/internal/model"
	"github.com/hitoshi/givebox/internal/user"
)

// UserServiceInterface はユーザーハンドラーが必要とするサービスインターフェース。
type UserServiceInterface interface {
	// Profile は指定ユーザーのプロフィールを取得する。requestedIDは"me"を許容する。
	Profile(ctx context.Context, requestedID string, viewer *model.UserRecord) (*user.Profile, error)
	// UpdateProfile はプロフィールを部分更新する。
	UpdateProfile(ctx context.Context, userID string, patch user.UpdatePatch) (*model.User, error)
}

// UserHandler はユーザープロフィールのHTTPハンドラー。
type UserHandler struct {
	service UserServiceInterface
	// sessions は閲覧者の任意認証に使う。プロフィール取得は未認証でも閲覧できる。
	sessions middleware.SessionFinder
}

// NewUserHandler はUserHandlerを生成する。
func NewUserHandler(service UserServiceInterface, sessions middleware.SessionFinder) *UserHandler {
	return &UserHandler{
		service:  service,
		sessions: sessions,
	}
}

// updateProfileRequest はプロフィール部分更新リクエストのボディ。
type updateProfileRequest struct {
	Name      *string      `json:"name"`
	AvatarURL *string      `json:"avatarUrl"`
	Bio       *string      `json:"bio"`
	Tags      *[]model.Tag `json:"tags"`
}

// profileResponse はプロフィール取得のレスポンス。
type profileResponse struct {
	User            model.User      `json:"user"`
	CurrentUserID   *string         `json:"currentUserId"`
	Listings        []model.Listing `json:"listings"`
	ClaimedListings []model.Listing `json:"claimedListings"`
}

// GetProfile はユーザーのプロフィールを返す。認証は任意。
// "me"指定時と受け取り済み一覧の表示には有効なセッションが必要。
// GET /api/users/{id}
func (h *UserHandler) GetProfile(w http.ResponseWriter, r *http.Request) {
	requestedID := chi.URLParam(r, "id")

	viewer := h.optionalViewer(r)

	profile, err := h.service.Profile(r.Context(), requestedID, viewer)
	if err != nil {
		middleware.WriteError(w, err)
		return
	}

	var currentUserID *string
	if viewer != nil {
		currentUserID = &viewer.ID
	}

	writeJSON(w, http.StatusOK, profileResponse{
		User:            profile.User,
		CurrentUserID:   currentUserID,
		Listings:        profile.Listings,
		ClaimedListings: profile.ClaimedListings,
	})
}

// UpdateProfile はプロフィールを部分更新する。本人のみ実行できる。
// PATCH /api/users/{id}
func (h *UserHandler) UpdateProfile(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUserID(w, r)
	if !ok {
		return
	}

	requestedID := chi.URLParam(r, "id")
	if requestedID != "me" && requestedID != userID {
		middleware.WriteAPIError(w, model.NewProfileEditForbiddenError())
		return
	}

	var req updateProfileRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	updated, err := h.service.UpdateProfile(r.Context(), userID, user.UpdatePatch{
		Name:      req.Name,
		AvatarURL: req.AvatarURL,
		Bio:       req.Bio,
		Tags:      req.Tags,
	})
	if err != nil {
		middleware.WriteError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, userResponse{User: *updated})
}

// optionalViewer はリクエストのトークンから閲覧者を解決する。
// トークンが無い、または無効な場合はnilを返す（エラーにしない）。
func (h *UserHandler) optionalViewer(r *http.Request) *model.UserRecord {
	token := middleware.TokenFromRequest(r)
	if token == "" {
		return nil
	}

	viewer, err := h.sessions.FindUserByToken(r.Context(), token)
	if err != nil {
		slog.Warn("failed to resolve optional session token",
			slog.String("error", err.Error()),
		)
		return nil
	}
	return viewer
}
