package handler

import (
	"context"
	"net/http"
	"strings"

	"github.com/hitoshi/givebox/internal/auth"
	"github.com/hitoshi/givebox/internal/middleware"
	"github.com/hitoshi/givebox/internal/model"
)

// AuthServiceInterface は認証ハンドラーが必要とするサービスインターフェース。
type AuthServiceInterface interface {
	// Signup はユーザーを登録し、公開ユーザー情報とセッショントークンを返す。
	Signup(ctx context.Context, in auth.SignupInput) (*model.User, string, error)
	// Login は認証情報を検証し、公開ユーザー情報とセッショントークンを返す。
	Login(ctx context.Context, email, password string) (*model.User, string, error)
	// UserByID は指定IDのユーザーを取得する。見つからない場合はnilを返す。
	UserByID(ctx context.Context, id string) (*model.UserRecord, error)
}

// AuthHandler はメール+パスワード認証のHTTPハンドラー。
type AuthHandler struct {
	service AuthServiceInterface
}

// NewAuthHandler はAuthHandlerを生成する。
func NewAuthHandler(service AuthServiceInterface) *AuthHandler {
	return &AuthHandler{service: service}
}

// signupRequest はユーザー登録リクエストのボディ。
type signupRequest struct {
	Email     string `json:"email"`
	Name      string `json:"name"`
	Password  string `json:"password"`
	AvatarURL string `json:"avatarUrl"`
	Bio       string `json:"bio"`
}

// loginRequest はログインリクエストのボディ。
type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// sessionResponse は登録・ログイン成功時のレスポンス。
type sessionResponse struct {
	User  model.User `json:"user"`
	Token string     `json:"token"`
}

// userResponse はユーザー1件のレスポンス。
type userResponse struct {
	User model.User `json:"user"`
}

// Signup はユーザー登録を処理する。
// POST /api/auth/signup
func (h *AuthHandler) Signup(w http.ResponseWriter, r *http.Request) {
	var req signupRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	if strings.TrimSpace(req.Email) == "" || strings.TrimSpace(req.Name) == "" || req.Password == "" {
		middleware.WriteAPIError(w, model.NewValidationError("email, name, and password are required"))
		return
	}

	user, token, err := h.service.Signup(r.Context(), auth.SignupInput{
		Email:     req.Email,
		Name:      req.Name,
		Password:  req.Password,
		AvatarURL: req.AvatarURL,
		Bio:       req.Bio,
	})
	if err != nil {
		middleware.WriteError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, sessionResponse{User: *user, Token: token})
}

// Login はログインを処理する。
// POST /api/auth/login
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	if strings.TrimSpace(req.Email) == "" || req.Password == "" {
		middleware.WriteAPIError(w, model.NewValidationError("email and password are required"))
		return
	}

	user, token, err := h.service.Login(r.Context(), req.Email, req.Password)
	if err != nil {
		middleware.WriteError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, sessionResponse{User: *user, Token: token})
}

// Me は認証済みユーザー自身の情報を返す。
// GET /api/auth/me
func (h *AuthHandler) Me(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUserID(w, r)
	if !ok {
		return
	}

	rec, err := h.service.UserByID(r.Context(), userID)
	if err != nil {
		middleware.WriteError(w, err)
		return
	}
	if rec == nil {
		middleware.WriteAPIError(w, model.NewInvalidSessionError())
		return
	}

	writeJSON(w, http.StatusOK, userResponse{User: rec.Public()})
}
