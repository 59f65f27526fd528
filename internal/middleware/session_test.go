package middleware

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/hitoshi/givebox/internal/model"
)

// mockSessionFinder はテスト用のSessionFinder実装。
type mockSessionFinder struct {
	findUserByTokenFunc func(ctx context.Context, token string) (*model.UserRecord, error)
}

func (m *mockSessionFinder) FindUserByToken(ctx context.Context, token string) (*model.UserRecord, error) {
	return m.findUserByTokenFunc(ctx, token)
}

func decodeErrorBody(t *testing.T, rec *httptest.ResponseRecorder) string {
	t.Helper()
	var body ErrorResponseBody
	if err := json.NewDecoder(rec.Body).Decode(&body); err != nil {
		t.Fatalf("failed to decode error body: %v", err)
	}
	return body.Error
}

func TestTokenFromRequest(t *testing.T) {
	tests := []struct {
		name    string
		headers map[string]string
		want    string
	}{
		{"bearer token", map[string]string{"Authorization": "Bearer abc123"}, "abc123"},
		{"bearer with extra spaces", map[string]string{"Authorization": "Bearer   abc123  "}, "abc123"},
		{"demo session header", map[string]string{"X-Demo-Session": "demo456"}, "demo456"},
		{"bearer wins over demo header", map[string]string{"Authorization": "Bearer abc", "X-Demo-Session": "demo"}, "abc"},
		{"non-bearer authorization falls through", map[string]string{"Authorization": "Basic xyz", "X-Demo-Session": "demo"}, "demo"},
		{"no headers", nil, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			for k, v := range tt.headers {
				req.Header.Set(k, v)
			}
			if got := TokenFromRequest(req); got != tt.want {
				t.Errorf("TokenFromRequest() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestSessionMiddleware_MissingToken(t *testing.T) {
	finder := &mockSessionFinder{
		findUserByTokenFunc: func(ctx context.Context, token string) (*model.UserRecord, error) {
			t.Fatal("finder should not be called without a token")
			return nil, nil
		},
	}

	handler := NewSessionMiddleware(finder)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Fatal("next handler should not run")
	}))

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/auth/me", nil))

	if rec.Code != http.StatusUnauthorized {
		t.Errorf("status = %d, want 401", rec.Code)
	}
	if msg := decodeErrorBody(t, rec); msg != "Missing session token" {
		t.Errorf("error = %q, want %q", msg, "Missing session token")
	}
}

func TestSessionMiddleware_InvalidToken(t *testing.T) {
	finder := &mockSessionFinder{
		findUserByTokenFunc: func(ctx context.Context, token string) (*model.UserRecord, error) {
			return nil, nil
		},
	}

	handler := NewSessionMiddleware(finder)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Fatal("next handler should not run")
	}))

	req := httptest.NewRequest(http.MethodGet, "/api/auth/me", nil)
	req.Header.Set("Authorization", "Bearer bogus")
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusUnauthorized {
		t.Errorf("status = %d, want 401", rec.Code)
	}
	if msg := decodeErrorBody(t, rec); msg != "Invalid session" {
		t.Errorf("error = %q, want %q", msg, "Invalid session")
	}
}

func TestSessionMiddleware_LookupError(t *testing.T) {
	finder := &mockSessionFinder{
		findUserByTokenFunc: func(ctx context.Context, token string) (*model.UserRecord, error) {
			return nil, errors.New("db down")
		},
	}

	handler := NewSessionMiddleware(finder)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Fatal("next handler should not run")
	}))

	req := httptest.NewRequest(http.MethodGet, "/api/auth/me", nil)
	req.Header.Set("Authorization", "Bearer abc")
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusUnauthorized {
		t.Errorf("status = %d, want 401", rec.Code)
	}
}

func TestSessionMiddleware_InjectsUserID(t *testing.T) {
	finder := &mockSessionFinder{
		findUserByTokenFunc: func(ctx context.Context, token string) (*model.UserRecord, error) {
			if token != "valid-token" {
				t.Errorf("token = %q, want %q", token, "valid-token")
			}
			return &model.UserRecord{User: model.User{ID: "user-maya"}}, nil
		},
	}

	var gotUserID string
	handler := NewSessionMiddleware(finder)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		userID, err := UserIDFromContext(r.Context())
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		gotUserID = userID
	}))

	req := httptest.NewRequest(http.MethodGet, "/api/auth/me", nil)
	req.Header.Set("X-Demo-Session", "valid-token")
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if gotUserID != "user-maya" {
		t.Errorf("userID = %q, want %q", gotUserID, "user-maya")
	}
}

func TestUserIDFromContext_MissingValue(t *testing.T) {
	if _, err := UserIDFromContext(context.Background()); err == nil {
		t.Error("expected error for context without user ID")
	}
}

func TestContextWithUserID_RoundTrip(t *testing.T) {
	ctx := ContextWithUserID(context.Background(), "user-1")
	userID, err := UserIDFromContext(ctx)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if userID != "user-1" {
		t.Errorf("userID = %q, want %q", userID, "user-1")
	}
}
