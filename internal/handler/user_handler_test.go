package handler

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"

	"github.com/hitoshi/givebox/internal/model"
	"github.com/hitoshi/givebox/internal/user"
)

func newUserRouter(h *UserHandler) chi.Router {
	r := chi.NewRouter()
	r.Get("/api/users/{id}", h.GetProfile)
	r.Patch("/api/users/{id}", h.UpdateProfile)
	return r
}

func rejectAllSessions() *mockSessionFinder {
	return &mockSessionFinder{
		findUserByTokenFunc: func(ctx context.Context, token string) (*model.UserRecord, error) {
			return nil, nil
		},
	}
}

func TestGetProfile_Anonymous(t *testing.T) {
	service := &mockUserService{
		profileFunc: func(ctx context.Context, requestedID string, viewer *model.UserRecord) (*user.Profile, error) {
			if viewer != nil {
				t.Errorf("viewer = %+v, want nil for anonymous request", viewer)
			}
			return &user.Profile{
				User:            model.User{ID: requestedID, Name: "Maya"},
				Listings:        []model.Listing{{ID: "listing-1"}},
				ClaimedListings: []model.Listing{},
			}, nil
		},
	}
	router := newUserRouter(NewUserHandler(service, rejectAllSessions()))

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/users/user-maya", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	var body profileResponse
	decodeJSONBody(t, rec, &body)
	if body.User.ID != "user-maya" {
		t.Errorf("user.id = %q, want user-maya", body.User.ID)
	}
	if body.CurrentUserID != nil {
		t.Errorf("currentUserId = %v, want null for anonymous viewer", *body.CurrentUserID)
	}
	if len(body.Listings) != 1 {
		t.Errorf("len(listings) = %d, want 1", len(body.Listings))
	}
}

func TestGetProfile_WithValidToken(t *testing.T) {
	sessions := &mockSessionFinder{
		findUserByTokenFunc: func(ctx context.Context, token string) (*model.UserRecord, error) {
			if token != "valid-token" {
				t.Errorf("token = %q, want valid-token", token)
			}
			return &model.UserRecord{User: model.User{ID: "user-jordan"}}, nil
		},
	}
	service := &mockUserService{
		profileFunc: func(ctx context.Context, requestedID string, viewer *model.UserRecord) (*user.Profile, error) {
			if viewer == nil || viewer.ID != "user-jordan" {
				t.Errorf("viewer = %+v, want the resolved session user", viewer)
			}
			return &user.Profile{User: model.User{ID: "user-maya"}}, nil
		},
	}
	router := newUserRouter(NewUserHandler(service, sessions))

	req := httptest.NewRequest(http.MethodGet, "/api/users/user-maya", nil)
	req.Header.Set("Authorization", "Bearer valid-token")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	var body profileResponse
	decodeJSONBody(t, rec, &body)
	if body.CurrentUserID == nil || *body.CurrentUserID != "user-jordan" {
		t.Errorf("currentUserId = %v, want user-jordan", body.CurrentUserID)
	}
}

func TestGetProfile_BrokenSessionLookupIsAnonymous(t *testing.T) {
	sessions := &mockSessionFinder{
		findUserByTokenFunc: func(ctx context.Context, token string) (*model.UserRecord, error) {
			return nil, errors.New("db down")
		},
	}
	service := &mockUserService{
		profileFunc: func(ctx context.Context, requestedID string, viewer *model.UserRecord) (*user.Profile, error) {
			if viewer != nil {
				t.Errorf("viewer = %+v, want nil when session lookup fails", viewer)
			}
			return &user.Profile{User: model.User{ID: requestedID}}, nil
		},
	}
	router := newUserRouter(NewUserHandler(service, sessions))

	req := httptest.NewRequest(http.MethodGet, "/api/users/user-maya", nil)
	req.Header.Set("Authorization", "Bearer some-token")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Errorf("status = %d, want 200 despite the session error", rec.Code)
	}
}

func TestGetProfile_NotFound(t *testing.T) {
	service := &mockUserService{
		profileFunc: func(ctx context.Context, requestedID string, viewer *model.UserRecord) (*user.Profile, error) {
			return nil, model.NewUserNotFoundError()
		},
	}
	router := newUserRouter(NewUserHandler(service, rejectAllSessions()))

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/users/user-missing", nil))

	assertErrorResponse(t, rec, http.StatusNotFound, "User not found")
}

func TestUpdateProfile_Self(t *testing.T) {
	service := &mockUserService{
		updateProfileFunc: func(ctx context.Context, userID string, patch user.UpdatePatch) (*model.User, error) {
			if userID != "user-maya" {
				t.Errorf("userID = %q, want user-maya", userID)
			}
			if patch.Name == nil || *patch.Name != "Maya P." {
				t.Errorf("patch.Name = %v, want Maya P.", patch.Name)
			}
			return &model.User{ID: userID, Name: *patch.Name}, nil
		},
	}
	router := newUserRouter(NewUserHandler(service, rejectAllSessions()))

	req := asUser(newJSONRequest(t, http.MethodPatch, "/api/users/user-maya", map[string]string{
		"name": "Maya P.",
	}), "user-maya")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	var body userResponse
	decodeJSONBody(t, rec, &body)
	if body.User.Name != "Maya P." {
		t.Errorf("user.name = %q, want Maya P.", body.User.Name)
	}
}

func TestUpdateProfile_MeAlias(t *testing.T) {
	service := &mockUserService{
		updateProfileFunc: func(ctx context.Context, userID string, patch user.UpdatePatch) (*model.User, error) {
			if userID != "user-maya" {
				t.Errorf("userID = %q, want the session user", userID)
			}
			return &model.User{ID: userID}, nil
		},
	}
	router := newUserRouter(NewUserHandler(service, rejectAllSessions()))

	req := asUser(newJSONRequest(t, http.MethodPatch, "/api/users/me", map[string]string{
		"bio": "Almost done!",
	}), "user-maya")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Errorf("status = %d, want 200", rec.Code)
	}
}

func TestUpdateProfile_OtherUserForbidden(t *testing.T) {
	service := &mockUserService{
		updateProfileFunc: func(ctx context.Context, userID string, patch user.UpdatePatch) (*model.User, error) {
			t.Fatal("service should not be called")
			return nil, nil
		},
	}
	router := newUserRouter(NewUserHandler(service, rejectAllSessions()))

	req := asUser(newJSONRequest(t, http.MethodPatch, "/api/users/user-maya", map[string]string{
		"name": "Impostor",
	}), "user-sam")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assertErrorResponse(t, rec, http.StatusForbidden, "Not allowed")
}
