package handler

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"

	"github.com/hitoshi/givebox/internal/listing"
	"github.com/hitoshi/givebox/internal/model"
)

// newListingRouter はURLパラメーターを解決するため、chiルーターにハンドラーをマウントする。
func newListingRouter(h *ListingHandler) chi.Router {
	r := chi.NewRouter()
	r.Get("/api/listings", h.ListListings)
	r.Get("/api/listings/{id}", h.GetListing)
	r.Post("/api/listings", h.CreateListing)
	r.Patch("/api/listings/{id}", h.UpdateListing)
	r.Delete("/api/listings/{id}", h.DeleteListing)
	return r
}

func TestListListings(t *testing.T) {
	service := &mockListingService{
		listFunc: func(ctx context.Context) ([]model.Listing, error) {
			return []model.Listing{{ID: "listing-2"}, {ID: "listing-1"}}, nil
		},
	}
	router := newListingRouter(NewListingHandler(service, nil))

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/listings", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	var body listingsResponse
	decodeJSONBody(t, rec, &body)
	if len(body.Listings) != 2 || body.Listings[0].ID != "listing-2" {
		t.Errorf("listings = %+v, want the service order", body.Listings)
	}
}

func TestGetListing_NotFound(t *testing.T) {
	service := &mockListingService{
		findFunc: func(ctx context.Context, id string) (*model.Listing, error) {
			return nil, model.NewListingNotFoundError()
		},
	}
	router := newListingRouter(NewListingHandler(service, nil))

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/listings/listing-missing", nil))

	assertErrorResponse(t, rec, http.StatusNotFound, "Listing not found")
}

func TestCreateListing_Success(t *testing.T) {
	metrics := &countingMetrics{}
	service := &mockListingService{
		createFunc: func(ctx context.Context, sellerID string, in listing.CreateInput) (*model.Listing, error) {
			if sellerID != "user-maya" {
				t.Errorf("sellerID = %q, want user-maya", sellerID)
			}
			if in.Title != "Mini fridge" {
				t.Errorf("Title = %q, want Mini fridge", in.Title)
			}
			return &model.Listing{ID: "listing-new", Title: in.Title}, nil
		},
	}
	router := newListingRouter(NewListingHandler(service, metrics))

	req := asUser(newJSONRequest(t, http.MethodPost, "/api/listings", map[string]any{
		"title":       "Mini fridge",
		"description": "Works great",
		"category":    "Kitchen",
		"condition":   "Good",
		"location":    "North Hall",
	}), "user-maya")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusCreated {
		t.Fatalf("status = %d, want 201", rec.Code)
	}
	var body listingResponse
	decodeJSONBody(t, rec, &body)
	if body.Listing.ID != "listing-new" {
		t.Errorf("listing.id = %q, want listing-new", body.Listing.ID)
	}
	if metrics.listingsCreated != 1 {
		t.Errorf("listingsCreated = %d, want 1", metrics.listingsCreated)
	}
}

func TestCreateListing_MissingFields(t *testing.T) {
	service := &mockListingService{
		createFunc: func(ctx context.Context, sellerID string, in listing.CreateInput) (*model.Listing, error) {
			t.Fatal("service should not be called")
			return nil, nil
		},
	}
	router := newListingRouter(NewListingHandler(service, nil))

	req := asUser(newJSONRequest(t, http.MethodPost, "/api/listings", map[string]any{
		"title": "Mini fridge",
	}), "user-maya")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assertErrorResponse(t, rec, http.StatusBadRequest,
		"title, description, category, condition, and location are required")
}

func TestUpdateListing_ClaimTriState(t *testing.T) {
	var gotPatch listing.UpdatePatch
	service := &mockListingService{
		updateFunc: func(ctx context.Context, id, userID string, patch listing.UpdatePatch) (*model.Listing, error) {
			gotPatch = patch
			return &model.Listing{ID: id}, nil
		},
	}
	router := newListingRouter(NewListingHandler(service, nil))

	send := func(t *testing.T, rawBody string) {
		t.Helper()
		req := httptest.NewRequest(http.MethodPatch, "/api/listings/listing-1", strings.NewReader(rawBody))
		req.Header.Set("Content-Type", "application/json")
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, asUser(req, "user-maya"))
		if rec.Code != http.StatusOK {
			t.Fatalf("status = %d, want 200", rec.Code)
		}
	}

	t.Run("absent", func(t *testing.T) {
		send(t, `{"title":"New title"}`)
		if gotPatch.ClaimedByID.Set {
			t.Error("ClaimedByID should be unset when the field is omitted")
		}
	})

	t.Run("explicit null", func(t *testing.T) {
		send(t, `{"claimedById":null}`)
		if !gotPatch.ClaimedByID.Set || gotPatch.ClaimedByID.Value != nil {
			t.Errorf("ClaimedByID = %+v, want set with nil value", gotPatch.ClaimedByID)
		}
	})

	t.Run("value", func(t *testing.T) {
		send(t, `{"claimedById":"user-jordan"}`)
		if !gotPatch.ClaimedByID.Set || gotPatch.ClaimedByID.Value == nil || *gotPatch.ClaimedByID.Value != "user-jordan" {
			t.Errorf("ClaimedByID = %+v, want set with value", gotPatch.ClaimedByID)
		}
	})
}

func TestUpdateListing_Forbidden(t *testing.T) {
	service := &mockListingService{
		updateFunc: func(ctx context.Context, id, userID string, patch listing.UpdatePatch) (*model.Listing, error) {
			return nil, model.NewListingEditForbiddenError()
		},
	}
	router := newListingRouter(NewListingHandler(service, nil))

	req := asUser(newJSONRequest(t, http.MethodPatch, "/api/listings/listing-1", map[string]any{
		"title": "Stolen title",
	}), "user-sam")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assertErrorResponse(t, rec, http.StatusForbidden, "Not allowed to edit this listing")
}

func TestDeleteListing_Success(t *testing.T) {
	var deletedID string
	service := &mockListingService{
		deleteFunc: func(ctx context.Context, id, userID string) error {
			deletedID = id
			return nil
		},
	}
	router := newListingRouter(NewListingHandler(service, nil))

	req := asUser(httptest.NewRequest(http.MethodDelete, "/api/listings/listing-1", nil), "user-maya")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	var body okResponse
	decodeJSONBody(t, rec, &body)
	if !body.OK {
		t.Error("response should be {ok:true}")
	}
	if deletedID != "listing-1" {
		t.Errorf("deletedID = %q, want listing-1", deletedID)
	}
}

func TestCreateListing_WithoutUserID(t *testing.T) {
	router := newListingRouter(NewListingHandler(&mockListingService{}, nil))

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, newJSONRequest(t, http.MethodPost, "/api/listings", map[string]any{"title": "x"}))

	assertErrorResponse(t, rec, http.StatusUnauthorized, "Missing session token")
}
