package handler

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/hitoshi/givebox/internal/listing"
	"github.com/hitoshi/givebox/internal/middleware"
	"github.com/hitoshi/givebox/internal/model"
)

// ListingServiceInterface は出品ハンドラーが必要とするサービスインターフェース。
type ListingServiceInterface interface {
	// List は全出品を新しい順で展開して返す。
	List(ctx context.Context) ([]model.Listing, error)
	// Find は指定IDの出品を展開して返す。
	Find(ctx context.Context, id string) (*model.Listing, error)
	// Create は出品を作成する。
	Create(ctx context.Context, sellerID string, in listing.CreateInput) (*model.Listing, error)
	// Update は出品を部分更新する。出品者本人のみ実行できる。
	Update(ctx context.Context, id, userID string, patch listing.UpdatePatch) (*model.Listing, error)
	// Delete は出品を物理削除する。出品者本人のみ実行できる。
	Delete(ctx context.Context, id, userID string) error
}

// ListingMetrics は出品ハンドラーが記録するメトリクス。
type ListingMetrics interface {
	RecordListingCreated()
}

// ListingHandler は出品管理のHTTPハンドラー。
type ListingHandler struct {
	service ListingServiceInterface
	metrics ListingMetrics // nilの場合は記録しない
}

// NewListingHandler はListingHandlerを生成する。
func NewListingHandler(service ListingServiceInterface, metrics ListingMetrics) *ListingHandler {
	return &ListingHandler{
		service: service,
		metrics: metrics,
	}
}

// createListingRequest は出品作成リクエストのボディ。
type createListingRequest struct {
	Title       string          `json:"title"`
	Description string          `json:"description"`
	Images      []string        `json:"images"`
	Category    model.Category  `json:"category"`
	Condition   model.Condition `json:"condition"`
	Tags        []model.Tag     `json:"tags"`
	Location    string          `json:"location"`
	ExpiresAt   *time.Time      `json:"expiresAt"`
}

// updateListingRequest は出品部分更新リクエストのボディ。
// claimedByIdのみ「未指定」「null」「値」の3値を区別する。
type updateListingRequest struct {
	Title       *string               `json:"title"`
	Description *string               `json:"description"`
	Images      *[]string             `json:"images"`
	Category    *model.Category       `json:"category"`
	Condition   *model.Condition      `json:"condition"`
	Tags        *[]model.Tag          `json:"tags"`
	Status      *model.ListingStatus  `json:"status"`
	Location    *string               `json:"location"`
	ClaimedByID model.NullableString  `json:"claimedById"`
	ExpiresAt   *time.Time            `json:"expiresAt"`
}

// listingResponse は出品1件のレスポンス。
type listingResponse struct {
	Listing model.Listing `json:"listing"`
}

// listingsResponse は出品一覧のレスポンス。
type listingsResponse struct {
	Listings []model.Listing `json:"listings"`
}

// okResponse は削除成功時のレスポンス。
type okResponse struct {
	OK bool `json:"ok"`
}

// ListListings は全出品の一覧を返す。認証不要。
// GET /api/listings
func (h *ListingHandler) ListListings(w http.ResponseWriter, r *http.Request) {
	listings, err := h.service.List(r.Context())
	if err != nil {
		middleware.WriteError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, listingsResponse{Listings: listings})
}

// GetListing は出品詳細を返す。認証不要。
// GET /api/listings/{id}
func (h *ListingHandler) GetListing(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	found, err := h.service.Find(r.Context(), id)
	if err != nil {
		middleware.WriteError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, listingResponse{Listing: *found})
}

// CreateListing は出品を作成する。
// POST /api/listings
func (h *ListingHandler) CreateListing(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUserID(w, r)
	if !ok {
		return
	}

	var req createListingRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	if strings.TrimSpace(req.Title) == "" ||
		strings.TrimSpace(req.Description) == "" ||
		req.Category == "" ||
		req.Condition == "" ||
		strings.TrimSpace(req.Location) == "" {
		middleware.WriteAPIError(w, model.NewValidationError("title, description, category, condition, and location are required"))
		return
	}

	created, err := h.service.Create(r.Context(), userID, listing.CreateInput{
		Title:       req.Title,
		Description: req.Description,
		Images:      req.Images,
		Category:    req.Category,
		Condition:   req.Condition,
		Tags:        req.Tags,
		Location:    req.Location,
		ExpiresAt:   req.ExpiresAt,
	})
	if err != nil {
		middleware.WriteError(w, err)
		return
	}

	if h.metrics != nil {
		h.metrics.RecordListingCreated()
	}

	writeJSON(w, http.StatusCreated, listingResponse{Listing: *created})
}

// UpdateListing は出品を部分更新する。
// PATCH /api/listings/{id}
func (h *ListingHandler) UpdateListing(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUserID(w, r)
	if !ok {
		return
	}

	id := chi.URLParam(r, "id")

	var req updateListingRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	updated, err := h.service.Update(r.Context(), id, userID, listing.UpdatePatch{
		Title:       req.Title,
		Description: req.Description,
		Images:      req.Images,
		Category:    req.Category,
		Condition:   req.Condition,
		Tags:        req.Tags,
		Status:      req.Status,
		Location:    req.Location,
		ClaimedByID: req.ClaimedByID,
		ExpiresAt:   req.ExpiresAt,
	})
	if err != nil {
		middleware.WriteError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, listingResponse{Listing: *updated})
}

// DeleteListing は出品を削除する。
// DELETE /api/listings/{id}
func (h *ListingHandler) DeleteListing(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUserID(w, r)
	if !ok {
		return
	}

	id := chi.URLParam(r, "id")

	if err := h.service.Delete(r.Context(), id, userID); err != nil {
		middleware.WriteError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, okResponse{OK: true})
}
