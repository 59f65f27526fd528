package listing

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/hitoshi/givebox/internal/model"
	"github.com/hitoshi/givebox/internal/repository"
)

// passthroughSanitizer はテスト用のサニタイザー。入力をそのまま返す。
type passthroughSanitizer struct{}

func (passthroughSanitizer) Sanitize(raw string) string { return raw }

func newTestService(t *testing.T) *Service {
	t.Helper()
	store := repository.NewFileStore(filepath.Join(t.TempDir(), "demo-db.json"))
	return NewService(
		repository.NewFileListingRepo(store),
		repository.NewFileUserRepo(store),
		passthroughSanitizer{},
	)
}

func assertAPIError(t *testing.T, err error, kind model.ErrorKind, message string) {
	t.Helper()
	var apiErr *model.APIError
	if !errors.As(err, &apiErr) {
		t.Fatalf("err = %v, want APIError", err)
	}
	if apiErr.Kind != kind {
		t.Errorf("Kind = %q, want %q", apiErr.Kind, kind)
	}
	if apiErr.Message != message {
		t.Errorf("Message = %q, want %q", apiErr.Message, message)
	}
}

func TestList_NewestFirstInflated(t *testing.T) {
	svc := newTestService(t)

	listings, err := svc.List(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(listings) != 3 {
		t.Fatalf("len(listings) = %d, want 3 seed listings", len(listings))
	}
	if listings[0].ID != "listing-mini-fridge" {
		t.Errorf("listings[0].ID = %q, want the newest seed listing", listings[0].ID)
	}
	if listings[0].Seller.ID != "user-maya" {
		t.Errorf("Seller.ID = %q, want inflated seller", listings[0].Seller.ID)
	}

	// Claimed出品は受け取り手も展開される
	for _, l := range listings {
		if l.ID == "listing-desk-lamp" {
			if l.ClaimedBy == nil || l.ClaimedBy.ID != "user-jordan" {
				t.Errorf("ClaimedBy = %+v, want user-jordan", l.ClaimedBy)
			}
		}
	}
}

func TestFind_NotFound(t *testing.T) {
	svc := newTestService(t)

	_, err := svc.Find(context.Background(), "listing-missing")
	assertAPIError(t, err, model.ErrKindNotFound, "Listing not found")
}

func TestCreate_AppliesDefaults(t *testing.T) {
	svc := newTestService(t)
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	svc.now = func() time.Time { return now }

	created, err := svc.Create(context.Background(), "user-maya", CreateInput{
		Title:       "Bean bag chair",
		Description: "Comfy, no rips.",
		Category:    model.CategoryFurniture,
		Condition:   model.ConditionGood,
		Location:    "North Hall",
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if created.Status != model.ListingStatusAvailable {
		t.Errorf("Status = %q, want Available", created.Status)
	}
	if created.ClaimedBy != nil {
		t.Error("ClaimedBy should be nil on a new listing")
	}
	if !created.CreatedAt.Equal(now) {
		t.Errorf("CreatedAt = %v, want %v", created.CreatedAt, now)
	}
	if !created.ExpiresAt.Equal(now.Add(30 * 24 * time.Hour)) {
		t.Errorf("ExpiresAt = %v, want 30 days after creation", created.ExpiresAt)
	}
	if created.Images == nil || created.Tags == nil {
		t.Error("Images and Tags should be non-nil empty slices")
	}

	// 一覧の先頭に入ること
	listings, err := svc.List(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if listings[0].ID != created.ID {
		t.Errorf("listings[0].ID = %q, want the new listing first", listings[0].ID)
	}
}

func TestCreate_UnknownSeller(t *testing.T) {
	svc := newTestService(t)

	_, err := svc.Create(context.Background(), "user-missing", CreateInput{
		Title:       "Ghost listing",
		Description: "x",
		Category:    model.CategoryOther,
		Condition:   model.ConditionGood,
		Location:    "Nowhere",
	})
	assertAPIError(t, err, model.ErrKindNotFound, "Seller not found")
}

func TestUpdate_OwnershipRequired(t *testing.T) {
	svc := newTestService(t)

	title := "Hijacked"
	_, err := svc.Update(context.Background(), "listing-mini-fridge", "user-jordan", UpdatePatch{Title: &title})
	assertAPIError(t, err, model.ErrKindForbidden, "Not allowed to edit this listing")
}

func TestUpdate_NotFound(t *testing.T) {
	svc := newTestService(t)

	title := "x"
	_, err := svc.Update(context.Background(), "listing-missing", "user-maya", UpdatePatch{Title: &title})
	assertAPIError(t, err, model.ErrKindNotFound, "Listing not found")
}

func TestUpdate_ShallowMerge(t *testing.T) {
	svc := newTestService(t)

	title := "Dorm mini fridge (updated)"
	updated, err := svc.Update(context.Background(), "listing-mini-fridge", "user-maya", UpdatePatch{Title: &title})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if updated.Title != title {
		t.Errorf("Title = %q, want the patched title", updated.Title)
	}
	// 未指定フィールドは保持される
	if updated.Location != "North Hall" {
		t.Errorf("Location = %q, should be untouched", updated.Location)
	}
}

func TestUpdate_ClaimTriState(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	t.Run("set claimer with claimed status", func(t *testing.T) {
		claimer := "user-jordan"
		status := model.ListingStatusClaimed
		updated, err := svc.Update(ctx, "listing-mini-fridge", "user-maya", UpdatePatch{
			Status:      &status,
			ClaimedByID: model.NullableString{Set: true, Value: &claimer},
		})
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if updated.ClaimedBy == nil || updated.ClaimedBy.ID != "user-jordan" {
			t.Errorf("ClaimedBy = %+v, want user-jordan", updated.ClaimedBy)
		}
	})

	t.Run("absent field keeps claimer", func(t *testing.T) {
		title := "still claimed"
		updated, err := svc.Update(ctx, "listing-mini-fridge", "user-maya", UpdatePatch{Title: &title})
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if updated.ClaimedBy == nil {
			t.Error("ClaimedBy should survive a patch that does not mention it")
		}
	})

	t.Run("available status forces claimer clear", func(t *testing.T) {
		status := model.ListingStatusAvailable
		updated, err := svc.Update(ctx, "listing-mini-fridge", "user-maya", UpdatePatch{Status: &status})
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if updated.ClaimedBy != nil {
			t.Errorf("ClaimedBy = %+v, want nil when status is Available", updated.ClaimedBy)
		}
	})

	t.Run("explicit null clears claimer", func(t *testing.T) {
		// まずClaimed+claimerへ戻す
		claimer := "user-jordan"
		status := model.ListingStatusClaimed
		if _, err := svc.Update(ctx, "listing-mini-fridge", "user-maya", UpdatePatch{
			Status:      &status,
			ClaimedByID: model.NullableString{Set: true, Value: &claimer},
		}); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		updated, err := svc.Update(ctx, "listing-mini-fridge", "user-maya", UpdatePatch{
			ClaimedByID: model.NullableString{Set: true, Value: nil},
		})
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if updated.ClaimedBy != nil {
			t.Errorf("ClaimedBy = %+v, want nil after explicit null", updated.ClaimedBy)
		}
	})
}

func TestDelete_OwnershipRequired(t *testing.T) {
	svc := newTestService(t)

	err := svc.Delete(context.Background(), "listing-mini-fridge", "user-jordan")
	assertAPIError(t, err, model.ErrKindForbidden, "Not allowed to delete this listing")
}

func TestDelete_RemovesListing(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	if err := svc.Delete(ctx, "listing-mini-fridge", "user-maya"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	_, err := svc.Find(ctx, "listing-mini-fridge")
	assertAPIError(t, err, model.ErrKindNotFound, "Listing not found")
}

func TestDelete_NotFound(t *testing.T) {
	svc := newTestService(t)

	err := svc.Delete(context.Background(), "listing-missing", "user-maya")
	assertAPIError(t, err, model.ErrKindNotFound, "Listing not found")
}
