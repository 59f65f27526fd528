package user

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"github.com/hitoshi/givebox/internal/listing"
	"github.com/hitoshi/givebox/internal/model"
	"github.com/hitoshi/givebox/internal/repository"
)

// passthroughSanitizer はテスト用のサニタイザー。入力をそのまま返す。
type passthroughSanitizer struct{}

func (passthroughSanitizer) Sanitize(raw string) string { return raw }

func newTestService(t *testing.T) (*Service, *repository.FileStore) {
	t.Helper()
	store := repository.NewFileStore(filepath.Join(t.TempDir(), "demo-db.json"))
	users := repository.NewFileUserRepo(store)
	listings := listing.NewService(repository.NewFileListingRepo(store), users, passthroughSanitizer{})
	return NewService(users, listings, passthroughSanitizer{}), store
}

func findSeedUser(t *testing.T, store *repository.FileStore, id string) *model.UserRecord {
	t.Helper()
	rec, err := store.FindUserByID(context.Background(), id)
	if err != nil || rec == nil {
		t.Fatalf("failed to load seed user %s: %v", id, err)
	}
	return rec
}

func TestProfile_OwnListings(t *testing.T) {
	svc, _ := newTestService(t)

	profile, err := svc.Profile(context.Background(), "user-maya", nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if profile.User.ID != "user-maya" {
		t.Errorf("User.ID = %q, want user-maya", profile.User.ID)
	}
	// mayaの出品はfridgeとlamp
	if len(profile.Listings) != 2 {
		t.Errorf("len(Listings) = %d, want 2", len(profile.Listings))
	}
	// 未認証の閲覧では受け取り済み一覧は空
	if len(profile.ClaimedListings) != 0 {
		t.Errorf("len(ClaimedListings) = %d, want 0 for anonymous viewer", len(profile.ClaimedListings))
	}
}

func TestProfile_MeResolvesViewer(t *testing.T) {
	svc, store := newTestService(t)
	viewer := findSeedUser(t, store, "user-jordan")

	profile, err := svc.Profile(context.Background(), "me", viewer)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if profile.User.ID != "user-jordan" {
		t.Errorf("User.ID = %q, want the viewer", profile.User.ID)
	}
}

func TestProfile_MeWithoutViewerIsNotFound(t *testing.T) {
	svc, _ := newTestService(t)

	_, err := svc.Profile(context.Background(), "me", nil)

	var apiErr *model.APIError
	if !errors.As(err, &apiErr) {
		t.Fatalf("err = %v, want APIError", err)
	}
	if apiErr.Message != "User not found" {
		t.Errorf("Message = %q, want %q", apiErr.Message, "User not found")
	}
}

func TestProfile_ClaimedListingsOnlyForSelf(t *testing.T) {
	svc, store := newTestService(t)
	ctx := context.Background()

	// jordanはシードでlampの受け取り手
	jordan := findSeedUser(t, store, "user-jordan")
	maya := findSeedUser(t, store, "user-maya")

	own, err := svc.Profile(ctx, "user-jordan", jordan)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(own.ClaimedListings) != 1 || own.ClaimedListings[0].ID != "listing-desk-lamp" {
		t.Errorf("ClaimedListings = %+v, want the claimed lamp", own.ClaimedListings)
	}

	// 他人が見た場合は受け取り済み一覧は出ない
	other, err := svc.Profile(ctx, "user-jordan", maya)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(other.ClaimedListings) != 0 {
		t.Errorf("len(ClaimedListings) = %d, want 0 for another viewer", len(other.ClaimedListings))
	}
}

func TestProfile_UnknownUser(t *testing.T) {
	svc, _ := newTestService(t)

	_, err := svc.Profile(context.Background(), "user-missing", nil)

	var apiErr *model.APIError
	if !errors.As(err, &apiErr) {
		t.Fatalf("err = %v, want APIError", err)
	}
	if apiErr.Kind != model.ErrKindNotFound {
		t.Errorf("Kind = %q, want not_found", apiErr.Kind)
	}
}

func TestUpdateProfile_PatchesFields(t *testing.T) {
	svc, _ := newTestService(t)

	name := "Maya P."
	bio := "Almost done!"
	tags := []model.Tag{{ID: "tag-1", Label: "South Hall", Type: model.TagTypeDorm}}
	updated, err := svc.UpdateProfile(context.Background(), "user-maya", UpdatePatch{
		Name: &name,
		Bio:  &bio,
		Tags: &tags,
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if updated.Name != "Maya P." || updated.Bio != "Almost done!" {
		t.Errorf("updated = %+v, want patched fields", updated)
	}
	if len(updated.Tags) != 1 || updated.Tags[0].Label != "South Hall" {
		t.Errorf("Tags = %+v, want the patched tags", updated.Tags)
	}
	// 未指定フィールドは保持される
	if updated.Email != "maya@university.edu" {
		t.Errorf("Email = %q, should be untouched", updated.Email)
	}
}

func TestUpdateProfile_UnknownUser(t *testing.T) {
	svc, _ := newTestService(t)

	name := "Ghost"
	_, err := svc.UpdateProfile(context.Background(), "user-missing", UpdatePatch{Name: &name})

	var apiErr *model.APIError
	if !errors.As(err, &apiErr) {
		t.Fatalf("err = %v, want APIError", err)
	}
	if apiErr.Message != "User not found" {
		t.Errorf("Message = %q, want %q", apiErr.Message, "User not found")
	}
}
