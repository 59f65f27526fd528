package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/hitoshi/givebox/internal/auth"
	"github.com/hitoshi/givebox/internal/listing"
	"github.com/hitoshi/givebox/internal/middleware"
	"github.com/hitoshi/givebox/internal/model"
	"github.com/hitoshi/givebox/internal/user"
)

// mockAuthService はテスト用のAuthServiceInterface実装。
type mockAuthService struct {
	signupFunc   func(ctx context.Context, in auth.SignupInput) (*model.User, string, error)
	loginFunc    func(ctx context.Context, email, password string) (*model.User, string, error)
	userByIDFunc func(ctx context.Context, id string) (*model.UserRecord, error)
}

func (m *mockAuthService) Signup(ctx context.Context, in auth.SignupInput) (*model.User, string, error) {
	return m.signupFunc(ctx, in)
}

func (m *mockAuthService) Login(ctx context.Context, email, password string) (*model.User, string, error) {
	return m.loginFunc(ctx, email, password)
}

func (m *mockAuthService) UserByID(ctx context.Context, id string) (*model.UserRecord, error) {
	return m.userByIDFunc(ctx, id)
}

// mockListingService はテスト用のListingServiceInterface実装。
type mockListingService struct {
	listFunc   func(ctx context.Context) ([]model.Listing, error)
	findFunc   func(ctx context.Context, id string) (*model.Listing, error)
	createFunc func(ctx context.Context, sellerID string, in listing.CreateInput) (*model.Listing, error)
	updateFunc func(ctx context.Context, id, userID string, patch listing.UpdatePatch) (*model.Listing, error)
	deleteFunc func(ctx context.Context, id, userID string) error
}

func (m *mockListingService) List(ctx context.Context) ([]model.Listing, error) {
	return m.listFunc(ctx)
}

func (m *mockListingService) Find(ctx context.Context, id string) (*model.Listing, error) {
	return m.findFunc(ctx, id)
}

func (m *mockListingService) Create(ctx context.Context, sellerID string, in listing.CreateInput) (*model.Listing, error) {
	return m.createFunc(ctx, sellerID, in)
}

func (m *mockListingService) Update(ctx context.Context, id, userID string, patch listing.UpdatePatch) (*model.Listing, error) {
	return m.updateFunc(ctx, id, userID, patch)
}

func (m *mockListingService) Delete(ctx context.Context, id, userID string) error {
	return m.deleteFunc(ctx, id, userID)
}

// mockConversationService はテスト用のConversationServiceInterface実装。
type mockConversationService struct {
	listForUserFunc      func(ctx context.Context, userID string) ([]model.Conversation, error)
	createForListingFunc func(ctx context.Context, listingID, requesterID string) (*model.Conversation, error)
	appendMessageFunc    func(ctx context.Context, conversationID, senderID, body string, attachments []string) (*model.Message, *model.Conversation, error)
	markReadFunc         func(ctx context.Context, conversationID, userID string) (*model.Conversation, error)
}

func (m *mockConversationService) ListForUser(ctx context.Context, userID string) ([]model.Conversation, error) {
	return m.listForUserFunc(ctx, userID)
}

func (m *mockConversationService) CreateForListing(ctx context.Context, listingID, requesterID string) (*model.Conversation, error) {
	return m.createForListingFunc(ctx, listingID, requesterID)
}

func (m *mockConversationService) AppendMessage(ctx context.Context, conversationID, senderID, body string, attachments []string) (*model.Message, *model.Conversation, error) {
	return m.appendMessageFunc(ctx, conversationID, senderID, body, attachments)
}

func (m *mockConversationService) MarkRead(ctx context.Context, conversationID, userID string) (*model.Conversation, error) {
	return m.markReadFunc(ctx, conversationID, userID)
}

// mockUserService はテスト用のUserServiceInterface実装。
type mockUserService struct {
	profileFunc       func(ctx context.Context, requestedID string, viewer *model.UserRecord) (*user.Profile, error)
	updateProfileFunc func(ctx context.Context, userID string, patch user.UpdatePatch) (*model.User, error)
}

func (m *mockUserService) Profile(ctx context.Context, requestedID string, viewer *model.UserRecord) (*user.Profile, error) {
	return m.profileFunc(ctx, requestedID, viewer)
}

func (m *mockUserService) UpdateProfile(ctx context.Context, userID string, patch user.UpdatePatch) (*model.User, error) {
	return m.updateProfileFunc(ctx, userID, patch)
}

// mockSessionFinder はテスト用のmiddleware.SessionFinder実装。
type mockSessionFinder struct {
	findUserByTokenFunc func(ctx context.Context, token string) (*model.UserRecord, error)
}

func (m *mockSessionFinder) FindUserByToken(ctx context.Context, token string) (*model.UserRecord, error) {
	return m.findUserByTokenFunc(ctx, token)
}

// countingMetrics はメトリクス記録の呼び出しを数える。
type countingMetrics struct {
	listingsCreated int
	messagesSent    int
	aiOutcomes      []string
}

func (c *countingMetrics) RecordListingCreated()             { c.listingsCreated++ }
func (c *countingMetrics) RecordMessageSent()                { c.messagesSent++ }
func (c *countingMetrics) RecordAIGeneration(outcome string) { c.aiOutcomes = append(c.aiOutcomes, outcome) }

// newJSONRequest はJSONボディ付きのリクエストを生成する。
func newJSONRequest(t *testing.T, method, target string, body any) *http.Request {
	t.Helper()
	var reader io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("failed to marshal request body: %v", err)
		}
		reader = bytes.NewReader(b)
	}
	req := httptest.NewRequest(method, target, reader)
	req.Header.Set("Content-Type", "application/json")
	return req
}

// asUser はリクエストコンテキストに認証済みユーザーIDを注入する。
func asUser(req *http.Request, userID string) *http.Request {
	return req.WithContext(middleware.ContextWithUserID(req.Context(), userID))
}

func decodeJSONBody(t *testing.T, rec *httptest.ResponseRecorder, out any) {
	t.Helper()
	if err := json.NewDecoder(rec.Body).Decode(out); err != nil {
		t.Fatalf("failed to decode response body: %v", err)
	}
}

func assertErrorResponse(t *testing.T, rec *httptest.ResponseRecorder, status int, message string) {
	t.Helper()
	if rec.Code != status {
		t.Errorf("status = %d, want %d", rec.Code, status)
	}
	var body middleware.ErrorResponseBody
	decodeJSONBody(t, rec, &body)
	if body.Error != message {
		t.Errorf("error = %q, want %q", body.Error, message)
	}
}
