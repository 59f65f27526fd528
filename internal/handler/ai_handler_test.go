package handler

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/hitoshi/givebox/internal/ai"
	"github.com/hitoshi/givebox/internal/model"
)

// mockGenerator はテスト用のDescriptionGenerator実装。
type mockGenerator struct {
	generateFunc func(ctx context.Context, in ai.Input) (string, error)
}

func (m *mockGenerator) Generate(ctx context.Context, in ai.Input) (string, error) {
	return m.generateFunc(ctx, in)
}

func TestGenerateDescription_Success(t *testing.T) {
	metrics := &countingMetrics{}
	generator := &mockGenerator{
		generateFunc: func(ctx context.Context, in ai.Input) (string, error) {
			if in.Title != "Mini fridge" || in.Category != "Kitchen" || in.Condition != "Good" {
				t.Errorf("input = %+v, want the request fields", in)
			}
			return "A well-loved dorm fridge that still runs cold.", nil
		},
	}
	h := NewAIHandler(generator, metrics)

	req := asUser(newJSONRequest(t, http.MethodPost, "/api/ai/description", map[string]string{
		"title":     "Mini fridge",
		"category":  "Kitchen",
		"condition": "Good",
	}), "user-maya")
	rec := httptest.NewRecorder()
	h.GenerateDescription(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	var body descriptionResponse
	decodeJSONBody(t, rec, &body)
	if body.Description == "" {
		t.Error("description should not be empty")
	}
	if len(metrics.aiOutcomes) != 1 || metrics.aiOutcomes[0] != "success" {
		t.Errorf("aiOutcomes = %v, want [success]", metrics.aiOutcomes)
	}
}

func TestGenerateDescription_MissingAPIKey(t *testing.T) {
	h := NewAIHandler(nil, nil)

	req := asUser(newJSONRequest(t, http.MethodPost, "/api/ai/description", map[string]string{
		"title": "Mini fridge",
	}), "user-maya")
	rec := httptest.NewRecorder()
	h.GenerateDescription(rec, req)

	assertErrorResponse(t, rec, http.StatusInternalServerError, "Missing Gemini API key on server")
}

func TestGenerateDescription_MissingTitle(t *testing.T) {
	generator := &mockGenerator{
		generateFunc: func(ctx context.Context, in ai.Input) (string, error) {
			t.Fatal("generator should not be called")
			return "", nil
		},
	}
	h := NewAIHandler(generator, nil)

	req := asUser(newJSONRequest(t, http.MethodPost, "/api/ai/description", map[string]string{
		"title": "   ",
	}), "user-maya")
	rec := httptest.NewRecorder()
	h.GenerateDescription(rec, req)

	assertErrorResponse(t, rec, http.StatusBadRequest, "title is required")
}

func TestGenerateDescription_FailureRecordsMetric(t *testing.T) {
	metrics := &countingMetrics{}
	generator := &mockGenerator{
		generateFunc: func(ctx context.Context, in ai.Input) (string, error) {
			return "", model.NewValidationError("Gemini returned an empty description")
		},
	}
	h := NewAIHandler(generator, metrics)

	req := asUser(newJSONRequest(t, http.MethodPost, "/api/ai/description", map[string]string{
		"title": "Mini fridge",
	}), "user-maya")
	rec := httptest.NewRecorder()
	h.GenerateDescription(rec, req)

	assertErrorResponse(t, rec, http.StatusBadRequest, "Gemini returned an empty description")
	if len(metrics.aiOutcomes) != 1 || metrics.aiOutcomes[0] != "failure" {
		t.Errorf("aiOutcomes = %v, want [failure]", metrics.aiOutcomes)
	}
}

func TestGenerateDescription_WithoutUserID(t *testing.T) {
	h := NewAIHandler(&mockGenerator{}, nil)

	rec := httptest.NewRecorder()
	h.GenerateDescription(rec, newJSONRequest(t, http.MethodPost, "/api/ai/description", map[string]string{
		"title": "Mini fridge",
	}))

	assertErrorResponse(t, rec, http.StatusUnauthorized, "Missing session token")
}
