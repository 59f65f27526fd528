package handler

import (
	"context"
	"net/http"
	"strings"

	"github.com/hitoshi/givebox/internal/ai"
	"github.com/hitoshi/givebox/internal/middleware"
	"github.com/hitoshi/givebox/internal/model"
)

// DescriptionGenerator はAI説明文生成に必要なインターフェース。
type DescriptionGenerator interface {
	Generate(ctx context.Context, in ai.Input) (string, error)
}

// AIMetrics はAIハンドラーが記録するメトリクス。
type AIMetrics interface {
	RecordAIGeneration(outcome string)
}

// AIHandler はAI説明文生成のHTTPハンドラー。
type AIHandler struct {
	// generator はAPIキー未設定の場合nil。
	generator DescriptionGenerator
	metrics   AIMetrics // nilの場合は記録しない
}

// NewAIHandler はAIHandlerを生成する。
func NewAIHandler(generator DescriptionGenerator, metrics AIMetrics) *AIHandler {
	return &AIHandler{
		generator: generator,
		metrics:   metrics,
	}
}

// generateDescriptionRequest は説明文生成リクエストのボディ。
type generateDescriptionRequest struct {
	Title     string `json:"title"`
	Category  string `json:"category"`
	Condition string `json:"condition"`
}

// descriptionResponse は説明文生成成功時のレスポンス。
type descriptionResponse struct {
	Description string `json:"description"`
}

// GenerateDescription は出品情報から説明文を生成する。
// POST /api/ai/description
func (h *AIHandler) GenerateDescription(w http.ResponseWriter, r *http.Request) {
	if _, ok := requireUserID(w, r); !ok {
		return
	}

	if h.generator == nil {
		middleware.WriteErrorResponse(w, http.StatusInternalServerError, "Missing Gemini API key on server")
		return
	}

	var req generateDescriptionRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	if strings.TrimSpace(req.Title) == "" {
		middleware.WriteAPIError(w, model.NewValidationError("title is required"))
		return
	}

	description, err := h.generator.Generate(r.Context(), ai.Input{
		Title:     req.Title,
		Category:  req.Category,
		Condition: req.Condition,
	})
	if err != nil {
		if h.metrics != nil {
			h.metrics.RecordAIGeneration("failure")
		}
		middleware.WriteError(w, err)
		return
	}

	if h.metrics != nil {
		h.metrics.RecordAIGeneration("success")
	}

	writeJSON(w, http.StatusOK, descriptionResponse{Description: description})
}
