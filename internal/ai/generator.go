// Package ai はGemini APIを使った出品説明文の自動生成を提供する。
package ai

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"regexp"
	"strings"

	"github.com/hitoshi/givebox/internal/model"
)

const (
	defaultBaseURL = "https://generativelanguage.googleapis.com/v1beta"

	// minDescriptionLength を下回る説明文は低品質として再生成する。
	minDescriptionLength = 220
	// maxDescriptionLength を超える説明文は切り詰める。
	maxDescriptionLength = 500
)

// fallbackModels は設定されたモデルが使えない場合に試す既定のモデル候補。
var fallbackModels = []string{
	"gemini-2.0-flash",
	"gemini-2.0-flash-lite",
	"gemini-1.5-flash",
}

var whitespaceRE = regexp.MustCompile(`\s+`)

// Generator はGemini APIへのプロキシとして説明文を生成する。
type Generator struct {
	httpClient *http.Client
	apiKey     string
	model      string
	baseURL    string
}

// NewGenerator はGeneratorを生成する。
// modelには優先して使うモデル名を指定する。空の場合は既定の候補のみを試す。
func NewGenerator(httpClient *http.Client, apiKey, model string) *Generator {
	return &Generator{
		httpClient: httpClient,
		apiKey:     apiKey,
		model:      strings.TrimSpace(model),
		baseURL:    defaultBaseURL,
	}
}

// SetBaseURL はAPIのベースURLを差し替える。テスト用。
func (g *Generator) SetBaseURL(baseURL string) {
	g.baseURL = strings.TrimRight(baseURL, "/")
}

// Input は説明文生成の入力。Title以外は任意。
type Input struct {
	Title     string
	Category  string
	Condition string
}

// Generate は出品情報から説明文を生成する。
//
// モデル候補（設定値 → 既定候補 → APIから発見したモデル）を順に試し、
// 低品質な出力（短すぎる、タイトルの繰り返し）はプロンプトを強めて
// もう1周やり直す。すべて失敗した場合は最後のエラーを返す。
func (g *Generator) Generate(ctx context.Context, in Input) (string, error) {
	title := strings.TrimSpace(in.Title)

	basePrompt := g.buildPrompt(title, in.Category, in.Condition)
	promptAttempts := []string{
		basePrompt,
		basePrompt + "\n\nImportant: The previous output was too short or repeated the title. Rewrite with specific condition details, what is included, and a clear pickup note.",
	}

	models := g.candidateModels(ctx)

	lastError := "Gemini request failed"
	for _, prompt := range promptAttempts {
		for _, m := range models {
			generated, errMessage := g.generateWithModel(ctx, m, prompt)
			if errMessage != "" {
				lastError = errMessage
				continue
			}
			if isLowQualityDescription(generated, title) {
				lastError = "Generated description was too short or too similar to the title"
				continue
			}

			bounded := normalizeWhitespace(generated)
			if runes := []rune(bounded); len(runes) > maxDescriptionLength {
				bounded = string(runes[:maxDescriptionLength])
			}
			return bounded, nil
		}
	}

	return "", model.NewValidationError(lastError)
}

// buildPrompt は生成用プロンプトを組み立てる。
func (g *Generator) buildPrompt(title, category, condition string) string {
	lines := []string{
		"Write a realistic Facebook Marketplace-style description for a free item.",
		"Use a natural, trustworthy tone and include details that help someone decide quickly.",
		"Cover: overall condition, time used, any flaws, what is included, and a practical pickup note.",
		"Write from the perspective of a student giving the item away for free.",
		"Do not repeat the title as the first sentence.",
		"Return plain text only, no markdown, no bullet points, no emojis.",
		"Length: 5-8 sentences, around 450-700 characters.",
		"Title: " + title,
	}
	if category != "" {
		lines = append(lines, "Category: "+category)
	}
	if condition != "" {
		lines = append(lines, "Condition: "+condition)
	}
	return strings.Join(lines, "\n")
}

// candidateModels は試行するモデル名の一覧を重複なしで返す。
// 設定されたモデルを先頭に、既定候補、APIから発見したflash系、残りの順。
func (g *Generator) candidateModels(ctx context.Context) []string {
	candidates := make([]string, 0, 8)
	if g.model != "" {
		candidates = append(candidates, g.model)
	}
	candidates = append(candidates, fallbackModels...)

	if discovered := g.listSupportedModels(ctx); len(discovered) > 0 {
		flash := make([]string, 0, len(discovered))
		for _, name := range discovered {
			if strings.Contains(name, "flash") {
				flash = append(flash, name)
			}
		}
		candidates = append(candidates, flash...)
		candidates = append(candidates, discovered...)
	}

	unique := make([]string, 0, len(candidates))
	seen := make(map[string]bool, len(candidates))
	for _, name := range candidates {
		if !seen[name] {
			seen[name] = true
			unique = append(unique, name)
		}
	}
	return unique
}

// listModelsResponse はGET /models のレスポンス。
type listModelsResponse struct {
	Models []struct {
		Name                       string   `json:"name"`
		SupportedGenerationMethods []string `json:"supportedGenerationMethods"`
	} `json:"models"`
}

// listSupportedModels はgenerateContentに対応するモデル名をAPIから取得する。
// 失敗した場合は空を返し、既定候補だけで続行する。
func (g *Generator) listSupportedModels(ctx context.Context) []string {
	reqURL := fmt.Sprintf("%s/models?key=%s", g.baseURL, url.QueryEscape(g.apiKey))
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return nil
	}

	resp, err := g.httpClient.Do(req)
	if err != nil {
		return nil
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil
	}

	var payload listModelsResponse
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return nil
	}

	names := make([]string, 0, len(payload.Models))
	for _, m := range payload.Models {
		supported := false
		for _, method := range m.SupportedGenerationMethods {
			if method == "generateContent" {
				supported = true
				break
			}
		}
		if !supported {
			continue
		}
		name := strings.TrimPrefix(m.Name, "models/")
		if name != "" {
			names = append(names, name)
		}
	}
	return names
}

// promptPart / promptContent / generateRequest はPOST :generateContent のリクエストボディ。
type promptPart struct {
	Text string `json:"text"`
}

type promptContent struct {
	Role  string       `json:"role"`
	Parts []promptPart `json:"parts"`
}

type generationConfig struct {
	Temperature     float64 `json:"temperature"`
	TopP            float64 `json:"topP"`
	MaxOutputTokens int     `json:"maxOutputTokens"`
}

type generateRequest struct {
	Contents         []promptContent  `json:"contents"`
	GenerationConfig generationConfig `json:"generationConfig"`
}

// generateResponse はPOST :generateContent のレスポンス。
type generateResponse struct {
	Candidates []struct {
		Content struct {
			Parts []promptPart `json:"parts"`
		} `json:"content"`
	} `json:"candidates"`
	Error *struct {
		Message string `json:"message"`
	} `json:"error"`
}

// generateWithModel は1モデルに対して生成を1回試行する。
// 成功時は生成テキストを、失敗時はエラーメッセージを返す。
func (g *Generator) generateWithModel(ctx context.Context, modelName, prompt string) (generated, errMessage string) {
	reqBody := generateRequest{
		Contents: []promptContent{
			{Role: "user", Parts: []promptPart{{Text: prompt}}},
		},
		GenerationConfig: generationConfig{
			Temperature:     0.6,
			TopP:            0.95,
			MaxOutputTokens: 420,
		},
	}

	data, err := json.Marshal(reqBody)
	if err != nil {
		return "", fmt.Sprintf("failed to encode request: %v", err)
	}

	reqURL := fmt.Sprintf("%s/models/%s:generateContent?key=%s",
		g.baseURL, url.PathEscape(modelName), url.QueryEscape(g.apiKey))
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, reqURL, bytes.NewReader(data))
	if err != nil {
		return "", fmt.Sprintf("failed to build request: %v", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := g.httpClient.Do(req)
	if err != nil {
		return "", fmt.Sprintf("Gemini request failed: %v", err)
	}
	defer resp.Body.Close()

	var payload generateResponse
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return "", fmt.Sprintf("Gemini request failed for model %s", modelName)
	}

	if resp.StatusCode != http.StatusOK {
		if payload.Error != nil && payload.Error.Message != "" {
			return "", payload.Error.Message
		}
		return "", fmt.Sprintf("Gemini request failed for model %s", modelName)
	}

	var b strings.Builder
	if len(payload.Candidates) > 0 {
		for _, part := range payload.Candidates[0].Content.Parts {
			b.WriteString(part.Text)
		}
	}
	text := strings.TrimSpace(b.String())
	if text == "" {
		return "", "Gemini returned an empty description"
	}
	return text, ""
}

// normalizeWhitespace は連続する空白を1つにまとめ、前後の空白を落とす。
func normalizeWhitespace(value string) string {
	return strings.TrimSpace(whitespaceRE.ReplaceAllString(value, " "))
}

// isLowQualityDescription は生成結果が再試行に値するかを判定する。
// 短すぎる、またはタイトルをなぞっただけの出力を弾く。
func isLowQualityDescription(description, title string) bool {
	normalizedDescription := strings.ToLower(normalizeWhitespace(description))
	normalizedTitle := strings.ToLower(normalizeWhitespace(title))

	if len(normalizedDescription) < minDescriptionLength {
		return true
	}
	if strings.HasPrefix(normalizedDescription, normalizedTitle) ||
		strings.HasPrefix(normalizedDescription, "free "+normalizedTitle) {
		return true
	}
	return false
}
