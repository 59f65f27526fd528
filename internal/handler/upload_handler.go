package handler

import (
	"encoding/base64"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/hitoshi/givebox/internal/middleware"
	"github.com/hitoshi/givebox/internal/model"
)

// multipartMemoryLimit はマルチパート解析時にメモリへ保持する上限。
// これを超える部分は一時ファイルに書き出される。
const multipartMemoryLimit = 1 << 20 // 1MiB

// UploadHandler は画像アップロードのHTTPハンドラー。
// 受け取った画像はdata URLに変換して返す。ストレージには保存しない。
type UploadHandler struct {
	maxSize int64 // 受け付ける画像の最大バイト数
}

// NewUploadHandler はUploadHandlerを生成する。
func NewUploadHandler(maxSize int64) *UploadHandler {
	return &UploadHandler{maxSize: maxSize}
}

// uploadResponse はアップロード成功時のレスポンス。
type uploadResponse struct {
	URL string `json:"url"`
}

// Upload はマルチパートの"file"フィールドで受け取った画像をdata URLとして返す。
// POST /api/uploads
func (h *UploadHandler) Upload(w http.ResponseWriter, r *http.Request) {
	// マルチパートのオーバーヘッド分の余裕を持たせてボディサイズを制限する
	r.Body = http.MaxBytesReader(w, r.Body, h.maxSize+multipartMemoryLimit)

	if err := r.ParseMultipartForm(multipartMemoryLimit); err != nil {
		middleware.WriteAPIError(w, model.NewValidationError("No file uploaded"))
		return
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		middleware.WriteAPIError(w, model.NewValidationError("No file uploaded"))
		return
	}
	defer file.Close()

	contentType := header.Header.Get("Content-Type")
	if !strings.HasPrefix(contentType, "image/") {
		middleware.WriteAPIError(w, model.NewValidationError("Only image uploads are allowed"))
		return
	}

	if header.Size > h.maxSize {
		middleware.WriteAPIError(w, model.NewValidationError("Image must be 5MB or smaller"))
		return
	}

	data, err := io.ReadAll(io.LimitReader(file, h.maxSize+1))
	if err != nil {
		middleware.WriteError(w, fmt.Errorf("failed to read uploaded file: %w", err))
		return
	}
	if int64(len(data)) > h.maxSize {
		middleware.WriteAPIError(w, model.NewValidationError("Image must be 5MB or smaller"))
		return
	}

	dataURL := fmt.Sprintf("data:%s;base64,%s", contentType, base64.StdEncoding.EncodeToString(data))
	writeJSON(w, http.StatusOK, uploadResponse{URL: dataURL})
}
