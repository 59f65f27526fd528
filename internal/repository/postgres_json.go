package repository

import (
	"encoding/json"
	"fmt"

	"github.com/hitoshi/givebox/internal/model"
)

// marshalJSONB はjsonbカラムへ書き込む値をエンコードする。
// nilスライスは空配列として書き込み、カラムにNULLを残さない。
func marshalJSONB(v any) ([]byte, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal jsonb value: %w", err)
	}
	return data, nil
}

// scanUniversity はjsonbカラムのバイト列を大学情報として読み取る。
// NULLや不正な値はデフォルト大学として扱う。
func scanUniversity(data []byte) model.University {
	if len(data) == 0 {
		return model.DefaultUniversity
	}
	var u model.University
	if err := json.Unmarshal(data, &u); err != nil || u.ID == "" {
		return model.DefaultUniversity
	}
	return u
}

// scanTags はjsonbカラムのバイト列をタグ一覧として読み取る。
// NULLや不正な値は空スライスとして扱う。
func scanTags(data []byte) []model.Tag {
	if len(data) == 0 {
		return []model.Tag{}
	}
	var tags []model.Tag
	if err := json.Unmarshal(data, &tags); err != nil || tags == nil {
		return []model.Tag{}
	}
	return tags
}

// scanStrings はjsonbカラムのバイト列を文字列一覧として読み取る。
// NULLや不正な値は空スライスとして扱う。
func scanStrings(data []byte) []string {
	if len(data) == 0 {
		return []string{}
	}
	var values []string
	if err := json.Unmarshal(data, &values); err != nil || values == nil {
		return []string{}
	}
	return values
}
