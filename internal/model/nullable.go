package model

import (
	"bytes"
	"encoding/json"
)

// NullableString はJSONパッチの「フィールド未指定」「null指定」「値指定」を区別する。
// 出品パッチのclaimedByIdのように、nullが「クリアする」という意味を持つフィールドで使う。
type NullableString struct {
	// Set はフィールドがリクエストボディに存在したかを示す。
	Set bool
	// Value はnull指定の場合nil、値指定の場合はその値。
	Value *string
}

// UnmarshalJSON はフィールドが存在した事実を記録しつつ値を読み取る。
// フィールド自体が無い場合はUnmarshalJSONが呼ばれず、Setはfalseのまま残る。
func (n *NullableString) UnmarshalJSON(b []byte) error {
	n.Set = true
	if bytes.Equal(b, []byte("null")) {
		n.Value = nil
		return nil
	}
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		return err
	}
	n.Value = &s
	return nil
}
