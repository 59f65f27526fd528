// Package security はアプリケーションのセキュリティ機能を提供する。
//
// ContentSanitizerService はユーザー入力のテキストフィールド
// （出品タイトル・説明、プロフィール、メッセージ本文など）を保存前に
// サニタイズする。これらのフィールドはHTMLとして描画されないプレーン
// テキストのため、許可リストではなくタグの全除去ポリシーを使う。
package security

import (
	"html"

	"github.com/microcosm-cc/bluemonday"
)

// ContentSanitizerService はテキストサニタイズ機能のインターフェースを定義する。
type ContentSanitizerService interface {
	// Sanitize は入力からHTMLタグをすべて除去したプレーンテキストを返す。
	// 空文字列の入力には空文字列を返す。
	// 同一入力に対して常に同一出力を返す（冪等）。
	Sanitize(raw string) string
}

// contentSanitizer はContentSanitizerServiceの実装。
// bluemondayのStrictPolicyを保持し、スレッドセーフにサニタイズ処理を行う。
type contentSanitizer struct {
	policy *bluemonday.Policy
}

// NewContentSanitizer はContentSanitizerServiceの新しいインスタンスを生成する。
// StrictPolicyは全タグを除去する。タグ除去後のエンティティ参照は
// プレーンテキストとして保存するため元の文字に戻す。
func NewContentSanitizer() *contentSanitizer {
	return &contentSanitizer{
		policy: bluemonday.StrictPolicy(),
	}
}

// Sanitize は入力からHTMLタグをすべて除去したプレーンテキストを返す。
func (s *contentSanitizer) Sanitize(raw string) string {
	return html.UnescapeString(s.policy.Sanitize(raw))
}
