// Package model はドメインモデルを定義する。
package model

import (
	"strings"
	"time"
)

// TagType はタグの分類を表す。
type TagType string

const (
	// TagTypeDorm は寮・居住エリアを表すタグ。
	TagTypeDorm TagType = "Dorm"
	// TagTypePreference は受け渡し方法などの希望条件を表すタグ。
	TagTypePreference TagType = "Preference"
	// TagTypeCustom はユーザーが自由入力したタグ。
	TagTypeCustom TagType = "Custom"
)

// Tag はユーザーや出品に付与されるラベルを表す。
type Tag struct {
	ID    string  `json:"id"`
	Label string  `json:"label"`
	Type  TagType `json:"type"`
}

// University は所属大学を表す。
type University struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	EmailDomain string `json:"emailDomain"`
}

// DefaultUniversity はメールドメインから大学を特定できない場合に割り当てる大学。
var DefaultUniversity = University{
	ID:          "state-university",
	Name:        "State University",
	EmailDomain: "university.edu",
}

// UGAUniversity はuga.eduドメインのユーザーに割り当てる大学。
var UGAUniversity = University{
	ID:          "uga",
	Name:        "University of Georgia",
	EmailDomain: "uga.edu",
}

// UniversityForEmail はメールアドレスのドメインから所属大学を判定する。
func UniversityForEmail(email string) University {
	if strings.HasSuffix(strings.ToLower(email), "@"+UGAUniversity.EmailDomain) {
		return UGAUniversity
	}
	return DefaultUniversity
}

// User はAPIレスポンスに載せる公開ユーザー情報を表す。
type User struct {
	ID         string     `json:"id"`
	Email      string     `json:"email"`
	Name       string     `json:"name"`
	AvatarURL  string     `json:"avatarUrl"`
	University University `json:"university"`
	Tags       []Tag      `json:"tags"`
	Bio        string     `json:"bio"`
	CreatedAt  time.Time  `json:"createdAt"`
}

// UserRecord は永続化するユーザーレコード。
// パスワードハッシュを含むため、APIレスポンスにはPublic()を通して変換する。
type UserRecord struct {
	User
	Password string `json:"password"`
}

// Public はパスワードハッシュを除いた公開ユーザー情報を返す。
func (u *UserRecord) Public() User {
	return u.User
}

// Session はログインセッションを表す。
// トークンは推測不能な不透明値で、有効期限や失効の仕組みは持たない。
type Session struct {
	Token     string    `json:"token"`
	UserID    string    `json:"userId"`
	CreatedAt time.Time `json:"createdAt"`
}
