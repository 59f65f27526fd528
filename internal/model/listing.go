package model

import "time"

// Category は出品物のカテゴリを表す。
type Category string

const (
	CategoryFurniture   Category = "Furniture"
	CategoryTextbooks   Category = "Textbooks"
	CategoryElectronics Category = "Electronics"
	CategoryClothing    Category = "Clothing"
	CategoryKitchen     Category = "Kitchen"
	CategoryOther       Category = "Other"
)

// Condition は出品物の状態を表す。
type Condition string

const (
	ConditionNew     Condition = "New"
	ConditionLikeNew Condition = "Like New"
	ConditionGood    Condition = "Good"
	ConditionFair    Condition = "Fair"
)

// ListingStatus は出品のライフサイクル状態を表す。
// Available → Claimed → Gone の順に遷移するが、出品者は任意に戻せる。
type ListingStatus string

const (
	// ListingStatusAvailable は受け取り手を募集中の状態。
	ListingStatusAvailable ListingStatus = "Available"
	// ListingStatusClaimed は受け取り手が決まった状態。メッセージ送信は閉じられる。
	ListingStatusClaimed ListingStatus = "Claimed"
	// ListingStatusGone は受け渡しが完了した状態。
	ListingStatusGone ListingStatus = "Gone"
)

// ListingRecord は永続化する出品レコード。
// 出品者や受け取り手はIDのみを保持し、APIレスポンス形状への変換はviewパッケージが行う。
type ListingRecord struct {
	ID          string        `json:"id"`
	Title       string        `json:"title"`
	Description string        `json:"description"`
	Images      []string      `json:"images"`
	Category    Category      `json:"category"`
	Condition   Condition     `json:"condition"`
	Tags        []Tag         `json:"tags"`
	Status      ListingStatus `json:"status"`
	Location    string        `json:"location"`
	SellerID    string        `json:"sellerId"`
	ClaimedByID *string       `json:"claimedById"`
	CreatedAt   time.Time     `json:"createdAt"`
	ExpiresAt   time.Time     `json:"expiresAt"`
}

// Listing はユーザー情報を展開済みのAPIレスポンス用出品。
type Listing struct {
	ID          string        `json:"id"`
	Title       string        `json:"title"`
	Description string        `json:"description"`
	Images      []string      `json:"images"`
	Category    Category      `json:"category"`
	Condition   Condition     `json:"condition"`
	Tags        []Tag         `json:"tags"`
	Status      ListingStatus `json:"status"`
	Location    string        `json:"location"`
	Seller      User          `json:"seller"`
	ClaimedBy   *User         `json:"claimedBy"`
	CreatedAt   time.Time     `json:"createdAt"`
	ExpiresAt   time.Time     `json:"expiresAt"`
}
