package model

// ErrorKind はAPIErrorの原因カテゴリを表す。
// HTTP層はKindからステータスコードを決定し、メッセージはそのままクライアントへ返す。
type ErrorKind string

const (
	// ErrKindNotFound は対象エンティティが存在しない。
	ErrKindNotFound ErrorKind = "not_found"
	// ErrKindForbidden は認証済みだが操作の権限がない。
	ErrKindForbidden ErrorKind = "forbidden"
	// ErrKindInvalidState は対象の状態が操作を許さない。
	ErrKindInvalidState ErrorKind = "invalid_state"
	// ErrKindConflict は一意性制約と衝突した。
	ErrKindConflict ErrorKind = "conflict"
	// ErrKindValidation はリクエスト内容が不正。
	ErrKindValidation ErrorKind = "validation"
	// ErrKindUnauthorized はセッショントークンが無い、または無効。
	ErrKindUnauthorized ErrorKind = "unauthorized"
)

// APIError はクライアントへ返すエラーを表す。
// Messageはそのままレスポンスボディ {"error": ...} に載るため、UI文言をここで確定させる。
type APIError struct {
	Kind    ErrorKind
	Message string
}

// Error はerrorインターフェースを実装する。
func (e *APIError) Error() string {
	return e.Message
}

// NewSellerNotFoundError は出品者ユーザーが見つからない場合のエラーを生成する。
func NewSellerNotFoundError() *APIError {
	return &APIError{Kind: ErrKindNotFound, Message: "Seller not found"}
}

// NewListingNotFoundError は出品が見つからない場合のエラーを生成する。
func NewListingNotFoundError() *APIError {
	return &APIError{Kind: ErrKindNotFound, Message: "Listing not found"}
}

// NewConversationNotFoundError は会話が見つからない場合のエラーを生成する。
func NewConversationNotFoundError() *APIError {
	return &APIError{Kind: ErrKindNotFound, Message: "Conversation not found"}
}

// NewUserNotFoundError はユーザーが見つからない場合のエラーを生成する。
func NewUserNotFoundError() *APIError {
	return &APIError{Kind: ErrKindNotFound, Message: "User not found"}
}

// NewListingEditForbiddenError は出品者以外による出品編集のエラーを生成する。
func NewListingEditForbiddenError() *APIError {
	return &APIError{Kind: ErrKindForbidden, Message: "Not allowed to edit this listing"}
}

// NewListingDeleteForbiddenError は出品者以外による出品削除のエラーを生成する。
func NewListingDeleteForbiddenError() *APIError {
	return &APIError{Kind: ErrKindForbidden, Message: "Not allowed to delete this listing"}
}

// NewConversationMessageForbiddenError は参加者以外によるメッセージ送信のエラーを生成する。
func NewConversationMessageForbiddenError() *APIError {
	return &APIError{Kind: ErrKindForbidden, Message: "Not allowed to message this conversation"}
}

// NewConversationAccessForbiddenError は参加者以外による会話操作のエラーを生成する。
func NewConversationAccessForbiddenError() *APIError {
	return &APIError{Kind: ErrKindForbidden, Message: "Not allowed to access this conversation"}
}

// NewProfileEditForbiddenError は本人以外によるプロフィール編集のエラーを生成する。
func NewProfileEditForbiddenError() *APIError {
	return &APIError{Kind: ErrKindForbidden, Message: "Not allowed"}
}

// NewSelfConversationError は出品者自身が自分の出品に問い合わせた場合のエラーを生成する。
func NewSelfConversationError() *APIError {
	return &APIError{Kind: ErrKindInvalidState, Message: "You cannot message yourself about your own listing"}
}

// NewListingDeletedMessagingClosedError は削除済み出品へのメッセージ送信のエラーを生成する。
func NewListingDeletedMessagingClosedError() *APIError {
	return &APIError{Kind: ErrKindInvalidState, Message: "This listing was deleted. Messaging is closed."}
}

// NewListingClosedMessagingClosedError はAvailable以外の出品へのメッセージ送信のエラーを生成する。
func NewListingClosedMessagingClosedError() *APIError {
	return &APIError{Kind: ErrKindInvalidState, Message: "This listing is sold. Messaging is closed."}
}

// NewEmailInUseError はメールアドレス重複のエラーを生成する。
func NewEmailInUseError() *APIError {
	return &APIError{Kind: ErrKindConflict, Message: "Email already in use"}
}

// NewInvalidCredentialsError はログイン失敗のエラーを生成する。
// メールアドレスの存在有無を区別しない文言を返す。
func NewInvalidCredentialsError() *APIError {
	return &APIError{Kind: ErrKindUnauthorized, Message: "Invalid email or password"}
}

// NewMissingSessionError はセッショントークン欠落のエラーを生成する。
func NewMissingSessionError() *APIError {
	return &APIError{Kind: ErrKindUnauthorized, Message: "Missing session token"}
}

// NewInvalidSessionError は無効なセッショントークンのエラーを生成する。
func NewInvalidSessionError() *APIError {
	return &APIError{Kind: ErrKindUnauthorized, Message: "Invalid session"}
}

// NewValidationError はリクエスト内容不正のエラーを生成する。
func NewValidationError(message string) *APIError {
	return &APIError{Kind: ErrKindValidation, Message: message}
}
