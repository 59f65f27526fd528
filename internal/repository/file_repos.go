package repository

import (
	"context"

	"github.com/hitoshi/givebox/internal/model"
)

// FileUserRepo はFileStoreをUserRepositoryとして公開するアダプタ。
type FileUserRepo struct {
	store *FileStore
}

// NewFileUserRepo はFileUserRepoを生成する。
func NewFileUserRepo(store *FileStore) *FileUserRepo {
	return &FileUserRepo{store: store}
}

func (r *FileUserRepo) FindByID(ctx context.Context, id string) (*model.UserRecord, error) {
	return r.store.FindUserByID(ctx, id)
}

func (r *FileUserRepo) FindByEmail(ctx context.Context, email string) (*model.UserRecord, error) {
	return r.store.FindUserByEmail(ctx, email)
}

func (r *FileUserRepo) FindByIDs(ctx context.Context, ids []string) ([]model.UserRecord, error) {
	return r.store.FindUsersByIDs(ctx, ids)
}

func (r *FileUserRepo) List(ctx context.Context) ([]model.UserRecord, error) {
	return r.store.ListUsers(ctx)
}

func (r *FileUserRepo) Create(ctx context.Context, user *model.UserRecord) error {
	return r.store.CreateUser(ctx, user)
}

func (r *FileUserRepo) UpdateProfile(ctx context.Context, userID string, patch ProfilePatch) (*model.UserRecord, error) {
	return r.store.UpdateProfile(ctx, userID, patch)
}

// FileSessionRepo はFileStoreをSessionRepositoryとして公開するアダプタ。
type FileSessionRepo struct {
	store *FileStore
}

// NewFileSessionRepo はFileSessionRepoを生成する。
func NewFileSessionRepo(store *FileStore) *FileSessionRepo {
	return &FileSessionRepo{store: store}
}

func (r *FileSessionRepo) Create(ctx context.Context, session *model.Session) error {
	return r.store.CreateSession(ctx, session)
}

func (r *FileSessionRepo) FindUserByToken(ctx context.Context, token string) (*model.UserRecord, error) {
	return r.store.FindUserByToken(ctx, token)
}

// FileListingRepo はFileStoreをListingRepositoryとして公開するアダプタ。
type FileListingRepo struct {
	store *FileStore
}

// NewFileListingRepo はFileListingRepoを生成する。
func NewFileListingRepo(store *FileStore) *FileListingRepo {
	return &FileListingRepo{store: store}
}

func (r *FileListingRepo) List(ctx context.Context) ([]model.ListingRecord, error) {
	return r.store.ListListings(ctx)
}

func (r *FileListingRepo) FindByID(ctx context.Context, id string) (*model.ListingRecord, error) {
	return r.store.FindListingByID(ctx, id)
}

func (r *FileListingRepo) FindByIDs(ctx context.Context, ids []string) ([]model.ListingRecord, error) {
	return r.store.FindListingsByIDs(ctx, ids)
}

func (r *FileListingRepo) Create(ctx context.Context, listing *model.ListingRecord) error {
	return r.store.CreateListing(ctx, listing)
}

func (r *FileListingRepo) Update(ctx context.Context, listing *model.ListingRecord) error {
	return r.store.UpdateListing(ctx, listing)
}

func (r *FileListingRepo) Delete(ctx context.Context, id string) error {
	return r.store.DeleteListing(ctx, id)
}

// FileConversationRepo はFileStoreをConversationRepositoryとして公開するアダプタ。
type FileConversationRepo struct {
	store *FileStore
}

// NewFileConversationRepo はFileConversationRepoを生成する。
func NewFileConversationRepo(store *FileStore) *FileConversationRepo {
	return &FileConversationRepo{store: store}
}

func (r *FileConversationRepo) ListByParticipant(ctx context.Context, userID string) ([]model.ConversationRecord, error) {
	return r.store.ListByParticipant(ctx, userID)
}

func (r *FileConversationRepo) FindByID(ctx context.Context, id string) (*model.ConversationRecord, error) {
	return r.store.FindConversationByID(ctx, id)
}

func (r *FileConversationRepo) FindByListingAndParticipant(ctx context.Context, listingID, userID string) (*model.ConversationRecord, error) {
	return r.store.FindByListingAndParticipant(ctx, listingID, userID)
}

func (r *FileConversationRepo) Create(ctx context.Context, conversation *model.ConversationRecord) error {
	return r.store.CreateConversation(ctx, conversation)
}

func (r *FileConversationRepo) AppendMessage(ctx context.Context, message *model.MessageRecord) error {
	return r.store.AppendMessage(ctx, message)
}

func (r *FileConversationRepo) MarkRead(ctx context.Context, conversationID, userID string) (bool, error) {
	return r.store.MarkRead(ctx, conversationID, userID)
}

// compile-time interface check
var (
	_ UserRepository         = (*FileUserRepo)(nil)
	_ SessionRepository      = (*FileSessionRepo)(nil)
	_ ListingRepository      = (*FileListingRepo)(nil)
	_ ConversationRepository = (*FileConversationRepo)(nil)
)
