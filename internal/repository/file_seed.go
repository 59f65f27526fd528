package repository

import (
	"fmt"
	"time"

	"golang.org/x/crypto/bcrypt"

	"github.com/hitoshi/givebox/internal/model"
)

// seedPassword はシードユーザー全員の初期パスワード。デモログイン用。
const seedPassword = "password"

// SeedDocument はデモ用の初期ドキュメントを生成する。
// FileStoreがファイルを新規作成・再生成する際に使用する。
// タイムスタンプはnowからの相対時刻で組み立てる。
func SeedDocument(now time.Time) (*Document, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(seedPassword), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("failed to hash seed password: %w", err)
	}
	password := string(hash)

	now = now.UTC()

	maya := model.UserRecord{
		User: model.User{
			ID:         "user-maya",
			Email:      "maya@university.edu",
			Name:       "Maya Patel",
			AvatarURL:  "",
			University: model.DefaultUniversity,
			Tags: []model.Tag{
				{ID: "tag-maya-dorm", Label: "North Hall", Type: model.TagTypeDorm},
				{ID: "tag-maya-pickup", Label: "Evening pickup", Type: model.TagTypePreference},
			},
			Bio:       "Senior clearing out four years of dorm stuff. Everything goes free.",
			CreatedAt: now.AddDate(0, -8, 0),
		},
		Password: password,
	}

	jordan := model.UserRecord{
		User: model.User{
			ID:         "user-jordan",
			Email:      "jordan@university.edu",
			Name:       "Jordan Lee",
			AvatarURL:  "",
			University: model.DefaultUniversity,
			Tags: []model.Tag{
				{ID: "tag-jordan-dorm", Label: "West Village", Type: model.TagTypeDorm},
			},
			Bio:       "First-year on a budget. Happy to pick up anywhere on campus.",
			CreatedAt: now.AddDate(0, -2, 0),
		},
		Password: password,
	}

	sam := model.UserRecord{
		User: model.User{
			ID:         "user-sam",
			Email:      "sam@uga.edu",
			Name:       "Sam Rivera",
			AvatarURL:  "",
			University: model.UGAUniversity,
			Tags: []model.Tag{
				{ID: "tag-sam-trade", Label: "Textbook swap", Type: model.TagTypeCustom},
			},
			Bio:       "",
			CreatedAt: now.AddDate(0, -5, 0),
		},
		Password: password,
	}

	fridge := model.ListingRecord{
		ID:          "listing-mini-fridge",
		Title:       "Dorm mini fridge",
		Description: "3.2 cu ft mini fridge, kept in my room all year. Runs quiet, small scratch on the door. First come first served, must pick up from North Hall.",
		Images:      []string{},
		Category:    model.CategoryKitchen,
		Condition:   model.ConditionGood,
		Tags: []model.Tag{
			{ID: "tag-listing-pickup", Label: "Pickup only", Type: model.TagTypePreference},
		},
		Status:      model.ListingStatusAvailable,
		Location:    "North Hall",
		SellerID:    maya.ID,
		ClaimedByID: nil,
		CreatedAt:   now.AddDate(0, 0, -3),
		ExpiresAt:   now.AddDate(0, 0, 27),
	}

	textbook := model.ListingRecord{
		ID:          "listing-calc-textbook",
		Title:       "Calculus: Early Transcendentals (8th ed)",
		Description: "Used for MATH 2250, some highlighting in the first few chapters but otherwise clean. Free to whoever needs it next semester.",
		Images:      []string{},
		Category:    model.CategoryTextbooks,
		Condition:   model.ConditionFair,
		Tags:        []model.Tag{},
		Status:      model.ListingStatusAvailable,
		Location:    "Science Library",
		SellerID:    sam.ID,
		ClaimedByID: nil,
		CreatedAt:   now.AddDate(0, 0, -7),
		ExpiresAt:   now.AddDate(0, 0, 23),
	}

	jordanID := jordan.ID
	lamp := model.ListingRecord{
		ID:          "listing-desk-lamp",
		Title:       "LED desk lamp",
		Description: "Adjustable LED desk lamp with USB charging port. Works perfectly, just upgraded. Claimed by a neighbor, pickup this weekend.",
		Images:      []string{},
		Category:    model.CategoryElectronics,
		Condition:   model.ConditionLikeNew,
		Tags:        []model.Tag{},
		Status:      model.ListingStatusClaimed,
		Location:    "North Hall",
		SellerID:    maya.ID,
		ClaimedByID: &jordanID,
		CreatedAt:   now.AddDate(0, 0, -10),
		ExpiresAt:   now.AddDate(0, 0, 20),
	}

	conversation := model.ConversationRecord{
		ID:             "conversation-fridge-jordan",
		ListingID:      fridge.ID,
		ParticipantIDs: []string{maya.ID, jordan.ID},
		Messages: []model.MessageRecord{
			{
				ID:             "message-fridge-1",
				ConversationID: "conversation-fridge-jordan",
				SenderID:       jordan.ID,
				Body:           "Hi! Is the mini fridge still available? I can come by North Hall tomorrow evening.",
				Attachments:    []string{},
				Read:           true,
				CreatedAt:      now.AddDate(0, 0, -2),
			},
			{
				ID:             "message-fridge-2",
				ConversationID: "conversation-fridge-jordan",
				SenderID:       maya.ID,
				Body:           "Still available! Tomorrow after 6pm works for me.",
				Attachments:    []string{},
				Read:           false,
				CreatedAt:      now.AddDate(0, 0, -1),
			},
		},
		CreatedAt: now.AddDate(0, 0, -2),
	}

	return &Document{
		Users: []model.UserRecord{maya, jordan, sam},
		// 新しい順
		Listings:      []model.ListingRecord{fridge, textbook, lamp},
		Sessions:      []model.Session{},
		Conversations: []model.ConversationRecord{conversation},
	}, nil
}
