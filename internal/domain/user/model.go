package user

import "time"

// Profile is what the service remembers about a signed-in caller. Member
// documents reference it through their owner id.
type Profile struct {
	UserID      string    `gorm:"type:varchar(64);primaryKey"`
	Email       *string   `gorm:"type:text"`
	DisplayName *string   `gorm:"type:text"`
	AvatarURL   *string   `gorm:"type:text"`
	LastSeenAt  time.Time `gorm:"not null"`
	CreatedAt   time.Time `gorm:"autoCreateTime"`
	UpdatedAt   time.Time `gorm:"autoUpdateTime"`
}

func (Profile) TableName() string {
	return "user_profiles"
}

// Session is the caller identity resolved from a bearer token.
type Session struct {
	UserID    string
	Email     string
	Name      string
	AvatarURL string
}
