package models

import "time"

// FingerprintLog is one ingestion event reported by the collection script.
// Every column except CreatedAt is client supplied and nullable: a field the
// browser did not send is stored as NULL.
type FingerprintLog struct {
	Base
	Method       *string   `json:"method" gorm:"type:text"`
	Path         *string   `json:"path" gorm:"type:text"`
	UserAgent    *string   `json:"user_agent" gorm:"type:text"`
	Language     *string   `json:"language" gorm:"type:text"`
	ScreenWidth  *int64    `json:"screen_width"`
	ScreenHeight *int64    `json:"screen_height"`
	Timezone     *string   `json:"timezone" gorm:"type:text"`
	CreatedAt    time.Time `json:"created_at" gorm:"index;not null"`
}

func (FingerprintLog) TableName() string { return "logs" }
