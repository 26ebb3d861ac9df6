package models

import (
	"time"
)

// Topic statuses.
const (
	TopicPending = "pending"
	TopicUsed    = "used"
	TopicFailed  = "failed"
)

type Topic struct {
	ID        uint       `gorm:"primaryKey" json:"id"`
	Text      string     `gorm:"not null;uniqueIndex" json:"text"`
	Source    string     `json:"source"`
	Status    string     `gorm:"not null;default:'pending';index" json:"status"`
	UsedAt    *time.Time `json:"used_at,omitempty"`
	CreatedAt time.Time  `json:"created_at"`
	UpdatedAt time.Time  `json:"updated_at"`
}

func (Topic) TableName() string {
	return "topics"
}
