package chat

import (
	"time"

	"github.com/suPer8Hu/prompt-lab/internal/variation"
)

type Sender string

const (
	SenderUser      Sender = "user"
	SenderAssistant Sender = "assistant"
)

type Session struct {
	ID           uint64    `gorm:"primaryKey;autoIncrement" json:"-"`
	SessionID    string    `gorm:"type:varchar(26);uniqueIndex;not null" json:"id"`
	Title        string    `gorm:"type:varchar(200);not null" json:"title"`
	MessageCount int       `gorm:"not null;default:0" json:"message_count"`
	Turns        []Turn    `gorm:"foreignKey:SessionID;references:SessionID;constraint:OnDelete:CASCADE" json:"-"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `gorm:"index" json:"updated_at"`
}

func (Session) TableName() string { return "chat_sessions" }

// Turn is one message row. User turns carry Text; assistant turns carry
// Prompt, Parameters and Variations.
type Turn struct {
	ID         string                `gorm:"type:varchar(36);primaryKey" json:"id"`
	SessionID  string                `gorm:"type:varchar(26);not null;index:idx_chat_turn_session_created,priority:1" json:"session_id"`
	Sender     Sender                `gorm:"type:varchar(16);index;not null" json:"sender"`
	Text       *string               `gorm:"type:text" json:"text"`
	Prompt     *string               `gorm:"type:text" json:"prompt"`
	Parameters *variation.Params     `gorm:"type:text;serializer:json" json:"parameters"`
	Variations []variation.Variation `gorm:"type:text;serializer:json" json:"responses"`
	CreatedAt  time.Time             `gorm:"index:idx_chat_turn_session_created,priority:2" json:"created_at"`
}

func (Turn) TableName() string { return "chat_turns" }

// TurnResult is what a successful commit returns.
type TurnResult struct {
	Experiment Turn    `json:"experiment"`
	UserPrompt Turn    `json:"userPrompt"`
	Session    Session `json:"session"`
}
