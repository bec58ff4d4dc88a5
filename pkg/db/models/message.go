package models

import (
	"time"

	"github.com/Hazher89/oppdrag-app/pkg/enums"
	"github.com/google/uuid"
)

// Message is a single chat entry within a conversation.
type Message struct {
	ID             uuid.UUID `gorm:"type:uuid;default:gen_random_uuid();primaryKey"`
	ConversationID uuid.UUID `gorm:"type:uuid;column:conversation_id;not null;index:idx_messages_conversation_created"`
	SenderID       uuid.UUID `gorm:"type:uuid;column:sender_id;not null"`

	Type    enums.MessageType `gorm:"column:type;type:text;not null;default:'text'"`
	Content string            `gorm:"column:content;not null"`

	FileName *string `gorm:"column:file_name"`
	FilePath *string `gorm:"column:file_path"`
	FileSize *int64  `gorm:"column:file_size"`

	Lat *float64 `gorm:"column:lat"`
	Lng *float64 `gorm:"column:lng"`

	IsRead bool       `gorm:"column:is_read;not null;default:false"`
	ReadAt *time.Time `gorm:"column:read_at"`

	CreatedAt time.Time `gorm:"column:created_at;autoCreateTime;index:idx_messages_conversation_created"`
	UpdatedAt time.Time `gorm:"column:updated_at;autoUpdateTime"`
}
