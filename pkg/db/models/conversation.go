package models

import (
	"time"

	"github.com/Hazher89/oppdrag-app/pkg/enums"
	"github.com/google/uuid"
)

// Conversation groups messages between a fixed set of participants.
//
// DirectKey holds the sorted participant pair for direct conversations and is
// NULL otherwise. The unique index makes the "one direct thread per pair"
// guarantee a database invariant rather than an application race.
type Conversation struct {
	ID        uuid.UUID              `gorm:"type:uuid;default:gen_random_uuid();primaryKey"`
	Type      enums.ConversationType `gorm:"column:type;type:text;not null;default:'direct'"`
	Title     *string                `gorm:"column:title"`
	CompanyID string                 `gorm:"column:company_id;not null;index"`

	AssignmentID *uuid.UUID `gorm:"type:uuid;column:assignment_id;index"`
	DirectKey    *string    `gorm:"column:direct_key;uniqueIndex:idx_conversations_direct_key"`

	IsActive bool `gorm:"column:is_active;not null;default:true"`

	LastMessageContent  *string    `gorm:"column:last_message_content"`
	LastMessageSenderID *uuid.UUID `gorm:"type:uuid;column:last_message_sender_id"`
	LastMessageAt       *time.Time `gorm:"column:last_message_at;index"`

	Participants []ConversationParticipant `gorm:"foreignKey:ConversationID"`

	CreatedAt time.Time `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt time.Time `gorm:"column:updated_at;autoUpdateTime"`
}

// ConversationParticipant links a user to a conversation and tracks their
// unread counter.
type ConversationParticipant struct {
	ID             uuid.UUID `gorm:"type:uuid;default:gen_random_uuid();primaryKey"`
	ConversationID uuid.UUID `gorm:"type:uuid;column:conversation_id;not null;uniqueIndex:idx_participants_conversation_user"`
	UserID         uuid.UUID `gorm:"type:uuid;column:user_id;not null;uniqueIndex:idx_participants_conversation_user;index"`
	UnreadCount    int       `gorm:"column:unread_count;not null;default:0"`
	IsAdmin        bool      `gorm:"column:is_admin;not null;default:false"`
	JoinedAt       time.Time `gorm:"column:joined_at;autoCreateTime"`
}
