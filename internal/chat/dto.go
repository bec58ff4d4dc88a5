package chat

import (
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"

	"github.com/Hazher89/oppdrag-app/pkg/db/models"
	"github.com/Hazher89/oppdrag-app/pkg/enums"
)

// ParticipantDTO describes one member of a conversation.
type ParticipantDTO struct {
	UserID      uuid.UUID `json:"user_id"`
	Name        string    `json:"name,omitempty"`
	UnreadCount int       `json:"unread_count"`
	IsAdmin     bool      `json:"is_admin"`
	JoinedAt    time.Time `json:"joined_at"`
}

// ConversationDTO is the transport shape for a conversation.
type ConversationDTO struct {
	ID           uuid.UUID              `json:"id"`
	Type         enums.ConversationType `json:"type"`
	Title        *string                `json:"title,omitempty"`
	CompanyID    string                 `json:"company_id"`
	AssignmentID *uuid.UUID             `json:"assignment_id,omitempty"`
	IsActive     bool                   `json:"is_active"`

	LastMessageContent  *string    `json:"last_message_content,omitempty"`
	LastMessageSenderID *uuid.UUID `json:"last_message_sender_id,omitempty"`
	LastMessageAt       *time.Time `json:"last_message_at,omitempty"`

	UnreadCount  int              `json:"unread_count"`
	Participants []ParticipantDTO `json:"participants"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// MessageDTO is the transport shape for a chat message.
type MessageDTO struct {
	ID             uuid.UUID         `json:"id"`
	ConversationID uuid.UUID         `json:"conversation_id"`
	SenderID       uuid.UUID         `json:"sender_id"`
	SenderName     string            `json:"sender_name,omitempty"`
	Type           enums.MessageType `json:"type"`
	Content        string            `json:"content"`

	FileName *string `json:"file_name,omitempty"`
	FilePath *string `json:"file_path,omitempty"`
	FileSize *int64  `json:"file_size,omitempty"`

	Lat *float64 `json:"lat,omitempty"`
	Lng *float64 `json:"lng,omitempty"`

	IsRead bool       `json:"is_read"`
	ReadAt *time.Time `json:"read_at,omitempty"`

	CreatedAt time.Time `json:"created_at"`
}

// CreateConversationInput starts a new conversation.
type CreateConversationInput struct {
	Type           string      `json:"type" validate:"required,oneof=direct group support"`
	Title          *string     `json:"title,omitempty" validate:"omitempty,min=1,max=200"`
	ParticipantIDs []uuid.UUID `json:"participant_ids" validate:"required,min=1,dive,required"`
	AssignmentID   *uuid.UUID  `json:"assignment_id,omitempty"`
}

// SendMessageInput carries a new message.
type SendMessageInput struct {
	Type    string `json:"type,omitempty" validate:"omitempty,oneof=text image file location"`
	Content string `json:"content" validate:"required,min=1,max=4000"`

	FileName *string `json:"file_name,omitempty"`
	FilePath *string `json:"file_path,omitempty"`
	FileSize *int64  `json:"file_size,omitempty"`

	Lat *float64 `json:"lat,omitempty" validate:"omitempty,latitude"`
	Lng *float64 `json:"lng,omitempty" validate:"omitempty,longitude"`
}

// DirectKey builds the canonical identity for a direct conversation pair.
// The two IDs are sorted so the key is independent of who starts the thread.
func DirectKey(a, b uuid.UUID) string {
	ids := []string{a.String(), b.String()}
	sort.Strings(ids)
	return fmt.Sprintf("%s:%s", ids[0], ids[1])
}

// ConversationFromModel converts a persisted conversation for the given viewer.
func ConversationFromModel(c *models.Conversation, viewerID uuid.UUID, names map[uuid.UUID]string) *ConversationDTO {
	if c == nil {
		return nil
	}

	dto := &ConversationDTO{
		ID:                  c.ID,
		Type:                c.Type,
		Title:               c.Title,
		CompanyID:           c.CompanyID,
		AssignmentID:        c.AssignmentID,
		IsActive:            c.IsActive,
		LastMessageContent:  c.LastMessageContent,
		LastMessageSenderID: c.LastMessageSenderID,
		LastMessageAt:       c.LastMessageAt,
		Participants:        make([]ParticipantDTO, 0, len(c.Participants)),
		CreatedAt:           c.CreatedAt,
		UpdatedAt:           c.UpdatedAt,
	}

	for _, p := range c.Participants {
		dto.Participants = append(dto.Participants, ParticipantDTO{
			UserID:      p.UserID,
			Name:        names[p.UserID],
			UnreadCount: p.UnreadCount,
			IsAdmin:     p.IsAdmin,
			JoinedAt:    p.JoinedAt,
		})
		if p.UserID == viewerID {
			dto.UnreadCount = p.UnreadCount
		}
	}

	return dto
}

// MessageFromModel converts a persisted message row.
func MessageFromModel(m *models.Message, names map[uuid.UUID]string) *MessageDTO {
	if m == nil {
		return nil
	}
	return &MessageDTO{
		ID:             m.ID,
		ConversationID: m.ConversationID,
		SenderID:       m.SenderID,
		SenderName:     names[m.SenderID],
		Type:           m.Type,
		Content:        m.Content,
		FileName:       m.FileName,
		FilePath:       m.FilePath,
		FileSize:       m.FileSize,
		Lat:            m.Lat,
		Lng:            m.Lng,
		IsRead:         m.IsRead,
		ReadAt:         m.ReadAt,
		CreatedAt:      m.CreatedAt,
	}
}
