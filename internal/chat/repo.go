package chat

import (
	"context"
	"time"

	"github.com/Hazher89/oppdrag-app/pkg/db/models"
	"github.com/Hazher89/oppdrag-app/pkg/pagination"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Repository handles conversation and message persistence.
type Repository struct {
	db *gorm.DB
}

// NewRepository binds a GORM DB to chat operations.
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

// WithTx returns the transactional slice of the repository bound to tx.
func (r *Repository) WithTx(tx *gorm.DB) txChatRepository {
	return &Repository{db: tx}
}

// CreateConversation persists the conversation together with its participant rows.
func (r *Repository) CreateConversation(ctx context.Context, conv *models.Conversation) error {
	return r.db.WithContext(ctx).Create(conv).Error
}

// FindConversation loads a conversation with its participants.
func (r *Repository) FindConversation(ctx context.Context, id uuid.UUID) (*models.Conversation, error) {
	var conv models.Conversation
	err := r.db.WithContext(ctx).
		Preload("Participants").
		First(&conv, "id = ?", id).Error
	if err != nil {
		return nil, err
	}
	return &conv, nil
}

// FindDirectByKey loads the direct conversation holding the given pair key.
func (r *Repository) FindDirectByKey(ctx context.Context, key string) (*models.Conversation, error) {
	var conv models.Conversation
	err := r.db.WithContext(ctx).
		Preload("Participants").
		First(&conv, "direct_key = ?", key).Error
	if err != nil {
		return nil, err
	}
	return &conv, nil
}

// ListByUser returns the conversations the user participates in, most recent
// activity first.
func (r *Repository) ListByUser(ctx context.Context, userID uuid.UUID, params pagination.Params) ([]models.Conversation, int64, error) {
	params = params.Normalize()

	base := r.db.WithContext(ctx).
		Model(&models.Conversation{}).
		Joins("JOIN conversation_participants cp ON cp.conversation_id = conversations.id").
		Where("cp.user_id = ? AND conversations.is_active", userID)

	var total int64
	if err := base.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var found []models.Conversation
	err := base.
		Preload("Participants").
		Order("conversations.last_message_at DESC NULLS LAST, conversations.created_at DESC").
		Offset(params.Offset()).
		Limit(params.Limit).
		Find(&found).Error
	if err != nil {
		return nil, 0, err
	}
	return found, total, nil
}

// CreateMessage persists a new message row.
func (r *Repository) CreateMessage(ctx context.Context, msg *models.Message) error {
	return r.db.WithContext(ctx).Create(msg).Error
}

// ListMessages returns messages for the conversation, newest first.
func (r *Repository) ListMessages(ctx context.Context, conversationID uuid.UUID, params pagination.Params) ([]models.Message, int64, error) {
	params = params.Normalize()

	query := r.db.WithContext(ctx).
		Model(&models.Message{}).
		Where("conversation_id = ?", conversationID)

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var found []models.Message
	err := query.
		Order("created_at DESC").
		Offset(params.Offset()).
		Limit(params.Limit).
		Find(&found).Error
	if err != nil {
		return nil, 0, err
	}
	return found, total, nil
}

// TouchLastMessage denormalizes the newest message onto the conversation row.
func (r *Repository) TouchLastMessage(ctx context.Context, conversationID uuid.UUID, content string, senderID uuid.UUID, at time.Time) error {
	return r.db.WithContext(ctx).
		Model(&models.Conversation{}).
		Where("id = ?", conversationID).
		Updates(map[string]any{
			"last_message_content":   content,
			"last_message_sender_id": senderID,
			"last_message_at":        at,
		}).Error
}

// IncrementUnread bumps the unread counter for every participant except the
// sender. The increment happens in SQL so concurrent sends never lose counts.
func (r *Repository) IncrementUnread(ctx context.Context, conversationID, senderID uuid.UUID) error {
	return r.db.WithContext(ctx).
		Model(&models.ConversationParticipant{}).
		Where("conversation_id = ? AND user_id <> ?", conversationID, senderID).
		UpdateColumn("unread_count", gorm.Expr("unread_count + 1")).Error
}

// ResetUnread zeroes the reader's unread counter.
func (r *Repository) ResetUnread(ctx context.Context, conversationID, userID uuid.UUID) error {
	return r.db.WithContext(ctx).
		Model(&models.ConversationParticipant{}).
		Where("conversation_id = ? AND user_id = ?", conversationID, userID).
		UpdateColumn("unread_count", 0).Error
}

// MarkMessagesRead flags the other side's messages as read.
func (r *Repository) MarkMessagesRead(ctx context.Context, conversationID, readerID uuid.UUID, at time.Time) error {
	return r.db.WithContext(ctx).
		Model(&models.Message{}).
		Where("conversation_id = ? AND sender_id <> ? AND NOT is_read", conversationID, readerID).
		Updates(map[string]any{
			"is_read": true,
			"read_at": at,
		}).Error
}

// Reactivate reopens a previously closed conversation.
func (r *Repository) Reactivate(ctx context.Context, conversationID uuid.UUID) error {
	return r.db.WithContext(ctx).
		Model(&models.Conversation{}).
		Where("id = ?", conversationID).
		UpdateColumn("is_active", true).Error
}

// Deactivate closes the conversation without touching its history.
func (r *Repository) Deactivate(ctx context.Context, conversationID uuid.UUID) error {
	return r.db.WithContext(ctx).
		Model(&models.Conversation{}).
		Where("id = ?", conversationID).
		UpdateColumn("is_active", false).Error
}

// Participant returns the participant row for the user, if any.
func (r *Repository) Participant(ctx context.Context, conversationID, userID uuid.UUID) (*models.ConversationParticipant, error) {
	var p models.ConversationParticipant
	err := r.db.WithContext(ctx).
		First(&p, "conversation_id = ? AND user_id = ?", conversationID, userID).Error
	if err != nil {
		return nil, err
	}
	return &p, nil
}

// TotalUnread sums the user's unread counters across conversations.
func (r *Repository) TotalUnread(ctx context.Context, userID uuid.UUID) (int64, error) {
	var total int64
	err := r.db.WithContext(ctx).
		Model(&models.ConversationParticipant{}).
		Where("user_id = ?", userID).
		Select("COALESCE(SUM(unread_count), 0)").
		Scan(&total).Error
	return total, err
}
