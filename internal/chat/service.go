package chat

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/Hazher89/oppdrag-app/internal/realtime"
	"github.com/Hazher89/oppdrag-app/internal/users"
	"github.com/Hazher89/oppdrag-app/pkg/db"
	"github.com/Hazher89/oppdrag-app/pkg/db/models"
	"github.com/Hazher89/oppdrag-app/pkg/enums"
	pkgerrors "github.com/Hazher89/oppdrag-app/pkg/errors"
	"github.com/Hazher89/oppdrag-app/pkg/pagination"
	"github.com/Hazher89/oppdrag-app/pkg/types"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

const directKeyConstraint = "idx_conversations_direct_key"

// ConversationListResult bundles a page of conversations with metadata.
type ConversationListResult struct {
	Conversations []ConversationDTO `json:"conversations"`
	Page          pagination.Page   `json:"pagination"`
}

// MessageListResult bundles a page of messages with metadata.
type MessageListResult struct {
	Messages []MessageDTO    `json:"messages"`
	Page     pagination.Page `json:"pagination"`
}

// ContactListResult bundles a page of reachable users with metadata.
type ContactListResult struct {
	Users []users.UserDTO `json:"users"`
	Page  pagination.Page `json:"pagination"`
}

// Service exposes chat operations.
type Service interface {
	CreateConversation(ctx context.Context, actor types.Actor, input CreateConversationInput) (*ConversationDTO, error)
	ListConversations(ctx context.Context, actor types.Actor, params pagination.Params) (*ConversationListResult, error)
	GetConversation(ctx context.Context, actor types.Actor, id uuid.UUID) (*ConversationDTO, error)
	SendMessage(ctx context.Context, actor types.Actor, conversationID uuid.UUID, input SendMessageInput) (*MessageDTO, error)
	ListMessages(ctx context.Context, actor types.Actor, conversationID uuid.UUID, params pagination.Params) (*MessageListResult, error)
	MarkRead(ctx context.Context, actor types.Actor, conversationID uuid.UUID) error
	DeleteConversation(ctx context.Context, actor types.Actor, conversationID uuid.UUID) error
	TotalUnread(ctx context.Context, actor types.Actor) (int64, error)
	IsParticipant(ctx context.Context, conversationID, userID uuid.UUID) (bool, error)
	ListContacts(ctx context.Context, actor types.Actor, search string, params pagination.Params) (*ContactListResult, error)
}

// txChatRepository is the slice of the repository that runs inside a
// transaction, kept narrow so service tests can fake the transactional paths.
type txChatRepository interface {
	CreateMessage(ctx context.Context, msg *models.Message) error
	TouchLastMessage(ctx context.Context, conversationID uuid.UUID, content string, senderID uuid.UUID, at time.Time) error
	IncrementUnread(ctx context.Context, conversationID, senderID uuid.UUID) error
	ResetUnread(ctx context.Context, conversationID, userID uuid.UUID) error
	MarkMessagesRead(ctx context.Context, conversationID, readerID uuid.UUID, at time.Time) error
}

type chatRepository interface {
	WithTx(tx *gorm.DB) txChatRepository
	CreateConversation(ctx context.Context, conv *models.Conversation) error
	FindConversation(ctx context.Context, id uuid.UUID) (*models.Conversation, error)
	FindDirectByKey(ctx context.Context, key string) (*models.Conversation, error)
	ListByUser(ctx context.Context, userID uuid.UUID, params pagination.Params) ([]models.Conversation, int64, error)
	CreateMessage(ctx context.Context, msg *models.Message) error
	ListMessages(ctx context.Context, conversationID uuid.UUID, params pagination.Params) ([]models.Message, int64, error)
	Participant(ctx context.Context, conversationID, userID uuid.UUID) (*models.ConversationParticipant, error)
	TotalUnread(ctx context.Context, userID uuid.UUID) (int64, error)
	Deactivate(ctx context.Context, conversationID uuid.UUID) error
	Reactivate(ctx context.Context, conversationID uuid.UUID) error
}

type userRepository interface {
	FindByID(ctx context.Context, id uuid.UUID) (*models.User, error)
	FindByIDs(ctx context.Context, ids []uuid.UUID) ([]models.User, error)
	ListByCompany(ctx context.Context, companyID string, filter users.ListFilter, params pagination.Params) ([]models.User, int64, error)
}

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type publisher interface {
	PublishToUsers(userIDs []uuid.UUID, event realtime.Event)
	PublishToConversation(roomID uuid.UUID, event realtime.Event)
	PublishToConversationAndUsers(roomID uuid.UUID, userIDs []uuid.UUID, event realtime.Event)
}

type service struct {
	repo   chatRepository
	users  userRepository
	tx     txRunner
	events publisher
}

// ServiceParams bundles the dependencies required to build the chat service.
type ServiceParams struct {
	Repo   chatRepository
	Users  userRepository
	Tx     txRunner
	Events publisher
}

// NewService constructs a chat service.
func NewService(params ServiceParams) (Service, error) {
	if params.Repo == nil {
		return nil, fmt.Errorf("chat repository is required")
	}
	if params.Users == nil {
		return nil, fmt.Errorf("user repository is required")
	}
	if params.Tx == nil {
		return nil, fmt.Errorf("transaction runner is required")
	}
	if params.Events == nil {
		return nil, fmt.Errorf("event publisher is required")
	}
	return &service{
		repo:   params.Repo,
		users:  params.Users,
		tx:     params.Tx,
		events: params.Events,
	}, nil
}

func (s *service) CreateConversation(ctx context.Context, actor types.Actor, input CreateConversationInput) (*ConversationDTO, error) {
	convType, err := enums.ParseConversationType(input.Type)
	if err != nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "invalid conversation type")
	}

	memberIDs := dedupeWithActor(actor.ID, input.ParticipantIDs)
	if convType == enums.ConversationTypeDirect && len(memberIDs) != 2 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "direct conversations need exactly one other participant")
	}
	if len(memberIDs) < 2 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "conversations need at least two participants")
	}

	members, err := s.users.FindByIDs(ctx, memberIDs)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "lookup participants")
	}
	if len(members) != len(memberIDs) {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "unknown participant")
	}
	names := map[uuid.UUID]string{}
	for _, m := range members {
		if m.CompanyID != actor.CompanyID {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "participant belongs to another company")
		}
		names[m.ID] = m.Name
	}

	conv := &models.Conversation{
		Type:      convType,
		Title:     input.Title,
		CompanyID: actor.CompanyID,
		IsActive:  true,
	}
	if convType == enums.ConversationTypeDirect {
		key := DirectKey(memberIDs[0], memberIDs[1])
		conv.DirectKey = &key
	}
	if input.AssignmentID != nil {
		conv.AssignmentID = input.AssignmentID
	}
	for _, id := range memberIDs {
		conv.Participants = append(conv.Participants, models.ConversationParticipant{
			UserID:  id,
			IsAdmin: id == actor.ID && actor.IsAdmin(),
		})
	}

	if err := s.repo.CreateConversation(ctx, conv); err != nil {
		// Two clients racing to open the same direct thread: the loser
		// adopts the winner's row.
		if conv.DirectKey != nil && db.IsUniqueViolation(err, directKeyConstraint) {
			existing, findErr := s.repo.FindDirectByKey(ctx, *conv.DirectKey)
			if findErr != nil {
				return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, findErr, "load existing direct conversation")
			}
			// A soft-deleted thread between the same pair reopens instead of
			// locking the pair out of direct chat forever.
			if !existing.IsActive {
				if err := s.repo.Reactivate(ctx, existing.ID); err != nil {
					return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "reopen direct conversation")
				}
				existing.IsActive = true
			}
			return ConversationFromModel(existing, actor.ID, names), nil
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "create conversation")
	}

	dto := ConversationFromModel(conv, actor.ID, names)
	s.events.PublishToUsers(memberIDs, realtime.Event{
		Type:    realtime.EventConversationCreated,
		Payload: dto,
	})
	return dto, nil
}

func (s *service) ListConversations(ctx context.Context, actor types.Actor, params pagination.Params) (*ConversationListResult, error) {
	found, total, err := s.repo.ListByUser(ctx, actor.ID, params)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "list conversations")
	}

	names, err := s.participantNames(ctx, found)
	if err != nil {
		return nil, err
	}

	dtos := make([]ConversationDTO, 0, len(found))
	for i := range found {
		dtos = append(dtos, *ConversationFromModel(&found[i], actor.ID, names))
	}

	return &ConversationListResult{
		Conversations: dtos,
		Page:          pagination.BuildPage(params, total),
	}, nil
}

func (s *service) GetConversation(ctx context.Context, actor types.Actor, id uuid.UUID) (*ConversationDTO, error) {
	conv, err := s.loadMemberConversation(ctx, actor, id)
	if err != nil {
		return nil, err
	}

	names, err := s.participantNames(ctx, []models.Conversation{*conv})
	if err != nil {
		return nil, err
	}
	return ConversationFromModel(conv, actor.ID, names), nil
}

func (s *service) SendMessage(ctx context.Context, actor types.Actor, conversationID uuid.UUID, input SendMessageInput) (*MessageDTO, error) {
	conv, err := s.loadMemberConversation(ctx, actor, conversationID)
	if err != nil {
		return nil, err
	}
	if !conv.IsActive {
		return nil, pkgerrors.New(pkgerrors.CodeStateConflict, "conversation is closed")
	}

	msgType := enums.MessageTypeText
	if input.Type != "" {
		parsed, err := enums.ParseMessageType(input.Type)
		if err != nil {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "invalid message type")
		}
		msgType = parsed
	}

	now := time.Now().UTC()
	msg := &models.Message{
		ConversationID: conv.ID,
		SenderID:       actor.ID,
		Type:           msgType,
		Content:        strings.TrimSpace(input.Content),
		FileName:       input.FileName,
		FilePath:       input.FilePath,
		FileSize:       input.FileSize,
		Lat:            input.Lat,
		Lng:            input.Lng,
	}

	err = s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		txRepo := s.repo.WithTx(tx)
		if err := txRepo.CreateMessage(ctx, msg); err != nil {
			return fmt.Errorf("create message: %w", err)
		}
		if err := txRepo.TouchLastMessage(ctx, conv.ID, msg.Content, actor.ID, now); err != nil {
			return fmt.Errorf("touch last message: %w", err)
		}
		if err := txRepo.IncrementUnread(ctx, conv.ID, actor.ID); err != nil {
			return fmt.Errorf("increment unread: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "send message")
	}

	dto := MessageFromModel(msg, map[uuid.UUID]string{actor.ID: actor.Name})

	// Fan-out happens only after the transaction commits so subscribers
	// never see a message that later rolled back. Room members and the other
	// participants' user channels are collapsed into one delivery per
	// connection.
	event := realtime.Event{Type: realtime.EventMessageNew, Payload: dto}
	s.events.PublishToConversationAndUsers(conv.ID, otherParticipantIDs(conv, actor.ID), event)

	return dto, nil
}

func (s *service) ListMessages(ctx context.Context, actor types.Actor, conversationID uuid.UUID, params pagination.Params) (*MessageListResult, error) {
	conv, err := s.loadMemberConversation(ctx, actor, conversationID)
	if err != nil {
		return nil, err
	}

	found, total, err := s.repo.ListMessages(ctx, conv.ID, params)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "list messages")
	}

	names, err := s.participantNames(ctx, []models.Conversation{*conv})
	if err != nil {
		return nil, err
	}

	dtos := make([]MessageDTO, 0, len(found))
	for i := range found {
		dtos = append(dtos, *MessageFromModel(&found[i], names))
	}

	// Fetching the latest page counts as reading the conversation.
	if params.Page == 1 {
		if err := s.markRead(ctx, actor, conv); err != nil {
			return nil, err
		}
	}

	return &MessageListResult{
		Messages: dtos,
		Page:     pagination.BuildPage(params, total),
	}, nil
}

func (s *service) MarkRead(ctx context.Context, actor types.Actor, conversationID uuid.UUID) error {
	conv, err := s.loadMemberConversation(ctx, actor, conversationID)
	if err != nil {
		return err
	}
	return s.markRead(ctx, actor, conv)
}

func (s *service) markRead(ctx context.Context, actor types.Actor, conv *models.Conversation) error {
	now := time.Now().UTC()
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		txRepo := s.repo.WithTx(tx)
		if err := txRepo.ResetUnread(ctx, conv.ID, actor.ID); err != nil {
			return fmt.Errorf("reset unread: %w", err)
		}
		if err := txRepo.MarkMessagesRead(ctx, conv.ID, actor.ID, now); err != nil {
			return fmt.Errorf("mark messages read: %w", err)
		}
		return nil
	})
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "mark read")
	}

	s.events.PublishToConversation(conv.ID, realtime.Event{
		Type: realtime.EventMessageRead,
		Payload: map[string]any{
			"conversation_id": conv.ID,
			"reader_id":       actor.ID,
			"read_at":         now,
		},
	})
	return nil
}

// DeleteConversation deactivates the thread. History stays in place; the
// conversation just stops accepting messages and drops out of listings.
func (s *service) DeleteConversation(ctx context.Context, actor types.Actor, conversationID uuid.UUID) error {
	conv, err := s.loadMemberConversation(ctx, actor, conversationID)
	if err != nil {
		return err
	}
	if conv.Type != enums.ConversationTypeDirect && !actor.IsAdmin() {
		return pkgerrors.New(pkgerrors.CodeForbidden, "only admins can delete group conversations")
	}
	if !conv.IsActive {
		return nil
	}

	if err := s.repo.Deactivate(ctx, conv.ID); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "delete conversation")
	}
	return nil
}

func (s *service) ListContacts(ctx context.Context, actor types.Actor, search string, params pagination.Params) (*ContactListResult, error) {
	active := true
	self := actor.ID
	found, total, err := s.users.ListByCompany(ctx, actor.CompanyID, users.ListFilter{
		IsActive:  &active,
		Search:    search,
		ExcludeID: &self,
	}, params)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "list contacts")
	}

	dtos := make([]users.UserDTO, 0, len(found))
	for i := range found {
		dtos = append(dtos, *users.FromModel(&found[i]))
	}
	return &ContactListResult{
		Users: dtos,
		Page:  pagination.BuildPage(params, total),
	}, nil
}

func (s *service) TotalUnread(ctx context.Context, actor types.Actor) (int64, error) {
	total, err := s.repo.TotalUnread(ctx, actor.ID)
	if err != nil {
		return 0, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "total unread")
	}
	return total, nil
}

func (s *service) IsParticipant(ctx context.Context, conversationID, userID uuid.UUID) (bool, error) {
	_, err := s.repo.Participant(ctx, conversationID, userID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return false, nil
		}
		return false, err
	}
	return true, nil
}

func (s *service) loadMemberConversation(ctx context.Context, actor types.Actor, id uuid.UUID) (*models.Conversation, error) {
	conv, err := s.repo.FindConversation(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "conversation not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "lookup conversation")
	}
	if !actor.CanAccessCompany(conv.CompanyID) {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "conversation not found")
	}
	for _, p := range conv.Participants {
		if p.UserID == actor.ID {
			return conv, nil
		}
	}
	return nil, pkgerrors.New(pkgerrors.CodeForbidden, "not a conversation participant")
}

func (s *service) participantNames(ctx context.Context, convs []models.Conversation) (map[uuid.UUID]string, error) {
	seen := map[uuid.UUID]struct{}{}
	var ids []uuid.UUID
	for i := range convs {
		for _, p := range convs[i].Participants {
			if _, ok := seen[p.UserID]; !ok {
				seen[p.UserID] = struct{}{}
				ids = append(ids, p.UserID)
			}
		}
	}

	members, err := s.users.FindByIDs(ctx, ids)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "lookup participants")
	}

	names := make(map[uuid.UUID]string, len(members))
	for _, m := range members {
		names[m.ID] = m.Name
	}
	return names, nil
}

func dedupeWithActor(actorID uuid.UUID, ids []uuid.UUID) []uuid.UUID {
	seen := map[uuid.UUID]struct{}{actorID: {}}
	out := []uuid.UUID{actorID}
	for _, id := range ids {
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}

func otherParticipantIDs(conv *models.Conversation, exclude uuid.UUID) []uuid.UUID {
	var out []uuid.UUID
	for _, p := range conv.Participants {
		if p.UserID != exclude {
			out = append(out, p.UserID)
		}
	}
	return out
}
