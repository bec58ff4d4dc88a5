package chat

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
	"gorm.io/gorm"

	"github.com/Hazher89/oppdrag-app/internal/realtime"
	"github.com/Hazher89/oppdrag-app/internal/users"
	"github.com/Hazher89/oppdrag-app/pkg/db/models"
	"github.com/Hazher89/oppdrag-app/pkg/enums"
	pkgerrors "github.com/Hazher89/oppdrag-app/pkg/errors"
	"github.com/Hazher89/oppdrag-app/pkg/pagination"
	"github.com/Hazher89/oppdrag-app/pkg/types"
)

type fakeChatRepo struct {
	createErr     error
	created       *models.Conversation
	direct        *models.Conversation
	conversations map[uuid.UUID]*models.Conversation
	unreadTotal   int64
	participants  map[string]*models.ConversationParticipant
	deactivated   []uuid.UUID
	reactivated   []uuid.UUID
	messages      []*models.Message
	resets        []uuid.UUID
	marked        []uuid.UUID
	touched       int
}

func newFakeChatRepo() *fakeChatRepo {
	return &fakeChatRepo{
		conversations: map[uuid.UUID]*models.Conversation{},
		participants:  map[string]*models.ConversationParticipant{},
	}
}

func participantKey(conversationID, userID uuid.UUID) string {
	return conversationID.String() + "/" + userID.String()
}

func (f *fakeChatRepo) WithTx(tx *gorm.DB) txChatRepository {
	return f
}

func (f *fakeChatRepo) CreateConversation(ctx context.Context, conv *models.Conversation) error {
	if f.createErr != nil {
		return f.createErr
	}
	if conv.ID == uuid.Nil {
		conv.ID = uuid.New()
	}
	f.created = conv
	f.conversations[conv.ID] = conv
	return nil
}

func (f *fakeChatRepo) FindConversation(ctx context.Context, id uuid.UUID) (*models.Conversation, error) {
	conv, ok := f.conversations[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	return conv, nil
}

func (f *fakeChatRepo) FindDirectByKey(ctx context.Context, key string) (*models.Conversation, error) {
	if f.direct == nil {
		return nil, gorm.ErrRecordNotFound
	}
	return f.direct, nil
}

func (f *fakeChatRepo) ListByUser(ctx context.Context, userID uuid.UUID, params pagination.Params) ([]models.Conversation, int64, error) {
	var out []models.Conversation
	for _, conv := range f.conversations {
		out = append(out, *conv)
	}
	return out, int64(len(out)), nil
}

func (f *fakeChatRepo) CreateMessage(ctx context.Context, msg *models.Message) error {
	if msg.ID == uuid.Nil {
		msg.ID = uuid.New()
	}
	f.messages = append(f.messages, msg)
	return nil
}

func (f *fakeChatRepo) TouchLastMessage(ctx context.Context, conversationID uuid.UUID, content string, senderID uuid.UUID, at time.Time) error {
	f.touched++
	if conv, ok := f.conversations[conversationID]; ok {
		conv.LastMessageContent = &content
		conv.LastMessageSenderID = &senderID
		conv.LastMessageAt = &at
	}
	return nil
}

func (f *fakeChatRepo) IncrementUnread(ctx context.Context, conversationID, senderID uuid.UUID) error {
	for _, p := range f.participants {
		if p.ConversationID == conversationID && p.UserID != senderID {
			p.UnreadCount++
		}
	}
	return nil
}

func (f *fakeChatRepo) ResetUnread(ctx context.Context, conversationID, userID uuid.UUID) error {
	f.resets = append(f.resets, conversationID)
	if p, ok := f.participants[participantKey(conversationID, userID)]; ok {
		p.UnreadCount = 0
	}
	return nil
}

func (f *fakeChatRepo) MarkMessagesRead(ctx context.Context, conversationID, readerID uuid.UUID, at time.Time) error {
	f.marked = append(f.marked, conversationID)
	return nil
}

func (f *fakeChatRepo) ListMessages(ctx context.Context, conversationID uuid.UUID, params pagination.Params) ([]models.Message, int64, error) {
	return nil, 0, nil
}

func (f *fakeChatRepo) Participant(ctx context.Context, conversationID, userID uuid.UUID) (*models.ConversationParticipant, error) {
	p, ok := f.participants[participantKey(conversationID, userID)]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	return p, nil
}

func (f *fakeChatRepo) TotalUnread(ctx context.Context, userID uuid.UUID) (int64, error) {
	return f.unreadTotal, nil
}

func (f *fakeChatRepo) Deactivate(ctx context.Context, conversationID uuid.UUID) error {
	if conv, ok := f.conversations[conversationID]; ok {
		conv.IsActive = false
	}
	f.deactivated = append(f.deactivated, conversationID)
	return nil
}

func (f *fakeChatRepo) Reactivate(ctx context.Context, conversationID uuid.UUID) error {
	if conv, ok := f.conversations[conversationID]; ok {
		conv.IsActive = true
	}
	if f.direct != nil && f.direct.ID == conversationID {
		f.direct.IsActive = true
	}
	f.reactivated = append(f.reactivated, conversationID)
	return nil
}

type fakeChatUsers struct {
	byID map[uuid.UUID]*models.User
}

func (f *fakeChatUsers) FindByID(ctx context.Context, id uuid.UUID) (*models.User, error) {
	user, ok := f.byID[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	return user, nil
}

func (f *fakeChatUsers) FindByIDs(ctx context.Context, ids []uuid.UUID) ([]models.User, error) {
	var out []models.User
	for _, id := range ids {
		if user, ok := f.byID[id]; ok {
			out = append(out, *user)
		}
	}
	return out, nil
}

func (f *fakeChatUsers) ListByCompany(ctx context.Context, companyID string, filter users.ListFilter, params pagination.Params) ([]models.User, int64, error) {
	var out []models.User
	for _, user := range f.byID {
		if user.CompanyID != companyID {
			continue
		}
		if filter.ExcludeID != nil && user.ID == *filter.ExcludeID {
			continue
		}
		out = append(out, *user)
	}
	return out, int64(len(out)), nil
}

type fakeTxRunner struct{}

func (fakeTxRunner) WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error {
	return fn(nil)
}

type fanOut struct {
	userEvents     []realtime.Event
	roomEvents     []realtime.Event
	combinedEvents []realtime.Event
}

func (f *fanOut) PublishToUsers(userIDs []uuid.UUID, event realtime.Event) {
	f.userEvents = append(f.userEvents, event)
}

func (f *fanOut) PublishToConversation(roomID uuid.UUID, event realtime.Event) {
	f.roomEvents = append(f.roomEvents, event)
}

func (f *fanOut) PublishToConversationAndUsers(roomID uuid.UUID, userIDs []uuid.UUID, event realtime.Event) {
	f.combinedEvents = append(f.combinedEvents, event)
}

func chatActor(id uuid.UUID, companyID string) types.Actor {
	return types.Actor{ID: id, Role: enums.UserRoleDriver, CompanyID: companyID, Name: "Ola"}
}

func companyUser(id uuid.UUID, companyID, name string) *models.User {
	return &models.User{ID: id, Name: name, CompanyID: companyID, Role: enums.UserRoleDriver, IsActive: true}
}

func buildChatService(t *testing.T, repo *fakeChatRepo, users *fakeChatUsers) (Service, *fanOut) {
	t.Helper()
	events := &fanOut{}
	svc, err := NewService(ServiceParams{
		Repo:   repo,
		Users:  users,
		Tx:     fakeTxRunner{},
		Events: events,
	})
	if err != nil {
		t.Fatalf("new service: %v", err)
	}
	return svc, events
}

func TestDirectKeyIsOrderIndependent(t *testing.T) {
	a, b := uuid.New(), uuid.New()
	if DirectKey(a, b) != DirectKey(b, a) {
		t.Fatal("expected identical key regardless of argument order")
	}
}

func TestCreateDirectConversationSetsKey(t *testing.T) {
	me := uuid.New()
	other := uuid.New()
	repo := newFakeChatRepo()
	users := &fakeChatUsers{byID: map[uuid.UUID]*models.User{
		me:    companyUser(me, "acme", "Ola"),
		other: companyUser(other, "acme", "Kari"),
	}}
	svc, events := buildChatService(t, repo, users)

	conv, err := svc.CreateConversation(context.Background(), chatActor(me, "acme"), CreateConversationInput{
		Type:           "direct",
		ParticipantIDs: []uuid.UUID{other},
	})
	if err != nil {
		t.Fatalf("create conversation: %v", err)
	}
	if repo.created.DirectKey == nil || *repo.created.DirectKey != DirectKey(me, other) {
		t.Fatalf("expected direct key %q got %+v", DirectKey(me, other), repo.created.DirectKey)
	}
	if len(conv.Participants) != 2 {
		t.Fatalf("expected two participants got %d", len(conv.Participants))
	}
	if len(events.userEvents) != 1 || events.userEvents[0].Type != realtime.EventConversationCreated {
		t.Fatalf("expected conversation.created fan-out got %+v", events.userEvents)
	}
}

func TestCreateDirectConversationAdoptsExistingOnConflict(t *testing.T) {
	me := uuid.New()
	other := uuid.New()
	key := DirectKey(me, other)
	existing := &models.Conversation{
		ID:        uuid.New(),
		Type:      enums.ConversationTypeDirect,
		CompanyID: "acme",
		DirectKey: &key,
		IsActive:  true,
		Participants: []models.ConversationParticipant{
			{UserID: me},
			{UserID: other},
		},
	}

	repo := newFakeChatRepo()
	repo.createErr = &pgconn.PgError{Code: "23505", ConstraintName: "idx_conversations_direct_key"}
	repo.direct = existing

	users := &fakeChatUsers{byID: map[uuid.UUID]*models.User{
		me:    companyUser(me, "acme", "Ola"),
		other: companyUser(other, "acme", "Kari"),
	}}
	svc, events := buildChatService(t, repo, users)

	conv, err := svc.CreateConversation(context.Background(), chatActor(me, "acme"), CreateConversationInput{
		Type:           "direct",
		ParticipantIDs: []uuid.UUID{other},
	})
	if err != nil {
		t.Fatalf("expected adoption of existing conversation, got %v", err)
	}
	if conv.ID != existing.ID {
		t.Fatalf("expected existing conversation id %s got %s", existing.ID, conv.ID)
	}
	if len(events.userEvents) != 0 {
		t.Fatal("expected no fan-out when adopting the winner's row")
	}
}

func TestCreateDirectConversationNeedsExactlyTwo(t *testing.T) {
	me := uuid.New()
	repo := newFakeChatRepo()
	svc, _ := buildChatService(t, repo, &fakeChatUsers{byID: map[uuid.UUID]*models.User{}})

	_, err := svc.CreateConversation(context.Background(), chatActor(me, "acme"), CreateConversationInput{
		Type:           "direct",
		ParticipantIDs: []uuid.UUID{uuid.New(), uuid.New()},
	})
	typed := pkgerrors.As(err)
	if typed == nil || typed.Code() != pkgerrors.CodeValidation {
		t.Fatalf("expected validation error got %v", err)
	}
}

func TestCreateConversationRejectsForeignParticipants(t *testing.T) {
	me := uuid.New()
	outsider := uuid.New()
	repo := newFakeChatRepo()
	users := &fakeChatUsers{byID: map[uuid.UUID]*models.User{
		me:       companyUser(me, "acme", "Ola"),
		outsider: companyUser(outsider, "rival", "Per"),
	}}
	svc, _ := buildChatService(t, repo, users)

	_, err := svc.CreateConversation(context.Background(), chatActor(me, "acme"), CreateConversationInput{
		Type:           "direct",
		ParticipantIDs: []uuid.UUID{outsider},
	})
	typed := pkgerrors.As(err)
	if typed == nil || typed.Code() != pkgerrors.CodeValidation {
		t.Fatalf("expected validation error got %v", err)
	}
}

func TestGetConversationRequiresMembership(t *testing.T) {
	member := uuid.New()
	stranger := uuid.New()
	conv := &models.Conversation{
		ID:        uuid.New(),
		Type:      enums.ConversationTypeGroup,
		CompanyID: "acme",
		IsActive:  true,
		Participants: []models.ConversationParticipant{
			{UserID: member},
		},
	}
	repo := newFakeChatRepo()
	repo.conversations[conv.ID] = conv
	users := &fakeChatUsers{byID: map[uuid.UUID]*models.User{
		member: companyUser(member, "acme", "Ola"),
	}}
	svc, _ := buildChatService(t, repo, users)

	if _, err := svc.GetConversation(context.Background(), chatActor(member, "acme"), conv.ID); err != nil {
		t.Fatalf("member lookup: %v", err)
	}

	_, err := svc.GetConversation(context.Background(), chatActor(stranger, "acme"), conv.ID)
	typed := pkgerrors.As(err)
	if typed == nil || typed.Code() != pkgerrors.CodeForbidden {
		t.Fatalf("expected forbidden got %v", err)
	}

	_, err = svc.GetConversation(context.Background(), chatActor(member, "rival"), conv.ID)
	typed = pkgerrors.As(err)
	if typed == nil || typed.Code() != pkgerrors.CodeNotFound {
		t.Fatalf("expected cross-company lookup to report not found got %v", err)
	}
}

func TestIsParticipant(t *testing.T) {
	convID := uuid.New()
	userID := uuid.New()
	repo := newFakeChatRepo()
	repo.participants[participantKey(convID, userID)] = &models.ConversationParticipant{UserID: userID}
	svc, _ := buildChatService(t, repo, &fakeChatUsers{byID: map[uuid.UUID]*models.User{}})

	ok, err := svc.IsParticipant(context.Background(), convID, userID)
	if err != nil || !ok {
		t.Fatalf("expected participant, got ok=%v err=%v", ok, err)
	}

	ok, err = svc.IsParticipant(context.Background(), convID, uuid.New())
	if err != nil || ok {
		t.Fatalf("expected non-participant, got ok=%v err=%v", ok, err)
	}
}

func TestTotalUnread(t *testing.T) {
	repo := newFakeChatRepo()
	repo.unreadTotal = 7
	svc, _ := buildChatService(t, repo, &fakeChatUsers{byID: map[uuid.UUID]*models.User{}})

	total, err := svc.TotalUnread(context.Background(), chatActor(uuid.New(), "acme"))
	if err != nil {
		t.Fatalf("total unread: %v", err)
	}
	if total != 7 {
		t.Fatalf("expected 7 got %d", total)
	}
}

func TestDeleteConversation(t *testing.T) {
	member := uuid.New()
	direct := &models.Conversation{
		ID:        uuid.New(),
		Type:      enums.ConversationTypeDirect,
		CompanyID: "acme",
		IsActive:  true,
		Participants: []models.ConversationParticipant{
			{UserID: member},
		},
	}
	group := &models.Conversation{
		ID:        uuid.New(),
		Type:      enums.ConversationTypeGroup,
		CompanyID: "acme",
		IsActive:  true,
		Participants: []models.ConversationParticipant{
			{UserID: member},
		},
	}
	repo := newFakeChatRepo()
	repo.conversations[direct.ID] = direct
	repo.conversations[group.ID] = group
	svc, _ := buildChatService(t, repo, &fakeChatUsers{byID: map[uuid.UUID]*models.User{}})

	if err := svc.DeleteConversation(context.Background(), chatActor(member, "acme"), direct.ID); err != nil {
		t.Fatalf("delete direct: %v", err)
	}
	if len(repo.deactivated) != 1 || repo.deactivated[0] != direct.ID {
		t.Fatalf("expected direct conversation deactivated got %v", repo.deactivated)
	}
	// Repeating the delete is a no-op.
	if err := svc.DeleteConversation(context.Background(), chatActor(member, "acme"), direct.ID); err != nil {
		t.Fatalf("repeat delete: %v", err)
	}
	if len(repo.deactivated) != 1 {
		t.Fatalf("expected no second deactivation got %v", repo.deactivated)
	}

	err := svc.DeleteConversation(context.Background(), chatActor(member, "acme"), group.ID)
	typed := pkgerrors.As(err)
	if typed == nil || typed.Code() != pkgerrors.CodeForbidden {
		t.Fatalf("expected forbidden for group delete by driver got %v", err)
	}

	admin := types.Actor{ID: member, Role: enums.UserRoleAdmin, CompanyID: "acme", Name: "Kari"}
	if err := svc.DeleteConversation(context.Background(), admin, group.ID); err != nil {
		t.Fatalf("group delete by admin: %v", err)
	}
}

func TestListContactsExcludesSelf(t *testing.T) {
	me := uuid.New()
	colleague := uuid.New()
	outsider := uuid.New()
	repo := newFakeChatRepo()
	fakeUsers := &fakeChatUsers{byID: map[uuid.UUID]*models.User{
		me:        companyUser(me, "acme", "Ola"),
		colleague: companyUser(colleague, "acme", "Kari"),
		outsider:  companyUser(outsider, "rival", "Per"),
	}}
	svc, _ := buildChatService(t, repo, fakeUsers)

	result, err := svc.ListContacts(context.Background(), chatActor(me, "acme"), "", pagination.Params{Page: 1, Limit: 20})
	if err != nil {
		t.Fatalf("list contacts: %v", err)
	}
	if len(result.Users) != 1 || result.Users[0].ID != colleague {
		t.Fatalf("expected only the colleague got %+v", result.Users)
	}
}

func TestCreateDirectConversationReopensClosedThread(t *testing.T) {
	me := uuid.New()
	other := uuid.New()
	key := DirectKey(me, other)
	closed := &models.Conversation{
		ID:        uuid.New(),
		Type:      enums.ConversationTypeDirect,
		CompanyID: "acme",
		DirectKey: &key,
		IsActive:  false,
		Participants: []models.ConversationParticipant{
			{UserID: me},
			{UserID: other},
		},
	}

	repo := newFakeChatRepo()
	repo.createErr = &pgconn.PgError{Code: "23505", ConstraintName: "idx_conversations_direct_key"}
	repo.direct = closed
	repo.conversations[closed.ID] = closed

	users := &fakeChatUsers{byID: map[uuid.UUID]*models.User{
		me:    companyUser(me, "acme", "Ola"),
		other: companyUser(other, "acme", "Kari"),
	}}
	svc, _ := buildChatService(t, repo, users)

	conv, err := svc.CreateConversation(context.Background(), chatActor(me, "acme"), CreateConversationInput{
		Type:           "direct",
		ParticipantIDs: []uuid.UUID{other},
	})
	if err != nil {
		t.Fatalf("reopen direct conversation: %v", err)
	}
	if conv.ID != closed.ID {
		t.Fatalf("expected the closed conversation id %s got %s", closed.ID, conv.ID)
	}
	if len(repo.reactivated) != 1 || repo.reactivated[0] != closed.ID {
		t.Fatalf("expected conversation reactivated got %v", repo.reactivated)
	}

	// The reopened thread accepts messages again.
	if _, err := svc.SendMessage(context.Background(), chatActor(me, "acme"), closed.ID, SendMessageInput{Content: "hei igjen"}); err != nil {
		t.Fatalf("send after reopen: %v", err)
	}
}

func TestSendMessagePersistsAndPublishesOnce(t *testing.T) {
	me := uuid.New()
	other := uuid.New()
	conv := &models.Conversation{
		ID:        uuid.New(),
		Type:      enums.ConversationTypeDirect,
		CompanyID: "acme",
		IsActive:  true,
		Participants: []models.ConversationParticipant{
			{UserID: me},
			{UserID: other},
		},
	}
	repo := newFakeChatRepo()
	repo.conversations[conv.ID] = conv
	repo.participants[participantKey(conv.ID, me)] = &models.ConversationParticipant{ConversationID: conv.ID, UserID: me}
	repo.participants[participantKey(conv.ID, other)] = &models.ConversationParticipant{ConversationID: conv.ID, UserID: other}
	svc, events := buildChatService(t, repo, &fakeChatUsers{byID: map[uuid.UUID]*models.User{}})

	dto, err := svc.SendMessage(context.Background(), chatActor(me, "acme"), conv.ID, SendMessageInput{Content: "  hei  "})
	if err != nil {
		t.Fatalf("send message: %v", err)
	}
	if dto.Content != "hei" {
		t.Fatalf("expected trimmed content got %q", dto.Content)
	}
	if len(repo.messages) != 1 || repo.messages[0].SenderID != me {
		t.Fatalf("expected one persisted message got %+v", repo.messages)
	}
	if repo.touched != 1 {
		t.Fatalf("expected last-message denormalization got %d", repo.touched)
	}
	if got := repo.participants[participantKey(conv.ID, other)].UnreadCount; got != 1 {
		t.Fatalf("expected recipient unread 1 got %d", got)
	}
	if got := repo.participants[participantKey(conv.ID, me)].UnreadCount; got != 0 {
		t.Fatalf("expected sender unread 0 got %d", got)
	}
	if len(events.combinedEvents) != 1 || events.combinedEvents[0].Type != realtime.EventMessageNew {
		t.Fatalf("expected a single message.new delivery got %+v", events.combinedEvents)
	}
	if len(events.roomEvents) != 0 || len(events.userEvents) != 0 {
		t.Fatal("expected no separate room or user fan-out for new messages")
	}
}

func TestSendMessageRejectsClosedConversation(t *testing.T) {
	me := uuid.New()
	conv := &models.Conversation{
		ID:        uuid.New(),
		Type:      enums.ConversationTypeDirect,
		CompanyID: "acme",
		IsActive:  false,
		Participants: []models.ConversationParticipant{
			{UserID: me},
		},
	}
	repo := newFakeChatRepo()
	repo.conversations[conv.ID] = conv
	svc, _ := buildChatService(t, repo, &fakeChatUsers{byID: map[uuid.UUID]*models.User{}})

	_, err := svc.SendMessage(context.Background(), chatActor(me, "acme"), conv.ID, SendMessageInput{Content: "hei"})
	typed := pkgerrors.As(err)
	if typed == nil || typed.Code() != pkgerrors.CodeStateConflict {
		t.Fatalf("expected state conflict got %v", err)
	}
	if len(repo.messages) != 0 {
		t.Fatalf("expected no message persisted got %+v", repo.messages)
	}
}

func TestMarkReadResetsUnreadAndNotifiesRoom(t *testing.T) {
	me := uuid.New()
	other := uuid.New()
	conv := &models.Conversation{
		ID:        uuid.New(),
		Type:      enums.ConversationTypeDirect,
		CompanyID: "acme",
		IsActive:  true,
		Participants: []models.ConversationParticipant{
			{UserID: me},
			{UserID: other},
		},
	}
	repo := newFakeChatRepo()
	repo.conversations[conv.ID] = conv
	repo.participants[participantKey(conv.ID, me)] = &models.ConversationParticipant{ConversationID: conv.ID, UserID: me, UnreadCount: 4}
	svc, events := buildChatService(t, repo, &fakeChatUsers{byID: map[uuid.UUID]*models.User{}})

	if err := svc.MarkRead(context.Background(), chatActor(me, "acme"), conv.ID); err != nil {
		t.Fatalf("mark read: %v", err)
	}
	if got := repo.participants[participantKey(conv.ID, me)].UnreadCount; got != 0 {
		t.Fatalf("expected unread reset to 0 got %d", got)
	}
	if len(repo.marked) != 1 || repo.marked[0] != conv.ID {
		t.Fatalf("expected messages flagged read got %v", repo.marked)
	}
	if len(events.roomEvents) != 1 || events.roomEvents[0].Type != realtime.EventMessageRead {
		t.Fatalf("expected message.read room event got %+v", events.roomEvents)
	}
}

func TestListMessagesFirstPageMarksRead(t *testing.T) {
	me := uuid.New()
	conv := &models.Conversation{
		ID:        uuid.New(),
		Type:      enums.ConversationTypeDirect,
		CompanyID: "acme",
		IsActive:  true,
		Participants: []models.ConversationParticipant{
			{UserID: me},
		},
	}
	repo := newFakeChatRepo()
	repo.conversations[conv.ID] = conv
	repo.participants[participantKey(conv.ID, me)] = &models.ConversationParticipant{ConversationID: conv.ID, UserID: me, UnreadCount: 2}
	svc, _ := buildChatService(t, repo, &fakeChatUsers{byID: map[uuid.UUID]*models.User{}})

	if _, err := svc.ListMessages(context.Background(), chatActor(me, "acme"), conv.ID, pagination.Params{Page: 1, Limit: 20}); err != nil {
		t.Fatalf("list messages page 1: %v", err)
	}
	if len(repo.resets) != 1 {
		t.Fatalf("expected the first page to reset unread got %v", repo.resets)
	}

	if _, err := svc.ListMessages(context.Background(), chatActor(me, "acme"), conv.ID, pagination.Params{Page: 2, Limit: 20}); err != nil {
		t.Fatalf("list messages page 2: %v", err)
	}
	if len(repo.resets) != 1 {
		t.Fatalf("expected older pages to leave unread alone got %v", repo.resets)
	}
}

func TestConversationFromModelViewerUnread(t *testing.T) {
	viewer := uuid.New()
	other := uuid.New()
	conv := &models.Conversation{
		ID:        uuid.New(),
		Type:      enums.ConversationTypeDirect,
		CompanyID: "acme",
		Participants: []models.ConversationParticipant{
			{UserID: viewer, UnreadCount: 3},
			{UserID: other, UnreadCount: 9},
		},
	}

	dto := ConversationFromModel(conv, viewer, map[uuid.UUID]string{viewer: "Ola", other: "Kari"})
	if dto.UnreadCount != 3 {
		t.Fatalf("expected viewer unread 3 got %d", dto.UnreadCount)
	}
	if dto.Participants[1].Name != "Kari" {
		t.Fatalf("expected participant names resolved got %+v", dto.Participants)
	}
}
