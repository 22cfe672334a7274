package chat

import (
	"context"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/ramikart/ramikart-backend/internal/realtime"
	"github.com/ramikart/ramikart-backend/pkg/db/models"
	pkgerrors "github.com/ramikart/ramikart-backend/pkg/errors"
	"github.com/ramikart/ramikart-backend/pkg/pagination"
)

const previewMaxLen = 120

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

// Pusher delivers a frame to every live connection of a user. Delivery is
// best effort; offline users simply miss the push and catch up over HTTP.
type Pusher interface {
	Push(ctx context.Context, userID uuid.UUID, frame realtime.ServerFrame)
}

// Service owns direct-message conversations and their delivery fan-out.
type Service interface {
	StartConversation(ctx context.Context, actorID, otherID uuid.UUID) (*models.Conversation, error)
	ListConversations(ctx context.Context, actorID uuid.UUID, params pagination.Params) ([]ConversationView, string, error)
	GetConversation(ctx context.Context, actorID, id uuid.UUID) (*models.Conversation, error)
	SendMessage(ctx context.Context, actorID uuid.UUID, input SendMessageInput) (*models.Message, error)
	ListMessages(ctx context.Context, actorID, conversationID uuid.UUID, params pagination.Params) ([]models.Message, string, error)
	MarkRead(ctx context.Context, actorID, conversationID uuid.UUID) (int64, error)
	Typing(ctx context.Context, actorID, conversationID uuid.UUID, isTyping bool) error
}

type service struct {
	repo   Repository
	tx     txRunner
	pusher Pusher
}

// NewService wires the chat service.
func NewService(repo Repository, tx txRunner, pusher Pusher) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("chat repository required")
	}
	if tx == nil {
		return nil, fmt.Errorf("transaction runner required")
	}
	if pusher == nil {
		return nil, fmt.Errorf("pusher required")
	}
	return &service{repo: repo, tx: tx, pusher: pusher}, nil
}

func (s *service) StartConversation(ctx context.Context, actorID, otherID uuid.UUID) (*models.Conversation, error) {
	if actorID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "user identity missing")
	}
	if otherID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "user id required")
	}
	if actorID == otherID {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "cannot start a conversation with yourself")
	}

	users, err := s.repo.FindUsersByID(ctx, []uuid.UUID{otherID})
	if err != nil {
		return nil, err
	}
	if _, ok := users[otherID]; !ok {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "user not found")
	}

	existing, err := s.repo.FindConversationByPair(ctx, actorID, otherID)
	if err == nil {
		return existing, nil
	}
	if !pkgerrors.HasCode(err, pkgerrors.CodeNotFound) {
		return nil, err
	}

	first, second := models.NormalizePair(actorID, otherID)
	conversation := &models.Conversation{UserAID: first, UserBID: second}
	if err := s.repo.CreateConversation(ctx, conversation); err != nil {
		// Two first messages raced; the unique pair index caught it, so the
		// winner's row is the conversation for both.
		if pkgerrors.HasCode(err, pkgerrors.CodeConflict) {
			return s.repo.FindConversationByPair(ctx, actorID, otherID)
		}
		return nil, err
	}
	return conversation, nil
}

func (s *service) ListConversations(ctx context.Context, actorID uuid.UUID, params pagination.Params) ([]ConversationView, string, error) {
	if actorID == uuid.Nil {
		return nil, "", pkgerrors.New(pkgerrors.CodeUnauthorized, "user identity missing")
	}
	limit := pagination.NormalizeLimit(params.Limit)
	cursor, err := pagination.ParseCursor(params.Cursor)
	if err != nil {
		return nil, "", err
	}

	conversations, err := s.repo.ListConversations(ctx, actorID, pagination.LimitWithBuffer(limit), cursor)
	if err != nil {
		return nil, "", err
	}

	next := ""
	if len(conversations) > limit {
		conversations = conversations[:limit]
		last := conversations[len(conversations)-1]
		next = pagination.EncodeCursor(pagination.Cursor{CreatedAt: last.UpdatedAt, ID: last.ID})
	}

	ids := make([]uuid.UUID, 0, len(conversations))
	counterpartIDs := make([]uuid.UUID, 0, len(conversations))
	for _, c := range conversations {
		ids = append(ids, c.ID)
		counterpartIDs = append(counterpartIDs, c.OtherParticipant(actorID))
	}

	unread, err := s.repo.UnreadCounts(ctx, ids, actorID)
	if err != nil {
		return nil, "", err
	}
	users, err := s.repo.FindUsersByID(ctx, counterpartIDs)
	if err != nil {
		return nil, "", err
	}

	views := make([]ConversationView, 0, len(conversations))
	for _, c := range conversations {
		view := ConversationView{
			ID:            c.ID,
			LastMessageAt: c.LastMessageAt,
			UnreadCount:   unread[c.ID],
			CreatedAt:     c.CreatedAt,
			UpdatedAt:     c.UpdatedAt,
		}
		if c.LastMessage != nil {
			view.LastMessage = *c.LastMessage
		}
		counterpartID := c.OtherParticipant(actorID)
		view.Counterpart = Participant{ID: counterpartID}
		if user, ok := users[counterpartID]; ok {
			view.Counterpart.DisplayName = user.DisplayName
			if user.AvatarURL != nil {
				view.Counterpart.AvatarURL = *user.AvatarURL
			}
		}
		views = append(views, view)
	}
	return views, next, nil
}

func (s *service) GetConversation(ctx context.Context, actorID, id uuid.UUID) (*models.Conversation, error) {
	conversation, err := s.repo.FindConversationByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if !conversation.HasParticipant(actorID) {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "not a participant of this conversation")
	}
	return conversation, nil
}

func (s *service) SendMessage(ctx context.Context, actorID uuid.UUID, input SendMessageInput) (*models.Message, error) {
	content := strings.TrimSpace(input.Content)
	if content == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "message content required")
	}
	if len(content) > 2000 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "message content too long")
	}

	conversation, err := s.GetConversation(ctx, actorID, input.ConversationID)
	if err != nil {
		return nil, err
	}

	message := &models.Message{
		ConversationID: conversation.ID,
		SenderID:       actorID,
		Content:        content,
	}
	err = s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		if err := repo.CreateMessage(ctx, message); err != nil {
			return err
		}
		return repo.TouchConversation(ctx, conversation.ID, preview(content), time.Now().UTC())
	})
	if err != nil {
		return nil, err
	}

	s.pusher.Push(ctx, conversation.OtherParticipant(actorID), realtime.ServerFrame{
		Type:    realtime.EventNewMessage,
		Payload: message,
	})
	// Every connection of the sender learns about the send, so other devices
	// can render the message without a refetch. This holds for HTTP sends too.
	s.pusher.Push(ctx, actorID, realtime.ServerFrame{
		Type:    realtime.EventMessageSent,
		Ref:     input.Ref,
		Payload: message,
	})
	return message, nil
}

func (s *service) ListMessages(ctx context.Context, actorID, conversationID uuid.UUID, params pagination.Params) ([]models.Message, string, error) {
	if _, err := s.GetConversation(ctx, actorID, conversationID); err != nil {
		return nil, "", err
	}
	limit := pagination.NormalizeLimit(params.Limit)
	cursor, err := pagination.ParseCursor(params.Cursor)
	if err != nil {
		return nil, "", err
	}

	messages, err := s.repo.ListMessages(ctx, conversationID, pagination.LimitWithBuffer(limit), cursor)
	if err != nil {
		return nil, "", err
	}

	next := ""
	if len(messages) > limit {
		messages = messages[:limit]
		last := messages[len(messages)-1]
		next = pagination.EncodeCursor(pagination.Cursor{CreatedAt: last.CreatedAt, ID: last.ID})
	}

	// Storage order is newest-first for paging; readers get oldest-first.
	for i, j := 0, len(messages)-1; i < j; i, j = i+1, j-1 {
		messages[i], messages[j] = messages[j], messages[i]
	}
	return messages, next, nil
}

func (s *service) MarkRead(ctx context.Context, actorID, conversationID uuid.UUID) (int64, error) {
	conversation, err := s.GetConversation(ctx, actorID, conversationID)
	if err != nil {
		return 0, err
	}

	count, err := s.repo.MarkRead(ctx, conversationID, actorID)
	if err != nil {
		return 0, err
	}
	if count > 0 {
		s.pusher.Push(ctx, conversation.OtherParticipant(actorID), realtime.ServerFrame{
			Type: realtime.EventMessagesRead,
			Payload: MessagesReadPayload{
				ConversationID: conversationID,
				ReaderID:       actorID,
				Count:          count,
			},
		})
	}
	return count, nil
}

func (s *service) Typing(ctx context.Context, actorID, conversationID uuid.UUID, isTyping bool) error {
	conversation, err := s.GetConversation(ctx, actorID, conversationID)
	if err != nil {
		return err
	}

	s.pusher.Push(ctx, conversation.OtherParticipant(actorID), realtime.ServerFrame{
		Type: realtime.EventTyping,
		Payload: TypingPayload{
			ConversationID: conversationID,
			UserID:         actorID,
			IsTyping:       isTyping,
		},
	})
	return nil
}

func preview(content string) string {
	if len(content) <= previewMaxLen {
		return content
	}
	cut := previewMaxLen
	// Back up to a rune boundary so the preview stays valid UTF-8.
	for cut > 0 && !utf8.RuneStart(content[cut]) {
		cut--
	}
	return content[:cut]
}
