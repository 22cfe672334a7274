package controllers

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/ramikart/ramikart-backend/api/middleware"
	"github.com/ramikart/ramikart-backend/internal/chat"
	"github.com/ramikart/ramikart-backend/pkg/db/models"
	"github.com/ramikart/ramikart-backend/pkg/pagination"
)

type stubChatService struct {
	sent       *chat.SendMessageInput
	markedRead uuid.UUID
}

func (s *stubChatService) StartConversation(ctx context.Context, actorID, otherID uuid.UUID) (*models.Conversation, error) {
	return &models.Conversation{ID: uuid.New()}, nil
}

func (s *stubChatService) ListConversations(ctx context.Context, actorID uuid.UUID, params pagination.Params) ([]chat.ConversationView, string, error) {
	return nil, "", nil
}

func (s *stubChatService) GetConversation(ctx context.Context, actorID, id uuid.UUID) (*models.Conversation, error) {
	return &models.Conversation{ID: id}, nil
}

func (s *stubChatService) SendMessage(ctx context.Context, actorID uuid.UUID, input chat.SendMessageInput) (*models.Message, error) {
	s.sent = &input
	return &models.Message{ID: uuid.New(), ConversationID: input.ConversationID, SenderID: actorID, Content: input.Content}, nil
}

func (s *stubChatService) ListMessages(ctx context.Context, actorID, conversationID uuid.UUID, params pagination.Params) ([]models.Message, string, error) {
	return nil, "", nil
}

func (s *stubChatService) MarkRead(ctx context.Context, actorID, conversationID uuid.UUID) (int64, error) {
	s.markedRead = conversationID
	return 3, nil
}

func (s *stubChatService) Typing(ctx context.Context, actorID, conversationID uuid.UUID, isTyping bool) error {
	return nil
}

func TestConversationSendMessage(t *testing.T) {
	logg := testControllerLogger()
	conversationID := uuid.New()

	makeCtx := func() context.Context {
		ctx := middleware.WithUserID(context.Background(), uuid.NewString())
		routeCtx := chi.NewRouteContext()
		routeCtx.URLParams.Add("conversationId", conversationID.String())
		return context.WithValue(ctx, chi.RouteCtxKey, routeCtx)
	}

	t.Run("rejects empty content", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodPost, "/api/v1/conversations/"+conversationID.String()+"/messages", strings.NewReader(`{"content":""}`))
		req = req.WithContext(makeCtx())
		rec := httptest.NewRecorder()
		ConversationSendMessage(&stubChatService{}, logg).ServeHTTP(rec, req)
		if rec.Code != http.StatusBadRequest {
			t.Fatalf("expected 400 got %d", rec.Code)
		}
	})

	t.Run("success", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodPost, "/api/v1/conversations/"+conversationID.String()+"/messages", strings.NewReader(`{"content":"hello"}`))
		req = req.WithContext(makeCtx())
		stub := &stubChatService{}
		rec := httptest.NewRecorder()
		ConversationSendMessage(stub, logg).ServeHTTP(rec, req)
		if rec.Code != http.StatusCreated {
			t.Fatalf("expected 201 got %d: %s", rec.Code, rec.Body.String())
		}
		if stub.sent == nil || stub.sent.ConversationID != conversationID || stub.sent.Content != "hello" {
			t.Fatalf("unexpected input forwarded: %+v", stub.sent)
		}
	})
}

func TestConversationMarkRead(t *testing.T) {
	logg := testControllerLogger()
	conversationID := uuid.New()
	ctx := middleware.WithUserID(context.Background(), uuid.NewString())
	routeCtx := chi.NewRouteContext()
	routeCtx.URLParams.Add("conversationId", conversationID.String())
	ctx = context.WithValue(ctx, chi.RouteCtxKey, routeCtx)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/conversations/"+conversationID.String()+"/read", nil)
	req = req.WithContext(ctx)
	stub := &stubChatService{}
	rec := httptest.NewRecorder()
	ConversationMarkRead(stub, logg).ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d: %s", rec.Code, rec.Body.String())
	}
	if stub.markedRead != conversationID {
		t.Fatalf("expected mark read for %s got %s", conversationID, stub.markedRead)
	}
	if !strings.Contains(rec.Body.String(), `"markedRead":3`) {
		t.Fatalf("expected marked count in body, got %s", rec.Body.String())
	}
}
