package controllers

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/ramikart/ramikart-backend/api/responses"
	"github.com/ramikart/ramikart-backend/internal/chat"
	"github.com/ramikart/ramikart-backend/internal/presence"
	"github.com/ramikart/ramikart-backend/internal/realtime"
	"github.com/ramikart/ramikart-backend/pkg/config"
	pkgerrors "github.com/ramikart/ramikart-backend/pkg/errors"
	"github.com/ramikart/ramikart-backend/pkg/logger"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	// access is gated by the bearer token, not the Origin header
	CheckOrigin: func(r *http.Request) bool { return true },
}

// WebSocket upgrades the connection and runs the read/write pumps until the
// client goes away. Presence transitions are announced on first and last
// connection per user.
func WebSocket(hub *realtime.Hub, presenceSvc *presence.Service, chatSvc chat.Service, cfg config.RealtimeConfig, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if hub == nil || presenceSvc == nil || chatSvc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "realtime service unavailable"))
			return
		}

		userID, _, err := actorFromRequest(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			// Upgrade already wrote the handshake failure
			if logg != nil {
				logg.Error(r.Context(), "websocket upgrade failed", err)
			}
			return
		}

		ctx := r.Context()
		if logg != nil {
			ctx = logg.WithUserID(ctx, userID.String())
		}

		router := &frameRouter{chat: chatSvc, logg: logg}
		client := realtime.NewClient(hub, conn, userID, router, cfg, logg)
		if logg != nil {
			ctx = logg.WithConnectionID(ctx, client.ID)
		}

		hub.Register(client)
		presenceSvc.HandleConnect(ctx, userID, client.ID)

		client.Send(ctx, realtime.ServerFrame{
			Type:    realtime.EventOnlineUsers,
			Payload: realtime.OnlineUsersPayload{UserIDs: presenceSvc.Online()},
		})

		go client.WritePump(ctx)
		client.ReadPump(ctx)

		hub.Unregister(client)
		presenceSvc.HandleDisconnect(ctx, userID, client.ID)
	}
}

// frameRouter dispatches inbound websocket frames to the chat service.
type frameRouter struct {
	chat chat.Service
	logg *logger.Logger
}

func (f *frameRouter) HandleFrame(ctx context.Context, client *realtime.Client, frame realtime.ClientFrame) {
	switch frame.Type {
	case realtime.FrameSendMessage:
		var input chat.SendMessageInput
		if err := json.Unmarshal(frame.Payload, &input); err != nil {
			f.sendError(ctx, client, frame.Ref, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid sendMessage payload"))
			return
		}
		input.Ref = frame.Ref
		if _, err := f.chat.SendMessage(ctx, client.UserID, input); err != nil {
			f.sendError(ctx, client, frame.Ref, err)
		}
	case realtime.FrameMarkRead:
		var payload struct {
			ConversationID uuid.UUID `json:"conversationId"`
		}
		if err := json.Unmarshal(frame.Payload, &payload); err != nil {
			f.sendError(ctx, client, frame.Ref, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid markRead payload"))
			return
		}
		if _, err := f.chat.MarkRead(ctx, client.UserID, payload.ConversationID); err != nil {
			f.sendError(ctx, client, frame.Ref, err)
		}
	case realtime.FrameTyping:
		var payload struct {
			ConversationID uuid.UUID `json:"conversationId"`
			IsTyping       bool      `json:"isTyping"`
		}
		if err := json.Unmarshal(frame.Payload, &payload); err != nil {
			f.sendError(ctx, client, frame.Ref, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid typing payload"))
			return
		}
		if err := f.chat.Typing(ctx, client.UserID, payload.ConversationID, payload.IsTyping); err != nil {
			f.sendError(ctx, client, frame.Ref, err)
		}
	default:
		f.sendError(ctx, client, frame.Ref, pkgerrors.New(pkgerrors.CodeValidation, "unknown frame type"))
	}
}

func (f *frameRouter) sendError(ctx context.Context, client *realtime.Client, ref string, err error) {
	typed := pkgerrors.As(err)
	if typed == nil {
		typed = pkgerrors.Wrap(pkgerrors.CodeInternal, err, "unexpected error")
	}
	client.Send(ctx, realtime.ServerFrame{
		Type: realtime.EventError,
		Ref:  ref,
		Payload: map[string]string{
			"code":    string(typed.Code()),
			"message": typed.Message(),
		},
	})
}
