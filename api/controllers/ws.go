package controllers

import (
	"context"
	"net/http"
	"strings"

	"github.com/google/uuid"
	"nhooyr.io/websocket"
	"nhooyr.io/websocket/wsjson"

	"github.com/Hazher89/oppdrag-app/api/middleware"
	"github.com/Hazher89/oppdrag-app/api/responses"
	"github.com/Hazher89/oppdrag-app/internal/chat"
	"github.com/Hazher89/oppdrag-app/internal/realtime"
	pkgAuth "github.com/Hazher89/oppdrag-app/pkg/auth"
	"github.com/Hazher89/oppdrag-app/pkg/config"
	pkgerrors "github.com/Hazher89/oppdrag-app/pkg/errors"
	"github.com/Hazher89/oppdrag-app/pkg/logger"
)

// Websocket upgrades the connection and relays realtime events. The socket
// itself is read-only apart from join/leave frames; all chat writes go
// through the HTTP API.
func Websocket(cfg *config.Config, hub *realtime.Hub, loader middleware.ActorLoader, chatSvc chat.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		// Browsers cannot set Authorization headers on websocket upgrades,
		// so the token rides in the query string.
		token := strings.TrimSpace(r.URL.Query().Get("token"))
		if token == "" {
			token = bearerFromHeader(r)
		}
		if token == "" {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeUnauthorized, "missing credentials"))
			return
		}

		claims, err := pkgAuth.ParseAccessToken(cfg.JWT, token)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeUnauthorized, err, "invalid token"))
			return
		}
		actor, err := middleware.ResolveActor(r.Context(), loader, claims)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{
			OriginPatterns: cfg.App.WebsocketOrigins,
		})
		if err != nil {
			logCtx := logg.WithFields(r.Context(), map[string]any{"user_id": actor.ID.String()})
			logg.Warn(logCtx, "ws.accept.failed")
			return
		}

		client := hub.AddClient(actor.ID, conn)
		defer hub.RemoveClient(client)

		logCtx := logg.WithFields(r.Context(), map[string]any{
			"user_id":    actor.ID.String(),
			"company_id": actor.CompanyID,
		})
		logg.Info(logCtx, "ws.connected")
		defer logg.Info(logCtx, "ws.disconnected")

		readLoop(r.Context(), conn, hub, client, chatSvc, logg)
	}
}

func readLoop(ctx context.Context, conn *websocket.Conn, hub *realtime.Hub, client *realtime.Client, chatSvc chat.Service, logg *logger.Logger) {
	for {
		var frame realtime.InboundFrame
		if err := wsjson.Read(ctx, conn, &frame); err != nil {
			return
		}

		roomID, err := uuid.Parse(strings.TrimSpace(frame.ConversationID))
		if err != nil {
			continue
		}

		switch frame.Type {
		case realtime.FrameJoin:
			member, err := chatSvc.IsParticipant(ctx, roomID, client.UserID)
			if err != nil {
				logCtx := logg.WithFields(ctx, map[string]any{
					"user_id":         client.UserID.String(),
					"conversation_id": roomID.String(),
				})
				logg.Error(logCtx, "ws.join.lookup_failed", err)
				continue
			}
			if !member {
				continue
			}
			hub.JoinRoom(roomID, client)
		case realtime.FrameLeave:
			hub.LeaveRoom(roomID, client)
		}
	}
}

func bearerFromHeader(r *http.Request) string {
	raw := strings.TrimSpace(r.Header.Get("Authorization"))
	if strings.HasPrefix(strings.ToLower(raw), "bearer ") {
		return strings.TrimSpace(raw[7:])
	}
	return raw
}
