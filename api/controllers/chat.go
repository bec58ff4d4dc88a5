package controllers

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/Hazher89/oppdrag-app/api/responses"
	"github.com/Hazher89/oppdrag-app/api/validators"
	"github.com/Hazher89/oppdrag-app/internal/chat"
	"github.com/Hazher89/oppdrag-app/internal/uploads"
	pkgerrors "github.com/Hazher89/oppdrag-app/pkg/errors"
	"github.com/Hazher89/oppdrag-app/pkg/logger"
)

// ConversationCreate opens a direct or group conversation.
func ConversationCreate(svc chat.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		actor, ok := requireActor(w, r, logg)
		if !ok {
			return
		}

		var input chat.CreateConversationInput
		if err := validators.DecodeJSONBody(r, &input); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		conv, err := svc.CreateConversation(r.Context(), actor, input)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, conv)
	}
}

// ConversationList returns the actor's conversations, latest activity first.
func ConversationList(svc chat.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		actor, ok := requireActor(w, r, logg)
		if !ok {
			return
		}

		params, err := validators.ParsePagination(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		result, err := svc.ListConversations(r.Context(), actor, params)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, result)
	}
}

// ConversationGet returns one conversation the actor belongs to.
func ConversationGet(svc chat.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		actor, ok := requireActor(w, r, logg)
		if !ok {
			return
		}

		id, err := validators.PathUUID(chi.URLParam(r, "conversationID"))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		conv, err := svc.GetConversation(r.Context(), actor, id)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, conv)
	}
}

// MessageSend posts a message into a conversation.
func MessageSend(svc chat.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		actor, ok := requireActor(w, r, logg)
		if !ok {
			return
		}

		id, err := validators.PathUUID(chi.URLParam(r, "conversationID"))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var input chat.SendMessageInput
		if err := validators.DecodeJSONBody(r, &input); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		msg, err := svc.SendMessage(r.Context(), actor, id, input)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, msg)
	}
}

// MessageList returns a page of messages, newest first.
func MessageList(svc chat.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		actor, ok := requireActor(w, r, logg)
		if !ok {
			return
		}

		id, err := validators.PathUUID(chi.URLParam(r, "conversationID"))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		params, err := validators.ParsePagination(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		result, err := svc.ListMessages(r.Context(), actor, id, params)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, result)
	}
}

// ConversationMarkRead zeroes the actor's unread counter.
func ConversationMarkRead(svc chat.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		actor, ok := requireActor(w, r, logg)
		if !ok {
			return
		}

		id, err := validators.PathUUID(chi.URLParam(r, "conversationID"))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		if err := svc.MarkRead(r.Context(), actor, id); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, map[string]string{"status": "marked read"})
	}
}

// ConversationDelete closes the conversation for everyone.
func ConversationDelete(svc chat.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		actor, ok := requireActor(w, r, logg)
		if !ok {
			return
		}

		id, err := validators.PathUUID(chi.URLParam(r, "conversationID"))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		if err := svc.DeleteConversation(r.Context(), actor, id); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, map[string]string{"status": "deleted"})
	}
}

// ContactList returns colleagues the actor can start a conversation with.
func ContactList(svc chat.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		actor, ok := requireActor(w, r, logg)
		if !ok {
			return
		}

		params, err := validators.ParsePagination(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		result, err := svc.ListContacts(r.Context(), actor, r.URL.Query().Get("search"), params)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, result)
	}
}

// UnreadTotal returns the actor's unread count across all conversations.
func UnreadTotal(svc chat.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		actor, ok := requireActor(w, r, logg)
		if !ok {
			return
		}

		total, err := svc.TotalUnread(r.Context(), actor)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, map[string]int64{"unread_count": total})
	}
}

// ChatFileUpload stores a file for embedding in a chat message. The response
// carries the descriptor the client echoes back through MessageSend.
func ChatFileUpload(store *uploads.Store, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if _, ok := requireActor(w, r, logg); !ok {
			return
		}

		if err := r.ParseMultipartForm(store.MaxSize(uploads.KindChatFile)); err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid multipart form"))
			return
		}
		file, header, err := r.FormFile("file")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "file field is required"))
			return
		}
		defer file.Close()

		stored, err := store.Save(uploads.KindChatFile, header.Filename, file)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccessStatus(w, http.StatusCreated, map[string]any{
			"file_name": stored.FileName,
			"file_path": stored.PublicURL,
			"file_size": stored.Size,
			"mime_type": stored.MIMEType,
		})
	}
}
