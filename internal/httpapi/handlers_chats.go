package httpapi

import (
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/TasosParaskevakis/lmstudio-chat-app/internal/store"
	"github.com/TasosParaskevakis/lmstudio-chat-app/pkg/types"
)

func chatView(c store.Chat) types.Chat {
	return types.Chat{
		ID:           c.ID,
		Title:        c.Title,
		Model:        c.Model,
		SystemPrompt: c.SystemPrompt,
		CreatedAt:    c.CreatedAt,
		UpdatedAt:    c.UpdatedAt,
	}
}

func messageView(m store.Message) types.Message {
	return types.Message{ID: m.ID, ChatID: m.ChatID, Role: m.Role, Content: m.Content, CreatedAt: m.CreatedAt}
}

// createChat godoc
// @Summary      Create a chat
// @Tags         chats
// @Accept       json
// @Produce      json
// @Param        body body types.CreateChatRequest false "Title and model"
// @Success      200 {object} types.ChatResponse
// @Router       /api/chats [post]
func (h *handlers) createChat(w http.ResponseWriter, r *http.Request) {
	var req types.CreateChatRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeJSONError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	c, err := h.Store.CreateChat(r.Context(), req.Title, req.Model)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, types.ChatResponse{Chat: chatView(c)})
}

// listChats godoc
// @Summary      List chats, most recently updated first
// @Tags         chats
// @Produce      json
// @Success      200 {object} types.ChatsResponse
// @Router       /api/chats [get]
func (h *handlers) listChats(w http.ResponseWriter, r *http.Request) {
	chats, err := h.Store.ListChats(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	out := make([]types.Chat, 0, len(chats))
	for _, c := range chats {
		out = append(out, chatView(c))
	}
	writeJSON(w, http.StatusOK, types.ChatsResponse{Chats: out})
}

// getChat godoc
// @Summary      Get a chat with its messages
// @Tags         chats
// @Produce      json
// @Param        id path string true "Chat id"
// @Success      200 {object} types.ChatDetailResponse
// @Failure      404 {object} types.ErrorResponse
// @Router       /api/chats/{id} [get]
func (h *handlers) getChat(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	c, err := h.Store.GetChat(r.Context(), id)
	if err != nil {
		writeError(w, err)
		return
	}
	msgs, err := h.Store.ListMessages(r.Context(), id)
	if err != nil {
		writeError(w, err)
		return
	}
	resp := types.ChatDetailResponse{Chat: chatView(c), Messages: make([]types.Message, 0, len(msgs))}
	for _, m := range msgs {
		resp.Messages = append(resp.Messages, messageView(m))
	}
	writeJSON(w, http.StatusOK, resp)
}

// updateChat godoc
// @Summary      Update title, model or system prompt
// @Tags         chats
// @Accept       json
// @Produce      json
// @Param        id   path string                  true "Chat id"
// @Param        body body types.UpdateChatRequest true "Fields to change"
// @Success      200 {object} types.ChatResponse
// @Failure      404 {object} types.ErrorResponse
// @Router       /api/chats/{id} [patch]
func (h *handlers) updateChat(w http.ResponseWriter, r *http.Request) {
	var req types.UpdateChatRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeJSONError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	c, err := h.Store.UpdateChat(r.Context(), chi.URLParam(r, "id"), store.ChatPatch{
		Title:        req.Title,
		Model:        req.Model,
		SystemPrompt: req.SystemPrompt,
	})
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, types.ChatResponse{Chat: chatView(c)})
}

// deleteChat godoc
// @Summary      Delete a chat and its messages
// @Tags         chats
// @Param        id path string true "Chat id"
// @Success      204
// @Failure      404 {object} types.ErrorResponse
// @Router       /api/chats/{id} [delete]
func (h *handlers) deleteChat(w http.ResponseWriter, r *http.Request) {
	if err := h.Store.DeleteChat(r.Context(), chi.URLParam(r, "id")); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func validRole(role string) bool {
	switch role {
	case store.RoleSystem, store.RoleUser, store.RoleAssistant:
		return true
	}
	return false
}

// addMessage godoc
// @Summary      Append a message without running the model
// @Tags         chats
// @Accept       json
// @Produce      json
// @Param        id   path string                  true "Chat id"
// @Param        body body types.AddMessageRequest true "Role and content"
// @Success      200 {object} types.MessageResponse
// @Failure      400 {object} types.ErrorResponse
// @Failure      404 {object} types.ErrorResponse
// @Router       /api/chats/{id}/messages [post]
func (h *handlers) addMessage(w http.ResponseWriter, r *http.Request) {
	var req types.AddMessageRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeJSONError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	if req.Role == "" || strings.TrimSpace(req.Content) == "" {
		writeJSONError(w, http.StatusBadRequest, "role and content required")
		return
	}
	if !validRole(req.Role) {
		writeJSONError(w, http.StatusBadRequest, "role must be system, user or assistant")
		return
	}
	id := chi.URLParam(r, "id")
	m, err := h.Store.AddMessage(r.Context(), id, req.Role, req.Content)
	if err != nil {
		writeError(w, err)
		return
	}
	if err := h.Store.TouchChat(r.Context(), id, nil); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, types.MessageResponse{Message: messageView(m)})
}

// deleteMessage godoc
// @Summary      Delete a message
// @Tags         chats
// @Param        id  path string true "Chat id"
// @Param        mid path string true "Message id"
// @Success      204
// @Failure      404 {object} types.ErrorResponse
// @Router       /api/chats/{id}/messages/{mid} [delete]
func (h *handlers) deleteMessage(w http.ResponseWriter, r *http.Request) {
	if err := h.Store.DeleteMessage(r.Context(), chi.URLParam(r, "mid")); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
