package types

import "time"

// Chat is a conversation as exposed over the API.
type Chat struct {
	// example: 5f0c2a8e-2b7e-4f57-9f1e-3b1f4d2c9a10
	ID string `json:"id" example:"5f0c2a8e-2b7e-4f57-9f1e-3b1f4d2c9a10"`
	// example: New Chat
	Title string `json:"title" example:"New Chat"`
	// Model that last answered in this chat.
	// example: TheBloke/Mistral-7B-Instruct-v0.2-GGUF
	Model string `json:"model" example:"TheBloke/Mistral-7B-Instruct-v0.2-GGUF"`
	// Optional system prompt prepended to every request.
	SystemPrompt *string   `json:"systemPrompt"`
	CreatedAt    time.Time `json:"createdAt"`
	UpdatedAt    time.Time `json:"updatedAt"`
}

// Message is a single persisted chat turn.
type Message struct {
	ID     string `json:"id"`
	ChatID string `json:"chatId"`
	// One of system, user, assistant.
	// example: user
	Role      string    `json:"role" example:"user"`
	Content   string    `json:"content"`
	CreatedAt time.Time `json:"createdAt"`
}

// CreateChatRequest is the payload accepted by POST /api/chats.
type CreateChatRequest struct {
	// example: New Chat
	Title string `json:"title,omitempty" example:"New Chat"`
	Model string `json:"model,omitempty"`
}

// UpdateChatRequest is the payload accepted by PATCH /api/chats/{id}.
// Absent fields are left unchanged.
type UpdateChatRequest struct {
	Title        *string `json:"title,omitempty"`
	Model        *string `json:"model,omitempty"`
	SystemPrompt *string `json:"systemPrompt,omitempty"`
}

// AddMessageRequest is the payload accepted by POST /api/chats/{id}/messages.
type AddMessageRequest struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// ChatResponse wraps a single chat.
type ChatResponse struct {
	Chat Chat `json:"chat"`
}

// ChatsResponse wraps a chat listing.
type ChatsResponse struct {
	Chats []Chat `json:"chats"`
}

// ChatDetailResponse is returned by GET /api/chats/{id}.
type ChatDetailResponse struct {
	Chat     Chat      `json:"chat"`
	Messages []Message `json:"messages"`
}

// MessageResponse wraps a single message.
type MessageResponse struct {
	Message Message `json:"message"`
}
