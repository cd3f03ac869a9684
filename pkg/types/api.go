package types

// ChatRequest is the payload accepted by POST /api/chat.
type ChatRequest struct {
	// Target chat identifier.
	// example: 5f0c2a8e-2b7e-4f57-9f1e-3b1f4d2c9a10
	ChatID string `json:"chatId" example:"5f0c2a8e-2b7e-4f57-9f1e-3b1f4d2c9a10"`
	// User message to send. Must not be blank.
	// example: Write a haiku about the ocean.
	Message string `json:"message" example:"Write a haiku about the ocean."`
}

// LoadRequest is the payload accepted by POST /api/models/load.
type LoadRequest struct {
	// Model identifier as reported by the inference backend.
	// example: lmstudio-community/Meta-Llama-3-8B-Instruct-GGUF
	Name string `json:"name" example:"lmstudio-community/Meta-Llama-3-8B-Instruct-GGUF"`
}

// AcceptedResponse is returned by fire-and-forget lifecycle triggers (202).
type AcceptedResponse struct {
	// URL to poll for lifecycle progress.
	// example: /api/models/status
	StatusURL string `json:"statusUrl" example:"/api/models/status"`
}

// ModelsResponse wraps the list of models returned by GET /api/models/available.
type ModelsResponse struct {
	// Model identifiers.
	Models []string `json:"models"`
	// Set when the backend could not be reached and a fallback list is shown.
	// example: LM Studio unavailable; showing fallback list.
	Note string `json:"note,omitempty" example:"LM Studio unavailable; showing fallback list."`
}

// StatusResponse is returned by GET /api/models/status and /api/models/loaded.
type StatusResponse struct {
	// Active model, null when nothing is loaded.
	// example: lmstudio-community/Meta-Llama-3-8B-Instruct-GGUF
	Model *string `json:"model" example:"lmstudio-community/Meta-Llama-3-8B-Instruct-GGUF"`
	// Lifecycle status: idle, loading or unloading.
	// example: loading
	Status string `json:"status" example:"loading"`
	// Load/unload progress in percent.
	// example: 42
	Progress int `json:"progress" example:"42"`
	// Last warmup error under the strict warmup policy.
	LastError string `json:"lastError,omitempty"`
}

// NeedModelLoadResponse is returned with 409 when no model is ready.
type NeedModelLoadResponse struct {
	// Always true.
	// example: true
	NeedModelLoad bool `json:"needModelLoad" example:"true"`
}

// ErrorResponse is a consistent JSON error payload.
type ErrorResponse struct {
	// Error message.
	// example: invalid JSON body
	Error string `json:"error" example:"invalid JSON body"`
	// HTTP status code.
	// example: 400
	Code int `json:"code,omitempty" example:"400"`
}

// HealthResponse is returned by GET /api/health.
type HealthResponse struct {
	// example: true
	OK bool `json:"ok" example:"true"`
}
