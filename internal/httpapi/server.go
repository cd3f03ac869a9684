package httpapi

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/TasosParaskevakis/lmstudio-chat-app/internal/manager"
	"github.com/TasosParaskevakis/lmstudio-chat-app/internal/registry"
	"github.com/TasosParaskevakis/lmstudio-chat-app/internal/relay"
	"github.com/TasosParaskevakis/lmstudio-chat-app/internal/store"
)

// Lifecycle is the model lifecycle as seen by the HTTP layer.
type Lifecycle interface {
	Status() manager.Snapshot
	RequestLoad(name string) bool
	RequestUnload() bool
	Ready() bool
}

// Catalog lists loadable models.
type Catalog interface {
	Available(ctx context.Context) registry.Listing
}

// ChatStore is the chat/message persistence behind the CRUD routes.
type ChatStore interface {
	CreateChat(ctx context.Context, title, model string) (store.Chat, error)
	ListChats(ctx context.Context) ([]store.Chat, error)
	GetChat(ctx context.Context, id string) (store.Chat, error)
	UpdateChat(ctx context.Context, id string, p store.ChatPatch) (store.Chat, error)
	DeleteChat(ctx context.Context, id string) error
	AddMessage(ctx context.Context, chatID, role, content string) (store.Message, error)
	ListMessages(ctx context.Context, chatID string) ([]store.Message, error)
	DeleteMessage(ctx context.Context, id string) error
	TouchChat(ctx context.Context, id string, model *string) error
}

// Relay runs chat exchanges.
type Relay interface {
	Check(req relay.Request) (string, error)
	Stream(ctx context.Context, model string, req relay.Request, out relay.FrameWriter) relay.Outcome
}

// Deps bundles the services the API is built on.
type Deps struct {
	Lifecycle Lifecycle
	Catalog   Catalog
	Store     ChatStore
	Relay     Relay
}

// NewMux builds the HTTP handler for the chat app API.
func NewMux(d Deps) http.Handler {
	r := chi.NewRouter()
	// Basic middlewares: request id, real ip, recoverer
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(MetricsMiddleware)
	if corsEnabled {
		opts := cors.Options{
			AllowedOrigins: corsAllowedOrigins,
			AllowedMethods: corsAllowedMethods,
			AllowedHeaders: corsAllowedHeaders,
			ExposedHeaders: []string{"X-Request-Id"},
			MaxAge:         300,
		}
		if corsAllowAll() {
			opts.AllowedOrigins = nil
			opts.AllowOriginFunc = func(*http.Request, string) bool { return true }
		}
		r.Use(cors.Handler(opts))
	}
	// Security headers
	r.Use(func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("X-Content-Type-Options", "nosniff")
			next.ServeHTTP(w, r)
		})
	})

	h := &handlers{Deps: d}

	r.Route("/api", func(r chi.Router) {
		r.Group(func(r chi.Router) {
			// Compression for JSON endpoints only; the event stream stays unbuffered.
			r.Use(middleware.Compress(5))
			r.Get("/health", h.health)

			r.Route("/models", func(r chi.Router) {
				r.Get("/available", h.modelsAvailable)
				r.Get("/loaded", h.modelsStatus)
				r.Get("/status", h.modelsStatus)
				r.Post("/load", h.modelsLoad)
				r.Post("/unload", h.modelsUnload)
			})

			r.Route("/chats", func(r chi.Router) {
				r.Post("/", h.createChat)
				r.Get("/", h.listChats)
				r.Get("/{id}", h.getChat)
				r.Patch("/{id}", h.updateChat)
				r.Delete("/{id}", h.deleteChat)
				r.Post("/{id}/messages", h.addMessage)
				r.Delete("/{id}/messages/{mid}", h.deleteMessage)
			})
		})

		r.Post("/chat", h.chat)
	})

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("ok"))
	})

	r.Get("/readyz", func(w http.ResponseWriter, r *http.Request) {
		if d.Lifecycle != nil && d.Lifecycle.Ready() {
			w.WriteHeader(http.StatusOK)
			w.Write([]byte("ready"))
			return
		}
		w.WriteHeader(http.StatusServiceUnavailable)
		w.Write([]byte("no model loaded"))
	})

	// Prometheus metrics endpoint
	r.Get("/metrics", promhttp.Handler().ServeHTTP)

	MountSwagger(r)

	return r
}

type handlers struct {
	Deps
}
