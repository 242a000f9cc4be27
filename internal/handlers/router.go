package handlers

import (
	"net/http"
	"os"
	"strings"

	"matching-backend/internal/middleware"
	"matching-backend/internal/services"

	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
)

// RouterConfig carries everything the HTTP API is built from
type RouterConfig struct {
	Ledger         *services.MatchingLedger
	UserService    *services.UserService
	MatchService   *services.MatchService
	MessageService *services.MessageService
	PhotoService   *services.PhotoService
	AdminService   *services.AdminService
	Hub            *services.WSHub
	Notifier       *services.Notifier
	Health         *HealthHandler

	// AuthLimiter guards login, register and invite verification. Optional.
	AuthLimiter *middleware.IPRateLimiter

	AllowedOrigins []string

	// TrustedProxies may set the client IP through X-Forwarded-For
	TrustedProxies []string

	// UploadDir is served under UploadPath when photos are stored locally
	UploadDir  string
	UploadPath string
}

// NewRouter builds the chi router for the whole API
func NewRouter(cfg RouterConfig) http.Handler {
	userHandler := NewUserHandler(cfg.UserService)
	matchHandler := NewMatchHandler(cfg.Ledger, cfg.MatchService, cfg.Notifier)
	messageHandler := NewMessageHandler(cfg.MessageService, cfg.Notifier)
	photoHandler := NewPhotoHandler(cfg.PhotoService)
	adminHandler := NewAdminHandler(cfg.AdminService)
	wsHandler := NewWebSocketHandler(cfg.Hub, cfg.UserService, cfg.AllowedOrigins)

	health := cfg.Health
	if health == nil {
		health = NewHealthHandler(nil)
	}

	r := chi.NewRouter()

	r.Use(chiMiddleware.RequestID)
	r.Use(middleware.TrustedRealIP(cfg.TrustedProxies))
	r.Use(middleware.RequestLogger)
	r.Use(chiMiddleware.Recoverer)
	r.Use(corsMiddleware(cfg.AllowedOrigins))

	r.Get("/health", health.Health)

	r.Route("/api", func(r chi.Router) {
		// Public routes
		r.Group(func(r chi.Router) {
			if cfg.AuthLimiter != nil {
				r.Use(middleware.RateLimitByIP(cfg.AuthLimiter))
			}
			r.Post("/verify-invite-code", userHandler.VerifyInviteCode)
			r.Post("/register", userHandler.Register)
			r.Post("/login", userHandler.Login)
		})

		// Protected routes
		r.Group(func(r chi.Router) {
			r.Use(middleware.AuthMiddleware(cfg.UserService))

			r.Get("/profile", userHandler.GetProfile)
			r.Put("/profile", userHandler.UpdateProfile)
			r.Put("/push-token", userHandler.UpdatePushToken)
			r.Post("/upload-photo", photoHandler.UploadPhoto)

			r.Get("/candidates", matchHandler.Candidates)
			r.Get("/likes", matchHandler.Likes)
			r.Post("/swipe", matchHandler.Swipe)
			r.Post("/swipes", matchHandler.Swipe)
			r.Get("/matches", matchHandler.ListMatches)
			r.Get("/matches/{matchId}", matchHandler.GetMatch)

			r.Post("/messages", messageHandler.SendMessage)
			r.Get("/messages/{matchId}", messageHandler.ListMessages)
			r.Post("/messages/{matchId}", messageHandler.SendToMatch)
			r.Put("/messages/{matchId}/read", messageHandler.MarkRead)
			r.Delete("/messages/{matchId}/{messageId}", messageHandler.DeleteMessage)

			r.Route("/admin", func(r chi.Router) {
				r.Use(middleware.AdminMiddleware(cfg.UserService))
				r.Get("/invite-codes", adminHandler.ListInviteCodes)
				r.Post("/invite-codes", adminHandler.CreateInviteCode)
				r.Delete("/invite-codes/{id}", adminHandler.DeleteInviteCode)
				r.Get("/users", adminHandler.ListUsers)
				r.Put("/users/{id}/admin", adminHandler.SetAdmin)
				r.Get("/stats", adminHandler.Stats)
			})
		})
	})

	// WebSocket route
	r.Get("/ws", wsHandler.HandleWebSocket)

	if cfg.UploadDir != "" {
		prefix := "/" + strings.Trim(cfg.UploadPath, "/")
		r.Handle(prefix+"/*", http.StripPrefix(prefix+"/", http.FileServer(filesOnly{http.Dir(cfg.UploadDir)})))
	}

	return r
}

// filesOnly hides directories so the upload tree cannot be listed
type filesOnly struct {
	fs http.FileSystem
}

func (f filesOnly) Open(name string) (http.File, error) {
	file, err := f.fs.Open(name)
	if err != nil {
		return nil, err
	}
	info, err := file.Stat()
	if err != nil {
		file.Close()
		return nil, err
	}
	if info.IsDir() {
		file.Close()
		return nil, os.ErrNotExist
	}
	return file, nil
}

// corsMiddleware handles CORS. An empty list allows every origin.
func corsMiddleware(allowedOrigins []string) func(http.Handler) http.Handler {
	allowed := make(map[string]bool, len(allowedOrigins))
	for _, o := range allowedOrigins {
		allowed[o] = true
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			origin := r.Header.Get("Origin")
			switch {
			case len(allowed) == 0 || allowed["*"]:
				w.Header().Set("Access-Control-Allow-Origin", "*")
			case allowed[origin]:
				w.Header().Set("Access-Control-Allow-Origin", origin)
				w.Header().Add("Vary", "Origin")
			}
			w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
			w.Header().Set("Access-Control-Allow-Headers", "Authorization, Content-Type")

			if r.Method == http.MethodOptions {
				w.WriteHeader(http.StatusOK)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}
