package adminapi

import (
	"crypto/subtle"
	"encoding/json"
	"log"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/golubka/foodbot/internal/gateway"
	"github.com/golubka/foodbot/internal/menu"
	"github.com/golubka/foodbot/internal/orders"
	"github.com/golubka/foodbot/internal/users"
)

type Config struct {
	Token          string
	RequestTimeout time.Duration

	// BroadcastDelay paces fan-out sends so the chat platform does not
	// rate-limit the bot account.
	BroadcastDelay time.Duration
}

// Server is the HTTP admin surface: stats, order management, menu management
// and user broadcast. Everything sits behind a static token.
type Server struct {
	cfg    Config
	orders orders.Repository
	menu   menu.RepoInterface
	users  users.RepoInterface
	conv   gateway.Conversation
}

func NewServer(cfg Config, orderRepo orders.Repository, menuRepo menu.RepoInterface, userRepo users.RepoInterface, conv gateway.Conversation) *Server {
	if cfg.RequestTimeout == 0 {
		cfg.RequestTimeout = 30 * time.Second
	}
	if cfg.BroadcastDelay == 0 {
		cfg.BroadcastDelay = 50 * time.Millisecond
	}
	return &Server{cfg: cfg, orders: orderRepo, menu: menuRepo, users: userRepo, conv: conv}
}

// Handler builds the full routed handler, wrapped for tracing.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.RequestID)
	r.Use(middleware.Timeout(s.cfg.RequestTimeout))

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	r.Route("/admin", func(r chi.Router) {
		r.Use(s.authMiddleware)

		r.Get("/stats", s.getStats)
		r.Get("/orders", s.listOrders)
		r.Get("/orders/{order_id}", s.getOrder)
		r.Patch("/orders/{order_id}/status", s.updateOrderStatus)
		r.Post("/broadcast", s.broadcast)
		r.Post("/dishes", s.addDish)
		r.Patch("/dishes/{dish_id}/availability", s.toggleDish)
	})

	return otelhttp.NewHandler(r, "adminapi")
}

// authMiddleware requires the static admin token in the X-Admin-Token header.
func (s *Server) authMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token := r.Header.Get("X-Admin-Token")
		if token == "" || subtle.ConstantTimeCompare([]byte(token), []byte(s.cfg.Token)) != 1 {
			respondError(w, http.StatusUnauthorized, "unauthorized", "missing or invalid admin token")
			return
		}
		next.ServeHTTP(w, r)
	})
}

type ErrorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code"`
}

func respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		log.Printf("failed to encode response: %v", err)
	}
}

func respondError(w http.ResponseWriter, status int, code, message string) {
	respondJSON(w, status, ErrorResponse{Error: message, Code: code})
}
