package server

import (
	"database/sql"
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/hogarlabs/despensa/internal/auth"
	"github.com/hogarlabs/despensa/internal/config"
	"github.com/hogarlabs/despensa/internal/handler"
	"github.com/hogarlabs/despensa/internal/inventory"
	"github.com/hogarlabs/despensa/internal/membership"
	"github.com/hogarlabs/despensa/internal/middleware"
	"github.com/hogarlabs/despensa/internal/migrate"
	"github.com/hogarlabs/despensa/internal/store"
	ws "github.com/hogarlabs/despensa/internal/websocket"
)

type Server struct {
	db              *sql.DB
	hub             *ws.Hub
	sessionH        *handler.SessionHandler
	householdH      *handler.HouseholdHandler
	categoryH       *handler.CategoryHandler
	productH        *handler.ProductHandler
	shoppingH       *handler.ShoppingHandler
	sessionStore    *store.SessionStore
	membershipStore *store.MembershipStore
	rateLimiter     *middleware.RateLimiter
	logger          *slog.Logger
}

func New(db *sql.DB, cfg *config.Config, verifier *auth.Verifier, logger *slog.Logger) *Server {
	hub := ws.NewHub(logger.With("component", "websocket"))

	householdStore := store.NewHouseholdStore(db)
	membershipStore := store.NewMembershipStore(db)
	sessionStore := store.NewSessionStore(db)
	categoryStore := store.NewCategoryStore(db)
	productStore := store.NewProductStore(db)

	worker := migrate.NewWorker(db, logger.With("component", "migrate"))
	resolver := membership.NewResolver(householdStore, membershipStore, worker, logger.With("component", "membership"))
	inventorySvc := inventory.NewService(categoryStore, productStore, hub, logger.With("component", "inventory"))

	return &Server{
		db:              db,
		hub:             hub,
		sessionH:        handler.NewSessionHandler(verifier, resolver, sessionStore, cfg.SessionTTL, logger.With("component", "session")),
		householdH:      handler.NewHouseholdHandler(resolver),
		categoryH:       handler.NewCategoryHandler(inventorySvc),
		productH:        handler.NewProductHandler(inventorySvc),
		shoppingH:       handler.NewShoppingHandler(inventorySvc, cfg.Locale),
		sessionStore:    sessionStore,
		membershipStore: membershipStore,
		rateLimiter:     middleware.NewRateLimiter(),
		logger:          logger,
	}
}

// SessionStore returns the session store for cleanup tasks.
func (s *Server) SessionStore() *store.SessionStore {
	return s.sessionStore
}

// RateLimiter returns the rate limiter for cleanup tasks.
func (s *Server) RateLimiter() *middleware.RateLimiter {
	return s.rateLimiter
}

func (s *Server) Router() http.Handler {
	outerMux := http.NewServeMux()

	// Public routes
	outerMux.HandleFunc("POST /auth/session", s.rateLimited(s.sessionH.Create))
	outerMux.HandleFunc("GET /health", s.healthHandler)

	// Session-scoped routes
	sessionMux := http.NewServeMux()
	sessionMux.HandleFunc("GET /auth/session", s.sessionH.Get)
	sessionMux.HandleFunc("DELETE /auth/session", s.sessionH.Delete)
	sessionMux.HandleFunc("GET /api/household", s.householdH.Get)
	sessionMux.HandleFunc("POST /api/household/join", s.rateLimited(s.householdH.Join))
	sessionMux.HandleFunc("POST /api/household", s.householdH.Create)
	sessionMux.HandleFunc("POST /api/household/confirm", s.householdH.Confirm)
	sessionMux.HandleFunc("POST /api/household/migrate", s.householdH.Migrate)

	// Inventory routes additionally require an active household
	inventoryMux := http.NewServeMux()
	inventoryMux.HandleFunc("GET /api/categories", s.categoryH.List)
	inventoryMux.HandleFunc("POST /api/categories", s.categoryH.Create)
	inventoryMux.HandleFunc("PUT /api/categories/{id}", s.categoryH.Rename)
	inventoryMux.HandleFunc("DELETE /api/categories/{id}", s.categoryH.Delete)
	inventoryMux.HandleFunc("GET /api/categories/{id}/products", s.productH.ListByCategory)
	inventoryMux.HandleFunc("POST /api/categories/{id}/products", s.productH.Create)
	inventoryMux.HandleFunc("PATCH /api/products/{id}", s.productH.Patch)
	inventoryMux.HandleFunc("PUT /api/products/{id}/quantity", s.productH.SetQuantity)
	inventoryMux.HandleFunc("DELETE /api/products/{id}", s.productH.Delete)
	inventoryMux.HandleFunc("GET /api/shopping-list", s.shoppingH.Get)
	inventoryMux.Handle("GET /ws", ws.Handler(s.hub, s.logger.With("component", "websocket")))
	sessionMux.Handle("/", middleware.RequireHousehold(inventoryMux))

	authMiddleware := middleware.RequireSession(s.sessionStore, s.membershipStore)
	outerMux.Handle("/", authMiddleware(sessionMux))

	return middleware.RequestLogger(s.logger.With("component", "http"))(outerMux)
}

func (s *Server) healthHandler(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]string{"status": "ok"})
}

func (s *Server) rateLimited(h http.HandlerFunc) http.HandlerFunc {
	rl := middleware.RateLimit(s.rateLimiter, middleware.RealIP, 10, time.Minute)
	return func(w http.ResponseWriter, r *http.Request) {
		rl(h).ServeHTTP(w, r)
	}
}
