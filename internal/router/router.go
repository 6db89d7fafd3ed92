package router

import (
	"net/http"
	"sort"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	httpSwagger "github.com/swaggo/http-swagger"
	"gorm.io/gorm"

	_ "anticoag-tracker/docs"
	"anticoag-tracker/internal/adapters/storage/database"
	mem "anticoag-tracker/internal/adapters/storage/memory"
	"anticoag-tracker/internal/auth"
	"anticoag-tracker/internal/domain/audit"
	"anticoag-tracker/internal/domain/inr"
	"anticoag-tracker/internal/domain/medications"
	"anticoag-tracker/internal/domain/users"
	"anticoag-tracker/internal/middleware"
	authport "anticoag-tracker/internal/ports/auth"
	"anticoag-tracker/internal/statecache"
	"anticoag-tracker/internal/web"
)

type Options struct {
	AuthVerifier authport.AuthVerifier // nil means dev mode

	// If set, repositories run on the database; otherwise in-memory.
	DB *gorm.DB

	// Auth config; zero providers disables the login surface.
	Auth auth.Config

	// Optional draft store for the web pages.
	StateCache *statecache.Cache
}

func NewRouter(opts Options) http.Handler {
	r := chi.NewRouter()

	r.Use(chimw.RequestID)
	r.Use(chimw.RealIP)
	r.Use(chimw.Recoverer)

	r.Use(middleware.AuthContext(opts.AuthVerifier))

	r.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})

	var (
		userRepo  users.Repository
		medRepo   medications.Repository
		inrRepo   inr.Repository
		auditRepo audit.Repository
		tokenRepo auth.TokenRepository
	)

	if opts.DB != nil {
		userRepo = database.NewUsersRepo(opts.DB)
		medRepo = database.NewMedicationsRepo(opts.DB)
		inrRepo = database.NewINRRepo(opts.DB)
		auditRepo = database.NewAuditRepo(opts.DB)
		tokenRepo = database.NewTokenRepo(opts.DB)
	} else {
		store := mem.NewStore()
		userRepo = mem.NewUserRepo(store)
		medRepo = mem.NewMedicationRepo(store)
		inrRepo = mem.NewINRRepo(store)
		auditRepo = mem.NewAuditRepo(store)
		tokenRepo = mem.NewTokenRepo(store)
	}

	usersSvc := users.NewService(userRepo)
	medsSvc := medications.NewService(medRepo)
	inrSvc := inr.NewService(inrRepo, usersSvc)
	auditSvc := audit.NewService(auditRepo)
	authSvc := auth.NewService(opts.Auth, usersSvc, tokenRepo)

	users.RegisterRoutes(r, usersSvc)
	medications.RegisterRoutes(r, medsSvc)
	inr.RegisterRoutes(r, inrSvc)
	audit.RegisterRoutes(r, auditSvc)

	authHandler := auth.NewHandler(opts.Auth, authSvc, nil)
	authHandler.RegisterRoutes(r)

	providerIDs := make([]string, 0, len(opts.Auth.Providers))
	for id := range opts.Auth.Providers {
		providerIDs = append(providerIDs, id)
	}
	sort.Strings(providerIDs)

	webHandler := web.NewHandler(usersSvc, medsSvc, inrSvc, opts.AuthVerifier, providerIDs, opts.StateCache)
	webHandler.RegisterRoutes(r)

	r.Get("/swagger/*", httpSwagger.WrapHandler)

	return r
}
