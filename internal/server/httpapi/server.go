// Package httpapi serves the public site, the owner's admin panel and its JSON
// API over HTTP.
package httpapi

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/dmitrijs2005/portfolio/internal/logging"
	"github.com/dmitrijs2005/portfolio/internal/server/auth"
	"github.com/dmitrijs2005/portfolio/internal/server/listview"
	"github.com/dmitrijs2005/portfolio/internal/server/models"
	"github.com/dmitrijs2005/portfolio/internal/server/render"
	"github.com/dmitrijs2005/portfolio/internal/server/services"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/rs/cors"
)

// Sessions signs the owner in and out.
type Sessions interface {
	Login(ctx context.Context, clientKey, email, password string) (*services.TokenPair, error)
	RefreshToken(ctx context.Context, refreshToken string) (*services.TokenPair, error)
	SignOut(ctx context.Context, refreshToken string) error
	SignOutEverywhere(ctx context.Context, userID string) (int64, error)
}

type Projects interface {
	Create(ctx context.Context, in services.ProjectInput) services.Result
	Update(ctx context.Context, id string, in services.ProjectInput) services.Result
	Delete(ctx context.Context, id string) services.Result
	Get(ctx context.Context, id string) (models.Project, error)
}

type Skills interface {
	Create(ctx context.Context, in services.SkillInput) services.Result
	Update(ctx context.Context, id string, in services.SkillInput) services.Result
	Delete(ctx context.Context, id string) services.Result
	Get(ctx context.Context, id string) (models.Skill, error)
}

type Profiles interface {
	Get(ctx context.Context) (models.Profile, bool, error)
	Save(ctx context.Context, in services.ProfileInput) services.Result
}

type CVRefiner interface {
	Available() bool
	Refine(ctx context.Context, cvText string) services.CVResult
}

// Options wires a Server.
type Options struct {
	Address        string
	Pages          *render.Renderer
	Resolver       *auth.Resolver
	Sessions       Sessions
	Projects       Projects
	Skills         Skills
	Profile        Profiles
	CV             CVRefiner
	Lists          listview.Subscriber
	AllowedOrigins []string
	SecureCookies  bool
	TrustProxy     bool
	AccessTTL      time.Duration
	RefreshTTL     time.Duration
	Logger         logging.Logger
}

type Server struct {
	address       string
	pages         *render.Renderer
	resolver      *auth.Resolver
	guard         auth.Guard
	sessions      Sessions
	projects      Projects
	skills        Skills
	profile       Profiles
	cv            CVRefiner
	lists         listview.Subscriber
	origins       []string
	secureCookies bool
	trustProxy    bool
	accessTTL     time.Duration
	refreshTTL    time.Duration
	logger        logging.Logger
}

func NewServer(o Options) *Server {
	return &Server{
		address:       o.Address,
		pages:         o.Pages,
		resolver:      o.Resolver,
		sessions:      o.Sessions,
		projects:      o.Projects,
		skills:        o.Skills,
		profile:       o.Profile,
		cv:            o.CV,
		lists:         o.Lists,
		origins:       o.AllowedOrigins,
		secureCookies: o.SecureCookies,
		trustProxy:    o.TrustProxy,
		accessTTL:     o.AccessTTL,
		refreshTTL:    o.RefreshTTL,
		logger:        o.Logger.With("module", "http_server"),
	}
}

// Router builds the route tree.
func (s *Server) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	if s.trustProxy {
		r.Use(middleware.RealIP)
	}
	r.Use(s.requestLogger)
	r.Use(middleware.Recoverer)

	r.Get("/", s.publicPage(render.PageHome))
	r.Get("/about", s.publicPage(render.PageAbout))
	r.Get("/projects", s.publicPage(render.PageProjects))
	r.Get("/skills", s.publicPage(render.PageSkills))
	r.Get("/contact", s.publicPage(render.PageContact))
	r.Get("/contact/message", s.contactMessage)
	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("OK"))
	})

	r.Route("/admin", func(r chi.Router) {
		r.Use(s.identify)

		r.Get("/login", s.loginPage)
		r.Post("/login", s.loginSubmit)
		r.Post("/logout", s.logout)

		r.Group(func(r chi.Router) {
			r.Use(s.requireOwnerPage)

			r.Get("/", s.dashboard)
			r.Get("/projects", s.projectsPage)
			r.Post("/projects", s.projectCreate)
			r.Get("/projects/{id}", s.projectPage)
			r.Post("/projects/{id}", s.projectUpdate)
			r.Post("/projects/{id}/delete", s.projectDelete)
			r.Get("/skills", s.skillsPage)
			r.Post("/skills", s.skillCreate)
			r.Get("/skills/{id}", s.skillPage)
			r.Post("/skills/{id}", s.skillUpdate)
			r.Post("/skills/{id}/delete", s.skillDelete)
			r.Get("/about", s.aboutPage)
			r.Post("/about", s.aboutSave)
			r.Get("/cv", s.cvPage)
			r.Post("/cv", s.cvSubmit)
		})

		r.Route("/api", func(r chi.Router) {
			r.Use(cors.New(cors.Options{
				AllowedOrigins:   s.origins,
				AllowedMethods:   []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete, http.MethodOptions},
				AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
				AllowCredentials: true,
				MaxAge:           300,
			}).Handler)

			r.Post("/session", s.apiLogin)
			r.Post("/session/refresh", s.apiRefresh)
			r.Delete("/session", s.apiLogout)

			r.Group(func(r chi.Router) {
				r.Use(s.requireOwnerAPI)

				r.Delete("/sessions", s.apiLogoutEverywhere)
				r.Get("/projects/stream", s.stream(models.CollectionProjects))
				r.Post("/projects", s.apiProjectCreate)
				r.Get("/projects/{id}", s.apiProjectGet)
				r.Put("/projects/{id}", s.apiProjectUpdate)
				r.Delete("/projects/{id}", s.apiProjectDelete)
				r.Get("/skills/stream", s.stream(models.CollectionSkills))
				r.Post("/skills", s.apiSkillCreate)
				r.Get("/skills/{id}", s.apiSkillGet)
				r.Put("/skills/{id}", s.apiSkillUpdate)
				r.Delete("/skills/{id}", s.apiSkillDelete)
				r.Get("/profile", s.apiProfileGet)
				r.Put("/profile", s.apiProfileSave)
				r.Post("/cv/refine", s.apiCVRefine)
			})
		})
	})
	return r
}

// Run serves until ctx is cancelled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context) error {
	srv := &http.Server{
		Addr:              s.address,
		Handler:           s.Router(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		<-ctx.Done()
		s.logger.Info(ctx, "Stopping HTTP server...")
		shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 10*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			s.logger.Error(ctx, "shutdown failed", "error", err)
		}
	}()

	s.logger.Info(ctx, "Starting HTTP server", "address", s.address)

	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}
