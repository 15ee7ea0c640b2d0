package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"

	"readquest/internal/database"
)

// Server bundles the handlers behind one router
type Server struct {
	DB          *database.DB
	CorsOrigins []string
	Middleware  *Middleware
	Quiz        *QuizHandler
	Books       *BookHandler
	Events      *EventHandler
	Me          *MeHandler
	Guardians   *GuardianHandler
	Admin       *AdminHandler
}

func (s *Server) Router() http.Handler {
	m := s.Middleware
	r := chi.NewRouter()
	r.Use(RequestLogger)
	if len(s.CorsOrigins) > 0 {
		r.Use(cors.Handler(cors.Options{
			AllowedOrigins:   s.CorsOrigins,
			AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
			AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-Service-Key"},
			ExposedHeaders:   []string{"Retry-After", "X-RateLimit-Limit", "X-RateLimit-Remaining"},
			AllowCredentials: false,
			MaxAge:           300,
		}))
	}

	r.Get("/healthz", s.Health)

	r.Route("/api", func(api chi.Router) {
		api.Use(m.OptionalAuth)

		api.Route("/functions", func(fn chi.Router) {
			fn.With(m.RateLimit("generate-quiz")).Post("/generate-quiz", s.Quiz.GenerateQuiz)
			fn.With(m.RateLimit("search-books")).Post("/search-books", s.Books.SearchBooks)
			fn.With(m.RateLimit("book-media")).Post("/book-media", s.Books.BookMedia)
			fn.With(m.RateLimit("enrich-books"), m.ServiceKeyOrAdmin).Post("/enrich-books", s.Books.EnrichBooks)
			fn.With(m.RateLimit("pregenerate-quizzes"), m.ServiceKeyOrAdmin).Post("/pregenerate-quizzes", s.Books.PregenerateQuizzes)
		})

		api.Get("/books/{bookId}", s.Books.GetBook)
		api.With(m.RateLimit("events")).Post("/events", s.Events.RecordEvent)

		api.Route("/quiz-sessions", func(sessions chi.Router) {
			sessions.With(m.RateLimit("generate-quiz")).Post("/", s.Quiz.StartSession)
			sessions.Get("/{sessionId}", s.Quiz.GetSession)
			sessions.Post("/{sessionId}/answer", s.Quiz.AnswerSession)
			sessions.Post("/{sessionId}/advance", s.Quiz.AdvanceSession)
			sessions.Delete("/{sessionId}", s.Quiz.CancelSession)
		})

		api.Route("/me", func(me chi.Router) {
			me.Use(m.RequireAuth)
			me.Post("/quiz-completions", s.Me.RecordCompletion)
			me.Get("/stats", s.Me.Stats)
			me.Get("/history", s.Me.History)
			me.Get("/achievements", s.Me.Achievements)
		})

		api.Route("/guardians", func(g chi.Router) {
			g.Use(m.RequireAuth)
			g.Post("/invitations", s.Guardians.CreateInvitation)
			g.Post("/invitations/{code}/accept", s.Guardians.AcceptInvitation)
			g.Post("/invitations/{code}/reject", s.Guardians.RejectInvitation)
			g.Get("/relationships", s.Guardians.Relationships)
			g.Get("/students/{studentId}/progress", s.Guardians.StudentProgress)
		})

		api.Route("/admin", func(admin chi.Router) {
			admin.Use(m.RequireAdmin)
			admin.Get("/analytics", s.Admin.Analytics)
			admin.Post("/analytics/popularity", s.Admin.RecomputePopularity)
			admin.Get("/events", s.Admin.RecentEvents)
			admin.Get("/roles", s.Admin.ListRoles)
			admin.Post("/roles", s.Admin.GrantRole)
			admin.Delete("/roles/{userId}/{role}", s.Admin.RevokeRole)
			admin.Delete("/books/{bookId}", s.Admin.DeleteBook)
			admin.Delete("/books/{bookId}/quiz-templates", s.Admin.DeleteTemplates)
		})
	})

	r.Get("/ws/admin/events", s.Admin.LiveEvents)
	return r
}

// Health reports liveness plus a database ping
func (s *Server) Health(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	if err := s.DB.PingContext(ctx); err != nil {
		WriteJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "unavailable", "database": "unreachable"})
		return
	}
	WriteJSON(w, http.StatusOK, map[string]string{"status": "ok", "database": "ok"})
}
