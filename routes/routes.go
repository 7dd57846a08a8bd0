package routes

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/render"
	"github.com/mbolis/brand-survey/app"
	"github.com/mbolis/brand-survey/routes/middlewares"
)

func Wire(app app.App) http.Handler {
	root := chi.NewRouter()
	root.Use(middleware.RequestID, middleware.RealIP, middlewares.Instrument(app.Metrics), middleware.Recoverer)

	root.Get("/healthz", Health(app))
	if app.Metrics != nil {
		root.Method(http.MethodGet, "/metrics", app.Metrics.Handler())
	}
	root.Mount("/api", apiRouter(app))
	root.Mount("/", servePublicFiles(app.PublicDir))

	return root
}

func apiRouter(app app.App) http.Handler {
	api := chi.NewRouter()

	api.Post("/login", Login(app))

	api.Group(func(r chi.Router) {
		r.Use(middlewares.Authenticate(app))

		r.Post("/logout", Logout(app))

		r.Get("/questionnaire", GetQuestionnaire(app))
		r.Get("/progress", GetProgress(app))
		r.Post("/questions/{qid}/answers/{aid}/toggle", ToggleAnswer(app))
		r.Put("/questions/{qid}/other-text", SetOtherText(app))
		r.Post("/questions/{qid}/other/toggle", ToggleGenericOther(app))
		r.Put("/questions/{qid}/other/text", SetGenericOtherText(app))
		r.Post("/submit", Submit(app))

		r.Get("/comparison", GetComparison(app))
		r.Get("/comparison/users", ListComparisonUsers(app))
		r.Put("/comparison/users/{uid}", SelectComparisonUser(app))
		r.Delete("/comparison/users/{uid}", DeselectComparisonUser(app))

		r.Route("/admin", func(r chi.Router) {
			r.Use(middlewares.Admin)
			r.Get("/results", ListResults(app))
		})
	})

	return api
}

func Health(app app.App) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		render.JSON(w, r, map[string]any{
			"status":   "ok",
			"sessions": app.Sessions.Count(),
		})
	}
}

func servePublicFiles(dir string) http.Handler {
	return http.FileServer(http.Dir(dir))
}
