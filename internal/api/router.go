package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

func NewRouter(app *App) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)

	r.Get("/ping", PingHandler)

	r.Route("/api", func(r chi.Router) {
		r.Route("/videos", func(r chi.Router) {
			r.Post("/upload", app.UploadHandler)
			r.Get("/", app.ListVideosHandler)
			r.Route("/{id}", func(r chi.Router) {
				r.Get("/", app.GetVideoHandler)
				r.Delete("/", app.DeleteVideoHandler)
				r.Get("/annotated", app.AnnotatedHandler)
				r.Get("/report", app.ReportHandler)
				r.Post("/cancel", app.CancelHandler)
			})
		})
		r.Route("/people", func(r chi.Router) {
			r.Get("/", app.ListPeopleHandler)
			r.Post("/", app.CreatePersonHandler)
		})
	})

	return r
}
