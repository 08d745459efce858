package web

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/kozaktomas/face-attendance/internal/web/handlers"
	"github.com/kozaktomas/face-attendance/internal/web/middleware"
)

func (s *Server) setupRoutes() {
	healthHandler := handlers.NewHealthHandler(s.services.DB, s.services.Extractor)
	recognizeHandler := handlers.NewRecognizeHandler(s.services.Recognition)
	attendanceHandler := handlers.NewAttendanceHandler(s.services.Recognition, s.services.Attendance)
	identitiesHandler := handlers.NewIdentitiesHandler(s.services.Enrollment)
	configHandler := handlers.NewConfigHandler(s.config)

	s.router.Route("/api/v1", func(r chi.Router) {
		r.Get("/health", healthHandler.Check)

		// Kiosk routes
		r.Post("/recognize", recognizeHandler.Recognize)
		r.Post("/attendance/check-in", attendanceHandler.CheckIn)
		r.Post("/attendance/check-out", attendanceHandler.CheckOut)
		r.Get("/attendance", attendanceHandler.List)
		r.Get("/attendance/recent", attendanceHandler.Recent)
		r.Get("/attendance/today", attendanceHandler.Today)
		r.Get("/attendance/summary", attendanceHandler.Summary)

		// Admin routes
		r.Group(func(r chi.Router) {
			r.Use(middleware.RequireToken(s.config.Web.APIToken))

			r.Get("/identities", identitiesHandler.List)
			r.Post("/identities", identitiesHandler.Create)
			r.Get("/identities/{id}", identitiesHandler.Get)
			r.Put("/identities/{id}", identitiesHandler.Update)
			r.Post("/identities/{id}/faces", identitiesHandler.AddFace)
			r.Delete("/identities/{id}/faces", identitiesHandler.DeleteFaces)

			r.Get("/config", configHandler.Get)
		})
	})

	s.router.NotFound(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusNotFound)
		w.Write([]byte(`{"error":"not found"}` + "\n"))
	})
}
