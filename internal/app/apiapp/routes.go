package apiapp

import (
	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/samson623/sports-buddy/internal/config"
	analysissvc "github.com/samson623/sports-buddy/internal/services/analysis"
	authsvc "github.com/samson623/sports-buddy/internal/services/auth"
	"github.com/samson623/sports-buddy/internal/services/qna"
	"github.com/samson623/sports-buddy/internal/transport/http/handlers"
)

type Dependencies struct {
	QnAService      *qna.Service
	AnalysisService *analysissvc.Service
	JWTManager      *authsvc.JWTManager
	Logger          *zap.Logger
	Config          config.Config
}

func RegisterRoutes(r chi.Router, deps Dependencies) {
	healthHandler := handlers.NewHealthHandler()
	askHandler := handlers.NewAskHandler(
		deps.QnAService,
		deps.Config.QnA.MaxQuestionLen,
		deps.Config.QnA.RateWindow.Milliseconds(),
		deps.Config.QnA.RateMaxRequests,
	)
	quotaHandler := handlers.NewQuotaHandler(deps.QnAService)
	analysisHandler := handlers.NewAnalysisHandler(deps.AnalysisService)

	authMW := OptionalAuthMiddleware(deps.JWTManager, deps.Logger)

	r.Get("/healthz", healthHandler.Get)
	r.Route("/api", func(r chi.Router) {
		r.Use(authMW)
		r.Post("/ask", askHandler.Ask)
		r.Get("/ask", askHandler.Usage)
		r.Get("/quota", quotaHandler.Handle)
		r.Post("/analysis", analysisHandler.Generate)
	})
}
