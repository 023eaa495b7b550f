package server

import (
	"database/sql"
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/chapelleverte/petitiond/internal/config"
	"github.com/chapelleverte/petitiond/internal/coupon"
	"github.com/chapelleverte/petitiond/internal/email"
	"github.com/chapelleverte/petitiond/internal/engagement"
	"github.com/chapelleverte/petitiond/internal/handler"
	"github.com/chapelleverte/petitiond/internal/imagegen"
	"github.com/chapelleverte/petitiond/internal/middleware"
	"github.com/chapelleverte/petitiond/internal/sentiment"
	"github.com/chapelleverte/petitiond/internal/store"
	ws "github.com/chapelleverte/petitiond/internal/websocket"
)

type Server struct {
	db          *sql.DB
	hub         *ws.Hub
	signatureH  *handler.SignatureHandler
	couponH     *handler.CouponHandler
	generateH   *handler.GenerateHandler
	referralH   *handler.ReferralHandler
	statsH      *handler.StatsHandler
	rateLimiter *middleware.RateLimiter
	logger      *slog.Logger
}

func New(db *sql.DB, cfg *config.Config, logger *slog.Logger) *Server {
	hub := ws.NewHub(logger.With("component", "websocket"))

	signatureStore := store.NewSignatureStore(db)
	couponStore := store.NewCouponStore(db)
	referralStore := store.NewReferralStore(db)

	analyzer := buildAnalyzer(cfg.Sentiment, logger)
	calculator := engagement.NewCalculator(analyzer)
	couponSvc := coupon.NewService(couponStore, referralStore, logger.With("component", "coupon"))

	mailer := email.NewClient(cfg.Email.ServerToken, cfg.Email.FromAddress, cfg.App.BaseURL)
	images := imagegen.NewClient(imagegen.Config{
		APIKey:  cfg.ImageGen.APIKey,
		BaseURL: cfg.ImageGen.BaseURL,
		Engine:  cfg.ImageGen.Engine,
	})

	statsH := handler.NewStatsHandler(signatureStore, couponStore, int64(cfg.App.PetitionGoal), logger.With("component", "stats"))

	return &Server{
		db:          db,
		hub:         hub,
		signatureH:  handler.NewSignatureHandler(signatureStore, calculator, couponSvc, statsH, mailer, hub, logger.With("component", "signature")),
		couponH:     handler.NewCouponHandler(couponSvc, logger.With("component", "coupon")),
		generateH:   handler.NewGenerateHandler(couponSvc, images, hub, logger.With("component", "generate")),
		referralH:   handler.NewReferralHandler(referralStore, signatureStore, logger.With("component", "referral")),
		statsH:      statsH,
		rateLimiter: middleware.NewRateLimiter(cfg.App.RatePerMinute),
		logger:      logger,
	}
}

// buildAnalyzer picks the comment analyzer: keyword rules alone, or the
// toxicity classifier with rules as the silent fallback when an endpoint
// is configured.
func buildAnalyzer(cfg config.SentimentConfig, logger *slog.Logger) sentiment.Analyzer {
	rules := sentiment.NewRuleBased()
	if cfg.ClassifierURL == "" {
		return rules
	}
	classifier := sentiment.NewClassifier(func() (sentiment.ToxicityScorer, error) {
		return sentiment.NewHTTPToxicityScorer(cfg.ClassifierURL, nil), nil
	})
	return sentiment.NewFallback(classifier, rules, logger.With("component", "sentiment"))
}

// RateLimiter returns the rate limiter for cleanup tasks.
func (s *Server) RateLimiter() *middleware.RateLimiter {
	return s.rateLimiter
}

func (s *Server) Router() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("POST /api/signatures", s.rateLimitedHandler(s.signatureH.Create))
	mux.HandleFunc("GET /api/signatures/{id}", s.signatureH.Get)
	mux.HandleFunc("GET /api/coupons/{code}", s.couponH.Validate)
	mux.HandleFunc("POST /api/generations", s.rateLimitedHandler(s.generateH.Create))
	mux.HandleFunc("GET /api/referrals/{email}", s.referralH.Get)
	mux.HandleFunc("GET /api/stats", s.statsH.Get)

	mux.HandleFunc("GET /health", s.healthHandler)
	mux.Handle("GET /metrics", promhttp.Handler())
	mux.HandleFunc("GET /ws", ws.HandleWebSocket(s.hub))

	return middleware.RequestLogger(s.logger.With("component", "http"))(mux)
}

func (s *Server) healthHandler(w http.ResponseWriter, r *http.Request) {
	if err := s.db.Ping(); err != nil {
		w.WriteHeader(http.StatusServiceUnavailable)
		json.NewEncoder(w).Encode(map[string]string{"status": "degraded"})
		return
	}
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]string{"status": "ok"})
}

func (s *Server) rateLimitedHandler(h http.HandlerFunc) http.HandlerFunc {
	keyFunc := func(r *http.Request) string {
		return middleware.RealIP(r)
	}
	rl := middleware.RateLimit(s.rateLimiter, keyFunc)
	return func(w http.ResponseWriter, r *http.Request) {
		rl(http.HandlerFunc(h)).ServeHTTP(w, r)
	}
}
