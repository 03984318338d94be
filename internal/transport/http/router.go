package http

import (
	"net/http"
	"strings"
	"time"

	"esign/internal/auth"
	obsmw "esign/internal/observability/middleware"
	"esign/internal/service"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/go-chi/httprate"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

type RouterConfig struct {
	CORSOrigins string
	TrustProxy  bool
}

func NewRouter(docs service.DocumentService, signing service.SigningService, validator *auth.Validator, cfg RouterConfig) http.Handler {
	h := &handlers{docs: docs, signing: signing}

	r := chi.NewRouter()

	r.Use(chimw.RequestID)
	if cfg.TrustProxy {
		r.Use(chimw.RealIP)
	}
	r.Use(chimw.Recoverer)
	r.Use(chimw.Timeout(30 * time.Second))
	r.Use(obsmw.WithRequestAndTrace)
	r.Use(obsmw.WithMetrics)

	origins := strings.Split(cfg.CORSOrigins, ",")
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   originsIfSet(origins),
		AllowedMethods:   []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Authorization", "Content-Type", "X-Request-Id"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})

	r.Handle("/metrics", promhttp.Handler())

	// Public signing surface. The token is the credential; rate limiting is
	// the brute-force guard.
	r.Route("/v1/sign/{token}", func(r chi.Router) {
		r.Use(httprate.LimitByIP(60, 1*time.Minute))
		r.Get("/", h.accessPage)
		r.Get("/status", h.signerStatus)
		r.Post("/code", h.requestCode)
		r.Post("/verify", h.verifyCode)
		r.Post("/submit", h.submit)
	})

	// Owner surface, bearer-token scoped.
	r.Route("/v1/documents", func(r chi.Router) {
		r.Use(requireOwner(validator))
		r.Post("/", h.createDocument)
		r.Get("/", h.listDocuments)
		r.Route("/{id}", func(r chi.Router) {
			r.Get("/", h.getDocument)
			r.Patch("/", h.updateDocument)
			r.Delete("/", h.deleteDocument)
			r.Post("/send", h.sendDocument)
			r.Post("/cancel", h.cancelDocument)
			r.Post("/duplicate", h.duplicateDocument)
			r.Get("/download", h.downloadDocument)
			r.Get("/audit", h.auditTrail)
			r.Get("/signers", h.listSigners)
		})
	})

	return r
}

func originsIfSet(origins []string) []string {
	var out []string
	for _, o := range origins {
		if o = strings.TrimSpace(o); o != "" {
			out = append(out, o)
		}
	}
	if len(out) == 0 {
		return []string{"*"}
	}
	return out
}
