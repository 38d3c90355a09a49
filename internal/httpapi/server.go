package httpapi

import (
	"context"
	"encoding/json"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"chatd/internal/hub"
	"chatd/pkg/types"
)

// Service defines the methods required by the HTTP API layer.
type Service interface {
	ListModels() types.ModelsResponse
	ModelStatus(id string) types.ModelStatusResponse
	RequestDownload(id string, src hub.Source) error
	Chat(ctx context.Context, req types.ChatRequest) (types.ChatResponse, error)
}

func NewMux(svc Service) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(MetricsMiddleware)
	if corsEnabled {
		r.Use(cors.Handler(cors.Options{
			AllowedOrigins: corsOrigins(),
			AllowedMethods: corsMethods(),
			AllowedHeaders: corsHeaders(),
			MaxAge:         300,
		}))
	}
	r.Use(middleware.Compress(5))
	// Security headers
	r.Use(func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("X-Content-Type-Options", "nosniff")
			next.ServeHTTP(w, r)
		})
	})

	r.Get("/models", listModels(svc))
	r.Get("/model_status/*", modelStatus(svc))
	r.Post("/download_model", downloadModel(svc))
	r.Post("/chat", chatHandler(svc))
	r.Get("/health", health)

	// Prometheus metrics endpoint
	r.Get("/metrics", promhttp.Handler().ServeHTTP)
	MountSwagger(r)

	return r
}

// listModels godoc
// @Summary      List catalog models
// @Description  Catalog metadata merged with live download status, keyed by model id.
// @Tags         models
// @Produce      json
// @Success      200  {object}  types.ModelsResponse
// @Router       /models [get]
func listModels(svc Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, svc.ListModels())
	}
}

// modelStatus godoc
// @Summary      Download status of one model
// @Description  Model ids contain slashes, raw or percent-encoded; the whole remaining path is the id. Unknown ids report idle defaults.
// @Tags         models
// @Produce      json
// @Param        model_id  path      string  true  "Model id"
// @Success      200       {object}  types.ModelStatusResponse
// @Failure      400       {object}  types.ErrorResponse
// @Router       /model_status/{model_id} [get]
func modelStatus(svc Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := url.PathUnescape(chi.URLParam(r, "*"))
		if err != nil {
			writeJSONError(w, http.StatusBadRequest, "invalid model_id: "+err.Error())
			return
		}
		id = strings.Trim(id, "/")
		if id == "" {
			writeJSONError(w, http.StatusBadRequest, "model_id is required")
			return
		}
		writeJSON(w, http.StatusOK, svc.ModelStatus(id))
	}
}

// downloadModel godoc
// @Summary      Start a model download
// @Description  Starts a background download. Failures surface through /model_status.
// @Tags         models
// @Accept       json
// @Produce      json
// @Param        request  body      types.DownloadRequest  true  "Download request"
// @Success      200      {object}  types.DownloadResponse
// @Failure      400      {object}  types.ErrorResponse
// @Failure      409      {object}  types.ErrorResponse
// @Failure      503      {object}  types.ErrorResponse
// @Router       /download_model [post]
func downloadModel(svc Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req types.DownloadRequest
		if !decodeJSON(w, r, &req) {
			return
		}
		if strings.TrimSpace(req.ModelID) == "" {
			writeJSONError(w, http.StatusBadRequest, "model_id is required")
			return
		}
		src, err := hub.ParseSource(req.Source)
		if err != nil {
			writeJSONError(w, http.StatusBadRequest, err.Error())
			return
		}
		lvl := requestLogLevel(r)
		start := time.Now()
		logStart(r, lvl, "download", req.ModelID)
		if err := svc.RequestDownload(req.ModelID, src); err != nil {
			status := statusFor(err)
			writeJSONError(w, status, err.Error())
			logEnd(r, lvl, "download", status, start, err)
			return
		}
		writeJSON(w, http.StatusOK, types.DownloadResponse{Status: "started"})
		logEnd(r, lvl, "download", http.StatusOK, start, nil)
	}
}

// chatHandler godoc
// @Summary      Chat with a downloaded model
// @Description  Generates one reply and returns the history extended by exactly one turn.
// @Tags         chat
// @Accept       json
// @Produce      json
// @Param        request  body      types.ChatRequest  true  "Chat request"
// @Success      200      {object}  types.ChatResponse
// @Failure      400      {object}  types.ErrorResponse
// @Failure      429      {object}  types.ErrorResponse
// @Failure      500      {object}  types.ErrorResponse
// @Router       /chat [post]
func chatHandler(svc Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req types.ChatRequest
		if !decodeJSON(w, r, &req) {
			return
		}
		if strings.TrimSpace(req.ModelID) == "" {
			writeJSONError(w, http.StatusBadRequest, "model_id is required")
			return
		}
		if strings.TrimSpace(req.Query) == "" && req.ImageData == "" {
			writeJSONError(w, http.StatusBadRequest, "query or image_data is required")
			return
		}

		lvl := requestLogLevel(r)
		start := time.Now()
		logStart(r, lvl, "chat", req.ModelID)
		// Join server base context with request context so shutdown cancels work too.
		ctx, cancel := joinContexts(serverBaseCtx, r.Context())
		defer cancel()
		resp, err := svc.Chat(ctx, req)
		if err != nil {
			// Client went away; nobody is listening for the error.
			if r.Context().Err() != nil {
				return
			}
			status := statusFor(err)
			if status == http.StatusTooManyRequests {
				IncrementBackpressure("queue")
			}
			writeJSONError(w, status, err.Error())
			logEnd(r, lvl, "chat", status, start, err)
			return
		}
		if resp.History == nil {
			resp.History = types.History{}
		}
		writeJSON(w, http.StatusOK, resp)
		logEnd(r, lvl, "chat", http.StatusOK, start, nil)
	}
}

// health godoc
// @Summary      Liveness probe
// @Tags         health
// @Produce      json
// @Success      200  {object}  types.HealthResponse
// @Router       /health [get]
func health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, types.HealthResponse{Status: "healthy"})
}

// decodeJSON enforces the JSON content type and body limit, writing the error
// response itself when decoding fails.
func decodeJSON(w http.ResponseWriter, r *http.Request, v any) bool {
	ct := r.Header.Get("Content-Type")
	if ct == "" || !strings.HasPrefix(strings.ToLower(ct), "application/json") {
		writeJSONError(w, http.StatusUnsupportedMediaType, "Content-Type must be application/json")
		return false
	}
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		// Malformed history pairs fail here as well.
		writeJSONError(w, http.StatusBadRequest, "invalid JSON body: "+err.Error())
		return false
	}
	return true
}
