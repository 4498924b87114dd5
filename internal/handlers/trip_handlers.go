package handlers

import (
	"encoding/json"
	"errors"
	"math"
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/mux"

	"bikeshare-platform/internal/models"
	"bikeshare-platform/internal/repository"
	"bikeshare-platform/internal/services"
	"bikeshare-platform/pkg/logging"
	"bikeshare-platform/pkg/metrics"
)

// Machine-readable error codes returned in ErrorResponse
const (
	CodeUnknownCity     = "UNKNOWN_CITY"
	CodeInvalidSelector = "INVALID_SELECTOR"
	CodeInvalidSection  = "INVALID_SECTION"
	CodeInvalidPage     = "INVALID_PAGE"
	CodeEmptyDataset    = "EMPTY_DATASET"
	CodeNotFound        = "NOT_FOUND"
	CodeInternal        = "INTERNAL_ERROR"
	CodeUnavailable     = "UNAVAILABLE"
	CodeRateLimited     = "RATE_LIMITED"
)

// TripHandler handles the bikeshare trip API endpoints
type TripHandler struct {
	tripService  *services.TripService
	statsService *services.StatisticsService
	logger       *logging.StructuredLogger
	metrics      *metrics.Collector
}

// NewTripHandler creates a new trip handler
func NewTripHandler(
	tripService *services.TripService,
	statsService *services.StatisticsService,
	logger *logging.StructuredLogger,
	metricsCollector *metrics.Collector,
) *TripHandler {
	return &TripHandler{
		tripService:  tripService,
		statsService: statsService,
		logger:       logger,
		metrics:      metricsCollector,
	}
}

// ErrorResponse represents an API error response
type ErrorResponse struct {
	Error     string `json:"error"`
	Message   string `json:"message"`
	Code      int    `json:"code"`
	ErrorCode string `json:"error_code,omitempty"`
}

// PaginatedResponse represents a paginated API response
type PaginatedResponse struct {
	Data       interface{} `json:"data"`
	Total      int         `json:"total"`
	Page       int         `json:"page"`
	Limit      int         `json:"limit"`
	TotalPages int         `json:"total_pages"`
	HasMore    bool        `json:"has_more"`
}

// SectionResponse wraps a single statistics section
type SectionResponse struct {
	City      string      `json:"city"`
	Month     string      `json:"month"`
	Day       string      `json:"day"`
	Section   string      `json:"section"`
	TripCount int         `json:"trip_count"`
	Elapsed   string      `json:"elapsed"`
	Data      interface{} `json:"data"`
}

// ListCities handles GET /api/cities
func (h *TripHandler) ListCities(w http.ResponseWriter, r *http.Request) {
	defer h.observe(r, time.Now())

	h.metrics.RecordAPIRequest(endpoint(r), r.Method, "200")
	h.sendJSON(w, map[string]interface{}{
		"cities": h.tripService.Cities(),
	}, http.StatusOK)
}

// GetReport handles GET /api/cities/{city}/stats
func (h *TripHandler) GetReport(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	defer h.observe(r, time.Now())

	session, ok := h.openSession(w, r)
	if !ok {
		return
	}

	report := h.statsService.Report(ctx, session)

	h.metrics.RecordAPIRequest(endpoint(r), r.Method, "200")
	h.sendJSON(w, report, http.StatusOK)
}

// GetSection handles GET /api/cities/{city}/stats/{section}
func (h *TripHandler) GetSection(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	defer h.observe(r, time.Now())

	section := mux.Vars(r)["section"]
	if !isSection(section) {
		h.sendError(w, r, CodeInvalidSection, "section must be one of time, stations, duration, users", http.StatusBadRequest)
		return
	}

	session, ok := h.openSession(w, r)
	if !ok {
		return
	}

	var (
		data    interface{}
		elapsed time.Duration
		err     error
	)
	switch section {
	case services.SectionTime:
		data, elapsed, err = h.statsService.TimeStats(ctx, session.Table)
	case services.SectionStations:
		data, elapsed, err = h.statsService.StationStats(ctx, session.Table)
	case services.SectionDuration:
		data, elapsed = h.statsService.DurationStats(ctx, session.Table)
	case services.SectionUsers:
		data, elapsed = h.statsService.UserStats(ctx, session.Table)
	}
	if err != nil {
		h.handleServiceError(w, r, err)
		return
	}

	response := SectionResponse{
		City:      session.City,
		Month:     session.Month.String(),
		Day:       session.Day.String(),
		Section:   section,
		TripCount: session.Table.Len(),
		Elapsed:   elapsed.String(),
		Data:      data,
	}

	h.metrics.RecordAPIRequest(endpoint(r), r.Method, "200")
	h.sendJSON(w, response, http.StatusOK)
}

// GetTrips handles GET /api/cities/{city}/trips
func (h *TripHandler) GetTrips(w http.ResponseWriter, r *http.Request) {
	defer h.observe(r, time.Now())

	page := 1
	if pageStr := r.URL.Query().Get("page"); pageStr != "" {
		p, err := strconv.Atoi(pageStr)
		if err != nil || p < 1 || p > math.MaxInt/models.PageSize {
			h.sendError(w, r, CodeInvalidPage, "page must be a positive integer within range", http.StatusBadRequest)
			return
		}
		page = p
	}

	session, ok := h.openSession(w, r)
	if !ok {
		return
	}

	total := session.Table.Len()
	totalPages := (total + models.PageSize - 1) / models.PageSize
	rows := models.PageWindow(session.Table, page-1, models.PageSize)
	h.metrics.PagesServedTotal.Inc()

	response := PaginatedResponse{
		Data:       rows,
		Total:      total,
		Page:       page,
		Limit:      models.PageSize,
		TotalPages: totalPages,
		HasMore:    page < totalPages,
	}

	h.metrics.RecordAPIRequest(endpoint(r), r.Method, "200")
	h.sendJSON(w, response, http.StatusOK)
}

// HealthCheck handles GET /health
func (h *TripHandler) HealthCheck(w http.ResponseWriter, r *http.Request) {
	defer h.observe(r, time.Now())
	ctx := r.Context()

	if err := h.tripService.HealthCheck(ctx); err != nil {
		h.logger.Warn(ctx, "[HEALTH_CHECK_FAILED] Trip source unavailable", logging.Fields{
			"error": err.Error(),
		})
		h.sendError(w, r, CodeUnavailable, "trip source unavailable", http.StatusServiceUnavailable)
		return
	}

	status := map[string]string{
		"status":    "healthy",
		"timestamp": time.Now().UTC().Format(time.RFC3339),
	}

	h.logger.Debug(ctx, "[HEALTH_CHECK] Health check requested", nil)
	h.metrics.RecordAPIRequest(endpoint(r), r.Method, "200")
	h.sendJSON(w, status, http.StatusOK)
}

// openSession loads and filters the city named in the path using the month and
// day query parameters. On failure the error response is already written.
func (h *TripHandler) openSession(w http.ResponseWriter, r *http.Request) (*services.Session, bool) {
	query := r.URL.Query()
	month := query.Get("month")
	if month == "" {
		month = models.All
	}
	day := query.Get("day")
	if day == "" {
		day = models.All
	}

	session, err := h.tripService.OpenSession(r.Context(), mux.Vars(r)["city"], month, day)
	if err != nil {
		h.handleServiceError(w, r, err)
		return nil, false
	}
	return session, true
}

// handleServiceError maps service errors onto HTTP status codes
func (h *TripHandler) handleServiceError(w http.ResponseWriter, r *http.Request, err error) {
	var notFound *repository.NotFoundError

	switch {
	case errors.Is(err, models.ErrUnknownCity):
		h.sendError(w, r, CodeUnknownCity, err.Error(), http.StatusBadRequest)
	case errors.Is(err, models.ErrInvalidSelector):
		h.sendError(w, r, CodeInvalidSelector, err.Error(), http.StatusBadRequest)
	case errors.Is(err, models.ErrEmptyDataset):
		h.sendError(w, r, CodeEmptyDataset, err.Error(), http.StatusNotFound)
	case errors.As(err, &notFound):
		h.sendError(w, r, CodeNotFound, "trip data not available for city", http.StatusNotFound)
	default:
		h.logger.Error(r.Context(), "[API_ERROR] Request failed", logging.Fields{
			"endpoint": endpoint(r),
		}, err)
		h.metrics.RecordAPIError("internal_error", endpoint(r))
		h.sendError(w, r, CodeInternal, "failed to process trip data", http.StatusInternalServerError)
	}
}

func (h *TripHandler) observe(r *http.Request, start time.Time) {
	h.metrics.APIRequestDuration.WithLabelValues(endpoint(r)).Observe(time.Since(start).Seconds())
}

// sendJSON sends a JSON response
func (h *TripHandler) sendJSON(w http.ResponseWriter, data interface{}, statusCode int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	json.NewEncoder(w).Encode(data)
}

// sendError sends an error response
func (h *TripHandler) sendError(w http.ResponseWriter, r *http.Request, errorCode, message string, statusCode int) {
	h.metrics.RecordAPIRequest(endpoint(r), r.Method, strconv.Itoa(statusCode))

	response := ErrorResponse{
		Error:     http.StatusText(statusCode),
		Message:   message,
		Code:      statusCode,
		ErrorCode: errorCode,
	}

	h.sendJSON(w, response, statusCode)
}

// endpoint returns the matched route template so path variables do not
// become metric labels
func endpoint(r *http.Request) string {
	if route := mux.CurrentRoute(r); route != nil {
		if tmpl, err := route.GetPathTemplate(); err == nil {
			return tmpl
		}
	}
	return r.URL.Path
}

func isSection(section string) bool {
	for _, s := range services.Sections {
		if s == section {
			return true
		}
	}
	return false
}

// RegisterRoutes registers all trip API routes
func (h *TripHandler) RegisterRoutes(router *mux.Router) {
	router.HandleFunc("/api/cities", h.ListCities).Methods("GET")
	router.HandleFunc("/api/cities/{city}/stats", h.GetReport).Methods("GET")
	router.HandleFunc("/api/cities/{city}/stats/{section}", h.GetSection).Methods("GET")
	router.HandleFunc("/api/cities/{city}/trips", h.GetTrips).Methods("GET")
	router.HandleFunc("/health", h.HealthCheck).Methods("GET")
	router.HandleFunc("/api/docs", SwaggerUI).Methods("GET")
	router.HandleFunc("/api/docs/openapi.json", OpenAPISpec).Methods("GET")
}
