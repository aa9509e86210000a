package http

import (
	"bytes"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/garyjia/cierres-audit/internal/application/port"
	"github.com/garyjia/cierres-audit/internal/application/service"
	"github.com/garyjia/cierres-audit/internal/dates"
	"github.com/garyjia/cierres-audit/internal/domain/entity"
	"github.com/garyjia/cierres-audit/internal/domain/workflow"
)

const (
	defaultMetricsDays = 7
	maxMetricsDays     = 366
	defaultExportDays  = 30
	xlsxContentType    = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
)

// Handlers contains all HTTP request handlers
type Handlers struct {
	services Services
	clock    dates.Clock
	apiToken string
	logger   Logger
}

// NewHandlers creates a new Handlers instance
func NewHandlers(services Services, clock dates.Clock, apiToken string, logger Logger) *Handlers {
	return &Handlers{
		services: services,
		clock:    clock,
		apiToken: apiToken,
		logger:   logger,
	}
}

// Response represents a standard JSON response
type Response struct {
	Success bool        `json:"success"`
	Data    interface{} `json:"data,omitempty"`
	Error   string      `json:"error,omitempty"`
	Message string      `json:"message,omitempty"`
}

// HealthResponse represents the health check response
type HealthResponse struct {
	Status    string `json:"status"`
	Service   string `json:"service"`
	Timestamp string `json:"timestamp"`
}

// IngestRequest is the body of POST /api/ingest. Texto is accepted as an
// alias of Text.
type IngestRequest struct {
	Text  string `json:"text"`
	Texto string `json:"texto"`
}

// WebhookRequest is the body of POST /api/webhook
type WebhookRequest struct {
	IngestRequest
	Token string `json:"token"`
}

// EnvelopeRequest is the body of POST /api/envelopes
type EnvelopeRequest struct {
	ClosingID string `json:"closing_id"`
	Counted   *int64 `json:"counted"`
	Notes     string `json:"notes"`
}

// ReviewRequest is the body of POST /api/review/trigger
type ReviewRequest struct {
	ClosingID string `json:"closing_id"`
}

// NotesRequest is the body of PATCH /api/closings/:id/notes
type NotesRequest struct {
	Notes string `json:"notes"`
}

// ListClosingsRequest represents query parameters for listing closings
type ListClosingsRequest struct {
	Date     string `form:"date"`
	From     string `form:"from"`
	To       string `form:"to"`
	Business string `form:"business"`
	State    string `form:"state"`
	Risk     string `form:"risk"`
	Limit    int    `form:"limit"`
	Offset   int    `form:"offset"`
}

// HealthCheck handles GET /health
func (h *Handlers) HealthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, Response{
		Success: true,
		Data: HealthResponse{
			Status:    "healthy",
			Service:   "cierres-audit",
			Timestamp: time.Now().UTC().Format(time.RFC3339),
		},
	})
}

// Ingest handles POST /api/ingest
func (h *Handlers) Ingest(c *gin.Context) {
	var req IngestRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.badRequest(c, "invalid request body", err)
		return
	}
	h.ingest(c, req.text())
}

// Webhook handles POST /api/webhook, used by phone shortcuts that cannot set
// headers
func (h *Handlers) Webhook(c *gin.Context) {
	var req WebhookRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.badRequest(c, "invalid request body", err)
		return
	}
	if h.apiToken == "" || !tokenMatches(req.Token, h.apiToken) {
		c.JSON(http.StatusUnauthorized, Response{Success: false, Error: "Token inválido"})
		return
	}
	h.ingest(c, req.text())
}

func (h *Handlers) ingest(c *gin.Context, text string) {
	result, err := h.services.Ingest.Ingest(c.Request.Context(), text)
	if errors.Is(err, service.ErrEmptyText) {
		c.JSON(http.StatusBadRequest, Response{Success: false, Error: "Texto vacío"})
		return
	}
	if err != nil {
		h.internalError(c, "Ingest failed", err)
		return
	}

	status := http.StatusOK
	if !result.Success && len(result.Records) == 0 && len(result.Failed) == 0 {
		status = http.StatusBadRequest
	}
	c.JSON(status, Response{Success: result.Success, Data: result})
}

// RegisterEnvelope handles POST /api/envelopes
func (h *Handlers) RegisterEnvelope(c *gin.Context) {
	var req EnvelopeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.badRequest(c, "invalid request body", err)
		return
	}
	if req.ClosingID == "" || req.Counted == nil {
		h.badRequest(c, "closing_id and counted are required", nil)
		return
	}

	closing, err := h.services.Envelope.Register(c.Request.Context(), req.ClosingID, *req.Counted, req.Notes)
	switch {
	case errors.Is(err, service.ErrNotFound):
		h.notFound(c)
	case errors.Is(err, service.ErrInvalidCount):
		h.badRequest(c, "counted cannot be negative", err)
	case err != nil:
		h.internalError(c, "Envelope registration failed", err)
	default:
		c.JSON(http.StatusOK, Response{Success: true, Data: closing})
	}
}

// PendingEnvelopes handles GET /api/envelopes/pending
func (h *Handlers) PendingEnvelopes(c *gin.Context) {
	closings, err := h.services.Closings.PendingEnvelopes(c.Request.Context())
	if err != nil {
		h.internalError(c, "Failed to list pending envelopes", err)
		return
	}
	c.JSON(http.StatusOK, Response{Success: true, Data: closings})
}

// ListClosings handles GET /api/closings
func (h *Handlers) ListClosings(c *gin.Context) {
	var req ListClosingsRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		h.badRequest(c, "invalid query parameters", err)
		return
	}

	filter := port.ClosingFilter{
		From:     req.From,
		To:       req.To,
		Business: req.Business,
		State:    workflow.State(req.State),
		Risk:     entity.RiskLevel(req.Risk),
		Limit:    req.Limit,
		Offset:   req.Offset,
	}
	if req.Date != "" {
		filter.From, filter.To = req.Date, req.Date
	}
	if !validDate(filter.From) || !validDate(filter.To) {
		h.badRequest(c, "dates must be YYYY-MM-DD", nil)
		return
	}

	closings, err := h.services.Closings.List(c.Request.Context(), filter)
	if err != nil {
		h.internalError(c, "Failed to list closings", err)
		return
	}
	c.JSON(http.StatusOK, Response{Success: true, Data: closings})
}

// GetClosing handles GET /api/closings/:id
func (h *Handlers) GetClosing(c *gin.Context) {
	detail, err := h.services.Closings.Get(c.Request.Context(), c.Param("id"))
	if errors.Is(err, service.ErrNotFound) {
		h.notFound(c)
		return
	}
	if err != nil {
		h.internalError(c, "Failed to get closing", err)
		return
	}
	c.JSON(http.StatusOK, Response{Success: true, Data: detail})
}

// SaveNotes handles PATCH /api/closings/:id/notes
func (h *Handlers) SaveNotes(c *gin.Context) {
	var req NotesRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.badRequest(c, "invalid request body", err)
		return
	}
	if strings.TrimSpace(req.Notes) == "" {
		h.badRequest(c, "notes are required", nil)
		return
	}

	closing, err := h.services.Closings.SaveNotes(c.Request.Context(), c.Param("id"), req.Notes)
	switch {
	case errors.Is(err, service.ErrNotFound):
		h.notFound(c)
	case err != nil:
		h.internalError(c, "Failed to save notes", err)
	default:
		c.JSON(http.StatusOK, Response{Success: true, Data: closing})
	}
}

// PendingAlerts handles GET /api/alerts
func (h *Handlers) PendingAlerts(c *gin.Context) {
	date := c.Query("date")
	if !validDate(date) {
		h.badRequest(c, "dates must be YYYY-MM-DD", nil)
		return
	}

	alerts, err := h.services.Closings.PendingAlerts(c.Request.Context(), date)
	if err != nil {
		h.internalError(c, "Failed to list alerts", err)
		return
	}
	c.JSON(http.StatusOK, Response{Success: true, Data: alerts})
}

// ResolveAlert handles PATCH /api/alerts/:id/resolve
func (h *Handlers) ResolveAlert(c *gin.Context) {
	idStr := c.Param("id")
	id, err := strconv.ParseInt(idStr, 10, 64)
	if err != nil {
		h.badRequest(c, "invalid alert ID", err)
		return
	}

	if err := h.services.Closings.ResolveAlert(c.Request.Context(), id); err != nil {
		h.internalError(c, "Failed to resolve alert", err)
		return
	}
	c.JSON(http.StatusOK, Response{Success: true})
}

// Status handles GET /api/status
func (h *Handlers) Status(c *gin.Context) {
	status, err := h.services.Closings.Status(c.Request.Context())
	if err != nil {
		h.internalError(c, "Failed to count queues", err)
		return
	}
	c.JSON(http.StatusOK, Response{Success: true, Data: status})
}

// TriggerReview handles POST /api/review/trigger
func (h *Handlers) TriggerReview(c *gin.Context) {
	var req ReviewRequest
	if err := c.ShouldBindJSON(&req); err != nil || req.ClosingID == "" {
		h.badRequest(c, "closing_id is required", err)
		return
	}

	h.logger.Info("Triggering review", "closing_id", req.ClosingID)

	outcome, err := h.services.Review.Review(c.Request.Context(), req.ClosingID)
	if errors.Is(err, service.ErrNotFound) {
		h.notFound(c)
		return
	}
	if err != nil {
		h.internalError(c, "Review failed", err)
		return
	}
	c.JSON(http.StatusOK, Response{Success: true, Data: outcome})
}

// Metrics handles GET /api/metrics?days=7. The Spanish dias is also accepted.
func (h *Handlers) Metrics(c *gin.Context) {
	raw := c.DefaultQuery("days", c.Query("dias"))
	days := defaultMetricsDays
	if raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 || n > maxMetricsDays {
			h.badRequest(c, fmt.Sprintf("days must be between 1 and %d", maxMetricsDays), err)
			return
		}
		days = n
	}

	from := dates.FormatISO(h.clock.Today().AddDate(0, 0, -days))
	metrics, err := h.services.Summary.Metrics(c.Request.Context(), from)
	if err != nil {
		h.internalError(c, "Failed to compute metrics", err)
		return
	}
	c.JSON(http.StatusOK, Response{Success: true, Data: metrics})
}

// Export handles GET /api/export.xlsx?from=&to=. The range defaults to the
// last 30 days.
func (h *Handlers) Export(c *gin.Context) {
	to := c.DefaultQuery("to", h.clock.TodayISO())
	from := c.DefaultQuery("from", dates.FormatISO(h.clock.Today().AddDate(0, 0, -defaultExportDays)))
	if !validDate(from) || !validDate(to) {
		h.badRequest(c, "dates must be YYYY-MM-DD", nil)
		return
	}

	var buf bytes.Buffer
	if err := h.services.Summary.ExportWorkbook(c.Request.Context(), from, to, &buf); err != nil {
		h.internalError(c, "Export failed", err)
		return
	}

	filename := fmt.Sprintf("cierres_%s_%s.xlsx", from, to)
	c.Header("Content-Disposition", fmt.Sprintf(`attachment; filename="%s"`, filename))
	c.Data(http.StatusOK, xlsxContentType, buf.Bytes())
}

// CronReviewQueue handles GET /api/cron/review-queue. One closing is
// reviewed per call.
func (h *Handlers) CronReviewQueue(c *gin.Context) {
	outcome, err := h.services.Review.ProcessNext(c.Request.Context())
	if err != nil {
		h.internalError(c, "Queued review failed", err)
		return
	}
	if outcome == nil {
		c.JSON(http.StatusOK, Response{Success: true, Message: "No hay cierres pendientes de IA"})
		return
	}
	c.JSON(http.StatusOK, Response{Success: true, Data: outcome})
}

// CronDailySummary handles GET /api/cron/daily-summary?date=
func (h *Handlers) CronDailySummary(c *gin.Context) {
	date := c.Query("date")
	if !validDate(date) {
		h.badRequest(c, "dates must be YYYY-MM-DD", nil)
		return
	}

	summary, err := h.services.Summary.DailySummary(c.Request.Context(), date)
	if err != nil {
		h.internalError(c, "Daily summary failed", err)
		return
	}
	if summary.Closings == 0 {
		c.JSON(http.StatusOK, Response{Success: true, Data: summary, Message: "Sin cierres hoy"})
		return
	}
	c.JSON(http.StatusOK, Response{Success: true, Data: summary})
}

// CronDriveFolders handles GET /api/cron/drive-folders?date=. Without a date
// tomorrow's folders are created.
func (h *Handlers) CronDriveFolders(c *gin.Context) {
	date := c.Query("date")
	if !validDate(date) {
		h.badRequest(c, "dates must be YYYY-MM-DD", nil)
		return
	}

	var (
		result *service.FolderResult
		err    error
	)
	if date == "" {
		result, err = h.services.Folders.ProvisionTomorrow(c.Request.Context())
	} else {
		result, err = h.services.Folders.Provision(c.Request.Context(), date)
	}
	if err != nil {
		h.internalError(c, "Folder provisioning failed", err)
		return
	}
	c.JSON(http.StatusOK, Response{Success: result.Failed == 0, Data: result})
}

func (r IngestRequest) text() string {
	if r.Text != "" {
		return r.Text
	}
	return r.Texto
}

// validDate accepts an empty value or a YYYY-MM-DD date
func validDate(s string) bool {
	if s == "" {
		return true
	}
	_, err := time.Parse("2006-01-02", s)
	return err == nil
}

func (h *Handlers) badRequest(c *gin.Context, msg string, err error) {
	if err != nil {
		h.logger.Error("Invalid request", "path", c.Request.URL.Path, "error", err)
	}
	c.JSON(http.StatusBadRequest, Response{Success: false, Error: msg})
}

func (h *Handlers) notFound(c *gin.Context) {
	c.JSON(http.StatusNotFound, Response{Success: false, Error: "Cierre no encontrado"})
}

func (h *Handlers) internalError(c *gin.Context, msg string, err error) {
	h.logger.Error(msg, "path", c.Request.URL.Path, "error", err)
	c.JSON(http.StatusInternalServerError, Response{Success: false, Error: err.Error()})
}
