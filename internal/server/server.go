package server

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spacesedan/sentiscope/internal/models"
	"github.com/spacesedan/sentiscope/internal/monitoring"
)

const (
	sourceHeader   = "X-Result-Source"
	degradedHeader = "X-Result-Degraded"

	// MAX_TEXT_BYTES bounds request bodies; models truncate long input anyway.
	MAX_TEXT_BYTES = 64 << 10
)

type Analyzer interface {
	Analyze(ctx context.Context, task models.Task, text string) (models.Result, error)
}

type Options struct {
	Analyzer    Analyzer
	Health      *monitoring.Health
	Gatherer    prometheus.Gatherer
	CORSOrigins []string
}

type SummaryResponse struct {
	SummaryText string `json:"summary_text"`
}

type handler struct {
	analyzer Analyzer
	health   *monitoring.Health
}

// NewRouter builds the HTTP surface. Analysis responses keep the shape of the
// self-hosted inference service: a list of {label, score} for classification
// tasks and {"summary_text"} for summaries.
func NewRouter(opts Options) *gin.Engine {
	router := gin.New()
	router.Use(RequestID())
	router.Use(Logger())
	router.Use(gin.Recovery())
	router.Use(CORS(opts.CORSOrigins))

	h := &handler{analyzer: opts.Analyzer, health: opts.Health}
	router.GET("/", h.root)
	router.GET("/health", h.healthCheck)
	if opts.Gatherer != nil {
		router.GET("/metrics", gin.WrapH(promhttp.HandlerFor(opts.Gatherer, promhttp.HandlerOpts{})))
	}
	router.POST("/analyze/:task", h.analyze)

	return router
}

func (h *handler) root(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok", "message": "sentiscope running"})
}

func (h *handler) healthCheck(c *gin.Context) {
	if h.health == nil {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
		return
	}

	status := http.StatusOK
	state := "ok"
	if !h.health.Healthy() {
		status = http.StatusServiceUnavailable
		state = "degraded"
	}
	c.JSON(status, gin.H{"status": state, "dependencies": h.health.Status()})
}

func (h *handler) analyze(c *gin.Context) {
	task, err := models.ParseTask(c.Param("task"))
	if err != nil {
		respondError(c, http.StatusBadRequest, err.Error())
		return
	}

	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, MAX_TEXT_BYTES)
	var req models.TextRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			respondError(c, http.StatusRequestEntityTooLarge,
				"request body exceeds "+strconv.FormatInt(tooLarge.Limit, 10)+" bytes")
			return
		}
		respondError(c, http.StatusBadRequest, "request body must be JSON of the form {\"text\": \"...\"}")
		return
	}

	if strings.TrimSpace(req.Text) == "" {
		if task == models.TaskSummary {
			c.JSON(http.StatusOK, SummaryResponse{SummaryText: ""})
			return
		}
		respondError(c, http.StatusBadRequest, "text must not be empty")
		return
	}

	result, err := h.analyzer.Analyze(c.Request.Context(), task, req.Text)
	if err != nil {
		handleAnalysisError(c, err)
		return
	}

	if result.Source != "" {
		c.Header(sourceHeader, result.Source)
	}
	c.Header(degradedHeader, strconv.FormatBool(result.Degraded))

	if task == models.TaskSummary {
		c.JSON(http.StatusOK, SummaryResponse{SummaryText: result.Summary})
		return
	}
	c.JSON(http.StatusOK, result.Classes)
}
