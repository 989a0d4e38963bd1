package handler

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/BarkinBalci/channel-attribution-service/internal/assembler"
	"github.com/BarkinBalci/channel-attribution-service/internal/domain"
	"github.com/BarkinBalci/channel-attribution-service/internal/dto"
	"github.com/BarkinBalci/channel-attribution-service/internal/repository"
	"github.com/BarkinBalci/channel-attribution-service/internal/service"
)

type Handler struct {
	touchpointService  service.TouchpointServicer
	attributionService service.AttributionServicer
	metricsHandler     http.Handler
	router             *gin.Engine
	log                *zap.Logger
}

// NewHandler wires the HTTP routes. metricsHandler may be nil, in which case
// no metrics route is registered.
func NewHandler(
	touchpointService service.TouchpointServicer,
	attributionService service.AttributionServicer,
	metricsHandler http.Handler,
	log *zap.Logger,
) *Handler {
	h := &Handler{
		touchpointService:  touchpointService,
		attributionService: attributionService,
		metricsHandler:     metricsHandler,
		router:             gin.Default(),
		log:                log,
	}

	h.registerRoutes()

	return h
}

func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	h.router.ServeHTTP(w, r)
}

func (h *Handler) registerRoutes() {
	h.router.GET("/health", h.healthCheck)
	h.router.POST("/touchpoints", h.publishTouchpoint)
	h.router.POST("/touchpoints/bulk", h.publishTouchpointsBulk)
	h.router.POST("/attribution", h.attribute)
	h.router.POST("/attribution/runs", h.createRun)
	h.router.GET("/attribution/runs/:run_id", h.getRun)
	if h.metricsHandler != nil {
		h.router.GET("/internal/metrics", gin.WrapH(h.metricsHandler))
	}
}

// healthCheck handles health check requests
// @Summary Health check
// @Description Check if the service is running
// @Tags health
// @Produce json
// @Success 200 {object} map[string]string
// @Router /health [get]
func (h *Handler) healthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status": "ok",
	})
}

// publishTouchpoint handles POST /touchpoints
// @Summary Publish a single touchpoint
// @Description Publish a single marketing touchpoint to the ingestion queue
// @Tags touchpoints
// @Accept json
// @Produce json
// @Param touchpoint body dto.PublishTouchpointRequest true "Touchpoint data"
// @Success 202 {object} dto.PublishTouchpointResponse
// @Failure 400 {object} dto.ErrorResponse
// @Failure 500 {object} dto.ErrorResponse
// @Router /touchpoints [post]
func (h *Handler) publishTouchpoint(c *gin.Context) {
	var req dto.PublishTouchpointRequest

	if err := c.ShouldBindJSON(&req); err != nil {
		h.log.Warn("Invalid touchpoint request",
			zap.Error(err),
			zap.String("channel", req.Channel))
		c.JSON(http.StatusBadRequest, dto.ErrorResponse{
			Error:   "validation_error",
			Message: err.Error(),
		})
		return
	}

	touchpointID, err := h.touchpointService.ProcessTouchpoint(c.Request.Context(), &req)
	if err != nil {
		h.log.Error("Failed to process touchpoint",
			zap.Error(err),
			zap.String("channel", req.Channel),
			zap.String("user_id", req.UserID))
		c.JSON(http.StatusInternalServerError, dto.ErrorResponse{
			Error:   "internal_error",
			Message: err.Error(),
		})
		return
	}

	h.log.Info("Touchpoint accepted",
		zap.String("touchpoint_id", touchpointID),
		zap.String("channel", req.Channel))

	c.JSON(http.StatusAccepted, dto.PublishTouchpointResponse{
		TouchpointID: touchpointID,
		Status:       "accepted",
	})
}

// publishTouchpointsBulk handles POST /touchpoints/bulk
// @Summary Publish multiple touchpoints
// @Description Publish up to 1000 touchpoints to the ingestion queue
// @Tags touchpoints
// @Accept json
// @Produce json
// @Param touchpoints body dto.PublishTouchpointsBulkRequest true "Bulk touchpoint data"
// @Success 202 {object} dto.PublishBulkTouchpointsResponse
// @Failure 400 {object} dto.ErrorResponse
// @Router /touchpoints/bulk [post]
func (h *Handler) publishTouchpointsBulk(c *gin.Context) {
	var bulkRequest dto.PublishTouchpointsBulkRequest

	if err := c.ShouldBindJSON(&bulkRequest); err != nil {
		h.log.Warn("Invalid bulk touchpoint request", zap.Error(err))
		c.JSON(http.StatusBadRequest, dto.ErrorResponse{
			Error:   "validation_error",
			Message: err.Error(),
		})
		return
	}

	touchpointIDs, errs := h.touchpointService.ProcessBulkTouchpoints(c.Request.Context(), bulkRequest.Touchpoints)

	h.log.Info("Bulk touchpoints processed",
		zap.Int("accepted", len(touchpointIDs)),
		zap.Int("rejected", len(errs)),
		zap.Int("total", len(bulkRequest.Touchpoints)))

	c.JSON(http.StatusAccepted, dto.PublishBulkTouchpointsResponse{
		Accepted:      len(touchpointIDs),
		Rejected:      len(errs),
		TouchpointIDs: touchpointIDs,
		Errors:        errs,
	})
}

// attribute handles POST /attribution
// @Summary Attribute inline touchpoints
// @Description Run every attribution model over the submitted touchpoints and return the credits
// @Tags attribution
// @Accept json
// @Produce json
// @Param touchpoints body dto.AttributeRequest true "Touchpoints to attribute"
// @Success 200 {object} dto.AttributeResponse
// @Failure 400 {object} dto.ErrorResponse
// @Failure 422 {object} dto.ErrorResponse
// @Failure 500 {object} dto.ErrorResponse
// @Router /attribution [post]
func (h *Handler) attribute(c *gin.Context) {
	var req dto.AttributeRequest

	if err := c.ShouldBindJSON(&req); err != nil {
		h.log.Warn("Invalid attribution request", zap.Error(err))
		c.JSON(http.StatusBadRequest, dto.ErrorResponse{
			Error:   "validation_error",
			Message: err.Error(),
		})
		return
	}

	events := make([]domain.TouchpointEvent, len(req.Touchpoints))
	for i, tp := range req.Touchpoints {
		events[i] = domain.TouchpointEvent{
			UserID:    tp.UserID,
			Channel:   tp.Channel,
			Step:      tp.Step,
			Timestamp: time.Unix(tp.Timestamp, 0).UTC(),
		}
	}

	result, err := h.attributionService.Attribute(c.Request.Context(), events)
	if err != nil {
		h.writeAttributionError(c, "Failed to attribute touchpoints", err)
		return
	}

	columns := make([]string, len(result.Wide.Columns))
	for i, col := range result.Wide.Columns {
		columns[i] = col.Name()
	}

	h.log.Info("Attribution computed",
		zap.Int("touchpoint_count", len(events)),
		zap.Int("converter_count", len(result.Wide.UserIDs)))

	c.JSON(http.StatusOK, dto.AttributeResponse{
		Converters: len(result.Wide.UserIDs),
		Columns:    columns,
		Credits:    toCreditRows(result.Long),
	})
}

// createRun handles POST /attribution/runs
// @Summary Run attribution over stored touchpoints
// @Description Attribute every stored touchpoint in the time range and persist the credits under a new run ID
// @Tags attribution
// @Accept json
// @Produce json
// @Param run body dto.CreateRunRequest true "Time range (Unix epoch)"
// @Success 201 {object} dto.RunResponse
// @Failure 400 {object} dto.ErrorResponse
// @Failure 422 {object} dto.ErrorResponse
// @Failure 500 {object} dto.ErrorResponse
// @Router /attribution/runs [post]
func (h *Handler) createRun(c *gin.Context) {
	var req dto.CreateRunRequest

	if err := c.ShouldBindJSON(&req); err != nil {
		h.log.Warn("Invalid run request", zap.Error(err))
		c.JSON(http.StatusBadRequest, dto.ErrorResponse{
			Error:   "validation_error",
			Message: err.Error(),
		})
		return
	}

	summary, err := h.attributionService.RunFromStore(c.Request.Context(), service.RunRequest{
		From: time.Unix(req.From, 0).UTC(),
		To:   time.Unix(req.To, 0).UTC(),
	})
	if err != nil {
		h.writeAttributionError(c, "Failed to run attribution",
			err, zap.Int64("from", req.From), zap.Int64("to", req.To))
		return
	}

	c.JSON(http.StatusCreated, dto.RunResponse{
		RunID:      summary.RunID,
		From:       summary.From.Unix(),
		To:         summary.To.Unix(),
		Journeys:   summary.Journeys,
		Converters: summary.Converters,
		Rows:       summary.Rows,
	})
}

// getRun handles GET /attribution/runs/:run_id
// @Summary Get the credits of a run
// @Description Retrieve the stored long-format credits of an attribution run
// @Tags attribution
// @Produce json
// @Param run_id path string true "Run ID" example:"3f1c2a8e-8d8b-4f4e-9c55-0d9b6f1e2a11"
// @Success 200 {object} dto.GetRunResponse
// @Failure 400 {object} dto.ErrorResponse
// @Failure 404 {object} dto.ErrorResponse
// @Failure 500 {object} dto.ErrorResponse
// @Router /attribution/runs/{run_id} [get]
func (h *Handler) getRun(c *gin.Context) {
	runID := c.Param("run_id")

	rows, err := h.attributionService.GetRun(c.Request.Context(), runID)
	if errors.Is(err, repository.ErrRunNotFound) {
		c.JSON(http.StatusNotFound, dto.ErrorResponse{
			Error:   "not_found",
			Message: err.Error(),
		})
		return
	}
	if err != nil {
		h.writeAttributionError(c, "Failed to get run", err, zap.String("run_id", runID))
		return
	}

	c.JSON(http.StatusOK, dto.GetRunResponse{
		RunID:   runID,
		Credits: toCreditRows(rows),
	})
}

// writeAttributionError maps input errors to 400, numerical failures to 422
// and everything else to 500
func (h *Handler) writeAttributionError(c *gin.Context, msg string, err error, fields ...zap.Field) {
	fields = append(fields, zap.Error(err))

	switch {
	case service.IsInvalidInput(err):
		h.log.Warn(msg, fields...)
		c.JSON(http.StatusBadRequest, dto.ErrorResponse{
			Error:   "validation_error",
			Message: err.Error(),
		})
	case errors.Is(err, domain.ErrNumerical):
		h.log.Warn(msg, fields...)
		c.JSON(http.StatusUnprocessableEntity, dto.ErrorResponse{
			Error:   "numerical_error",
			Message: err.Error(),
		})
	default:
		h.log.Error(msg, fields...)
		c.JSON(http.StatusInternalServerError, dto.ErrorResponse{
			Error:   "internal_error",
			Message: err.Error(),
		})
	}
}

func toCreditRows(rows []assembler.LongRow) []dto.CreditRow {
	out := make([]dto.CreditRow, len(rows))
	for i, r := range rows {
		out[i] = dto.CreditRow{
			UserID:  r.UserID,
			Model:   string(r.Model),
			Channel: r.Channel,
			Credit:  r.Credit,
		}
	}
	return out
}
