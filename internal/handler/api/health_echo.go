package api

import (
	"context"
	"errors"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"

	"VitalPulse/internal/domain/models"
	servicemetrics "VitalPulse/internal/service/metrics"
	"VitalPulse/internal/service/ratelimit"
	"VitalPulse/internal/services/catalog"
	"VitalPulse/internal/usecase"
	xhttp "VitalPulse/pkg/http"
	xlogger "VitalPulse/pkg/logger"
	"VitalPulse/pkg/util"
)

// HealthEchoHandler exposes the engine over HTTP.
type HealthEchoHandler struct {
	logger    *xlogger.Logger
	engine    *usecase.Engine
	snapshots *usecase.SnapshotService
	limiter   *ratelimit.Limiter
}

// NewHealthEchoHandler wires the handler. limiter may be nil to disable rate limiting.
func NewHealthEchoHandler(logger *xlogger.Logger, engine *usecase.Engine, snapshots *usecase.SnapshotService, limiter *ratelimit.Limiter) *HealthEchoHandler {
	servicemetrics.Register()
	if logger == nil {
		logger = xlogger.Nop()
	}
	return &HealthEchoHandler{logger: logger, engine: engine, snapshots: snapshots, limiter: limiter}
}

var _ xhttp.Handler = (*HealthEchoHandler)(nil)

func (h *HealthEchoHandler) RegisterRoutes(e *echo.Echo) {
	g := e.Group("/api")
	g.GET("/catalog", h.Catalog)
	g.POST("/observations", h.Ingest)
	g.GET("/baselines/:user_id", h.ListBaselines)
	g.GET("/baselines/:user_id/:metric", h.GetBaseline)
	g.PUT("/baselines/:user_id/:metric/thresholds", h.OverrideThresholds)
	g.GET("/classify", h.Classify)
	g.GET("/pattern-breaks", h.PatternBreaks)
	g.GET("/snapshot", h.Snapshot)
	g.POST("/snapshot/jobs", h.EnqueueSnapshot)
}

func (h *HealthEchoHandler) Catalog(c echo.Context) error {
	return xhttp.SuccessResponse(c, catalog.All())
}

func (h *HealthEchoHandler) Ingest(c echo.Context) error {
	defer observe("ingest", time.Now())
	req := &models.ObservationRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}
	obs := models.Observation{
		UserID:     req.UserID,
		MetricType: models.MetricType(req.Metric),
		Value:      *req.Value,
		Source:     req.Source,
		WindowDays: req.WindowDays,
	}
	if req.Timestamp != "" {
		ts, ok := util.ParseTime(req.Timestamp)
		if !ok {
			return xhttp.AppErrorResponse(c, xhttp.BadRequestError("ts must be RFC3339 or unix time"))
		}
		obs.Timestamp = ts.UTC()
	}

	b, err := h.engine.Baselines.Ingest(c.Request().Context(), obs)
	if err != nil {
		return h.fail(c, "ingest", req.Metric, err)
	}
	return xhttp.CreatedResponse(c, b)
}

func (h *HealthEchoHandler) ListBaselines(c echo.Context) error {
	userID := c.Param("user_id")
	out, err := h.engine.Baselines.List(c.Request().Context(), userID)
	if err != nil {
		return h.fail(c, "list_baselines", "", err)
	}
	return xhttp.SuccessResponse(c, out)
}

func (h *HealthEchoHandler) GetBaseline(c echo.Context) error {
	req := &models.BaselineRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}
	b, err := h.engine.Baselines.Get(c.Request().Context(), req.UserID, models.MetricType(req.Metric))
	if err != nil {
		return h.fail(c, "get_baseline", req.Metric, err)
	}
	if b == nil {
		return h.fail(c, "get_baseline", req.Metric, models.ErrBaselineNotFound)
	}
	return xhttp.SuccessResponse(c, b)
}

func (h *HealthEchoHandler) OverrideThresholds(c echo.Context) error {
	req := &models.ThresholdOverrideRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}
	b, err := h.engine.Baselines.OverrideThresholds(c.Request().Context(), req.UserID, models.MetricType(req.Metric), models.ThresholdOverride{
		AlertThresholdPct:    req.AlertThresholdPct,
		CriticalThresholdPct: req.CriticalThresholdPct,
		NormalRangeMin:       req.NormalRangeMin,
		NormalRangeMax:       req.NormalRangeMax,
	})
	if err != nil {
		return h.fail(c, "override_thresholds", req.Metric, err)
	}
	return xhttp.SuccessResponse(c, b)
}

func (h *HealthEchoHandler) Classify(c echo.Context) error {
	defer observe("classify", time.Now())
	req := &models.ClassifyRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}
	if !h.allow(req.UserID, "classify") {
		return xhttp.AppErrorResponse(c, xhttp.TooManyRequestsError("too many requests"))
	}
	value, err := strconv.ParseFloat(req.Value, 64)
	if err != nil {
		return xhttp.AppErrorResponse(c, xhttp.BadRequestError("value must be a number"))
	}

	res, err := h.engine.Classify(c.Request().Context(), req.UserID, models.MetricType(req.Metric), value)
	if err != nil {
		return h.fail(c, "classify", req.Metric, err)
	}
	return xhttp.SuccessResponse(c, res)
}

func (h *HealthEchoHandler) PatternBreaks(c echo.Context) error {
	defer observe("pattern_breaks", time.Now())
	req := &models.PatternBreaksRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}
	breaks, err := h.engine.DetectPatternBreaks(c.Request().Context(), req.UserID)
	if err != nil {
		return h.fail(c, "pattern_breaks", "", err)
	}
	return xhttp.SuccessResponse(c, breaks)
}

func (h *HealthEchoHandler) Snapshot(c echo.Context) error {
	defer observe("snapshot", time.Now())
	req := &models.SnapshotRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}
	if !h.allow(req.UserID, "snapshot") {
		return xhttp.AppErrorResponse(c, xhttp.TooManyRequestsError("too many requests"))
	}

	snap, hit, err := h.snapshots.Get(c.Request().Context(), req.UserID, req.Refresh)
	if err != nil {
		return h.fail(c, "snapshot", "", err)
	}
	if hit {
		c.Response().Header().Set("X-Cache", "HIT")
		servicemetrics.SnapshotCache.WithLabelValues("hit").Inc()
	} else {
		c.Response().Header().Set("X-Cache", "MISS")
		servicemetrics.SnapshotCache.WithLabelValues("miss").Inc()
	}
	c.Response().Header().Set(echo.HeaderCacheControl, "private, max-age=15")
	return xhttp.SuccessResponse(c, snap)
}

func (h *HealthEchoHandler) EnqueueSnapshot(c echo.Context) error {
	req := &models.SnapshotJobRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}
	if err := h.snapshots.Enqueue(c.Request().Context(), req.UserID); err != nil {
		return h.fail(c, "snapshot_jobs", "", err)
	}
	return xhttp.AcceptedResponse(c, map[string]string{"user_id": req.UserID, "status": "queued"})
}

func (h *HealthEchoHandler) allow(userID, endpoint string) bool {
	if h.limiter == nil || h.limiter.Allow(userID) {
		return true
	}
	servicemetrics.RateLimited.WithLabelValues(endpoint).Inc()
	return false
}

func (h *HealthEchoHandler) fail(c echo.Context, endpoint, metric string, err error) error {
	appErr := mapError(metric, err)
	servicemetrics.APIErrors.WithLabelValues(endpoint, appErr.Code).Inc()
	if appErr.Status >= 500 {
		h.logger.Error("health api error", xlogger.String("endpoint", endpoint), xlogger.Metric(metric), xlogger.Error(err))
	}
	return xhttp.AppErrorResponse(c, appErr)
}

func mapError(metric string, err error) *xhttp.AppError {
	switch {
	case errors.Is(err, models.ErrUnknownMetric):
		return xhttp.UnknownMetricError(metric)
	case errors.Is(err, models.ErrInvalidObservation), errors.Is(err, models.ErrInvalidThreshold):
		return xhttp.BadRequestError(err.Error())
	case errors.Is(err, models.ErrBaselineNotFound):
		return xhttp.NotFoundError("baseline not found")
	case errors.Is(err, models.ErrConflict):
		return xhttp.ConflictError("baseline changed concurrently, retry")
	case errors.Is(err, usecase.ErrJobsDisabled):
		return xhttp.ServiceUnavailableError("snapshot jobs are disabled")
	case errors.Is(err, context.DeadlineExceeded):
		return xhttp.ServiceUnavailableError("upstream timeout").WithError(err)
	default:
		return xhttp.InternalError("internal error").WithError(err)
	}
}

func observe(endpoint string, start time.Time) {
	servicemetrics.APILatency.WithLabelValues(endpoint).Observe(time.Since(start).Seconds())
}
