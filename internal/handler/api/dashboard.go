package api

import (
	"context"
	"math"
	"net/http"
	"strconv"
	"time"

	"OracleDash/internal/domain/models"
	"OracleDash/internal/service/ratelimit"
	"OracleDash/internal/usecase"
	xhttp "OracleDash/pkg/http"
	xlogger "OracleDash/pkg/logger"

	"github.com/labstack/echo/v4"
)

// historyWait bounds how long a first read of a signal series waits for data.
const historyWait = 10 * time.Second

// DashboardHandler serves panel envelopes and dashboard actions over Echo.
type DashboardHandler struct {
	logger  *xlogger.Logger
	dash    *usecase.Dashboard
	limiter *ratelimit.Limiter
	stream  *Stream
}

func NewDashboardHandler(logger *xlogger.Logger, dash *usecase.Dashboard, limiter *ratelimit.Limiter, stream *Stream) *DashboardHandler {
	if logger == nil {
		logger = xlogger.Nop()
	}
	return &DashboardHandler{logger: logger, dash: dash, limiter: limiter, stream: stream}
}

func (h *DashboardHandler) RegisterRoutes(e *echo.Echo) {
	e.GET("/healthz", h.Healthz)

	g := e.Group("/api")
	g.GET("/panels", h.Panels)
	g.GET("/panels/:name", h.Panel)
	g.GET("/signals/history", h.SignalHistory)
	g.POST("/cycle/run", h.RunCycle)
	g.POST("/revalidate", h.Revalidate)
	if h.stream != nil {
		g.GET("/stream", h.stream.Serve)
	}
}

func (h *DashboardHandler) Panels(c echo.Context) error {
	return xhttp.SuccessResponse(c, h.dash.Panels())
}

func (h *DashboardHandler) Panel(c echo.Context) error {
	p, err := h.dash.Panel(c.Param("name"))
	if err != nil {
		if usecase.IsUnknownPanel(err) {
			return xhttp.AppErrorResponse(c, xhttp.NotFoundError("panel not found").WithParam("name", c.Param("name")))
		}
		return xhttp.AppErrorResponse(c, err)
	}
	return xhttp.SuccessResponse(c, p)
}

func (h *DashboardHandler) SignalHistory(c echo.Context) error {
	req := &models.SignalHistoryRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}
	ctx, cancel := context.WithTimeout(c.Request().Context(), historyWait)
	defer cancel()

	p, err := h.dash.SignalHistory(ctx, *req)
	if err != nil {
		h.logger.Warn("signal history wait failed",
			xlogger.String("source", req.Source),
			xlogger.String("name", req.Name),
			xlogger.Error(err),
		)
		return xhttp.AppErrorResponse(c, xhttp.NewAppError("ERR_TIMEOUT", "", "signal history not available yet", http.StatusGatewayTimeout).WithError(err))
	}
	return xhttp.SuccessResponse(c, p)
}

func (h *DashboardHandler) RunCycle(c echo.Context) error {
	if h.limiter != nil {
		if ok, wait := h.limiter.Reserve(c.RealIP()); !ok {
			appErr := xhttp.TooManyRequestsError("cycle runs are rate limited")
			if wait > 0 {
				secs := int(math.Ceil(wait.Seconds()))
				c.Response().Header().Set("Retry-After", strconv.Itoa(secs))
				appErr.WithParam("retry_after", secs)
			}
			return xhttp.AppErrorResponse(c, appErr)
		}
	}

	req := &models.CycleRunRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}

	out, err := h.dash.RunCycle(c.Request().Context(), *req)
	if err != nil {
		h.logger.Error("run cycle failed", xlogger.Error(err))
		return xhttp.AppErrorResponse(c, err)
	}
	return xhttp.SuccessResponse(c, out)
}

func (h *DashboardHandler) Revalidate(c echo.Context) error {
	return xhttp.SuccessResponse(c, h.dash.Revalidate(c.Request().Context()))
}

// HealthStatus combines the backend's health with each panel's status.
type HealthStatus struct {
	Status  string                    `json:"status"`
	Backend *models.HealthResponse    `json:"backend,omitempty"`
	Error   string                    `json:"error,omitempty"`
	Panels  map[string]usecase.Status `json:"panels"`
}

// Healthz answers 200 while the backend is reachable and 503 otherwise.
func (h *DashboardHandler) Healthz(c echo.Context) error {
	hs := HealthStatus{Status: "ok", Panels: make(map[string]usecase.Status, len(usecase.PanelNames))}
	for _, p := range h.dash.Panels() {
		hs.Panels[p.Name] = p.Status
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 3*time.Second)
	defer cancel()
	backend, err := h.dash.Health(ctx)
	if err != nil {
		hs.Status = "degraded"
		hs.Error = err.Error()
		return c.JSON(http.StatusServiceUnavailable, hs)
	}
	hs.Backend = backend
	return c.JSON(http.StatusOK, hs)
}
