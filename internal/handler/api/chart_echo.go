package api

import (
	"context"
	"errors"
	"io"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	models "ChartVerdict/internal/domain/models"
	domrepo "ChartVerdict/internal/domain/repository"
	"ChartVerdict/internal/service/ratelimit"
	"ChartVerdict/internal/usecase"
	xhttp "ChartVerdict/pkg/http"
	xlogger "ChartVerdict/pkg/logger"
)

// multipartOverhead allows for boundaries and the symbol field on top of the file itself.
const multipartOverhead = 1 << 20

// HealthCheck probes one dependency.
type HealthCheck func(ctx context.Context) error

// ChartEchoHandler serves the verdict endpoint and the per-signal endpoints.
type ChartEchoHandler struct {
	logger       *xlogger.Logger
	analyze      *usecase.AnalyzeUseCase
	technicals   *usecase.TechnicalsUseCase
	fundamentals *usecase.FundamentalsService
	news         *usecase.NewsService
	limiter      *ratelimit.Limiter
	maxUpload    int64
	health       map[string]HealthCheck
}

// Option configures ChartEchoHandler.
type Option func(*ChartEchoHandler)

// WithRateLimiter applies limiter to every /api route.
func WithRateLimiter(limiter *ratelimit.Limiter) Option {
	return func(h *ChartEchoHandler) { h.limiter = limiter }
}

// WithMaxUpload caps the chart file size in bytes.
func WithMaxUpload(n int64) Option {
	return func(h *ChartEchoHandler) {
		if n > 0 {
			h.maxUpload = n
		}
	}
}

// WithHealthCheck adds a named dependency probe to /health.
func WithHealthCheck(name string, check HealthCheck) Option {
	return func(h *ChartEchoHandler) { h.health[name] = check }
}

func NewChartEchoHandler(
	logger *xlogger.Logger,
	analyze *usecase.AnalyzeUseCase,
	technicals *usecase.TechnicalsUseCase,
	fundamentals *usecase.FundamentalsService,
	news *usecase.NewsService,
	opts ...Option,
) *ChartEchoHandler {
	if logger == nil {
		logger = xlogger.Nop()
	}
	h := &ChartEchoHandler{
		logger:       logger,
		analyze:      analyze,
		technicals:   technicals,
		fundamentals: fundamentals,
		news:         news,
		maxUpload:    10 << 20,
		health:       map[string]HealthCheck{},
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

func (h *ChartEchoHandler) RegisterRoutes(e *echo.Echo) {
	e.GET("/health", h.Health)

	var mw []echo.MiddlewareFunc
	if h.limiter != nil {
		mw = append(mw, h.limiter.Middleware(h.logger))
	}
	g := e.Group("/api", mw...)
	g.POST("/analyze", h.Analyze)
	g.GET("/technicals/:symbol", h.Technicals)
	g.GET("/fundamentals/:symbol", h.Fundamentals)
	g.GET("/news/:symbol", h.News)
}

// Analyze accepts a multipart upload with a "chart" file and an optional "symbol" field.
func (h *ChartEchoHandler) Analyze(c echo.Context) error {
	r := c.Request()
	if r.ContentLength > h.maxUpload+multipartOverhead {
		return xhttp.AppErrorResponse(c, xhttp.PayloadTooLargeError("chart", h.maxUpload))
	}
	r.Body = http.MaxBytesReader(c.Response(), r.Body, h.maxUpload+multipartOverhead)
	if err := r.ParseMultipartForm(h.maxUpload); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			return xhttp.AppErrorResponse(c, xhttp.PayloadTooLargeError("chart", h.maxUpload))
		}
		return xhttp.AppErrorResponse(c, xhttp.BadRequestError("expected multipart/form-data with a chart file"))
	}

	req := &models.AnalyzeRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}

	img, appErr := h.readChart(c)
	if appErr != nil {
		return xhttp.AppErrorResponse(c, appErr)
	}

	res, err := h.analyze.Analyze(r.Context(), usecase.AnalyzeInput{Image: img, Symbol: req.Symbol})
	if err != nil {
		var ce *domrepo.ClassificationError
		if errors.As(err, &ce) {
			return xhttp.AppErrorResponse(c, xhttp.UnprocessableError("ERR_CLASSIFICATION", ce.Reason).WithError(err))
		}
		h.logger.Error("analyze usecase error", xlogger.Error(err))
		return xhttp.AppErrorResponse(c, err)
	}
	return xhttp.SuccessResponse(c, res)
}

func (h *ChartEchoHandler) readChart(c echo.Context) (models.ChartImage, *xhttp.AppError) {
	fh, err := c.FormFile("chart")
	if err != nil {
		return models.ChartImage{}, xhttp.NewAppError("ERR_REQUIRED", "chart", "chart file is required", http.StatusBadRequest)
	}
	if fh.Size > h.maxUpload {
		return models.ChartImage{}, xhttp.PayloadTooLargeError("chart", h.maxUpload)
	}
	if fh.Size == 0 {
		return models.ChartImage{}, xhttp.NewAppError("ERR_REQUIRED", "chart", "chart file is empty", http.StatusBadRequest)
	}
	f, err := fh.Open()
	if err != nil {
		return models.ChartImage{}, xhttp.BadRequestError("unreadable chart file")
	}
	defer f.Close()
	data, err := io.ReadAll(io.LimitReader(f, h.maxUpload+1))
	if err != nil {
		return models.ChartImage{}, xhttp.BadRequestError("unreadable chart file")
	}
	if int64(len(data)) > h.maxUpload {
		return models.ChartImage{}, xhttp.PayloadTooLargeError("chart", h.maxUpload)
	}
	ct := fh.Header.Get(echo.HeaderContentType)
	if ct == "" || ct == "application/octet-stream" {
		ct = http.DetectContentType(data)
	}
	return models.ChartImage{Filename: fh.Filename, ContentType: ct, Data: data}, nil
}

func (h *ChartEchoHandler) Technicals(c echo.Context) error {
	req := &models.SymbolRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}
	res, err := h.technicals.Get(c.Request().Context(), req.Symbol)
	if err != nil {
		return xhttp.AppErrorResponse(c, symbolError(err))
	}
	return xhttp.SuccessResponse(c, res)
}

func (h *ChartEchoHandler) Fundamentals(c echo.Context) error {
	req := &models.SymbolRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}
	res, err := h.fundamentals.Get(c.Request().Context(), req.Symbol)
	if err != nil {
		if errors.Is(err, domrepo.ErrNoSymbol) {
			return xhttp.AppErrorResponse(c, symbolError(err))
		}
		h.logger.Warn("fundamentals unavailable", xlogger.String("symbol", req.Symbol), xlogger.Error(err))
		return xhttp.AppErrorResponse(c, xhttp.BadGatewayError("fundamentals provider unavailable").WithError(err))
	}
	c.Response().Header().Set(echo.HeaderCacheControl, "private, max-age=300")
	return xhttp.SuccessResponse(c, res)
}

// News never fails upstream; an empty list is a valid answer.
func (h *ChartEchoHandler) News(c echo.Context) error {
	req := &models.NewsRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}
	articles := h.news.Headlines(c.Request().Context(), req.Symbol, req.Limit)
	return xhttp.SuccessResponse(c, map[string]interface{}{"articles": articles})
}

// Health reports per-dependency status; any failing probe yields 503.
func (h *ChartEchoHandler) Health(c echo.Context) error {
	ctx, cancel := context.WithTimeout(c.Request().Context(), 2*time.Second)
	defer cancel()

	status := http.StatusOK
	checks := make(map[string]string, len(h.health))
	for name, check := range h.health {
		if err := check(ctx); err != nil {
			checks[name] = err.Error()
			status = http.StatusServiceUnavailable
			continue
		}
		checks[name] = "ok"
	}
	return xhttp.DataResponse(c, status, map[string]interface{}{"checks": checks})
}

func symbolError(err error) error {
	if errors.Is(err, domrepo.ErrNoSymbol) {
		return xhttp.NewAppError("ERR_REQUIRED", "symbol", "symbol is required", http.StatusBadRequest)
	}
	return err
}

var _ xhttp.Handler = (*ChartEchoHandler)(nil)
