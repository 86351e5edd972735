package transport

import (
	"context"
	"errors"
	"fmt"
	"io"
	"math"
	"net/http"
	"strconv"
	"strings"
	"time"

	"go-image-denoise/internal/config"
	"go-image-denoise/internal/denoise"
	apperrors "go-image-denoise/internal/errors"
	"go-image-denoise/internal/logger"
	"go-image-denoise/internal/noise"
	"go-image-denoise/internal/observer"
	"go-image-denoise/internal/presentation"
	"go-image-denoise/internal/service"
	"go-image-denoise/internal/source"
	"go-image-denoise/pkg/models"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
)

const (
	requestIDHeader    = "X-Request-ID"
	requestIDKey       = "request_id"
	maxMultipartMemory = 32 << 20
)

type handler struct {
	service service.DenoiseService
	stats   *observer.MetricsObserver
	pool    *service.WorkerPool
	cfg     *config.Config
}

// NewHandler builds the gin engine. stats and pool may be nil.
func NewHandler(svc service.DenoiseService, stats *observer.MetricsObserver, pool *service.WorkerPool, cfg *config.Config) http.Handler {
	h := &handler{service: svc, stats: stats, pool: pool, cfg: cfg}

	r := gin.New()
	r.SetHTMLTemplate(presentation.Template())

	// Add middleware
	r.Use(
		gin.Recovery(),
		requestID(),
		requestLogger(),
		requestSizeLimiter(cfg.MaxRequestBodySize),
	)

	limiter := newLimiter(cfg.RateLimitRPS, cfg.RateLimitBurst)
	pageLimited := rateLimiter(limiter, h.rejectPage)
	limited := rateLimiter(limiter, respondError)

	// Configure routes
	r.GET("/health", healthCheck)
	r.GET("/stats", h.getStats)
	r.GET("/", pageLimited, h.page)
	r.POST("/", pageLimited, h.page)

	api := r.Group("/api", errorHandler())
	api.GET("/examples", h.examples)
	api.POST("/denoise", limited, h.denoise)
	api.POST("/compare", limited, h.compare)

	return r
}

func (h *handler) denoise(c *gin.Context) {
	h.runAPI(c, h.service.Process)
}

func (h *handler) compare(c *gin.Context) {
	h.runAPI(c, h.service.Compare)
}

type pipelineFunc func(ctx context.Context, req service.Request) (*service.Result, error)

func (h *handler) runAPI(c *gin.Context, run pipelineFunc) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), h.cfg.RequestTimeout)
	defer cancel()

	req, _, err := h.parseRequest(c)
	if err != nil {
		_ = c.Error(err)
		return
	}

	res, err := run(ctx, req)
	if err != nil {
		_ = c.Error(err)
		return
	}

	resp, err := buildResponse(req.RequestID, res)
	if err != nil {
		_ = c.Error(apperrors.NewInternalError("failed to encode panels", err))
		return
	}
	c.JSON(http.StatusOK, resp)
}

func (h *handler) page(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), h.cfg.RequestTimeout)
	defer cancel()

	examples := h.exampleList()
	req, form, err := h.parseRequest(c)
	page := presentation.NewPage(examples, form)
	if err != nil {
		h.renderError(c, page, err)
		return
	}

	res, err := h.service.Process(ctx, req)
	if err != nil {
		h.renderError(c, page, err)
		return
	}
	resp, err := buildResponse(req.RequestID, res)
	if err != nil {
		h.renderError(c, page, apperrors.NewInternalError("failed to encode panels", err))
		return
	}
	page.SetResult(resp)
	c.HTML(http.StatusOK, "index", page)
}

// renderError shows the no-image notice with 200, like a fresh page, and
// any other failure as an error banner with its status code.
func (h *handler) renderError(c *gin.Context, page *presentation.Page, err error) {
	appErr := toAppError(err)
	page.RequestID = c.GetString(requestIDKey)
	if appErr.Type == apperrors.ErrorTypeNoImage {
		page.Notice = appErr.Message
		c.HTML(http.StatusOK, "index", page)
		return
	}
	logRequestError(c, appErr)
	page.Error = appErr.Message
	if appErr.Details != "" {
		page.Error += " (" + appErr.Details + ")"
	}
	c.HTML(appErr.StatusCode, "index", page)
}

// rejectPage renders a fresh page carrying the error banner.
func (h *handler) rejectPage(c *gin.Context, appErr *apperrors.AppError) {
	examples := h.exampleList()
	defaultExample := ""
	if len(examples) > 0 {
		defaultExample = examples[0].Key
	}
	h.renderError(c, presentation.NewPage(examples, presentation.DefaultForm(defaultExample)), appErr)
}

func (h *handler) examples(c *gin.Context) {
	list := h.exampleList()
	resp := models.ExamplesResponse{Examples: list}
	if len(list) > 0 {
		resp.Default = list[0].Key
	}
	c.JSON(http.StatusOK, resp)
}

func (h *handler) exampleList() []models.Example {
	src := h.service.Examples()
	out := make([]models.Example, len(src))
	for i, e := range src {
		out[i] = models.Example{Key: e.Key, Label: e.Label}
	}
	return out
}

func (h *handler) getStats(c *gin.Context) {
	body := gin.H{}
	if h.stats != nil {
		body["pipeline"] = h.stats.GetMetrics()
	}
	if h.pool != nil {
		body["workers"] = h.pool.GetStats()
	}
	c.JSON(http.StatusOK, body)
}

func healthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":  "available",
		"version": "1.0.0",
		"time":    time.Now().UTC().Format(time.RFC3339),
	})
}

// parseRequest reads the form fields shared by the page and the API. Missing
// fields fall back to the initial state of the page controls; when no source
// is given the first example image is used.
func (h *handler) parseRequest(c *gin.Context) (service.Request, presentation.Form, error) {
	examples := h.service.Examples()
	defaultExample := ""
	if len(examples) > 0 {
		defaultExample = examples[0].Key
	}
	form := presentation.DefaultForm(defaultExample)
	req := service.Request{
		RequestID: c.GetString(requestIDKey),
		Noise:     noise.DefaultConfig(),
		Filter:    denoise.DefaultConfig(),
	}

	if err := parseForm(c.Request); err != nil {
		if isBodyTooLarge(err) {
			return req, form, h.bodyTooLarge(err)
		}
		return req, form, apperrors.NewValidationError("invalid form data", err)
	}
	r := c.Request

	mode, err := source.ParseMode(r.FormValue("source"))
	if err != nil {
		return req, form, apperrors.NewValidationError(err.Error(), err)
	}
	sel := source.Selection{
		Mode:    mode,
		Example: strings.TrimSpace(r.FormValue("example")),
		URL:     strings.TrimSpace(r.FormValue("image_url")),
	}
	upload, name, err := readUpload(r)
	if err != nil {
		if isBodyTooLarge(err) {
			return req, form, h.bodyTooLarge(err)
		}
		return req, form, apperrors.NewValidationError("could not read uploaded file", err)
	}
	sel.Upload, sel.UploadName = upload, name

	if sel.Example == "" && (mode == source.ModeExample || (mode == source.ModeAuto && len(sel.Upload) == 0 && sel.URL == "")) {
		sel.Example = defaultExample
	}
	req.Selection = sel

	form.Example = sel.Example
	form.ImageURL = sel.URL
	switch {
	case mode != source.ModeAuto:
		form.Source = string(mode)
	case len(sel.Upload) > 0:
		form.Source = string(source.ModeUpload)
	case sel.URL != "":
		form.Source = string(source.ModeURL)
	}

	if v := r.FormValue("noise_amount"); v != "" {
		amount, err := strconv.ParseFloat(v, 64)
		if err != nil || math.IsNaN(amount) {
			return req, form, apperrors.NewValidationError("noise_amount must be a number", err)
		}
		req.Noise.Amount = amount
		form.NoiseAmount = amount
	}
	if v := r.FormValue("seed"); v != "" {
		seed, err := strconv.ParseUint(v, 10, 64)
		if err != nil {
			return req, form, apperrors.NewValidationError("seed must be a non-negative integer", err)
		}
		req.Noise = req.Noise.WithSeed(seed)
		form.Seed = v
	}
	if v := r.FormValue("filter"); v != "" {
		kind, err := denoise.ParseKind(v)
		if err != nil {
			return req, form, apperrors.NewValidationError(err.Error(), err)
		}
		req.Filter.Kind = kind
		form.Filter = string(kind)
	}
	if v := r.FormValue("kernel_size"); v != "" {
		k, err := strconv.Atoi(v)
		if err != nil {
			return req, form, apperrors.NewValidationError("kernel_size must be an integer", err)
		}
		req.Filter.KernelSize = k
		form.KernelSize = k
	}
	if v := r.FormValue("sigma"); v != "" {
		sigma, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return req, form, apperrors.NewValidationError("sigma must be a number", err)
		}
		req.Filter.Sigma = sigma
		form.Sigma = sigma
	}
	return req, form, nil
}

func parseForm(r *http.Request) error {
	err := r.ParseMultipartForm(maxMultipartMemory)
	if errors.Is(err, http.ErrNotMultipart) {
		err = r.ParseForm()
	}
	return err
}

func readUpload(r *http.Request) ([]byte, string, error) {
	if r.MultipartForm == nil || len(r.MultipartForm.File["image"]) == 0 {
		return nil, "", nil
	}
	fh := r.MultipartForm.File["image"][0]
	f, err := fh.Open()
	if err != nil {
		return nil, "", err
	}
	defer f.Close()
	data, err := io.ReadAll(f)
	if err != nil {
		return nil, "", err
	}
	return data, fh.Filename, nil
}

func isBodyTooLarge(err error) bool {
	var maxErr *http.MaxBytesError
	return errors.As(err, &maxErr) || strings.Contains(err.Error(), "request body too large")
}

func (h *handler) bodyTooLarge(err error) *apperrors.AppError {
	appErr := apperrors.NewValidationError(
		fmt.Sprintf("request body exceeds %s", h.cfg.MaxRequestBodyHuman()), err)
	appErr.StatusCode = http.StatusRequestEntityTooLarge
	return appErr
}

func toAppError(err error) *apperrors.AppError {
	if appErr, ok := apperrors.As(err); ok {
		return appErr
	}
	return apperrors.NewInternalError("request processing failed", err)
}

func errorHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		if len(c.Errors) > 0 && !c.Writer.Written() {
			respondError(c, toAppError(c.Errors.Last().Err))
		}
	}
}

func respondError(c *gin.Context, appErr *apperrors.AppError) {
	logRequestError(c, appErr)
	c.AbortWithStatusJSON(appErr.StatusCode, models.ErrorResponse{
		Error:     http.StatusText(appErr.StatusCode),
		Type:      string(appErr.Type),
		Message:   appErr.Message,
		Details:   appErr.Details,
		RequestID: c.GetString(requestIDKey),
	})
}

func logRequestError(c *gin.Context, appErr *apperrors.AppError) {
	entry := logger.WithError(appErr).WithFields(logrus.Fields{
		"status_code": appErr.StatusCode,
		"error_type":  appErr.Type,
		"path":        c.Request.URL.Path,
		"method":      c.Request.Method,
		"ip":          c.ClientIP(),
		"request_id":  c.GetString(requestIDKey),
	})
	if appErr.StatusCode >= http.StatusInternalServerError {
		entry.Error("Request failed")
		return
	}
	entry.Warn("Request rejected")
}

// buildResponse encodes the panels and flattens the metrics.
func buildResponse(requestID string, res *service.Result) (*models.DenoiseResponse, error) {
	outputs := make([]presentation.Denoised, len(res.Outputs))
	filters := make([]models.FilterResult, len(res.Outputs))
	for i, o := range res.Outputs {
		outputs[i] = presentation.Denoised{Kind: o.Kind, Raster: o.Raster}
		fr := models.FilterResult{
			Filter: string(o.Kind),
			Quality: models.Quality{
				MSE:       o.Quality.MSE,
				PSNR:      models.FinitePtr(o.Quality.PSNR),
				Sharpness: o.Sharpness,
			},
			ProcessingTimeMs: o.Duration.Milliseconds(),
		}
		if o.Kind == denoise.KindMedian {
			fr.KernelSize = int(o.Strength)
		} else {
			fr.Sigma = o.Strength
		}
		filters[i] = fr
	}

	panels := presentation.BuildPanels(res.Source.Raster, res.Noisy, outputs...)
	out := make([]models.Panel, len(panels))
	for i, p := range panels {
		uri, err := presentation.DataURI(p.Raster)
		if err != nil {
			return nil, err
		}
		out[i] = models.Panel{Caption: p.Caption, Image: uri}
	}

	src := res.Source
	return &models.DenoiseResponse{
		RequestID: requestID,
		Source: models.SourceInfo{
			Mode:         string(src.Mode),
			Label:        src.Label,
			Format:       src.Format,
			MIME:         src.MIME,
			Width:        src.Raster.Width,
			Height:       src.Raster.Height,
			SourceWidth:  src.SourceWidth,
			SourceHeight: src.SourceHeight,
			Resized:      src.Resized(),
		},
		NoiseAmount:       res.Noise.Amount,
		Seed:              res.Noise.Seed,
		Panels:            out,
		OriginalSharpness: res.OriginalSharpness,
		Noisy: models.Quality{
			MSE:       res.NoisyQuality.MSE,
			PSNR:      models.FinitePtr(res.NoisyQuality.PSNR),
			Sharpness: res.NoisySharpness,
		},
		Filters:          filters,
		ProcessingTimeMs: res.Duration.Milliseconds(),
	}, nil
}
