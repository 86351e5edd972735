package service

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	"go-image-denoise/internal/denoise"
	apperrors "go-image-denoise/internal/errors"
	"go-image-denoise/internal/metrics"
	"go-image-denoise/internal/noise"
	"go-image-denoise/internal/observer"
	"go-image-denoise/internal/raster"
	"go-image-denoise/internal/source"
	"go-image-denoise/internal/storage"
	"go-image-denoise/pkg/validation"
)

// NoImageMessage is shown when neither an upload nor an example is available.
const NoImageMessage = "Please upload an image or select one from the examples to begin."

// Request is one immutable pipeline configuration.
type Request struct {
	RequestID string
	Selection source.Selection
	Noise     noise.Config
	Filter    denoise.Config
}

// Output is the result of one denoising filter.
type Output struct {
	Kind     denoise.Kind
	Strength float64
	Raster   *raster.Raster
	// Quality is measured against the original image.
	Quality   metrics.Comparison
	Sharpness float64
	Duration  time.Duration
}

// Result holds every panel of a pipeline run.
type Result struct {
	Source            *source.Image
	Noise             noise.Config
	Noisy             *raster.Raster
	NoisyQuality      metrics.Comparison
	OriginalSharpness float64
	NoisySharpness    float64
	Outputs           []Output
	Duration          time.Duration
}

// DenoiseService runs source, noise, filter and metrics stages.
type DenoiseService interface {
	// Process runs the pipeline with the requested filter.
	Process(ctx context.Context, req Request) (*Result, error)
	// Compare runs the pipeline once and applies both filters to the same noisy image.
	Compare(ctx context.Context, req Request) (*Result, error)
	// Examples lists the bundled example images.
	Examples() []source.Example
}

type denoiseService struct {
	resolver   *source.Resolver
	injector   noise.Injector
	calculator metrics.Calculator
	pool       *WorkerPool
	events     observer.Subject
}

// NewDenoiseService wires the pipeline stages. pool and events may be nil.
func NewDenoiseService(
	resolver *source.Resolver,
	injector noise.Injector,
	calculator metrics.Calculator,
	pool *WorkerPool,
	events observer.Subject,
) DenoiseService {
	return &denoiseService{
		resolver:   resolver,
		injector:   injector,
		calculator: calculator,
		pool:       pool,
		events:     events,
	}
}

func (s *denoiseService) Examples() []source.Example {
	return s.resolver.Catalog().Examples
}

func (s *denoiseService) Process(ctx context.Context, req Request) (*Result, error) {
	return s.run(ctx, req, []denoise.Config{req.Filter})
}

func (s *denoiseService) Compare(ctx context.Context, req Request) (*Result, error) {
	median, gaussian := req.Filter, req.Filter
	median.Kind, gaussian.Kind = denoise.KindMedian, denoise.KindGaussian
	if median.KernelSize == 0 {
		median.KernelSize = denoise.DefaultKernelSize
	}
	if gaussian.Sigma == 0 {
		gaussian.Sigma = denoise.DefaultSigma
	}
	return s.run(ctx, req, []denoise.Config{median, gaussian})
}

func (s *denoiseService) run(ctx context.Context, req Request, configs []denoise.Config) (*Result, error) {
	start := time.Now()
	s.publish(ctx, observer.PipelineEvent{EventType: observer.PipelineStarted, RequestID: req.RequestID})

	res, err := s.execute(ctx, req, configs)
	if err != nil {
		appErr := classify(err)
		s.publish(ctx, observer.PipelineEvent{
			EventType:      observer.PipelineFailed,
			RequestID:      req.RequestID,
			ProcessingTime: time.Since(start),
			ErrorMessage:   appErr.Error(),
			Metadata:       map[string]interface{}{"error_type": appErr.Type},
		})
		return nil, appErr
	}

	res.Duration = time.Since(start)
	kinds := make([]string, len(res.Outputs))
	for i, o := range res.Outputs {
		kinds[i] = string(o.Kind)
	}
	s.publish(ctx, observer.PipelineEvent{
		EventType:      observer.PipelineCompleted,
		RequestID:      req.RequestID,
		Source:         string(res.Source.Mode),
		Filter:         strings.Join(kinds, "+"),
		ProcessingTime: res.Duration,
		Success:        true,
		Metadata: map[string]interface{}{
			"noise_amount": req.Noise.Amount,
			"width":        res.Noisy.Width,
			"height":       res.Noisy.Height,
		},
	})
	return res, nil
}

func (s *denoiseService) execute(ctx context.Context, req Request, configs []denoise.Config) (*Result, error) {
	if err := validation.ValidateNoiseAmount(req.Noise.Amount); err != nil {
		return nil, err
	}
	filters := make([]denoise.Filter, len(configs))
	for i, c := range configs {
		if err := validation.ValidateFilter(c); err != nil {
			return nil, err
		}
		f, err := denoise.New(c)
		if err != nil {
			return nil, apperrors.NewValidationError(err.Error(), err)
		}
		filters[i] = f
	}

	img, err := s.resolver.Resolve(ctx, req.Selection)
	if err != nil {
		s.publish(ctx, observer.PipelineEvent{
			EventType:    observer.SourceFailed,
			RequestID:    req.RequestID,
			Source:       string(req.Selection.Mode),
			ErrorMessage: err.Error(),
		})
		return nil, err
	}
	s.publish(ctx, observer.PipelineEvent{
		EventType: observer.SourceResolved,
		RequestID: req.RequestID,
		Source:    string(img.Mode),
		Success:   true,
		Metadata: map[string]interface{}{
			"label":   img.Label,
			"format":  img.Format,
			"resized": img.Resized(),
		},
	})
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	noisyFloat, err := s.injector.Inject(img.Raster, req.Noise)
	if err != nil {
		return nil, apperrors.NewValidationError(err.Error(), err)
	}
	noisy := noisyFloat.ToRaster()
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	outputs, err := s.applyFilters(filters, img.Raster, noisy)
	if err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	noisyQuality, err := s.calculator.Compare(img.Raster, noisy)
	if err != nil {
		return nil, err
	}
	return &Result{
		Source:            img,
		Noise:             req.Noise,
		Noisy:             noisy,
		NoisyQuality:      noisyQuality,
		OriginalSharpness: s.calculator.LaplacianVariance(img.Raster),
		NoisySharpness:    s.calculator.LaplacianVariance(noisy),
		Outputs:           outputs,
	}, nil
}

// applyFilters runs each filter on the noisy raster. With more than one filter
// and a pool available, filters run concurrently and are joined before return.
func (s *denoiseService) applyFilters(filters []denoise.Filter, original, noisy *raster.Raster) ([]Output, error) {
	outputs := make([]Output, len(filters))
	errs := make([]error, len(filters))

	job := func(i int) func() {
		return func() {
			outputs[i], errs[i] = s.applyFilter(filters[i], original, noisy)
		}
	}

	if s.pool == nil || len(filters) == 1 {
		for i := range filters {
			job(i)()
		}
	} else {
		var wg sync.WaitGroup
		for i := range filters {
			wg.Add(1)
			run := job(i)
			task := func() {
				defer wg.Done()
				run()
			}
			if !s.pool.Submit(task) {
				task()
			}
		}
		wg.Wait()
	}

	if err := errors.Join(errs...); err != nil {
		return nil, err
	}
	return outputs, nil
}

func (s *denoiseService) applyFilter(f denoise.Filter, original, noisy *raster.Raster) (Output, error) {
	start := time.Now()
	out := f.Apply(noisy)
	quality, err := s.calculator.Compare(original, out)
	if err != nil {
		return Output{}, err
	}
	return Output{
		Kind:      f.Kind(),
		Strength:  f.Strength(),
		Raster:    out,
		Quality:   quality,
		Sharpness: s.calculator.LaplacianVariance(out),
		Duration:  time.Since(start),
	}, nil
}

func (s *denoiseService) publish(ctx context.Context, event observer.PipelineEvent) {
	if s.events == nil {
		return
	}
	s.events.NotifyObservers(ctx, event)
}

// classify maps pipeline errors onto application errors.
func classify(err error) *apperrors.AppError {
	if appErr, ok := apperrors.As(err); ok {
		return appErr
	}
	switch {
	case errors.Is(err, source.ErrNoImage):
		return apperrors.NewNoImageError(NoImageMessage, err)
	case errors.Is(err, source.ErrUnreadableImage):
		return apperrors.NewUnreadableImageError("could not read image", err).WithDetails(err.Error())
	case errors.Is(err, source.ErrUnknownExample), errors.Is(err, source.ErrUnsupportedSource):
		return apperrors.NewValidationError(err.Error(), err)
	case errors.Is(err, storage.ErrAssetNotFound):
		return apperrors.NewNotFoundError("example image not found", err)
	case errors.Is(err, context.DeadlineExceeded):
		return apperrors.NewTimeoutError("image processing timed out", err)
	case errors.Is(err, context.Canceled):
		return apperrors.NewTimeoutError("request canceled", err)
	case errors.Is(err, source.ErrFetchFailed):
		return apperrors.NewNetworkError("failed to fetch image", err)
	default:
		return apperrors.NewInternalError("image processing failed", err)
	}
}
