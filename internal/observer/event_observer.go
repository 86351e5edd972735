package observer

import (
	"context"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
)

// PipelineEvent describes one step of a denoise run.
type PipelineEvent struct {
	EventType      EventType              `json:"event_type"`
	Timestamp      time.Time              `json:"timestamp"`
	RequestID      string                 `json:"request_id,omitempty"`
	Source         string                 `json:"source,omitempty"`
	Filter         string                 `json:"filter,omitempty"`
	ProcessingTime time.Duration          `json:"processing_time"`
	Success        bool                   `json:"success"`
	ErrorMessage   string                 `json:"error_message,omitempty"`
	Metadata       map[string]interface{} `json:"metadata,omitempty"`
}

// EventType represents the type of pipeline event
type EventType string

const (
	// PipelineStarted when a request enters the pipeline
	PipelineStarted EventType = "pipeline_started"
	// PipelineCompleted when all panels were produced
	PipelineCompleted EventType = "pipeline_completed"
	// PipelineFailed when the run stopped with an error
	PipelineFailed EventType = "pipeline_failed"
	// SourceResolved when the input image was decoded
	SourceResolved EventType = "source_resolved"
	// SourceFailed when no usable image could be loaded
	SourceFailed EventType = "source_failed"
)

// Observer defines the interface for event observers
type Observer interface {
	OnEvent(ctx context.Context, event PipelineEvent)
	GetObserverName() string
}

// Subject defines the interface for event publishers
type Subject interface {
	Subscribe(observer Observer)
	Unsubscribe(observer Observer)
	NotifyObservers(ctx context.Context, event PipelineEvent)
}

// LoggingObserver logs pipeline events
type LoggingObserver struct {
	logger *logrus.Logger
}

// NewLoggingObserver creates a new logging observer
func NewLoggingObserver(logger *logrus.Logger) Observer {
	return &LoggingObserver{
		logger: logger,
	}
}

// OnEvent handles pipeline events by logging them
func (o *LoggingObserver) OnEvent(ctx context.Context, event PipelineEvent) {
	fields := logrus.Fields{
		"event_type": event.EventType,
		"success":    event.Success,
	}
	if event.RequestID != "" {
		fields["request_id"] = event.RequestID
	}
	if event.Source != "" {
		fields["source"] = event.Source
	}
	if event.Filter != "" {
		fields["filter"] = event.Filter
	}
	if event.ProcessingTime > 0 {
		fields["processing_time_ms"] = event.ProcessingTime.Milliseconds()
	}
	if event.ErrorMessage != "" {
		fields["error"] = event.ErrorMessage
	}
	for k, v := range event.Metadata {
		fields[k] = v
	}

	entry := o.logger.WithFields(fields)
	switch event.EventType {
	case PipelineStarted:
		entry.Debug("Denoise pipeline started")
	case PipelineCompleted:
		entry.Info("Denoise pipeline completed")
	case PipelineFailed:
		entry.Error("Denoise pipeline failed")
	case SourceResolved:
		entry.Debug("Source image resolved")
	case SourceFailed:
		entry.Warn("Source image unavailable")
	default:
		entry.Info("Pipeline event occurred")
	}
}

// GetObserverName returns the observer name
func (o *LoggingObserver) GetObserverName() string {
	return "logging_observer"
}

// Stats is a snapshot of MetricsObserver counters.
type Stats struct {
	TotalRuns         int64            `json:"total_runs"`
	SuccessfulRuns    int64            `json:"successful_runs"`
	FailedRuns        int64            `json:"failed_runs"`
	SourceFailures    int64            `json:"source_failures"`
	RunsByFilter      map[string]int64 `json:"runs_by_filter"`
	RunsBySource      map[string]int64 `json:"runs_by_source"`
	TotalProcessingMs int64            `json:"total_processing_ms"`
	AvgProcessingMs   float64          `json:"avg_processing_ms"`
}

// MetricsObserver collects counters from pipeline events
type MetricsObserver struct {
	mu                  sync.RWMutex
	totalRuns           int64
	successfulRuns      int64
	failedRuns          int64
	sourceFailures      int64
	byFilter            map[string]int64
	bySource            map[string]int64
	totalProcessingTime time.Duration
}

// NewMetricsObserver creates a new metrics observer
func NewMetricsObserver() *MetricsObserver {
	return &MetricsObserver{
		byFilter: make(map[string]int64),
		bySource: make(map[string]int64),
	}
}

// OnEvent handles pipeline events by collecting metrics
func (o *MetricsObserver) OnEvent(ctx context.Context, event PipelineEvent) {
	o.mu.Lock()
	defer o.mu.Unlock()

	switch event.EventType {
	case PipelineStarted:
		o.totalRuns++
	case PipelineCompleted:
		o.successfulRuns++
		o.totalProcessingTime += event.ProcessingTime
		if event.Filter != "" {
			o.byFilter[event.Filter]++
		}
		if event.Source != "" {
			o.bySource[event.Source]++
		}
	case PipelineFailed:
		o.failedRuns++
	case SourceFailed:
		o.sourceFailures++
	}
}

// GetObserverName returns the observer name
func (o *MetricsObserver) GetObserverName() string {
	return "metrics_observer"
}

// GetMetrics returns current metrics
func (o *MetricsObserver) GetMetrics() Stats {
	o.mu.RLock()
	defer o.mu.RUnlock()

	s := Stats{
		TotalRuns:         o.totalRuns,
		SuccessfulRuns:    o.successfulRuns,
		FailedRuns:        o.failedRuns,
		SourceFailures:    o.sourceFailures,
		RunsByFilter:      make(map[string]int64, len(o.byFilter)),
		RunsBySource:      make(map[string]int64, len(o.bySource)),
		TotalProcessingMs: o.totalProcessingTime.Milliseconds(),
	}
	for k, v := range o.byFilter {
		s.RunsByFilter[k] = v
	}
	for k, v := range o.bySource {
		s.RunsBySource[k] = v
	}
	if o.successfulRuns > 0 {
		s.AvgProcessingMs = float64(o.totalProcessingTime.Milliseconds()) / float64(o.successfulRuns)
	}
	return s
}

// EventPublisher implements the Subject interface
type EventPublisher struct {
	mu        sync.RWMutex
	observers []Observer
}

// NewEventPublisher creates a new event publisher
func NewEventPublisher() *EventPublisher {
	return &EventPublisher{
		observers: make([]Observer, 0),
	}
}

// Subscribe adds an observer
func (p *EventPublisher) Subscribe(observer Observer) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.observers = append(p.observers, observer)
}

// Unsubscribe removes an observer
func (p *EventPublisher) Unsubscribe(observer Observer) {
	p.mu.Lock()
	defer p.mu.Unlock()

	for i, obs := range p.observers {
		if obs.GetObserverName() == observer.GetObserverName() {
			p.observers = append(p.observers[:i], p.observers[i+1:]...)
			break
		}
	}
}

// NotifyObservers fans the event out to every observer and returns once all
// of them have handled it. A panicking observer is logged and skipped.
func (p *EventPublisher) NotifyObservers(ctx context.Context, event PipelineEvent) {
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now()
	}

	p.mu.RLock()
	observers := make([]Observer, len(p.observers))
	copy(observers, p.observers)
	p.mu.RUnlock()

	var wg sync.WaitGroup
	for _, observer := range observers {
		wg.Add(1)
		go func(obs Observer) {
			defer wg.Done()
			defer func() {
				if r := recover(); r != nil {
					logrus.WithField("observer", obs.GetObserverName()).
						WithField("panic", r).
						Error("Observer panicked while handling event")
				}
			}()
			obs.OnEvent(ctx, event)
		}(observer)
	}
	wg.Wait()
}
