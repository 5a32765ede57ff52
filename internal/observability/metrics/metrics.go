package metrics

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/otlp/otlpmetric/otlpmetricgrpc"
	"go.opentelemetry.io/otel/exporters/otlp/otlpmetric/otlpmetrichttp"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/metric/noop"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

// Config configures the metrics provider.
type Config struct {
	Enabled           bool
	PrometheusEnabled bool
	ExporterEndpoint  string
	ExporterProtocol  string
	ServiceName       string
	Environment       string
}

// Webhook outcomes recorded on payrail_webhook_events_total.
const (
	OutcomeProcessed          = "processed"
	OutcomeDuplicate          = "duplicate"
	OutcomeAcknowledged       = "acknowledged"
	OutcomeRejected           = "rejected"
	OutcomeFailed             = "failed"
	OutcomeError              = "error"
	AutoCaptureOutcomeSuccess = "captured"
	AutoCaptureOutcomeFailure = "failed"
	AutoCaptureOutcomeSkipped = "skipped"
)

var (
	promOnce sync.Once

	promWebhookEvents = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "payrail_webhook_events_total",
			Help: "Inbound webhook deliveries by provider, event type and outcome.",
		},
		[]string{"provider", "event_type", "outcome"},
	)

	promAutoCapture = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "payrail_auto_capture_total",
			Help: "Automatic captures of authorized payments by outcome.",
		},
		[]string{"outcome"},
	)
)

// Metrics exposes application-level instruments.
type Metrics struct {
	webhookEvents metric.Int64Counter
	autoCapture   metric.Int64Counter
	prometheus    bool
}

// NewProvider configures and registers the meter provider.
func NewProvider(lc fx.Lifecycle, cfg Config, log *zap.Logger) (metric.MeterProvider, error) {
	if !cfg.Enabled {
		provider := noop.NewMeterProvider()
		otel.SetMeterProvider(provider)
		return provider, nil
	}

	exporter, err := newExporter(cfg.ExporterProtocol, cfg.ExporterEndpoint)
	if err != nil {
		return nil, err
	}

	reader := sdkmetric.NewPeriodicReader(exporter, sdkmetric.WithInterval(10*time.Second))
	provider := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
	otel.SetMeterProvider(provider)

	if lc != nil {
		lc.Append(fx.Hook{
			OnStop: func(ctx context.Context) error {
				if log != nil {
					log.Info("shutting down meter provider")
				}
				return provider.Shutdown(ctx)
			},
		})
	}

	if log != nil {
		log.Info("metrics initialized",
			zap.String("endpoint", cfg.ExporterEndpoint),
			zap.String("protocol", cfg.ExporterProtocol),
		)
	}

	return provider, nil
}

// New configures the domain metrics instruments.
func New(cfg Config, provider metric.MeterProvider) (*Metrics, error) {
	name := strings.TrimSpace(cfg.ServiceName)
	if name == "" {
		name = "payrail"
	}
	meter := provider.Meter(name)

	webhookEvents, err := meter.Int64Counter("payrail_webhook_events_total")
	if err != nil {
		return nil, err
	}
	autoCapture, err := meter.Int64Counter("payrail_auto_capture_total")
	if err != nil {
		return nil, err
	}

	if cfg.PrometheusEnabled {
		promOnce.Do(func() {
			prometheus.MustRegister(promWebhookEvents, promAutoCapture)
		})
	}

	return &Metrics{
		webhookEvents: webhookEvents,
		autoCapture:   autoCapture,
		prometheus:    cfg.PrometheusEnabled,
	}, nil
}

// RecordWebhookEvent counts one webhook delivery.
func (m *Metrics) RecordWebhookEvent(ctx context.Context, provider, eventType, outcome string) {
	if m == nil {
		return
	}
	provider = strings.TrimSpace(provider)
	eventType = strings.TrimSpace(eventType)
	outcome = strings.TrimSpace(outcome)

	attrs := FilterAttributes(
		attribute.String("provider", provider),
		attribute.String("event_type", eventType),
		attribute.String("outcome", outcome),
	)
	m.webhookEvents.Add(ctx, 1, metric.WithAttributes(attrs...))
	if m.prometheus {
		promWebhookEvents.WithLabelValues(provider, eventType, outcome).Inc()
	}
}

// RecordAutoCapture counts one automatic capture attempt.
func (m *Metrics) RecordAutoCapture(ctx context.Context, outcome string) {
	if m == nil {
		return
	}
	outcome = strings.TrimSpace(outcome)
	m.autoCapture.Add(ctx, 1, metric.WithAttributes(FilterAttributes(attribute.String("outcome", outcome))...))
	if m.prometheus {
		promAutoCapture.WithLabelValues(outcome).Inc()
	}
}

func newExporter(protocol, endpoint string) (sdkmetric.Exporter, error) {
	protocol = strings.ToLower(strings.TrimSpace(protocol))
	switch protocol {
	case "http", "http/protobuf":
		opts := []otlpmetrichttp.Option{}
		if endpoint != "" {
			opts = append(opts, otlpmetrichttp.WithEndpoint(endpoint))
		}
		return otlpmetrichttp.New(context.Background(), opts...)
	case "grpc", "grpc/protobuf", "":
		opts := []otlpmetricgrpc.Option{otlpmetricgrpc.WithInsecure()}
		if endpoint != "" {
			opts = append(opts, otlpmetricgrpc.WithEndpoint(endpoint))
		}
		return otlpmetricgrpc.New(context.Background(), opts...)
	default:
		return nil, fmt.Errorf("unsupported OTLP protocol %q", protocol)
	}
}

var allowedLabelKeys = map[attribute.Key]struct{}{
	"endpoint":    {},
	"status_code": {},
	"provider":    {},
	"event_type":  {},
	"outcome":     {},
}

// FilterAttributes strips disallowed labels to keep metrics low-cardinality.
func FilterAttributes(attrs ...attribute.KeyValue) []attribute.KeyValue {
	filtered := make([]attribute.KeyValue, 0, len(attrs))
	for _, attr := range attrs {
		if _, ok := allowedLabelKeys[attr.Key]; !ok {
			continue
		}
		filtered = append(filtered, attr)
	}
	return filtered
}
