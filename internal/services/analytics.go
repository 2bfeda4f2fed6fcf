package services

import (
	"github.com/google/uuid"
	"github.com/posthog/posthog-go"

	"github.com/mockly-app/mockly-backend/internal/pkg/logger"
)

// AnalyticsService forwards product events to PostHog. Delivery is
// best-effort: failures are logged and never returned to callers.
type AnalyticsService interface {
	Capture(userID uuid.UUID, event string, properties map[string]interface{})
	Close()
}

type analyticsService struct {
	client posthog.Client
	log    *logger.Logger
}

// NewAnalyticsService builds a PostHog-backed service. An empty apiKey
// disables capture entirely (nil client), which is the default in dev
// and tests.
func NewAnalyticsService(log *logger.Logger, apiKey, host string) AnalyticsService {
	serviceLog := log.With("service", "AnalyticsService")
	if apiKey == "" {
		serviceLog.Info("Analytics disabled (no POSTHOG_API_KEY)")
		return &analyticsService{client: nil, log: serviceLog}
	}
	cfg := posthog.Config{}
	if host != "" {
		cfg.Endpoint = host
	}
	client, err := posthog.NewWithConfig(apiKey, cfg)
	if err != nil {
		serviceLog.Warn("Failed to initialize PostHog client, analytics disabled", "error", err)
		return &analyticsService{client: nil, log: serviceLog}
	}
	serviceLog.Info("Analytics enabled", "host", cfg.Endpoint)
	return &analyticsService{client: client, log: serviceLog}
}

func (as *analyticsService) Capture(userID uuid.UUID, event string, properties map[string]interface{}) {
	if as.client == nil {
		return
	}
	props := posthog.NewProperties().
		Set("source", "backend").
		Set("service", "mockly-api")
	for k, v := range properties {
		props.Set(k, v)
	}
	if err := as.client.Enqueue(posthog.Capture{
		DistinctId: userID.String(),
		Event:      event,
		Properties: props,
	}); err != nil {
		as.log.Warn("Failed to enqueue analytics event", "event", event, "error", err)
	}
}

func (as *analyticsService) Close() {
	if as.client == nil {
		return
	}
	if err := as.client.Close(); err != nil {
		as.log.Warn("Failed to flush analytics client", "error", err)
	}
}
