package usecase

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"VitalPulse/internal/domain/models"
	domrepo "VitalPulse/internal/domain/repository"
	pkgkafka "VitalPulse/pkg/kafka"
	"VitalPulse/pkg/logger"
	"VitalPulse/pkg/util"
)

var _ pkgkafka.MessageHandler = (*ObservationsHandler)(nil)

// ObservationsHandler consumes the observations topic and feeds BaselineUseCase.Ingest.
type ObservationsHandler struct {
	topic     string
	baselines *BaselineUseCase
	metrics   domrepo.Metrics
	log       *logger.Logger
}

func NewObservationsHandler(topic string, baselines *BaselineUseCase, metrics domrepo.Metrics, l *logger.Logger) *ObservationsHandler {
	if metrics == nil {
		metrics = nopMetrics{}
	}
	if l == nil {
		l = logger.Nop()
	}
	return &ObservationsHandler{topic: topic, baselines: baselines, metrics: metrics, log: l}
}

func (h *ObservationsHandler) Topic() string { return h.topic }

// incoming message schema: {user_id, metric, value, ts, source, window_days}
// ts is RFC3339, unix seconds or unix milliseconds, as a string or a number.
type observationMessage struct {
	UserID     string          `json:"user_id"`
	Metric     string          `json:"metric"`
	Value      *float64        `json:"value"`
	TS         json.RawMessage `json:"ts"`
	Source     string          `json:"source"`
	WindowDays int             `json:"window_days"`
}

func (h *ObservationsHandler) Handle(ctx context.Context, b []byte) error {
	obs, err := decodeObservation(b)
	if err != nil {
		h.metrics.RecordError("consumer_decode")
		return pkgkafka.Permanent(err)
	}
	if obs.Source == "" {
		obs.Source = "kafka"
	}
	if !obs.Timestamp.IsZero() {
		h.metrics.RecordLatency("ingest_e2e", time.Since(obs.Timestamp).Seconds())
	}

	start := time.Now()
	_, err = h.baselines.Ingest(ctx, obs)
	h.metrics.RecordLatency("ingest", time.Since(start).Seconds())
	if err == nil {
		return nil
	}
	if errors.Is(err, models.ErrInvalidObservation) || errors.Is(err, models.ErrUnknownMetric) {
		h.log.Warn("dropping observation",
			logger.User(obs.UserID), logger.Metric(string(obs.MetricType)), logger.Error(err))
		return pkgkafka.Permanent(err)
	}
	h.metrics.RecordError("consumer_ingest")
	return err
}

func decodeObservation(b []byte) (models.Observation, error) {
	var m observationMessage
	if err := json.Unmarshal(b, &m); err != nil {
		return models.Observation{}, fmt.Errorf("%w: %v", models.ErrInvalidObservation, err)
	}
	if m.Value == nil {
		return models.Observation{}, fmt.Errorf("%w: missing value", models.ErrInvalidObservation)
	}
	ts, err := parseEventTime(m.TS)
	if err != nil {
		return models.Observation{}, err
	}
	return models.Observation{
		UserID:     m.UserID,
		MetricType: models.MetricType(m.Metric),
		Value:      *m.Value,
		Timestamp:  ts,
		Source:     m.Source,
		WindowDays: m.WindowDays,
	}, nil
}

// parseEventTime returns the zero time when ts is absent.
func parseEventTime(raw json.RawMessage) (time.Time, error) {
	s := strings.TrimSpace(string(raw))
	if s == "" || s == "null" {
		return time.Time{}, nil
	}
	if strings.HasPrefix(s, `"`) {
		if err := json.Unmarshal(raw, &s); err != nil {
			return time.Time{}, fmt.Errorf("%w: ts: %v", models.ErrInvalidObservation, err)
		}
	}
	t, ok := util.ParseTime(s)
	if !ok {
		return time.Time{}, fmt.Errorf("%w: unparseable ts %q", models.ErrInvalidObservation, s)
	}
	return t.UTC(), nil
}
