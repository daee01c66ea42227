package metrics

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "interview_coach"

// Metrics - счетчики активности клиента. Все методы безопасны для nil.
type Metrics struct {
	InterviewsStarted   prometheus.Counter
	InterviewsCompleted prometheus.Counter
	AnswersSubmitted    prometheus.Counter
	AnswersRejected     prometheus.Counter
	AnswerScores        prometheus.Histogram
	APICalls            *prometheus.CounterVec
	APILatency          *prometheus.HistogramVec
	RecognitionRestarts prometheus.Counter
	TimerExpirations    prometheus.Counter

	registry *prometheus.Registry
}

func NewMetrics() *Metrics {
	m := &Metrics{
		InterviewsStarted: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "interviews_started_total",
			Help:      "Interviews started or resumed by this client.",
		}),
		InterviewsCompleted: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "interviews_completed_total",
			Help:      "Interviews finished by this client.",
		}),
		AnswersSubmitted: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "answers_submitted_total",
			Help:      "Answers accepted and evaluated by the API.",
		}),
		AnswersRejected: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "answers_rejected_total",
			Help:      "Answers blocked locally before any network call.",
		}),
		AnswerScores: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "answer_score",
			Help:      "AI evaluation scores of submitted answers.",
			Buckets:   []float64{20, 40, 60, 75, 90, 100},
		}),
		APICalls: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "api_calls_total",
			Help:      "Calls to the interview API by operation and outcome.",
		}, []string{"operation", "outcome"}),
		APILatency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "api_call_duration_seconds",
			Help:      "Latency of interview API calls.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"operation"}),
		RecognitionRestarts: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "speech_recognition_restarts_total",
			Help:      "Automatic restarts of the speech recognition engine.",
		}),
		TimerExpirations: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "timer_expirations_total",
			Help:      "Interviews finished by the countdown timer.",
		}),
		registry: prometheus.NewRegistry(),
	}

	m.registry.MustRegister(
		m.InterviewsStarted,
		m.InterviewsCompleted,
		m.AnswersSubmitted,
		m.AnswersRejected,
		m.AnswerScores,
		m.APICalls,
		m.APILatency,
		m.RecognitionRestarts,
		m.TimerExpirations,
		collectors.NewGoCollector(),
	)

	return m
}

func (m *Metrics) IncrementInterviewsStarted() {
	if m == nil {
		return
	}
	m.InterviewsStarted.Inc()
}

func (m *Metrics) IncrementInterviewsCompleted() {
	if m == nil {
		return
	}
	m.InterviewsCompleted.Inc()
}

func (m *Metrics) ObserveAnswer(score float64) {
	if m == nil {
		return
	}
	m.AnswersSubmitted.Inc()
	m.AnswerScores.Observe(score)
}

func (m *Metrics) IncrementAnswersRejected() {
	if m == nil {
		return
	}
	m.AnswersRejected.Inc()
}

func (m *Metrics) ObserveAPICall(operation string, success bool, elapsed time.Duration) {
	if m == nil {
		return
	}
	outcome := "success"
	if !success {
		outcome = "error"
	}
	m.APICalls.WithLabelValues(operation, outcome).Inc()
	m.APILatency.WithLabelValues(operation).Observe(elapsed.Seconds())
}

func (m *Metrics) IncrementRecognitionRestarts() {
	if m == nil {
		return
	}
	m.RecognitionRestarts.Inc()
}

func (m *Metrics) IncrementTimerExpirations() {
	if m == nil {
		return
	}
	m.TimerExpirations.Inc()
}

// Registry возвращает реестр с метриками клиента
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// Handler отдает метрики в формате Prometheus
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{EnableOpenMetrics: true})
}

// Serve поднимает /metrics на addr и блокируется до отмены ctx
func (m *Metrics) Serve(ctx context.Context, addr string) error {
	mux := http.NewServeMux()
	mux.Handle("/metrics", m.Handler())

	server := &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- server.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return server.Shutdown(shutdownCtx)
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	}
}
