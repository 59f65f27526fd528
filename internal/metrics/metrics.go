// Package metrics はPrometheusメトリクスの収集と公開を提供する。
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// MetricsCollector はメトリクス収集のインターフェース。
// ハンドラーやサービス層から利用する。
type MetricsCollector interface {
	RecordHTTPStatus(statusCode int)
	RecordRequestDuration(duration time.Duration)
	RecordListingCreated()
	RecordMessageSent()
	RecordAIGeneration(outcome string)
}

// Collector はPrometheusメトリクスを収集する実装。
type Collector struct {
	httpStatus      *prometheus.CounterVec
	requestDuration prometheus.Histogram
	listingsCreated prometheus.Counter
	messagesSent    prometheus.Counter
	aiGenerations   *prometheus.CounterVec
}

// NewCollector は新しいCollectorを生成し、指定されたレジストリにメトリクスを登録する。
func NewCollector(reg prometheus.Registerer) *Collector {
	c := &Collector{
		httpStatus: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "givebox_http_status_total",
			Help: "HTTPステータスコード別のレスポンス数",
		}, []string{"status_code"}),
		requestDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "givebox_http_request_duration_seconds",
			Help:    "HTTPリクエスト処理時間（秒）",
			Buckets: prometheus.DefBuckets,
		}),
		listingsCreated: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "givebox_listings_created_total",
			Help: "作成された出品の合計数",
		}),
		messagesSent: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "givebox_messages_sent_total",
			Help: "送信されたメッセージの合計数",
		}),
		aiGenerations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "givebox_ai_generations_total",
			Help: "AI説明文生成の試行数（結果別）",
		}, []string{"outcome"}),
	}

	reg.MustRegister(
		c.httpStatus,
		c.requestDuration,
		c.listingsCreated,
		c.messagesSent,
		c.aiGenerations,
	)

	return c
}

// RecordHTTPStatus はHTTPステータスコードを記録する。
func (c *Collector) RecordHTTPStatus(statusCode int) {
	c.httpStatus.WithLabelValues(strconv.Itoa(statusCode)).Inc()
}

// RecordRequestDuration はリクエスト処理時間を記録する。
func (c *Collector) RecordRequestDuration(duration time.Duration) {
	c.requestDuration.Observe(duration.Seconds())
}

// RecordListingCreated は出品作成を記録する。
func (c *Collector) RecordListingCreated() {
	c.listingsCreated.Inc()
}

// RecordMessageSent はメッセージ送信を記録する。
func (c *Collector) RecordMessageSent() {
	c.messagesSent.Inc()
}

// RecordAIGeneration はAI説明文生成の試行を結果別に記録する。
// outcomeは"success"または"failure"。
func (c *Collector) RecordAIGeneration(outcome string) {
	c.aiGenerations.WithLabelValues(outcome).Inc()
}

// Handler はPrometheusスクレイプ用のHTTPハンドラーを返す。
func Handler(gatherer prometheus.Gatherer) http.Handler {
	return promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})
}

// SetupMetricsRoute は/metricsエンドポイントを提供するHTTPハンドラーを返す。
// Prometheusスクレイプに対応する。
func SetupMetricsRoute(gatherer prometheus.Gatherer) http.Handler {
	mux := http.NewServeMux()
	mux.Handle("/metrics", Handler(gatherer))
	return mux
}
