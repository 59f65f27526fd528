package middleware

import (
	"net/http"
	"time"
)

// StatusRecorder はHTTPステータスコードと処理時間の記録先。
// metrics.MetricsCollectorの部分集合として定義する。
type StatusRecorderCollector interface {
	RecordHTTPStatus(statusCode int)
	RecordRequestDuration(duration time.Duration)
}

// NewMetricsMiddleware はレスポンスのステータスコードと処理時間を
// コレクターに記録するミドルウェアを返す。collectorがnilの場合は何もしない。
func NewMetricsMiddleware(collector StatusRecorderCollector) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		if collector == nil {
			return next
		}
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()

			rec := &statusRecorder{
				ResponseWriter: w,
				statusCode:     http.StatusOK,
			}

			next.ServeHTTP(rec, r)

			collector.RecordHTTPStatus(rec.statusCode)
			collector.RecordRequestDuration(time.Since(start))
		})
	}
}
