// Package metrics はPrometheusメトリクスの収集と公開を提供する。
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// MetricsCollector はメトリクス収集のインターフェース。
// Fitbitファサード、同期ワーカー、認可フローから利用する。
type MetricsCollector interface {
	RecordSyncSuccess()
	RecordSyncFailure(reason string)
	RecordExchangeSuccess()
	RecordExchangeFailure()
	RecordFetchLatency(duration time.Duration)
	RecordSleepRecordsImported(count int)
}

// Collector はPrometheusメトリクスを収集する実装。
type Collector struct {
	syncSuccess     prometheus.Counter
	syncFail        *prometheus.CounterVec
	exchangeSuccess prometheus.Counter
	exchangeFail    prometheus.Counter
	fetchLatency    prometheus.Histogram
	recordsImported prometheus.Counter
}

// NewCollector は新しいCollectorを生成し、指定されたレジストリにメトリクスを登録する。
func NewCollector(reg prometheus.Registerer) *Collector {
	c := &Collector{
		syncSuccess: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "sleepsociety_fitbit_sync_success_total",
			Help: "Fitbit睡眠データ同期成功の合計数",
		}),
		syncFail: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "sleepsociety_fitbit_sync_fail_total",
			Help: "Fitbit睡眠データ同期失敗の合計数（失敗理由別）",
		}, []string{"reason"}),
		exchangeSuccess: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "sleepsociety_fitbit_exchange_success_total",
			Help: "認可コード交換成功の合計数",
		}),
		exchangeFail: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "sleepsociety_fitbit_exchange_fail_total",
			Help: "認可コード交換失敗の合計数",
		}),
		fetchLatency: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "sleepsociety_fitbit_fetch_latency_seconds",
			Help:    "Fitbit APIフェッチのレイテンシ（秒）",
			Buckets: prometheus.DefBuckets,
		}),
		recordsImported: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "sleepsociety_sleep_records_imported_total",
			Help: "プロバイダーから取り込まれた睡眠記録の合計数",
		}),
	}

	reg.MustRegister(
		c.syncSuccess,
		c.syncFail,
		c.exchangeSuccess,
		c.exchangeFail,
		c.fetchLatency,
		c.recordsImported,
	)

	return c
}

// RecordSyncSuccess は同期成功を記録する。
func (c *Collector) RecordSyncSuccess() {
	c.syncSuccess.Inc()
}

// RecordSyncFailure は同期失敗を記録する。
func (c *Collector) RecordSyncFailure(reason string) {
	c.syncFail.WithLabelValues(reason).Inc()
}

// RecordExchangeSuccess は認可コード交換成功を記録する。
func (c *Collector) RecordExchangeSuccess() {
	c.exchangeSuccess.Inc()
}

// RecordExchangeFailure は認可コード交換失敗を記録する。
func (c *Collector) RecordExchangeFailure() {
	c.exchangeFail.Inc()
}

// RecordFetchLatency はプロバイダーAPIフェッチのレイテンシを記録する。
func (c *Collector) RecordFetchLatency(duration time.Duration) {
	c.fetchLatency.Observe(duration.Seconds())
}

// RecordSleepRecordsImported は取り込まれた睡眠記録数を記録する。
func (c *Collector) RecordSleepRecordsImported(count int) {
	c.recordsImported.Add(float64(count))
}

// compile-time interface check
var _ MetricsCollector = (*Collector)(nil)

// NoopCollector は何も記録しないMetricsCollector実装。
// メトリクスが不要な構成やテストで使用する。
type NoopCollector struct{}

func (NoopCollector) RecordSyncSuccess()               {}
func (NoopCollector) RecordSyncFailure(string)         {}
func (NoopCollector) RecordExchangeSuccess()           {}
func (NoopCollector) RecordExchangeFailure()           {}
func (NoopCollector) RecordFetchLatency(time.Duration) {}
func (NoopCollector) RecordSleepRecordsImported(int)   {}

var _ MetricsCollector = NoopCollector{}

// Handler はPrometheusスクレイプ用のHTTPハンドラーを返す。
func Handler(gatherer prometheus.Gatherer) http.Handler {
	return promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})
}
