package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	DatasetLoadsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "parcel_dataset_loads_total",
		Help: "Cadastral dataset load attempts by result",
	}, []string{"result"})
	DatasetLoadDurationMs = prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "parcel_dataset_load_duration_ms",
		Help:    "Cadastral dataset fetch+parse duration in milliseconds",
		Buckets: []float64{10, 50, 100, 250, 500, 1000, 2500, 5000, 10000},
	})
	DatasetFeatures = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "parcel_dataset_features",
		Help: "Number of parcel features in the loaded dataset",
	})
	ResolvesTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "parcel_resolves_total",
		Help: "Point-in-polygon resolutions by origin and outcome",
	}, []string{"origin", "outcome"})
	ResolveDurationUs = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "parcel_resolve_duration_us",
		Help:    "Point-in-polygon resolution duration in microseconds",
		Buckets: []float64{10, 50, 100, 250, 500, 1000, 2500, 5000, 10000},
	}, []string{"origin"})
	LocatorCacheTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "parcel_locator_cache_total",
		Help: "Locator cache lookups by tier and result",
	}, []string{"tier", "result"})
	OverlayChangesTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "parcel_overlay_changes_total",
		Help: "Hover/selected overlay transitions that reached observers",
	}, []string{"slot"})
	StaleResolutionsTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "parcel_stale_resolutions_total",
		Help: "Resolutions discarded because a newer pointer event superseded them",
	})
	ParcelsPickedTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "parcel_picked_total",
		Help: "Clicks that resolved to a parcel and emitted ParcelPicked",
	})
	ActiveSessions = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "parcel_active_sessions",
		Help: "Open websocket map sessions",
	})
)

func init() {
	prometheus.MustRegister(DatasetLoadsTotal)
	prometheus.MustRegister(DatasetLoadDurationMs)
	prometheus.MustRegister(DatasetFeatures)
	prometheus.MustRegister(ResolvesTotal)
	prometheus.MustRegister(ResolveDurationUs)
	prometheus.MustRegister(LocatorCacheTotal)
	prometheus.MustRegister(OverlayChangesTotal)
	prometheus.MustRegister(StaleResolutionsTotal)
	prometheus.MustRegister(ParcelsPickedTotal)
	prometheus.MustRegister(ActiveSessions)
}

// 文档注释：返回 Prometheus 指标处理器
// 背景：统一暴露注册指标，供 Prometheus 抓取；在主入口挂载到 {API_BASE}/metrics。
func Handler() http.Handler { return promhttp.Handler() }
