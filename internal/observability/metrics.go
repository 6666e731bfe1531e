package observability

import (
	"errors"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"gorm.io/gorm"
)

var (
	// RedisErrorRate counts Redis errors by operation type.
	RedisErrorRate = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "beam_redis_error_rate_total",
		Help: "Total number of Redis errors by operation type",
	}, []string{"operation"})

	// DatabaseQueryLatency records database query latency by operation and table.
	DatabaseQueryLatency = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "beam_database_query_latency_seconds",
		Help:    "Database query latency in seconds",
		Buckets: prometheus.DefBuckets,
	}, []string{"operation", "table"})

	// PostOperations counts post procedures by operation and outcome code.
	PostOperations = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "beam_post_operations_total",
		Help: "Post procedures by operation and result",
	}, []string{"operation", "result"})

	// NotificationsTotal counts outbound notifications by channel and result.
	NotificationsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "beam_notifications_total",
		Help: "Outbound notifications by channel and result",
	}, []string{"channel", "result"})

	// NotificationQueueDepth is the number of notification jobs waiting for a worker.
	NotificationQueueDepth = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "beam_notification_queue_depth",
		Help: "Notification jobs waiting for a worker",
	})

	// ImageUploads counts image uploads by storage provider and result.
	ImageUploads = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "beam_image_uploads_total",
		Help: "Image uploads by provider and result",
	}, []string{"provider", "result"})

	// CacheLookups counts cache-aside lookups by result (hit, miss, error).
	CacheLookups = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "beam_cache_lookups_total",
		Help: "Cache-aside lookups by result",
	}, []string{"result"})
)

const queryStartKey = "beam:query_start"

// InstrumentGorm registers callbacks that observe DatabaseQueryLatency for every statement.
func InstrumentGorm(db *gorm.DB) error {
	before := func(tx *gorm.DB) {
		tx.InstanceSet(queryStartKey, time.Now())
	}
	after := func(operation string) func(*gorm.DB) {
		return func(tx *gorm.DB) {
			v, ok := tx.InstanceGet(queryStartKey)
			if !ok {
				return
			}
			start, ok := v.(time.Time)
			if !ok {
				return
			}
			table := tx.Statement.Table
			if table == "" {
				table = "raw"
			}
			DatabaseQueryLatency.WithLabelValues(operation, table).Observe(time.Since(start).Seconds())
		}
	}

	cb := db.Callback()
	return errors.Join(
		cb.Create().Before("gorm:create").Register("beam:before_create", before),
		cb.Create().After("gorm:create").Register("beam:after_create", after("create")),
		cb.Query().Before("gorm:query").Register("beam:before_query", before),
		cb.Query().After("gorm:query").Register("beam:after_query", after("query")),
		cb.Update().Before("gorm:update").Register("beam:before_update", before),
		cb.Update().After("gorm:update").Register("beam:after_update", after("update")),
		cb.Delete().Before("gorm:delete").Register("beam:before_delete", before),
		cb.Delete().After("gorm:delete").Register("beam:after_delete", after("delete")),
		cb.Row().Before("gorm:row").Register("beam:before_row", before),
		cb.Row().After("gorm:row").Register("beam:after_row", after("row")),
		cb.Raw().Before("gorm:raw").Register("beam:before_raw", before),
		cb.Raw().After("gorm:raw").Register("beam:after_raw", after("raw")),
	)
}

// Result maps an error code to a metric label; "" means success.
func Result(code string) string {
	if code == "" {
		return "ok"
	}
	return code
}
