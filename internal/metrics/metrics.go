// Package metrics 提供 ludium-world-payment 服务的 Prometheus 监控指标
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "ludium_payment"

// 领取指标
var (
	// RewardClaimsTotal 领取请求总数
	RewardClaimsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "reward_claims_total",
			Help:      "领取请求总数",
		},
		[]string{"resource_type", "result"}, // result: approved, failed, duplicate, rejected
	)

	// RewardClaimDuration 领取处理耗时
	RewardClaimDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "reward_claim_duration_seconds",
			Help:      "领取处理耗时(秒)",
			Buckets:   []float64{0.1, 0.5, 1, 2, 5, 10, 30, 60, 120},
		},
		[]string{"coin_type"},
	)

	// RewardClaimResurrectionsTotal 失败领取被复活的次数
	RewardClaimResurrectionsTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "reward_claim_resurrections_total",
			Help:      "失败领取复活次数",
		},
	)

	// AdminResolutionsTotal 管理员人工处理次数
	AdminResolutionsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "admin_resolutions_total",
			Help:      "管理员人工处理次数",
		},
		[]string{"action"}, // approve, reject
	)

	// RewardClaimOutcomeConflictsTotal 结算结果落库时记录已被其他写入方处理
	RewardClaimOutcomeConflictsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "reward_claim_outcome_conflicts_total",
			Help:      "结算结果被覆盖次数, 非零需人工核对链上转账",
		},
		[]string{"status"}, // 未能写入的结算结果
	)
)

// 区块链交互指标
var (
	// TransfersTotal 链上转账总数
	TransfersTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "transfers_total",
			Help:      "链上转账总数",
		},
		[]string{"coin_type", "status"}, // status: success, failed
	)

	// TransferDuration 链上转账耗时
	TransferDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "transfer_duration_seconds",
			Help:      "链上转账确认耗时(秒)",
			Buckets:   []float64{1, 2, 5, 10, 30, 60, 120},
		},
		[]string{"coin_type"},
	)

	// TransferRetriesTotal 转账重试次数
	TransferRetriesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "transfer_retries_total",
			Help:      "因 nonce/签名错误触发的转账重试次数",
		},
		[]string{"kind"},
	)
)

// HTTP 指标
var (
	// HTTPRequestsTotal HTTP 请求总数
	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "HTTP 请求总数",
		},
		[]string{"method", "path", "status"},
	)

	// HTTPRequestDuration HTTP 请求耗时
	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "HTTP 请求耗时(秒)",
			Buckets:   []float64{0.005, 0.01, 0.05, 0.1, 0.5, 1, 2, 5, 10, 30},
		},
		[]string{"method", "path"},
	)

	// HTTPRequestsInFlight 处理中的 HTTP 请求
	HTTPRequestsInFlight = promauto.NewGauge(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "http_requests_in_flight",
			Help:      "处理中的 HTTP 请求数",
		},
	)
)

// Kafka 指标
var (
	// KafkaMessagesProduced Kafka 发送消息数
	KafkaMessagesProduced = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "kafka_messages_produced_total",
			Help:      "Kafka 发送消息总数",
		},
		[]string{"topic", "status"},
	)
)

// Helper functions

// RecordRewardClaim 记录领取结果
func RecordRewardClaim(resourceType, result, coinType string, durationSeconds float64) {
	RewardClaimsTotal.WithLabelValues(resourceType, result).Inc()
	if durationSeconds > 0 && coinType != "" {
		RewardClaimDuration.WithLabelValues(coinType).Observe(durationSeconds)
	}
}

// RecordTransfer 记录链上转账
func RecordTransfer(coinType, status string, durationSeconds float64) {
	TransfersTotal.WithLabelValues(coinType, status).Inc()
	if durationSeconds > 0 {
		TransferDuration.WithLabelValues(coinType).Observe(durationSeconds)
	}
}

// RecordTransferRetry 记录转账重试
func RecordTransferRetry(kind string) {
	TransferRetriesTotal.WithLabelValues(kind).Inc()
}

// RecordAdminResolution 记录管理员处理
func RecordAdminResolution(action string) {
	AdminResolutionsTotal.WithLabelValues(action).Inc()
}

// RecordOutcomeConflict 记录未能落库的结算结果
func RecordOutcomeConflict(status string) {
	RewardClaimOutcomeConflictsTotal.WithLabelValues(status).Inc()
}

// RecordHTTPRequest 记录 HTTP 请求
func RecordHTTPRequest(method, path, status string, durationSeconds float64) {
	HTTPRequestsTotal.WithLabelValues(method, path, status).Inc()
	HTTPRequestDuration.WithLabelValues(method, path).Observe(durationSeconds)
}

// RecordKafkaMessage 记录 Kafka 消息
func RecordKafkaMessage(topic, status string) {
	KafkaMessagesProduced.WithLabelValues(topic, status).Inc()
}
