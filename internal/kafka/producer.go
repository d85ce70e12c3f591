// Package kafka 提供领取结算事件的 Kafka 生产者
//
// ========================================
// Kafka 生产者对接说明
// ========================================
//
// 1. Topic: reward-claim-settled
//    - 消息内容: model.RewardClaimEvent (status = TRANSACTION_APPROVED)
//    - 处理逻辑: 链上转账成功或管理员人工批准后发送
//
// 2. Topic: reward-claim-failed
//    - 消息内容: model.RewardClaimEvent (status = TRANSACTION_FAILED)
//    - 处理逻辑: 链上转账失败或管理员拒绝后发送, 包含失败原因
//
// Partition Key 均为 reward_claim_id
// ========================================
package kafka

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"time"

	"github.com/IBM/sarama"
	"go.uber.org/zap"

	"github.com/Ludium-Official/ludium-world-payment/internal/metrics"
	"github.com/Ludium-Official/ludium-world-payment/internal/model"
	"github.com/Ludium-Official/ludium-world-payment/pkg/logger"
)

const (
	// TopicRewardClaimSettled 结算成功
	TopicRewardClaimSettled = "reward-claim-settled"
	// TopicRewardClaimFailed 结算失败
	TopicRewardClaimFailed = "reward-claim-failed"
)

var ErrProducerClosed = errors.New("producer is closed")

// Producer Kafka 生产者
type Producer struct {
	producer sarama.SyncProducer
	mu       sync.RWMutex
	closed   bool
}

// ProducerConfig 生产者配置
type ProducerConfig struct {
	Brokers      []string
	ClientID     string
	RequiredAcks sarama.RequiredAcks
	MaxRetries   int
	RetryBackoff time.Duration
}

// NewProducer 创建生产者
func NewProducer(cfg *ProducerConfig) (*Producer, error) {
	config := sarama.NewConfig()
	config.Version = sarama.V2_8_0_0
	config.ClientID = cfg.ClientID
	config.Producer.Return.Successes = true
	config.Producer.Return.Errors = true

	requiredAcks := cfg.RequiredAcks
	if requiredAcks == 0 {
		requiredAcks = sarama.WaitForAll
	}
	config.Producer.RequiredAcks = requiredAcks

	maxRetries := cfg.MaxRetries
	if maxRetries == 0 {
		maxRetries = 3
	}
	config.Producer.Retry.Max = maxRetries

	retryBackoff := cfg.RetryBackoff
	if retryBackoff == 0 {
		retryBackoff = 100 * time.Millisecond
	}
	config.Producer.Retry.Backoff = retryBackoff

	producer, err := sarama.NewSyncProducer(cfg.Brokers, config)
	if err != nil {
		return nil, err
	}
	return NewProducerFrom(producer), nil
}

// NewProducerFrom 包装已有的 SyncProducer
func NewProducerFrom(producer sarama.SyncProducer) *Producer {
	return &Producer{producer: producer}
}

// Close 关闭生产者
func (p *Producer) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.closed {
		return nil
	}

	p.closed = true
	return p.producer.Close()
}

func (p *Producer) send(topic string, key string, value []byte) error {
	p.mu.RLock()
	defer p.mu.RUnlock()
	if p.closed {
		return ErrProducerClosed
	}

	msg := &sarama.ProducerMessage{
		Topic: topic,
		Key:   sarama.StringEncoder(key),
		Value: sarama.ByteEncoder(value),
	}

	partition, offset, err := p.producer.SendMessage(msg)
	if err != nil {
		metrics.RecordKafkaMessage(topic, "failed")
		logger.Error("failed to send kafka message",
			zap.String("topic", topic),
			zap.String("key", key),
			zap.Error(err))
		return err
	}

	metrics.RecordKafkaMessage(topic, "success")
	logger.Debug("kafka message sent",
		zap.String("topic", topic),
		zap.String("key", key),
		zap.Int32("partition", partition),
		zap.Int64("offset", offset))
	return nil
}

// SendRewardClaimEvent 按状态选择 topic 发送事件
func (p *Producer) SendRewardClaimEvent(ctx context.Context, event *model.RewardClaimEvent) error {
	topic, ok := topicFor(event.Status)
	if !ok {
		return nil
	}

	data, err := json.Marshal(event)
	if err != nil {
		return err
	}
	return p.send(topic, event.RewardClaimID, data)
}

// topicFor READY 不是结算结果, 不发送
func topicFor(status model.RewardClaimStatus) (string, bool) {
	switch status {
	case model.RewardClaimStatusTransactionApproved:
		return TopicRewardClaimSettled, true
	case model.RewardClaimStatusTransactionFailed:
		return TopicRewardClaimFailed, true
	}
	return "", false
}

// EventPublisher 事件发布器接口
type EventPublisher interface {
	PublishRewardClaimEvent(ctx context.Context, event *model.RewardClaimEvent) error
}

// KafkaEventPublisher Kafka 事件发布器
type KafkaEventPublisher struct {
	producer *Producer
}

// NewKafkaEventPublisher 创建 Kafka 事件发布器
func NewKafkaEventPublisher(producer *Producer) *KafkaEventPublisher {
	return &KafkaEventPublisher{
		producer: producer,
	}
}

func (p *KafkaEventPublisher) PublishRewardClaimEvent(ctx context.Context, event *model.RewardClaimEvent) error {
	return p.producer.SendRewardClaimEvent(ctx, event)
}

// NopEventPublisher 未配置 Kafka 时使用
type NopEventPublisher struct{}

func (NopEventPublisher) PublishRewardClaimEvent(context.Context, *model.RewardClaimEvent) error {
	return nil
}
