package kafka

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/IBM/sarama/mocks"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Ludium-Official/ludium-world-payment/internal/model"
)

func testEvent(status model.RewardClaimStatus) *model.RewardClaimEvent {
	claim := &model.RewardClaim{
		ID:            "claim-1",
		ResourceType:  model.ResourceTypeMission,
		ResourceID:    "mission-1",
		UserID:        "user-1",
		CoinNetworkID: "cn-1",
		Status:        status,
		Amount:        decimal.NewFromInt(2),
		UserAddress:   "0x00000000000000000000000000000000000000b0",
	}
	return model.NewRewardClaimEvent(claim, "0xabc", "", 1700000000000)
}

func TestTopicFor(t *testing.T) {
	topic, ok := topicFor(model.RewardClaimStatusTransactionApproved)
	assert.True(t, ok)
	assert.Equal(t, TopicRewardClaimSettled, topic)

	topic, ok = topicFor(model.RewardClaimStatusTransactionFailed)
	assert.True(t, ok)
	assert.Equal(t, TopicRewardClaimFailed, topic)

	_, ok = topicFor(model.RewardClaimStatusReady)
	assert.False(t, ok)
}

func TestProducer_SendRewardClaimEvent(t *testing.T) {
	sp := mocks.NewSyncProducer(t, nil)
	sp.ExpectSendMessageWithCheckerFunctionAndSucceed(func(val []byte) error {
		var got model.RewardClaimEvent
		if err := json.Unmarshal(val, &got); err != nil {
			return err
		}
		if got.RewardClaimID != "claim-1" || got.Amount != "2" {
			return errors.New("unexpected payload")
		}
		return nil
	})

	p := NewProducerFrom(sp)
	publisher := NewKafkaEventPublisher(p)
	require.NoError(t, publisher.PublishRewardClaimEvent(context.Background(), testEvent(model.RewardClaimStatusTransactionApproved)))
	require.NoError(t, p.Close())
}

func TestProducer_SkipsReadyEvent(t *testing.T) {
	sp := mocks.NewSyncProducer(t, nil)
	p := NewProducerFrom(sp)

	// READY 不发送, mock 没有期望
	require.NoError(t, p.SendRewardClaimEvent(context.Background(), testEvent(model.RewardClaimStatusReady)))
	require.NoError(t, p.Close())
}

func TestProducer_SendFailure(t *testing.T) {
	sp := mocks.NewSyncProducer(t, nil)
	sp.ExpectSendMessageAndFail(errors.New("broker down"))

	p := NewProducerFrom(sp)
	err := p.SendRewardClaimEvent(context.Background(), testEvent(model.RewardClaimStatusTransactionFailed))
	assert.EqualError(t, err, "broker down")
	require.NoError(t, p.Close())
}

func TestProducer_Closed(t *testing.T) {
	sp := mocks.NewSyncProducer(t, nil)
	p := NewProducerFrom(sp)
	require.NoError(t, p.Close())
	require.NoError(t, p.Close())

	err := p.SendRewardClaimEvent(context.Background(), testEvent(model.RewardClaimStatusTransactionFailed))
	assert.ErrorIs(t, err, ErrProducerClosed)
}

func TestNopEventPublisher(t *testing.T) {
	assert.NoError(t, NopEventPublisher{}.PublishRewardClaimEvent(context.Background(), testEvent(model.RewardClaimStatusTransactionApproved)))
}
