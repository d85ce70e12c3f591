package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestRecordRewardClaim(t *testing.T) {
	counter := RewardClaimsTotal.WithLabelValues("MISSION", "approved")
	before := testutil.ToFloat64(counter)

	RecordRewardClaim("MISSION", "approved", "NATIVE", 1.5)
	RecordRewardClaim("MISSION", "approved", "", 0)

	assert.Equal(t, before+2, testutil.ToFloat64(counter))
}

func TestRecordTransferAndRetry(t *testing.T) {
	transfers := TransfersTotal.WithLabelValues("FT", "failed")
	retries := TransferRetriesTotal.WithLabelValues("INVALID_NONCE")
	beforeTransfers := testutil.ToFloat64(transfers)
	beforeRetries := testutil.ToFloat64(retries)

	RecordTransfer("FT", "failed", 3)
	RecordTransferRetry("INVALID_NONCE")
	RecordTransferRetry("INVALID_NONCE")

	assert.Equal(t, beforeTransfers+1, testutil.ToFloat64(transfers))
	assert.Equal(t, beforeRetries+2, testutil.ToFloat64(retries))
}

func TestRecordHTTPRequest(t *testing.T) {
	counter := HTTPRequestsTotal.WithLabelValues("POST", "/reward-claims", "201")
	before := testutil.ToFloat64(counter)

	RecordHTTPRequest("POST", "/reward-claims", "201", 0.02)

	assert.Equal(t, before+1, testutil.ToFloat64(counter))
}

func TestRecordOutcomeConflict(t *testing.T) {
	counter := RewardClaimOutcomeConflictsTotal.WithLabelValues("TRANSACTION_APPROVED")
	before := testutil.ToFloat64(counter)

	RecordOutcomeConflict("TRANSACTION_APPROVED")

	assert.Equal(t, before+1, testutil.ToFloat64(counter))
}
