package blockchain

import (
	"context"
	"errors"
	"math/big"
	"os"
	"path/filepath"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Ludium-Official/ludium-world-payment/internal/contract"
)

const (
	testKeyA = "0123456789abcdef0123456789abcdef0123456789abcdef0123456789abcdef"
	testKeyB = "1123456789abcdef0123456789abcdef0123456789abcdef0123456789abcdef"
)

func TestClientConfig_Validation(t *testing.T) {
	_, err := NewClient(context.Background(), &ClientConfig{ChainID: 31337})
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "at least one RPC URL is required")
}

func TestIsApplicationError(t *testing.T) {
	assert.True(t, isApplicationError(context.Canceled))
	assert.False(t, isApplicationError(errors.New("connection refused")))
}

func TestKeyPool_RoundRobin(t *testing.T) {
	pool, err := NewKeyPool([]string{testKeyA, "0x" + testKeyB, testKeyA, ""})
	require.NoError(t, err)

	// 重复与空私钥被忽略
	assert.Equal(t, 2, pool.Len())

	first := pool.Next().Address()
	second := pool.Next().Address()
	third := pool.Next().Address()
	assert.NotEqual(t, first, second)
	assert.Equal(t, first, third)
	assert.ElementsMatch(t, []common.Address{first, second}, pool.Addresses())
}

func TestKeyPool_Errors(t *testing.T) {
	_, err := NewKeyPool(nil)
	assert.ErrorIs(t, err, ErrEmptyKeyPool)

	_, err = NewKeyPool([]string{"not-a-key"})
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "invalid private key")
}

func TestLoadKeyPool(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "keys.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"private_keys": ["`+testKeyB+`"]}`), 0o600))

	pool, err := LoadKeyPool(path, []string{testKeyA})
	require.NoError(t, err)
	assert.Equal(t, 2, pool.Len())

	_, err = LoadKeyPool(filepath.Join(dir, "missing.json"), nil)
	assert.Error(t, err)

	bad := filepath.Join(dir, "bad.json")
	require.NoError(t, os.WriteFile(bad, []byte(`{`), 0o600))
	_, err = LoadKeyPool(bad, nil)
	assert.Error(t, err)
}

func TestClassifySendError(t *testing.T) {
	tests := []struct {
		msg       string
		kind      TxErrorKind
		retryable bool
	}{
		{"nonce too low: next nonce 5, tx nonce 4", TxErrorInvalidNonce, true},
		{"nonce too high", TxErrorInvalidNonce, true},
		{"replacement transaction underpriced", TxErrorInvalidNonce, true},
		{"invalid sender", TxErrorInvalidSignature, true},
		{"invalid transaction v, r, s values", TxErrorInvalidSignature, true},
		{"insufficient funds for gas * price + value", TxErrorInsufficientFunds, false},
		{"execution reverted: ERC20: transfer amount exceeds balance", TxErrorExecutionFailed, false},
		{"connection reset by peer", TxErrorRPC, false},
	}

	for _, tt := range tests {
		t.Run(tt.msg, func(t *testing.T) {
			txErr := ClassifySendError(errors.New(tt.msg))
			assert.Equal(t, tt.kind, txErr.Kind)
			assert.Equal(t, tt.retryable, IsRetryable(txErr))
			assert.Equal(t, tt.msg, txErr.Reason)
		})
	}

	assert.Nil(t, ClassifySendError(nil))
	assert.Equal(t, TxErrorTimeout, ClassifySendError(context.DeadlineExceeded).Kind)
}

func TestTxError_Format(t *testing.T) {
	err := &TxError{Kind: TxErrorExecutionFailed, Reason: "reverted", TxHash: "0xabc"}
	assert.Equal(t, "EXECUTION_FAILED: reverted (tx 0xabc)", err.Error())
	assert.Equal(t, "UNKNOWN", TxErrorKind(99).String())
	assert.False(t, IsRetryable(nil))
	assert.Equal(t, TxErrorRPC, KindOf(errors.New("x")))
}

func TestWhitelist(t *testing.T) {
	sender := common.HexToAddress("0x00000000000000000000000000000000000000e1")
	token := common.HexToAddress("0x00000000000000000000000000000000000000aa")

	open, err := NewWhitelist(nil, nil)
	require.NoError(t, err)
	assert.NoError(t, open.CheckSender(sender))
	assert.NoError(t, open.CheckContract(token))

	strict, err := NewWhitelist([]string{sender.Hex()}, []string{token.Hex()})
	require.NoError(t, err)
	assert.NoError(t, strict.CheckSender(sender))
	assert.NoError(t, strict.CheckContract(token))
	assert.Equal(t, TxErrorNotWhitelisted, KindOf(strict.CheckSender(token)))
	assert.Equal(t, TxErrorNotWhitelisted, KindOf(strict.CheckContract(sender)))

	_, err = NewWhitelist([]string{"alice.near"}, nil)
	assert.Error(t, err)
}

func TestSignForwardRequest(t *testing.T) {
	signer, err := NewSigner(testKeyA)
	require.NoError(t, err)

	domain := ForwarderDomain{
		Name:              "MinimalForwarder",
		Version:           "0.0.1",
		ChainID:           31337,
		VerifyingContract: common.HexToAddress("0x00000000000000000000000000000000000000f1"),
	}
	req := &contract.ForwardRequest{
		From:  signer.Address(),
		To:    common.HexToAddress("0x00000000000000000000000000000000000000aa"),
		Value: big.NewInt(0),
		Gas:   big.NewInt(200000),
		Nonce: big.NewInt(0),
		Data:  []byte{0xa9, 0x05, 0x9c, 0xbb},
	}

	sig, err := SignForwardRequest(signer, domain, req)
	require.NoError(t, err)
	require.Len(t, sig, 65)
	assert.True(t, sig[64] == 27 || sig[64] == 28)

	hash, err := ForwardRequestHash(domain, req)
	require.NoError(t, err)
	recoverable := append([]byte{}, sig...)
	recoverable[64] -= 27
	pub, err := crypto.SigToPub(hash, recoverable)
	require.NoError(t, err)
	assert.Equal(t, signer.Address(), crypto.PubkeyToAddress(*pub))

	// 域不同摘要不同
	other := domain
	other.ChainID = 1
	otherHash, err := ForwardRequestHash(other, req)
	require.NoError(t, err)
	assert.NotEqual(t, hash, otherHash)

	req.From = common.HexToAddress("0x00000000000000000000000000000000000000e1")
	_, err = SignForwardRequest(signer, domain, req)
	assert.Equal(t, TxErrorInvalidDelegate, KindOf(err))
}

func TestTransferOutcome(t *testing.T) {
	var nilOutcome *TransferOutcome
	assert.False(t, nilOutcome.HasErrors())

	o := &TransferOutcome{Failures: []ReceiptFailure{{Reason: "a"}, {Reason: "b"}}}
	assert.True(t, o.HasErrors())
	assert.Equal(t, "a; b", o.FailureReason())
	assert.Equal(t, "FT", AssetFT.String())
}
