package blockchain

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

// TxErrorKind 链上错误分类
type TxErrorKind int

const (
	TxErrorRPC TxErrorKind = iota
	TxErrorInvalidNonce
	TxErrorInvalidSignature
	TxErrorNotWhitelisted
	TxErrorInsufficientFunds
	TxErrorExecutionFailed
	TxErrorRegistrationFailed
	TxErrorInvalidDelegate
	TxErrorTimeout
)

func (k TxErrorKind) String() string {
	switch k {
	case TxErrorRPC:
		return "RPC"
	case TxErrorInvalidNonce:
		return "INVALID_NONCE"
	case TxErrorInvalidSignature:
		return "INVALID_SIGNATURE"
	case TxErrorNotWhitelisted:
		return "NOT_WHITELISTED"
	case TxErrorInsufficientFunds:
		return "INSUFFICIENT_FUNDS"
	case TxErrorExecutionFailed:
		return "EXECUTION_FAILED"
	case TxErrorRegistrationFailed:
		return "REGISTRATION_FAILED"
	case TxErrorInvalidDelegate:
		return "INVALID_DELEGATE"
	case TxErrorTimeout:
		return "TIMEOUT"
	default:
		return "UNKNOWN"
	}
}

// TxError 执行器返回的错误
type TxError struct {
	Kind   TxErrorKind
	Reason string
	TxHash string
	Err    error
}

func (e *TxError) Error() string {
	if e.TxHash != "" {
		return fmt.Sprintf("%s: %s (tx %s)", e.Kind, e.Reason, e.TxHash)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Reason)
}

func (e *TxError) Unwrap() error {
	return e.Err
}

// newTxError 创建错误
func newTxError(kind TxErrorKind, reason string) *TxError {
	return &TxError{Kind: kind, Reason: reason}
}

// KindOf 非 TxError 视为 RPC
func KindOf(err error) TxErrorKind {
	var txErr *TxError
	if errors.As(err, &txErr) {
		return txErr.Kind
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return TxErrorTimeout
	}
	return TxErrorRPC
}

// IsRetryable 仅 nonce 与签名竞争可重试
func IsRetryable(err error) bool {
	if err == nil {
		return false
	}
	switch KindOf(err) {
	case TxErrorInvalidNonce, TxErrorInvalidSignature:
		return true
	}
	return false
}

var (
	nonceErrorFragments = []string{
		"nonce too low",
		"nonce too high",
		"replacement transaction underpriced",
		"invalid nonce",
	}
	signatureErrorFragments = []string{
		"invalid sender",
		"invalid signature",
		"invalid transaction v, r, s values",
	}
	fundsErrorFragments = []string{
		"insufficient funds",
	}
	executionErrorFragments = []string{
		"execution reverted",
		"out of gas",
	}
)

func containsAny(s string, fragments []string) bool {
	for _, f := range fragments {
		if strings.Contains(s, f) {
			return true
		}
	}
	return false
}

// ClassifySendError 按节点返回的错误文本分类
func ClassifySendError(err error) *TxError {
	if err == nil {
		return nil
	}
	var txErr *TxError
	if errors.As(err, &txErr) {
		return txErr
	}

	msg := strings.ToLower(err.Error())
	kind := TxErrorRPC
	switch {
	case errors.Is(err, context.DeadlineExceeded):
		kind = TxErrorTimeout
	case containsAny(msg, nonceErrorFragments):
		kind = TxErrorInvalidNonce
	case containsAny(msg, signatureErrorFragments):
		kind = TxErrorInvalidSignature
	case containsAny(msg, fundsErrorFragments):
		kind = TxErrorInsufficientFunds
	case containsAny(msg, executionErrorFragments):
		kind = TxErrorExecutionFailed
	}
	return &TxError{Kind: kind, Reason: err.Error(), Err: err}
}

// isAlreadyKnown 同一笔交易已在交易池中
func isAlreadyKnown(err error) bool {
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "already known") || strings.Contains(msg, "known transaction")
}
