// Package errors 定义服务对外可见的业务错误
//
// 错误种类是一个封闭集合, HTTP 状态码与 gRPC 状态码都由对 Kind 的穷举映射得到。
package errors

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

// Kind 错误种类
type Kind int

const (
	KindInternal Kind = iota
	KindInvalidParams
	KindUnauthorized
	KindForbidden
	KindNotFound
	KindUserNotFound
	KindResourceNotFound
	KindResourceNotApproved
	KindCoinNetworkNotFound
	KindCoinTypeNotSupported
	KindAmountConversion
	KindRewardClaimNotFound
	KindDuplicateRewardClaim
	KindInvalidClaimStatus
	KindNotWhitelisted
	KindTransactionFailed
)

// String 返回对外稳定的错误码
func (k Kind) String() string {
	switch k {
	case KindInternal:
		return "SERVICE_ERROR"
	case KindInvalidParams:
		return "INVALID_PARAMS"
	case KindUnauthorized:
		return "NO_AUTH"
	case KindForbidden:
		return "ADMIN_REQUIRED"
	case KindNotFound:
		return "NOT_FOUND"
	case KindUserNotFound:
		return "USER_NOT_FOUND"
	case KindResourceNotFound:
		return "RESOURCE_NOT_FOUND"
	case KindResourceNotApproved:
		return "RESOURCE_NOT_APPROVED"
	case KindCoinNetworkNotFound:
		return "COIN_NETWORK_NOT_FOUND"
	case KindCoinTypeNotSupported:
		return "COIN_TYPE_NOT_SUPPORTED"
	case KindAmountConversion:
		return "AMOUNT_CONVERSION_ERROR"
	case KindRewardClaimNotFound:
		return "REWARD_CLAIM_NOT_FOUND"
	case KindDuplicateRewardClaim:
		return "REWARD_CLAIM_DUPLICATE"
	case KindInvalidClaimStatus:
		return "INVALID_REWARD_CLAIM_STATUS"
	case KindNotWhitelisted:
		return "NOT_WHITELISTED"
	case KindTransactionFailed:
		return "TRANSACTION_FAILED"
	}
	return "SERVICE_ERROR"
}

// HTTPStatus 错误种类对应的 HTTP 状态码
func (k Kind) HTTPStatus() int {
	switch k {
	case KindInternal:
		return http.StatusInternalServerError
	case KindInvalidParams, KindResourceNotApproved, KindCoinTypeNotSupported, KindAmountConversion:
		return http.StatusBadRequest
	case KindUnauthorized:
		return http.StatusUnauthorized
	case KindForbidden, KindNotWhitelisted:
		return http.StatusForbidden
	case KindNotFound, KindUserNotFound, KindResourceNotFound, KindCoinNetworkNotFound, KindRewardClaimNotFound:
		return http.StatusNotFound
	case KindDuplicateRewardClaim, KindInvalidClaimStatus:
		return http.StatusConflict
	case KindTransactionFailed:
		return http.StatusBadGateway
	}
	return http.StatusInternalServerError
}

// GRPCCode 错误种类对应的 gRPC 状态码
func (k Kind) GRPCCode() codes.Code {
	switch k {
	case KindInternal:
		return codes.Internal
	case KindInvalidParams, KindCoinTypeNotSupported, KindAmountConversion:
		return codes.InvalidArgument
	case KindResourceNotApproved, KindInvalidClaimStatus:
		return codes.FailedPrecondition
	case KindUnauthorized:
		return codes.Unauthenticated
	case KindForbidden, KindNotWhitelisted:
		return codes.PermissionDenied
	case KindNotFound, KindUserNotFound, KindResourceNotFound, KindCoinNetworkNotFound, KindRewardClaimNotFound:
		return codes.NotFound
	case KindDuplicateRewardClaim:
		return codes.AlreadyExists
	case KindTransactionFailed:
		return codes.Unavailable
	}
	return codes.Internal
}

// Error 业务错误
type Error struct {
	Kind    Kind              `json:"-"`
	Message string            `json:"message"`
	Cause   error             `json:"-"`
	Details map[string]string `json:"details,omitempty"`
}

func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s (cause: %v)", e.Kind, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *Error) Unwrap() error {
	return e.Cause
}

// Is 同种类的错误视为相等
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return e.Kind == t.Kind
}

// Code 对外错误码
func (e *Error) Code() string {
	return e.Kind.String()
}

// HTTPStatus HTTP 状态码
func (e *Error) HTTPStatus() int {
	return e.Kind.HTTPStatus()
}

// WithDetail 添加单个详情, 返回副本
func (e *Error) WithDetail(key, value string) *Error {
	newErr := e.copy()
	if newErr.Details == nil {
		newErr.Details = make(map[string]string)
	}
	newErr.Details[key] = value
	return newErr
}

// MarshalJSON 输出 code/message/details
func (e *Error) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		Code    string            `json:"code"`
		Message string            `json:"message"`
		Details map[string]string `json:"details,omitempty"`
	}{
		Code:    e.Code(),
		Message: e.Message,
		Details: e.Details,
	})
}

func (e *Error) copy() *Error {
	newErr := &Error{Kind: e.Kind, Message: e.Message, Cause: e.Cause}
	if e.Details != nil {
		newErr.Details = make(map[string]string, len(e.Details))
		for k, v := range e.Details {
			newErr.Details[k] = v
		}
	}
	return newErr
}

// New 创建业务错误
func New(kind Kind, message string) *Error {
	return &Error{Kind: kind, Message: message}
}

// Newf 格式化创建业务错误
func Newf(kind Kind, format string, args ...interface{}) *Error {
	return New(kind, fmt.Sprintf(format, args...))
}

// Wrap 携带原因创建业务错误
func Wrap(kind Kind, cause error, message string) *Error {
	return &Error{Kind: kind, Message: message, Cause: cause}
}

// KindOf 提取错误种类, 非业务错误归为 KindInternal
func KindOf(err error) Kind {
	var bizErr *Error
	if errors.As(err, &bizErr) {
		return bizErr.Kind
	}
	return KindInternal
}

// IsKind 判断错误是否为指定种类
func IsKind(err error, kind Kind) bool {
	var bizErr *Error
	return errors.As(err, &bizErr) && bizErr.Kind == kind
}

// FromError 将任意错误转换为业务错误
func FromError(err error) *Error {
	if err == nil {
		return nil
	}
	var bizErr *Error
	if errors.As(err, &bizErr) {
		return bizErr
	}
	return Wrap(KindInternal, err, "internal server error")
}

// ToGRPCError 转换为 gRPC 错误
func ToGRPCError(err error) error {
	if err == nil {
		return nil
	}
	bizErr := FromError(err)
	return status.Error(bizErr.Kind.GRPCCode(), bizErr.Message)
}
