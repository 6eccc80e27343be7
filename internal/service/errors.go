package service

import (
	"errors"
	"fmt"
)

// 错误类别，handler 按类别映射响应码
var (
	ErrValidation      = errors.New("validation failed")
	ErrNotFound        = errors.New("not found")
	ErrConflict        = errors.New("conflict")
	ErrAlreadyVerified = errors.New("already verified")
	ErrDependency      = errors.New("dependency failure")
)

// kindError 带类别的业务错误，errors.Is 同时匹配自身和类别
type kindError struct {
	kind error
	msg  string
	err  error
}

func (e *kindError) Error() string {
	if e.err != nil {
		return e.msg + ": " + e.err.Error()
	}
	return e.msg
}

func (e *kindError) Is(target error) bool {
	return target == e.kind
}

func (e *kindError) Unwrap() error {
	return e.err
}

func newKind(kind error, msg string) error {
	return &kindError{kind: kind, msg: msg}
}

// validationError 参数错误，消息直接返回给调用方
func validationError(format string, args ...interface{}) error {
	return &kindError{kind: ErrValidation, msg: fmt.Sprintf(format, args...)}
}

// dependencyError 包装存储、邮件等下游失败
func dependencyError(msg string, err error) error {
	return &kindError{kind: ErrDependency, msg: msg, err: err}
}

var (
	ErrProfileNotFound      = newKind(ErrNotFound, "profile not found")
	ErrAccountNotFound      = newKind(ErrNotFound, "account not found")
	ErrReviewLinkInvalid    = newKind(ErrNotFound, "invalid or expired verification link")
	ErrSubscriptionNotFound = newKind(ErrNotFound, "subscription not found")

	ErrPendingReviewExists = newKind(ErrConflict, "a review for this profile is already awaiting verification for this email")
	ErrReviewExists        = newKind(ErrConflict, "you have already reviewed this profile")
	ErrEmailExists         = newKind(ErrConflict, "email already registered")
	ErrSubscriptionActive  = newKind(ErrConflict, "subscription is already active")

	ErrReviewAlreadyVerified = newKind(ErrAlreadyVerified, "this review has already been verified")

	ErrOwnProfileReview = newKind(ErrValidation, "you cannot review your own profile")
	ErrInvalidPhoto     = newKind(ErrValidation, "photo must be an image")
	ErrPhotoTooLarge    = newKind(ErrValidation, "photo is too large")

	ErrInvalidCredentials = errors.New("invalid email or password")
	ErrInvalidSignature   = newKind(ErrValidation, "invalid webhook signature")
	ErrStorageDisabled    = newKind(ErrDependency, "photo storage is not configured")
	ErrPaymentDisabled    = newKind(ErrDependency, "payments are not configured")
)
