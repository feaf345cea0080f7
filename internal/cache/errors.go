package cache

import (
	"errors"

	platformerrors "github.com/jmgilman/go/errors"
)

// ErrorKind 是缓存错误的封闭分类，调用方据此决定是否中断主流程。
type ErrorKind int

const (
	// KindOperational 覆盖 I/O、归档引擎等一切可降级的失败。
	KindOperational ErrorKind = iota
	// KindValidation 表示调用方传入了非法 key 或路径，必须向上返回。
	KindValidation
	// KindReserve 表示目标 key 已存在条目，保存以软失败结束。
	KindReserve
)

func (k ErrorKind) String() string {
	switch k {
	case KindValidation:
		return "validation"
	case KindReserve:
		return "reserve"
	default:
		return "operational"
	}
}

// ErrNotFound 表示没有任何 key 命中缓存条目。
var ErrNotFound = platformerrors.New(platformerrors.CodeNotFound, "cache entry not found")

// KindOf 依据错误码结构化地判断错误类别。
func KindOf(err error) ErrorKind {
	var pe platformerrors.PlatformError
	if !errors.As(err, &pe) {
		return KindOperational
	}
	switch pe.Code() {
	case platformerrors.CodeInvalidInput:
		return KindValidation
	case platformerrors.CodeAlreadyExists:
		return KindReserve
	default:
		return KindOperational
	}
}

// IsValidation 报告 err 是否为调用方误用导致的校验错误。
func IsValidation(err error) bool {
	return err != nil && KindOf(err) == KindValidation
}

// IsReserve 报告 err 是否为同 key 条目已存在的保留冲突。
func IsReserve(err error) bool {
	return err != nil && KindOf(err) == KindReserve
}

func newValidationError(format string, args ...interface{}) error {
	return platformerrors.Newf(platformerrors.CodeInvalidInput, format, args...)
}

func newReserveError(key string) error {
	return platformerrors.Newf(platformerrors.CodeAlreadyExists,
		"unable to reserve cache with key %s, another job may be creating this cache", key)
}

func wrapOperational(err error, format string, args ...interface{}) error {
	if err == nil {
		return nil
	}
	return platformerrors.Wrapf(err, platformerrors.CodeInternal, format, args...)
}
