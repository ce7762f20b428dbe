package apperrors

import (
	"errors"
	"fmt"
)

// ErrNotFound 实体在缓存和远端都不存在
var ErrNotFound = errors.New("entity not found")

// NetworkError 网络错误：连接失败、超时或非2xx响应
type NetworkError struct {
	URL        string
	StatusCode int // 0表示未收到响应
	Err        error
}

func (e *NetworkError) Error() string {
	if e.StatusCode > 0 {
		return fmt.Sprintf("network error: %s returned status %d", e.URL, e.StatusCode)
	}
	return fmt.Sprintf("network error: %s: %v", e.URL, e.Err)
}

func (e *NetworkError) Unwrap() error { return e.Err }

// ParseError 响应数据解析错误
type ParseError struct {
	Resource string
	Err      error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("failed to parse %s response: %v", e.Resource, e.Err)
}

func (e *ParseError) Unwrap() error { return e.Err }

// ValidationError 客户端表单校验错误，发生在任何网络请求之前
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation failed on %s: %s", e.Field, e.Reason)
}

// StorageError 本地缓存读写错误
type StorageError struct {
	Op  string
	Err error
}

func (e *StorageError) Error() string {
	return fmt.Sprintf("storage %s failed: %v", e.Op, e.Err)
}

func (e *StorageError) Unwrap() error { return e.Err }

// SyncError 外部同步错误
type SyncError struct {
	Provider string
	Err      error
}

func (e *SyncError) Error() string {
	return fmt.Sprintf("sync with %s failed: %v", e.Provider, e.Err)
}

func (e *SyncError) Unwrap() error { return e.Err }

// IsNetwork 判断错误链中是否包含网络错误
func IsNetwork(err error) bool {
	var ne *NetworkError
	return errors.As(err, &ne)
}

// IsValidation 判断错误链中是否包含校验错误
func IsValidation(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}
