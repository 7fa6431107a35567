package domain

import "errors"

// Storage errors - 儲存與查詢層錯誤
var (
	// ErrNotFound indicates the requested resource does not exist
	ErrNotFound = errors.New("resource not found")

	// ErrPermissionDenied indicates insufficient permissions
	ErrPermissionDenied = errors.New("permission denied")

	// ErrNotDirectory indicates expected a directory but got a file
	ErrNotDirectory = errors.New("not a directory")

	// ErrNotFile indicates expected a file but got a directory
	ErrNotFile = errors.New("not a file")

	// ErrAlreadyExists indicates the resource already exists
	ErrAlreadyExists = errors.New("resource already exists")

	// ErrNetworkError indicates a network-related failure
	ErrNetworkError = errors.New("network error")

	// ErrTimeout indicates operation timed out
	ErrTimeout = errors.New("operation timed out")
)

// Plan errors - 計畫層錯誤
var (
	// ErrPlanInvalid indicates a malformed plan or action
	ErrPlanInvalid = errors.New("invalid plan")

	// ErrUnknownActionKind indicates an action kind that cannot be decoded
	ErrUnknownActionKind = errors.New("unknown action kind")
)

// Config errors - 設定檔錯誤
var (
	// ErrConfigNotFound indicates config file not found
	ErrConfigNotFound = errors.New("config file not found")

	// ErrConfigInvalid indicates config file is malformed
	ErrConfigInvalid = errors.New("invalid config")

	// ErrStorageNotConfigured indicates no storage backend is configured
	ErrStorageNotConfigured = errors.New("storage not configured")
)
