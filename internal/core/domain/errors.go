package domain

import "errors"

// Common domain errors
var (
	ErrNotFound       = errors.New("resource not found")
	ErrInvalidInput   = errors.New("invalid input")
	ErrInternalServer = errors.New("internal server error")
)

// Policy errors
var (
	ErrPolicyNotFound   = errors.New("policy not found")
	ErrPolicyIDTaken    = errors.New("policy id already reserved")
	ErrStoreUnavailable = errors.New("policy store unavailable")
)

// Document errors
var (
	ErrTemplateNotFound = errors.New("document template not found")
	ErrRenderFailed     = errors.New("document render failed")
	ErrConversionFailed = errors.New("pdf conversion failed")
)
