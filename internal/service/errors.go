package service

import "errors"

var (
	ErrNotFound            = errors.New("not found")
	ErrForbidden           = errors.New("forbidden")
	ErrInvalidInput        = errors.New("invalid input")
	ErrInvalidPackage      = errors.New("invalid package id")
	ErrInsufficientCredits = errors.New("insufficient credits")
	ErrModelNotReady       = errors.New("voice model is not ready")
	ErrExternalService     = errors.New("external service error")
)
