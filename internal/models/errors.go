package models

import "errors"

// Общие ошибки, которыми обмениваются хранилище, сервисы и HTTP-слой.
var (
	ErrNotFound        = errors.New("not found")
	ErrConflict        = errors.New("conflict")
	ErrUnauthenticated = errors.New("unauthenticated")
	ErrForbidden       = errors.New("forbidden")
	ErrBadRequest      = errors.New("bad request")
)

// Доменные ошибки.
var (
	ErrPasswordMismatch    = errors.New("Parolele nu se potrivesc.")
	ErrInvalidCredentials  = errors.New("Email sau parolă greșită.")
	ErrEmailTaken          = errors.New("email already registered")
	ErrInvalidResetToken   = errors.New("invalid or expired reset token")
	ErrExportNotAllowed    = errors.New("account type does not allow data export")
	ErrExportLimitReached  = errors.New("monthly export limit reached")
	ErrSavedSearchDisabled = errors.New("account type does not allow saved searches")
	ErrSavedSearchLimit    = errors.New("saved searches limit reached")
	ErrAlreadySubscribed   = errors.New("already subscribed")
	ErrCaptchaFailed       = errors.New("captcha verification failed")
	ErrSelfDelete          = errors.New("cannot delete own account")
	ErrNoPriceForSantier   = errors.New("no active price for santier purchase")
	ErrUnknownPlan         = errors.New("unknown subscription plan")
	ErrScriptNotFound      = errors.New("script not found")
	ErrInvalidScriptPath   = errors.New("invalid script path")
)
