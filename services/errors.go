package services

import "errors"

// Общие ошибки, используемые в разных сервисах и маппинге HTTP.
var (
	// Ресурс не найден (универсальная)
	ErrNotFound = errors.New("requested resource not found")

	// Ошибки валидации и бизнес-правил
	ErrValidationFailed  = errors.New("validation failed")
	ErrCompetitionClosed = errors.New("competition is not active")
	ErrCompetitionFull   = errors.New("competition is full")
	ErrDuplicateEntry    = errors.New("user has already entered this competition")
	ErrAmountMismatch    = errors.New("amount does not match the competition entry price")
	ErrAnswerOutOfRange  = errors.New("answer index is out of range for the skill question")

	// Ошибки конкурсов
	ErrCompetitionInvalidPrice     = errors.New("competition entry price must not be negative")
	ErrCompetitionInvalidCapacity  = errors.New("competition max entries must be positive")
	ErrCompetitionInvalidDateRange = errors.New("competition end date must be after start date")
	ErrCompetitionInvalidQuestion  = errors.New("skill question must have options and a valid correct answer index")
	ErrCompetitionTitleConflict    = errors.New("competition title already exists")
	ErrInvalidStatusTransition     = errors.New("invalid competition status transition")
	ErrWinnerWithoutEntry          = errors.New("winner must have an entry in the competition")

	// Ошибки, специфичные для сущностей
	ErrUserNotFound        = errors.New("user not found")
	ErrCompetitionNotFound = errors.New("competition not found")
	ErrEntryNotFound       = errors.New("entry not found")

	// Ошибки аутентификации и авторизации
	ErrAuthInvalidCredentials = errors.New("invalid email or password")
	ErrAuthEmailTaken         = errors.New("email is already taken")
	ErrReferralCodeInvalid    = errors.New("referral code is not recognized")
	ErrForbiddenOperation     = errors.New("operation not allowed for the current user")

	// Внешние зависимости
	ErrPaymentProvider = errors.New("payment provider request failed")
	ErrUploaderMissing = errors.New("file storage is not configured")
)
