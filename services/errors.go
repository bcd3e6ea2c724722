package services

import "errors"

// Общие ошибки сервисного слоя. Обработчики переводят их в HTTP-статусы
// в mapServiceErrorToHTTP.
var (
	// Ресурс не найден
	ErrNotFound         = errors.New("requested resource not found")
	ErrDancerNotFound   = errors.New("dancer not found")
	ErrSenderNotFound   = errors.New("sender dancer not found")
	ErrReceiverNotFound = errors.New("receiver dancer not found")
	ErrRequestNotFound  = errors.New("request not found")
	ErrPairNotFound     = errors.New("pair not found")
	ErrUserNotFound     = errors.New("user not found")

	// Ошибки валидации и бизнес-правил. Каждое предусловие принятия заявки
	// имеет собственную ошибку, чтобы клиент видел конкретную причину отказа.
	ErrValidationFailed     = errors.New("validation failed")
	ErrDancersNotInSearch   = errors.New("both dancers must be in IN_SEARCH status")
	ErrSelfPair             = errors.New("sender and receiver must be different dancers")
	ErrSameSexPair          = errors.New("both dancers must be of different sexes")
	ErrAlreadyInPair        = errors.New("one or both dancers are already in a pair")
	ErrInvalidRequestStatus = errors.New("invalid request status")
	ErrAgeHeightRequired    = errors.New("age and height are required for knn recommendations")
	ErrInvalidKNNLimit      = errors.New("k must be between 1 and 20")

	// Ошибки конфликтов
	ErrUserEmailConflict = errors.New("email address is already in use")
	ErrDancerInPair      = errors.New("dancer participates in an active pair")

	// Ошибки аутентификации и авторизации
	ErrAuthInvalidCredentials = errors.New("invalid email or password")
	ErrForbiddenOperation     = errors.New("operation not allowed for the current user")

	// Инфраструктурные
	ErrPhotoStorageDisabled = errors.New("photo storage is not configured")
)
