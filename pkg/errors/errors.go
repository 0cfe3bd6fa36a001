package errors

import (
	"errors"
	"fmt"
	"net/http"
)

var (
	// Общие
	ErrNotFound   = fmt.Errorf("запись не найдена")
	ErrBadRequest = fmt.Errorf("неверный запрос")

	// Жизненный цикл заявки
	ErrInvalidTransition = fmt.Errorf("недопустимый переход статуса")

	// Назначения
	ErrAlreadyPending  = fmt.Errorf("по заявке уже есть неотвеченное назначение")
	ErrAlreadyResolved = fmt.Errorf("назначение уже закрыто")
)

// ErrorList сопоставляет доменные ошибки HTTP-кодам для слоя API.
var ErrorList = map[error]int{
	ErrNotFound:          http.StatusNotFound,
	ErrBadRequest:        http.StatusBadRequest,
	ErrInvalidTransition: http.StatusConflict,
	ErrAlreadyPending:    http.StatusConflict,
	ErrAlreadyResolved:   http.StatusConflict,
}

// HttpError - ошибка с готовым HTTP-кодом и сообщением для пользователя.
type HttpError struct {
	Code    int
	Message string
	Err     error
}

func (e *HttpError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *HttpError) Unwrap() error { return e.Err }

func NewHttpError(code int, message string, err error) *HttpError {
	return &HttpError{Code: code, Message: message, Err: err}
}

// HttpCode возвращает код для любой ошибки: HttpError как есть,
// известные доменные ошибки по ErrorList, остальное - 500.
func HttpCode(err error) int {
	var httpErr *HttpError
	if errors.As(err, &httpErr) {
		return httpErr.Code
	}
	for sentinel, code := range ErrorList {
		if errors.Is(err, sentinel) {
			return code
		}
	}
	return http.StatusInternalServerError
}

// Кастомные типы ошибок
type InvalidInputError struct {
	Message string
}

func (e *InvalidInputError) Error() string { return e.Message }

// Unwrap позволяет HttpCode отдать 400 через errors.Is(err, ErrBadRequest).
func (e *InvalidInputError) Unwrap() error { return ErrBadRequest }

func NewInvalidInputError(format string, args ...interface{}) error {
	return &InvalidInputError{Message: fmt.Sprintf(format, args...)}
}
