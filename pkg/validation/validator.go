package validation

import (
	"github.com/go-playground/validator/v10"

	"repair-system/pkg/constants"
)

// CustomValidator - обертка для использования в Echo
type CustomValidator struct {
	validator *validator.Validate
}

// Validate реализует интерфейс echo.Validator
func (cv *CustomValidator) Validate(i interface{}) error {
	return cv.validator.Struct(i)
}

// New создает и настраивает валидатор.
func New() *CustomValidator {
	v := validator.New()

	// Если правило не зарегистрировалось - паникуем, сервер не должен стартовать.
	if err := v.RegisterValidation("request_status", isKnownRequestStatus); err != nil {
		panic("ошибка регистрации валидаторов: " + err.Error())
	}

	return &CustomValidator{validator: v}
}

func isKnownRequestStatus(fl validator.FieldLevel) bool {
	return constants.IsKnownStatus(fl.Field().String())
}
