package calendar

import (
	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"

	"github.com/trezcool/ratiba/core"
)

var (
	taskCodeTag  = "taskcode"
	taskCodeText = "codes must start with a letter followed by letters or digits"

	taskDateTag  = "taskdate"
	taskDateText = "date must be formatted as YYYY-MM-DD or RFC 3339"
)

// InitValidators registers the calendar validators. core.InitValidators must run first.
func InitValidators(validate *validator.Validate, translator ut.Translator) {
	_ = validate.RegisterValidation(taskCodeTag, taskCodeValidation)
	core.RegisterCustomTranslation(validate, translator, taskCodeTag, taskCodeText)

	_ = validate.RegisterValidation(taskDateTag, taskDateValidation)
	core.RegisterCustomTranslation(validate, translator, taskDateTag, taskDateText)
}

func taskCodeValidation(fl validator.FieldLevel) bool {
	return IsCode(fl.Field().String())
}

func taskDateValidation(fl validator.FieldLevel) bool {
	_, err := ParseTaskDate(fl.Field().String(), nil)
	return err == nil
}
