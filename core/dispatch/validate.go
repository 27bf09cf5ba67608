package dispatch

import (
	"errors"
	"strings"

	"github.com/go-playground/validator/v10"

	"bastion-icc/core/apperr"
)

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	_ = v.RegisterValidation("phone", func(fl validator.FieldLevel) bool {
		return ValidPhone(fl.Field().String())
	})
	return v
}

// alertInput is everything the templates embed, validated before any
// string building happens.
type alertInput struct {
	HelperName  string  `validate:"required,max=100"`
	HelperPhone string  `validate:"required,phone"`
	Type        string  `validate:"required,max=50"`
	Latitude    float64 `validate:"gte=-90,lte=90"`
	Longitude   float64 `validate:"gte=-180,lte=180"`
	Location    string  `validate:"max=200"`
	Description string  `validate:"required,max=5000"`
	DistanceKm  float64 `validate:"gte=0"`
}

func checkAlertInput(in alertInput) error {
	err := validate.Struct(in)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) && len(verrs) > 0 {
		fe := verrs[0]
		return apperr.Validation(strings.ToLower(fe.Field()), "failed "+fe.Tag()+" check")
	}
	return apperr.Validation("alert", err.Error())
}
