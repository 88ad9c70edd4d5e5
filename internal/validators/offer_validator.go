package validators

import (
	"fmt"
	"strings"
	"time"

	"flashoffers/internal/models"

	"github.com/go-playground/validator/v10"
)

var validate *validator.Validate

func init() {
	validate = validator.New()
}

// ValidationError represents a field validation error
type ValidationError struct {
	Field   string `json:"field"`
	Tag     string `json:"tag"`
	Message string `json:"message"`
}

type ValidationErrors []ValidationError

func (v ValidationErrors) Error() string {
	var messages []string
	for _, err := range v {
		messages = append(messages, fmt.Sprintf("%s: %s", err.Field, err.Message))
	}
	return strings.Join(messages, "; ")
}

// ValidateCreateOffer checks the structural tags plus the cross-field rules
// the tags cannot express.
func ValidateCreateOffer(req *models.CreateOfferRequest) ValidationErrors {
	var errs ValidationErrors

	if err := validate.Struct(req); err != nil {
		for _, fieldErr := range err.(validator.ValidationErrors) {
			errs = append(errs, ValidationError{
				Field:   fieldErr.Field(),
				Tag:     fieldErr.Tag(),
				Message: messageForTag(fieldErr),
			})
		}
	}

	if !req.StartTime.IsZero() && !req.EndTime.IsZero() && !req.StartTime.Before(req.EndTime) {
		errs = append(errs, ValidationError{
			Field:   "start_time",
			Tag:     "ltfield",
			Message: "start_time must precede end_time",
		})
	}
	if !req.EndTime.IsZero() && req.EndTime.Before(time.Now()) {
		errs = append(errs, ValidationError{
			Field:   "end_time",
			Tag:     "future",
			Message: "end_time must be in the future",
		})
	}
	if req.RadiusMiles < 0 {
		errs = append(errs, ValidationError{
			Field:   "radius_miles",
			Tag:     "min",
			Message: "radius_miles cannot be negative",
		})
	}

	return errs
}

func messageForTag(fieldErr validator.FieldError) string {
	switch fieldErr.Tag() {
	case "required":
		return "this field is required"
	case "gt":
		return fmt.Sprintf("must be greater than %s", fieldErr.Param())
	case "max":
		return fmt.Sprintf("must be at most %s characters", fieldErr.Param())
	default:
		return fmt.Sprintf("failed validation: %s", fieldErr.Tag())
	}
}
