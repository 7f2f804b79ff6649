package auth

import (
	"errors"
	"fmt"
	"reflect"
	"regexp"
	"strconv"
	"strings"
	"sync"

	"github.com/NordCoder/firmbook/internal/apperr"
	"github.com/go-playground/validator/v10"
)

type RegisterInput struct {
	Email    string `json:"email" validate:"required,email"`
	Phone    string `json:"phone" validate:"required,min=6,max=20,phone"`
	Password string `json:"password" validate:"required,min=8,maxbytes=72,password"`
}

type LoginInput struct {
	Identifier string `json:"identifier" validate:"required,min=3"`
	Password   string `json:"password" validate:"required"`
}

type RefreshInput struct {
	RefreshTokenID string `json:"refreshTokenId" validate:"required"`
	RefreshToken   string `json:"refreshToken" validate:"required"`
}

type LogoutInput struct {
	RefreshTokenID string `json:"refreshTokenId"`
}

var (
	phonePattern = regexp.MustCompile(`^[+0-9][0-9\-\s]*$`)
	hasLower     = regexp.MustCompile(`[a-z]`)
	hasUpper     = regexp.MustCompile(`[A-Z]`)
	hasDigit     = regexp.MustCompile(`[0-9]`)
	hasSymbol    = regexp.MustCompile(`[^A-Za-z0-9]`)
	phoneStrip   = strings.NewReplacer(" ", "", "-", "", "\t", "")
)

var (
	validateOnce sync.Once
	validate     *validator.Validate
)

func getValidator() *validator.Validate {
	validateOnce.Do(func() {
		v := validator.New(validator.WithRequiredStructEnabled())
		v.RegisterTagNameFunc(func(f reflect.StructField) string {
			name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
			if name == "-" {
				return ""
			}
			return name
		})
		_ = v.RegisterValidation("phone", func(fl validator.FieldLevel) bool {
			return phonePattern.MatchString(fl.Field().String())
		})
		// bcrypt rejects input longer than 72 bytes, not characters.
		_ = v.RegisterValidation("maxbytes", func(fl validator.FieldLevel) bool {
			limit, err := strconv.Atoi(fl.Param())
			return err == nil && len(fl.Field().String()) <= limit
		})
		_ = v.RegisterValidation("password", func(fl validator.FieldLevel) bool {
			s := fl.Field().String()
			return hasLower.MatchString(s) && hasUpper.MatchString(s) &&
				hasDigit.MatchString(s) && hasSymbol.MatchString(s)
		})
		validate = v
	})
	return validate
}

// validateStruct returns nil or an apperr validation error with one entry
// per failing field.
func validateStruct(s any) error {
	err := getValidator().Struct(s)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return apperr.Validation(err.Error())
	}
	fields := make([]apperr.FieldError, 0, len(verrs))
	for _, fe := range verrs {
		fields = append(fields, apperr.FieldError{Field: fe.Field(), Message: fieldMessage(fe)})
	}
	return apperr.Validation("invalid request data", fields...)
}

func fieldMessage(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "is required"
	case "email":
		return "must be a valid email address"
	case "min":
		return fmt.Sprintf("must be at least %s characters", fe.Param())
	case "max":
		return fmt.Sprintf("must be at most %s characters", fe.Param())
	case "maxbytes":
		return fmt.Sprintf("must be at most %s bytes", fe.Param())
	case "phone":
		return "may contain digits, spaces and dashes, optionally starting with +"
	case "password":
		return "must contain a lowercase letter, an uppercase letter, a digit and a symbol"
	default:
		return "is invalid"
	}
}

func normalizeEmail(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

func normalizePhone(s string) string {
	return phoneStrip.Replace(strings.TrimSpace(s))
}

// normalizeIdentifier treats anything containing '@' as an email.
func normalizeIdentifier(s string) (value string, isEmail bool) {
	s = strings.TrimSpace(s)
	if strings.Contains(s, "@") {
		return normalizeEmail(s), true
	}
	return normalizePhone(s), false
}
