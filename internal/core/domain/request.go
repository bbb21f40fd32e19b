package domain

import (
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/go-playground/validator/v10"
)

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	if err := v.RegisterValidation("contenthash", func(fl validator.FieldLevel) bool {
		return IsContentHash(fl.Field().String())
	}); err != nil {
		panic(err)
	}
	return v
}

type UploadRequest struct {
	CustomerID string `validate:"required,max=128,excludesall=/?#"`
	Filename   string `validate:"max=255"`
}

type AnalyticsRequest struct {
	CustomerID string `validate:"required,max=128,excludesall=/?#"`
	Keyword    string `validate:"max=256"`
}

type DocumentRequest struct {
	CustomerID  string `validate:"required,max=128,excludesall=/?#"`
	ContentHash string `validate:"required,contenthash"`
}

type ListRequest struct {
	CustomerID string `validate:"required,max=128,excludesall=/?#"`
	Page       int    `validate:"gte=1,lte=1000000"`
	PerPage    int    `validate:"gte=1,lte=100"`
}

// ValidateRequest checks struct tags and reports failures as ErrInvalidInput.
func ValidateRequest(operation string, req any) error {
	err := validate.Struct(req)
	if err == nil {
		return nil
	}
	var errs validator.ValidationErrors
	if !errors.As(err, &errs) {
		return WrapError(ErrInvalidInput, operation, err)
	}
	fields := make([]string, 0, len(errs))
	for _, e := range errs {
		fields = append(fields, fmt.Sprintf("%s failed on '%s'", toSnake(e.Field()), e.Tag()))
	}
	sort.Strings(fields)
	return WrapError(ErrInvalidInput, operation, errors.New(strings.Join(fields, "; ")))
}

func toSnake(field string) string {
	var b strings.Builder
	prevLower := false
	for _, r := range field {
		if r >= 'A' && r <= 'Z' {
			if prevLower {
				b.WriteByte('_')
			}
			r += 'a' - 'A'
			prevLower = false
		} else {
			prevLower = true
		}
		b.WriteRune(r)
	}
	return b.String()
}
