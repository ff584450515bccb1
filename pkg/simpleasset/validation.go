package simpleasset

import (
	"errors"
	"fmt"
	"reflect"
	"strings"
	"sync"

	"github.com/go-playground/validator/v10"
)

var (
	validate     *validator.Validate
	validateOnce sync.Once
)

func requestValidator() *validator.Validate {
	validateOnce.Do(func() {
		validate = validator.New()
		validate.RegisterTagNameFunc(func(fld reflect.StructField) string {
			name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
			if name == "-" || name == "" {
				return fld.Name
			}
			return name
		})
	})
	return validate
}

// validateRequest runs struct tag validation and reports the first failure
// as a *ValidationError.
func validateRequest(req any) error {
	err := requestValidator().Struct(req)
	if err == nil {
		return nil
	}
	var fieldErrs validator.ValidationErrors
	if errors.As(err, &fieldErrs) && len(fieldErrs) > 0 {
		fe := fieldErrs[0]
		return &ValidationError{Field: fe.Field(), Reason: describeFieldError(fe)}
	}
	return &ValidationError{Reason: err.Error()}
}

func describeFieldError(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "is required"
	case "min":
		return fmt.Sprintf("must be at least %s", fe.Param())
	case "max":
		return fmt.Sprintf("must be at most %s", fe.Param())
	case "oneof":
		return fmt.Sprintf("must be one of [%s]", fe.Param())
	}
	return fmt.Sprintf("failed %s validation", fe.Tag())
}

// ValidatePriority rejects values outside MinPriority..MaxPriority.
func ValidatePriority(p int) error {
	if p < MinPriority || p > MaxPriority {
		return &ValidationError{Field: "priority", Reason: fmt.Sprintf("must be between %d and %d", MinPriority, MaxPriority)}
	}
	return nil
}

// blankName is returned for names that are empty once trimmed.
func blankName() error {
	return &ValidationError{Field: "name", Reason: "must not be blank"}
}

// validateUpload trims Name in place before checking it.
func validateUpload(req *UploadRequest) error {
	req.Name = strings.TrimSpace(req.Name)
	if req.Name == "" {
		return blankName()
	}
	if err := validateRequest(req); err != nil {
		return err
	}
	if req.Priority != nil {
		if err := ValidatePriority(*req.Priority); err != nil {
			return err
		}
	}
	if _, err := LookupCategory(req.Category); err != nil {
		return err
	}
	return nil
}

// validateUpdate replaces Name with its trimmed copy before checking it.
func validateUpdate(req *UpdateRequest) error {
	if req.Name != nil {
		name := strings.TrimSpace(*req.Name)
		if name == "" {
			return blankName()
		}
		req.Name = &name
	}
	if err := validateRequest(req); err != nil {
		return err
	}
	if req.Priority != nil {
		if err := ValidatePriority(*req.Priority); err != nil {
			return err
		}
	}
	if req.Category != nil {
		if _, err := LookupCategory(*req.Category); err != nil {
			return err
		}
	}
	return nil
}
