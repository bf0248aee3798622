package services

import (
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/cppla/aiblog/models"
	"github.com/cppla/aiblog/utils"
)

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New()
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	_ = v.RegisterValidation("post_status", func(fl validator.FieldLevel) bool {
		return models.PostStatus(fl.Field().String()).Valid()
	})
	_ = v.RegisterValidation("comment_status", func(fl validator.FieldLevel) bool {
		return models.CommentStatus(fl.Field().String()).Valid()
	})
	return v
}

// validateStruct runs the struct tags and flattens failures into a field map.
func validateStruct(s interface{}) error {
	err := validate.Struct(s)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return err
	}
	fields := map[string][]string{}
	for _, fe := range verrs {
		key := fieldKey(fe)
		fields[key] = append(fields[key], fieldMessage(fe))
	}
	return &Error{Kind: KindValidation, Message: ErrValidation.Message, Fields: fields}
}

// sanitizeFields strips disallowed markup from user text in place. It runs
// after validateStruct, so length limits apply to what the caller typed. Nil
// pointers are skipped.
func sanitizeFields(fields ...*string) {
	for _, f := range fields {
		if f != nil {
			*f = strings.TrimSpace(utils.SanitizeText(*f))
		}
	}
}

// fieldKey strips the struct name and keeps the json path, e.g. "tags[0]".
func fieldKey(fe validator.FieldError) string {
	ns := fe.Namespace()
	if i := strings.Index(ns, "."); i >= 0 {
		return ns[i+1:]
	}
	return fe.Field()
}

func fieldMessage(fe validator.FieldError) string {
	label := fe.Field()
	if label != "" {
		label = strings.ToUpper(label[:1]) + label[1:]
	}
	switch fe.Tag() {
	case "required":
		return label + " is required"
	case "min":
		if fe.Kind() == reflect.Slice {
			return fmt.Sprintf("At least %s %s required", fe.Param(), pluralItem(fe.Param()))
		}
		if fe.Param() == "1" {
			return label + " is required"
		}
		return fmt.Sprintf("%s must be at least %s characters", label, fe.Param())
	case "max":
		return fmt.Sprintf("%s must be at most %s characters", label, fe.Param())
	case "email":
		return label + " must be a valid email address"
	case "post_status":
		return label + " must be one of DRAFT, PUBLISHED, ARCHIVED"
	case "comment_status":
		return label + " must be one of PENDING, APPROVED, REJECTED"
	}
	return fmt.Sprintf("%s failed on %s", label, fe.Tag())
}

func pluralItem(n string) string {
	if n == "1" {
		return "item is"
	}
	return "items are"
}
