package validate

import (
	"fmt"
	"reflect"
	"regexp"
	"strings"
	"sync"

	"github.com/go-playground/validator/v10"
)

// emailPattern 与前端保持一致的宽松邮箱格式
var emailPattern = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)

var (
	once     sync.Once
	instance *validator.Validate
)

// Error 字段校验失败，Fields 以 json 字段名为键
type Error struct {
	Fields map[string]string
	first  string
}

func (e *Error) Error() string {
	return e.first
}

func engine() *validator.Validate {
	once.Do(func() {
		v := validator.New()
		v.RegisterTagNameFunc(func(fld reflect.StructField) string {
			name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
			if name == "-" {
				return ""
			}
			return name
		})
		if err := v.RegisterValidation("loose_email", func(fl validator.FieldLevel) bool {
			return IsEmail(fl.Field().String())
		}); err != nil {
			panic(fmt.Sprintf("register loose_email: %v", err))
		}
		instance = v
	})
	return instance
}

// IsEmail 校验邮箱格式
func IsEmail(s string) bool {
	return emailPattern.MatchString(s)
}

// Struct 校验结构体的 validate 标签
func Struct(s interface{}) error {
	err := engine().Struct(s)
	if err == nil {
		return nil
	}

	fieldErrs, ok := err.(validator.ValidationErrors)
	if !ok {
		return err
	}

	out := &Error{Fields: make(map[string]string, len(fieldErrs))}
	for _, fe := range fieldErrs {
		msg := message(fe)
		if out.first == "" {
			out.first = msg
		}
		out.Fields[fe.Field()] = msg
	}
	return out
}

func message(fe validator.FieldError) string {
	field := fe.Field()
	switch fe.Tag() {
	case "required":
		return fmt.Sprintf("%s is required", field)
	case "loose_email", "email":
		return fmt.Sprintf("%s must be a valid email address", field)
	case "min":
		if isSized(fe.Kind()) {
			return fmt.Sprintf("%s must be at least %s characters/items", field, fe.Param())
		}
		return fmt.Sprintf("%s must be at least %s", field, fe.Param())
	case "max":
		if isSized(fe.Kind()) {
			return fmt.Sprintf("%s must be at most %s characters/items", field, fe.Param())
		}
		return fmt.Sprintf("%s must be at most %s", field, fe.Param())
	case "gte":
		return fmt.Sprintf("%s must be greater than or equal to %s", field, fe.Param())
	case "lte":
		return fmt.Sprintf("%s must be less than or equal to %s", field, fe.Param())
	case "oneof":
		return fmt.Sprintf("%s must be one of: %s", field, strings.ReplaceAll(fe.Param(), " ", ", "))
	case "url":
		return fmt.Sprintf("%s must be a valid URL", field)
	default:
		return fmt.Sprintf("%s is invalid (%s)", field, fe.Tag())
	}
}

func isSized(k reflect.Kind) bool {
	return k == reflect.String || k == reflect.Slice || k == reflect.Map
}
