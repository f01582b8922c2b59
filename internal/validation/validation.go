// Package validation はフォーム入力の検証とフィールド単位のエラーを提供します。
package validation

import (
	"errors"
	"fmt"
	"reflect"
	"sort"
	"strings"

	"github.com/go-playground/validator/v10"
)

// ErrInvalid は入力値が不正な場合の共通エラーです。
var ErrInvalid = errors.New("invalid input")

// Error はフィールド名ごとのエラーメッセージを保持します。
type Error struct {
	Fields map[string]string
	Err    error
}

// Error は error インターフェースを実装します。
func (e *Error) Error() string {
	keys := make([]string, 0, len(e.Fields))
	for k := range e.Fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, k+": "+e.Fields[k])
	}
	return fmt.Sprintf("%v (%s)", e.Unwrap(), strings.Join(parts, "; "))
}

// Unwrap は原因のエラーを返します。未指定なら ErrInvalid です。
func (e *Error) Unwrap() error {
	if e.Err == nil {
		return ErrInvalid
	}
	return e.Err
}

// Field は単一フィールドのエラーを作成します。
func Field(field, message string, cause error) *Error {
	return &Error{Fields: map[string]string{field: message}, Err: cause}
}

// Fields は err が検証エラーならフィールドごとのメッセージを返します。
func Fields(err error) (map[string]string, bool) {
	var verr *Error
	if errors.As(err, &verr) {
		return verr.Fields, true
	}
	return nil, false
}

// Validator は validator.Validate をラップし、form タグをフィールド名として使います。
type Validator struct {
	validate *validator.Validate
}

// New は Validator を作成します。
func New() *Validator {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(field reflect.StructField) string {
		name := strings.SplitN(field.Tag.Get("form"), ",", 2)[0]
		if name == "" || name == "-" {
			return field.Name
		}
		return name
	})
	return &Validator{validate: v}
}

// Struct は構造体を検証し、違反があれば *Error を返します。
func (v *Validator) Struct(s any) error {
	err := v.validate.Struct(s)
	if err == nil {
		return nil
	}

	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return err
	}

	fields := make(map[string]string, len(verrs))
	for _, fe := range verrs {
		// 同じフィールドは最初の違反だけを表示する
		if _, ok := fields[fe.Field()]; ok {
			continue
		}
		fields[fe.Field()] = message(fe)
	}
	return &Error{Fields: fields}
}

func message(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "This field is required."
	case "email":
		return "Invalid email address."
	case "min":
		return fmt.Sprintf("Field must be at least %s characters long.", fe.Param())
	case "max":
		return fmt.Sprintf("Field cannot be longer than %s characters.", fe.Param())
	case "eqfield":
		return fmt.Sprintf("Field must be equal to %s.", strings.ToLower(fe.Param()))
	case "oneof":
		return "Not a valid choice."
	case "datetime":
		return "Not a valid date value (YYYY-MM-DD)."
	default:
		return "Invalid value."
	}
}
