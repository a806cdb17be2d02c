// 文件路径: internal/inbound/errors.go
// 模块说明: 构建器与值对象校验使用的错误类型。
package inbound

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrIncompleteBuilder 表示 Build 前仍有字段未设置。
	ErrIncompleteBuilder = errors.New("inbound: incomplete builder / 构建器字段未填写完整")
	// ErrValidation 表示值对象字段校验失败。
	ErrValidation = errors.New("inbound: validation failed / 字段校验失败")
)

// IncompleteBuilderError names the fields that were never set.
type IncompleteBuilderError struct {
	Builder string
	Missing []string
}

func (e *IncompleteBuilderError) Error() string {
	return fmt.Sprintf("%s: missing %s", e.Builder, strings.Join(e.Missing, ", "))
}

func (e *IncompleteBuilderError) Unwrap() error {
	return ErrIncompleteBuilder
}

// ValidationError reports the field that broke an invariant. Err keeps the
// underlying cause when the value failed coercion.
type ValidationError struct {
	Field  string
	Reason string
	Err    error
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation error for %s: %s", e.Field, e.Reason)
}

func (e *ValidationError) Unwrap() []error {
	if e.Err != nil {
		return []error{ErrValidation, e.Err}
	}
	return []error{ErrValidation}
}

func invalid(field, format string, args ...any) error {
	return &ValidationError{Field: field, Reason: fmt.Sprintf(format, args...)}
}

// nested prefixes the field of a ValidationError with its parent path.
func nested(parent string, err error) error {
	var verr *ValidationError
	if err == nil || !errors.As(err, &verr) {
		return err
	}
	return &ValidationError{Field: parent + "." + verr.Field, Reason: verr.Reason, Err: verr.Err}
}
