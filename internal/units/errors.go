// 文件路径: internal/units/errors.go
// 模块说明: 单位解析与换算相关的错误定义。
package units

import (
	"errors"
	"fmt"
)

var (
	// ErrEmptyInput 表示待解析字符串为空。
	ErrEmptyInput = errors.New("units: empty input / 输入为空")
	// ErrMissingQuantity 表示字符串中没有数字。
	ErrMissingQuantity = errors.New("units: missing quantity / 缺少数值")
	// ErrMissingUnit 表示字符串中没有单位。
	ErrMissingUnit = errors.New("units: missing unit / 缺少单位")
	// ErrUnknownUnit 表示单位既不是已注册的名称也不是符号。
	ErrUnknownUnit = errors.New("units: unknown unit / 未知单位")
	// ErrOverflow 表示换算结果超出 int64 范围。
	ErrOverflow = errors.New("units: value out of range / 数值超出范围")
	// ErrNegativeMagnitude 表示数量出现负值。
	ErrNegativeMagnitude = errors.New("units: negative magnitude / 数量不能为负")
	// ErrIncompatibleQuantity 表示与不兼容的类型进行比较或运算。
	ErrIncompatibleQuantity = errors.New("units: incompatible operand / 操作数类型不兼容")
	// ErrUnsupportedSizeType 表示无法转换为字节数的输入类型。
	ErrUnsupportedSizeType = errors.New("units: unsupported size type / 不支持的容量类型")
	// ErrUnsupportedDurationType 表示无法转换为过期时间的输入类型。
	ErrUnsupportedDurationType = errors.New("units: unsupported duration type / 不支持的时长类型")
)

// ParseError carries the offending input and token of a failed parse.
type ParseError struct {
	Kind  Kind
	Input string
	Token string
	Err   error
}

func (e *ParseError) Error() string {
	if e.Token != "" {
		return fmt.Sprintf("parse %s %q: %v (%q)", e.Kind, e.Input, e.Err, e.Token)
	}
	return fmt.Sprintf("parse %s %q: %v", e.Kind, e.Input, e.Err)
}

func (e *ParseError) Unwrap() error {
	return e.Err
}
