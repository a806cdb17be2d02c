// 文件路径: internal/repository/errors.go
// 模块说明: 仓储层哨兵错误，上层通过 errors.Is 判断。
package repository

import "errors"

var (
	// ErrNotFound 表示查询未返回数据。
	ErrNotFound = errors.New("not found / 未找到数据")
	// ErrConflict 表示违反唯一约束（端口、标签、邮箱等）。
	ErrConflict = errors.New("conflict / 数据冲突")
	// ErrOverflow 表示累加后超出 int64 范围。
	ErrOverflow = errors.New("overflow / 数值溢出")
)
