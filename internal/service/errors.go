// 文件路径: internal/service/errors.go
// 模块说明: service 层统一的错误定义，handler 根据这些错误映射 HTTP 状态码。
package service

import (
	"errors"
	"fmt"
)

var (
	// ErrNotFound indicates requested resource does not exist.
	ErrNotFound = errors.New("service: not found / 未找到资源")
	// ErrInvalidCredentials indicates provided credentials are wrong.
	ErrInvalidCredentials = errors.New("service: invalid credentials / 凭证无效")
	// ErrRateLimited indicates caller exceeded allowed attempts.
	ErrRateLimited = errors.New("service: rate limited / 请求过于频繁")
	// ErrAccountDisabled indicates the account is inactive.
	ErrAccountDisabled = errors.New("service: account disabled / 账号已禁用")
	// ErrUnauthorized indicates missing or invalid auth tokens.
	ErrUnauthorized = errors.New("service: unauthorized / 未授权")
	// ErrForbidden indicates the principal lacks superuser rights.
	ErrForbidden = errors.New("service: forbidden / 权限不足")
	// ErrInvalidRefreshToken indicates refresh token problems.
	ErrInvalidRefreshToken = errors.New("service: invalid refresh token / 刷新令牌无效")
	// ErrInvalidEmail indicates malformed email inputs.
	ErrInvalidEmail = errors.New("service: invalid email / 邮箱无效")
	// ErrInvalidPassword indicates password does not meet requirements.
	ErrInvalidPassword = errors.New("service: invalid password / 密码无效")
	// ErrEmailExists indicates email already registered.
	ErrEmailExists = errors.New("service: email already exists / 邮箱已存在")
	// ErrConflict is matched by every ConflictError.
	ErrConflict = errors.New("service: conflict / 资源冲突")
)

// ConflictError reports which unique inbound column collided.
type ConflictError struct {
	Field string
	Value any
}

func (e *ConflictError) Error() string {
	return fmt.Sprintf("inbound %s %v already in use / 入站%s已被占用", e.Field, e.Value, e.Field)
}

func (e *ConflictError) Is(target error) bool {
	return target == ErrConflict
}
