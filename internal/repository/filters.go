// 文件路径: internal/repository/filters.go
// 模块说明: 列表查询的过滤条件。
package repository

// DefaultListLimit 为未指定 limit 时的默认条数。
const DefaultListLimit = 100

// InboundFilter constrains inbound listings. Nil pointers are ignored.
type InboundFilter struct {
	UserID   *int64
	Enable   *bool
	Port     *int
	Protocol string
	Tag      string
	Remark   string // substring match
	Skip     int
	Limit    int
}

// UserFilter constrains user listings.
type UserFilter struct {
	Keyword string
	Skip    int
	Limit   int
}

// NormalizePage clamps skip/limit to sane values.
func NormalizePage(skip, limit int) (int, int) {
	if skip < 0 {
		skip = 0
	}
	if limit <= 0 {
		limit = DefaultListLimit
	}
	return skip, limit
}
