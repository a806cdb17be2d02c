// 文件路径: internal/repository/types.go
// 模块说明: 与数据表一一对应的记录结构。
package repository

// User mirrors the users table.
type User struct {
	ID          int64
	Email       string
	Password    string
	FullName    string
	IsActive    bool
	IsSuperuser bool
	CreatedAt   int64
	UpdatedAt   int64
}

// Setting stores a key/value pair of runtime configuration.
type Setting struct {
	Key       string
	Value     string
	Category  string
	UpdatedAt int64
}

// AccessToken records an issued refresh token.
type AccessToken struct {
	ID               int64
	UserID           int64
	Token            string
	RefreshToken     string
	ExpiresAt        int64
	RefreshExpiresAt int64
	IP               string
	UserAgent        string
	CreatedAt        int64
}

// Inbound mirrors the inbounds table. Settings, StreamSettings and Sniffing
// hold JSON text.
type Inbound struct {
	ID             int64
	UserID         int64
	Up             int64
	Down           int64
	Total          int64
	Remark         string
	Enable         bool
	ExpiryTime     int64
	Listen         string
	Port           int
	Protocol       string
	Settings       string
	StreamSettings string
	Tag            string
	Sniffing       string
	CreatedAt      int64
	UpdatedAt      int64
}
