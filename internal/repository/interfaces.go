// 文件路径: internal/repository/interfaces.go
// 模块说明: 仓储接口定义，service 层只依赖这些接口。
package repository

import "context"

// Store 暴露每个聚合根对应的仓储接口。
type Store interface {
	Inbounds() InboundRepository
	Users() UserRepository
	Settings() SettingRepository
	Tokens() TokenRepository
}

// InboundRepository 管理入站配置记录。
type InboundRepository interface {
	Create(ctx context.Context, inbound *Inbound) (*Inbound, error)
	// Update replaces every column of the row identified by inbound.ID.
	Update(ctx context.Context, inbound *Inbound) error
	Delete(ctx context.Context, id int64) error
	FindByID(ctx context.Context, id int64) (*Inbound, error)
	FindByPort(ctx context.Context, port int) (*Inbound, error)
	FindByTag(ctx context.Context, tag string) (*Inbound, error)
	List(ctx context.Context, filter InboundFilter) ([]*Inbound, error)
	Count(ctx context.Context, filter InboundFilter) (int64, error)
	// ListExpired returns enabled inbounds whose expiry_time (ms) has passed. 0 never expires.
	ListExpired(ctx context.Context, nowMillis int64) ([]*Inbound, error)
	// ListOverQuota returns enabled inbounds with total > 0 and up+down >= total.
	ListOverQuota(ctx context.Context) ([]*Inbound, error)
	SetEnable(ctx context.Context, ids []int64, enable bool) (int64, error)
	AddTraffic(ctx context.Context, id int64, upDelta, downDelta int64) error
}

// UserRepository 定义用户相关数据访问方法。
type UserRepository interface {
	Create(ctx context.Context, user *User) (*User, error)
	Save(ctx context.Context, user *User) error
	FindByID(ctx context.Context, id int64) (*User, error)
	FindByEmail(ctx context.Context, email string) (*User, error)
	List(ctx context.Context, filter UserFilter) ([]*User, error)
	Count(ctx context.Context) (int64, error)
	Delete(ctx context.Context, id int64) error
}

// SettingRepository 处理系统配置的存取。
type SettingRepository interface {
	Get(ctx context.Context, key string) (*Setting, error)
	Upsert(ctx context.Context, setting *Setting) error
	// InsertIfAbsent writes the setting only when the key is missing or blank.
	InsertIfAbsent(ctx context.Context, setting *Setting) error
	List(ctx context.Context) ([]Setting, error)
}

// TokenRepository 管理刷新令牌。
type TokenRepository interface {
	Create(ctx context.Context, token *AccessToken) (*AccessToken, error)
	FindByRefreshToken(ctx context.Context, refreshToken string) (*AccessToken, error)
	DeleteByRefreshToken(ctx context.Context, refreshToken string) error
	DeleteByUser(ctx context.Context, userID int64) error
}
