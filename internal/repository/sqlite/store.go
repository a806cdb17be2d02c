// 文件路径: internal/repository/sqlite/store.go
// 模块说明: 汇总 SQLite 仓储实现。
package sqlite

import (
	"database/sql"

	"github.com/amiwrpremium/xtls-crud/internal/repository"
)

// Store wires SQLite-backed repository implementations.
type Store struct {
	db       *sql.DB
	inbounds repository.InboundRepository
	users    repository.UserRepository
	settings repository.SettingRepository
	tokens   repository.TokenRepository
}

var _ repository.Store = (*Store)(nil)

// NewStore constructs a SQLite-backed repository store.
func NewStore(db *sql.DB) *Store {
	return &Store{
		db:       db,
		inbounds: &inboundRepo{db: db},
		users:    &userRepo{db: db},
		settings: &settingRepo{db: db},
		tokens:   &tokenRepo{db: db},
	}
}

func (s *Store) Inbounds() repository.InboundRepository {
	return s.inbounds
}

func (s *Store) Users() repository.UserRepository {
	return s.users
}

func (s *Store) Settings() repository.SettingRepository {
	return s.settings
}

func (s *Store) Tokens() repository.TokenRepository {
	return s.tokens
}
