// 文件路径: internal/repository/sqlite/user.go
// 模块说明: users 表的 SQLite 实现。
package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/amiwrpremium/xtls-crud/internal/repository"
)

// userRepo 负责 users 表的 SQLite 实现。
type userRepo struct {
	db *sql.DB
}

const userColumns = `id, email, password, full_name, is_active, is_superuser, created_at, updated_at`

func userSelectBy(column string) string {
	return `SELECT ` + userColumns + ` FROM users WHERE ` + column + ` = ? LIMIT 1`
}

func scanUser(row rowScanner) (*repository.User, error) {
	var (
		u         repository.User
		active    int
		superuser int
	)
	if err := row.Scan(&u.ID, &u.Email, &u.Password, &u.FullName, &active, &superuser, &u.CreatedAt, &u.UpdatedAt); err != nil {
		return nil, notFound(err)
	}
	u.IsActive = active == 1
	u.IsSuperuser = superuser == 1
	return &u, nil
}

func (r *userRepo) FindByID(ctx context.Context, id int64) (*repository.User, error) {
	return scanUser(r.db.QueryRowContext(ctx, userSelectBy("id"), id))
}

func (r *userRepo) FindByEmail(ctx context.Context, email string) (*repository.User, error) {
	// 邮箱按小写存储。
	return scanUser(r.db.QueryRowContext(ctx, userSelectBy("email"), strings.ToLower(strings.TrimSpace(email))))
}

func (r *userRepo) Create(ctx context.Context, user *repository.User) (*repository.User, error) {
	if user == nil {
		return nil, fmt.Errorf("user 数据为空 / user is nil")
	}
	now := time.Now().Unix()
	if user.CreatedAt == 0 {
		user.CreatedAt = now
	}
	user.UpdatedAt = now
	user.Email = strings.ToLower(strings.TrimSpace(user.Email))

	const stmt = `INSERT INTO users(email, password, full_name, is_active, is_superuser, created_at, updated_at)
	              VALUES(?, ?, ?, ?, ?, ?, ?)`
	res, err := r.db.ExecContext(ctx, stmt,
		user.Email,
		user.Password,
		user.FullName,
		boolToInt(user.IsActive),
		boolToInt(user.IsSuperuser),
		user.CreatedAt,
		user.UpdatedAt,
	)
	if err != nil {
		return nil, mapWriteError("create user", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("user last insert id: %w", err)
	}
	user.ID = id
	return user, nil
}

func (r *userRepo) Save(ctx context.Context, user *repository.User) error {
	if user == nil || user.ID <= 0 {
		return fmt.Errorf("save user: id is required")
	}
	user.UpdatedAt = time.Now().Unix()
	user.Email = strings.ToLower(strings.TrimSpace(user.Email))
	const stmt = `UPDATE users SET email = ?, password = ?, full_name = ?, is_active = ?, is_superuser = ?, updated_at = ?
	              WHERE id = ?`
	res, err := r.db.ExecContext(ctx, stmt,
		user.Email,
		user.Password,
		user.FullName,
		boolToInt(user.IsActive),
		boolToInt(user.IsSuperuser),
		user.UpdatedAt,
		user.ID,
	)
	if err != nil {
		return mapWriteError("save user", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return repository.ErrNotFound
	}
	return nil
}

func (r *userRepo) List(ctx context.Context, filter repository.UserFilter) ([]*repository.User, error) {
	skip, limit := repository.NormalizePage(filter.Skip, filter.Limit)
	query := `SELECT ` + userColumns + ` FROM users`
	var args []any
	if kw := strings.TrimSpace(filter.Keyword); kw != "" {
		query += ` WHERE email LIKE ? ESCAPE '\' OR full_name LIKE ? ESCAPE '\'`
		like := "%" + escapeLike(kw) + "%"
		args = append(args, like, like)
	}
	query += ` ORDER BY id ASC LIMIT ? OFFSET ?`
	args = append(args, limit, skip)

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var users []*repository.User
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, err
		}
		users = append(users, u)
	}
	return users, rows.Err()
}

func (r *userRepo) Count(ctx context.Context) (int64, error) {
	var n int64
	err := r.db.QueryRowContext(ctx, `SELECT COUNT(1) FROM users`).Scan(&n)
	return n, err
}

func (r *userRepo) Delete(ctx context.Context, id int64) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM users WHERE id = ?`, id)
	if err != nil {
		return err
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return repository.ErrNotFound
	}
	return nil
}
