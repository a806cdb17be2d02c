// 文件路径: internal/repository/sqlite/inbound.go
// 模块说明: inbounds 表的 SQLite 实现；端口与标签唯一。
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/amiwrpremium/xtls-crud/internal/repository"
)

type inboundRepo struct {
	db *sql.DB
}

const inboundColumns = `id, user_id, up, down, total, remark, enable, expiry_time, listen, port, protocol,
	settings, stream_settings, tag, sniffing, created_at, updated_at`

func scanInbound(row rowScanner) (*repository.Inbound, error) {
	var (
		in     repository.Inbound
		enable int
	)
	if err := row.Scan(
		&in.ID,
		&in.UserID,
		&in.Up,
		&in.Down,
		&in.Total,
		&in.Remark,
		&enable,
		&in.ExpiryTime,
		&in.Listen,
		&in.Port,
		&in.Protocol,
		&in.Settings,
		&in.StreamSettings,
		&in.Tag,
		&in.Sniffing,
		&in.CreatedAt,
		&in.UpdatedAt,
	); err != nil {
		return nil, notFound(err)
	}
	in.Enable = enable == 1
	return &in, nil
}

func (r *inboundRepo) queryList(ctx context.Context, query string, args ...any) ([]*repository.Inbound, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var list []*repository.Inbound
	for rows.Next() {
		in, err := scanInbound(rows)
		if err != nil {
			return nil, err
		}
		list = append(list, in)
	}
	return list, rows.Err()
}

func (r *inboundRepo) Create(ctx context.Context, in *repository.Inbound) (*repository.Inbound, error) {
	if in == nil {
		return nil, fmt.Errorf("inbound 数据为空 / inbound is nil")
	}
	now := time.Now().Unix()
	if in.CreatedAt == 0 {
		in.CreatedAt = now
	}
	in.UpdatedAt = now

	const stmt = `INSERT INTO inbounds(user_id, up, down, total, remark, enable, expiry_time, listen, port, protocol,
		settings, stream_settings, tag, sniffing, created_at, updated_at)
		VALUES(?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`
	res, err := r.db.ExecContext(ctx, stmt,
		in.UserID,
		in.Up,
		in.Down,
		in.Total,
		in.Remark,
		boolToInt(in.Enable),
		in.ExpiryTime,
		in.Listen,
		in.Port,
		in.Protocol,
		in.Settings,
		in.StreamSettings,
		in.Tag,
		in.Sniffing,
		in.CreatedAt,
		in.UpdatedAt,
	)
	if err != nil {
		return nil, mapWriteError("create inbound", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("inbound last insert id: %w", err)
	}
	in.ID = id
	return in, nil
}

func (r *inboundRepo) Update(ctx context.Context, in *repository.Inbound) error {
	if in == nil || in.ID <= 0 {
		return fmt.Errorf("update inbound: id is required")
	}
	in.UpdatedAt = time.Now().Unix()
	const stmt = `UPDATE inbounds SET user_id = ?, up = ?, down = ?, total = ?, remark = ?, enable = ?, expiry_time = ?,
		listen = ?, port = ?, protocol = ?, settings = ?, stream_settings = ?, tag = ?, sniffing = ?, updated_at = ?
		WHERE id = ?`
	res, err := r.db.ExecContext(ctx, stmt,
		in.UserID,
		in.Up,
		in.Down,
		in.Total,
		in.Remark,
		boolToInt(in.Enable),
		in.ExpiryTime,
		in.Listen,
		in.Port,
		in.Protocol,
		in.Settings,
		in.StreamSettings,
		in.Tag,
		in.Sniffing,
		in.UpdatedAt,
		in.ID,
	)
	if err != nil {
		return mapWriteError("update inbound", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return repository.ErrNotFound
	}
	return nil
}

func (r *inboundRepo) Delete(ctx context.Context, id int64) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM inbounds WHERE id = ?`, id)
	if err != nil {
		return err
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return repository.ErrNotFound
	}
	return nil
}

func (r *inboundRepo) FindByID(ctx context.Context, id int64) (*repository.Inbound, error) {
	return scanInbound(r.db.QueryRowContext(ctx, `SELECT `+inboundColumns+` FROM inbounds WHERE id = ?`, id))
}

func (r *inboundRepo) FindByPort(ctx context.Context, port int) (*repository.Inbound, error) {
	return scanInbound(r.db.QueryRowContext(ctx, `SELECT `+inboundColumns+` FROM inbounds WHERE port = ?`, port))
}

func (r *inboundRepo) FindByTag(ctx context.Context, tag string) (*repository.Inbound, error) {
	return scanInbound(r.db.QueryRowContext(ctx, `SELECT `+inboundColumns+` FROM inbounds WHERE tag = ?`, tag))
}

// inboundWhere 根据过滤条件拼接 WHERE 子句。
func inboundWhere(filter repository.InboundFilter) (string, []any) {
	var (
		conds []string
		args  []any
	)
	if filter.UserID != nil {
		conds = append(conds, "user_id = ?")
		args = append(args, *filter.UserID)
	}
	if filter.Enable != nil {
		conds = append(conds, "enable = ?")
		args = append(args, boolToInt(*filter.Enable))
	}
	if filter.Port != nil {
		conds = append(conds, "port = ?")
		args = append(args, *filter.Port)
	}
	if p := strings.TrimSpace(filter.Protocol); p != "" {
		conds = append(conds, "protocol = ?")
		args = append(args, strings.ToLower(p))
	}
	if t := strings.TrimSpace(filter.Tag); t != "" {
		conds = append(conds, "tag = ?")
		args = append(args, t)
	}
	if rm := strings.TrimSpace(filter.Remark); rm != "" {
		conds = append(conds, `remark LIKE ? ESCAPE '\'`)
		args = append(args, "%"+escapeLike(rm)+"%")
	}
	if len(conds) == 0 {
		return "", nil
	}
	return " WHERE " + strings.Join(conds, " AND "), args
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

// escapeLike 让用户输入中的 % 和 _ 按字面匹配。
func escapeLike(s string) string {
	return likeEscaper.Replace(s)
}

func (r *inboundRepo) List(ctx context.Context, filter repository.InboundFilter) ([]*repository.Inbound, error) {
	skip, limit := repository.NormalizePage(filter.Skip, filter.Limit)
	where, args := inboundWhere(filter)
	query := `SELECT ` + inboundColumns + ` FROM inbounds` + where + ` ORDER BY id DESC LIMIT ? OFFSET ?`
	return r.queryList(ctx, query, append(args, limit, skip)...)
}

func (r *inboundRepo) Count(ctx context.Context, filter repository.InboundFilter) (int64, error) {
	where, args := inboundWhere(filter)
	var n int64
	err := r.db.QueryRowContext(ctx, `SELECT COUNT(1) FROM inbounds`+where, args...).Scan(&n)
	return n, err
}

func (r *inboundRepo) ListExpired(ctx context.Context, nowMillis int64) ([]*repository.Inbound, error) {
	const query = `SELECT ` + inboundColumns + ` FROM inbounds
		WHERE enable = 1 AND expiry_time > 0 AND expiry_time <= ? ORDER BY id`
	return r.queryList(ctx, query, nowMillis)
}

func (r *inboundRepo) ListOverQuota(ctx context.Context) ([]*repository.Inbound, error) {
	const query = `SELECT ` + inboundColumns + ` FROM inbounds
		WHERE enable = 1 AND total > 0 AND up + down >= total ORDER BY id`
	return r.queryList(ctx, query)
}

func (r *inboundRepo) SetEnable(ctx context.Context, ids []int64, enable bool) (int64, error) {
	if len(ids) == 0 {
		return 0, nil
	}
	args := make([]any, 0, len(ids)+2)
	args = append(args, boolToInt(enable), time.Now().Unix())
	for _, id := range ids {
		args = append(args, id)
	}
	stmt := `UPDATE inbounds SET enable = ?, updated_at = ? WHERE id IN (` + placeholders(len(ids)) + `)`
	res, err := r.db.ExecContext(ctx, stmt, args...)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

func (r *inboundRepo) AddTraffic(ctx context.Context, id int64, upDelta, downDelta int64) error {
	if upDelta < 0 || downDelta < 0 {
		return fmt.Errorf("add traffic: deltas must be >= 0")
	}
	// 溢出判断放在 WHERE 中，sqlite 整数溢出会转成 REAL。
	res, err := r.db.ExecContext(ctx,
		`UPDATE inbounds SET up = up + ?, down = down + ?, updated_at = ?
		 WHERE id = ? AND up <= ? AND down <= ?`,
		upDelta, downDelta, time.Now().Unix(), id,
		math.MaxInt64-upDelta, math.MaxInt64-downDelta)
	if err != nil {
		return err
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		var one int
		err := r.db.QueryRowContext(ctx, `SELECT 1 FROM inbounds WHERE id = ?`, id).Scan(&one)
		if errors.Is(err, sql.ErrNoRows) {
			return repository.ErrNotFound
		}
		if err != nil {
			return err
		}
		return repository.ErrOverflow
	}
	return nil
}
