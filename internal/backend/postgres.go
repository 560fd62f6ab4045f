package backend

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"sort"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"enclaveai-backend/internal/config"
)

// identRe constrains table and column names to plain identifiers; filter
// values travel as bind parameters, identifiers cannot, so they are
// validated instead.
var identRe = regexp.MustCompile(`^[a-zA-Z_][a-zA-Z0-9_]*$`)

// Client is the pgx-backed implementation of Backend
type Client struct {
	pool *pgxpool.Pool
	auth Auth
}

// Connect establishes the backend pool with bounded retry and backoff.
// The hosted database may come up after us; we wait up to maxWait before
// giving up.
func Connect(ctx context.Context, cfg config.BackendConfig, maxConns int, maxWait time.Duration) (*Client, error) {
	poolCfg, err := pgxpool.ParseConfig(cfg.DatabaseURL)
	if err != nil {
		return nil, fmt.Errorf("backend: parse database url: %w", err)
	}
	poolCfg.MaxConns = int32(maxConns)

	deadline := time.Now().Add(maxWait)
	backoff := 2 * time.Second
	var pool *pgxpool.Pool
	for {
		connectCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
		pool, err = pgxpool.NewWithConfig(connectCtx, poolCfg)
		if err == nil {
			pingCtx, pingCancel := context.WithTimeout(ctx, 5*time.Second)
			err = pool.Ping(pingCtx)
			pingCancel()
			if err != nil {
				pool.Close()
			}
		}
		cancel()
		if err == nil {
			break
		}
		if time.Now().After(deadline) {
			return nil, fmt.Errorf("backend: connect (gave up after %v): %w", maxWait, err)
		}
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(backoff):
		}
		if backoff < 30*time.Second {
			backoff *= 2
		}
	}

	auth, err := NewAuth(ctx, cfg)
	if err != nil {
		pool.Close()
		return nil, err
	}
	return &Client{pool: pool, auth: auth}, nil
}

func (c *Client) Auth() Auth { return c.auth }

func (c *Client) Close() { c.pool.Close() }

func (c *Client) Table(name string) Query {
	q := &pgQuery{pool: c.pool, table: name}
	if !identRe.MatchString(name) {
		q.err = fmt.Errorf("%w: table %q", ErrBadIdentifier, name)
	}
	return q
}

type eqFilter struct {
	column string
	value  any
}

type pgQuery struct {
	pool    *pgxpool.Pool
	table   string
	filters []eqFilter
	limit   int
	err     error
}

func (q *pgQuery) Eq(column string, value any) Query {
	if q.err == nil && !identRe.MatchString(column) {
		q.err = fmt.Errorf("%w: column %q", ErrBadIdentifier, column)
	}
	q.filters = append(q.filters, eqFilter{column: column, value: value})
	return q
}

func (q *pgQuery) Limit(n int) Query {
	q.limit = n
	return q
}

// whereClause renders the ANDed equality filters starting at placeholder
// index start+1, returning the SQL fragment and its arguments.
func (q *pgQuery) whereClause(start int) (string, []any) {
	if len(q.filters) == 0 {
		return "", nil
	}
	var sb strings.Builder
	args := make([]any, 0, len(q.filters))
	sb.WriteString(" WHERE ")
	for i, f := range q.filters {
		if i > 0 {
			sb.WriteString(" AND ")
		}
		fmt.Fprintf(&sb, "%q = $%d", f.column, start+i+1)
		args = append(args, f.value)
	}
	return sb.String(), args
}

func (q *pgQuery) Select(ctx context.Context) ([]map[string]any, error) {
	if q.err != nil {
		return nil, q.err
	}
	where, args := q.whereClause(0)
	sql := fmt.Sprintf("SELECT * FROM %q%s", q.table, where)
	if q.limit > 0 {
		sql += fmt.Sprintf(" LIMIT %d", q.limit)
	}
	rows, err := q.pool.Query(ctx, sql, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectRows(rows)
}

func (q *pgQuery) Single(ctx context.Context) (map[string]any, error) {
	if q.err != nil {
		return nil, q.err
	}
	q.limit = 1
	results, err := q.Select(ctx)
	if err != nil {
		return nil, err
	}
	if len(results) == 0 {
		return nil, ErrNoRows
	}
	return results[0], nil
}

func (q *pgQuery) Insert(ctx context.Context, row map[string]any) (map[string]any, error) {
	if q.err != nil {
		return nil, q.err
	}
	if len(row) == 0 {
		return nil, fmt.Errorf("backend: insert into %q with no values", q.table)
	}
	columns := make([]string, 0, len(row))
	for col := range row {
		if !identRe.MatchString(col) {
			return nil, fmt.Errorf("%w: column %q", ErrBadIdentifier, col)
		}
		columns = append(columns, col)
	}
	sort.Strings(columns)

	var cols, holders strings.Builder
	args := make([]any, 0, len(columns))
	for i, col := range columns {
		if i > 0 {
			cols.WriteString(", ")
			holders.WriteString(", ")
		}
		fmt.Fprintf(&cols, "%q", col)
		fmt.Fprintf(&holders, "$%d", i+1)
		args = append(args, row[col])
	}
	sql := fmt.Sprintf("INSERT INTO %q (%s) VALUES (%s) RETURNING *",
		q.table, cols.String(), holders.String())

	rows, err := q.pool.Query(ctx, sql, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	results, err := collectRows(rows)
	if err != nil {
		return nil, err
	}
	if len(results) == 0 {
		return nil, ErrNoRows
	}
	return results[0], nil
}

func (q *pgQuery) Update(ctx context.Context, values map[string]any) (int64, error) {
	if q.err != nil {
		return 0, q.err
	}
	if len(values) == 0 {
		return 0, fmt.Errorf("backend: update %q with no values", q.table)
	}
	columns := make([]string, 0, len(values))
	for col := range values {
		if !identRe.MatchString(col) {
			return 0, fmt.Errorf("%w: column %q", ErrBadIdentifier, col)
		}
		columns = append(columns, col)
	}
	sort.Strings(columns)

	var set strings.Builder
	args := make([]any, 0, len(columns)+len(q.filters))
	for i, col := range columns {
		if i > 0 {
			set.WriteString(", ")
		}
		fmt.Fprintf(&set, "%q = $%d", col, i+1)
		args = append(args, values[col])
	}
	where, whereArgs := q.whereClause(len(columns))
	args = append(args, whereArgs...)

	sql := fmt.Sprintf("UPDATE %q SET %s%s", q.table, set.String(), where)
	tag, err := q.pool.Exec(ctx, sql, args...)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}

func (q *pgQuery) Delete(ctx context.Context) (int64, error) {
	if q.err != nil {
		return 0, q.err
	}
	where, args := q.whereClause(0)
	sql := fmt.Sprintf("DELETE FROM %q%s", q.table, where)
	tag, err := q.pool.Exec(ctx, sql, args...)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}

// collectRows materializes a pgx result into column-keyed maps
func collectRows(rows pgx.Rows) ([]map[string]any, error) {
	fields := rows.FieldDescriptions()
	var results []map[string]any
	for rows.Next() {
		values, err := rows.Values()
		if err != nil {
			return nil, err
		}
		row := make(map[string]any, len(fields))
		for i, fd := range fields {
			row[string(fd.Name)] = values[i]
		}
		results = append(results, row)
	}
	if err := rows.Err(); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNoRows
		}
		return nil, err
	}
	return results, nil
}
