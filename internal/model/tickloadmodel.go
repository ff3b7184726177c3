package model

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/zeromicro/go-zero/core/stores/sqlx"
)

// Tick load statuses.
const (
	TickLoadRunning  = "running"
	TickLoadFinished = "finished"
	TickLoadFailed   = "failed"
	// some objects were skipped; the live table holds an incomplete set
	TickLoadPartial = "partial"
)

var _ TickLoadModel = (*defaultTickLoadModel)(nil)

type (
	// TickLoadModel records every full reload attempt. A row left in running
	// state with no finished_at marks an interrupted reload.
	TickLoadModel interface {
		Start(ctx context.Context, startedAt time.Time) (int64, error)
		Finish(ctx context.Context, id int64, status string, stats TickLoadStats) error
		Latest(ctx context.Context) (*TickLoad, error)
	}

	defaultTickLoadModel struct {
		conn  sqlx.SqlConn
		table string
	}

	TickLoadStats struct {
		Objects  int64
		Rows     int64
		Rejected int64
	}

	TickLoad struct {
		Id         int64        `db:"id"`
		StartedAt  time.Time    `db:"started_at"`
		FinishedAt sql.NullTime `db:"finished_at"`
		Objects    int64        `db:"objects"`
		Rows       int64        `db:"rows"`
		Rejected   int64        `db:"rejected"`
		Status     string       `db:"status"`
	}
)

func NewTickLoadModel(conn sqlx.SqlConn) TickLoadModel {
	return &defaultTickLoadModel{conn: conn, table: `"public"."tick_loads"`}
}

func (m *defaultTickLoadModel) Start(ctx context.Context, startedAt time.Time) (int64, error) {
	query := fmt.Sprintf(`INSERT INTO %s (started_at, status) VALUES ($1, $2) RETURNING id`, m.table)
	var id int64
	if err := m.conn.QueryRowCtx(ctx, &id, query, startedAt.UTC(), TickLoadRunning); err != nil {
		return 0, fmt.Errorf("tickload.Start: %w", err)
	}
	return id, nil
}

func (m *defaultTickLoadModel) Finish(ctx context.Context, id int64, status string, stats TickLoadStats) error {
	query := fmt.Sprintf(`UPDATE %s SET finished_at = NOW(), status = $2, objects = $3, "rows" = $4, rejected = $5 WHERE id = $1`, m.table)
	if _, err := m.conn.ExecCtx(ctx, query, id, status, stats.Objects, stats.Rows, stats.Rejected); err != nil {
		return fmt.Errorf("tickload.Finish: %w", err)
	}
	return nil
}

func (m *defaultTickLoadModel) Latest(ctx context.Context) (*TickLoad, error) {
	query := fmt.Sprintf(`SELECT id, started_at, finished_at, objects, "rows", rejected, status FROM %s ORDER BY id DESC LIMIT 1`, m.table)
	var resp TickLoad
	switch err := m.conn.QueryRowCtx(ctx, &resp, query); err {
	case nil:
		return &resp, nil
	case sqlx.ErrNotFound:
		return nil, ErrNotFound
	default:
		return nil, err
	}
}

// Interrupted reports whether the attempt never reached Finish.
func (t *TickLoad) Interrupted() bool {
	return t.Status == TickLoadRunning && !t.FinishedAt.Valid
}
