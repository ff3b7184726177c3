package model

import (
	"context"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTickLoadStartAndFinish(t *testing.T) {
	conn, mock := newMockConn(t)
	m := NewTickLoadModel(conn)
	started := time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC)

	mock.ExpectQuery(`INSERT INTO "public"."tick_loads" \(started_at, status\) VALUES \(\$1, \$2\) RETURNING id`).
		WithArgs(started, TickLoadRunning).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(int64(7)))
	id, err := m.Start(context.Background(), started)
	require.NoError(t, err)
	assert.Equal(t, int64(7), id)

	mock.ExpectExec(`UPDATE "public"."tick_loads" SET finished_at = NOW\(\)`).
		WithArgs(int64(7), TickLoadFinished, int64(3), int64(4500), int64(2)).
		WillReturnResult(sqlmock.NewResult(0, 1))
	require.NoError(t, m.Finish(context.Background(), id, TickLoadFinished, TickLoadStats{Objects: 3, Rows: 4500, Rejected: 2}))
}

func TestTickLoadLatest(t *testing.T) {
	conn, mock := newMockConn(t)
	m := NewTickLoadModel(conn)
	cols := []string{"id", "started_at", "finished_at", "objects", "rows", "rejected", "status"}
	started := time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC)

	mock.ExpectQuery(`SELECT id, started_at, finished_at, objects, "rows", rejected, status FROM "public"."tick_loads" ORDER BY id DESC LIMIT 1`).
		WillReturnRows(sqlmock.NewRows(cols).AddRow(int64(9), started, nil, int64(0), int64(0), int64(0), TickLoadRunning))
	load, err := m.Latest(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(9), load.Id)
	assert.True(t, load.Interrupted())

	mock.ExpectQuery(`FROM "public"."tick_loads"`).
		WillReturnRows(sqlmock.NewRows(cols))
	_, err = m.Latest(context.Background())
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestTickLoadInterrupted(t *testing.T) {
	assert.True(t, (&TickLoad{Status: TickLoadRunning}).Interrupted())
	assert.False(t, (&TickLoad{Status: TickLoadFailed}).Interrupted())
	assert.False(t, (&TickLoad{Status: TickLoadPartial}).Interrupted())
}
