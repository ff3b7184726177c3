package model

import "github.com/zeromicro/go-zero/core/stores/sqlx"

// ErrNotFound is returned when a single-row lookup matches nothing.
var ErrNotFound = sqlx.ErrNotFound
