package tree_type

import (
	"context"
	"time"
)

// Entry is one committed structural operation.
type Entry struct {
	ID     string    `json:"id"`
	Table  string    `json:"table"`
	Op     string    `json:"op"`
	PK     int64     `json:"pk"`
	Ref    int64     `json:"ref,omitempty"`
	Detail string    `json:"detail,omitempty"`
	UserID int64     `json:"user_id,omitempty"`
	At     time.Time `json:"at"`
}

// Journal records committed structural operations.
type Journal interface {
	Record(ctx context.Context, e Entry) error
}
