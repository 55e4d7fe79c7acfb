// Package notify stores user-facing notifications. Delivery is someone
// else's job; this is the outbox.
package notify

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
)

const KindAttemptForceSubmitted = "attempt_force_submitted"

type Notification struct {
	ID        string            `json:"id"`
	UserID    string            `json:"user_id"`
	Kind      string            `json:"kind"`
	Title     string            `json:"title"`
	Body      string            `json:"body"`
	Data      map[string]string `json:"data,omitempty"`
	CreatedAt time.Time         `json:"created_at"`
	ReadAt    *time.Time        `json:"read_at,omitempty"`
}

type Repository interface {
	Create(ctx context.Context, n Notification) (Notification, error)
	ListForUser(ctx context.Context, userID string, limit int) ([]Notification, error)
}

type SQLRepository struct {
	db  *sql.DB
	now func() time.Time
}

func NewSQLRepository(db *sql.DB) *SQLRepository {
	return &SQLRepository{db: db, now: time.Now}
}

func (r *SQLRepository) Create(ctx context.Context, n Notification) (Notification, error) {
	if n.UserID == "" {
		return Notification{}, fmt.Errorf("notification: user id required")
	}
	if n.ID == "" {
		n.ID = uuid.NewString()
	}
	n.CreatedAt = r.now().UTC().Truncate(time.Second)
	data, err := json.Marshal(n.Data)
	if err != nil {
		return Notification{}, err
	}
	if n.Data == nil {
		data = []byte("{}")
	}
	_, err = r.db.ExecContext(ctx, `INSERT INTO notifications (id,user_id,kind,title,body,data,created_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7)`,
		n.ID, n.UserID, n.Kind, n.Title, n.Body, string(data), n.CreatedAt.Unix())
	if err != nil {
		return Notification{}, fmt.Errorf("create notification: %w", err)
	}
	return n, nil
}

// ListForUser returns the newest notifications first.
func (r *SQLRepository) ListForUser(ctx context.Context, userID string, limit int) ([]Notification, error) {
	if limit <= 0 || limit > 200 {
		limit = 50
	}
	rows, err := r.db.QueryContext(ctx, `SELECT id,user_id,kind,title,body,data,created_at,read_at
		FROM notifications WHERE user_id=$1 ORDER BY created_at DESC, id LIMIT $2`, userID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []Notification
	for rows.Next() {
		var (
			n       Notification
			data    string
			created int64
			read    sql.NullInt64
		)
		if err := rows.Scan(&n.ID, &n.UserID, &n.Kind, &n.Title, &n.Body, &data, &created, &read); err != nil {
			return nil, err
		}
		_ = json.Unmarshal([]byte(data), &n.Data)
		n.CreatedAt = time.Unix(created, 0).UTC()
		if read.Valid {
			t := time.Unix(read.Int64, 0).UTC()
			n.ReadAt = &t
		}
		out = append(out, n)
	}
	return out, rows.Err()
}
