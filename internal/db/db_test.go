package db

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func openMem(t *testing.T) *sql.DB {
	t.Helper()
	dsn := fmt.Sprintf("file:dbtest-%d?mode=memory&cache=shared", time.Now().UnixNano())
	d, err := Open(context.Background(), DriverSQLite, dsn)
	require.NoError(t, err)
	t.Cleanup(func() { _ = d.Close() })
	return d
}

func TestOpen_SchemaIsIdempotent(t *testing.T) {
	d := openMem(t)
	require.NoError(t, ensureSchema(context.Background(), d, DriverSQLite))
}

func TestOpen_UnsupportedDriver(t *testing.T) {
	_, err := Open(context.Background(), Driver("mysql"), "")
	require.Error(t, err)
}

func TestInProgressIndexRejectsSecondActiveAttempt(t *testing.T) {
	d := openMem(t)
	ctx := context.Background()
	_, err := d.ExecContext(ctx, `INSERT INTO quizzes (id,title,definition_json,created_at,updated_at) VALUES ('q1','Quiz','{}',0,0)`)
	require.NoError(t, err)

	insert := `INSERT INTO quiz_attempts (id,quiz_id,user_id,attempt_number,status,started_at) VALUES ($1,'q1','u1',$2,$3,0)`
	_, err = d.ExecContext(ctx, insert, "a1", 1, "in_progress")
	require.NoError(t, err)

	_, err = d.ExecContext(ctx, insert, "a2", 2, "in_progress")
	require.Error(t, err)
	assert.True(t, IsUniqueViolation(err), "got %v", err)

	// submitted attempts are not constrained
	_, err = d.ExecContext(ctx, `UPDATE quiz_attempts SET status='submitted' WHERE id='a1'`)
	require.NoError(t, err)
	_, err = d.ExecContext(ctx, insert, "a2", 2, "in_progress")
	require.NoError(t, err)
}

func TestWithTx_RollsBackOnError(t *testing.T) {
	d := openMem(t)
	ctx := context.Background()
	boom := errors.New("boom")

	err := WithTx(ctx, d, nil, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, `INSERT INTO quizzes (id,title,definition_json,created_at,updated_at) VALUES ('q9','Quiz','{}',0,0)`); err != nil {
			return err
		}
		return boom
	})
	require.ErrorIs(t, err, boom)

	var n int
	require.NoError(t, d.QueryRowContext(ctx, `SELECT COUNT(*) FROM quizzes WHERE id='q9'`).Scan(&n))
	assert.Equal(t, 0, n)
}

func TestIsUniqueViolation_Nil(t *testing.T) {
	assert.False(t, IsUniqueViolation(nil))
	assert.False(t, IsUniqueViolation(errors.New("connection refused")))
}
