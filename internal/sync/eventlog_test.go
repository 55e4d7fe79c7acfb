package syncx

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mind-engage/mindengage-quiz/internal/db"
)

func TestEventRepo_AppendSince(t *testing.T) {
	ctx := context.Background()
	d, err := db.Open(ctx, db.DriverSQLite, fmt.Sprintf("file:events-%d?mode=memory&cache=shared", time.Now().UnixNano()))
	require.NoError(t, err)
	t.Cleanup(func() { _ = d.Close() })

	r := NewEventRepo(d, "")
	require.NoError(t, r.Append(ctx, AttemptStarted, "a1", map[string]any{"quiz_id": "q1"}))
	require.NoError(t, r.Append(ctx, AttemptSubmitted, "a1", map[string]any{"total_score": 3}))

	all, err := r.Since(ctx, 0, 0)
	require.NoError(t, err)
	require.Len(t, all, 2)
	assert.Equal(t, AttemptStarted, all[0].Type)
	assert.Equal(t, "local", all[0].SiteID)
	assert.JSONEq(t, `{"quiz_id":"q1"}`, all[0].DataJSON)

	rest, err := r.Since(ctx, all[0].Seq, 10)
	require.NoError(t, err)
	require.Len(t, rest, 1)
	assert.Equal(t, AttemptSubmitted, rest[0].Type)
}

func TestEventRepo_UnencodableData(t *testing.T) {
	r := &EventRepo{}
	assert.Error(t, r.Append(context.Background(), AttemptStarted, "a1", func() {}))
}
