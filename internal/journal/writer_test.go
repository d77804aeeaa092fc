package journal_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"academydesk/internal/db"
	"academydesk/internal/dispatch"
	"academydesk/internal/journal"
	"academydesk/internal/migrate"
)

func TestAppendAndTail(t *testing.T) {
	conn, err := db.Open(db.Config{Workspace: t.TempDir()})
	require.NoError(t, err)
	defer conn.Close()
	require.NoError(t, migrate.Migrate(conn))

	w := journal.Writer{DB: conn}
	at := time.Date(2025, 6, 1, 10, 0, 0, 0, time.UTC)
	w.Observe(dispatch.Record{RequestID: "r1", Method: "GET", Path: "/api/data/students", Status: 200, Outcome: "success", Duration: 12 * time.Millisecond, At: at})
	w.Observe(dispatch.Record{RequestID: "r2", Method: "GET", Path: "/api/data/payments", Status: 500, Outcome: "server", Message: "boom", At: at.Add(time.Second)})

	ctx := context.Background()
	all, err := w.Tail(ctx, 10, false)
	require.NoError(t, err)
	require.Len(t, all, 2)
	assert.Equal(t, "r2", all[0].RequestID)
	assert.Equal(t, "boom", all[0].Message)
	assert.EqualValues(t, 12, all[1].DurationMS)

	failures, err := w.Tail(ctx, 10, true)
	require.NoError(t, err)
	require.Len(t, failures, 1)
	assert.Equal(t, "server", failures[0].Outcome)
}
