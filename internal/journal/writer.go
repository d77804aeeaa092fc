// Package journal keeps an append-only local log of settled dispatches.
package journal

import (
	"context"
	"database/sql"
	"time"

	"go.uber.org/zap"

	"academydesk/internal/dispatch"
)

type Entry struct {
	ID         int64  `json:"id"`
	TS         string `json:"ts"`
	RequestID  string `json:"request_id"`
	Method     string `json:"method"`
	Path       string `json:"path"`
	Status     int    `json:"status"`
	Outcome    string `json:"outcome"`
	Message    string `json:"message,omitempty"`
	DurationMS int64  `json:"duration_ms"`
}

type Writer struct {
	DB     *sql.DB
	Logger *zap.Logger
}

func (w Writer) Append(ctx context.Context, rec dispatch.Record) error {
	ts := rec.At
	if ts.IsZero() {
		ts = time.Now()
	}
	_, err := w.DB.ExecContext(ctx, `INSERT INTO journal(ts,request_id,method,path,status,outcome,message,duration_ms) VALUES (?,?,?,?,?,?,?,?)`,
		ts.UTC().Format(time.RFC3339Nano), rec.RequestID, rec.Method, rec.Path, rec.Status, rec.Outcome, nullable(rec.Message), rec.Duration.Milliseconds())
	return err
}

// Observe is shaped for dispatch.Config.Observer. Journal failures never
// affect the dispatch outcome; they are only logged.
func (w Writer) Observe(rec dispatch.Record) {
	if err := w.Append(context.Background(), rec); err != nil && w.Logger != nil {
		w.Logger.Warn("journal append failed", zap.String("request_id", rec.RequestID), zap.Error(err))
	}
}

// Tail returns the latest n entries, newest first, optionally only failures.
func (w Writer) Tail(ctx context.Context, n int, failuresOnly bool) ([]Entry, error) {
	if n <= 0 {
		n = 20
	}
	query := `SELECT id,ts,request_id,method,path,status,outcome,COALESCE(message,''),duration_ms FROM journal`
	if failuresOnly {
		query += ` WHERE outcome <> 'success'`
	}
	query += ` ORDER BY id DESC LIMIT ?`
	rows, err := w.DB.QueryContext(ctx, query, n)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []Entry
	for rows.Next() {
		var e Entry
		if err := rows.Scan(&e.ID, &e.TS, &e.RequestID, &e.Method, &e.Path, &e.Status, &e.Outcome, &e.Message, &e.DurationMS); err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

func nullable(v string) any {
	if v == "" {
		return nil
	}
	return v
}
