package derive

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"academydesk/internal/domain"
)

const (
	ActivityStudent = "student"
	ActivityPayment = "payment"
)

type Activity struct {
	Type      string    `json:"type"`
	Message   string    `json:"message"`
	Timestamp time.Time `json:"timestamp"`
}

var timestampLayouts = []string{time.RFC3339Nano, "2006-01-02 15:04:05", "2006-01-02T15:04:05", "2006-01-02"}

// ParseTimestamp accepts the timestamp shapes the API has been seen to emit.
func ParseTimestamp(raw string) (time.Time, bool) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return time.Time{}, false
	}
	for _, layout := range timestampLayouts {
		if t, err := time.Parse(layout, raw); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

// MergeActivity folds enrolments and payments into one feed, newest first.
// Equal timestamps keep input order, students before payments.
func MergeActivity(students []domain.Student, payments []domain.Payment) []Activity {
	names := make(map[string]string, len(students))
	out := make([]Activity, 0, len(students)+len(payments))
	for _, s := range students {
		names[s.ID] = s.Name
		ts, ok := ParseTimestamp(s.CreatedAt)
		if !ok {
			continue
		}
		out = append(out, Activity{Type: ActivityStudent, Message: fmt.Sprintf("New student %s enrolled", s.Name), Timestamp: ts})
	}
	for _, p := range payments {
		ts, ok := ParseTimestamp(p.PaidAt)
		if !ok {
			continue
		}
		who := names[p.StudentID]
		if who == "" {
			who = p.StudentID
		}
		out = append(out, Activity{Type: ActivityPayment, Message: fmt.Sprintf("Payment of %.2f received from %s for %s", p.Amount, who, p.Month), Timestamp: ts})
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Timestamp.After(out[j].Timestamp) })
	return out
}
