package derive

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"academydesk/internal/domain"
)

func TestMergeActivityNewestFirstAndStable(t *testing.T) {
	students := []domain.Student{
		{ID: "S1", Name: "Asha", CreatedAt: "2025-06-01T09:00:00Z"},
		{ID: "S2", Name: "Ravi", CreatedAt: "2025-06-03T09:00:00Z"},
		{ID: "S3", Name: "Bad", CreatedAt: "yesterday"},
	}
	payments := []domain.Payment{
		{StudentID: "S1", Month: "2025-06", Amount: 1500, PaidAt: "2025-06-03T09:00:00Z"},
		{StudentID: "S9", Month: "2025-06", Amount: 900, PaidAt: "2025-06-02"},
	}
	feed := MergeActivity(students, payments)
	require.Len(t, feed, 4)

	assert.Equal(t, ActivityStudent, feed[0].Type, "tie keeps students ahead of payments")
	assert.Contains(t, feed[0].Message, "Ravi")
	assert.Equal(t, ActivityPayment, feed[1].Type)
	assert.Contains(t, feed[1].Message, "Asha")
	assert.Contains(t, feed[2].Message, "S9")
	assert.Contains(t, feed[3].Message, "Asha")
	for i := 1; i < len(feed); i++ {
		assert.False(t, feed[i].Timestamp.After(feed[i-1].Timestamp))
	}
}
