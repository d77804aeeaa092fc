package validate_test

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"academydesk/internal/domain"
	"academydesk/internal/validate"
)

func fieldNames(t *testing.T, err error) []string {
	t.Helper()
	verr, ok := validate.As(err)
	require.True(t, ok, "want *validate.Error, got %v", err)
	var names []string
	for _, f := range verr.Fields {
		names = append(names, f.Field)
	}
	return names
}

func TestStudentForm(t *testing.T) {
	v := validate.New()
	require.NoError(t, v.Struct(domain.Student{
		Name:       "Asha",
		Phone:      "9876543210",
		ClassTimes: []string{"Monday-04:00 PM", "fri-16:30"},
	}))

	err := v.Struct(domain.Student{Phone: "98765", Email: "nope", ClassTimes: []string{"Monday-04:00 PM", "garbled"}})
	assert.Equal(t, []string{"name", "email", "phone", "class_times[1]"}, fieldNames(t, err))

	verr, _ := validate.As(err)
	assert.Equal(t, "this field is required", verr.Fields[0].Message)
	assert.Contains(t, verr.Fields[3].Message, "Monday-04:00 PM")
}

func TestPhoneMustBeDigits(t *testing.T) {
	err := validate.New().Struct(domain.Lead{Name: "x", Phone: "98765abcde"})
	assert.Equal(t, []string{"phone"}, fieldNames(t, err))
}

func TestPaymentMonthFormat(t *testing.T) {
	v := validate.New()
	require.NoError(t, v.Struct(domain.Payment{StudentID: "S1", Month: "2025-06", Amount: 10}))
	err := v.Struct(domain.Payment{StudentID: "S1", Month: "June 2025", Amount: 0, Method: "cheque"})
	assert.Equal(t, []string{"month", "amount", "method"}, fieldNames(t, err))
}

func TestTimetableClock(t *testing.T) {
	v := validate.New()
	require.NoError(t, v.Struct(domain.TimetableEntry{Class: "10", Day: "Tue", Subject: "Maths", StartTime: "4:00 PM"}))
	err := v.Struct(domain.TimetableEntry{Class: "10", Day: "Someday", Subject: "Maths", StartTime: "later"})
	assert.Equal(t, []string{"day", "start_time"}, fieldNames(t, err))
}

func TestFieldsAndErrorText(t *testing.T) {
	assert.NoError(t, validate.Fields())
	err := fmt.Errorf("wrapped: %w", validate.Fields(validate.FieldError{Field: "score", Message: "exceeds max marks"}))
	verr, ok := validate.As(err)
	require.True(t, ok)
	assert.Equal(t, "invalid input: score: exceeds max marks", verr.Error())
}
