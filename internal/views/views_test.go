package views

import (
	"bytes"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"academydesk/internal/actions"
	"academydesk/internal/derive"
	"academydesk/internal/domain"
	"academydesk/internal/store"
)

func fixture() State {
	return State{
		Students: []domain.Student{
			{ID: "S1", Name: "Asha", MonthlyFee: 1000, CreatedAt: "2025-06-01T09:00:00Z", ClassTimes: []string{"Monday-04:00 PM"}},
			{ID: "S2", Name: "Ravi", MonthlyFee: 1500, CreatedAt: "2025-06-02T09:00:00Z"},
			{ID: "S3", Name: "Meera", MonthlyFee: 2000, CreatedAt: "2025-06-03T09:00:00Z", ClassTimes: []string{"garbled"}},
		},
		Payments: []domain.Payment{{ID: "P1", StudentID: "S2", Month: "2025-06", Amount: 1500, PaidAt: "2025-06-05T10:00:00Z"}},
		Employees: []domain.Employee{
			{ID: "E1", Name: "Kiran", Salary: 20000},
			{ID: "E2", Name: "Lata", Salary: 15000},
		},
		Salaries: []domain.SalaryPayment{{EmployeeID: "E1", Month: "2025-06", Amount: 20000}},
		Leads: []domain.Lead{
			{ID: "L1", Name: "A", Status: "new", CreatedAt: "2025-06-01"},
			{ID: "L2", Name: "B", Status: "admitted", CreatedAt: "2025-06-04"},
		},
		Exams: []domain.Exam{{ID: "X1", Title: "Unit test", MaxMarks: 50}},
		Marks: []domain.Mark{
			{ExamID: "X1", StudentID: "S1", Score: 40},
			{ExamID: "X1", StudentID: "S2", Score: 46},
			{ExamID: "X2", StudentID: "S2", Score: 1},
		},
		Expenditures: []domain.Expenditure{{Category: "rent", Amount: 500, SpentAt: "2025-06-01"}},
	}
}

var june = UI{Month: "2025-06", Now: time.Date(2025, 6, 16, 17, 30, 0, 0, time.UTC), Location: time.UTC}

func TestFeesView(t *testing.T) {
	f := NewBuilder(nil).Fees(fixture(), june)
	assert.Equal(t, 1, f.Paid)
	assert.Equal(t, 2, f.Pending)
	assert.Equal(t, 1500.0, f.Collected)
	assert.Equal(t, 3000.0, f.Outstanding)
}

func TestDashboardIsMemoized(t *testing.T) {
	cache := derive.NewCache(16)
	b := NewBuilder(cache)
	st := fixture()
	first := b.Dashboard(st, june, "quote one")
	second := b.Dashboard(st, june, "quote two")

	assert.Equal(t, "quote two", second.Quote)
	assert.Equal(t, first.Fees, second.Fees)
	assert.Equal(t, derive.Quartile{Median: 1500, Q3: 2000}, first.Fees)
	assert.Equal(t, 1, first.OpenLeads)
	assert.Equal(t, 1500.0, first.Collected)
	require.NotEmpty(t, first.Activity)
	assert.Equal(t, derive.ActivityPayment, first.Activity[0].Type)

	hits, misses := cache.Stats()
	assert.EqualValues(t, 1, hits)
	assert.EqualValues(t, 1, misses)
}

func TestStudentsSearchAndPaging(t *testing.T) {
	b := NewBuilder(derive.NewCache(4))
	v := b.Students(fixture(), UI{Page: 1, PageSize: 2})
	require.Len(t, v.Page.Items, 2)
	assert.Equal(t, "Asha", v.Page.Items[0].Name)
	assert.Equal(t, 2, v.Page.Pages)

	v = b.Students(fixture(), UI{Search: "rav", PageSize: 2})
	require.Len(t, v.Page.Items, 1)
	assert.Equal(t, "Ravi", v.Page.Items[0].Name)
}

func TestScheduleView(t *testing.T) {
	s := NewBuilder(nil).Schedule(fixture(), june)
	require.Len(t, s.Rows, 3)
	assert.Equal(t, derive.ScheduleSummary{Total: 5, Completed: 3, Pending: 2}, s.Rows[0].Summary)
	require.NotNil(t, s.Rows[0].Next)
	assert.Equal(t, 23, s.Rows[0].Next.Day())
	assert.Zero(t, s.Rows[2].Summary.Total, "malformed entries are skipped")
	assert.Equal(t, 5, s.Totals.Total)
}

func TestMarkSheet(t *testing.T) {
	st := fixture()
	m := NewBuilder(nil).Marks(st, st.Exams[0])
	require.Len(t, m.Rows, 2)
	assert.Equal(t, "Ravi", m.Rows[0].Student)
	assert.Equal(t, "A+", m.Rows[0].Grade)
	assert.Equal(t, "B+", m.Rows[1].Grade, "exactly 80 percent")
}

func TestPayrollLeadsExpenditures(t *testing.T) {
	b := NewBuilder(nil)
	st := fixture()
	p := b.Payroll(st, june)
	assert.Equal(t, 20000.0, p.Paid)
	assert.Equal(t, 15000.0, p.Due)

	l := b.Leads(st, UI{})
	require.Len(t, l.Leads, 2)
	assert.Equal(t, "L2", l.Leads[0].ID)
	assert.Len(t, b.Leads(st, UI{Status: "new"}).Leads, 1)

	e := b.Expenditures(st, june)
	assert.Equal(t, 500.0, e.Total)
}

func TestFromStore(t *testing.T) {
	s := store.New(actions.Reducers(store.AuthSlice{})...)
	s.Dispatch(store.Action{Type: store.SuccessType(actions.Students), Payload: fixture().Students})
	assert.Len(t, FromStore(s).Students, 3)
	assert.Empty(t, FromStore(s).Payments)
}

func TestRenderers(t *testing.T) {
	b := NewBuilder(nil)
	st := fixture()
	var buf bytes.Buffer
	RenderDashboard(&buf, b.Dashboard(st, june, "Keep going"))
	RenderFees(&buf, b.Fees(st, june))
	RenderSchedule(&buf, b.Schedule(st, june))
	RenderMarks(&buf, b.Marks(st, st.Exams[0]))
	RenderPayroll(&buf, b.Payroll(st, june))
	RenderLeads(&buf, b.Leads(st, UI{}))
	RenderExpenditures(&buf, b.Expenditures(st, june))
	RenderStudents(&buf, b.Students(st, UI{}))
	RenderNotice(&buf, store.Notice{Message: "Student saved"})
	RenderEmployees(&buf, st.Employees)
	RenderExams(&buf, st.Exams)
	RenderTimetable(&buf, []domain.TimetableEntry{{Class: "10", Day: "Monday", Subject: "Maths", StartTime: "04:00 PM"}})
	RenderFiles(&buf, []domain.StoredFile{{ID: "F1", Name: "notes.pdf", Category: "lecture"}})

	out := buf.String()
	for _, want := range []string{"Academy overview", "Keep going", "Fees for 2025-06", "Ravi", "Payroll for 2025-06", "admitted", "rent", "Student saved", "notes.pdf", "Monday"} {
		assert.Contains(t, out, want)
	}
}
