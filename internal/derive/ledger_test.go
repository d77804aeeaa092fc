package derive

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"academydesk/internal/domain"
)

func TestPaymentStatusesExactMonth(t *testing.T) {
	students := []domain.Student{{ID: "S1"}, {ID: "S2"}, {ID: "S3"}}
	payments := []domain.Payment{
		{StudentID: "S2", Month: "2025-06", Amount: 1200},
		{StudentID: "S1", Month: "2025-05", Amount: 1200},
	}
	got := PaymentStatuses(students, payments, "2025-06")
	require.Len(t, got, 3)
	paid := 0
	for _, st := range got {
		if st.Status == StatusPaid {
			paid++
			assert.Equal(t, "S2", st.Student.ID)
			require.NotNil(t, st.Payment)
			assert.Equal(t, 1200.0, st.Payment.Amount)
		} else {
			assert.Equal(t, StatusPending, st.Status)
			assert.Nil(t, st.Payment)
		}
	}
	assert.Equal(t, 1, paid)
}

func TestPayrollStatuses(t *testing.T) {
	employees := []domain.Employee{{ID: "E1"}, {ID: "E2"}}
	salaries := []domain.SalaryPayment{
		{EmployeeID: "E1", Month: "2025-06", Amount: 20000},
		{EmployeeID: "E1", Month: "2025-06", Amount: 1},
	}
	got := PayrollStatuses(employees, salaries, "2025-06")
	require.Len(t, got, 2)
	assert.Equal(t, StatusPaid, got[0].Status)
	assert.Equal(t, 20000.0, got[0].Payment.Amount, "first record wins")
	assert.Equal(t, StatusPending, got[1].Status)
}

func TestMonthlyCollections(t *testing.T) {
	got := MonthlyCollections([]domain.Payment{
		{Month: "2025-06", Amount: 100},
		{Month: "2025-05", Amount: 50},
		{Month: "2025-06", Amount: 25},
		{Month: "June", Amount: 999},
	})
	assert.Equal(t, []MonthTotal{
		{Month: "2025-05", Total: 50, Count: 1},
		{Month: "2025-06", Total: 125, Count: 2},
	}, got)
}

func TestExpenditureByCategory(t *testing.T) {
	exps := []domain.Expenditure{
		{Category: "rent", Amount: 500, SpentAt: "2025-06-01"},
		{Category: "supplies", Amount: 80, SpentAt: "2025-06-10T10:00:00Z"},
		{Category: "supplies", Amount: 40, SpentAt: "2025-05-30"},
		{Category: "misc", Amount: 80, SpentAt: "not a date"},
	}
	assert.Equal(t, []CategoryTotal{
		{Category: "rent", Total: 500},
		{Category: "supplies", Total: 80},
	}, ExpenditureByCategory(exps, "2025-06"))

	all := ExpenditureByCategory(exps, "")
	require.Len(t, all, 3)
	assert.Equal(t, CategoryTotal{Category: "supplies", Total: 120}, all[1])
	assert.Equal(t, CategoryTotal{Category: "misc", Total: 80}, all[2])
}

func TestLeadFunnel(t *testing.T) {
	f := LeadFunnel([]domain.Lead{
		{Status: "new"}, {Status: ""}, {Status: "Contacted"},
		{Status: "admitted"}, {Status: "lost-in-space"},
	})
	assert.Equal(t, 4, f.Total)
	assert.Equal(t, FunnelStage{Status: "new", Count: 2}, f.Stages[0])
	assert.Equal(t, FunnelStage{Status: "contacted", Count: 1}, f.Stages[1])
	assert.Equal(t, 25.0, f.ConversionRate)
}
