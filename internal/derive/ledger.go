package derive

import (
	"sort"
	"time"

	"academydesk/internal/domain"
)

const (
	StatusPaid    = "Paid"
	StatusPending = "Pending"
)

type PaymentStatus struct {
	Student domain.Student  `json:"student"`
	Status  string          `json:"status"`
	Payment *domain.Payment `json:"payment,omitempty"`
}

// PaymentStatuses marks each student Paid iff a payment exists for exactly
// month (YYYY-MM). The first matching record wins.
func PaymentStatuses(students []domain.Student, payments []domain.Payment, month string) []PaymentStatus {
	byStudent := firstPerKey(payments, month, func(p domain.Payment) (string, string) { return p.StudentID, p.Month })
	out := make([]PaymentStatus, 0, len(students))
	for _, s := range students {
		st := PaymentStatus{Student: s, Status: StatusPending}
		if p, ok := byStudent[s.ID]; ok {
			st.Status, st.Payment = StatusPaid, &p
		}
		out = append(out, st)
	}
	return out
}

type SalaryStatus struct {
	Employee domain.Employee       `json:"employee"`
	Status   string                `json:"status"`
	Payment  *domain.SalaryPayment `json:"payment,omitempty"`
}

// PayrollStatuses applies the payment join to employees and salary records.
func PayrollStatuses(employees []domain.Employee, salaries []domain.SalaryPayment, month string) []SalaryStatus {
	byEmployee := firstPerKey(salaries, month, func(p domain.SalaryPayment) (string, string) { return p.EmployeeID, p.Month })
	out := make([]SalaryStatus, 0, len(employees))
	for _, e := range employees {
		st := SalaryStatus{Employee: e, Status: StatusPending}
		if p, ok := byEmployee[e.ID]; ok {
			st.Status, st.Payment = StatusPaid, &p
		}
		out = append(out, st)
	}
	return out
}

func firstPerKey[T any](records []T, month string, key func(T) (id, month string)) map[string]T {
	m := make(map[string]T)
	for _, r := range records {
		id, m2 := key(r)
		if m2 != month {
			continue
		}
		if _, seen := m[id]; !seen {
			m[id] = r
		}
	}
	return m
}

type MonthTotal struct {
	Month string  `json:"month"`
	Total float64 `json:"total"`
	Count int     `json:"count"`
}

// MonthlyCollections totals payments per month key, oldest month first.
// Records whose month is not YYYY-MM are skipped.
func MonthlyCollections(payments []domain.Payment) []MonthTotal {
	totals := map[string]*MonthTotal{}
	for _, p := range payments {
		if _, err := time.Parse("2006-01", p.Month); err != nil {
			continue
		}
		t, ok := totals[p.Month]
		if !ok {
			t = &MonthTotal{Month: p.Month}
			totals[p.Month] = t
		}
		t.Total += p.Amount
		t.Count++
	}
	out := make([]MonthTotal, 0, len(totals))
	for _, t := range totals {
		out = append(out, *t)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Month < out[j].Month })
	return out
}

type CategoryTotal struct {
	Category string  `json:"category"`
	Total    float64 `json:"total"`
}

// ExpenditureByCategory sums spending per category, largest first. A
// non-empty month keeps only records whose spent_at falls in it.
func ExpenditureByCategory(expenditures []domain.Expenditure, month string) []CategoryTotal {
	totals := map[string]float64{}
	for _, e := range expenditures {
		if month != "" {
			ts, ok := ParseTimestamp(e.SpentAt)
			if !ok || ts.Format("2006-01") != month {
				continue
			}
		}
		totals[e.Category] += e.Amount
	}
	out := make([]CategoryTotal, 0, len(totals))
	for c, v := range totals {
		out = append(out, CategoryTotal{Category: c, Total: v})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Total != out[j].Total {
			return out[i].Total > out[j].Total
		}
		return out[i].Category < out[j].Category
	})
	return out
}
