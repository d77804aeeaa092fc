package views

import (
	"sort"
	"time"

	"academydesk/internal/derive"
	"academydesk/internal/domain"
)

const recentActivity = 10

type Dashboard struct {
	Students    int                 `json:"students"`
	Employees   int                 `json:"employees"`
	OpenLeads   int                 `json:"open_leads"`
	Month       string              `json:"month"`
	Collected   float64             `json:"collected"`
	Pending     int                 `json:"pending"`
	Fees        derive.Quartile     `json:"fees"`
	Activity    []derive.Activity   `json:"activity"`
	Collections []derive.MonthTotal `json:"collections"`
	Quote       string              `json:"quote,omitempty"`
}

func (b *Builder) Dashboard(st State, ui UI, quote string) Dashboard {
	month, _ := ui.month()
	d := derive.Memoize(b.cache, "dashboard", func() Dashboard {
		fees := make([]float64, 0, len(st.Students))
		for _, s := range st.Students {
			if s.MonthlyFee > 0 {
				fees = append(fees, s.MonthlyFee)
			}
		}
		activity := derive.MergeActivity(st.Students, st.Payments)
		if len(activity) > recentActivity {
			activity = activity[:recentActivity]
		}
		funnel := derive.LeadFunnel(st.Leads)
		open := 0
		for _, s := range funnel.Stages {
			if s.Status != "admitted" && s.Status != "dropped" {
				open += s.Count
			}
		}
		d := Dashboard{
			Students:    len(st.Students),
			Employees:   len(st.Employees),
			OpenLeads:   open,
			Month:       month,
			Fees:        derive.Quartiles(fees),
			Activity:    activity,
			Collections: derive.MonthlyCollections(st.Payments),
		}
		for _, ps := range derive.PaymentStatuses(st.Students, st.Payments, month) {
			if ps.Payment != nil {
				d.Collected += ps.Payment.Amount
			} else {
				d.Pending++
			}
		}
		return d
	}, st.Students, st.Payments, st.Employees, st.Leads, month)
	d.Quote = quote
	return d
}

type StudentList struct {
	Search string                      `json:"search,omitempty"`
	Page   derive.Page[domain.Student] `json:"page"`
}

func (b *Builder) Students(st State, ui UI) StudentList {
	return derive.Memoize(b.cache, "students", func() StudentList {
		sorted := append([]domain.Student(nil), derive.FilterStudents(st.Students, ui.Search)...)
		sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].Name < sorted[j].Name })
		return StudentList{Search: ui.Search, Page: derive.Paginate(sorted, ui.Page, ui.PageSize)}
	}, st.Students, ui.Search, ui.Page, ui.PageSize)
}

type Fees struct {
	Month     string                 `json:"month"`
	Statuses  []derive.PaymentStatus `json:"statuses"`
	Paid      int                    `json:"paid"`
	Pending   int                    `json:"pending"`
	Collected float64                `json:"collected"`
	// Outstanding sums the monthly fee of pending students.
	Outstanding float64 `json:"outstanding"`
}

func (b *Builder) Fees(st State, ui UI) Fees {
	month, _ := ui.month()
	return derive.Memoize(b.cache, "fees", func() Fees {
		f := Fees{Month: month, Statuses: derive.PaymentStatuses(derive.FilterStudents(st.Students, ui.Search), st.Payments, month)}
		for _, s := range f.Statuses {
			if s.Status == derive.StatusPaid {
				f.Paid++
				f.Collected += s.Payment.Amount
			} else {
				f.Pending++
				f.Outstanding += s.Student.MonthlyFee
			}
		}
		return f
	}, st.Students, st.Payments, month, ui.Search)
}

type ScheduleRow struct {
	Student domain.Student         `json:"student"`
	Summary derive.ScheduleSummary `json:"summary"`
	Next    *time.Time             `json:"next,omitempty"`
}

type Schedule struct {
	Month  string                 `json:"month"`
	Rows   []ScheduleRow          `json:"rows"`
	Totals derive.ScheduleSummary `json:"totals"`
}

// Schedule is not memoized: completion depends on the current time.
func (b *Builder) Schedule(st State, ui UI) Schedule {
	month, first := ui.month()
	now := ui.now()
	out := Schedule{Month: month}
	for _, s := range derive.FilterStudents(st.Students, ui.Search) {
		occ := derive.ExpandSchedule(s.ClassTimes, first.Year(), first.Month(), now, ui.loc())
		row := ScheduleRow{Student: s, Summary: derive.SummarizeSchedule(occ)}
		for _, o := range occ {
			if !o.Completed && (row.Next == nil || o.Start.Before(*row.Next)) {
				start := o.Start
				row.Next = &start
			}
		}
		out.Totals.Total += row.Summary.Total
		out.Totals.Completed += row.Summary.Completed
		out.Totals.Pending += row.Summary.Pending
		out.Rows = append(out.Rows, row)
	}
	return out
}

type MarkRow struct {
	StudentID  string  `json:"student_id"`
	Student    string  `json:"student"`
	Score      float64 `json:"score"`
	Percentage float64 `json:"percentage"`
	Grade      string  `json:"grade"`
}

type MarkSheet struct {
	Exam    domain.Exam     `json:"exam"`
	Rows    []MarkRow       `json:"rows"`
	Summary derive.Quartile `json:"summary"`
}

// Marks grades the marks of exam, best first.
func (b *Builder) Marks(st State, exam domain.Exam) MarkSheet {
	return derive.Memoize(b.cache, "marks", func() MarkSheet {
		names := make(map[string]string, len(st.Students))
		for _, s := range st.Students {
			names[s.ID] = s.Name
		}
		sheet := MarkSheet{Exam: exam}
		pcts := make([]float64, 0, len(st.Marks))
		for _, m := range st.Marks {
			if m.ExamID != exam.ID {
				continue
			}
			pct := derive.Percentage(m.Score, exam.MaxMarks)
			pcts = append(pcts, pct)
			sheet.Rows = append(sheet.Rows, MarkRow{StudentID: m.StudentID, Student: names[m.StudentID], Score: m.Score, Percentage: pct, Grade: derive.Grade(pct)})
		}
		sort.SliceStable(sheet.Rows, func(i, j int) bool { return sheet.Rows[i].Score > sheet.Rows[j].Score })
		sheet.Summary = derive.Quartiles(pcts)
		return sheet
	}, st.Students, st.Marks, exam)
}

type Payroll struct {
	Month    string                `json:"month"`
	Statuses []derive.SalaryStatus `json:"statuses"`
	Paid     float64               `json:"paid"`
	Due      float64               `json:"due"`
}

func (b *Builder) Payroll(st State, ui UI) Payroll {
	month, _ := ui.month()
	return derive.Memoize(b.cache, "payroll", func() Payroll {
		p := Payroll{Month: month, Statuses: derive.PayrollStatuses(st.Employees, st.Salaries, month)}
		for _, s := range p.Statuses {
			if s.Payment != nil {
				p.Paid += s.Payment.Amount
			} else {
				p.Due += s.Employee.Salary
			}
		}
		return p
	}, st.Employees, st.Salaries, month)
}

type Leads struct {
	Funnel derive.Funnel `json:"funnel"`
	Leads  []domain.Lead `json:"leads"`
}

// Leads lists leads newest first, narrowed to ui.Status when set.
func (b *Builder) Leads(st State, ui UI) Leads {
	return derive.Memoize(b.cache, "leads", func() Leads {
		out := Leads{Funnel: derive.LeadFunnel(st.Leads)}
		for _, l := range st.Leads {
			if ui.Status == "" || l.Status == ui.Status {
				out.Leads = append(out.Leads, l)
			}
		}
		sortNewestFirst(out.Leads, func(l domain.Lead) string { return l.CreatedAt })
		return out
	}, st.Leads, ui.Status)
}

type Expenditures struct {
	Month      string                 `json:"month"`
	ByCategory []derive.CategoryTotal `json:"by_category"`
	Total      float64                `json:"total"`
}

func (b *Builder) Expenditures(st State, ui UI) Expenditures {
	month, _ := ui.month()
	return derive.Memoize(b.cache, "expenditures", func() Expenditures {
		e := Expenditures{Month: month, ByCategory: derive.ExpenditureByCategory(st.Expenditures, month)}
		for _, c := range e.ByCategory {
			e.Total += c.Total
		}
		return e
	}, st.Expenditures, month)
}

// Files lists uploads newest first, narrowed to ui.Category when set.
func (b *Builder) Files(st State, ui UI) []domain.StoredFile {
	return derive.Memoize(b.cache, "files", func() []domain.StoredFile {
		var out []domain.StoredFile
		for _, f := range st.Files {
			if ui.Category == "" || f.Category == ui.Category {
				out = append(out, f)
			}
		}
		sortNewestFirst(out, func(f domain.StoredFile) string { return f.UploadedAt })
		return out
	}, st.Files, ui.Category)
}

// sortNewestFirst orders by timestamp descending; unparsable timestamps sink
// to the end in input order.
func sortNewestFirst[T any](items []T, ts func(T) string) {
	sort.SliceStable(items, func(i, j int) bool {
		a, aok := derive.ParseTimestamp(ts(items[i]))
		c, cok := derive.ParseTimestamp(ts(items[j]))
		if aok != cok {
			return aok
		}
		return aok && a.After(c)
	})
}
