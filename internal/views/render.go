package views

import (
	"fmt"
	"io"
	"strings"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"

	"academydesk/internal/domain"
	"academydesk/internal/journal"
	"academydesk/internal/store"
)

const timeLayout = "Mon 02 Jan 15:04"

func newTable(w io.Writer, title string, header table.Row) table.Writer {
	tw := table.NewWriter()
	tw.SetOutputMirror(w)
	if title != "" {
		tw.SetTitle(title)
	}
	tw.AppendHeader(header)
	tw.SetStyle(table.StyleLight)
	return tw
}

func money(v float64) string { return fmt.Sprintf("%.2f", v) }

// RenderNotice prints the banner left by the last settled action.
func RenderNotice(w io.Writer, n store.Notice) {
	if n.Message == "" {
		return
	}
	if n.IsError {
		fmt.Fprintln(w, text.FgRed.Sprint("error: "+n.Message))
		return
	}
	fmt.Fprintln(w, text.FgGreen.Sprint(n.Message))
}

func RenderDashboard(w io.Writer, d Dashboard) {
	tw := newTable(w, "Academy overview", table.Row{"Metric", "Value"})
	tw.AppendRows([]table.Row{
		{"Students", d.Students},
		{"Employees", d.Employees},
		{"Open leads", d.OpenLeads},
		{"Collected " + d.Month, money(d.Collected)},
		{"Fees pending " + d.Month, d.Pending},
		{"Median monthly fee", money(d.Fees.Median)},
		{"Upper quartile fee", money(d.Fees.Q3)},
	})
	tw.Render()

	if len(d.Activity) > 0 {
		at := newTable(w, "Recent activity", table.Row{"When", "Type", "Activity"})
		for _, a := range d.Activity {
			at.AppendRow(table.Row{a.Timestamp.Format(timeLayout), a.Type, a.Message})
		}
		at.Render()
	}
	if d.Quote != "" {
		fmt.Fprintf(w, "\n  %s\n", text.Italic.Sprint(d.Quote))
	}
}

func RenderStudents(w io.Writer, v StudentList) {
	tw := newTable(w, "", table.Row{"ID", "Name", "Class", "Phone", "Monthly fee", "Class times"})
	for _, s := range v.Page.Items {
		tw.AppendRow(table.Row{s.ID, s.Name, s.Class, s.Phone, money(s.MonthlyFee), strings.Join(s.ClassTimes, ", ")})
	}
	tw.SetCaption("page %d of %d, %d students", v.Page.Page, v.Page.Pages, v.Page.Total)
	tw.Render()
}

func RenderFees(w io.Writer, f Fees) {
	tw := newTable(w, "Fees for "+f.Month, table.Row{"Student", "Status", "Amount", "Paid at"})
	for _, s := range f.Statuses {
		amount, paidAt := "", ""
		status := text.FgYellow.Sprint(s.Status)
		if s.Payment != nil {
			amount, paidAt = money(s.Payment.Amount), s.Payment.PaidAt
			status = text.FgGreen.Sprint(s.Status)
		}
		tw.AppendRow(table.Row{s.Student.Name, status, amount, paidAt})
	}
	tw.AppendFooter(table.Row{"", fmt.Sprintf("%d paid / %d pending", f.Paid, f.Pending), money(f.Collected), "outstanding " + money(f.Outstanding)})
	tw.Render()
}

func RenderSchedule(w io.Writer, s Schedule) {
	tw := newTable(w, "Classes in "+s.Month, table.Row{"Student", "Total", "Completed", "Pending", "Next class"})
	for _, r := range s.Rows {
		next := "-"
		if r.Next != nil {
			next = r.Next.Format(timeLayout)
		}
		tw.AppendRow(table.Row{r.Student.Name, r.Summary.Total, r.Summary.Completed, r.Summary.Pending, next})
	}
	tw.AppendFooter(table.Row{"", s.Totals.Total, s.Totals.Completed, s.Totals.Pending, ""})
	tw.Render()
}

func RenderMarks(w io.Writer, m MarkSheet) {
	tw := newTable(w, fmt.Sprintf("%s (out of %g)", m.Exam.Title, m.Exam.MaxMarks), table.Row{"Student", "Score", "%", "Grade"})
	for _, r := range m.Rows {
		name := r.Student
		if name == "" {
			name = r.StudentID
		}
		tw.AppendRow(table.Row{name, r.Score, fmt.Sprintf("%.1f", r.Percentage), r.Grade})
	}
	tw.AppendFooter(table.Row{"", "", fmt.Sprintf("median %.1f", m.Summary.Median), fmt.Sprintf("q3 %.1f", m.Summary.Q3)})
	tw.Render()
}

func RenderPayroll(w io.Writer, p Payroll) {
	tw := newTable(w, "Payroll for "+p.Month, table.Row{"Employee", "Role", "Salary", "Status", "Paid"})
	for _, s := range p.Statuses {
		paid := ""
		if s.Payment != nil {
			paid = money(s.Payment.Amount)
		}
		tw.AppendRow(table.Row{s.Employee.Name, s.Employee.Role, money(s.Employee.Salary), s.Status, paid})
	}
	tw.AppendFooter(table.Row{"", "", "due " + money(p.Due), "", money(p.Paid)})
	tw.Render()
}

func RenderLeads(w io.Writer, l Leads) {
	ft := newTable(w, "Admission funnel", table.Row{"Stage", "Leads"})
	for _, s := range l.Funnel.Stages {
		ft.AppendRow(table.Row{s.Status, s.Count})
	}
	ft.SetCaption("conversion %.1f%% of %d", l.Funnel.ConversionRate, l.Funnel.Total)
	ft.Render()

	tw := newTable(w, "", table.Row{"ID", "Name", "Phone", "Source", "Status", "Created"})
	for _, x := range l.Leads {
		tw.AppendRow(table.Row{x.ID, x.Name, x.Phone, x.Source, x.Status, x.CreatedAt})
	}
	tw.Render()
}

func RenderExpenditures(w io.Writer, e Expenditures) {
	tw := newTable(w, "Spending in "+e.Month, table.Row{"Category", "Total"})
	for _, c := range e.ByCategory {
		tw.AppendRow(table.Row{c.Category, money(c.Total)})
	}
	tw.AppendFooter(table.Row{"Total", money(e.Total)})
	tw.Render()
}

func RenderFiles(w io.Writer, files []domain.StoredFile) {
	tw := newTable(w, "", table.Row{"ID", "Name", "Category", "Size", "Uploaded", "URL"})
	for _, f := range files {
		tw.AppendRow(table.Row{f.ID, f.Name, f.Category, f.Size, f.UploadedAt, f.URL})
	}
	tw.Render()
}

func RenderTimetable(w io.Writer, entries []domain.TimetableEntry) {
	tw := newTable(w, "", table.Row{"Class", "Day", "Start", "End", "Subject", "Teacher"})
	for _, e := range entries {
		tw.AppendRow(table.Row{e.Class, e.Day, e.StartTime, e.EndTime, e.Subject, e.Teacher})
	}
	tw.Render()
}

func RenderEmployees(w io.Writer, employees []domain.Employee) {
	tw := newTable(w, "", table.Row{"ID", "Name", "Role", "Phone", "Salary", "Joined"})
	for _, e := range employees {
		tw.AppendRow(table.Row{e.ID, e.Name, e.Role, e.Phone, money(e.Salary), e.JoinedAt})
	}
	tw.Render()
}

func RenderExams(w io.Writer, exams []domain.Exam) {
	tw := newTable(w, "", table.Row{"ID", "Title", "Subject", "Class", "Max", "Held on"})
	for _, e := range exams {
		tw.AppendRow(table.Row{e.ID, e.Title, e.Subject, e.Class, e.MaxMarks, e.HeldOn})
	}
	tw.Render()
}

func RenderJournal(w io.Writer, entries []journal.Entry) {
	tw := newTable(w, "", table.Row{"When", "Method", "Path", "Status", "Outcome", "ms", "Message"})
	for _, e := range entries {
		tw.AppendRow(table.Row{e.TS, e.Method, e.Path, e.Status, e.Outcome, e.DurationMS, e.Message})
	}
	tw.Render()
}
