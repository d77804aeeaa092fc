package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"slices"

	"github.com/spf13/cobra"

	"academydesk/internal/app"
	"academydesk/internal/domain"
	"academydesk/internal/views"
)

func studentsCmd() *cobra.Command {
	cmd := &cobra.Command{Use: "students", Short: "Manage students"}
	cmd.AddCommand(studentsListCmd())
	cmd.AddCommand(studentsAddCmd())
	cmd.AddCommand(studentsUpdateCmd())
	cmd.AddCommand(studentsDeleteCmd())
	cmd.AddCommand(studentsImportCmd())
	return cmd
}

func studentsListCmd() *cobra.Command {
	var search string
	var page int
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List students, searching name, email, phone and class",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, func(ctx context.Context, a *app.App) error {
				if err := a.RunAll(ctx, a.Actions.FetchStudents()); err != nil {
					return err
				}
				v := a.Views.Students(a.State(), screen(a, "", search, page))
				return printJSONOrTable(cmd, v, func(w io.Writer) { views.RenderStudents(w, v) })
			})
		},
	}
	cmd.Flags().StringVar(&search, "search", "", "search text")
	cmd.Flags().IntVar(&page, "page", 1, "page number")
	return cmd
}

func studentFlags(cmd *cobra.Command, s *domain.Student) {
	cmd.Flags().StringVar(&s.Name, "name", "", "full name")
	cmd.Flags().StringVar(&s.Email, "email", "", "email address")
	cmd.Flags().StringVar(&s.Phone, "phone", "", "10 digit phone number")
	cmd.Flags().StringVar(&s.Class, "class", "", "class or grade")
	cmd.Flags().StringSliceVar(&s.Subjects, "subject", nil, "subject (repeatable)")
	cmd.Flags().StringArrayVar(&s.ClassTimes, "class-time", nil, `weekly class slot such as "Monday-04:00 PM" (repeatable)`)
	cmd.Flags().Float64Var(&s.MonthlyFee, "fee", 0, "monthly fee")
}

func studentsAddCmd() *cobra.Command {
	var s domain.Student
	cmd := &cobra.Command{
		Use:   "add",
		Short: "Add a student",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, func(ctx context.Context, a *app.App) error {
				return a.Runner(ctx)(a.Actions.CreateStudent(s))
			})
		},
	}
	studentFlags(cmd, &s)
	return cmd
}

// studentsUpdateCmd changes only the fields whose flags were given.
func studentsUpdateCmd() *cobra.Command {
	var patch domain.Student
	cmd := &cobra.Command{
		Use:   "update <id>",
		Short: "Update a student",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, func(ctx context.Context, a *app.App) error {
				if err := a.RunAll(ctx, a.Actions.FetchStudents()); err != nil {
					return err
				}
				i := slices.IndexFunc(a.State().Students, func(s domain.Student) bool { return s.ID == args[0] })
				if i < 0 {
					return fmt.Errorf("student %s not found", args[0])
				}
				s := a.State().Students[i]
				f := cmd.Flags()
				if f.Changed("name") {
					s.Name = patch.Name
				}
				if f.Changed("email") {
					s.Email = patch.Email
				}
				if f.Changed("phone") {
					s.Phone = patch.Phone
				}
				if f.Changed("class") {
					s.Class = patch.Class
				}
				if f.Changed("subject") {
					s.Subjects = patch.Subjects
				}
				if f.Changed("class-time") {
					s.ClassTimes = patch.ClassTimes
				}
				if f.Changed("fee") {
					s.MonthlyFee = patch.MonthlyFee
				}
				return a.Runner(ctx)(a.Actions.UpdateStudent(s))
			})
		},
	}
	studentFlags(cmd, &patch)
	return cmd
}

func studentsDeleteCmd() *cobra.Command {
	var yes bool
	cmd := &cobra.Command{
		Use:   "delete <id>",
		Short: "Delete a student",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ok, err := confirm(cmd, yes, "Delete student "+args[0]+"?")
			if err != nil || !ok {
				return err
			}
			return withApp(cmd, func(ctx context.Context, a *app.App) error {
				return a.Runner(ctx)(a.Actions.DeleteStudent(args[0]))
			})
		},
	}
	cmd.Flags().BoolVarP(&yes, "yes", "y", false, "skip confirmation")
	return cmd
}

func studentsImportCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "import <file.csv>",
		Short: "Import students from a CSV sheet",
		Long: `The sheet needs a header row. Recognised columns are name, email, phone,
class, subjects, class_times and monthly_fee; name and phone are required.
Multiple subjects or class times are separated by ";".`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			f, err := os.Open(args[0])
			if err != nil {
				return err
			}
			defer f.Close()
			return withApp(cmd, func(ctx context.Context, a *app.App) error {
				if err := a.Runner(ctx)(a.Actions.ImportStudents(filepath.Base(args[0]), f)); err != nil {
					return err
				}
				return a.RunAll(ctx, a.Actions.FetchStudents())
			})
		},
	}
	return cmd
}

func feesCmd() *cobra.Command {
	cmd := &cobra.Command{Use: "fees", Short: "Track monthly fee payments"}
	cmd.AddCommand(feesListCmd())
	cmd.AddCommand(feesRecordCmd())
	return cmd
}

func feesListCmd() *cobra.Command {
	var month, search string
	cmd := &cobra.Command{
		Use:   "list",
		Short: "Show who has paid for a month",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, func(ctx context.Context, a *app.App) error {
				ui := screen(a, month, search, 1)
				if err := a.RunAll(ctx, a.Actions.FetchStudents(), a.Actions.FetchPayments(ui.Month)); err != nil {
					return err
				}
				v := a.Views.Fees(a.State(), ui)
				return printJSONOrTable(cmd, v, func(w io.Writer) { views.RenderFees(w, v) })
			})
		},
	}
	cmd.Flags().StringVar(&month, "month", "", "month as YYYY-MM (default current)")
	cmd.Flags().StringVar(&search, "search", "", "search text")
	return cmd
}

func feesRecordCmd() *cobra.Command {
	var p domain.Payment
	cmd := &cobra.Command{
		Use:   "record",
		Short: "Record a fee payment",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, func(ctx context.Context, a *app.App) error {
				if p.Month == "" {
					p.Month = a.UI().Now.Format("2006-01")
				}
				return a.Runner(ctx)(a.Actions.RecordPayment(p))
			})
		},
	}
	cmd.Flags().StringVar(&p.StudentID, "student", "", "student id")
	cmd.Flags().StringVar(&p.Month, "month", "", "month as YYYY-MM (default current)")
	cmd.Flags().Float64Var(&p.Amount, "amount", 0, "amount paid")
	cmd.Flags().StringVar(&p.Method, "method", "cash", "cash, upi, card or bank")
	return cmd
}

func scheduleCmd() *cobra.Command {
	var month, search string
	cmd := &cobra.Command{
		Use:   "schedule",
		Short: "Expand weekly class times into a month of classes",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, func(ctx context.Context, a *app.App) error {
				if err := a.RunAll(ctx, a.Actions.FetchStudents()); err != nil {
					return err
				}
				v := a.Views.Schedule(a.State(), screen(a, month, search, 1))
				return printJSONOrTable(cmd, v, func(w io.Writer) { views.RenderSchedule(w, v) })
			})
		},
	}
	cmd.Flags().StringVar(&month, "month", "", "month as YYYY-MM (default current)")
	cmd.Flags().StringVar(&search, "search", "", "search text")
	return cmd
}

func employeesCmd() *cobra.Command {
	cmd := &cobra.Command{Use: "employees", Short: "Manage staff"}
	cmd.AddCommand(&cobra.Command{
		Use:   "list",
		Short: "List employees",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, func(ctx context.Context, a *app.App) error {
				if err := a.RunAll(ctx, a.Actions.FetchEmployees()); err != nil {
					return err
				}
				st := a.State()
				return printJSONOrTable(cmd, st.Employees, func(w io.Writer) { views.RenderEmployees(w, st.Employees) })
			})
		},
	})
	var e domain.Employee
	add := &cobra.Command{
		Use:   "add",
		Short: "Add an employee",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, func(ctx context.Context, a *app.App) error {
				return a.Runner(ctx)(a.Actions.CreateEmployee(e))
			})
		},
	}
	add.Flags().StringVar(&e.Name, "name", "", "full name")
	add.Flags().StringVar(&e.Role, "role", "", "role, e.g. Teacher")
	add.Flags().StringVar(&e.Phone, "phone", "", "10 digit phone number")
	add.Flags().Float64Var(&e.Salary, "salary", 0, "monthly salary")
	add.Flags().StringVar(&e.JoinedAt, "joined", "", "joining date YYYY-MM-DD")
	cmd.AddCommand(add)
	return cmd
}

func payrollCmd() *cobra.Command {
	cmd := &cobra.Command{Use: "payroll", Short: "Track salary payments"}
	var month string
	list := &cobra.Command{
		Use:   "list",
		Short: "Show paid and due salaries for a month",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, func(ctx context.Context, a *app.App) error {
				ui := screen(a, month, "", 1)
				if err := a.RunAll(ctx, a.Actions.FetchEmployees(), a.Actions.FetchSalaries(ui.Month)); err != nil {
					return err
				}
				v := a.Views.Payroll(a.State(), ui)
				return printJSONOrTable(cmd, v, func(w io.Writer) { views.RenderPayroll(w, v) })
			})
		},
	}
	list.Flags().StringVar(&month, "month", "", "month as YYYY-MM (default current)")
	cmd.AddCommand(list)

	var p domain.SalaryPayment
	pay := &cobra.Command{
		Use:   "pay",
		Short: "Record a salary payment",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, func(ctx context.Context, a *app.App) error {
				if p.Month == "" {
					p.Month = a.UI().Now.Format("2006-01")
				}
				return a.Runner(ctx)(a.Actions.RecordSalary(p))
			})
		},
	}
	pay.Flags().StringVar(&p.EmployeeID, "employee", "", "employee id")
	pay.Flags().StringVar(&p.Month, "month", "", "month as YYYY-MM (default current)")
	pay.Flags().Float64Var(&p.Amount, "amount", 0, "amount paid")
	cmd.AddCommand(pay)
	return cmd
}

func leadsCmd() *cobra.Command {
	cmd := &cobra.Command{Use: "leads", Short: "Follow admission enquiries"}
	var status string
	list := &cobra.Command{
		Use:   "list",
		Short: "Show the admission funnel and leads",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, func(ctx context.Context, a *app.App) error {
				if err := a.RunAll(ctx, a.Actions.FetchLeads("")); err != nil {
					return err
				}
				ui := a.UI()
				ui.Status = status
				v := a.Views.Leads(a.State(), ui)
				return printJSONOrTable(cmd, v, func(w io.Writer) { views.RenderLeads(w, v) })
			})
		},
	}
	list.Flags().StringVar(&status, "status", "", "only leads in this stage")
	cmd.AddCommand(list)

	var l domain.Lead
	add := &cobra.Command{
		Use:   "add",
		Short: "Add a lead",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, func(ctx context.Context, a *app.App) error {
				return a.Runner(ctx)(a.Actions.CreateLead(l))
			})
		},
	}
	add.Flags().StringVar(&l.Name, "name", "", "name")
	add.Flags().StringVar(&l.Phone, "phone", "", "10 digit phone number")
	add.Flags().StringVar(&l.Source, "source", "", "where the lead came from")
	add.Flags().StringVar(&l.Notes, "notes", "", "notes")
	cmd.AddCommand(add)

	cmd.AddCommand(&cobra.Command{
		Use:   "move <id> <status>",
		Short: "Move a lead to new, contacted, visited, admitted or dropped",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, func(ctx context.Context, a *app.App) error {
				return a.Runner(ctx)(a.Actions.UpdateLeadStatus(args[0], args[1]))
			})
		},
	})
	return cmd
}

func timetableCmd() *cobra.Command {
	cmd := &cobra.Command{Use: "timetable", Short: "Manage the class timetable"}
	var class string
	list := &cobra.Command{
		Use:   "list",
		Short: "List timetable entries",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, func(ctx context.Context, a *app.App) error {
				if err := a.RunAll(ctx, a.Actions.FetchTimetable(class)); err != nil {
					return err
				}
				st := a.State()
				return printJSONOrTable(cmd, st.Timetables, func(w io.Writer) { views.RenderTimetable(w, st.Timetables) })
			})
		},
	}
	list.Flags().StringVar(&class, "class", "", "only this class")
	cmd.AddCommand(list)

	var e domain.TimetableEntry
	add := &cobra.Command{
		Use:   "add",
		Short: "Add a timetable entry",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, func(ctx context.Context, a *app.App) error {
				return a.Runner(ctx)(a.Actions.CreateTimetableEntry(e))
			})
		},
	}
	add.Flags().StringVar(&e.Class, "class", "", "class")
	add.Flags().StringVar(&e.Day, "day", "", "weekday")
	add.Flags().StringVar(&e.Subject, "subject", "", "subject")
	add.Flags().StringVar(&e.Teacher, "teacher", "", "teacher")
	add.Flags().StringVar(&e.StartTime, "start", "", "start time, e.g. 04:00 PM")
	add.Flags().StringVar(&e.EndTime, "end", "", "end time")
	cmd.AddCommand(add)
	return cmd
}

func examsCmd() *cobra.Command {
	cmd := &cobra.Command{Use: "exams", Short: "Manage exams"}
	cmd.AddCommand(&cobra.Command{
		Use:   "list",
		Short: "List exams",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, func(ctx context.Context, a *app.App) error {
				if err := a.RunAll(ctx, a.Actions.FetchExams()); err != nil {
					return err
				}
				st := a.State()
				return printJSONOrTable(cmd, st.Exams, func(w io.Writer) { views.RenderExams(w, st.Exams) })
			})
		},
	})
	var e domain.Exam
	add := &cobra.Command{
		Use:   "add",
		Short: "Create an exam",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, func(ctx context.Context, a *app.App) error {
				return a.Runner(ctx)(a.Actions.CreateExam(e))
			})
		},
	}
	add.Flags().StringVar(&e.Title, "title", "", "title")
	add.Flags().StringVar(&e.Subject, "subject", "", "subject")
	add.Flags().StringVar(&e.Class, "class", "", "class")
	add.Flags().Float64Var(&e.MaxMarks, "max", 100, "maximum marks")
	add.Flags().StringVar(&e.HeldOn, "date", "", "exam date YYYY-MM-DD")
	cmd.AddCommand(add)
	return cmd
}

// findExam loads exams and returns the one with id.
func findExam(ctx context.Context, a *app.App, id string) (domain.Exam, error) {
	if err := a.RunAll(ctx, a.Actions.FetchExams()); err != nil {
		return domain.Exam{}, err
	}
	for _, e := range a.State().Exams {
		if e.ID == id {
			return e, nil
		}
	}
	return domain.Exam{}, fmt.Errorf("exam %s not found", id)
}

func marksCmd() *cobra.Command {
	cmd := &cobra.Command{Use: "marks", Short: "Enter and grade exam marks"}
	cmd.AddCommand(&cobra.Command{
		Use:   "show <exam-id>",
		Short: "Show the graded mark sheet of an exam",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, func(ctx context.Context, a *app.App) error {
				exam, err := findExam(ctx, a, args[0])
				if err != nil {
					return err
				}
				fetchMarks, err := a.Actions.FetchMarks(exam.ID)
				if err != nil {
					return err
				}
				if err := a.RunAll(ctx, a.Actions.FetchStudents(), fetchMarks); err != nil {
					return err
				}
				v := a.Views.Marks(a.State(), exam)
				return printJSONOrTable(cmd, v, func(w io.Writer) { views.RenderMarks(w, v) })
			})
		},
	})
	var m domain.Mark
	enter := &cobra.Command{
		Use:   "enter",
		Short: "Enter a student's score",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, func(ctx context.Context, a *app.App) error {
				exam, err := findExam(ctx, a, m.ExamID)
				if err != nil {
					return err
				}
				return a.Runner(ctx)(a.Actions.EnterMark(m, exam))
			})
		},
	}
	enter.Flags().StringVar(&m.ExamID, "exam", "", "exam id")
	enter.Flags().StringVar(&m.StudentID, "student", "", "student id")
	enter.Flags().Float64Var(&m.Score, "score", 0, "score")
	cmd.AddCommand(enter)
	return cmd
}

func expendituresCmd() *cobra.Command {
	cmd := &cobra.Command{Use: "expenditures", Short: "Track spending"}
	var month string
	list := &cobra.Command{
		Use:   "list",
		Short: "Show spending by category for a month",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, func(ctx context.Context, a *app.App) error {
				ui := screen(a, month, "", 1)
				if err := a.RunAll(ctx, a.Actions.FetchExpenditures(ui.Month)); err != nil {
					return err
				}
				v := a.Views.Expenditures(a.State(), ui)
				return printJSONOrTable(cmd, v, func(w io.Writer) { views.RenderExpenditures(w, v) })
			})
		},
	}
	list.Flags().StringVar(&month, "month", "", "month as YYYY-MM (default current)")
	cmd.AddCommand(list)

	var e domain.Expenditure
	add := &cobra.Command{
		Use:   "add",
		Short: "Record an expenditure",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, func(ctx context.Context, a *app.App) error {
				return a.Runner(ctx)(a.Actions.CreateExpenditure(e))
			})
		},
	}
	add.Flags().StringVar(&e.Category, "category", "", "category, e.g. Rent")
	add.Flags().Float64Var(&e.Amount, "amount", 0, "amount")
	add.Flags().StringVar(&e.Note, "note", "", "note")
	add.Flags().StringVar(&e.SpentAt, "date", "", "date YYYY-MM-DD (default today)")
	cmd.AddCommand(add)
	return cmd
}
