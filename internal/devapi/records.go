package devapi

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	"github.com/danielgtaylor/huma/v2"

	"academydesk/internal/derive"
	"academydesk/internal/domain"
	"academydesk/internal/validate"
)

var writeErrors = []int{
	http.StatusBadRequest,
	http.StatusNotFound,
	http.StatusInternalServerError,
}

type idPath struct {
	ID string `path:"id"`
}

type itemOutput[T any] struct {
	Body T `json:"body"`
}

type listOutput[T any] struct {
	Body []T `json:"body"`
}

type createInput[T any] struct {
	Body T `json:"body"`
}

type updateInput[T any] struct {
	ID   string `path:"id"`
	Body T      `json:"body"`
}

// resource describes one collection mounted under /data or /admission.
type resource[T any] struct {
	path   string
	single string
	coll   *Collection[T]
	// check runs after field validation and may reject cross-record input.
	check func(*T) error
	// merge copies server-owned fields of cur onto next before an update.
	merge func(cur T, next *T)
}

func (r resource[T]) validate(s *server, v *T) error {
	if err := s.validate.Struct(v); err != nil {
		return err
	}
	if r.check != nil {
		return r.check(v)
	}
	return nil
}

func registerCreate[T any](s *server, api huma.API, r resource[T]) {
	huma.Register(api, huma.Operation{
		OperationID:   "create-" + r.single,
		Method:        http.MethodPost,
		Path:          r.path,
		Summary:       "Create " + r.single,
		DefaultStatus: http.StatusCreated,
		Errors:        writeErrors,
	}, func(ctx context.Context, input *createInput[T]) (*itemOutput[T], error) {
		if err := r.validate(s, &input.Body); err != nil {
			return nil, handleError(err)
		}
		return &itemOutput[T]{Body: r.coll.Create(input.Body)}, nil
	})
}

func registerGet[T any](s *server, api huma.API, r resource[T]) {
	huma.Register(api, huma.Operation{
		OperationID: "get-" + r.single,
		Method:      http.MethodGet,
		Path:        r.path + "/{id}",
		Summary:     "Get " + r.single,
		Errors:      []int{http.StatusNotFound},
	}, func(ctx context.Context, input *idPath) (*itemOutput[T], error) {
		v, err := r.coll.Get(input.ID)
		if err != nil {
			return nil, handleError(err)
		}
		return &itemOutput[T]{Body: v}, nil
	})
}

func registerUpdate[T any](s *server, api huma.API, r resource[T]) {
	huma.Register(api, huma.Operation{
		OperationID: "update-" + r.single,
		Method:      http.MethodPut,
		Path:        r.path + "/{id}",
		Summary:     "Replace " + r.single,
		Errors:      writeErrors,
	}, func(ctx context.Context, input *updateInput[T]) (*itemOutput[T], error) {
		if err := r.validate(s, &input.Body); err != nil {
			return nil, handleError(err)
		}
		v, err := r.coll.Update(input.ID, func(cur *T) {
			next := input.Body
			if r.merge != nil {
				r.merge(*cur, &next)
			}
			*cur = next
		})
		if err != nil {
			return nil, handleError(err)
		}
		return &itemOutput[T]{Body: v}, nil
	})
}

func registerDelete[T any](s *server, api huma.API, r resource[T]) {
	huma.Register(api, huma.Operation{
		OperationID:   "delete-" + r.single,
		Method:        http.MethodDelete,
		Path:          r.path + "/{id}",
		Summary:       "Delete " + r.single,
		DefaultStatus: http.StatusNoContent,
		Errors:        []int{http.StatusNotFound},
	}, func(ctx context.Context, input *idPath) (*struct{}, error) {
		if err := r.coll.Delete(input.ID); err != nil {
			return nil, handleError(err)
		}
		return nil, nil
	})
}

func keepCreated(cur string, next *string) {
	if *next == "" {
		*next = cur
	}
}

// inMonth reports whether an RFC3339-ish timestamp falls in a YYYY-MM month.
func inMonth(ts, month string) bool {
	if month == "" {
		return true
	}
	t, ok := derive.ParseTimestamp(ts)
	return ok && t.Format("2006-01") == month
}

func (s *server) registerRecords(api huma.API) {
	students := resource[domain.Student]{
		path: "/data/students", single: "student", coll: s.data.Students,
		merge: func(cur domain.Student, next *domain.Student) { keepCreated(cur.CreatedAt, &next.CreatedAt) },
	}
	huma.Register(api, huma.Operation{
		OperationID: "list-students",
		Method:      http.MethodGet,
		Path:        students.path,
		Summary:     "List students",
	}, func(ctx context.Context, input *struct {
		Class string `query:"class"`
	}) (*listOutput[domain.Student], error) {
		items := s.data.Students.List(func(v domain.Student) bool {
			return input.Class == "" || strings.EqualFold(v.Class, input.Class)
		})
		return &listOutput[domain.Student]{Body: items}, nil
	})
	registerCreate(s, api, students)
	registerGet(s, api, students)
	registerUpdate(s, api, students)
	registerDelete(s, api, students)

	payments := resource[domain.Payment]{
		path: "/data/payments", single: "payment", coll: s.data.Payments,
		check: func(p *domain.Payment) error {
			return mustExist(s.data.Students, "student_id", p.StudentID)
		},
	}
	huma.Register(api, huma.Operation{
		OperationID: "list-payments",
		Method:      http.MethodGet,
		Path:        payments.path,
		Summary:     "List fee payments",
	}, func(ctx context.Context, input *struct {
		Month     string `query:"month" doc:"YYYY-MM"`
		StudentID string `query:"student_id"`
	}) (*listOutput[domain.Payment], error) {
		items := s.data.Payments.List(func(v domain.Payment) bool {
			return (input.Month == "" || v.Month == input.Month) &&
				(input.StudentID == "" || v.StudentID == input.StudentID)
		})
		return &listOutput[domain.Payment]{Body: items}, nil
	})
	registerCreate(s, api, payments)
	registerDelete(s, api, payments)

	employees := resource[domain.Employee]{
		path: "/data/employees", single: "employee", coll: s.data.Employees,
		merge: func(cur domain.Employee, next *domain.Employee) { keepCreated(cur.CreatedAt, &next.CreatedAt) },
	}
	huma.Register(api, huma.Operation{
		OperationID: "list-employees",
		Method:      http.MethodGet,
		Path:        employees.path,
		Summary:     "List employees",
	}, func(ctx context.Context, _ *struct{}) (*listOutput[domain.Employee], error) {
		return &listOutput[domain.Employee]{Body: s.data.Employees.List(nil)}, nil
	})
	registerCreate(s, api, employees)
	registerUpdate(s, api, employees)
	registerDelete(s, api, employees)

	salaries := resource[domain.SalaryPayment]{
		path: "/data/salaries", single: "salary", coll: s.data.Salaries,
		check: func(p *domain.SalaryPayment) error {
			return mustExist(s.data.Employees, "employee_id", p.EmployeeID)
		},
	}
	huma.Register(api, huma.Operation{
		OperationID: "list-salaries",
		Method:      http.MethodGet,
		Path:        salaries.path,
		Summary:     "List salary payments",
	}, func(ctx context.Context, input *struct {
		Month string `query:"month" doc:"YYYY-MM"`
	}) (*listOutput[domain.SalaryPayment], error) {
		items := s.data.Salaries.List(func(v domain.SalaryPayment) bool {
			return input.Month == "" || v.Month == input.Month
		})
		return &listOutput[domain.SalaryPayment]{Body: items}, nil
	})
	registerCreate(s, api, salaries)

	timetables := resource[domain.TimetableEntry]{path: "/data/timetables", single: "timetable-entry", coll: s.data.Timetables}
	huma.Register(api, huma.Operation{
		OperationID: "list-timetable",
		Method:      http.MethodGet,
		Path:        timetables.path,
		Summary:     "List timetable entries",
	}, func(ctx context.Context, input *struct {
		Class string `query:"class"`
	}) (*listOutput[domain.TimetableEntry], error) {
		items := s.data.Timetables.List(func(v domain.TimetableEntry) bool {
			return input.Class == "" || strings.EqualFold(v.Class, input.Class)
		})
		return &listOutput[domain.TimetableEntry]{Body: items}, nil
	})
	registerCreate(s, api, timetables)
	registerDelete(s, api, timetables)

	exams := resource[domain.Exam]{path: "/data/exams", single: "exam", coll: s.data.Exams}
	huma.Register(api, huma.Operation{
		OperationID: "list-exams",
		Method:      http.MethodGet,
		Path:        exams.path,
		Summary:     "List exams",
	}, func(ctx context.Context, _ *struct{}) (*listOutput[domain.Exam], error) {
		return &listOutput[domain.Exam]{Body: s.data.Exams.List(nil)}, nil
	})
	registerCreate(s, api, exams)
	registerGet(s, api, exams)
	registerDelete(s, api, exams)

	s.registerMarks(api)

	expenditures := resource[domain.Expenditure]{path: "/data/expenditures", single: "expenditure", coll: s.data.Expenditures}
	huma.Register(api, huma.Operation{
		OperationID: "list-expenditures",
		Method:      http.MethodGet,
		Path:        expenditures.path,
		Summary:     "List expenditures",
	}, func(ctx context.Context, input *struct {
		Month string `query:"month" doc:"YYYY-MM"`
	}) (*listOutput[domain.Expenditure], error) {
		items := s.data.Expenditures.List(func(v domain.Expenditure) bool {
			return inMonth(v.SpentAt, input.Month)
		})
		return &listOutput[domain.Expenditure]{Body: items}, nil
	})
	registerCreate(s, api, expenditures)
	registerDelete(s, api, expenditures)

	s.registerLeads(api)
}

// registerMarks keeps one mark per exam and student; entering a second
// score replaces the first.
func (s *server) registerMarks(api huma.API) {
	huma.Register(api, huma.Operation{
		OperationID: "list-marks",
		Method:      http.MethodGet,
		Path:        "/data/marks",
		Summary:     "List marks of an exam",
		Errors:      []int{http.StatusBadRequest},
	}, func(ctx context.Context, input *struct {
		ExamID string `query:"exam_id"`
	}) (*listOutput[domain.Mark], error) {
		if input.ExamID == "" {
			return nil, handleError(validate.Fields(validate.FieldError{Field: "exam_id", Message: "this field is required"}))
		}
		items := s.data.Marks.List(func(v domain.Mark) bool { return v.ExamID == input.ExamID })
		return &listOutput[domain.Mark]{Body: items}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID:   "enter-mark",
		Method:        http.MethodPost,
		Path:          "/data/marks",
		Summary:       "Enter a mark",
		DefaultStatus: http.StatusCreated,
		Errors:        writeErrors,
	}, func(ctx context.Context, input *createInput[domain.Mark]) (*itemOutput[domain.Mark], error) {
		m := input.Body
		if err := s.validate.Struct(m); err != nil {
			return nil, handleError(err)
		}
		exam, err := s.data.Exams.Get(m.ExamID)
		if err != nil {
			return nil, handleError(validate.Fields(validate.FieldError{Field: "exam_id", Message: "exam does not exist"}))
		}
		if err := mustExist(s.data.Students, "student_id", m.StudentID); err != nil {
			return nil, handleError(err)
		}
		if m.Score > exam.MaxMarks {
			return nil, handleError(validate.Fields(validate.FieldError{
				Field:   "score",
				Message: fmt.Sprintf("score must not exceed %g", exam.MaxMarks),
			}))
		}
		existing := s.data.Marks.List(func(v domain.Mark) bool {
			return v.ExamID == m.ExamID && v.StudentID == m.StudentID
		})
		if len(existing) > 0 {
			saved, err := s.data.Marks.Update(existing[0].ID, func(cur *domain.Mark) { cur.Score = m.Score })
			if err != nil {
				return nil, handleError(err)
			}
			return &itemOutput[domain.Mark]{Body: saved}, nil
		}
		return &itemOutput[domain.Mark]{Body: s.data.Marks.Create(m)}, nil
	})
}

func (s *server) registerLeads(api huma.API) {
	leads := resource[domain.Lead]{
		path: "/admission/leads", single: "lead", coll: s.data.Leads,
		check: func(l *domain.Lead) error {
			if l.Status == "" {
				l.Status = derive.LeadStages[0]
			}
			return nil
		},
	}
	huma.Register(api, huma.Operation{
		OperationID: "list-leads",
		Method:      http.MethodGet,
		Path:        leads.path,
		Summary:     "List admission leads",
	}, func(ctx context.Context, input *struct {
		Status string `query:"status" enum:"new,contacted,visited,admitted,dropped"`
	}) (*listOutput[domain.Lead], error) {
		items := s.data.Leads.List(func(v domain.Lead) bool {
			return input.Status == "" || v.Status == input.Status
		})
		return &listOutput[domain.Lead]{Body: items}, nil
	})
	registerCreate(s, api, leads)
	registerDelete(s, api, leads)

	huma.Register(api, huma.Operation{
		OperationID: "move-lead",
		Method:      http.MethodPatch,
		Path:        leads.path + "/{id}",
		Summary:     "Move a lead to another stage",
		Errors:      writeErrors,
	}, func(ctx context.Context, input *struct {
		ID   string `path:"id"`
		Body struct {
			Status string `json:"status" validate:"required,oneof=new contacted visited admitted dropped"`
		} `json:"body"`
	}) (*itemOutput[domain.Lead], error) {
		if err := s.validate.Struct(input.Body); err != nil {
			return nil, handleError(err)
		}
		v, err := s.data.Leads.Update(input.ID, func(cur *domain.Lead) { cur.Status = input.Body.Status })
		if err != nil {
			return nil, handleError(err)
		}
		return &itemOutput[domain.Lead]{Body: v}, nil
	})
}

// mustExist turns a missing referenced record into a field error.
func mustExist[T any](c *Collection[T], field, id string) error {
	if _, err := c.Get(id); err != nil {
		return validate.Fields(validate.FieldError{Field: field, Message: "no record with id " + id})
	}
	return nil
}
