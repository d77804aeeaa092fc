package actions

import (
	"io"
	"net/http"

	"academydesk/internal/dispatch"
	"academydesk/internal/domain"
	"academydesk/internal/store"
	"academydesk/internal/validate"
)

const (
	studentsPath     = dataPrefix + "/students"
	importPath       = dataPrefix + "/students/import"
	paymentsPath     = dataPrefix + "/payments"
	employeesPath    = dataPrefix + "/employees"
	salariesPath     = dataPrefix + "/salaries"
	timetablesPath   = dataPrefix + "/timetables"
	examsPath        = dataPrefix + "/exams"
	marksPath        = dataPrefix + "/marks"
	expendituresPath = dataPrefix + "/expenditures"
	leadsPath        = admissionPrefix + "/leads"
)

func (c *Creators) FetchStudents() dispatch.Descriptor {
	return fetch(Students, studentsPath, nil)
}

func (c *Creators) CreateStudent(s domain.Student) (dispatch.Descriptor, error) {
	if err := c.validate.Struct(s); err != nil {
		return dispatch.Descriptor{}, err
	}
	return save[domain.Student](Students, http.MethodPost, studentsPath, s, notice("Student %s added", s.Name)), nil
}

func (c *Creators) UpdateStudent(s domain.Student) (dispatch.Descriptor, error) {
	if err := required("id", s.ID); err != nil {
		return dispatch.Descriptor{}, err
	}
	if err := c.validate.Struct(s); err != nil {
		return dispatch.Descriptor{}, err
	}
	return save[domain.Student](Students, http.MethodPut, item(studentsPath, s.ID), s, notice("Student %s updated", s.Name)), nil
}

func (c *Creators) DeleteStudent(id string) (dispatch.Descriptor, error) {
	if err := required("id", id); err != nil {
		return dispatch.Descriptor{}, err
	}
	return remove(Students, item(studentsPath, id), id, "Student removed"), nil
}

// ImportStudents uploads a CSV sheet of students. The slice is not touched;
// callers refetch once the import has settled.
func (c *Creators) ImportStudents(filename string, content io.Reader) (dispatch.Descriptor, error) {
	if err := required("file", filename); err != nil {
		return dispatch.Descriptor{}, err
	}
	return dispatch.Descriptor{
		Method: http.MethodPost,
		Path:   importPath,
		Body: dispatch.MultipartBody{
			Files: []dispatch.FilePart{{Field: "file", Filename: filename, Content: content}},
		},
		OnSuccess: dispatch.Callback(func(r dispatch.Result, d store.Dispatcher) {
			var res domain.ImportResult
			if err := r.Decode(&res); err != nil {
				d.Dispatch(store.Action{Type: store.FailureType(Students), Payload: err.Error(), Err: err})
				return
			}
			d.Dispatch(store.Action{Type: store.ActionNotice, Payload: notice("Imported %d students, skipped %d rows", res.Imported, len(res.Skipped))})
		}),
		OnFailure:    dispatch.Marker{Type: store.FailureType(Students)},
		RequiresAuth: true,
		Timeout:      uploadTimeout,
	}, nil
}

// FetchPayments loads fee payments, optionally for one YYYY-MM month.
func (c *Creators) FetchPayments(month string) dispatch.Descriptor {
	return fetch(Payments, paymentsPath, query("month", month))
}

func (c *Creators) RecordPayment(p domain.Payment) (dispatch.Descriptor, error) {
	if err := c.validate.Struct(p); err != nil {
		return dispatch.Descriptor{}, err
	}
	return save[domain.Payment](Payments, http.MethodPost, paymentsPath, p, notice("Fee for %s recorded", p.Month)), nil
}

func (c *Creators) FetchEmployees() dispatch.Descriptor {
	return fetch(Employees, employeesPath, nil)
}

func (c *Creators) CreateEmployee(e domain.Employee) (dispatch.Descriptor, error) {
	if err := c.validate.Struct(e); err != nil {
		return dispatch.Descriptor{}, err
	}
	return save[domain.Employee](Employees, http.MethodPost, employeesPath, e, notice("Employee %s added", e.Name)), nil
}

func (c *Creators) FetchSalaries(month string) dispatch.Descriptor {
	return fetch(Salaries, salariesPath, query("month", month))
}

func (c *Creators) RecordSalary(p domain.SalaryPayment) (dispatch.Descriptor, error) {
	if err := c.validate.Struct(p); err != nil {
		return dispatch.Descriptor{}, err
	}
	return save[domain.SalaryPayment](Salaries, http.MethodPost, salariesPath, p, notice("Salary for %s recorded", p.Month)), nil
}

// FetchLeads loads admission leads, optionally in one status.
func (c *Creators) FetchLeads(status string) dispatch.Descriptor {
	return fetch(Leads, leadsPath, query("status", status))
}

func (c *Creators) CreateLead(l domain.Lead) (dispatch.Descriptor, error) {
	if l.Status == "" {
		l.Status = "new"
	}
	if err := c.validate.Struct(l); err != nil {
		return dispatch.Descriptor{}, err
	}
	return save[domain.Lead](Leads, http.MethodPost, leadsPath, l, notice("Lead %s added", l.Name)), nil
}

type leadStatus struct {
	Status string `json:"status" validate:"required,oneof=new contacted visited admitted dropped"`
}

func (c *Creators) UpdateLeadStatus(id, status string) (dispatch.Descriptor, error) {
	if err := required("id", id); err != nil {
		return dispatch.Descriptor{}, err
	}
	body := leadStatus{Status: status}
	if err := c.validate.Struct(body); err != nil {
		return dispatch.Descriptor{}, err
	}
	return save[domain.Lead](Leads, http.MethodPatch, item(leadsPath, id), body, notice("Lead moved to %s", status)), nil
}

// FetchTimetable loads timetable entries, optionally for one class.
func (c *Creators) FetchTimetable(class string) dispatch.Descriptor {
	return fetch(Timetables, timetablesPath, query("class", class))
}

func (c *Creators) CreateTimetableEntry(e domain.TimetableEntry) (dispatch.Descriptor, error) {
	if err := c.validate.Struct(e); err != nil {
		return dispatch.Descriptor{}, err
	}
	return save[domain.TimetableEntry](Timetables, http.MethodPost, timetablesPath, e, notice("%s added to %s on %s", e.Subject, e.Class, e.Day)), nil
}

func (c *Creators) FetchExams() dispatch.Descriptor {
	return fetch(Exams, examsPath, nil)
}

func (c *Creators) CreateExam(e domain.Exam) (dispatch.Descriptor, error) {
	if err := c.validate.Struct(e); err != nil {
		return dispatch.Descriptor{}, err
	}
	return save[domain.Exam](Exams, http.MethodPost, examsPath, e, notice("Exam %s created", e.Title)), nil
}

// FetchMarks loads the marks entered for one exam.
func (c *Creators) FetchMarks(examID string) (dispatch.Descriptor, error) {
	if err := required("exam_id", examID); err != nil {
		return dispatch.Descriptor{}, err
	}
	return fetch(Marks, marksPath, query("exam_id", examID)), nil
}

// EnterMark records a score for exam. The score may not exceed the exam's
// maximum marks.
func (c *Creators) EnterMark(m domain.Mark, exam domain.Exam) (dispatch.Descriptor, error) {
	if m.ExamID == "" {
		m.ExamID = exam.ID
	}
	if err := c.validate.Struct(m); err != nil {
		return dispatch.Descriptor{}, err
	}
	if exam.MaxMarks > 0 && m.Score > exam.MaxMarks {
		return dispatch.Descriptor{}, validate.Fields(validate.FieldError{
			Field:   "score",
			Message: notice("score must not exceed %g", exam.MaxMarks),
		})
	}
	return save[domain.Mark](Marks, http.MethodPost, marksPath, m, "Mark saved"), nil
}

// FetchExpenditures loads spending, optionally for one YYYY-MM month.
func (c *Creators) FetchExpenditures(month string) dispatch.Descriptor {
	return fetch(Expenditures, expendituresPath, query("month", month))
}

func (c *Creators) CreateExpenditure(e domain.Expenditure) (dispatch.Descriptor, error) {
	if err := c.validate.Struct(e); err != nil {
		return dispatch.Descriptor{}, err
	}
	return save[domain.Expenditure](Expenditures, http.MethodPost, expendituresPath, e, notice("Expenditure on %s recorded", e.Category)), nil
}
