// Package actions builds the Descriptors behind every console feature and
// the reducers that receive their outcomes.
package actions

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"go.uber.org/zap"

	"academydesk/internal/dispatch"
	"academydesk/internal/domain"
	"academydesk/internal/session"
	"academydesk/internal/store"
	"academydesk/internal/validate"
)

// Slice names double as action prefixes.
const (
	Students     = "students"
	Payments     = "payments"
	Employees    = "employees"
	Salaries     = "salaries"
	Leads        = "leads"
	Timetables   = "timetables"
	Exams        = "exams"
	Marks        = "marks"
	Expenditures = "expenditures"
	Files        = "files"
)

const (
	dataPrefix      = "/api/data"
	admissionPrefix = "/api/admission"
	materialsPrefix = "/api/materials"
	authPrefix      = "/api/auth"

	uploadTimeout = 2 * time.Minute
)

// Reducers returns every slice the console keeps, auth starting at auth.
func Reducers(auth store.AuthSlice) []store.Reducer {
	return []store.Reducer{
		store.NewKeyedListReducer[domain.Student](Students, Students, func(v domain.Student) string { return v.ID }),
		store.NewKeyedListReducer[domain.Payment](Payments, Payments, func(v domain.Payment) string { return v.ID }),
		store.NewKeyedListReducer[domain.Employee](Employees, Employees, func(v domain.Employee) string { return v.ID }),
		store.NewKeyedListReducer[domain.SalaryPayment](Salaries, Salaries, func(v domain.SalaryPayment) string { return v.ID }),
		store.NewKeyedListReducer[domain.Lead](Leads, Leads, func(v domain.Lead) string { return v.ID }),
		store.NewKeyedListReducer[domain.TimetableEntry](Timetables, Timetables, func(v domain.TimetableEntry) string { return v.ID }),
		store.NewKeyedListReducer[domain.Exam](Exams, Exams, func(v domain.Exam) string { return v.ID }),
		store.NewKeyedListReducer[domain.Mark](Marks, Marks, func(v domain.Mark) string { return v.ID }),
		store.NewKeyedListReducer[domain.Expenditure](Expenditures, Expenditures, func(v domain.Expenditure) string { return v.ID }),
		store.NewKeyedListReducer[domain.StoredFile](Files, Files, func(v domain.StoredFile) string { return v.ID }),
		store.NewAuthReducer(auth),
		store.NewNoticeReducer(),
	}
}

// Creators turns user intent into Descriptors. Creators taking user input
// validate it first and return a *validate.Error instead of a Descriptor.
type Creators struct {
	validate *validate.Validator
	session  *session.Session
}

func New(v *validate.Validator, s *session.Session) *Creators {
	if v == nil {
		v = validate.New()
	}
	return &Creators{validate: v, session: s}
}

// fetch loads a whole slice.
func fetch(prefix, path string, query map[string]string) dispatch.Descriptor {
	return dispatch.Descriptor{
		Method:       http.MethodGet,
		Path:         path,
		Query:        query,
		OnStart:      dispatch.Marker{Type: store.RequestType(prefix)},
		OnSuccess:    dispatch.Marker{Type: store.SuccessType(prefix)},
		OnFailure:    dispatch.Marker{Type: store.FailureType(prefix)},
		RequiresAuth: true,
	}
}

// save sends v and upserts the item the server answers with.
func save[T any](prefix, method, path string, v any, notice string) dispatch.Descriptor {
	return dispatch.Descriptor{
		Method: method,
		Path:   path,
		Body:   dispatch.JSONBody{Value: v},
		OnSuccess: dispatch.Callback(func(r dispatch.Result, d store.Dispatcher) {
			var saved T
			if err := r.Decode(&saved); err != nil {
				d.Dispatch(store.Action{Type: store.FailureType(prefix), Payload: err.Error(), Err: err})
				return
			}
			d.Dispatch(store.Action{Type: store.UpsertType(prefix), Payload: saved})
			d.Dispatch(store.Action{Type: store.ActionNotice, Payload: notice})
		}),
		OnFailure:    dispatch.Marker{Type: store.FailureType(prefix)},
		RequiresAuth: true,
	}
}

// remove deletes id and drops it from the slice.
func remove(prefix, path, id, notice string) dispatch.Descriptor {
	return dispatch.Descriptor{
		Method: http.MethodDelete,
		Path:   path,
		OnSuccess: dispatch.Callback(func(_ dispatch.Result, d store.Dispatcher) {
			d.Dispatch(store.Action{Type: store.RemoveType(prefix), Payload: id})
			d.Dispatch(store.Action{Type: store.ActionNotice, Payload: notice})
		}),
		OnFailure:    dispatch.Marker{Type: store.FailureType(prefix)},
		RequiresAuth: true,
	}
}

// query pairs keys and values, leaving out empty values.
func query(kv ...string) map[string]string {
	var q map[string]string
	for i := 0; i+1 < len(kv); i += 2 {
		if kv[i+1] == "" {
			continue
		}
		if q == nil {
			q = map[string]string{}
		}
		q[kv[i]] = kv[i+1]
	}
	return q
}

func item(base, id string) string {
	return base + "/" + url.PathEscape(id)
}

func required(field, value string) error {
	if value == "" {
		return validate.Fields(validate.FieldError{Field: field, Message: "this field is required"})
	}
	return nil
}

func notice(format string, args ...any) string {
	return fmt.Sprintf(format, args...)
}

// SignOutOnAuthError returns a store subscriber that forgets the stored
// credential whenever the global auth error signal is raised.
func SignOutOnAuthError(ctx context.Context, s *session.Session, log *zap.Logger) func(store.Action) {
	if log == nil {
		log = zap.NewNop()
	}
	return func(a store.Action) {
		if a.Type != store.ActionAuthError || s == nil {
			return
		}
		if err := s.SignOut(ctx); err != nil {
			log.Error("sign out after auth error", zap.Error(err))
		}
	}
}
