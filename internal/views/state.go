// Package views builds the console screens: view models derived from the
// store plus local UI state, and table renderers for them.
package views

import (
	"time"

	"academydesk/internal/actions"
	"academydesk/internal/derive"
	"academydesk/internal/domain"
	"academydesk/internal/store"
)

// State is a typed copy of the slices the screens read.
type State struct {
	Students     []domain.Student        `json:"students"`
	Payments     []domain.Payment        `json:"payments"`
	Employees    []domain.Employee       `json:"employees"`
	Salaries     []domain.SalaryPayment  `json:"salaries"`
	Leads        []domain.Lead           `json:"leads"`
	Timetables   []domain.TimetableEntry `json:"timetables"`
	Exams        []domain.Exam           `json:"exams"`
	Marks        []domain.Mark           `json:"marks"`
	Expenditures []domain.Expenditure    `json:"expenditures"`
	Files        []domain.StoredFile     `json:"files"`
}

// FromStore reads every list slice of s.
func FromStore(s *store.Store) State {
	return State{
		Students:     items[domain.Student](s, actions.Students),
		Payments:     items[domain.Payment](s, actions.Payments),
		Employees:    items[domain.Employee](s, actions.Employees),
		Salaries:     items[domain.SalaryPayment](s, actions.Salaries),
		Leads:        items[domain.Lead](s, actions.Leads),
		Timetables:   items[domain.TimetableEntry](s, actions.Timetables),
		Exams:        items[domain.Exam](s, actions.Exams),
		Marks:        items[domain.Mark](s, actions.Marks),
		Expenditures: items[domain.Expenditure](s, actions.Expenditures),
		Files:        items[domain.StoredFile](s, actions.Files),
	}
}

func items[T any](s *store.Store, name string) []T {
	return store.Select[store.ListSlice[T]](s, name).Items
}

// UI is the local interaction state of a screen.
type UI struct {
	Search   string
	Month    string // YYYY-MM
	Page     int
	PageSize int
	Status   string
	Category string
	Now      time.Time
	Location *time.Location
}

func (u UI) now() time.Time {
	if u.Now.IsZero() {
		return time.Now()
	}
	return u.Now
}

func (u UI) loc() *time.Location {
	if u.Location == nil {
		return time.Local
	}
	return u.Location
}

// month returns the selected month, defaulting to the current one.
func (u UI) month() (string, time.Time) {
	if t, err := time.ParseInLocation("2006-01", u.Month, u.loc()); err == nil {
		return u.Month, t
	}
	now := u.now().In(u.loc())
	first := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, u.loc())
	return first.Format("2006-01"), first
}

// Builder derives view models, memoizing each by its inputs.
type Builder struct {
	cache *derive.Cache
}

func NewBuilder(cache *derive.Cache) *Builder {
	return &Builder{cache: cache}
}
