package devapi

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"academydesk/internal/domain"
)

var ErrNotFound = errors.New("not found")

// Collection is a mutex-guarded list of records addressed by ID.
type Collection[T any] struct {
	mu    sync.RWMutex
	items []T
	id    func(*T) *string
	stamp func(*T, time.Time)
	now   func() time.Time
}

// NewCollection builds a collection. id exposes the record's ID field;
// stamp, when set, fills creation timestamps on Create.
func NewCollection[T any](id func(*T) *string, stamp func(*T, time.Time)) *Collection[T] {
	return &Collection[T]{id: id, stamp: stamp, now: time.Now}
}

// List copies the records accepted by keep, in insertion order.
func (c *Collection[T]) List(keep func(T) bool) []T {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make([]T, 0, len(c.items))
	for _, it := range c.items {
		if keep == nil || keep(it) {
			out = append(out, it)
		}
	}
	return out
}

func (c *Collection[T]) Get(id string) (T, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if i := c.index(id); i >= 0 {
		return c.items[i], nil
	}
	var zero T
	return zero, ErrNotFound
}

// Create assigns a fresh ID and stores v.
func (c *Collection[T]) Create(v T) T {
	c.mu.Lock()
	defer c.mu.Unlock()
	*c.id(&v) = uuid.NewString()
	if c.stamp != nil {
		c.stamp(&v, c.now().UTC())
	}
	c.items = append(c.items, v)
	return v
}

// Update applies fn to the stored record and returns the result.
func (c *Collection[T]) Update(id string, fn func(*T)) (T, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	i := c.index(id)
	if i < 0 {
		var zero T
		return zero, ErrNotFound
	}
	next := c.items[i]
	fn(&next)
	*c.id(&next) = id
	c.items[i] = next
	return next, nil
}

func (c *Collection[T]) Delete(id string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	i := c.index(id)
	if i < 0 {
		return ErrNotFound
	}
	c.items = append(c.items[:i:i], c.items[i+1:]...)
	return nil
}

func (c *Collection[T]) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.items)
}

func (c *Collection[T]) index(id string) int {
	for i := range c.items {
		if *c.id(&c.items[i]) == id {
			return i
		}
	}
	return -1
}

// Memory is the whole dev backend dataset.
type Memory struct {
	Students     *Collection[domain.Student]
	Payments     *Collection[domain.Payment]
	Employees    *Collection[domain.Employee]
	Salaries     *Collection[domain.SalaryPayment]
	Leads        *Collection[domain.Lead]
	Timetables   *Collection[domain.TimetableEntry]
	Exams        *Collection[domain.Exam]
	Marks        *Collection[domain.Mark]
	Expenditures *Collection[domain.Expenditure]
	Files        *Collection[domain.StoredFile]

	blobMu sync.RWMutex
	blobs  map[string][]byte

	credMu sync.RWMutex
	admin  domain.User
	secret []byte
}

// NewMemory starts an empty dataset whose single admin signs in with
// email and password.
func NewMemory(email, password string) (*Memory, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("hash admin password: %w", err)
	}
	created := func(p *string, now time.Time) {
		if *p == "" {
			*p = now.Format(time.RFC3339)
		}
	}
	return &Memory{
		Students: NewCollection(func(v *domain.Student) *string { return &v.ID },
			func(v *domain.Student, now time.Time) { created(&v.CreatedAt, now) }),
		Payments: NewCollection(func(v *domain.Payment) *string { return &v.ID },
			func(v *domain.Payment, now time.Time) { created(&v.PaidAt, now) }),
		Employees: NewCollection(func(v *domain.Employee) *string { return &v.ID },
			func(v *domain.Employee, now time.Time) { created(&v.CreatedAt, now) }),
		Salaries: NewCollection(func(v *domain.SalaryPayment) *string { return &v.ID },
			func(v *domain.SalaryPayment, now time.Time) { created(&v.PaidAt, now) }),
		Leads: NewCollection(func(v *domain.Lead) *string { return &v.ID },
			func(v *domain.Lead, now time.Time) { created(&v.CreatedAt, now) }),
		Timetables: NewCollection[domain.TimetableEntry](func(v *domain.TimetableEntry) *string { return &v.ID }, nil),
		Exams:      NewCollection[domain.Exam](func(v *domain.Exam) *string { return &v.ID }, nil),
		Marks:      NewCollection[domain.Mark](func(v *domain.Mark) *string { return &v.ID }, nil),
		Expenditures: NewCollection(func(v *domain.Expenditure) *string { return &v.ID },
			func(v *domain.Expenditure, now time.Time) { created(&v.SpentAt, now) }),
		Files: NewCollection(func(v *domain.StoredFile) *string { return &v.ID },
			func(v *domain.StoredFile, now time.Time) { created(&v.UploadedAt, now) }),
		blobs:  map[string][]byte{},
		admin:  domain.User{ID: "admin", Email: email, Roles: []string{"admin"}},
		secret: hash,
	}, nil
}

// CheckCredentials returns the admin when email and password match.
func (m *Memory) CheckCredentials(email, password string) (domain.User, bool) {
	m.credMu.RLock()
	defer m.credMu.RUnlock()
	if !equalFold(email, m.admin.Email) || bcrypt.CompareHashAndPassword(m.secret, []byte(password)) != nil {
		return domain.User{}, false
	}
	return m.admin, true
}

// ChangeCredentials replaces the admin email and/or password after
// checking the current password.
func (m *Memory) ChangeCredentials(current, email, password string) error {
	m.credMu.Lock()
	defer m.credMu.Unlock()
	if bcrypt.CompareHashAndPassword(m.secret, []byte(current)) != nil {
		return errWrongPassword
	}
	if password != "" {
		hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
		if err != nil {
			return fmt.Errorf("hash password: %w", err)
		}
		m.secret = hash
	}
	if email != "" {
		m.admin.Email = email
	}
	return nil
}

func (m *Memory) PutBlob(id string, data []byte) {
	m.blobMu.Lock()
	defer m.blobMu.Unlock()
	m.blobs[id] = data
}

func (m *Memory) Blob(id string) ([]byte, bool) {
	m.blobMu.RLock()
	defer m.blobMu.RUnlock()
	b, ok := m.blobs[id]
	return b, ok
}

func (m *Memory) DeleteBlob(id string) {
	m.blobMu.Lock()
	defer m.blobMu.Unlock()
	delete(m.blobs, id)
}
