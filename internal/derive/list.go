package derive

import (
	"strings"

	"academydesk/internal/domain"
)

type Page[T any] struct {
	Items []T `json:"items"`
	Page  int `json:"page"`
	Pages int `json:"pages"`
	Total int `json:"total"`
}

// Paginate returns the 1-based page of items. Out of range pages clamp to the
// nearest valid one.
func Paginate[T any](items []T, page, size int) Page[T] {
	if size <= 0 {
		size = 10
	}
	total := len(items)
	pages := (total + size - 1) / size
	if pages == 0 {
		pages = 1
	}
	if page < 1 {
		page = 1
	}
	if page > pages {
		page = pages
	}
	lo := (page - 1) * size
	hi := min(lo+size, total)
	return Page[T]{Items: items[lo:hi], Page: page, Pages: pages, Total: total}
}

// FilterStudents keeps students whose name, email, phone or class contains
// search, ignoring case.
func FilterStudents(students []domain.Student, search string) []domain.Student {
	q := strings.ToLower(strings.TrimSpace(search))
	if q == "" {
		return students
	}
	var out []domain.Student
	for _, s := range students {
		for _, field := range []string{s.Name, s.Email, s.Phone, s.Class} {
			if strings.Contains(strings.ToLower(field), q) {
				out = append(out, s)
				break
			}
		}
	}
	return out
}
