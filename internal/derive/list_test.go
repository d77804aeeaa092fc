package derive

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"academydesk/internal/domain"
)

func TestPaginate(t *testing.T) {
	items := []int{1, 2, 3, 4, 5}
	p := Paginate(items, 2, 2)
	assert.Equal(t, []int{3, 4}, p.Items)
	assert.Equal(t, 3, p.Pages)

	assert.Equal(t, []int{5}, Paginate(items, 9, 2).Items)
	assert.Equal(t, 1, Paginate(items, 0, 2).Page)

	empty := Paginate([]int(nil), 1, 10)
	assert.Empty(t, empty.Items)
	assert.Equal(t, 1, empty.Pages)
}

func TestFilterStudents(t *testing.T) {
	students := []domain.Student{
		{Name: "Asha Rao", Class: "10"},
		{Name: "Ravi", Email: "ravi@ASHA.school"},
		{Name: "Meera", Phone: "9876543210"},
	}
	assert.Len(t, FilterStudents(students, "asha"), 2)
	assert.Len(t, FilterStudents(students, "98765"), 1)
	assert.Len(t, FilterStudents(students, "  "), 3)
}
