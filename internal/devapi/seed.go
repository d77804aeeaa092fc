package devapi

import (
	"fmt"
	"time"

	"academydesk/internal/domain"
)

// Seed fills m with a small academy so every console view has something to
// show. Payments and salaries are recorded for the month of now.
func Seed(m *Memory, now time.Time) {
	month := now.Format("2006-01")
	prev := now.AddDate(0, -1, 0).Format("2006-01")

	students := []domain.Student{
		{Name: "Asha Rao", Email: "asha@example.com", Phone: "9876500001", Class: "10", Subjects: []string{"Maths", "Physics"}, ClassTimes: []string{"Monday-04:00 PM", "Thursday-04:00 PM"}, MonthlyFee: 1500},
		{Name: "Ravi Kumar", Phone: "9876500002", Class: "10", Subjects: []string{"Maths"}, ClassTimes: []string{"Tuesday-05:00 PM"}, MonthlyFee: 1200},
		{Name: "Meera Shah", Email: "meera@example.com", Phone: "9876500003", Class: "12", Subjects: []string{"Chemistry"}, ClassTimes: []string{"Wednesday-06:00 PM", "Saturday-10:00 AM"}, MonthlyFee: 1800},
		{Name: "Kabir Singh", Phone: "9876500004", Class: "12", Subjects: []string{"Physics", "Chemistry"}, ClassTimes: []string{"Friday-04:30 PM"}, MonthlyFee: 1800},
	}
	ids := make([]string, len(students))
	for i, s := range students {
		ids[i] = m.Students.Create(s).ID
	}

	m.Payments.Create(domain.Payment{StudentID: ids[0], Month: month, Amount: 1500, Method: "upi"})
	m.Payments.Create(domain.Payment{StudentID: ids[2], Month: month, Amount: 1800, Method: "cash"})
	m.Payments.Create(domain.Payment{StudentID: ids[1], Month: prev, Amount: 1200, Method: "cash"})

	priya := m.Employees.Create(domain.Employee{Name: "Priya Nair", Role: "Teacher", Phone: "9876511111", Salary: 25000})
	m.Employees.Create(domain.Employee{Name: "Suresh Das", Role: "Office", Phone: "9876522222", Salary: 15000})
	m.Salaries.Create(domain.SalaryPayment{EmployeeID: priya.ID, Month: month, Amount: 25000})

	for i, status := range []string{"new", "new", "contacted", "visited", "admitted", "dropped"} {
		m.Leads.Create(domain.Lead{
			Name:   fmt.Sprintf("Lead %d", i+1),
			Phone:  fmt.Sprintf("98765300%02d", i),
			Source: "walk-in",
			Status: status,
		})
	}

	m.Timetables.Create(domain.TimetableEntry{Class: "10", Day: "Monday", Subject: "Maths", Teacher: "Priya Nair", StartTime: "04:00 PM", EndTime: "05:00 PM"})
	m.Timetables.Create(domain.TimetableEntry{Class: "12", Day: "Wednesday", Subject: "Chemistry", StartTime: "06:00 PM", EndTime: "07:00 PM"})

	exam := m.Exams.Create(domain.Exam{Title: "Unit Test 1", Subject: "Maths", Class: "10", MaxMarks: 50, HeldOn: now.AddDate(0, 0, -7).Format("2006-01-02")})
	m.Marks.Create(domain.Mark{ExamID: exam.ID, StudentID: ids[0], Score: 46})
	m.Marks.Create(domain.Mark{ExamID: exam.ID, StudentID: ids[1], Score: 31})

	m.Expenditures.Create(domain.Expenditure{Category: "Rent", Amount: 12000, Note: "Classroom"})
	m.Expenditures.Create(domain.Expenditure{Category: "Stationery", Amount: 850})
}
