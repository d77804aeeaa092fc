package domain

// Timestamps travel as RFC3339 strings, the same way the academy API emits
// them. Consumers parse them where they need ordering.

type Student struct {
	ID         string   `json:"id,omitempty"`
	Name       string   `json:"name" validate:"required,max=120"`
	Email      string   `json:"email,omitempty" validate:"omitempty,email"`
	Phone      string   `json:"phone,omitempty" validate:"required,len=10,numeric"`
	Class      string   `json:"class,omitempty"`
	Subjects   []string `json:"subjects,omitempty"`
	ClassTimes []string `json:"class_times,omitempty" doc:"entries of the form Monday-04:00 PM" validate:"dive,classtime"`
	MonthlyFee float64  `json:"monthly_fee,omitempty" validate:"gte=0"`
	CreatedAt  string   `json:"created_at,omitempty"`
}

type Payment struct {
	ID        string  `json:"id,omitempty"`
	StudentID string  `json:"student_id" validate:"required"`
	Month     string  `json:"month" doc:"YYYY-MM" validate:"required,datetime=2006-01"`
	Amount    float64 `json:"amount" validate:"gt=0"`
	Method    string  `json:"method,omitempty" enum:"cash,upi,card,bank" validate:"omitempty,oneof=cash upi card bank"`
	PaidAt    string  `json:"paid_at,omitempty"`
}

type Employee struct {
	ID        string  `json:"id,omitempty"`
	Name      string  `json:"name" validate:"required,max=120"`
	Role      string  `json:"role,omitempty"`
	Phone     string  `json:"phone,omitempty" validate:"omitempty,len=10,numeric"`
	Salary    float64 `json:"salary,omitempty" validate:"gte=0"`
	JoinedAt  string  `json:"joined_at,omitempty"`
	CreatedAt string  `json:"created_at,omitempty"`
}

type SalaryPayment struct {
	ID         string  `json:"id,omitempty"`
	EmployeeID string  `json:"employee_id" validate:"required"`
	Month      string  `json:"month" doc:"YYYY-MM" validate:"required,datetime=2006-01"`
	Amount     float64 `json:"amount" validate:"gt=0"`
	PaidAt     string  `json:"paid_at,omitempty"`
}

type Lead struct {
	ID        string `json:"id,omitempty"`
	Name      string `json:"name" validate:"required,max=120"`
	Phone     string `json:"phone,omitempty" validate:"required,len=10,numeric"`
	Source    string `json:"source,omitempty"`
	Status    string `json:"status,omitempty" enum:"new,contacted,visited,admitted,dropped" validate:"omitempty,oneof=new contacted visited admitted dropped"`
	Notes     string `json:"notes,omitempty"`
	CreatedAt string `json:"created_at,omitempty"`
}

type TimetableEntry struct {
	ID        string `json:"id,omitempty"`
	Class     string `json:"class" validate:"required"`
	Day       string `json:"day" validate:"required,weekday"`
	Subject   string `json:"subject" validate:"required"`
	Teacher   string `json:"teacher,omitempty"`
	StartTime string `json:"start_time" validate:"required,clock"`
	EndTime   string `json:"end_time,omitempty" validate:"omitempty,clock"`
}

type Exam struct {
	ID       string  `json:"id,omitempty"`
	Title    string  `json:"title" validate:"required"`
	Subject  string  `json:"subject,omitempty"`
	Class    string  `json:"class,omitempty"`
	MaxMarks float64 `json:"max_marks" validate:"gt=0"`
	HeldOn   string  `json:"held_on,omitempty"`
}

type Mark struct {
	ID        string  `json:"id,omitempty"`
	ExamID    string  `json:"exam_id" validate:"required"`
	StudentID string  `json:"student_id" validate:"required"`
	Score     float64 `json:"score" validate:"gte=0"`
}

type Expenditure struct {
	ID       string  `json:"id,omitempty"`
	Category string  `json:"category" validate:"required"`
	Amount   float64 `json:"amount" validate:"gt=0"`
	Note     string  `json:"note,omitempty"`
	SpentAt  string  `json:"spent_at,omitempty"`
}

// StoredFile is the descriptor the upload endpoints return.
type StoredFile struct {
	ID          string `json:"id,omitempty"`
	Name        string `json:"name"`
	Category    string `json:"category,omitempty" enum:"employee,important,lecture,profile,import"`
	URL         string `json:"url,omitempty"`
	Size        int64  `json:"size,omitempty"`
	ContentType string `json:"content_type,omitempty"`
	UploadedAt  string `json:"uploaded_at,omitempty"`
}

type User struct {
	ID    string   `json:"id"`
	Email string   `json:"email"`
	Roles []string `json:"roles,omitempty"`
}

type LoginResult struct {
	Token string `json:"token"`
	User  User   `json:"user"`
}

type ImportResult struct {
	Imported int      `json:"imported"`
	Skipped  []string `json:"skipped,omitempty"`
}

type Credentials struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,min=6"`
}

// CredentialChange replaces the admin login. At least one of the new
// values must be set.
type CredentialChange struct {
	CurrentPassword string `json:"current_password" validate:"required"`
	NewEmail        string `json:"new_email,omitempty" validate:"omitempty,email"`
	NewPassword     string `json:"new_password,omitempty" validate:"omitempty,min=8"`
}
