package devapi

import (
	"bytes"
	"encoding/json"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/tidwall/gjson"

	"academydesk/internal/domain"
)

const (
	testEmail    = "admin@academy.test"
	testPassword = "changeme"
)

type testServer struct {
	URL    string
	client *http.Client
	data   *Memory
	now    time.Time
}

func newTestServer(t *testing.T, maxUpload int64) *testServer {
	t.Helper()
	now := time.Date(2025, 6, 18, 10, 0, 0, 0, time.UTC)
	data, err := NewMemory(testEmail, testPassword)
	if err != nil {
		t.Fatalf("memory: %v", err)
	}
	Seed(data, now)
	handler, err := New(Config{
		Data:           data,
		Auth:           AuthConfig{JWTSecret: "test-secret", TokenTTL: time.Hour, Now: func() time.Time { return now }},
		Registry:       prometheus.NewRegistry(),
		MaxUploadBytes: maxUpload,
	})
	if err != nil {
		t.Fatalf("build handler: %v", err)
	}
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return &testServer{URL: srv.URL, client: srv.Client(), data: data, now: now}
}

func doJSON(t *testing.T, client *http.Client, method, url string, body any, headers map[string]string) (*http.Response, []byte) {
	t.Helper()
	var reader io.Reader = bytes.NewReader(nil)
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("marshal body: %v", err)
		}
		reader = bytes.NewReader(b)
	}
	req, err := http.NewRequest(method, url, reader)
	if err != nil {
		t.Fatalf("new request: %v", err)
	}
	req.Header.Set("Content-Type", "application/json")
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	return send(t, client, req)
}

func send(t *testing.T, client *http.Client, req *http.Request) (*http.Response, []byte) {
	t.Helper()
	res, err := client.Do(req)
	if err != nil {
		t.Fatalf("do request: %v", err)
	}
	defer res.Body.Close()
	data, err := io.ReadAll(res.Body)
	if err != nil {
		t.Fatalf("read body: %v", err)
	}
	return res, data
}

func (s *testServer) login(t *testing.T) map[string]string {
	t.Helper()
	res, data := doJSON(t, s.client, http.MethodPost, s.URL+"/api/auth/login", domain.Credentials{Email: testEmail, Password: testPassword}, nil)
	if res.StatusCode != http.StatusOK {
		t.Fatalf("login status %d: %s", res.StatusCode, data)
	}
	token := gjson.GetBytes(data, "token").String()
	if token == "" {
		t.Fatalf("login returned no token: %s", data)
	}
	return map[string]string{"Authorization": "Bearer " + token}
}

func multipartRequest(t *testing.T, url string, fields map[string]string, filename string, content []byte, headers map[string]string) *http.Request {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	for k, v := range fields {
		if err := mw.WriteField(k, v); err != nil {
			t.Fatalf("write field: %v", err)
		}
	}
	fw, err := mw.CreateFormFile("file", filename)
	if err != nil {
		t.Fatalf("create file part: %v", err)
	}
	fw.Write(content)
	mw.Close()
	req, err := http.NewRequest(http.MethodPost, url, &buf)
	if err != nil {
		t.Fatalf("new request: %v", err)
	}
	req.Header.Set("Content-Type", mw.FormDataContentType())
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	return req
}

func TestHealthIsPublicAndDataIsNot(t *testing.T) {
	srv := newTestServer(t, 0)
	res, _ := doJSON(t, srv.client, http.MethodGet, srv.URL+"/api/health", nil, nil)
	if res.StatusCode != http.StatusOK {
		t.Fatalf("health status %d", res.StatusCode)
	}
	res, data := doJSON(t, srv.client, http.MethodGet, srv.URL+"/api/data/students", nil, nil)
	if res.StatusCode != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", res.StatusCode)
	}
	if code := gjson.GetBytes(data, "error.code").String(); code != "unauthorized" {
		t.Fatalf("unexpected error code %q: %s", code, data)
	}
}

func TestLoginRejectsWrongPassword(t *testing.T) {
	srv := newTestServer(t, 0)
	res, data := doJSON(t, srv.client, http.MethodPost, srv.URL+"/api/auth/login", domain.Credentials{Email: testEmail, Password: "wrong-one"}, nil)
	if res.StatusCode != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", res.StatusCode)
	}
	if msg := gjson.GetBytes(data, "error.message").String(); msg != "wrong email or password" {
		t.Fatalf("unexpected message %q", msg)
	}
}

func TestExpiredTokenAsksToSignInAgain(t *testing.T) {
	srv := newTestServer(t, 0)
	token, err := signToken(AuthConfig{JWTSecret: "test-secret", TokenTTL: time.Minute, Now: func() time.Time {
		return srv.now.Add(-time.Hour)
	}}, Principal{UserID: "admin"})
	if err != nil {
		t.Fatalf("sign: %v", err)
	}
	res, data := doJSON(t, srv.client, http.MethodGet, srv.URL+"/api/data/students", nil, map[string]string{"Authorization": "Bearer " + token})
	if res.StatusCode != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", res.StatusCode)
	}
	if msg := gjson.GetBytes(data, "error.message").String(); msg != "session expired, sign in again" {
		t.Fatalf("unexpected message %q", msg)
	}
}

func TestStudentLifecycle(t *testing.T) {
	srv := newTestServer(t, 0)
	auth := srv.login(t)
	base := srv.URL + "/api/data/students"

	res, data := doJSON(t, srv.client, http.MethodPost, base, map[string]any{"name": "Tara", "phone": "123"}, auth)
	if res.StatusCode != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d: %s", res.StatusCode, data)
	}
	if field := gjson.GetBytes(data, "error.details.fields.0.field").String(); field != "phone" {
		t.Fatalf("expected phone field error: %s", data)
	}

	res, data = doJSON(t, srv.client, http.MethodPost, base, domain.Student{Name: "Tara", Phone: "9000000001", ClassTimes: []string{"Monday-04:00 PM"}}, auth)
	if res.StatusCode != http.StatusCreated {
		t.Fatalf("create status %d: %s", res.StatusCode, data)
	}
	var created domain.Student
	if err := json.Unmarshal(data, &created); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if created.ID == "" || created.CreatedAt == "" {
		t.Fatalf("expected id and created_at: %+v", created)
	}

	res, data = doJSON(t, srv.client, http.MethodPut, base+"/"+created.ID, domain.Student{Name: "Tara", Phone: "9000000001", Class: "11"}, auth)
	if res.StatusCode != http.StatusOK {
		t.Fatalf("update status %d: %s", res.StatusCode, data)
	}
	if gjson.GetBytes(data, "class").String() != "11" || gjson.GetBytes(data, "created_at").String() != created.CreatedAt {
		t.Fatalf("update lost fields: %s", data)
	}

	res, _ = doJSON(t, srv.client, http.MethodDelete, base+"/"+created.ID, nil, auth)
	if res.StatusCode != http.StatusNoContent {
		t.Fatalf("delete status %d", res.StatusCode)
	}
	res, _ = doJSON(t, srv.client, http.MethodGet, base+"/"+created.ID, nil, auth)
	if res.StatusCode != http.StatusNotFound {
		t.Fatalf("expected 404 after delete, got %d", res.StatusCode)
	}
}

func TestPaymentsFilterByMonthAndCheckStudent(t *testing.T) {
	srv := newTestServer(t, 0)
	auth := srv.login(t)

	res, data := doJSON(t, srv.client, http.MethodGet, srv.URL+"/api/data/payments?month=2025-06", nil, auth)
	if res.StatusCode != http.StatusOK {
		t.Fatalf("list status %d", res.StatusCode)
	}
	if n := gjson.GetBytes(data, "#").Int(); n != 2 {
		t.Fatalf("expected 2 payments in June, got %d: %s", n, data)
	}

	res, data = doJSON(t, srv.client, http.MethodPost, srv.URL+"/api/data/payments", domain.Payment{StudentID: "ghost", Month: "2025-06", Amount: 100}, auth)
	if res.StatusCode != http.StatusBadRequest {
		t.Fatalf("expected 400 for unknown student, got %d: %s", res.StatusCode, data)
	}
}

func TestMarksCannotExceedMaximum(t *testing.T) {
	srv := newTestServer(t, 0)
	auth := srv.login(t)
	exam := srv.data.Exams.List(nil)[0]
	student := srv.data.Students.List(nil)[3]

	res, data := doJSON(t, srv.client, http.MethodPost, srv.URL+"/api/data/marks", domain.Mark{ExamID: exam.ID, StudentID: student.ID, Score: exam.MaxMarks + 1}, auth)
	if res.StatusCode != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d: %s", res.StatusCode, data)
	}

	res, _ = doJSON(t, srv.client, http.MethodPost, srv.URL+"/api/data/marks", domain.Mark{ExamID: exam.ID, StudentID: student.ID, Score: 20}, auth)
	if res.StatusCode != http.StatusCreated {
		t.Fatalf("enter status %d", res.StatusCode)
	}
	res, _ = doJSON(t, srv.client, http.MethodPost, srv.URL+"/api/data/marks", domain.Mark{ExamID: exam.ID, StudentID: student.ID, Score: 25}, auth)
	if res.StatusCode != http.StatusCreated {
		t.Fatalf("re-enter status %d", res.StatusCode)
	}
	_, data = doJSON(t, srv.client, http.MethodGet, srv.URL+"/api/data/marks?exam_id="+exam.ID, nil, auth)
	if n := gjson.GetBytes(data, "#").Int(); n != 3 {
		t.Fatalf("expected one mark per student, got %d: %s", n, data)
	}
	if got := gjson.GetBytes(data, `#(student_id=="`+student.ID+`").score`).Float(); got != 25 {
		t.Fatalf("expected replaced score 25, got %v", got)
	}
}

func TestLeadStatusPatch(t *testing.T) {
	srv := newTestServer(t, 0)
	auth := srv.login(t)
	lead := srv.data.Leads.List(nil)[0]

	res, data := doJSON(t, srv.client, http.MethodPatch, srv.URL+"/api/admission/leads/"+lead.ID, map[string]string{"status": "admitted"}, auth)
	if res.StatusCode != http.StatusOK {
		t.Fatalf("patch status %d: %s", res.StatusCode, data)
	}
	if gjson.GetBytes(data, "status").String() != "admitted" {
		t.Fatalf("status not moved: %s", data)
	}
	res, _ = doJSON(t, srv.client, http.MethodPatch, srv.URL+"/api/admission/leads/"+lead.ID, map[string]string{"status": "lost"}, auth)
	if res.StatusCode != http.StatusBadRequest {
		t.Fatalf("expected 400 for unknown stage, got %d", res.StatusCode)
	}
	_, data = doJSON(t, srv.client, http.MethodGet, srv.URL+"/api/admission/leads?status=admitted", nil, auth)
	if n := gjson.GetBytes(data, "#").Int(); n != 2 {
		t.Fatalf("expected 2 admitted leads, got %d", n)
	}
}

func TestUploadDownloadDelete(t *testing.T) {
	srv := newTestServer(t, 1024)
	auth := srv.login(t)

	req := multipartRequest(t, srv.URL+"/api/materials/upload", map[string]string{"category": "lecture"}, "notes.txt", []byte("hello"), auth)
	res, data := send(t, srv.client, req)
	if res.StatusCode != http.StatusCreated {
		t.Fatalf("upload status %d: %s", res.StatusCode, data)
	}
	id := gjson.GetBytes(data, "id").String()
	url := gjson.GetBytes(data, "url").String()
	if id == "" || !strings.HasSuffix(url, "/content") {
		t.Fatalf("unexpected descriptor: %s", data)
	}

	res, data = doJSON(t, srv.client, http.MethodGet, srv.URL+url, nil, auth)
	if res.StatusCode != http.StatusOK || string(data) != "hello" {
		t.Fatalf("download %d: %q", res.StatusCode, data)
	}

	req = multipartRequest(t, srv.URL+"/api/materials/upload", map[string]string{"category": "secret"}, "x.txt", []byte("x"), auth)
	if res, _ = send(t, srv.client, req); res.StatusCode != http.StatusBadRequest {
		t.Fatalf("expected 400 for bad category, got %d", res.StatusCode)
	}

	req = multipartRequest(t, srv.URL+"/api/materials/upload", map[string]string{"category": "lecture"}, "big.bin", bytes.Repeat([]byte("a"), 4096), auth)
	if res, _ = send(t, srv.client, req); res.StatusCode != http.StatusRequestEntityTooLarge {
		t.Fatalf("expected 413, got %d", res.StatusCode)
	}

	res, _ = doJSON(t, srv.client, http.MethodDelete, srv.URL+"/api/materials/files/"+id, nil, auth)
	if res.StatusCode != http.StatusNoContent {
		t.Fatalf("delete status %d", res.StatusCode)
	}
	if _, ok := srv.data.Blob(id); ok {
		t.Fatal("blob survived delete")
	}
}

func TestImportStudentsSkipsInvalidRows(t *testing.T) {
	srv := newTestServer(t, 0)
	auth := srv.login(t)
	before := srv.data.Students.Len()

	sheet := "name,phone,class,subjects,class_times,monthly_fee\n" +
		"Nia,9000000010,9,Maths;Science,Monday-04:00 PM;Friday-05:00 PM,1400\n" +
		"Omar,12345,9,,,\n" +
		"Pia,9000000011,9,,Someday-04:00 PM,\n" +
		"Raj,9000000012,9,,,lots\n" +
		"Sam,9000000013,9,,,900\n"
	req := multipartRequest(t, srv.URL+"/api/data/students/import", nil, "students.csv", []byte(sheet), auth)
	res, data := send(t, srv.client, req)
	if res.StatusCode != http.StatusOK {
		t.Fatalf("import status %d: %s", res.StatusCode, data)
	}
	var out domain.ImportResult
	if err := json.Unmarshal(data, &out); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if out.Imported != 2 || len(out.Skipped) != 3 {
		t.Fatalf("unexpected result: %+v", out)
	}
	if !strings.HasPrefix(out.Skipped[0], "row 3:") {
		t.Fatalf("unexpected skip message %q", out.Skipped[0])
	}
	if got := srv.data.Students.Len(); got != before+2 {
		t.Fatalf("expected %d students, got %d", before+2, got)
	}
	nia := srv.data.Students.List(func(s domain.Student) bool { return s.Name == "Nia" })
	if len(nia) != 1 || len(nia[0].ClassTimes) != 2 || nia[0].MonthlyFee != 1400 {
		t.Fatalf("unexpected imported student: %+v", nia)
	}
	if len(srv.data.Files.List(func(f domain.StoredFile) bool { return f.Category == "import" })) != 1 {
		t.Fatal("sheet not kept")
	}

	req = multipartRequest(t, srv.URL+"/api/data/students/import", nil, "bad.csv", []byte("email\nx@y.z\n"), auth)
	if res, _ = send(t, srv.client, req); res.StatusCode != http.StatusBadRequest {
		t.Fatalf("expected 400 for missing columns, got %d", res.StatusCode)
	}
}

func TestChangeCredentials(t *testing.T) {
	srv := newTestServer(t, 0)
	auth := srv.login(t)
	url := srv.URL + "/api/auth/change-credentials"

	res, data := doJSON(t, srv.client, http.MethodPut, url, domain.CredentialChange{CurrentPassword: "nope", NewPassword: "brand-new-pass"}, auth)
	if res.StatusCode != http.StatusBadRequest || gjson.GetBytes(data, "error.code").String() != "wrong_password" {
		t.Fatalf("expected wrong_password, got %d: %s", res.StatusCode, data)
	}
	res, _ = doJSON(t, srv.client, http.MethodPut, url, domain.CredentialChange{CurrentPassword: testPassword}, auth)
	if res.StatusCode != http.StatusBadRequest {
		t.Fatalf("expected 400 with nothing to change, got %d", res.StatusCode)
	}
	res, data = doJSON(t, srv.client, http.MethodPut, url, domain.CredentialChange{CurrentPassword: testPassword, NewPassword: "brand-new-pass"}, auth)
	if res.StatusCode != http.StatusOK {
		t.Fatalf("change status %d: %s", res.StatusCode, data)
	}
	if _, ok := srv.data.CheckCredentials(testEmail, testPassword); ok {
		t.Fatal("old password still accepted")
	}
	if _, ok := srv.data.CheckCredentials(testEmail, "brand-new-pass"); !ok {
		t.Fatal("new password rejected")
	}
}

func TestMetricsCountRoutes(t *testing.T) {
	srv := newTestServer(t, 0)
	doJSON(t, srv.client, http.MethodGet, srv.URL+"/api/health", nil, nil)
	res, data := doJSON(t, srv.client, http.MethodGet, srv.URL+"/metrics", nil, nil)
	if res.StatusCode != http.StatusOK {
		t.Fatalf("metrics status %d", res.StatusCode)
	}
	if !strings.Contains(string(data), `academy_devapi_requests_total{code="200",method="GET",route="/api/health"} 1`) {
		t.Fatalf("health request not counted:\n%s", data)
	}
}
