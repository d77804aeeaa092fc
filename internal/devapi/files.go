package devapi

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"slices"
	"strconv"
	"strings"

	"github.com/danielgtaylor/huma/v2"
	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"academydesk/internal/domain"
)

var uploadCategories = []string{"employee", "important", "lecture", "profile"}

// importColumns lists the student sheet header. name and phone are required.
var importColumns = []string{"name", "email", "phone", "class", "subjects", "class_times", "monthly_fee"}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// readUpload parses a multipart request and returns its "file" part.
func (s *server) readUpload(w http.ResponseWriter, r *http.Request) (multipart.File, *multipart.FileHeader, bool) {
	if r.ContentLength > s.maxUpload {
		respondStatusError(w, tooLarge(s.maxUpload))
		return nil, nil, false
	}
	r.Body = http.MaxBytesReader(w, r.Body, s.maxUpload)
	if err := r.ParseMultipartForm(s.maxUpload); err != nil {
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			respondStatusError(w, tooLarge(s.maxUpload))
			return nil, nil, false
		}
		respondStatusError(w, newAPIError(http.StatusBadRequest, "", "expected a multipart form", nil))
		return nil, nil, false
	}
	file, header, err := r.FormFile("file")
	if err != nil {
		respondStatusError(w, newAPIError(http.StatusBadRequest, "", "file part is required", nil))
		return nil, nil, false
	}
	return file, header, true
}

func tooLarge(limit int64) huma.StatusError {
	return newAPIError(http.StatusRequestEntityTooLarge, "too_large", fmt.Sprintf("upload exceeds %d bytes", limit), nil)
}

func (s *server) storeFile(category string, header *multipart.FileHeader, data []byte) domain.StoredFile {
	contentType := header.Header.Get("Content-Type")
	if contentType == "" || contentType == "application/octet-stream" {
		contentType = http.DetectContentType(data)
	}
	f := s.data.Files.Create(domain.StoredFile{
		Name:        header.Filename,
		Category:    category,
		Size:        int64(len(data)),
		ContentType: contentType,
	})
	f, _ = s.data.Files.Update(f.ID, func(cur *domain.StoredFile) {
		cur.URL = basePath + "/materials/files/" + cur.ID + "/content"
	})
	s.data.PutBlob(f.ID, data)
	return f
}

func (s *server) upload(w http.ResponseWriter, r *http.Request) {
	file, header, ok := s.readUpload(w, r)
	if !ok {
		return
	}
	defer file.Close()
	category := r.FormValue("category")
	if !slices.Contains(uploadCategories, category) {
		respondStatusError(w, newAPIError(http.StatusBadRequest, "validation_failed",
			"category must be one of "+strings.Join(uploadCategories, ", "), nil))
		return
	}
	data, err := io.ReadAll(file)
	if err != nil {
		respondStatusError(w, handleError(err))
		return
	}
	f := s.storeFile(category, header, data)
	s.log.Info("file uploaded", zap.String("id", f.ID), zap.String("category", category), zap.Int64("size", f.Size))
	writeJSON(w, http.StatusCreated, f)
}

func (s *server) download(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	f, err := s.data.Files.Get(id)
	if err != nil {
		respondStatusError(w, handleError(err))
		return
	}
	data, ok := s.data.Blob(id)
	if !ok {
		respondStatusError(w, handleError(ErrNotFound))
		return
	}
	w.Header().Set("Content-Type", f.ContentType)
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", f.Name))
	w.Header().Set("Content-Length", strconv.Itoa(len(data)))
	_, _ = w.Write(data)
}

// importStudents reads a CSV sheet and creates one student per valid row.
// Invalid rows are reported and skipped; the sheet itself is kept under the
// import category.
func (s *server) importStudents(w http.ResponseWriter, r *http.Request) {
	file, header, ok := s.readUpload(w, r)
	if !ok {
		return
	}
	defer file.Close()
	data, err := io.ReadAll(file)
	if err != nil {
		respondStatusError(w, handleError(err))
		return
	}
	students, res, err := s.parseStudentSheet(bytes.NewReader(data))
	if err != nil {
		respondStatusError(w, newAPIError(http.StatusBadRequest, "invalid_sheet", err.Error(), nil))
		return
	}
	for _, st := range students {
		s.data.Students.Create(st)
	}
	s.storeFile("import", header, data)
	s.log.Info("students imported", zap.Int("imported", res.Imported), zap.Int("skipped", len(res.Skipped)))
	writeJSON(w, http.StatusOK, res)
}

func (s *server) parseStudentSheet(r io.Reader) ([]domain.Student, domain.ImportResult, error) {
	var res domain.ImportResult
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	cr.TrimLeadingSpace = true
	head, err := cr.Read()
	if err != nil {
		return nil, res, fmt.Errorf("read header: %w", err)
	}
	col := map[string]int{}
	for i, h := range head {
		col[strings.ToLower(strings.TrimSpace(strings.TrimPrefix(h, "\ufeff")))] = i
	}
	for _, need := range []string{"name", "phone"} {
		if _, ok := col[need]; !ok {
			return nil, res, fmt.Errorf("missing column %q (expected %s)", need, strings.Join(importColumns, ","))
		}
	}
	cell := func(rec []string, name string) string {
		i, ok := col[name]
		if !ok || i >= len(rec) {
			return ""
		}
		return strings.TrimSpace(rec[i])
	}

	var out []domain.Student
	for line := 2; ; line++ {
		rec, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			res.Skipped = append(res.Skipped, fmt.Sprintf("row %d: %v", line, err))
			continue
		}
		st := domain.Student{
			Name:       cell(rec, "name"),
			Email:      cell(rec, "email"),
			Phone:      cell(rec, "phone"),
			Class:      cell(rec, "class"),
			Subjects:   splitList(cell(rec, "subjects")),
			ClassTimes: splitList(cell(rec, "class_times")),
		}
		if st.Name == "" && st.Phone == "" {
			continue
		}
		if fee := cell(rec, "monthly_fee"); fee != "" {
			v, err := strconv.ParseFloat(fee, 64)
			if err != nil {
				res.Skipped = append(res.Skipped, fmt.Sprintf("row %d: monthly_fee %q is not a number", line, fee))
				continue
			}
			st.MonthlyFee = v
		}
		if err := s.validate.Struct(st); err != nil {
			res.Skipped = append(res.Skipped, fmt.Sprintf("row %d: %v", line, err))
			continue
		}
		out = append(out, st)
	}
	res.Imported = len(out)
	return out, res, nil
}

func splitList(raw string) []string {
	var out []string
	for _, p := range strings.Split(raw, ";") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
