package actions

import (
	"io"
	"net/http"
	"slices"

	"academydesk/internal/dispatch"
	"academydesk/internal/domain"
	"academydesk/internal/store"
	"academydesk/internal/validate"
)

const (
	uploadPath = materialsPrefix + "/upload"
	filesPath  = materialsPrefix + "/files"
)

// FileCategories are the upload areas the materials API accepts.
var FileCategories = []string{"employee", "important", "lecture", "profile"}

func (c *Creators) FetchFiles(category string) dispatch.Descriptor {
	return fetch(Files, filesPath, query("category", category))
}

// UploadFile sends one document to the materials store. The answer is the
// stored-file descriptor, which joins the files slice.
func (c *Creators) UploadFile(category, filename string, content io.Reader) (dispatch.Descriptor, error) {
	var fields []validate.FieldError
	if !slices.Contains(FileCategories, category) {
		fields = append(fields, validate.FieldError{Field: "category", Message: "category must be one of employee, important, lecture, profile"})
	}
	if filename == "" || content == nil {
		fields = append(fields, validate.FieldError{Field: "file", Message: "this field is required"})
	}
	if err := validate.Fields(fields...); err != nil {
		return dispatch.Descriptor{}, err
	}
	return dispatch.Descriptor{
		Method: http.MethodPost,
		Path:   uploadPath,
		Body: dispatch.MultipartBody{
			Fields: map[string]string{"category": category},
			Files:  []dispatch.FilePart{{Field: "file", Filename: filename, Content: content}},
		},
		OnSuccess: dispatch.Callback(func(r dispatch.Result, d store.Dispatcher) {
			var f domain.StoredFile
			if err := r.Decode(&f); err != nil {
				d.Dispatch(store.Action{Type: store.FailureType(Files), Payload: err.Error(), Err: err})
				return
			}
			d.Dispatch(store.Action{Type: store.UpsertType(Files), Payload: f})
			d.Dispatch(store.Action{Type: store.ActionNotice, Payload: notice("Uploaded %s", f.Name)})
		}),
		OnFailure:    dispatch.Marker{Type: store.FailureType(Files)},
		RequiresAuth: true,
		Timeout:      uploadTimeout,
	}, nil
}

// DeleteFile is a destructive action; callers confirm before dispatching.
func (c *Creators) DeleteFile(id string) (dispatch.Descriptor, error) {
	if err := required("id", id); err != nil {
		return dispatch.Descriptor{}, err
	}
	return remove(Files, item(filesPath, id), id, "File deleted"), nil
}
