package dispatch

import (
	"encoding/json"
	"fmt"
	"io"
	"time"

	"academydesk/internal/store"
)

// Descriptor declares one network call and its continuations.
type Descriptor struct {
	Path         string
	Method       string
	Body         Body
	Query        map[string]string
	OnStart      Outcome
	OnSuccess    Outcome
	OnFailure    Outcome
	RequiresAuth bool
	// Timeout bounds the call; zero uses the interpreter default.
	Timeout time.Duration
}

// Outcome is either a Marker or a Callback.
type Outcome interface {
	outcome()
}

// Marker is dispatched as a store action of the given type. On success the
// payload is the raw JSON body; on failure Err carries the *Error.
type Marker struct {
	Type string
}

func (Marker) outcome() {}

// Callback receives the result and a handle to dispatch further actions.
type Callback func(Result, store.Dispatcher)

func (Callback) outcome() {}

// Result is what a continuation receives. OnStart callbacks get the zero value.
type Result struct {
	Data json.RawMessage
	Err  *Error
}

// Decode unmarshals the response body into v.
func (r Result) Decode(v any) error {
	if r.Err != nil {
		return r.Err
	}
	if len(r.Data) == 0 {
		return fmt.Errorf("empty response body")
	}
	return json.Unmarshal(r.Data, v)
}

// Body is a request payload.
type Body interface {
	body()
}

// JSONBody is encoded with encoding/json.
type JSONBody struct {
	Value any
}

func (JSONBody) body() {}

// MultipartBody is sent as multipart/form-data.
type MultipartBody struct {
	Fields map[string]string
	Files  []FilePart
}

func (MultipartBody) body() {}

// FilePart is one file field of a multipart body.
type FilePart struct {
	Field    string
	Filename string
	Content  io.Reader
}
