package store

import (
	"encoding/json"
	"fmt"
	"time"
)

const (
	suffixRequest = "/REQUEST"
	suffixSuccess = "/SUCCESS"
	suffixFailure = "/FAILURE"
	suffixUpsert  = "/UPSERT"
	suffixRemove  = "/REMOVE"
)

// RequestType, SuccessType and FailureType name the three outcome actions of
// a feature prefix, e.g. "students/SUCCESS".
func RequestType(prefix string) string { return prefix + suffixRequest }
func SuccessType(prefix string) string { return prefix + suffixSuccess }
func FailureType(prefix string) string { return prefix + suffixFailure }

// UpsertType and RemoveType name single-item edits of a keyed list.
func UpsertType(prefix string) string { return prefix + suffixUpsert }
func RemoveType(prefix string) string { return prefix + suffixRemove }

// ListSlice is the common shape of a fetched collection.
type ListSlice[T any] struct {
	Items     []T
	Loading   bool
	Error     string
	UpdatedAt time.Time
}

func (l ListSlice[T]) IsLoading() bool { return l.Loading }

type listReducer[T any] struct {
	name   string
	prefix string
	key    func(T) string
	now    func() time.Time
}

// NewListReducer reduces <prefix>/REQUEST|SUCCESS|FAILURE into a ListSlice.
// A SUCCESS payload is the raw JSON array returned by the API, or a []T.
func NewListReducer[T any](name, prefix string) Reducer {
	return listReducer[T]{name: name, prefix: prefix, now: time.Now}
}

// NewKeyedListReducer also applies <prefix>/UPSERT, whose payload is one T
// (or its JSON), and <prefix>/REMOVE, whose payload is the item key.
func NewKeyedListReducer[T any](name, prefix string, key func(T) string) Reducer {
	return listReducer[T]{name: name, prefix: prefix, key: key, now: time.Now}
}

func (r listReducer[T]) Name() string   { return r.name }
func (r listReducer[T]) Prefix() string { return r.prefix }
func (r listReducer[T]) Initial() any { return ListSlice[T]{} }

func (r listReducer[T]) Reduce(state any, a Action) any {
	cur, _ := state.(ListSlice[T])
	switch a.Type {
	case RequestType(r.prefix):
		cur.Loading = true
		cur.Error = ""
	case SuccessType(r.prefix):
		items, err := decodeItems[T](a.Payload)
		cur.Loading = false
		if err != nil {
			cur.Error = err.Error()
			return cur
		}
		cur.Items = items
		cur.Error = ""
		cur.UpdatedAt = r.now()
	case FailureType(r.prefix):
		cur.Loading = false
		cur.Error = errorMessage(a)
	case UpsertType(r.prefix):
		if r.key == nil {
			return cur
		}
		item, err := decodeItem[T](a.Payload)
		if err != nil {
			cur.Error = err.Error()
			return cur
		}
		cur.Items = upsert(cur.Items, item, r.key)
		cur.Error = ""
	case RemoveType(r.prefix):
		id, _ := a.Payload.(string)
		if r.key == nil || id == "" {
			return cur
		}
		kept := make([]T, 0, len(cur.Items))
		for _, it := range cur.Items {
			if r.key(it) != id {
				kept = append(kept, it)
			}
		}
		cur.Items = kept
	}
	return cur
}

// upsert copies items so earlier snapshots keep their backing array.
func upsert[T any](items []T, item T, key func(T) string) []T {
	out := make([]T, len(items), len(items)+1)
	copy(out, items)
	id := key(item)
	for i := range out {
		if key(out[i]) == id {
			out[i] = item
			return out
		}
	}
	return append(out, item)
}

func decodeItem[T any](payload any) (T, error) {
	var item T
	switch p := payload.(type) {
	case T:
		return p, nil
	case json.RawMessage:
		err := json.Unmarshal(p, &item)
		return item, err
	case []byte:
		err := json.Unmarshal(p, &item)
		return item, err
	default:
		return item, fmt.Errorf("unexpected payload %T", payload)
	}
}

func decodeItems[T any](payload any) ([]T, error) {
	switch p := payload.(type) {
	case []T:
		return append([]T(nil), p...), nil
	case json.RawMessage:
		return unmarshalItems[T](p)
	case []byte:
		return unmarshalItems[T](p)
	case nil:
		return nil, nil
	default:
		return nil, fmt.Errorf("unexpected payload %T", payload)
	}
}

func unmarshalItems[T any](data []byte) ([]T, error) {
	if len(data) == 0 || string(data) == "null" {
		return nil, nil
	}
	var items []T
	if err := json.Unmarshal(data, &items); err != nil {
		// Some endpoints wrap lists as {"items": [...]}.
		var wrapped struct {
			Items []T `json:"items"`
		}
		if werr := json.Unmarshal(data, &wrapped); werr != nil {
			return nil, fmt.Errorf("decode list: %w", err)
		}
		return wrapped.Items, nil
	}
	return items, nil
}

// errorMessage prefers the user-facing payload text over Err's detail.
func errorMessage(a Action) string {
	if msg, ok := a.Payload.(string); ok && msg != "" {
		return msg
	}
	if a.Err != nil {
		return a.Err.Error()
	}
	return "request failed"
}

const (
	AuthSliceName   = "auth"
	ActionLogin     = "auth/LOGIN_SUCCESS"
	ActionLoginFail = "auth/LOGIN_FAILURE"
	ActionLogout    = "auth/LOGOUT"
	ActionAuthError = "auth/ERROR"
	ActionNotice    = "ui/NOTICE"
	NoticeSliceName = "notice"
)

// AuthSlice tracks whether the console is signed in. ActionAuthError is the
// global sign-out signal raised on missing credentials and 401/403 answers.
type AuthSlice struct {
	LoggedIn bool
	Email    string
	Roles    []string
	Error    string
}

// LoginPayload is carried by ActionLogin.
type LoginPayload struct {
	Email string
	Roles []string
}

type authReducer struct {
	initial AuthSlice
}

// NewAuthReducer starts from the session restored at boot.
func NewAuthReducer(initial AuthSlice) Reducer { return authReducer{initial: initial} }

func (authReducer) Name() string   { return AuthSliceName }
func (r authReducer) Initial() any { return r.initial }

func (authReducer) Reduce(state any, a Action) any {
	cur, _ := state.(AuthSlice)
	switch a.Type {
	case ActionLogin:
		p, _ := a.Payload.(LoginPayload)
		return AuthSlice{LoggedIn: true, Email: p.Email, Roles: p.Roles}
	case ActionLoginFail:
		return AuthSlice{Error: errorMessage(a)}
	case ActionLogout:
		return AuthSlice{}
	case ActionAuthError:
		return AuthSlice{Error: errorMessage(a)}
	}
	return cur
}

// Notice is the transient banner shown after an action settles.
type Notice struct {
	Message string
	IsError bool
	At      time.Time
}

type noticeReducer struct{}

// NewNoticeReducer keeps the latest ui/NOTICE and every failure message.
func NewNoticeReducer() Reducer { return noticeReducer{} }

func (noticeReducer) Name() string { return NoticeSliceName }
func (noticeReducer) Initial() any { return Notice{} }

func (noticeReducer) Reduce(state any, a Action) any {
	cur, _ := state.(Notice)
	switch {
	case a.Type == ActionNotice:
		msg, _ := a.Payload.(string)
		return Notice{Message: msg, IsError: a.Err != nil, At: time.Now()}
	case a.Err != nil:
		return Notice{Message: errorMessage(a), IsError: true, At: time.Now()}
	}
	return cur
}
