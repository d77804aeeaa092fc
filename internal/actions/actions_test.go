package actions_test

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"academydesk/internal/actions"
	"academydesk/internal/dispatch"
	"academydesk/internal/domain"
	"academydesk/internal/session"
	"academydesk/internal/store"
	"academydesk/internal/validate"
)

type testEnv struct {
	creators *actions.Creators
	session  *session.Session
	store    *store.Store
	in       *dispatch.Interpreter

	mu   sync.Mutex
	hits []*http.Request
}

func newTestEnv(t *testing.T, handler http.HandlerFunc) *testEnv {
	t.Helper()
	env := &testEnv{session: session.New(session.NewMemoryKV())}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		env.mu.Lock()
		env.hits = append(env.hits, r.Clone(context.Background()))
		env.mu.Unlock()
		handler(w, r)
	}))
	t.Cleanup(srv.Close)

	env.store = store.New(actions.Reducers(store.AuthSlice{})...)
	env.store.Subscribe(actions.SignOutOnAuthError(context.Background(), env.session, nil))
	env.creators = actions.New(validate.New(), env.session)
	env.in = dispatch.New(dispatch.Config{
		BaseURL:     srv.URL,
		Credentials: env.session,
		Dispatcher:  env.store,
	})
	return env
}

func (e *testEnv) signIn(t *testing.T) {
	t.Helper()
	require.NoError(t, e.session.SignIn(context.Background(), "tok", session.Profile{UserID: "u1", Email: "admin@academy.test"}))
}

func (e *testEnv) hitCount() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return len(e.hits)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func TestValidationFailureNeverReachesNetwork(t *testing.T) {
	env := newTestEnv(t, func(w http.ResponseWriter, r *http.Request) { t.Error("unexpected request") })
	d, err := env.creators.CreateStudent(domain.Student{Name: "Asha", Phone: "12345"})
	verr, ok := validate.As(err)
	require.True(t, ok)
	assert.Equal(t, "phone", verr.Fields[0].Field)
	assert.Empty(t, d.Path)
	assert.Zero(t, env.hitCount())
}

func TestLoginPersistsSessionThenFetchUsesToken(t *testing.T) {
	env := newTestEnv(t, func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/api/auth/login":
			writeJSON(w, http.StatusOK, domain.LoginResult{Token: "jwt-1", User: domain.User{ID: "u1", Email: "admin@academy.test", Roles: []string{"admin"}}})
		case "/api/data/students":
			if r.Header.Get("Authorization") != "Bearer jwt-1" {
				writeJSON(w, http.StatusUnauthorized, map[string]any{"error": map[string]string{"message": "bad token"}})
				return
			}
			writeJSON(w, http.StatusOK, []domain.Student{{ID: "S1", Name: "Asha"}})
		}
	})
	ctx := context.Background()

	d, err := env.creators.Login(ctx, domain.Credentials{Email: "admin@academy.test", Password: "secret1"})
	require.NoError(t, err)
	assert.False(t, d.RequiresAuth)
	require.NoError(t, env.in.Dispatch(ctx, d))

	auth := store.Select[store.AuthSlice](env.store, store.AuthSliceName)
	assert.True(t, auth.LoggedIn)
	assert.Equal(t, []string{"admin"}, auth.Roles)
	tok, err := env.session.Token(ctx)
	require.NoError(t, err)
	assert.Equal(t, "jwt-1", tok)

	require.NoError(t, env.in.Dispatch(ctx, env.creators.FetchStudents()))
	list := store.Select[store.ListSlice[domain.Student]](env.store, actions.Students)
	require.Len(t, list.Items, 1)
	assert.Equal(t, "Asha", list.Items[0].Name)
}

func TestLoginFailureKeepsSignedOut(t *testing.T) {
	env := newTestEnv(t, func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusBadRequest, map[string]any{"error": map[string]string{"code": "invalid_credentials", "message": "wrong email or password"}})
	})
	d, err := env.creators.Login(context.Background(), domain.Credentials{Email: "admin@academy.test", Password: "nope123"})
	require.NoError(t, err)
	require.Error(t, env.in.Dispatch(context.Background(), d))
	auth := store.Select[store.AuthSlice](env.store, store.AuthSliceName)
	assert.False(t, auth.LoggedIn)
	assert.Equal(t, "wrong email or password", auth.Error)
}

func TestUnauthorizedAnswerSignsOut(t *testing.T) {
	env := newTestEnv(t, func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusUnauthorized, map[string]any{"error": map[string]string{"message": "token expired"}})
	})
	env.signIn(t)
	ctx := context.Background()

	err := env.in.Dispatch(ctx, env.creators.FetchPayments("2025-06"))
	require.Error(t, err)
	_, err = env.session.Token(ctx)
	assert.ErrorIs(t, err, session.ErrNoCredential)
	assert.Equal(t, "token expired", store.Select[store.ListSlice[domain.Payment]](env.store, actions.Payments).Error)
	assert.Equal(t, "month=2025-06", env.hits[0].URL.RawQuery)
}

func TestCreateUpdateDeleteStudent(t *testing.T) {
	env := newTestEnv(t, func(w http.ResponseWriter, r *http.Request) {
		switch r.Method {
		case http.MethodPost:
			var s domain.Student
			_ = json.NewDecoder(r.Body).Decode(&s)
			s.ID = "S7"
			writeJSON(w, http.StatusCreated, s)
		case http.MethodPut:
			var s domain.Student
			_ = json.NewDecoder(r.Body).Decode(&s)
			writeJSON(w, http.StatusOK, s)
		case http.MethodDelete:
			w.WriteHeader(http.StatusNoContent)
		}
	})
	env.signIn(t)
	ctx := context.Background()

	d, err := env.creators.CreateStudent(domain.Student{Name: "Asha", Phone: "9876543210"})
	require.NoError(t, err)
	require.NoError(t, env.in.Dispatch(ctx, d))
	items := store.Select[store.ListSlice[domain.Student]](env.store, actions.Students).Items
	require.Len(t, items, 1)
	assert.Equal(t, "S7", items[0].ID)
	assert.Equal(t, "Student Asha added", store.Select[store.Notice](env.store, store.NoticeSliceName).Message)

	items[0].Name = "Asha R"
	d, err = env.creators.UpdateStudent(items[0])
	require.NoError(t, err)
	require.NoError(t, env.in.Dispatch(ctx, d))
	assert.Equal(t, "/api/data/students/S7", env.hits[1].URL.Path)
	assert.Equal(t, "Asha R", store.Select[store.ListSlice[domain.Student]](env.store, actions.Students).Items[0].Name)

	d, err = env.creators.DeleteStudent("S7")
	require.NoError(t, err)
	require.NoError(t, env.in.Dispatch(ctx, d))
	assert.Empty(t, store.Select[store.ListSlice[domain.Student]](env.store, actions.Students).Items)
}

func TestEnterMarkRejectsScoreAboveMax(t *testing.T) {
	c := actions.New(nil, nil)
	_, err := c.EnterMark(domain.Mark{StudentID: "S1", Score: 55}, domain.Exam{ID: "X1", MaxMarks: 50})
	verr, ok := validate.As(err)
	require.True(t, ok)
	assert.Equal(t, "score", verr.Fields[0].Field)

	d, err := c.EnterMark(domain.Mark{StudentID: "S1", Score: 50}, domain.Exam{ID: "X1", MaxMarks: 50})
	require.NoError(t, err)
	assert.Equal(t, "X1", d.Body.(dispatch.JSONBody).Value.(domain.Mark).ExamID)
}

func TestUploadFileSendsMultipart(t *testing.T) {
	env := newTestEnv(t, func(w http.ResponseWriter, r *http.Request) {
		if !assert.NoError(t, r.ParseMultipartForm(1<<20)) {
			return
		}
		f, hdr, err := r.FormFile("file")
		if !assert.NoError(t, err) {
			return
		}
		body, _ := io.ReadAll(f)
		writeJSON(w, http.StatusCreated, domain.StoredFile{
			ID: "F1", Name: hdr.Filename, Category: r.FormValue("category"), Size: int64(len(body)),
		})
	})
	env.signIn(t)

	_, err := env.creators.UploadFile("memes", "a.pdf", strings.NewReader("x"))
	require.Error(t, err)

	d, err := env.creators.UploadFile("lecture", "notes.pdf", strings.NewReader("%PDF-1.4"))
	require.NoError(t, err)
	require.NoError(t, env.in.Dispatch(context.Background(), d))
	files := store.Select[store.ListSlice[domain.StoredFile]](env.store, actions.Files).Items
	require.Len(t, files, 1)
	assert.Equal(t, "lecture", files[0].Category)
	assert.EqualValues(t, 8, files[0].Size)
}

func TestChangeCredentialsSignsOut(t *testing.T) {
	env := newTestEnv(t, func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]bool{"ok": true})
	})
	env.signIn(t)
	ctx := context.Background()

	_, err := env.creators.ChangeCredentials(ctx, domain.CredentialChange{CurrentPassword: "old"})
	require.Error(t, err)

	d, err := env.creators.ChangeCredentials(ctx, domain.CredentialChange{CurrentPassword: "old", NewPassword: "longer-secret"})
	require.NoError(t, err)
	require.NoError(t, env.in.Dispatch(ctx, d))
	_, err = env.session.Token(ctx)
	assert.ErrorIs(t, err, session.ErrNoCredential)
	assert.False(t, store.Select[store.AuthSlice](env.store, store.AuthSliceName).LoggedIn)
}

func TestFetchOmitsEmptyFilters(t *testing.T) {
	c := actions.New(nil, nil)
	assert.Nil(t, c.FetchLeads("").Query)
	assert.Equal(t, map[string]string{"status": "new"}, c.FetchLeads("new").Query)
	_, err := c.FetchMarks("")
	assert.Error(t, err)
}

type undeletableKV struct{ *session.MemoryKV }

func (undeletableKV) Delete(context.Context, ...string) error { return errors.New("disk full") }

func TestSignOutFailureIsLogged(t *testing.T) {
	ctx := context.Background()
	core, logs := observer.New(zap.ErrorLevel)
	sess := session.New(undeletableKV{session.NewMemoryKV()})
	require.NoError(t, sess.SignIn(ctx, "tok", session.Profile{UserID: "u1"}))

	st := store.New(actions.Reducers(store.AuthSlice{LoggedIn: true})...)
	st.Subscribe(actions.SignOutOnAuthError(ctx, sess, zap.New(core)))
	st.Dispatch(store.Action{Type: store.ActionAuthError, Payload: "token expired"})

	assert.False(t, store.Select[store.AuthSlice](st, store.AuthSliceName).LoggedIn)
	entries := logs.FilterMessage("sign out after auth error").All()
	require.Len(t, entries, 1)
	assert.Equal(t, "disk full", entries[0].ContextMap()["error"])
}
