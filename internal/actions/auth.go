package actions

import (
	"context"
	"errors"
	"net/http"

	"academydesk/internal/dispatch"
	"academydesk/internal/domain"
	"academydesk/internal/session"
	"academydesk/internal/store"
	"academydesk/internal/validate"
)

const (
	loginPath             = authPrefix + "/login"
	changeCredentialsPath = authPrefix + "/change-credentials"
)

var errNoSession = errors.New("no session configured")

// Login exchanges credentials for a token. On success the token and
// profile are persisted before auth/LOGIN_SUCCESS is dispatched.
func (c *Creators) Login(ctx context.Context, creds domain.Credentials) (dispatch.Descriptor, error) {
	if err := c.validate.Struct(creds); err != nil {
		return dispatch.Descriptor{}, err
	}
	return dispatch.Descriptor{
		Method: http.MethodPost,
		Path:   loginPath,
		Body:   dispatch.JSONBody{Value: creds},
		OnSuccess: dispatch.Callback(func(r dispatch.Result, d store.Dispatcher) {
			var res domain.LoginResult
			err := r.Decode(&res)
			if err == nil {
				err = c.signIn(ctx, res)
			}
			if err != nil {
				d.Dispatch(store.Action{Type: store.ActionLoginFail, Payload: err.Error(), Err: err})
				return
			}
			d.Dispatch(store.Action{Type: store.ActionLogin, Payload: store.LoginPayload{Email: res.User.Email, Roles: res.User.Roles}})
		}),
		OnFailure: dispatch.Marker{Type: store.ActionLoginFail},
	}, nil
}

func (c *Creators) signIn(ctx context.Context, res domain.LoginResult) error {
	if c.session == nil {
		return errNoSession
	}
	return c.session.SignIn(ctx, res.Token, session.Profile{UserID: res.User.ID, Email: res.User.Email, Roles: res.User.Roles})
}

// Logout clears the stored credential and resets the auth slice. It never
// touches the network.
func (c *Creators) Logout(ctx context.Context, d store.Dispatcher) error {
	if c.session != nil {
		if err := c.session.SignOut(ctx); err != nil {
			return err
		}
	}
	d.Dispatch(store.Action{Type: store.ActionLogout})
	return nil
}

// ChangeCredentials replaces the admin login. The old token stops being
// useful, so a success signs the console out.
func (c *Creators) ChangeCredentials(ctx context.Context, ch domain.CredentialChange) (dispatch.Descriptor, error) {
	if err := c.validate.Struct(ch); err != nil {
		return dispatch.Descriptor{}, err
	}
	if ch.NewEmail == "" && ch.NewPassword == "" {
		return dispatch.Descriptor{}, validate.Fields(validate.FieldError{Field: "new_email", Message: "set a new email or a new password"})
	}
	return dispatch.Descriptor{
		Method: http.MethodPut,
		Path:   changeCredentialsPath,
		Body:   dispatch.JSONBody{Value: ch},
		OnSuccess: dispatch.Callback(func(_ dispatch.Result, d store.Dispatcher) {
			_ = c.Logout(ctx, d)
			d.Dispatch(store.Action{Type: store.ActionNotice, Payload: "Credentials updated, sign in again"})
		}),
		OnFailure:    dispatch.Marker{Type: store.ActionNotice},
		RequiresAuth: true,
	}, nil
}
