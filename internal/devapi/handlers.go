package devapi

import (
	"context"
	"net/http"

	"github.com/danielgtaylor/huma/v2"

	"academydesk/internal/domain"
)

func (s *server) registerAuth(api huma.API) {
	huma.Register(api, huma.Operation{
		OperationID: "login",
		Method:      http.MethodPost,
		Path:        "/auth/login",
		Summary:     "Sign in as the academy admin",
		Errors:      []int{http.StatusBadRequest, http.StatusInternalServerError},
	}, func(ctx context.Context, input *struct {
		Body domain.Credentials `json:"body"`
	}) (*itemOutput[domain.LoginResult], error) {
		if err := s.validate.Struct(input.Body); err != nil {
			return nil, handleError(err)
		}
		user, ok := s.data.CheckCredentials(input.Body.Email, input.Body.Password)
		if !ok {
			s.log.Info("login rejected")
			return nil, newAPIError(http.StatusBadRequest, "invalid_credentials", "wrong email or password", nil)
		}
		token, err := signToken(s.auth, Principal{UserID: user.ID, Email: user.Email, Roles: user.Roles})
		if err != nil {
			return nil, handleError(err)
		}
		return &itemOutput[domain.LoginResult]{Body: domain.LoginResult{Token: token, User: user}}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "me",
		Method:      http.MethodGet,
		Path:        "/auth/me",
		Summary:     "Current principal",
	}, func(ctx context.Context, _ *struct{}) (*itemOutput[domain.User], error) {
		p, ok := principalFromContext(ctx)
		if !ok {
			return nil, newAPIError(http.StatusUnauthorized, "unauthorized", "authentication required", nil)
		}
		return &itemOutput[domain.User]{Body: domain.User{ID: p.UserID, Email: p.Email, Roles: p.Roles}}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "change-credentials",
		Method:      http.MethodPut,
		Path:        "/auth/change-credentials",
		Summary:     "Change the admin email or password",
		Errors:      []int{http.StatusBadRequest},
	}, func(ctx context.Context, input *struct {
		Body domain.CredentialChange `json:"body"`
	}) (*struct {
		Body map[string]string `json:"body"`
	}, error) {
		ch := input.Body
		if err := s.validate.Struct(ch); err != nil {
			return nil, handleError(err)
		}
		if ch.NewEmail == "" && ch.NewPassword == "" {
			return nil, newAPIError(http.StatusBadRequest, "bad_request", "nothing to change", nil)
		}
		if err := s.data.ChangeCredentials(ch.CurrentPassword, ch.NewEmail, ch.NewPassword); err != nil {
			return nil, handleError(err)
		}
		s.log.Info("admin credentials changed")
		return &struct {
			Body map[string]string `json:"body"`
		}{Body: map[string]string{"status": "updated"}}, nil
	})
}

func (s *server) registerMaterials(api huma.API) {
	huma.Register(api, huma.Operation{
		OperationID: "list-files",
		Method:      http.MethodGet,
		Path:        "/materials/files",
		Summary:     "List uploaded files",
	}, func(ctx context.Context, input *struct {
		Category string `query:"category" enum:"employee,important,lecture,profile,import"`
	}) (*listOutput[domain.StoredFile], error) {
		items := s.data.Files.List(func(f domain.StoredFile) bool {
			return input.Category == "" || f.Category == input.Category
		})
		return &listOutput[domain.StoredFile]{Body: items}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID:   "delete-file",
		Method:        http.MethodDelete,
		Path:          "/materials/files/{id}",
		Summary:       "Delete a file",
		DefaultStatus: http.StatusNoContent,
		Errors:        []int{http.StatusNotFound},
	}, func(ctx context.Context, input *idPath) (*struct{}, error) {
		if err := s.data.Files.Delete(input.ID); err != nil {
			return nil, handleError(err)
		}
		s.data.DeleteBlob(input.ID)
		return nil, nil
	})
}
