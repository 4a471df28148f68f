package authclient

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
)

type envelope[T any] struct {
	Success bool         `json:"success"`
	Message string       `json:"message"`
	Data    T            `json:"data"`
	Errors  []fieldError `json:"errors"`
}

type fieldError struct {
	Code    string `json:"code"`
	Field   string `json:"field"`
	Message string `json:"message"`
}

type tokenPair struct {
	AccessToken  string `json:"accessToken"`
	RefreshToken string `json:"refreshToken"`
}

type loginData struct {
	tokenPair
	Session struct {
		SessionID string `json:"sessionId"`
	} `json:"session"`
}

// APIError is a non-2xx answer from the API.
type APIError struct {
	Status  int
	Code    string
	Message string
}

func (e *APIError) Error() string {
	if e.Code == "" {
		return fmt.Sprintf("authclient: unexpected status %d", e.Status)
	}
	return fmt.Sprintf("authclient: %d %s: %s", e.Status, e.Code, e.Message)
}

func newAPIError(resp *http.Response) *APIError {
	apiErr := &APIError{Status: resp.StatusCode}
	var env envelope[json.RawMessage]
	if err := json.NewDecoder(io.LimitReader(resp.Body, maxErrorBodyBytes)).Decode(&env); err == nil {
		apiErr.Message = env.Message
		if len(env.Errors) > 0 {
			apiErr.Code = env.Errors[0].Code
		}
	}
	return apiErr
}
