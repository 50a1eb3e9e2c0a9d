package respond

import (
	"github.com/labstack/echo/v4"
)

// Every JSON response uses the same envelope so clients can branch on
// success without inspecting status codes first.
type Envelope struct {
	Success      bool       `json:"success"`
	Data         any        `json:"data,omitempty"`
	Error        *ErrorBody `json:"error,omitempty"`
	RequireLogin bool       `json:"requireLogin,omitempty"`
}

type ErrorBody struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func OK(c echo.Context, status int, data any) error {
	return c.JSON(status, Envelope{Success: true, Data: data})
}

func Fail(c echo.Context, status int, code, message string) error {
	return c.JSON(status, Envelope{Success: false, Error: &ErrorBody{Code: code, Message: message}})
}

// RequireLogin marks the response so browser clients redirect to the login
// page instead of showing a generic error.
func RequireLogin(c echo.Context, status int, code, message string) error {
	return c.JSON(status, Envelope{
		Success:      false,
		RequireLogin: true,
		Error:        &ErrorBody{Code: code, Message: message},
	})
}
