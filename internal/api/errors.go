package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
)

// ErrInvalidConfig возвращается до сетевого вызова, если конфигурация интервью некорректна
var ErrInvalidConfig = errors.New("некорректная конфигурация интервью")

// Error - ошибка, которую вернул сервер
type Error struct {
	StatusCode int
	// Detail - поле detail из ответа FastAPI, либо сырое тело
	Detail string
	Method string
	Path   string
}

func (e *Error) Error() string {
	if e.Detail != "" {
		return fmt.Sprintf("%s %s: HTTP %d: %s", e.Method, e.Path, e.StatusCode, e.Detail)
	}
	return fmt.Sprintf("%s %s: HTTP %d", e.Method, e.Path, e.StatusCode)
}

// Temporary сообщает, имеет ли смысл повторить запрос вручную
func (e *Error) Temporary() bool {
	return e.StatusCode >= 500 || e.StatusCode == http.StatusTooManyRequests
}

// IsTemporary сообщает, что сервер временно не смог обработать запрос
func IsTemporary(err error) bool {
	var apiErr *Error
	return errors.As(err, &apiErr) && apiErr.Temporary()
}

// IsNotFound сообщает, что сервер ответил 404
func IsNotFound(err error) bool {
	return statusOf(err) == http.StatusNotFound
}

// IsUnauthorized сообщает, что сервер отклонил токен или доступ
func IsUnauthorized(err error) bool {
	status := statusOf(err)
	return status == http.StatusUnauthorized || status == http.StatusForbidden
}

// Detail возвращает текст ошибки, пригодный для показа пользователю
func Detail(err error) string {
	var apiErr *Error
	if errors.As(err, &apiErr) && apiErr.Detail != "" {
		return apiErr.Detail
	}
	if err == nil {
		return ""
	}
	return err.Error()
}

func statusOf(err error) int {
	var apiErr *Error
	if errors.As(err, &apiErr) {
		return apiErr.StatusCode
	}
	return 0
}

// newError разбирает тело ответа с ошибкой. FastAPI кладет причину в detail,
// который бывает строкой или списком ошибок валидации.
func newError(method, path string, status int, body []byte) *Error {
	apiErr := &Error{StatusCode: status, Method: method, Path: path}

	var payload struct {
		Detail json.RawMessage `json:"detail"`
	}
	if err := json.Unmarshal(body, &payload); err == nil && len(payload.Detail) > 0 {
		var text string
		if err := json.Unmarshal(payload.Detail, &text); err == nil {
			apiErr.Detail = text
			return apiErr
		}

		var items []struct {
			Msg string `json:"msg"`
		}
		if err := json.Unmarshal(payload.Detail, &items); err == nil && len(items) > 0 {
			apiErr.Detail = items[0].Msg
			return apiErr
		}
	}

	if len(body) > 0 && len(body) <= 512 {
		apiErr.Detail = string(body)
	}
	return apiErr
}
