package errx

import (
	"encoding/json"
	"errors"
	"strings"

	"google.golang.org/genai"
)

// UnknownErrorMessage is shown when a failure carries no readable message.
const UnknownErrorMessage = "Unknown error occurred"

type apiErrorPayload struct {
	Error struct {
		Code    int    `json:"code"`
		Message string `json:"message"`
		Status  string `json:"status"`
	} `json:"error"`
}

// UserMessage collapses any failure into one human-readable line for a
// notification. Gemini API errors and embedded {"error":{...}} payloads
// contribute their message; everything else becomes UnknownErrorMessage.
func UserMessage(err error) string {
	if err == nil {
		return ""
	}

	var apiErr genai.APIError
	if errors.As(err, &apiErr) && apiErr.Message != "" {
		return apiErr.Message
	}
	var apiErrPtr *genai.APIError
	if errors.As(err, &apiErrPtr) && apiErrPtr != nil && apiErrPtr.Message != "" {
		return apiErrPtr.Message
	}

	var appErr *AppError
	if errors.As(err, &appErr) && appErr.Message != "" {
		return appErr.Message
	}

	if msg := ExtractAPIMessage(err.Error()); msg != "" {
		return msg
	}
	return UnknownErrorMessage
}

// ExtractAPIMessage finds a JSON error payload inside text and returns its
// message, or "" when none is present.
func ExtractAPIMessage(text string) string {
	start := strings.Index(text, "{")
	end := strings.LastIndex(text, "}")
	if start < 0 || end <= start {
		return ""
	}

	var payload apiErrorPayload
	if err := json.Unmarshal([]byte(text[start:end+1]), &payload); err != nil {
		return ""
	}
	return payload.Error.Message
}
