package openai

import (
	"context"
	"errors"
	"net"
	"net/http"
	"syscall"

	"github.com/sashabaranov/go-openai"

	"github.com/bryanwahyu/creditlens/internal/domain/ai"
)

// Classify maps a provider failure to a typed ai.Error so no caller ever
// string-matches error messages.
func Classify(err error) *ai.Error {
	if err == nil {
		return nil
	}

	var classified *ai.Error
	if errors.As(err, &classified) {
		return classified
	}

	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return ai.NewError(ai.KindTimeout, err)
	}

	var apiErr *openai.APIError
	if errors.As(err, &apiErr) {
		return ai.NewError(kindFromAPIError(apiErr), err)
	}

	var reqErr *openai.RequestError
	if errors.As(err, &reqErr) {
		return ai.NewError(kindFromStatus(reqErr.HTTPStatusCode, ""), err)
	}

	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return ai.NewError(ai.KindTimeout, err)
	}
	if errors.Is(err, syscall.ECONNRESET) ||
		errors.Is(err, syscall.ECONNREFUSED) ||
		errors.Is(err, syscall.ECONNABORTED) {
		return ai.NewError(ai.KindConnection, err)
	}
	var opErr *net.OpError
	if errors.As(err, &opErr) {
		return ai.NewError(ai.KindConnection, err)
	}

	return ai.NewError(ai.KindUnknown, err)
}

func kindFromAPIError(apiErr *openai.APIError) ai.ErrorKind {
	code := ""
	if s, ok := apiErr.Code.(string); ok {
		code = s
	}
	if apiErr.Type == "insufficient_quota" || code == "insufficient_quota" {
		return ai.KindQuotaExceeded
	}
	return kindFromStatus(apiErr.HTTPStatusCode, code)
}

func kindFromStatus(status int, code string) ai.ErrorKind {
	switch {
	case status == http.StatusUnauthorized || status == http.StatusForbidden:
		return ai.KindAuthentication
	case status == http.StatusTooManyRequests:
		if code == "insufficient_quota" {
			return ai.KindQuotaExceeded
		}
		return ai.KindRateLimit
	case status == http.StatusRequestTimeout || status == http.StatusGatewayTimeout:
		return ai.KindTimeout
	case status >= 500:
		return ai.KindServer
	default:
		return ai.KindUnknown
	}
}
