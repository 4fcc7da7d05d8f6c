package metadata

import (
	"net/http"
	"strings"

	"github.com/mssola/useragent"

	"lumine/pkg/requestcontext"
)

const (
	HeaderDeviceID   = "X-Device-Id"
	HeaderAppVersion = "X-App-Version"

	maxHeaderValue = 120
)

// ClientMetadata extracts client IP, User-Agent and device headers and adds them
// to the context. Apply early in the chain; the rate limiter keys on the IP.
func ClientMetadata(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		userAgent := r.Header.Get("User-Agent")

		ctx := requestcontext.WithClientMetadata(r.Context(), ClientIPFromRequest(r), userAgent)
		ctx = requestcontext.WithDevice(ctx, requestcontext.Device{
			ID:          headerValue(r, HeaderDeviceID),
			AppVersion:  headerValue(r, HeaderAppVersion),
			ClientLabel: ClientLabel(userAgent),
		})

		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func headerValue(r *http.Request, name string) string {
	v := strings.TrimSpace(r.Header.Get(name))
	if len(v) > maxHeaderValue {
		v = v[:maxHeaderValue]
	}
	return v
}

// ClientLabel summarises a User-Agent as "browser/os" for audit meta.
func ClientLabel(userAgent string) string {
	if userAgent == "" {
		return ""
	}
	ua := useragent.New(userAgent)
	browser, _ := ua.Browser()
	if ua.Bot() {
		browser = "bot"
	}
	os := ua.OS()
	switch {
	case browser == "" && os == "":
		return "unknown"
	case os == "":
		return browser
	case browser == "":
		return os
	}
	return browser + "/" + os
}

// ClientIPFromRequest extracts the client IP, honouring proxy headers.
func ClientIPFromRequest(r *http.Request) string {
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		if idx := strings.Index(xff, ","); idx != -1 {
			return strings.TrimSpace(xff[:idx])
		}
		return strings.TrimSpace(xff)
	}

	if xri := r.Header.Get("X-Real-IP"); xri != "" {
		return strings.TrimSpace(xri)
	}

	// RemoteAddr is "ip:port" or "[::1]:port"
	if addr := r.RemoteAddr; addr != "" {
		if idx := strings.LastIndex(addr, ":"); idx != -1 {
			return strings.Trim(addr[:idx], "[]")
		}
		return addr
	}
	return "unknown"
}
