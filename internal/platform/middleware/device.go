package middleware

import (
	"fmt"
	"net/http"

	"github.com/mssola/useragent"

	"visadesk/pkg/requestcontext"
)

// Device parses the User-Agent header into a compact device description and
// stores it in the context. Lifecycle events record it so support can tell
// which client triggered a regeneration.
func Device(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ua := useragent.New(r.UserAgent())
		browser, version := ua.Browser()
		device := fmt.Sprintf("%s %s/%s", ua.OS(), browser, version)
		if ua.Mobile() {
			device = "mobile " + device
		}
		ctx := requestcontext.WithDevice(r.Context(), device)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}
