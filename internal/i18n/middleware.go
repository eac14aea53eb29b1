package i18n

import "net/http"

// Middleware injects a localizer for the request's Accept-Language into the
// request context.
func Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		lang := Negotiate(r.Header.Get("Accept-Language"))
		w.Header().Set("Content-Language", lang)
		ctx := WithLocalizer(r.Context(), NewLocalizer(lang))
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}
