package middleware

import "net/http"

// BodyLimit returns middleware that caps the request body at maxBytes. Reads
// past the limit fail inside the handler's JSON decoding with a
// *http.MaxBytesError, surfacing as a 400 to the client.
func BodyLimit(maxBytes int64) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.Body != nil {
				r.Body = http.MaxBytesReader(w, r.Body, maxBytes)
			}
			next.ServeHTTP(w, r)
		})
	}
}
