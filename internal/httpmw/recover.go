package httpmw

import (
	"net/http"

	"github.com/keithlinneman/linnemanlabs-sections/internal/log"
	"github.com/keithlinneman/linnemanlabs-sections/internal/xerrors"
)

// Recover turns a handler panic into a 500 and an error log with the
// panic value and stack. onPanic, if set, runs after logging.
// http.ErrAbortHandler is re-panicked so the server can drop the
// connection.
func Recover(logger log.Logger, onPanic func()) func(http.Handler) http.Handler {
	if logger == nil {
		logger = log.Nop()
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				v := recover()
				if v == nil {
					return
				}
				if v == http.ErrAbortHandler {
					panic(v)
				}
				var err error
				if e, ok := v.(error); ok {
					err = xerrors.WithStack(e)
				} else {
					err = xerrors.Newf("panic: %v", v)
				}

				logger.Error(r.Context(), err, "handler panic recovered",
					"request_id", RequestIDFromContext(r.Context()),
					"http.request.method", r.Method,
					"url.path", r.URL.Path,
				)
				if onPanic != nil {
					onPanic()
				}
				http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
			}()
			next.ServeHTTP(w, r)
		})
	}
}
