package middleware

import (
	"fmt"
	"net/http"
	"runtime/debug"

	"github.com/edgeflare/dbrest/pkg/httputil"
	"go.uber.org/zap"
)

// Recover turns a panicking handler into a logged error and a response
// written by onPanic. A nil onPanic writes a plain 500.
func Recover(logger *zap.Logger, onPanic func(w http.ResponseWriter, r *http.Request, err error)) func(http.Handler) http.Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	if onPanic == nil {
		onPanic = func(w http.ResponseWriter, _ *http.Request, _ error) {
			httputil.Error(w, http.StatusInternalServerError, http.StatusText(http.StatusInternalServerError))
		}
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

				err, ok := v.(error)
				if !ok {
					err = fmt.Errorf("%v", v)
				}
				logger.Error("panic in handler",
					zap.String("req_id", httputil.RequestID(r.Context())),
					zap.Error(err),
					zap.ByteString("stack", debug.Stack()))
				onPanic(w, r, err)
			}()
			next.ServeHTTP(w, r)
		})
	}
}
