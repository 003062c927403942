package httputil

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func okHandler(w http.ResponseWriter, _ *http.Request) {
	w.WriteHeader(http.StatusOK)
}

func TestRouterHandle(t *testing.T) {
	r := NewRouter()
	r.HandleFunc("GET /test", okHandler)

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/test", nil))
	assert.Equal(t, http.StatusOK, w.Code)

	// wrong method
	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/test", nil))
	assert.Equal(t, http.StatusMethodNotAllowed, w.Code)
}

func TestRouterHandleInvalidPattern(t *testing.T) {
	r := NewRouter()
	assert.Panics(t, func() { r.HandleFunc("/test", okHandler) })
}

func TestRouterMiddleware(t *testing.T) {
	r := NewRouter()

	var order []string
	mw := func(name string) Middleware {
		return func(next http.Handler) http.Handler {
			return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
				order = append(order, name)
				next.ServeHTTP(w, req)
			})
		}
	}
	r.Use(mw("first"), mw("second"))
	r.HandleFunc("GET /test", okHandler)

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/test", nil))
	assert.Equal(t, []string{"first", "second"}, order)
}

func TestRouterGroup(t *testing.T) {
	r := NewRouter()
	api := r.Group("/Service")
	api.Use(func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
			w.Header().Set("X-Group", "true")
			next.ServeHTTP(w, req)
		})
	})
	api.HandleFunc("GET /isOnline", okHandler)
	r.HandleFunc("GET /other", okHandler)

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/Service/isOnline", nil))
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "true", w.Header().Get("X-Group"))

	// group middleware does not leak to the parent
	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/other", nil))
	assert.Empty(t, w.Header().Get("X-Group"))
}

func TestRouterListenAndServe(t *testing.T) {
	r := NewRouter()
	r.HandleFunc("GET /test", okHandler)

	const addr = "127.0.0.1:18081"

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		err := r.ListenAndServe(addr)
		assert.ErrorIs(t, err, http.ErrServerClosed)
	}()

	var resp *http.Response
	require.Eventually(t, func() bool {
		var err error
		resp, err = http.Get("http://" + addr + "/test")
		return err == nil
	}, 2*time.Second, 20*time.Millisecond)
	resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	require.NoError(t, r.Shutdown(context.Background()))
	wg.Wait()
}

func BenchmarkRouterHandle(b *testing.B) {
	r := NewRouter()
	for i := 0; i < b.N; i++ {
		r.HandleFunc(fmt.Sprintf("GET /test%d", i), okHandler)
	}
}

func BenchmarkRouterServeHTTPConcurrent(b *testing.B) {
	r := NewRouter()
	r.HandleFunc("GET /test", okHandler)

	req := httptest.NewRequest(http.MethodGet, "/test", nil)

	b.ResetTimer()
	b.RunParallel(func(pb *testing.PB) {
		for pb.Next() {
			r.ServeHTTP(httptest.NewRecorder(), req)
		}
	})
}
