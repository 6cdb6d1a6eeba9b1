package main

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/julienschmidt/httprouter"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

func newTestMiddlewareAPI(ids UIDHandler) *APIHandler {
	clock := NewMockClocker()
	return NewAPIHandler(zap.NewNop(), &Config{}, &Statistics{started: clock.Now()}, clock, ids, nil)
}

// TestMiddlewaresStacks ensures we get both public and ops middlewares
// stacks with exact number of elements in those stacks.
func TestMiddlewaresStacks(t *testing.T) {
	api := newTestMiddlewareAPI(NewMockUIDHandler("abc", true))
	pub, ops := api.MiddlewaresStacks()
	assert.Equal(t, 6, len(*pub))
	assert.Equal(t, 4, len(*ops))
}

// TestChain ensures each middleware in the stack is called as well the handler.
func TestChain(t *testing.T) {
	var ca, cb, cc, ch bool
	queue := make(chan int, 4)

	middlewareA := func(next httprouter.Handle) httprouter.Handle {
		return func(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
			queue <- 1
			ca = true
			next(w, r, ps)
		}
	}
	middlewareB := func(next httprouter.Handle) httprouter.Handle {
		return func(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
			queue <- 2
			cb = true
			next(w, r, ps)
		}
	}
	middlewareC := func(next httprouter.Handle) httprouter.Handle {
		return func(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
			queue <- 3
			cc = true
			next(w, r, ps)
		}
	}
	middlewares := Middlewares{
		middlewareA,
		middlewareB,
		middlewareC,
	}

	handler := func(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
		queue <- 4
		ch = true
	}

	chained := (&middlewares).Chain(handler)
	req := httptest.NewRequest("GET", "/book", nil)
	w := httptest.NewRecorder()
	chained(w, req, nil)

	t.Run("check calling", func(t *testing.T) {
		assert.Equal(t, true, ca)
		assert.Equal(t, true, cb)
		assert.Equal(t, true, cc)
		assert.Equal(t, true, ch)
	})

	t.Run("check ordering", func(t *testing.T) {
		assert.Equal(t, 1, <-queue)
		assert.Equal(t, 2, <-queue)
		assert.Equal(t, 3, <-queue)
		assert.Equal(t, 4, <-queue)
	})
}

// TestRequestsCounterMiddleware ensures the request counter increment.
func TestRequestsCounterMiddleware(t *testing.T) {
	api := newTestMiddlewareAPI(NewMockUIDHandler("abc", true))
	req := httptest.NewRequest("GET", "/book", nil)
	w := httptest.NewRecorder()
	var num uint64
	handler := func(w http.ResponseWriter, req *http.Request, ps httprouter.Params) {
		num = GetRequestNumberFromContext(req.Context())
	}
	wrapped := api.RequestsCounterMiddleware(handler)
	wrapped(w, req, nil)
	wrapped(w, req, nil)
	assert.Equal(t, uint64(2), num)
	assert.Equal(t, uint64(2), api.stats.called)
}

func TestRequestIDMiddleware(t *testing.T) {
	t.Run("valid incoming id is reused", func(t *testing.T) {
		api := newTestMiddlewareAPI(NewMockUIDHandler("abc", true))
		req := httptest.NewRequest("GET", "/book", nil)
		req.Header.Set(RequestIDHeader, "r:incoming")
		w := httptest.NewRecorder()
		var got string
		api.RequestIDMiddleware(func(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
			got = GetValueFromContext(r.Context(), RequestIDContextKey)
		})(w, req, nil)
		assert.Equal(t, "r:incoming", got)
		assert.Equal(t, "r:incoming", w.Header().Get(RequestIDHeader))
	})

	t.Run("invalid incoming id is replaced", func(t *testing.T) {
		api := newTestMiddlewareAPI(NewMockUIDHandler("abc", false))
		req := httptest.NewRequest("GET", "/book", nil)
		req.Header.Set(RequestIDHeader, "garbage")
		w := httptest.NewRecorder()
		var got string
		api.RequestIDMiddleware(func(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
			got = GetValueFromContext(r.Context(), RequestIDContextKey)
		})(w, req, nil)
		assert.Equal(t, "r:abc", got)
		assert.Equal(t, "r:abc", w.Header().Get(RequestIDHeader))
	})
}

func TestCORSMiddleware(t *testing.T) {
	w := httptest.NewRecorder()
	CORSMiddleware(func(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {})(w, httptest.NewRequest("GET", "/book", nil), nil)
	assert.Equal(t, "*", w.Header().Get("Access-Control-Allow-Origin"))
}

func TestCoreMiddleware_RecordsStatus(t *testing.T) {
	api := newTestMiddlewareAPI(NewMockUIDHandler("abc", true))
	handler := api.CoreMiddleware(func(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
		assert.NotNil(t, r.Context().Value(LoggerContextKey))
		w.WriteHeader(http.StatusNotFound)
	})
	handler(httptest.NewRecorder(), httptest.NewRequest("GET", "/book/9", nil), nil)
	handler(httptest.NewRecorder(), httptest.NewRequest("GET", "/book/9", nil), nil)
	assert.Equal(t, uint64(2), api.stats.status[http.StatusNotFound])
}

func TestMaintenanceModeMiddleware(t *testing.T) {
	api := newTestMiddlewareAPI(NewMockUIDHandler("abc", true))
	var called bool
	handler := api.MaintenanceModeMiddleware(func(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
		called = true
	})

	w := httptest.NewRecorder()
	handler(w, httptest.NewRequest("GET", "/book", nil), nil)
	assert.True(t, called)
	assert.Equal(t, http.StatusOK, w.Code)

	called = false
	api.mode.message = "upgrading storage"
	api.mode.enabled.Store(true)
	w = httptest.NewRecorder()
	handler(w, httptest.NewRequest("GET", "/book", nil), nil)
	assert.False(t, called)
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
	assert.Contains(t, w.Body.String(), "upgrading storage")
}

func TestPanicRecoveryMiddleware(t *testing.T) {
	api := newTestMiddlewareAPI(NewMockUIDHandler("abc", true))
	handler := api.PanicRecoveryMiddleware(func(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
		panic("boom")
	})
	w := httptest.NewRecorder()
	require.NotPanics(t, func() {
		handler(w, httptest.NewRequest("GET", "/book", nil), nil)
	})
	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.JSONEq(t, `{"requestid":"","status":500,"message":"failed to process the request.","data":{}}`, w.Body.String())
}

// TestMiddlewaresStacks_PanicIsRecorded ensures a recovered panic goes
// through the core middleware: its status is counted and logged.
func TestMiddlewaresStacks_PanicIsRecorded(t *testing.T) {
	core, logs := observer.New(zap.InfoLevel)
	clock := NewMockClocker()
	api := NewAPIHandler(zap.New(core), &Config{}, &Statistics{started: clock.Now()}, clock, NewMockUIDHandler("abc", false), nil)
	pub, ops := api.MiddlewaresStacks()

	for name, stack := range map[string]*Middlewares{"public": pub, "ops": ops} {
		t.Run(name, func(t *testing.T) {
			handler := stack.Chain(func(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
				panic("boom")
			})
			w := httptest.NewRecorder()
			require.NotPanics(t, func() {
				handler(w, httptest.NewRequest("GET", "/book", nil), nil)
			})
			assert.Equal(t, http.StatusInternalServerError, w.Code)
			assert.JSONEq(t, `{"requestid":"r:abc","status":500,"message":"failed to process the request.","data":{}}`, w.Body.String())
		})
	}

	assert.Equal(t, uint64(2), api.stats.status[http.StatusInternalServerError])
	responses := logs.FilterMessage("response").FilterField(zap.Int("request.status", http.StatusInternalServerError))
	assert.Equal(t, 2, responses.Len())
	assert.Equal(t, 2, logs.FilterMessage("panic occurred").Len())
}
