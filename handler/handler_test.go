package handler_test

import (
	"bytes"
	"errors"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/contentplan/backend/handler"
)

type failingResponse struct{ err error }

func (f failingResponse) Render(http.ResponseWriter, *http.Request) error { return f.err }

func TestWrap(t *testing.T) {
	t.Parallel()

	t.Run("renders response", func(t *testing.T) {
		t.Parallel()
		h := handler.HandlerFunc[handler.Context, struct{}](func(ctx handler.Context, _ struct{}) handler.Response {
			assert.Equal(t, "/ping", ctx.Request().URL.Path)
			return handler.JSONBody(map[string]bool{"ok": true})
		})

		w := httptest.NewRecorder()
		handler.Wrap(h)(w, httptest.NewRequest(http.MethodGet, "/ping", nil))

		assert.Equal(t, http.StatusOK, w.Code)
		assert.JSONEq(t, `{"ok":true}`, w.Body.String())
	})

	t.Run("nil response", func(t *testing.T) {
		t.Parallel()
		h := handler.HandlerFunc[handler.Context, struct{}](func(handler.Context, struct{}) handler.Response {
			return nil
		})

		var got error
		w := httptest.NewRecorder()
		handler.Wrap(h, handler.WithErrorHandler[handler.Context, struct{}](func(_ handler.Context, err error) {
			got = err
		}))(w, httptest.NewRequest(http.MethodGet, "/", nil))

		assert.ErrorIs(t, got, handler.ErrNilResponse)
	})

	t.Run("render error uses http error code", func(t *testing.T) {
		t.Parallel()
		h := handler.HandlerFunc[handler.Context, struct{}](func(handler.Context, struct{}) handler.Response {
			return failingResponse{err: handler.ErrForbidden}
		})

		w := httptest.NewRecorder()
		handler.Wrap(h)(w, httptest.NewRequest(http.MethodGet, "/", nil))

		assert.Equal(t, http.StatusForbidden, w.Code)
		assert.Contains(t, w.Body.String(), "forbidden")
	})

	t.Run("decorators run outermost first", func(t *testing.T) {
		t.Parallel()
		var order []string
		mark := func(name string) handler.Decorator[handler.Context, struct{}] {
			return func(next handler.HandlerFunc[handler.Context, struct{}]) handler.HandlerFunc[handler.Context, struct{}] {
				return func(ctx handler.Context, req struct{}) handler.Response {
					order = append(order, name)
					return next(ctx, req)
				}
			}
		}
		h := handler.HandlerFunc[handler.Context, struct{}](func(handler.Context, struct{}) handler.Response {
			order = append(order, "handler")
			return handler.JSONBody(nil)
		})

		w := httptest.NewRecorder()
		handler.Wrap(h, handler.WithDecorators(mark("first"), mark("second")))(w, httptest.NewRequest(http.MethodGet, "/", nil))

		assert.Equal(t, []string{"first", "second", "handler"}, order)
	})
}

func TestAllowMethods(t *testing.T) {
	t.Parallel()

	h := handler.HandlerFunc[handler.Context, struct{}](func(handler.Context, struct{}) handler.Response {
		return handler.JSONBody(map[string]int{"processed": 0})
	})
	wrapped := handler.Wrap(h, handler.WithDecorators(handler.AllowMethods[handler.Context, struct{}](http.MethodGet)))

	t.Run("allowed", func(t *testing.T) {
		t.Parallel()
		w := httptest.NewRecorder()
		wrapped(w, httptest.NewRequest(http.MethodGet, "/", nil))
		assert.Equal(t, http.StatusOK, w.Code)
	})

	t.Run("rejected", func(t *testing.T) {
		t.Parallel()
		w := httptest.NewRecorder()
		wrapped(w, httptest.NewRequest(http.MethodPost, "/", nil))
		assert.Equal(t, http.StatusMethodNotAllowed, w.Code)
		assert.Equal(t, "GET", w.Header().Get("Allow"))
	})
}

func TestNewErrorHandler(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name       string
		err        error
		wantStatus int
		wantLevel  string
	}{
		{"client error", handler.ErrUnauthorized, http.StatusUnauthorized, "level=WARN"},
		{"server error", errors.New("store down"), http.StatusInternalServerError, "level=ERROR"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			var buf bytes.Buffer
			log := slog.New(slog.NewTextHandler(&buf, nil))

			w := httptest.NewRecorder()
			r := httptest.NewRequest(http.MethodGet, "/cron/reconcile", nil)
			handler.NewErrorHandler(log)(handler.NewContext(w, r), tt.err)

			assert.Equal(t, tt.wantStatus, w.Code)
			assert.Contains(t, buf.String(), tt.wantLevel)
			assert.Contains(t, buf.String(), "path=/cron/reconcile")
			require.Equal(t, "application/json; charset=utf-8", w.Header().Get("Content-Type"))
		})
	}
}
