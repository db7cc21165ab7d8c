package api

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"

	"docqa/internal/rag/errs"
	"docqa/pkg/logger"
)

func TestRenderErrorStatusMapping(t *testing.T) {
	gin.SetMode(gin.TestMode)
	a := &API{logger: logger.New("test")}

	cases := []struct {
		name string
		err  error
		want int
	}{
		{"validation", &errs.ValidationError{Reason: "bad input"}, http.StatusBadRequest},
		{"not found", &errs.NotFoundError{Kind: "document", ID: "1"}, http.StatusNotFound},
		{"conflict", &errs.ConflictError{DocumentID: "1"}, http.StatusConflict},
		{"duplicate", &errs.DuplicateError{ExistingID: "1"}, http.StatusConflict},
		{"transient", errs.Transient("embed", errors.New("provider down")), http.StatusServiceUnavailable},
		{"unclassified", errors.New("boom"), http.StatusInternalServerError},
	}
	for _, c := range cases {
		w := httptest.NewRecorder()
		ctx, _ := gin.CreateTestContext(w)
		a.renderError(ctx, c.err)
		if w.Code != c.want {
			t.Errorf("%s: status = %d, want %d", c.name, w.Code, c.want)
		}
	}
}

func TestRenderErrorHidesInternalDetails(t *testing.T) {
	gin.SetMode(gin.TestMode)
	a := &API{logger: logger.New("test")}

	w := httptest.NewRecorder()
	ctx, _ := gin.CreateTestContext(w)
	a.renderError(ctx, errors.New("dsn user:password@tcp failed"))
	if body := w.Body.String(); body != `{"error":"internal error"}` {
		t.Fatalf("unclassified errors must not leak details, got %s", body)
	}
}
