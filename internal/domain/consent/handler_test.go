package consent

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
)

// withdrawFailRepo lets the response be loaded but fails the update, the
// shape of a connection dropping mid-request.
type withdrawFailRepo struct {
	*mockRepo
}

func (r *withdrawFailRepo) Withdraw(context.Context, uuid.UUID, time.Time) error {
	return fmt.Errorf("write tcp: connection reset by peer")
}

func withdrawContext(e *echo.Echo, id string) (echo.Context, *httptest.ResponseRecorder) {
	req := httptest.NewRequest(http.MethodPost, "/", nil)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	c.SetParamNames("id")
	c.SetParamValues(id)
	return c, rec
}

func TestWithdrawConsentHandler_UnknownResponseIs404(t *testing.T) {
	e := echo.New()
	h := NewHandler(NewService(newMockRepo()))

	c, _ := withdrawContext(e, uuid.New().String())
	err := h.WithdrawConsent(c)

	var httpErr *echo.HTTPError
	if !errors.As(err, &httpErr) {
		t.Fatalf("expected echo.HTTPError, got %v", err)
	}
	if httpErr.Code != http.StatusNotFound {
		t.Errorf("expected 404, got %d", httpErr.Code)
	}
}

func TestWithdrawConsentHandler_RepoFailureIs500(t *testing.T) {
	e := echo.New()
	repo := newMockRepo()
	res := validResponse(uuid.New())
	if err := repo.Create(context.Background(), res); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	h := NewHandler(NewService(&withdrawFailRepo{mockRepo: repo}))

	c, _ := withdrawContext(e, res.ID.String())
	err := h.WithdrawConsent(c)

	var httpErr *echo.HTTPError
	if !errors.As(err, &httpErr) {
		t.Fatalf("expected echo.HTTPError, got %v", err)
	}
	if httpErr.Code != http.StatusInternalServerError {
		t.Errorf("expected 500, got %d", httpErr.Code)
	}
}

func TestWithdrawConsentHandler_Success(t *testing.T) {
	e := echo.New()
	repo := newMockRepo()
	res := validResponse(uuid.New())
	if err := repo.Create(context.Background(), res); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	h := NewHandler(NewService(repo))

	c, rec := withdrawContext(e, res.ID.String())
	if err := h.WithdrawConsent(c); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if rec.Code != http.StatusOK {
		t.Errorf("expected 200, got %d", rec.Code)
	}
}
