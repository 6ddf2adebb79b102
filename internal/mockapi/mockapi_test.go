package mockapi

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"

	"eventlist/internal/model"
	"eventlist/internal/store"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func sequentialIDs() Option {
	n := 0
	return WithIDFunc(func() model.ID {
		n++
		return model.ID(fmt.Sprint(n))
	})
}

func TestCRUDThroughStoreClient(t *testing.T) {
	t.Parallel()

	svc := New([]model.Event{{ID: "seed", Name: "Standup", Start: "09:00", End: "09:15"}}, sequentialIDs())
	srv := httptest.NewServer(svc.Handler())
	t.Cleanup(srv.Close)

	c, err := store.New(srv.URL)
	if err != nil {
		t.Fatal(err)
	}
	ctx := context.Background()

	events, err := c.FetchEvents(ctx)
	if err != nil || len(events) != 1 || events[0].ID != "seed" {
		t.Fatalf("initial fetch = %+v, %v", events, err)
	}

	raw, err := c.AddEvent(ctx, model.Draft{Name: "Lunch", Start: "12:00", End: "13:00"})
	if err != nil {
		t.Fatalf("AddEvent: %v", err)
	}
	created, err := store.DecodeEvent(raw)
	if err != nil || created.ID != "1" || created.Name != "Lunch" {
		t.Fatalf("created = %+v, %v", created, err)
	}

	events, err = c.FetchEvents(ctx)
	if err != nil || len(events) != 2 || events[1].Name != "Lunch" {
		t.Fatalf("after create = %+v, %v", events, err)
	}

	if err := c.DeleteEvent(ctx, "seed"); err != nil {
		t.Fatalf("DeleteEvent: %v", err)
	}
	if got := svc.Events(); len(got) != 1 || got[0].ID != "1" {
		t.Fatalf("after delete = %+v", got)
	}
}

func TestCreate_RequiresAllFields(t *testing.T) {
	t.Parallel()

	svc := New(nil)
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/events", strings.NewReader(`{"name":"Lunch","start":"12:00"}`))
	req.Header.Set("Content-Type", "application/json")
	svc.Handler().ServeHTTP(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rec.Code)
	}
	if len(svc.Events()) != 0 {
		t.Fatal("invalid draft must not be stored")
	}
}

func TestCreate_DefaultIDsAreUnique(t *testing.T) {
	t.Parallel()

	svc := New(nil)
	h := svc.Handler()
	for i := 0; i < 3; i++ {
		rec := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodPost, "/events", strings.NewReader(`{"name":"a","start":"b","end":"c"}`))
		req.Header.Set("Content-Type", "application/json")
		h.ServeHTTP(rec, req)
		if rec.Code != http.StatusCreated {
			t.Fatalf("status = %d", rec.Code)
		}
	}
	seen := map[model.ID]bool{}
	for _, ev := range svc.Events() {
		if ev.ID == "" || seen[ev.ID] {
			t.Fatalf("duplicate or empty id %q", ev.ID)
		}
		seen[ev.ID] = true
	}
}

func TestDelete_Unknown(t *testing.T) {
	t.Parallel()

	svc := New(nil)
	rec := httptest.NewRecorder()
	svc.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodDelete, "/events/nope", nil))
	if rec.Code != http.StatusNotFound {
		t.Fatalf("status = %d, want 404", rec.Code)
	}
}

func TestPreflight(t *testing.T) {
	t.Parallel()

	rec := httptest.NewRecorder()
	New(nil).Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodOptions, "/events", nil))
	if rec.Code != http.StatusNoContent {
		t.Fatalf("status = %d", rec.Code)
	}
	if rec.Header().Get("Access-Control-Allow-Origin") != "*" {
		t.Fatal("missing CORS header")
	}
}
