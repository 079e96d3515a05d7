package scheduler

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
)

func TestHandler_Trigger(t *testing.T) {
	h := NewHandler(New(newFakeRunner(), Config{}))
	r := chi.NewRouter()
	r.Post("/cycles/{kind}", h.Trigger)

	do := func(kind string) int {
		rec := httptest.NewRecorder()
		r.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/cycles/"+kind, nil))
		return rec.Code
	}

	assert.Equal(t, http.StatusAccepted, do(CycleMentions))
	assert.Equal(t, http.StatusTooManyRequests, do(CycleMentions))
	assert.Equal(t, http.StatusAccepted, do(CycleReplyGuy))
	assert.Equal(t, http.StatusNotFound, do("retweet"))
}
