package notify

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/fathomlabs/chaind/internal/chain"
	"github.com/fathomlabs/chaind/internal/store"
)

func sampleRun() *store.Run {
	return &store.Run{
		ID:             "run-1",
		Mode:           chain.ModeSimulated,
		RepositoryRoot: "/work/repo",
		Result: &chain.Result{
			ChainName:      "discovery",
			Status:         chain.StopCompleted,
			CompletedSteps: 4,
			TotalSteps:     4,
		},
		FinishedAt: time.Now(),
	}
}

func TestNewWebhook_EmptyURLReturnsNil(t *testing.T) {
	assert.Nil(t, NewWebhook("", time.Second, zap.NewNop()))
}

func TestNotify_PostsPayload(t *testing.T) {
	received := make(chan Payload, 1)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))

		var p Payload
		require.NoError(t, json.NewDecoder(r.Body).Decode(&p))
		received <- p
	}))
	defer srv.Close()

	w := NewWebhook(srv.URL, time.Second, zap.NewNop())
	w.Notify(context.Background(), sampleRun())

	select {
	case p := <-received:
		assert.Equal(t, "run-1", p.RunID)
		assert.Equal(t, "discovery", p.ChainName)
		assert.Equal(t, chain.StopCompleted, p.Status)
		assert.Equal(t, 4, p.CompletedSteps)
	case <-time.After(time.Second):
		t.Fatal("webhook not delivered")
	}
}

func TestNotify_ServerErrorDoesNotPanic(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	w := NewWebhook(srv.URL, time.Second, zap.NewNop())
	w.Notify(context.Background(), sampleRun())
}

func TestNotify_NilReceiverAndRunAreSafe(t *testing.T) {
	var w *Webhook
	w.Notify(context.Background(), sampleRun())

	w = NewWebhook("http://localhost:1", time.Second, zap.NewNop())
	w.Notify(context.Background(), nil)
	w.Notify(context.Background(), &store.Run{})
}
