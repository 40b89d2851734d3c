package telegram

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spreadinsight/newsbot/internal/retry"
)

func TestSendMessage(t *testing.T) {
	var got map[string]interface{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/botTOKEN/sendMessage", r.URL.Path)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		_, _ = w.Write([]byte(`{"ok":true}`))
	}))
	defer srv.Close()

	c := NewClient("TOKEN", "@channel", WithBaseURL(srv.URL))
	require.NoError(t, c.SendMessage(context.Background(), "안녕하세요"))

	assert.Equal(t, "@channel", got["chat_id"])
	assert.Equal(t, "안녕하세요", got["text"])
	assert.Equal(t, true, got["disable_web_page_preview"])
	assert.NotContains(t, got, "parse_mode")
}

func TestSendMessageMisconfigured(t *testing.T) {
	err := NewClient("", "chat").SendMessage(context.Background(), "x")
	assert.ErrorIs(t, err, ErrMisconfigured)

	err = NewClient("token", "").SendMessage(context.Background(), "x")
	assert.ErrorIs(t, err, ErrMisconfigured)
}

func TestSendMessageRetriesServerErrors(t *testing.T) {
	var hits int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if atomic.AddInt32(&hits, 1) < 3 {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		_, _ = w.Write([]byte(`{"ok":true}`))
	}))
	defer srv.Close()

	c := NewClient("t", "c", WithBaseURL(srv.URL), WithRetry(retry.Config{MaxAttempts: 3, Delay: time.Millisecond}))

	require.NoError(t, c.SendMessage(context.Background(), "x"))
	assert.Equal(t, int32(3), atomic.LoadInt32(&hits))
}

func TestSendMessageClientErrorIsNotRetried(t *testing.T) {
	var hits int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&hits, 1)
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"ok":false,"description":"Bad Request: chat not found"}`))
	}))
	defer srv.Close()

	c := NewClient("t", "c", WithBaseURL(srv.URL), WithRetry(retry.Config{MaxAttempts: 3, Delay: time.Millisecond}))
	err := c.SendMessage(context.Background(), "x")

	require.Error(t, err)
	assert.Contains(t, err.Error(), "chat not found")
	assert.Equal(t, int32(1), atomic.LoadInt32(&hits))
}

type recordingSender struct {
	sent   []string
	failAt int
}

func (r *recordingSender) SendMessage(_ context.Context, text string) error {
	if r.failAt > 0 && len(r.sent)+1 == r.failAt {
		return errors.New("blocked")
	}
	r.sent = append(r.sent, text)
	return nil
}
