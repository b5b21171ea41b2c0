package s3

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/devmob/onboard/internal/model"
)

const testBucket = "onboard-test"

// fakeS3 is a path-style object server covering the calls the store makes.
type fakeS3 struct {
	mu      sync.Mutex
	objects map[string][]byte
}

func (f *fakeS3) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	defer f.mu.Unlock()

	key := strings.TrimPrefix(r.URL.Path, "/"+testBucket)
	key = strings.TrimPrefix(key, "/")
	if !strings.HasPrefix(r.URL.Path, "/"+testBucket) {
		writeS3Error(w, http.StatusNotFound, "NoSuchBucket")
		return
	}
	if key == "" && r.Method == http.MethodHead {
		w.WriteHeader(http.StatusOK)
		return
	}

	data, exists := f.objects[key]
	switch r.Method {
	case http.MethodPut:
		if r.Header.Get("If-None-Match") == "*" && exists {
			writeS3Error(w, http.StatusPreconditionFailed, "PreconditionFailed")
			return
		}
		body, _ := io.ReadAll(r.Body)
		f.objects[key] = body
		w.Header().Set("ETag", `"etag"`)
		w.WriteHeader(http.StatusOK)
	case http.MethodGet:
		if !exists {
			writeS3Error(w, http.StatusNotFound, "NoSuchKey")
			return
		}
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write(data)
	case http.MethodHead:
		if !exists {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		w.WriteHeader(http.StatusOK)
	case http.MethodDelete:
		delete(f.objects, key)
		w.WriteHeader(http.StatusNoContent)
	default:
		w.WriteHeader(http.StatusMethodNotAllowed)
	}
}

func (f *fakeS3) has(key string) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	_, ok := f.objects[key]
	return ok
}

func writeS3Error(w http.ResponseWriter, status int, code string) {
	w.Header().Set("Content-Type", "application/xml")
	w.WriteHeader(status)
	_, _ = io.WriteString(w, `<?xml version="1.0" encoding="UTF-8"?><Error><Code>`+code+`</Code><Message>`+code+`</Message></Error>`)
}

func newTestStore(t *testing.T) (*Store, *fakeS3) {
	t.Helper()
	fake := &fakeS3{objects: make(map[string][]byte)}
	srv := httptest.NewServer(fake)
	t.Cleanup(srv.Close)

	client, err := NewClient(context.Background(), &Config{
		Endpoint:        srv.URL,
		Region:          "us-east-1",
		AccessKeyID:     "test",
		SecretAccessKey: "test",
		Bucket:          testBucket,
	})
	require.NoError(t, err)
	return NewStore(client, testBucket, "/onboard/"), fake
}

func TestNewClient_RequiresBucket(t *testing.T) {
	_, err := NewClient(context.Background(), &Config{})
	assert.Error(t, err)
}

func TestStore_StoryLifecycle(t *testing.T) {
	store, fake := newTestStore(t)
	ctx := context.Background()

	_, found, err := store.Get(ctx, 100)
	require.NoError(t, err)
	assert.False(t, found)

	require.NoError(t, store.Save(ctx, 100, "**The Newcomer**\nA story."))
	require.NoError(t, store.Save(ctx, 100, "**The Newcomer**\nA better story."))

	story, found, err := store.Get(ctx, 100)
	require.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, "**The Newcomer**\nA better story.", story)
	assert.True(t, fake.has("onboard/stories/100.md"))

	deleted, err := store.Delete(ctx, 100)
	require.NoError(t, err)
	assert.True(t, deleted)

	deleted, err = store.Delete(ctx, 100)
	require.NoError(t, err)
	assert.False(t, deleted)
}

func TestStore_HistoryWritesOnce(t *testing.T) {
	store, _ := newTestStore(t)
	history := store.History()
	ctx := context.Background()

	rec, err := history.Get(ctx, 100)
	require.NoError(t, err)
	assert.Nil(t, rec)

	first := &model.InviteHistoryRecord{
		InviterName: "boss",
		InviterID:   42,
		InviteCode:  "abc",
		JoinDate:    time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC),
	}
	wrote, err := history.SaveIfAbsent(ctx, 100, first)
	require.NoError(t, err)
	assert.True(t, wrote)

	wrote, err = history.SaveIfAbsent(ctx, 100, &model.InviteHistoryRecord{InviterName: "Unknown", InviteCode: "Unknown"})
	require.NoError(t, err)
	assert.False(t, wrote)

	rec, err = history.Get(ctx, 100)
	require.NoError(t, err)
	require.NotNil(t, rec)
	assert.Equal(t, "boss", rec.InviterName)
	assert.Equal(t, model.Snowflake(42), rec.InviterID)
	assert.True(t, first.JoinDate.Equal(rec.JoinDate))
}

func TestStore_Ping(t *testing.T) {
	store, _ := newTestStore(t)
	assert.NoError(t, store.Ping(context.Background()))
}
