package dispatch

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/listing-relay/internal/config"
	"github.com/listing-relay/internal/repository"
)

func strPtr(s string) *string { return &s }

func testListing(id uint64) *repository.ProductListing {
	return &repository.ProductListing{
		ID:          id,
		UserID:      7,
		Status:      repository.StatusPending,
		Title:       strPtr("TestProduct"),
		ProductLink: strPtr("http://test.com/?id=123"),
		ListingCode: strPtr("CODE1"),
	}
}

func testConfig() *repository.RequestConfig {
	return &repository.RequestConfig{
		ID:                     3,
		UserID:                 7,
		Name:                   "cfg",
		RequestURL:             "http://target",
		Method:                 "POST",
		Body:                   `{"some_field": "val", "linkData": [{"url": "{url}", "num_iid": ""}]}`,
		Header:                 `{"Cookie": "user_{id}"}`,
		RequestIntervalMinutes: 10,
		RandomMin:              5,
		RandomMax:              20,
	}
}

func newTestClient(baseURL string) *Client {
	return NewClient(config.Config{
		SchedulerBaseURL: baseURL,
		CallbackURL:      "http://callback",
		CookieAppname:    "app",
		CookieToken:      "tok",
	})
}

func TestSendTaskSuccess(t *testing.T) {
	var got map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodPost, r.Method)
		require.Equal(t, singleTaskPath, r.URL.Path)
		body, _ := io.ReadAll(r.Body)
		require.NoError(t, json.Unmarshal(body, &got))
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	ok := newTestClient(srv.URL).SendTask(context.Background(), testListing(1), testConfig())
	require.True(t, ok)

	assert.Equal(t, "http://target", got["target_url"])
	assert.Equal(t, float64(10), got["request_interval_minutes"])
	assert.Equal(t, float64(5), got["random_min"])
	assert.Equal(t, float64(20), got["random_max"])
	assert.Equal(t, "appname=app; token=tok", got["cookies"])

	payload := got["payload"].(map[string]any)
	entry := payload["linkData"].([]any)[0].(map[string]any)
	assert.Equal(t, "http://test.com/?id=123", entry["url"])
	assert.Equal(t, "123", entry["num_iid"])
}

func TestSendTaskNonOKStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	ok := newTestClient(srv.URL).SendTask(context.Background(), testListing(1), testConfig())
	assert.False(t, ok)
}

func TestSendTaskNetworkError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	srv.Close() // refuse connections

	ok := newTestClient(srv.URL).SendTask(context.Background(), testListing(1), testConfig())
	assert.False(t, ok)
}

func TestSendTaskMissingConfig(t *testing.T) {
	called := false
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		called = true
	}))
	defer srv.Close()

	ok := newTestClient(srv.URL).SendTask(context.Background(), testListing(1), nil)
	assert.False(t, ok)
	assert.False(t, called)
}

func TestSendBatchSuccess(t *testing.T) {
	var got map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, batchTaskPath, r.URL.Path)
		body, _ := io.ReadAll(r.Body)
		require.NoError(t, json.Unmarshal(body, &got))
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	cfg := testConfig()
	cfg.Method = "PUT"
	cfg.Body = `{"title": "{title}", "url": "{product_link}"}`
	l := testListing(99)
	l.ProductLink = strPtr("http://example.com")

	ok := newTestClient(srv.URL).SendBatch(context.Background(), []Task{{Listing: l, Config: cfg}})
	require.True(t, ok)

	tasks := got["tasks_data"].([]any)
	require.Len(t, tasks, 1)
	item := tasks[0].(map[string]any)
	assert.Equal(t, "TestProduct", item["name"])
	assert.Equal(t, "PUT", item["method"])
	assert.Equal(t, "http://callback", item["callback_url"])
	assert.Equal(t, "99", item["callback_id"])
	assert.Equal(t, map[string]any{"Cookie": "user_99"}, item["header"])
	assert.Equal(t, map[string]any{"title": "TestProduct", "url": "http://example.com"}, item["body"])
}

func TestSendBatchSkipsMissingConfig(t *testing.T) {
	var got map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		require.NoError(t, json.Unmarshal(body, &got))
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	tasks := []Task{
		{Listing: testListing(1), Config: testConfig()},
		{Listing: testListing(2), Config: nil},
	}
	ok := newTestClient(srv.URL).SendBatch(context.Background(), tasks)
	require.True(t, ok)
	assert.Len(t, got["tasks_data"], 1)
}

func TestSendBatchEmptyAfterSkips(t *testing.T) {
	called := false
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		called = true
	}))
	defer srv.Close()

	ok := newTestClient(srv.URL).SendBatch(context.Background(), []Task{{Listing: testListing(1), Config: nil}})
	assert.False(t, ok)
	assert.False(t, called)
}

func TestSendBatchFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	ok := newTestClient(srv.URL).SendBatch(context.Background(), []Task{{Listing: testListing(1), Config: testConfig()}})
	assert.False(t, ok)
}

func TestBuildDescriptorRenderFailureNonFatal(t *testing.T) {
	cfg := testConfig()
	cfg.Header = "not json {"
	d, err := BuildDescriptor(cfg, testListing(1))
	require.NoError(t, err)
	assert.Nil(t, d.Header)
	assert.NotNil(t, d.Body)
	assert.Equal(t, "POST", d.Method)
	assert.Equal(t, "http://target", d.URL)
}

func TestBuildDescriptorMissingConfig(t *testing.T) {
	_, err := BuildDescriptor(nil, testListing(1))
	assert.ErrorIs(t, err, ErrNoConfig)
}

func TestBuildDescriptorParams(t *testing.T) {
	cfg := testConfig()
	cfg.Body = `{"u": "{product_link}", "code": "{listing_code}", "uid": "{user_id}"}`
	l := testListing(5)

	d, err := BuildDescriptor(cfg, l)
	require.NoError(t, err)
	body := d.Body.(map[string]any)
	assert.Equal(t, "http://test.com/?id=123", body["u"])
	assert.Equal(t, "CODE1", body["code"])
	assert.Equal(t, "7", body["uid"])
}
