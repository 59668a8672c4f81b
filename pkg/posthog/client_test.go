package posthog

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tidwall/gjson"
)

// recordingTransport captures requests for verification in tests.
type recordingTransport struct {
	mu       sync.Mutex
	requests []*Request
	sendErr  error
	closed   bool
}

func (r *recordingTransport) Send(ctx context.Context, req *Request) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.requests = append(r.requests, req)
	return r.sendErr
}

func (r *recordingTransport) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.closed = true
	return nil
}

func (r *recordingTransport) getRequests() []*Request {
	r.mu.Lock()
	defer r.mu.Unlock()
	result := make([]*Request, len(r.requests))
	copy(result, r.requests)
	return result
}

// newTestClient returns a client bound to transport with panic capturing
// disabled, so tests do not grow the process-wide hook chain.
func newTestClient(t *testing.T, transport Transport, opts ...ClientOption) *Client {
	t.Helper()
	client, err := NewClient(
		ClientOptions{APIKey: "phc_test", DisablePanicCapturing: true},
		append([]ClientOption{WithTransport(transport)}, opts...)...,
	)
	require.NoError(t, err)
	return client
}

// capturedRequest is a request seen by the test ingestion server.
type capturedRequest struct {
	method      string
	path        string
	contentType string
	body        []byte
}

// newIngestServer starts an httptest server that records capture requests
// and answers with status.
func newIngestServer(t *testing.T, status int) (*httptest.Server, func() []capturedRequest) {
	t.Helper()
	var (
		mu       sync.Mutex
		requests []capturedRequest
	)
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		mu.Lock()
		requests = append(requests, capturedRequest{
			method:      r.Method,
			path:        r.URL.Path,
			contentType: r.Header.Get("Content-Type"),
			body:        body,
		})
		mu.Unlock()
		w.WriteHeader(status)
		_, _ = w.Write([]byte(`{"status":1}`))
	}))
	t.Cleanup(server.Close)

	return server, func() []capturedRequest {
		mu.Lock()
		defer mu.Unlock()
		result := make([]capturedRequest, len(requests))
		copy(result, requests)
		return result
	}
}

func TestClient_Capture_EndToEnd(t *testing.T) {
	setVersion(t, "0.4.0")
	server, getRequests := newIngestServer(t, http.StatusOK)

	client, err := NewClient(ClientOptions{
		Endpoint:              server.URL + "/capture/",
		APIKey:                "phc_project",
		DisablePanicCapturing: true,
	})
	require.NoError(t, err)
	defer client.Close()

	event := NewEvent("signup", "user-42")
	require.NoError(t, event.InsertProp("plan", "pro"))

	require.NoError(t, client.Capture(context.Background(), event))

	requests := getRequests()
	require.Len(t, requests, 1)
	req := requests[0]
	assert.Equal(t, http.MethodPost, req.method)
	assert.Equal(t, "/capture/", req.path)
	assert.Equal(t, "application/json", req.contentType)

	body := req.body
	require.True(t, gjson.ValidBytes(body), "body should be valid JSON: %s", body)
	assert.Equal(t, "phc_project", gjson.GetBytes(body, "api_key").String())
	assert.Equal(t, "signup", gjson.GetBytes(body, "event").String())
	assert.Equal(t, "user-42", gjson.GetBytes(body, "properties.distinct_id").String())
	assert.Equal(t, "pro", gjson.GetBytes(body, "properties.props.plan").String())
	assert.Equal(t, LibName, gjson.GetBytes(body, "properties.props.$lib_name").String())
	assert.Equal(t, "0.4.0", gjson.GetBytes(body, "properties.props.$lib_version").String())
	assert.Equal(t, int64(0), gjson.GetBytes(body, "properties.props.$lib_version__major").Int())
	assert.Equal(t, int64(4), gjson.GetBytes(body, "properties.props.$lib_version__minor").Int())
	assert.Equal(t, int64(0), gjson.GetBytes(body, "properties.props.$lib_version__patch").Int())
	assert.Equal(t, LibName, gjson.GetBytes(body, "properties.$lib").String())
	assert.True(t, gjson.GetBytes(body, "properties.$os").Exists())
	assert.True(t, gjson.GetBytes(body, "properties.$os_version").Exists())
	assert.False(t, gjson.GetBytes(body, "properties.$exception_list").Exists())
}

func TestClient_Capture_UsesOptions(t *testing.T) {
	transport := &recordingTransport{}
	client, err := NewClient(ClientOptions{
		Endpoint:              "https://eu.i.posthog.com/capture/",
		APIKey:                "phc_eu",
		RequestTimeout:        5 * time.Second,
		DisablePanicCapturing: true,
	}, WithTransport(transport))
	require.NoError(t, err)

	require.NoError(t, client.Capture(context.Background(), NewEvent("e", "id")))

	requests := transport.getRequests()
	require.Len(t, requests, 1)
	assert.Equal(t, http.MethodPost, requests[0].Method)
	assert.Equal(t, "https://eu.i.posthog.com/capture/", requests[0].URL)
	assert.Equal(t, "application/json", requests[0].Header.Get("Content-Type"))
	assert.Equal(t, 5*time.Second, requests[0].Timeout)
}

func TestClient_Capture_TransportErrorIsConnection(t *testing.T) {
	cause := errors.New("network unreachable")
	transport := &recordingTransport{sendErr: cause}
	client := newTestClient(t, transport)

	err := client.Capture(context.Background(), NewEvent("e", "id"))

	require.Error(t, err)
	assert.ErrorIs(t, err, ErrConnection)
	assert.ErrorIs(t, err, cause)
	assert.NotErrorIs(t, err, ErrSerialization)
	assert.Len(t, transport.getRequests(), 1, "exactly one attempt, no retry")
}

func TestClient_Capture_NilEvent(t *testing.T) {
	transport := &recordingTransport{}
	client := newTestClient(t, transport)

	err := client.Capture(context.Background(), nil)

	assert.ErrorIs(t, err, ErrSerialization)
	assert.Empty(t, transport.getRequests())
}

func TestClient_Capture_RejectsMissingIdentity(t *testing.T) {
	tests := []struct {
		name  string
		event *Event
		cause error
	}{
		{"empty name", NewEvent("", "user-1"), errEmptyEventName},
		{"empty distinct id", NewEvent("signup", ""), errEmptyDistinctID},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			transport := &recordingTransport{}
			client := newTestClient(t, transport)

			err := client.Capture(context.Background(), tt.event)

			assert.ErrorIs(t, err, ErrSerialization)
			assert.ErrorIs(t, err, tt.cause)
			assert.Empty(t, transport.getRequests())
		})
	}
}

func TestClient_CaptureBatch_RejectsEmptyDistinctID(t *testing.T) {
	transport := &recordingTransport{}
	client := newTestClient(t, transport)

	err := client.CaptureBatch(context.Background(), []*Event{NewEvent("a", "id"), NewEvent("b", "")})

	assert.ErrorIs(t, err, ErrSerialization)
	assert.ErrorIs(t, err, errEmptyDistinctID)
	assert.Contains(t, err.Error(), "event 1")
	assert.Empty(t, transport.getRequests(), "no part of the batch is sent")
}

func TestClient_CaptureException_RejectsEmptyDistinctID(t *testing.T) {
	transport := &recordingTransport{}
	client := newTestClient(t, transport)

	err := client.CaptureException(context.Background(), NewException(errors.New("x"), ""))

	assert.ErrorIs(t, err, errEmptyDistinctID)
	assert.Empty(t, transport.getRequests())
}

func TestClient_Capture_TimeoutIsConnection(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-r.Context().Done():
		case <-time.After(2 * time.Second):
		}
	}))
	defer server.Close()

	client, err := NewClient(ClientOptions{
		Endpoint:              server.URL,
		APIKey:                "phc_test",
		RequestTimeout:        50 * time.Millisecond,
		DisablePanicCapturing: true,
	})
	require.NoError(t, err)

	err = client.Capture(context.Background(), NewEvent("e", "id"))

	assert.ErrorIs(t, err, ErrConnection)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestClient_CaptureBatch_SingleArrayPayload(t *testing.T) {
	server, getRequests := newIngestServer(t, http.StatusOK)
	client, err := NewClient(ClientOptions{
		Endpoint:              server.URL + "/capture/",
		APIKey:                "phc_project",
		DisablePanicCapturing: true,
	})
	require.NoError(t, err)

	events := []*Event{
		NewEvent("first", "user-1"),
		NewEvent("second", "user-2"),
		NewEvent("third", "user-3"),
	}
	require.NoError(t, client.CaptureBatch(context.Background(), events))

	requests := getRequests()
	require.Len(t, requests, 1, "a batch is one request")
	body := requests[0].body
	require.True(t, gjson.ParseBytes(body).IsArray())
	assert.Equal(t, int64(3), gjson.GetBytes(body, "#").Int())
	assert.Equal(t, []string{"first", "second", "third"}, stringsOf(gjson.GetBytes(body, "#.event")))
	assert.Equal(t, []string{"user-1", "user-2", "user-3"}, stringsOf(gjson.GetBytes(body, "#.properties.distinct_id")))
	for _, apiKey := range gjson.GetBytes(body, "#.api_key").Array() {
		assert.Equal(t, "phc_project", apiKey.String())
	}
	for _, lib := range gjson.GetBytes(body, "#.properties.props.$lib_name").Array() {
		assert.Equal(t, LibName, lib.String())
	}
}

func TestClient_CaptureBatch_Empty(t *testing.T) {
	transport := &recordingTransport{}
	client := newTestClient(t, transport)

	require.NoError(t, client.CaptureBatch(context.Background(), nil))
	require.NoError(t, client.CaptureBatch(context.Background(), []*Event{}))

	assert.Empty(t, transport.getRequests())
}

func TestClient_CaptureBatch_NilElement(t *testing.T) {
	transport := &recordingTransport{}
	client := newTestClient(t, transport)

	err := client.CaptureBatch(context.Background(), []*Event{NewEvent("a", "id"), nil})

	assert.ErrorIs(t, err, ErrSerialization)
	assert.Empty(t, transport.getRequests(), "nothing is sent when the batch cannot be encoded")
}

func TestClient_CaptureBatch_FailureSurfaces(t *testing.T) {
	server, getRequests := newIngestServer(t, http.StatusServiceUnavailable)
	client, err := NewClient(ClientOptions{
		Endpoint:              server.URL,
		APIKey:                "phc_test",
		DisablePanicCapturing: true,
	})
	require.NoError(t, err)

	err = client.CaptureBatch(context.Background(), []*Event{NewEvent("a", "id"), NewEvent("b", "id")})

	assert.ErrorIs(t, err, ErrConnection)
	assert.Len(t, getRequests(), 1)
}

func TestClient_CaptureException(t *testing.T) {
	transport := &recordingTransport{}
	client := newTestClient(t, transport)

	exc := NewException(&structuredError{Port: 443}, "user-9")
	require.NoError(t, exc.InsertProp("region", "us-east-1"))

	require.NoError(t, client.CaptureException(context.Background(), exc))

	requests := transport.getRequests()
	require.Len(t, requests, 1)
	body := requests[0].Body
	assert.Equal(t, "$exception", gjson.GetBytes(body, "event").String())
	assert.Equal(t, "user-9", gjson.GetBytes(body, "properties.distinct_id").String())
	assert.Equal(t, "error", gjson.GetBytes(body, "properties.$exception_level").String())
	assert.Equal(t, int64(1), gjson.GetBytes(body, "properties.$exception_list.#").Int())
	assert.Equal(t, "ConnectionRefused", gjson.GetBytes(body, "properties.$exception_list.0.type").String())
	assert.Equal(t, "connection refused on port 443", gjson.GetBytes(body, "properties.$exception_list.0.value").String())
	assert.True(t, gjson.GetBytes(body, "properties.$exception_list.0.mechanism.handled").Bool())
	assert.False(t, gjson.GetBytes(body, "properties.$exception_list.0.mechanism.synthetic").Bool())
	assert.False(t, gjson.GetBytes(body, "properties.$exception_list.0.stacktrace").Exists())
	assert.Equal(t, "us-east-1", gjson.GetBytes(body, "properties.props.region").String())
}

func TestClient_CaptureExceptionBatch(t *testing.T) {
	transport := &recordingTransport{}
	client := newTestClient(t, transport)

	exceptions := []*Exception{
		NewException(errors.New("first"), "a"),
		NewException(errors.New("second"), "b"),
	}
	require.NoError(t, client.CaptureExceptionBatch(context.Background(), exceptions))

	requests := transport.getRequests()
	require.Len(t, requests, 1)
	body := requests[0].Body
	assert.Equal(t, []string{"$exception", "$exception"}, stringsOf(gjson.GetBytes(body, "#.event")))
	assert.Equal(t, []string{"first", "second"}, stringsOf(gjson.GetBytes(body, "#.properties.$exception_list.0.value")))
}

func TestClient_CaptureExceptionBatch_NilElement(t *testing.T) {
	transport := &recordingTransport{}
	client := newTestClient(t, transport)

	err := client.CaptureExceptionBatch(context.Background(), []*Exception{nil})

	assert.ErrorIs(t, err, ErrSerialization)
	assert.Empty(t, transport.getRequests())
}

func TestClient_Capture_LeavesEventUntouched(t *testing.T) {
	transport := &recordingTransport{}
	client := newTestClient(t, transport, WithDefaultScrubbing())

	event := NewEvent("login", "id")
	require.NoError(t, event.InsertProp("api_token", "abc"))

	require.NoError(t, client.Capture(context.Background(), event))

	raw, ok := event.Prop("api_token")
	require.True(t, ok)
	assert.JSONEq(t, `"abc"`, string(raw))
	_, ok = event.Prop("$lib_name")
	assert.False(t, ok)
}

func TestClient_Capture_AppliesScrubbing(t *testing.T) {
	transport := &recordingTransport{}
	client := newTestClient(t, transport, WithDefaultScrubbing())

	event := NewEvent("login", "id")
	require.NoError(t, event.InsertProp("api_token", "abc"))
	require.NoError(t, event.InsertProp("note", "contact alice@example.com"))
	require.NoError(t, event.InsertProp("plan", "pro"))

	require.NoError(t, client.Capture(context.Background(), event))

	body := transport.getRequests()[0].Body
	assert.Equal(t, "[REDACTED]", gjson.GetBytes(body, "properties.props.api_token").String())
	assert.NotContains(t, gjson.GetBytes(body, "properties.props.note").String(), "alice@example.com")
	assert.Equal(t, "pro", gjson.GetBytes(body, "properties.props.plan").String())
	assert.Equal(t, LibName, gjson.GetBytes(body, "properties.props.$lib_name").String())
}

func TestClient_CaptureException_ScrubsMessage(t *testing.T) {
	transport := &recordingTransport{}
	client := newTestClient(t, transport, WithDefaultScrubbing())

	exc := NewException(errors.New("auth failed password=hunter2"), "id")
	require.NoError(t, client.CaptureException(context.Background(), exc))

	value := gjson.GetBytes(transport.getRequests()[0].Body, "properties.$exception_list.0.value").String()
	assert.NotContains(t, value, "hunter2")
	assert.Contains(t, value, "[REDACTED]")
}

func TestClient_Close(t *testing.T) {
	transport := &recordingTransport{}
	client := newTestClient(t, transport)

	require.NoError(t, client.Close())

	transport.mu.Lock()
	defer transport.mu.Unlock()
	assert.True(t, transport.closed)
}

func TestClient_ConcurrentCapture(t *testing.T) {
	transport := &recordingTransport{}
	client := newTestClient(t, transport)

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_ = client.Capture(context.Background(), NewEvent("concurrent", "id"))
		}()
	}
	wg.Wait()

	assert.Len(t, transport.getRequests(), 20)
}

func stringsOf(result gjson.Result) []string {
	var out []string
	for _, r := range result.Array() {
		out = append(out, r.String())
	}
	return out
}
