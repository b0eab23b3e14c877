package splunk

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strconv"
	"strings"
	"testing"
	"time"
)

// newTestClient points a Client at an httptest server.
func newTestClient(t *testing.T, srv *httptest.Server, cfg Config) *Client {
	t.Helper()
	u, err := url.Parse(srv.URL)
	if err != nil {
		t.Fatalf("parsing test server url: %v", err)
	}
	port, err := strconv.Atoi(u.Port())
	if err != nil {
		t.Fatalf("parsing test server port: %v", err)
	}
	cfg.Scheme = "http"
	cfg.Host = u.Hostname()
	cfg.Port = port
	if cfg.PollInterval == 0 {
		cfg.PollInterval = 5 * time.Millisecond
	}
	if cfg.WaitTimeout == 0 {
		cfg.WaitTimeout = 2 * time.Second
	}
	return New(cfg)
}

func TestSubmit(t *testing.T) {
	var gotSearch, gotAuth string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost || r.URL.Path != "/services/search/jobs" {
			t.Errorf("unexpected request: %s %s", r.Method, r.URL.Path)
		}
		if err := r.ParseForm(); err != nil {
			t.Fatalf("parsing form: %v", err)
		}
		gotSearch = r.PostFormValue("search")
		if r.PostFormValue("output_mode") != "json" {
			t.Errorf("output_mode = %q, want json", r.PostFormValue("output_mode"))
		}
		gotAuth = r.Header.Get("Authorization")
		json.NewEncoder(w).Encode(JobHandle{SID: "1724680000.42"})
	}))
	defer srv.Close()

	c := newTestClient(t, srv, Config{Token: "secret-token"})

	h, err := c.Submit(context.Background(), `| makeresults | outputlookup "test.csv"`)
	if err != nil {
		t.Fatalf("Submit() error = %v", err)
	}
	if h.SID != "1724680000.42" {
		t.Errorf("SID = %q, want 1724680000.42", h.SID)
	}
	if gotSearch != `| makeresults | outputlookup "test.csv"` {
		t.Errorf("submitted search = %q", gotSearch)
	}
	if gotAuth != "Bearer secret-token" {
		t.Errorf("Authorization = %q, want bearer token", gotAuth)
	}
}

func TestSubmit_BasicAuth(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		user, pass, ok := r.BasicAuth()
		if !ok || user != "admin" || pass != "changeme" {
			t.Errorf("basic auth = %q/%q ok=%v", user, pass, ok)
		}
		json.NewEncoder(w).Encode(JobHandle{SID: "sid-1"})
	}))
	defer srv.Close()

	c := newTestClient(t, srv, Config{Username: "admin", Password: "changeme"})
	if _, err := c.Submit(context.Background(), "| makeresults"); err != nil {
		t.Fatalf("Submit() error = %v", err)
	}
}

func TestSubmit_AuthFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"messages":[{"type":"ERROR","text":"Unauthorized"}]}`, http.StatusUnauthorized)
	}))
	defer srv.Close()

	c := newTestClient(t, srv, Config{Token: "bad"})
	_, err := c.Submit(context.Background(), "| makeresults")
	if err == nil {
		t.Fatal("Submit() expected error")
	}

	var apiErr *APIError
	if !errors.As(err, &apiErr) {
		t.Fatalf("error = %v, want APIError", err)
	}
	if apiErr.StatusCode != http.StatusUnauthorized {
		t.Errorf("StatusCode = %d, want 401", apiErr.StatusCode)
	}
	if !strings.Contains(apiErr.Payload, "Unauthorized") {
		t.Errorf("Payload = %q, want remote message preserved", apiErr.Payload)
	}
}

// splunkdFake simulates the dispatch → poll → results lifecycle.
type splunkdFake struct {
	pollsUntilDone int
	polls          int
	failed         bool
	results        []map[string]interface{}
}

func (f *splunkdFake) handler(t *testing.T) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		switch {
		case r.Method == http.MethodPost && r.URL.Path == "/services/search/jobs":
			json.NewEncoder(w).Encode(JobHandle{SID: "sid-7"})

		case r.Method == http.MethodGet && r.URL.Path == "/services/search/jobs/sid-7":
			f.polls++
			done := f.polls > f.pollsUntilDone
			fmt.Fprintf(w, `{"messages":[{"type":"ERROR","text":"Error in 'inputlookup' command"}],
				"entry":[{"name":"search","content":{"sid":"sid-7","isDone":%v,"isFailed":%v,"dispatchState":"%s","resultCount":%d}}]}`,
				done && !f.failed, f.failed && done, "RUNNING", len(f.results))

		case r.Method == http.MethodGet && r.URL.Path == "/services/search/jobs/sid-7/results":
			resp := resultsResponse{Results: f.results}
			for k := range firstKeys(f.results) {
				resp.Fields = append(resp.Fields, struct {
					Name string `json:"name"`
				}{Name: k})
			}
			json.NewEncoder(w).Encode(resp)

		default:
			t.Errorf("unexpected request: %s %s", r.Method, r.URL.Path)
			w.WriteHeader(http.StatusNotFound)
		}
	}
}

func firstKeys(results []map[string]interface{}) map[string]struct{} {
	keys := map[string]struct{}{}
	if len(results) > 0 {
		for k := range results[0] {
			keys[k] = struct{}{}
		}
	}
	return keys
}

func TestRun_PollsUntilDone(t *testing.T) {
	fake := &splunkdFake{
		pollsUntilDone: 2,
		results:        []map[string]interface{}{{"count": "2"}},
	}
	srv := httptest.NewServer(fake.handler(t))
	defer srv.Close()

	c := newTestClient(t, srv, Config{Token: "tok"})

	res, err := c.Run(context.Background(), `| inputlookup "test.csv" | stats count`)
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if fake.polls < 3 {
		t.Errorf("polls = %d, want at least 3 (two pending, one done)", fake.polls)
	}
	if got := res.FirstString("count"); got != "2" {
		t.Errorf("FirstString(count) = %q, want 2", got)
	}
}

func TestAwait_JobFailed(t *testing.T) {
	fake := &splunkdFake{pollsUntilDone: 0, failed: true}
	srv := httptest.NewServer(fake.handler(t))
	defer srv.Close()

	c := newTestClient(t, srv, Config{Token: "tok"})

	_, err := c.Run(context.Background(), `| inputlookup "missing.csv"`)
	if err == nil {
		t.Fatal("Run() expected error for failed job")
	}

	var jfe *JobFailedError
	if !errors.As(err, &jfe) {
		t.Fatalf("error = %v, want JobFailedError", err)
	}
	if jfe.SID != "sid-7" {
		t.Errorf("SID = %q, want sid-7", jfe.SID)
	}
	if !strings.Contains(jfe.Error(), "inputlookup") {
		t.Errorf("Error() = %q, want remote message included", jfe.Error())
	}
}

func TestAwait_Timeout(t *testing.T) {
	fake := &splunkdFake{pollsUntilDone: 1 << 30} // never done
	srv := httptest.NewServer(fake.handler(t))
	defer srv.Close()

	c := newTestClient(t, srv, Config{
		Token:        "tok",
		PollInterval: 5 * time.Millisecond,
		WaitTimeout:  30 * time.Millisecond,
	})

	_, err := c.Run(context.Background(), "| makeresults")
	if !errors.Is(err, ErrTimeout) {
		t.Errorf("Run() error = %v, want wrapped ErrTimeout", err)
	}
}

func TestAwait_ContextCancelled(t *testing.T) {
	fake := &splunkdFake{pollsUntilDone: 1 << 30}
	srv := httptest.NewServer(fake.handler(t))
	defer srv.Close()

	c := newTestClient(t, srv, Config{Token: "tok", WaitTimeout: time.Minute})

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(20 * time.Millisecond)
		cancel()
	}()

	_, err := c.Run(ctx, "| makeresults")
	if !errors.Is(err, context.Canceled) {
		t.Errorf("Run() error = %v, want context.Canceled", err)
	}
}

func TestSubmit_EmptySID(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{}`)
	}))
	defer srv.Close()

	c := newTestClient(t, srv, Config{Token: "tok"})
	_, err := c.Submit(context.Background(), "| makeresults")
	if err == nil || !strings.Contains(err.Error(), "no sid") {
		t.Errorf("Submit() error = %v, want no-sid error", err)
	}
}
