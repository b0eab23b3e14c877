// Package splunk is a minimal client for the splunkd management REST
// API, covering exactly the submit/await contract the importer needs:
// dispatch a search job, poll it to completion, fetch its results.
//
// Authentication is either a bearer token (SPLUNK_TOKEN) or basic auth.
// Splunk instances commonly run with self-signed certificates on the
// management port, so certificate verification can be switched off via
// configuration.
package splunk

import (
	"context"
	"crypto/tls"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// ErrTimeout reports that a dispatched job did not complete within the
// configured wait window. Distinct from a failed job: the search may
// still be running remotely.
var ErrTimeout = errors.New("timed out waiting for search job completion")

// APIError is a non-2xx response from splunkd. Payload holds the raw
// response body so callers can surface the remote error message.
type APIError struct {
	StatusCode int
	Payload    string
}

func (e *APIError) Error() string {
	if e.StatusCode == http.StatusUnauthorized {
		return fmt.Sprintf("splunk authentication failed (status %d): %s", e.StatusCode, e.Payload)
	}
	return fmt.Sprintf("splunk api error (status %d): %s", e.StatusCode, e.Payload)
}

// JobFailedError reports a job that splunkd dispatched but marked failed.
type JobFailedError struct {
	SID      string
	Messages []Message
}

func (e *JobFailedError) Error() string {
	if len(e.Messages) == 0 {
		return fmt.Sprintf("search job %s failed", e.SID)
	}
	texts := make([]string, len(e.Messages))
	for i, m := range e.Messages {
		texts[i] = m.Text
	}
	return fmt.Sprintf("search job %s failed: %s", e.SID, strings.Join(texts, "; "))
}

// Config holds the connection parameters for one Splunk instance.
// Passed in explicitly so multiple instances can be addressed without
// shared process state.
type Config struct {
	Scheme             string // https unless overridden
	Host               string
	Port               int
	Token              string // bearer token; takes precedence over basic auth
	Username           string
	Password           string
	InsecureSkipVerify bool

	RequestTimeout time.Duration // per HTTP request
	PollInterval   time.Duration // job status poll cadence
	WaitTimeout    time.Duration // total wait for one job to complete
}

// Client talks to one splunkd instance. Safe for sequential use; the
// importer never issues concurrent searches.
type Client struct {
	baseURL    string
	token      string
	username   string
	password   string
	httpClient *http.Client

	pollInterval time.Duration
	waitTimeout  time.Duration
}

// New builds a Client from cfg, applying defaults for anything unset.
func New(cfg Config) *Client {
	scheme := cfg.Scheme
	if scheme == "" {
		scheme = "https"
	}
	port := cfg.Port
	if port == 0 {
		port = 8089
	}
	pollInterval := cfg.PollInterval
	if pollInterval <= 0 {
		pollInterval = 500 * time.Millisecond
	}
	waitTimeout := cfg.WaitTimeout
	if waitTimeout <= 0 {
		waitTimeout = 2 * time.Minute
	}
	requestTimeout := cfg.RequestTimeout
	if requestTimeout <= 0 {
		requestTimeout = 30 * time.Second
	}

	transport := http.DefaultTransport
	if cfg.InsecureSkipVerify {
		transport = &http.Transport{
			TLSClientConfig: &tls.Config{InsecureSkipVerify: true},
		}
	}

	return &Client{
		baseURL:  fmt.Sprintf("%s://%s:%d", scheme, cfg.Host, port),
		token:    cfg.Token,
		username: cfg.Username,
		password: cfg.Password,
		httpClient: &http.Client{
			Timeout:   requestTimeout,
			Transport: transport,
		},
		pollInterval: pollInterval,
		waitTimeout:  waitTimeout,
	}
}

// Submit dispatches spl as a search job and returns its handle.
func (c *Client) Submit(ctx context.Context, spl string) (JobHandle, error) {
	form := url.Values{
		"search":      {spl},
		"output_mode": {"json"},
	}

	var created JobHandle
	if err := c.postForm(ctx, "/services/search/jobs", form, &created); err != nil {
		return JobHandle{}, fmt.Errorf("submitting search job: %w", err)
	}
	if created.SID == "" {
		return JobHandle{}, errors.New("submitting search job: response carried no sid")
	}
	return created, nil
}

// Await blocks until the job completes, then fetches and returns its
// results. A job that does not finish within the configured wait window
// returns an error wrapping ErrTimeout. A job splunkd marks failed
// returns a JobFailedError.
func (c *Client) Await(ctx context.Context, h JobHandle) (*JobResult, error) {
	deadline := time.NewTimer(c.waitTimeout)
	defer deadline.Stop()
	tick := time.NewTicker(c.pollInterval)
	defer tick.Stop()

	for {
		status, err := c.jobStatus(ctx, h.SID)
		if err != nil {
			return nil, fmt.Errorf("polling job %s: %w", h.SID, err)
		}

		if status.Content.IsFailed {
			return nil, &JobFailedError{SID: h.SID, Messages: status.messages}
		}
		if status.Content.IsDone {
			return c.results(ctx, h.SID, status.Content.ResultCount)
		}

		select {
		case <-ctx.Done():
			return nil, fmt.Errorf("awaiting job %s: %w", h.SID, ctx.Err())
		case <-deadline.C:
			return nil, fmt.Errorf("awaiting job %s after %s: %w", h.SID, c.waitTimeout, ErrTimeout)
		case <-tick.C:
		}
	}
}

// Run is Submit followed by Await: the synchronous execute-SPL primitive
// the pipeline is built on.
func (c *Client) Run(ctx context.Context, spl string) (*JobResult, error) {
	h, err := c.Submit(ctx, spl)
	if err != nil {
		return nil, err
	}
	return c.Await(ctx, h)
}

// statusSnapshot bundles the entry content with the job-level messages,
// which live at the top of the status document.
type statusSnapshot struct {
	Content  jobStatusContent
	messages []Message
}

func (c *Client) jobStatus(ctx context.Context, sid string) (statusSnapshot, error) {
	var resp jobStatusResponse
	path := "/services/search/jobs/" + url.PathEscape(sid)
	if err := c.get(ctx, path, url.Values{"output_mode": {"json"}}, &resp); err != nil {
		return statusSnapshot{}, err
	}
	if len(resp.Entry) == 0 {
		return statusSnapshot{}, fmt.Errorf("job %s: status response carried no entries", sid)
	}
	return statusSnapshot{Content: resp.Entry[0].Content, messages: resp.Messages}, nil
}

func (c *Client) results(ctx context.Context, sid string, resultCount int) (*JobResult, error) {
	var resp resultsResponse
	path := "/services/search/jobs/" + url.PathEscape(sid) + "/results"
	query := url.Values{
		"output_mode": {"json"},
		"count":       {"0"}, // no paging; metadata queries are small
	}
	if err := c.get(ctx, path, query, &resp); err != nil {
		return nil, fmt.Errorf("fetching results for job %s: %w", sid, err)
	}

	fields := make([]string, len(resp.Fields))
	for i, f := range resp.Fields {
		fields[i] = f.Name
	}
	return &JobResult{
		SID:         sid,
		ResultCount: resultCount,
		Fields:      fields,
		Results:     resp.Results,
		Messages:    resp.Messages,
	}, nil
}

func (c *Client) postForm(ctx context.Context, path string, form url.Values, out interface{}) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, strings.NewReader(form.Encode()))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	return c.do(req, out)
}

func (c *Client) get(ctx context.Context, path string, query url.Values, out interface{}) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path+"?"+query.Encode(), nil)
	if err != nil {
		return err
	}
	return c.do(req, out)
}

func (c *Client) do(req *http.Request, out interface{}) error {
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	} else if c.username != "" {
		req.SetBasicAuth(c.username, c.password)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("calling %s: %w", req.URL.Path, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return fmt.Errorf("reading response from %s: %w", req.URL.Path, err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return &APIError{StatusCode: resp.StatusCode, Payload: strings.TrimSpace(string(body))}
	}

	if out != nil {
		if err := json.Unmarshal(body, out); err != nil {
			return fmt.Errorf("decoding response from %s: %w", req.URL.Path, err)
		}
	}
	return nil
}
