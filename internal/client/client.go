package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/hashicorp/go-retryablehttp"
	"go.uber.org/zap"

	"pool-transcoder/internal/config"
	"pool-transcoder/pkg/models"
)

// JobServiceClient talks to the external transcoding job API.
type JobServiceClient struct {
	baseURL      string
	apiKey       string
	httpClient   *http.Client // idempotent reads, retried
	submitClient *http.Client // job creation, never retried
	logger       *zap.Logger
}

// NewJobServiceClient creates a robust HTTP client with retries against baseURL.
// Throttling (429) is never retried by the transport so callers can back off themselves,
// and job creation is sent once so a timeout cannot spawn duplicate jobs.
func NewJobServiceClient(baseURL string, cfg config.JobServiceConfig, logger *zap.Logger) *JobServiceClient {
	return &JobServiceClient{
		baseURL:      strings.TrimRight(baseURL, "/"),
		apiKey:       cfg.APIKey,
		httpClient:   newRetryClient(cfg.RetryMax, cfg.RequestTimeout),
		submitClient: newRetryClient(0, cfg.RequestTimeout),
		logger:       logger,
	}
}

func newRetryClient(retryMax int, timeout time.Duration) *http.Client {
	retryClient := retryablehttp.NewClient()
	retryClient.RetryMax = retryMax
	retryClient.RetryWaitMin = 500 * time.Millisecond
	retryClient.RetryWaitMax = 5 * time.Second
	retryClient.Logger = nil // Silence default debug logger
	retryClient.CheckRetry = checkRetry
	retryClient.ErrorHandler = retryablehttp.PassthroughErrorHandler
	if timeout > 0 {
		retryClient.HTTPClient.Timeout = timeout
	}
	return retryClient.StandardClient()
}

// Dial resolves the account-specific endpoint and returns a client bound to it.
func Dial(ctx context.Context, cfg config.JobServiceConfig, logger *zap.Logger) (*JobServiceClient, error) {
	discovery := NewJobServiceClient(cfg.URL, cfg, logger)

	var resp models.EndpointsResponse
	if err := discovery.doRequest(ctx, http.MethodGet, "/v1/endpoints", nil, &resp); err != nil {
		return nil, fmt.Errorf("describe endpoints: %w", err)
	}
	if len(resp.Endpoints) == 0 || resp.Endpoints[0].URL == "" {
		return nil, errors.New("describe endpoints: job service returned no endpoint")
	}

	endpoint := resp.Endpoints[0].URL
	logger.Debug("Resolved job service endpoint", zap.String("endpoint", endpoint))
	return NewJobServiceClient(endpoint, cfg, logger), nil
}

// checkRetry is the default policy except that 429 is handed back to the caller.
func checkRetry(ctx context.Context, resp *http.Response, err error) (bool, error) {
	if resp != nil && resp.StatusCode == http.StatusTooManyRequests {
		return false, nil
	}
	return retryablehttp.DefaultRetryPolicy(ctx, resp, err)
}

// doRequest is the core HTTP request handler with error interception
func (c *JobServiceClient) doRequest(ctx context.Context, method, path string, payload interface{}, response interface{}) error {
	var body io.Reader
	if payload != nil {
		jsonBytes, err := json.Marshal(payload)
		if err != nil {
			return fmt.Errorf("failed to marshal payload: %w", err)
		}
		body = bytes.NewReader(jsonBytes)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	httpClient := c.httpClient
	if method != http.MethodGet {
		httpClient = c.submitClient
	}

	resp, err := httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusTooManyRequests {
		return &TooManyRequestsError{RetryAfter: resp.Header.Get("Retry-After")}
	}

	if resp.StatusCode >= 400 {
		return &APIError{StatusCode: resp.StatusCode, Message: readMessage(resp.Body)}
	}

	if response != nil && resp.StatusCode != http.StatusNoContent {
		if err := json.NewDecoder(resp.Body).Decode(response); err != nil {
			return fmt.Errorf("failed to decode response: %w", err)
		}
	}

	return nil
}

// CreateJob submits a transcode job and returns its handle.
func (c *JobServiceClient) CreateJob(ctx context.Context, spec *models.JobSpec) (*models.JobHandle, error) {
	var resp models.CreateJobResponse
	if err := c.doRequest(ctx, http.MethodPost, "/v1/jobs", spec, &resp); err != nil {
		return nil, fmt.Errorf("create job: %w", err)
	}
	handle := &models.JobHandle{ID: resp.Job.ID}
	status, err := models.ParseJobStatus(resp.Job.Status)
	if err != nil {
		c.logger.Warn("Created job has unrecognised status",
			zap.String("job_id", resp.Job.ID),
			zap.String("status", resp.Job.Status),
		)
		return handle, nil
	}
	handle.Status = status
	return handle, nil
}

// GetJob returns the current remote state of jobID.
func (c *JobServiceClient) GetJob(ctx context.Context, jobID string) (*models.JobState, error) {
	var resp models.GetJobResponse
	path := "/v1/jobs/" + url.PathEscape(jobID)
	if err := c.doRequest(ctx, http.MethodGet, path, nil, &resp); err != nil {
		return nil, fmt.Errorf("get job %s: %w", jobID, err)
	}
	c.logger.Debug("Polled job",
		zap.String("job_id", jobID),
		zap.String("status", string(resp.Job.Status)),
		zap.Int("percent_complete", resp.Job.PercentComplete),
	)
	return &resp.Job, nil
}

// TooManyRequestsError indicates the job service throttled the request.
type TooManyRequestsError struct {
	RetryAfter string
}

func (e *TooManyRequestsError) Error() string {
	if e.RetryAfter != "" {
		return fmt.Sprintf("too many requests (retry after %s)", e.RetryAfter)
	}
	return "too many requests"
}

func (e *TooManyRequestsError) Unwrap() error {
	return models.ErrTooManyRequests
}

// APIError carries a non-throttling error status from the job service.
type APIError struct {
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("job service returned status %d: %s", e.StatusCode, e.Message)
	}
	return fmt.Sprintf("job service returned status %d", e.StatusCode)
}

func readMessage(r io.Reader) string {
	var body struct {
		Message string `json:"message"`
	}
	raw, err := io.ReadAll(io.LimitReader(r, 4096))
	if err != nil {
		return ""
	}
	if json.Unmarshal(raw, &body) == nil && body.Message != "" {
		return body.Message
	}
	return strings.TrimSpace(string(raw))
}
