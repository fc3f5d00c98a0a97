package boltclient

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"path"
	"time"

	"github.com/rs/zerolog"

	"github.com/compose-network/bolt/internal/boltstate"
	"github.com/compose-network/bolt/internal/boltstatus"
	"github.com/compose-network/bolt/internal/stage"
)

// HTTPClient implements Client over a peer's REST instance-management API.
// Grounded on x/superblock/proofs/prover's HTTPClient: a parsed base URL, an
// injected *http.Client, and one small typed method per remote call.
type HTTPClient struct {
	baseURL    *url.URL
	httpClient *http.Client
	log        zerolog.Logger
}

// NewHTTPClient constructs a peer client against rawURL. A nil httpClient
// gets a 30s-timeout default.
func NewHTTPClient(rawURL string, httpClient *http.Client, log zerolog.Logger) (*HTTPClient, error) {
	if rawURL == "" {
		return nil, errors.New("peer base URL is required")
	}
	parsed, err := url.Parse(rawURL)
	if err != nil {
		return nil, fmt.Errorf("invalid peer base URL: %w", err)
	}
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 30 * time.Second}
	}

	return &HTTPClient{
		baseURL:    parsed,
		httpClient: httpClient,
		log:        log.With().Str("component", "boltclient-http").Logger(),
	}, nil
}

func (c *HTTPClient) buildURL(elems ...string) string {
	u := *c.baseURL
	u.Path = path.Join(append([]string{u.Path}, elems...)...)
	return u.String()
}

func (c *HTTPClient) do(ctx context.Context, method, endpoint string, body, out any) error {
	var reader io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("marshal request: %w", err)
		}
		reader = bytes.NewReader(b)
	}

	req, err := http.NewRequestWithContext(ctx, method, endpoint, reader)
	if err != nil {
		return fmt.Errorf("prepare request: %w", err)
	}
	if reader != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	res, err := c.httpClient.Do(req)
	if err != nil {
		c.log.Error().Err(err).Str("endpoint", endpoint).Msg("peer request failed")
		return fmt.Errorf("request %s: %w", endpoint, err)
	}
	defer res.Body.Close()

	if res.StatusCode >= 400 {
		msg, _ := io.ReadAll(io.LimitReader(res.Body, 4096))
		return fmt.Errorf("peer returned %s: %s", res.Status, string(msg))
	}
	if out == nil {
		return nil
	}
	if err := json.NewDecoder(res.Body).Decode(out); err != nil {
		return fmt.Errorf("decode response from %s: %w", endpoint, err)
	}
	return nil
}

type createInstanceResponse struct {
	InstanceID string `json:"instance_id"`
}

// GetOrCreateInstance implements Client.
func (c *HTTPClient) GetOrCreateInstance(ctx context.Context, args Args) (string, error) {
	var resp createInstanceResponse
	if err := c.do(ctx, http.MethodPost, c.buildURL("instances"), args, &resp); err != nil {
		return "", err
	}
	return resp.InstanceID, nil
}

// UpdateInstance implements Client.
func (c *HTTPClient) UpdateInstance(ctx context.Context, instanceID string) (boltstate.State, error) {
	var st boltstate.State
	err := c.do(ctx, http.MethodGet, c.buildURL("instances", instanceID), nil, &st)
	return st, err
}

type runStageRequest struct {
	Stage     string        `json:"stage"`
	ServerCtx ServerContext `json:"server_context"`
}

// RunStage implements Client.
func (c *HTTPClient) RunStage(ctx context.Context, instanceID string, st stage.Stage, serverCtx ServerContext) error {
	req := runStageRequest{Stage: st.Name, ServerCtx: serverCtx}
	return c.do(ctx, http.MethodPost, c.buildURL("instances", instanceID, "stage"), req, nil)
}

// CancelCurrentStage implements Client.
func (c *HTTPClient) CancelCurrentStage(ctx context.Context, instanceID string) error {
	return c.do(ctx, http.MethodPost, c.buildURL("instances", instanceID, "cancel"), nil, nil)
}

type validStageResponse struct {
	Stage string `json:"stage"`
	Done  bool   `json:"done"`
}

// GetValidStage implements Client.
func (c *HTTPClient) GetValidStage(ctx context.Context, instanceID string, flow stage.Flow) (stage.Stage, bool, error) {
	var resp validStageResponse
	if err := c.do(ctx, http.MethodGet, c.buildURL("instances", instanceID, "valid-stage"), nil, &resp); err != nil {
		return stage.Stage{}, false, err
	}
	if resp.Done {
		return stage.Stage{}, false, nil
	}
	st, ok := flow.ByName(resp.Stage)
	if !ok {
		return stage.Stage{}, false, fmt.Errorf("peer reported unknown stage %q", resp.Stage)
	}
	return st, true, nil
}

type stageFlowResponse struct {
	Flow []flowStageDTO `json:"flow"`
	Name string         `json:"name"`
}

type flowStageDTO struct {
	Name              string `json:"name"`
	InitializedStatus string `json:"initialized_status"`
	StartedStatus     string `json:"started_status"`
	CompletedStatus   string `json:"completed_status"`
	FailedStatus      string `json:"failed_status"`
	IsJointStage      bool   `json:"is_joint_stage"`
	IsRetryable       bool   `json:"is_retryable"`
	TimeoutSeconds    int64  `json:"timeout_seconds"`
}

// GetStageFlow implements Client.
func (c *HTTPClient) GetStageFlow(ctx context.Context, instanceID string) (stage.Flow, bool, error) {
	var resp stageFlowResponse
	if err := c.do(ctx, http.MethodGet, c.buildURL("instances", instanceID, "flow"), nil, &resp); err != nil {
		return stage.Flow{}, false, err
	}
	if len(resp.Flow) == 0 {
		return stage.Flow{}, false, nil
	}

	stages := make([]stage.Stage, len(resp.Flow))
	for i, s := range resp.Flow {
		stages[i] = stage.Stage{
			Name:              s.Name,
			InitializedStatus: boltstatus.Status(s.InitializedStatus),
			StartedStatus:     boltstatus.Status(s.StartedStatus),
			CompletedStatus:   boltstatus.Status(s.CompletedStatus),
			FailedStatus:      boltstatus.Status(s.FailedStatus),
			IsJointStage:      s.IsJointStage,
			IsRetryable:       s.IsRetryable,
			Timeout:           time.Duration(s.TimeoutSeconds) * time.Second,
		}
	}
	return stage.NewFlow(resp.Name, stages...), true, nil
}

type shouldInvokeResponse struct {
	ShouldInvoke bool `json:"should_invoke"`
}

// ShouldInvokeStage implements Client.
func (c *HTTPClient) ShouldInvokeStage(ctx context.Context, instanceID string, st stage.Stage) (bool, error) {
	var resp shouldInvokeResponse
	err := c.do(ctx, http.MethodGet, c.buildURL("instances", instanceID, "stages", st.Name, "should-invoke"), nil, &resp)
	return resp.ShouldInvoke, err
}

type featureResponse struct {
	Enabled bool `json:"enabled"`
}

// HasFeature implements Client.
func (c *HTTPClient) HasFeature(ctx context.Context, instanceID string, feature string) (bool, error) {
	var resp featureResponse
	err := c.do(ctx, http.MethodGet, c.buildURL("instances", instanceID, "features", feature), nil, &resp)
	return resp.Enabled, err
}
