package sandbox

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/rs/zerolog"

	"campus-assessment-service/internal/app"
)

// Client dispatches code to a JDoodle-compatible execution sandbox. The
// sandbox is treated as untrusted and unreliable: the judge absorbs any
// error returned here as a single failed test case.
type Client struct {
	apiURL       string
	clientID     string
	clientSecret string
	httpClient   *http.Client
	log          zerolog.Logger
}

func NewClient(apiURL, clientID, clientSecret string, timeout time.Duration, log zerolog.Logger) *Client {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &Client{
		apiURL:       apiURL,
		clientID:     clientID,
		clientSecret: clientSecret,
		httpClient:   &http.Client{Timeout: timeout},
		log:          log,
	}
}

type executeRequest struct {
	ClientID     string `json:"clientId"`
	ClientSecret string `json:"clientSecret"`
	Script       string `json:"script"`
	Language     string `json:"language"`
	VersionIndex string `json:"versionIndex"`
	Stdin        string `json:"stdin"`
}

type executeResponse struct {
	Output     string `json:"output"`
	StatusCode int    `json:"statusCode"`
	Memory     string `json:"memory"`
	CPUTime    string `json:"cpuTime"`
}

// Execute runs one source/stdin pair in the sandbox.
func (c *Client) Execute(ctx context.Context, req app.ExecRequest) (app.ExecResult, error) {
	body, err := json.Marshal(executeRequest{
		ClientID:     c.clientID,
		ClientSecret: c.clientSecret,
		Script:       req.Source,
		Language:     req.Language,
		VersionIndex: req.VersionIndex,
		Stdin:        req.Stdin,
	})
	if err != nil {
		return app.ExecResult{}, fmt.Errorf("marshal execute request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.apiURL, bytes.NewReader(body))
	if err != nil {
		return app.ExecResult{}, fmt.Errorf("build execute request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return app.ExecResult{}, fmt.Errorf("sandbox call: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return app.ExecResult{}, fmt.Errorf("sandbox returned status %d", resp.StatusCode)
	}

	var decoded executeResponse
	if err := json.NewDecoder(resp.Body).Decode(&decoded); err != nil {
		return app.ExecResult{}, fmt.Errorf("decode sandbox response: %w", err)
	}

	c.log.Debug().
		Str("language", req.Language).
		Str("cpuTime", decoded.CPUTime).
		Msg("sandbox execution finished")

	return app.ExecResult{Output: decoded.Output}, nil
}
