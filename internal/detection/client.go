package detection

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math"
	"net/http"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v5"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
)

const (
	StatusIdle      = "idle"
	StatusRunning   = "running"
	StatusCompleted = "completed"
	StatusError     = "error"
)

// Results is what the oracle read off the vehicle. Fields may be partial
// until detection completes.
type Results struct {
	VehicleType  string  `json:"vehicle_type,omitempty"`
	LicensePlate string  `json:"license_plate,omitempty"`
	ParkingHours float64 `json:"parking_hours,omitempty"`
}

// Hours rounds ParkingHours to whole hours.
func (r Results) Hours() int {
	return int(math.Round(r.ParkingHours))
}

func (r Results) Complete() bool {
	return r.VehicleType != "" && r.LicensePlate != "" && r.Hours() > 0
}

type Status struct {
	Status       string   `json:"status"`
	CurrentPhase string   `json:"current_phase,omitempty"`
	Message      string   `json:"message,omitempty"`
	Results      *Results `json:"results,omitempty"`
}

// Done reports whether polling can stop.
func (s Status) Done() bool {
	return s.Status == StatusCompleted || s.Status == StatusError
}

type Config struct {
	BaseURL         string        `json:"base_url"`
	StartTimeout    time.Duration `json:"start_timeout"`
	RequestTimeout  time.Duration `json:"request_timeout"`
	PollInterval    time.Duration `json:"poll_interval"`
	MaxPollInterval time.Duration `json:"max_poll_interval"`
	MaxWait         time.Duration `json:"max_wait"`
}

func (c *Config) SetDefaults() {
	if c.BaseURL == "" {
		c.BaseURL = "http://localhost:8000"
	}
	if c.StartTimeout <= 0 {
		c.StartTimeout = 10 * time.Second
	}
	if c.RequestTimeout <= 0 {
		c.RequestTimeout = 5 * time.Second
	}
	if c.PollInterval <= 0 {
		c.PollInterval = 500 * time.Millisecond
	}
	if c.MaxPollInterval <= 0 {
		c.MaxPollInterval = 5 * time.Second
	}
	if c.MaxWait <= 0 {
		c.MaxWait = 2 * time.Minute
	}
}

func (c Config) Validate() error {
	if !strings.HasPrefix(c.BaseURL, "http://") && !strings.HasPrefix(c.BaseURL, "https://") {
		return fmt.Errorf("detection base_url must be http(s), got %q", c.BaseURL)
	}
	if c.MaxPollInterval < c.PollInterval {
		return fmt.Errorf("detection max_poll_interval %s is below poll_interval %s", c.MaxPollInterval, c.PollInterval)
	}
	return nil
}

// Client talks to the vehicle detection oracle. Every call returns a Status;
// transport and decode failures come back as a Status with Status "error".
type Client struct {
	cfg  Config
	http *http.Client
}

func NewClient(cfg Config) *Client {
	cfg.SetDefaults()
	cfg.BaseURL = strings.TrimRight(cfg.BaseURL, "/")
	return &Client{
		cfg: cfg,
		http: &http.Client{
			Transport: otelhttp.NewTransport(http.DefaultTransport),
		},
	}
}

func (c *Client) BaseURL() string { return c.cfg.BaseURL }

func (c *Client) Start(ctx context.Context) Status {
	return c.do(ctx, http.MethodPost, "/start_detection", c.cfg.StartTimeout, "Connection error")
}

func (c *Client) Poll(ctx context.Context) Status {
	return c.do(ctx, http.MethodGet, "/get_results", c.cfg.RequestTimeout, "Connection error")
}

func (c *Client) Reset(ctx context.Context) Status {
	return c.do(ctx, http.MethodPost, "/reset", c.cfg.RequestTimeout, "Connection error")
}

func (c *Client) Health(ctx context.Context) Status {
	return c.do(ctx, http.MethodGet, "/health", c.cfg.RequestTimeout, "Server not available")
}

func errorStatus(prefix string, err error) Status {
	return Status{Status: StatusError, Message: fmt.Sprintf("%s: %v", prefix, err)}
}

func (c *Client) do(ctx context.Context, method, path string, timeout time.Duration, prefix string) Status {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, method, c.cfg.BaseURL+path, nil)
	if err != nil {
		return errorStatus(prefix, err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return errorStatus(prefix, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return errorStatus(prefix, err)
	}

	var st Status
	if err := json.Unmarshal(body, &st); err != nil {
		return errorStatus(prefix, fmt.Errorf("decode %s response (HTTP %d): %w", path, resp.StatusCode, err))
	}
	if st.Status == "" {
		if resp.StatusCode >= http.StatusBadRequest {
			return errorStatus(prefix, fmt.Errorf("%s returned HTTP %d", path, resp.StatusCode))
		}
		st.Status = StatusIdle
	}
	return st
}

var errStillRunning = errors.New("detection still running")

// WaitForResult polls with exponential backoff until the oracle reports
// completed or error, MaxWait elapses, or ctx is done.
func (c *Client) WaitForResult(ctx context.Context) Status {
	ctx, cancel := context.WithTimeout(ctx, c.cfg.MaxWait)
	defer cancel()

	bo := backoff.NewExponentialBackOff()
	bo.InitialInterval = c.cfg.PollInterval
	bo.MaxInterval = c.cfg.MaxPollInterval

	var last Status
	st, err := backoff.Retry(ctx, func() (Status, error) {
		last = c.Poll(ctx)
		if last.Done() {
			return last, nil
		}
		return Status{}, errStillRunning
	},
		backoff.WithBackOff(bo),
		backoff.WithMaxElapsedTime(c.cfg.MaxWait),
	)
	if err != nil {
		msg := "timed out waiting for detection"
		if last.Message != "" {
			msg += ": " + last.Message
		}
		return Status{Status: StatusError, CurrentPhase: last.CurrentPhase, Message: msg, Results: last.Results}
	}
	return st
}
