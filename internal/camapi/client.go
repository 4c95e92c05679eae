package camapi

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/technosupport/cctv-console/internal/data"
	"github.com/technosupport/cctv-console/internal/metrics"
)

const (
	DefaultTimeout = 10 * time.Second

	requestIDHeader = "X-Request-ID"

	camerasPath = "/cameras/"
	cameraPath  = "/cameras/{id}/"
)

type Config struct {
	BaseURL string
	Timeout time.Duration
}

// Client talks to the camera REST backend. It holds no state besides the
// transport; every failure is logged once and handed back unchanged.
type Client struct {
	http *resty.Client
	log  zerolog.Logger
}

func NewClient(cfg Config, log zerolog.Logger) *Client {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}

	c := &Client{log: log.With().Str("component", "camapi").Logger()}
	c.http = resty.New().
		SetBaseURL(cfg.BaseURL).
		SetTimeout(timeout).
		SetHeader("Content-Type", "application/json").
		SetHeader("Accept", "application/json").
		OnBeforeRequest(func(_ *resty.Client, r *resty.Request) error {
			r.SetHeader(requestIDHeader, uuid.NewString())
			return nil
		}).
		OnAfterResponse(checkStatus).
		OnError(c.logError)
	return c
}

func checkStatus(_ *resty.Client, resp *resty.Response) error {
	if resp.IsSuccess() {
		return nil
	}
	return &StatusError{
		StatusCode: resp.StatusCode(),
		Method:     resp.Request.Method,
		URL:        resp.Request.URL,
		Body:       string(resp.Body()),
	}
}

func (c *Client) logError(req *resty.Request, err error) {
	msg := err.Error()
	if msg == "" {
		msg = "Unknown error"
	}

	ev := c.log.Error().
		Str("method", req.Method).
		Str("url", req.URL).
		Str("request_id", req.Header.Get(requestIDHeader))

	var se *StatusError
	var re *resty.ResponseError
	switch {
	case errors.As(err, &se):
		ev = ev.Int("status", se.StatusCode).Str("body", se.Body)
	case errors.As(err, &re) && re.Response != nil && re.Response.RawResponse != nil:
		ev = ev.Int("status", re.Response.StatusCode()).Str("body", string(re.Response.Body()))
	}
	ev.Msg("API error: " + msg)
}

func (c *Client) execute(ctx context.Context, op, method, path string, id *int64, body any) (*resty.Response, error) {
	start := time.Now()

	req := c.http.R().SetContext(ctx)
	if id != nil {
		req.SetPathParam("id", strconv.FormatInt(*id, 10))
	}
	if body != nil {
		req.SetBody(body)
	}

	resp, err := req.Execute(method, path)
	metrics.ObserveAPIRequest(op, err, time.Since(start))
	if err != nil {
		return nil, err
	}
	return resp, nil
}

// ListCameras fetches every camera. A body that is not a JSON array yields a
// nil slice and no error.
func (c *Client) ListCameras(ctx context.Context) ([]data.Camera, error) {
	resp, err := c.execute(ctx, "list", http.MethodGet, camerasPath, nil, nil)
	if err != nil {
		return nil, err
	}
	return c.decodeCameras(resp.Body()), nil
}

func (c *Client) GetCamera(ctx context.Context, id int64) (*data.Camera, error) {
	resp, err := c.execute(ctx, "get", http.MethodGet, cameraPath, &id, nil)
	if err != nil {
		return nil, err
	}
	return c.decodeCamera(resp.Body()), nil
}

func (c *Client) CreateCamera(ctx context.Context, fields data.Fields) (*data.Camera, error) {
	resp, err := c.execute(ctx, "create", http.MethodPost, camerasPath, nil, fields.WithoutID())
	if err != nil {
		return nil, err
	}
	return c.decodeCamera(resp.Body()), nil
}

func (c *Client) UpdateCamera(ctx context.Context, id int64, fields data.Fields) (*data.Camera, error) {
	if fields == nil {
		fields = data.Fields{}
	}
	resp, err := c.execute(ctx, "update", http.MethodPut, cameraPath, &id, fields)
	if err != nil {
		return nil, err
	}
	return c.decodeCamera(resp.Body()), nil
}

func (c *Client) DeleteCamera(ctx context.Context, id int64) error {
	_, err := c.execute(ctx, "delete", http.MethodDelete, cameraPath, &id, nil)
	return err
}

// Ping checks that the backend answers the camera list endpoint.
func (c *Client) Ping(ctx context.Context) error {
	_, err := c.execute(ctx, "ping", http.MethodGet, camerasPath, nil, nil)
	return err
}

func (c *Client) StartStream(ctx context.Context, id int64) (*data.StreamStatus, error) {
	return c.streamAction(ctx, "start", id)
}

func (c *Client) StopStream(ctx context.Context, id int64) (*data.StreamStatus, error) {
	return c.streamAction(ctx, "stop", id)
}

func (c *Client) RestartStream(ctx context.Context, id int64) (*data.StreamStatus, error) {
	return c.streamAction(ctx, "restart", id)
}

func (c *Client) streamAction(ctx context.Context, action string, id int64) (*data.StreamStatus, error) {
	resp, err := c.execute(ctx, action, http.MethodPost, cameraPath+action+"/", &id, nil)
	if err != nil {
		return nil, err
	}

	body := bytes.TrimSpace(resp.Body())
	if len(body) == 0 || bytes.Equal(body, []byte("null")) {
		return nil, nil
	}
	var st data.StreamStatus
	if err := json.Unmarshal(body, &st); err != nil {
		c.log.Warn().Err(err).Str("action", action).Msg("ignoring malformed stream status payload")
		return nil, nil
	}
	return &st, nil
}

func (c *Client) decodeCamera(body []byte) *data.Camera {
	body = bytes.TrimSpace(body)
	if len(body) == 0 || bytes.Equal(body, []byte("null")) {
		return nil
	}
	var cam data.Camera
	if err := json.Unmarshal(body, &cam); err != nil {
		c.log.Warn().Err(err).Msg("ignoring malformed camera payload")
		return nil
	}
	return &cam
}

func (c *Client) decodeCameras(body []byte) []data.Camera {
	var items []json.RawMessage
	if err := json.Unmarshal(body, &items); err != nil {
		if len(bytes.TrimSpace(body)) > 0 {
			c.log.Warn().Err(err).Msg("camera list payload is not an array")
		}
		return nil
	}

	out := make([]data.Camera, 0, len(items))
	for _, raw := range items {
		if bytes.Equal(bytes.TrimSpace(raw), []byte("null")) {
			continue
		}
		var cam data.Camera
		if err := json.Unmarshal(raw, &cam); err != nil {
			c.log.Warn().Err(err).Msg("skipping malformed camera in list")
			continue
		}
		out = append(out, cam)
	}
	return out
}
