package data

import (
	"bytes"
	"encoding/json"
	"fmt"
	"time"
)

// Camera is a backend-owned record describing one video source.
// Only the numeric id is interpreted; every other attribute is kept as raw
// JSON and written back verbatim. Camera values are treated as immutable.
type Camera struct {
	ID    int64
	attrs map[string]json.RawMessage
}

// CameraDetails is a typed view over the attributes the camera backend is
// known to send. The console never depends on it for state handling.
type CameraDetails struct {
	Name      string    `json:"name"`
	IPAddress string    `json:"ip_address"`
	RTMPPort  int       `json:"rtmp_port"`
	AppName   string    `json:"app_name"`
	StreamID  string    `json:"stream_id"`
	HLSURL    *string   `json:"hls_url"`
	RTMPURL   string    `json:"rtmp_url"`
	Active    bool      `json:"active"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// NewCamera builds a camera from an id and attribute values. An "id" key in
// fields is ignored.
func NewCamera(id int64, fields Fields) (Camera, error) {
	attrs := make(map[string]json.RawMessage, len(fields))
	for k, v := range fields {
		if k == "id" {
			continue
		}
		b, err := json.Marshal(v)
		if err != nil {
			return Camera{}, fmt.Errorf("camera attribute %q: %w", k, err)
		}
		attrs[k] = b
	}
	return Camera{ID: id, attrs: attrs}, nil
}

func (c *Camera) UnmarshalJSON(b []byte) error {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(b, &raw); err != nil {
		return err
	}
	if raw == nil {
		return fmt.Errorf("camera: expected object, got %s", bytes.TrimSpace(b))
	}

	var id int64
	if v, ok := raw["id"]; ok {
		if err := json.Unmarshal(v, &id); err != nil {
			return fmt.Errorf("camera id: %w", err)
		}
		delete(raw, "id")
	}

	c.ID = id
	c.attrs = raw
	return nil
}

func (c Camera) MarshalJSON() ([]byte, error) {
	out := make(map[string]json.RawMessage, len(c.attrs)+1)
	for k, v := range c.attrs {
		out[k] = v
	}
	id, err := json.Marshal(c.ID)
	if err != nil {
		return nil, err
	}
	out["id"] = id
	return json.Marshal(out)
}

// Attr returns the raw JSON of a single attribute.
func (c Camera) Attr(key string) (json.RawMessage, bool) {
	v, ok := c.attrs[key]
	return v, ok
}

// Name is a display accessor. It returns "" when the name attribute is
// missing, null or not a JSON string; use Details to see decode errors.
func (c Camera) Name() string {
	v, ok := c.attrs["name"]
	if !ok {
		return ""
	}
	var name string
	if err := json.Unmarshal(v, &name); err != nil {
		return ""
	}
	return name
}

// Details decodes the known backend attributes.
func (c Camera) Details() (CameraDetails, error) {
	var d CameraDetails
	b, err := c.MarshalJSON()
	if err != nil {
		return d, err
	}
	err = json.Unmarshal(b, &d)
	return d, err
}

// Fields is a create/update payload: camera attributes as a JSON object.
type Fields map[string]any

// WithoutID returns a copy of f with any "id" key removed. Ids are assigned
// by the backend on create.
func (f Fields) WithoutID() Fields {
	out := make(Fields, len(f))
	for k, v := range f {
		if k == "id" {
			continue
		}
		out[k] = v
	}
	return out
}

const StreamStatusUnknown = "unknown"

// StreamStatus is the payload of the start/stop/restart stream endpoints.
type StreamStatus struct {
	Status string `json:"status"`
}
