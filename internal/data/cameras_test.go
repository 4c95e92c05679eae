package data_test

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/technosupport/cctv-console/internal/data"
)

func TestCamera_PassesAttributesThrough(t *testing.T) {
	in := `{"id":7,"name":"Gate","ip_address":"10.0.0.7","rtmp_port":1935,"vendor_extra":{"ptz":true}}`

	var c data.Camera
	require.NoError(t, json.Unmarshal([]byte(in), &c))
	assert.Equal(t, int64(7), c.ID)
	assert.Equal(t, "Gate", c.Name())

	extra, ok := c.Attr("vendor_extra")
	require.True(t, ok)
	assert.JSONEq(t, `{"ptz":true}`, string(extra))

	out, err := json.Marshal(c)
	require.NoError(t, err)
	assert.JSONEq(t, in, string(out))
}

func TestCamera_RejectsNonObject(t *testing.T) {
	var c data.Camera
	assert.Error(t, json.Unmarshal([]byte(`null`), &c))
	assert.Error(t, json.Unmarshal([]byte(`[1,2]`), &c))
	assert.Error(t, json.Unmarshal([]byte(`{"id":"seven"}`), &c))
}

func TestCamera_Details(t *testing.T) {
	var c data.Camera
	require.NoError(t, json.Unmarshal([]byte(`{
		"id": 3,
		"name": "Dock",
		"ip_address": "192.168.1.30",
		"rtmp_port": 1935,
		"app_name": "live",
		"stream_id": "stream1",
		"hls_url": null,
		"rtmp_url": "rtmp://192.168.1.30:1935/live/stream1",
		"active": true,
		"created_at": "2024-05-01T10:00:00Z",
		"updated_at": "2024-05-01T10:05:00Z"
	}`), &c))

	d, err := c.Details()
	require.NoError(t, err)
	assert.Equal(t, "Dock", d.Name)
	assert.Equal(t, 1935, d.RTMPPort)
	assert.Nil(t, d.HLSURL)
	assert.True(t, d.Active)
	assert.Equal(t, "rtmp://192.168.1.30:1935/live/stream1", d.RTMPURL)
}

func TestFields_WithoutID(t *testing.T) {
	f := data.Fields{"id": 9, "name": "Lobby"}
	got := f.WithoutID()

	assert.Equal(t, data.Fields{"name": "Lobby"}, got)
	assert.Contains(t, f, "id", "input fields must be untouched")
}

func TestNewCamera(t *testing.T) {
	cam, err := data.NewCamera(5, data.Fields{"id": 99, "name": "Lobby", "rtmp_port": 1935})
	require.NoError(t, err)

	assert.Equal(t, int64(5), cam.ID)
	assert.Equal(t, "Lobby", cam.Name())

	b, err := json.Marshal(cam)
	require.NoError(t, err)
	assert.JSONEq(t, `{"id":5,"name":"Lobby","rtmp_port":1935}`, string(b))

	_, err = data.NewCamera(1, data.Fields{"bad": make(chan int)})
	assert.Error(t, err)
}

func TestCamera_NameFallsBackToEmpty(t *testing.T) {
	tests := []struct {
		name string
		in   string
	}{
		{"missing", `{"id":1}`},
		{"null", `{"id":1,"name":null}`},
		{"number", `{"id":1,"name":42}`},
		{"object", `{"id":1,"name":{"first":"Gate"}}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var c data.Camera
			require.NoError(t, json.Unmarshal([]byte(tt.in), &c))
			assert.Equal(t, "", c.Name())
		})
	}

	var c data.Camera
	require.NoError(t, json.Unmarshal([]byte(`{"id":1,"name":42}`), &c))
	_, err := c.Details()
	assert.Error(t, err, "Details reports what Name hides")
}
