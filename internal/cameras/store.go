package cameras

import (
	"context"
	"sync"

	"github.com/rs/zerolog"

	"github.com/technosupport/cctv-console/internal/data"
	"github.com/technosupport/cctv-console/internal/metrics"
)

// API is the subset of the camera backend the store drives. camapi.Client
// implements it; tests use MockAPI.
type API interface {
	ListCameras(ctx context.Context) ([]data.Camera, error)
	GetCamera(ctx context.Context, id int64) (*data.Camera, error)
	CreateCamera(ctx context.Context, fields data.Fields) (*data.Camera, error)
	UpdateCamera(ctx context.Context, id int64, fields data.Fields) (*data.Camera, error)
	DeleteCamera(ctx context.Context, id int64) error
	StartStream(ctx context.Context, id int64) (*data.StreamStatus, error)
	StopStream(ctx context.Context, id int64) (*data.StreamStatus, error)
	RestartStream(ctx context.Context, id int64) (*data.StreamStatus, error)
}

// State is a point-in-time copy of everything the store holds.
// Error is empty when the last action succeeded.
type State struct {
	Cameras       []data.Camera
	CurrentCamera *data.Camera
	Loading       bool
	Error         string
}

// Store holds the console's camera state. Actions run the backend call
// without holding the lock, so concurrent actions interleave their
// loading/error transitions and the last one to settle wins.
type Store struct {
	api API
	log zerolog.Logger

	mu    sync.RWMutex
	state State

	subMu   sync.Mutex
	subs    map[int]func(Mutation, State)
	nextSub int

	// nextTicket is guarded by mu; delivered by deliverMu.
	nextTicket  uint64
	deliverMu   sync.Mutex
	deliverCond *sync.Cond
	delivered   uint64
}

func NewStore(api API, log zerolog.Logger) *Store {
	s := &Store{
		api:   api,
		log:   log.With().Str("component", "store").Logger(),
		state: State{Cameras: []data.Camera{}},
		subs:  make(map[int]func(Mutation, State)),
	}
	s.deliverCond = sync.NewCond(&s.deliverMu)
	return s
}

// Subscribe registers fn to run after every committed mutation. fn is
// called synchronously, outside the state lock, with the resulting state.
// Calls are serialized in commit order; fn may read the store but must not
// run store actions.
func (s *Store) Subscribe(fn func(Mutation, State)) (unsubscribe func()) {
	s.subMu.Lock()
	id := s.nextSub
	s.nextSub++
	s.subs[id] = fn
	s.subMu.Unlock()

	return func() {
		s.subMu.Lock()
		delete(s.subs, id)
		s.subMu.Unlock()
	}
}

func (s *Store) Snapshot() State {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.snapshotLocked()
}

func (s *Store) snapshotLocked() State {
	out := State{
		Cameras: make([]data.Camera, len(s.state.Cameras)),
		Loading: s.state.Loading,
		Error:   s.state.Error,
	}
	copy(out.Cameras, s.state.Cameras)
	if s.state.CurrentCamera != nil {
		cur := *s.state.CurrentCamera
		out.CurrentCamera = &cur
	}
	return out
}

func (s *Store) Cameras() []data.Camera {
	return s.Snapshot().Cameras
}

func (s *Store) CurrentCamera() *data.Camera {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.state.CurrentCamera == nil {
		return nil
	}
	cur := *s.state.CurrentCamera
	return &cur
}

func (s *Store) Loading() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state.Loading
}

func (s *Store) Error() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state.Error
}

// CameraByID finds the first camera whose id equals the integer at the
// start of id ("7", " 7", "7abc" all match 7).
func (s *Store) CameraByID(id string) (data.Camera, bool) {
	n, ok := parseLeadingInt(id)
	if !ok {
		return data.Camera{}, false
	}

	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, c := range s.state.Cameras {
		if c.ID == n {
			return c, true
		}
	}
	return data.Camera{}, false
}

// FetchCameras replaces the collection with the backend's list. Failures
// are recorded in the error state and leave an empty collection; they are
// not returned so the list view can always render.
func (s *Store) FetchCameras(ctx context.Context) {
	const action = "fetch_cameras"
	var err error
	s.begin()
	defer func() { s.finish(action, err) }()

	var cams []data.Camera
	cams, err = s.api.ListCameras(ctx)
	if err != nil {
		s.fail(action, "Error fetching cameras", err)
		s.setCameras(nil)
		return
	}
	s.setCameras(cams)
}

// FetchCamera loads one camera into the current-camera slot. A response
// without a payload returns nil and leaves the slot untouched.
func (s *Store) FetchCamera(ctx context.Context, id int64) (cam *data.Camera, err error) {
	const action = "fetch_camera"
	s.begin()
	defer func() { s.finish(action, err) }()

	cam, err = s.api.GetCamera(ctx, id)
	if err != nil {
		s.fail(action, "Error fetching camera", err)
		s.setCurrentCamera(nil)
		return nil, err
	}
	if cam == nil {
		return nil, nil
	}
	s.setCurrentCamera(cam)
	return cam, nil
}

func (s *Store) CreateCamera(ctx context.Context, fields data.Fields) (cam *data.Camera, err error) {
	const action = "create_camera"
	s.begin()
	defer func() { s.finish(action, err) }()

	cam, err = s.api.CreateCamera(ctx, fields)
	if err != nil {
		s.fail(action, "Error creating camera", err)
		return nil, err
	}
	if cam == nil {
		return nil, nil
	}
	s.addCamera(*cam)
	return cam, nil
}

func (s *Store) UpdateCamera(ctx context.Context, id int64, fields data.Fields) (cam *data.Camera, err error) {
	const action = "update_camera"
	s.begin()
	defer func() { s.finish(action, err) }()

	cam, err = s.api.UpdateCamera(ctx, id, fields)
	if err != nil {
		s.fail(action, "Error updating camera", err)
		return nil, err
	}
	if cam == nil {
		return nil, nil
	}
	s.updateCamera(*cam)
	return cam, nil
}

func (s *Store) DeleteCamera(ctx context.Context, id int64) (err error) {
	const action = "delete_camera"
	s.begin()
	defer func() { s.finish(action, err) }()

	if err = s.api.DeleteCamera(ctx, id); err != nil {
		s.fail(action, "Error deleting camera", err)
		return err
	}
	s.deleteCamera(id)
	return nil
}

func (s *Store) StartStream(ctx context.Context, id int64) (data.StreamStatus, error) {
	return s.streamAction(ctx, "start_stream", "Error starting stream", id, s.api.StartStream)
}

func (s *Store) StopStream(ctx context.Context, id int64) (data.StreamStatus, error) {
	return s.streamAction(ctx, "stop_stream", "Error stopping stream", id, s.api.StopStream)
}

func (s *Store) RestartStream(ctx context.Context, id int64) (data.StreamStatus, error) {
	return s.streamAction(ctx, "restart_stream", "Error restarting stream", id, s.api.RestartStream)
}

type streamCall func(ctx context.Context, id int64) (*data.StreamStatus, error)

func (s *Store) streamAction(ctx context.Context, action, fallback string, id int64, call streamCall) (st data.StreamStatus, err error) {
	s.begin()
	defer func() { s.finish(action, err) }()

	res, err := call(ctx, id)
	if err != nil {
		s.fail(action, fallback, err)
		return data.StreamStatus{}, err
	}
	if res == nil || res.Status == "" {
		return data.StreamStatus{Status: data.StreamStatusUnknown}, nil
	}
	return *res, nil
}

func (s *Store) begin() {
	s.setLoading(true)
	s.clearError()
}

func (s *Store) fail(action, fallback string, err error) {
	msg := err.Error()
	if msg == "" {
		msg = fallback
	}
	s.log.Error().Err(err).Str("action", action).Msg(fallback)
	s.setError(msg)
}

func (s *Store) finish(action string, err error) {
	s.setLoading(false)
	metrics.StoreActionsTotal.WithLabelValues(action, metrics.Result(err)).Inc()
}
