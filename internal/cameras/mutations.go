package cameras

import (
	"github.com/technosupport/cctv-console/internal/data"
	"github.com/technosupport/cctv-console/internal/metrics"
)

type MutationType string

const (
	MutationSetCameras       MutationType = "set_cameras"
	MutationSetCurrentCamera MutationType = "set_current_camera"
	MutationAddCamera        MutationType = "add_camera"
	MutationUpdateCamera     MutationType = "update_camera"
	MutationDeleteCamera     MutationType = "delete_camera"
	MutationSetLoading       MutationType = "set_loading"
	MutationSetError         MutationType = "set_error"
	MutationClearError       MutationType = "clear_error"
)

// Mutation describes one committed state change. Payload depends on Type:
// []data.Camera, *data.Camera, data.Camera, int64 (delete), bool (loading),
// string (error) or nil (clear).
type Mutation struct {
	Type    MutationType
	Payload any
}

// commit applies fn under the write lock, then notifies subscribers with
// the resulting state once the lock is released. Each notified commit takes
// a ticket under the lock so deliveries happen in commit order.
func (s *Store) commit(m Mutation, fn func(st *State)) {
	s.mu.Lock()
	fn(&s.state)
	var (
		snap   State
		ticket uint64
	)
	notify := s.hasSubscribers()
	if notify {
		snap = s.snapshotLocked()
		ticket = s.nextTicket
		s.nextTicket++
	}
	cams := len(s.state.Cameras)
	s.mu.Unlock()

	metrics.StoreCameras.Set(float64(cams))
	if notify {
		s.deliver(ticket, m, snap)
	}
}

// deliver waits for every earlier ticket to be delivered, then notifies.
func (s *Store) deliver(ticket uint64, m Mutation, st State) {
	s.deliverMu.Lock()
	for s.delivered != ticket {
		s.deliverCond.Wait()
	}
	s.deliverMu.Unlock()

	defer func() {
		s.deliverMu.Lock()
		s.delivered++
		s.deliverCond.Broadcast()
		s.deliverMu.Unlock()
	}()
	s.notify(m, st)
}

func (s *Store) hasSubscribers() bool {
	s.subMu.Lock()
	defer s.subMu.Unlock()
	return len(s.subs) > 0
}

func (s *Store) notify(m Mutation, st State) {
	s.subMu.Lock()
	fns := make([]func(Mutation, State), 0, len(s.subs))
	for _, fn := range s.subs {
		fns = append(fns, fn)
	}
	s.subMu.Unlock()

	for _, fn := range fns {
		fn(m, st)
	}
}

func (s *Store) setCameras(cams []data.Camera) {
	owned := make([]data.Camera, len(cams))
	copy(owned, cams)
	s.commit(Mutation{MutationSetCameras, cams}, func(st *State) {
		st.Cameras = owned
	})
}

func (s *Store) setCurrentCamera(cam *data.Camera) {
	var owned *data.Camera
	if cam != nil {
		c := *cam
		owned = &c
	}
	s.commit(Mutation{MutationSetCurrentCamera, cam}, func(st *State) {
		st.CurrentCamera = owned
	})
}

// addCamera appends cam, or replaces the entry with the same id so ids stay
// unique within the collection.
func (s *Store) addCamera(cam data.Camera) {
	s.commit(Mutation{MutationAddCamera, cam}, func(st *State) {
		if i := indexOf(st.Cameras, cam.ID); i >= 0 {
			st.Cameras[i] = cam
			return
		}
		st.Cameras = append(st.Cameras, cam)
	})
}

// updateCamera replaces the first entry with cam's id. The current-camera
// slot is left alone. Unknown ids are a no-op and commit nothing.
func (s *Store) updateCamera(cam data.Camera) {
	s.mu.RLock()
	known := indexOf(s.state.Cameras, cam.ID) >= 0
	s.mu.RUnlock()
	if !known {
		return
	}

	s.commit(Mutation{MutationUpdateCamera, cam}, func(st *State) {
		if i := indexOf(st.Cameras, cam.ID); i >= 0 {
			st.Cameras[i] = cam
		}
	})
}

func (s *Store) deleteCamera(id int64) {
	s.commit(Mutation{MutationDeleteCamera, id}, func(st *State) {
		kept := make([]data.Camera, 0, len(st.Cameras))
		for _, c := range st.Cameras {
			if c.ID != id {
				kept = append(kept, c)
			}
		}
		st.Cameras = kept
	})
}

func (s *Store) setLoading(v bool) {
	s.commit(Mutation{MutationSetLoading, v}, func(st *State) {
		st.Loading = v
	})
	metrics.SetLoading(v)
}

func (s *Store) setError(msg string) {
	s.commit(Mutation{MutationSetError, msg}, func(st *State) {
		st.Error = msg
	})
}

func (s *Store) clearError() {
	s.commit(Mutation{MutationClearError, nil}, func(st *State) {
		st.Error = ""
	})
}

func indexOf(cams []data.Camera, id int64) int {
	for i, c := range cams {
		if c.ID == id {
			return i
		}
	}
	return -1
}
