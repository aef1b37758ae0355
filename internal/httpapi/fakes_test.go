package httpapi

import (
	"context"
	"sync"
	"time"

	"counsel-platform/internal/calls"
	"counsel-platform/internal/identity"
	"counsel-platform/internal/push"
	"counsel-platform/internal/signaling"
)

type memCallStore struct {
	mu       sync.Mutex
	records  map[string]signaling.RemoteCallRecord
	presence map[string]string
	watchers map[string][]chan signaling.RemoteCallRecord
	statuses []calls.CallStatus
}

func newMemCallStore() *memCallStore {
	return &memCallStore{
		records:  map[string]signaling.RemoteCallRecord{},
		presence: map[string]string{},
		watchers: map[string][]chan signaling.RemoteCallRecord{},
	}
}

func (s *memCallStore) Create(ctx context.Context, rec signaling.RemoteCallRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	rec.Status = calls.CallStatusCalling
	s.records[rec.ChannelID] = rec
	return nil
}

func (s *memCallStore) Get(ctx context.Context, channelID string) (signaling.RemoteCallRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	rec, ok := s.records[channelID]
	if !ok {
		return signaling.RemoteCallRecord{}, signaling.ErrRecordNotFound
	}
	return rec, nil
}

func (s *memCallStore) SetStatus(ctx context.Context, channelID string, status calls.CallStatus) (signaling.RemoteCallRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	rec, ok := s.records[channelID]
	if !ok {
		return signaling.RemoteCallRecord{}, signaling.ErrRecordNotFound
	}
	rec.Status = status
	s.records[channelID] = rec
	s.statuses = append(s.statuses, status)
	for _, w := range s.watchers[channelID] {
		select {
		case w <- rec:
		default:
		}
	}
	return rec, nil
}

func (s *memCallStore) MarkMissedSeen(ctx context.Context, channelID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	rec, ok := s.records[channelID]
	if !ok {
		return signaling.ErrRecordNotFound
	}
	rec.MissedCallStatusSeen = true
	s.records[channelID] = rec
	return nil
}

func (s *memCallStore) SetPresence(ctx context.Context, channelID, receiverID, callerID string, ttl time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.presence[channelID+"/"+receiverID] = callerID
	return nil
}

func (s *memCallStore) ClearPresence(ctx context.Context, channelID, receiverID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.presence, channelID+"/"+receiverID)
	return nil
}

func (s *memCallStore) Watch(ctx context.Context, channelID string) (<-chan signaling.RemoteCallRecord, func(), error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	ch := make(chan signaling.RemoteCallRecord, 8)
	s.watchers[channelID] = append(s.watchers[channelID], ch)
	var once sync.Once
	stop := func() {
		once.Do(func() {
			s.mu.Lock()
			defer s.mu.Unlock()
			ws := s.watchers[channelID]
			for i, w := range ws {
				if w == ch {
					s.watchers[channelID] = append(ws[:i], ws[i+1:]...)
					break
				}
			}
			close(ch)
		})
	}
	return ch, stop, nil
}

func (s *memCallStore) record(channelID string) signaling.RemoteCallRecord {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.records[channelID]
}

func (s *memCallStore) hasPresence(channelID, receiverID string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.presence[channelID+"/"+receiverID]
	return ok
}

func (s *memCallStore) onlyRecord() signaling.RemoteCallRecord {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, r := range s.records {
		return r
	}
	return signaling.RemoteCallRecord{}
}

type memHistory struct {
	mu       sync.Mutex
	rows     map[string]calls.Call
	finished []calls.CallStatus
}

func newMemHistory() *memHistory { return &memHistory{rows: map[string]calls.Call{}} }

func (h *memHistory) Insert(ctx context.Context, c calls.Call) (calls.Call, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	c.Status = calls.CallStatusCalling
	h.rows[c.ChannelID] = c
	return c, nil
}

func (h *memHistory) Finish(ctx context.Context, channelID string, status calls.CallStatus, d int, endedAt time.Time) (bool, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	row, ok := h.rows[channelID]
	if !ok {
		return false, calls.ErrNotFound
	}
	if row.Status.Final() {
		return false, nil
	}
	row.Status = status
	row.DurationSeconds = d
	h.rows[channelID] = row
	h.finished = append(h.finished, status)
	return true, nil
}

func (h *memHistory) ListForParticipant(ctx context.Context, id string, from, to time.Time, limit int) ([]calls.Call, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	out := make([]calls.Call, 0)
	for _, c := range h.rows {
		if c.CallerID == id || c.ReceiverID == id {
			out = append(out, c)
		}
	}
	return out, nil
}

func (h *memHistory) status(channelID string) calls.CallStatus {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.rows[channelID].Status
}

type memLocker struct {
	mu    sync.Mutex
	held  map[string]string
	freed []string
}

func newMemLocker() *memLocker { return &memLocker{held: map[string]string{}} }

func (l *memLocker) Acquire(ctx context.Context, key, owner string, ttl time.Duration) (bool, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if _, ok := l.held[key]; ok {
		return false, nil
	}
	l.held[key] = owner
	return true, nil
}

func (l *memLocker) Release(ctx context.Context, key, owner string) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.held[key] == owner {
		delete(l.held, key)
		l.freed = append(l.freed, key)
	}
	return nil
}

func (l *memLocker) isHeld(key string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	_, ok := l.held[key]
	return ok
}

type memDirectory map[string]identity.Profile

func (d memDirectory) Get(ctx context.Context, kind calls.ParticipantKind, id string) (identity.Profile, error) {
	p, ok := d[id]
	if !ok || p.Kind != kind {
		return identity.Profile{}, identity.ErrNotFound
	}
	return p, nil
}

func (d memDirectory) Lookup(ctx context.Context, id string) (identity.Profile, error) {
	p, ok := d[id]
	if !ok {
		return identity.Profile{}, identity.ErrNotFound
	}
	return p, nil
}

type memSubscriptions struct {
	saved map[string][]push.Subscription
}

func (m *memSubscriptions) Save(ctx context.Context, userID string, sub push.Subscription) error {
	if !sub.Valid() {
		return push.ErrInvalidSubscription
	}
	if m.saved == nil {
		m.saved = map[string][]push.Subscription{}
	}
	m.saved[userID] = append(m.saved[userID], sub)
	return nil
}
