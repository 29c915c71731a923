package store

import (
	"encoding/json"
	"sync"
	"time"
)

// TimestampLayout is the local-time layout used for every timestamp in the
// wire format, e.g. "10/16/2026, 3:04:05 PM".
const TimestampLayout = "1/2/2006, 3:04:05 PM"

// FormatTimestamp renders t in local time using [TimestampLayout].
func FormatTimestamp(t time.Time) string {
	return t.Local().Format(TimestampLayout)
}

// Snapshot is an immutable point-in-time view of every monitored target.
//
// Snapshots are produced by [Registry] and shared by pointer with every
// observer; all fields are unexported and accessors return copies, so a
// Snapshot cannot change after construction. Its JSON encoding is computed
// once and reused for every observer.
type Snapshot struct {
	seq       uint64
	websites  []TargetState
	timestamp time.Time

	encodeOnce sync.Once
	encoded    []byte
	encodeErr  error
}

// Seq returns the sweep sequence number. The initial snapshot has Seq 0 and
// each applied sweep increments it by one.
func (s *Snapshot) Seq() uint64 {
	return s.seq
}

// Timestamp returns when the snapshot was taken.
func (s *Snapshot) Timestamp() time.Time {
	return s.timestamp
}

// Len returns the number of targets in the snapshot.
func (s *Snapshot) Len() int {
	return len(s.websites)
}

// Websites returns a deep copy of the target states in registration order.
func (s *Snapshot) Websites() []TargetState {
	out := make([]TargetState, len(s.websites))
	for i, ws := range s.websites {
		out[i] = copyState(ws)
	}
	return out
}

// Website returns a copy of the state for url.
func (s *Snapshot) Website(url string) (TargetState, bool) {
	for _, ws := range s.websites {
		if ws.URL == url {
			return copyState(ws), true
		}
	}
	return TargetState{}, false
}

func copyState(ws TargetState) TargetState {
	hist := make([]CheckResult, len(ws.History))
	copy(hist, ws.History)
	ws.History = hist
	return ws
}

type wireSnapshot struct {
	Websites  []wireWebsite `json:"websites"`
	Timestamp string        `json:"timestamp"`
}

type wireWebsite struct {
	URL     string      `json:"url"`
	Status  Outcome     `json:"status"`
	History []wireEntry `json:"history"`
}

type wireEntry struct {
	Timestamp string  `json:"timestamp"`
	Status    Outcome `json:"status"`
}

// JSON returns the wire encoding of the snapshot:
//
//	{"websites":[{"url":...,"status":...,"history":[{"timestamp":...,"status":...}]}],"timestamp":...}
//
// The encoding is computed on first use and cached. Callers must not modify
// the returned slice.
func (s *Snapshot) JSON() ([]byte, error) {
	s.encodeOnce.Do(func() {
		w := wireSnapshot{
			Websites:  make([]wireWebsite, len(s.websites)),
			Timestamp: FormatTimestamp(s.timestamp),
		}
		for i, ws := range s.websites {
			entries := make([]wireEntry, len(ws.History))
			for j, r := range ws.History {
				entries[j] = wireEntry{Timestamp: FormatTimestamp(r.CheckedAt), Status: r.Outcome}
			}
			w.Websites[i] = wireWebsite{URL: ws.URL, Status: ws.Status, History: entries}
		}
		s.encoded, s.encodeErr = json.Marshal(w)
	})
	return s.encoded, s.encodeErr
}

// MarshalJSON implements json.Marshaler using the cached wire encoding.
func (s *Snapshot) MarshalJSON() ([]byte, error) {
	return s.JSON()
}
