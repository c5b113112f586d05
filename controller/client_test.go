package controller

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"go.aimuz.me/stimui/internal/types"
)

type recorded struct {
	method, path, contentType, clientID string
	body                                []byte
}

// fakeController serves canned bodies per path and records every request.
type fakeController struct {
	mu       sync.Mutex
	requests []recorded
	bodies   map[string]string
	status   int
}

func (f *fakeController) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	body, _ := io.ReadAll(r.Body)
	f.mu.Lock()
	f.requests = append(f.requests, recorded{
		method:      r.Method,
		path:        r.URL.Path,
		contentType: r.Header.Get("Content-Type"),
		clientID:    r.Header.Get(ClientIDHeader),
		body:        body,
	})
	status := f.status
	resp := f.bodies[r.URL.Path]
	f.mu.Unlock()

	if status != 0 {
		w.WriteHeader(status)
	}
	io.WriteString(w, resp)
}

func (f *fakeController) last() recorded {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.requests[len(f.requests)-1]
}

func newTestClient(t *testing.T, fc *fakeController) *Client {
	t.Helper()
	srv := httptest.NewServer(fc)
	t.Cleanup(srv.Close)
	return New(srv.URL+"/", time.Second, "client-1")
}

func TestStateDecodesSnapshot(t *testing.T) {
	fc := &fakeController{bodies: map[string]string{
		"/state": `{"seq":42,"stim_window":1,"block_id":3,"freq_hz":10,"freq_hz_e":3,
			"freq_left_hz":8,"freq_right_hz":12,"active_subject_id":"S01",
			"is_model_ready":true,"popup":0}`,
	}}
	c := newTestClient(t, fc)

	s, err := c.State(context.Background())
	if err != nil {
		t.Fatalf("State: %v", err)
	}
	if s.Seq != 42 || s.UIState != types.UIStateActiveCalibration || s.BlockID != 3 {
		t.Errorf("snapshot = %+v", s)
	}
	if s.FreqHz != 10 || s.FreqCode != types.Freq10Hz || s.FreqLeftHz != 8 || s.FreqRightHz != 12 {
		t.Errorf("frequencies = %+v", s)
	}
	if !s.IsModelReady || s.ActiveSubjectID != "S01" {
		t.Errorf("subject = %+v", s)
	}

	r := fc.last()
	if r.method != http.MethodGet || r.path != "/state" || r.clientID != "client-1" {
		t.Errorf("request = %+v", r)
	}
}

func TestDecodeSnapshotTolerant(t *testing.T) {
	tests := []struct {
		name  string
		body  string
		check func(t *testing.T, s types.SessionSnapshot)
	}{
		{
			name: "empty object is home",
			body: `{}`,
			check: func(t *testing.T, s types.SessionSnapshot) {
				if s.UIState != types.UIStateHome || s.HasUIState || s.HasSeq {
					t.Errorf("got %+v", s)
				}
			},
		},
		{
			name: "malformed stim_window is home, other fields survive",
			body: `{"stim_window":"calib","seq":7,"freq_hz":{"x":1}}`,
			check: func(t *testing.T, s types.SessionSnapshot) {
				if s.UIState != types.UIStateHome || s.HasUIState {
					t.Errorf("ui state = %v", s.UIState)
				}
				if !s.HasSeq || s.Seq != 7 {
					t.Errorf("seq = %d", s.Seq)
				}
				if s.HasFreqHz {
					t.Error("malformed freq_hz reported present")
				}
			},
		},
		{
			name: "null fields are absent",
			body: `{"seq":null,"block_id":null,"stim_window":6}`,
			check: func(t *testing.T, s types.SessionSnapshot) {
				if s.HasSeq || s.HasBlockID || s.UIState != types.UIStateHardwareChecks {
					t.Errorf("got %+v", s)
				}
			},
		},
		{
			name: "quoted numbers and integral floats",
			body: `{"freq_hz":"11.5","stim_window":0.0,"popup":"5"}`,
			check: func(t *testing.T, s types.SessionSnapshot) {
				if s.FreqHz != 11.5 || s.UIState != types.UIStateActiveRun || s.Popup != types.PopupConfirmOverwriteCalibration {
					t.Errorf("got %+v", s)
				}
			},
		},
		{
			name: "fractional enum rejected",
			body: `{"stim_window":1.5}`,
			check: func(t *testing.T, s types.SessionSnapshot) {
				if s.UIState != types.UIStateHome {
					t.Errorf("ui state = %v", s.UIState)
				}
			},
		},
		{
			name: "unknown state value is kept for the router",
			body: `{"stim_window":42}`,
			check: func(t *testing.T, s types.SessionSnapshot) {
				if !s.HasUIState || s.UIState != 42 {
					t.Errorf("ui state = %v", s.UIState)
				}
			},
		},
		{
			name: "numeric subject id and bool as number",
			body: `{"active_subject_id":17,"is_model_ready":1,"pending_subject_name":"Alice"}`,
			check: func(t *testing.T, s types.SessionSnapshot) {
				if s.ActiveSubjectID != "17" || !s.IsModelReady || s.PendingSubjectName != "Alice" {
					t.Errorf("got %+v", s)
				}
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s, err := DecodeSnapshot([]byte(tt.body))
			if err != nil {
				t.Fatalf("DecodeSnapshot: %v", err)
			}
			tt.check(t, s)
		})
	}
}

func TestDecodeSnapshotRejectsNonObject(t *testing.T) {
	for _, body := range []string{`[1,2]`, `nope`, `null`, ``} {
		if _, err := DecodeSnapshot([]byte(body)); err == nil {
			t.Errorf("DecodeSnapshot(%q) succeeded", body)
		}
	}
}

func TestEEG(t *testing.T) {
	t.Run("ready", func(t *testing.T) {
		fc := &fakeController{bodies: map[string]string{
			"/eeg": `{"ok":true,"fs":250,"units":"uV","n_channels":2,"labels":["Fz","Cz"],"channels":[[1,2,3],[4,5,6]]}`,
		}}
		frame, err := newTestClient(t, fc).EEG(context.Background())
		if err != nil {
			t.Fatalf("EEG: %v", err)
		}
		if frame.SampleRate != 250 || frame.ChannelCount() != 2 || frame.Channels[1][2] != 6 || frame.Labels[0] != "Fz" {
			t.Errorf("frame = %+v", frame)
		}
	})

	t.Run("not ready", func(t *testing.T) {
		fc := &fakeController{bodies: map[string]string{"/eeg": `{"ok":false,"msg":"warming up"}`}}
		_, err := newTestClient(t, fc).EEG(context.Background())
		if !errors.Is(err, ErrNotReady) {
			t.Errorf("err = %v, want ErrNotReady", err)
		}
	})
}

func TestQuality(t *testing.T) {
	fc := &fakeController{bodies: map[string]string{
		"/quality": `{"quality":[1,0],"n_channels":2,
			"rates":{"current_bad_win_rate":0.25,"overall_bad_win_rate":null,"num_win_in_rolling":8},
			"rolling":{"rms_uv":[10.5,null],"max_abs_uv":[1,2]}}`,
	}}
	q, err := newTestClient(t, fc).Quality(context.Background())
	if err != nil {
		t.Fatalf("Quality: %v", err)
	}
	if q.Rates.CurrentBadWinRate == nil || *q.Rates.CurrentBadWinRate != 0.25 {
		t.Errorf("current rate = %v", q.Rates.CurrentBadWinRate)
	}
	if q.Rates.OverallBadWinRate != nil {
		t.Errorf("overall rate = %v, want nil", *q.Rates.OverallBadWinRate)
	}
	if q.Rolling.RMS[1] != nil || *q.Rolling.RMS[0] != 10.5 || q.ChannelCount() != 2 {
		t.Errorf("rolling = %+v", q.Rolling)
	}
}

func TestCommands(t *testing.T) {
	fc := &fakeController{}
	c := newTestClient(t, fc)
	ctx := context.Background()

	if err := c.Ready(ctx, 144); err != nil {
		t.Fatalf("Ready: %v", err)
	}
	r := fc.last()
	if r.method != http.MethodPost || r.path != "/ready" || r.contentType != "application/json" {
		t.Errorf("ready request = %+v", r)
	}
	var ready map[string]int
	if err := json.Unmarshal(r.body, &ready); err != nil || ready["refresh_hz"] != 144 {
		t.Errorf("ready body = %s", r.body)
	}

	risk := types.EpilepsyRiskNo
	ev := types.Event{Action: types.ActionStartCalibFromOptions, SubjectName: "Alice", Epilepsy: &risk}
	if err := c.SendEvent(ctx, ev); err != nil {
		t.Fatalf("SendEvent: %v", err)
	}
	r = fc.last()
	var got map[string]any
	if err := json.Unmarshal(r.body, &got); err != nil {
		t.Fatalf("event body: %v", err)
	}
	if r.path != "/event" || got["action"] != "start_calib_from_options" || got["subject_name"] != "Alice" || got["epilepsy"] != float64(1) {
		t.Errorf("event = %s %v", r.path, got)
	}

	if err := c.SendEvent(ctx, types.Event{Action: types.ActionExit}); err != nil {
		t.Fatalf("SendEvent exit: %v", err)
	}
	if body := string(fc.last().body); body != `{"action":"exit"}` {
		t.Errorf("exit body = %s", body)
	}
}

func TestSendEventRejectsUnknownAction(t *testing.T) {
	fc := &fakeController{}
	c := newTestClient(t, fc)
	if err := c.SendEvent(context.Background(), types.Event{Action: "reboot"}); err == nil {
		t.Fatal("expected error")
	}
	if len(fc.requests) != 0 {
		t.Errorf("sent %d requests", len(fc.requests))
	}
}

func TestStatusError(t *testing.T) {
	fc := &fakeController{status: http.StatusServiceUnavailable, bodies: map[string]string{"/state": "busy"}}
	_, err := newTestClient(t, fc).State(context.Background())
	if !errors.Is(err, ErrStatus) {
		t.Errorf("err = %v, want ErrStatus", err)
	}
}

func TestRequestTimeout(t *testing.T) {
	block := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-block:
		case <-r.Context().Done():
		}
	}))
	defer srv.Close()
	defer close(block)

	c := New(srv.URL, 20*time.Millisecond, "")
	_, err := c.State(context.Background())
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("err = %v, want deadline exceeded", err)
	}
}
