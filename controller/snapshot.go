package controller

import (
	"bytes"
	"encoding/json"
	"fmt"
	"log/slog"
	"math"
	"strconv"

	"go.aimuz.me/stimui/internal/types"
)

// DecodeSnapshot decodes a /state body field by field. Only a body that is
// not a JSON object is an error. A missing or malformed stim_window yields
// UIStateHome.
func DecodeSnapshot(body []byte) (types.SessionSnapshot, error) {
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(body, &fields); err != nil {
		return types.SessionSnapshot{}, fmt.Errorf("unmarshal state: %w", err)
	}
	if fields == nil {
		return types.SessionSnapshot{}, fmt.Errorf("unmarshal state: not an object")
	}

	s := types.SessionSnapshot{UIState: types.UIStateHome}
	d := fieldDecoder{fields: fields}

	s.Seq, s.HasSeq = d.int("seq")
	if v, ok := d.int("stim_window"); ok {
		s.UIState, s.HasUIState = types.UIState(v), true
	}
	s.BlockID, s.HasBlockID = d.int("block_id")
	s.FreqHz, s.HasFreqHz = d.float("freq_hz")
	if v, ok := d.int("freq_hz_e"); ok {
		s.FreqCode, s.HasFreqCode = types.FreqCode(v), true
	}
	s.FreqLeftHz, _ = d.float("freq_left_hz")
	s.FreqRightHz, _ = d.float("freq_right_hz")
	if v, ok := d.int("freq_left_hz_e"); ok {
		s.FreqLeftCode = types.FreqCode(v)
	}
	if v, ok := d.int("freq_right_hz_e"); ok {
		s.FreqRightCode = types.FreqCode(v)
	}
	s.ActiveSubjectID, _ = d.string("active_subject_id")
	s.IsModelReady, _ = d.bool("is_model_ready")
	if v, ok := d.int("popup"); ok {
		s.Popup = types.PopupCode(v)
	}
	s.PendingSubjectName, _ = d.string("pending_subject_name")

	return s, nil
}

// fieldDecoder reads optional fields out of a raw JSON object. Absent and
// null fields report ok=false silently; present but malformed ones are logged.
type fieldDecoder struct {
	fields map[string]json.RawMessage
}

func (d fieldDecoder) raw(key string) (json.RawMessage, bool) {
	raw, ok := d.fields[key]
	if !ok || bytes.Equal(bytes.TrimSpace(raw), []byte("null")) {
		return nil, false
	}
	return raw, true
}

func (d fieldDecoder) float(key string) (float64, bool) {
	raw, ok := d.raw(key)
	if !ok {
		return 0, false
	}
	var v float64
	if err := json.Unmarshal(raw, &v); err != nil {
		// Some controller builds quote numbers.
		var str string
		if json.Unmarshal(raw, &str) != nil {
			d.malformed(key, raw)
			return 0, false
		}
		if v, err = strconv.ParseFloat(str, 64); err != nil {
			d.malformed(key, raw)
			return 0, false
		}
	}
	if math.IsNaN(v) || math.IsInf(v, 0) {
		d.malformed(key, raw)
		return 0, false
	}
	return v, true
}

func (d fieldDecoder) int(key string) (int, bool) {
	v, ok := d.float(key)
	if !ok {
		return 0, false
	}
	if v != math.Trunc(v) {
		d.malformed(key, d.fields[key])
		return 0, false
	}
	return int(v), true
}

func (d fieldDecoder) string(key string) (string, bool) {
	raw, ok := d.raw(key)
	if !ok {
		return "", false
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s, true
	}
	var n json.Number
	if err := json.Unmarshal(raw, &n); err == nil {
		return n.String(), true
	}
	d.malformed(key, raw)
	return "", false
}

func (d fieldDecoder) bool(key string) (bool, bool) {
	raw, ok := d.raw(key)
	if !ok {
		return false, false
	}
	var b bool
	if err := json.Unmarshal(raw, &b); err == nil {
		return b, true
	}
	var n float64
	if err := json.Unmarshal(raw, &n); err == nil {
		return n != 0, true
	}
	d.malformed(key, raw)
	return false, false
}

func (fieldDecoder) malformed(key string, raw json.RawMessage) {
	slog.Warn("malformed state field", "field", key, "value", string(raw))
}
