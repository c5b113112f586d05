package router

import (
	"strconv"

	"go.aimuz.me/stimui/internal/types"
)

const dash = "—"

// Status is the formatted status panel.
type Status struct {
	Seq        string `json:"seq"`
	State      string `json:"state"`
	Block      string `json:"block"`
	FreqHz     string `json:"freqHz"`
	FreqCode   string `json:"freqCode"`
	LeftHz     string `json:"leftHz"`
	RightHz    string `json:"rightHz"`
	Subject    string `json:"subject"`
	ModelReady string `json:"modelReady"`
}

// FormatStatus renders s for the status panel. Missing fields show a dash,
// except the block id which reads 0 until the first block starts.
func FormatStatus(s types.SessionSnapshot) Status {
	st := Status{
		Seq:        dash,
		State:      dash,
		Block:      "0",
		FreqHz:     dash,
		FreqCode:   dash,
		LeftHz:     formatHz(s.FreqLeftHz),
		RightHz:    formatHz(s.FreqRightHz),
		Subject:    dash,
		ModelReady: "no",
	}
	if s.HasSeq {
		st.Seq = strconv.Itoa(s.Seq)
	}
	if s.HasUIState {
		st.State = s.UIState.String()
	}
	if s.HasBlockID {
		st.Block = strconv.Itoa(s.BlockID)
	}
	if s.HasFreqHz {
		st.FreqHz = strconv.FormatFloat(s.FreqHz, 'f', -1, 64)
	}
	if s.HasFreqCode {
		st.FreqCode = s.FreqCode.String()
	}
	if s.ActiveSubjectID != "" {
		st.Subject = s.ActiveSubjectID
	}
	if s.IsModelReady {
		st.ModelReady = "yes"
	}
	return st
}

func formatHz(hz float64) string {
	if hz <= 0 {
		return dash
	}
	return strconv.FormatFloat(hz, 'f', -1, 64)
}
