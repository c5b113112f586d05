package router

import (
	_ "embed"
	"errors"
	"fmt"
	"strings"
	"sync"
	"text/template"

	"github.com/google/uuid"
	"gopkg.in/yaml.v3"

	"go.aimuz.me/stimui/internal/types"
)

// ModalKind distinguishes single-button notices from confirm/cancel prompts.
type ModalKind string

const (
	ModalInfo    ModalKind = "info"
	ModalConfirm ModalKind = "confirm"
)

// Button identifies a modal button.
type Button string

const (
	ButtonOK      Button = "ok"
	ButtonConfirm Button = "confirm"
	ButtonCancel  Button = "cancel"
)

// Action returns the controller action echoed when b is pressed.
func (b Button) Action() (types.Action, bool) {
	switch b {
	case ButtonOK, ButtonConfirm:
		return types.ActionAckPopup, true
	case ButtonCancel:
		return types.ActionCancelPopup, true
	}
	return "", false
}

// ModalButton is one button as shown to the user.
type ModalButton struct {
	ID    Button `json:"id"`
	Label string `json:"label"`
}

// Modal is a popup instance. ID changes every time a modal is opened so a
// press aimed at a dismissed modal can be recognised.
type Modal struct {
	ID      string          `json:"id"`
	Code    types.PopupCode `json:"code"`
	Kind    ModalKind       `json:"kind"`
	Title   string          `json:"title"`
	Body    string          `json:"body"`
	Buttons []ModalButton   `json:"buttons"`
}

// HasButton reports whether b is one of m's buttons.
func (m Modal) HasButton(b Button) bool {
	for _, mb := range m.Buttons {
		if mb.ID == b {
			return true
		}
	}
	return false
}

// Primary returns the button pressed by the default acknowledgement key.
func (m Modal) Primary() Button {
	if m.Kind == ModalConfirm {
		return ButtonConfirm
	}
	return ButtonOK
}

// ─────────────────────────────────────────────────────────────────────────────
// Catalog
// ─────────────────────────────────────────────────────────────────────────────

//go:embed popups.yaml
var popupsYAML []byte

type catalogFile struct {
	Popups []popupEntry `yaml:"popups"`
}

type popupEntry struct {
	Code    int       `yaml:"code"`
	Name    string    `yaml:"name"`
	Kind    ModalKind `yaml:"kind"`
	Title   string    `yaml:"title"`
	Body    string    `yaml:"body"`
	Confirm string    `yaml:"confirm"`
	Cancel  string    `yaml:"cancel"`

	body *template.Template
}

// Catalog maps popup codes to modal text.
type Catalog struct {
	entries map[types.PopupCode]*popupEntry
}

// ParseCatalog parses a YAML popup catalog.
func ParseCatalog(data []byte) (*Catalog, error) {
	var f catalogFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("parse popup catalog: %w", err)
	}

	c := &Catalog{entries: make(map[types.PopupCode]*popupEntry, len(f.Popups))}
	for i := range f.Popups {
		e := &f.Popups[i]
		code := types.PopupCode(e.Code)
		if code == types.PopupNone {
			return nil, errors.New("parse popup catalog: code 0 is reserved")
		}
		if _, dup := c.entries[code]; dup {
			return nil, fmt.Errorf("parse popup catalog: duplicate code %d", e.Code)
		}
		switch e.Kind {
		case "":
			e.Kind = ModalInfo
		case ModalInfo, ModalConfirm:
		default:
			return nil, fmt.Errorf("parse popup catalog: code %d: unknown kind %q", e.Code, e.Kind)
		}
		tmpl, err := template.New(e.Name).Option("missingkey=zero").Parse(e.Body)
		if err != nil {
			return nil, fmt.Errorf("parse popup catalog: code %d: %w", e.Code, err)
		}
		e.body = tmpl
		c.entries[code] = e
	}
	return c, nil
}

var defaultCatalog = sync.OnceValues(func() (*Catalog, error) {
	return ParseCatalog(popupsYAML)
})

// DefaultCatalog returns the embedded catalog.
func DefaultCatalog() (*Catalog, error) {
	return defaultCatalog()
}

// Known reports whether code has an entry.
func (c *Catalog) Known(code types.PopupCode) bool {
	_, ok := c.entries[code]
	return ok
}

// Len returns the number of entries.
func (c *Catalog) Len() int { return len(c.entries) }

// Build creates a modal for code with a fresh ID. Unknown codes yield the
// diagnostic fallback modal and ok=false.
func (c *Catalog) Build(code types.PopupCode, subjectName string) (m Modal, ok bool) {
	e, found := c.entries[code]
	if !found {
		return fallbackModal(code), false
	}

	var body strings.Builder
	data := struct{ SubjectName string }{SubjectName: subjectName}
	if err := e.body.Execute(&body, data); err != nil {
		body.Reset()
		body.WriteString(e.Title)
	}

	m = Modal{
		ID:    uuid.NewString(),
		Code:  code,
		Kind:  e.Kind,
		Title: e.Title,
		Body:  body.String(),
	}
	if e.Kind == ModalConfirm {
		m.Buttons = []ModalButton{
			{ID: ButtonConfirm, Label: labelOr(e.Confirm, "Confirm")},
			{ID: ButtonCancel, Label: labelOr(e.Cancel, "Cancel")},
		}
	} else {
		m.Buttons = []ModalButton{{ID: ButtonOK, Label: labelOr(e.Confirm, "OK")}}
	}
	return m, true
}

func fallbackModal(code types.PopupCode) Modal {
	return Modal{
		ID:    uuid.NewString(),
		Code:  code,
		Kind:  ModalInfo,
		Title: fmt.Sprintf("Unknown popup (%d)", int(code)),
		Body: "The controller requested a popup this client does not recognise. " +
			"The client and controller versions may not match.",
		Buttons: []ModalButton{{ID: ButtonOK, Label: "OK"}},
	}
}

func labelOr(s, def string) string {
	if s == "" {
		return def
	}
	return s
}
