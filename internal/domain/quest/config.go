package quest

import (
	"bytes"
	"encoding/json"
	"strings"
	"unicode/utf8"

	"github.com/questboard/questboard-api/internal/pkg/apperror"
)

// Config is the type-specific payload of a quest. Exactly one variant exists
// per quest type.
type Config interface {
	Type() Type
	Validate() error
	// Public returns the view sent to students.
	Public() interface{}
}

type MCQOption struct {
	ID      string `json:"id"`
	Label   string `json:"label"`
	Correct bool   `json:"correct"`
}

type MCQConfig struct {
	Question string      `json:"question"`
	Options  []MCQOption `json:"options"`
}

type TextConfig struct {
	Prompt    string `json:"prompt"`
	MinLength int    `json:"min_length,omitempty"`
	MaxLength int    `json:"max_length,omitempty"`
}

type VideoConfig struct {
	Prompt             string `json:"prompt"`
	MaxDurationSeconds int    `json:"max_duration_seconds,omitempty"`
}

type CheckinConfig struct {
	Location     string  `json:"location"`
	Latitude     float64 `json:"latitude"`
	Longitude    float64 `json:"longitude"`
	RadiusMeters int     `json:"radius_meters,omitempty"`
}

func (MCQConfig) Type() Type     { return TypeMCQ }
func (TextConfig) Type() Type    { return TypeText }
func (VideoConfig) Type() Type   { return TypeVideo }
func (CheckinConfig) Type() Type { return TypeCheckin }

func (c MCQConfig) Validate() error {
	if strings.TrimSpace(c.Question) == "" {
		return apperror.InvalidInput("mcq question is required")
	}
	if len(c.Options) < 2 {
		return apperror.InvalidInput("mcq needs at least two options")
	}
	seen := make(map[string]struct{}, len(c.Options))
	correct := 0
	for _, o := range c.Options {
		if strings.TrimSpace(o.ID) == "" || strings.TrimSpace(o.Label) == "" {
			return apperror.InvalidInput("mcq options need an id and a label")
		}
		if _, dup := seen[o.ID]; dup {
			return apperror.InvalidInput("duplicate mcq option id %q", o.ID)
		}
		seen[o.ID] = struct{}{}
		if o.Correct {
			correct++
		}
	}
	if correct != 1 {
		return apperror.InvalidInput("mcq needs exactly one correct option, got %d", correct)
	}
	return nil
}

func (c TextConfig) Validate() error {
	if strings.TrimSpace(c.Prompt) == "" {
		return apperror.InvalidInput("text prompt is required")
	}
	if c.MinLength < 0 || c.MaxLength < 0 {
		return apperror.InvalidInput("text length bounds must not be negative")
	}
	if c.MaxLength > 0 && c.MinLength > c.MaxLength {
		return apperror.InvalidInput("min_length exceeds max_length")
	}
	return nil
}

func (c VideoConfig) Validate() error {
	if strings.TrimSpace(c.Prompt) == "" {
		return apperror.InvalidInput("video prompt is required")
	}
	if c.MaxDurationSeconds < 0 {
		return apperror.InvalidInput("max_duration_seconds must not be negative")
	}
	return nil
}

func (c CheckinConfig) Validate() error {
	if strings.TrimSpace(c.Location) == "" {
		return apperror.InvalidInput("checkin location is required")
	}
	if c.Latitude < -90 || c.Latitude > 90 || c.Longitude < -180 || c.Longitude > 180 {
		return apperror.InvalidInput("checkin coordinates out of range")
	}
	if c.RadiusMeters < 0 {
		return apperror.InvalidInput("radius_meters must not be negative")
	}
	return nil
}

type publicOption struct {
	ID    string `json:"id"`
	Label string `json:"label"`
}

// Public strips the correct flag.
func (c MCQConfig) Public() interface{} {
	options := make([]publicOption, len(c.Options))
	for i, o := range c.Options {
		options[i] = publicOption{ID: o.ID, Label: o.Label}
	}
	return struct {
		Question string         `json:"question"`
		Options  []publicOption `json:"options"`
	}{Question: c.Question, Options: options}
}

func (c TextConfig) Public() interface{}    { return c }
func (c VideoConfig) Public() interface{}   { return c }
func (c CheckinConfig) Public() interface{} { return c }

// Grade scores a choice: FullScore for the correct option, zero otherwise.
func (c MCQConfig) Grade(choiceID string) int {
	for _, o := range c.Options {
		if o.ID == choiceID && o.Correct {
			return FullScore
		}
	}
	return 0
}

func (c MCQConfig) hasOption(id string) bool {
	for _, o := range c.Options {
		if o.ID == id {
			return true
		}
	}
	return false
}

// DecodeConfig parses raw into the variant for t and validates it.
// Unknown fields are rejected so a config for one type can't pass as another.
func DecodeConfig(t Type, raw json.RawMessage) (Config, error) {
	var cfg Config
	switch t {
	case TypeMCQ:
		cfg = &MCQConfig{}
	case TypeText:
		cfg = &TextConfig{}
	case TypeVideo:
		cfg = &VideoConfig{}
	case TypeCheckin:
		cfg = &CheckinConfig{}
	default:
		return nil, apperror.InvalidInput("unknown quest type %q", t)
	}

	if len(bytes.TrimSpace(raw)) == 0 {
		return nil, apperror.InvalidInput("%s config is required", t)
	}
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.DisallowUnknownFields()
	if err := dec.Decode(cfg); err != nil {
		return nil, apperror.Wrap(apperror.KindInvalidInput, err, "invalid %s config", t)
	}

	cfg = deref(cfg)
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func deref(cfg Config) Config {
	switch c := cfg.(type) {
	case *MCQConfig:
		return *c
	case *TextConfig:
		return *c
	case *VideoConfig:
		return *c
	case *CheckinConfig:
		return *c
	}
	return cfg
}

// EncodeConfig serializes a config for storage.
func EncodeConfig(cfg Config) (json.RawMessage, error) {
	return json.Marshal(cfg)
}

// Answer is the payload of a submission. Only the field matching the quest
// type may be set.
type Answer struct {
	ChoiceID string `json:"choice_id,omitempty"`
	Text     string `json:"text,omitempty"`
	MediaRef string `json:"media_ref,omitempty"`
}

// Validate checks that the answer kind matches cfg.
func (a Answer) Validate(cfg Config) error {
	set := 0
	for _, v := range []string{a.ChoiceID, a.Text, a.MediaRef} {
		if strings.TrimSpace(v) != "" {
			set++
		}
	}
	if set != 1 {
		return apperror.InvalidInput("exactly one of choice_id, text or media_ref is required")
	}

	switch c := cfg.(type) {
	case MCQConfig:
		if a.ChoiceID == "" {
			return apperror.InvalidInput("mcq quest expects choice_id")
		}
		if !c.hasOption(a.ChoiceID) {
			return apperror.InvalidInput("unknown choice %q", a.ChoiceID)
		}
	case TextConfig:
		if strings.TrimSpace(a.Text) == "" {
			return apperror.InvalidInput("text quest expects text")
		}
		n := utf8.RuneCountInString(strings.TrimSpace(a.Text))
		if n < c.MinLength {
			return apperror.InvalidInput("text must be at least %d characters", c.MinLength)
		}
		if c.MaxLength > 0 && n > c.MaxLength {
			return apperror.InvalidInput("text must be at most %d characters", c.MaxLength)
		}
	case VideoConfig, CheckinConfig:
		if strings.TrimSpace(a.MediaRef) == "" {
			return apperror.InvalidInput("%s quest expects media_ref", cfg.Type())
		}
	default:
		return apperror.InvalidInput("unsupported quest config")
	}
	return nil
}
