package quest

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/questboard/questboard-api/internal/pkg/apperror"
)

const capitalsConfig = `{"question":"Capital of France?","options":[{"id":"a","label":"Lyon"},{"id":"b","label":"Paris","correct":true}]}`

func TestDecodeConfig(t *testing.T) {
	tests := []struct {
		name    string
		typ     Type
		raw     string
		wantErr bool
	}{
		{name: "mcq", typ: TypeMCQ, raw: capitalsConfig},
		{name: "text", typ: TypeText, raw: `{"prompt":"Describe your day","min_length":10}`},
		{name: "video", typ: TypeVideo, raw: `{"prompt":"Film a sunset","max_duration_seconds":60}`},
		{name: "checkin", typ: TypeCheckin, raw: `{"location":"Library","latitude":51.5,"longitude":-0.1}`},
		{name: "mcq without correct option", typ: TypeMCQ, raw: `{"question":"?","options":[{"id":"a","label":"x"},{"id":"b","label":"y"}]}`, wantErr: true},
		{name: "mcq with two correct options", typ: TypeMCQ, raw: `{"question":"?","options":[{"id":"a","label":"x","correct":true},{"id":"b","label":"y","correct":true}]}`, wantErr: true},
		{name: "mcq duplicate ids", typ: TypeMCQ, raw: `{"question":"?","options":[{"id":"a","label":"x","correct":true},{"id":"a","label":"y"}]}`, wantErr: true},
		{name: "text config for video quest", typ: TypeVideo, raw: `{"prompt":"x","min_length":3}`, wantErr: true},
		{name: "checkin out of range", typ: TypeCheckin, raw: `{"location":"Pole","latitude":95,"longitude":0}`, wantErr: true},
		{name: "empty config", typ: TypeText, raw: ``, wantErr: true},
		{name: "unknown type", typ: "essay", raw: `{}`, wantErr: true},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			cfg, err := DecodeConfig(tc.typ, json.RawMessage(tc.raw))
			if tc.wantErr {
				assert.Equal(t, apperror.KindInvalidInput, apperror.KindOf(err))
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tc.typ, cfg.Type())
		})
	}
}

func TestMCQPublicViewHidesCorrectOption(t *testing.T) {
	cfg, err := DecodeConfig(TypeMCQ, json.RawMessage(capitalsConfig))
	require.NoError(t, err)

	body, err := json.Marshal(cfg.Public())
	require.NoError(t, err)

	assert.NotContains(t, string(body), "correct")
	assert.Contains(t, string(body), `"label":"Paris"`)
}

func TestMCQGrade(t *testing.T) {
	cfg, err := DecodeConfig(TypeMCQ, json.RawMessage(capitalsConfig))
	require.NoError(t, err)
	mcq := cfg.(MCQConfig)

	assert.Equal(t, FullScore, mcq.Grade("b"))
	assert.Equal(t, 0, mcq.Grade("a"))
	assert.Equal(t, 0, mcq.Grade("z"))
}

func TestAnswerValidate(t *testing.T) {
	mcq, _ := DecodeConfig(TypeMCQ, json.RawMessage(capitalsConfig))
	text, _ := DecodeConfig(TypeText, json.RawMessage(`{"prompt":"Why?","min_length":5,"max_length":20}`))
	video, _ := DecodeConfig(TypeVideo, json.RawMessage(`{"prompt":"Film it"}`))

	tests := []struct {
		name    string
		cfg     Config
		answer  Answer
		wantErr bool
	}{
		{name: "mcq choice", cfg: mcq, answer: Answer{ChoiceID: "a"}},
		{name: "mcq unknown choice", cfg: mcq, answer: Answer{ChoiceID: "q"}, wantErr: true},
		{name: "mcq given text", cfg: mcq, answer: Answer{Text: "Paris"}, wantErr: true},
		{name: "text ok", cfg: text, answer: Answer{Text: "because"}},
		{name: "text too short", cfg: text, answer: Answer{Text: "no"}, wantErr: true},
		{name: "text too long", cfg: text, answer: Answer{Text: "this answer is far too long"}, wantErr: true},
		{name: "video media", cfg: video, answer: Answer{MediaRef: "uploads/v1.mp4"}},
		{name: "two fields", cfg: video, answer: Answer{MediaRef: "x", Text: "y"}, wantErr: true},
		{name: "empty", cfg: video, answer: Answer{}, wantErr: true},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			err := tc.answer.Validate(tc.cfg)
			if tc.wantErr {
				assert.Equal(t, apperror.KindInvalidInput, apperror.KindOf(err))
				return
			}
			assert.NoError(t, err)
		})
	}
}
