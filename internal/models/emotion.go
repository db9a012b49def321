package models

import (
	"encoding/json"
	"math"
	"time"
)

// Emotion is one label of the closed set reported by the classifier
type Emotion string

const (
	EmotionAngry    Emotion = "angry"
	EmotionHappy    Emotion = "happy"
	EmotionSad      Emotion = "sad"
	EmotionSurprise Emotion = "surprise"
	EmotionNeutral  Emotion = "neutral"
)

// Emotions lists every label in canonical display order.
var Emotions = [...]Emotion{
	EmotionAngry,
	EmotionHappy,
	EmotionSad,
	EmotionSurprise,
	EmotionNeutral,
}

// DefaultEmotion is reported before the first successful classification
const DefaultEmotion = EmotionNeutral

// String returns the string representation of Emotion
func (e Emotion) String() string {
	return string(e)
}

// Index returns the canonical position of e, or -1 for an unknown label.
func (e Emotion) Index() int {
	for i, known := range Emotions {
		if known == e {
			return i
		}
	}
	return -1
}

// IsValid checks if the emotion belongs to the fixed label set
func (e Emotion) IsValid() bool {
	return e.Index() >= 0
}

// Scores holds one confidence in [0,100] per emotion, indexed in canonical order.
type Scores [len(Emotions)]float64

// Get returns the score of e, 0 for unknown labels.
func (s Scores) Get(e Emotion) float64 {
	if i := e.Index(); i >= 0 {
		return s[i]
	}
	return 0
}

// Set stores v for e after clamping it into [0,100]. Unknown labels are ignored.
func (s *Scores) Set(e Emotion, v float64) {
	if i := e.Index(); i >= 0 {
		s[i] = ClampScore(v)
	}
}

// Top returns the highest scoring emotion. Ties resolve to the earliest label in
// canonical order, so an all-zero set yields angry.
func (s Scores) Top() (Emotion, float64) {
	best := 0
	for i := 1; i < len(s); i++ {
		if s[i] > s[best] {
			best = i
		}
	}
	return Emotions[best], s[best]
}

// Map converts the scores to a label keyed map.
func (s Scores) Map() map[string]float64 {
	out := make(map[string]float64, len(s))
	for i, e := range Emotions {
		out[string(e)] = s[i]
	}
	return out
}

func (s Scores) MarshalJSON() ([]byte, error) {
	return json.Marshal(s.Map())
}

// ClampScore maps v into [0,100]; NaN becomes 0.
func ClampScore(v float64) float64 {
	switch {
	case math.IsNaN(v), v < 0:
		return 0
	case v > 100:
		return 100
	default:
		return v
	}
}

// FaceBox is an axis-aligned rectangle in frame coordinates
type FaceBox struct {
	X int `json:"x"`
	Y int `json:"y"`
	W int `json:"w"`
	H int `json:"h"`
}

// Valid reports whether the box has a strictly positive area.
func (b FaceBox) Valid() bool {
	return b.W > 0 && b.H > 0
}

// Reading is the normalized outcome of one successful classification
type Reading struct {
	Scores Scores
	Face   *FaceBox // nil when no face was reported
}

// HUDState is everything the overlay renders, carried across frames
type HUDState struct {
	Scores        Scores
	TopEmotion    Emotion
	TopConfidence int
	Face          *FaceBox
	UpdatedAt     time.Time
	Updates       int64
}

// NewHUDState returns the never-classified state.
func NewHUDState() *HUDState {
	return &HUDState{TopEmotion: DefaultEmotion}
}

// Apply replaces the scores wholesale and recomputes the top emotion. The face box is
// only replaced when the reading carries a valid one.
func (s *HUDState) Apply(r Reading, at time.Time) {
	for i := range r.Scores {
		s.Scores[i] = ClampScore(r.Scores[i])
	}

	top, conf := s.Scores.Top()
	s.TopEmotion = top
	s.TopConfidence = int(math.Round(conf))

	if r.Face != nil && r.Face.Valid() {
		face := *r.Face
		s.Face = &face
	}

	s.UpdatedAt = at
	s.Updates++
}

// Snapshot copies the state into its JSON form.
func (s *HUDState) Snapshot() HUDSnapshot {
	snap := HUDSnapshot{
		Scores:        s.Scores.Map(),
		TopEmotion:    s.TopEmotion,
		TopConfidence: s.TopConfidence,
		Updates:       s.Updates,
	}
	if s.Face != nil {
		face := *s.Face
		snap.FaceBox = &face
	}
	if !s.UpdatedAt.IsZero() {
		updated := s.UpdatedAt
		snap.UpdatedAt = &updated
	}
	return snap
}

// HUDSnapshot is the serializable view of HUDState
type HUDSnapshot struct {
	Scores        map[string]float64 `json:"scores"`
	TopEmotion    Emotion            `json:"top_emotion"`
	TopConfidence int                `json:"top_confidence"`
	FaceBox       *FaceBox           `json:"face_box,omitempty"`
	UpdatedAt     *time.Time         `json:"updated_at,omitempty"`
	Updates       int64              `json:"updates"`
}

// ReadingEvent is published after every successful classification
type ReadingEvent struct {
	SessionID     string             `json:"session_id"`
	Timestamp     time.Time          `json:"timestamp"`
	Scores        map[string]float64 `json:"scores"`
	TopEmotion    Emotion            `json:"top_emotion"`
	TopConfidence int                `json:"top_confidence"`
	FaceBox       *FaceBox           `json:"face_box,omitempty"`
}

// NewReadingEvent builds the event for the current state.
func NewReadingEvent(sessionID string, s *HUDState) ReadingEvent {
	snap := s.Snapshot()
	return ReadingEvent{
		SessionID:     sessionID,
		Timestamp:     s.UpdatedAt,
		Scores:        snap.Scores,
		TopEmotion:    snap.TopEmotion,
		TopConfidence: snap.TopConfidence,
		FaceBox:       snap.FaceBox,
	}
}
