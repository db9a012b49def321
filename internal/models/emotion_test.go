package models

import (
	"encoding/json"
	"math"
	"testing"
	"time"
)

func scoresOf(values map[Emotion]float64) Scores {
	var s Scores
	for e, v := range values {
		s.Set(e, v)
	}
	return s
}

func TestNewHUDStateDefaults(t *testing.T) {
	s := NewHUDState()

	if s.TopEmotion != EmotionNeutral {
		t.Errorf("TopEmotion = %q, want neutral", s.TopEmotion)
	}
	if s.TopConfidence != 0 {
		t.Errorf("TopConfidence = %d, want 0", s.TopConfidence)
	}
	if s.Face != nil {
		t.Errorf("Face = %+v, want nil", s.Face)
	}
	for _, e := range Emotions {
		if s.Scores.Get(e) != 0 {
			t.Errorf("score %s = %f, want 0", e, s.Scores.Get(e))
		}
	}
}

func TestApplyHappyScenario(t *testing.T) {
	s := NewHUDState()
	s.Apply(Reading{
		Scores: scoresOf(map[Emotion]float64{
			EmotionAngry: 5, EmotionHappy: 70, EmotionSad: 2, EmotionSurprise: 3, EmotionNeutral: 20,
		}),
		Face: &FaceBox{X: 50, Y: 60, W: 100, H: 120},
	}, time.Unix(10, 0))

	if s.TopEmotion != EmotionHappy {
		t.Errorf("TopEmotion = %q, want happy", s.TopEmotion)
	}
	if s.TopConfidence != 70 {
		t.Errorf("TopConfidence = %d, want 70", s.TopConfidence)
	}
	if s.Face == nil || *s.Face != (FaceBox{X: 50, Y: 60, W: 100, H: 120}) {
		t.Errorf("Face = %+v", s.Face)
	}
	if s.Updates != 1 {
		t.Errorf("Updates = %d, want 1", s.Updates)
	}
}

func TestApplyKeepsPreviousFace(t *testing.T) {
	s := NewHUDState()
	first := FaceBox{X: 1, Y: 2, W: 3, H: 4}
	s.Apply(Reading{Face: &first}, time.Now())

	s.Apply(Reading{Face: &FaceBox{X: 9, Y: 9, W: 0, H: 50}}, time.Now())
	if s.Face == nil || *s.Face != first {
		t.Errorf("zero width box replaced face: %+v", s.Face)
	}

	s.Apply(Reading{}, time.Now())
	if s.Face == nil || *s.Face != first {
		t.Errorf("missing box cleared face: %+v", s.Face)
	}

	first.X = 100
	if s.Face.X != 1 {
		t.Error("state must not alias the reading's face box")
	}
}

func TestApplyZeroWidthOnFirstCall(t *testing.T) {
	s := NewHUDState()
	s.Apply(Reading{Face: &FaceBox{W: 0, H: 50}}, time.Now())
	if s.Face != nil {
		t.Errorf("Face = %+v, want nil", s.Face)
	}
}

func TestScoresStayInRange(t *testing.T) {
	s := NewHUDState()
	var raw Scores
	raw[0] = -4
	raw[1] = 250
	raw[2] = math.NaN()
	raw[3] = 99.6
	s.Apply(Reading{Scores: raw}, time.Now())

	for _, e := range Emotions {
		v := s.Scores.Get(e)
		if v < 0 || v > 100 || math.IsNaN(v) {
			t.Errorf("score %s = %f out of range", e, v)
		}
	}
	if s.TopEmotion != EmotionHappy || s.TopConfidence != 100 {
		t.Errorf("top = %s %d, want happy 100", s.TopEmotion, s.TopConfidence)
	}
	if !s.TopEmotion.IsValid() {
		t.Error("top emotion must be a known label")
	}
}

func TestTopConfidenceRounds(t *testing.T) {
	s := NewHUDState()
	s.Apply(Reading{Scores: scoresOf(map[Emotion]float64{EmotionSad: 44.5, EmotionAngry: 12})}, time.Now())
	if s.TopEmotion != EmotionSad || s.TopConfidence != 45 {
		t.Errorf("top = %s %d, want sad 45", s.TopEmotion, s.TopConfidence)
	}
}

func TestTopTieResolvesInCanonicalOrder(t *testing.T) {
	top, _ := scoresOf(map[Emotion]float64{EmotionNeutral: 40, EmotionHappy: 40}).Top()
	if top != EmotionHappy {
		t.Errorf("tie resolved to %q, want happy", top)
	}
}

func TestScoresMarshalAsMap(t *testing.T) {
	b, err := json.Marshal(scoresOf(map[Emotion]float64{EmotionHappy: 70}))
	if err != nil {
		t.Fatal(err)
	}

	var decoded map[string]float64
	if err := json.Unmarshal(b, &decoded); err != nil {
		t.Fatal(err)
	}
	if len(decoded) != 5 || decoded["happy"] != 70 {
		t.Errorf("decoded = %v", decoded)
	}
}

func TestUnknownEmotion(t *testing.T) {
	var s Scores
	s.Set(Emotion("disgust"), 50)
	if s != (Scores{}) {
		t.Errorf("unknown label changed scores: %v", s)
	}
	if Emotion("fear").IsValid() {
		t.Error("fear is not part of the label set")
	}
}
