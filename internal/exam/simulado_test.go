package exam

import (
	"encoding/json"
	"errors"
	"strings"
	"testing"
)

func TestSimuladoValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(s *Simulado)
		wantErr string
	}{
		{"valid", func(s *Simulado) {}, ""},
		{"missing id", func(s *Simulado) { s.ID = "" }, "missing id"},
		{"negative duration", func(s *Simulado) { s.DurationMinutes = -5 }, "duration"},
		{"threshold above 100", func(s *Simulado) { s.PassingThreshold = 101 }, "threshold"},
		{"duplicate question", func(s *Simulado) { s.Questions[1].ID = "q1" }, "duplicate question"},
		{"foreign question", func(s *Simulado) { s.Questions[0].SimuladoID = "other" }, "belongs to"},
		{"single alternative", func(s *Simulado) { s.Questions[0].Alternatives = s.Questions[0].Alternatives[:1] }, "at least two"},
		{"repeated alternative", func(s *Simulado) { s.Questions[0].Alternatives[2].ID = "b" }, "repeats alternative"},
		{"no correct alternative", func(s *Simulado) { s.Questions[0].Alternatives[0].Correct = false }, "0 correct"},
		{"disagreeing correct answer", func(s *Simulado) { s.Questions[0].CorrectAnswer = "c" }, "disagrees"},
		{"agreeing correct answer", func(s *Simulado) { s.Questions[0].CorrectAnswer = "a" }, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sim := makeSimulado("s", 3, 20)
			tt.mutate(&sim)
			err := sim.Validate()
			if tt.wantErr == "" {
				if err != nil {
					t.Fatalf("Validate() = %v, want nil", err)
				}
				return
			}
			if err == nil {
				t.Fatalf("Validate() = nil, want error containing %q", tt.wantErr)
			}
			if !errors.Is(err, ErrInvalidSimulado) {
				t.Errorf("error %v does not wrap ErrInvalidSimulado", err)
			}
			if !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("error %q does not contain %q", err, tt.wantErr)
			}
		})
	}
}

func TestForClient_HidesCorrectness(t *testing.T) {
	sim := makeSimulado("s", 2, 20)
	sim.Questions[0].CorrectAnswer = "a"
	sim.Questions[0].Explanation = "because"

	data, err := json.Marshal(sim.ForClient())
	if err != nil {
		t.Fatal(err)
	}
	for _, leak := range []string{"correct", "explanation", "because"} {
		if strings.Contains(string(data), leak) {
			t.Errorf("client projection leaks %q: %s", leak, data)
		}
	}

	cs := sim.ForClient()
	if len(cs.Questions) != 2 || len(cs.Questions[0].Alternatives) != 4 {
		t.Errorf("projection shape = %d questions, %d alternatives", len(cs.Questions), len(cs.Questions[0].Alternatives))
	}
	if cs.Questions[0].Alternatives[0].Text != "right" {
		t.Errorf("alternative text = %q", cs.Questions[0].Alternatives[0].Text)
	}
}

func TestConfigValidate(t *testing.T) {
	if err := DefaultConfig().Validate(); err != nil {
		t.Errorf("DefaultConfig().Validate() = %v", err)
	}
	for _, v := range []int{-1, 101} {
		if err := (Config{PassingThreshold: v}).Validate(); err == nil {
			t.Errorf("Validate accepted threshold %d", v)
		}
	}
}

func TestConfigFromEnv(t *testing.T) {
	t.Setenv("CERTQUEST_PASSING_THRESHOLD", "65")
	if got := ConfigFromEnv().PassingThreshold; got != 65 {
		t.Errorf("PassingThreshold = %d, want 65", got)
	}
	t.Setenv("CERTQUEST_PASSING_THRESHOLD", "lots")
	if got := ConfigFromEnv().PassingThreshold; got != 70 {
		t.Errorf("malformed value: PassingThreshold = %d, want default 70", got)
	}
}
