package espeak

import (
	"reflect"
	"testing"

	"github.com/dgnsrekt/readaloud/internal/speech"
)

func TestArgs(t *testing.T) {
	tests := []struct {
		name  string
		voice speech.Voice
		want  []string
	}{
		{
			name: "defaults",
			want: []string{"-s", "175", "--", "Hi."},
		},
		{
			name:  "language",
			voice: speech.Voice{Language: "en-GB"},
			want:  []string{"-v", "en-GB", "-s", "175", "--", "Hi."},
		},
		{
			name:  "voice wins over language",
			voice: speech.Voice{Language: "en", Name: "en-us+f3", Rate: 2},
			want:  []string{"-v", "en-us+f3", "-s", "350", "--", "Hi."},
		},
		{
			name:  "rate clamps",
			voice: speech.Voice{Rate: 0.1, Pitch: 3},
			want:  []string{"-s", "80", "-p", "99", "--", "Hi."},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Args("Hi.", tt.voice); !reflect.DeepEqual(got, tt.want) {
				t.Errorf("Args() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestNewMissingBinary(t *testing.T) {
	if _, err := New("/definitely/not/espeak", nil); err == nil {
		t.Fatal("expected error for missing binary")
	}
}

func TestIdleEngine(t *testing.T) {
	e := &Engine{binary: "espeak"}

	if e.IsSpeaking() {
		t.Error("idle engine reports speaking")
	}
	if err := e.Stop(); err != nil {
		t.Errorf("Stop() on idle engine = %v", err)
	}
	if err := e.Pause(); err != nil {
		t.Errorf("Pause() on idle engine = %v", err)
	}
	if got := e.Info().Name; got != "espeak" {
		t.Errorf("Info().Name = %q", got)
	}
}
