package phase

import (
	"errors"
	"testing"

	"github.com/eldtechnologies/charette/internal/models"
)

func TestApply(t *testing.T) {
	tests := []struct {
		name    string
		current int
		dir     Direction
		want    int
	}{
		{"next from initial", 0, Next, 1},
		{"previous from initial is clamped", 0, Previous, 0},
		{"next from terminal is clamped", 5, Next, 5},
		{"previous from terminal", 5, Previous, 4},
		{"middle next", 2, Next, 3},
		{"out of range high", 9, Previous, 4},
		{"out of range low", -3, Next, 1},
		{"unknown direction", 3, Direction("sideways"), 3},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Apply(tt.current, tt.dir); got != tt.want {
				t.Errorf("Apply(%d, %q) = %d, want %d", tt.current, tt.dir, got, tt.want)
			}
		})
	}
}

func TestApplySevenTimesEndsAtTerminal(t *testing.T) {
	p := Initial
	for i := 0; i < 6; i++ {
		p = Apply(p, Next)
	}
	if p != Terminal() {
		t.Fatalf("expected %d after six steps, got %d", Terminal(), p)
	}
	if p = Apply(p, Next); p != Terminal() {
		t.Fatalf("seventh step moved past terminal: %d", p)
	}
}

func TestParseDirection(t *testing.T) {
	for _, in := range []string{"next", "NEXT", " previous ", "prev"} {
		if _, err := ParseDirection(in); err != nil {
			t.Errorf("ParseDirection(%q) returned %v", in, err)
		}
	}

	_, err := ParseDirection("forward")
	if !errors.Is(err, models.ErrInvalidDirection) {
		t.Fatalf("expected ErrInvalidDirection, got %v", err)
	}
}

func TestNames(t *testing.T) {
	if Count() != 6 {
		t.Fatalf("expected 6 phases, got %d", Count())
	}
	if Name(0) != "Introduction" || Name(5) != "Reporting" {
		t.Fatalf("unexpected phase names %q..%q", Name(0), Name(5))
	}
	if Name(6) != "" {
		t.Fatalf("expected empty name for out of range phase")
	}
}
