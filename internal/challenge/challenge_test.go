package challenge

import (
	"testing"
)

func TestSolveString(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{"three factors", "factor 3 and 4 and 5", "60"},
		{"no digits", "no numbers here", "1"},
		{"empty", "", "1"},
		{"leading zeros", "007", "7"},
		{"space separated", "2 3", "6"},
		{"adjacent to letters", "a12b3c", "36"},
		{"zero factor", "multiply 9 by 0", "0"},
		{"unicode digits ignored", "٣ times 4", "4"},
		{"overflows uint64", "99999999999 99999999999", "9999999999800000000001"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := SolveString(tt.input); got != tt.want {
				t.Errorf("SolveString(%q) = %q, want %q", tt.input, got, tt.want)
			}
		})
	}
}

func TestSolve_Deterministic(t *testing.T) {
	const input = "challenge 17 of 23 at 5"
	first := Solve(input)
	second := Solve(input)
	if first.Cmp(second) != 0 {
		t.Errorf("Solve not deterministic: %s vs %s", first, second)
	}
	if first.Int64() != 17*23*5 {
		t.Errorf("Solve(%q) = %s, want %d", input, first, 17*23*5)
	}
}
