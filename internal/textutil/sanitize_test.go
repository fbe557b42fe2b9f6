package textutil

import "testing"

func TestSanitizeSegment(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"Teppu", "Teppu"},
		{"12.5", "12.5"},
		{"a/b\\c", "a-b-c"},
		{"What?", "What"},
		{"..", "_"},
		{".", "_"},
		{"", "_"},
		{"  padded  ", "padded"},
		{"tab\there", "tabhere"},
		{"Café", "Café"},
		{"Vol. 1: Start", "Vol. 1- Start"},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			if got := SanitizeSegment(tt.in); got != tt.want {
				t.Errorf("SanitizeSegment(%q) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}
