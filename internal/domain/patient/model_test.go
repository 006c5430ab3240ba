package patient

import "testing"

func TestComputeIndexKey(t *testing.T) {
	tests := []struct {
		department string
		status     string
		want       string
	}{
		{"surgery", "active", "surgery#active"},
		{"Surgery", "Active", "surgery#active"},
		{"  cardiology ", "inactive", "cardiology#inactive"},
		{"", "active", "#active"},
	}
	for _, tc := range tests {
		if got := ComputeIndexKey(tc.department, tc.status); got != tc.want {
			t.Errorf("ComputeIndexKey(%q, %q) = %q, want %q", tc.department, tc.status, got, tc.want)
		}
	}
}
