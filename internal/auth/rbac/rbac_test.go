package rbac

import "testing"

func TestHasAnyRole(t *testing.T) {
	tests := []struct {
		name     string
		held     []string
		required []string
		want     bool
	}{
		{"no requirement allows anyone", []string{}, nil, true},
		{"exact match", []string{"USER"}, []string{"USER"}, true},
		{"one of several required", []string{"USER"}, []string{"ADMIN", "USER"}, true},
		{"no overlap", []string{"USER"}, []string{"ADMIN"}, false},
		{"no roles held", nil, []string{"ADMIN"}, false},
		{"multiple held one matches", []string{"USER", "MODERATOR"}, []string{"MODERATOR"}, true},
		{"case sensitive", []string{"user"}, []string{"USER"}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := HasAnyRole(tt.held, tt.required); got != tt.want {
				t.Errorf("HasAnyRole(%v, %v) = %v, want %v", tt.held, tt.required, got, tt.want)
			}
		})
	}
}
