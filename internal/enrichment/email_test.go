package enrichment

import (
	"context"
	"testing"
)

func TestCheckEmailRejectsBadFormat(t *testing.T) {
	v := NewEmailVerifier()

	for _, email := range []string{"", "plainaddress", "missing@tld", "two@@signs.com", "spaces in@mail.com"} {
		result, err := v.CheckEmail(context.Background(), email)
		if err != nil {
			t.Fatalf("%q: %v", email, err)
		}
		if result.Score != 0 || result.Deliverable {
			t.Errorf("%q: got score %d deliverable %v, want 0/false", email, result.Score, result.Deliverable)
		}
	}
}

func TestCheckEmailDisposableDomain(t *testing.T) {
	v := NewEmailVerifier()

	result, err := v.CheckEmail(context.Background(), "someone@mailinator.com")
	if err != nil {
		t.Fatalf("check: %v", err)
	}
	if result.Deliverable {
		t.Error("disposable address should not be deliverable")
	}
	if result.Score != personalPoints {
		t.Errorf("score = %d, want %d", result.Score, personalPoints)
	}
}

func TestLocalBase(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"info", "info"},
		{"in.fo", "info"},
		{"info+crm", "info"},
		{"jane.doe+newsletter", "janedoe"},
	}
	for _, tt := range tests {
		if got := localBase(tt.in); got != tt.want {
			t.Errorf("localBase(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}
