package horosafe

import (
	"errors"
	"strings"
	"testing"
)

func TestLimitedReadAll(t *testing.T) {
	data, err := LimitedReadAll(strings.NewReader("hello"), 5)
	if err != nil {
		t.Fatal(err)
	}
	if string(data) != "hello" {
		t.Errorf("got %q", data)
	}

	_, err = LimitedReadAll(strings.NewReader("hello!"), 5)
	if !errors.Is(err, ErrTooLarge) {
		t.Fatalf("err = %v, want ErrTooLarge", err)
	}
}

func TestValidateIdentifier(t *testing.T) {
	tests := []struct {
		in      string
		wantErr bool
	}{
		{"0f3a9c1e2b4d4e8f9a0b1c2d3e4f5a6b", false},
		{"ai-edit-abc.1_x", false},
		{"", true},
		{"../etc/passwd", true},
		{"tok en", true},
		{strings.Repeat("a", 257), true},
	}
	for _, tt := range tests {
		err := ValidateIdentifier(tt.in)
		if (err != nil) != tt.wantErr {
			t.Errorf("ValidateIdentifier(%q) err = %v, wantErr %v", tt.in, err, tt.wantErr)
		}
	}
}
