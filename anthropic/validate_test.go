package anthropic

import (
	"context"
	"errors"
	"testing"
)

func TestValidateAPIKey_Empty(t *testing.T) {
	err := ValidateAPIKey(context.Background(), "")
	if !errors.Is(err, ErrEmptyAPIKey) {
		t.Errorf("ValidateAPIKey(\"\") = %v, want ErrEmptyAPIKey", err)
	}
}

func TestExtractKeyHint(t *testing.T) {
	tests := []struct {
		key  string
		want string
	}{
		{"sk-ant-api03-longkey-abcd", "abcd"},
		{"1234", "1234"},
		{"abc", "****"},
		{"", "****"},
	}

	for _, tt := range tests {
		if got := ExtractKeyHint(tt.key); got != tt.want {
			t.Errorf("ExtractKeyHint(%q) = %q, want %q", tt.key, got, tt.want)
		}
	}
}
