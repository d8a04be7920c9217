package errors

import (
	"testing"
)

func TestValidateNodeName(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		wantErr bool
	}{
		{"valid simple", "testnode2", false},
		{"valid fqdn", "testnode3.mydomain.com", false},
		{"valid with dash", "web-01", false},
		{"valid with underscore", "db_01", false},

		{"empty", "", true},
		{"too long", string(make([]byte, 300)), true},
		{"path traversal", "..", true},
		{"slash", "foo/bar", true},
		{"backslash", "foo\\bar", true},
		{"null byte", "foo\x00bar", true},
		{"newline", "foo\nbar", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateNodeName(tt.input)
			if (err != nil) != tt.wantErr {
				t.Errorf("ValidateNodeName(%q) error = %v, wantErr %v", tt.input, err, tt.wantErr)
			}
			if err != nil && !Is(err, ErrCodeInvalidInput) {
				t.Errorf("ValidateNodeName(%q) code = %v, want %v", tt.input, GetCode(err), ErrCodeInvalidInput)
			}
		})
	}
}

func TestValidateVirtRoles(t *testing.T) {
	tests := []struct {
		input   string
		wantErr bool
	}{
		{"", false},
		{"host", false},
		{"guest", false},
		{"host,guest", false},
		{"guest,", false},
		{"vm", true},
		{"host,container", true},
	}

	for _, tt := range tests {
		err := ValidateVirtRoles(tt.input)
		if (err != nil) != tt.wantErr {
			t.Errorf("ValidateVirtRoles(%q) error = %v, wantErr %v", tt.input, err, tt.wantErr)
		}
	}
}
