package main

import "testing"

func TestParseAmount(t *testing.T) {
	tests := []struct {
		raw     string
		want    int64
		wantErr bool
	}{
		{"1000", 1000_0000000, false},
		{"250.5", 250_5000000, false},
		{"0.0000001", 1, false},
		{"0.00000001", 0, true},
		{"0", 0, true},
		{"-5", 0, true},
		{"abc", 0, true},
		{"10000000000000", 0, true},
	}
	for _, tt := range tests {
		got, err := parseAmount(tt.raw)
		if (err != nil) != tt.wantErr {
			t.Errorf("parseAmount(%q) error = %v, wantErr %v", tt.raw, err, tt.wantErr)
			continue
		}
		if got != tt.want {
			t.Errorf("parseAmount(%q) = %d, want %d", tt.raw, got, tt.want)
		}
	}
}

func TestValidateAccount(t *testing.T) {
	if err := validateAccount("alice"); err != nil {
		t.Errorf("Expected alice to be valid, got %v", err)
	}
	for _, bad := range []string{"", "two words", "tab\tbed"} {
		if err := validateAccount(bad); err == nil {
			t.Errorf("Expected %q to be rejected", bad)
		}
	}
}
