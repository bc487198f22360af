package validate

import (
	"testing"
)

func TestLuhn(t *testing.T) {
	tests := []struct {
		number string
		want   bool
	}{
		{"4111111111111111", true},
		{"5528790000000008", true},
		{"4242424242424242", true},
		{"4111111111111112", false},
		{"411111111111111a", false},
		{"", false},
	}

	for _, tt := range tests {
		if got := Luhn(tt.number); got != tt.want {
			t.Errorf("Luhn(%q) = %v, want %v", tt.number, got, tt.want)
		}
	}
}

func TestNewRegistersLuhnTag(t *testing.T) {
	v := New()

	type card struct {
		Number string `validate:"required,luhn"`
	}

	if err := v.Struct(card{Number: "4111111111111111"}); err != nil {
		t.Errorf("valid card number rejected: %v", err)
	}
	if err := v.Struct(card{Number: "1234567890123456"}); err == nil {
		t.Error("invalid card number accepted")
	}
}
