package detector

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestLuhnValid(t *testing.T) {
	tests := []struct {
		name   string
		number string
		want   bool
	}{
		{"visa test number", "4111111111111111", true},
		{"mastercard test number", "5500005555555559", true},
		{"off by one", "4111111111111112", false},
		{"single digit", "4", false},
		{"non-digit", "4111a11111111111", false},
		{"empty", "", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, luhnValid(tt.number))
		})
	}
}

func TestIBANValidation(t *testing.T) {
	tests := []struct {
		name string
		iban string
		want bool
	}{
		{"valid german", "DE89370400440532013000", true},
		{"valid british", "GB82WEST12345698765432", true},
		{"checksum failure", "DE89370400440532013001", false},
		{"wrong length for country", "DE8937040044053201300", false},
		{"unknown country", "ZZ89370400440532013000", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := validIBANLength(tt.iban) && validIBANChecksum(tt.iban)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestVerhoeffValid(t *testing.T) {
	tests := []struct {
		name   string
		number string
		want   bool
	}{
		{"valid checksum", "234123412346", true},
		{"wrong checksum", "234123412345", false},
		{"too short", "23412341234", false},
		{"too long", "2341234123461", false},
		{"non-digit", "23412341234a", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, verhoeffValid(tt.number))
		})
	}
}
