package format

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestMoney(t *testing.T) {
	tests := []struct {
		in   float64
		want string
	}{
		{0.5, "0.50"},
		{999, "999.00"},
		{-1000, "-1,000.00"},
		{42123.456, "42,123.46"},
		{1234567, "1,234,567.00"},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, Money(tt.in))
	}
}
