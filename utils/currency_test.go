package utils

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFormatCurrencyINR(t *testing.T) {
	tests := []struct {
		amount float64
		want   string
	}{
		{0, "₹0"},
		{13, "₹13"},
		{263, "₹263"},
		{45.5, "₹45.50"},
		{1000, "₹1,000"},
		{123456.5, "₹1,23,456.50"},
		{12345678, "₹1,23,45,678"},
		{-250, "-₹250"},
		{0.005, "₹0.01"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, FormatCurrencyINR(tt.amount), "%v", tt.amount)
	}
}
