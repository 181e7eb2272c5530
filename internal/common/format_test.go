package common

import (
	"bytes"
	"strings"
	"testing"

	"github.com/shopspring/decimal"
)

func TestShortId(t *testing.T) {
	tests := []struct {
		id   string
		want string
	}{
		{"", "none"},
		{"abc", "abc"},
		{"0123456789abcdef", "01234567..."},
	}
	for _, tt := range tests {
		if got := ShortId(tt.id); got != tt.want {
			t.Errorf("ShortId(%q) = %q, want %q", tt.id, got, tt.want)
		}
	}
}

func TestMoney(t *testing.T) {
	if got := Money(decimal.RequireFromString("1250.5")); got != "$1250.50" {
		t.Errorf("unexpected %s", got)
	}
}

func TestPrintHeader(t *testing.T) {
	var buf bytes.Buffer
	PrintHeader(&buf, "Vault Report", 10)
	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if len(lines) != 3 || lines[1] != "Vault Report" || lines[2] != "==========" {
		t.Errorf("unexpected header output %q", buf.String())
	}
}
