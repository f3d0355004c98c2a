package main

import (
	"encoding/hex"
	"strings"

	"github.com/fatih/color"
)

var (
	labelColor = color.New(color.FgCyan)
	valueColor = color.New(color.FgGreen)
	noteColor  = color.New(color.FgYellow)
)

// formatData renders a payload as lowercase hex or, by default, as text
func formatData(data []byte, asHex bool) string {
	if asHex {
		return hex.EncodeToString(data)
	}
	return string(data)
}

// parseData decodes a write payload. Hex input may contain spaces, colons,
// dashes and 0x prefixes.
func parseData(dataStr string, asHex bool) ([]byte, error) {
	if !asHex {
		return []byte(dataStr), nil
	}
	cleaned := strings.NewReplacer(" ", "", ":", "", "-", "", "0x", "", "0X", "").Replace(dataStr)
	return hex.DecodeString(cleaned)
}
