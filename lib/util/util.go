// Package util contains helper functions used around the code.
package util

import "strings"

// In returns true if s is found in ss, false otherwise
func In(ss []string, s string) bool {
	for _, v := range ss {
		if s == v {
			return true
		}
	}
	return false
}

// FetchKey builds the case-normalized balance fetch key for a network and address pair.
func FetchKey(network, address string) string {
	return strings.ToLower(network) + "|" + address
}

// FormatAmount renders a raw 7-decimal ledger amount for display, trimming trailing zeros.
func FormatAmount(raw string) string {
	if raw == "" {
		return "0"
	}
	if !strings.Contains(raw, ".") {
		return raw
	}
	s := strings.TrimRight(raw, "0")
	s = strings.TrimSuffix(s, ".")
	if s == "" || s == "-" {
		return "0"
	}
	return s
}
