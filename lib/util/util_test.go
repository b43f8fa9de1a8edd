package util

import "testing"

// TestIn checks membership of a string in a slice
func TestIn(t *testing.T) {
	ss := []string{"test", "main"}
	if !In(ss, "main") {
		t.Errorf("expected main to be in %v", ss)
	}
	if In(ss, "futurenet") {
		t.Errorf("did not expect futurenet in %v", ss)
	}
}

// TestFetchKey checks the network part is case-normalized
func TestFetchKey(t *testing.T) {
	if FetchKey("Test", "GABC") != FetchKey("test", "GABC") {
		t.Error("fetch key should be case-insensitive on network")
	}
	if FetchKey("test", "GABC") == FetchKey("test", "GDEF") {
		t.Error("fetch key should differ by address")
	}
}

// TestFormatAmount checks trailing zero trimming
func TestFormatAmount(t *testing.T) {
	cases := []struct{ in, out string }{
		{"5.0000000", "5"},
		{"0.5000000", "0.5"},
		{"12", "12"},
		{"", "0"},
		{"0.0000000", "0"},
	}
	for _, c := range cases {
		if got := FormatAmount(c.in); got != c.out {
			t.Errorf("FormatAmount(%q) = %q, expected %q", c.in, got, c.out)
		}
	}
}
