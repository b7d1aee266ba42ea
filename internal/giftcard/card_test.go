package giftcard

import (
	"regexp"
	"testing"
)

var codePattern = regexp.MustCompile(`^KHC-[A-Z0-9]{4}-[A-Z0-9]{4}-[A-Z0-9]{4}$`)

func TestGenerateCodeFormat(t *testing.T) {
	for i := 0; i < 100; i++ {
		code := GenerateCode()
		if !codePattern.MatchString(code) {
			t.Fatalf("code %q does not match KHC-XXXX-XXXX-XXXX", code)
		}
	}
}

func TestGenerateCodeUnique(t *testing.T) {
	seen := make(map[string]bool)
	for i := 0; i < 1000; i++ {
		code := GenerateCode()
		if seen[code] {
			t.Fatalf("duplicate code generated: %s", code)
		}
		seen[code] = true
	}
}

func TestNormalizeCode(t *testing.T) {
	if NormalizeCode(" khc-ab12-cd34-ef56 ") != "KHC-AB12-CD34-EF56" {
		t.Fatalf("unexpected normalization: %q", NormalizeCode(" khc-ab12-cd34-ef56 "))
	}
}
