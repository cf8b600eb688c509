package security

import "testing"

func TestGenerateNumericCode(t *testing.T) {
	code, err := GenerateNumericCode(6)
	if err != nil {
		t.Fatalf("GenerateNumericCode: %v", err)
	}
	if len(code) != 6 {
		t.Fatalf("len = %d, want 6", len(code))
	}
	for _, c := range code {
		if c < '0' || c > '9' {
			t.Fatalf("non-digit %q in code %q", c, code)
		}
	}
}

func TestCodeEqual(t *testing.T) {
	hash := HashCode("483920")
	if !CodeEqual("483920", hash) {
		t.Error("CodeEqual rejected the matching code")
	}
	if CodeEqual("000000", hash) {
		t.Error("CodeEqual accepted a different code")
	}
	if CodeEqual("483920", "") {
		t.Error("CodeEqual accepted an empty stored hash")
	}
}
