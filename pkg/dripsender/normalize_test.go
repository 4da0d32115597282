package dripsender

import "testing"

func TestNormalizePhone(t *testing.T) {
	cases := map[string]string{
		"081234567890":     "6281234567890",
		"+6281234567890":   "6281234567890",
		"6281234567890":    "6281234567890",
		"81234567890":      "6281234567890",
		"0812-3456-7890":   "6281234567890",
		"+62 812 34567890": "6281234567890",
		"":                 "",
	}
	for in, want := range cases {
		if got := NormalizePhone(in); got != want {
			t.Errorf("NormalizePhone(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestNormalizePhoneIdempotent(t *testing.T) {
	inputs := []string{"081234567890", "+6281234567890", "6281234567890"}
	for _, in := range inputs {
		once := NormalizePhone(in)
		twice := NormalizePhone(once)
		if once != twice {
			t.Errorf("normalize not idempotent for %q: %q != %q", in, once, twice)
		}
	}
}

func TestStoragePhone(t *testing.T) {
	if got := StoragePhone("081234567890"); got != "+6281234567890" {
		t.Errorf("StoragePhone = %q, want +6281234567890", got)
	}
	if got := StoragePhone(""); got != "" {
		t.Errorf("StoragePhone(\"\") = %q, want empty", got)
	}
}

func TestValidatePhone(t *testing.T) {
	if err := ValidatePhone("081234567890"); err != nil {
		t.Errorf("expected valid number, got %v", err)
	}
	if err := ValidatePhone("12345"); err == nil {
		t.Error("expected error for bogus number")
	}
	if err := ValidatePhone(""); err == nil {
		t.Error("expected error for empty number")
	}
}
