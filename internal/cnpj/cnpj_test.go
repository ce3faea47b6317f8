package cnpj

import (
	"testing"
)

func TestNormalize(t *testing.T) {
	tests := []struct {
		input    string
		expected string
	}{
		{"11.222.333/0001-81", "11222333000181"},
		{"11222333000181", "11222333000181"},
		{"01310-100", "01310100"},
		{"abc", ""},
		{"", ""},
	}

	for _, tt := range tests {
		if got := Normalize(tt.input); got != tt.expected {
			t.Errorf("Normalize(%q) = %q, want %q", tt.input, got, tt.expected)
		}
	}
}

func TestIsValid(t *testing.T) {
	t.Run("ValidIdentifiers", func(t *testing.T) {
		for _, id := range []string{"11222333000181", "19131243000197"} {
			if !IsValid(id) {
				t.Errorf("expected %s to be valid", id)
			}
		}
	})

	t.Run("FlippedCheckDigits", func(t *testing.T) {
		// Valid prefix, wrong first and wrong second check digit.
		for _, id := range []string{"11222333000171", "11222333000180"} {
			if IsValid(id) {
				t.Errorf("expected %s to be invalid", id)
			}
		}
	})

	t.Run("RepeatedDigits", func(t *testing.T) {
		if IsValid("11111111111111") {
			t.Error("expected repeated-digit string to be invalid")
		}
	})

	t.Run("WrongLength", func(t *testing.T) {
		for _, id := range []string{"", "1122233300018", "112223330001811"} {
			if IsValid(id) {
				t.Errorf("expected %q to be invalid", id)
			}
		}
	})

	t.Run("NonDigits", func(t *testing.T) {
		if IsValid("1122233300018a") {
			t.Error("expected non-digit string to be invalid")
		}
	})
}

func TestFormat(t *testing.T) {
	if got := Format("11222333000181"); got != "11.222.333/0001-81" {
		t.Errorf("Format = %q, want %q", got, "11.222.333/0001-81")
	}

	// Length mismatch passes through unchanged.
	if got := Format("123"); got != "123" {
		t.Errorf("Format(%q) = %q, want input unchanged", "123", got)
	}
}

func TestFormatRoundTrip(t *testing.T) {
	formatted := "11.222.333/0001-81"
	if got := Format(Normalize(formatted)); got != formatted {
		t.Errorf("Format(Normalize(x)) = %q, want %q", got, formatted)
	}
}

func TestCEP(t *testing.T) {
	if !IsValidCEP("01310100") {
		t.Error("expected 01310100 to be a valid CEP")
	}
	if IsValidCEP("0131010") || IsValidCEP("013101000") || IsValidCEP("0131010a") {
		t.Error("expected invalid CEPs to be rejected")
	}

	if got := FormatCEP("01310100"); got != "01310-100" {
		t.Errorf("FormatCEP = %q, want %q", got, "01310-100")
	}
	if got := FormatCEP("123"); got != "123" {
		t.Errorf("FormatCEP(%q) = %q, want input unchanged", "123", got)
	}
}
