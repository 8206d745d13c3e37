package normalize

import "testing"

func TestCoercePrice_Strings(t *testing.T) {
	cases := []struct {
		in   string
		want float64
	}{
		{"$1,234.00", 1234},
		{"£9.99", 9.99},
		{"€1.099,", 1.099},
		{"₹2,500", 2500},
		{"5.00 USD", 5},
		{"  42  ", 42},
		{"", 0},
		{"free", 0},
		{"-5", -5},
	}
	for _, c := range cases {
		if got := CoercePrice(c.in); got != c.want {
			t.Fatalf("CoercePrice(%q) = %v, want %v", c.in, got, c.want)
		}
	}
}

func TestCoercePrice_NonStrings(t *testing.T) {
	if got := CoercePrice(nil); got != 0 {
		t.Fatalf("nil should coerce to 0, got %v", got)
	}
	if got := CoercePrice(42); got != 42 {
		t.Fatalf("int should pass through, got %v", got)
	}
	if got := CoercePrice(12.5); got != 12.5 {
		t.Fatalf("float should pass through, got %v", got)
	}
	if got := CoercePrice(map[string]any{"x": 1}); got != 0 {
		t.Fatalf("unsupported type should coerce to 0, got %v", got)
	}
}

func TestCollapseWhitespace(t *testing.T) {
	got := CollapseWhitespace("  Golden\t Ear \n Headphones  ")
	if got != "Golden Ear Headphones" {
		t.Fatalf("unexpected collapse result: %q", got)
	}
	if CollapseWhitespace("   ") != "" {
		t.Fatalf("whitespace-only input should collapse to empty string")
	}
}
