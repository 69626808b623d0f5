package normalize

import "testing"

func TestNormalize_Basic(t *testing.T) {
	n := New()

	tests := []struct {
		name string
		in   string
		want string
	}{
		{"trim", "  hello  ", "hello"},
		{"lowercase", "Hello World", "hello world"},
		{"collapse whitespace", "a  \t b\n\nc", "a b c"},
		{"abbreviation", "what is the py lang", "what is the py language"},
		{"expansion", "docs abt the db", "documentation about the database"},
		{"empty", "", ""},
		{"only spaces", " \t\n ", ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := n.Normalize(tt.in); got != tt.want {
				t.Fatalf("Normalize(%q) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}

func TestNormalize_Idempotent(t *testing.T) {
	n := New()

	inputs := []string{
		"  What   is K8s?  ",
		"pls send the cfg docs",
		"btw the repo moved",
		"",
		"already normalized text",
	}
	for _, in := range inputs {
		once := n.Normalize(in)
		twice := n.Normalize(once)
		if once != twice {
			t.Fatalf("not idempotent: Normalize(%q) = %q, Normalize again = %q", in, once, twice)
		}
	}
}

func TestNormalize_LongestMatchFirst(t *testing.T) {
	// A two-word phrase must beat the expansion of its first word alone.
	n := NewWithTable(map[string]string{
		"py":      "python",
		"py lang": "python language",
	})

	if got, want := n.Normalize("the PY LANG rocks"), "the python language rocks"; got != want {
		t.Fatalf("got %q, want %q", got, want)
	}
	if got, want := n.Normalize("py only"), "python only"; got != want {
		t.Fatalf("got %q, want %q", got, want)
	}
}

func TestNormalize_Deterministic(t *testing.T) {
	n := New()
	const in = "BTW pls check the K8s cfg w/o delay"
	first := n.Normalize(in)
	for range 100 {
		if got := n.Normalize(in); got != first {
			t.Fatalf("non-deterministic: %q vs %q", got, first)
		}
	}
}
