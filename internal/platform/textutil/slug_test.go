package textutil

import "testing"

func TestSlugify(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{name: "apostrophe and bang", input: "Men's T-Shirt!", want: "mens-t-shirt"},
		{name: "diacritics", input: "Crème Brûlée Café", want: "creme-brulee-cafe"},
		{name: "separator runs", input: "  Red -- Shirt__XL  ", want: "red-shirt-xl"},
		{name: "ampersand", input: "Shirts & Tops", want: "shirts-tops"},
		{name: "punctuation only", input: "!!!", want: ""},
		{name: "empty", input: "", want: ""},
		{name: "digits kept", input: "Pack of 3 (Cotton)", want: "pack-of-3-cotton"},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if got := Slugify(tc.input); got != tc.want {
				t.Fatalf("Slugify(%q) = %q, want %q", tc.input, got, tc.want)
			}
		})
	}
}

func TestSlugifyIsDeterministic(t *testing.T) {
	first := Slugify("Men's T-Shirt!")
	for i := 0; i < 5; i++ {
		if got := Slugify("Men's T-Shirt!"); got != first {
			t.Fatalf("expected stable output %q, got %q", first, got)
		}
	}
}
