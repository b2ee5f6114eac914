package catalog

import "testing"

func TestSlugify(t *testing.T) {
	cases := map[string]string{
		"Congés Payés":        "conges-payes",
		"Paie":                "paie",
		"Gestion du Personnel": "gestion-du-personnel",
		"  Évaluations  ":     "evaluations",
		"A/B--C":              "a-b-c",
		"":                    "",
	}
	for input, want := range cases {
		if got := Slugify(input); got != want {
			t.Errorf("Slugify(%q) = %q, want %q", input, got, want)
		}
	}
}
