package facematch

import "testing"

func TestNormalizePersonName(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"plain", "Alice", "alice"},
		{"czech diacritics", "Jiří Žáček", "jiri zacek"},
		{"dashes from directory name", "jiri-zacek", "jiri zacek"},
		{"underscores and dots", "J._Smith", "j smith"},
		{"whitespace collapsed", "  Mary \t Ann  ", "mary ann"},
		{"umlaut", "Zoë Müller", "zoe muller"},
		{"empty", "", ""},
		{"only separators", " - _ ", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := NormalizePersonName(tt.in); got != tt.want {
				t.Errorf("NormalizePersonName(%q) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}

func TestRemoveDiacriticsKeepsCase(t *testing.T) {
	if got := RemoveDiacritics("Žluťoučký Kůň"); got != "Zlutoucky Kun" {
		t.Errorf("RemoveDiacritics() = %q", got)
	}
}
