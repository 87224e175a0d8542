package langdetect

import "testing"

func TestDetect(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		in   string
		want Language
	}{
		{"empty", "", Default},
		{"whitespace", "   \n\t", Default},
		{"digits only", "12345 678", Default},
		{"punctuation only", "?!...", Default},
		{"french", "Bonjour, je voudrais connaître les horaires d'ouverture de votre magasin et les conditions de livraison pour la France.", French},
		{"english", "Could you please tell me what the opening hours of your store are and how long the delivery usually takes?", English},
		{"arabic", "مرحبا، أريد أن أعرف مواعيد العمل الخاصة بالمتجر وشروط التوصيل إلى المدينة من فضلك", Arabic},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			if got := Detect(tt.in); got != tt.want {
				t.Errorf("Detect(%q) = %v, want %v", tt.in, got, tt.want)
			}
		})
	}
}

func TestLanguage_String(t *testing.T) {
	t.Parallel()

	tests := map[Language]string{
		Default: "default",
		French:  "fr",
		English: "en",
		Arabic:  "ar",
	}
	for lang, want := range tests {
		if got := lang.String(); got != want {
			t.Errorf("%d.String() = %q, want %q", int(lang), got, want)
		}
	}
}
