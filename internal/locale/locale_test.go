package locale

import "testing"

func TestCatalog_KnownLanguages(t *testing.T) {
	catalog := NewCatalog()

	en := catalog.For("en")
	if en.Lang() != "en" {
		t.Fatalf("expected en, got %s", en.Lang())
	}
	if en.Phrase("prompt.biological") != "Biometric snapshot" {
		t.Fatalf("unexpected en phrase: %s", en.Phrase("prompt.biological"))
	}

	ja := catalog.For("ja")
	if ja.Phrase("prompt.biological") != "バイオメトリクス" {
		t.Fatalf("unexpected ja phrase: %s", ja.Phrase("prompt.biological"))
	}
}

func TestCatalog_UnknownLanguageFallsBackToEnglish(t *testing.T) {
	loc := NewCatalog().For("fr")
	if loc.Lang() != "en" {
		t.Fatalf("unknown language must resolve to en, got %s", loc.Lang())
	}
	if loc.Phrase("static.rest_headline") == "static.rest_headline" {
		t.Fatal("fallback localizer must still resolve phrases")
	}
}

func TestCatalog_MissingKeyFallsBackToKey(t *testing.T) {
	loc := NewCatalog().For("ja")
	if got := loc.Phrase("no.such.key"); got != "no.such.key" {
		t.Fatalf("missing keys must echo the key, got %s", got)
	}
}

func TestCatalog_LanguagesCoverSameKeys(t *testing.T) {
	keys := map[string]bool{}
	for key := range builtinPhrases["en"] {
		keys[key] = true
	}
	for key := range builtinPhrases["ja"] {
		if !keys[key] {
			t.Fatalf("ja carries key %q that en lacks", key)
		}
		delete(keys, key)
	}
	for key := range keys {
		t.Errorf("en key %q has no ja translation", key)
	}
}
