package locale

import (
	"strings"
	"testing"
	"time"
)

func TestDefaultCatalog(t *testing.T) {
	c, err := Default()
	if err != nil {
		t.Fatalf("Default failed: %v", err)
	}

	if !c.Has(165) || !c.Has(245) {
		t.Fatal("Expected message sets for 165 and 245")
	}

	en := c.For(165)
	de := c.For(245)

	if en.Get(Unauthorized) == de.Get(Unauthorized) {
		t.Error("Expected localized unauthorized messages to differ")
	}
	if en.LanguageCode() != "en" || de.LanguageCode() != "de" {
		t.Errorf("Unexpected language codes %q/%q", en.LanguageCode(), de.LanguageCode())
	}
}

func TestCatalog_Fallback(t *testing.T) {
	c := MustDefault()

	m := c.For(999)
	if m.LocaleID() != DefaultLocaleID {
		t.Errorf("Expected fallback locale %d, got %d", DefaultLocaleID, m.LocaleID())
	}
	if m.Get(Unauthorized) != c.For(165).Get(Unauthorized) {
		t.Error("Expected fallback to default locale text")
	}

	if got := c.ForHeader("not-a-number").LocaleID(); got != DefaultLocaleID {
		t.Errorf("Expected fallback for bad header, got %d", got)
	}
	if got := c.ForHeader(" 245 ").LocaleID(); got != 245 {
		t.Errorf("Expected 245 from header, got %d", got)
	}

	if got := m.Get(Key("NO_SUCH_KEY")); got != "NO_SUCH_KEY" {
		t.Errorf("Expected key echo for missing message, got %q", got)
	}
}

func TestLoad_PartialSectionFallsBackPerKey(t *testing.T) {
	doc := `
[165_MESSAGES]
UNAUTHORIZED = nope
TODAY = Today

[300_MESSAGES]
TODAY = Idag
`
	c, err := Load(strings.NewReader(doc), 165)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	sv := c.For(300)
	if sv.Get(Today) != "Idag" {
		t.Errorf("Expected Idag, got %q", sv.Get(Today))
	}
	if sv.Get(Unauthorized) != "nope" {
		t.Errorf("Expected per-key fallback, got %q", sv.Get(Unauthorized))
	}
}

func TestLoad_MissingFallback(t *testing.T) {
	if _, err := Load(strings.NewReader("[245_MESSAGES]\nTODAY = Heute\n"), 165); err == nil {
		t.Error("Expected error when fallback locale is missing")
	}
}

func TestMessages_FormatDate(t *testing.T) {
	c := MustDefault()
	day := time.Date(2024, time.March, 5, 10, 0, 0, 0, time.UTC)

	if got := c.For(165).FormatDate(day); got != "March 05, 2024" {
		t.Errorf("Unexpected English date %q", got)
	}
	if got := c.For(245).FormatDate(day); got != "05. März 2024" {
		t.Errorf("Unexpected German date %q", got)
	}
}

func TestMessages_Format(t *testing.T) {
	m := MustDefault().For(165)

	body := m.Format(EmailBodyTemplate, map[string]string{
		"firstname": "Ada",
		"link":      "https://example.com/reset",
		"weekday":   m.WeekdayName(time.Friday),
	})

	for _, want := range []string{"Ada", "https://example.com/reset", "Friday"} {
		if !strings.Contains(body, want) {
			t.Errorf("Expected body to contain %q: %s", want, body)
		}
	}
}

func TestMessages_RemainingTime(t *testing.T) {
	m := MustDefault().For(165)

	if m.RemainingTime(0) != "a few minutes" {
		t.Errorf("Unexpected text for 0 hours: %q", m.RemainingTime(0))
	}
	if m.RemainingTime(4) != "four hours" {
		t.Errorf("Unexpected text for 4 hours: %q", m.RemainingTime(4))
	}
	if m.RemainingTime(9) != m.RemainingTime(4) || m.RemainingTime(-1) != m.RemainingTime(0) {
		t.Error("Expected out of range hours to clamp")
	}
}
