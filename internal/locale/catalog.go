package locale

import (
	"bytes"
	_ "embed"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/viper"
)

//go:embed messages.ini
var embeddedMessages []byte

// sectionSuffix joins a locale id to its section name, e.g. "165_MESSAGES"
const sectionSuffix = "_MESSAGES"

// DefaultLocaleID is used when a caller's locale has no message set
const DefaultLocaleID = 165

// Catalog holds the immutable message sets of every supported locale.
// It is loaded once per container and shared across requests.
type Catalog struct {
	sets     map[int]map[string]string
	fallback int
}

// Load reads an INI document whose sections are named "<locale id>_MESSAGES"
func Load(r io.Reader, fallback int) (*Catalog, error) {
	v := viper.New()
	v.SetConfigType("ini")
	if err := v.ReadConfig(r); err != nil {
		return nil, fmt.Errorf("failed to read message catalog: %w", err)
	}

	sets := make(map[int]map[string]string)
	for _, key := range v.AllKeys() {
		section, name, ok := strings.Cut(key, ".")
		if !ok {
			continue
		}
		idPart, found := strings.CutSuffix(strings.ToUpper(section), sectionSuffix)
		if !found {
			continue
		}
		localeID, err := strconv.Atoi(idPart)
		if err != nil {
			return nil, fmt.Errorf("invalid message section %q: %w", section, err)
		}
		if sets[localeID] == nil {
			sets[localeID] = make(map[string]string)
		}
		sets[localeID][strings.ToUpper(name)] = v.GetString(key)
	}

	if _, ok := sets[fallback]; !ok {
		return nil, fmt.Errorf("message catalog has no section for fallback locale %d", fallback)
	}

	return &Catalog{sets: sets, fallback: fallback}, nil
}

// Default returns the catalog compiled into the binary
func Default() (*Catalog, error) {
	return Load(bytes.NewReader(embeddedMessages), DefaultLocaleID)
}

// MustDefault is Default for tests and init paths
func MustDefault() *Catalog {
	c, err := Default()
	if err != nil {
		panic(err)
	}
	return c
}

// Has reports whether the catalog carries a message set for localeID
func (c *Catalog) Has(localeID int) bool {
	_, ok := c.sets[localeID]
	return ok
}

// For resolves the message set of localeID, falling back to the default locale
func (c *Catalog) For(localeID int) Messages {
	set, ok := c.sets[localeID]
	if !ok {
		localeID = c.fallback
		set = c.sets[c.fallback]
	}
	return Messages{localeID: localeID, text: set, fallback: c.sets[c.fallback]}
}

// ForHeader resolves the message set from a raw language_id header value
func (c *Catalog) ForHeader(value string) Messages {
	id, err := strconv.Atoi(strings.TrimSpace(value))
	if err != nil {
		return c.For(c.fallback)
	}
	return c.For(id)
}

// Messages is the message set of one locale. It is a value and is passed
// explicitly to everything that renders text for the caller.
type Messages struct {
	localeID int
	text     map[string]string
	fallback map[string]string
}

// LocaleID returns the locale the set was resolved for
func (m Messages) LocaleID() int {
	return m.localeID
}

// Get returns the text for key. Missing keys fall back to the default
// locale, then to the key itself.
func (m Messages) Get(key Key) string {
	if s, ok := m.text[string(key)]; ok {
		return s
	}
	if s, ok := m.fallback[string(key)]; ok {
		return s
	}
	return string(key)
}

// Format returns the text for key with {name} placeholders substituted
func (m Messages) Format(key Key, args map[string]string) string {
	text := m.Get(key)
	if len(args) == 0 {
		return text
	}
	pairs := make([]string, 0, len(args)*2)
	for name, value := range args {
		pairs = append(pairs, "{"+name+"}", value)
	}
	return strings.NewReplacer(pairs...).Replace(text)
}

// MonthName returns the localized month name
func (m Messages) MonthName(month time.Month) string {
	return m.Get(Key(fmt.Sprintf("MONTH_%d", int(month))))
}

// WeekdayName returns the localized weekday name
func (m Messages) WeekdayName(day time.Weekday) string {
	return m.Get(Key(fmt.Sprintf("WEEKDAY_%d", int(day))))
}

// FormatDate renders a calendar date with the locale's DATE_FORMAT
func (m Messages) FormatDate(t time.Time) string {
	return m.Format(DateFormat, map[string]string{
		"day":   fmt.Sprintf("%02d", t.Day()),
		"month": m.MonthName(t.Month()),
		"year":  strconv.Itoa(t.Year()),
	})
}

// LanguageCode returns the locale's short language code, e.g. "en"
func (m Messages) LanguageCode() string {
	return m.Get(LanguageCode)
}
