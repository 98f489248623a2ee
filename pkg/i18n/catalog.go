// Package i18n holds the localized message catalog. Services only ever deal in message keys; the
// catalog renders them for the locale negotiated on the request.
package i18n

import (
	"context"
	"embed"
	"fmt"
	"path"
	"regexp"
	"sort"
	"strconv"
	"strings"

	"golang.org/x/text/language"
	"gopkg.in/yaml.v3"

	appctx "github.com/saikilaru/TAMcust/pkg/context"
)

const DefaultLocale = "en"

//go:embed locales/*.yaml
var localeFiles embed.FS

var placeholderPattern = regexp.MustCompile(`\{(\d+)\}`)

type Catalog struct {
	fallback string
	messages map[string]map[string]string
	locales  []string
	matcher  language.Matcher
}

// Load builds the catalog from the embedded locale files.
func Load(fallback string) (*Catalog, error) {
	entries, err := localeFiles.ReadDir("locales")
	if err != nil {
		return nil, fmt.Errorf("failed to read locale files: %w", err)
	}

	sources := make(map[string][]byte, len(entries))
	for _, entry := range entries {
		if entry.IsDir() || path.Ext(entry.Name()) != ".yaml" {
			continue
		}
		data, err := localeFiles.ReadFile(path.Join("locales", entry.Name()))
		if err != nil {
			return nil, fmt.Errorf("failed to read locale file %s: %w", entry.Name(), err)
		}
		sources[strings.TrimSuffix(entry.Name(), ".yaml")] = data
	}

	return New(fallback, sources)
}

// New builds a catalog from YAML documents keyed by locale.
func New(fallback string, sources map[string][]byte) (*Catalog, error) {
	if fallback == "" {
		fallback = DefaultLocale
	}

	c := &Catalog{
		fallback: fallback,
		messages: make(map[string]map[string]string, len(sources)),
	}

	for locale, data := range sources {
		var doc map[string]any
		if err := yaml.Unmarshal(data, &doc); err != nil {
			return nil, fmt.Errorf("failed to parse locale %s: %w", locale, err)
		}
		flat := make(map[string]string)
		flatten("", doc, flat)
		c.messages[locale] = flat
		c.locales = append(c.locales, locale)
	}

	if _, ok := c.messages[fallback]; !ok {
		return nil, fmt.Errorf("fallback locale %s has no messages", fallback)
	}

	// the fallback goes first so the matcher prefers it on ties
	sort.Slice(c.locales, func(i, j int) bool {
		if c.locales[i] == fallback || c.locales[j] == fallback {
			return c.locales[i] == fallback
		}
		return c.locales[i] < c.locales[j]
	})

	tags := make([]language.Tag, 0, len(c.locales))
	for _, locale := range c.locales {
		tags = append(tags, language.Make(locale))
	}
	c.matcher = language.NewMatcher(tags)

	return c, nil
}

func (c *Catalog) Locales() []string {
	return c.locales
}

func (c *Catalog) Fallback() string {
	return c.fallback
}

// Match picks the best supported locale for an Accept-Language header value.
func (c *Catalog) Match(acceptLanguage string) string {
	if acceptLanguage == "" {
		return c.fallback
	}
	desired, _, err := language.ParseAcceptLanguage(acceptLanguage)
	if err != nil || len(desired) == 0 {
		return c.fallback
	}
	_, index, confidence := c.matcher.Match(desired...)
	if confidence == language.No {
		return c.fallback
	}
	return c.locales[index]
}

// Has reports whether key is defined for locale or for the fallback locale.
func (c *Catalog) Has(locale, key string) bool {
	if _, ok := c.messages[locale][key]; ok {
		return true
	}
	_, ok := c.messages[c.fallback][key]
	return ok
}

// T renders key for locale. Unknown locales use the fallback; unknown keys render as the key.
func (c *Catalog) T(locale, key string, args ...any) string {
	template, ok := c.messages[locale][key]
	if !ok {
		template, ok = c.messages[c.fallback][key]
	}
	if !ok {
		template = key
	}
	return Format(template, args...)
}

// Translate renders key for the locale carried by ctx.
func (c *Catalog) Translate(ctx context.Context, key string, args ...any) string {
	return c.T(appctx.GetLocale(ctx), key, args...)
}

// Format substitutes {0}, {1}, ... with args. Placeholders without an argument are left as is.
func Format(template string, args ...any) string {
	if len(args) == 0 {
		return template
	}
	return placeholderPattern.ReplaceAllStringFunc(template, func(match string) string {
		index, err := strconv.Atoi(match[1 : len(match)-1])
		if err != nil || index >= len(args) {
			return match
		}
		return fmt.Sprint(args[index])
	})
}

func flatten(prefix string, node map[string]any, out map[string]string) {
	for key, value := range node {
		fullKey := key
		if prefix != "" {
			fullKey = prefix + "." + key
		}
		switch v := value.(type) {
		case map[string]any:
			flatten(fullKey, v, out)
		case string:
			out[fullKey] = v
		case nil:
		default:
			out[fullKey] = fmt.Sprint(v)
		}
	}
}
