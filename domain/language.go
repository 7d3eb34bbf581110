package domain

import (
	"fmt"
	"strings"

	"jaytaylor.com/wikigraph/pkg/unique"
)

// Language is a wiki language edition code, e.g. "en" or "simple".
type Language string

// knownLanguages maps supported edition codes to their English names.
var knownLanguages = map[Language]string{
	"ar":     "Arabic",
	"ca":     "Catalan",
	"cs":     "Czech",
	"da":     "Danish",
	"de":     "German",
	"el":     "Greek",
	"en":     "English",
	"eo":     "Esperanto",
	"es":     "Spanish",
	"fa":     "Persian",
	"fi":     "Finnish",
	"fr":     "French",
	"he":     "Hebrew",
	"hi":     "Hindi",
	"hu":     "Hungarian",
	"id":     "Indonesian",
	"it":     "Italian",
	"ja":     "Japanese",
	"ko":     "Korean",
	"la":     "Latin",
	"nl":     "Dutch",
	"no":     "Norwegian",
	"pl":     "Polish",
	"pt":     "Portuguese",
	"ro":     "Romanian",
	"ru":     "Russian",
	"simple": "Simple English",
	"sk":     "Slovak",
	"sr":     "Serbian",
	"sv":     "Swedish",
	"tr":     "Turkish",
	"uk":     "Ukrainian",
	"vi":     "Vietnamese",
	"zh":     "Chinese",
}

// ParseLanguage validates a language code.
func ParseLanguage(s string) (Language, error) {
	lang := Language(strings.ToLower(strings.TrimSpace(s)))
	if _, ok := knownLanguages[lang]; !ok {
		return "", fmt.Errorf("unrecognized language code %q", s)
	}
	return lang, nil
}

// ParseLanguages parses a comma-separated list of language codes.  Duplicates
// are dropped and input order is preserved.
func ParseLanguages(s string) ([]Language, error) {
	langs := []Language{}
	for _, piece := range strings.Split(s, ",") {
		if strings.TrimSpace(piece) == "" {
			continue
		}
		lang, err := ParseLanguage(piece)
		if err != nil {
			return nil, err
		}
		langs = append(langs, lang)
	}
	return unique.Slice(langs), nil
}

// IsInterlanguagePrefix reports whether a link prefix such as "de" in
// [[de:Berlin]] or "wikt" in [[wikt:run]] names another language edition or
// a sister project.  This is wider than the set of loadable editions.
func IsInterlanguagePrefix(prefix string) bool {
	_, ok := interwikiPrefixes[strings.ToLower(strings.TrimSpace(prefix))]
	return ok
}

// LanguageFromDumpName derives the language from a dump file name following
// the "<code>wiki-<date>-..." convention, e.g. "enwiki-20240101-pages-articles.xml.bz2".
func LanguageFromDumpName(name string) (Language, error) {
	if i := strings.LastIndexAny(name, `/\`); i >= 0 {
		name = name[i+1:]
	}
	i := strings.Index(name, "wiki-")
	if i <= 0 {
		return "", fmt.Errorf("dump file name %q does not match <lang>wiki-<date>", name)
	}
	return ParseLanguage(name[:i])
}

// Name returns the English name of the language edition.
func (lang Language) Name() string {
	return knownLanguages[lang]
}

func (lang Language) String() string {
	return string(lang)
}
