// Package locale names gettext locale codes (pt_BR, sr@latin) in English.
package locale

import (
	"sort"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
	"golang.org/x/text/language/display"
)

// gettext modifiers that select a script.
var modifierScripts = map[string]string{
	"latin":      "Latn",
	"cyrillic":   "Cyrl",
	"devanagari": "Deva",
	"arabic":     "Arab",
}

// Name returns the English name of a gettext locale code, e.g.
// "Portuguese (Brazil)" for pt_BR. It returns false if the code cannot be
// named.
func Name(code string) (string, bool) {
	lang, modifier, _ := strings.Cut(strings.TrimSpace(code), "@")
	if lang == "" {
		return "", false
	}
	lang, _, _ = strings.Cut(lang, ".") // strip a codeset, as in de_DE.UTF-8

	parts := strings.Split(strings.ReplaceAll(lang, "_", "-"), "-")
	var qualifiers []string
	if modifier != "" {
		if script, ok := modifierScripts[strings.ToLower(modifier)]; ok {
			parts = append([]string{parts[0], script}, parts[1:]...)
		} else {
			qualifiers = append(qualifiers, cases.Title(language.English).String(modifier))
		}
	}

	tag, err := language.Parse(strings.Join(parts, "-"))
	if err != nil {
		return "", false
	}
	base, script, region := tag.Raw()
	if base.String() == "und" {
		return "", false
	}
	name := display.English.Languages().Name(base)
	if name == "" {
		return "", false
	}

	var named []string
	if script.String() != "Zzzz" {
		if s := display.English.Scripts().Name(script); s != "" {
			named = append(named, s)
		}
	}
	if region.String() != "ZZ" {
		if r := display.English.Regions().Name(region); r != "" {
			named = append(named, r)
		}
	}
	named = append(named, qualifiers...)
	if len(named) > 0 {
		name += " (" + strings.Join(named, ", ") + ")"
	}
	return name, true
}

// Mapped is the result of naming a set of locale codes.
type Mapped struct {
	// Names are the distinct English names, sorted.
	Names []string
	// Unmapped are the codes that could not be named, sorted.
	Unmapped []string
	// Authors maps each name and each unmapped code to its authors. Codes
	// sharing a name have their authors merged.
	Authors map[string][]string
}

// Map names every code in codes, carrying authors over from the code to its
// name.
func Map(codes []string, authors map[string][]string) *Mapped {
	names := make(map[string]map[string]bool)
	m := &Mapped{Authors: make(map[string][]string)}
	for _, code := range codes {
		name, ok := Name(code)
		if !ok {
			m.Unmapped = append(m.Unmapped, code)
			if a := authors[code]; len(a) > 0 {
				m.Authors[code] = a
			}
			continue
		}
		set, ok := names[name]
		if !ok {
			set = make(map[string]bool)
			names[name] = set
		}
		for _, a := range authors[code] {
			set[a] = true
		}
	}

	for name, set := range names {
		m.Names = append(m.Names, name)
		if len(set) == 0 {
			continue
		}
		list := make([]string, 0, len(set))
		for a := range set {
			list = append(list, a)
		}
		sort.Strings(list)
		m.Authors[name] = list
	}
	sort.Strings(m.Names)
	sort.Strings(m.Unmapped)
	return m
}
