// Package render serializes a validated outcome.Map into the external
// formats a deployment actually consumes: a sourceable env-var script, a
// Java-style key=value properties file, and an XML property document.
//
// Every serializer here is a pure function of outcome.Map — it does not
// re-run validation and does not know about schema, role, or version. It
// skips any entry marked Hidden and skips any entry whose Kind is Error,
// since an erroring property has no usable effective value to emit.
package render

import (
	"fmt"
	"sort"
	"strings"

	"github.com/beevik/etree"

	"github.com/platinummonkey/propconf/pkg/outcome"
)

// emittable reports whether an entry should appear in rendered output.
func emittable(o outcome.Outcome) bool {
	return !o.Hidden && o.Kind != outcome.Error
}

// EnvScript renders m as a POSIX-shell-sourceable script of NAME=value
// lines, one per emittable entry, in the map's insertion order.
func EnvScript(m *outcome.Map) string {
	var b strings.Builder
	for _, e := range m.Entries() {
		if !emittable(e.Outcome) {
			continue
		}
		fmt.Fprintf(&b, "%s=%s\n", e.Name, shellQuote(e.Outcome.Value))
	}
	return b.String()
}

func shellQuote(v string) string {
	if v == "" {
		return "''"
	}
	return "'" + strings.ReplaceAll(v, "'", `'\''`) + "'"
}

// Properties renders m as a Java-style key=value properties file, escaping
// '=', ':', '#', '!', '\\' and the newline, carriage-return and tab
// characters in both key and value per the java.util.Properties text format.
func Properties(m *outcome.Map) string {
	var b strings.Builder
	for _, e := range m.Entries() {
		if !emittable(e.Outcome) {
			continue
		}
		fmt.Fprintf(&b, "%s=%s\n", escapeProperty(e.Name), escapeProperty(e.Outcome.Value))
	}
	return b.String()
}

func escapeProperty(s string) string {
	var b strings.Builder
	for _, r := range s {
		switch r {
		case '=', ':', '#', '!', '\\':
			b.WriteByte('\\')
			b.WriteRune(r)
		case '\n':
			b.WriteString(`\n`)
		case '\r':
			b.WriteString(`\r`)
		case '\t':
			b.WriteString(`\t`)
		default:
			b.WriteRune(r)
		}
	}
	return b.String()
}

// XMLDocument renders m as an XML property document with a deterministic
// <properties><property name="..." value="..."/></properties> shape, built
// with etree rather than struct-tag marshaling so that attribute ordering
// and escaping match the hand-built documents the corpus round-trips
// against.
func XMLDocument(m *outcome.Map) string {
	doc := etree.NewDocument()
	doc.CreateProcInst("xml", `version="1.0" encoding="UTF-8"`)
	root := doc.CreateElement("properties")

	entries := m.Entries()
	sorted := make([]outcome.Entry, len(entries))
	copy(sorted, entries)
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].Name < sorted[j].Name })

	for _, e := range sorted {
		if !emittable(e.Outcome) {
			continue
		}
		el := root.CreateElement("property")
		el.CreateAttr("name", e.Name)
		el.CreateAttr("value", e.Outcome.Value)
	}

	doc.Indent(2)
	out, err := doc.WriteToString()
	if err != nil {
		// etree only fails to serialize on writer errors; WriteToString
		// writes to an in-memory buffer, so this cannot happen in practice.
		return ""
	}
	return out
}
