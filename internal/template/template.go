// Package template implements placeholder substitution for request config
// body and header templates.  A template is either a raw string containing
// `{name}` placeholders or an already parsed JSON tree; both are represented
// by the Value variant type so callers never need to duck-type the payload.
//
// Substitution into raw string templates is literal text replacement performed
// BEFORE the JSON parse.  A parameter value containing quotes or braces can
// therefore corrupt the resulting document.  That is intentional: stored
// templates rely on raw tokens outside of string quotes (e.g. numeric
// substitution), so a string-aware replacement would change their meaning.
// Any stricter substitution strategy must be introduced behind this package's
// API, not at the call sites.
package template

import (
    "encoding/json"
    "fmt"
    "strings"
)

// Params maps placeholder names to substitution values.  Values are
// stringified with fmt.Sprint; a nil value substitutes as the empty string.
type Params map[string]any

// kind discriminates the two template representations.
type kind int

const (
    kindString kind = iota // raw text, possibly containing placeholders
    kindJSON               // parsed JSON tree
)

// Value is a tagged variant holding either a raw string template or a parsed
// JSON tree.  Use FromString for stored template text.
type Value struct {
    k    kind
    raw  string
    tree any
}

// FromString builds a Value holding stored template text.  The text always
// renders on the literal path — substitute first, parse second — even when
// it happens to parse as JSON on its own.  Routing such text through a
// pre-parsed tree instead would make substitution string-aware and quietly
// escape values that are supposed to corrupt the document (see the package
// comment).
func FromString(raw string) Value { return Value{k: kindString, raw: raw} }

// FromJSON builds a Value holding an already parsed JSON tree.  Only for
// inputs that are genuinely structured, never for stored template text.
func FromJSON(tree any) Value { return Value{k: kindJSON, tree: tree} }

// IsZero reports whether the Value holds no template at all.
func (v Value) IsZero() bool { return v.k == kindString && v.raw == "" }

// RenderError reports that a template failed to substitute or parse.  The
// Template field carries the offending template's name ("body", "header")
// so callers can log which field was dropped.
type RenderError struct {
    Template string
    Err      error
}

func (e *RenderError) Error() string {
    return fmt.Sprintf("render template %q: %v", e.Template, e.Err)
}

func (e *RenderError) Unwrap() error { return e.Err }

// Render substitutes params into the template and returns the resulting JSON
// tree.  String variants are substituted as literal text and then parsed; a
// parse failure yields a *RenderError carrying name.  JSON variants are
// walked and substitution applied to every string leaf.  Placeholders whose
// name is absent from params are left untouched.
func Render(name string, v Value, p Params) (any, error) {
    switch v.k {
    case kindJSON:
        return substituteTree(v.tree, p), nil
    default:
        s := substituteText(v.raw, p)
        var out any
        if err := json.Unmarshal([]byte(s), &out); err != nil {
            return nil, &RenderError{Template: name, Err: err}
        }
        return out, nil
    }
}

// substituteText replaces every `{name}` occurrence for names present in p.
func substituteText(s string, p Params) string {
    for k, val := range p {
        s = strings.ReplaceAll(s, "{"+k+"}", stringify(val))
    }
    return s
}

// substituteTree walks maps, slices and string leaves, substituting
// placeholders in strings.  Non-string scalars pass through unchanged.
func substituteTree(node any, p Params) any {
    switch t := node.(type) {
    case map[string]any:
        out := make(map[string]any, len(t))
        for k, v := range t {
            out[k] = substituteTree(v, p)
        }
        return out
    case []any:
        out := make([]any, len(t))
        for i, v := range t {
            out[i] = substituteTree(v, p)
        }
        return out
    case string:
        return substituteText(t, p)
    default:
        return t
    }
}

func stringify(v any) string {
    if v == nil {
        return ""
    }
    return fmt.Sprint(v)
}

// placeholderURL is the literal token that marks a linkData entry whose url
// must be filled from the listing's product link.
const placeholderURL = "{url}"

// ResolveLinkData handles the single-task payload shape: when the rendered
// tree contains a single-element `linkData` list whose object still carries
// the literal `{url}` placeholder, the product link is written into `url`
// and the `num_iid` field is filled from the link's `id=` query parameter.
// Anything that does not match the shape is returned unchanged.
func ResolveLinkData(rendered any, productLink string) any {
    m, ok := rendered.(map[string]any)
    if !ok {
        return rendered
    }
    list, ok := m["linkData"].([]any)
    if !ok || len(list) != 1 {
        return rendered
    }
    entry, ok := list[0].(map[string]any)
    if !ok {
        return rendered
    }
    if u, ok := entry["url"].(string); !ok || u != placeholderURL {
        return rendered
    }
    entry["url"] = productLink
    entry["num_iid"] = ExtractNumIID(productLink)
    return rendered
}

// ExtractNumIID scans a URL for an `id=` query parameter and returns its
// value up to the next `&` or the end of the string.  A URL without `id=`
// yields the empty string; that is not an error.
func ExtractNumIID(url string) string {
    i := strings.Index(url, "id=")
    if i < 0 {
        return ""
    }
    rest := url[i+len("id="):]
    if j := strings.IndexByte(rest, '&'); j >= 0 {
        return rest[:j]
    }
    return rest
}
