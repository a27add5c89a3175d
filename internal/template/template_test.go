package template

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRenderNoPlaceholders(t *testing.T) {
	v := FromString(`{"fixed": "value", "n": 3}`)
	out, err := Render("body", v, Params{})
	require.NoError(t, err)

	m, ok := out.(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "value", m["fixed"])
	assert.Equal(t, float64(3), m["n"])
}

func TestRenderSubstitutesQuotedPlaceholder(t *testing.T) {
	v := FromString(`{"u": "{product_link}"}`)
	out, err := Render("body", v, Params{"product_link": "http://x"})
	require.NoError(t, err)

	m := out.(map[string]any)
	assert.Equal(t, "http://x", m["u"])
}

func TestRenderRawTokenOutsideQuotes(t *testing.T) {
	// Placeholder outside string quotes: the raw text is not valid JSON until
	// a numeric value is substituted in.
	v := FromString(`{"stock": {stock}}`)
	out, err := Render("body", v, Params{"stock": 42})
	require.NoError(t, err)

	m := out.(map[string]any)
	assert.Equal(t, float64(42), m["stock"])
}

func TestRenderMissingParamLeftUntouched(t *testing.T) {
	v := FromString(`{"u": "{unknown}"}`)
	out, err := Render("body", v, Params{"title": "T"})
	require.NoError(t, err)

	m := out.(map[string]any)
	assert.Equal(t, "{unknown}", m["u"])
}

func TestRenderNilParamSubstitutesEmpty(t *testing.T) {
	v := FromString(`{"t": "{title}"}`)
	out, err := Render("body", v, Params{"title": nil})
	require.NoError(t, err)

	m := out.(map[string]any)
	assert.Equal(t, "", m["t"])
}

func TestRenderQuoteBearingValueCorruptsDocument(t *testing.T) {
	// Substitution is literal text replacement before the parse, so a value
	// carrying a quote breaks the document instead of being escaped. The
	// render must fail; the caller drops the field with a warning.
	v := FromString(`{"u": "{product_link}"}`)
	_, err := Render("body", v, Params{"product_link": `a"b`})
	require.Error(t, err)

	var re *RenderError
	require.ErrorAs(t, err, &re)
	assert.Equal(t, "body", re.Template)
}

func TestRenderParseFailureCarriesTemplateName(t *testing.T) {
	v := FromString(`not json at all`)
	_, err := Render("header", v, Params{})
	require.Error(t, err)

	var re *RenderError
	require.ErrorAs(t, err, &re)
	assert.Equal(t, "header", re.Template)
}

func TestRenderNestedStructure(t *testing.T) {
	v := FromJSON(map[string]any{
		"linkData": []any{map[string]any{"name": "{title}"}},
	})
	out, err := Render("body", v, Params{"title": "Lamp"})
	require.NoError(t, err)

	m := out.(map[string]any)
	entry := m["linkData"].([]any)[0].(map[string]any)
	assert.Equal(t, "Lamp", entry["name"])
}

func TestResolveLinkDataInjectsNumIID(t *testing.T) {
	v := FromString(`{"some_field": "val", "linkData": [{"url": "{url}", "num_iid": ""}]}`)
	out, err := Render("body", v, Params{"title": "T"})
	require.NoError(t, err)

	out = ResolveLinkData(out, "http://test.com/?id=123")
	entry := out.(map[string]any)["linkData"].([]any)[0].(map[string]any)
	assert.Equal(t, "http://test.com/?id=123", entry["url"])
	assert.Equal(t, "123", entry["num_iid"])
}

func TestResolveLinkDataNoIDParam(t *testing.T) {
	v := FromString(`{"linkData": [{"url": "{url}", "num_iid": ""}]}`)
	out, err := Render("body", v, Params{})
	require.NoError(t, err)

	out = ResolveLinkData(out, "http://test.com/noid")
	entry := out.(map[string]any)["linkData"].([]any)[0].(map[string]any)
	assert.Equal(t, "", entry["num_iid"])
}

func TestResolveLinkDataIgnoresOtherShapes(t *testing.T) {
	v := FromString(`{"foo": "bar"}`)
	out, err := Render("body", v, Params{})
	require.NoError(t, err)

	out = ResolveLinkData(out, "http://test.com/?id=9")
	m := out.(map[string]any)
	assert.Equal(t, "bar", m["foo"])
	assert.NotContains(t, m, "linkData")
}

func TestExtractNumIID(t *testing.T) {
	assert.Equal(t, "123", ExtractNumIID("http://x/?id=123&spm=a"))
	assert.Equal(t, "123", ExtractNumIID("http://x/?id=123"))
	assert.Equal(t, "", ExtractNumIID("http://x/plain"))
	assert.Equal(t, "", ExtractNumIID("http://x/?id="))
}
