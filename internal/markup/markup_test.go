package markup

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/net/html"
)

const legacyPage = "<!DOCTYPE html PUBLIC \"-//W3C//DTD HTML 4.0 Transitional//EN\">\r\n" +
	"<html><head><meta http-equiv=\"Content-Type\" content=\"text/html; charset=windows-1252\">" +
	"<style>p { color: red }</style><title>PÖYTÄKIRJA</title></head>\r\n" +
	"<body bgcolor=\"white\"><!-- generated -->" +
	"<p class=\"Asiaotsikko\" style=\"margin:0\" align=\"left\">7\u00a0\u00a0Talous\u00adarvion muutos\r\n</p>" +
	"<a href=\"frmtxt7.htm\" target=\"_self\" onclick=\"go()\">linkki</a>" +
	"</body></html>"

func normalizedString(t *testing.T, src string) string {
	t.Helper()
	doc, err := Parse(strings.NewReader(src), UTF8)
	require.NoError(t, err)
	out, err := Render(doc)
	require.NoError(t, err)
	return string(out)
}

func TestParseRemovesNoise(t *testing.T) {
	t.Parallel()

	out := normalizedString(t, legacyPage)

	assert.NotContains(t, out, "<!--")
	assert.NotContains(t, out, "DOCTYPE")
	assert.NotContains(t, out, "<meta")
	assert.NotContains(t, out, "<style")
	assert.NotContains(t, out, "bgcolor")
	assert.NotContains(t, out, "onclick")
	assert.NotContains(t, out, "align=")
	assert.NotContains(t, out, "\r")
	assert.NotContains(t, out, "\u00a0")
	assert.NotContains(t, out, "\u00ad")
	assert.Contains(t, out, `<p class="Asiaotsikko">7 Talous arvion muutos`)
	assert.Contains(t, out, `<a href="frmtxt7.htm" target="_self">linkki</a>`)
}

func TestNormalizeIsIdempotent(t *testing.T) {
	t.Parallel()

	doc, err := html.Parse(strings.NewReader(legacyPage))
	require.NoError(t, err)
	Normalize(doc)
	once, err := Render(doc)
	require.NoError(t, err)

	Normalize(doc)
	twice, err := Render(doc)
	require.NoError(t, err)
	assert.Equal(t, string(once), string(twice))

	reparsed := normalizedString(t, string(once))
	assert.Equal(t, string(once), reparsed)
}

func TestDecodeLegacyEncodings(t *testing.T) {
	t.Parallel()

	// "Päätös" in windows-1252 / iso-8859-1.
	raw := []byte{'<', 'p', '>', 'P', 0xe4, 0xe4, 't', 0xf6, 's', '<', '/', 'p', '>'}

	for _, enc := range []Encoding{Windows1252, ISO88591} {
		doc, err := Parse(bytes.NewReader(raw), enc)
		require.NoError(t, err)
		out, err := Render(doc)
		require.NoError(t, err)
		assert.Contains(t, string(out), "<p>Päätös</p>", enc)
	}

	// 0x96 is an en dash in windows-1252 only.
	dash := []byte{'1', '8', '.', '0', '0', 0x96, '2', '0', '.', '0', '0'}
	r, err := Decode(bytes.NewReader(dash), Windows1252)
	require.NoError(t, err)
	var buf bytes.Buffer
	_, err = buf.ReadFrom(r)
	require.NoError(t, err)
	assert.Equal(t, "18.00–20.00", buf.String())
}

func TestDecodeRejectsUnknownEncoding(t *testing.T) {
	t.Parallel()

	_, err := Decode(strings.NewReader(""), Encoding("koi8-r"))
	require.Error(t, err)
}

func TestCleanText(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "a b", CleanText("a\r\u00a0\u00adb"))
	assert.Equal(t, "x y z", CleanText("x\u00a0y\u00a0\u00a0z"))
	assert.Equal(t, "plain", CleanText("plain"))
}
