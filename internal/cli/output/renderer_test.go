package output

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newBufferRenderer(mode Mode) (*Renderer, *bytes.Buffer, *bytes.Buffer) {
	var out, errOut bytes.Buffer
	return NewRenderer(&out, &errOut, mode), &out, &errOut
}

func TestParseMode(t *testing.T) {
	tests := []struct {
		in      string
		want    Mode
		wantErr bool
	}{
		{in: "", want: ModeAuto},
		{in: "auto", want: ModeAuto},
		{in: "text", want: ModeText},
		{in: "markdown", want: ModeMarkdown},
		{in: "md", want: ModeMarkdown},
		{in: "json", want: ModeJSON},
		{in: "xml", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseMode(tt.in)
			if tt.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestRenderer_EffectiveMode(t *testing.T) {
	r, _, _ := newBufferRenderer(ModeAuto)
	assert.False(t, r.IsTTY())
	assert.Equal(t, ModeMarkdown, r.EffectiveMode(), "non-TTY auto resolves to markdown")

	r, _, _ = newBufferRenderer(ModeJSON)
	assert.Equal(t, ModeJSON, r.EffectiveMode())
}

func TestRenderer_PlainOutputHasNoEscapes(t *testing.T) {
	r, out, errOut := newBufferRenderer(ModeText)

	r.Success("imported 3 rows")
	r.StatusLine("email", "success", "→ Email")
	r.Warning("2 required fields missing")

	assert.NotContains(t, out.String(), "\x1b[")
	assert.Contains(t, out.String(), "✓ imported 3 rows")
	assert.Contains(t, out.String(), "email")
	assert.Contains(t, errOut.String(), "2 required fields missing")
}

func TestRenderer_HeaderMarkdown(t *testing.T) {
	r, out, _ := newBufferRenderer(ModeMarkdown)
	r.Header(2, "Columns")
	assert.Equal(t, "## Columns\n\n", out.String())
}

func TestRenderer_Table(t *testing.T) {
	r, out, _ := newBufferRenderer(ModeMarkdown)
	r.Table([]string{"Column", "Field"}, [][]string{{"E-mail", "email"}})

	assert.Contains(t, out.String(), "| Column | Field |")
	assert.Contains(t, out.String(), "| E-mail | email |")

	r, out, _ = newBufferRenderer(ModeText)
	r.Table([]string{"Column", "Field"}, [][]string{{"E-mail", "email"}})
	assert.Contains(t, out.String(), "E-mail")
	assert.Contains(t, out.String(), "┌")
}

func TestRenderer_JSON(t *testing.T) {
	r, out, _ := newBufferRenderer(ModeJSON)
	require.NoError(t, r.JSON(FieldRef{ID: "email", Label: "Email"}))
	assert.JSONEq(t, `{"id":"email","label":"Email"}`, out.String())
}

func TestFormatHelpers(t *testing.T) {
	assert.Equal(t, "# Title", FormatHeader(1, "Title"))
	assert.Equal(t, "### Sub", FormatHeader(3, "Sub"))
	assert.Equal(t, "- **Rows**: 12", FormatKeyValue("Rows", "12"))
	assert.Equal(t, "```yaml\nname: x\n```", FormatCodeBlock("yaml", "name: x\n"))
	assert.Equal(t, "- a\n- b", FormatList([]string{"a", "b"}))

	assert.Equal(t, "hello", Truncate("hello", 10))
	assert.Equal(t, "hel…", Truncate("hello", 4))
	assert.Equal(t, "…", Truncate("hello", 1))
}

func TestNewRendererWithTTY_AutoIsText(t *testing.T) {
	var out, errOut bytes.Buffer
	r := NewRendererWithTTY(&out, &errOut, true, ModeAuto)
	assert.True(t, r.IsTTY())
	assert.Equal(t, ModeText, r.EffectiveMode())
}
