package templates

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRenderGenericEmail_Escapes(t *testing.T) {
	out := RenderGenericEmail("Aviso <b>", "línea 1\n<script>x</script>")
	assert.Contains(t, out, "Aviso &lt;b&gt;")
	assert.Contains(t, out, "línea 1<br>&lt;script&gt;")
	assert.NotContains(t, out, "<script>")
}

func TestRenderAnniversaryEmail(t *testing.T) {
	htmlContent, text := RenderAnniversaryEmail("2024-03-15", []AnniversaryEntry{
		{VictimName: "Juan Pérez", Kind: AnniversaryDeath, Date: "2020-03-15", Years: 4, CaseURL: "https://app.example.org/casos/1"},
		{VictimName: "Ana <Gómez>", Kind: AnniversaryBirth, Date: "1990-03-15", Years: 34},
	})

	assert.Contains(t, htmlContent, "Aniversarios del 2024-03-15: 2 casos")
	assert.Contains(t, htmlContent, "Juan Pérez: 4 años de su muerte (2020-03-15)")
	assert.Contains(t, htmlContent, `href="https://app.example.org/casos/1"`)
	assert.Contains(t, htmlContent, "Ana &lt;Gómez&gt;: hubiera cumplido 34 años")
	assert.Equal(t, 2, strings.Count(text, "\n- "))
	assert.Contains(t, text, "- Juan Pérez: 4 años de su muerte (2020-03-15) https://app.example.org/casos/1\n")
}

func TestAnniversarySubject(t *testing.T) {
	assert.Equal(t, "Aniversarios del 2024-03-15: 1 caso", AnniversarySubject("2024-03-15", 1))
	assert.Equal(t, "Aniversarios del 2024-03-15: 3 casos", AnniversarySubject("2024-03-15", 3))
}

func TestRenderMagicLinkEmail(t *testing.T) {
	htmlContent, text := RenderMagicLinkEmail("Laura", "https://api.example.org/api/auth/callback?access_token=a&b", 15)

	assert.Contains(t, htmlContent, "Hola Laura")
	assert.Contains(t, htmlContent, `href="https://api.example.org/api/auth/callback?access_token=a&amp;b"`)
	assert.Contains(t, text, "vence en 15 minutos")
	assert.Contains(t, text, "access_token=a&b")
}
