package templates

import (
	"fmt"
	"html"
	"strings"
)

// Anniversary kinds
const (
	AnniversaryBirth = "birth"
	AnniversaryDeath = "death"
)

// AnniversaryEntry is one line of the daily anniversary digest
type AnniversaryEntry struct {
	VictimName string
	Kind       string // birth or death
	Date       string // YYYY-MM-DD
	Years      int
	CaseURL    string
}

// AnniversarySubject is the subject line of the digest for a day
func AnniversarySubject(day string, count int) string {
	if count == 1 {
		return fmt.Sprintf("Aniversarios del %s: 1 caso", day)
	}
	return fmt.Sprintf("Aniversarios del %s: %d casos", day, count)
}

// RenderAnniversaryEmail renders the digest as HTML and plain text
func RenderAnniversaryEmail(day string, entries []AnniversaryEntry) (htmlContent, plainText string) {
	var h, p strings.Builder
	h.WriteString("<p>Hoy se cumplen los siguientes aniversarios:</p><ul>")
	p.WriteString("Hoy se cumplen los siguientes aniversarios:\n\n")
	for _, e := range entries {
		line := describeAnniversary(e)
		h.WriteString("<li>")
		h.WriteString(html.EscapeString(line))
		if e.CaseURL != "" {
			fmt.Fprintf(&h, ` (<a href="%s">ver caso</a>)`, html.EscapeString(e.CaseURL))
		}
		h.WriteString("</li>")
		p.WriteString("- " + line)
		if e.CaseURL != "" {
			p.WriteString(" " + e.CaseURL)
		}
		p.WriteString("\n")
	}
	h.WriteString("</ul>")
	return renderLayout(AnniversarySubject(day, len(entries)), h.String()), p.String()
}

func describeAnniversary(e AnniversaryEntry) string {
	if e.Kind == AnniversaryDeath {
		if e.Years > 0 {
			return fmt.Sprintf("%s: %d años de su muerte (%s)", e.VictimName, e.Years, e.Date)
		}
		return fmt.Sprintf("%s: aniversario de su muerte (%s)", e.VictimName, e.Date)
	}
	if e.Years > 0 {
		return fmt.Sprintf("%s: hubiera cumplido %d años (%s)", e.VictimName, e.Years, e.Date)
	}
	return fmt.Sprintf("%s: cumpleaños (%s)", e.VictimName, e.Date)
}

// MagicLinkSubject is the subject of the login link email
const MagicLinkSubject = "Tu enlace de acceso"

// RenderMagicLinkEmail renders the passwordless login email
func RenderMagicLinkEmail(name, link string, validMinutes int) (htmlContent, plainText string) {
	greeting := "Hola"
	if name != "" {
		greeting = "Hola " + name
	}
	body := fmt.Sprintf(`<p>%s,</p>
      <p>Usá el siguiente botón para ingresar. El enlace vence en %d minutos y sirve una sola vez.</p>
      <p style="text-align:center"><a class="button" href="%s">Ingresar</a></p>
      <p>Si no pediste este enlace, ignorá este correo.</p>`,
		html.EscapeString(greeting), validMinutes, html.EscapeString(link))
	plainText = fmt.Sprintf("%s,\n\nIngresá con este enlace (vence en %d minutos, un solo uso):\n%s\n\nSi no pediste este enlace, ignorá este correo.\n",
		greeting, validMinutes, link)
	return renderLayout(MagicLinkSubject, body), plainText
}
