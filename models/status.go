package models

import "strings"

// Procedural and case status literals used across the application
const (
	StatusInInvestigation = "En investigación"
	StatusProsecuted      = "Procesado"
	StatusSentToTrial     = "Elevado a juicio"
	StatusOnTrial         = "En juicio"
	StatusConvicted       = "Condenado"
	StatusAcquitted       = "Absuelto"
	StatusDismissed       = "Sobreseído"
	StatusArchived        = "Archivado"

	// StatusOther is the bucket for rows without a status
	StatusOther = "Otros"
)

// DefaultStatusColor is used for any literal outside the known set
const DefaultStatusColor = "#9CA3AF"

var statusColors = map[string]string{
	StatusInInvestigation: "#F59E0B",
	StatusProsecuted:      "#F97316",
	StatusSentToTrial:     "#8B5CF6",
	StatusOnTrial:         "#3B82F6",
	StatusConvicted:       "#10B981",
	StatusAcquitted:       "#EF4444",
	StatusDismissed:       "#EC4899",
	StatusArchived:        "#4B5563",
}

// StatusColor maps a status literal to its palette color. Unknown literals,
// including the empty string, get the default gray.
func StatusColor(status string) string {
	if c, ok := statusColors[status]; ok {
		return c
	}
	return DefaultStatusColor
}

// Fallback strings substituted when a related row is missing
const (
	FallbackUnspecified = "No especificado"
	FallbackNoName      = "Sin nombre"
	FallbackFamily      = "Familiar"
)

func trimSpace(s string) string {
	return strings.TrimSpace(s)
}
