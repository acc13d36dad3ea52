package main

import (
	"fmt"
	"html/template"
	"time"
)

func templateFuncs() template.FuncMap {
	return template.FuncMap{
		"formatDate":    formatDate,
		"formatMinutes": formatMinutes,
		"hasThumbnail":  hasThumbnail,
	}
}

func formatDate(t time.Time) string {
	return t.Format("2006-01-02")
}

// formatMinutes renders a play length like "2h 14min"; lengths under an
// hour render as plain minutes.
func formatMinutes(minutes int) string {
	if minutes < 60 {
		return fmt.Sprintf("%dmin", minutes)
	}
	if minutes%60 == 0 {
		return fmt.Sprintf("%dh", minutes/60)
	}
	return fmt.Sprintf("%dh %dmin", minutes/60, minutes%60)
}

func hasThumbnail(g GameSummary) bool {
	return g.Thumbnail != ""
}
