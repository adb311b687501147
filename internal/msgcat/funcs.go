package msgcat

import (
	"fmt"
	"strings"
	"text/template"
)

func defaultFuncs() template.FuncMap {
	return template.FuncMap{
		"pawns": pawns,
		"title": title,
		"pad":   pad,
	}
}

// pawns renders centipawns as a signed pawn value, e.g. 270 -> "+2.70".
func pawns(cp int) string {
	sign := "+"
	if cp < 0 {
		sign = "-"
		cp = -cp
	}
	return fmt.Sprintf("%s%d.%02d", sign, cp/100, cp%100)
}

func title(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}

func pad(width int, s string) string {
	if len(s) >= width {
		return s
	}
	return s + strings.Repeat(" ", width-len(s))
}
