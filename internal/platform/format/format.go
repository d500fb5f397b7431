// Package format renders numbers for reports and chat messages.
package format

import (
	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

var printer = message.NewPrinter(language.English)

// Money formats v with two decimals and thousands separators, e.g. "-1,234.50".
func Money(v float64) string {
	return printer.Sprintf("%.2f", v)
}
