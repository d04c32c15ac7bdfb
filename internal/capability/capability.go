// Package capability derives the install variant from the operator's
// per-device capability selection.
package capability

import "errors"

// ErrNoSelection means neither printer nor scanner was selected. The
// orchestrator must abort before any network call is made.
var ErrNoSelection = errors.New("no capability selected")

// Variant is the capability combination being provisioned.
type Variant string

const (
	VariantPrinter Variant = "printer"
	VariantScanner Variant = "scanner"
	VariantAll     Variant = "all"
)

// Selection mirrors the checkbox state of a device row at click time.
// It is recomputed on every install attempt, never persisted.
type Selection struct {
	Printer bool `json:"printer"`
	Scanner bool `json:"scanner"`
}

// Select maps a selection to its variant. A device row without a scanner
// checkbox reports scanner=false and is handled identically to an
// unchecked box.
func Select(printer, scanner bool) (Variant, error) {
	switch {
	case printer && scanner:
		return VariantAll, nil
	case printer:
		return VariantPrinter, nil
	case scanner:
		return VariantScanner, nil
	default:
		return "", ErrNoSelection
	}
}
