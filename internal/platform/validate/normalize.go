// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package validate

import (
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/unicode/norm"
)

// NormalizeIdentifier trims surrounding whitespace and converts s to NFC, so
// visually identical usernames typed on different keyboards compare equal.
func NormalizeIdentifier(s string) string {
	return norm.NFC.String(strings.TrimSpace(s))
}

// NormalizeEmail trims, NFC-normalizes and case-folds an email address.
//
// A [cases.Caser] is stateful, so a fresh one is built per call.
func NormalizeEmail(s string) string {
	return cases.Fold().String(NormalizeIdentifier(s))
}
