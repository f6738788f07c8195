// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package main

import (
	"fmt"
	"io"

	"github.com/taibuivan/legacyvault/internal/platform/apperr"
)

/*
renderError prints err the way the user should react to it.

Only the user-facing message is shown; causes stay in the logs.
*/
func renderError(out io.Writer, err error) {
	appErr := apperr.As(err)
	if appErr == nil {
		fmt.Fprintln(out, "Error:", err)
		return
	}

	switch appErr.Kind {
	case apperr.KindValidation:
		fmt.Fprintln(out, "Error:", appErr.Message)
		for _, detail := range appErr.Details {
			fmt.Fprintf(out, "  - %s: %s\n", detail.Field, detail.Message)
		}

	case apperr.KindNetwork:
		fmt.Fprintln(out, "Error:", appErr.Message)
		fmt.Fprintln(out, "Check VAULT_API_BASE_URL and retry.")

	case apperr.KindServer:
		fmt.Fprintln(out, "Error:", appErr.Message)
		fmt.Fprintln(out, "The vault service is having trouble. Please try again later.")

	default:
		fmt.Fprintln(out, "Error:", appErr.Message)
	}
}
