package sql

import (
	libinjection "github.com/corazawaf/libinjection-go"
)

// InjectionCheckResult describes a detected injection pattern in user
// input.
type InjectionCheckResult struct {
	IsSQLi      bool   // True if a SQL injection pattern was detected
	Fingerprint string // libinjection fingerprint of the pattern
	Input       string // The input that failed the check
}

// ScreenUserInput runs libinjection over free-text user input before it
// is embedded in a generation prompt. Natural-language questions do not
// trip the detector; injection payloads smuggled into the chat do.
//
// Returns nil when the input is clean.
func ScreenUserInput(input string) *InjectionCheckResult {
	isSQLi, fingerprint := libinjection.IsSQLi(input)
	if !isSQLi {
		return nil
	}
	return &InjectionCheckResult{
		IsSQLi:      true,
		Fingerprint: string(fingerprint),
		Input:       input,
	}
}
