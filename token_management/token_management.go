package token_management

import (
	"fmt"
	"os"
	"unicode/utf8"

	"github.com/meysamhadeli/scriptindex/constants/lipgloss"
	"github.com/meysamhadeli/scriptindex/token_management/contracts"
)

// charsPerToken is the usual ratio of source text to model tokens.
const charsPerToken = 4

// TokenManager implementation
type tokenManager struct {
	usedToken int
}

// NewTokenManager creates a new token manager
func NewTokenManager() contracts.ITokenManagement {
	return &tokenManager{}
}

// EstimateTokens approximates the token count of text, rounding up.
func (tm *tokenManager) EstimateTokens(text string) int {
	chars := utf8.RuneCountInString(text)
	if chars == 0 {
		return 0
	}
	return (chars + charsPerToken - 1) / charsPerToken
}

// FitToBudget returns the longest prefix of entries whose joined text stays
// within budget tokens, and whether anything was dropped. A budget <= 0
// keeps everything.
func (tm *tokenManager) FitToBudget(entries []string, budget int) ([]string, bool) {
	if budget <= 0 {
		return entries, false
	}

	chars := 0
	for i, entry := range entries {
		next := chars + utf8.RuneCountInString(entry)
		if i > 0 {
			next++ // newline separator
		}
		if (next+charsPerToken-1)/charsPerToken > budget {
			return entries[:i], true
		}
		chars = next
	}
	return entries, false
}

// UsedTokens accumulates the token count for the session.
func (tm *tokenManager) UsedTokens(tokens int) {
	tm.usedToken += tokens
}

func (tm *tokenManager) DisplayTokens(label string) {
	tokenInfo := fmt.Sprintf("Estimated Tokens: %d - %s", tm.usedToken, label)
	fmt.Fprintln(os.Stderr, lipgloss.BoxStyle.Render(tokenInfo))
}

func (tm *tokenManager) GetCurrentTokenUsage() int {
	return tm.usedToken
}

func (tm *tokenManager) ClearToken() {
	tm.usedToken = 0
}
