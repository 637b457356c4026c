package contracts

type ITokenManagement interface {
	EstimateTokens(text string) int
	FitToBudget(entries []string, budget int) ([]string, bool)
	UsedTokens(tokens int)
	DisplayTokens(label string)
	GetCurrentTokenUsage() int
	ClearToken()
}
