package ledgerhttp

type ownerResponse struct {
	Owner string `json:"owner"`
}

type balanceResponse struct {
	Balance uint64 `json:"balance"`
}

type transferRequest struct {
	From string `json:"from"`
	To   string `json:"to"`
}

type paymentRequest struct {
	From   string `json:"from"`
	To     string `json:"to"`
	Amount uint64 `json:"amount"`
}

type errorResponse struct {
	Error string `json:"error"`
}
