package models

// Requests for the HTTP endpoints. Defined in domain for consistency and reuse.

type AnalyzeRequest struct {
	Symbol string `form:"symbol" json:"symbol" validate:"omitempty,max=20,printascii,excludesall=/"`
}

type SymbolRequest struct {
	Symbol string `param:"symbol" json:"symbol" validate:"required,max=20,printascii,excludesall=/"`
}

type NewsRequest struct {
	Symbol string `param:"symbol" json:"symbol" validate:"required,max=20,printascii,excludesall=/"`
	Limit  int    `query:"limit" json:"limit" default:"5" validate:"gte=1,lte=20"`
}

// FundamentalsRefreshRequest is the message exchanged with the refresh collaborator.
type FundamentalsRefreshRequest struct {
	Symbol      string `json:"symbol"`
	RequestedAt int64  `json:"requestedAt"`
}
