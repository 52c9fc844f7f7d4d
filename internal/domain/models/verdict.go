package models

// Action is the trade recommendation of a verdict.
type Action string

const (
	ActionBuy  Action = "BUY"
	ActionSell Action = "SELL"
	ActionHold Action = "HOLD"
)

// Verdict is the output of one fusion evaluation. It is never persisted.
type Verdict struct {
	Action     Action   `json:"action"`
	Reason     string   `json:"reason"`
	Trend      Trend    `json:"trend"`
	Confidence float64  `json:"confidence"`
	RSI        *float64 `json:"rsi"`
	Volatility *float64 `json:"volatility"`
}

// Analysis is the verdict decorated with request context and best-effort headlines.
type Analysis struct {
	Verdict
	Symbol string        `json:"symbol,omitempty"`
	News   []NewsArticle `json:"news"`
}
