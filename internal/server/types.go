package server

// ErrorResponse is the standard error payload for every endpoint,
// including 404s produced by the custom error handler.
type ErrorResponse struct {
	Error   string `json:"error"`
	Code    int    `json:"code"`
	Details any    `json:"details,omitempty"` // dev mode only
}

// HealthResponse reports service liveness.
type HealthResponse struct {
	OK bool `json:"ok"`
}

// SignalRequest reports a suspicious token. Severity may be omitted when
// Text is given; the classifier will grade it.
type SignalRequest struct {
	Mint     string `json:"mint"`
	Source   string `json:"source"`   // "social" or "onchain-origin"
	Severity string `json:"severity"` // low|medium|high, optional with text
	Reason   string `json:"reason"`
	Text     string `json:"text"` // free-form report for the classifier
}

// SignalResponse echoes back the signal as it was recorded.
type SignalResponse struct {
	Mint     string `json:"mint"`
	Source   string `json:"source"`
	Severity string `json:"severity"`
	Reason   string `json:"reason"`
}

// DenyUpsertRequest adds an address to the deny list.
type DenyUpsertRequest struct {
	Address string `json:"address"`
	Reason  string `json:"reason"`
}
