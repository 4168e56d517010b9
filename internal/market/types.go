package market

// Pair is one trading pair as reported by the pairs API. Numeric fields
// arrive as strings and are parsed on demand.
type Pair struct {
	ChainID       string    `json:"chainId"`
	DexID         string    `json:"dexId"`
	PairAddress   string    `json:"pairAddress"`
	BaseToken     TokenRef  `json:"baseToken"`
	QuoteToken    TokenRef  `json:"quoteToken"`
	PriceNative   string    `json:"priceNative"`
	PriceUsd      string    `json:"priceUsd"`
	Liquidity     Liquidity `json:"liquidity"`
	PairCreatedAt int64     `json:"pairCreatedAt"`
}

type TokenRef struct {
	Address string `json:"address"`
	Name    string `json:"name"`
	Symbol  string `json:"symbol"`
}

type Liquidity struct {
	USD   float64 `json:"usd"`
	Base  float64 `json:"base"`  // token-side reserve, UI units
	Quote float64 `json:"quote"` // SOL-side reserve, UI units
}
