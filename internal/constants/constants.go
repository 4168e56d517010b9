package constants

// WSOLMint is the wrapped SOL mint, the quote side of every pool the bot
// trades.
const WSOLMint = "So11111111111111111111111111111111111111112"

// LamportsPerSOL converts between SOL and raw lamports.
const LamportsPerSOL = 1_000_000_000

// AMM program addresses for the venues the bot trades on.
var ProgramAddresses = map[string]string{
	"RaydiumV4":   "675kPX9MHTjS2zt1qfr1NYHuzeLXfQM9H24wFSUt1Mp8",
	"RaydiumCpmm": "CPMMoo8L3F4NbTegBCKVNunggL7H1ZpdTHKxQB5qKP1C",
	"PumpFun":     "6EF8rrecthR5Dkzon8Nwu78hRvfCKubJ14M5uBEwF6P",
	"PumpSwap":    "pAMMBay6oceH9fJKBRHGP5D4bD4sWpmSwMn52FMfXEA",
}

// IsAMMProgram reports whether addr is one of the known AMM programs.
func IsAMMProgram(addr string) bool {
	for _, p := range ProgramAddresses {
		if p == addr {
			return true
		}
	}
	return false
}
