package rpc

// RPCError is the error object of a JSON-RPC response.
type RPCError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

func (e *RPCError) Error() string {
	return e.Message
}

// SignatureInfo is one entry from getSignaturesForAddress, newest first.
type SignatureInfo struct {
	Signature string      `json:"signature"`
	Slot      int64       `json:"slot"`
	Err       interface{} `json:"err"`
	BlockTime int64       `json:"blockTime"`
}

// SignaturesResponse is the response from getSignaturesForAddress.
type SignaturesResponse struct {
	Result []SignatureInfo `json:"result"`
	Error  *RPCError       `json:"error"`
}

// AccountKey is an account referenced by a parsed transaction. The fee
// payer leads the list.
type AccountKey struct {
	Pubkey string `json:"pubkey"`
}

// TransactionMessage carries the account list of a parsed transaction.
type TransactionMessage struct {
	AccountKeys []AccountKey `json:"accountKeys"`
}

// Transaction is the parsed transaction body.
type Transaction struct {
	Message TransactionMessage `json:"message"`
}

// TransactionResult wraps a fetched transaction.
type TransactionResult struct {
	Transaction *Transaction `json:"transaction"`
}

// TransactionResponse is the response from getTransaction.
type TransactionResponse struct {
	Result *TransactionResult `json:"result"`
	Error  *RPCError          `json:"error"`
}

// SignatureStatus is one entry from getSignatureStatuses. A nil entry in
// the RPC response means the node has not seen the signature yet.
type SignatureStatus struct {
	Slot               uint64      `json:"slot"`
	Confirmations      *int        `json:"confirmations"`
	Err                interface{} `json:"err"`
	ConfirmationStatus string      `json:"confirmationStatus"`
}

// TokenSupply is the value of a getTokenSupply response.
type TokenSupply struct {
	Amount         string `json:"amount"`
	Decimals       uint8  `json:"decimals"`
	UIAmountString string `json:"uiAmountString"`
}

type sendTransactionResponse struct {
	Result string    `json:"result"`
	Error  *RPCError `json:"error"`
}

type signatureStatusesResponse struct {
	Result struct {
		Value []*SignatureStatus `json:"value"`
	} `json:"result"`
	Error *RPCError `json:"error"`
}

type balanceResponse struct {
	Result struct {
		Value uint64 `json:"value"` // lamports
	} `json:"result"`
	Error *RPCError `json:"error"`
}

type tokenSupplyResponse struct {
	Result struct {
		Value TokenSupply `json:"value"`
	} `json:"result"`
	Error *RPCError `json:"error"`
}
