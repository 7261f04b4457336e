package rpc

import "errors"

// ErrAccountNotFound is returned when getAccountInfo has a null value
var ErrAccountNotFound = errors.New("account not found")

// RPCError represents a JSON-RPC error response
type RPCError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

func (e *RPCError) Error() string {
	return e.Message
}

// ResponseContext carries the slot a response was read at
type ResponseContext struct {
	Slot uint64 `json:"slot"`
}

// AccountInfo is the value of a getAccountInfo response.
// Data is the [payload, encoding] pair.
type AccountInfo struct {
	Data       []string `json:"data"`
	Executable bool     `json:"executable"`
	Lamports   uint64   `json:"lamports"`
	Owner      string   `json:"owner"`
}

// AccountInfoResponse is the response from getAccountInfo
type AccountInfoResponse struct {
	Result struct {
		Context ResponseContext `json:"context"`
		Value   *AccountInfo    `json:"value"`
	} `json:"result"`
	Error *RPCError `json:"error"`
}

// TokenAmount represents token balance information
type TokenAmount struct {
	Amount         string   `json:"amount"`
	Decimals       uint8    `json:"decimals"`
	UIAmount       *float64 `json:"uiAmount"`
	UIAmountString string   `json:"uiAmountString"`
}

// TokenBalanceResponse is the response from getTokenAccountBalance
type TokenBalanceResponse struct {
	Result struct {
		Context ResponseContext `json:"context"`
		Value   TokenAmount     `json:"value"`
	} `json:"result"`
	Error *RPCError `json:"error"`
}
