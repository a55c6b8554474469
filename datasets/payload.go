package datasets

import (
	"encoding/json"
	"strings"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/shopspring/decimal"
)

// Raw JSON-RPC payload shapes. Quantities stay hexutil types until decode
// so nothing is truncated on the way in.

type rpcBlock struct {
	Number        *hexutil.Big      `json:"number"`
	Hash          common.Hash       `json:"hash"`
	ParentHash    common.Hash       `json:"parentHash"`
	Timestamp     hexutil.Uint64    `json:"timestamp"`
	Miner         common.Address    `json:"miner"`
	GasUsed       hexutil.Uint64    `json:"gasUsed"`
	GasLimit      hexutil.Uint64    `json:"gasLimit"`
	BaseFeePerGas *hexutil.Big      `json:"baseFeePerGas"`
	Difficulty    *hexutil.Big      `json:"difficulty"`
	Size          hexutil.Uint64    `json:"size"`
	ExtraData     hexutil.Bytes     `json:"extraData"`
	Transactions  []json.RawMessage `json:"transactions"`
}

type rpcTransaction struct {
	Hash             common.Hash     `json:"hash"`
	Nonce            hexutil.Uint64  `json:"nonce"`
	From             common.Address  `json:"from"`
	To               *common.Address `json:"to"`
	Value            *hexutil.Big    `json:"value"`
	Gas              hexutil.Uint64  `json:"gas"`
	GasPrice         *hexutil.Big    `json:"gasPrice"`
	Input            hexutil.Bytes   `json:"input"`
	Type             hexutil.Uint64  `json:"type"`
	TransactionIndex hexutil.Uint64  `json:"transactionIndex"`
}

type rpcReceipt struct {
	TransactionHash   common.Hash    `json:"transactionHash"`
	TransactionIndex  hexutil.Uint64 `json:"transactionIndex"`
	GasUsed           hexutil.Uint64 `json:"gasUsed"`
	Status            hexutil.Uint64 `json:"status"`
	EffectiveGasPrice *hexutil.Big   `json:"effectiveGasPrice"`
}

type rpcLog struct {
	Address          common.Address `json:"address"`
	Topics           []common.Hash  `json:"topics"`
	Data             hexutil.Bytes  `json:"data"`
	BlockNumber      hexutil.Uint64 `json:"blockNumber"`
	TransactionHash  common.Hash    `json:"transactionHash"`
	TransactionIndex hexutil.Uint64 `json:"transactionIndex"`
	LogIndex         hexutil.Uint64 `json:"logIndex"`
}

type rpcTraceAction struct {
	CallType      string          `json:"callType"`
	From          *common.Address `json:"from"`
	To            *common.Address `json:"to"`
	Gas           *hexutil.Uint64 `json:"gas"`
	Input         *hexutil.Bytes  `json:"input"`
	Init          *hexutil.Bytes  `json:"init"`
	Value         *hexutil.Big    `json:"value"`
	Address       *common.Address `json:"address"`
	RefundAddress *common.Address `json:"refundAddress"`
	Balance       *hexutil.Big    `json:"balance"`
	Author        *common.Address `json:"author"`
	RewardType    string          `json:"rewardType"`
}

type rpcTraceResult struct {
	GasUsed *hexutil.Uint64 `json:"gasUsed"`
	Output  *hexutil.Bytes  `json:"output"`
	Address *common.Address `json:"address"`
	Code    *hexutil.Bytes  `json:"code"`
}

// trace_block entries carry blockNumber, subtraces and transactionPosition
// as plain JSON numbers, unlike the eth_ namespace.
type rpcTrace struct {
	Action              rpcTraceAction  `json:"action"`
	Result              *rpcTraceResult `json:"result"`
	BlockHash           common.Hash     `json:"blockHash"`
	BlockNumber         uint64          `json:"blockNumber"`
	Subtraces           int             `json:"subtraces"`
	TraceAddress        []int           `json:"traceAddress"`
	TransactionHash     *common.Hash    `json:"transactionHash"`
	TransactionPosition *int            `json:"transactionPosition"`
	Type                string          `json:"type"`
	Error               string          `json:"error"`
}

func addrString(a common.Address) string {
	return strings.ToLower(a.String())
}

func hashString(h common.Hash) string {
	return strings.ToLower(h.String())
}

func bigDecimal(b *hexutil.Big) decimal.Decimal {
	if b == nil {
		return decimal.Zero
	}
	return decimal.NewFromBigInt(b.ToInt(), 0)
}
