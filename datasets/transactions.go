package datasets

import (
	"encoding/json"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"

	"github.com/exvulsec/permafrost/chunk"
	"github.com/exvulsec/permafrost/model"
)

type transactionsDataset struct{}

func init() {
	register(transactionsDataset{})
}

func (transactionsDataset) Name() string {
	return "transactions"
}

func (transactionsDataset) Domain() DomainKind {
	return BlockDomain
}

func (transactionsDataset) Columns() []model.Column {
	return []model.Column{
		{Name: "block_number", Type: model.TypeInt64},
		{Name: "transaction_index", Type: model.TypeInt32},
		{Name: "transaction_hash", Type: model.TypeHex},
		{Name: "nonce", Type: model.TypeInt64},
		{Name: "from_address", Type: model.TypeHex},
		{Name: "to_address", Type: model.TypeHex},
		{Name: "value", Type: model.TypeDecimal},
		{Name: "gas_limit", Type: model.TypeInt64},
		{Name: "gas_price", Type: model.TypeDecimal},
		{Name: "gas_used", Type: model.TypeInt64},
		{Name: "success", Type: model.TypeBool},
		{Name: "input", Type: model.TypeHex},
		{Name: "transaction_type", Type: model.TypeInt32},
	}
}

// Each block costs two round trips: the block with full transaction bodies
// and the matching receipt set.
func (transactionsDataset) Plan(ch chunk.Chunk) []model.Operation {
	numbers := ch.BlockNumbers()
	ops := make([]model.Operation, 0, 2*len(numbers))
	for _, n := range numbers {
		tag := hexutil.EncodeUint64(n)
		ops = append(ops,
			model.Operation{Method: "eth_getBlockByNumber", Params: []any{tag, true}},
			model.Operation{Method: "eth_getBlockReceipts", Params: []any{tag}},
		)
	}
	return ops
}

func (d transactionsDataset) Decode(ch chunk.Chunk, raws [][]byte) (*model.Table, error) {
	if len(raws)%2 != 0 {
		return nil, decodeErr(d.Name(), "expected block/receipts payload pairs, got %d payloads", len(raws))
	}
	table := model.NewTable(d.Name(), d.Columns())
	for i := 0; i < len(raws); i += 2 {
		var block rpcBlock
		if err := json.Unmarshal(raws[i], &block); err != nil {
			return nil, decodeErr(d.Name(), "unmarshal block: %w", err)
		}
		var receipts []rpcReceipt
		if err := json.Unmarshal(raws[i+1], &receipts); err != nil {
			return nil, decodeErr(d.Name(), "unmarshal receipts: %w", err)
		}
		byHash := make(map[common.Hash]rpcReceipt, len(receipts))
		for _, r := range receipts {
			byHash[r.TransactionHash] = r
		}
		if block.Number == nil {
			return nil, decodeErr(d.Name(), "block payload missing number")
		}
		blockNumber := block.Number.ToInt().Int64()
		for _, rawTx := range block.Transactions {
			var tx rpcTransaction
			if err := json.Unmarshal(rawTx, &tx); err != nil {
				return nil, decodeErr(d.Name(), "unmarshal transaction: %w", err)
			}
			receipt, ok := byHash[tx.Hash]
			if !ok {
				return nil, decodeErr(d.Name(), "missing receipt for tx %s", hashString(tx.Hash))
			}
			var toAddr any
			if tx.To != nil {
				toAddr = addrString(*tx.To)
			}
			gasPrice := tx.GasPrice
			if gasPrice == nil {
				gasPrice = receipt.EffectiveGasPrice
			}
			err := table.AppendRow(
				blockNumber,
				int32(tx.TransactionIndex),
				hashString(tx.Hash),
				int64(tx.Nonce),
				addrString(tx.From),
				toAddr,
				bigDecimal(tx.Value),
				int64(tx.Gas),
				bigDecimal(gasPrice),
				int64(receipt.GasUsed),
				receipt.Status == 1,
				hexutil.Encode(tx.Input),
				int32(tx.Type),
			)
			if err != nil {
				return nil, &DecodeError{Dataset: d.Name(), Err: err}
			}
		}
	}
	return table, nil
}
