package datasets

import (
	"encoding/json"

	"github.com/ethereum/go-ethereum/common/hexutil"

	"github.com/exvulsec/permafrost/chunk"
	"github.com/exvulsec/permafrost/model"
)

type blocksDataset struct{}

func init() {
	register(blocksDataset{})
}

func (blocksDataset) Name() string {
	return "blocks"
}

func (blocksDataset) Domain() DomainKind {
	return BlockDomain
}

func (blocksDataset) Columns() []model.Column {
	return []model.Column{
		{Name: "block_number", Type: model.TypeInt64},
		{Name: "block_hash", Type: model.TypeHex},
		{Name: "parent_hash", Type: model.TypeHex},
		{Name: "timestamp", Type: model.TypeInt64},
		{Name: "author", Type: model.TypeHex},
		{Name: "gas_used", Type: model.TypeInt64},
		{Name: "gas_limit", Type: model.TypeInt64},
		{Name: "base_fee_per_gas", Type: model.TypeDecimal},
		{Name: "difficulty", Type: model.TypeDecimal},
		{Name: "size", Type: model.TypeInt64},
		{Name: "tx_count", Type: model.TypeInt32},
		{Name: "extra_data", Type: model.TypeHex},
	}
}

func (blocksDataset) Plan(ch chunk.Chunk) []model.Operation {
	numbers := ch.BlockNumbers()
	ops := make([]model.Operation, 0, len(numbers))
	for _, n := range numbers {
		ops = append(ops, model.Operation{
			Method: "eth_getBlockByNumber",
			Params: []any{hexutil.EncodeUint64(n), false},
		})
	}
	return ops
}

func (d blocksDataset) Decode(ch chunk.Chunk, raws [][]byte) (*model.Table, error) {
	table := model.NewTable(d.Name(), d.Columns())
	for _, raw := range raws {
		var block rpcBlock
		if err := json.Unmarshal(raw, &block); err != nil {
			return nil, decodeErr(d.Name(), "unmarshal block: %w", err)
		}
		if block.Number == nil {
			return nil, decodeErr(d.Name(), "block payload missing number")
		}
		var baseFee any
		if block.BaseFeePerGas != nil {
			baseFee = bigDecimal(block.BaseFeePerGas)
		}
		err := table.AppendRow(
			block.Number.ToInt().Int64(),
			hashString(block.Hash),
			hashString(block.ParentHash),
			int64(block.Timestamp),
			addrString(block.Miner),
			int64(block.GasUsed),
			int64(block.GasLimit),
			baseFee,
			bigDecimal(block.Difficulty),
			int64(block.Size),
			int32(len(block.Transactions)),
			hexutil.Encode(block.ExtraData),
		)
		if err != nil {
			return nil, &DecodeError{Dataset: d.Name(), Err: err}
		}
	}
	return table, nil
}
