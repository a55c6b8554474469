package datasets

import (
	"strings"

	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/shopspring/decimal"

	"github.com/exvulsec/permafrost/chunk"
	"github.com/exvulsec/permafrost/model"
)

type balancesDataset struct {
	blockTag string
}

func init() {
	register(balancesDataset{blockTag: "latest"})
}

func (balancesDataset) Name() string {
	return "balances"
}

func (balancesDataset) Domain() DomainKind {
	return AddressDomain
}

// AtBlock returns a copy pinned to a specific block tag.
func (d balancesDataset) AtBlock(tag string) Dataset {
	d.blockTag = tag
	return d
}

func (balancesDataset) Columns() []model.Column {
	return []model.Column{
		{Name: "address", Type: model.TypeHex},
		{Name: "balance", Type: model.TypeDecimal},
		{Name: "block_tag", Type: model.TypeString},
	}
}

func (d balancesDataset) Plan(ch chunk.Chunk) []model.Operation {
	ops := make([]model.Operation, 0, len(ch.Addresses))
	for _, addr := range ch.Addresses {
		ops = append(ops, model.Operation{
			Method: "eth_getBalance",
			Params: []any{strings.ToLower(addr), d.blockTag},
		})
	}
	return ops
}

func (d balancesDataset) Decode(ch chunk.Chunk, raws [][]byte) (*model.Table, error) {
	if len(raws) != len(ch.Addresses) {
		return nil, decodeErr(d.Name(), "expected %d payloads, got %d", len(ch.Addresses), len(raws))
	}
	table := model.NewTable(d.Name(), d.Columns())
	for i, raw := range raws {
		balance, err := decodeQuantity(raw)
		if err != nil {
			return nil, decodeErr(d.Name(), "balance of %s: %w", ch.Addresses[i], err)
		}
		if err := table.AppendRow(strings.ToLower(ch.Addresses[i]), balance, d.blockTag); err != nil {
			return nil, &DecodeError{Dataset: d.Name(), Err: err}
		}
	}
	return table, nil
}

// decodeQuantity parses a quoted hex quantity into a lossless decimal.
func decodeQuantity(raw []byte) (decimal.Decimal, error) {
	var quantity hexutil.Big
	if err := quantity.UnmarshalJSON(raw); err != nil {
		return decimal.Zero, err
	}
	return decimal.NewFromBigInt(quantity.ToInt(), 0), nil
}
