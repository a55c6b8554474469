package datasets

import (
	"strings"

	"github.com/status-im/keycard-go/hexutils"

	"github.com/exvulsec/permafrost/chunk"
	"github.com/exvulsec/permafrost/model"
)

type contractsDataset struct {
	blockTag string
}

func init() {
	register(contractsDataset{blockTag: "latest"})
}

func (contractsDataset) Name() string {
	return "contracts"
}

func (contractsDataset) Domain() DomainKind {
	return AddressDomain
}

func (d contractsDataset) AtBlock(tag string) Dataset {
	d.blockTag = tag
	return d
}

func (contractsDataset) Columns() []model.Column {
	return []model.Column{
		{Name: "address", Type: model.TypeHex},
		{Name: "code", Type: model.TypeHex},
		{Name: "code_size", Type: model.TypeInt32},
		{Name: "is_contract", Type: model.TypeBool},
		{Name: "block_tag", Type: model.TypeString},
	}
}

func (d contractsDataset) Plan(ch chunk.Chunk) []model.Operation {
	ops := make([]model.Operation, 0, len(ch.Addresses))
	for _, addr := range ch.Addresses {
		ops = append(ops, model.Operation{
			Method: "eth_getCode",
			Params: []any{strings.ToLower(addr), d.blockTag},
		})
	}
	return ops
}

func (d contractsDataset) Decode(ch chunk.Chunk, raws [][]byte) (*model.Table, error) {
	if len(raws) != len(ch.Addresses) {
		return nil, decodeErr(d.Name(), "expected %d payloads, got %d", len(ch.Addresses), len(raws))
	}
	table := model.NewTable(d.Name(), d.Columns())
	for i, raw := range raws {
		code := strings.Trim(string(raw), `"`)
		if !strings.HasPrefix(code, "0x") {
			return nil, decodeErr(d.Name(), "code of %s is not a hex string: %q", ch.Addresses[i], code)
		}
		bytecode := hexutils.HexToBytes(strings.TrimPrefix(code, "0x"))
		err := table.AppendRow(
			strings.ToLower(ch.Addresses[i]),
			strings.ToLower(code),
			int32(len(bytecode)),
			len(bytecode) > 0,
			d.blockTag,
		)
		if err != nil {
			return nil, &DecodeError{Dataset: d.Name(), Err: err}
		}
	}
	return table, nil
}
