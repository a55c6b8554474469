package datasets

import (
	"encoding/json"
	"strconv"
	"strings"

	"github.com/ethereum/go-ethereum/common/hexutil"

	"github.com/exvulsec/permafrost/chunk"
	"github.com/exvulsec/permafrost/model"
)

type tracesDataset struct{}

func init() {
	register(tracesDataset{})
}

func (tracesDataset) Name() string {
	return "traces"
}

func (tracesDataset) Domain() DomainKind {
	return BlockDomain
}

func (tracesDataset) Columns() []model.Column {
	return []model.Column{
		{Name: "action_from", Type: model.TypeHex},
		{Name: "action_to", Type: model.TypeHex},
		{Name: "action_value", Type: model.TypeDecimal},
		{Name: "action_gas", Type: model.TypeInt64},
		{Name: "action_input", Type: model.TypeHex},
		{Name: "action_call_type", Type: model.TypeString},
		{Name: "action_init", Type: model.TypeHex},
		{Name: "action_reward_type", Type: model.TypeString},
		{Name: "action_type", Type: model.TypeString},
		{Name: "result_gas_used", Type: model.TypeInt64},
		{Name: "result_output", Type: model.TypeHex},
		{Name: "result_code", Type: model.TypeHex},
		{Name: "result_address", Type: model.TypeHex},
		{Name: "trace_address", Type: model.TypeString},
		{Name: "subtraces", Type: model.TypeInt32},
		{Name: "transaction_position", Type: model.TypeInt32},
		{Name: "transaction_hash", Type: model.TypeHex},
		{Name: "block_number", Type: model.TypeInt64},
		{Name: "block_hash", Type: model.TypeHex},
		{Name: "error", Type: model.TypeString},
	}
}

func (tracesDataset) Plan(ch chunk.Chunk) []model.Operation {
	numbers := ch.BlockNumbers()
	ops := make([]model.Operation, 0, len(numbers))
	for _, n := range numbers {
		ops = append(ops, model.Operation{
			Method: "trace_block",
			Params: []any{hexutil.EncodeUint64(n)},
		})
	}
	return ops
}

func (d tracesDataset) Decode(ch chunk.Chunk, raws [][]byte) (*model.Table, error) {
	table := model.NewTable(d.Name(), d.Columns())
	for _, raw := range raws {
		var traces []rpcTrace
		if err := json.Unmarshal(raw, &traces); err != nil {
			return nil, decodeErr(d.Name(), "unmarshal traces: %w", err)
		}
		for _, trace := range traces {
			// reward traces carry no transaction identity, skip them like
			// the block level pseudo rows they are
			if trace.TransactionHash == nil || trace.TransactionPosition == nil {
				continue
			}
			if err := appendTraceRow(table, trace); err != nil {
				return nil, &DecodeError{Dataset: d.Name(), Err: err}
			}
		}
	}
	return table, nil
}

func appendTraceRow(table *model.Table, trace rpcTrace) error {
	action := trace.Action
	var actionFrom, actionTo, actionInput, actionInit, actionCallType, actionRewardType any
	var actionGas any
	actionValue := bigDecimal(action.Value)

	switch trace.Type {
	case "call":
		if action.From != nil {
			actionFrom = addrString(*action.From)
		}
		if action.To != nil {
			actionTo = addrString(*action.To)
		}
		if action.Input != nil {
			actionInput = hexutil.Encode(*action.Input)
		}
		if action.CallType != "" {
			actionCallType = action.CallType
		}
	case "create":
		if action.From != nil {
			actionFrom = addrString(*action.From)
		}
		if action.Init != nil {
			actionInit = hexutil.Encode(*action.Init)
		}
	case "suicide":
		if action.Address != nil {
			actionFrom = addrString(*action.Address)
		}
		if action.RefundAddress != nil {
			actionTo = addrString(*action.RefundAddress)
		}
		actionValue = bigDecimal(action.Balance)
	case "reward":
		if action.Author != nil {
			actionTo = addrString(*action.Author)
		}
		if action.RewardType != "" {
			actionRewardType = action.RewardType
		}
	}
	if action.Gas != nil {
		actionGas = int64(*action.Gas)
	}

	var resultGasUsed, resultOutput, resultCode, resultAddress any
	if trace.Result != nil {
		if trace.Result.GasUsed != nil {
			resultGasUsed = int64(*trace.Result.GasUsed)
		}
		if trace.Result.Output != nil {
			resultOutput = hexutil.Encode(*trace.Result.Output)
		}
		if trace.Result.Code != nil {
			resultCode = hexutil.Encode(*trace.Result.Code)
		}
		if trace.Result.Address != nil {
			resultAddress = addrString(*trace.Result.Address)
		}
	}

	var traceErr any
	if trace.Error != "" {
		traceErr = trace.Error
	}

	return table.AppendRow(
		actionFrom,
		actionTo,
		actionValue,
		actionGas,
		actionInput,
		actionCallType,
		actionInit,
		actionRewardType,
		trace.Type,
		resultGasUsed,
		resultOutput,
		resultCode,
		resultAddress,
		traceAddressString(trace.TraceAddress),
		int32(trace.Subtraces),
		int32(*trace.TransactionPosition),
		hashString(*trace.TransactionHash),
		int64(trace.BlockNumber),
		hashString(trace.BlockHash),
		traceErr,
	)
}

func traceAddressString(addr []int) string {
	parts := make([]string, len(addr))
	for i, n := range addr {
		parts[i] = strconv.Itoa(n)
	}
	return strings.Join(parts, "_")
}
