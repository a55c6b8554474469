package datasets

import (
	"errors"
	"fmt"
	"testing"

	"github.com/magiconair/properties/assert"
	"github.com/shopspring/decimal"

	"github.com/exvulsec/permafrost/chunk"
)

const (
	addrA = "0x00000000219ab540356cbb839cbe05303d7705fa"
	addrB = "0xdac17f958d2ee523a2206206994597c13d831ec7"
	hashA = "0x88e96d4537bea4d9c05d12549907b32561d3bf31f45aae734cdc119f13406cb6"
	hashB = "0xb903239f8543d04b5dc1ba6579132b143087c68db1b2168786408fcbce568238"
	hashC = "0x41800b5c3f1717687d85fc9018faac0a6e90b39deaa0b99e7fe4fe796ddeb26a"
)

func blockChunk(start, end uint64) chunk.Chunk {
	return chunk.Chunk{Start: start, End: end, FetchStart: start, FetchEnd: end}
}

func TestLookup(t *testing.T) {
	ds, err := Lookup("blocks")
	if err != nil {
		t.Fatalf("lookup blocks is err: %v", err)
	}
	assert.Equal(t, ds.Name(), "blocks")

	if _, err := Lookup("uncles"); err == nil {
		t.Fatalf("unknown dataset should not resolve")
	}
	assert.Equal(t, Names(), []string{"balances", "blocks", "contracts", "logs", "traces", "transactions"})
}

func TestBlocksDecode(t *testing.T) {
	payload := fmt.Sprintf(`{
		"number": "0x112a880",
		"hash": %q,
		"parentHash": %q,
		"timestamp": "0x64f8b2a0",
		"miner": %q,
		"gasUsed": "0xd8a912",
		"gasLimit": "0x1c9c380",
		"baseFeePerGas": "0x3b9aca00",
		"difficulty": "0x0",
		"size": "0x1f8b",
		"extraData": "0xd883010d04",
		"transactions": ["a", "b", "c"]
	}`, hashA, hashB, addrA)

	ds, _ := Lookup("blocks")
	ch := blockChunk(18000000, 18000000)
	assert.Equal(t, len(ds.Plan(ch)), 1)

	table, err := ds.Decode(ch, [][]byte{[]byte(payload)})
	if err != nil {
		t.Fatalf("decode is err: %v", err)
	}
	assert.Equal(t, table.Len(), 1)
	assert.Equal(t, table.Value("block_number", 0), int64(18000000))
	assert.Equal(t, table.Value("block_hash", 0), hashA)
	assert.Equal(t, table.Value("author", 0), addrA)
	assert.Equal(t, table.Value("tx_count", 0), int32(3))
	assert.Equal(t, table.Value("base_fee_per_gas", 0).(decimal.Decimal).String(), "1000000000")
}

func TestBlocksDecodeRejectsGarbage(t *testing.T) {
	ds, _ := Lookup("blocks")
	_, err := ds.Decode(blockChunk(1, 1), [][]byte{[]byte(`{"number": 12}`)})
	var de *DecodeError
	if !errors.As(err, &de) {
		t.Fatalf("expected a decode error, got %v", err)
	}
}

func TestTransactionsDecode(t *testing.T) {
	block := fmt.Sprintf(`{
		"number": "0x64",
		"hash": %q,
		"parentHash": %q,
		"timestamp": "0x1",
		"miner": %q,
		"gasUsed": "0x5208",
		"gasLimit": "0x1c9c380",
		"difficulty": "0x0",
		"size": "0x100",
		"extraData": "0x",
		"transactions": [{
			"hash": %q,
			"nonce": "0x7",
			"from": %q,
			"to": null,
			"value": "0xffffffffffffffffffffffffffffffff",
			"gas": "0x5208",
			"gasPrice": null,
			"input": "0x6001",
			"type": "0x2",
			"transactionIndex": "0x0"
		}]
	}`, hashA, hashB, addrA, hashC, addrB)
	receipts := fmt.Sprintf(`[{
		"transactionHash": %q,
		"transactionIndex": "0x0",
		"gasUsed": "0x5208",
		"status": "0x1",
		"effectiveGasPrice": "0x3b9aca00"
	}]`, hashC)

	ds, _ := Lookup("transactions")
	ch := blockChunk(100, 100)
	ops := ds.Plan(ch)
	assert.Equal(t, len(ops), 2)
	assert.Equal(t, ops[0].Method, "eth_getBlockByNumber")
	assert.Equal(t, ops[1].Method, "eth_getBlockReceipts")

	table, err := ds.Decode(ch, [][]byte{[]byte(block), []byte(receipts)})
	if err != nil {
		t.Fatalf("decode is err: %v", err)
	}
	assert.Equal(t, table.Len(), 1)
	assert.Equal(t, table.Value("transaction_hash", 0), hashC)
	if table.Value("to_address", 0) != nil {
		t.Fatalf("contract creation should have a null to_address")
	}
	// value survives above int64 range
	assert.Equal(t, table.Value("value", 0).(decimal.Decimal).String(), "340282366920938463463374607431768211455")
	// null gasPrice falls back to the receipt's effective gas price
	assert.Equal(t, table.Value("gas_price", 0).(decimal.Decimal).String(), "1000000000")
	assert.Equal(t, table.Value("success", 0), true)
}

func TestTransactionsDecodeMissingReceipt(t *testing.T) {
	block := fmt.Sprintf(`{
		"number": "0x64",
		"hash": %q,
		"parentHash": %q,
		"timestamp": "0x1",
		"miner": %q,
		"gasUsed": "0x0",
		"gasLimit": "0x0",
		"difficulty": "0x0",
		"size": "0x0",
		"extraData": "0x",
		"transactions": [{
			"hash": %q,
			"nonce": "0x0",
			"from": %q,
			"value": "0x0",
			"gas": "0x0",
			"input": "0x",
			"type": "0x0",
			"transactionIndex": "0x0"
		}]
	}`, hashA, hashB, addrA, hashC, addrB)

	ds, _ := Lookup("transactions")
	_, err := ds.Decode(blockChunk(100, 100), [][]byte{[]byte(block), []byte(`[]`)})
	var de *DecodeError
	if !errors.As(err, &de) {
		t.Fatalf("missing receipt should be a decode error, got %v", err)
	}
}

func TestLogsPlanAndDecode(t *testing.T) {
	base, _ := Lookup("logs")
	ds := base.(logsDataset).WithFilter([]string{addrA}, []string{hashB})

	ch := chunk.Chunk{Start: 1000, End: 1099, FetchStart: 1000, FetchEnd: 1099}
	ops := ds.Plan(ch)
	assert.Equal(t, len(ops), 1)
	filter := ops[0].Params[0].(map[string]any)
	assert.Equal(t, filter["fromBlock"], "0x3e8")
	assert.Equal(t, filter["toBlock"], "0x44b")
	assert.Equal(t, filter["address"], []string{addrA})

	payload := fmt.Sprintf(`[{
		"address": %q,
		"topics": [%q, %q],
		"data": "0x000000000000000000000000000000000000000000000000000000000000000a",
		"blockNumber": "0x3f0",
		"transactionHash": %q,
		"transactionIndex": "0x2",
		"logIndex": "0x5"
	}]`, addrA, hashB, hashC, hashA)
	table, err := ds.Decode(ch, [][]byte{[]byte(payload)})
	if err != nil {
		t.Fatalf("decode is err: %v", err)
	}
	assert.Equal(t, table.Len(), 1)
	assert.Equal(t, table.Value("topic0", 0), hashB)
	assert.Equal(t, table.Value("topic1", 0), hashC)
	if table.Value("topic2", 0) != nil || table.Value("topic3", 0) != nil {
		t.Fatalf("absent topics should read back as null")
	}
	assert.Equal(t, table.Value("n_data_bytes", 0), int32(32))
}

func TestParseTopics(t *testing.T) {
	assert.Equal(t, len(ParseTopics("")), 0)
	topics := ParseTopics(" 0xAB, ,0xcd ")
	assert.Equal(t, topics, []string{"0xab", "0xcd"})
}

func TestTracesDecode(t *testing.T) {
	payload := fmt.Sprintf(`[
		{
			"action": {
				"callType": "call",
				"from": %q,
				"to": %q,
				"gas": "0x5208",
				"input": "0x6001",
				"value": "0xde0b6b3a7640000"
			},
			"result": {"gasUsed": "0x5208", "output": "0x01"},
			"blockHash": %q,
			"blockNumber": 100,
			"subtraces": 2,
			"traceAddress": [0, 1, 3],
			"transactionHash": %q,
			"transactionPosition": 4,
			"type": "call"
		},
		{
			"action": {"author": %q, "rewardType": "block", "value": "0x0"},
			"blockHash": %q,
			"blockNumber": 100,
			"subtraces": 0,
			"traceAddress": [],
			"type": "reward"
		}
	]`, addrA, addrB, hashA, hashC, addrA, hashA)

	ds, _ := Lookup("traces")
	table, err := ds.Decode(blockChunk(100, 100), [][]byte{[]byte(payload)})
	if err != nil {
		t.Fatalf("decode is err: %v", err)
	}
	// the reward trace has no transaction identity and is dropped
	assert.Equal(t, table.Len(), 1)
	assert.Equal(t, table.Value("action_from", 0), addrA)
	assert.Equal(t, table.Value("action_to", 0), addrB)
	assert.Equal(t, table.Value("action_value", 0).(decimal.Decimal).String(), "1000000000000000000")
	assert.Equal(t, table.Value("trace_address", 0), "0_1_3")
	assert.Equal(t, table.Value("subtraces", 0), int32(2))
	assert.Equal(t, table.Value("transaction_position", 0), int32(4))
	assert.Equal(t, table.Value("result_gas_used", 0), int64(21000))
	if table.Value("error", 0) != nil {
		t.Fatalf("successful trace should have a null error column")
	}
}

func TestBalancesDecode(t *testing.T) {
	base, _ := Lookup("balances")
	ds := base.(balancesDataset).AtBlock("0x112a880")

	ch := chunk.Chunk{Addresses: []string{addrA, addrB}}
	ops := ds.Plan(ch)
	assert.Equal(t, len(ops), 2)
	assert.Equal(t, ops[0].Method, "eth_getBalance")
	assert.Equal(t, ops[0].Params[1], "0x112a880")

	table, err := ds.Decode(ch, [][]byte{
		[]byte(`"0xffffffffffffffffffffffffffffffffffffffffffffffffffffffffffffffff"`),
		[]byte(`"0x0"`),
	})
	if err != nil {
		t.Fatalf("decode is err: %v", err)
	}
	assert.Equal(t, table.Len(), 2)
	assert.Equal(t, table.Value("balance", 0).(decimal.Decimal).String(),
		"115792089237316195423570985008687907853269984665640564039457584007913129639935")
	assert.Equal(t, table.Value("balance", 1).(decimal.Decimal).String(), "0")
	assert.Equal(t, table.Value("block_tag", 0), "0x112a880")
}

func TestContractsDecode(t *testing.T) {
	ds, _ := Lookup("contracts")
	ch := chunk.Chunk{Addresses: []string{addrA, addrB}}

	table, err := ds.Decode(ch, [][]byte{
		[]byte(`"0x6080604052"`),
		[]byte(`"0x"`),
	})
	if err != nil {
		t.Fatalf("decode is err: %v", err)
	}
	assert.Equal(t, table.Value("code_size", 0), int32(5))
	assert.Equal(t, table.Value("is_contract", 0), true)
	assert.Equal(t, table.Value("code_size", 1), int32(0))
	assert.Equal(t, table.Value("is_contract", 1), false)
}
