package model

import (
	"testing"

	"github.com/magiconair/properties/assert"
	"github.com/shopspring/decimal"
)

func testColumns() []Column {
	return []Column{
		{Name: "block_number", Type: TypeInt64},
		{Name: "tx_hash", Type: TypeHex},
		{Name: "value", Type: TypeDecimal},
		{Name: "success", Type: TypeBool},
	}
}

func TestTableAppendRow(t *testing.T) {
	table := NewTable("txs", testColumns())
	value, _ := decimal.NewFromString("115792089237316195423570985008687907853269984665640564039457584007913129639935")
	err := table.AppendRow(int64(18000000), "0xabc", value, true)
	if err != nil {
		t.Fatalf("append row is err: %v", err)
	}
	assert.Equal(t, table.Len(), 1)
	assert.Equal(t, table.Value("block_number", 0), int64(18000000))
	// uint256 max survives untouched
	got := table.Value("value", 0).(decimal.Decimal)
	assert.Equal(t, got.String(), "115792089237316195423570985008687907853269984665640564039457584007913129639935")
}

func TestTableRejectsMismatchedTypes(t *testing.T) {
	table := NewTable("txs", testColumns())
	if err := table.AppendRow("not a number", "0xabc", decimal.Zero, true); err == nil {
		t.Fatalf("should have rejected a string in an int64 column")
	}
	if err := table.AppendRow(int64(1), "0xabc", decimal.Zero); err == nil {
		t.Fatalf("should have rejected a short row")
	}
	if err := table.AppendRow(int64(1), int64(2), decimal.Zero, true); err == nil {
		t.Fatalf("should have rejected an int64 in a hex column")
	}
	// the failed rows must not leave ragged columns behind
	assert.Equal(t, table.Len(), 0)
}

func TestTableNullCells(t *testing.T) {
	table := NewTable("txs", testColumns())
	if err := table.AppendRow(int64(1), nil, decimal.Zero, false); err != nil {
		t.Fatalf("append row is err: %v", err)
	}
	if table.Value("tx_hash", 0) != nil {
		t.Fatalf("null cell should read back as nil")
	}
	row := table.Row(0)
	assert.Equal(t, row["block_number"], int64(1))
	if row["tx_hash"] != nil {
		t.Fatalf("null cell should stay nil in row maps")
	}
}
