package chunk

import (
	"errors"
	"testing"

	"github.com/magiconair/properties/assert"

	"github.com/exvulsec/permafrost/model"
)

func TestPartitionRange(t *testing.T) {
	chunks, err := Partition(BlockRange{Start: 1000, End: 1099}, 25, false)
	if err != nil {
		t.Fatalf("partition is err: %v", err)
	}
	assert.Equal(t, len(chunks), 4)
	assert.Equal(t, chunks[0].Label(), "00001000_to_00001024")
	assert.Equal(t, chunks[1].Label(), "00001025_to_00001049")
	assert.Equal(t, chunks[2].Label(), "00001050_to_00001074")
	assert.Equal(t, chunks[3].Label(), "00001075_to_00001099")
}

func TestPartitionRangeCoversDomainExactly(t *testing.T) {
	cases := []struct {
		start, end, size uint64
	}{
		{0, 0, 1},
		{0, 999, 100},
		{17, 41, 7},
		{5, 5, 100},
		{1, 1000000, 33333},
	}
	for _, tc := range cases {
		chunks, err := Partition(BlockRange{Start: tc.start, End: tc.end}, tc.size, false)
		if err != nil {
			t.Fatalf("partition [%d, %d] size %d is err: %v", tc.start, tc.end, tc.size, err)
		}
		seen := map[uint64]int{}
		for i, ch := range chunks {
			assert.Equal(t, ch.Index, i)
			for _, n := range ch.BlockNumbers() {
				seen[n]++
			}
		}
		for n := tc.start; n <= tc.end; n++ {
			if seen[n] != 1 {
				t.Fatalf("block %d covered %d times", n, seen[n])
			}
		}
		if uint64(len(seen)) != tc.end-tc.start+1 {
			t.Fatalf("covered %d blocks, want %d", len(seen), tc.end-tc.start+1)
		}
	}
}

func TestPartitionAligned(t *testing.T) {
	// 1000 is already a multiple of 25 so alignment changes nothing
	chunks, err := Partition(BlockRange{Start: 1000, End: 1099}, 25, true)
	if err != nil {
		t.Fatalf("partition is err: %v", err)
	}
	assert.Equal(t, len(chunks), 4)
	assert.Equal(t, chunks[0].Label(), "00001000_to_00001024")

	// starting mid-window, the first chunk is named by the aligned
	// boundary but only fetches the requested blocks
	chunks, err = Partition(BlockRange{Start: 1010, End: 1099}, 25, true)
	if err != nil {
		t.Fatalf("partition is err: %v", err)
	}
	assert.Equal(t, chunks[0].Label(), "00001000_to_00001024")
	assert.Equal(t, chunks[0].FetchStart, uint64(1010))
	assert.Equal(t, chunks[0].BlockNumbers()[0], uint64(1010))
	assert.Equal(t, len(chunks[0].BlockNumbers()), 15)
}

func TestPartitionNumberList(t *testing.T) {
	chunks, err := Partition(NumberList{5, 3, 11, 7, 2}, 2, false)
	if err != nil {
		t.Fatalf("partition is err: %v", err)
	}
	assert.Equal(t, len(chunks), 3)
	// input order is preserved
	assert.Equal(t, chunks[0].BlockNumbers(), []uint64{5, 3})
	assert.Equal(t, chunks[1].BlockNumbers(), []uint64{11, 7})
	assert.Equal(t, chunks[2].BlockNumbers(), []uint64{2})
}

func TestPartitionAddressList(t *testing.T) {
	addrs := AddressList{"0xa", "0xb", "0xc", "0xd", "0xe"}
	chunks, err := Partition(addrs, 2, false)
	if err != nil {
		t.Fatalf("partition is err: %v", err)
	}
	assert.Equal(t, len(chunks), 3)
	assert.Equal(t, chunks[0].Addresses, []string{"0xa", "0xb"})
	assert.Equal(t, chunks[2].Addresses, []string{"0xe"})
	assert.Equal(t, chunks[1].Label(), "00000002_to_00000003")
}

func TestPartitionErrors(t *testing.T) {
	var confErr *model.ConfigError

	_, err := Partition(BlockRange{Start: 0, End: 10}, 0, false)
	if !errors.As(err, &confErr) {
		t.Fatalf("zero chunk size should be a config error, got %v", err)
	}
	_, err = Partition(BlockRange{Start: 10, End: 5}, 5, false)
	if !errors.As(err, &confErr) {
		t.Fatalf("inverted range should be a config error, got %v", err)
	}
	_, err = Partition(AddressList{}, 5, false)
	if !errors.As(err, &confErr) {
		t.Fatalf("empty domain should be a config error, got %v", err)
	}
	_, err = Partition(nil, 5, false)
	if !errors.As(err, &confErr) {
		t.Fatalf("nil domain should be a config error, got %v", err)
	}
}
