// Package chunk splits a requested extraction domain into bounded,
// non-overlapping work units.
package chunk

import (
	"fmt"

	"github.com/exvulsec/permafrost/model"
)

// Domain is the closed set of request shapes a dataset can be extracted
// over: a contiguous block range, an explicit block number list, an address
// list or a transaction hash list.
type Domain interface {
	size() uint64
}

type BlockRange struct {
	Start uint64
	End   uint64
}

func (r BlockRange) size() uint64 { return r.End - r.Start + 1 }

type NumberList []uint64

func (l NumberList) size() uint64 { return uint64(len(l)) }

type AddressList []string

func (l AddressList) size() uint64 { return uint64(len(l)) }

type HashList []string

func (l HashList) size() uint64 { return uint64(len(l)) }

// Chunk is one bounded unit of work. Start/End are the chunk's naming
// bounds: block numbers for range chunks, ordinal positions for list
// chunks. For aligned range chunks the naming bounds may extend past the
// requested domain; FetchStart/FetchEnd stay clipped to it.
type Chunk struct {
	Index      int
	Start      uint64
	End        uint64
	FetchStart uint64
	FetchEnd   uint64
	Numbers    []uint64
	Addresses  []string
	Hashes     []string
}

// Label renders the chunk bounds zero padded for lexicographic file order.
func (c Chunk) Label() string {
	return fmt.Sprintf("%08d_to_%08d", c.Start, c.End)
}

// BlockNumbers lists the block numbers this chunk actually fetches.
func (c Chunk) BlockNumbers() []uint64 {
	if c.Numbers != nil {
		return c.Numbers
	}
	numbers := make([]uint64, 0, c.FetchEnd-c.FetchStart+1)
	for n := c.FetchStart; n <= c.FetchEnd; n++ {
		numbers = append(numbers, n)
	}
	return numbers
}

// Partition splits the domain into ordered chunks of at most size units.
// With align set, range chunk boundaries snap to multiples of size so the
// output files stay reusable across overlapping requests.
func Partition(domain Domain, size uint64, align bool) ([]Chunk, error) {
	if size == 0 {
		return nil, model.NewConfigError("chunk size must be greater than zero")
	}
	if domain == nil || domain.size() == 0 {
		return nil, model.NewConfigError("requested domain is empty")
	}
	switch d := domain.(type) {
	case BlockRange:
		return partitionRange(d, size, align)
	case NumberList:
		return partitionNumbers(d, size)
	case AddressList:
		return partitionOrdinals(len(d), size, func(c *Chunk, lo, hi int) {
			c.Addresses = d[lo : hi+1]
		})
	case HashList:
		return partitionOrdinals(len(d), size, func(c *Chunk, lo, hi int) {
			c.Hashes = d[lo : hi+1]
		})
	}
	return nil, model.NewConfigError("unsupported domain type %T", domain)
}

func partitionRange(r BlockRange, size uint64, align bool) ([]Chunk, error) {
	if r.Start > r.End {
		return nil, model.NewConfigError("inverted block range: start %d > end %d", r.Start, r.End)
	}
	first := r.Start
	if align {
		first = r.Start - r.Start%size
	}
	chunks := []Chunk{}
	for lo := first; lo <= r.End; lo += size {
		hi := lo + size - 1
		c := Chunk{
			Index:      len(chunks),
			Start:      lo,
			End:        hi,
			FetchStart: max64(lo, r.Start),
			FetchEnd:   min64(hi, r.End),
		}
		if !align {
			c.End = c.FetchEnd
		}
		chunks = append(chunks, c)
	}
	return chunks, nil
}

func partitionNumbers(numbers NumberList, size uint64) ([]Chunk, error) {
	chunks := []Chunk{}
	for lo := 0; lo < len(numbers); lo += int(size) {
		hi := lo + int(size) - 1
		if hi >= len(numbers) {
			hi = len(numbers) - 1
		}
		group := numbers[lo : hi+1]
		chunks = append(chunks, Chunk{
			Index:      len(chunks),
			Start:      group[0],
			End:        group[len(group)-1],
			FetchStart: group[0],
			FetchEnd:   group[len(group)-1],
			Numbers:    group,
		})
	}
	return chunks, nil
}

func partitionOrdinals(total int, size uint64, fill func(c *Chunk, lo, hi int)) ([]Chunk, error) {
	chunks := []Chunk{}
	for lo := 0; lo < total; lo += int(size) {
		hi := lo + int(size) - 1
		if hi >= total {
			hi = total - 1
		}
		c := Chunk{
			Index:      len(chunks),
			Start:      uint64(lo),
			End:        uint64(hi),
			FetchStart: uint64(lo),
			FetchEnd:   uint64(hi),
		}
		fill(&c, lo, hi)
		chunks = append(chunks, c)
	}
	return chunks, nil
}

func max64(a, b uint64) uint64 {
	if a > b {
		return a
	}
	return b
}

func min64(a, b uint64) uint64 {
	if a < b {
		return a
	}
	return b
}
