package datasets

import (
	"encoding/json"
	"strings"

	"github.com/ethereum/go-ethereum/common/hexutil"

	"github.com/exvulsec/permafrost/chunk"
	"github.com/exvulsec/permafrost/model"
)

type logsDataset struct {
	addresses []string
	topics    []string
}

func init() {
	register(logsDataset{})
}

func (logsDataset) Name() string {
	return "logs"
}

func (logsDataset) Domain() DomainKind {
	return BlockDomain
}

// WithFilter returns a copy of the dataset restricted to the given
// addresses and topic0 values. The registry entry itself stays unfiltered.
func (d logsDataset) WithFilter(addresses, topics []string) Dataset {
	d.addresses = addresses
	d.topics = topics
	return d
}

// ParseTopics splits a comma separated topic0 list into filter topics.
func ParseTopics(topicString string) []string {
	if topicString == "" {
		return nil
	}
	topics := []string{}
	for _, t := range strings.Split(topicString, ",") {
		if t = strings.TrimSpace(t); t != "" {
			topics = append(topics, strings.ToLower(t))
		}
	}
	return topics
}

func (logsDataset) Columns() []model.Column {
	return []model.Column{
		{Name: "block_number", Type: model.TypeInt64},
		{Name: "transaction_index", Type: model.TypeInt32},
		{Name: "log_index", Type: model.TypeInt32},
		{Name: "transaction_hash", Type: model.TypeHex},
		{Name: "address", Type: model.TypeHex},
		{Name: "topic0", Type: model.TypeHex},
		{Name: "topic1", Type: model.TypeHex},
		{Name: "topic2", Type: model.TypeHex},
		{Name: "topic3", Type: model.TypeHex},
		{Name: "data", Type: model.TypeHex},
		{Name: "n_data_bytes", Type: model.TypeInt32},
	}
}

// One eth_getLogs round trip covers the whole chunk range.
func (d logsDataset) Plan(ch chunk.Chunk) []model.Operation {
	filter := map[string]any{
		"fromBlock": hexutil.EncodeUint64(ch.FetchStart),
		"toBlock":   hexutil.EncodeUint64(ch.FetchEnd),
	}
	if len(d.addresses) > 0 {
		filter["address"] = d.addresses
	}
	if len(d.topics) > 0 {
		filter["topics"] = []any{d.topics}
	}
	return []model.Operation{{Method: "eth_getLogs", Params: []any{filter}}}
}

func (d logsDataset) Decode(ch chunk.Chunk, raws [][]byte) (*model.Table, error) {
	if len(raws) != 1 {
		return nil, decodeErr(d.Name(), "expected one payload per chunk, got %d", len(raws))
	}
	var logs []rpcLog
	if err := json.Unmarshal(raws[0], &logs); err != nil {
		return nil, decodeErr(d.Name(), "unmarshal logs: %w", err)
	}
	table := model.NewTable(d.Name(), d.Columns())
	for _, l := range logs {
		topics := make([]any, 4)
		for i := range topics {
			if i < len(l.Topics) {
				topics[i] = hashString(l.Topics[i])
			}
		}
		err := table.AppendRow(
			int64(l.BlockNumber),
			int32(l.TransactionIndex),
			int32(l.LogIndex),
			hashString(l.TransactionHash),
			addrString(l.Address),
			topics[0],
			topics[1],
			topics[2],
			topics[3],
			hexutil.Encode(l.Data),
			int32(len(l.Data)),
		)
		if err != nil {
			return nil, &DecodeError{Dataset: d.Name(), Err: err}
		}
	}
	return table, nil
}
