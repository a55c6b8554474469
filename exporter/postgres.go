package exporter

import (
	"fmt"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/exvulsec/permafrost/chunk"
	"github.com/exvulsec/permafrost/model"
	"github.com/exvulsec/permafrost/utils"
)

// PostgresSink appends finished tables to per-dataset postgres tables, one
// transaction per chunk.
type PostgresSink struct {
	db      *gorm.DB
	network string
}

func NewPostgresSink(db *gorm.DB, network string) *PostgresSink {
	return &PostgresSink{db: db, network: network}
}

func (s *PostgresSink) tableName(dataset string) string {
	return utils.ComposeTableName(s.network, dataset)
}

func (s *PostgresSink) Write(dataset string, ch chunk.Chunk, table *model.Table) (string, error) {
	name := s.tableName(dataset)
	rows := make([]map[string]any, 0, table.Len())
	for row := 0; row < table.Len(); row++ {
		obj := table.Row(row)
		for k, v := range obj {
			if d, ok := v.(decimal.Decimal); ok {
				obj[k] = d.String()
			}
		}
		rows = append(rows, obj)
	}
	if len(rows) == 0 {
		return name, nil
	}
	err := s.db.Transaction(func(tx *gorm.DB) error {
		return tx.Table(name).Create(rows).Error
	})
	if err != nil {
		return "", fmt.Errorf("insert chunk %s into %s: %w", ch.Label(), name, err)
	}
	return name, nil
}

func (s *PostgresSink) Completed(string, chunk.Chunk) bool {
	return false
}
