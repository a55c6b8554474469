package model

import "fmt"

// Operation is a single JSON-RPC round trip against the node.
type Operation struct {
	Method string
	Params []any
}

func (op Operation) String() string {
	return fmt.Sprintf("%s%v", op.Method, op.Params)
}
