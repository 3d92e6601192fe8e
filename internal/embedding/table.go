package embedding

import "fmt"

// Table is the precomputed embedding of every competency for one model.
type Table struct {
	Model   string
	IDs     []string
	Vectors [][]float32

	index map[string]int
}

// NewTable builds a table and checks every vector has the same dimension.
func NewTable(model string, ids []string, vectors [][]float32) (*Table, error) {
	if len(ids) != len(vectors) {
		return nil, fmt.Errorf("table has %d ids but %d vectors", len(ids), len(vectors))
	}

	index := make(map[string]int, len(ids))
	for i, id := range ids {
		if _, ok := index[id]; ok {
			return nil, fmt.Errorf("duplicate table id %q", id)
		}
		index[id] = i

		if len(vectors[i]) != len(vectors[0]) {
			return nil, fmt.Errorf("%w: %s has %d dimensions, expected %d",
				ErrDimensionMismatch, id, len(vectors[i]), len(vectors[0]))
		}
	}

	return &Table{Model: model, IDs: ids, Vectors: vectors, index: index}, nil
}

// Index returns the column of id, or -1 when the table has no vector for it.
func (t *Table) Index(id string) int {
	if idx, ok := t.index[id]; ok {
		return idx
	}
	return -1
}

func (t *Table) Len() int { return len(t.IDs) }

func (t *Table) Dimensions() int {
	if len(t.Vectors) == 0 {
		return 0
	}
	return len(t.Vectors[0])
}
