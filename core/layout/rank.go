package layout

import (
	"sort"

	"github.com/kilianp07/caveplan/core/model"
)

// StartIndexer resolves the starting block index of a column.
type StartIndexer interface {
	StartingIndex(s model.Subscript) (int, bool)
	Dims() (int, int)
}

// Orderer resolves the activation order of a column.
type Orderer interface {
	Order(s model.Subscript) (int, bool)
}

// Rank lists every column that has both a footprint entry and a sequence
// order, in ascending order. Equal orders fall back to subscript order.
func Rank(fp StartIndexer, seq Orderer) []model.Subscript {
	type ranked struct {
		sub   model.Subscript
		order int
	}
	rows, cols := fp.Dims()
	var list []ranked
	for i := 0; i < rows; i++ {
		for j := 0; j < cols; j++ {
			s := model.Subscript{I: i, J: j}
			if _, ok := fp.StartingIndex(s); !ok {
				continue
			}
			o, ok := seq.Order(s)
			if !ok {
				continue
			}
			list = append(list, ranked{sub: s, order: o})
		}
	}
	sort.SliceStable(list, func(a, b int) bool {
		if list[a].order != list[b].order {
			return list[a].order < list[b].order
		}
		return list[a].sub.Less(list[b].sub)
	})
	out := make([]model.Subscript, len(list))
	for i, r := range list {
		out[i] = r.sub
	}
	return out
}
