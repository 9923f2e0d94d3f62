package model

import "fmt"

// Subscript identifies a footprint column by its (i, j) grid position.
type Subscript struct {
	I int `json:"i"`
	J int `json:"j"`
}

// Less orders subscripts by row then column.
func (s Subscript) Less(o Subscript) bool {
	if s.I != o.I {
		return s.I < o.I
	}
	return s.J < o.J
}

func (s Subscript) String() string {
	return fmt.Sprintf("(%d,%d)", s.I, s.J)
}
