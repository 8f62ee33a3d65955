package export

import (
	"fmt"

	"github.com/xuri/excelize/v2"
)

type stripe [3]int // indexed by cellKind

type styles struct {
	header int
	even   stripe
	odd    stripe
}

func thinBorder() []excelize.Border {
	var out []excelize.Border
	for _, side := range []string{"left", "top", "right", "bottom"} {
		out = append(out, excelize.Border{Type: side, Color: "#BFBFBF", Style: 1})
	}
	return out
}

func newStyles(f *excelize.File) (*styles, error) {
	st := &styles{}
	var err error
	st.header, err = f.NewStyle(&excelize.Style{
		Font:      &excelize.Font{Bold: true, Color: "#FFFFFF"},
		Fill:      excelize.Fill{Type: "pattern", Color: []string{headerFill}, Pattern: 1},
		Alignment: &excelize.Alignment{Horizontal: "center", Vertical: "center", WrapText: true},
		Border:    thinBorder(),
	})
	if err != nil {
		return nil, fmt.Errorf("header style: %w", err)
	}
	if st.even, err = newStripe(f, evenFill); err != nil {
		return nil, err
	}
	if st.odd, err = newStripe(f, oddFill); err != nil {
		return nil, err
	}
	return st, nil
}

func newStripe(f *excelize.File, color string) (stripe, error) {
	var s stripe
	fill := excelize.Fill{Type: "pattern", Color: []string{color}, Pattern: 1}
	ts := timestampFormat
	variants := [3]*excelize.Style{
		kindText:      {Fill: fill, Border: thinBorder()},
		kindMoney:     {Fill: fill, Border: thinBorder(), NumFmt: numFmtTwoPlaces},
		kindTimestamp: {Fill: fill, Border: thinBorder(), CustomNumFmt: &ts},
	}
	for k, v := range variants {
		id, err := f.NewStyle(v)
		if err != nil {
			return s, fmt.Errorf("row style %s: %w", color, err)
		}
		s[k] = id
	}
	return s, nil
}

// data picks the style of a data cell. Row index 1 is the first data row
// and takes the even fill. Placeholder text in a typed column is styled as
// text.
func (st *styles) data(index int, kind cellKind, v any) int {
	s := st.odd
	if index%2 == 1 {
		s = st.even
	}
	if _, ok := v.(string); ok {
		return s[kindText]
	}
	return s[kind]
}
