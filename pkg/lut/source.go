package lut

import (
	"bufio"
	"fmt"
	"io"
)

const valuesPerLine = 16

// WriteSource writes t as a Go source file declaring DefaultTable in package pkg.
func WriteSource(w io.Writer, pkg string, t *Table, m Magnet, maxTravel uint16) error {
	bw := bufio.NewWriter(w)

	fmt.Fprintf(bw, "// Code generated by hekey lutgen; DO NOT EDIT.\n\n")
	fmt.Fprintf(bw, "package %s\n\n", pkg)
	fmt.Fprintf(bw, "// DefaultTable was generated for radius=%gmm thickness=%gmm br=%gmT air_gap=%gmm travel=%d.\n",
		m.Radius, m.Thickness, m.ResidualInduction, m.AirGap, maxTravel)
	fmt.Fprintf(bw, "var DefaultTable = Table{\n")
	for i := 0; i < Size; i += valuesPerLine {
		bw.WriteByte('\t')
		for j := i; j < i+valuesPerLine; j++ {
			if j > i {
				bw.WriteByte(' ')
			}
			fmt.Fprintf(bw, "%d,", t[j])
		}
		bw.WriteByte('\n')
	}
	fmt.Fprintf(bw, "}\n")

	if err := bw.Flush(); err != nil {
		return fmt.Errorf("failed to write table source: %w", err)
	}
	return nil
}
