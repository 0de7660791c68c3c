package crs

import (
	"strconv"
	"strings"
)

// HorizontalFromWKT builds a horizontal reference descriptor from a
// definition string as read out of an input file. The registered code is
// sniffed from the trailing authority clause; compound definitions keep
// code 0 since the outer authority would belong to the full compound.
func HorizontalFromWKT(wkt string) HorizontalRef {
	wkt = strings.TrimSpace(wkt)
	h := HorizontalRef{Name: wktName(wkt), WKT: wkt}
	if !isCompoundWKT(wkt) {
		h.EPSG = wktEPSG(wkt)
	}
	return h
}

// VerticalNameFromWKT returns the name of the vertical component embedded
// in a definition, or "" when the definition has none.
func VerticalNameFromWKT(wkt string) string {
	for _, kw := range []string{"VERTCRS[", "VERT_CS[", "VERTCS["} {
		if i := strings.Index(wkt, kw); i >= 0 {
			return wktName(wkt[i:])
		}
	}
	return ""
}

func isCompoundWKT(wkt string) bool {
	return strings.HasPrefix(wkt, "COMPD_CS[") || strings.HasPrefix(wkt, "COMPOUNDCRS[")
}

// wktEPSG sniffs the registered code from the outermost authority clause.
// In WKT1 the outer AUTHORITY is the last one in the text; WKT2 puts the
// outer ID last as well.
func wktEPSG(wkt string) int {
	for _, form := range []struct{ prefix, terminator string }{
		{`AUTHORITY["EPSG","`, `"`},
		{`ID["EPSG",`, `]`},
	} {
		if i := strings.LastIndex(wkt, form.prefix); i >= 0 {
			rest := wkt[i+len(form.prefix):]
			end := strings.Index(rest, form.terminator)
			if end <= 0 {
				continue
			}
			if n, err := strconv.Atoi(strings.TrimSpace(rest[:end])); err == nil && n > 0 {
				return n
			}
		}
	}
	return 0
}
