package crs

import "testing"

const webMercatorWKT = `PROJCS["WGS 84 / Pseudo-Mercator",GEOGCS["WGS 84",DATUM["WGS_1984",SPHEROID["WGS 84",6378137,298.257223563,AUTHORITY["EPSG","7030"]],AUTHORITY["EPSG","6326"]],AUTHORITY["EPSG","4326"]],PROJECTION["Mercator_1SP"],AUTHORITY["EPSG","3857"]]`

func TestHorizontalFromWKT(t *testing.T) {
	h := HorizontalFromWKT(webMercatorWKT)
	if h.Name != "WGS 84 / Pseudo-Mercator" {
		t.Errorf("name = %q", h.Name)
	}
	if h.EPSG != 3857 {
		t.Errorf("EPSG = %d, want 3857", h.EPSG)
	}
	if !h.Registered() {
		t.Error("Registered() = false")
	}
}

func TestHorizontalFromWKT2ID(t *testing.T) {
	wkt := `GEOGCRS["WGS 84",DATUM["World Geodetic System 1984",ELLIPSOID["WGS 84",6378137,298.257223563]],ID["EPSG",4326]]`
	h := HorizontalFromWKT(wkt)
	if h.EPSG != 4326 {
		t.Errorf("EPSG = %d, want 4326", h.EPSG)
	}
}

func TestHorizontalFromCompoundWKT(t *testing.T) {
	wkt := `COMPD_CS["WGS 84 + EGM96",GEOGCS["WGS 84",AUTHORITY["EPSG","4326"]],VERT_CS["EGM96 height",VERT_DATUM["EGM96 geoid",2005],AUTHORITY["EPSG","5773"]]]`
	h := HorizontalFromWKT(wkt)
	if h.EPSG != 0 {
		t.Errorf("compound definition sniffed EPSG %d, want 0", h.EPSG)
	}
	if h.Name != "WGS 84 + EGM96" {
		t.Errorf("name = %q", h.Name)
	}
}

func TestVerticalNameFromWKT(t *testing.T) {
	wkt := `COMPD_CS["c",GEOGCS["WGS 84"],VERT_CS["EGM96 height",VERT_DATUM["EGM96 geoid",2005]]]`
	if got := VerticalNameFromWKT(wkt); got != "EGM96 height" {
		t.Errorf("vertical name = %q, want %q", got, "EGM96 height")
	}
	if got := VerticalNameFromWKT(webMercatorWKT); got != "" {
		t.Errorf("horizontal-only definition yielded vertical name %q", got)
	}
}
