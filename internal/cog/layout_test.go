package cog

import "testing"

func TestComputeLayoutHalving(t *testing.T) {
	layout, err := ComputeLayout(10000, 7500, 512)
	if err != nil {
		t.Fatalf("ComputeLayout: %v", err)
	}
	want := []OverviewLevel{
		{Factor: 2, Width: 5000, Height: 3750},
		{Factor: 4, Width: 2500, Height: 1875},
		{Factor: 8, Width: 1250, Height: 938},
		{Factor: 16, Width: 625, Height: 469},
		{Factor: 32, Width: 313, Height: 235},
	}
	if len(layout.Overviews) != len(want) {
		t.Fatalf("got %d levels, want %d: %+v", len(layout.Overviews), len(want), layout.Overviews)
	}
	for i, w := range want {
		if layout.Overviews[i] != w {
			t.Errorf("level %d = %+v, want %+v", i, layout.Overviews[i], w)
		}
	}
	last := layout.Overviews[len(layout.Overviews)-1]
	if last.Width > 512 || last.Height > 512 {
		t.Errorf("last level %dx%d does not fit one tile", last.Width, last.Height)
	}
}

func TestComputeLayoutSingleTile(t *testing.T) {
	layout, err := ComputeLayout(512, 300, 512)
	if err != nil {
		t.Fatalf("ComputeLayout: %v", err)
	}
	if len(layout.Overviews) != 0 {
		t.Errorf("raster within one tile got %d overviews", len(layout.Overviews))
	}
}

func TestComputeLayoutFactors(t *testing.T) {
	layout, err := ComputeLayout(4096, 4096, 512)
	if err != nil {
		t.Fatalf("ComputeLayout: %v", err)
	}
	factors := layout.Factors()
	want := []int{2, 4, 8}
	if len(factors) != len(want) {
		t.Fatalf("factors = %v, want %v", factors, want)
	}
	for i := range want {
		if factors[i] != want[i] {
			t.Fatalf("factors = %v, want %v", factors, want)
		}
	}
}

func TestComputeLayoutRejectsBadInput(t *testing.T) {
	if _, err := ComputeLayout(0, 100, 512); err == nil {
		t.Error("zero width accepted")
	}
	if _, err := ComputeLayout(100, 100, 500); err == nil {
		t.Error("tile size not a multiple of 16 accepted")
	}
	if _, err := ComputeLayout(100, 100, 0); err == nil {
		t.Error("zero tile size accepted")
	}
}
