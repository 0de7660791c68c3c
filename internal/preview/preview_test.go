package preview

import (
	"math"
	"testing"
)

func TestGrayImageStretch(t *testing.T) {
	samples := []float64{100, 150, 200, math.NaN()}
	img := grayImage(samples, 2, 2)
	if img.Pix[0] != 0 {
		t.Errorf("minimum sample rendered %d, want 0", img.Pix[0])
	}
	if img.Pix[2] != 255 {
		t.Errorf("maximum sample rendered %d, want 255", img.Pix[2])
	}
	if img.Pix[1] != 128 {
		t.Errorf("midpoint sample rendered %d, want 128", img.Pix[1])
	}
	if img.Pix[3] != 0 {
		t.Errorf("NaN sample rendered %d, want 0", img.Pix[3])
	}
}

func TestGrayImageConstant(t *testing.T) {
	img := grayImage([]float64{7, 7, 7, 7}, 2, 2)
	for i, p := range img.Pix {
		if p != 0 {
			t.Fatalf("constant raster pixel %d = %d, want 0", i, p)
		}
	}
}

func TestRGBImageClamps(t *testing.T) {
	rgb := [3][]float64{{-5}, {128}, {300}}
	img := rgbImage(rgb, 1, 1)
	if img.Pix[0] != 0 || img.Pix[1] != 128 || img.Pix[2] != 255 || img.Pix[3] != 255 {
		t.Errorf("pixel = %v, want [0 128 255 255]", img.Pix[:4])
	}
}
