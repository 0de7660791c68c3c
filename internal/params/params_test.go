package params

import (
	"errors"
	"testing"
)

func intPtr(v int) *int          { return &v }
func f64Ptr(v float64) *float64  { return &v }
func boolPtr(v bool) *bool       { return &v }

// vertical returns overrides that satisfy the vertical requirement so that
// tests can focus on the knob under test.
func vertical(ov Overrides) Overrides {
	if ov.Vertical == "" {
		ov.Vertical = "EPSG:5773"
	}
	return ov
}

func TestResolveExhaustiveNullInvariant(t *testing.T) {
	for _, product := range Products {
		prof, err := ProfileFor(product)
		if err != nil {
			t.Fatalf("ProfileFor(%s): %v", product, err)
		}
		for _, algo := range prof.AllowedAlgorithms() {
			spec, err := Resolve(product, vertical(Overrides{Algorithm: algo}))
			if err != nil {
				t.Errorf("Resolve(%s, %s): %v", product, algo, err)
				continue
			}

			wantQuality := algo == JPEG || algo == JXL
			wantPredictor := (algo == LZW || algo == Deflate || algo == ZSTD) && prof.DefaultPredictor != 0
			wantLevel := algo == Deflate || algo == ZSTD
			wantMaxError := algo == LERC
			wantDecimals := (algo == LZW || algo == Deflate || algo == ZSTD) && prof.Continuous

			if got := spec.Quality != nil; got != wantQuality {
				t.Errorf("%s/%s: quality set = %v, want %v", product, algo, got, wantQuality)
			}
			if got := spec.Predictor != nil; got != wantPredictor {
				t.Errorf("%s/%s: predictor set = %v, want %v", product, algo, got, wantPredictor)
			}
			if got := spec.Level != nil; got != wantLevel {
				t.Errorf("%s/%s: level set = %v, want %v", product, algo, got, wantLevel)
			}
			if got := spec.MaxError != nil; got != wantMaxError {
				t.Errorf("%s/%s: max-error set = %v, want %v", product, algo, got, wantMaxError)
			}
			if got := spec.Decimals != nil; got != wantDecimals {
				t.Errorf("%s/%s: decimals set = %v, want %v", product, algo, got, wantDecimals)
			}
			if spec.MaxError != nil && spec.Decimals != nil {
				t.Errorf("%s/%s: max-error and decimals are both set", product, algo)
			}
		}
	}
}

func TestResolveDefaults(t *testing.T) {
	spec, err := Resolve(DEM, Overrides{Vertical: "EPSG:5773"})
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if spec.Algorithm != Deflate {
		t.Errorf("algorithm = %s, want DEFLATE", spec.Algorithm)
	}
	if spec.Decimals == nil || *spec.Decimals != 2 {
		t.Errorf("decimals = %v, want 2", spec.Decimals)
	}
	if spec.Predictor == nil || *spec.Predictor != 2 {
		t.Errorf("predictor = %v, want 2", spec.Predictor)
	}
	if spec.Level == nil || *spec.Level != DefaultDeflateLevel {
		t.Errorf("level = %v, want %d", spec.Level, DefaultDeflateLevel)
	}
	if spec.MaxError != nil {
		t.Errorf("max-error = %v, want nil", *spec.MaxError)
	}
	if spec.TileSize != DefaultTileSize {
		t.Errorf("tile size = %d, want %d", spec.TileSize, DefaultTileSize)
	}

	img, err := Resolve(Image, Overrides{})
	if err != nil {
		t.Fatalf("Resolve(image): %v", err)
	}
	if img.Algorithm != JPEG {
		t.Errorf("image algorithm = %s, want JPEG", img.Algorithm)
	}
	if img.Quality == nil || *img.Quality != DefaultQuality {
		t.Errorf("image quality = %v, want %d", img.Quality, DefaultQuality)
	}
	if !img.MaskAlpha || !img.MaskNodata {
		t.Errorf("image mask defaults = (%v, %v), want (true, true)", img.MaskAlpha, img.MaskNodata)
	}
}

func TestResolveRejectsContradictions(t *testing.T) {
	tests := []struct {
		name    string
		product Product
		ov      Overrides
	}{
		{"lossy codec for DEM", DEM, vertical(Overrides{Algorithm: JPEG})},
		{"lossy codec for thematic", Thematic, Overrides{Algorithm: JXL}},
		{"controlled-error codec for imagery", Image, Overrides{Algorithm: LERC}},
		{"controlled-error codec for thematic", Thematic, Overrides{Algorithm: LERC}},
		{"decimals with controlled-error codec", DEM, vertical(Overrides{Algorithm: LERC, Decimals: intPtr(2)})},
		{"quality with dictionary codec", DEM, vertical(Overrides{Algorithm: Deflate, Quality: intPtr(85)})},
		{"max-error with dictionary codec", DEM, vertical(Overrides{Algorithm: ZSTD, MaxError: f64Ptr(0.5)})},
		{"predictor with lossy codec", Image, Overrides{Algorithm: JPEG, Predictor: intPtr(2)}},
		{"level with LZW", DEM, vertical(Overrides{Algorithm: LZW, Level: intPtr(6)})},
		{"decimals for thematic", Thematic, Overrides{Algorithm: Deflate, Decimals: intPtr(2)}},
		{"missing vertical for DEM", DEM, Overrides{}},
		{"mask-nodata for thematic", Thematic, Overrides{MaskNodata: boolPtr(true)}},
		{"quality out of range", Image, Overrides{Algorithm: JPEG, Quality: intPtr(0)}},
		{"unknown product", Product("lidar"), Overrides{}},
	}

	for _, tt := range tests {
		_, err := Resolve(tt.product, tt.ov)
		var verr *ValidationError
		if !errors.As(err, &verr) {
			t.Errorf("%s: error = %v, want *ValidationError", tt.name, err)
		}
	}
}

func TestResolveOverrides(t *testing.T) {
	spec, err := Resolve(Scientific, Overrides{
		Algorithm: ZSTD,
		Level:     intPtr(19),
		Decimals:  intPtr(4),
		Predictor: intPtr(3),
		TileSize:  256,
	})
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if *spec.Level != 19 || *spec.Decimals != 4 || *spec.Predictor != 3 || spec.TileSize != 256 {
		t.Errorf("overrides not honored: level=%d decimals=%d predictor=%d tile=%d",
			*spec.Level, *spec.Decimals, *spec.Predictor, spec.TileSize)
	}
}

func TestResolveThematicForcesMasksOff(t *testing.T) {
	spec, err := Resolve(Thematic, Overrides{MaskAlpha: boolPtr(true)})
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if spec.MaskAlpha || spec.MaskNodata {
		t.Errorf("thematic masks = (%v, %v), want both false", spec.MaskAlpha, spec.MaskNodata)
	}
	if spec.Predictor == nil || *spec.Predictor != 1 {
		t.Errorf("thematic predictor = %v, want 1", spec.Predictor)
	}
}

func TestCheckBandCount(t *testing.T) {
	for _, product := range []Product{DEM, ErrorGrid, Thematic} {
		prof, _ := ProfileFor(product)
		err := CheckBandCount(prof, 3)
		var berr *BandCountError
		if !errors.As(err, &berr) {
			t.Errorf("%s with 3 bands: error = %v, want *BandCountError", product, err)
		}
		if err := CheckBandCount(prof, 1); err != nil {
			t.Errorf("%s with 1 band: %v", product, err)
		}
	}
	for _, product := range []Product{Image, Scientific} {
		prof, _ := ProfileFor(product)
		if err := CheckBandCount(prof, 4); err != nil {
			t.Errorf("%s with 4 bands: %v", product, err)
		}
	}
}
