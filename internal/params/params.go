// Package params resolves the compression and encoding parameters for a
// single optimization run. It maps a product type plus user overrides to a
// fully resolved Spec through a two-stage decision table: stage one picks
// and validates the compression algorithm, stage two derives the dependent
// knobs (predictor, quality, level, max error, decimals) conditioned on the
// resolved algorithm. Every knob that does not apply to the resolved
// algorithm is left nil; downstream stages branch on nil, not on the
// algorithm name.
package params

// Algorithm identifies a TIFF compression algorithm.
type Algorithm string

const (
	JPEG    Algorithm = "JPEG"
	JXL     Algorithm = "JXL"
	LZW     Algorithm = "LZW"
	Deflate Algorithm = "DEFLATE"
	ZSTD    Algorithm = "ZSTD"
	LERC    Algorithm = "LERC"
	None    Algorithm = "NONE"
)

// Product identifies the kind of data stored in the raster.
type Product string

const (
	DEM        Product = "dem"
	Image      Product = "image"
	ErrorGrid  Product = "error"
	Scientific Product = "scientific"
	Thematic   Product = "thematic"
)

// Products lists all known product types.
var Products = []Product{DEM, Image, ErrorGrid, Scientific, Thematic}

// Default knob values shared across product types.
const (
	DefaultTileSize     = 512
	DefaultQuality      = 90
	DefaultDeflateLevel = 6
	DefaultZSTDLevel    = 9
)

// Resampling identifies the overview resampling method.
type Resampling string

const (
	ResampleNearest  Resampling = "nearest"
	ResampleBilinear Resampling = "bilinear"
)

// Profile is the immutable per-product policy record. Profiles are fixed at
// compile time and never mutated; look one up with ProfileFor.
type Profile struct {
	Product          Product
	DefaultAlgorithm Algorithm
	RequiresVertical bool // a vertical reference must be supplied
	SingleBand       bool // multi-band input is rejected
	Continuous       bool // samples are continuous values (decimals apply)
	NoDataMeaningful bool // no-data values are preserved rather than masked

	DefaultPredictor int
	DefaultDecimals  int // valid only when Continuous
	DefaultMaxError  float64

	DefaultMaskAlpha  bool
	DefaultMaskNodata bool

	OverviewResampling Resampling
	RasterType         string // AREA_OR_POINT default: "Area" or "Point"
}

var profiles = map[Product]Profile{
	DEM: {
		Product:            DEM,
		DefaultAlgorithm:   Deflate,
		RequiresVertical:   true,
		SingleBand:         true,
		Continuous:         true,
		NoDataMeaningful:   true,
		DefaultPredictor:   2,
		DefaultDecimals:    2,
		DefaultMaxError:    0.01,
		DefaultMaskAlpha:   true,
		OverviewResampling: ResampleBilinear,
		RasterType:         "Point",
	},
	Image: {
		Product:            Image,
		DefaultAlgorithm:   JPEG,
		NoDataMeaningful:   false,
		DefaultMaskAlpha:   true,
		DefaultMaskNodata:  true,
		OverviewResampling: ResampleNearest,
		RasterType:         "Area",
	},
	ErrorGrid: {
		Product:            ErrorGrid,
		DefaultAlgorithm:   Deflate,
		SingleBand:         true,
		Continuous:         true,
		NoDataMeaningful:   true,
		DefaultPredictor:   2,
		DefaultDecimals:    1,
		DefaultMaxError:    0.1,
		DefaultMaskAlpha:   true,
		OverviewResampling: ResampleBilinear,
		RasterType:         "Point",
	},
	Scientific: {
		Product:            Scientific,
		DefaultAlgorithm:   Deflate,
		Continuous:         true,
		NoDataMeaningful:   true,
		DefaultPredictor:   3,
		DefaultDecimals:    8,
		DefaultMaxError:    0,
		DefaultMaskAlpha:   true,
		OverviewResampling: ResampleBilinear,
		RasterType:         "Point",
	},
	Thematic: {
		Product:            Thematic,
		DefaultAlgorithm:   Deflate,
		SingleBand:         true,
		NoDataMeaningful:   true,
		DefaultPredictor:   1,
		OverviewResampling: ResampleNearest,
		RasterType:         "Area",
	},
}

// ProfileFor returns the policy record for a product type.
func ProfileFor(p Product) (Profile, error) {
	prof, ok := profiles[p]
	if !ok {
		return Profile{}, &ValidationError{Field: "product", Reason: "unknown product type " + string(p)}
	}
	return prof, nil
}

// AllowedAlgorithms returns the algorithms valid for a product type.
// Visually-lossy codecs are restricted to imagery; the controlled-error
// codec to continuous single-purpose grids. Thematic data never compresses
// lossily.
func (p Profile) AllowedAlgorithms() []Algorithm {
	switch p.Product {
	case Image:
		return []Algorithm{JPEG, JXL, LZW, Deflate, ZSTD, None}
	case DEM, ErrorGrid, Scientific:
		return []Algorithm{LZW, Deflate, ZSTD, LERC, None}
	case Thematic:
		return []Algorithm{LZW, Deflate, ZSTD, None}
	}
	return nil
}

func (p Profile) allows(a Algorithm) bool {
	for _, allowed := range p.AllowedAlgorithms() {
		if a == allowed {
			return true
		}
	}
	return false
}

// Overrides carries the user-supplied knobs. Nil pointer fields (and empty
// strings) mean "not supplied"; Resolve fills them from the product profile.
type Overrides struct {
	Algorithm  Algorithm
	Quality    *int
	Predictor  *int
	Level      *int
	MaxError   *float64
	Decimals   *int
	TileSize   int
	MaskAlpha  *bool
	MaskNodata *bool
	Vertical   string // vertical reference: name, EPSG code or WKT
	NoData     *float64
	RasterType string
}

// Spec is the resolved, self-consistent parameter set for one run. It is
// produced once by Resolve and read-only afterwards. A knob is nil exactly
// when it does not apply to the resolved algorithm.
type Spec struct {
	Product   Product
	Profile   Profile
	Algorithm Algorithm

	Quality   *int     // visually-lossy codecs only
	Level     *int     // DEFLATE/ZSTD only
	Predictor *int     // LZW/DEFLATE/ZSTD only
	MaxError  *float64 // LERC only
	Decimals  *int     // LZW/DEFLATE/ZSTD on continuous products only

	TileSize   int
	MaskAlpha  bool
	MaskNodata bool
	Vertical   string
	NoData     *float64
	RasterType string
}


// Resolve maps a product type and user overrides to a validated Spec.
//
// Stage 1 resolves the algorithm: a user-supplied algorithm must be in the
// product's allowed set, otherwise the product default applies. Stage 2
// derives the dependent knobs for the resolved algorithm and rejects
// overrides that target a different algorithm family. It returns a
// *ValidationError for contradictory or missing required parameters.
func Resolve(product Product, ov Overrides) (*Spec, error) {
	prof, err := ProfileFor(product)
	if err != nil {
		return nil, err
	}

	if prof.RequiresVertical && ov.Vertical == "" {
		return nil, &ValidationError{
			Field:  "vertical",
			Reason: "a vertical reference is required for " + string(product) + " products",
		}
	}
	if product == Thematic && ov.MaskNodata != nil && *ov.MaskNodata {
		return nil, &ValidationError{
			Field:  "mask-nodata",
			Reason: "thematic products do not carry transparency masks",
		}
	}

	// Stage 1: algorithm selection.
	algo := ov.Algorithm
	if algo == "" {
		algo = prof.DefaultAlgorithm
	} else if !prof.allows(algo) {
		return nil, &ValidationError{
			Field:  "algorithm",
			Reason: string(algo) + " compression is not valid for " + string(product) + " products",
		}
	}

	spec := &Spec{
		Product:    product,
		Profile:    prof,
		Algorithm:  algo,
		TileSize:   ov.TileSize,
		Vertical:   ov.Vertical,
		NoData:     ov.NoData,
		RasterType: ov.RasterType,
	}
	if spec.TileSize == 0 {
		spec.TileSize = DefaultTileSize
	}
	if spec.RasterType == "" {
		spec.RasterType = prof.RasterType
	}

	// Stage 2: dependent knobs, one case per resolved algorithm. Knobs that
	// do not apply stay nil; supplying one for the wrong algorithm family is
	// a contradiction, not something to silently drop.
	switch algo {
	case JPEG, JXL:
		if err := rejectKnob(ov.Predictor != nil, "predictor", algo); err != nil {
			return nil, err
		}
		if err := rejectKnob(ov.Level != nil, "level", algo); err != nil {
			return nil, err
		}
		if err := rejectKnob(ov.MaxError != nil, "max-error", algo); err != nil {
			return nil, err
		}
		if err := rejectKnob(ov.Decimals != nil, "decimals", algo); err != nil {
			return nil, err
		}
		q := DefaultQuality
		if ov.Quality != nil {
			q = *ov.Quality
		}
		if q < 1 || q > 100 {
			return nil, &ValidationError{Field: "quality", Reason: "quality must be between 1 and 100"}
		}
		spec.Quality = &q

	case LZW, Deflate, ZSTD:
		if err := rejectKnob(ov.Quality != nil, "quality", algo); err != nil {
			return nil, err
		}
		if err := rejectKnob(ov.MaxError != nil, "max-error", algo); err != nil {
			return nil, err
		}
		pred := prof.DefaultPredictor
		if ov.Predictor != nil {
			pred = *ov.Predictor
		}
		if pred != 0 {
			if pred < 1 || pred > 3 {
				return nil, &ValidationError{Field: "predictor", Reason: "predictor must be 1, 2 or 3"}
			}
			spec.Predictor = &pred
		}
		switch algo {
		case Deflate:
			lvl := DefaultDeflateLevel
			if ov.Level != nil {
				lvl = *ov.Level
			}
			spec.Level = &lvl
		case ZSTD:
			lvl := DefaultZSTDLevel
			if ov.Level != nil {
				lvl = *ov.Level
			}
			spec.Level = &lvl
		default:
			if err := rejectKnob(ov.Level != nil, "level", algo); err != nil {
				return nil, err
			}
		}
		if prof.Continuous {
			dec := prof.DefaultDecimals
			if ov.Decimals != nil {
				dec = *ov.Decimals
			}
			spec.Decimals = &dec
		} else if ov.Decimals != nil {
			return nil, &ValidationError{
				Field:  "decimals",
				Reason: "decimal rounding does not apply to " + string(product) + " products",
			}
		}

	case LERC:
		if err := rejectKnob(ov.Quality != nil, "quality", algo); err != nil {
			return nil, err
		}
		if err := rejectKnob(ov.Predictor != nil, "predictor", algo); err != nil {
			return nil, err
		}
		if err := rejectKnob(ov.Level != nil, "level", algo); err != nil {
			return nil, err
		}
		if ov.Decimals != nil {
			return nil, &ValidationError{
				Field:  "decimals",
				Reason: "decimals cannot be combined with the controlled-error codec; use max-error",
			}
		}
		me := prof.DefaultMaxError
		if ov.MaxError != nil {
			me = *ov.MaxError
		}
		if me < 0 {
			return nil, &ValidationError{Field: "max-error", Reason: "max-error must not be negative"}
		}
		spec.MaxError = &me

	case None:
		if err := rejectKnob(ov.Quality != nil, "quality", algo); err != nil {
			return nil, err
		}
		if err := rejectKnob(ov.Predictor != nil, "predictor", algo); err != nil {
			return nil, err
		}
		if err := rejectKnob(ov.Level != nil, "level", algo); err != nil {
			return nil, err
		}
		if err := rejectKnob(ov.MaxError != nil, "max-error", algo); err != nil {
			return nil, err
		}
		if err := rejectKnob(ov.Decimals != nil, "decimals", algo); err != nil {
			return nil, err
		}
	}

	// Mask policy.
	spec.MaskAlpha = prof.DefaultMaskAlpha
	if ov.MaskAlpha != nil {
		spec.MaskAlpha = *ov.MaskAlpha
	}
	spec.MaskNodata = prof.DefaultMaskNodata
	if ov.MaskNodata != nil {
		spec.MaskNodata = *ov.MaskNodata
	}
	if product == Thematic {
		spec.MaskAlpha = false
		spec.MaskNodata = false
	}

	return spec, nil
}

func rejectKnob(supplied bool, field string, algo Algorithm) error {
	if !supplied {
		return nil
	}
	return &ValidationError{
		Field:  field,
		Reason: field + " does not apply to " + string(algo) + " compression",
	}
}

// CheckBandCount enforces the product's band-count restriction against the
// opened input. The alpha band, when present, is not counted as a sample
// band here because mask conversion may remove it.
func CheckBandCount(prof Profile, bands int) error {
	if prof.SingleBand && bands > 1 {
		return &BandCountError{Product: prof.Product, Bands: bands}
	}
	return nil
}
