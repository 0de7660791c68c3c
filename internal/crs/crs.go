// Package crs resolves horizontal and vertical reference information into a
// compound reference descriptor. Vertical input is accepted as a friendly
// name, a registered EPSG code, or a raw WKT definition. Datums without a
// registered code are carried as full WKT text: the GeoTIFF key/code
// directory cannot represent them, so the compound definition is preserved
// verbatim for the side-channel metadata item and the key directory falls
// back to the generic user-defined placeholder. That fallback is documented
// lossy behavior of the encoding, not an error.
package crs

import (
	"fmt"
	"log"
	"strconv"
	"strings"
)


// HorizontalRef describes the horizontal (2-D) component of a reference
// system as read from the input raster.
type HorizontalRef struct {
	Name string
	EPSG int    // 0 when the identifier is not a registered code
	WKT  string // full definition as stored in the input
}

// Registered reports whether the horizontal reference carries a registered
// identifier.
func (h HorizontalRef) Registered() bool { return h.EPSG != 0 }

// VerticalRef describes a resolved vertical datum. Exactly one of EPSG and
// WKT identifies it: WKT is set when the datum has no registered code.
type VerticalRef struct {
	Name string
	EPSG int
	WKT  string
}

// Compound is the resolved compound reference descriptor. Vertical is nil
// when the product carries no vertical component. When Registered is false
// the full compound definition in WKT must be written through the
// side-channel metadata item because the key/code encoding cannot hold it.
type Compound struct {
	Horizontal HorizontalRef
	Vertical   *VerticalRef
	Name       string
	WKT        string
	Registered bool
}

// SynthesisError reports an unresolvable vertical or horizontal reference.
type SynthesisError struct {
	Input  string
	Reason string
}

func (e *SynthesisError) Error() string {
	if e.Input == "" {
		return "reference synthesis failed: " + e.Reason
	}
	return fmt.Sprintf("reference synthesis failed for %q: %s", e.Input, e.Reason)
}

// Synthesize resolves the horizontal reference and the optional vertical
// input into a compound descriptor. requireVertical marks product types
// (elevation models) for which a missing vertical input is an error rather
// than an empty vertical component.
func Synthesize(horizontal HorizontalRef, verticalInput string, requireVertical bool) (*Compound, error) {
	if err := loadRegistries(); err != nil {
		return nil, err
	}

	horizontal = upgradeHorizontal(horizontal)

	if verticalInput == "" {
		if requireVertical {
			return nil, &SynthesisError{Reason: "a vertical reference is required but none was supplied"}
		}
		return &Compound{
			Horizontal: horizontal,
			Name:       horizontal.Name,
			WKT:        horizontal.WKT,
			Registered: true,
		}, nil
	}

	vert, err := ParseVertical(verticalInput)
	if err != nil {
		return nil, err
	}

	name := horizontal.Name + " + " + vert.Name
	c := &Compound{
		Horizontal: horizontal,
		Vertical:   vert,
		Name:       name,
		Registered: vert.EPSG != 0,
	}

	// The compound definition text is always assembled for the unregistered
	// case (the side channel needs it); for registered verticals the WKT is
	// stitched only when both component definitions are at hand, since the
	// key/code directory fully identifies the system on its own.
	if !c.Registered || (horizontal.WKT != "" && vert.WKT != "") {
		c.WKT = compoundWKT(name, horizontal, vert)
	}
	if !c.Registered && c.WKT == "" {
		return nil, &SynthesisError{
			Input:  verticalInput,
			Reason: "vertical datum has no registered code and no textual definition to preserve",
		}
	}

	return c, nil
}

// ParseVertical resolves vertical input given as a friendly name, an
// abbreviation, an EPSG code ("5773" or "EPSG:5773"), or a raw WKT
// definition.
func ParseVertical(input string) (*VerticalRef, error) {
	if err := loadRegistries(); err != nil {
		return nil, err
	}

	trimmed := strings.TrimSpace(input)
	upper := strings.ToUpper(trimmed)

	if e, ok := lookupVertical(trimmed); ok {
		ref := &VerticalRef{Name: e.Name, EPSG: e.EPSG, WKT: strings.TrimSpace(e.WKT)}
		if ref.EPSG == 0 && ref.WKT == "" {
			return nil, &SynthesisError{Input: input, Reason: "registry entry has neither EPSG code nor definition"}
		}
		if ref.WKT != "" && ref.Name == "" {
			ref.Name = wktName(ref.WKT)
		}
		return ref, nil
	}

	if code, ok := strings.CutPrefix(upper, "EPSG:"); ok {
		n, err := strconv.Atoi(strings.TrimSpace(code))
		if err != nil || n <= 0 {
			return nil, &SynthesisError{Input: input, Reason: "malformed EPSG code"}
		}
		return &VerticalRef{Name: "EPSG:" + strconv.Itoa(n), EPSG: n}, nil
	}
	if n, err := strconv.Atoi(trimmed); err == nil && n > 0 {
		return &VerticalRef{Name: "EPSG:" + strconv.Itoa(n), EPSG: n}, nil
	}

	if isVerticalWKT(trimmed) {
		name := wktName(trimmed)
		if name == "" {
			return nil, &SynthesisError{Input: input, Reason: "vertical WKT definition has no name"}
		}
		return &VerticalRef{Name: name, WKT: trimmed}, nil
	}

	return nil, &SynthesisError{
		Input:  input,
		Reason: "not a known vertical datum name, EPSG code, or WKT definition",
	}
}

// upgradeHorizontal promotes a horizontal reference whose identifier is not
// a registered code using the vendor name registry. No match is not fatal:
// the original definition is kept and a warning logged, because refusing to
// process a raster over a cosmetic naming difference helps nobody.
func upgradeHorizontal(h HorizontalRef) HorizontalRef {
	if h.Registered() || h.Name == "" {
		return h
	}
	if code := VendorEPSG(h.Name); code != 0 {
		log.Printf("Standardized horizontal reference %q to EPSG:%d via vendor name lookup", h.Name, code)
		h.EPSG = code
		return h
	}
	log.Printf("Warning: horizontal reference %q has no registered identifier; keeping original definition", h.Name)
	return h
}

// compoundWKT stitches a WKT2 COMPOUNDCRS from the component definitions,
// the same manual construction the GeoTIFF writers fall back to when the
// vertical component would otherwise degrade to an unknown datum.
func compoundWKT(name string, h HorizontalRef, v *VerticalRef) string {
	horiz := strings.TrimSpace(h.WKT)
	if horiz == "" {
		return ""
	}
	vert := strings.TrimSpace(v.WKT)
	if vert == "" {
		return ""
	}
	return fmt.Sprintf("COMPOUNDCRS[%q,%s,%s]", name, horiz, vert)
}

// isVerticalWKT reports whether the input looks like a vertical coordinate
// system definition in WKT1 or WKT2 form.
func isVerticalWKT(s string) bool {
	for _, prefix := range []string{"VERTCRS[", "VERT_CS[", "VERTCS["} {
		if strings.HasPrefix(s, prefix) {
			return true
		}
	}
	return false
}

// wktName extracts the quoted name immediately following the first keyword
// of a WKT definition.
func wktName(wkt string) string {
	start := strings.IndexByte(wkt, '"')
	if start < 0 {
		return ""
	}
	end := strings.IndexByte(wkt[start+1:], '"')
	if end < 0 {
		return ""
	}
	return wkt[start+1 : start+1+end]
}

// CheckVerticalMismatch warns when the vertical datum already recorded in
// the input does not match the user-supplied one. The user choice wins;
// the warning exists so a human can catch a mislabeled file.
func CheckVerticalMismatch(fileVerticalName, userInput, path string) {
	if userInput == "" || fileVerticalName == "" {
		return
	}
	ref, err := ParseVertical(userInput)
	if err != nil {
		log.Printf("Warning: could not parse vertical reference %q for mismatch check: %v", userInput, err)
		return
	}
	if !strings.Contains(strings.ToLower(fileVerticalName), strings.ToLower(ref.Name)) &&
		!strings.Contains(strings.ToLower(ref.Name), strings.ToLower(fileVerticalName)) {
		log.Printf("Warning: %s: vertical reference %q does not match the file's vertical datum %q",
			path, userInput, fileVerticalName)
	}
}
