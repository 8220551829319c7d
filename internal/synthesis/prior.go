package synthesis

import "fmt"

// PriorKind tells which composite the update stage builds upon.
type PriorKind int

const (
	// PriorNone starts the composite from scratch.
	PriorNone PriorKind = iota
	// PriorFinishedProduct seeds the composite with a delivered product.
	PriorFinishedProduct
	// PriorPreviousIteration continues the composite of the last iteration.
	PriorPreviousIteration
)

func (k PriorKind) String() string {
	switch k {
	case PriorNone:
		return "none"
	case PriorFinishedProduct:
		return "finished-product"
	case PriorPreviousIteration:
		return "previous-iteration"
	}
	return fmt.Sprintf("PriorKind(%d)", int(k))
}

// FinishedProductRasters are the rasters of one resolution tier of a
// delivered product.
type FinishedProductRasters struct {
	Weights     string
	Dates       string
	Reflectance string
	Flags       string
}

// PriorComposite is the composite an iteration updates. The zero value is
// PriorNone.
type PriorComposite struct {
	kind      PriorKind
	composite []string
	finished  []FinishedProductRasters
}

// NoPrior returns the empty prior.
func NoPrior() PriorComposite { return PriorComposite{} }

// FromPreviousIteration wraps the per-tier composite of an iteration.
func FromPreviousIteration(paths []string) PriorComposite {
	return PriorComposite{kind: PriorPreviousIteration, composite: append([]string(nil), paths...)}
}

// FromFinishedProduct wraps the per-tier rasters of a delivered product.
func FromFinishedProduct(rasters []FinishedProductRasters) PriorComposite {
	return PriorComposite{kind: PriorFinishedProduct, finished: append([]FinishedProductRasters(nil), rasters...)}
}

func (p PriorComposite) Kind() PriorKind { return p.kind }

// CompositePaths returns the per-tier previous-iteration composite, or nil
// for other kinds.
func (p PriorComposite) CompositePaths() []string {
	if p.kind != PriorPreviousIteration {
		return nil
	}
	return append([]string(nil), p.composite...)
}

// Args returns the update-stage arguments for the tier at index ti, whose
// suffix is tier.
func (p PriorComposite) Args(ti int, tier string) []string {
	switch p.kind {
	case PriorPreviousIteration:
		if ti < len(p.composite) {
			return []string{"-prevproductr" + tier, p.composite[ti]}
		}
	case PriorFinishedProduct:
		if ti < len(p.finished) {
			f := p.finished[ti]
			return []string{
				"-prevl3weightsr" + tier, f.Weights,
				"-prevl3datesr" + tier, f.Dates,
				"-prevl3reflr" + tier, f.Reflectance,
				"-prevl3flagsr" + tier, f.Flags,
			}
		}
	}
	return nil
}
