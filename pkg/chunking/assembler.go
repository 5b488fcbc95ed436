package chunking

import (
	"fmt"
	"strings"

	"github.com/shivavenkatesh/segmenta/pkg/chunkerr"
)

// OverlapPolicy decides when the overlap window is trimmed relative to
// admitting a new part. The two policies only differ for parts larger than
// the overlap budget.
type OverlapPolicy int

const (
	// EvictBeforeAdmit trims the window so the incoming part would fit,
	// then admits the part if it fits the budget on its own. An oversized
	// part therefore empties the window.
	EvictBeforeAdmit OverlapPolicy = iota
	// AdmitThenEvict admits a part that fits the budget and then trims the
	// window from the front. An oversized part leaves the window untouched.
	AdmitThenEvict
)

// ParseOverlapPolicy maps a configuration name to a policy. The empty
// string selects EvictBeforeAdmit.
func ParseOverlapPolicy(name string) (OverlapPolicy, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "", "evict-before-admit":
		return EvictBeforeAdmit, nil
	case "admit-then-evict":
		return AdmitThenEvict, nil
	default:
		return 0, chunkerr.Invalidf("unknown overlap policy %q", name)
	}
}

func (p OverlapPolicy) valid() bool {
	return p == EvictBeforeAdmit || p == AdmitThenEvict
}

// String returns the configuration name of the policy.
func (p OverlapPolicy) String() string {
	switch p {
	case EvictBeforeAdmit:
		return "evict-before-admit"
	case AdmitThenEvict:
		return "admit-then-evict"
	default:
		return fmt.Sprintf("OverlapPolicy(%d)", int(p))
	}
}

// assembler packs a stream of parts into chunks.
type assembler struct {
	chunkSize int
	policy    OverlapPolicy
	window    *overlapWindow

	chunks  Chunks
	current Chunk
	size    int
}

func newAssembler(chunkSize, overlapSize int, policy OverlapPolicy) *assembler {
	return &assembler{
		chunkSize: chunkSize,
		policy:    policy,
		window:    newOverlapWindow(overlapSize),
	}
}

func (a *assembler) add(p TextPart) error {
	// A chunk without content is never sealed, so an oversized first part
	// opens the first chunk instead of producing an empty one.
	if len(a.current.Content) == 0 || a.size+p.Size <= a.chunkSize {
		a.current.Content = append(a.current.Content, p)
		a.size += p.Size
		if a.window.enabled() && a.policy == EvictBeforeAdmit {
			a.window.makeRoom(p.Size)
		}
	} else {
		a.seal()
		if a.window.enabled() {
			a.current.Overlap = a.window.snapshot()
			a.size = a.window.size
			a.window.reset()
		}
		a.current.Content = append(a.current.Content, p)
		a.size += p.Size
	}

	if a.window.enabled() && a.window.fits(p) {
		a.window.push(p)
		if a.policy == AdmitThenEvict {
			a.window.makeRoom(0)
		}
	}
	return nil
}

func (a *assembler) seal() {
	a.chunks = append(a.chunks, a.current)
	a.current = Chunk{}
	a.size = 0
}

func (a *assembler) finish() Chunks {
	if len(a.current.Content) > 0 {
		a.seal()
	}
	return a.chunks
}
