package columnar

import (
	"fmt"
	"runtime"

	"github.com/isesword/arrow-cdata-bridge/bridge"
)

type pairState int

const (
	// zeroed records, nothing armed
	pairEmpty pairState = iota
	// both release callbacks set, buffers owned by whoever holds the pair
	pairArmed
	// moved into a native array by the Importer
	pairConsumed
	// given to the foreign runtime's import
	pairHandedOff
	// release callbacks invoked by the holder
	pairReleased
	// a foreign populate call failed; the records may be half written
	pairPoisoned
	// records freed
	pairClosed
)

func (s pairState) String() string {
	switch s {
	case pairEmpty:
		return "empty"
	case pairArmed:
		return "armed"
	case pairConsumed:
		return "consumed"
	case pairHandedOff:
		return "handed off"
	case pairReleased:
		return "released"
	case pairPoisoned:
		return "poisoned"
	case pairClosed:
		return "closed"
	default:
		return fmt.Sprintf("pairState(%d)", int(s))
	}
}

// DescriptorPair is the unit of exchange: an ArrowArray and its ArrowSchema,
// both allocated in C memory. It can only be created by an Exporter and is
// consumed at most once. A DescriptorPair is not safe for concurrent use.
type DescriptorPair struct {
	array  *bridge.ArrowArray
	schema *bridge.ArrowSchema
	state  pairState
}

func newPair() *DescriptorPair {
	p := &DescriptorPair{
		array:  bridge.NewArrowArray(),
		schema: bridge.NewArrowSchema(),
	}
	runtime.SetFinalizer(p, (*DescriptorPair).Close)
	return p
}

// Array returns the data descriptor. It is nil once the pair is closed.
func (p *DescriptorPair) Array() *bridge.ArrowArray { return p.array }

// Schema returns the schema descriptor. It is nil once the pair is closed.
func (p *DescriptorPair) Schema() *bridge.ArrowSchema { return p.schema }

// Armed reports whether the pair currently owns buffers that have not been
// released or transferred.
func (p *DescriptorPair) Armed() bool {
	return p.state == pairArmed && !p.array.Released() && !p.schema.Released()
}

// arm checks that a populate step left both release callbacks set. A pair
// with only one armed descriptor is released and rejected.
func (p *DescriptorPair) arm() error {
	if p.state != pairEmpty {
		return fmt.Errorf("cannot arm a %s descriptor pair", p.state)
	}
	arrayReleased, schemaReleased := p.array.Released(), p.schema.Released()
	if arrayReleased || schemaReleased {
		p.releaseDescriptors()
		p.state = pairReleased
		return fmt.Errorf("descriptor pair populated without release callbacks (array armed: %t, schema armed: %t)",
			!arrayReleased, !schemaReleased)
	}
	p.state = pairArmed
	return nil
}

// take moves the pair into the consumed state on behalf of the Importer.
func (p *DescriptorPair) take() error {
	if p.state != pairArmed {
		return fmt.Errorf("%w: descriptor pair is %s", ErrImport, p.state)
	}
	if p.array.Released() || p.schema.Released() {
		p.releaseDescriptors()
		p.state = pairConsumed
		return fmt.Errorf("%w: descriptor pair was released behind the holder's back", ErrImport)
	}
	p.state = pairConsumed
	return nil
}

func (p *DescriptorPair) handOff() {
	p.state = pairHandedOff
}

func (p *DescriptorPair) poison() {
	p.state = pairPoisoned
}

func (p *DescriptorPair) releaseDescriptors() {
	bridge.ReleaseArrowArray(p.array)
	bridge.ReleaseArrowSchema(p.schema)
}

// Release invokes whatever release callbacks are still armed. It is safe to
// call more than once; later calls are no-ops. A poisoned pair is never
// released, since its callbacks cannot be trusted.
func (p *DescriptorPair) Release() {
	switch p.state {
	case pairClosed, pairPoisoned, pairReleased:
		return
	case pairEmpty:
		// nothing was armed
	default:
		p.releaseDescriptors()
	}
	if p.state == pairArmed || p.state == pairEmpty {
		p.state = pairReleased
	}
}

// Close releases the pair and frees both records. It is idempotent.
func (p *DescriptorPair) Close() {
	if p.state == pairClosed {
		return
	}
	p.Release()
	bridge.FreeArrowArray(p.array)
	bridge.FreeArrowSchema(p.schema)
	p.array, p.schema = nil, nil
	p.state = pairClosed
	runtime.SetFinalizer(p, nil)
}
