package columnar

import (
	"fmt"

	"github.com/isesword/arrow-cdata-bridge/bridge"
)

// Runtime is the foreign side of the exchange. Values living in the runtime
// are addressed by opaque handles; *bridge.Bridge is the dynamic library
// implementation and loopback.Runtime the in-process one.
type Runtime interface {
	// ExportValue populates the given empty descriptors from the value behind
	// handle. On success both release callbacks must be set.
	ExportValue(handle uint64, array *bridge.ArrowArray, schema *bridge.ArrowSchema) error
	// ImportValue moves the descriptors into a new foreign value and returns
	// its handle. The runtime takes ownership of whatever it moved.
	ImportValue(array *bridge.ArrowArray, schema *bridge.ArrowSchema) (uint64, error)
	// FreeValue drops a handle returned by ImportValue.
	FreeValue(handle uint64)
}

var _ Runtime = (*bridge.Bridge)(nil)

// RequestExportInto asks rt to populate the empty pair p from the value
// behind handle.
//
// If the foreign call fails the pair is poisoned: its records may be half
// written, so their callbacks are never invoked and Close only frees the
// records.
func RequestExportInto(rt Runtime, handle uint64, p *DescriptorPair) error {
	if rt == nil {
		return fmt.Errorf("%w: no foreign runtime", ErrBoundary)
	}
	if p == nil || p.state != pairEmpty {
		return fmt.Errorf("%w: export target must be an empty descriptor pair", ErrBoundary)
	}

	if err := rt.ExportValue(handle, p.array, p.schema); err != nil {
		p.poison()
		return fmt.Errorf("%w: export of value %d: %w", ErrBoundary, handle, err)
	}
	if err := p.arm(); err != nil {
		return fmt.Errorf("%w: export of value %d: %w", ErrBoundary, handle, err)
	}
	return nil
}

// RequestImportFrom hands the armed pair p to rt, which becomes responsible
// for releasing it. Whatever rt leaves armed after the call is released here.
func RequestImportFrom(rt Runtime, p *DescriptorPair) (uint64, error) {
	if rt == nil {
		return 0, fmt.Errorf("%w: no foreign runtime", ErrBoundary)
	}
	if p == nil || !p.Armed() {
		return 0, fmt.Errorf("%w: import source must be an armed descriptor pair", ErrBoundary)
	}

	p.handOff()
	handle, err := rt.ImportValue(p.array, p.schema)
	// 外部运行时未移走的部分由这里释放
	p.releaseDescriptors()
	if err != nil {
		return 0, fmt.Errorf("%w: import: %w", ErrBoundary, err)
	}
	return handle, nil
}
