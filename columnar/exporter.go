package columnar

import (
	"fmt"

	"github.com/apache/arrow-go/v18/arrow"
)

// Exporter creates descriptor pairs: empty ones that a foreign runtime fills
// in, and populated ones that describe a native array.
type Exporter struct {
	metrics *Metrics
}

// NewExporter returns an Exporter. metrics may be nil.
func NewExporter(metrics *Metrics) *Exporter {
	return &Exporter{metrics: metrics}
}

// NewEmptyPair allocates zeroed descriptor records with no release callback
// armed, ready to receive a foreign export.
func (e *Exporter) NewEmptyPair() *DescriptorPair {
	return newPair()
}

// Export describes arr in a new descriptor pair without copying its buffers.
//
// On success Export takes over the caller's reference to arr: the array is
// released when the pair's release callback fires, whoever ends up calling
// it. On failure the caller keeps its reference.
func (e *Exporter) Export(arr arrow.Array) (*DescriptorPair, error) {
	if arr == nil {
		return nil, fmt.Errorf("%w: nil array", ErrConversion)
	}
	if err := checkExportable(arr.DataType()); err != nil {
		return nil, err
	}

	p := newPair()
	if err := exportArray(arr, p); err != nil {
		p.Close()
		return nil, err
	}
	if err := p.arm(); err != nil {
		p.Close()
		return nil, fmt.Errorf("%w: %w", ErrConversion, err)
	}

	arr.Release()
	e.metrics.recordExport()
	return p, nil
}
