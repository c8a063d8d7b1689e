package columnar

import (
	"fmt"
	"strings"

	"github.com/apache/arrow-go/v18/arrow"
	"github.com/isesword/arrow-cdata-bridge/bridge"
)

// Importer turns armed descriptor pairs into native arrays.
type Importer struct {
	metrics *Metrics
}

// NewImporter returns an Importer. metrics may be nil.
func NewImporter(metrics *Metrics) *Importer {
	return &Importer{metrics: metrics}
}

// Import consumes p and returns the array it describes. The array refers to
// the same buffers the producer exported; they are freed through the
// producer's release callback once the array's last reference is released.
//
// Whatever the outcome, p is consumed and must not be imported again. If the
// descriptors are malformed they are released before the error is returned.
func (im *Importer) Import(p *DescriptorPair) (arrow.Array, error) {
	if p == nil {
		return nil, fmt.Errorf("%w: nil descriptor pair", ErrImport)
	}
	if err := p.take(); err != nil {
		return nil, err
	}

	if err := validatePair(p.array, p.schema, 0); err != nil {
		p.releaseDescriptors()
		return nil, fmt.Errorf("%w: %w", ErrImport, err)
	}

	arr, err := importArray(p)
	if err != nil {
		p.releaseDescriptors()
		return nil, fmt.Errorf("%w: %w", ErrImport, err)
	}

	im.metrics.recordImport()
	return arr, nil
}

// validatePair checks the structural agreement between an array descriptor
// and its schema before anything reads through their pointers.
func validatePair(arr *bridge.ArrowArray, schema *bridge.ArrowSchema, depth int) error {
	if depth > maxNestingDepth {
		return fmt.Errorf("descriptor nests deeper than %d levels", maxNestingDepth)
	}
	if arr == nil || schema == nil {
		return fmt.Errorf("missing descriptor at depth %d", depth)
	}
	if arr.Released() || schema.Released() {
		return fmt.Errorf("released descriptor at depth %d", depth)
	}

	format := schema.Format()
	if format == "" {
		return fmt.Errorf("empty format string at depth %d", depth)
	}
	if arr.Length() < 0 || arr.Offset() < 0 {
		return fmt.Errorf("negative length (%d) or offset (%d) for format %q", arr.Length(), arr.Offset(), format)
	}
	if arr.NumBuffers() < 0 {
		return fmt.Errorf("negative buffer count for format %q", format)
	}

	if arr.NumChildren() != schema.NumChildren() {
		return fmt.Errorf("format %q: array has %d children, schema has %d",
			format, arr.NumChildren(), schema.NumChildren())
	}

	arrDict, schemaDict := arr.Dictionary(), schema.Dictionary()
	if (arrDict == nil) != (schemaDict == nil) {
		return fmt.Errorf("format %q: dictionary present on only one side (array: %t, schema: %t)",
			format, arrDict != nil, schemaDict != nil)
	}

	if arr.Length() > 0 {
		for i := 0; i < int(arr.NumBuffers()); i++ {
			if arr.Buffer(i) != nil || nullableBuffer(format, i, arr.NullCount()) {
				continue
			}
			return fmt.Errorf("format %q: required buffer %d is null", format, i)
		}
	}

	for i := 0; i < int(arr.NumChildren()); i++ {
		if err := validatePair(arr.Child(i), schema.Child(i), depth+1); err != nil {
			return fmt.Errorf("child %d: %w", i, err)
		}
	}
	if arrDict != nil {
		if err := validatePair(arrDict, schemaDict, depth+1); err != nil {
			return fmt.Errorf("dictionary: %w", err)
		}
	}
	return nil
}

// nullableBuffer reports whether buffer i of a non-empty array with the given
// format may legitimately be null.
func nullableBuffer(format string, i int, nullCount int64) bool {
	switch {
	case i == 0:
		// unions have no validity bitmap; buffer 0 is the type ids
		return nullCount == 0 && !strings.HasPrefix(format, "+u")
	case i == 2:
		// data buffer of a variable-size binary whose values are all empty
		switch format {
		case "u", "z", "U", "Z":
			return true
		}
	}
	return false
}
