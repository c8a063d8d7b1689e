// Package columnar exchanges Arrow arrays with a foreign runtime through the
// Arrow C Data Interface without copying buffers.
//
// A call moves through a fixed chain:
//
//	foreign value -> empty DescriptorPair -> RequestExportInto -> Import
//	  -> Downcast -> ApplyBinaryOp -> Export -> RequestImportFrom -> foreign value
//
// Every DescriptorPair is created by the Exporter and consumed at most once,
// either by the Importer or by the foreign runtime. Close on a pair releases
// whatever is still armed, so `defer pair.Close()` covers every exit path.
//
// Buffers only travel zero-copy when cgo is enabled; without cgo Export and
// Import return ErrCgoRequired.
package columnar
