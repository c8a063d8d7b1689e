package columnar

import (
	"fmt"

	"github.com/apache/arrow-go/v18/arrow"
)

// maxNestingDepth bounds recursion over nested types and descriptors.
const maxNestingDepth = 64

// checkExportable walks dt and rejects any logical type the exchange does not
// describe in an ArrowSchema.
func checkExportable(dt arrow.DataType) error {
	return checkExportableAt(dt, 0)
}

func checkExportableAt(dt arrow.DataType, depth int) error {
	if dt == nil {
		return fmt.Errorf("%w: missing data type", ErrConversion)
	}
	if depth > maxNestingDepth {
		return fmt.Errorf("%w: %s nests deeper than %d levels", ErrConversion, dt, maxNestingDepth)
	}

	switch dt.ID() {
	case arrow.NULL, arrow.BOOL,
		arrow.INT8, arrow.INT16, arrow.INT32, arrow.INT64,
		arrow.UINT8, arrow.UINT16, arrow.UINT32, arrow.UINT64,
		arrow.FLOAT16, arrow.FLOAT32, arrow.FLOAT64,
		arrow.DECIMAL32, arrow.DECIMAL64, arrow.DECIMAL128, arrow.DECIMAL256,
		arrow.STRING, arrow.LARGE_STRING, arrow.BINARY, arrow.LARGE_BINARY, arrow.FIXED_SIZE_BINARY,
		arrow.STRING_VIEW, arrow.BINARY_VIEW,
		arrow.DATE32, arrow.DATE64, arrow.TIME32, arrow.TIME64, arrow.TIMESTAMP, arrow.DURATION,
		arrow.INTERVAL_MONTHS, arrow.INTERVAL_DAY_TIME, arrow.INTERVAL_MONTH_DAY_NANO:
		return nil

	case arrow.LIST, arrow.LARGE_LIST, arrow.FIXED_SIZE_LIST, arrow.LIST_VIEW, arrow.LARGE_LIST_VIEW,
		arrow.MAP, arrow.STRUCT,
		arrow.SPARSE_UNION, arrow.DENSE_UNION, arrow.RUN_END_ENCODED:
		nested, ok := dt.(arrow.NestedType)
		if !ok {
			return fmt.Errorf("%w: %s does not expose its children", ErrConversion, dt)
		}
		for _, f := range nested.Fields() {
			if err := checkExportableAt(f.Type, depth+1); err != nil {
				return fmt.Errorf("field %q: %w", f.Name, err)
			}
		}
		return nil

	case arrow.DICTIONARY:
		dict := dt.(*arrow.DictionaryType)
		if err := checkExportableAt(dict.IndexType, depth+1); err != nil {
			return err
		}
		return checkExportableAt(dict.ValueType, depth+1)

	case arrow.EXTENSION:
		ext, ok := dt.(arrow.ExtensionType)
		if !ok {
			return fmt.Errorf("%w: %s is not an extension type", ErrConversion, dt)
		}
		return checkExportableAt(ext.StorageType(), depth+1)

	default:
		return fmt.Errorf("%w: logical type %s cannot be exported", ErrConversion, dt)
	}
}
