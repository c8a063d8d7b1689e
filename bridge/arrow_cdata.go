package bridge

// Arrow C Data Interface structures
// https://arrow.apache.org/docs/format/CDataInterface.html

/*
#include <stdint.h>
#include <stdlib.h>
#include <string.h>

#ifndef ARROW_C_DATA_INTERFACE
#define ARROW_C_DATA_INTERFACE

#define ARROW_FLAG_DICTIONARY_ORDERED 1
#define ARROW_FLAG_NULLABLE 2
#define ARROW_FLAG_MAP_KEYS_SORTED 4

// ArrowSchema describes the type and metadata of an Arrow array
struct ArrowSchema {
    const char* format;
    const char* name;
    const char* metadata;
    int64_t flags;
    int64_t n_children;
    struct ArrowSchema** children;
    struct ArrowSchema* dictionary;
    void (*release)(struct ArrowSchema*);
    void* private_data;
};

// ArrowArray contains the data buffers and child arrays
struct ArrowArray {
    int64_t length;
    int64_t null_count;
    int64_t offset;
    int64_t n_buffers;
    int64_t n_children;
    const void** buffers;
    struct ArrowArray** children;
    struct ArrowArray* dictionary;
    void (*release)(struct ArrowArray*);
    void* private_data;
};

#endif  // ARROW_C_DATA_INTERFACE

// Helper functions to call release callbacks
static void bridge_call_arrow_schema_release(struct ArrowSchema* schema) {
    if (schema->release) {
        schema->release(schema);
    }
}

static void bridge_call_arrow_array_release(struct ArrowArray* array) {
    if (array->release) {
        array->release(array);
    }
}

// Move helpers: the destination takes over ownership, the source is marked released.
static void bridge_move_arrow_schema(struct ArrowSchema* src, struct ArrowSchema* dst) {
    memcpy(dst, src, sizeof(struct ArrowSchema));
    src->release = NULL;
}

static void bridge_move_arrow_array(struct ArrowArray* src, struct ArrowArray* dst) {
    memcpy(dst, src, sizeof(struct ArrowArray));
    src->release = NULL;
}
*/
import "C"
import "unsafe"

const cgoEnabled = true

// Schema flags, see ARROW_FLAG_*.
const (
	FlagDictionaryOrdered int64 = C.ARROW_FLAG_DICTIONARY_ORDERED
	FlagNullable          int64 = C.ARROW_FLAG_NULLABLE
	FlagMapKeysSorted     int64 = C.ARROW_FLAG_MAP_KEYS_SORTED
)

// ArrowSchema represents Arrow schema in C
type ArrowSchema C.struct_ArrowSchema

// ArrowArray represents Arrow array data in C
type ArrowArray C.struct_ArrowArray

// NewArrowSchema allocates a zeroed ArrowSchema in C memory, so the foreign
// side may store C pointers in it. Free it with FreeArrowSchema.
func NewArrowSchema() *ArrowSchema {
	return (*ArrowSchema)(C.calloc(1, C.sizeof_struct_ArrowSchema))
}

// NewArrowArray allocates a zeroed ArrowArray in C memory. Free it with
// FreeArrowArray.
func NewArrowArray() *ArrowArray {
	return (*ArrowArray)(C.calloc(1, C.sizeof_struct_ArrowArray))
}

// FreeArrowSchema frees the record itself. It does not call the release
// callback.
func FreeArrowSchema(schema *ArrowSchema) {
	if schema != nil {
		C.free(unsafe.Pointer(schema))
	}
}

// FreeArrowArray frees the record itself. It does not call the release
// callback.
func FreeArrowArray(array *ArrowArray) {
	if array != nil {
		C.free(unsafe.Pointer(array))
	}
}

// ReleaseArrowSchema calls the release callback if set
func ReleaseArrowSchema(schema *ArrowSchema) {
	if schema == nil {
		return
	}
	cSchema := (*C.struct_ArrowSchema)(unsafe.Pointer(schema))
	if cSchema.release != nil {
		C.bridge_call_arrow_schema_release(cSchema)
	}
}

// ReleaseArrowArray calls the release callback if set
func ReleaseArrowArray(array *ArrowArray) {
	if array == nil {
		return
	}
	cArray := (*C.struct_ArrowArray)(unsafe.Pointer(array))
	if cArray.release != nil {
		C.bridge_call_arrow_array_release(cArray)
	}
}

// MoveArrowSchema moves src into dst. dst must be released or empty.
func MoveArrowSchema(src, dst *ArrowSchema) {
	C.bridge_move_arrow_schema((*C.struct_ArrowSchema)(unsafe.Pointer(src)), (*C.struct_ArrowSchema)(unsafe.Pointer(dst)))
}

// MoveArrowArray moves src into dst. dst must be released or empty.
func MoveArrowArray(src, dst *ArrowArray) {
	C.bridge_move_arrow_array((*C.struct_ArrowArray)(unsafe.Pointer(src)), (*C.struct_ArrowArray)(unsafe.Pointer(dst)))
}

// Released reports whether the schema has no release callback armed.
func (s *ArrowSchema) Released() bool { return s == nil || s.release == nil }

// Format returns the format string, or "" when it is not set.
func (s *ArrowSchema) Format() string {
	if s.format == nil {
		return ""
	}
	return C.GoString(s.format)
}

func (s *ArrowSchema) Name() string {
	if s.name == nil {
		return ""
	}
	return C.GoString(s.name)
}

func (s *ArrowSchema) Flags() int64       { return int64(s.flags) }
func (s *ArrowSchema) NumChildren() int64 { return int64(s.n_children) }

// Child returns the i-th child schema, or nil when the children array is unset.
func (s *ArrowSchema) Child(i int) *ArrowSchema {
	if s.children == nil || i < 0 || int64(i) >= int64(s.n_children) {
		return nil
	}
	children := unsafe.Slice(s.children, int(s.n_children))
	return (*ArrowSchema)(unsafe.Pointer(children[i]))
}

func (s *ArrowSchema) Dictionary() *ArrowSchema {
	return (*ArrowSchema)(unsafe.Pointer(s.dictionary))
}

// Released reports whether the array has no release callback armed.
func (a *ArrowArray) Released() bool { return a == nil || a.release == nil }

func (a *ArrowArray) Length() int64      { return int64(a.length) }
func (a *ArrowArray) NullCount() int64   { return int64(a.null_count) }
func (a *ArrowArray) Offset() int64      { return int64(a.offset) }
func (a *ArrowArray) NumBuffers() int64  { return int64(a.n_buffers) }
func (a *ArrowArray) NumChildren() int64 { return int64(a.n_children) }

// Buffer returns the i-th buffer pointer. Buffers may legitimately be nil.
func (a *ArrowArray) Buffer(i int) unsafe.Pointer {
	if a.buffers == nil || i < 0 || int64(i) >= int64(a.n_buffers) {
		return nil
	}
	buffers := unsafe.Slice((*unsafe.Pointer)(unsafe.Pointer(a.buffers)), int(a.n_buffers))
	return buffers[i]
}

// SetBuffer overwrites the i-th buffer pointer of a populated array. It
// reports false when the array has no such buffer slot.
func (a *ArrowArray) SetBuffer(i int, p unsafe.Pointer) bool {
	if a.buffers == nil || i < 0 || int64(i) >= int64(a.n_buffers) {
		return false
	}
	buffers := unsafe.Slice((*unsafe.Pointer)(unsafe.Pointer(a.buffers)), int(a.n_buffers))
	buffers[i] = p
	return true
}

// Child returns the i-th child array, or nil when the children array is unset.
func (a *ArrowArray) Child(i int) *ArrowArray {
	if a.children == nil || i < 0 || int64(i) >= int64(a.n_children) {
		return nil
	}
	children := unsafe.Slice(a.children, int(a.n_children))
	return (*ArrowArray)(unsafe.Pointer(children[i]))
}

func (a *ArrowArray) Dictionary() *ArrowArray {
	return (*ArrowArray)(unsafe.Pointer(a.dictionary))
}
