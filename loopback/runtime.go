// Package loopback is an in-process foreign runtime. It owns its values the
// way a shared library would, and exchanges them only through C Data
// Interface descriptors, so a Pipeline driven by it crosses the same
// boundary as one driven by *bridge.Bridge.
package loopback

import (
	"fmt"
	"sync"

	"github.com/apache/arrow-go/v18/arrow"
	"github.com/apache/arrow-go/v18/arrow/memory"
	"github.com/isesword/arrow-cdata-bridge/bridge"
	"google.golang.org/protobuf/types/known/structpb"
)

// EngineVersion is reported by (*Runtime).EngineVersion.
const EngineVersion = "loopback-1"

// Runtime holds arrays behind opaque handles. Handles start at 1; 0 is never
// a valid handle. It is safe for concurrent use.
type Runtime struct {
	mu     sync.Mutex
	next   uint64
	values map[uint64]arrow.Array
	mem    memory.Allocator
}

// New returns an empty runtime.
func New() *Runtime {
	return &Runtime{
		next:   1,
		values: make(map[uint64]arrow.Array),
		mem:    defaultAllocator(),
	}
}

// Allocator returns an allocator whose memory may cross the boundary.
func (r *Runtime) Allocator() memory.Allocator { return r.mem }

// Put stores arr and returns its handle. The runtime takes over the
// caller's reference.
func (r *Runtime) Put(arr arrow.Array) uint64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	h := r.next
	r.next++
	r.values[h] = arr
	return h
}

// Get returns the array behind handle with an extra reference the caller
// must release.
func (r *Runtime) Get(handle uint64) (arrow.Array, error) {
	return r.retain(handle)
}

// Len returns the number of live values.
func (r *Runtime) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.values)
}

// FreeValue releases the value behind handle. Unknown handles are ignored.
func (r *Runtime) FreeValue(handle uint64) {
	r.mu.Lock()
	arr, ok := r.values[handle]
	delete(r.values, handle)
	r.mu.Unlock()
	if ok {
		arr.Release()
	}
}

// Close releases every live value.
func (r *Runtime) Close() error {
	r.mu.Lock()
	values := r.values
	r.values = make(map[uint64]arrow.Array)
	r.mu.Unlock()
	for _, arr := range values {
		arr.Release()
	}
	return nil
}

func (r *Runtime) AbiVersion() uint32 { return bridge.AbiVersion }

func (r *Runtime) EngineVersion() (string, error) { return EngineVersion, nil }

// Capabilities advertises the runtime the same way a shared library does:
// as an encoded google.protobuf.Struct.
func (r *Runtime) Capabilities() (*structpb.Struct, error) {
	raw, err := bridge.EncodeCapabilities(map[string]interface{}{
		"engine":     EngineVersion,
		"abi":        float64(bridge.AbiVersion),
		"zero_copy":  zeroCopySupported(),
		"operations": []interface{}{"export", "import", "free"},
	})
	if err != nil {
		return nil, err
	}
	return bridge.DecodeCapabilities(raw)
}

func (r *Runtime) retain(handle uint64) (arrow.Array, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	arr, ok := r.values[handle]
	if !ok {
		return nil, &bridge.Error{Code: bridge.ErrInvalidArgument, Message: fmt.Sprintf("unknown value handle %d", handle)}
	}
	arr.Retain()
	return arr, nil
}
