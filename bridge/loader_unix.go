//go:build !windows
// +build !windows

package bridge

import (
	"fmt"
	"runtime"
	"strings"
	"unsafe"

	"github.com/ebitengine/purego"
	"google.golang.org/protobuf/types/known/structpb"
)

// Bridge 外部运行时动态库的 FFI 接口
type Bridge struct {
	lib           uintptr
	abiVersion    func() uint32
	engineVersion func(*uintptr, *uintptr) int32
	capabilities  func(*uintptr, *uintptr) int32
	lastError     func(*uintptr, *uintptr) int32
	lastErrorFree func(uintptr, uintptr)
	valueExport   func(uint64, *ArrowArray, *ArrowSchema) int32
	valueImport   func(*ArrowArray, *ArrowSchema, *uint64) int32
	valueFree     func(uint64)
	outputFree    func(uintptr, uintptr)
}

// LoadBridge 加载动态库
func LoadBridge(libPath string) (*Bridge, error) {
	libPath, err := resolveLibPath(libPath)
	if err != nil {
		return nil, err
	}

	lib, err := purego.Dlopen(libPath, purego.RTLD_NOW|purego.RTLD_GLOBAL)
	if err != nil {
		return nil, fmt.Errorf("failed to load library %s: %w", libPath, err)
	}

	b := &Bridge{lib: lib}

	// 加载所有函数
	purego.RegisterLibFunc(&b.abiVersion, lib, "bridge_abi_version")
	purego.RegisterLibFunc(&b.engineVersion, lib, "bridge_engine_version")
	purego.RegisterLibFunc(&b.capabilities, lib, "bridge_capabilities")
	purego.RegisterLibFunc(&b.lastError, lib, "bridge_last_error")
	purego.RegisterLibFunc(&b.lastErrorFree, lib, "bridge_last_error_free")
	purego.RegisterLibFunc(&b.valueExport, lib, "bridge_value_export")
	purego.RegisterLibFunc(&b.valueImport, lib, "bridge_value_import")
	purego.RegisterLibFunc(&b.valueFree, lib, "bridge_value_free")
	purego.RegisterLibFunc(&b.outputFree, lib, "bridge_output_free")

	// 验证 ABI 版本
	abiVer := b.AbiVersion()
	if abiVer != AbiVersion {
		_ = purego.Dlclose(lib)
		return nil, &Error{
			Code:    ErrAbiMismatch,
			Message: fmt.Sprintf("ABI version mismatch: expected %d, got %d", AbiVersion, abiVer),
		}
	}

	return b, nil
}

// Close 卸载动态库。之后不能再调用任何方法
func (b *Bridge) Close() error {
	if b.lib == 0 {
		return nil
	}
	err := purego.Dlclose(b.lib)
	b.lib = 0
	return err
}

// AbiVersion 获取 ABI 版本
func (b *Bridge) AbiVersion() uint32 {
	return b.abiVersion()
}

// EngineVersion 获取引擎版本
func (b *Bridge) EngineVersion() (string, error) {
	var ptr uintptr
	var length uintptr
	ret := b.engineVersion(&ptr, &length)
	if ret != 0 {
		return "", b.getLastError(ret)
	}
	version := strings.Clone(ptrToString(ptr, int(length)))
	b.outputFree(ptr, length)
	return version, nil
}

// Capabilities 获取能力信息（protobuf 编码的 google.protobuf.Struct）
func (b *Bridge) Capabilities() (*structpb.Struct, error) {
	var ptr uintptr
	var length uintptr
	ret := b.capabilities(&ptr, &length)
	if ret != 0 {
		return nil, b.getLastError(ret)
	}
	raw := []byte(ptrToString(ptr, int(length)))
	b.outputFree(ptr, length)
	return DecodeCapabilities(raw)
}

// ExportValue 请求外部运行时把 handle 对应的值导出到给定的描述符中。
// 调用成功后，描述符的 release 回调由外部运行时设置，所有权归调用方。
func (b *Bridge) ExportValue(handle uint64, array *ArrowArray, schema *ArrowSchema) error {
	if !cgoEnabled {
		return fmt.Errorf("ExportValue requires cgo (set CGO_ENABLED=1)")
	}
	ret := b.valueExport(handle, array, schema)
	runtime.KeepAlive(array)
	runtime.KeepAlive(schema)
	if ret != 0 {
		return b.getLastError(ret)
	}
	return nil
}

// ImportValue 把描述符交给外部运行时，由它构造一个新值并返回句柄。
// 外部运行时会 move 描述符，调用方随后只需释放仍处于 armed 状态的部分。
func (b *Bridge) ImportValue(array *ArrowArray, schema *ArrowSchema) (uint64, error) {
	if !cgoEnabled {
		return 0, fmt.Errorf("ImportValue requires cgo (set CGO_ENABLED=1)")
	}
	var handle uint64
	ret := b.valueImport(array, schema, &handle)
	runtime.KeepAlive(array)
	runtime.KeepAlive(schema)
	if ret != 0 {
		return 0, b.getLastError(ret)
	}
	return handle, nil
}

// FreeValue 释放外部运行时中的值
func (b *Bridge) FreeValue(handle uint64) {
	b.valueFree(handle)
}

func (b *Bridge) getLastError(code int32) error {
	var ptr uintptr
	var length uintptr
	b.lastError(&ptr, &length)

	if ptr == 0 {
		return &Error{Code: ErrorCode(code), Message: "unknown error"}
	}

	errMsg := strings.Clone(ptrToString(ptr, int(length)))
	b.lastErrorFree(ptr, length)
	return &Error{Code: ErrorCode(code), Message: errMsg}
}

func ptrToString(ptr uintptr, length int) string {
	if ptr == 0 || length == 0 {
		return ""
	}
	return unsafe.String((*byte)(unsafe.Pointer(ptr)), length)
}
