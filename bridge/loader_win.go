//go:build windows
// +build windows

package bridge

import (
	"fmt"
	"runtime"
	"syscall"
	"unsafe"

	"google.golang.org/protobuf/types/known/structpb"
)

// Bridge 外部运行时动态库的 FFI 接口
type Bridge struct {
	lib           *syscall.DLL
	abiVersion    *syscall.Proc
	engineVersion *syscall.Proc
	capabilities  *syscall.Proc
	lastError     *syscall.Proc
	lastErrorFree *syscall.Proc
	valueExport   *syscall.Proc
	valueImport   *syscall.Proc
	valueFree     *syscall.Proc
	outputFree    *syscall.Proc
}

// LoadBridge 加载动态库
func LoadBridge(libPath string) (*Bridge, error) {
	libPath, err := resolveLibPath(libPath)
	if err != nil {
		return nil, err
	}

	lib, err := syscall.LoadDLL(libPath)
	if err != nil {
		return nil, fmt.Errorf("failed to load library %s: %w", libPath, err)
	}

	b := &Bridge{lib: lib}

	// 加载所有函数
	procs := []struct {
		dst  **syscall.Proc
		name string
	}{
		{&b.abiVersion, "bridge_abi_version"},
		{&b.engineVersion, "bridge_engine_version"},
		{&b.capabilities, "bridge_capabilities"},
		{&b.lastError, "bridge_last_error"},
		{&b.lastErrorFree, "bridge_last_error_free"},
		{&b.valueExport, "bridge_value_export"},
		{&b.valueImport, "bridge_value_import"},
		{&b.valueFree, "bridge_value_free"},
		{&b.outputFree, "bridge_output_free"},
	}
	for _, p := range procs {
		if *p.dst, err = lib.FindProc(p.name); err != nil {
			_ = lib.Release()
			return nil, fmt.Errorf("failed to find %s: %w", p.name, err)
		}
	}

	// 验证 ABI 版本
	abiVer := b.AbiVersion()
	if abiVer != AbiVersion {
		_ = lib.Release()
		return nil, &Error{
			Code:    ErrAbiMismatch,
			Message: fmt.Sprintf("ABI version mismatch: expected %d, got %d", AbiVersion, abiVer),
		}
	}

	return b, nil
}

// Close 卸载动态库。之后不能再调用任何方法
func (b *Bridge) Close() error {
	if b.lib == nil {
		return nil
	}
	err := b.lib.Release()
	b.lib = nil
	return err
}

// AbiVersion 获取 ABI 版本
func (b *Bridge) AbiVersion() uint32 {
	ret, _, _ := b.abiVersion.Call()
	return uint32(ret)
}

// EngineVersion 获取引擎版本
func (b *Bridge) EngineVersion() (string, error) {
	var ptr uintptr
	var length uintptr
	ret, _, _ := b.engineVersion.Call(uintptr(unsafe.Pointer(&ptr)), uintptr(unsafe.Pointer(&length)))
	if ret != 0 {
		return "", b.getLastError(int32(ret))
	}
	version := ptrToString(ptr, int(length))
	b.outputFree.Call(ptr, length)
	return version, nil
}

// Capabilities 获取能力信息（protobuf 编码的 google.protobuf.Struct）
func (b *Bridge) Capabilities() (*structpb.Struct, error) {
	var ptr uintptr
	var length uintptr
	ret, _, _ := b.capabilities.Call(uintptr(unsafe.Pointer(&ptr)), uintptr(unsafe.Pointer(&length)))
	if ret != 0 {
		return nil, b.getLastError(int32(ret))
	}
	raw := []byte(ptrToString(ptr, int(length)))
	b.outputFree.Call(ptr, length)
	return DecodeCapabilities(raw)
}

// ExportValue 请求外部运行时把 handle 对应的值导出到给定的描述符中
func (b *Bridge) ExportValue(handle uint64, array *ArrowArray, schema *ArrowSchema) error {
	if !cgoEnabled {
		return fmt.Errorf("ExportValue requires cgo (set CGO_ENABLED=1)")
	}
	ret, _, _ := b.valueExport.Call(
		uintptr(handle),
		uintptr(unsafe.Pointer(array)),
		uintptr(unsafe.Pointer(schema)),
	)
	runtime.KeepAlive(array)
	runtime.KeepAlive(schema)
	if int32(ret) != 0 {
		return b.getLastError(int32(ret))
	}
	return nil
}

// ImportValue 把描述符交给外部运行时，由它构造一个新值并返回句柄
func (b *Bridge) ImportValue(array *ArrowArray, schema *ArrowSchema) (uint64, error) {
	if !cgoEnabled {
		return 0, fmt.Errorf("ImportValue requires cgo (set CGO_ENABLED=1)")
	}
	var handle uint64
	ret, _, _ := b.valueImport.Call(
		uintptr(unsafe.Pointer(array)),
		uintptr(unsafe.Pointer(schema)),
		uintptr(unsafe.Pointer(&handle)),
	)
	runtime.KeepAlive(array)
	runtime.KeepAlive(schema)
	if int32(ret) != 0 {
		return 0, b.getLastError(int32(ret))
	}
	return handle, nil
}

// FreeValue 释放外部运行时中的值
func (b *Bridge) FreeValue(handle uint64) {
	b.valueFree.Call(uintptr(handle))
}

func (b *Bridge) getLastError(code int32) error {
	var ptr uintptr
	var length uintptr
	b.lastError.Call(uintptr(unsafe.Pointer(&ptr)), uintptr(unsafe.Pointer(&length)))

	if ptr == 0 {
		return &Error{Code: ErrorCode(code), Message: "unknown error"}
	}

	errMsg := ptrToString(ptr, int(length))
	b.lastErrorFree.Call(ptr, length)
	return &Error{Code: ErrorCode(code), Message: errMsg}
}

func ptrToString(ptr uintptr, length int) string {
	if ptr == 0 || length == 0 {
		return ""
	}
	bytes := make([]byte, length)
	for i := 0; i < length; i++ {
		bytes[i] = *(*byte)(unsafe.Pointer(ptr + uintptr(i)))
	}
	return string(bytes)
}
