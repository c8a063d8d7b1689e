package bridge

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime"
)

// LibEnvVar 指定动态库路径的环境变量
const LibEnvVar = "ARROW_BRIDGE_LIB"

func getLibName() string {
	switch runtime.GOOS {
	case "windows":
		return "arrow_bridge.dll"
	case "darwin":
		return "libarrow_bridge.dylib"
	default:
		return "libarrow_bridge.so"
	}
}

// resolveLibPath 优先级：参数 > 环境变量 > 可执行文件目录
func resolveLibPath(libPath string) (string, error) {
	if libPath == "" {
		libPath = os.Getenv(LibEnvVar)
		if libPath == "" {
			exePath, err := os.Executable()
			if err != nil {
				return "", fmt.Errorf("failed to get executable path: %w", err)
			}
			exeDir := filepath.Dir(exePath)
			libPath = filepath.Join(exeDir, getLibName())
		}
	}

	if _, err := os.Stat(libPath); os.IsNotExist(err) {
		return "", fmt.Errorf("library not found: %s", libPath)
	}
	return libPath, nil
}
