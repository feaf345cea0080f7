package cache

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/any-hub/any-cache/internal/archive"
)

// DefaultDirName 是默认缓存根目录在用户缓存目录下的名字。
const DefaultDirName = "any-cache"

// DefaultStorePath 返回进程级默认缓存根目录（通常为 ~/.cache/any-cache）。
func DefaultStorePath() string {
	if dir, err := os.UserCacheDir(); err == nil && dir != "" {
		return filepath.Join(dir, DefaultDirName)
	}
	return filepath.Join(os.TempDir(), DefaultDirName)
}

// RepoCacheStorePath 优先使用 override，否则退回默认根目录，并拼接可选命名空间。
func RepoCacheStorePath(override, namespace string) (string, error) {
	base := override
	if base == "" {
		base = DefaultStorePath()
	}
	if namespace != "" {
		if err := validateKey(namespace); err != nil {
			return "", fmt.Errorf("invalid namespace: %w", err)
		}
		base = filepath.Join(base, namespace)
	}
	abs, err := filepath.Abs(base)
	if err != nil {
		return "", fmt.Errorf("resolve storage path: %w", err)
	}
	return abs, nil
}

// CacheFileName 仅由压缩方式决定，查找条目无需额外的清单文件。
func CacheFileName(method archive.Method) (string, error) {
	codec, ok := archive.Lookup(method)
	if !ok {
		return "", fmt.Errorf("compression method %s is not registered", method)
	}
	return codec.FileName, nil
}

// EntryDir 返回 key 对应的条目目录 root/key。
func EntryDir(root, key string) string {
	return filepath.Join(root, key)
}
