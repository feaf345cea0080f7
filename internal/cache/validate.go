package cache

import "strings"

const (
	// MaxKeyLength 单个 key 的最大字符数，按 rune 计数（不是字节，也不是 UTF-16 码元）。
	MaxKeyLength = 512
	// MaxKeys 一次恢复允许的 key 总数（主 key + 回退 key）。
	MaxKeys = 10
)

// CheckPaths 要求至少提供一个路径；空列表与“没有缓存”是两种不同结果。
func CheckPaths(paths []string) error {
	if len(paths) == 0 {
		return newValidationError("path validation error: at least one directory or file path is required")
	}
	return nil
}

// ValidateKeys 依次校验 key 数量与每个 key 的格式，返回首个违规项。
func ValidateKeys(keys []string) error {
	if len(keys) == 0 {
		return newValidationError("key validation error: at least one key is required")
	}
	if len(keys) > MaxKeys {
		return newValidationError("key validation error: keys are limited to a maximum of %d, got %d", MaxKeys, len(keys))
	}
	for _, key := range keys {
		if err := validateKey(key); err != nil {
			return err
		}
	}
	return nil
}

// validateKey 逗号保留为多 key 分隔符；key 直接映射为单层目录名。
func validateKey(key string) error {
	switch {
	case key == "":
		return newValidationError("key validation error: key cannot be empty")
	case len([]rune(key)) > MaxKeyLength:
		return newValidationError("key validation error: %s cannot be larger than %d characters", key, MaxKeyLength)
	case strings.Contains(key, ","):
		return newValidationError("key validation error: %s cannot contain commas", key)
	case strings.ContainsAny(key, `/\`) || key == "." || key == "..":
		return newValidationError("key validation error: %s must be a single path segment", key)
	}
	return nil
}
