package config

import (
	"errors"
	"fmt"

	"github.com/sirupsen/logrus"

	"github.com/any-hub/any-cache/internal/archive"
	"github.com/any-hub/any-cache/internal/cache"
)

// Validate 针对语义级别做进一步校验，防止非法配置进入保存/恢复流程。
func (c *Config) Validate() error {
	if c == nil {
		return errors.New("配置为空")
	}

	g := c.Global
	if g.ListenPort <= 0 || g.ListenPort > 65535 {
		return newFieldError("Global.ListenPort", "必须在 1-65535")
	}
	if _, err := logrus.ParseLevel(g.LogLevel); err != nil {
		return newFieldError("Global.LogLevel", fmt.Sprintf("无法识别的日志级别: %s", g.LogLevel))
	}
	if g.LogFormat != "" && g.LogFormat != "json" && g.LogFormat != "text" {
		return newFieldError("Global.LogFormat", "仅支持 json/text")
	}
	if g.LogMaxSize < 0 || g.LogMaxBackups < 0 {
		return newFieldError("Global.LogMaxSize/LogMaxBackups", "不能为负数")
	}

	s := c.Store
	if s.StoragePath == "" {
		return newFieldError("Store.StoragePath", "不能为空")
	}
	if _, err := archive.ParseMethod(s.Compression); err != nil {
		return newFieldError("Store.Compression", "仅支持 auto/none/gzip/zstd")
	}
	if s.Namespace != "" {
		if err := cache.ValidateKeys([]string{s.Namespace}); err != nil {
			return newFieldError("Store.Namespace", "必须是单层目录名")
		}
	}
	if s.MaxArchiveSize < 0 {
		return newFieldError("Store.MaxArchiveSize", "不能为负数")
	}
	if s.OperationTimeout.DurationValue() < 0 {
		return newFieldError("Store.OperationTimeout", "不能为负数")
	}

	return nil
}

// CacheOptions 将配置映射为 cache.Options；Logger 与 Engine 由调用方注入。
func (s StoreConfig) CacheOptions() (cache.Options, error) {
	method, err := archive.ParseMethod(s.Compression)
	if err != nil {
		return cache.Options{}, err
	}
	return cache.Options{
		StoragePath:         s.StoragePath,
		Namespace:           s.Namespace,
		Compression:         method,
		WorkingDir:          s.WorkingDir,
		TempDir:             s.TempDir,
		ListArchiveContents: s.ListArchiveContents,
		MaxArchiveSize:      s.MaxArchiveSize.Int64(),
	}, nil
}
