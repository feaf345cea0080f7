package config

import (
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/any-hub/any-cache/internal/archive"
	"github.com/any-hub/any-cache/internal/cache"
)

func TestLoadValidFile(t *testing.T) {
	cfg, err := Load(testConfigPath(t, "valid.toml"))
	if err != nil {
		t.Fatalf("Load 返回错误: %v", err)
	}
	if !filepath.IsAbs(cfg.Store.StoragePath) {
		t.Fatalf("StoragePath 应被转换为绝对路径: %s", cfg.Store.StoragePath)
	}
	if !filepath.IsAbs(cfg.Store.WorkingDir) {
		t.Fatalf("WorkingDir 应被转换为绝对路径: %s", cfg.Store.WorkingDir)
	}
	if cfg.Store.Namespace != "ci" {
		t.Fatalf("Namespace 解析错误: %q", cfg.Store.Namespace)
	}
	if cfg.Store.Compression != "gzip" {
		t.Fatalf("Compression 解析错误: %q", cfg.Store.Compression)
	}
	if cfg.Store.MaxArchiveSize.Int64() != 2_000_000_000 {
		t.Fatalf("MaxArchiveSize 解析错误: %d", cfg.Store.MaxArchiveSize)
	}
	if cfg.Store.OperationTimeout.DurationValue() != 10*time.Minute {
		t.Fatalf("OperationTimeout 解析错误: %s", cfg.Store.OperationTimeout.DurationValue())
	}
	if !cfg.Store.ListArchiveContents {
		t.Fatalf("ListArchiveContents 应为 true")
	}
	if cfg.Global.LogLevel != "debug" || cfg.Global.LogCompress {
		t.Fatalf("日志配置解析错误: %+v", cfg.Global)
	}
}

func TestLoadWithoutFileUsesDefaults(t *testing.T) {
	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load 返回错误: %v", err)
	}
	if cfg.Global.ListenPort != 5080 {
		t.Fatalf("ListenPort 默认值错误: %d", cfg.Global.ListenPort)
	}
	if cfg.Global.LogLevel != "info" {
		t.Fatalf("LogLevel 默认值错误: %s", cfg.Global.LogLevel)
	}
	if cfg.Global.LogFormat != "json" {
		t.Fatalf("LogFormat 默认值错误: %s", cfg.Global.LogFormat)
	}
	if cfg.Store.Compression != "auto" {
		t.Fatalf("Compression 默认值错误: %s", cfg.Store.Compression)
	}
	want, _ := filepath.Abs(cache.DefaultStorePath())
	if cfg.Store.StoragePath != want {
		t.Fatalf("StoragePath 默认值错误: %s != %s", cfg.Store.StoragePath, want)
	}
	if cfg.Store.WorkingDir != "" {
		t.Fatalf("WorkingDir 默认应为空: %s", cfg.Store.WorkingDir)
	}
}

func TestLoadEnvironmentOverrides(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("ANY_CACHE_STORAGEPATH", dir)
	t.Setenv("ANY_CACHE_COMPRESSION", "zstd")
	t.Setenv("ANY_CACHE_MAXARCHIVESIZE", "1MiB")
	t.Setenv("ANY_CACHE_OPERATIONTIMEOUT", "45s")

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load 返回错误: %v", err)
	}
	if cfg.Store.StoragePath != dir {
		t.Fatalf("环境变量未覆盖 StoragePath: %s", cfg.Store.StoragePath)
	}
	if cfg.Store.Compression != "zstd" {
		t.Fatalf("环境变量未覆盖 Compression: %s", cfg.Store.Compression)
	}
	if cfg.Store.MaxArchiveSize.Int64() != 1<<20 {
		t.Fatalf("环境变量未覆盖 MaxArchiveSize: %d", cfg.Store.MaxArchiveSize)
	}
	if cfg.Store.OperationTimeout.DurationValue() != 45*time.Second {
		t.Fatalf("环境变量未覆盖 OperationTimeout: %s", cfg.Store.OperationTimeout.DurationValue())
	}
}

func TestValidateEnforcesListenPortRange(t *testing.T) {
	cfg := validConfig()
	cfg.Global.ListenPort = 70000
	if err := cfg.Validate(); err == nil {
		t.Fatalf("ListenPort 超出范围应当报错")
	}
}

func TestValidateCompression(t *testing.T) {
	testCases := []struct {
		name      string
		method    string
		shouldErr bool
	}{
		{"auto ok", "auto", false},
		{"none ok", "none", false},
		{"gzip ok", "gzip", false},
		{"zstd ok", "zstd", false},
		{"unsupported", "brotli", true},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			cfg := validConfig()
			cfg.Store.Compression = tc.method
			err := cfg.Validate()
			if tc.shouldErr && err == nil {
				t.Fatalf("expected error for compression %q", tc.method)
			}
			if !tc.shouldErr && err != nil {
				t.Fatalf("unexpected error for compression %q: %v", tc.method, err)
			}
		})
	}
}

func TestValidateReportsField(t *testing.T) {
	cfg := validConfig()
	cfg.Store.Namespace = "a/b"
	err := cfg.Validate()
	var fieldErr FieldError
	if !errors.As(err, &fieldErr) {
		t.Fatalf("应返回 FieldError, got %v", err)
	}
	if fieldErr.Field != "Store.Namespace" {
		t.Fatalf("字段路径错误: %s", fieldErr.Field)
	}
}

func TestValidateRejectsNegativeValues(t *testing.T) {
	cfg := validConfig()
	cfg.Store.MaxArchiveSize = -1
	if err := cfg.Validate(); err == nil {
		t.Fatalf("负数 MaxArchiveSize 应报错")
	}

	cfg = validConfig()
	cfg.Store.OperationTimeout = Duration(-time.Second)
	if err := cfg.Validate(); err == nil {
		t.Fatalf("负数 OperationTimeout 应报错")
	}

	cfg = validConfig()
	cfg.Global.LogFormat = "xml"
	if err := cfg.Validate(); err == nil {
		t.Fatalf("未知日志格式应报错")
	}

	cfg = validConfig()
	cfg.Global.LogLevel = "loud"
	if err := cfg.Validate(); err == nil {
		t.Fatalf("未知日志级别应报错")
	}
}

func TestCacheOptionsMapping(t *testing.T) {
	cfg := validConfig()
	cfg.Store.Compression = "zstd"
	cfg.Store.MaxArchiveSize = 1024

	opts, err := cfg.Store.CacheOptions()
	if err != nil {
		t.Fatalf("CacheOptions 返回错误: %v", err)
	}
	if opts.Compression != archive.MethodZstd {
		t.Fatalf("Compression 映射错误: %s", opts.Compression)
	}
	if opts.StoragePath != cfg.Store.StoragePath || opts.Namespace != cfg.Store.Namespace {
		t.Fatalf("路径映射错误: %+v", opts)
	}
	if opts.MaxArchiveSize != 1024 {
		t.Fatalf("MaxArchiveSize 映射错误: %d", opts.MaxArchiveSize)
	}
}

func TestByteSizeUnmarshalText(t *testing.T) {
	var size ByteSize
	if err := size.UnmarshalText([]byte("1.5 KB")); err != nil {
		t.Fatalf("UnmarshalText 返回错误: %v", err)
	}
	if size.Int64() != 1500 {
		t.Fatalf("解析结果错误: %d", size)
	}
	if err := size.UnmarshalText([]byte("lots")); err == nil {
		t.Fatalf("无效容量应报错")
	}
}

func TestDurationUnmarshalText(t *testing.T) {
	var d Duration
	if err := d.UnmarshalText([]byte("90")); err != nil {
		t.Fatalf("UnmarshalText 返回错误: %v", err)
	}
	if d.DurationValue() != 90*time.Second {
		t.Fatalf("纯数字应按秒解析: %s", d.DurationValue())
	}
}

func validConfig() *Config {
	return &Config{
		Global: GlobalConfig{
			ListenPort: 5080,
			LogLevel:   "info",
		},
		Store: StoreConfig{
			StoragePath: "./data",
			Namespace:   "ci",
			Compression: "auto",
		},
	}
}
