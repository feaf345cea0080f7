package cache

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/sirupsen/logrus"

	"github.com/any-hub/any-cache/internal/archive"
)

// Options 在构造 Restorer/Saver 时一次性给定，算法执行过程中不再读取环境。
type Options struct {
	// StoragePath 覆盖默认缓存根目录；为空时使用 DefaultStorePath。
	StoragePath string
	// Namespace 可选的子目录，用于在同一根目录下隔离不同仓库。
	Namespace string
	// Compression 压缩偏好，auto 或空值由归档引擎探测。
	Compression archive.Method
	// WorkingDir 归档内路径的相对基准，也是恢复时的解压目标；默认当前目录。
	WorkingDir string
	// TempDir 保存时临时归档所在目录；默认 os.TempDir()。
	TempDir string
	// ListArchiveContents 打开后总是列出归档内容（debug 级别日志同样会触发）。
	ListArchiveContents bool
	// MaxArchiveSize 大于 0 时，超出该字节数的归档不会被保存。
	MaxArchiveSize int64

	Logger *logrus.Logger
	Engine archive.Engine
	// Store 为空时基于 StoragePath/Namespace 构建磁盘 Store。
	Store Store
}

// pipeline 是 Restorer 与 Saver 共享的已解析配置。
type pipeline struct {
	store          Store
	engine         archive.Engine
	method         archive.Method
	fileName       string
	workDir        string
	tempDir        string
	listContents   bool
	maxArchiveSize int64
	logger         *logrus.Logger
}

func newPipeline(opts Options) (*pipeline, error) {
	method, err := archive.ResolveMethod(opts.Compression)
	if err != nil {
		return nil, err
	}
	fileName, err := CacheFileName(method)
	if err != nil {
		return nil, err
	}

	store := opts.Store
	if store == nil {
		root, err := RepoCacheStorePath(opts.StoragePath, opts.Namespace)
		if err != nil {
			return nil, err
		}
		if store, err = NewStore(root); err != nil {
			return nil, err
		}
	}

	workDir := opts.WorkingDir
	if workDir == "" {
		if workDir, err = os.Getwd(); err != nil {
			return nil, fmt.Errorf("resolve working directory: %w", err)
		}
	}
	if workDir, err = filepath.Abs(workDir); err != nil {
		return nil, fmt.Errorf("resolve working directory: %w", err)
	}

	tempDir := opts.TempDir
	if tempDir == "" {
		tempDir = os.TempDir()
	}

	engine := opts.Engine
	if engine == nil {
		engine = archive.NewTarEngine()
	}

	logger := opts.Logger
	if logger == nil {
		logger = logrus.New()
		logger.SetOutput(io.Discard)
	}

	return &pipeline{
		store:          store,
		engine:         engine,
		method:         method,
		fileName:       fileName,
		workDir:        workDir,
		tempDir:        tempDir,
		listContents:   opts.ListArchiveContents,
		maxArchiveSize: opts.MaxArchiveSize,
		logger:         logger,
	}, nil
}

// Method 返回本实例解析出的压缩方式。
func (p *pipeline) Method() archive.Method {
	return p.method
}

// StorePath 返回缓存根目录。
func (p *pipeline) StorePath() string {
	return p.store.Root()
}

func (p *pipeline) shouldList() bool {
	return p.listContents || p.logger.IsLevelEnabled(logrus.DebugLevel)
}

func (p *pipeline) fields(action string, keys ...string) logrus.Fields {
	fields := logrus.Fields{
		"action":      action,
		"store":       p.store.Root(),
		"compression": string(p.method),
	}
	if len(keys) == 1 {
		fields["key"] = keys[0]
	} else if len(keys) > 1 {
		fields["keys"] = keys
	}
	return fields
}

// logContents 将归档条目逐条输出到 debug 日志，仅用于诊断。
func (p *pipeline) logContents(fields logrus.Fields, names []string) {
	entry := p.logger.WithFields(fields)
	for _, name := range names {
		entry.Debug(name)
	}
	entry.WithField("entries", len(names)).Info("archive contents listed")
}
