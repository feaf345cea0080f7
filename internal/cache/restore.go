package cache

import (
	"context"
	"errors"
	"fmt"

	"github.com/dustin/go-humanize"
	"github.com/sirupsen/logrus"
)

// RestoreOption 调整单次恢复的行为。
type RestoreOption func(*restoreConfig)

type restoreConfig struct {
	lookupOnly bool
}

// WithLookupOnly 只查找匹配条目，不解压归档。
func WithLookupOnly() RestoreOption {
	return func(cfg *restoreConfig) {
		cfg.lookupOnly = true
	}
}

// Restorer 根据有序 key 列表查找最佳条目并解压到工作目录。
type Restorer struct {
	*pipeline
}

// NewRestorer 解析压缩方式与缓存根目录，之后的每次 Restore 复用该结果。
func NewRestorer(opts Options) (*Restorer, error) {
	p, err := newPipeline(opts)
	if err != nil {
		return nil, err
	}
	return &Restorer{pipeline: p}, nil
}

// Restore 依次尝试 primaryKey 与 fallbackKeys。只有校验错误会作为 error 返回，
// 其它失败记录告警后以 OutcomeFailed 返回，调用方可按未命中处理。
func (r *Restorer) Restore(ctx context.Context, paths []string, primaryKey string, fallbackKeys []string, opts ...RestoreOption) (RestoreResult, error) {
	if err := CheckPaths(paths); err != nil {
		return RestoreResult{}, err
	}
	keys := append([]string{primaryKey}, fallbackKeys...)
	if err := ValidateKeys(keys); err != nil {
		return RestoreResult{}, err
	}

	var cfg restoreConfig
	for _, opt := range opts {
		opt(&cfg)
	}

	fields := r.fields("restore", keys...)
	result, err := r.restore(ctx, keys, cfg, fields)
	if err != nil {
		r.logger.WithFields(fields).WithError(err).Warn("failed to restore cache")
		return RestoreResult{Outcome: OutcomeFailed, Method: r.method, Err: err}, nil
	}
	return result, nil
}

func (r *Restorer) restore(ctx context.Context, keys []string, cfg restoreConfig, fields logrus.Fields) (RestoreResult, error) {
	match, err := r.store.Lookup(ctx, keys, r.method)
	if errors.Is(err, ErrNotFound) {
		r.logger.WithFields(fields).Info("cache not found for input keys")
		return RestoreResult{Outcome: OutcomeMiss, Method: r.method}, nil
	}
	if err != nil {
		return RestoreResult{}, wrapOperational(err, "look up cache entry")
	}

	result := RestoreResult{
		Outcome:     OutcomeHit,
		Key:         match.Key,
		ExactMatch:  match.Key == keys[0],
		ArchivePath: match.ArchivePath,
		Method:      match.Method,
		SizeBytes:   match.SizeBytes,
	}
	fields["matched_key"] = match.Key
	fields["archive"] = match.ArchivePath

	if cfg.lookupOnly {
		r.logger.WithFields(fields).Info("cache found, skipping restore (lookup only)")
		return result, nil
	}

	if r.shouldList() {
		names, err := r.engine.List(ctx, match.ArchivePath, match.Method)
		if err != nil {
			return RestoreResult{}, wrapOperational(err, "list archive %s", match.ArchivePath)
		}
		r.logContents(fields, names)
	}

	r.logger.WithFields(fields).WithField("size_bytes", match.SizeBytes).
		Info(fmt.Sprintf("cache size: ~%s (%d B)", humanize.Bytes(uint64(match.SizeBytes)), match.SizeBytes))

	if err := r.engine.Extract(ctx, match.ArchivePath, r.workDir, match.Method); err != nil {
		return RestoreResult{}, wrapOperational(err, "extract archive %s", match.ArchivePath)
	}

	r.logger.WithFields(fields).Info("cache restored from key: " + match.Key)
	return result, nil
}
