package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"text/tabwriter"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/gofiber/fiber/v3"
	"github.com/sirupsen/logrus"

	"github.com/any-hub/any-cache/internal/archive"
	"github.com/any-hub/any-cache/internal/cache"
	"github.com/any-hub/any-cache/internal/config"
	"github.com/any-hub/any-cache/internal/logging"
	"github.com/any-hub/any-cache/internal/server"
	"github.com/any-hub/any-cache/internal/server/routes"
	"github.com/any-hub/any-cache/internal/version"
)

// commandContext 在收到 SIGINT/SIGTERM 时取消；restore/save 额外受 OperationTimeout 约束。
func commandContext(cfg *config.Config, command string) (context.Context, context.CancelFunc) {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	timeout := cfg.Store.OperationTimeout.DurationValue()
	if timeout <= 0 || command == commandServe {
		return ctx, stop
	}
	timed, cancel := context.WithTimeout(ctx, timeout)
	return timed, func() {
		cancel()
		stop()
	}
}

func cacheOptions(cfg *config.Config, logger *logrus.Logger) (cache.Options, error) {
	opts, err := cfg.Store.CacheOptions()
	if err != nil {
		return cache.Options{}, err
	}
	opts.Logger = logger
	return opts, nil
}

func runRestore(ctx context.Context, cfg *config.Config, logger *logrus.Logger, opts cliOptions) int {
	fields := logging.BaseFields("restore", opts.configPath)

	cacheOpts, err := cacheOptions(cfg, logger)
	var restorer *cache.Restorer
	if err == nil {
		restorer, err = cache.NewRestorer(cacheOpts)
	}
	if err != nil {
		logger.WithFields(fields).WithError(err).Warn("failed to restore cache")
		printRestoreOutputs(cache.RestoreResult{})
		return missExitCode(opts)
	}

	var restoreOpts []cache.RestoreOption
	if opts.lookupOnly {
		restoreOpts = append(restoreOpts, cache.WithLookupOnly())
	}
	result, err := restorer.Restore(ctx, opts.paths, opts.key, opts.restoreKeys, restoreOpts...)
	if err != nil {
		fmt.Fprintf(stdErr, "恢复参数无效: %v\n", err)
		return 1
	}

	printRestoreOutputs(result)
	matched, _ := result.MatchedKey()
	for k, v := range logging.CacheFields(matched, string(restorer.Method()), restorer.StorePath(), result.Hit()) {
		fields[k] = v
	}
	fields["outcome"] = result.Outcome.String()
	logger.WithFields(fields).Debug("restore finished")

	if !result.Hit() {
		return missExitCode(opts)
	}
	return 0
}

func printRestoreOutputs(result cache.RestoreResult) {
	matched, _ := result.MatchedKey()
	fmt.Fprintf(stdOut, "cache-hit=%t\n", result.ExactMatch)
	fmt.Fprintf(stdOut, "cache-matched-key=%s\n", matched)
}

func missExitCode(opts cliOptions) int {
	if !opts.failOnMiss {
		return 0
	}
	fmt.Fprintf(stdErr, "Failed to restore cache entry. Exiting as fail-on-cache-miss is set. Input key: %s\n", opts.key)
	return 1
}

func runSave(ctx context.Context, cfg *config.Config, logger *logrus.Logger, opts cliOptions) int {
	fields := logging.BaseFields("save", opts.configPath)

	cacheOpts, err := cacheOptions(cfg, logger)
	var saver *cache.Saver
	if err == nil {
		saver, err = cache.NewSaver(cacheOpts)
	}
	if err != nil {
		logger.WithFields(fields).WithError(err).Warn("failed to save cache")
		fmt.Fprintln(stdOut, "cache-saved=false")
		return 0
	}

	status, err := saver.Save(ctx, opts.paths, opts.key)
	if err != nil {
		fmt.Fprintf(stdErr, "保存参数无效: %v\n", err)
		return 1
	}

	saved := status == cache.StatusSuccess
	fmt.Fprintf(stdOut, "cache-saved=%t\n", saved)
	for k, v := range logging.CacheFields(opts.key, string(saver.Method()), saver.StorePath(), false) {
		fields[k] = v
	}
	fields["status"] = status.String()
	logger.WithFields(fields).Debug("save finished")
	return 0
}

func openStore(cfg *config.Config) (cache.Store, error) {
	root, err := cache.RepoCacheStorePath(cfg.Store.StoragePath, cfg.Store.Namespace)
	if err != nil {
		return nil, err
	}
	return cache.NewStore(root)
}

func runList(ctx context.Context, cfg *config.Config, logger *logrus.Logger, opts cliOptions) int {
	store, err := openStore(cfg)
	if err != nil {
		fmt.Fprintf(stdErr, "初始化缓存目录失败: %v\n", err)
		return 1
	}
	entries, err := store.Entries(ctx)
	if err != nil {
		fmt.Fprintf(stdErr, "读取缓存条目失败: %v\n", err)
		return 1
	}

	tw := tabwriter.NewWriter(stdOut, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "KEY\tMETHOD\tSIZE\tMODIFIED")
	for _, entry := range entries {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n",
			entry.Key,
			entry.Method,
			humanize.IBytes(uint64(entry.SizeBytes)),
			humanize.Time(entry.ModTime),
		)
	}
	if err := tw.Flush(); err != nil {
		fmt.Fprintf(stdErr, "输出失败: %v\n", err)
		return 1
	}

	fields := logging.BaseFields("list", opts.configPath)
	fields["store_path"] = store.Root()
	fields["entries"] = len(entries)
	logger.WithFields(fields).Debug("entries listed")
	return 0
}

func runServe(ctx context.Context, cfg *config.Config, logger *logrus.Logger, opts cliOptions) int {
	store, err := openStore(cfg)
	if err != nil {
		fmt.Fprintf(stdErr, "初始化缓存目录失败: %v\n", err)
		return 1
	}
	preferred, err := archive.ParseMethod(cfg.Store.Compression)
	if err == nil {
		preferred, err = archive.ResolveMethod(preferred)
	}
	if err != nil {
		fmt.Fprintf(stdErr, "解析压缩方式失败: %v\n", err)
		return 1
	}

	port := cfg.Global.ListenPort
	app, err := server.NewApp(server.AppOptions{
		Logger:     logger,
		Store:      store,
		Method:     preferred,
		ListenPort: port,
	})
	if err != nil {
		fmt.Fprintf(stdErr, "构建诊断服务失败: %v\n", err)
		return 1
	}
	routes.RegisterEntryRoutes(app, store, preferred)
	routes.RegisterCodecRoutes(app)
	server.RegisterFallback(app, logger)

	fields := logging.BaseFields("startup", opts.configPath)
	fields["listen_port"] = port
	fields["store_path"] = store.Root()
	fields["method"] = string(preferred)
	fields["version"] = version.Full()
	logger.WithFields(fields).Info("Fiber 诊断服务启动")

	go func() {
		<-ctx.Done()
		_ = app.ShutdownWithTimeout(5 * time.Second)
	}()

	err = app.Listen(fmt.Sprintf(":%d", port), fiber.ListenConfig{DisableStartupMessage: true})
	if err != nil && !errors.Is(err, context.Canceled) {
		fmt.Fprintf(stdErr, "HTTP 服务启动失败: %v\n", err)
		return 1
	}
	return 0
}
