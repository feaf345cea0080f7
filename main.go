package main

import (
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/any-hub/any-cache/internal/config"
	"github.com/any-hub/any-cache/internal/logging"
)

const (
	commandRestore = "restore"
	commandSave    = "save"
	commandList    = "list"
	commandServe   = "serve"

	// defaultConfigName 仅在当前目录存在时才被读取，配置文件本身可选。
	defaultConfigName = "any-cache.toml"
	configEnv         = "ANY_CACHE_CONFIG"
)

// cliOptions 汇总 CLI 标志解析后的结果，便于在测试中注入。
type cliOptions struct {
	configPath  string
	checkOnly   bool
	showVersion bool

	command     string
	key         string
	restoreKeys stringList
	paths       stringList
	storePath   string
	lookupOnly  bool
	failOnMiss  bool
}

// stringList 让 --path/--restore-key 可以重复出现，同时支持换行分隔的多值写法。
type stringList []string

func (s *stringList) String() string {
	if s == nil {
		return ""
	}
	return strings.Join(*s, ",")
}

func (s *stringList) Set(value string) error {
	for _, line := range strings.Split(value, "\n") {
		if line = strings.TrimSpace(line); line != "" {
			*s = append(*s, line)
		}
	}
	return nil
}

var (
	stdOut io.Writer = os.Stdout
	stdErr io.Writer = os.Stderr
)

func main() {
	opts, err := parseCLIFlags(os.Args[1:])
	if err != nil {
		fmt.Fprintln(stdErr, err.Error())
		os.Exit(2)
	}
	os.Exit(run(opts))
}

// run 根据解析到的 CLI 选项执行业务流程，并返回退出码，方便测试。
func run(opts cliOptions) int {
	if opts.showVersion {
		printVersion()
		return 0
	}

	cfg, err := config.Load(opts.configPath)
	if err != nil {
		fmt.Fprintf(stdErr, "加载配置失败: %v\n", err)
		return 1
	}

	if opts.storePath != "" {
		abs, err := filepath.Abs(opts.storePath)
		if err != nil {
			fmt.Fprintf(stdErr, "解析缓存目录失败: %v\n", err)
			return 1
		}
		cfg.Store.StoragePath = abs
	}

	logger, err := logging.InitLogger(cfg.Global)
	if err != nil {
		fmt.Fprintf(stdErr, "初始化日志失败: %v\n", err)
		return 1
	}

	if opts.checkOnly {
		fields := logging.BaseFields("check_config", opts.configPath)
		fields["store_path"] = cfg.Store.StoragePath
		fields["compression"] = cfg.Store.Compression
		fields["result"] = "ok"
		logger.WithFields(fields).Info("配置校验通过")
		return 0
	}

	ctx, cancel := commandContext(cfg, opts.command)
	defer cancel()

	switch opts.command {
	case commandRestore:
		return runRestore(ctx, cfg, logger, opts)
	case commandSave:
		return runSave(ctx, cfg, logger, opts)
	case commandList:
		return runList(ctx, cfg, logger, opts)
	case commandServe:
		return runServe(ctx, cfg, logger, opts)
	default:
		fmt.Fprintf(stdErr, "未知命令: %s\n", opts.command)
		return 2
	}
}

// parseCLIFlags 解析全局参数与子命令参数，并结合环境变量计算最终的配置路径。
func parseCLIFlags(args []string) (cliOptions, error) {
	fs := flag.NewFlagSet("any-cache", flag.ContinueOnError)
	fs.SetOutput(io.Discard)

	var (
		opts       cliOptions
		configFlag string
	)

	fs.StringVar(&configFlag, "config", "", "配置文件路径（可被 ANY_CACHE_CONFIG 覆盖，默认读取存在的 ./any-cache.toml）")
	fs.BoolVar(&opts.checkOnly, "check-config", false, "仅校验配置后退出")
	fs.BoolVar(&opts.showVersion, "version", false, "显示版本信息")

	if err := fs.Parse(args); err != nil {
		return cliOptions{}, fmt.Errorf("解析参数失败: %w", err)
	}

	opts.configPath = resolveConfigPath(configFlag)

	rest := fs.Args()
	if len(rest) == 0 {
		if opts.checkOnly || opts.showVersion {
			return opts, nil
		}
		return cliOptions{}, errors.New("缺少子命令: restore | save | list | serve")
	}

	opts.command = rest[0]
	sub, err := commandFlagSet(opts.command, &opts)
	if err != nil {
		return cliOptions{}, err
	}
	if err := sub.Parse(rest[1:]); err != nil {
		return cliOptions{}, fmt.Errorf("解析 %s 参数失败: %w", opts.command, err)
	}
	if sub.NArg() > 0 {
		return cliOptions{}, fmt.Errorf("%s 不接受位置参数: %s", opts.command, strings.Join(sub.Args(), " "))
	}
	return opts, nil
}

func commandFlagSet(command string, opts *cliOptions) (*flag.FlagSet, error) {
	fs := flag.NewFlagSet("any-cache "+command, flag.ContinueOnError)
	fs.SetOutput(io.Discard)
	fs.StringVar(&opts.storePath, "store", "", "覆盖配置中的缓存根目录")

	switch command {
	case commandRestore:
		fs.StringVar(&opts.key, "key", "", "主 key")
		fs.Var(&opts.restoreKeys, "restore-key", "按顺序尝试的前缀 key，可重复")
		fs.Var(&opts.paths, "path", "需要恢复的路径，可重复")
		fs.BoolVar(&opts.lookupOnly, "lookup-only", false, "只检查是否命中，不解压")
		fs.BoolVar(&opts.failOnMiss, "fail-on-cache-miss", false, "未命中时以非零退出码结束")
	case commandSave:
		fs.StringVar(&opts.key, "key", "", "保存使用的 key")
		fs.Var(&opts.paths, "path", "需要缓存的路径或 glob，可重复")
	case commandList, commandServe:
	default:
		return nil, fmt.Errorf("未知命令: %s", command)
	}
	return fs, nil
}

// resolveConfigPath 优先级：--config > ANY_CACHE_CONFIG > 当前目录下存在的 any-cache.toml。
func resolveConfigPath(flagValue string) string {
	if flagValue != "" {
		return flagValue
	}
	if env := os.Getenv(configEnv); env != "" {
		return env
	}
	if info, err := os.Stat(defaultConfigName); err == nil && info.Mode().IsRegular() {
		return defaultConfigName
	}
	return ""
}
