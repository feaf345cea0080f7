package main

import (
	"strings"
	"testing"
)

func TestParseCLIFlagsPriority(t *testing.T) {
	t.Setenv("ANY_CACHE_CONFIG", "/tmp/env.toml")

	opts, err := parseCLIFlags([]string{"list"})
	if err != nil {
		t.Fatalf("解析失败: %v", err)
	}
	if opts.configPath != "/tmp/env.toml" {
		t.Fatalf("应优先使用环境变量，得到 %s", opts.configPath)
	}

	opts, err = parseCLIFlags([]string{"--config", "/tmp/flag.toml", "list"})
	if err != nil {
		t.Fatalf("解析失败: %v", err)
	}
	if opts.configPath != "/tmp/flag.toml" {
		t.Fatalf("flag 应高于环境变量，得到 %s", opts.configPath)
	}
}

func TestParseCLIFlagsRestore(t *testing.T) {
	opts, err := parseCLIFlags([]string{
		"restore",
		"--key", "npm-linux-abc",
		"--restore-key", "npm-linux-",
		"--restore-key", "npm-",
		"--path", "node_modules",
		"--path", "~/.npm\n.cache",
		"--store", "/tmp/store",
		"--lookup-only",
		"--fail-on-cache-miss",
	})
	if err != nil {
		t.Fatalf("解析失败: %v", err)
	}
	if opts.command != commandRestore || opts.key != "npm-linux-abc" {
		t.Fatalf("命令或 key 解析错误: %+v", opts)
	}
	if strings.Join(opts.restoreKeys, ",") != "npm-linux-,npm-" {
		t.Fatalf("restore-key 解析错误: %v", opts.restoreKeys)
	}
	if strings.Join(opts.paths, ",") != "node_modules,~/.npm,.cache" {
		t.Fatalf("path 解析错误: %v", opts.paths)
	}
	if !opts.lookupOnly || !opts.failOnMiss || opts.storePath != "/tmp/store" {
		t.Fatalf("布尔参数解析错误: %+v", opts)
	}
}

func TestParseCLIFlagsRejectsBadInput(t *testing.T) {
	cases := [][]string{
		{},
		{"prune"},
		{"save", "--lookup-only"},
		{"list", "extra"},
	}
	for _, args := range cases {
		if _, err := parseCLIFlags(args); err == nil {
			t.Fatalf("参数 %v 应返回错误", args)
		}
	}
}

func TestParseCLIFlagsAllowsGlobalOnly(t *testing.T) {
	opts, err := parseCLIFlags([]string{"--check-config"})
	if err != nil {
		t.Fatalf("解析失败: %v", err)
	}
	if !opts.checkOnly || opts.command != "" {
		t.Fatalf("仅全局参数时不应要求子命令: %+v", opts)
	}
}

func TestRunCheckConfigSuccess(t *testing.T) {
	useBufferWriters(t)
	code := run(cliOptions{configPath: configFixture(t, "valid.toml"), checkOnly: true})
	if code != 0 {
		t.Fatalf("期望退出码 0，得到 %d (stderr=%s)", code, stdErrBuffer().String())
	}
}

func TestRunCheckConfigFailure(t *testing.T) {
	useBufferWriters(t)
	code := run(cliOptions{configPath: configFixture(t, "invalid.toml"), checkOnly: true})
	if code == 0 {
		t.Fatalf("无效配置应返回非零退出码")
	}
}

func TestRunVersionOutput(t *testing.T) {
	useBufferWriters(t)
	code := run(cliOptions{showVersion: true})
	if code != 0 {
		t.Fatalf("version 模式应成功退出，得到 %d", code)
	}
	if !strings.Contains(stdOutBuffer().String(), "any-cache") {
		t.Fatalf("version 输出应包含 any-cache 标识")
	}
}

func TestStringListSplitsLines(t *testing.T) {
	var list stringList
	_ = list.Set("a\n\n b ")
	_ = list.Set("c")
	if list.String() != "a,b,c" {
		t.Fatalf("stringList 解析错误: %s", list.String())
	}
}
