// bpfsscript 命令行：验证交易输入、管理前序输出、运行测试向量和查看审计日志

package main

import (
	"context"
	"os"
	"path/filepath"
	"strings"

	"github.com/jessevdk/go-flags"
	"github.com/pkg/errors"
	"github.com/qinglongcn/bpfsscript"
	"github.com/sirupsen/logrus"
)

// realMain 解析命令行并执行子命令，使 defer 在 os.Exit 之前运行
func realMain() error {
	appName := filepath.Base(os.Args[0])
	appName = strings.TrimSuffix(appName, filepath.Ext(appName))
	parser := flags.NewNamedParser(appName, flags.HelpFlag|flags.PassDoubleDash)
	if _, err := parser.AddGroup("Global Options", "", &cfg); err != nil {
		return err
	}

	commands := []struct {
		name, short, long string
		data              interface{}
	}{
		{"verify", "Verify one input against a given previous output",
			"Verify a single transaction input. The spent output is given on " +
				"the command line as a hex public key script and an amount.", &verifyCmd},
		{"verifytx", "Verify every input of a transaction",
			"Verify every input in parallel using previous outputs stored " +
				"with the import command.", &verifyTxCmd},
		{"import", "Store the outputs of a funding transaction",
			"Store every output of the transaction so later verifications " +
				"can find the outputs it creates.", &importCmd},
		{"vectors", "Run a script_tests.json vector file", "", &vectorsCmd},
		{"disasm", "Disassemble and classify a script or transaction", "", &disasmCmd},
		{"history", "Show the verification audit log", "", &historyCmd},
		{"selfupdate", "Replace this program with a new build", "", &selfupdateCmd},
	}
	for _, c := range commands {
		if _, err := parser.AddCommand(c.name, c.short, c.long, c.data); err != nil {
			return err
		}
	}

	if _, err := parser.Parse(); err != nil {
		if e, ok := err.(*flags.Error); ok && e.Type == flags.ErrHelp {
			parser.WriteHelp(os.Stderr)
			return nil
		}
		return err
	}
	return nil
}

// openInstance 按全局选项打开验证实例，收到终止信号时关闭数据库并退出
func openInstance(ctx context.Context) (*bpfsscript.BS, error) {
	opt, err := cfg.options()
	if err != nil {
		return nil, err
	}

	level, err := logrus.ParseLevel(cfg.DebugLevel)
	if err != nil {
		return nil, errors.Wrap(err, "解析日志级别")
	}
	opt.LogLevel = level
	if err := opt.CheckAndSetOptions(); err != nil {
		return nil, err
	}
	if err := os.MkdirAll(opt.Paths().Logs, 0755); err != nil {
		return nil, errors.Wrap(err, "创建日志目录")
	}
	if err := bpfsscript.SetLog(opt.Paths().Logs, opt.InstanceId, level); err != nil {
		return nil, err
	}

	bs, err := bpfsscript.Open(ctx, opt)
	if err != nil {
		return nil, err
	}

	go bpfsscript.WaitForShutdown(func() {
		if err := bs.Close(); err != nil {
			logrus.Errorf("关闭验证实例失败: %v", err)
		}
		os.Exit(1)
	})
	return bs, nil
}

func main() {
	if err := realMain(); err != nil {
		logrus.Error(err)
		os.Exit(1)
	}
}
