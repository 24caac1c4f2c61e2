package main

import (
	"context"
	"encoding/hex"
	"fmt"
	"os"
	"path/filepath"
	"runtime"

	"github.com/pkg/errors"
	"github.com/qinglongcn/bpfsscript"
	"github.com/qinglongcn/bpfsscript/txscript"
)

// vectorsCommand 运行测试向量文件
type vectorsCommand struct {
	Args struct {
		File string `positional-arg-name:"file" description:"script_tests.json formatted file"`
	} `positional-args:"yes" required:"yes"`
	Verbose bool `short:"v" long:"verbose" description:"Print every failing vector"`
}

var vectorsCmd vectorsCommand

// Execute 实现 flags.Commander
func (c *vectorsCommand) Execute(_ []string) error {
	fs, err := bpfsscript.NewFileStore(".")
	if err != nil {
		return err
	}
	abs, err := filepath.Abs(c.Args.File)
	if err != nil {
		return err
	}

	workers := cfg.Workers
	if workers <= 0 {
		workers = runtime.NumCPU()
	}
	var sigCache *txscript.SigCache
	if cfg.SigCacheSize > 0 {
		sigCache = txscript.NewSigCache(cfg.SigCacheSize)
	}

	report, err := fs.RunScriptTestsFile(context.Background(), abs, sigCache, workers)
	if err != nil {
		return err
	}
	if c.Verbose {
		for _, failure := range report.Failures {
			fmt.Println(failure)
		}
	}
	fmt.Printf("%d/%d vectors passed\n", report.Passed, report.Total)
	if len(report.Failures) > 0 {
		return errors.Errorf("%d vectors failed", len(report.Failures))
	}
	return nil
}

// disasmCommand 反汇编脚本或交易
type disasmCommand struct {
	txSource
	Script string `long:"script" description:"Script in hex"`
}

var disasmCmd disasmCommand

// Execute 实现 flags.Commander
func (c *disasmCommand) Execute(_ []string) error {
	if c.Script != "" {
		script, err := hex.DecodeString(c.Script)
		if err != nil {
			return errors.Wrap(err, "解码脚本")
		}
		fmt.Println(bpfsscript.DescribeScript(script, cfg.params()))
		return nil
	}

	fs, err := bpfsscript.NewFileStore(".")
	if err != nil {
		return err
	}
	tx, err := c.load(fs)
	if err != nil {
		return err
	}
	bpfsscript.PrintTx(os.Stdout, tx, cfg.params())
	return nil
}

// historyCommand 查看审计日志
type historyCommand struct {
	TxID  string `long:"txid" description:"Only show records of this transaction"`
	Limit int    `long:"limit" default:"20" description:"Maximum number of records"`
}

var historyCmd historyCommand

// Execute 实现 flags.Commander
func (c *historyCommand) Execute(_ []string) error {
	bs, err := openInstance(context.Background())
	if err != nil {
		return err
	}
	defer bs.Close()

	records, err := bpfsscript.ListAuditRecords(bs.DB(), c.TxID, c.Limit)
	if err != nil {
		return err
	}
	for _, ar := range records {
		fmt.Printf("%s %s:%d %s [%s] %s\n", ar.CreatedAt.Format("2006-01-02 15:04:05"),
			ar.TxID, ar.InputIndex, ar.Result, ar.Flags, ar.ErrMsg)
	}
	return nil
}

// selfupdateCommand 用新的程序文件替换当前程序
type selfupdateCommand struct {
	File    string `long:"file" required:"true" description:"New executable"`
	SHA256  string `long:"sha256" description:"Expected SHA256 of the new executable in hex"`
	Version string `long:"version" description:"Version of the new executable; older or equal versions are skipped"`
}

var selfupdateCmd selfupdateCommand

// Execute 实现 flags.Commander
func (c *selfupdateCommand) Execute(_ []string) error {
	if c.Version != "" && !bpfsscript.IsNewerVersion(c.Version) {
		fmt.Printf("current version %s is up to date\n", bpfsscript.Version)
		return nil
	}

	var checksum []byte
	if c.SHA256 != "" {
		var err error
		if checksum, err = hex.DecodeString(c.SHA256); err != nil {
			return errors.Wrap(err, "解码校验和")
		}
	}

	fs, err := bpfsscript.NewFileStore(".")
	if err != nil {
		return err
	}
	abs, err := filepath.Abs(c.File)
	if err != nil {
		return err
	}
	data, err := fs.ReadFile(abs)
	if err != nil {
		return err
	}
	return bpfsscript.Selfupdate(data, checksum)
}
