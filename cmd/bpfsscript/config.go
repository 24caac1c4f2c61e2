package main

import (
	"encoding/hex"
	"path/filepath"

	"github.com/btcsuite/btcd/chaincfg"
	"github.com/btcsuite/btcd/wire"
	"github.com/pkg/errors"
	"github.com/qinglongcn/bpfsscript"
)

// globalOptions 是所有子命令共用的选项
type globalOptions struct {
	RootPath     string `long:"root" description:"Instance root directory (absolute path)"`
	InstanceId   string `long:"instance" description:"Instance identifier, defaults to the primary MAC address"`
	Flags        string `long:"flags" description:"Comma separated script verification flags, e.g. P2SH,STRICTENC,WITNESS (default: standard flags)"`
	Workers      int    `long:"workers" description:"Number of inputs verified in parallel (default: number of CPUs)"`
	SigCacheSize uint   `long:"sigcachemaxsize" default:"50000" description:"Maximum number of entries in the signature cache"`
	NoAudit      bool   `long:"noaudit" description:"Do not record verifications in the audit log"`
	DebugLevel   string `short:"d" long:"debuglevel" default:"info" description:"Logging level {trace, debug, info, warn, error}"`
	TestNet      bool   `long:"testnet" description:"Use testnet address encoding in reports"`
}

var cfg globalOptions

// options 将命令行选项转换为实例选项
func (g *globalOptions) options() (*bpfsscript.Options, error) {
	opt := bpfsscript.DefaultOptions()
	if g.RootPath != "" {
		abs, err := filepath.Abs(g.RootPath)
		if err != nil {
			return nil, errors.Wrap(err, "解析根路径")
		}
		opt.BuildRootPath(abs)
	}
	opt.BuildInstanceId(g.InstanceId)
	if g.Flags != "" {
		if err := opt.BuildFlags(g.Flags); err != nil {
			return nil, err
		}
	}
	opt.BuildWorkers(g.Workers)
	opt.BuildSigCacheSize(g.SigCacheSize)
	opt.BuildAudit(!g.NoAudit)
	return opt, nil
}

// params 返回地址编码使用的网络参数
func (g *globalOptions) params() *chaincfg.Params {
	if g.TestNet {
		return &chaincfg.TestNet3Params
	}
	return &chaincfg.MainNetParams
}

// txSource 从命令行的十六进制或文件读取交易
type txSource struct {
	Tx     string `long:"tx" description:"Serialized transaction in hex"`
	TxFile string `long:"txfile" description:"File containing a serialized transaction in hex"`
}

// load 读取交易，文件相对路径以当前目录为准
func (s *txSource) load(fs *bpfsscript.FileStore) (*wire.MsgTx, error) {
	switch {
	case s.Tx != "" && s.TxFile != "":
		return nil, errors.New("--tx 和 --txfile 只能指定一个")

	case s.Tx != "":
		raw, err := hex.DecodeString(s.Tx)
		if err != nil {
			return nil, errors.Wrap(err, "解码交易")
		}
		return bpfsscript.DecodeTx(raw)

	case s.TxFile != "":
		abs, err := filepath.Abs(s.TxFile)
		if err != nil {
			return nil, err
		}
		return fs.ReadTx(abs)
	}
	return nil, errors.New("需要 --tx 或 --txfile")
}
