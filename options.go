package bpfsscript

import (
	"os"
	"path/filepath"
	"runtime"

	"github.com/pkg/errors"
	"github.com/qinglongcn/bpfsscript/txscript"
	"github.com/sirupsen/logrus"
)

const (
	// DefaultSigCacheSize 是签名缓存默认的最大条目数
	DefaultSigCacheSize = 50000
	// DefaultHashCacheSize 是 BIP0143 中间哈希缓存默认的最大交易数
	DefaultHashCacheSize = 1000
)

// Options 是用于创建验证实例的参数
type Options struct {
	IsOpened bool `optional:"false"  default:"false"` // 实例是否已打开
	InMemory bool `optional:"false"  default:"false"` // 前序输出库只保存在内存中
	Audit    bool `optional:"false"  default:"true"`  // 是否记录审计日志

	InstanceId string // 验证实例的标识符
	RootPath   string // 文件根路径

	Flags         txscript.ScriptFlags // 脚本验证标志
	Workers       int                  // 并行验证输入的协程数
	SigCacheSize  uint                 // 签名缓存的最大条目数，0 表示不使用
	HashCacheSize uint                 // 中间哈希缓存的最大交易数，0 表示不使用
	LogLevel      logrus.Level         // 日志级别
}

// DefaultOptions 设置一个推荐选项列表以获得良好的性能
func DefaultOptions() *Options {
	return &Options{
		RootPath:      defaultRootPath(),
		Flags:         txscript.StandardVerifyFlags,
		Workers:       runtime.NumCPU(),
		SigCacheSize:  DefaultSigCacheSize,
		HashCacheSize: DefaultHashCacheSize,
		LogLevel:      logrus.InfoLevel,
		Audit:         true,
	}
}

// BuildInstanceId 设置实例ID
func (opt *Options) BuildInstanceId(instanceId ...string) {
	if opt.IsOpened {
		return
	}

	var mac string
	var err error
	if len(instanceId) > 0 && instanceId[0] != "" {
		mac = instanceId[0]
	} else {
		mac, err = GetPrimaryMACAddress()
		if err != nil {
			// 生成随机字符串作为替代值
			mac, _ = generateRandomString(12)
		}
	}
	opt.InstanceId = mac
}

// BuildRootPath 设置文件根路径
func (opt *Options) BuildRootPath(path string) {
	if opt.IsOpened || path == "" {
		return
	}

	// 只接受绝对路径
	if !filepath.IsAbs(path) {
		logrus.Warnf("[BuildRootPath] 忽略相对路径: %s", path)
		return
	}

	// 如果路径不存在，尝试创建它
	if _, err := os.Stat(path); os.IsNotExist(err) {
		if err := os.MkdirAll(path, 0755); err != nil {
			logrus.Warnf("[BuildRootPath] 创建目录失败: %v", err)
			return
		}
	}

	opt.RootPath = path
}

// BuildFlags 按核心的名称设置脚本验证标志，例如 "P2SH,STRICTENC,WITNESS"
func (opt *Options) BuildFlags(names string) error {
	if opt.IsOpened {
		return nil
	}

	flags, err := txscript.ParseScriptFlags(names)
	if err != nil {
		return errors.Wrapf(err, "解析验证标志 %q", names)
	}
	opt.Flags = flags
	return nil
}

// BuildWorkers 设置并行验证的协程数
func (opt *Options) BuildWorkers(n int) {
	if opt.IsOpened || n <= 0 {
		return
	}
	opt.Workers = n
}

// BuildSigCacheSize 设置签名缓存的大小
func (opt *Options) BuildSigCacheSize(n uint) {
	if opt.IsOpened {
		return
	}
	opt.SigCacheSize = n
}

// BuildAudit 开启或关闭审计日志
func (opt *Options) BuildAudit(enabled bool) {
	if opt.IsOpened {
		return
	}
	opt.Audit = enabled
}

// BuildInMemory 让前序输出库只保存在内存中
func (opt *Options) BuildInMemory() {
	if opt.IsOpened {
		return
	}
	opt.InMemory = true
}

// Paths 返回实例的目录布局
func (opt *Options) Paths() Paths {
	return NewPaths(opt.RootPath)
}

// CheckAndSetOptions 检查并设置选项
func (opt *Options) CheckAndSetOptions() error {
	if opt.IsOpened {
		return errors.Errorf("'%s' 验证实例已打开", opt.InstanceId)
	}
	if opt.RootPath == "" {
		return errors.New("根路径不能为空")
	}
	if opt.InstanceId == "" {
		opt.BuildInstanceId()
	}
	if opt.Workers <= 0 {
		opt.Workers = runtime.NumCPU()
	}

	// 清洁栈和见证规则都依赖 P2SH。
	if !opt.Flags.HasFlag(txscript.ScriptBip16) &&
		(opt.Flags.HasFlag(txscript.ScriptVerifyCleanStack) ||
			opt.Flags.HasFlag(txscript.ScriptVerifyWitness)) {

		return errors.Errorf("验证标志 %v 缺少 P2SH", opt.Flags)
	}

	return nil
}
