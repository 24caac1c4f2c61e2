package bpfsscript

import (
	"context"

	"github.com/pkg/errors"
	"github.com/qinglongcn/bpfsscript/txscript"
	"github.com/sirupsen/logrus"
	"github.com/spf13/afero"
	"go.uber.org/fx"
)

// BS提供了与BPFSSCRIPT交互所需的各种函数
type BS struct {
	ctx      context.Context // 全局上下文
	opt      *Options        // 选项配置
	app      *fx.App         // 服务容器
	store    *PrevOutStore   // 前序输出库
	db       *SqliteDB       // 审计数据库
	files    *FileStore      // 文件存储
	metrics  *Metrics        // 验证指标
	verifier *Verifier       // 验证服务
}

// Open 返回一个新的验证实例
func Open(ctx context.Context, opt *Options) (*BS, error) {
	// 1. 检查并设置选项
	if err := opt.CheckAndSetOptions(); err != nil {
		return nil, err
	}
	// 2. 本地文件夹
	if !opt.InMemory {
		if err := opt.Paths().initDirectories(); err != nil {
			return nil, errors.Wrap(err, "创建实例目录")
		}
	}

	bs := &BS{
		ctx: ctx,
		opt: opt,
	}

	// fx 配置项
	opts := []fx.Option{
		fx.NopLogger,
		bs.globalInit(),
		fx.Provide(
			NewPrevOutStoreService, // 前序输出库
			NewAuditDBService,      // 审计数据库
			NewFileStoreService,    // 文件存储
			NewCaches,              // 签名和中间哈希缓存
			NewMetrics,             // 验证指标
			NewVerifierService,     // 验证服务
		),
		fx.Invoke(
			LogStartup, // 启动日志
		),
	}
	opts = append(opts, fx.Populate(
		&bs.store,
		&bs.db,
		&bs.files,
		&bs.metrics,
		&bs.verifier,
	))
	bs.app = fx.New(opts...)
	if err := bs.app.Err(); err != nil {
		return nil, errors.Wrap(err, "构建服务")
	}

	// 启动所有服务，失败时已启动的服务会被停止
	if err := bs.app.Start(ctx); err != nil {
		return nil, errors.Wrap(err, "启动服务")
	}

	opt.IsOpened = true // 验证实例已打开
	return bs, nil
}

// Close 停止所有服务并关闭数据库
func (bs *BS) Close() error {
	if !bs.opt.IsOpened {
		return nil
	}
	bs.opt.IsOpened = false
	return bs.app.Stop(context.Background())
}

// Options 返回选项配置
func (bs *BS) Options() *Options { return bs.opt }

// Verifier 返回验证服务
func (bs *BS) Verifier() *Verifier { return bs.verifier }

// PrevOutStore 返回前序输出库
func (bs *BS) PrevOutStore() *PrevOutStore { return bs.store }

// DB 返回审计数据库
func (bs *BS) DB() *SqliteDB { return bs.db }

// FileStore 返回文件存储
func (bs *BS) FileStore() *FileStore { return bs.files }

// Metrics 返回验证指标
func (bs *BS) Metrics() *Metrics { return bs.metrics }

// 全局初始化
func (bs *BS) globalInit() fx.Option {
	return fx.Provide(
		// 获取上下文
		func() context.Context {
			return bs.ctx
		},
		func() *Options {
			return bs.opt
		},
	)
}

type NewPrevOutStoreInput struct {
	fx.In

	Opt *Options // 选项配置
}

type NewPrevOutStoreOutput struct {
	fx.Out

	Store *PrevOutStore // 前序输出库
}

// NewPrevOutStoreService 打开前序输出库，服务停止时关闭
func NewPrevOutStoreService(lc fx.Lifecycle, input NewPrevOutStoreInput) (out NewPrevOutStoreOutput, err error) {
	store, err := OpenPrevOutStore(input.Opt.Paths().PrevOut, input.Opt.InMemory)
	if err != nil {
		logrus.Errorf("[NewPrevOutStoreService] 启动失败:\t%v", err)
		return out, err
	}
	lc.Append(fx.Hook{
		OnStop: func(_ context.Context) error {
			return store.Close()
		},
	})
	out.Store = store
	return out, nil
}

type NewAuditDBInput struct {
	fx.In

	Opt *Options // 选项配置
}

// NewAuditDBService 打开审计数据库并建表，服务停止时关闭
func NewAuditDBService(lc fx.Lifecycle, input NewAuditDBInput) (*SqliteDB, error) {
	file := DbFile
	if input.Opt.InMemory {
		file = ":memory:"
	}
	db, err := NewSqliteDB(input.Opt.Paths().Audit, file)
	if err != nil {
		logrus.Errorf("[NewAuditDBService] 启动失败:\t%v", err)
		return nil, err
	}
	if err := db.InitDBTable(); err != nil {
		db.Close()
		return nil, err
	}
	lc.Append(fx.Hook{
		OnStop: func(_ context.Context) error {
			return db.Close()
		},
	})
	return db, nil
}

// NewFileStoreService 创建文件存储，内存模式下使用内存文件系统
func NewFileStoreService(opt *Options) (*FileStore, error) {
	if opt.InMemory {
		return NewFileStoreWithFs(afero.NewMemMapFs(), opt.Paths().Files)
	}
	return NewFileStore(opt.Paths().Files)
}

type NewCachesOutput struct {
	fx.Out

	SigCache  *txscript.SigCache  // 签名缓存
	HashCache *txscript.HashCache // 中间哈希缓存
}

// NewCaches 按选项创建缓存，大小为 0 的缓存不创建
func NewCaches(opt *Options) NewCachesOutput {
	var out NewCachesOutput
	if opt.SigCacheSize > 0 {
		out.SigCache = txscript.NewSigCache(opt.SigCacheSize)
	}
	if opt.HashCacheSize > 0 {
		out.HashCache = txscript.NewHashCache(opt.HashCacheSize)
	}
	return out
}

type NewVerifierInput struct {
	fx.In

	Opt       *Options            // 选项配置
	Store     *PrevOutStore       // 前序输出库
	DB        *SqliteDB           // 审计数据库
	SigCache  *txscript.SigCache  // 签名缓存
	HashCache *txscript.HashCache // 中间哈希缓存
	Metrics   *Metrics            // 验证指标
}

// NewVerifierService 以前序输出库为来源创建验证服务
func NewVerifierService(input NewVerifierInput) *Verifier {
	return NewVerifier(input.Opt, input.Store, input.DB, input.SigCache,
		input.HashCache, input.Metrics)
}

type LogStartupInput struct {
	fx.In

	Opt *Options // 选项配置
}

// LogStartup 在服务启动时记录实例配置
func LogStartup(lc fx.Lifecycle, input LogStartupInput) {
	lc.Append(fx.Hook{
		OnStart: func(_ context.Context) error {
			logrus.WithFields(logrus.Fields{
				"instance": input.Opt.InstanceId,
				"root":     input.Opt.RootPath,
				"flags":    input.Opt.Flags.String(),
				"workers":  input.Opt.Workers,
			}).Info("验证实例已启动")
			return nil
		},
	})
}
