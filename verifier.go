// 交易输入验证服务：取前序输出、执行脚本验证、记录指标和审计日志

package bpfsscript

import (
	"context"
	"time"

	"github.com/btcsuite/btcd/wire"
	"github.com/pkg/errors"
	"github.com/qinglongcn/bpfsscript/txscript"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"
)

// Verifier 验证交易输入是否满足其花费的输出的锁定条件
type Verifier struct {
	opt       *Options                   // 选项配置
	fetcher   txscript.PrevOutputFetcher // 前序输出来源
	audit     *SqliteDB                  // 审计数据库，可以为 nil
	sigCache  *txscript.SigCache         // 签名缓存，可以为 nil
	hashCache *txscript.HashCache        // 中间哈希缓存，可以为 nil
	metrics   *Metrics                   // 验证指标，可以为 nil
}

// NewVerifier 创建验证服务
func NewVerifier(opt *Options, fetcher txscript.PrevOutputFetcher, audit *SqliteDB,
	sigCache *txscript.SigCache, hashCache *txscript.HashCache, metrics *Metrics) *Verifier {

	return &Verifier{
		opt:       opt,
		fetcher:   fetcher,
		audit:     audit,
		sigCache:  sigCache,
		hashCache: hashCache,
		metrics:   metrics,
	}
}

// Flags 返回验证使用的脚本标志
func (v *Verifier) Flags() txscript.ScriptFlags {
	return v.opt.Flags
}

// VerifyInput 从前序输出来源取出输入花费的输出并验证
func (v *Verifier) VerifyInput(ctx context.Context, tx *wire.MsgTx, idx int) error {
	start := time.Now()
	if err := ctx.Err(); err != nil {
		return err
	}
	if idx < 0 || idx >= len(tx.TxIn) {
		err := errors.Errorf("输入下标 %d 超出范围 [0, %d)", idx, len(tx.TxIn))
		v.record(start, tx, idx, err)
		return err
	}

	op := tx.TxIn[idx].PreviousOutPoint
	var prevOut *wire.TxOut
	if v.fetcher != nil {
		prevOut = v.fetcher.FetchPrevOutput(op)
	}
	if prevOut == nil {
		err := errors.Wrapf(ErrPrevOutNotFound, "输入 %d 花费的 %v", idx, op)
		v.record(start, tx, idx, err)
		return err
	}

	return v.verify(start, tx, idx, prevOut)
}

// VerifyInputWithPrevOut 使用调用方给出的前序输出验证输入
func (v *Verifier) VerifyInputWithPrevOut(ctx context.Context, tx *wire.MsgTx, idx int,
	prevOut *wire.TxOut) error {

	start := time.Now()
	if err := ctx.Err(); err != nil {
		return err
	}
	return v.verify(start, tx, idx, prevOut)
}

// verify 执行脚本验证并记录结果
func (v *Verifier) verify(start time.Time, tx *wire.MsgTx, idx int, prevOut *wire.TxOut) error {
	err := txscript.VerifyTxInput(tx, idx, prevOut.PkScript, prevOut.Value,
		v.opt.Flags, v.sigCache, v.hashCache)
	if err != nil {
		err = errors.Wrapf(err, "验证输入 %v:%d", tx.TxHash(), idx)
	}
	v.record(start, tx, idx, err)
	return err
}

// VerifyTx 并行验证交易的全部输入，任何一个输入失败都会取消其余验证并返回第一个错误
func (v *Verifier) VerifyTx(ctx context.Context, tx *wire.MsgTx) error {
	if len(tx.TxIn) == 0 {
		return errors.New("交易没有输入")
	}

	// 所有输入共享同一份中间哈希，验证结束后释放
	if v.hashCache != nil {
		txid := tx.TxHash()
		if tx.HasWitness() {
			v.hashCache.AddSigHashes(tx)
		}
		defer v.hashCache.PurgeSigHashes(&txid)
	}

	g, ctx := errgroup.WithContext(ctx)
	if v.opt.Workers > 0 {
		g.SetLimit(v.opt.Workers)
	}
	for i := range tx.TxIn {
		idx := i
		g.Go(func() error {
			return v.VerifyInput(ctx, tx, idx)
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}

	logrus.Debugf("[VerifyTx] 交易 %v 的 %d 个输入验证通过", tx.TxHash(), len(tx.TxIn))
	return nil
}

// resultOf 将验证错误归类为指标结果和审计结果名称
func resultOf(err error) (string, string) {
	if err == nil {
		return ResultOK, "OK"
	}
	if code, ok := txscript.ExtractErrorCode(err); ok {
		return ResultFail, code.String()
	}
	return ResultError, "ERROR"
}

// record 记录指标和审计日志，审计失败只记日志
func (v *Verifier) record(start time.Time, tx *wire.MsgTx, idx int, err error) {
	result, name := resultOf(err)
	if v.metrics != nil {
		v.metrics.observe(start, result)
	}

	if err != nil {
		logrus.Debugf("[Verifier] 输入 %v:%d 验证失败:\t%v", tx.TxHash(), idx, err)
	}

	if v.audit == nil || !v.opt.Audit {
		return
	}
	ar := &AuditRecord{
		TxID:       tx.TxHash().String(),
		InputIndex: idx,
		Flags:      v.opt.Flags.String(),
		Result:     name,
		CreatedAt:  start,
	}
	if err != nil {
		ar.ErrMsg = err.Error()
	}
	if err := ar.Save(v.audit); err != nil {
		logrus.Warnf("[Verifier] 保存审计记录失败:\t%v", err)
	}
}
