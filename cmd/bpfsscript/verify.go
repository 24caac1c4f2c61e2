package main

import (
	"context"
	"encoding/hex"
	"fmt"

	"github.com/btcsuite/btcd/wire"
	"github.com/pkg/errors"
	"github.com/qinglongcn/bpfsscript"
	"github.com/qinglongcn/bpfsscript/txscript"
)

// verifyCommand 验证单个输入
type verifyCommand struct {
	txSource
	Input    int    `long:"input" description:"Index of the input to verify"`
	PkScript string `long:"pkscript" required:"true" description:"Public key script of the spent output in hex"`
	Amount   int64  `long:"amount" description:"Amount of the spent output in satoshi"`
}

var verifyCmd verifyCommand

// Execute 实现 flags.Commander
func (c *verifyCommand) Execute(_ []string) error {
	ctx := context.Background()
	pkScript, err := hex.DecodeString(c.PkScript)
	if err != nil {
		return errors.Wrap(err, "解码公钥脚本")
	}

	bs, err := openInstance(ctx)
	if err != nil {
		return err
	}
	defer bs.Close()

	tx, err := c.load(bs.FileStore())
	if err != nil {
		return err
	}

	err = bs.Verifier().VerifyInputWithPrevOut(ctx, tx, c.Input,
		wire.NewTxOut(c.Amount, pkScript))
	printResult(tx, c.Input, err)
	return err
}

// verifyTxCommand 验证交易的全部输入
type verifyTxCommand struct {
	txSource
}

var verifyTxCmd verifyTxCommand

// Execute 实现 flags.Commander
func (c *verifyTxCommand) Execute(_ []string) error {
	ctx := context.Background()
	bs, err := openInstance(ctx)
	if err != nil {
		return err
	}
	defer bs.Close()

	tx, err := c.load(bs.FileStore())
	if err != nil {
		return err
	}

	err = bs.Verifier().VerifyTx(ctx, tx)
	printResult(tx, -1, err)

	counts, cerr := bs.Metrics().Counts()
	if cerr == nil {
		fmt.Printf("inputs: ok=%v fail=%v error=%v\n", counts[bpfsscript.ResultOK],
			counts[bpfsscript.ResultFail], counts[bpfsscript.ResultError])
	}
	return err
}

// printResult 打印验证结果，脚本错误附带错误代码
func printResult(tx *wire.MsgTx, idx int, err error) {
	target := tx.TxHash().String()
	if idx >= 0 {
		target = fmt.Sprintf("%s:%d", target, idx)
	}
	if err == nil {
		fmt.Printf("%s: OK\n", target)
		return
	}
	if code, ok := txscript.ExtractErrorCode(err); ok {
		fmt.Printf("%s: %v (%s)\n", target, code, code.ResultName())
		return
	}
	fmt.Printf("%s: ERROR\n", target)
}

// importCommand 保存交易的输出作为前序输出
type importCommand struct {
	txSource
}

var importCmd importCommand

// Execute 实现 flags.Commander
func (c *importCommand) Execute(_ []string) error {
	bs, err := openInstance(context.Background())
	if err != nil {
		return err
	}
	defer bs.Close()

	tx, err := c.load(bs.FileStore())
	if err != nil {
		return err
	}

	n, err := bs.PrevOutStore().PutTx(tx)
	if err != nil {
		return err
	}
	total, err := bs.PrevOutStore().Len()
	if err != nil {
		return err
	}
	fmt.Printf("imported %d outputs of %v, %d stored\n", n, tx.TxHash(), total)
	return nil
}
