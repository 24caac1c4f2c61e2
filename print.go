// 打印

package bpfsscript

import (
	"encoding/hex"
	"fmt"
	"io"
	"strings"

	"github.com/btcsuite/btcd/btcutil"
	"github.com/btcsuite/btcd/chaincfg"
	"github.com/btcsuite/btcd/wire"
	"github.com/qinglongcn/bpfsscript/txscript"
)

// ScriptReport 描述一个公钥脚本
type ScriptReport struct {
	Class     txscript.ScriptClass // 脚本类型
	Addresses []btcutil.Address    // 相关地址
	ReqSigs   int                  // 所需签名数
	Disasm    string               // 反汇编
	SigOps    int                  // 签名操作数
}

// DescribeScript 分类并反汇编公钥脚本，脚本无法解析时反汇编以 [error] 结尾
func DescribeScript(pkScript []byte, params *chaincfg.Params) *ScriptReport {
	class, addrs, reqSigs, _ := txscript.ExtractPkScriptAddrs(pkScript, params)
	disasm, _ := txscript.DisasmString(pkScript)
	return &ScriptReport{
		Class:     class,
		Addresses: addrs,
		ReqSigs:   reqSigs,
		Disasm:    disasm,
		SigOps:    txscript.GetSigOpCount(pkScript),
	}
}

// String 以单行文本返回报告
func (r *ScriptReport) String() string {
	addrs := make([]string, len(r.Addresses))
	for i, addr := range r.Addresses {
		addrs[i] = addr.EncodeAddress()
	}
	return fmt.Sprintf("class=%v reqSigs=%d sigOps=%d addrs=[%s] asm=%s",
		r.Class, r.ReqSigs, r.SigOps, strings.Join(addrs, " "), r.Disasm)
}

// PrintTx 打印交易的输入脚本、见证和输出脚本
func PrintTx(w io.Writer, tx *wire.MsgTx, params *chaincfg.Params) {
	fmt.Fprintf(w, "TxID:\t\t%v\n", tx.TxHash())
	fmt.Fprintf(w, "Version:\t%d\n", tx.Version)
	fmt.Fprintf(w, "LockTime:\t%d\n", tx.LockTime)

	for i, in := range tx.TxIn {
		disasm, _ := txscript.DisasmString(in.SignatureScript)
		fmt.Fprintf(w, "Input %d:\t%v seq=%d\n", i, in.PreviousOutPoint, in.Sequence)
		fmt.Fprintf(w, "  sigScript:\t%s\n", disasm)
		for j, item := range in.Witness {
			fmt.Fprintf(w, "  witness[%d]:\t%s\n", j, hex.EncodeToString(item))
		}
	}

	for i, out := range tx.TxOut {
		fmt.Fprintf(w, "Output %d:\t%d sat\n", i, out.Value)
		fmt.Fprintf(w, "  pkScript:\t%v\n", DescribeScript(out.PkScript, params))
	}
}
