// 包含基准测试代码，用于评估脚本解析、执行、签名哈希和模板识别的性能。

package txscript

import (
	"bytes"
	"strings"
	"testing"

	"github.com/btcsuite/btcd/btcec/v2"
	"github.com/btcsuite/btcd/btcutil"
	"github.com/btcsuite/btcd/chaincfg"
	"github.com/btcsuite/btcd/chaincfg/chainhash"
	"github.com/btcsuite/btcd/wire"
)

var (
	// manyInputsBenchTx 是一个包含大量输入的交易，对于基准签名哈希计算很有用。
	manyInputsBenchTx = genManyInputsTx(200)

	// 用于签名基准测试的模拟先前输出脚本。
	prevOutScript = hexToBytes("a914f5916158e3e2c4551c1796708db8367207ed13bb87")
)

// genManyInputsTx 生成一笔有 n 个输入和两个输出的交易。
func genManyInputsTx(n int) *wire.MsgTx {
	tx := wire.NewMsgTx(wire.TxVersion)
	for i := 0; i < n; i++ {
		hash := chainhash.DoubleHashH([]byte{byte(i), byte(i >> 8)})
		txIn := wire.NewTxIn(wire.NewOutPoint(&hash, uint32(i%3)),
			bytes.Repeat([]byte{OP_1}, 107), nil)
		txIn.Sequence = wire.MaxTxInSequenceNum - uint32(i%2)
		tx.AddTxIn(txIn)
	}
	tx.AddTxOut(wire.NewTxOut(5000, prevOutScriptFor(1)))
	tx.AddTxOut(wire.NewTxOut(7000, prevOutScriptFor(2)))
	return tx
}

// prevOutScriptFor 返回一个以 b 填充哈希的 P2SH 脚本。
func prevOutScriptFor(b byte) []byte {
	script, _ := payToScriptHashScript(bytes.Repeat([]byte{b}, 20))
	return script
}

// BenchmarkCalcSigHash 基准测试计算具有多个输入的交易的所有输入的签名哈希值所需的时间。
func BenchmarkCalcSigHash(b *testing.B) {
	b.ReportAllocs()
	for i := 0; i < b.N; i++ {
		for j := 0; j < len(manyInputsBenchTx.TxIn); j++ {
			_ = CalcSignatureHash(prevOutScript, SigHashAll,
				manyInputsBenchTx, j)
		}
	}
}

// BenchmarkCalcWitnessSigHash 基准测试计算具有多个输入的交易的所有输入的见证签名哈希值所需的时间。
func BenchmarkCalcWitnessSigHash(b *testing.B) {
	sigHashes := NewTxSigHashes(manyInputsBenchTx)

	b.ResetTimer()
	b.ReportAllocs()
	for i := 0; i < b.N; i++ {
		for j := 0; j < len(manyInputsBenchTx.TxIn); j++ {
			_, err := CalcWitnessSigHash(
				prevOutScript, sigHashes, SigHashAll,
				manyInputsBenchTx, j, 5,
			)
			if err != nil {
				b.Fatalf("failed to calc signature hash: %v", err)
			}
		}
	}
}

// genComplexScript 返回一个脚本，该脚本由允许的最大操作码的一半组成，后跟适合的最大大小数据推送，但不超过允许的最大脚本大小。
func genComplexScript() ([]byte, error) {
	var scriptLen int
	builder := NewScriptBuilder()
	for i := 0; i < MaxOpsPerScript/2; i++ {
		builder.AddOp(OP_TRUE)
		scriptLen++
	}
	maxData := bytes.Repeat([]byte{0x02}, MaxScriptElementSize)
	for i := 0; i < (MaxScriptSize-scriptLen)/(MaxScriptElementSize+3); i++ {
		builder.AddData(maxData)
	}
	return builder.Script()
}

// BenchmarkScriptParsing 基准测试解析一个非常大的脚本需要多长时间。
func BenchmarkScriptParsing(b *testing.B) {
	script, err := genComplexScript()
	if err != nil {
		b.Fatalf("failed to create benchmark script: %v", err)
	}

	b.ResetTimer()
	b.ReportAllocs()
	for i := 0; i < b.N; i++ {
		tokenizer := MakeScriptTokenizer(script)
		for tokenizer.Next() {
			_ = tokenizer.Opcode()
			_ = tokenizer.Data()
			_ = tokenizer.ByteIndex()
		}
		if err := tokenizer.Err(); err != nil {
			b.Fatalf("failed to parse script: %v", err)
		}
	}
}

// BenchmarkDisasmString 基准测试分解一个非常大的脚本需要多长时间。
func BenchmarkDisasmString(b *testing.B) {
	script, err := genComplexScript()
	if err != nil {
		b.Fatalf("failed to create benchmark script: %v", err)
	}

	b.ResetTimer()
	b.ReportAllocs()
	for i := 0; i < b.N; i++ {
		_, err := DisasmString(script)
		if err != nil {
			b.Fatalf("failed to disasm script: %v", err)
		}
	}
}

// BenchmarkExecuteComplexScript 基准测试执行一个接近所有限制的脚本所需的时间。
func BenchmarkExecuteComplexScript(b *testing.B) {
	script, err := genComplexScript()
	if err != nil {
		b.Fatalf("failed to create benchmark script: %v", err)
	}

	vm := NewInterpreter(StandardVerifyFlags, SigVersionBase, &stubChecker{})
	b.ResetTimer()
	b.ReportAllocs()
	for i := 0; i < b.N; i++ {
		if err := vm.Execute(script, NewStack(nil)); err != nil {
			b.Fatalf("failed to execute script: %v", err)
		}
	}
}

// BenchmarkExecuteArithmetic 基准测试数值运算和条件分支的执行速度。
func BenchmarkExecuteArithmetic(b *testing.B) {
	script := mustParseShortForm("1 " +
		strings.Repeat("DUP ADD 1 IF 1SUB ELSE 1ADD ENDIF ", 25) + "DROP 1")

	vm := NewInterpreter(StandardVerifyFlags, SigVersionBase, &stubChecker{})
	b.ResetTimer()
	b.ReportAllocs()
	for i := 0; i < b.N; i++ {
		if err := vm.Execute(script, NewStack(nil)); err != nil {
			b.Fatalf("failed to execute script: %v", err)
		}
	}
}

// benchP2PKHSpend 构造一笔花费 P2PKH 输出的已签名交易。
func benchP2PKHSpend(b *testing.B) (*wire.MsgTx, []byte) {
	b.Helper()

	key, err := btcec.NewPrivateKey()
	if err != nil {
		b.Fatal(err)
	}
	addr, err := btcutil.NewAddressPubKeyHash(
		btcutil.Hash160(key.PubKey().SerializeCompressed()),
		&chaincfg.MainNetParams)
	if err != nil {
		b.Fatal(err)
	}
	pkScript, err := PayToAddrScript(addr)
	if err != nil {
		b.Fatal(err)
	}

	tx := wire.NewMsgTx(wire.TxVersion)
	tx.AddTxIn(wire.NewTxIn(wire.NewOutPoint(&chainhash.Hash{1}, 0), nil, nil))
	tx.AddTxOut(wire.NewTxOut(1000, nil))
	sigScript, err := SignatureScript(tx, 0, pkScript, SigHashAll, key, true)
	if err != nil {
		b.Fatal(err)
	}
	tx.TxIn[0].SignatureScript = sigScript
	return tx, pkScript
}

// BenchmarkVerifyP2PKH 基准测试不使用签名缓存时验证一个 P2PKH 输入所需的时间。
func BenchmarkVerifyP2PKH(b *testing.B) {
	tx, pkScript := benchP2PKHSpend(b)

	b.ResetTimer()
	b.ReportAllocs()
	for i := 0; i < b.N; i++ {
		err := VerifyTxInput(tx, 0, pkScript, 1000, StandardVerifyFlags,
			nil, nil)
		if err != nil {
			b.Fatalf("failed to verify: %v", err)
		}
	}
}

// BenchmarkVerifyP2PKHSigCache 基准测试签名缓存命中时验证一个 P2PKH 输入所需的时间。
func BenchmarkVerifyP2PKHSigCache(b *testing.B) {
	tx, pkScript := benchP2PKHSpend(b)
	sigCache := NewSigCache(100)

	b.ResetTimer()
	b.ReportAllocs()
	for i := 0; i < b.N; i++ {
		err := VerifyTxInput(tx, 0, pkScript, 1000, StandardVerifyFlags,
			sigCache, nil)
		if err != nil {
			b.Fatalf("failed to verify: %v", err)
		}
	}
}

// BenchmarkFindAndDelete 基准测试从大脚本中删除签名推送所需的时间。
func BenchmarkFindAndDelete(b *testing.B) {
	script, err := genComplexScript()
	if err != nil {
		b.Fatalf("failed to create benchmark script: %v", err)
	}
	sig := canonicalPushBytes(bytes.Repeat([]byte{0x02}, MaxScriptElementSize))

	b.ResetTimer()
	b.ReportAllocs()
	for i := 0; i < b.N; i++ {
		_, _ = FindAndDelete(script, sig)
	}
}

// BenchmarkIsPayToScriptHash 基准测试 IsPayToScriptHash 分析一个非常大的脚本需要多长时间。
func BenchmarkIsPayToScriptHash(b *testing.B) {
	script, err := genComplexScript()
	if err != nil {
		b.Fatalf("failed to create benchmark script: %v", err)
	}

	b.ResetTimer()
	b.ReportAllocs()
	for i := 0; i < b.N; i++ {
		_ = IsPayToScriptHash(script)
	}
}

// BenchmarkIsMultisigScriptLarge 基准测试 IsMultisigScript 分析一个非常大的脚本需要多长时间。
func BenchmarkIsMultisigScriptLarge(b *testing.B) {
	script, err := genComplexScript()
	if err != nil {
		b.Fatalf("failed to create benchmark script: %v", err)
	}

	b.ResetTimer()
	b.ReportAllocs()
	for i := 0; i < b.N; i++ {
		if IsMultisigScript(script) {
			b.Fatalf("script should NOT be reported as mutisig script")
		}
	}
}

// BenchmarkIsMultisigScript 基准测试 IsMultisigScript 分析 1-of2 多重签名公钥脚本所需的时间。
func BenchmarkIsMultisigScript(b *testing.B) {
	multisigShortForm := "1 " +
		"DATA_33 " +
		"0x030478aaaa2be30772f1e69e581610f1840b3cf2fe7228ee0281cd599e5746f81e " +
		"DATA_33 " +
		"0x0284f4d078b236a9ff91661f8ffbe012737cd3507566f30fd97d25f2b23539f3cd " +
		"2 CHECKMULTISIG"
	pkScript := mustParseShortForm(multisigShortForm)

	b.ResetTimer()
	b.ReportAllocs()
	for i := 0; i < b.N; i++ {
		if !IsMultisigScript(pkScript) {
			b.Fatalf("script should be reported as a mutisig script")
		}
	}
}

// BenchmarkIsPushOnlyScript 基准测试 IsPushOnlyScript 分析非常大的脚本所需的时间。
func BenchmarkIsPushOnlyScript(b *testing.B) {
	script, err := genComplexScript()
	if err != nil {
		b.Fatalf("failed to create benchmark script: %v", err)
	}

	b.ResetTimer()
	b.ReportAllocs()
	for i := 0; i < b.N; i++ {
		_ = IsPushOnlyScript(script)
	}
}

// BenchmarkIsWitnessProgram 基准测试 IsWitnessProgram 分析非常大的脚本所需的时间。
func BenchmarkIsWitnessProgram(b *testing.B) {
	script, err := genComplexScript()
	if err != nil {
		b.Fatalf("failed to create benchmark script: %v", err)
	}

	b.ResetTimer()
	b.ReportAllocs()
	for i := 0; i < b.N; i++ {
		_ = IsWitnessProgram(script)
	}
}

// BenchmarkGetSigOpCount 基准测试计算一个非常大的脚本的签名操作所需的时间。
func BenchmarkGetSigOpCount(b *testing.B) {
	script, err := genComplexScript()
	if err != nil {
		b.Fatalf("failed to create benchmark script: %v", err)
	}

	b.ResetTimer()
	b.ReportAllocs()
	for i := 0; i < b.N; i++ {
		_ = GetSigOpCount(script)
	}
}

// BenchmarkGetPreciseSigOpCount 使用更精确的计数方法对非常大的脚本的签名操作进行计数所需的时间进行基准测试。
func BenchmarkGetPreciseSigOpCount(b *testing.B) {
	redeemScript, err := genComplexScript()
	if err != nil {
		b.Fatalf("failed to create benchmark script: %v", err)
	}

	// 创建一个假的 pay-to-script-hash 以通过必要的检查，并推送生成的“兑换”脚本作为最终数据推送，以便基准测试将覆盖 p2sh 路径。
	scriptHash := "0x0000000000000000000000000000000000000001"
	pkScript := mustParseShortForm("HASH160 DATA_20 " + scriptHash + " EQUAL")
	sigScript, err := NewScriptBuilder().AddFullData(redeemScript).Script()
	if err != nil {
		b.Fatalf("failed to create signature script: %v", err)
	}

	b.ResetTimer()
	b.ReportAllocs()
	for i := 0; i < b.N; i++ {
		_ = GetPreciseSigOpCount(sigScript, pkScript)
	}
}

// BenchmarkGetScriptClass 基准测试 GetScriptClass 分析非常大的脚本所需的时间。
func BenchmarkGetScriptClass(b *testing.B) {
	script, err := genComplexScript()
	if err != nil {
		b.Fatalf("failed to create benchmark script: %v", err)
	}

	b.ResetTimer()
	b.ReportAllocs()
	for i := 0; i < b.N; i++ {
		_ = GetScriptClass(script)
	}
}

// BenchmarkPushedData 基准测试从非常大的脚本中提取推送数据所需的时间。
func BenchmarkPushedData(b *testing.B) {
	script, err := genComplexScript()
	if err != nil {
		b.Fatalf("failed to create benchmark script: %v", err)
	}

	b.ResetTimer()
	b.ReportAllocs()
	for i := 0; i < b.N; i++ {
		_, err := PushedData(script)
		if err != nil {
			b.Fatalf("unexpected err: %v", err)
		}
	}
}

// BenchmarkExtractPkScriptAddrsLarge 基准测试分析并可能从非常大的非标准脚本中提取地址所需的时间。
func BenchmarkExtractPkScriptAddrsLarge(b *testing.B) {
	script, err := genComplexScript()
	if err != nil {
		b.Fatalf("failed to create benchmark script: %v", err)
	}

	params := &chaincfg.MainNetParams
	b.ResetTimer()
	b.ReportAllocs()
	for i := 0; i < b.N; i++ {
		_, _, _, err := ExtractPkScriptAddrs(script, params)
		if err != nil {
			b.Fatalf("unexpected err: %v", err)
		}
	}
}

// BenchmarkExtractPkScriptAddrs 基准测试分析并可能从典型脚本中提取地址所需的时间。
func BenchmarkExtractPkScriptAddrs(b *testing.B) {
	script := mustParseShortForm("OP_DUP HASH160 " +
		"DATA_20 0x0102030405060708090a0b0c0d0e0f1011121314 " +
		"EQUAL")

	params := &chaincfg.MainNetParams
	b.ResetTimer()
	b.ReportAllocs()
	for i := 0; i < b.N; i++ {
		_, _, _, err := ExtractPkScriptAddrs(script, params)
		if err != nil {
			b.Fatalf("unexpected err: %v", err)
		}
	}
}
