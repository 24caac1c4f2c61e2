// 比特币核心 script_tests.json 格式的测试向量：短格式脚本解析、向量解码和执行。

package txscript

import (
	"bytes"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"sync"

	"github.com/btcsuite/btcd/btcutil"
	"github.com/btcsuite/btcd/chaincfg/chainhash"
	"github.com/btcsuite/btcd/wire"
)

var (
	shortFormOnce sync.Once
	// shortFormOps 保存短格式中可用的操作码名称到值的映射。
	shortFormOps map[string]byte
)

// initShortFormOps 构建短格式名称表。
func initShortFormOps() {
	ops := make(map[string]byte)
	for opcodeName, opcodeValue := range OpcodeByName {
		if strings.Contains(opcodeName, "OP_UNKNOWN") {
			continue
		}
		ops[opcodeName] = opcodeValue

		// OP_# 不能去掉前缀，否则会与普通数字冲突。
		// OP_FALSE 和 OP_TRUE 是 OP_0 和 OP_1 的别名，按名称放行。
		if (opcodeName == "OP_FALSE" || opcodeName == "OP_TRUE") ||
			(opcodeValue != OP_0 && (opcodeValue < OP_1 ||
				opcodeValue > OP_16)) {

			ops[strings.TrimPrefix(opcodeName, "OP_")] = opcodeValue
		}
	}
	shortFormOps = ops
}

// parseHex 将 0x 开头的十六进制字符串解析为字节。
func parseHex(tok string) ([]byte, error) {
	if !strings.HasPrefix(tok, "0x") {
		return nil, fmt.Errorf("not a hex number")
	}
	return hex.DecodeString(tok[2:])
}

// parseRepeatedHex 解析 0x01{76} 形式的记号，即十六进制字节重复给定次数。
func parseRepeatedHex(tok string) ([]byte, error) {
	open := strings.IndexByte(tok, '{')
	if open < 0 || tok[len(tok)-1] != '}' {
		return nil, fmt.Errorf("not a repeated hex token")
	}
	count, err := strconv.Atoi(tok[open+1 : len(tok)-1])
	if err != nil || count < 0 {
		return nil, fmt.Errorf("bad repeat count in %q", tok)
	}
	bts, err := parseHex(tok[:open])
	if err != nil {
		return nil, err
	}
	return bytes.Repeat(bts, count), nil
}

// ParseShortForm 将测试向量使用的短格式字符串解析为脚本。
//
// 格式很简单：
//   - 除推送操作码和未知操作码以外的操作码以 OP_NAME 或仅 NAME 的形式出现
//   - 普通数字被制成推送操作
//   - 以 0x 开头的数字按原样插入（因此 0x14 是 OP_DATA_20）
//   - 0x01{76} 将字节 0x01 原样插入 76 次
//   - 单引号字符串作为数据推送
//   - 其他任何内容都是错误
func ParseShortForm(script string) ([]byte, error) {
	shortFormOnce.Do(initShortFormOps)

	script = strings.Replace(script, "\n", " ", -1)
	script = strings.Replace(script, "\t", " ", -1)
	tokens := strings.Split(script, " ")
	builder := NewScriptBuilder()

	for _, tok := range tokens {
		if len(tok) == 0 {
			continue
		}
		if num, err := strconv.ParseInt(tok, 10, 64); err == nil {
			builder.AddInt64(num)
			continue
		} else if bts, err := parseHex(tok); err == nil {
			// 向量会故意构造超过大小限制的脚本，所以绕过构建器的检查。
			if builder.err == nil {
				builder.script = append(builder.script, bts...)
			}
		} else if bts, err := parseRepeatedHex(tok); err == nil {
			if builder.err == nil {
				builder.script = append(builder.script, bts...)
			}
		} else if len(tok) >= 2 &&
			tok[0] == '\'' && tok[len(tok)-1] == '\'' {
			builder.AddFullData([]byte(tok[1 : len(tok)-1]))
		} else if opcode, ok := shortFormOps[tok]; ok {
			builder.AddOp(opcode)
		} else {
			return nil, fmt.Errorf("bad token %q", tok)
		}
	}
	return builder.Script()
}

// ScriptTest 是一条解码后的脚本测试向量。
type ScriptTest struct {
	Name        string
	Witness     wire.TxWitness
	InputAmount int64
	SigScript   []byte
	PkScript    []byte
	Flags       ScriptFlags
	// Result 是期望的结果名称，例如 OK 或 EVAL_FALSE。
	Result string
}

// scriptTestName 返回向量的描述性名称。
func scriptTestName(test []interface{}, witnessOffset int) (string, error) {
	// 除了可选的见证数据之外，向量至少包含签名脚本、公钥脚本、标志和预期结果，最后可以带一条注释。
	if len(test) < witnessOffset+4 || len(test) > witnessOffset+5 {
		return "", fmt.Errorf("invalid test length %d", len(test))
	}

	if len(test) == witnessOffset+5 {
		return fmt.Sprintf("test (%s)", test[witnessOffset+4]), nil
	}
	return fmt.Sprintf("test ([%s, %s, %s])", test[witnessOffset],
		test[witnessOffset+1], test[witnessOffset+2]), nil
}

// parseWitnessStack 将十六进制编码的见证项数组解析为见证元素切片。
func parseWitnessStack(elements []interface{}) (wire.TxWitness, error) {
	witness := make(wire.TxWitness, len(elements))
	for i, e := range elements {
		str, ok := e.(string)
		if !ok {
			return nil, fmt.Errorf("witness item %d is not a string", i)
		}
		witElement, err := hex.DecodeString(str)
		if err != nil {
			return nil, err
		}
		witness[i] = witElement
	}
	return witness, nil
}

// stringField 取出向量中的字符串字段。
func stringField(test []interface{}, idx int, what string) (string, error) {
	str, ok := test[idx].(string)
	if !ok {
		return "", fmt.Errorf("%s is not a string", what)
	}
	return str, nil
}

// parseScriptTest 解码单条向量。
func parseScriptTest(test []interface{}) (*ScriptTest, error) {
	// "Format is: [[wit..., amount]?, scriptSig, scriptPubKey,
	//    flags, expected_scripterror, ... comments]"
	var st ScriptTest
	witnessOffset := 0
	witnessData, hasWitness := test[0].([]interface{})
	if hasWitness {
		witnessOffset++
	}

	name, err := scriptTestName(test, witnessOffset)
	if err != nil {
		return nil, err
	}
	st.Name = name

	// 第一个字段是数组时它是见证数据，最后一个元素是输入金额。
	if hasWitness {
		if len(witnessData) == 0 {
			return nil, fmt.Errorf("%s: empty witness field", name)
		}
		st.Witness, err = parseWitnessStack(witnessData[:len(witnessData)-1])
		if err != nil {
			return nil, fmt.Errorf("%s: can't parse witness: %v", name, err)
		}
		amt, ok := witnessData[len(witnessData)-1].(float64)
		if !ok {
			return nil, fmt.Errorf("%s: input amount is not a number", name)
		}
		inputAmt, err := btcutil.NewAmount(amt)
		if err != nil {
			return nil, fmt.Errorf("%s: can't parse input amt: %v", name, err)
		}
		st.InputAmount = int64(inputAmt)
	}

	fields := [4]string{}
	for i, what := range []string{"signature script", "public key script",
		"flags field", "result field"} {

		fields[i], err = stringField(test, witnessOffset+i, what)
		if err != nil {
			return nil, fmt.Errorf("%s: %v", name, err)
		}
	}

	if st.SigScript, err = ParseShortForm(fields[0]); err != nil {
		return nil, fmt.Errorf("%s: can't parse signature script: %v", name, err)
	}
	if st.PkScript, err = ParseShortForm(fields[1]); err != nil {
		return nil, fmt.Errorf("%s: can't parse public key script: %v", name, err)
	}
	if st.Flags, err = ParseScriptFlags(fields[2]); err != nil {
		return nil, fmt.Errorf("%s: %v", name, err)
	}
	if _, ok := ErrorCodesForResult(fields[3]); !ok {
		return nil, fmt.Errorf("%s: unrecognized expected result %q", name,
			fields[3])
	}
	st.Result = fields[3]

	return &st, nil
}

// ParseScriptTests 解码 script_tests.json 格式的数据，跳过单行注释。
func ParseScriptTests(data []byte) ([]*ScriptTest, error) {
	var raw [][]interface{}
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, err
	}

	tests := make([]*ScriptTest, 0, len(raw))
	for i, test := range raw {
		if len(test) <= 1 {
			continue
		}
		st, err := parseScriptTest(test)
		if err != nil {
			return nil, fmt.Errorf("invalid test #%d: %v", i, err)
		}
		tests = append(tests, st)
	}
	return tests, nil
}

// createSpendingTx 生成一对交易：第一笔的输出锁定到 pkScript，第二笔用给定的签名脚本和见证花费它。
func createSpendingTx(witness [][]byte, sigScript, pkScript []byte,
	outputValue int64) *wire.MsgTx {

	coinbaseTx := wire.NewMsgTx(wire.TxVersion)

	outPoint := wire.NewOutPoint(&chainhash.Hash{}, ^uint32(0))
	txIn := wire.NewTxIn(outPoint, []byte{OP_0, OP_0}, nil)
	txOut := wire.NewTxOut(outputValue, pkScript)
	coinbaseTx.AddTxIn(txIn)
	coinbaseTx.AddTxOut(txOut)

	spendingTx := wire.NewMsgTx(wire.TxVersion)
	coinbaseTxSha := coinbaseTx.TxHash()
	outPoint = wire.NewOutPoint(&coinbaseTxSha, 0)
	txIn = wire.NewTxIn(outPoint, sigScript, witness)
	txOut = wire.NewTxOut(outputValue, nil)

	spendingTx.AddTxIn(txIn)
	spendingTx.AddTxOut(txOut)

	return spendingTx
}

// Run 在构造的花费交易上执行向量，结果与期望一致时返回 nil。
func (st *ScriptTest) Run(sigCache *SigCache) error {
	tx := createSpendingTx(st.Witness, st.SigScript, st.PkScript,
		st.InputAmount)
	checker := NewTxSigChecker(tx, 0, st.InputAmount, st.Flags, sigCache, nil)
	err := VerifyScript(st.SigScript, st.PkScript, st.Witness, st.Flags,
		checker)

	if st.Result == "OK" {
		if err != nil {
			return fmt.Errorf("%s failed to execute: %v", st.Name, err)
		}
		return nil
	}

	// 一个结果名称可能对应多个更细的错误代码。
	allowed, _ := ErrorCodesForResult(st.Result)
	for _, code := range allowed {
		if IsErrorCode(err, code) {
			return nil
		}
	}
	if code, ok := ExtractErrorCode(err); ok {
		return fmt.Errorf("%s: want %s, got %v (%v)", st.Name, st.Result,
			code, err)
	}
	return fmt.Errorf("%s: want %s, got err: %v (%T)", st.Name, st.Result,
		err, err)
}
