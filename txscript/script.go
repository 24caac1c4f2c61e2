// 包含脚本字节码的辅助函数：推送检查、删除、反汇编和签名操作计数。

package txscript

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"strings"
)

// isSmallInt 返回操作码是否为 OP_0 或 OP_1 到 OP_16。
func isSmallInt(op byte) bool {
	return op == OP_0 || (op >= OP_1 && op <= OP_16)
}

// IsSmallInt 返回操作码是否被视为小整数，即 OP_0 或 OP_1 到 OP_16。
func IsSmallInt(op byte) bool {
	return isSmallInt(op)
}

// asSmallInt 返回小整数操作码代表的值，OP_1NEGATE 为 -1。
func asSmallInt(op byte) int {
	switch {
	case op == OP_0:
		return 0
	case op == OP_1NEGATE:
		return -1
	}
	return int(op - (OP_1 - 1))
}

// AsSmallInt 返回小整数操作码代表的整数值。
func AsSmallInt(op byte) int {
	return asSmallInt(op)
}

// IsPushOnlyScript 返回脚本是否只包含数据推送。
// OP_RESERVED 也算作推送。格式错误的脚本返回 false。
func IsPushOnlyScript(script []byte) bool {
	tokenizer := MakeScriptTokenizer(script)
	for tokenizer.Next() {
		// All opcodes up to OP_16 are data push instructions.
		if tokenizer.Opcode() > OP_16 {
			return false
		}
	}
	return tokenizer.Err() == nil
}

// checkScriptParses 在脚本无法完整解析时返回 *ParseError。
func checkScriptParses(script []byte) error {
	tokenizer := MakeScriptTokenizer(script)
	for tokenizer.Next() {
	}
	return tokenizer.Err()
}

// canonicalPushBytes 返回推送给定数据的最短编码（不把单字节数据替换为 OP_N）。
// 它和签名被推入脚本时的编码一致，用于 FindAndDelete 的匹配模式。
func canonicalPushBytes(data []byte) []byte {
	dataLen := len(data)
	var buf []byte
	switch {
	case dataLen < OP_PUSHDATA1:
		buf = make([]byte, 0, 1+dataLen)
		buf = append(buf, byte(dataLen))
	case dataLen <= 0xff:
		buf = make([]byte, 0, 2+dataLen)
		buf = append(buf, OP_PUSHDATA1, byte(dataLen))
	case dataLen <= 0xffff:
		buf = make([]byte, 3, 3+dataLen)
		buf[0] = OP_PUSHDATA2
		binary.LittleEndian.PutUint16(buf[1:], uint16(dataLen))
	default:
		buf = make([]byte, 5, 5+dataLen)
		buf[0] = OP_PUSHDATA4
		binary.LittleEndian.PutUint32(buf[1:], uint32(dataLen))
	}
	return append(buf, data...)
}

// FindAndDelete 删除脚本中所有从指令边界开始、与 pattern 完全相同的字节序列，返回新脚本和删除次数。
// pattern 为原始字节，通常是签名的推送编码。
// 连续出现的匹配会被一并删除；脚本格式错误时，从出错位置起的剩余字节原样保留。
// 没有匹配时返回原脚本。
func FindAndDelete(script, pattern []byte) ([]byte, int) {
	if len(pattern) == 0 || len(script) == 0 {
		return script, 0
	}

	var result []byte
	found := 0
	pc, keep := 0, 0
	for {
		result = append(result, script[keep:pc]...)
		for len(script)-pc >= len(pattern) &&
			bytes.Equal(script[pc:pc+len(pattern)], pattern) {

			pc += len(pattern)
			found++
		}
		keep = pc

		// 跳过下一条指令，到达脚本末尾或遇到格式错误时停止。
		tokenizer := MakeScriptTokenizer(script[pc:])
		if !tokenizer.Next() {
			break
		}
		pc += tokenizer.ByteIndex()
	}

	if found == 0 {
		return script, 0
	}
	return append(result, script[keep:]...), found
}

// removeCodeSeparators 返回删除了所有 OP_CODESEPARATOR 的脚本副本，用于计算传统签名哈希。
// 脚本格式错误时，从出错位置起的剩余字节原样保留。
func removeCodeSeparators(script []byte) []byte {
	var result []byte
	var prevOffset int
	tokenizer := MakeScriptTokenizer(script)
	for tokenizer.Next() {
		if tokenizer.Opcode() == OP_CODESEPARATOR {
			if result == nil {
				result = make([]byte, 0, len(script))
				result = append(result, script[:prevOffset]...)
			}
		} else if result != nil {
			result = append(result, script[prevOffset:tokenizer.ByteIndex()]...)
		}
		prevOffset = tokenizer.ByteIndex()
	}
	if result == nil {
		return script
	}
	return append(result, script[prevOffset:]...)
}

// checkMinimalDataPush 返回所提供的推送指令是否是表示给定数据的最短方式。
// 例如，可以使用 OP_DATA_1 15 推送值 15，但 OP_15 只需一个字节。
func checkMinimalDataPush(op *opcode, data []byte) error {
	opcodeVal := op.value
	dataLen := len(data)
	switch {
	case dataLen == 0 && opcodeVal != OP_0:
		str := fmt.Sprintf("zero length data push is encoded with opcode %s "+
			"instead of OP_0", op.name)
		return scriptError(ErrMinimalData, str)
	case dataLen == 1 && data[0] >= 1 && data[0] <= 16:
		if opcodeVal != OP_1+data[0]-1 {
			// Should have used OP_1 .. OP_16
			str := fmt.Sprintf("data push of the value %d encoded with opcode "+
				"%s instead of OP_%d", data[0], op.name, data[0])
			return scriptError(ErrMinimalData, str)
		}
	case dataLen == 1 && data[0] == 0x81:
		if opcodeVal != OP_1NEGATE {
			str := fmt.Sprintf("data push of the value -1 encoded with opcode "+
				"%s instead of OP_1NEGATE", op.name)
			return scriptError(ErrMinimalData, str)
		}
	case dataLen <= 75:
		if int(opcodeVal) != dataLen {
			// Should have used a direct push
			str := fmt.Sprintf("data push of %d bytes encoded with opcode %s "+
				"instead of OP_DATA_%d", dataLen, op.name, dataLen)
			return scriptError(ErrMinimalData, str)
		}
	case dataLen <= 255:
		if opcodeVal != OP_PUSHDATA1 {
			str := fmt.Sprintf("data push of %d bytes encoded with opcode %s "+
				"instead of OP_PUSHDATA1", dataLen, op.name)
			return scriptError(ErrMinimalData, str)
		}
	case dataLen <= 65535:
		if opcodeVal != OP_PUSHDATA2 {
			str := fmt.Sprintf("data push of %d bytes encoded with opcode %s "+
				"instead of OP_PUSHDATA2", dataLen, op.name)
			return scriptError(ErrMinimalData, str)
		}
	}
	return nil
}

// DisasmString 将脚本反汇编为单行字符串。
// 数据推送显示为十六进制，小整数显示为数值。
// 脚本格式错误时，已解析的部分后跟 "[error]"，并返回解析错误。
func DisasmString(script []byte) (string, error) {
	var disbuf strings.Builder
	tokenizer := MakeScriptTokenizer(script)
	for tokenizer.Next() {
		if tokenizer.OpcodePosition() > 0 {
			disbuf.WriteByte(' ')
		}
		disasmOpcode(&disbuf, tokenizer.op, tokenizer.Data(), true)
	}
	if tokenizer.Err() != nil {
		if tokenizer.ByteIndex() != 0 {
			disbuf.WriteByte(' ')
		}
		disbuf.WriteString("[error]")
	}
	return disbuf.String(), tokenizer.Err()
}

// countSigOps 统计脚本中的签名操作数。
// precise 为 true 时，紧跟在 OP_1 到 OP_16 之后的 CHECKMULTISIG 按该数值计数，否则按 MaxPubKeysPerMultiSig 计数。
func countSigOps(script []byte, precise bool) int {
	numSigOps := 0
	tokenizer := MakeScriptTokenizer(script)
	prevOp := byte(OP_INVALIDOPCODE)
	for tokenizer.Next() {
		switch tokenizer.Opcode() {
		case OP_CHECKSIG, OP_CHECKSIGVERIFY:
			numSigOps++

		case OP_CHECKMULTISIG, OP_CHECKMULTISIGVERIFY:
			if precise && prevOp >= OP_1 && prevOp <= OP_16 {
				numSigOps += asSmallInt(prevOp)
			} else {
				numSigOps += MaxPubKeysPerMultiSig
			}
		}

		prevOp = tokenizer.Opcode()
	}

	return numSigOps
}

// GetSigOpCount 返回脚本中的签名操作数，多重签名按最大公钥数计数。
func GetSigOpCount(script []byte) int {
	return countSigOps(script, false)
}

// GetPreciseSigOpCount 返回公钥脚本的签名操作数；对 P2SH 输出，统计签名脚本最后推送的赎回脚本。
func GetPreciseSigOpCount(scriptSig, scriptPubKey []byte) int {
	if _, ok := ParsePayToScriptHash(scriptPubKey); !ok {
		return countSigOps(scriptPubKey, true)
	}

	// 签名脚本必须只含推送，赎回脚本是最后一个推送的数据。
	if len(scriptSig) == 0 || !IsPushOnlyScript(scriptSig) {
		return 0
	}
	var redeemScript []byte
	tokenizer := MakeScriptTokenizer(scriptSig)
	for tokenizer.Next() {
		redeemScript = tokenizer.Data()
	}
	return countSigOps(redeemScript, true)
}

// PushedData 返回脚本中所有数据推送的数据，小整数不计入。
func PushedData(script []byte) ([][]byte, error) {
	var data [][]byte
	tokenizer := MakeScriptTokenizer(script)
	for tokenizer.Next() {
		if tokenizer.Instruction().Kind == InstrPushData {
			data = append(data, tokenizer.Data())
		}
	}
	if err := tokenizer.Err(); err != nil {
		return nil, err
	}
	return data, nil
}
