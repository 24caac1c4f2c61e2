// 实现脚本数字的编码和解码，即脚本中使用的最小长度小端符号-数值整数。

package txscript

import (
	"fmt"
	"math"
)

const (
	// maxScriptNumLen 是数值操作码可以解释为整数的最大字节数。
	maxScriptNumLen = 4

	// maxLockTimeNumLen 是 CHECKLOCKTIMEVERIFY 和 CHECKSEQUENCEVERIFY 读取数值时允许的最大字节数。
	// 锁定时间需要表示到 2^39-1，4 字节不够用。
	maxLockTimeNumLen = 5
)

// scriptNum 表示脚本引擎中使用的数值。
//
// 所有数值操作码的操作数被解释为最长 4 字节的小端整数，最高字节的最高位是符号位。
// 运算结果可以超出这个范围，并以更长的编码推回栈上，但这样的结果不能再作为数值操作数读取。
// 为了容纳这些中间结果，scriptNum 使用 int64 保存。
type scriptNum int64

// checkMinimalDataEncoding 在给定字节不是数值的最短编码时返回错误。
func checkMinimalDataEncoding(v []byte) error {
	if len(v) == 0 {
		return nil
	}

	// 最高字节除符号位外全为零时，只有在次高字节的最高位被占用时才需要这个额外字节。
	if v[len(v)-1]&0x7f == 0 {
		if len(v) == 1 || v[len(v)-2]&0x80 == 0 {
			str := fmt.Sprintf("numeric value encoded as %x is "+
				"not minimally encoded", v)
			return scriptError(ErrMinimalScriptNum, str)
		}
	}

	return nil
}

// CheckMinimalDataEncoding 检查给定字节是否为数值的最短编码。
func CheckMinimalDataEncoding(v []byte) error {
	return checkMinimalDataEncoding(v)
}

// Bytes 返回数值的最短小端编码，最高字节的最高位为符号位。
// 零编码为空字节切片。
//
// 例如：
//
//	127   -> [0x7f]
//	-127  -> [0xff]
//	128   -> [0x80 0x00]
//	-128  -> [0x80 0x80]
//	math.MinInt64 -> [0x00 ... 0x00 0x80 0x80]
func (n scriptNum) Bytes() []byte {
	if n == 0 {
		return nil
	}

	isNegative := n < 0
	magnitude := uint64(n)
	if isNegative {
		// 取补码，math.MinInt64 的绝对值 2^63 在 uint64 中可以表示。
		magnitude = -magnitude
	}

	result := make([]byte, 0, 9)
	for magnitude > 0 {
		result = append(result, byte(magnitude&0xff))
		magnitude >>= 8
	}

	// 最高字节的最高位已被占用时，追加一个字节承载符号位，否则直接在最高字节上置符号位。
	if result[len(result)-1]&0x80 != 0 {
		extraByte := byte(0x00)
		if isNegative {
			extraByte = 0x80
		}
		result = append(result, extraByte)
	} else if isNegative {
		result[len(result)-1] |= 0x80
	}

	return result
}

// Int32 返回截断到 int32 范围内的数值。
func (n scriptNum) Int32() int32 {
	if n > math.MaxInt32 {
		return math.MaxInt32
	}

	if n < math.MinInt32 {
		return math.MinInt32
	}

	return int32(n)
}

// DeserializeScriptNum 将小端符号-数值编码解码为 int64，不检查长度和最短编码。
// 最长接受 9 字节，用以容纳 math.MinInt64 的编码；更长的输入只取低 8 字节的数值部分。
func DeserializeScriptNum(v []byte) int64 {
	if len(v) == 0 {
		return 0
	}

	var magnitude uint64
	for i, val := range v {
		if i == len(v)-1 {
			val &= 0x7f
		}
		if i < 8 {
			magnitude |= uint64(val) << uint8(8*i)
		}
	}

	if v[len(v)-1]&0x80 != 0 {
		return -int64(magnitude)
	}
	return int64(magnitude)
}

// MakeScriptNum 将给定字节解释为数值。
// 长度超过 scriptNumLen 时返回 ErrNumberTooBig；requireMinimal 为 true 时，非最短编码返回 ErrMinimalScriptNum。
func MakeScriptNum(v []byte, requireMinimal bool, scriptNumLen int) (scriptNum, error) {
	if len(v) > scriptNumLen {
		str := fmt.Sprintf("numeric value encoded as %x is %d bytes "+
			"which exceeds the max allowed of %d", v, len(v),
			scriptNumLen)
		return 0, scriptError(ErrNumberTooBig, str)
	}

	if requireMinimal {
		if err := checkMinimalDataEncoding(v); err != nil {
			return 0, err
		}
	}

	return scriptNum(DeserializeScriptNum(v)), nil
}
