// 实现以规范编码构建脚本的 ScriptBuilder。

package txscript

import (
	"encoding/binary"
	"fmt"
)

const (
	// defaultScriptAlloc 是 ScriptBuilder 预分配的脚本容量。
	// 大多数标准脚本都比它小，因此通常不需要再次分配。
	defaultScriptAlloc = 500
)

// ErrScriptNotCanonical 表示构建的脚本不符合规范编码，或超过了允许的大小。
type ErrScriptNotCanonical string

// Error 实现 error 接口。
func (e ErrScriptNotCanonical) Error() string {
	return string(e)
}

// ScriptBuilder 以最短编码构建自定义脚本。
//
// 例如，下面构建一个支付到公钥哈希的脚本：
//
//	builder := txscript.NewScriptBuilder()
//	builder.AddOp(txscript.OP_DUP).AddOp(txscript.OP_HASH160)
//	builder.AddData(pubKeyHash).AddOp(txscript.OP_EQUALVERIFY)
//	builder.AddOp(txscript.OP_CHECKSIG)
//	script, err := builder.Script()
//
// 一旦某次添加出错，之后的添加都不会修改脚本，错误在调用 Script 时返回。
type ScriptBuilder struct {
	script []byte
	err    error
}

// scriptBuilderConfig 是 NewScriptBuilder 的可选配置。
type scriptBuilderConfig struct {
	allocSize int
}

// ScriptBuilderOpt 是修改 ScriptBuilder 配置的函数选项。
type ScriptBuilderOpt func(*scriptBuilderConfig)

// WithScriptAllocSize 指定脚本的初始容量。
func WithScriptAllocSize(size int) ScriptBuilderOpt {
	return func(cfg *scriptBuilderConfig) {
		cfg.allocSize = size
	}
}

// NewScriptBuilder 返回一个新的脚本构建器。
func NewScriptBuilder(opts ...ScriptBuilderOpt) *ScriptBuilder {
	cfg := &scriptBuilderConfig{
		allocSize: defaultScriptAlloc,
	}
	for _, opt := range opts {
		opt(cfg)
	}

	return &ScriptBuilder{
		script: make([]byte, 0, cfg.allocSize),
	}
}

// AddOp 将操作码追加到脚本末尾。脚本会超过 MaxScriptSize 时不做修改并记录错误。
func (b *ScriptBuilder) AddOp(opcode byte) *ScriptBuilder {
	if b.err != nil {
		return b
	}

	if len(b.script)+1 > MaxScriptSize {
		str := fmt.Sprintf("adding an opcode would exceed the maximum "+
			"allowed canonical script length of %d", MaxScriptSize)
		b.err = ErrScriptNotCanonical(str)
		return b
	}

	b.script = append(b.script, opcode)
	return b
}

// AddOps 依次追加多个操作码。
func (b *ScriptBuilder) AddOps(opcodes []byte) *ScriptBuilder {
	if b.err != nil {
		return b
	}

	if len(b.script)+len(opcodes) > MaxScriptSize {
		str := fmt.Sprintf("adding opcodes would exceed the maximum "+
			"allowed canonical script length of %d", MaxScriptSize)
		b.err = ErrScriptNotCanonical(str)
		return b
	}

	b.script = append(b.script, opcodes...)
	return b
}

// canonicalDataSize 返回以最短方式推送数据所需的字节数。
func canonicalDataSize(data []byte) int {
	dataLen := len(data)

	// 单字节的小整数可以用操作码表示。
	if dataLen == 0 {
		return 1
	} else if dataLen == 1 && data[0] <= 16 {
		return 1
	} else if dataLen == 1 && data[0] == 0x81 {
		return 1
	}

	if dataLen < OP_PUSHDATA1 {
		return 1 + dataLen
	} else if dataLen <= 0xff {
		return 2 + dataLen
	} else if dataLen <= 0xffff {
		return 3 + dataLen
	}

	return 5 + dataLen
}

// addData 以最短编码追加推送数据，不检查大小。
func (b *ScriptBuilder) addData(data []byte) *ScriptBuilder {
	dataLen := len(data)

	// 空数据和 1 到 16 使用 OP_0 以及 OP_1 到 OP_16，0x81 使用 OP_1NEGATE。
	if dataLen == 0 || dataLen == 1 && data[0] == 0 {
		b.script = append(b.script, OP_0)
		return b
	} else if dataLen == 1 && data[0] <= 16 {
		b.script = append(b.script, (OP_1-1)+data[0])
		return b
	} else if dataLen == 1 && data[0] == 0x81 {
		b.script = append(b.script, byte(OP_1NEGATE))
		return b
	}

	// 长度小于 OP_PUSHDATA1 时直接推送，否则使用 OP_PUSHDATA1/2/4。
	if dataLen < OP_PUSHDATA1 {
		b.script = append(b.script, byte((OP_DATA_1-1)+dataLen))
	} else if dataLen <= 0xff {
		b.script = append(b.script, OP_PUSHDATA1, byte(dataLen))
	} else if dataLen <= 0xffff {
		buf := make([]byte, 2)
		binary.LittleEndian.PutUint16(buf, uint16(dataLen))
		b.script = append(b.script, OP_PUSHDATA2)
		b.script = append(b.script, buf...)
	} else {
		buf := make([]byte, 4)
		binary.LittleEndian.PutUint32(buf, uint32(dataLen))
		b.script = append(b.script, OP_PUSHDATA4)
		b.script = append(b.script, buf...)
	}

	b.script = append(b.script, data...)

	return b
}

// AddFullData 追加推送数据，但不检查 MaxScriptElementSize。
// 它只用于构造测试中的非规范脚本，正常代码应使用 AddData。
func (b *ScriptBuilder) AddFullData(data []byte) *ScriptBuilder {
	if b.err != nil {
		return b
	}

	return b.addData(data)
}

// AddData 以最短编码追加推送数据。
// 数据超过 MaxScriptElementSize，或脚本会超过 MaxScriptSize 时，不做修改并记录错误。
func (b *ScriptBuilder) AddData(data []byte) *ScriptBuilder {
	if b.err != nil {
		return b
	}

	dataSize := canonicalDataSize(data)
	if len(b.script)+dataSize > MaxScriptSize {
		str := fmt.Sprintf("adding %d bytes of data would exceed the "+
			"maximum allowed canonical script length of %d",
			dataSize, MaxScriptSize)
		b.err = ErrScriptNotCanonical(str)
		return b
	}

	dataLen := len(data)
	if dataLen > MaxScriptElementSize {
		str := fmt.Sprintf("adding a data element of %d bytes would "+
			"exceed the maximum allowed script element size of %d",
			dataLen, MaxScriptElementSize)
		b.err = ErrScriptNotCanonical(str)
		return b
	}

	return b.addData(data)
}

// AddInt64 以最短编码追加整数推送。
func (b *ScriptBuilder) AddInt64(val int64) *ScriptBuilder {
	if b.err != nil {
		return b
	}

	if len(b.script)+1 > MaxScriptSize {
		str := fmt.Sprintf("adding an integer would exceed the maximum "+
			"allow canonical script length of %d", MaxScriptSize)
		b.err = ErrScriptNotCanonical(str)
		return b
	}

	// 0 和 1 到 16 以及 -1 使用对应的操作码。
	if val == 0 {
		b.script = append(b.script, OP_0)
		return b
	}
	if val == -1 || (val >= 1 && val <= 16) {
		b.script = append(b.script, byte((OP_1-1)+val))
		return b
	}

	return b.AddData(scriptNum(val).Bytes())
}

// Reset 清空脚本和错误，以便重复使用构建器。
func (b *ScriptBuilder) Reset() *ScriptBuilder {
	b.script = b.script[0:0]
	b.err = nil
	return b
}

// Script 返回当前构建的脚本。添加过程中出错时，返回出错前的脚本和错误。
func (b *ScriptBuilder) Script() ([]byte, error) {
	return b.script, b.err
}
