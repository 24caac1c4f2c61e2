// 包含脚本令牌化的逻辑，用于将字节码惰性地分解为指令。

package txscript

import (
	"encoding/binary"
	"fmt"
)

// InstructionKind 标识指令的种类。
type InstructionKind uint8

const (
	// InstrPushData 推送原始数据（OP_DATA_1 到 OP_DATA_75 以及 OP_PUSHDATA1/2/4）。
	InstrPushData InstructionKind = iota

	// InstrPushValue 推送小整数（OP_1NEGATE、OP_0、OP_1 到 OP_16）。
	InstrPushValue

	// InstrOpcode 是其余所有操作码。
	InstrOpcode
)

// String 返回指令种类的名称。
func (k InstructionKind) String() string {
	switch k {
	case InstrPushData:
		return "data"
	case InstrPushValue:
		return "value"
	case InstrOpcode:
		return "opcode"
	}
	return "unknown"
}

// Instruction 是一条解析后的指令。
// 它不持有数据切片，只记录数据在原脚本中的偏移和长度，需要时通过 Data 从原脚本中取出。
type Instruction struct {
	Kind   InstructionKind
	Opcode byte
	Offset int // 指令在脚本中的起始偏移
	Size   int // 指令编码的总长度，包括操作码和长度前缀

	dataOff int
	dataLen int
}

// End 返回紧随该指令之后的字节偏移。
func (in Instruction) End() int {
	return in.Offset + in.Size
}

// DataLen 返回推送数据的长度。
func (in Instruction) DataLen() int {
	return in.dataLen
}

// Data 从产生该指令的脚本中取出推送的数据。
func (in Instruction) Data(script []byte) []byte {
	if in.dataLen == 0 {
		return nil
	}
	return script[in.dataOff : in.dataOff+in.dataLen]
}

// Value 返回小整数推送指令的值。对其他指令返回 0。
func (in Instruction) Value() int64 {
	if in.Kind != InstrPushValue {
		return 0
	}
	return int64(asSmallInt(in.Opcode))
}

// ScriptTokenizer 提供了一种无需分配即可标记交易脚本的工具。
// 每个连续的操作码都使用 Next 函数进行解析，迭代完成后返回 false，这可能是由于成功标记整个脚本或遇到解析错误。
// 在失败的情况下，可以使用 Err 函数来获取 *ParseError。
//
// 每次调用 MakeScriptTokenizer 都得到一个新的迭代器，每一步至少前进一个字节，因此迭代总会结束。
type ScriptTokenizer struct {
	script    []byte
	offset    int
	opcodePos int
	op        *opcode
	instr     Instruction
	err       error
}

// Done 当所有操作码都已用尽或遇到解析失败时返回 true。
func (t *ScriptTokenizer) Done() bool {
	return t.err != nil || t.offset >= len(t.script)
}

// Next 尝试解析下一个操作码并返回是否成功。
// 解析失败时偏移量停留在失败的操作码上，并设置 Err。
func (t *ScriptTokenizer) Next() bool {
	if t.Done() {
		return false
	}

	start := t.offset
	op := &opcodeArray[t.script[start]]
	t.opcodePos++

	switch {
	case op.length == 1:
		kind := InstrOpcode
		if isSmallInt(op.value) || op.value == OP_1NEGATE {
			kind = InstrPushValue
		}
		t.setInstr(op, Instruction{Kind: kind, Opcode: op.value,
			Offset: start, Size: 1})
		return true

	// OP_DATA_1 到 OP_DATA_75。
	case op.length > 1:
		if len(t.script)-start < op.length {
			t.fail(op, start, fmt.Sprintf("opcode requires %d bytes, "+
				"but script only has %d remaining", op.length,
				len(t.script)-start))
			return false
		}
		t.setInstr(op, Instruction{Kind: InstrPushData, Opcode: op.value,
			Offset: start, Size: op.length, dataOff: start + 1,
			dataLen: op.length - 1})
		return true

	// OP_PUSHDATA1/2/4，长度前缀为小端编码。
	case op.length < 0:
		lenSize := -op.length
		if len(t.script)-start-1 < lenSize {
			t.fail(op, start, fmt.Sprintf("opcode requires %d length "+
				"bytes, but script only has %d remaining", lenSize,
				len(t.script)-start-1))
			return false
		}

		prefix := t.script[start+1 : start+1+lenSize]
		var dataLen uint64
		switch lenSize {
		case 1:
			dataLen = uint64(prefix[0])
		case 2:
			dataLen = uint64(binary.LittleEndian.Uint16(prefix))
		case 4:
			dataLen = uint64(binary.LittleEndian.Uint32(prefix))
		}

		dataOff := start + 1 + lenSize
		if dataLen > uint64(len(t.script)-dataOff) {
			t.fail(op, start, fmt.Sprintf("opcode pushes %d bytes, but "+
				"script only has %d remaining", dataLen,
				len(t.script)-dataOff))
			return false
		}

		t.setInstr(op, Instruction{Kind: InstrPushData, Opcode: op.value,
			Offset: start, Size: 1 + lenSize + int(dataLen),
			dataOff: dataOff, dataLen: int(dataLen)})
		return true
	}

	panic("unreachable")
}

// setInstr 记录刚解析出的指令并推进偏移量。
func (t *ScriptTokenizer) setInstr(op *opcode, instr Instruction) {
	t.op = op
	t.instr = instr
	t.offset = instr.End()
}

// fail 记录解析错误。
func (t *ScriptTokenizer) fail(op *opcode, offset int, desc string) {
	t.err = &ParseError{Offset: offset, Opcode: op.value, Description: desc}
}

// Script 返回与分词器关联的完整脚本。
func (t *ScriptTokenizer) Script() []byte {
	return t.script
}

// ByteIndex 返回下一个将被解析的操作码在脚本中的偏移量。
func (t *ScriptTokenizer) ByteIndex() int {
	return t.offset
}

// OpcodePosition 返回当前操作码计数器，从 0 开始。未解析任何操作码时返回 -1。
func (t *ScriptTokenizer) OpcodePosition() int {
	return t.opcodePos
}

// Opcode 返回最近成功解析的操作码。
func (t *ScriptTokenizer) Opcode() byte {
	if t.op == nil {
		return OP_INVALIDOPCODE
	}
	return t.op.value
}

// Data 返回与最近成功解析的操作码关联的数据。
func (t *ScriptTokenizer) Data() []byte {
	return t.instr.Data(t.script)
}

// Instruction 返回最近成功解析的指令。
func (t *ScriptTokenizer) Instruction() Instruction {
	return t.instr
}

// Err 返回解析错误。仅当遇到格式错误的推送时才不为 nil。
func (t *ScriptTokenizer) Err() error {
	return t.err
}

// MakeScriptTokenizer 返回脚本标记生成器的新实例。
func MakeScriptTokenizer(script []byte) ScriptTokenizer {
	// 使用 -1，使第一个操作码的位置为 0。
	return ScriptTokenizer{script: script, opcodePos: -1}
}

// ParseScript 一次性解析整个脚本，在第一个格式错误的推送处返回 *ParseError。
func ParseScript(script []byte) ([]Instruction, error) {
	var instrs []Instruction
	tokenizer := MakeScriptTokenizer(script)
	for tokenizer.Next() {
		instrs = append(instrs, tokenizer.Instruction())
	}
	if err := tokenizer.Err(); err != nil {
		return nil, err
	}
	return instrs, nil
}
