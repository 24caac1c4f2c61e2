// 包含比特币脚本语言的操作码表以及所有操作码的实现。

package txscript

import (
	"crypto/sha1"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"hash"
	"strings"

	"github.com/btcsuite/btcd/chaincfg/chainhash"
	"golang.org/x/crypto/ripemd160"
)

// 这些常量是比特币核心以及大多数处理比特币脚本的软件中使用的官方操作码的值。
const (
	// 数据推送。OP_DATA_N 之后紧跟 N 字节数据。
	OP_0                   = 0x00
	OP_FALSE               = 0x00
	OP_DATA_1              = 0x01
	OP_DATA_2              = 0x02
	OP_DATA_3              = 0x03
	OP_DATA_4              = 0x04
	OP_DATA_5              = 0x05
	OP_DATA_6              = 0x06
	OP_DATA_7              = 0x07
	OP_DATA_8              = 0x08
	OP_DATA_9              = 0x09
	OP_DATA_10             = 0x0a
	OP_DATA_11             = 0x0b
	OP_DATA_12             = 0x0c
	OP_DATA_13             = 0x0d
	OP_DATA_14             = 0x0e
	OP_DATA_15             = 0x0f
	OP_DATA_16             = 0x10
	OP_DATA_17             = 0x11
	OP_DATA_18             = 0x12
	OP_DATA_19             = 0x13
	OP_DATA_20             = 0x14
	OP_DATA_21             = 0x15
	OP_DATA_22             = 0x16
	OP_DATA_23             = 0x17
	OP_DATA_24             = 0x18
	OP_DATA_25             = 0x19
	OP_DATA_26             = 0x1a
	OP_DATA_27             = 0x1b
	OP_DATA_28             = 0x1c
	OP_DATA_29             = 0x1d
	OP_DATA_30             = 0x1e
	OP_DATA_31             = 0x1f
	OP_DATA_32             = 0x20
	OP_DATA_33             = 0x21
	OP_DATA_34             = 0x22
	OP_DATA_35             = 0x23
	OP_DATA_36             = 0x24
	OP_DATA_37             = 0x25
	OP_DATA_38             = 0x26
	OP_DATA_39             = 0x27
	OP_DATA_40             = 0x28
	OP_DATA_41             = 0x29
	OP_DATA_42             = 0x2a
	OP_DATA_43             = 0x2b
	OP_DATA_44             = 0x2c
	OP_DATA_45             = 0x2d
	OP_DATA_46             = 0x2e
	OP_DATA_47             = 0x2f
	OP_DATA_48             = 0x30
	OP_DATA_49             = 0x31
	OP_DATA_50             = 0x32
	OP_DATA_51             = 0x33
	OP_DATA_52             = 0x34
	OP_DATA_53             = 0x35
	OP_DATA_54             = 0x36
	OP_DATA_55             = 0x37
	OP_DATA_56             = 0x38
	OP_DATA_57             = 0x39
	OP_DATA_58             = 0x3a
	OP_DATA_59             = 0x3b
	OP_DATA_60             = 0x3c
	OP_DATA_61             = 0x3d
	OP_DATA_62             = 0x3e
	OP_DATA_63             = 0x3f
	OP_DATA_64             = 0x40
	OP_DATA_65             = 0x41
	OP_DATA_66             = 0x42
	OP_DATA_67             = 0x43
	OP_DATA_68             = 0x44
	OP_DATA_69             = 0x45
	OP_DATA_70             = 0x46
	OP_DATA_71             = 0x47
	OP_DATA_72             = 0x48
	OP_DATA_73             = 0x49
	OP_DATA_74             = 0x4a
	OP_DATA_75             = 0x4b

	// 长度前缀分别为 1、2、4 字节（小端）的数据推送。
	OP_PUSHDATA1           = 0x4c
	OP_PUSHDATA2           = 0x4d
	OP_PUSHDATA4           = 0x4e

	// 小整数。
	OP_1NEGATE             = 0x4f
	OP_RESERVED            = 0x50
	OP_1                   = 0x51
	OP_TRUE                = 0x51
	OP_2                   = 0x52
	OP_3                   = 0x53
	OP_4                   = 0x54
	OP_5                   = 0x55
	OP_6                   = 0x56
	OP_7                   = 0x57
	OP_8                   = 0x58
	OP_9                   = 0x59
	OP_10                  = 0x5a
	OP_11                  = 0x5b
	OP_12                  = 0x5c
	OP_13                  = 0x5d
	OP_14                  = 0x5e
	OP_15                  = 0x5f
	OP_16                  = 0x60

	// 流程控制。
	OP_NOP                 = 0x61
	OP_VER                 = 0x62
	OP_IF                  = 0x63
	OP_NOTIF               = 0x64
	OP_VERIF               = 0x65
	OP_VERNOTIF            = 0x66
	OP_ELSE                = 0x67
	OP_ENDIF               = 0x68
	OP_VERIFY              = 0x69
	OP_RETURN              = 0x6a

	// 栈操作。
	OP_TOALTSTACK          = 0x6b
	OP_FROMALTSTACK        = 0x6c
	OP_2DROP               = 0x6d
	OP_2DUP                = 0x6e
	OP_3DUP                = 0x6f
	OP_2OVER               = 0x70
	OP_2ROT                = 0x71
	OP_2SWAP               = 0x72
	OP_IFDUP               = 0x73
	OP_DEPTH               = 0x74
	OP_DROP                = 0x75
	OP_DUP                 = 0x76
	OP_NIP                 = 0x77
	OP_OVER                = 0x78
	OP_PICK                = 0x79
	OP_ROLL                = 0x7a
	OP_ROT                 = 0x7b
	OP_SWAP                = 0x7c
	OP_TUCK                = 0x7d

	// 字符串操作，除 OP_SIZE 外均已禁用。
	OP_CAT                 = 0x7e
	OP_SUBSTR              = 0x7f
	OP_LEFT                = 0x80
	OP_RIGHT               = 0x81
	OP_SIZE                = 0x82

	// 位运算，除 OP_EQUAL 和 OP_EQUALVERIFY 外均已禁用。
	OP_INVERT              = 0x83
	OP_AND                 = 0x84
	OP_OR                  = 0x85
	OP_XOR                 = 0x86
	OP_EQUAL               = 0x87
	OP_EQUALVERIFY         = 0x88
	OP_RESERVED1           = 0x89
	OP_RESERVED2           = 0x8a

	// 算术运算。
	OP_1ADD                = 0x8b
	OP_1SUB                = 0x8c
	OP_2MUL                = 0x8d
	OP_2DIV                = 0x8e
	OP_NEGATE              = 0x8f
	OP_ABS                 = 0x90
	OP_NOT                 = 0x91
	OP_0NOTEQUAL           = 0x92
	OP_ADD                 = 0x93
	OP_SUB                 = 0x94
	OP_MUL                 = 0x95
	OP_DIV                 = 0x96
	OP_MOD                 = 0x97
	OP_LSHIFT              = 0x98
	OP_RSHIFT              = 0x99
	OP_BOOLAND             = 0x9a
	OP_BOOLOR              = 0x9b
	OP_NUMEQUAL            = 0x9c
	OP_NUMEQUALVERIFY      = 0x9d
	OP_NUMNOTEQUAL         = 0x9e
	OP_LESSTHAN            = 0x9f
	OP_GREATERTHAN         = 0xa0
	OP_LESSTHANOREQUAL     = 0xa1
	OP_GREATERTHANOREQUAL  = 0xa2
	OP_MIN                 = 0xa3
	OP_MAX                 = 0xa4
	OP_WITHIN              = 0xa5

	// 密码学运算。
	OP_RIPEMD160           = 0xa6
	OP_SHA1                = 0xa7
	OP_SHA256              = 0xa8
	OP_HASH160             = 0xa9
	OP_HASH256             = 0xaa
	OP_CODESEPARATOR       = 0xab
	OP_CHECKSIG            = 0xac
	OP_CHECKSIGVERIFY      = 0xad
	OP_CHECKMULTISIG       = 0xae
	OP_CHECKMULTISIGVERIFY = 0xaf

	// 保留给软分叉升级的 NOP。
	OP_NOP1                = 0xb0
	OP_NOP2                = 0xb1
	OP_CHECKLOCKTIMEVERIFY = 0xb1
	OP_NOP3                = 0xb2
	OP_CHECKSEQUENCEVERIFY = 0xb2
	OP_NOP4                = 0xb3
	OP_NOP5                = 0xb4
	OP_NOP6                = 0xb5
	OP_NOP7                = 0xb6
	OP_NOP8                = 0xb7
	OP_NOP9                = 0xb8
	OP_NOP10               = 0xb9

	// 仅在 tapscript 中有效，这里视为无效操作码。
	OP_CHECKSIGADD         = 0xba

	// 未定义的操作码。
	OP_UNKNOWN187          = 0xbb
	OP_UNKNOWN188          = 0xbc
	OP_UNKNOWN189          = 0xbd
	OP_UNKNOWN190          = 0xbe
	OP_UNKNOWN191          = 0xbf
	OP_UNKNOWN192          = 0xc0
	OP_UNKNOWN193          = 0xc1
	OP_UNKNOWN194          = 0xc2
	OP_UNKNOWN195          = 0xc3
	OP_UNKNOWN196          = 0xc4
	OP_UNKNOWN197          = 0xc5
	OP_UNKNOWN198          = 0xc6
	OP_UNKNOWN199          = 0xc7
	OP_UNKNOWN200          = 0xc8
	OP_UNKNOWN201          = 0xc9
	OP_UNKNOWN202          = 0xca
	OP_UNKNOWN203          = 0xcb
	OP_UNKNOWN204          = 0xcc
	OP_UNKNOWN205          = 0xcd
	OP_UNKNOWN206          = 0xce
	OP_UNKNOWN207          = 0xcf
	OP_UNKNOWN208          = 0xd0
	OP_UNKNOWN209          = 0xd1
	OP_UNKNOWN210          = 0xd2
	OP_UNKNOWN211          = 0xd3
	OP_UNKNOWN212          = 0xd4
	OP_UNKNOWN213          = 0xd5
	OP_UNKNOWN214          = 0xd6
	OP_UNKNOWN215          = 0xd7
	OP_UNKNOWN216          = 0xd8
	OP_UNKNOWN217          = 0xd9
	OP_UNKNOWN218          = 0xda
	OP_UNKNOWN219          = 0xdb
	OP_UNKNOWN220          = 0xdc
	OP_UNKNOWN221          = 0xdd
	OP_UNKNOWN222          = 0xde
	OP_UNKNOWN223          = 0xdf
	OP_UNKNOWN224          = 0xe0
	OP_UNKNOWN225          = 0xe1
	OP_UNKNOWN226          = 0xe2
	OP_UNKNOWN227          = 0xe3
	OP_UNKNOWN228          = 0xe4
	OP_UNKNOWN229          = 0xe5
	OP_UNKNOWN230          = 0xe6
	OP_UNKNOWN231          = 0xe7
	OP_UNKNOWN232          = 0xe8
	OP_UNKNOWN233          = 0xe9
	OP_UNKNOWN234          = 0xea
	OP_UNKNOWN235          = 0xeb
	OP_UNKNOWN236          = 0xec
	OP_UNKNOWN237          = 0xed
	OP_UNKNOWN238          = 0xee
	OP_UNKNOWN239          = 0xef
	OP_UNKNOWN240          = 0xf0
	OP_UNKNOWN241          = 0xf1
	OP_UNKNOWN242          = 0xf2
	OP_UNKNOWN243          = 0xf3
	OP_UNKNOWN244          = 0xf4
	OP_UNKNOWN245          = 0xf5
	OP_UNKNOWN246          = 0xf6
	OP_UNKNOWN247          = 0xf7
	OP_UNKNOWN248          = 0xf8
	OP_UNKNOWN249          = 0xf9

	// 比特币核心内部使用的模板匹配操作码。
	OP_SMALLINTEGER        = 0xfa
	OP_PUBKEYS             = 0xfb
	OP_UNKNOWN252          = 0xfc
	OP_PUBKEYHASH          = 0xfd
	OP_PUBKEY              = 0xfe
	OP_INVALIDOPCODE       = 0xff
)
// opcodeClass 是操作码的有效性分类，执行前的过滤和计数依赖它。
type opcodeClass uint8

const (
	classPush          opcodeClass = iota // OP_0、OP_DATA_N、OP_PUSHDATA1/2/4
	classSmallInt                         // OP_1NEGATE、OP_1 到 OP_16
	classControl                          // OP_IF、OP_NOTIF、OP_ELSE、OP_ENDIF 等流程控制
	classNop                              // OP_NOP 以及保留给软分叉的 NOP
	classRegular                          // 其余可执行操作码
	classDisabled                         // 出现即失败，即使在未执行的分支中
	classReserved                         // 执行时失败
	classInvalid                          // 未定义，执行时失败
)

// opcode 定义与操作码相关的信息。
// length 为 1 表示没有附加数据；大于 1 表示指令的固定总长度；-1、-2、-4 表示长度前缀的字节数。
// opfunc 是执行该操作码的函数。
type opcode struct {
	value  byte
	name   string
	length int
	class  opcodeClass
	opfunc func(*opcode, []byte, *Interpreter) error
}

// opcodeArray 保存所有 256 个操作码的信息，在 init 中构建，之后只读。
var opcodeArray [256]opcode

// OpcodeByName 是操作码名称到操作码值的映射。
var OpcodeByName = make(map[string]byte)

func init() {
	for i := range opcodeArray {
		opcodeArray[i] = opcode{byte(i), fmt.Sprintf("OP_UNKNOWN%d", i), 1,
			classInvalid, opcodeInvalid}
	}

	for op := OP_DATA_1; op <= OP_DATA_75; op++ {
		opcodeArray[op] = opcode{byte(op), fmt.Sprintf("OP_DATA_%d", op),
			op + 1, classPush, opcodePushData}
	}

	for op := OP_1; op <= OP_16; op++ {
		opcodeArray[op] = opcode{byte(op), fmt.Sprintf("OP_%d", op-OP_1+1),
			1, classSmallInt, opcodeN}
	}

	defs := []opcode{
		// 数据推送操作码。
		{OP_0, "OP_0", 1, classPush, opcodeFalse},
		{OP_PUSHDATA1, "OP_PUSHDATA1", -1, classPush, opcodePushData},
		{OP_PUSHDATA2, "OP_PUSHDATA2", -2, classPush, opcodePushData},
		{OP_PUSHDATA4, "OP_PUSHDATA4", -4, classPush, opcodePushData},
		{OP_1NEGATE, "OP_1NEGATE", 1, classSmallInt, opcode1Negate},
		{OP_RESERVED, "OP_RESERVED", 1, classReserved, opcodeReserved},

		// 控制操作码。
		{OP_NOP, "OP_NOP", 1, classNop, opcodeNop},
		{OP_VER, "OP_VER", 1, classReserved, opcodeReserved},
		{OP_IF, "OP_IF", 1, classControl, opcodeIf},
		{OP_NOTIF, "OP_NOTIF", 1, classControl, opcodeNotIf},
		{OP_VERIF, "OP_VERIF", 1, classControl, opcodeReserved},
		{OP_VERNOTIF, "OP_VERNOTIF", 1, classControl, opcodeReserved},
		{OP_ELSE, "OP_ELSE", 1, classControl, opcodeElse},
		{OP_ENDIF, "OP_ENDIF", 1, classControl, opcodeEndif},
		{OP_VERIFY, "OP_VERIFY", 1, classRegular, opcodeVerify},
		{OP_RETURN, "OP_RETURN", 1, classRegular, opcodeReturn},
		{OP_CHECKLOCKTIMEVERIFY, "OP_CHECKLOCKTIMEVERIFY", 1, classNop, opcodeCheckLockTimeVerify},
		{OP_CHECKSEQUENCEVERIFY, "OP_CHECKSEQUENCEVERIFY", 1, classNop, opcodeCheckSequenceVerify},

		// 栈操作码。
		{OP_TOALTSTACK, "OP_TOALTSTACK", 1, classRegular, opcodeToAltStack},
		{OP_FROMALTSTACK, "OP_FROMALTSTACK", 1, classRegular, opcodeFromAltStack},
		{OP_2DROP, "OP_2DROP", 1, classRegular, opcode2Drop},
		{OP_2DUP, "OP_2DUP", 1, classRegular, opcode2Dup},
		{OP_3DUP, "OP_3DUP", 1, classRegular, opcode3Dup},
		{OP_2OVER, "OP_2OVER", 1, classRegular, opcode2Over},
		{OP_2ROT, "OP_2ROT", 1, classRegular, opcode2Rot},
		{OP_2SWAP, "OP_2SWAP", 1, classRegular, opcode2Swap},
		{OP_IFDUP, "OP_IFDUP", 1, classRegular, opcodeIfDup},
		{OP_DEPTH, "OP_DEPTH", 1, classRegular, opcodeDepth},
		{OP_DROP, "OP_DROP", 1, classRegular, opcodeDrop},
		{OP_DUP, "OP_DUP", 1, classRegular, opcodeDup},
		{OP_NIP, "OP_NIP", 1, classRegular, opcodeNip},
		{OP_OVER, "OP_OVER", 1, classRegular, opcodeOver},
		{OP_PICK, "OP_PICK", 1, classRegular, opcodePick},
		{OP_ROLL, "OP_ROLL", 1, classRegular, opcodeRoll},
		{OP_ROT, "OP_ROT", 1, classRegular, opcodeRot},
		{OP_SWAP, "OP_SWAP", 1, classRegular, opcodeSwap},
		{OP_TUCK, "OP_TUCK", 1, classRegular, opcodeTuck},

		// 拼接操作码。
		{OP_CAT, "OP_CAT", 1, classDisabled, opcodeDisabled},
		{OP_SUBSTR, "OP_SUBSTR", 1, classDisabled, opcodeDisabled},
		{OP_LEFT, "OP_LEFT", 1, classDisabled, opcodeDisabled},
		{OP_RIGHT, "OP_RIGHT", 1, classDisabled, opcodeDisabled},
		{OP_SIZE, "OP_SIZE", 1, classRegular, opcodeSize},

		// 按位逻辑操作码。
		{OP_INVERT, "OP_INVERT", 1, classDisabled, opcodeDisabled},
		{OP_AND, "OP_AND", 1, classDisabled, opcodeDisabled},
		{OP_OR, "OP_OR", 1, classDisabled, opcodeDisabled},
		{OP_XOR, "OP_XOR", 1, classDisabled, opcodeDisabled},
		{OP_EQUAL, "OP_EQUAL", 1, classRegular, opcodeEqual},
		{OP_EQUALVERIFY, "OP_EQUALVERIFY", 1, classRegular, opcodeEqualVerify},
		{OP_RESERVED1, "OP_RESERVED1", 1, classReserved, opcodeReserved},
		{OP_RESERVED2, "OP_RESERVED2", 1, classReserved, opcodeReserved},

		// 数字相关操作码。
		{OP_1ADD, "OP_1ADD", 1, classRegular, opcode1Add},
		{OP_1SUB, "OP_1SUB", 1, classRegular, opcode1Sub},
		{OP_2MUL, "OP_2MUL", 1, classDisabled, opcodeDisabled},
		{OP_2DIV, "OP_2DIV", 1, classDisabled, opcodeDisabled},
		{OP_NEGATE, "OP_NEGATE", 1, classRegular, opcodeNegate},
		{OP_ABS, "OP_ABS", 1, classRegular, opcodeAbs},
		{OP_NOT, "OP_NOT", 1, classRegular, opcodeNot},
		{OP_0NOTEQUAL, "OP_0NOTEQUAL", 1, classRegular, opcode0NotEqual},
		{OP_ADD, "OP_ADD", 1, classRegular, opcodeAdd},
		{OP_SUB, "OP_SUB", 1, classRegular, opcodeSub},
		{OP_MUL, "OP_MUL", 1, classDisabled, opcodeDisabled},
		{OP_DIV, "OP_DIV", 1, classDisabled, opcodeDisabled},
		{OP_MOD, "OP_MOD", 1, classDisabled, opcodeDisabled},
		{OP_LSHIFT, "OP_LSHIFT", 1, classDisabled, opcodeDisabled},
		{OP_RSHIFT, "OP_RSHIFT", 1, classDisabled, opcodeDisabled},
		{OP_BOOLAND, "OP_BOOLAND", 1, classRegular, opcodeBoolAnd},
		{OP_BOOLOR, "OP_BOOLOR", 1, classRegular, opcodeBoolOr},
		{OP_NUMEQUAL, "OP_NUMEQUAL", 1, classRegular, opcodeNumEqual},
		{OP_NUMEQUALVERIFY, "OP_NUMEQUALVERIFY", 1, classRegular, opcodeNumEqualVerify},
		{OP_NUMNOTEQUAL, "OP_NUMNOTEQUAL", 1, classRegular, opcodeNumNotEqual},
		{OP_LESSTHAN, "OP_LESSTHAN", 1, classRegular, opcodeLessThan},
		{OP_GREATERTHAN, "OP_GREATERTHAN", 1, classRegular, opcodeGreaterThan},
		{OP_LESSTHANOREQUAL, "OP_LESSTHANOREQUAL", 1, classRegular, opcodeLessThanOrEqual},
		{OP_GREATERTHANOREQUAL, "OP_GREATERTHANOREQUAL", 1, classRegular, opcodeGreaterThanOrEqual},
		{OP_MIN, "OP_MIN", 1, classRegular, opcodeMin},
		{OP_MAX, "OP_MAX", 1, classRegular, opcodeMax},
		{OP_WITHIN, "OP_WITHIN", 1, classRegular, opcodeWithin},

		// 密码学操作码。
		{OP_RIPEMD160, "OP_RIPEMD160", 1, classRegular, opcodeRipemd160},
		{OP_SHA1, "OP_SHA1", 1, classRegular, opcodeSha1},
		{OP_SHA256, "OP_SHA256", 1, classRegular, opcodeSha256},
		{OP_HASH160, "OP_HASH160", 1, classRegular, opcodeHash160},
		{OP_HASH256, "OP_HASH256", 1, classRegular, opcodeHash256},
		{OP_CODESEPARATOR, "OP_CODESEPARATOR", 1, classRegular, opcodeCodeSeparator},
		{OP_CHECKSIG, "OP_CHECKSIG", 1, classRegular, opcodeCheckSig},
		{OP_CHECKSIGVERIFY, "OP_CHECKSIGVERIFY", 1, classRegular, opcodeCheckSigVerify},
		{OP_CHECKMULTISIG, "OP_CHECKMULTISIG", 1, classRegular, opcodeCheckMultiSig},
		{OP_CHECKMULTISIGVERIFY, "OP_CHECKMULTISIGVERIFY", 1, classRegular, opcodeCheckMultiSigVerify},

		// 保留的 NOP。
		{OP_NOP1, "OP_NOP1", 1, classNop, opcodeNop},
		{OP_NOP4, "OP_NOP4", 1, classNop, opcodeNop},
		{OP_NOP5, "OP_NOP5", 1, classNop, opcodeNop},
		{OP_NOP6, "OP_NOP6", 1, classNop, opcodeNop},
		{OP_NOP7, "OP_NOP7", 1, classNop, opcodeNop},
		{OP_NOP8, "OP_NOP8", 1, classNop, opcodeNop},
		{OP_NOP9, "OP_NOP9", 1, classNop, opcodeNop},
		{OP_NOP10, "OP_NOP10", 1, classNop, opcodeNop},

		// 其余未定义或内部使用的操作码。
		{OP_CHECKSIGADD, "OP_CHECKSIGADD", 1, classInvalid, opcodeInvalid},
		{OP_SMALLINTEGER, "OP_SMALLINTEGER", 1, classInvalid, opcodeInvalid},
		{OP_PUBKEYS, "OP_PUBKEYS", 1, classInvalid, opcodeInvalid},
		{OP_PUBKEYHASH, "OP_PUBKEYHASH", 1, classInvalid, opcodeInvalid},
		{OP_PUBKEY, "OP_PUBKEY", 1, classInvalid, opcodeInvalid},
		{OP_INVALIDOPCODE, "OP_INVALIDOPCODE", 1, classInvalid, opcodeInvalid},
	}
	for _, def := range defs {
		opcodeArray[def.value] = def
	}

	for _, op := range opcodeArray {
		OpcodeByName[op.name] = op.value
	}
	OpcodeByName["OP_FALSE"] = OP_FALSE
	OpcodeByName["OP_TRUE"] = OP_TRUE
	OpcodeByName["OP_NOP2"] = OP_CHECKLOCKTIMEVERIFY
	OpcodeByName["OP_NOP3"] = OP_CHECKSEQUENCEVERIFY
}

// opcodeOnelineRepls 定义在单行反汇编时被替换的操作码名称。
var opcodeOnelineRepls = map[string]string{
	"OP_1NEGATE": "-1",
	"OP_0":       "0",
}

// disasmOpcode 将操作码和数据的可读反汇编写入缓冲区。
// compact 为 true 时，小整数显示为数值，数据推送只显示数据的十六进制。
func disasmOpcode(buf *strings.Builder, op *opcode, data []byte, compact bool) {
	opcodeName := op.name
	if compact {
		if replName, ok := opcodeOnelineRepls[opcodeName]; ok {
			opcodeName = replName
		} else if op.class == classSmallInt {
			opcodeName = fmt.Sprintf("%d", asSmallInt(op.value))
		}

		if op.length == 1 {
			buf.WriteString(opcodeName)
		} else {
			buf.WriteString(hex.EncodeToString(data))
		}
		return
	}

	buf.WriteString(opcodeName)

	switch op.length {
	case 1:
		return
	case -1:
		buf.WriteString(fmt.Sprintf(" 0x%02x", len(data)))
	case -2:
		buf.WriteString(fmt.Sprintf(" 0x%04x", len(data)))
	case -4:
		buf.WriteString(fmt.Sprintf(" 0x%08x", len(data)))
	}

	buf.WriteString(fmt.Sprintf(" 0x%02x", data))
}

// *******************************************
// 操作码实现函数从这里开始。
// *******************************************

// opcodeDisabled 是禁用操作码的通用处理程序。
// 禁用操作码在执行前的过滤中就会失败，这里只是兜底。
func opcodeDisabled(op *opcode, data []byte, vm *Interpreter) error {
	str := fmt.Sprintf("attempt to execute disabled opcode %s", op.name)
	return scriptError(ErrDisabledOpcode, str)
}

// opcodeReserved 是保留操作码的通用处理程序。
func opcodeReserved(op *opcode, data []byte, vm *Interpreter) error {
	str := fmt.Sprintf("attempt to execute reserved opcode %s", op.name)
	return scriptError(ErrBadOpcode, str)
}

// opcodeInvalid 是无效操作码的通用处理程序。
func opcodeInvalid(op *opcode, data []byte, vm *Interpreter) error {
	str := fmt.Sprintf("attempt to execute invalid opcode %s", op.name)
	return scriptError(ErrBadOpcode, str)
}

// opcodeFalse 将空数组压入栈，表示数值 0 和布尔 false。
func opcodeFalse(op *opcode, data []byte, vm *Interpreter) error {
	vm.dstack.PushByteArray(nil)
	return nil
}

// opcodePushData 将数据推送操作码携带的数据压入栈。
func opcodePushData(op *opcode, data []byte, vm *Interpreter) error {
	vm.dstack.PushByteArray(data)
	return nil
}

// opcode1Negate 将 -1 压入栈。
func opcode1Negate(op *opcode, data []byte, vm *Interpreter) error {
	vm.dstack.PushInt(scriptNum(-1))
	return nil
}

// opcodeN 将操作码代表的小整数（OP_1 到 OP_16）压入栈。
func opcodeN(op *opcode, data []byte, vm *Interpreter) error {
	vm.dstack.PushInt(scriptNum(asSmallInt(op.value)))
	return nil
}

// opcodeNop 处理 OP_NOP 以及保留给软分叉的 NOP。
// 设置了 ScriptDiscourageUpgradableNops 时，保留的 NOP 返回错误。
func opcodeNop(op *opcode, data []byte, vm *Interpreter) error {
	if op.value != OP_NOP && vm.hasFlag(ScriptDiscourageUpgradableNops) {
		str := fmt.Sprintf("%v reserved for soft-fork upgrades", op.name)
		return scriptError(ErrDiscourageUpgradableNOPs, str)
	}
	return nil
}

// popIfBool 弹出 OP_IF/OP_NOTIF 的条件值。
// 见证脚本在 ScriptVerifyMinimalIf 下要求条件值为空或恰好为 0x01。
func popIfBool(vm *Interpreter) (bool, error) {
	if vm.dstack.Depth() < 1 {
		return false, scriptError(ErrUnbalancedConditional,
			"conditional requires a value on the stack")
	}

	if vm.sigVersion == SigVersionWitnessV0 && vm.hasFlag(ScriptVerifyMinimalIf) {
		so, err := vm.dstack.PeekByteArray(0)
		if err != nil {
			return false, err
		}
		if len(so) > 1 {
			str := fmt.Sprintf("minimal if is active, top element MUST "+
				"have a length of at most 1, instead length is %v",
				len(so))
			return false, scriptError(ErrMinimalIf, str)
		}
		if len(so) == 1 && so[0] != 0x01 {
			str := fmt.Sprintf("minimal if is active, top stack item "+
				"MUST be an empty byte array or 0x01, is instead: %v",
				so[0])
			return false, scriptError(ErrMinimalIf, str)
		}
	}

	return vm.dstack.PopBool()
}

// opcodeIf 处理 OP_IF。
// 分支执行时弹出条件值并压入条件栈；分支不执行时压入 false 且不消费栈元素。
//
// 条件栈转换: [... bool] -> [... bool cond]
func opcodeIf(op *opcode, data []byte, vm *Interpreter) error {
	condVal := false
	if vm.isBranchExecuting() {
		ok, err := popIfBool(vm)
		if err != nil {
			return err
		}
		condVal = ok
	}
	vm.pushCond(condVal)
	return nil
}

// opcodeNotIf 处理 OP_NOTIF，与 OP_IF 相同但条件取反。
func opcodeNotIf(op *opcode, data []byte, vm *Interpreter) error {
	condVal := false
	if vm.isBranchExecuting() {
		ok, err := popIfBool(vm)
		if err != nil {
			return err
		}
		condVal = !ok
	}
	vm.pushCond(condVal)
	return nil
}

// opcodeElse 翻转条件栈顶。没有打开的条件时返回错误。
func opcodeElse(op *opcode, data []byte, vm *Interpreter) error {
	if len(vm.condStack) == 0 {
		str := fmt.Sprintf("encountered opcode %s with no matching "+
			"opcode to begin conditional execution", op.name)
		return scriptError(ErrUnbalancedConditional, str)
	}
	vm.toggleCond()
	return nil
}

// opcodeEndif 结束一个条件块。没有打开的条件时返回错误。
func opcodeEndif(op *opcode, data []byte, vm *Interpreter) error {
	if len(vm.condStack) == 0 {
		str := fmt.Sprintf("encountered opcode %s with no matching "+
			"opcode to begin conditional execution", op.name)
		return scriptError(ErrUnbalancedConditional, str)
	}
	vm.popCond()
	return nil
}

// abstractVerify 弹出栈顶并在其为 false 时返回给定错误代码的错误。
func abstractVerify(op *opcode, vm *Interpreter, c ErrorCode) error {
	verified, err := vm.dstack.PopBool()
	if err != nil {
		return err
	}

	if !verified {
		str := fmt.Sprintf("%s failed", op.name)
		return scriptError(c, str)
	}
	return nil
}

// opcodeVerify 处理 OP_VERIFY。
func opcodeVerify(op *opcode, data []byte, vm *Interpreter) error {
	return abstractVerify(op, vm, ErrVerify)
}

// opcodeReturn 处理 OP_RETURN，总是失败。
func opcodeReturn(op *opcode, data []byte, vm *Interpreter) error {
	return scriptError(ErrOpReturn, "script returned early")
}

// peekLockTimeArg 读取（不弹出）CLTV/CSV 的 5 字节数值参数。
func peekLockTimeArg(op *opcode, vm *Interpreter) (int64, error) {
	e, err := vm.dstack.Peek(-1)
	if err != nil {
		return 0, err
	}
	n, err := e.Value(vm.hasFlag(ScriptVerifyMinimalData), maxLockTimeNumLen)
	if err != nil {
		return 0, err
	}
	if n < 0 {
		str := fmt.Sprintf("negative lock time: %d", n)
		return 0, scriptError(ErrNegativeLockTime, str)
	}
	return n, nil
}

// opcodeCheckLockTimeVerify 处理 OP_CHECKLOCKTIMEVERIFY（BIP0065）。
// 未启用 ScriptVerifyCheckLockTimeVerify 时等同于 OP_NOP2。
func opcodeCheckLockTimeVerify(op *opcode, data []byte, vm *Interpreter) error {
	if !vm.hasFlag(ScriptVerifyCheckLockTimeVerify) {
		if vm.hasFlag(ScriptDiscourageUpgradableNops) {
			return scriptError(ErrDiscourageUpgradableNOPs,
				"OP_NOP2 reserved for soft-fork upgrades")
		}
		return nil
	}

	lockTime, err := peekLockTimeArg(op, vm)
	if err != nil {
		return err
	}

	if !vm.checker.CheckLockTime(lockTime) {
		str := fmt.Sprintf("locktime requirement not satisfied -- "+
			"locktime %d", lockTime)
		return scriptError(ErrUnsatisfiedLockTime, str)
	}
	return nil
}

// opcodeCheckSequenceVerify 处理 OP_CHECKSEQUENCEVERIFY（BIP0112）。
// 未启用 ScriptVerifyCheckSequenceVerify 时等同于 OP_NOP3。
func opcodeCheckSequenceVerify(op *opcode, data []byte, vm *Interpreter) error {
	if !vm.hasFlag(ScriptVerifyCheckSequenceVerify) {
		if vm.hasFlag(ScriptDiscourageUpgradableNops) {
			return scriptError(ErrDiscourageUpgradableNOPs,
				"OP_NOP3 reserved for soft-fork upgrades")
		}
		return nil
	}

	sequence, err := peekLockTimeArg(op, vm)
	if err != nil {
		return err
	}

	// 栈上的序列号设置了禁用位时，该操作码等同于 NOP。
	if sequence&int64(SequenceLockTimeDisabled) != 0 {
		return nil
	}

	if !vm.checker.CheckSequence(sequence) {
		str := fmt.Sprintf("sequence requirement not satisfied -- "+
			"sequence %d", sequence)
		return scriptError(ErrUnsatisfiedLockTime, str)
	}
	return nil
}

// opcodeToAltStack 将主栈顶元素移到备用栈。
//
// 主栈转换: [... x1 x2 x3] -> [... x1 x2]
// 备用栈转换: [... y1 y2 y3] -> [... y1 y2 y3 x3]
func opcodeToAltStack(op *opcode, data []byte, vm *Interpreter) error {
	e, err := vm.dstack.Pop()
	if err != nil {
		return err
	}
	vm.astack.Push(e)
	return nil
}

// opcodeFromAltStack 将备用栈顶元素移回主栈。
//
// 主栈转换: [... x1 x2 x3] -> [... x1 x2 x3 y3]
// 备用栈转换: [... y1 y2 y3] -> [... y1 y2]
func opcodeFromAltStack(op *opcode, data []byte, vm *Interpreter) error {
	e, err := vm.astack.Pop()
	if err != nil {
		return scriptError(ErrInvalidAltStackOperation,
			"attempt to pop from empty alternate stack")
	}
	vm.dstack.Push(e)
	return nil
}

// opcode2Drop 删除栈顶两个元素。
//
// 堆栈转换: [... x1 x2 x3] -> [... x1]
func opcode2Drop(op *opcode, data []byte, vm *Interpreter) error {
	return vm.dstack.DropN(2)
}

// opcode2Dup 复制栈顶两个元素。
//
// 堆栈转换: [... x1 x2 x3] -> [... x1 x2 x3 x2 x3]
func opcode2Dup(op *opcode, data []byte, vm *Interpreter) error {
	return vm.dstack.DupN(2)
}

// opcode3Dup 复制栈顶三个元素。
//
// 堆栈转换: [... x1 x2 x3] -> [... x1 x2 x3 x1 x2 x3]
func opcode3Dup(op *opcode, data []byte, vm *Interpreter) error {
	return vm.dstack.DupN(3)
}

// opcode2Over 将栈顶以下的两个元素复制到栈顶。
//
// 堆栈转换: [... x1 x2 x3 x4] -> [... x1 x2 x3 x4 x1 x2]
func opcode2Over(op *opcode, data []byte, vm *Interpreter) error {
	return vm.dstack.OverN(2)
}

// opcode2Rot 将栈顶六个元素向左轮换两个位置。
//
// 堆栈转换: [... x1 x2 x3 x4 x5 x6] -> [... x3 x4 x5 x6 x1 x2]
func opcode2Rot(op *opcode, data []byte, vm *Interpreter) error {
	return vm.dstack.RotN(2)
}

// opcode2Swap 交换栈顶的两对元素。
//
// 堆栈转换: [... x1 x2 x3 x4] -> [... x3 x4 x1 x2]
func opcode2Swap(op *opcode, data []byte, vm *Interpreter) error {
	return vm.dstack.SwapN(2)
}

// opcodeIfDup 在栈顶元素不为零时复制它。
//
// 堆栈转换 (x1 != 0): [... x1] -> [... x1 x1]
// 堆栈转换 (x1 == 0): [... x1] -> [... x1]
func opcodeIfDup(op *opcode, data []byte, vm *Interpreter) error {
	ok, err := vm.dstack.PeekBool(0)
	if err != nil {
		return err
	}
	if ok {
		return vm.dstack.Dup(-1)
	}
	return nil
}

// opcodeDepth 将执行前的栈深度压入栈。
//
// 堆栈转换: [...] -> [... <num of items on the stack>]
func opcodeDepth(op *opcode, data []byte, vm *Interpreter) error {
	vm.dstack.PushInt(scriptNum(vm.dstack.Depth()))
	return nil
}

// opcodeDrop 删除栈顶元素。
//
// 堆栈转换: [... x1 x2 x3] -> [... x1 x2]
func opcodeDrop(op *opcode, data []byte, vm *Interpreter) error {
	return vm.dstack.DropN(1)
}

// opcodeDup 复制栈顶元素。
//
// 堆栈转换: [... x1 x2 x3] -> [... x1 x2 x3 x3]
func opcodeDup(op *opcode, data []byte, vm *Interpreter) error {
	return vm.dstack.DupN(1)
}

// opcodeNip 删除栈顶下方的元素。
//
// 堆栈转换: [... x1 x2 x3] -> [... x1 x3]
func opcodeNip(op *opcode, data []byte, vm *Interpreter) error {
	return vm.dstack.NipN(1)
}

// opcodeOver 将栈顶下方的元素复制到栈顶。
//
// 堆栈转换: [... x1 x2 x3] -> [... x1 x2 x3 x2]
func opcodeOver(op *opcode, data []byte, vm *Interpreter) error {
	return vm.dstack.OverN(1)
}

// popStackIndex 弹出 OP_PICK/OP_ROLL 的下标，下标必须小于弹出后的栈深度。
func popStackIndex(op *opcode, vm *Interpreter) (int, error) {
	val, err := vm.dstack.PopInt()
	if err != nil {
		return 0, err
	}
	if val < 0 || int64(val) >= int64(vm.dstack.Depth()) {
		str := fmt.Sprintf("%s index %d is invalid for stack size %d",
			op.name, val, vm.dstack.Depth())
		return 0, scriptError(ErrInvalidStackOperation, str)
	}
	return int(val), nil
}

// opcodePick 将距栈顶 n 处的元素复制到栈顶，n 由栈顶元素给出。
//
// 堆栈转换: [xn ... x2 x1 x0 n] -> [xn ... x2 x1 x0 xn]
func opcodePick(op *opcode, data []byte, vm *Interpreter) error {
	n, err := popStackIndex(op, vm)
	if err != nil {
		return err
	}
	return vm.dstack.PickN(n)
}

// opcodeRoll 将距栈顶 n 处的元素移动到栈顶，n 由栈顶元素给出。
//
// 堆栈转换: [xn ... x2 x1 x0 n] -> [... x2 x1 x0 xn]
func opcodeRoll(op *opcode, data []byte, vm *Interpreter) error {
	n, err := popStackIndex(op, vm)
	if err != nil {
		return err
	}
	return vm.dstack.RollN(n)
}

// opcodeRot 将栈顶三个元素向左轮换一个位置。
//
// 堆栈转换: [... x1 x2 x3] -> [... x2 x3 x1]
func opcodeRot(op *opcode, data []byte, vm *Interpreter) error {
	return vm.dstack.RotN(1)
}

// opcodeSwap 交换栈顶两个元素。
//
// 堆栈转换: [... x1 x2] -> [... x2 x1]
func opcodeSwap(op *opcode, data []byte, vm *Interpreter) error {
	return vm.dstack.SwapN(1)
}

// opcodeTuck 将栈顶元素复制到倒数第二个元素之前。
//
// 堆栈转换: [... x1 x2] -> [... x2 x1 x2]
func opcodeTuck(op *opcode, data []byte, vm *Interpreter) error {
	return vm.dstack.Tuck()
}

// opcodeSize 将栈顶元素的字节长度压入栈，不弹出该元素。
//
// 堆栈转换: [... x1] -> [... x1 len(x1)]
func opcodeSize(op *opcode, data []byte, vm *Interpreter) error {
	so, err := vm.dstack.PeekByteArray(0)
	if err != nil {
		return err
	}
	vm.dstack.PushInt(scriptNum(len(so)))
	return nil
}

// opcodeEqual 按字节比较栈顶两个元素，压入比较结果。
//
// 堆栈转换: [... x1 x2] -> [... bool]
func opcodeEqual(op *opcode, data []byte, vm *Interpreter) error {
	if vm.dstack.Depth() < 2 {
		return scriptError(ErrInvalidStackOperation,
			fmt.Sprintf("%s requires 2 stack items", op.name))
	}
	a, _ := vm.dstack.Pop()
	b, _ := vm.dstack.Pop()
	vm.dstack.PushBool(a.Equal(b))
	return nil
}

// opcodeEqualVerify 是 OP_EQUAL 与 OP_VERIFY 的组合。
//
// 堆栈转换: [... x1 x2] -> [...]
func opcodeEqualVerify(op *opcode, data []byte, vm *Interpreter) error {
	if err := opcodeEqual(op, data, vm); err != nil {
		return err
	}
	return abstractVerify(op, vm, ErrEqualVerify)
}

// unaryNumOp 弹出一个数值操作数并压入 fn 的结果。
func unaryNumOp(vm *Interpreter, fn func(scriptNum) scriptNum) error {
	m, err := vm.dstack.PopInt()
	if err != nil {
		return err
	}
	vm.dstack.PushInt(fn(m))
	return nil
}

// binaryNumOp 弹出两个数值操作数（先弹出的是 b）并压入 fn(a, b) 的结果。
// 两个操作数都存在时才弹出，以保证错误时栈深度检查先于数值解码。
func binaryNumOp(op *opcode, vm *Interpreter, fn func(a, b scriptNum) scriptNum) error {
	if vm.dstack.Depth() < 2 {
		return scriptError(ErrInvalidStackOperation,
			fmt.Sprintf("%s requires 2 stack items", op.name))
	}
	v0, err := vm.dstack.PopInt()
	if err != nil {
		return err
	}
	v1, err := vm.dstack.PopInt()
	if err != nil {
		return err
	}
	vm.dstack.PushInt(fn(v1, v0))
	return nil
}

// boolToNum 将布尔值转换为 0 或 1。
func boolToNum(v bool) scriptNum {
	if v {
		return 1
	}
	return 0
}

// opcode1Add 将栈顶数值加 1。
//
// 堆栈转换: [... x1 x2] -> [... x1 x2+1]
func opcode1Add(op *opcode, data []byte, vm *Interpreter) error {
	return unaryNumOp(vm, func(m scriptNum) scriptNum { return m + 1 })
}

// opcode1Sub 将栈顶数值减 1。
//
// 堆栈转换: [... x1 x2] -> [... x1 x2-1]
func opcode1Sub(op *opcode, data []byte, vm *Interpreter) error {
	return unaryNumOp(vm, func(m scriptNum) scriptNum { return m - 1 })
}

// opcodeNegate 对栈顶数值取负。
//
// 堆栈转换: [... x1 x2] -> [... x1 -x2]
func opcodeNegate(op *opcode, data []byte, vm *Interpreter) error {
	return unaryNumOp(vm, func(m scriptNum) scriptNum { return -m })
}

// opcodeAbs 取栈顶数值的绝对值。
//
// 堆栈转换: [... x1 x2] -> [... x1 abs(x2)]
func opcodeAbs(op *opcode, data []byte, vm *Interpreter) error {
	return unaryNumOp(vm, func(m scriptNum) scriptNum {
		if m < 0 {
			return -m
		}
		return m
	})
}

// opcodeNot 在栈顶数值为 0 时压入 1，否则压入 0。
//
// 堆栈转换 (x2 == 0): [... x1 0] -> [... x1 1]
// 堆栈转换 (x2 != 0): [... x1 x2] -> [... x1 0]
func opcodeNot(op *opcode, data []byte, vm *Interpreter) error {
	return unaryNumOp(vm, func(m scriptNum) scriptNum { return boolToNum(m == 0) })
}

// opcode0NotEqual 在栈顶数值不为 0 时压入 1，否则压入 0。
//
// 堆栈转换 (x2 == 0): [... x1 0] -> [... x1 0]
// 堆栈转换 (x2 != 0): [... x1 x2] -> [... x1 1]
func opcode0NotEqual(op *opcode, data []byte, vm *Interpreter) error {
	return unaryNumOp(vm, func(m scriptNum) scriptNum { return boolToNum(m != 0) })
}

// opcodeAdd 弹出两个数值并压入它们的和。
//
// 堆栈转换: [... x1 x2] -> [... x1+x2]
func opcodeAdd(op *opcode, data []byte, vm *Interpreter) error {
	return binaryNumOp(op, vm, func(a, b scriptNum) scriptNum { return a + b })
}

// opcodeSub 弹出两个数值并压入它们的差。
//
// 堆栈转换: [... x1 x2] -> [... x1-x2]
func opcodeSub(op *opcode, data []byte, vm *Interpreter) error {
	return binaryNumOp(op, vm, func(a, b scriptNum) scriptNum { return a - b })
}

// opcodeBoolAnd 在两个数值都不为 0 时压入 1。
//
// 堆栈转换: [... a b] -> [... a&&b]
func opcodeBoolAnd(op *opcode, data []byte, vm *Interpreter) error {
	return binaryNumOp(op, vm, func(a, b scriptNum) scriptNum {
		return boolToNum(a != 0 && b != 0)
	})
}

// opcodeBoolOr 在任一数值不为 0 时压入 1。
//
// 堆栈转换: [... a b] -> [... a||b]
func opcodeBoolOr(op *opcode, data []byte, vm *Interpreter) error {
	return binaryNumOp(op, vm, func(a, b scriptNum) scriptNum {
		return boolToNum(a != 0 || b != 0)
	})
}

// opcodeNumEqual 在两个数值相等时压入 1。
//
// 堆栈转换: [... x1 x2] -> [... x1==x2]
func opcodeNumEqual(op *opcode, data []byte, vm *Interpreter) error {
	return binaryNumOp(op, vm, func(a, b scriptNum) scriptNum {
		return boolToNum(a == b)
	})
}

// opcodeNumEqualVerify 是 OP_NUMEQUAL 与 OP_VERIFY 的组合。
//
// 堆栈转换: [... x1 x2] -> [...]
func opcodeNumEqualVerify(op *opcode, data []byte, vm *Interpreter) error {
	if err := opcodeNumEqual(op, data, vm); err != nil {
		return err
	}
	return abstractVerify(op, vm, ErrNumEqualVerify)
}

// opcodeNumNotEqual 在两个数值不相等时压入 1。
//
// 堆栈转换: [... x1 x2] -> [... x1!=x2]
func opcodeNumNotEqual(op *opcode, data []byte, vm *Interpreter) error {
	return binaryNumOp(op, vm, func(a, b scriptNum) scriptNum {
		return boolToNum(a != b)
	})
}

// opcodeLessThan 在 x1 < x2 时压入 1。
//
// 堆栈转换: [... x1 x2] -> [... x1<x2]
func opcodeLessThan(op *opcode, data []byte, vm *Interpreter) error {
	return binaryNumOp(op, vm, func(a, b scriptNum) scriptNum {
		return boolToNum(a < b)
	})
}

// opcodeGreaterThan 在 x1 > x2 时压入 1。
//
// 堆栈转换: [... x1 x2] -> [... x1>x2]
func opcodeGreaterThan(op *opcode, data []byte, vm *Interpreter) error {
	return binaryNumOp(op, vm, func(a, b scriptNum) scriptNum {
		return boolToNum(a > b)
	})
}

// opcodeLessThanOrEqual 在 x1 <= x2 时压入 1。
//
// 堆栈转换: [... x1 x2] -> [... x1<=x2]
func opcodeLessThanOrEqual(op *opcode, data []byte, vm *Interpreter) error {
	return binaryNumOp(op, vm, func(a, b scriptNum) scriptNum {
		return boolToNum(a <= b)
	})
}

// opcodeGreaterThanOrEqual 在 x1 >= x2 时压入 1。
//
// 堆栈转换: [... x1 x2] -> [... x1>=x2]
func opcodeGreaterThanOrEqual(op *opcode, data []byte, vm *Interpreter) error {
	return binaryNumOp(op, vm, func(a, b scriptNum) scriptNum {
		return boolToNum(a >= b)
	})
}

// opcodeMin 压入两个数值中较小的一个。
//
// 堆栈转换: [... x1 x2] -> [... min(x1, x2)]
func opcodeMin(op *opcode, data []byte, vm *Interpreter) error {
	return binaryNumOp(op, vm, func(a, b scriptNum) scriptNum {
		if a < b {
			return a
		}
		return b
	})
}

// opcodeMax 压入两个数值中较大的一个。
//
// 堆栈转换: [... x1 x2] -> [... max(x1, x2)]
func opcodeMax(op *opcode, data []byte, vm *Interpreter) error {
	return binaryNumOp(op, vm, func(a, b scriptNum) scriptNum {
		if a > b {
			return a
		}
		return b
	})
}

// opcodeWithin 在 min <= x < max 时压入 1。
//
// 堆栈转换: [... x min max] -> [... bool]
func opcodeWithin(op *opcode, data []byte, vm *Interpreter) error {
	if vm.dstack.Depth() < 3 {
		return scriptError(ErrInvalidStackOperation,
			fmt.Sprintf("%s requires 3 stack items", op.name))
	}
	maxVal, err := vm.dstack.PopInt()
	if err != nil {
		return err
	}
	minVal, err := vm.dstack.PopInt()
	if err != nil {
		return err
	}
	x, err := vm.dstack.PopInt()
	if err != nil {
		return err
	}
	vm.dstack.PushBool(x >= minVal && x < maxVal)
	return nil
}

// calcHash 计算 buf 在给定哈希函数下的摘要。
func calcHash(buf []byte, hasher hash.Hash) []byte {
	hasher.Write(buf)
	return hasher.Sum(nil)
}

// hashTop 将栈顶元素替换为其摘要。
func hashTop(vm *Interpreter, fn func([]byte) []byte) error {
	buf, err := vm.dstack.PopByteArray()
	if err != nil {
		return err
	}
	vm.dstack.PushByteArray(fn(buf))
	return nil
}

// opcodeRipemd160 将栈顶元素替换为其 RIPEMD160 摘要。
//
// 堆栈转换: [... x1] -> [... ripemd160(x1)]
func opcodeRipemd160(op *opcode, data []byte, vm *Interpreter) error {
	return hashTop(vm, func(b []byte) []byte {
		return calcHash(b, ripemd160.New())
	})
}

// opcodeSha1 将栈顶元素替换为其 SHA1 摘要。
//
// 堆栈转换: [... x1] -> [... sha1(x1)]
func opcodeSha1(op *opcode, data []byte, vm *Interpreter) error {
	return hashTop(vm, func(b []byte) []byte {
		sum := sha1.Sum(b)
		return sum[:]
	})
}

// opcodeSha256 将栈顶元素替换为其 SHA256 摘要。
//
// 堆栈转换: [... x1] -> [... sha256(x1)]
func opcodeSha256(op *opcode, data []byte, vm *Interpreter) error {
	return hashTop(vm, func(b []byte) []byte {
		sum := sha256.Sum256(b)
		return sum[:]
	})
}

// opcodeHash160 将栈顶元素替换为 ripemd160(sha256(x1))。
//
// 堆栈转换: [... x1] -> [... ripemd160(sha256(x1))]
func opcodeHash160(op *opcode, data []byte, vm *Interpreter) error {
	return hashTop(vm, hash160)
}

// opcodeHash256 将栈顶元素替换为 sha256(sha256(x1))。
//
// 堆栈转换: [... x1] -> [... sha256(sha256(x1))]
func opcodeHash256(op *opcode, data []byte, vm *Interpreter) error {
	return hashTop(vm, chainhash.DoubleHashB)
}

// hash160 返回 ripemd160(sha256(b))。
func hash160(b []byte) []byte {
	sum := sha256.Sum256(b)
	return calcHash(sum[:], ripemd160.New())
}

// opcodeCodeSeparator 记录当前位置，签名哈希所用的子脚本从该操作码之后开始。
func opcodeCodeSeparator(op *opcode, data []byte, vm *Interpreter) error {
	vm.lastCodeSep = vm.tokenizer.ByteIndex()
	return nil
}

// checkSig 执行 OP_CHECKSIG 的公共部分并返回签名是否有效。
//
// 堆栈转换: [... signature pubkey] -> [...]
func checkSig(op *opcode, vm *Interpreter) (bool, error) {
	if vm.dstack.Depth() < 2 {
		str := fmt.Sprintf("%s requires 2 stack items", op.name)
		return false, scriptError(ErrInvalidStackOperation, str)
	}
	pkBytes, _ := vm.dstack.PeekByteArray(0)
	sigBytes, _ := vm.dstack.PeekByteArray(1)

	subScript := vm.subScript()
	if vm.sigVersion == SigVersionBase {
		subScript, _ = FindAndDelete(subScript, canonicalPushBytes(sigBytes))
	}

	if err := CheckSignatureEncoding(sigBytes, vm.flags); err != nil {
		return false, err
	}
	if err := CheckPubKeyEncoding(pkBytes, vm.flags, vm.sigVersion); err != nil {
		return false, err
	}

	valid := vm.checker.CheckSig(sigBytes, pkBytes, subScript, vm.sigVersion)
	if !valid && len(sigBytes) > 0 && vm.hasFlag(ScriptVerifyNullFail) {
		str := "signature not empty on failed checksig"
		return false, scriptError(ErrSigNullFail, str)
	}

	_ = vm.dstack.DropN(2)
	return valid, nil
}

// opcodeCheckSig 校验签名并压入结果。
//
// 堆栈转换: [... signature pubkey] -> [... bool]
func opcodeCheckSig(op *opcode, data []byte, vm *Interpreter) error {
	valid, err := checkSig(op, vm)
	if err != nil {
		return err
	}
	vm.dstack.PushBool(valid)
	return nil
}

// opcodeCheckSigVerify 是 OP_CHECKSIG 与 OP_VERIFY 的组合。
//
// 堆栈转换: [... signature pubkey] -> [...]
func opcodeCheckSigVerify(op *opcode, data []byte, vm *Interpreter) error {
	valid, err := checkSig(op, vm)
	if err != nil {
		return err
	}
	if !valid {
		return scriptError(ErrCheckSigVerify, "OP_CHECKSIGVERIFY failed")
	}
	return nil
}

// checkMultiSig 执行 OP_CHECKMULTISIG 的公共部分并返回签名集合是否有效。
//
// 栈上的布局为 [... dummy [sig ...] numsigs [pubkey ...] numpubkeys]。
// 签名必须与公钥顺序一致：从最后一个公钥和最后一个签名开始向前扫描，
// 每个签名只能与扫描位置及之前的公钥匹配，剩余公钥少于剩余签名时立即失败。
// 由于历史原因，还会额外消费一个 dummy 元素，ScriptStrictMultiSig 要求它为空。
//
// 堆栈转换: [... dummy [sig ...] numsigs [pubkey ...] numpubkeys] -> [...]
func checkMultiSig(op *opcode, vm *Interpreter) (bool, error) {
	requireMinimal := vm.hasFlag(ScriptVerifyMinimalData)
	peekNum := func(idx int) (int64, error) {
		e, err := vm.dstack.Peek(-idx)
		if err != nil {
			return 0, err
		}
		return e.Value(requireMinimal, maxScriptNumLen)
	}

	i := 1
	if vm.dstack.Depth() < i {
		str := fmt.Sprintf("%s requires at least 1 stack item", op.name)
		return false, scriptError(ErrInvalidStackOperation, str)
	}
	numKeys, err := peekNum(i)
	if err != nil {
		return false, err
	}
	if numKeys < 0 || numKeys > MaxPubKeysPerMultiSig {
		str := fmt.Sprintf("number of pubkeys %d is out of range [0, %d]",
			numKeys, MaxPubKeysPerMultiSig)
		return false, scriptError(ErrPubKeyCount, str)
	}

	// 公钥数量计入操作数限制。
	vm.numOps += int(numKeys)
	if vm.numOps > MaxOpsPerScript {
		str := fmt.Sprintf("exceeded max operation limit of %d",
			MaxOpsPerScript)
		return false, scriptError(ErrOpCount, str)
	}

	i++
	ikey := i
	ikey2 := int(numKeys) + 2 // NULLFAIL 检查时用于跳过公钥
	i += int(numKeys)
	if vm.dstack.Depth() < i {
		str := fmt.Sprintf("%s requires %d stack items for %d pubkeys",
			op.name, i, numKeys)
		return false, scriptError(ErrInvalidStackOperation, str)
	}

	numSigs, err := peekNum(i)
	if err != nil {
		return false, err
	}
	if numSigs < 0 || numSigs > numKeys {
		str := fmt.Sprintf("number of signatures %d is out of range "+
			"[0, %d]", numSigs, numKeys)
		return false, scriptError(ErrSigCount, str)
	}

	i++
	isig := i
	i += int(numSigs)
	if vm.dstack.Depth() < i {
		str := fmt.Sprintf("%s requires %d stack items for %d signatures",
			op.name, i, numSigs)
		return false, scriptError(ErrInvalidStackOperation, str)
	}

	peekBytes := func(idx int) []byte {
		e, _ := vm.dstack.Peek(-idx)
		return e.Bytes()
	}

	subScript := vm.subScript()
	if vm.sigVersion == SigVersionBase {
		for k := 0; k < int(numSigs); k++ {
			sig := peekBytes(isig + k)
			subScript, _ = FindAndDelete(subScript, canonicalPushBytes(sig))
		}
	}

	success := true
	sigsLeft, keysLeft := int(numSigs), int(numKeys)
	for success && sigsLeft > 0 {
		sigBytes := peekBytes(isig)
		pkBytes := peekBytes(ikey)

		if err := CheckSignatureEncoding(sigBytes, vm.flags); err != nil {
			return false, err
		}
		if err := CheckPubKeyEncoding(pkBytes, vm.flags, vm.sigVersion); err != nil {
			return false, err
		}

		if vm.checker.CheckSig(sigBytes, pkBytes, subScript, vm.sigVersion) {
			isig++
			sigsLeft--
		}
		ikey++
		keysLeft--

		// 剩余公钥不足以匹配剩余签名时失败。
		if sigsLeft > keysLeft {
			success = false
		}
	}

	// 清理参数。NULLFAIL 要求失败时所有签名为空，ikey2 用于跳过计数和公钥。
	for ; i > 1; i-- {
		if !success && vm.hasFlag(ScriptVerifyNullFail) && ikey2 == 0 {
			if top, _ := vm.dstack.PeekByteArray(0); len(top) > 0 {
				str := "not all signatures empty on failed checkmultisig"
				return false, scriptError(ErrSigNullFail, str)
			}
		}
		if ikey2 > 0 {
			ikey2--
		}
		_ = vm.dstack.DropN(1)
	}

	// 由于历史遗留问题，还需要弹出一个额外的元素。
	dummy, err := vm.dstack.Pop()
	if err != nil {
		return false, err
	}
	if vm.hasFlag(ScriptStrictMultiSig) && len(dummy.Bytes()) != 0 {
		str := fmt.Sprintf("multisig dummy argument has length %d "+
			"instead of 0", len(dummy.Bytes()))
		return false, scriptError(ErrSigNullDummy, str)
	}

	return success, nil
}

// opcodeCheckMultiSig 校验多重签名并压入结果。
//
// 堆栈转换: [... dummy [sig ...] numsigs [pubkey ...] numpubkeys] -> [... bool]
func opcodeCheckMultiSig(op *opcode, data []byte, vm *Interpreter) error {
	valid, err := checkMultiSig(op, vm)
	if err != nil {
		return err
	}
	vm.dstack.PushBool(valid)
	return nil
}

// opcodeCheckMultiSigVerify 是 OP_CHECKMULTISIG 与 OP_VERIFY 的组合。
//
// 堆栈转换: [... dummy [sig ...] numsigs [pubkey ...] numpubkeys] -> [...]
func opcodeCheckMultiSigVerify(op *opcode, data []byte, vm *Interpreter) error {
	valid, err := checkMultiSig(op, vm)
	if err != nil {
		return err
	}
	if !valid {
		return scriptError(ErrCheckMultiSigVerify,
			"OP_CHECKMULTISIGVERIFY failed")
	}
	return nil
}
