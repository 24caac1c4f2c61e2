// 包含与比特币共识规则相关的常量、验证标志和签名版本。

package txscript

import "strings"

const (
	// LockTimeThreshold 是一个数字，低于该数字锁定时间将被解释为块号。
	// 由于平均每 10 分钟生成一个区块，因此区块的寿命约为 9,512 年。
	LockTimeThreshold = 5e8 // 世界标准时间 1985 年 11 月 5 日星期二 00:53:20

	// MaxStackSize 是执行期间主栈和备用栈的最大组合高度。
	MaxStackSize = 1000

	// MaxScriptSize 是原始脚本允许的最大长度。
	MaxScriptSize = 10000

	// MaxOpsPerScript 是单个脚本允许执行的最大非推送操作数。
	MaxOpsPerScript = 201

	// MaxPubKeysPerMultiSig 是多重签名允许的最大公钥数。
	MaxPubKeysPerMultiSig = 20

	// MaxScriptElementSize 是可推送到栈上的元素的最大字节数。
	MaxScriptElementSize = 520

	// payToWitnessPubKeyHashDataSize 是 P2WPKH 见证程序的长度。
	payToWitnessPubKeyHashDataSize = 20

	// payToWitnessScriptHashDataSize 是 P2WSH 见证程序的长度。
	payToWitnessScriptHashDataSize = 32

	// BaseSegwitWitnessVersion 是定义初始隔离见证验证逻辑的见证版本。
	BaseSegwitWitnessVersion = 0
)

// 交易序列号相关的常量，参见 BIP0068 和 BIP0112。
const (
	// sequenceFinal 是输入的最终序列号，此时锁定时间不生效。
	sequenceFinal uint32 = 0xffffffff

	// SequenceLockTimeDisabled 置位时，序列号不作为相对锁定时间解释。
	SequenceLockTimeDisabled = 1 << 31

	// SequenceLockTimeIsSeconds 置位时，相对锁定时间以 512 秒为单位。
	SequenceLockTimeIsSeconds = 1 << 22

	// SequenceLockTimeMask 提取序列号中的相对锁定时间值。
	SequenceLockTimeMask = 0x0000ffff
)

// SigVersion 标识签名哈希和脚本执行所遵循的规则版本。
type SigVersion int

const (
	// SigVersionBase 是隔离见证之前的传统规则。
	SigVersionBase SigVersion = iota

	// SigVersionWitnessV0 是版本 0 见证程序（BIP0141/BIP0143）的规则。
	SigVersionWitnessV0
)

// String 返回签名版本的名称。
func (v SigVersion) String() string {
	switch v {
	case SigVersionBase:
		return "base"
	case SigVersionWitnessV0:
		return "witness_v0"
	}
	return "unknown"
}

// ScriptFlags 是一个位掩码，定义执行脚本对时将完成的附加操作或测试。
type ScriptFlags uint32

const (
	// ScriptBip16 定义是否已通过 bip16 阈值，因此支付脚本哈希交易将得到充分验证。
	ScriptBip16 ScriptFlags = 1 << iota

	// ScriptStrictMultiSig 定义是否验证 CHECKMULTISIG 使用的额外栈元素长度为零。
	ScriptStrictMultiSig

	// ScriptDiscourageUpgradableNops 定义 NOP1 到 NOP10 是否保留用于将来的软分叉升级。
	// 该标志只用于标准交易检查，不得用于区块。
	ScriptDiscourageUpgradableNops

	// ScriptVerifyCheckLockTimeVerify 定义是否根据锁定时间验证交易输出是否可花费。
	// 这是 BIP0065。
	ScriptVerifyCheckLockTimeVerify

	// ScriptVerifyCheckSequenceVerify 定义是否允许根据输出的使用期限限制脚本的执行路径。
	// 这是 BIP0112。
	ScriptVerifyCheckSequenceVerify

	// ScriptVerifyCleanStack 定义栈在求值后必须仅包含一个元素。
	// 这是 BIP0062 的规则 6，需要同时设置 ScriptBip16 和 ScriptVerifyWitness。
	ScriptVerifyCleanStack

	// ScriptVerifyDERSignatures 定义签名需要符合 DER 格式。
	ScriptVerifyDERSignatures

	// ScriptVerifyLowS 定义签名需要符合DER格式，其S值<= order / 2。
	// 这是BIP0062的规则5。
	ScriptVerifyLowS

	// ScriptVerifyMinimalData 定义必须使用最小的推送操作码和数值编码。
	// 这是 BIP0062 的规则 3 和 4。
	ScriptVerifyMinimalData

	// ScriptVerifyNullFail 定义如果 CHECKSIG 或 CHECKMULTISIG 操作失败，签名必须为空。
	ScriptVerifyNullFail

	// ScriptVerifySigPushOnly 定义签名脚本必须仅包含推送的数据。
	// 这是 BIP0062 的规则 2。
	ScriptVerifySigPushOnly

	// ScriptVerifyStrictEncoding 定义签名和公钥必须遵循严格的编码要求。
	ScriptVerifyStrictEncoding

	// ScriptVerifyWitness 定义是否使用见证程序模板来验证交易输出。
	ScriptVerifyWitness

	// ScriptVerifyDiscourageUpgradeableWitnessProgram 使版本 1-16 的见证程序成为非标准。
	ScriptVerifyDiscourageUpgradeableWitnessProgram

	// ScriptVerifyMinimalIf 要求见证脚本中 OP_IF/OP_NOTIF 的操作数是空向量或 [0x01]。
	ScriptVerifyMinimalIf

	// ScriptVerifyWitnessPubKeyType 要求见证脚本中的公钥使用压缩格式。
	ScriptVerifyWitnessPubKeyType

	// numScriptFlags 是已定义标志的数量。
	numScriptFlags = iota
)

// ScriptNoFlags 表示不启用任何附加规则。
const ScriptNoFlags ScriptFlags = 0

// scriptFlagNames 是标志在测试向量和命令行中使用的名称。
var scriptFlagNames = []struct {
	flag ScriptFlags
	name string
}{
	{ScriptBip16, "P2SH"},
	{ScriptStrictMultiSig, "NULLDUMMY"},
	{ScriptDiscourageUpgradableNops, "DISCOURAGE_UPGRADABLE_NOPS"},
	{ScriptVerifyCheckLockTimeVerify, "CHECKLOCKTIMEVERIFY"},
	{ScriptVerifyCheckSequenceVerify, "CHECKSEQUENCEVERIFY"},
	{ScriptVerifyCleanStack, "CLEANSTACK"},
	{ScriptVerifyDERSignatures, "DERSIG"},
	{ScriptVerifyLowS, "LOW_S"},
	{ScriptVerifyMinimalData, "MINIMALDATA"},
	{ScriptVerifyNullFail, "NULLFAIL"},
	{ScriptVerifySigPushOnly, "SIGPUSHONLY"},
	{ScriptVerifyStrictEncoding, "STRICTENC"},
	{ScriptVerifyWitness, "WITNESS"},
	{ScriptVerifyDiscourageUpgradeableWitnessProgram, "DISCOURAGE_UPGRADABLE_WITNESS_PROGRAM"},
	{ScriptVerifyMinimalIf, "MINIMALIF"},
	{ScriptVerifyWitnessPubKeyType, "WITNESS_PUBKEYTYPE"},
}

// ignoredFlagNames 是测试向量中出现、但本实现不区分的标志名称。
var ignoredFlagNames = map[string]struct{}{
	"NONE":             {},
	"CONST_SCRIPTCODE": {},
	"TAPROOT":          {},
}

// ParseScriptFlags 将逗号分隔的标志名称（例如 "P2SH,STRICTENC"）解析为 ScriptFlags。
func ParseScriptFlags(s string) (ScriptFlags, error) {
	var flags ScriptFlags
	if strings.TrimSpace(s) == "" {
		return flags, nil
	}

next:
	for _, name := range strings.Split(s, ",") {
		name = strings.TrimSpace(name)
		if name == "" {
			continue
		}
		if _, ok := ignoredFlagNames[name]; ok {
			continue
		}
		for _, f := range scriptFlagNames {
			if f.name == name {
				flags |= f.flag
				continue next
			}
		}
		return 0, scriptError(ErrInvalidFlags, "unknown script flag: "+name)
	}
	return flags, nil
}

// String 以逗号分隔的名称形式返回标志集合。
func (f ScriptFlags) String() string {
	if f == 0 {
		return "NONE"
	}
	var names []string
	for _, fn := range scriptFlagNames {
		if f&fn.flag == fn.flag {
			names = append(names, fn.name)
		}
	}
	return strings.Join(names, ",")
}

// HasFlag 返回是否设置了给定的全部标志。
func (f ScriptFlags) HasFlag(flag ScriptFlags) bool {
	return f&flag == flag
}
