// 定义脚本执行失败时返回的错误类型和错误代码。

package txscript

import (
	"errors"
	"fmt"
)

// ErrorCode 标识一种脚本错误。
// 它是脚本失败原因的唯一依据，调用方应当比较错误代码，而不是错误信息。
type ErrorCode int

// 这些常量用于标识特定的 Error。
const (
	// ErrInternal 在内部一致性检查失败时返回。正常情况下永远不会出现。
	ErrInternal ErrorCode = iota

	// ErrInvalidFlags 在传入的标志组合无效时返回。
	ErrInvalidFlags

	// ErrInvalidIndex 在输入索引超出交易输入范围时返回。
	ErrInvalidIndex

	// ErrNumberTooBig 在数值参数超过允许的字节长度时返回。
	ErrNumberTooBig

	// ErrMinimalScriptNum 在要求最短编码时数值操作数不是最短编码时返回。
	// 与数据推送的 ErrMinimalData 不同，它在测试向量中对应 UNKNOWN_ERROR。
	ErrMinimalScriptNum

	// ErrEvalFalse 在脚本执行完成后栈顶为 false 或栈为空时返回。
	ErrEvalFalse

	// ErrOpReturn 在执行 OP_RETURN 时返回。
	ErrOpReturn

	// ErrScriptSize 在脚本长度超过 MaxScriptSize 时返回。
	ErrScriptSize

	// ErrPushSize 在推送的数据超过 MaxScriptElementSize 时返回。
	ErrPushSize

	// ErrOpCount 在非推送操作码数量超过 MaxOpsPerScript 时返回。
	ErrOpCount

	// ErrStackSize 在主栈与备用栈元素总数超过 MaxStackSize 时返回。
	ErrStackSize

	// ErrSigCount 在多重签名的签名数量为负数或超过公钥数量时返回。
	ErrSigCount

	// ErrPubKeyCount 在多重签名的公钥数量为负数或超过 MaxPubKeysPerMultiSig 时返回。
	ErrPubKeyCount

	// ErrVerify 在 OP_VERIFY 遇到 false 时返回。
	ErrVerify

	// ErrEqualVerify 在 OP_EQUALVERIFY 比较的两个值不相等时返回。
	ErrEqualVerify

	// ErrCheckMultiSigVerify 在 OP_CHECKMULTISIGVERIFY 校验失败时返回。
	ErrCheckMultiSigVerify

	// ErrCheckSigVerify 在 OP_CHECKSIGVERIFY 校验失败时返回。
	ErrCheckSigVerify

	// ErrNumEqualVerify 在 OP_NUMEQUALVERIFY 比较的两个数值不相等时返回。
	ErrNumEqualVerify

	// ErrBadOpcode 在遇到无效、保留或格式错误的操作码时返回。
	ErrBadOpcode

	// ErrDisabledOpcode 在脚本包含被禁用的操作码时返回，无论是否处于执行分支。
	ErrDisabledOpcode

	// ErrInvalidStackOperation 在主栈元素不足时返回。
	ErrInvalidStackOperation

	// ErrInvalidAltStackOperation 在备用栈元素不足时返回。
	ErrInvalidAltStackOperation

	// ErrUnbalancedConditional 在 IF/ELSE/ENDIF 不匹配时返回。
	ErrUnbalancedConditional

	// ErrNegativeLockTime 在 CLTV/CSV 读取到负数时返回。
	ErrNegativeLockTime

	// ErrUnsatisfiedLockTime 在交易不满足 CLTV/CSV 约束时返回。
	ErrUnsatisfiedLockTime

	// ErrSigHashType 在签名的哈希类型未定义时返回。
	ErrSigHashType

	// ErrSigDer 在签名不是严格 DER 编码时返回。
	ErrSigDer

	// ErrMinimalData 在数据推送不是最短编码时返回。
	ErrMinimalData

	// ErrSigPushOnly 在签名脚本包含非推送操作码时返回。
	ErrSigPushOnly

	// ErrSigHighS 在签名的 S 值大于曲线阶的一半时返回。
	ErrSigHighS

	// ErrSigNullDummy 在 CHECKMULTISIG 的额外栈元素不为空时返回。
	ErrSigNullDummy

	// ErrPubKeyType 在公钥既不是压缩格式也不是非压缩格式时返回。
	ErrPubKeyType

	// ErrCleanStack 在执行完成后栈上不止一个元素时返回。
	ErrCleanStack

	// ErrMinimalIf 在见证脚本中 IF/NOTIF 的参数不是空或 0x01 时返回。
	ErrMinimalIf

	// ErrSigNullFail 在签名校验失败但签名不为空时返回。
	ErrSigNullFail

	// ErrDiscourageUpgradableNOPs 在执行保留的 NOP 操作码时返回。
	ErrDiscourageUpgradableNOPs

	// ErrDiscourageUpgradableWitnessProgram 在遇到未知版本的见证程序时返回。
	ErrDiscourageUpgradableWitnessProgram

	// ErrWitnessProgramWrongLength 在版本 0 见证程序长度既不是 20 也不是 32 时返回。
	ErrWitnessProgramWrongLength

	// ErrWitnessProgramWitnessEmpty 在花费见证程序时见证为空时返回。
	ErrWitnessProgramWitnessEmpty

	// ErrWitnessProgramMismatch 在见证脚本哈希与程序不一致，或 P2WPKH 见证项数量不为 2 时返回。
	ErrWitnessProgramMismatch

	// ErrWitnessMalleated 在原生见证程序的签名脚本不为空时返回。
	ErrWitnessMalleated

	// ErrWitnessMalleatedP2SH 在嵌套见证程序的签名脚本不是单一赎回脚本推送时返回。
	ErrWitnessMalleatedP2SH

	// ErrWitnessUnexpected 在非见证输入携带见证数据时返回。
	ErrWitnessUnexpected

	// ErrWitnessPubKeyType 在见证脚本中使用非压缩公钥时返回。
	ErrWitnessPubKeyType

	// numErrorCodes 是错误代码的最大值，用于测试。
	numErrorCodes
)

// errorCodeStrings 将错误代码映射为可读名称。
var errorCodeStrings = map[ErrorCode]string{
	ErrInternal:                           "ErrInternal",
	ErrInvalidFlags:                       "ErrInvalidFlags",
	ErrInvalidIndex:                       "ErrInvalidIndex",
	ErrNumberTooBig:                       "ErrNumberTooBig",
	ErrMinimalScriptNum:                   "ErrMinimalScriptNum",
	ErrEvalFalse:                          "ErrEvalFalse",
	ErrOpReturn:                           "ErrOpReturn",
	ErrScriptSize:                         "ErrScriptSize",
	ErrPushSize:                           "ErrPushSize",
	ErrOpCount:                            "ErrOpCount",
	ErrStackSize:                          "ErrStackSize",
	ErrSigCount:                           "ErrSigCount",
	ErrPubKeyCount:                        "ErrPubKeyCount",
	ErrVerify:                             "ErrVerify",
	ErrEqualVerify:                        "ErrEqualVerify",
	ErrCheckMultiSigVerify:                "ErrCheckMultiSigVerify",
	ErrCheckSigVerify:                     "ErrCheckSigVerify",
	ErrNumEqualVerify:                     "ErrNumEqualVerify",
	ErrBadOpcode:                          "ErrBadOpcode",
	ErrDisabledOpcode:                     "ErrDisabledOpcode",
	ErrInvalidStackOperation:              "ErrInvalidStackOperation",
	ErrInvalidAltStackOperation:           "ErrInvalidAltStackOperation",
	ErrUnbalancedConditional:              "ErrUnbalancedConditional",
	ErrNegativeLockTime:                   "ErrNegativeLockTime",
	ErrUnsatisfiedLockTime:                "ErrUnsatisfiedLockTime",
	ErrSigHashType:                        "ErrSigHashType",
	ErrSigDer:                             "ErrSigDer",
	ErrMinimalData:                        "ErrMinimalData",
	ErrSigPushOnly:                        "ErrSigPushOnly",
	ErrSigHighS:                           "ErrSigHighS",
	ErrSigNullDummy:                       "ErrSigNullDummy",
	ErrPubKeyType:                         "ErrPubKeyType",
	ErrCleanStack:                         "ErrCleanStack",
	ErrMinimalIf:                          "ErrMinimalIf",
	ErrSigNullFail:                        "ErrSigNullFail",
	ErrDiscourageUpgradableNOPs:           "ErrDiscourageUpgradableNOPs",
	ErrDiscourageUpgradableWitnessProgram: "ErrDiscourageUpgradableWitnessProgram",
	ErrWitnessProgramWrongLength:          "ErrWitnessProgramWrongLength",
	ErrWitnessProgramWitnessEmpty:         "ErrWitnessProgramWitnessEmpty",
	ErrWitnessProgramMismatch:             "ErrWitnessProgramMismatch",
	ErrWitnessMalleated:                   "ErrWitnessMalleated",
	ErrWitnessMalleatedP2SH:               "ErrWitnessMalleatedP2SH",
	ErrWitnessUnexpected:                  "ErrWitnessUnexpected",
	ErrWitnessPubKeyType:                  "ErrWitnessPubKeyType",
}

// String 将 ErrorCode 以人类可读的名称返回。
func (e ErrorCode) String() string {
	if s := errorCodeStrings[e]; s != "" {
		return s
	}
	return fmt.Sprintf("Unknown ErrorCode (%d)", int(e))
}

// resultNames 是脚本测试向量中使用的结果名称。
var resultNames = map[ErrorCode]string{
	ErrInternal:                           "UNKNOWN_ERROR",
	ErrInvalidFlags:                       "UNKNOWN_ERROR",
	ErrInvalidIndex:                       "UNKNOWN_ERROR",
	ErrNumberTooBig:                       "UNKNOWN_ERROR",
	ErrMinimalScriptNum:                   "UNKNOWN_ERROR",
	ErrEvalFalse:                          "EVAL_FALSE",
	ErrOpReturn:                           "OP_RETURN",
	ErrScriptSize:                         "SCRIPT_SIZE",
	ErrPushSize:                           "PUSH_SIZE",
	ErrOpCount:                            "OP_COUNT",
	ErrStackSize:                          "STACK_SIZE",
	ErrSigCount:                           "SIG_COUNT",
	ErrPubKeyCount:                        "PUBKEY_COUNT",
	ErrVerify:                             "VERIFY",
	ErrEqualVerify:                        "EQUALVERIFY",
	ErrCheckMultiSigVerify:                "CHECKMULTISIGVERIFY",
	ErrCheckSigVerify:                     "CHECKSIGVERIFY",
	ErrNumEqualVerify:                     "NUMEQUALVERIFY",
	ErrBadOpcode:                          "BAD_OPCODE",
	ErrDisabledOpcode:                     "DISABLED_OPCODE",
	ErrInvalidStackOperation:              "INVALID_STACK_OPERATION",
	ErrInvalidAltStackOperation:           "INVALID_ALTSTACK_OPERATION",
	ErrUnbalancedConditional:              "UNBALANCED_CONDITIONAL",
	ErrNegativeLockTime:                   "NEGATIVE_LOCKTIME",
	ErrUnsatisfiedLockTime:                "UNSATISFIED_LOCKTIME",
	ErrSigHashType:                        "SIG_HASHTYPE",
	ErrSigDer:                             "SIG_DER",
	ErrMinimalData:                        "MINIMALDATA",
	ErrSigPushOnly:                        "SIG_PUSHONLY",
	ErrSigHighS:                           "SIG_HIGH_S",
	ErrSigNullDummy:                       "SIG_NULLDUMMY",
	ErrPubKeyType:                         "PUBKEYTYPE",
	ErrCleanStack:                         "CLEANSTACK",
	ErrMinimalIf:                          "MINIMALIF",
	ErrSigNullFail:                        "NULLFAIL",
	ErrDiscourageUpgradableNOPs:           "DISCOURAGE_UPGRADABLE_NOPS",
	ErrDiscourageUpgradableWitnessProgram: "DISCOURAGE_UPGRADABLE_WITNESS_PROGRAM",
	ErrWitnessProgramWrongLength:          "WITNESS_PROGRAM_WRONG_LENGTH",
	ErrWitnessProgramWitnessEmpty:         "WITNESS_PROGRAM_WITNESS_EMPTY",
	ErrWitnessProgramMismatch:             "WITNESS_PROGRAM_MISMATCH",
	ErrWitnessMalleated:                   "WITNESS_MALLEATED",
	ErrWitnessMalleatedP2SH:               "WITNESS_MALLEATED_P2SH",
	ErrWitnessUnexpected:                  "WITNESS_UNEXPECTED",
	ErrWitnessPubKeyType:                  "WITNESS_PUBKEYTYPE",
}

// ResultName 返回错误代码在脚本测试向量中对应的结果名称，例如 "EVAL_FALSE"。
func (e ErrorCode) ResultName() string {
	if s, ok := resultNames[e]; ok {
		return s
	}
	return "UNKNOWN_ERROR"
}

// ErrorCodesForResult 返回与测试向量结果名称对应的所有错误代码。
// "OK" 返回空切片和 true。
func ErrorCodesForResult(name string) ([]ErrorCode, bool) {
	if name == "OK" {
		return nil, true
	}
	var codes []ErrorCode
	for code, s := range resultNames {
		if s == name {
			codes = append(codes, code)
		}
	}
	return codes, len(codes) > 0
}

// Error 标识脚本相关的错误。
// ErrorCode 是判断失败原因的依据，Description 仅供人阅读。
type Error struct {
	ErrorCode   ErrorCode
	Description string
}

// Error 满足 error 接口并打印人类可读的错误。
func (e Error) Error() string {
	return e.Description
}

// scriptError 使用给定的错误代码和描述创建一个 Error。
func scriptError(c ErrorCode, desc string) Error {
	return Error{ErrorCode: c, Description: desc}
}

// IsErrorCode 判断错误链中是否包含给定错误代码的 Error。
func IsErrorCode(err error, c ErrorCode) bool {
	var serr Error
	return errors.As(err, &serr) && serr.ErrorCode == c
}

// ExtractErrorCode 从错误链中取出脚本错误代码。
func ExtractErrorCode(err error) (ErrorCode, bool) {
	var serr Error
	if errors.As(err, &serr) {
		return serr.ErrorCode, true
	}
	return 0, false
}

// ParseError 描述字节码结构错误，即数据推送的长度前缀越过了脚本末尾。
type ParseError struct {
	Offset      int  // 出错指令的字节偏移
	Opcode      byte // 出错指令的操作码
	Description string
}

// Error 满足 error 接口。
func (e *ParseError) Error() string {
	return fmt.Sprintf("malformed script at offset %d (%s): %s", e.Offset,
		opcodeArray[e.Opcode].name, e.Description)
}
