// 包含测试 error.go 中定义的错误类型的代码。

package txscript

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/require"
)

// TestErrorCodeStringer 测试 ErrorCode 类型的字符串化输出。
func TestErrorCodeStringer(t *testing.T) {
	t.Parallel()

	tests := []struct {
		in   ErrorCode
		want string
	}{
		{ErrInternal, "ErrInternal"},
		{ErrInvalidFlags, "ErrInvalidFlags"},
		{ErrInvalidIndex, "ErrInvalidIndex"},
		{ErrNumberTooBig, "ErrNumberTooBig"},
		{ErrMinimalScriptNum, "ErrMinimalScriptNum"},
		{ErrEvalFalse, "ErrEvalFalse"},
		{ErrOpReturn, "ErrOpReturn"},
		{ErrScriptSize, "ErrScriptSize"},
		{ErrPushSize, "ErrPushSize"},
		{ErrOpCount, "ErrOpCount"},
		{ErrStackSize, "ErrStackSize"},
		{ErrSigCount, "ErrSigCount"},
		{ErrPubKeyCount, "ErrPubKeyCount"},
		{ErrVerify, "ErrVerify"},
		{ErrEqualVerify, "ErrEqualVerify"},
		{ErrCheckMultiSigVerify, "ErrCheckMultiSigVerify"},
		{ErrCheckSigVerify, "ErrCheckSigVerify"},
		{ErrNumEqualVerify, "ErrNumEqualVerify"},
		{ErrBadOpcode, "ErrBadOpcode"},
		{ErrDisabledOpcode, "ErrDisabledOpcode"},
		{ErrInvalidStackOperation, "ErrInvalidStackOperation"},
		{ErrInvalidAltStackOperation, "ErrInvalidAltStackOperation"},
		{ErrUnbalancedConditional, "ErrUnbalancedConditional"},
		{ErrNegativeLockTime, "ErrNegativeLockTime"},
		{ErrUnsatisfiedLockTime, "ErrUnsatisfiedLockTime"},
		{ErrSigHashType, "ErrSigHashType"},
		{ErrSigDer, "ErrSigDer"},
		{ErrMinimalData, "ErrMinimalData"},
		{ErrSigPushOnly, "ErrSigPushOnly"},
		{ErrSigHighS, "ErrSigHighS"},
		{ErrSigNullDummy, "ErrSigNullDummy"},
		{ErrPubKeyType, "ErrPubKeyType"},
		{ErrCleanStack, "ErrCleanStack"},
		{ErrMinimalIf, "ErrMinimalIf"},
		{ErrSigNullFail, "ErrSigNullFail"},
		{ErrDiscourageUpgradableNOPs, "ErrDiscourageUpgradableNOPs"},
		{ErrDiscourageUpgradableWitnessProgram, "ErrDiscourageUpgradableWitnessProgram"},
		{ErrWitnessProgramWrongLength, "ErrWitnessProgramWrongLength"},
		{ErrWitnessProgramWitnessEmpty, "ErrWitnessProgramWitnessEmpty"},
		{ErrWitnessProgramMismatch, "ErrWitnessProgramMismatch"},
		{ErrWitnessMalleated, "ErrWitnessMalleated"},
		{ErrWitnessMalleatedP2SH, "ErrWitnessMalleatedP2SH"},
		{ErrWitnessUnexpected, "ErrWitnessUnexpected"},
		{ErrWitnessPubKeyType, "ErrWitnessPubKeyType"},
		{0xffff, "Unknown ErrorCode (65535)"},
	}

	// 检测未添加字符串测试的其他错误代码。
	if len(tests)-1 != int(numErrorCodes) {
		t.Errorf("It appears an error code was added without adding an " +
			"associated stringer test")
	}

	t.Logf("Running %d tests", len(tests))
	for i, test := range tests {
		result := test.in.String()
		if result != test.want {
			t.Errorf("String #%d\n got: %s want: %s", i, result,
				test.want)
			continue
		}
	}
}

// TestError 测试错误类型的错误输出。
func TestError(t *testing.T) {
	t.Parallel()

	tests := []struct {
		in   Error
		want string
	}{
		{
			Error{Description: "some error"},
			"some error",
		},
		{
			Error{Description: "human-readable error"},
			"human-readable error",
		},
	}

	t.Logf("Running %d tests", len(tests))
	for i, test := range tests {
		result := test.in.Error()
		if result != test.want {
			t.Errorf("Error #%d\n got: %s want: %s", i, result,
				test.want)
			continue
		}
	}
}

// TestResultNames 确保每个错误代码都有测试向量中使用的结果名称，并且可以反向查找。
func TestResultNames(t *testing.T) {
	t.Parallel()

	for code := ErrorCode(0); code < numErrorCodes; code++ {
		name := code.ResultName()
		require.NotEmpty(t, name, code.String())

		codes, ok := ErrorCodesForResult(name)
		require.True(t, ok, name)
		require.Contains(t, codes, code)
	}

	codes, ok := ErrorCodesForResult("OK")
	require.True(t, ok)
	require.Empty(t, codes)

	_, ok = ErrorCodesForResult("NOT_A_RESULT")
	require.False(t, ok)

	require.Equal(t, "EVAL_FALSE", ErrEvalFalse.ResultName())
	require.Equal(t, "WITNESS_MALLEATED_P2SH", ErrWitnessMalleatedP2SH.ResultName())

	// 非最短的数值操作数和非最短的数据推送是两种结果。
	require.Equal(t, "UNKNOWN_ERROR", ErrMinimalScriptNum.ResultName())
	require.Equal(t, "MINIMALDATA", ErrMinimalData.ResultName())
	codes, _ = ErrorCodesForResult("MINIMALDATA")
	require.Equal(t, []ErrorCode{ErrMinimalData}, codes)
}

// TestIsErrorCode 确保包装过的脚本错误仍然可以按错误代码识别。
func TestIsErrorCode(t *testing.T) {
	t.Parallel()

	err := scriptError(ErrOpCount, "too many")
	require.True(t, IsErrorCode(err, ErrOpCount))
	require.False(t, IsErrorCode(err, ErrStackSize))

	wrapped := fmt.Errorf("input 3: %w", err)
	require.True(t, IsErrorCode(wrapped, ErrOpCount))

	code, ok := ExtractErrorCode(wrapped)
	require.True(t, ok)
	require.Equal(t, ErrOpCount, code)

	_, ok = ExtractErrorCode(fmt.Errorf("plain"))
	require.False(t, ok)
	require.False(t, IsErrorCode(nil, ErrInternal))
}

// TestParseErrorMessage 确保解析错误的信息包含偏移和操作码名称。
func TestParseErrorMessage(t *testing.T) {
	t.Parallel()

	_, err := ParseScript([]byte{OP_DATA_2, 0x01})
	require.Error(t, err)

	var perr *ParseError
	require.ErrorAs(t, err, &perr)
	require.Equal(t, 0, perr.Offset)
	require.Equal(t, byte(OP_DATA_2), perr.Opcode)
	require.Contains(t, err.Error(), "OP_DATA_2")
}
