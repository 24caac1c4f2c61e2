// 测试解释器：签名检查分派、多重签名顺序、操作计数、条件分支和锁定时间操作码。

package txscript

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

// stubChecker 是测试用的 Checker。
// 签名去掉末尾哈希类型字节后等于公钥本身时视为有效。
type stubChecker struct {
	lockTimeOK bool
	sequenceOK bool

	subScripts [][]byte
	lockTimes  []int64
	sequences  []int64
}

func (c *stubChecker) CheckSig(sig, pubKey, subScript []byte, sigVersion SigVersion) bool {
	c.subScripts = append(c.subScripts, append([]byte{}, subScript...))
	if len(sig) == 0 {
		return false
	}
	return bytes.Equal(sig[:len(sig)-1], pubKey)
}

func (c *stubChecker) CheckLockTime(lockTime int64) bool {
	c.lockTimes = append(c.lockTimes, lockTime)
	return c.lockTimeOK
}

func (c *stubChecker) CheckSequence(sequence int64) bool {
	c.sequences = append(c.sequences, sequence)
	return c.sequenceOK
}

// execShortForm 使用 stubChecker 在空栈上执行短格式脚本。
func execShortForm(flags ScriptFlags, sigVersion SigVersion, checker Checker,
	script string) (*Stack, error) {

	stack := NewStack(nil)
	vm := NewInterpreter(flags, sigVersion, checker)
	err := vm.Execute(mustParseShortForm(script), stack)
	return stack, err
}

// TestExecuteMultiSigOrder 确保签名必须按公钥的顺序出现。
func TestExecuteMultiSigOrder(t *testing.T) {
	t.Parallel()

	const (
		sigA = "0x02 0x6101"
		sigB = "0x02 0x6201"
		sigC = "0x02 0x6301"
		keys = " 'a' 'b' 'c' 3 CHECKMULTISIG"
	)

	tests := []struct {
		name  string
		sigs  string
		flags ScriptFlags
		want  bool
		err   ErrorCode
		fails bool
	}{
		{name: "first two", sigs: "0 " + sigA + " " + sigB + " 2", want: true},
		{name: "skip middle key", sigs: "0 " + sigA + " " + sigC + " 2", want: true},
		{name: "last two", sigs: "0 " + sigB + " " + sigC + " 2", want: true},
		{name: "no signatures", sigs: "0 0", want: true},
		{name: "out of order", sigs: "0 " + sigB + " " + sigA + " 2", want: false},
		{name: "same key twice", sigs: "0 " + sigC + " " + sigC + " 2", want: false},
		{
			name:  "out of order nullfail",
			sigs:  "0 " + sigB + " " + sigA + " 2",
			flags: ScriptVerifyNullFail,
			err:   ErrSigNullFail,
			fails: true,
		},
		{
			name:  "empty signatures pass nullfail",
			sigs:  "0 0 0 2",
			flags: ScriptVerifyNullFail,
			want:  false,
		},
		{
			name:  "non-null dummy",
			sigs:  "1 " + sigA + " 1",
			flags: ScriptStrictMultiSig,
			err:   ErrSigNullDummy,
			fails: true,
		},
		{name: "non-null dummy allowed", sigs: "1 " + sigA + " 1", want: true},
	}

	for _, test := range tests {
		test := test
		t.Run(test.name, func(t *testing.T) {
			t.Parallel()

			stack, err := execShortForm(test.flags, SigVersionBase,
				&stubChecker{}, test.sigs+keys)
			if test.fails {
				require.True(t, IsErrorCode(err, test.err), "got %v", err)
				return
			}
			require.NoError(t, err)
			require.Equal(t, 1, stack.Depth())
			got, err := stack.PeekBool(0)
			require.NoError(t, err)
			require.Equal(t, test.want, got)
		})
	}
}

// TestExecuteCheckSigSubScript 确保签名检查使用最后一个 OP_CODESEPARATOR 之后的脚本，
// 并且只在基础脚本中删除签名推送。
func TestExecuteCheckSigSubScript(t *testing.T) {
	t.Parallel()

	script := mustParseShortForm("NOP CODESEPARATOR 0x02 0x6101 DROP 'a' CHECKSIG")
	sig := []byte{0x61, 0x01}

	tests := []struct {
		name       string
		sigVersion SigVersion
		want       []byte
	}{
		{
			name:       "base",
			sigVersion: SigVersionBase,
			want:       mustParseShortForm("DROP 'a' CHECKSIG"),
		},
		{
			name:       "witness v0",
			sigVersion: SigVersionWitnessV0,
			want:       mustParseShortForm("0x02 0x6101 DROP 'a' CHECKSIG"),
		},
	}

	for _, test := range tests {
		test := test
		t.Run(test.name, func(t *testing.T) {
			t.Parallel()

			checker := &stubChecker{}
			stack := NewStack([][]byte{sig})
			vm := NewInterpreter(0, test.sigVersion, checker)
			require.NoError(t, vm.Execute(script, stack))
			require.Equal(t, [][]byte{test.want}, checker.subScripts)

			ok, err := stack.PopBool()
			require.NoError(t, err)
			require.True(t, ok)
		})
	}
}

// TestExecuteCheckSigNullFail 确保失败的非空签名在 NULLFAIL 下报错，空签名只压入 false。
func TestExecuteCheckSigNullFail(t *testing.T) {
	t.Parallel()

	_, err := execShortForm(ScriptVerifyNullFail, SigVersionBase, &stubChecker{},
		"0x02 0x6201 'a' CHECKSIG")
	require.True(t, IsErrorCode(err, ErrSigNullFail), "got %v", err)

	stack, err := execShortForm(ScriptVerifyNullFail, SigVersionBase,
		&stubChecker{}, "0 'a' CHECKSIG")
	require.NoError(t, err)
	require.Equal(t, 1, stack.Depth())
	require.Empty(t, stack.Items()[0])

	_, err = execShortForm(0, SigVersionBase, &stubChecker{},
		"0x02 0x6201 'a' CHECKSIGVERIFY")
	require.True(t, IsErrorCode(err, ErrCheckSigVerify), "got %v", err)
}

// TestExecuteOpCount 检查操作计数的边界，包括多重签名的公钥数量。
func TestExecuteOpCount(t *testing.T) {
	t.Parallel()

	nops := func(n int) string {
		return strings.Repeat("NOP ", n)
	}

	tests := []struct {
		name   string
		script string
		err    ErrorCode
		ok     bool
	}{
		{name: "at limit", script: nops(MaxOpsPerScript), ok: true},
		{name: "over limit", script: nops(MaxOpsPerScript + 1), err: ErrOpCount},
		{name: "push ops not counted", script: nops(MaxOpsPerScript) + "1 16 0x01 0x11", ok: true},
		{name: "unexecuted branch counted", script: "0 IF " + nops(MaxOpsPerScript-1) + "ENDIF", err: ErrOpCount},
		{
			// 181 NOP + CHECKMULTISIG + 20 个公钥超过限制。
			name:   "multisig keys counted",
			script: nops(181) + "0 20 CHECKMULTISIG",
			err:    ErrOpCount,
		},
		{
			name:   "multisig keys at limit",
			script: nops(180) + "0 20 CHECKMULTISIG",
			err:    ErrInvalidStackOperation,
		},
	}

	for _, test := range tests {
		test := test
		t.Run(test.name, func(t *testing.T) {
			t.Parallel()

			_, err := execShortForm(0, SigVersionBase, &stubChecker{}, test.script)
			if test.ok {
				require.NoError(t, err)
				return
			}
			require.True(t, IsErrorCode(err, test.err), "got %v", err)
		})
	}
}

// TestExecuteResetsState 确保操作计数和备用栈不会跨 Execute 调用保留。
func TestExecuteResetsState(t *testing.T) {
	t.Parallel()

	vm := NewInterpreter(0, SigVersionBase, &stubChecker{})
	script := mustParseShortForm(strings.Repeat("NOP ", 150))
	require.NoError(t, vm.Execute(script, NewStack(nil)))
	require.NoError(t, vm.Execute(script, NewStack(nil)))

	stack := NewStack(nil)
	require.NoError(t, vm.Execute(mustParseShortForm("1 TOALTSTACK"), stack))
	require.Zero(t, stack.Depth())

	err := vm.Execute(mustParseShortForm("FROMALTSTACK"), stack)
	require.True(t, IsErrorCode(err, ErrInvalidAltStackOperation), "got %v", err)

	// 上一次执行留下的未闭合条件不影响下一次。
	err = vm.Execute(mustParseShortForm("1 IF"), NewStack(nil))
	require.True(t, IsErrorCode(err, ErrUnbalancedConditional), "got %v", err)
	require.NoError(t, vm.Execute(mustParseShortForm("1"), NewStack(nil)))
}

// TestExecuteConditionals 检查未执行分支中的操作码过滤、条件平衡和 MINIMALIF。
func TestExecuteConditionals(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name       string
		script     string
		flags      ScriptFlags
		sigVersion SigVersion
		err        ErrorCode
		ok         bool
	}{
		{name: "disabled in unexecuted branch", script: "0 IF CAT ENDIF 1", err: ErrDisabledOpcode},
		{name: "reserved in unexecuted branch", script: "0 IF RESERVED ENDIF 1", ok: true},
		{name: "verif in unexecuted branch", script: "0 IF VERIF ENDIF 1", err: ErrBadOpcode},
		{name: "invalid in unexecuted branch", script: "0 IF 0xba ENDIF 1", ok: true},
		{name: "invalid executed", script: "1 IF 0xba ENDIF 1", err: ErrBadOpcode},
		{name: "oversized push in unexecuted branch", script: "0 IF PUSHDATA2 0x0902 0x" + strings.Repeat("00", 521) + " ENDIF 1", err: ErrPushSize},
		{name: "malformed push", script: "1 0x4c", err: ErrBadOpcode},
		{name: "missing endif", script: "1 IF 1", err: ErrUnbalancedConditional},
		{name: "lone else", script: "ELSE", err: ErrUnbalancedConditional},
		{name: "lone endif", script: "ENDIF", err: ErrUnbalancedConditional},
		{name: "if on empty stack", script: "IF 1 ENDIF", err: ErrUnbalancedConditional},
		{name: "nested", script: "1 IF 0 IF 2 ELSE 3 ENDIF ENDIF", ok: true},
		{name: "multiple else", script: "0 IF 1 ELSE 2 ELSE 3 ENDIF", ok: true},
		{
			name:       "minimalif base",
			script:     "0x01 0x02 IF 1 ENDIF",
			flags:      ScriptVerifyMinimalIf,
			sigVersion: SigVersionBase,
			ok:         true,
		},
		{
			name:       "minimalif witness",
			script:     "0x01 0x02 IF 1 ENDIF",
			flags:      ScriptVerifyMinimalIf,
			sigVersion: SigVersionWitnessV0,
			err:        ErrMinimalIf,
		},
		{
			name:       "minimalif witness empty",
			script:     "0 NOTIF 1 ENDIF",
			flags:      ScriptVerifyMinimalIf,
			sigVersion: SigVersionWitnessV0,
			ok:         true,
		},
		{
			name:       "minimalif witness negative zero",
			script:     "0x01 0x80 IF 1 ENDIF",
			flags:      ScriptVerifyMinimalIf,
			sigVersion: SigVersionWitnessV0,
			err:        ErrMinimalIf,
		},
	}

	for _, test := range tests {
		test := test
		t.Run(test.name, func(t *testing.T) {
			t.Parallel()

			_, err := execShortForm(test.flags, test.sigVersion, &stubChecker{},
				test.script)
			if test.ok {
				require.NoError(t, err)
				return
			}
			require.True(t, IsErrorCode(err, test.err), "got %v", err)
		})
	}
}

// TestExecuteLockTime 检查 OP_CHECKLOCKTIMEVERIFY 和 OP_CHECKSEQUENCEVERIFY 传给 Checker 的参数。
func TestExecuteLockTime(t *testing.T) {
	t.Parallel()

	flags := ScriptVerifyCheckLockTimeVerify | ScriptVerifyCheckSequenceVerify

	checker := &stubChecker{lockTimeOK: true, sequenceOK: true}
	stack, err := execShortForm(flags, SigVersionBase, checker,
		"500 CHECKLOCKTIMEVERIFY 0x03 0x0a0040 CHECKSEQUENCEVERIFY")
	require.NoError(t, err)
	require.Equal(t, []int64{500}, checker.lockTimes)
	require.Equal(t, []int64{int64(SequenceLockTimeIsSeconds) | 10},
		checker.sequences)
	require.Equal(t, 2, stack.Depth(), "arguments stay on the stack")

	// 设置了禁用位的序列号不调用 Checker。
	checker = &stubChecker{}
	_, err = execShortForm(flags, SigVersionBase, checker,
		"0x05 0x0000008000 CHECKSEQUENCEVERIFY")
	require.NoError(t, err)
	require.Empty(t, checker.sequences)

	_, err = execShortForm(flags, SigVersionBase, &stubChecker{},
		"500 CHECKLOCKTIMEVERIFY")
	require.True(t, IsErrorCode(err, ErrUnsatisfiedLockTime), "got %v", err)

	_, err = execShortForm(flags, SigVersionBase, &stubChecker{},
		"10 CHECKSEQUENCEVERIFY")
	require.True(t, IsErrorCode(err, ErrUnsatisfiedLockTime), "got %v", err)

	_, err = execShortForm(flags, SigVersionBase, &stubChecker{lockTimeOK: true},
		"-1 CHECKLOCKTIMEVERIFY")
	require.True(t, IsErrorCode(err, ErrNegativeLockTime), "got %v", err)

	_, err = execShortForm(flags, SigVersionBase, &stubChecker{lockTimeOK: true},
		"0x06 0x000000000001 CHECKLOCKTIMEVERIFY")
	require.True(t, IsErrorCode(err, ErrNumberTooBig), "got %v", err)

	_, err = execShortForm(flags, SigVersionBase, &stubChecker{lockTimeOK: true},
		"CHECKLOCKTIMEVERIFY")
	require.True(t, IsErrorCode(err, ErrInvalidStackOperation), "got %v", err)

	// 未启用标志时是 NOP。
	checker = &stubChecker{}
	_, err = execShortForm(0, SigVersionBase, checker,
		"CHECKLOCKTIMEVERIFY CHECKSEQUENCEVERIFY")
	require.NoError(t, err)
	require.Empty(t, checker.lockTimes)

	_, err = execShortForm(ScriptDiscourageUpgradableNops, SigVersionBase,
		checker, "CHECKSEQUENCEVERIFY")
	require.True(t, IsErrorCode(err, ErrDiscourageUpgradableNOPs), "got %v", err)
}

// TestExecuteScriptSize 确保超过最大长度的脚本在执行前被拒绝。
func TestExecuteScriptSize(t *testing.T) {
	t.Parallel()

	checker := &stubChecker{}
	vm := NewInterpreter(0, SigVersionBase, checker)

	script := bytes.Repeat([]byte{OP_NOP}, MaxScriptSize+1)
	err := vm.Execute(script, NewStack(nil))
	require.True(t, IsErrorCode(err, ErrScriptSize), "got %v", err)

	script = append(bytes.Repeat([]byte{OP_1}, MaxScriptSize-1), OP_DROP)
	err = vm.Execute(script, NewStack(nil))
	require.True(t, IsErrorCode(err, ErrStackSize), "got %v", err)
}
