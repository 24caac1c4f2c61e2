// 实现脚本验证的入口：依次执行签名脚本、公钥脚本、P2SH 赎回脚本和见证程序。

package txscript

import (
	"bytes"
	"crypto/sha256"
	"fmt"

	"github.com/btcsuite/btcd/wire"
)

// checkFlags 检查标志组合是否有效。
// 清洁栈检查只在 P2SH 求值之后才有意义，见证同样建立在 P2SH 之上。
func checkFlags(flags ScriptFlags) error {
	if flags.HasFlag(ScriptVerifyCleanStack) && !flags.HasFlag(ScriptBip16) {
		return scriptError(ErrInvalidFlags,
			"invalid flags combination: clean stack requires P2SH")
	}
	if flags.HasFlag(ScriptVerifyWitness) && !flags.HasFlag(ScriptBip16) {
		return scriptError(ErrInvalidFlags,
			"invalid flags combination: witness requires P2SH")
	}
	return nil
}

// checkTopTrue 要求栈非空且栈顶为 true。
func checkTopTrue(stack *Stack, what string) error {
	if stack.Depth() == 0 {
		return scriptError(ErrEvalFalse,
			fmt.Sprintf("stack empty at end of %s execution", what))
	}
	v, err := stack.PeekBool(0)
	if err != nil {
		return err
	}
	if !v {
		return scriptError(ErrEvalFalse,
			fmt.Sprintf("false stack entry at end of %s execution", what))
	}
	return nil
}

// VerifyScript 验证签名脚本和见证是否满足公钥脚本的花费条件。
// 成功时返回 nil，失败时返回携带错误代码的 Error。
// checker 负责签名和锁定时间的检查，通常是 NewTxSigChecker 的返回值。
func VerifyScript(sigScript, pkScript []byte, witness wire.TxWitness,
	flags ScriptFlags, checker Checker) error {

	if err := checkFlags(flags); err != nil {
		return err
	}

	if flags.HasFlag(ScriptVerifySigPushOnly) && !IsPushOnlyScript(sigScript) {
		return scriptError(ErrSigPushOnly,
			"signature script is not push only")
	}

	stack := &Stack{}
	vm := NewInterpreter(flags, SigVersionBase, checker)
	if err := vm.Execute(sigScript, stack); err != nil {
		return err
	}

	// 保存签名脚本执行后的栈，P2SH 赎回时从这里继续。
	var savedStack *Stack
	if flags.HasFlag(ScriptBip16) {
		savedStack = stack.Clone()
	}

	if err := vm.Execute(pkScript, stack); err != nil {
		return err
	}
	if err := checkTopTrue(stack, "pkScript"); err != nil {
		return err
	}

	hadWitness := false
	if flags.HasFlag(ScriptVerifyWitness) {
		if version, program, ok := ParseWitnessProgram(pkScript); ok {
			hadWitness = true
			if len(sigScript) != 0 {
				return scriptError(ErrWitnessMalleated,
					"native witness program cannot also have a "+
						"signature script")
			}
			err := verifyWitnessProgram(witness, version, program, flags, checker)
			if err != nil {
				return err
			}
			// 见证程序之后的栈显然不干净，跳过最后的清洁栈检查。
			stack.Truncate(1)
		}
	}

	if flags.HasFlag(ScriptBip16) && IsPayToScriptHash(pkScript) {
		if !IsPushOnlyScript(sigScript) {
			return scriptError(ErrSigPushOnly,
				"pay to script hash is not push only")
		}

		stack = savedStack
		redeemEntry, err := stack.Pop()
		if err != nil {
			return scriptError(ErrInternal,
				"empty stack after signature script for pay to script hash")
		}
		redeemScript := redeemEntry.Bytes()

		if err := vm.Execute(redeemScript, stack); err != nil {
			return err
		}
		if err := checkTopTrue(stack, "redeem script"); err != nil {
			return err
		}

		if flags.HasFlag(ScriptVerifyWitness) {
			if version, program, ok := ParseWitnessProgram(redeemScript); ok {
				hadWitness = true
				if !bytes.Equal(sigScript, canonicalPushBytes(redeemScript)) {
					return scriptError(ErrWitnessMalleatedP2SH,
						"signature script for witness nested p2sh is "+
							"not canonical")
				}
				err := verifyWitnessProgram(witness, version, program,
					flags, checker)
				if err != nil {
					return err
				}
				stack.Truncate(1)
			}
		}
	}

	if flags.HasFlag(ScriptVerifyCleanStack) && stack.Depth() != 1 {
		str := fmt.Sprintf("stack must contain exactly one item (contains %d)",
			stack.Depth())
		return scriptError(ErrCleanStack, str)
	}

	if flags.HasFlag(ScriptVerifyWitness) && !hadWitness && len(witness) != 0 {
		return scriptError(ErrWitnessUnexpected,
			"non-witness inputs cannot have a witness")
	}

	return nil
}

// verifyWitnessProgram 验证见证程序。只有版本 0 有定义，其余版本直接通过，
// 除非设置了 ScriptVerifyDiscourageUpgradeableWitnessProgram。
func verifyWitnessProgram(witness wire.TxWitness, version int, program []byte,
	flags ScriptFlags, checker Checker) error {

	if version != BaseSegwitWitnessVersion {
		if flags.HasFlag(ScriptVerifyDiscourageUpgradeableWitnessProgram) {
			str := fmt.Sprintf("new witness program versions invalid: %d",
				version)
			return scriptError(ErrDiscourageUpgradableWitnessProgram, str)
		}
		return nil
	}

	var witnessScript []byte
	var items [][]byte
	switch len(program) {
	case payToWitnessScriptHashDataSize:
		if len(witness) == 0 {
			return scriptError(ErrWitnessProgramWitnessEmpty,
				"witness program empty passed empty witness")
		}

		// 最后一项是见证脚本，其 SHA256 必须等于程序。
		witnessScript = witness[len(witness)-1]
		items = witness[:len(witness)-1]
		sum := sha256.Sum256(witnessScript)
		if !bytes.Equal(sum[:], program) {
			return scriptError(ErrWitnessProgramMismatch,
				"witness program hash mismatch")
		}

	case payToWitnessPubKeyHashDataSize:
		if len(witness) != 2 {
			str := fmt.Sprintf("should have exactly two items in witness, "+
				"instead have %d", len(witness))
			return scriptError(ErrWitnessProgramMismatch, str)
		}

		// 等价的 P2PKH 脚本。
		var err error
		witnessScript, err = payToPubKeyHashScript(program)
		if err != nil {
			return err
		}
		items = witness

	default:
		str := fmt.Sprintf("length of witness program must either be %v "+
			"or %v bytes, instead is %v bytes",
			payToWitnessPubKeyHashDataSize,
			payToWitnessScriptHashDataSize, len(program))
		return scriptError(ErrWitnessProgramWrongLength, str)
	}

	for i, item := range items {
		if len(item) > MaxScriptElementSize {
			str := fmt.Sprintf("witness item %d size %d exceeds max "+
				"allowed size %d", i, len(item), MaxScriptElementSize)
			return scriptError(ErrPushSize, str)
		}
	}

	stack := NewStack(items)
	vm := NewInterpreter(flags, SigVersionWitnessV0, checker)
	if err := vm.Execute(witnessScript, stack); err != nil {
		return err
	}

	// 见证脚本隐含清洁栈要求，栈深度不为 1 与结果为假同样处理。
	if stack.Depth() != 1 {
		str := fmt.Sprintf("witness stack must contain exactly one item "+
			"(contains %d)", stack.Depth())
		return scriptError(ErrEvalFalse, str)
	}
	return checkTopTrue(stack, "witness script")
}

// VerifyTxInput 验证交易 tx 的第 idx 个输入是否可以花费给定的公钥脚本。
// amount 是被花费输出的金额；sigCache 和 hashCache 可以为 nil。
func VerifyTxInput(tx *wire.MsgTx, idx int, pkScript []byte, amount int64,
	flags ScriptFlags, sigCache *SigCache, hashCache *HashCache) error {

	if idx < 0 || idx >= len(tx.TxIn) {
		str := fmt.Sprintf("transaction input index %d is negative or "+
			">= %d", idx, len(tx.TxIn))
		return scriptError(ErrInvalidIndex, str)
	}

	txIn := tx.TxIn[idx]
	checker := NewTxSigChecker(tx, idx, amount, flags, sigCache, hashCache)
	err := VerifyScript(txIn.SignatureScript, pkScript, txIn.Witness, flags,
		checker)
	if err != nil {
		log.Debugf("[VerifyTxInput] 输入 %v:%d 验证失败:\t%v", tx.TxHash(),
			idx, err)
		return err
	}
	return nil
}
