// 实现执行单个脚本的解释器：逐条解析指令、维护条件栈并调度操作码。

package txscript

import (
	"fmt"
	"strings"
)

// Interpreter 是单个脚本的执行上下文。
// 它不在多次 Execute 之间保留任何状态，P2SH 赎回和见证脚本都使用新的解释器执行。
type Interpreter struct {
	flags      ScriptFlags
	sigVersion SigVersion
	checker    Checker

	script      []byte
	tokenizer   ScriptTokenizer
	dstack      *Stack
	astack      *Stack
	condStack   []bool
	falseCount  int // condStack 中 false 的数量
	numOps      int
	lastCodeSep int
}

// NewInterpreter 返回使用给定标志、签名版本和签名检查器的解释器。
func NewInterpreter(flags ScriptFlags, sigVersion SigVersion, checker Checker) *Interpreter {
	return &Interpreter{
		flags:      flags,
		sigVersion: sigVersion,
		checker:    checker,
	}
}

// hasFlag 返回脚本引擎实例是否设置了传递的标志。
func (vm *Interpreter) hasFlag(flag ScriptFlags) bool {
	return vm.flags&flag == flag
}

// isBranchExecuting 返回当前条件分支是否正在执行。
// 只有所有外层条件都为 true 时分支才会执行。
func (vm *Interpreter) isBranchExecuting() bool {
	return vm.falseCount == 0
}

// pushCond 打开一个新的条件块。
func (vm *Interpreter) pushCond(v bool) {
	if !v {
		vm.falseCount++
	}
	vm.condStack = append(vm.condStack, v)
}

// toggleCond 翻转最内层条件块的值，调用方保证条件栈不为空。
func (vm *Interpreter) toggleCond() {
	last := len(vm.condStack) - 1
	if vm.condStack[last] {
		vm.falseCount++
	} else {
		vm.falseCount--
	}
	vm.condStack[last] = !vm.condStack[last]
}

// popCond 关闭最内层条件块，调用方保证条件栈不为空。
func (vm *Interpreter) popCond() {
	last := len(vm.condStack) - 1
	if !vm.condStack[last] {
		vm.falseCount--
	}
	vm.condStack = vm.condStack[:last]
}

// isOpcodeConditional 返回操作码是否为条件操作码，条件操作码即使在未执行的分支中也会被调度。
func isOpcodeConditional(op byte) bool {
	return op >= OP_IF && op <= OP_ENDIF
}

// subScript 返回自最后一个 OP_CODESEPARATOR 以来的脚本。
func (vm *Interpreter) subScript() []byte {
	return vm.script[vm.lastCodeSep:]
}

// Execute 在给定的栈上执行脚本，栈在原处被修改。
// 备用栈、条件栈和操作计数只在本次执行内有效。
func (vm *Interpreter) Execute(script []byte, stack *Stack) error {
	if len(script) > MaxScriptSize {
		str := fmt.Sprintf("script size %d is larger than max allowed "+
			"size %d", len(script), MaxScriptSize)
		return scriptError(ErrScriptSize, str)
	}

	stack.verifyMinimalData = vm.hasFlag(ScriptVerifyMinimalData)
	vm.script = script
	vm.tokenizer = MakeScriptTokenizer(script)
	vm.dstack = stack
	vm.astack = &Stack{verifyMinimalData: stack.verifyMinimalData}
	vm.condStack = vm.condStack[:0]
	vm.falseCount = 0
	vm.numOps = 0
	vm.lastCodeSep = 0

	for !vm.tokenizer.Done() {
		if err := vm.step(); err != nil {
			log.Tracef("%v", newLogClosure(func() string {
				return fmt.Sprintf("script failed at opcode %d: %v",
					vm.tokenizer.OpcodePosition(), err)
			}))
			return err
		}
		log.Tracef("%v", newLogClosure(func() string {
			var dstr, astr string

			// 跟踪时记录非空堆栈。
			if vm.dstack.Depth() != 0 {
				dstr = "Stack:\n" + vm.dstack.String()
			}
			if vm.astack.Depth() != 0 {
				astr = "AltStack:\n" + vm.astack.String()
			}

			return dstr + astr
		}))
	}

	if len(vm.condStack) != 0 {
		return scriptError(ErrUnbalancedConditional,
			"end of script reached in conditional execution")
	}
	return nil
}

// step 解析并执行下一条指令。
// 过滤的顺序决定了格式错误的脚本返回哪个错误代码：
// 解析失败、推送长度、操作计数、禁用操作码，然后才考虑条件分支。
func (vm *Interpreter) step() error {
	if !vm.tokenizer.Next() {
		err := vm.tokenizer.Err()
		if err == nil {
			return scriptError(ErrInternal, "attempt to step past end of script")
		}
		return scriptError(ErrBadOpcode, err.Error())
	}

	op := vm.tokenizer.op
	data := vm.tokenizer.Data()

	log.Tracef("%v", newLogClosure(func() string {
		var buf strings.Builder
		disasmOpcode(&buf, op, data, false)
		return fmt.Sprintf("stepping %04d: %s", vm.tokenizer.OpcodePosition(),
			buf.String())
	}))

	if len(data) > MaxScriptElementSize {
		str := fmt.Sprintf("element size %d exceeds max allowed size %d",
			len(data), MaxScriptElementSize)
		return scriptError(ErrPushSize, str)
	}

	// 小整数之后的操作码计入操作数限制。
	if op.value > OP_16 {
		vm.numOps++
		if vm.numOps > MaxOpsPerScript {
			str := fmt.Sprintf("exceeded max operation limit of %d",
				MaxOpsPerScript)
			return scriptError(ErrOpCount, str)
		}
	}

	// 禁用的操作码即使出现在未执行的分支中也会导致失败。
	if op.class == classDisabled {
		str := fmt.Sprintf("attempt to execute disabled opcode %s", op.name)
		return scriptError(ErrDisabledOpcode, str)
	}

	exec := vm.isBranchExecuting()
	switch {
	case exec && op.value <= OP_PUSHDATA4:
		if vm.hasFlag(ScriptVerifyMinimalData) {
			if err := checkMinimalDataPush(op, data); err != nil {
				return err
			}
		}
		if err := op.opfunc(op, data, vm); err != nil {
			return err
		}

	case exec || isOpcodeConditional(op.value):
		if err := op.opfunc(op, data, vm); err != nil {
			return err
		}
	}

	// 主栈和备用栈的元素总数不得超过允许的最大值。
	combinedStackSize := vm.dstack.Depth() + vm.astack.Depth()
	if combinedStackSize > MaxStackSize {
		str := fmt.Sprintf("combined stack size %d > max allowed %d",
			combinedStackSize, MaxStackSize)
		return scriptError(ErrStackSize, str)
	}
	return nil
}
