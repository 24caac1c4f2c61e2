// 包含 txscript 包的文档说明，描述脚本引擎的目的和用法。

/*
txscript 包实现了比特币交易脚本语言的验证引擎。

给定花费交易的一个输入、它所花费输出的锁定脚本以及一组验证标志，
VerifyScript 按比特币共识规则逐字节确定地判断该输入是否满足花费条件。

# 脚本概述

比特币交易脚本是用基于堆栈、类似 FORTH 的语言编写的。
脚本从左到右处理，故意不提供循环。操作码分为数据推送、栈操作、算术、条件分支、
哈希以及签名检查几类，完整的列表见 opcode.go。

# 验证流程

一次验证依次执行签名脚本和公钥脚本，二者共享同一个栈。
公钥脚本是 P2SH 模板时，签名脚本推送的最后一项作为赎回脚本再执行一次；
公钥脚本（或赎回脚本）是见证程序时，按 BIP0141 用见证数据验证版本 0 的程序。

签名、锁定时间和序列号的检查通过 Checker 接口完成。
TxSigChecker 针对一笔 wire.MsgTx 实现该接口，并可以使用 SigCache 和 HashCache
在多个输入之间共享已验证的签名和 BIP0143 中间哈希。

	checker := txscript.NewTxSigChecker(tx, idx, amount, flags, sigCache, hashCache)
	err := txscript.VerifyScript(tx.TxIn[idx].SignatureScript, pkScript,
		tx.TxIn[idx].Witness, flags, checker)

# 错误

执行失败时返回的错误类型为 txscript.Error，其 ErrorCode 字段是一个封闭的枚举，
调用方应当比较错误代码，而不是错误信息。IsErrorCode 可以方便地检查特定的错误代码。
字节码格式错误（推送的长度越过脚本末尾）由 ParseError 描述，在执行期间会被映射为 ErrBadOpcode。
*/
package txscript

/**

bench_test.go			包含脚本解析、执行和签名哈希的基准测试。
checker.go				定义 Checker 接口、签名和公钥编码检查以及基于交易的 TxSigChecker。
checker_test.go			签名编码、公钥编码、锁定时间和签名缓存的测试。
consensus.go			包含共识常量、签名版本和验证标志。
doc.go					包的文档说明。
error.go				定义脚本错误代码、Error 以及 ParseError。
fetcher.go				提供按输出点查找被花费输出的 PrevOutputFetcher 实现。
hashcache.go			按交易缓存 BIP0143 签名哈希中间状态。
interpreter.go			单个脚本的解释器：条件栈、操作计数和逐条执行。
interpreter_test.go		使用桩 Checker 测试解释器的分派和限制。
log.go					包的日志记录器。
opcode.go				操作码表以及所有操作码的实现。
reference_test.go		运行 testdata 中比特币核心格式的脚本测试向量。
script.go				脚本字节码的辅助函数：推送检查、FindAndDelete、反汇编和签名操作计数。
scriptbuilder.go		以规范编码构建脚本。
scriptnum.go			脚本数值的编码和解码。
sigcache.go				已验证签名的 LRU 缓存。
sighash.go				传统签名哈希和见证版本 0 签名哈希。
sign.go					生成签名和签名脚本。
stack.go				栈和栈元素。
standard.go				识别标准脚本模板、P2SH 和见证程序，提取地址。
tokenizer.go			将字节码惰性地分解为指令。
vectors.go				解析并运行比特币核心格式的脚本测试向量和短格式脚本。
verify.go				验证入口 VerifyScript 和 VerifyTxInput。
verify_test.go			P2SH、清洁栈和见证程序的验证测试。

*/
