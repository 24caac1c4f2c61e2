// 实现签名、公钥编码检查以及针对交易的签名和锁定时间检查器。

package txscript

import (
	"fmt"
	"math/big"

	"github.com/btcsuite/btcd/btcec/v2"
	"github.com/btcsuite/btcd/btcec/v2/ecdsa"
	"github.com/btcsuite/btcd/chaincfg/chainhash"
	"github.com/btcsuite/btcd/wire"
	"github.com/decred/dcrd/dcrec/secp256k1/v4"
)

// halfOrder 用于判断签名的 S 值是否过高。
var halfOrder = new(big.Int).Rsh(btcec.S256().N, 1)

// Checker 是解释器与被花费交易之间的接口。
// 签名不匹配时 CheckSig 返回 false 而不是错误，是否升级为错误由解释器根据 NULLFAIL 决定。
type Checker interface {
	// CheckSig 校验 sig（末尾带哈希类型字节）是否为 pubKey 对 subScript 的有效签名。
	CheckSig(sig, pubKey, subScript []byte, sigVersion SigVersion) bool

	// CheckLockTime 校验交易的锁定时间是否满足 OP_CHECKLOCKTIMEVERIFY 的要求。
	CheckLockTime(lockTime int64) bool

	// CheckSequence 校验输入的序列号是否满足 OP_CHECKSEQUENCEVERIFY 的要求。
	CheckSequence(sequence int64) bool
}

// CheckSignatureEncoding 在启用了相应标志时检查签名的编码。
// DERSIG、LOW_S、STRICTENC 任一启用时要求严格 DER 编码；LOW_S 要求 S 不超过半阶；
// STRICTENC 要求哈希类型已定义。空签名总是允许的，以便在不提供签名时可以紧凑地让 CHECKSIG 失败。
func CheckSignatureEncoding(sig []byte, flags ScriptFlags) error {
	if len(sig) == 0 {
		return nil
	}

	if flags&(ScriptVerifyDERSignatures|ScriptVerifyLowS|ScriptVerifyStrictEncoding) != 0 {
		if err := checkStrictDER(sig); err != nil {
			return err
		}
	}

	if flags.HasFlag(ScriptVerifyLowS) {
		if err := checkLowS(sig); err != nil {
			return err
		}
	}

	if flags.HasFlag(ScriptVerifyStrictEncoding) {
		hashType := SigHashType(sig[len(sig)-1])
		if !hashType.isDefined() {
			str := fmt.Sprintf("invalid hash type 0x%x", uint32(hashType))
			return scriptError(ErrSigHashType, str)
		}
	}

	return nil
}

// checkStrictDER 检查带哈希类型字节的签名是否为严格的 DER 编码（BIP0066）。
//
// DER 编码的签名格式如下：
//
// 0x30 <总长度> 0x02 <R 长度> <R> 0x02 <S 长度> <S> <哈希类型>
//   - 0x30 是 ASN.1 序列标识，0x02 是 ASN.1 整数标识
//   - 总长度不包括前两个字节和末尾的哈希类型字节
//   - R 和 S 是大端编码的非负整数，必须使用最少的字节，
//     只有下一个字节的最高位被置位时才允许前导零字节
func checkStrictDER(sig []byte) error {
	const (
		asn1SequenceID = 0x30
		asn1IntegerID  = 0x02

		// minSigLen 是 R 和 S 各 1 字节时加上哈希类型的长度。
		minSigLen = 9

		// maxSigLen 是 R 和 S 各 33 字节时加上哈希类型的长度。
		maxSigLen = 73
	)

	sigLen := len(sig)
	if sigLen < minSigLen || sigLen > maxSigLen {
		str := fmt.Sprintf("malformed signature: length %d not in [%d, %d]",
			sigLen, minSigLen, maxSigLen)
		return scriptError(ErrSigDer, str)
	}

	if sig[0] != asn1SequenceID {
		str := fmt.Sprintf("malformed signature: format has wrong type: %#x",
			sig[0])
		return scriptError(ErrSigDer, str)
	}

	if int(sig[1]) != sigLen-3 {
		str := fmt.Sprintf("malformed signature: bad length: %d != %d",
			sig[1], sigLen-3)
		return scriptError(ErrSigDer, str)
	}

	rLen := int(sig[3])
	if 5+rLen >= sigLen {
		return scriptError(ErrSigDer, "malformed signature: S length missing")
	}

	sLen := int(sig[5+rLen])
	if rLen+sLen+7 != sigLen {
		return scriptError(ErrSigDer, "malformed signature: invalid S length")
	}

	if sig[2] != asn1IntegerID {
		str := fmt.Sprintf("malformed signature: R integer marker: %#x", sig[2])
		return scriptError(ErrSigDer, str)
	}
	if rLen == 0 {
		return scriptError(ErrSigDer, "malformed signature: R length is zero")
	}
	if sig[4]&0x80 != 0 {
		return scriptError(ErrSigDer, "malformed signature: R is negative")
	}
	if rLen > 1 && sig[4] == 0x00 && sig[5]&0x80 == 0 {
		return scriptError(ErrSigDer,
			"malformed signature: R value has too much padding")
	}

	sOffset := rLen + 6
	if sig[rLen+4] != asn1IntegerID {
		str := fmt.Sprintf("malformed signature: S integer marker: %#x",
			sig[rLen+4])
		return scriptError(ErrSigDer, str)
	}
	if sLen == 0 {
		return scriptError(ErrSigDer, "malformed signature: S length is zero")
	}
	if sig[sOffset]&0x80 != 0 {
		return scriptError(ErrSigDer, "malformed signature: S is negative")
	}
	if sLen > 1 && sig[sOffset] == 0x00 && sig[sOffset+1]&0x80 == 0 {
		return scriptError(ErrSigDer,
			"malformed signature: S value has too much padding")
	}

	return nil
}

// checkLowS 检查签名的 S 值不超过曲线阶的一半。
// 否则用 N-S 替换 S 仍是有效签名，会改变交易哈希，造成延展性。
func checkLowS(sig []byte) error {
	// 只有在严格 DER 检查通过后才会调用，因此偏移都是有效的。
	rLen := int(sig[3])
	sLen := int(sig[5+rLen])
	sOffset := rLen + 6
	sValue := new(big.Int).SetBytes(sig[sOffset : sOffset+sLen])
	if sValue.Cmp(halfOrder) > 0 {
		return scriptError(ErrSigHighS, "signature is not canonical due "+
			"to unnecessarily high S value")
	}
	return nil
}

// isCompressedPubKey 返回公钥是否为 SEC1 压缩格式。
func isCompressedPubKey(pubKey []byte) bool {
	return len(pubKey) == secp256k1.PubKeyBytesLenCompressed &&
		(pubKey[0] == secp256k1.PubKeyFormatCompressedEven ||
			pubKey[0] == secp256k1.PubKeyFormatCompressedOdd)
}

// isUncompressedPubKey 返回公钥是否为 SEC1 未压缩格式。
func isUncompressedPubKey(pubKey []byte) bool {
	return len(pubKey) == secp256k1.PubKeyBytesLenUncompressed &&
		pubKey[0] == secp256k1.PubKeyFormatUncompressed
}

// CheckPubKeyEncoding 在启用了相应标志时检查公钥的编码。
// STRICTENC 要求压缩或未压缩格式；见证脚本在 WITNESS_PUBKEYTYPE 下只接受压缩格式。
func CheckPubKeyEncoding(pubKey []byte, flags ScriptFlags, sigVersion SigVersion) error {
	if flags.HasFlag(ScriptVerifyStrictEncoding) &&
		!isCompressedPubKey(pubKey) && !isUncompressedPubKey(pubKey) {

		return scriptError(ErrPubKeyType, "unsupported public key type")
	}

	if flags.HasFlag(ScriptVerifyWitnessPubKeyType) &&
		sigVersion == SigVersionWitnessV0 && !isCompressedPubKey(pubKey) {

		str := "only compressed keys are accepted post-segwit"
		return scriptError(ErrWitnessPubKeyType, str)
	}

	return nil
}

// TxSigChecker 是针对交易输入的 Checker 实现。
type TxSigChecker struct {
	tx        *wire.MsgTx
	idx       int
	amount    int64
	flags     ScriptFlags
	sigCache  *SigCache
	hashCache *HashCache
	sigHashes *TxSigHashes
}

// 确保 TxSigChecker 实现了 Checker 接口。
var _ Checker = (*TxSigChecker)(nil)

// NewTxSigChecker 返回检查交易 tx 第 idx 个输入的签名检查器。
// amount 是被花费输出的金额，只有见证签名哈希使用它。
// sigCache 和 hashCache 可以为 nil。检查器只读取 hashCache，不向其中添加条目，
// 需要共享中间状态的调用方应先调用 HashCache.AddSigHashes。
func NewTxSigChecker(tx *wire.MsgTx, idx int, amount int64, flags ScriptFlags,
	sigCache *SigCache, hashCache *HashCache) *TxSigChecker {

	return &TxSigChecker{
		tx:        tx,
		idx:       idx,
		amount:    amount,
		flags:     flags,
		sigCache:  sigCache,
		hashCache: hashCache,
	}
}

// witnessSigHashes 返回见证签名哈希的中间状态，缓存未命中时在本地计算。
func (c *TxSigChecker) witnessSigHashes() *TxSigHashes {
	if c.sigHashes != nil {
		return c.sigHashes
	}
	if c.hashCache != nil {
		txid := c.tx.TxHash()
		if sigHashes, ok := c.hashCache.GetSigHashes(&txid); ok {
			c.sigHashes = sigHashes
			return sigHashes
		}
	}
	c.sigHashes = NewTxSigHashes(c.tx)
	return c.sigHashes
}

// sigHash 按签名版本计算签名哈希。
func (c *TxSigChecker) sigHash(subScript []byte, hashType SigHashType,
	sigVersion SigVersion) ([]byte, error) {

	switch sigVersion {
	case SigVersionBase:
		return CalcSignatureHash(subScript, hashType, c.tx, c.idx), nil

	case SigVersionWitnessV0:
		return CalcWitnessSigHash(subScript, c.witnessSigHashes(), hashType,
			c.tx, c.idx, c.amount)
	}
	return nil, fmt.Errorf("unknown signature version %v", sigVersion)
}

// CheckSig 实现 Checker。
// 在严格编码标志下使用严格 DER 解析，否则使用宽松解析；btcec 的验证接受高 S 值，
// 因此宽松模式下无需规范化 S。
func (c *TxSigChecker) CheckSig(sig, pubKey, subScript []byte, sigVersion SigVersion) bool {
	if len(sig) == 0 || len(pubKey) == 0 {
		return false
	}

	hashType := SigHashType(sig[len(sig)-1])
	sigBytes := sig[:len(sig)-1]

	key, err := btcec.ParsePubKey(pubKey)
	if err != nil {
		return false
	}

	var signature *ecdsa.Signature
	if c.flags&(ScriptVerifyDERSignatures|ScriptVerifyLowS|ScriptVerifyStrictEncoding) != 0 {
		signature, err = ecdsa.ParseDERSignature(sigBytes)
	} else {
		signature, err = ecdsa.ParseSignature(sigBytes)
	}
	if err != nil {
		return false
	}

	hash, err := c.sigHash(subScript, hashType, sigVersion)
	if err != nil {
		log.Debugf("[CheckSig] 计算签名哈希失败:\t%v", err)
		return false
	}

	var sigHash chainhash.Hash
	copy(sigHash[:], hash)

	if c.sigCache != nil && c.sigCache.Exists(sigHash, sigBytes, pubKey) {
		return true
	}

	valid := signature.Verify(hash, key)
	if valid && c.sigCache != nil {
		c.sigCache.Add(sigHash, sigBytes, pubKey)
	}
	return valid
}

// CheckLockTime 实现 Checker。
// 锁定时间分为区块高度和时间戳两类，以 LockTimeThreshold 区分，只有同类才能比较。
// 输入的序列号为最终值时交易的锁定时间不生效，因此也视为不满足。
func (c *TxSigChecker) CheckLockTime(lockTime int64) bool {
	txLockTime := int64(c.tx.LockTime)
	if !((txLockTime < LockTimeThreshold && lockTime < LockTimeThreshold) ||
		(txLockTime >= LockTimeThreshold && lockTime >= LockTimeThreshold)) {
		return false
	}

	if lockTime > txLockTime {
		return false
	}

	return c.tx.TxIn[c.idx].Sequence != sequenceFinal
}

// CheckSequence 实现 Checker（BIP0112）。
// 交易版本至少为 2，输入的序列号不得设置禁用位，两者类型位相同且屏蔽后的值满足要求。
func (c *TxSigChecker) CheckSequence(sequence int64) bool {
	if c.tx.Version < 2 {
		return false
	}

	txSequence := int64(c.tx.TxIn[c.idx].Sequence)
	if txSequence&SequenceLockTimeDisabled != 0 {
		return false
	}

	const lockTimeMask = SequenceLockTimeIsSeconds | SequenceLockTimeMask
	txSequenceMasked := txSequence & lockTimeMask
	sequenceMasked := sequence & lockTimeMask

	if !((txSequenceMasked < SequenceLockTimeIsSeconds &&
		sequenceMasked < SequenceLockTimeIsSeconds) ||
		(txSequenceMasked >= SequenceLockTimeIsSeconds &&
			sequenceMasked >= SequenceLockTimeIsSeconds)) {
		return false
	}

	return sequenceMasked <= txSequenceMasked
}
