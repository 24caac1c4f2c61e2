// 实现传统签名哈希和 BIP0143 见证版本 0 签名哈希的计算。

package txscript

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"io"

	"github.com/btcsuite/btcd/chaincfg/chainhash"
	"github.com/btcsuite/btcd/wire"
)

// SigHashType 表示签名末尾的哈希类型位。
type SigHashType uint32

// 哈希类型位位于签名的末尾。
const (
	SigHashOld          SigHashType = 0x0
	SigHashAll          SigHashType = 0x1
	SigHashNone         SigHashType = 0x2
	SigHashSingle       SigHashType = 0x3
	SigHashAnyOneCanPay SigHashType = 0x80

	// sigHashMask 定义用于识别哈希类型的位数。
	sigHashMask = 0x1f
)

// String 返回哈希类型的可读名称。
func (t SigHashType) String() string {
	var name string
	switch t & sigHashMask {
	case SigHashNone:
		name = "NONE"
	case SigHashSingle:
		name = "SINGLE"
	case SigHashAll:
		name = "ALL"
	default:
		return fmt.Sprintf("0x%02x", uint32(t))
	}
	if t&SigHashAnyOneCanPay != 0 {
		name += "|ANYONECANPAY"
	}
	return name
}

// isDefined 返回哈希类型去掉 ANYONECANPAY 位后是否为 ALL、NONE 或 SINGLE。
func (t SigHashType) isDefined() bool {
	base := t &^ SigHashAnyOneCanPay
	return base >= SigHashAll && base <= SigHashSingle
}

// sigHashFallback 是输入索引越界或 SINGLE 没有对应输出时返回的签名哈希，
// 即小端序的整数 1。历史上的共识行为，必须原样保留。
var sigHashFallback = func() []byte {
	var hash [chainhash.HashSize]byte
	hash[0] = 0x01
	return hash[:]
}()

// CalcSignatureHash 计算传统（隔离见证之前）签名哈希。
// subScript 是自最后一个 OP_CODESEPARATOR 之后的脚本，调用方应已删除其中的签名。
// 输入索引越界，或 SINGLE 类型没有对应的输出时，返回 0x01 00..00。
func CalcSignatureHash(subScript []byte, hashType SigHashType, tx *wire.MsgTx, idx int) []byte {
	if idx < 0 || idx >= len(tx.TxIn) {
		return sigHashFallback
	}
	if hashType&sigHashMask == SigHashSingle && idx >= len(tx.TxOut) {
		return sigHashFallback
	}

	var buf bytes.Buffer
	buf.Grow(tx.SerializeSizeStripped() + len(subScript) + 4)
	writeLegacySigHashPreimage(&buf, removeCodeSeparators(subScript),
		hashType, tx, idx)
	return chainhash.DoubleHashB(buf.Bytes())
}

// writeLegacySigHashPreimage 写入传统签名哈希的原像。
func writeLegacySigHashPreimage(w io.Writer, scriptCode []byte,
	hashType SigHashType, tx *wire.MsgTx, idx int) {

	anyoneCanPay := hashType&SigHashAnyOneCanPay != 0
	hashNone := hashType&sigHashMask == SigHashNone
	hashSingle := hashType&sigHashMask == SigHashSingle

	var scratch [8]byte
	writeUint32 := func(v uint32) {
		binary.LittleEndian.PutUint32(scratch[:4], v)
		w.Write(scratch[:4])
	}

	writeUint32(uint32(tx.Version))

	// 输入。ANYONECANPAY 只序列化被签名的输入。
	numInputs := len(tx.TxIn)
	if anyoneCanPay {
		numInputs = 1
	}
	wire.WriteVarInt(w, 0, uint64(numInputs))
	for i := 0; i < numInputs; i++ {
		inIdx := i
		if anyoneCanPay {
			inIdx = idx
		}
		txIn := tx.TxIn[inIdx]

		w.Write(txIn.PreviousOutPoint.Hash[:])
		writeUint32(txIn.PreviousOutPoint.Index)

		if inIdx == idx {
			wire.WriteVarBytes(w, 0, scriptCode)
		} else {
			wire.WriteVarInt(w, 0, 0)
		}

		if inIdx != idx && (hashSingle || hashNone) {
			writeUint32(0)
		} else {
			writeUint32(txIn.Sequence)
		}
	}

	// 输出。NONE 不序列化输出，SINGLE 序列化到被签名输入的位置为止，之前的输出为空。
	numOutputs := len(tx.TxOut)
	switch {
	case hashNone:
		numOutputs = 0
	case hashSingle:
		numOutputs = idx + 1
	}
	wire.WriteVarInt(w, 0, uint64(numOutputs))
	for i := 0; i < numOutputs; i++ {
		if hashSingle && i != idx {
			binary.LittleEndian.PutUint64(scratch[:], ^uint64(0))
			w.Write(scratch[:])
			wire.WriteVarInt(w, 0, 0)
			continue
		}
		txOut := tx.TxOut[i]
		binary.LittleEndian.PutUint64(scratch[:], uint64(txOut.Value))
		w.Write(scratch[:])
		wire.WriteVarBytes(w, 0, txOut.PkScript)
	}

	writeUint32(tx.LockTime)
	writeUint32(uint32(hashType))
}

// TxSigHashes 保存 BIP0143 签名哈希使用的三个中间状态。
// 同一交易的所有输入共享这些值，预先计算一次即可避免签名验证的二次复杂度。
type TxSigHashes struct {
	HashPrevOutsV0 chainhash.Hash
	HashSequenceV0 chainhash.Hash
	HashOutputsV0  chainhash.Hash
}

// NewTxSigHashes 计算并返回给定交易的中间状态。
func NewTxSigHashes(tx *wire.MsgTx) *TxSigHashes {
	return &TxSigHashes{
		HashPrevOutsV0: calcHashPrevOuts(tx),
		HashSequenceV0: calcHashSequence(tx),
		HashOutputsV0:  calcHashOutputs(tx),
	}
}

// calcHashPrevOuts 计算所有输入引用的输出点的双 SHA256。
func calcHashPrevOuts(tx *wire.MsgTx) chainhash.Hash {
	var b bytes.Buffer
	for _, in := range tx.TxIn {
		b.Write(in.PreviousOutPoint.Hash[:])

		var buf [4]byte
		binary.LittleEndian.PutUint32(buf[:], in.PreviousOutPoint.Index)
		b.Write(buf[:])
	}
	return chainhash.DoubleHashH(b.Bytes())
}

// calcHashSequence 计算所有输入序列号的双 SHA256。
func calcHashSequence(tx *wire.MsgTx) chainhash.Hash {
	var b bytes.Buffer
	for _, in := range tx.TxIn {
		var buf [4]byte
		binary.LittleEndian.PutUint32(buf[:], in.Sequence)
		b.Write(buf[:])
	}
	return chainhash.DoubleHashH(b.Bytes())
}

// calcHashOutputs 计算所有输出的双 SHA256。
func calcHashOutputs(tx *wire.MsgTx) chainhash.Hash {
	var b bytes.Buffer
	for _, out := range tx.TxOut {
		wire.WriteTxOut(&b, 0, 0, out)
	}
	return chainhash.DoubleHashH(b.Bytes())
}

// CalcWitnessSigHash 计算 BIP0143 定义的见证版本 0 签名哈希。
// subScript 对 P2WSH 是见证脚本自最后一个 OP_CODESEPARATOR 之后的部分，
// 对 P2WPKH 是等价的 P2PKH 脚本。amount 是被花费输出的金额。
func CalcWitnessSigHash(subScript []byte, sigHashes *TxSigHashes,
	hashType SigHashType, tx *wire.MsgTx, idx int, amount int64) ([]byte, error) {

	if idx < 0 || idx >= len(tx.TxIn) {
		return nil, fmt.Errorf("idx %d but %d txins", idx, len(tx.TxIn))
	}
	if sigHashes == nil {
		sigHashes = NewTxSigHashes(tx)
	}

	anyoneCanPay := hashType&SigHashAnyOneCanPay != 0
	baseType := hashType & sigHashMask

	var w bytes.Buffer
	var scratch [8]byte

	binary.LittleEndian.PutUint32(scratch[:4], uint32(tx.Version))
	w.Write(scratch[:4])

	var zeroHash chainhash.Hash
	if !anyoneCanPay {
		w.Write(sigHashes.HashPrevOutsV0[:])
	} else {
		w.Write(zeroHash[:])
	}

	if !anyoneCanPay && baseType != SigHashSingle && baseType != SigHashNone {
		w.Write(sigHashes.HashSequenceV0[:])
	} else {
		w.Write(zeroHash[:])
	}

	txIn := tx.TxIn[idx]
	w.Write(txIn.PreviousOutPoint.Hash[:])
	binary.LittleEndian.PutUint32(scratch[:4], txIn.PreviousOutPoint.Index)
	w.Write(scratch[:4])

	wire.WriteVarBytes(&w, 0, subScript)

	binary.LittleEndian.PutUint64(scratch[:], uint64(amount))
	w.Write(scratch[:])
	binary.LittleEndian.PutUint32(scratch[:4], txIn.Sequence)
	w.Write(scratch[:4])

	switch {
	case baseType != SigHashSingle && baseType != SigHashNone:
		w.Write(sigHashes.HashOutputsV0[:])
	case baseType == SigHashSingle && idx < len(tx.TxOut):
		var b bytes.Buffer
		wire.WriteTxOut(&b, 0, 0, tx.TxOut[idx])
		h := chainhash.DoubleHashH(b.Bytes())
		w.Write(h[:])
	default:
		w.Write(zeroHash[:])
	}

	binary.LittleEndian.PutUint32(scratch[:4], tx.LockTime)
	w.Write(scratch[:4])
	binary.LittleEndian.PutUint32(scratch[:4], uint32(hashType))
	w.Write(scratch[:4])

	return chainhash.DoubleHashB(w.Bytes()), nil
}
