// 定义查找被花费输出的接口及其内存实现。

package txscript

import (
	"github.com/btcsuite/btcd/wire"
)

// PrevOutputFetcher 根据输出点返回被花费的输出，找不到时返回 nil。
type PrevOutputFetcher interface {
	FetchPrevOutput(wire.OutPoint) *wire.TxOut
}

// CannedPrevOutputFetcher 对任何输出点都返回同一个输出，适用于只有一个输入的交易。
type CannedPrevOutputFetcher struct {
	pkScript []byte
	amt      int64
}

// NewCannedPrevOutputFetcher 返回使用给定脚本和金额的 CannedPrevOutputFetcher。
func NewCannedPrevOutputFetcher(script []byte, amt int64) *CannedPrevOutputFetcher {
	return &CannedPrevOutputFetcher{
		pkScript: script,
		amt:      amt,
	}
}

// FetchPrevOutput 实现 PrevOutputFetcher。
func (c *CannedPrevOutputFetcher) FetchPrevOutput(wire.OutPoint) *wire.TxOut {
	return wire.NewTxOut(c.amt, c.pkScript)
}

// 确保 CannedPrevOutputFetcher 实现了 PrevOutputFetcher 接口。
var _ PrevOutputFetcher = (*CannedPrevOutputFetcher)(nil)

// MultiPrevOutFetcher 是由内存映射支持的 PrevOutputFetcher。不能并发写入。
type MultiPrevOutFetcher struct {
	prevOuts map[wire.OutPoint]*wire.TxOut
}

// NewMultiPrevOutFetcher 使用给定的映射创建 MultiPrevOutFetcher，映射可以为 nil。
func NewMultiPrevOutFetcher(prevOuts map[wire.OutPoint]*wire.TxOut) *MultiPrevOutFetcher {
	if prevOuts == nil {
		prevOuts = make(map[wire.OutPoint]*wire.TxOut)
	}

	return &MultiPrevOutFetcher{
		prevOuts: prevOuts,
	}
}

// FetchPrevOutput 实现 PrevOutputFetcher。
func (m *MultiPrevOutFetcher) FetchPrevOutput(op wire.OutPoint) *wire.TxOut {
	return m.prevOuts[op]
}

// AddPrevOut 添加一个输出点与其输出的对应关系。
func (m *MultiPrevOutFetcher) AddPrevOut(op wire.OutPoint, txOut *wire.TxOut) {
	m.prevOuts[op] = txOut
}

// AddTx 将交易的每个输出都登记为可被花费的输出。
func (m *MultiPrevOutFetcher) AddTx(tx *wire.MsgTx) {
	txid := tx.TxHash()
	for i, txOut := range tx.TxOut {
		m.prevOuts[*wire.NewOutPoint(&txid, uint32(i))] = txOut
	}
}

// Merge 将另一个 MultiPrevOutFetcher 的内容合并进来。
func (m *MultiPrevOutFetcher) Merge(other *MultiPrevOutFetcher) {
	for k, v := range other.prevOuts {
		m.prevOuts[k] = v
	}
}

// 确保 MultiPrevOutFetcher 实现了 PrevOutputFetcher 接口。
var _ PrevOutputFetcher = (*MultiPrevOutFetcher)(nil)
