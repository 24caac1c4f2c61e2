// 实现按交易缓存 BIP0143 签名哈希中间状态的哈希缓存。

package txscript

import (
	"sync"

	"github.com/btcsuite/btcd/chaincfg/chainhash"
	"github.com/btcsuite/btcd/wire"
)

// HashCache 保存交易 ID 到其 TxSigHashes 的映射，最多 maxSize 个条目。
// 同一交易的多个见证输入并发验证时，可以共享同一份中间状态。所有方法都可以并发调用。
type HashCache struct {
	sigHashes map[chainhash.Hash]*TxSigHashes
	maxSize   uint

	sync.RWMutex
}

// NewHashCache 返回最多保存 maxSize 个条目的哈希缓存。
// maxSize 为 0 时缓存不保存任何条目。
func NewHashCache(maxSize uint) *HashCache {
	return &HashCache{
		sigHashes: make(map[chainhash.Hash]*TxSigHashes, maxSize),
		maxSize:   maxSize,
	}
}

// add 在持有写锁时插入条目，缓存已满时随机淘汰一个其他条目。
func (h *HashCache) add(txid chainhash.Hash, sigHashes *TxSigHashes) {
	if h.maxSize == 0 {
		return
	}
	if _, ok := h.sigHashes[txid]; !ok && uint(len(h.sigHashes)) >= h.maxSize {
		// map 的遍历顺序是随机的。
		for k := range h.sigHashes {
			delete(h.sigHashes, k)
			break
		}
	}
	h.sigHashes[txid] = sigHashes
}

// AddSigHashes 计算并保存交易的中间状态。
func (h *HashCache) AddSigHashes(tx *wire.MsgTx) {
	sigHashes := NewTxSigHashes(tx)
	txid := tx.TxHash()

	h.Lock()
	h.add(txid, sigHashes)
	h.Unlock()
}

// Len 返回缓存中的条目数。
func (h *HashCache) Len() int {
	h.RLock()
	defer h.RUnlock()
	return len(h.sigHashes)
}

// ContainsHashes 返回缓存中是否存在给定交易的中间状态。
func (h *HashCache) ContainsHashes(txid *chainhash.Hash) bool {
	h.RLock()
	_, found := h.sigHashes[*txid]
	h.RUnlock()

	return found
}

// GetSigHashes 返回给定交易的中间状态。
func (h *HashCache) GetSigHashes(txid *chainhash.Hash) (*TxSigHashes, bool) {
	h.RLock()
	item, found := h.sigHashes[*txid]
	h.RUnlock()

	return item, found
}

// GetOrAddSigHashes 返回交易的中间状态，不存在时先计算并保存。
func (h *HashCache) GetOrAddSigHashes(tx *wire.MsgTx) *TxSigHashes {
	txid := tx.TxHash()
	if sigHashes, ok := h.GetSigHashes(&txid); ok {
		return sigHashes
	}

	sigHashes := NewTxSigHashes(tx)
	h.Lock()
	if existing, ok := h.sigHashes[txid]; ok {
		sigHashes = existing
	} else {
		h.add(txid, sigHashes)
	}
	h.Unlock()
	return sigHashes
}

// PurgeSigHashes 删除给定交易的中间状态。交易被确认或从交易池移除后应调用它。
func (h *HashCache) PurgeSigHashes(txid *chainhash.Hash) {
	h.Lock()
	delete(h.sigHashes, *txid)
	h.Unlock()
}
