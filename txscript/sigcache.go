// 实现已验证签名的缓存，避免同一签名在交易池和区块中被重复验证。

package txscript

import (
	"github.com/btcsuite/btcd/chaincfg/chainhash"
	lru "github.com/hashicorp/golang-lru/v2"
)

// sigCacheKey 唯一标识一次签名验证：签名哈希、签名和公钥。
type sigCacheKey struct {
	sigHash chainhash.Hash
	sig     string
	pubKey  string
}

// SigCache 以 LRU 方式缓存验证成功的 (签名哈希, 签名, 公钥) 三元组。
// 所有方法都可以并发调用。只有验证成功的三元组才应加入缓存。
type SigCache struct {
	validSigs *lru.Cache[sigCacheKey, struct{}]
}

// NewSigCache 创建最多保存 maxEntries 个条目的签名缓存。
// maxEntries 为 0 时缓存不保存任何条目。
func NewSigCache(maxEntries uint) *SigCache {
	c := &SigCache{}
	if maxEntries > 0 {
		// 只有大小不为正时才会返回错误。
		c.validSigs, _ = lru.New[sigCacheKey, struct{}](int(maxEntries))
	}
	return c
}

// Exists 返回三元组是否存在于缓存中。
func (s *SigCache) Exists(sigHash chainhash.Hash, sig, pubKey []byte) bool {
	if s == nil || s.validSigs == nil {
		return false
	}
	return s.validSigs.Contains(sigCacheKey{sigHash, string(sig), string(pubKey)})
}

// Add 将三元组加入缓存，缓存已满时淘汰最久未使用的条目。
func (s *SigCache) Add(sigHash chainhash.Hash, sig, pubKey []byte) {
	if s == nil || s.validSigs == nil {
		return
	}
	s.validSigs.Add(sigCacheKey{sigHash, string(sig), string(pubKey)}, struct{}{})
}

// Len 返回缓存中的条目数。
func (s *SigCache) Len() int {
	if s == nil || s.validSigs == nil {
		return 0
	}
	return s.validSigs.Len()
}
