// 包含测试哈希缓存功能的代码。

package txscript

import (
	"math/rand"
	"sync"
	"testing"

	"github.com/btcsuite/btcd/wire"
	"github.com/davecgh/go-spew/spew"
	"github.com/stretchr/testify/require"
)

// genTestTx 创建一个随机交易以在测试用例中使用。
func genTestTx() (*wire.MsgTx, error) {
	tx := wire.NewMsgTx(2)
	tx.Version = rand.Int31()

	numTxins := 1 + rand.Intn(11)
	for i := 0; i < numTxins; i++ {
		randTxIn := wire.TxIn{
			PreviousOutPoint: wire.OutPoint{
				Index: uint32(rand.Int31()),
			},
			Sequence: uint32(rand.Int31()),
		}
		_, err := rand.Read(randTxIn.PreviousOutPoint.Hash[:])
		if err != nil {
			return nil, err
		}

		tx.TxIn = append(tx.TxIn, &randTxIn)
	}

	numTxouts := 1 + rand.Intn(11)
	for i := 0; i < numTxouts; i++ {
		randTxOut := wire.TxOut{
			Value:    rand.Int63(),
			PkScript: make([]byte, rand.Intn(30)),
		}
		if _, err := rand.Read(randTxOut.PkScript); err != nil {
			return nil, err
		}
		tx.TxOut = append(tx.TxOut, &randTxOut)
	}

	return tx, nil
}

// TestHashCacheAddContainsHashes 测试将项目添加到哈希缓存后，ContainsHashes 方法对所有插入的项目返回 true。
// 相反，ContainsHashes 应该对不在哈希缓存中的任何项返回 false。
func TestHashCacheAddContainsHashes(t *testing.T) {
	t.Parallel()

	cache := NewHashCache(10)

	// 首先，我们将生成 10 个随机交易以供我们的测试使用。
	const numTxns = 10
	txns := make([]*wire.MsgTx, numTxns)
	for i := 0; i < numTxns; i++ {
		var err error
		txns[i], err = genTestTx()
		if err != nil {
			t.Fatalf("unable to generate test tx: %v", err)
		}
	}

	// 生成交易后，我们将把它们添加到哈希缓存中。
	for _, tx := range txns {
		cache.AddSigHashes(tx)
	}

	// 接下来，我们将确保 ContainsHashes 方法正确定位插入到缓存中的每个交易。
	for _, tx := range txns {
		txid := tx.TxHash()
		if ok := cache.ContainsHashes(&txid); !ok {
			t.Fatalf("txid %v not found in cache but should be: ",
				txid)
		}
	}

	randTx, err := genTestTx()
	if err != nil {
		t.Fatalf("unable to generate tx: %v", err)
	}

	// 最后，我们将断言 ContainsHashes 方法不会将未添加到缓存的交易报告为存在。
	randTxid := randTx.TxHash()
	if ok := cache.ContainsHashes(&randTxid); ok {
		t.Fatalf("txid %v wasn't inserted into cache but was found",
			randTxid)
	}
}

// TestHashCacheAddGet 测试 GetSigHashes 函数是否正确检索特定交易的中间哈希。
func TestHashCacheAddGet(t *testing.T) {
	t.Parallel()

	cache := NewHashCache(10)

	// 首先，我们将生成一个随机交易并计算该交易的中间哈希。
	randTx, err := genTestTx()
	if err != nil {
		t.Fatalf("unable to generate tx: %v", err)
	}
	sigHashes := NewTxSigHashes(randTx)

	// 接下来，将交易添加到哈希缓存中。
	cache.AddSigHashes(randTx)

	// 上面插入缓存的交易应该可以找到。
	txid := randTx.TxHash()
	cacheHashes, ok := cache.GetSigHashes(&txid)
	if !ok {
		t.Fatalf("tx %v wasn't found in cache", txid)
	}

	// 最后，检索到的中间哈希应该与最初插入缓存的完全匹配。
	if *sigHashes != *cacheHashes {
		t.Fatalf("sighashes don't match: expected %v, got %v",
			spew.Sdump(sigHashes), spew.Sdump(cacheHashes))
	}
}

// TestHashCacheGetOrAdd 确保并发的 GetOrAddSigHashes 对同一交易返回同一份中间哈希。
func TestHashCacheGetOrAdd(t *testing.T) {
	t.Parallel()

	cache := NewHashCache(1)
	randTx, err := genTestTx()
	require.NoError(t, err)

	const numWorkers = 8
	results := make([]*TxSigHashes, numWorkers)

	var wg sync.WaitGroup
	for i := 0; i < numWorkers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			results[i] = cache.GetOrAddSigHashes(randTx)
		}(i)
	}
	wg.Wait()

	want := NewTxSigHashes(randTx)
	for i, got := range results {
		require.Equal(t, *want, *got, "worker %d", i)
		require.Same(t, results[0], got, "worker %d", i)
	}
}

// TestHashCachePurge 测试是否能够从哈希缓存中正确删除项目。
func TestHashCachePurge(t *testing.T) {
	t.Parallel()

	cache := NewHashCache(10)

	// 首先，我们首先将 numTxns 交易插入哈希缓存。
	const numTxns = 10
	txns := make([]*wire.MsgTx, numTxns)
	for i := 0; i < numTxns; i++ {
		var err error
		txns[i], err = genTestTx()
		if err != nil {
			t.Fatalf("unable to generate test tx: %v", err)
		}
	}
	for _, tx := range txns {
		cache.AddSigHashes(tx)
	}

	// 插入所有交易后，我们将从哈希缓存中清除它们。
	for _, tx := range txns {
		txid := tx.TxHash()
		cache.PurgeSigHashes(&txid)
	}

	// 此时，在缓存中应该找不到插入哈希缓存的任何交易。
	for _, tx := range txns {
		txid := tx.TxHash()
		if ok := cache.ContainsHashes(&txid); ok {
			t.Fatalf("tx %v found in cache but should have "+
				"been purged: ", txid)
		}
	}
}

// TestHashCacheMaxSize 确保缓存条目数不超过上限，上限为 0 时不保存任何条目。
func TestHashCacheMaxSize(t *testing.T) {
	t.Parallel()

	cache := NewHashCache(2)
	var last *wire.MsgTx
	for i := 0; i < 5; i++ {
		tx, err := genTestTx()
		require.NoError(t, err)
		cache.AddSigHashes(tx)
		last = tx
		require.LessOrEqual(t, cache.Len(), 2)
	}
	require.Equal(t, 2, cache.Len())

	// 最近加入的条目不会被自己淘汰。
	txid := last.TxHash()
	require.True(t, cache.ContainsHashes(&txid))

	// 重复加入已有条目不淘汰其他条目。
	cache.AddSigHashes(last)
	require.Equal(t, 2, cache.Len())

	empty := NewHashCache(0)
	empty.AddSigHashes(last)
	require.Zero(t, empty.Len())
	require.Equal(t, *NewTxSigHashes(last), *empty.GetOrAddSigHashes(last))
	require.Zero(t, empty.Len())
}

// TestHashCacheReadOnlyChecker 确保验证输入只读取哈希缓存，不会让缓存增长。
func TestHashCacheReadOnlyChecker(t *testing.T) {
	t.Parallel()

	cache := NewHashCache(1)
	pkScript := mustParseShortForm("1 EQUAL")
	for i := 0; i < 100; i++ {
		tx := wire.NewMsgTx(1)
		tx.LockTime = uint32(i)
		tx.AddTxIn(&wire.TxIn{SignatureScript: mustParseShortForm("1")})
		require.NoError(t, VerifyTxInput(tx, 0, pkScript, 0, ScriptBip16,
			nil, cache))
	}
	require.Zero(t, cache.Len())
}

// TestHashCacheCheckerShares 确保检查器使用缓存中已有的中间状态，未命中时在本地计算。
func TestHashCacheCheckerShares(t *testing.T) {
	t.Parallel()

	tx, err := genTestTx()
	require.NoError(t, err)

	cache := NewHashCache(1)
	cache.AddSigHashes(tx)
	txid := tx.TxHash()
	cached, ok := cache.GetSigHashes(&txid)
	require.True(t, ok)

	checker := NewTxSigChecker(tx, 0, 0, StandardVerifyFlags, nil, cache)
	require.Same(t, cached, checker.witnessSigHashes())

	other, err := genTestTx()
	require.NoError(t, err)
	checker = NewTxSigChecker(other, 0, 0, StandardVerifyFlags, nil, cache)
	require.Equal(t, *NewTxSigHashes(other), *checker.witnessSigHashes())
	require.Equal(t, 1, cache.Len())
}
