// 测试交易签名：为各类标准脚本生成签名脚本，合并部分签名，并用验证引擎检查结果。

package txscript

import (
	"fmt"
	"testing"

	"github.com/btcsuite/btcd/btcec/v2"
	"github.com/btcsuite/btcd/btcutil"
	"github.com/btcsuite/btcd/chaincfg"
	"github.com/btcsuite/btcd/chaincfg/chainhash"
	"github.com/btcsuite/btcd/wire"
	"github.com/stretchr/testify/require"
)

type addressToKey struct {
	key        *btcec.PrivateKey
	compressed bool
}

func mkGetKey(keys map[string]addressToKey) KeyDB {
	if keys == nil {
		return KeyClosure(func(addr btcutil.Address) (*btcec.PrivateKey,
			bool, error) {
			return nil, false, fmt.Errorf("nope")
		})
	}
	return KeyClosure(func(addr btcutil.Address) (*btcec.PrivateKey,
		bool, error) {
		a2k, ok := keys[addr.EncodeAddress()]
		if !ok {
			return nil, false, fmt.Errorf("nope")
		}
		return a2k.key, a2k.compressed, nil
	})
}

func mkGetScript(scripts map[string][]byte) ScriptDB {
	if scripts == nil {
		return ScriptClosure(func(addr btcutil.Address) ([]byte, error) {
			return nil, fmt.Errorf("nope")
		})
	}
	return ScriptClosure(func(addr btcutil.Address) ([]byte, error) {
		script, ok := scripts[addr.EncodeAddress()]
		if !ok {
			return nil, fmt.Errorf("nope")
		}
		return script, nil
	})
}

// signTestFlags 是签名测试使用的验证标志。
const signTestFlags = ScriptBip16 | ScriptVerifyDERSignatures

// checkScripts 把签名脚本放入交易并验证输入。
func checkScripts(msg string, tx *wire.MsgTx, idx int, inputAmt int64,
	sigScript, pkScript []byte) error {

	tx.TxIn[idx].SignatureScript = sigScript
	err := VerifyTxInput(tx, idx, pkScript, inputAmt, signTestFlags, nil, nil)
	if err != nil {
		return fmt.Errorf("invalid script signature for %s: %v", msg, err)
	}
	return nil
}

func signAndCheck(msg string, tx *wire.MsgTx, idx int, inputAmt int64,
	pkScript []byte, hashType SigHashType, kdb KeyDB, sdb ScriptDB,
	previousScript []byte) error {

	sigScript, err := SignTxOutput(&chaincfg.TestNet3Params, tx, idx,
		pkScript, hashType, kdb, sdb, previousScript)
	if err != nil {
		return fmt.Errorf("failed to sign output %s: %v", msg, err)
	}

	return checkScripts(msg, tx, idx, inputAmt, sigScript, pkScript)
}

// signTestTx 返回签名测试使用的三输入三输出交易。
func signTestTx() *wire.MsgTx {
	tx := &wire.MsgTx{Version: 1}
	for i := uint32(0); i < 3; i++ {
		tx.TxIn = append(tx.TxIn, &wire.TxIn{
			PreviousOutPoint: wire.OutPoint{
				Hash:  chainhash.Hash{},
				Index: i,
			},
			Sequence: wire.MaxTxInSequenceNum,
		})
		tx.TxOut = append(tx.TxOut, &wire.TxOut{Value: int64(i + 1)})
	}
	return tx
}

var signTestHashTypes = []SigHashType{
	SigHashOld, // 不再使用，但按 SigHashAll 处理
	SigHashAll,
	SigHashNone,
	SigHashSingle,
	SigHashAll | SigHashAnyOneCanPay,
	SigHashNone | SigHashAnyOneCanPay,
	SigHashSingle | SigHashAnyOneCanPay,
}

var signTestInputAmounts = []int64{5, 10, 15}

// newTestKey 生成私钥和对应的公钥地址。
func newTestKey(t *testing.T, compressed bool) (*btcec.PrivateKey,
	*btcutil.AddressPubKey) {

	t.Helper()

	key, err := btcec.NewPrivateKey()
	require.NoError(t, err)

	var pk []byte
	if compressed {
		pk = key.PubKey().SerializeCompressed()
	} else {
		pk = key.PubKey().SerializeUncompressed()
	}
	address, err := btcutil.NewAddressPubKey(pk, &chaincfg.TestNet3Params)
	require.NoError(t, err)
	return key, address
}

// TestSignTxOutputSingleKey 对 P2PKH 和 P2PK 输出的每种哈希类型和每个输入签名并验证。
func TestSignTxOutputSingleKey(t *testing.T) {
	t.Parallel()

	tx := signTestTx()
	for _, compressed := range []bool{false, true} {
		for _, hashType := range signTestHashTypes {
			for i := range tx.TxIn {
				msg := fmt.Sprintf("%d:%d:%v", hashType, i, compressed)
				key, pkAddr := newTestKey(t, compressed)

				kdb := mkGetKey(map[string]addressToKey{
					pkAddr.EncodeAddress(): {key, compressed},
				})

				// 支付到公钥哈希。
				pkHashAddr := pkAddr.AddressPubKeyHash()
				pkScript, err := PayToAddrScript(pkHashAddr)
				require.NoError(t, err, msg)
				require.NoError(t, signAndCheck(msg, tx, i,
					signTestInputAmounts[i], pkScript, hashType, kdb,
					mkGetScript(nil), nil))

				// 与之前的签名脚本合并后仍然有效。
				sigScript, err := SignTxOutput(&chaincfg.TestNet3Params, tx,
					i, pkScript, hashType, kdb, mkGetScript(nil), nil)
				require.NoError(t, err, msg)
				require.NoError(t, signAndCheck(msg, tx, i,
					signTestInputAmounts[i], pkScript, hashType, kdb,
					mkGetScript(nil), sigScript))

				// 支付到公钥。
				pkScript, err = PayToAddrScript(pkAddr)
				require.NoError(t, err, msg)
				require.NoError(t, signAndCheck(msg, tx, i,
					signTestInputAmounts[i], pkScript, hashType, kdb,
					mkGetScript(nil), nil))
			}
		}
	}
}

// TestSignTxOutputScriptHash 对包装在 P2SH 中的 P2PKH 签名并验证。
func TestSignTxOutputScriptHash(t *testing.T) {
	t.Parallel()

	tx := signTestTx()
	for _, hashType := range signTestHashTypes {
		for i := range tx.TxIn {
			msg := fmt.Sprintf("%d:%d", hashType, i)
			key, pkAddr := newTestKey(t, true)

			redeemScript, err := PayToAddrScript(pkAddr.AddressPubKeyHash())
			require.NoError(t, err, msg)

			scriptAddr, err := btcutil.NewAddressScriptHash(redeemScript,
				&chaincfg.TestNet3Params)
			require.NoError(t, err, msg)
			pkScript, err := PayToAddrScript(scriptAddr)
			require.NoError(t, err, msg)

			kdb := mkGetKey(map[string]addressToKey{
				pkAddr.EncodeAddress(): {key, true},
			})
			sdb := mkGetScript(map[string][]byte{
				scriptAddr.EncodeAddress(): redeemScript,
			})

			require.NoError(t, signAndCheck(msg, tx, i,
				signTestInputAmounts[i], pkScript, hashType, kdb, sdb, nil))
		}
	}
}

// TestSignTxOutputMultiSig 检查 P2SH 多重签名的一次签名、分两次签名后合并以及重复签名。
func TestSignTxOutputMultiSig(t *testing.T) {
	t.Parallel()

	tx := signTestTx()
	for i := range tx.TxIn {
		msg := fmt.Sprintf("multisig input %d", i)
		key1, address1 := newTestKey(t, true)
		key2, address2 := newTestKey(t, true)

		redeemScript, err := MultiSigScript(
			[]*btcutil.AddressPubKey{address1, address2}, 2)
		require.NoError(t, err, msg)

		scriptAddr, err := btcutil.NewAddressScriptHash(redeemScript,
			&chaincfg.TestNet3Params)
		require.NoError(t, err, msg)
		pkScript, err := PayToAddrScript(scriptAddr)
		require.NoError(t, err, msg)

		sdb := mkGetScript(map[string][]byte{
			scriptAddr.EncodeAddress(): redeemScript,
		})
		kdbBoth := mkGetKey(map[string]addressToKey{
			address1.EncodeAddress(): {key1, true},
			address2.EncodeAddress(): {key2, true},
		})
		kdb1 := mkGetKey(map[string]addressToKey{
			address1.EncodeAddress(): {key1, true},
		})
		kdb2 := mkGetKey(map[string]addressToKey{
			address2.EncodeAddress(): {key2, true},
		})

		// 两把私钥一次签完。
		require.NoError(t, signAndCheck(msg, tx, i,
			signTestInputAmounts[i], pkScript, SigHashAll, kdbBoth, sdb, nil))

		// 只有一把私钥时签名不足。
		sigScript, err := SignTxOutput(&chaincfg.TestNet3Params, tx, i,
			pkScript, SigHashAll, kdb1, sdb, nil)
		require.NoError(t, err, msg)
		require.Error(t, checkScripts(msg, tx, i, signTestInputAmounts[i],
			sigScript, pkScript))

		// 同一把私钥再签一次仍然不足。
		dupScript, err := SignTxOutput(&chaincfg.TestNet3Params, tx, i,
			pkScript, SigHashAll, kdb1, sdb, sigScript)
		require.NoError(t, err, msg)
		require.Error(t, checkScripts(msg, tx, i, signTestInputAmounts[i],
			dupScript, pkScript))

		// 另一方补上第二个签名后有效。
		require.NoError(t, signAndCheck(msg, tx, i,
			signTestInputAmounts[i], pkScript, SigHashAll, kdb2, sdb,
			sigScript))
	}
}

// TestSignTxOutputErrors 检查无法签名的情形。
func TestSignTxOutputErrors(t *testing.T) {
	t.Parallel()

	tx := signTestTx()
	_, pkAddr := newTestKey(t, true)

	pkScript, err := PayToAddrScript(pkAddr.AddressPubKeyHash())
	require.NoError(t, err)
	_, err = SignTxOutput(&chaincfg.TestNet3Params, tx, 0, pkScript,
		SigHashAll, mkGetKey(nil), mkGetScript(nil), nil)
	require.Error(t, err, "missing key")

	nullData, err := NullDataScript([]byte("hello"))
	require.NoError(t, err)
	_, err = SignTxOutput(&chaincfg.TestNet3Params, tx, 0, nullData,
		SigHashAll, mkGetKey(nil), mkGetScript(nil), nil)
	require.Error(t, err, "null data")

	_, err = SignTxOutput(&chaincfg.TestNet3Params, tx, 0,
		mustParseShortForm("1 2 ADD"), SigHashAll, mkGetKey(nil),
		mkGetScript(nil), nil)
	require.Error(t, err, "non-standard")

	scriptAddr, err := btcutil.NewAddressScriptHash(pkScript,
		&chaincfg.TestNet3Params)
	require.NoError(t, err)
	p2sh, err := PayToAddrScript(scriptAddr)
	require.NoError(t, err)
	_, err = SignTxOutput(&chaincfg.TestNet3Params, tx, 0, p2sh,
		SigHashAll, mkGetKey(nil), mkGetScript(nil), nil)
	require.Error(t, err, "missing redeem script")

	_, err = RawTxInSignature(tx, 3, pkScript, SigHashAll, nil)
	require.Error(t, err, "input index out of range")
}

// TestSignatureScriptStrict 确保 SignatureScript 生成的签名满足标准验证标志。
func TestSignatureScriptStrict(t *testing.T) {
	t.Parallel()

	tx := signTestTx()
	for _, compressed := range []bool{false, true} {
		key, pkAddr := newTestKey(t, compressed)
		pkScript, err := PayToAddrScript(pkAddr.AddressPubKeyHash())
		require.NoError(t, err)

		sigScript, err := SignatureScript(tx, 0, pkScript, SigHashAll, key,
			compressed)
		require.NoError(t, err)

		tx.TxIn[0].SignatureScript = sigScript
		require.NoError(t, VerifyTxInput(tx, 0, pkScript, 5,
			StandardVerifyFlags, nil, nil))

		// 签名覆盖的输出被修改后验证失败。
		modified := tx.Copy()
		modified.TxOut[0].Value++
		err = VerifyTxInput(modified, 0, pkScript, 5, StandardVerifyFlags,
			nil, nil)
		require.True(t, IsErrorCode(err, ErrSigNullFail), "%v", err)
	}
}

// TestWitnessSignature 为 P2WPKH、P2WSH 和 P2SH 包装的 P2WPKH 生成见证并验证。
func TestWitnessSignature(t *testing.T) {
	t.Parallel()

	const amount = 100000
	tx := signTestTx()
	key, pkAddr := newTestKey(t, true)
	pubKey := pkAddr.ScriptAddress()
	pkHash := btcutil.Hash160(pubKey)

	t.Run("p2wpkh", func(t *testing.T) {
		tx := tx.Copy()
		wpkhAddr, err := btcutil.NewAddressWitnessPubKeyHash(pkHash,
			&chaincfg.TestNet3Params)
		require.NoError(t, err)
		pkScript, err := PayToAddrScript(wpkhAddr)
		require.NoError(t, err)

		// 见证版本 0 的公钥哈希签名对等价的 P2PKH 脚本签名。
		scriptCode, err := payToPubKeyHashScript(pkHash)
		require.NoError(t, err)
		witness, err := WitnessSignature(tx, NewTxSigHashes(tx), 0, amount,
			scriptCode, SigHashAll, key, true)
		require.NoError(t, err)
		tx.TxIn[0].Witness = witness

		require.NoError(t, VerifyTxInput(tx, 0, pkScript, amount,
			StandardVerifyFlags, nil, nil))

		// 金额被签名覆盖。
		err = VerifyTxInput(tx, 0, pkScript, amount+1, StandardVerifyFlags,
			nil, nil)
		require.Error(t, err)

		// 共享哈希缓存得到同样的结果。
		hashCache := NewHashCache(10)
		require.NoError(t, VerifyTxInput(tx, 0, pkScript, amount,
			StandardVerifyFlags, nil, hashCache))
	})

	t.Run("p2wsh", func(t *testing.T) {
		tx := tx.Copy()
		witnessScript, err := NewScriptBuilder().AddData(pubKey).
			AddOp(OP_CHECKSIG).Script()
		require.NoError(t, err)
		wshAddr, err := btcutil.NewAddressWitnessScriptHash(
			chainhash.HashB(witnessScript), &chaincfg.TestNet3Params)
		require.NoError(t, err)
		pkScript, err := PayToAddrScript(wshAddr)
		require.NoError(t, err)

		sig, err := RawTxInWitnessSignature(tx, NewTxSigHashes(tx), 1,
			amount, witnessScript, SigHashAll, key)
		require.NoError(t, err)
		tx.TxIn[1].Witness = wire.TxWitness{sig, witnessScript}

		require.NoError(t, VerifyTxInput(tx, 1, pkScript, amount,
			StandardVerifyFlags, nil, nil))

		// 签名脚本不为空时见证程序被视为延展。
		tx.TxIn[1].SignatureScript = []byte{OP_0}
		err = VerifyTxInput(tx, 1, pkScript, amount, StandardVerifyFlags,
			nil, nil)
		require.True(t, IsErrorCode(err, ErrWitnessMalleated), "%v", err)
	})

	t.Run("p2sh-p2wpkh", func(t *testing.T) {
		tx := tx.Copy()
		redeemScript, err := payToWitnessPubKeyHashScript(pkHash)
		require.NoError(t, err)
		scriptAddr, err := btcutil.NewAddressScriptHash(redeemScript,
			&chaincfg.TestNet3Params)
		require.NoError(t, err)
		pkScript, err := PayToAddrScript(scriptAddr)
		require.NoError(t, err)

		scriptCode, err := payToPubKeyHashScript(pkHash)
		require.NoError(t, err)
		witness, err := WitnessSignature(tx, NewTxSigHashes(tx), 2, amount,
			scriptCode, SigHashAll, key, true)
		require.NoError(t, err)

		sigScript, err := NewScriptBuilder().AddData(redeemScript).Script()
		require.NoError(t, err)
		tx.TxIn[2].SignatureScript = sigScript
		tx.TxIn[2].Witness = witness

		require.NoError(t, VerifyTxInput(tx, 2, pkScript, amount,
			StandardVerifyFlags, nil, nil))

		version, program, ok := ParseNestedWitnessProgram(sigScript, pkScript)
		require.True(t, ok)
		require.Equal(t, 0, version)
		require.Equal(t, pkHash, program)
	})

	t.Run("uncompressed key rejected in witness", func(t *testing.T) {
		tx := tx.Copy()
		ukey, uAddr := newTestKey(t, false)
		uHash := btcutil.Hash160(uAddr.ScriptAddress())

		pkScript, err := payToWitnessPubKeyHashScript(uHash)
		require.NoError(t, err)
		scriptCode, err := payToPubKeyHashScript(uHash)
		require.NoError(t, err)
		witness, err := WitnessSignature(tx, NewTxSigHashes(tx), 0, amount,
			scriptCode, SigHashAll, ukey, false)
		require.NoError(t, err)
		tx.TxIn[0].Witness = witness

		err = VerifyTxInput(tx, 0, pkScript, amount, StandardVerifyFlags,
			nil, nil)
		require.True(t, IsErrorCode(err, ErrWitnessPubKeyType), "%v", err)

		require.NoError(t, VerifyTxInput(tx, 0, pkScript, amount,
			MandatoryVerifyFlags, nil, nil))
	})
}
