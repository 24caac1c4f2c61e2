// 包含为交易输入生成签名和签名脚本的函数。

package txscript

import (
	"errors"
	"fmt"

	"github.com/btcsuite/btcd/btcec/v2"
	"github.com/btcsuite/btcd/btcec/v2/ecdsa"
	"github.com/btcsuite/btcd/btcutil"
	"github.com/btcsuite/btcd/chaincfg"
	"github.com/btcsuite/btcd/wire"
)

// RawTxInSignature 返回交易 tx 第 idx 个输入的传统签名，签名末尾附加哈希类型。
func RawTxInSignature(tx *wire.MsgTx, idx int, subScript []byte,
	hashType SigHashType, key *btcec.PrivateKey) ([]byte, error) {

	if idx < 0 || idx >= len(tx.TxIn) {
		return nil, fmt.Errorf("idx %d but %d txins", idx, len(tx.TxIn))
	}

	hash := CalcSignatureHash(subScript, hashType, tx, idx)
	signature := ecdsa.Sign(key, hash)

	return append(signature.Serialize(), byte(hashType)), nil
}

// RawTxInWitnessSignature 返回见证版本 0 输入的签名，签名末尾附加哈希类型。
// amt 是被花费输出的金额。
func RawTxInWitnessSignature(tx *wire.MsgTx, sigHashes *TxSigHashes, idx int,
	amt int64, subScript []byte, hashType SigHashType,
	key *btcec.PrivateKey) ([]byte, error) {

	hash, err := CalcWitnessSigHash(subScript, sigHashes, hashType, tx,
		idx, amt)
	if err != nil {
		return nil, err
	}

	signature := ecdsa.Sign(key, hash)

	return append(signature.Serialize(), byte(hashType)), nil
}

// WitnessSignature 为花费 P2WPKH 输出的输入生成见证：签名和序列化的公钥。
func WitnessSignature(tx *wire.MsgTx, sigHashes *TxSigHashes, idx int, amt int64,
	subscript []byte, hashType SigHashType, privKey *btcec.PrivateKey,
	compress bool) (wire.TxWitness, error) {

	sig, err := RawTxInWitnessSignature(tx, sigHashes, idx, amt, subscript,
		hashType, privKey)
	if err != nil {
		return nil, err
	}

	pk := privKey.PubKey()
	var pkData []byte
	if compress {
		pkData = pk.SerializeCompressed()
	} else {
		pkData = pk.SerializeUncompressed()
	}

	return wire.TxWitness{sig, pkData}, nil
}

// SignatureScript 为花费 P2PKH 输出的输入生成签名脚本：签名后跟公钥。
// compress 决定公钥是否以压缩格式序列化。
func SignatureScript(tx *wire.MsgTx, idx int, subscript []byte,
	hashType SigHashType, privKey *btcec.PrivateKey, compress bool) ([]byte, error) {

	sig, err := RawTxInSignature(tx, idx, subscript, hashType, privKey)
	if err != nil {
		return nil, err
	}

	pk := privKey.PubKey()
	var pkData []byte
	if compress {
		pkData = pk.SerializeCompressed()
	} else {
		pkData = pk.SerializeUncompressed()
	}

	return NewScriptBuilder().AddData(sig).AddData(pkData).Script()
}

// p2pkSignatureScript 为花费 P2PK 输出的输入生成只含签名的签名脚本。
func p2pkSignatureScript(tx *wire.MsgTx, idx int, subScript []byte,
	hashType SigHashType, privKey *btcec.PrivateKey) ([]byte, error) {

	sig, err := RawTxInSignature(tx, idx, subScript, hashType, privKey)
	if err != nil {
		return nil, err
	}

	return NewScriptBuilder().AddData(sig).Script()
}

// signMultiSig 用 kdb 中能找到的私钥对多重签名脚本签名，最多签 nRequired 个。
// 返回的脚本以 OP_0 开头以满足 CHECKMULTISIG 的额外弹出，布尔值表示签名是否足够。
func signMultiSig(tx *wire.MsgTx, idx int, subScript []byte, hashType SigHashType,
	addresses []btcutil.Address, nRequired int, kdb KeyDB) ([]byte, bool) {

	builder := NewScriptBuilder().AddOp(OP_FALSE)
	signed := 0
	for _, addr := range addresses {
		key, _, err := kdb.GetKey(addr)
		if err != nil {
			continue
		}
		sig, err := RawTxInSignature(tx, idx, subScript, hashType, key)
		if err != nil {
			continue
		}

		builder.AddData(sig)
		signed++
		if signed == nRequired {
			break
		}
	}

	script, _ := builder.Script()
	return script, signed == nRequired
}

// sign 按公钥脚本的类型生成签名脚本，返回脚本类型、地址和所需签名数，供合并使用。
func sign(chainParams *chaincfg.Params, tx *wire.MsgTx, idx int,
	subScript []byte, hashType SigHashType, kdb KeyDB, sdb ScriptDB) ([]byte,
	ScriptClass, []btcutil.Address, int, error) {

	class, addresses, nrequired, err := ExtractPkScriptAddrs(subScript,
		chainParams)
	if err != nil {
		return nil, NonStandardTy, nil, 0, err
	}

	switch class {
	case PubKeyTy:
		key, _, err := kdb.GetKey(addresses[0])
		if err != nil {
			return nil, class, nil, 0, err
		}

		script, err := p2pkSignatureScript(tx, idx, subScript, hashType, key)
		if err != nil {
			return nil, class, nil, 0, err
		}

		return script, class, addresses, nrequired, nil

	case PubKeyHashTy:
		key, compressed, err := kdb.GetKey(addresses[0])
		if err != nil {
			return nil, class, nil, 0, err
		}

		script, err := SignatureScript(tx, idx, subScript, hashType,
			key, compressed)
		if err != nil {
			return nil, class, nil, 0, err
		}

		return script, class, addresses, nrequired, nil

	case ScriptHashTy:
		script, err := sdb.GetScript(addresses[0])
		if err != nil {
			return nil, class, nil, 0, err
		}

		return script, class, addresses, nrequired, nil

	case MultiSigTy:
		script, _ := signMultiSig(tx, idx, subScript, hashType,
			addresses, nrequired, kdb)
		return script, class, addresses, nrequired, nil

	case NullDataTy:
		return nil, class, nil, 0,
			errors.New("can't sign NULLDATA transactions")

	default:
		return nil, class, nil, 0,
			errors.New("can't sign unknown transactions")
	}
}

// mergeScripts 合并两个签名脚本，返回满足要求的那一个或多重签名的合并结果。
// pkScript 必须已通过 ExtractPkScriptAddrs 得到 class、addresses 和 nRequired。
// 不知道如何合并时优先返回 sigScript。
func mergeScripts(chainParams *chaincfg.Params, tx *wire.MsgTx, idx int,
	pkScript []byte, class ScriptClass, addresses []btcutil.Address,
	nRequired int, sigScript, prevScript []byte) []byte {

	switch class {
	case ScriptHashTy:
		// 赎回脚本是最后一个推送的数据。
		if len(sigScript) == 0 || checkScriptParses(sigScript) != nil {
			return prevScript
		}
		if len(prevScript) == 0 || checkScriptParses(prevScript) != nil {
			return sigScript
		}

		script := finalOpcodeData(sigScript)
		class, addresses, nrequired, _ := ExtractPkScriptAddrs(script,
			chainParams)

		// 去掉末尾的赎回脚本后递归合并。
		sigPushes, _ := PushedData(sigScript)
		prevPushes, _ := PushedData(prevScript)
		if len(sigPushes) == 0 {
			return prevScript
		}
		if len(prevPushes) == 0 {
			return sigScript
		}
		sigScript = rebuildPushes(sigPushes[:len(sigPushes)-1])
		prevScript = rebuildPushes(prevPushes[:len(prevPushes)-1])

		mergedScript := mergeScripts(chainParams, tx, idx, script,
			class, addresses, nrequired, sigScript, prevScript)

		builder := NewScriptBuilder()
		builder.AddOps(mergedScript)
		builder.AddData(script)
		finalScript, _ := builder.Script()
		return finalScript

	case MultiSigTy:
		return mergeMultiSig(tx, idx, addresses, nRequired, pkScript,
			sigScript, prevScript)

	default:
		if len(sigScript) > len(prevScript) {
			return sigScript
		}
		return prevScript
	}
}

// rebuildPushes 以最短编码重新推送给定数据。
func rebuildPushes(pushes [][]byte) []byte {
	builder := NewScriptBuilder()
	for _, data := range pushes {
		builder.AddData(data)
	}
	script, _ := builder.Script()
	return script
}

// mergeMultiSig 合并两个多重签名脚本中的签名。
// 每个签名都与公钥逐一验证，按公钥顺序排列，最多保留 nRequired 个，不足的位置补 OP_0。
func mergeMultiSig(tx *wire.MsgTx, idx int, addresses []btcutil.Address,
	nRequired int, pkScript, sigScript, prevScript []byte) []byte {

	// 签名脚本必须只含推送，否则无法合并。
	sigPushes, err := PushedData(sigScript)
	if err != nil || !IsPushOnlyScript(sigScript) {
		return prevScript
	}
	prevPushes, err := PushedData(prevScript)
	if err != nil || !IsPushOnlyScript(prevScript) {
		return sigScript
	}

	possibleSigs := make([][]byte, 0, len(sigPushes)+len(prevPushes))
	possibleSigs = append(possibleSigs, sigPushes...)
	possibleSigs = append(possibleSigs, prevPushes...)

	addrToSig := make(map[string][]byte)
sigLoop:
	for _, sig := range possibleSigs {
		// 跳过 OP_0 占位和无法解析的签名。
		if len(sig) == 0 {
			continue
		}
		tSig := sig[:len(sig)-1]
		hashType := SigHashType(sig[len(sig)-1])

		pSig, err := ecdsa.ParseDERSignature(tSig)
		if err != nil {
			continue
		}

		hash := CalcSignatureHash(pkScript, hashType, tx, idx)

		for _, addr := range addresses {
			// 所有多重签名地址都是公钥地址。
			pkaddr := addr.(*btcutil.AddressPubKey)

			pubKey := pkaddr.PubKey()

			if pSig.Verify(hash, pubKey) {
				aStr := addr.EncodeAddress()
				if _, ok := addrToSig[aStr]; !ok {
					addrToSig[aStr] = sig
				}
				continue sigLoop
			}
		}
	}

	builder := NewScriptBuilder().AddOp(OP_FALSE)
	doneSigs := 0
	for _, addr := range addresses {
		sig, ok := addrToSig[addr.EncodeAddress()]
		if !ok {
			continue
		}
		builder.AddData(sig)
		doneSigs++
		if doneSigs == nRequired {
			break
		}
	}

	// 用 OP_0 补足缺少的签名。
	for i := doneSigs; i < nRequired; i++ {
		builder.AddOp(OP_0)
	}

	script, _ := builder.Script()
	return script
}

// KeyDB 是 SignTxOutput 查找私钥的接口。
type KeyDB interface {
	GetKey(btcutil.Address) (*btcec.PrivateKey, bool, error)
}

// KeyClosure 把函数适配为 KeyDB。
type KeyClosure func(btcutil.Address) (*btcec.PrivateKey, bool, error)

// GetKey 实现 KeyDB。
func (kc KeyClosure) GetKey(address btcutil.Address) (*btcec.PrivateKey, bool, error) {
	return kc(address)
}

// ScriptDB 是 SignTxOutput 查找赎回脚本的接口。
type ScriptDB interface {
	GetScript(btcutil.Address) ([]byte, error)
}

// ScriptClosure 把函数适配为 ScriptDB。
type ScriptClosure func(btcutil.Address) ([]byte, error)

// GetScript 实现 ScriptDB。
func (sc ScriptClosure) GetScript(address btcutil.Address) ([]byte, error) {
	return sc(address)
}

// SignTxOutput 为花费 pkScript 的输入 idx 生成签名脚本。
// 私钥和赎回脚本分别通过 kdb 和 sdb 查找。previousScript 不为空时，与新生成的脚本合并，
// 用于多方分别签名多重签名输入的情形。
func SignTxOutput(chainParams *chaincfg.Params, tx *wire.MsgTx, idx int,
	pkScript []byte, hashType SigHashType, kdb KeyDB, sdb ScriptDB,
	previousScript []byte) ([]byte, error) {

	sigScript, class, addresses, nrequired, err := sign(chainParams, tx,
		idx, pkScript, hashType, kdb, sdb)
	if err != nil {
		return nil, err
	}

	if class == ScriptHashTy {
		// 对赎回脚本签名，再把赎回脚本追加到末尾。
		realSigScript, _, _, _, err := sign(chainParams, tx, idx,
			sigScript, hashType, kdb, sdb)
		if err != nil {
			return nil, err
		}

		builder := NewScriptBuilder()
		builder.AddOps(realSigScript)
		builder.AddData(sigScript)

		sigScript, _ = builder.Script()
	}

	// 合并之前的签名脚本。
	return mergeScripts(chainParams, tx, idx, pkScript, class,
		addresses, nrequired, sigScript, previousScript), nil
}
