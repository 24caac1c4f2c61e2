// 包含识别和处理标准脚本模板的函数：P2SH、见证程序、多重签名以及地址提取。

package txscript

import (
	"bytes"
	"errors"
	"fmt"

	"github.com/btcsuite/btcd/btcutil"
	"github.com/btcsuite/btcd/chaincfg"
)

const (
	// MaxDataCarrierSize 是空数据脚本中允许推送的最大字节数。
	MaxDataCarrierSize = 80

	// MandatoryVerifyFlags 是区块中的交易必须满足的脚本标志。
	MandatoryVerifyFlags = ScriptBip16 |
		ScriptVerifyDERSignatures |
		ScriptVerifyCheckLockTimeVerify |
		ScriptVerifyCheckSequenceVerify |
		ScriptVerifyWitness |
		ScriptStrictMultiSig

	// StandardVerifyFlags 是执行交易脚本时使用的脚本标志，用于执行脚本被视为标准脚本所需的额外检查。
	// 这些检查有助于减少与交易可篡改性相关的问题，并允许付费脚本哈希交易。
	// 请注意，这些标志与共识规则的要求不同，它们更为严格。
	StandardVerifyFlags = MandatoryVerifyFlags |
		ScriptVerifyStrictEncoding |
		ScriptVerifyMinimalData |
		ScriptDiscourageUpgradableNops |
		ScriptVerifyCleanStack |
		ScriptVerifyNullFail |
		ScriptVerifyLowS |
		ScriptVerifyDiscourageUpgradeableWitnessProgram |
		ScriptVerifyMinimalIf |
		ScriptVerifyWitnessPubKeyType
)

var (
	// ErrUnsupportedAddress 在无法为地址生成支付脚本时返回。
	ErrUnsupportedAddress = errors.New("unsupported address type")

	// ErrTooManyRequiredSigs 在多重签名要求的签名数超过公钥数时返回。
	ErrTooManyRequiredSigs = errors.New("more signatures required than keys")

	// ErrTooMuchNullData 在空数据脚本的数据超过 MaxDataCarrierSize 时返回。
	ErrTooMuchNullData = errors.New("null data exceeds max data carrier size")

	// ErrNotMultisigScript 在脚本不是标准多重签名脚本时返回。
	ErrNotMultisigScript = errors.New("not a multisig script")

	// ErrUnsupportedScriptType 在脚本类名称未知时返回。
	ErrUnsupportedScriptType = errors.New("unsupported script type")
)

// ScriptClass 是脚本标准类型列表的枚举。
type ScriptClass byte

// 区块链中已知的脚本支付类别。
const (
	NonStandardTy         ScriptClass = iota // 没有任何公认的形式。
	PubKeyTy                                 // 支付 pubkey。
	PubKeyHashTy                             // 支付公钥哈希。
	WitnessV0PubKeyHashTy                    // 支付见证公钥哈希。
	ScriptHashTy                             // 支付脚本哈希。
	WitnessV0ScriptHashTy                    // 支付见证脚本哈希。
	MultiSigTy                               // 多重签名。
	NullDataTy                               // 只有空数据（可证明可剪枝）。
	WitnessUnknownTy                         // 未知版本的见证程序。
)

// scriptClassToName 包含描述每个脚本类的字符串。
var scriptClassToName = []string{
	NonStandardTy:         "nonstandard",
	PubKeyTy:              "pubkey",
	PubKeyHashTy:          "pubkeyhash",
	WitnessV0PubKeyHashTy: "witness_v0_keyhash",
	ScriptHashTy:          "scripthash",
	WitnessV0ScriptHashTy: "witness_v0_scripthash",
	MultiSigTy:            "multisig",
	NullDataTy:            "nulldata",
	WitnessUnknownTy:      "witness_unknown",
}

// String 通过返回枚举脚本类的名称来实现 Stringer 接口。如果枚举无效，则返回 "Invalid"。
func (t ScriptClass) String() string {
	if int(t) >= len(scriptClassToName) {
		return "Invalid"
	}
	return scriptClassToName[t]
}

// NewScriptClass 返回与名称相对应的 ScriptClass。不要与 GetScriptClass 混淆。
func NewScriptClass(name string) (*ScriptClass, error) {
	for i, n := range scriptClassToName {
		if n == name {
			value := ScriptClass(i)
			return &value, nil
		}
	}

	return nil, fmt.Errorf("%w: %s", ErrUnsupportedScriptType, name)
}

// ParsePayToScriptHash 识别 23 字节的 OP_HASH160 <20 字节哈希> OP_EQUAL 模板并返回脚本哈希。
func ParsePayToScriptHash(script []byte) ([]byte, bool) {
	if len(script) == 23 &&
		script[0] == OP_HASH160 &&
		script[1] == OP_DATA_20 &&
		script[22] == OP_EQUAL {

		return script[2:22], true
	}
	return nil, false
}

// IsPayToScriptHash 返回脚本是否为标准的支付到脚本哈希脚本。
func IsPayToScriptHash(script []byte) bool {
	_, ok := ParsePayToScriptHash(script)
	return ok
}

// ParseWitnessProgram 识别见证程序：一个版本操作码（OP_0 或 OP_1 到 OP_16）后跟一个 2 到 40 字节的直接推送，
// 脚本总长度在 4 到 42 字节之间。返回版本、程序以及脚本是否为见证程序。
func ParseWitnessProgram(script []byte) (int, []byte, bool) {
	if len(script) < 4 || len(script) > 42 {
		return 0, nil, false
	}
	if script[0] != OP_0 && (script[0] < OP_1 || script[0] > OP_16) {
		return 0, nil, false
	}
	if int(script[1])+2 != len(script) {
		return 0, nil, false
	}
	return asSmallInt(script[0]), script[2:], true
}

// IsWitnessProgram 返回脚本是否为见证程序。
func IsWitnessProgram(script []byte) bool {
	_, _, ok := ParseWitnessProgram(script)
	return ok
}

// ParseNestedWitnessProgram 识别嵌套在 P2SH 中的见证程序。
// 公钥脚本必须是 P2SH，签名脚本必须恰好是赎回脚本的单个规范推送，且赎回脚本本身是见证程序。
func ParseNestedWitnessProgram(sigScript, pkScript []byte) (int, []byte, bool) {
	if !IsPayToScriptHash(pkScript) {
		return 0, nil, false
	}
	redeemScript := finalOpcodeData(sigScript)
	if redeemScript == nil ||
		!bytes.Equal(sigScript, canonicalPushBytes(redeemScript)) {

		return 0, nil, false
	}
	return ParseWitnessProgram(redeemScript)
}

// finalOpcodeData 返回脚本最后一个操作码推送的数据，脚本无法解析时返回 nil。
func finalOpcodeData(script []byte) []byte {
	if len(script) == 0 {
		return nil
	}

	var data []byte
	tokenizer := MakeScriptTokenizer(script)
	for tokenizer.Next() {
		data = tokenizer.Data()
	}
	if tokenizer.Err() != nil {
		return nil
	}
	return data
}

// extractCompressedPubKey 从支付到压缩公钥脚本中提取公钥，否则返回 nil。
func extractCompressedPubKey(script []byte) []byte {
	// OP_DATA_33 <33 字节压缩公钥> OP_CHECKSIG
	if len(script) == 35 &&
		script[34] == OP_CHECKSIG &&
		script[0] == OP_DATA_33 &&
		(script[1] == 0x02 || script[1] == 0x03) {

		return script[1:34]
	}

	return nil
}

// extractUncompressedPubKey 从支付到未压缩公钥脚本中提取公钥，否则返回 nil。
// 混合格式（0x06、0x07）也被接受。
func extractUncompressedPubKey(script []byte) []byte {
	// OP_DATA_65 <65 字节未压缩公钥> OP_CHECKSIG
	if len(script) == 67 &&
		script[66] == OP_CHECKSIG &&
		script[0] == OP_DATA_65 &&
		(script[1] == 0x04 || script[1] == 0x06 || script[1] == 0x07) {

		return script[1:66]
	}
	return nil
}

// extractPubKey 从支付到公钥脚本中提取压缩或未压缩的公钥，否则返回 nil。
func extractPubKey(script []byte) []byte {
	if pubKey := extractCompressedPubKey(script); pubKey != nil {
		return pubKey
	}
	return extractUncompressedPubKey(script)
}

// extractPubKeyHash 从支付到公钥哈希脚本中提取公钥哈希，否则返回 nil。
func extractPubKeyHash(script []byte) []byte {
	// OP_DUP OP_HASH160 <20 字节哈希> OP_EQUALVERIFY OP_CHECKSIG
	if len(script) == 25 &&
		script[0] == OP_DUP &&
		script[1] == OP_HASH160 &&
		script[2] == OP_DATA_20 &&
		script[23] == OP_EQUALVERIFY &&
		script[24] == OP_CHECKSIG {

		return script[3:23]
	}

	return nil
}

// isStrictPubKeyEncoding 返回公钥是否为压缩、未压缩或混合格式。
func isStrictPubKeyEncoding(pubKey []byte) bool {
	if len(pubKey) == 33 && (pubKey[0] == 0x02 || pubKey[0] == 0x03) {
		return true
	}
	if len(pubKey) == 65 {
		switch pubKey[0] {
		case 0x04, 0x06, 0x07:
			return true
		}
	}
	return false
}

// multiSigDetails 包含从标准多重签名脚本中提取的详细信息。
type multiSigDetails struct {
	requiredSigs int
	numPubKeys   int
	pubKeys      [][]byte
	valid        bool
}

// extractMultisigScriptDetails 尝试从脚本中提取多重签名的详细信息，失败时 valid 为 false。
// extractPubKeys 为 false 时不收集公钥，以避免分配。
func extractMultisigScriptDetails(script []byte, extractPubKeys bool) multiSigDetails {
	// NUM_SIGS PUBKEY PUBKEY PUBKEY ... NUM_PUBKEYS OP_CHECKMULTISIG
	if len(script) < 3 || script[len(script)-1] != OP_CHECKMULTISIG {
		return multiSigDetails{}
	}

	tokenizer := MakeScriptTokenizer(script)
	if !tokenizer.Next() || !IsSmallInt(tokenizer.Opcode()) {
		return multiSigDetails{}
	}
	requiredSigs := AsSmallInt(tokenizer.Opcode())

	var numPubKeys int
	var pubKeys [][]byte
	if extractPubKeys {
		pubKeys = make([][]byte, 0, MaxPubKeysPerMultiSig)
	}
	for tokenizer.Next() {
		if IsSmallInt(tokenizer.Opcode()) {
			break
		}

		data := tokenizer.Data()
		numPubKeys++
		if !isStrictPubKeyEncoding(data) {
			continue
		}
		if extractPubKeys {
			pubKeys = append(pubKeys, data)
		}
	}
	if tokenizer.Done() {
		return multiSigDetails{}
	}

	op := tokenizer.Opcode()
	if !IsSmallInt(op) || AsSmallInt(op) != numPubKeys {
		return multiSigDetails{}
	}

	// 剩下的只能是结尾的 OP_CHECKMULTISIG。
	if len(tokenizer.Script())-tokenizer.ByteIndex() != 1 {
		return multiSigDetails{}
	}

	return multiSigDetails{
		requiredSigs: requiredSigs,
		numPubKeys:   numPubKeys,
		pubKeys:      pubKeys,
		valid:        true,
	}
}

// IsMultisigScript 返回脚本是否为标准多重签名脚本。
func IsMultisigScript(script []byte) bool {
	return extractMultisigScriptDetails(script, false).valid
}

// CalcMultiSigStats 返回多重签名脚本的公钥数和所需签名数。
func CalcMultiSigStats(script []byte) (int, int, error) {
	details := extractMultisigScriptDetails(script, false)
	if !details.valid {
		return 0, 0, fmt.Errorf("%w: %x", ErrNotMultisigScript, script)
	}

	return details.numPubKeys, details.requiredSigs, nil
}

// isNullDataScript 返回脚本是否为 OP_RETURN 后跟至多 MaxDataCarrierSize 字节推送的空数据脚本。
func isNullDataScript(script []byte) bool {
	if len(script) < 1 || script[0] != OP_RETURN {
		return false
	}
	if len(script) == 1 {
		return true
	}

	tokenizer := MakeScriptTokenizer(script[1:])
	return tokenizer.Next() && tokenizer.Done() &&
		(IsSmallInt(tokenizer.Opcode()) || tokenizer.Opcode() <= OP_PUSHDATA4) &&
		len(tokenizer.Data()) <= MaxDataCarrierSize
}

// GetScriptClass 返回所传递脚本的类。无法识别或无法解析时返回 NonStandardTy。
func GetScriptClass(script []byte) ScriptClass {
	switch {
	case extractPubKey(script) != nil:
		return PubKeyTy
	case extractPubKeyHash(script) != nil:
		return PubKeyHashTy
	case IsPayToScriptHash(script):
		return ScriptHashTy
	case IsMultisigScript(script):
		return MultiSigTy
	case isNullDataScript(script):
		return NullDataTy
	}

	if version, program, ok := ParseWitnessProgram(script); ok {
		switch {
		case version == 0 && len(program) == payToWitnessPubKeyHashDataSize:
			return WitnessV0PubKeyHashTy
		case version == 0 && len(program) == payToWitnessScriptHashDataSize:
			return WitnessV0ScriptHashTy
		case version != 0:
			return WitnessUnknownTy
		}
	}

	return NonStandardTy
}

// payToPubKeyHashScript 创建向 20 字节公钥哈希付款的脚本。
func payToPubKeyHashScript(pubKeyHash []byte) ([]byte, error) {
	return NewScriptBuilder().AddOp(OP_DUP).AddOp(OP_HASH160).
		AddData(pubKeyHash).AddOp(OP_EQUALVERIFY).AddOp(OP_CHECKSIG).
		Script()
}

// payToWitnessPubKeyHashScript 创建向版本 0 公钥哈希见证程序付款的脚本。
func payToWitnessPubKeyHashScript(pubKeyHash []byte) ([]byte, error) {
	return NewScriptBuilder().AddOp(OP_0).AddData(pubKeyHash).Script()
}

// payToScriptHashScript 创建向脚本哈希付款的脚本。
func payToScriptHashScript(scriptHash []byte) ([]byte, error) {
	return NewScriptBuilder().AddOp(OP_HASH160).AddData(scriptHash).
		AddOp(OP_EQUAL).Script()
}

// payToWitnessScriptHashScript 创建向版本 0 脚本哈希见证程序付款的脚本。
func payToWitnessScriptHashScript(scriptHash []byte) ([]byte, error) {
	return NewScriptBuilder().AddOp(OP_0).AddData(scriptHash).Script()
}

// payToPubKeyScript 创建向公钥付款的脚本。
func payToPubKeyScript(serializedPubKey []byte) ([]byte, error) {
	return NewScriptBuilder().AddData(serializedPubKey).
		AddOp(OP_CHECKSIG).Script()
}

// PayToAddrScript 创建一个新脚本，用于向指定地址支付交易输出。
func PayToAddrScript(addr btcutil.Address) ([]byte, error) {
	const nilAddrErrStr = "unable to generate payment script for nil address"

	switch addr := addr.(type) {
	case *btcutil.AddressPubKeyHash:
		if addr == nil {
			return nil, fmt.Errorf("%w: %s", ErrUnsupportedAddress, nilAddrErrStr)
		}
		return payToPubKeyHashScript(addr.ScriptAddress())

	case *btcutil.AddressScriptHash:
		if addr == nil {
			return nil, fmt.Errorf("%w: %s", ErrUnsupportedAddress, nilAddrErrStr)
		}
		return payToScriptHashScript(addr.ScriptAddress())

	case *btcutil.AddressPubKey:
		if addr == nil {
			return nil, fmt.Errorf("%w: %s", ErrUnsupportedAddress, nilAddrErrStr)
		}
		return payToPubKeyScript(addr.ScriptAddress())

	case *btcutil.AddressWitnessPubKeyHash:
		if addr == nil {
			return nil, fmt.Errorf("%w: %s", ErrUnsupportedAddress, nilAddrErrStr)
		}
		return payToWitnessPubKeyHashScript(addr.ScriptAddress())

	case *btcutil.AddressWitnessScriptHash:
		if addr == nil {
			return nil, fmt.Errorf("%w: %s", ErrUnsupportedAddress, nilAddrErrStr)
		}
		return payToWitnessScriptHashScript(addr.ScriptAddress())
	}

	return nil, fmt.Errorf("%w: %T", ErrUnsupportedAddress, addr)
}

// NullDataScript 创建一个可证明可裁剪的脚本，包含 OP_RETURN 和其后的数据。
func NullDataScript(data []byte) ([]byte, error) {
	if len(data) > MaxDataCarrierSize {
		return nil, fmt.Errorf("%w: %d > %d", ErrTooMuchNullData, len(data),
			MaxDataCarrierSize)
	}

	return NewScriptBuilder().AddOp(OP_RETURN).AddData(data).Script()
}

// MultiSigScript 返回 nrequired-of-len(pubkeys) 多重签名的赎回脚本。
func MultiSigScript(pubkeys []*btcutil.AddressPubKey, nrequired int) ([]byte, error) {
	if len(pubkeys) < nrequired {
		return nil, fmt.Errorf("%w: %d required, %d keys",
			ErrTooManyRequiredSigs, nrequired, len(pubkeys))
	}

	builder := NewScriptBuilder().AddInt64(int64(nrequired))
	for _, key := range pubkeys {
		builder.AddData(key.ScriptAddress())
	}
	builder.AddInt64(int64(len(pubkeys)))
	builder.AddOp(OP_CHECKMULTISIG)

	return builder.Script()
}

// ExtractPkScriptAddrs 返回与公钥脚本相关的脚本类型、地址和所需签名数。
// 它只适用于标准脚本类型，无效的数据（例如公钥）会被省略。
func ExtractPkScriptAddrs(pkScript []byte,
	chainParams *chaincfg.Params) (ScriptClass, []btcutil.Address, int, error) {

	if hash := extractPubKeyHash(pkScript); hash != nil {
		var addrs []btcutil.Address
		if addr, err := btcutil.NewAddressPubKeyHash(hash, chainParams); err == nil {
			addrs = append(addrs, addr)
		}
		return PubKeyHashTy, addrs, 1, nil
	}

	if hash, ok := ParsePayToScriptHash(pkScript); ok {
		var addrs []btcutil.Address
		if addr, err := btcutil.NewAddressScriptHashFromHash(hash, chainParams); err == nil {
			addrs = append(addrs, addr)
		}
		return ScriptHashTy, addrs, 1, nil
	}

	if data := extractPubKey(pkScript); data != nil {
		var addrs []btcutil.Address
		if addr, err := btcutil.NewAddressPubKey(data, chainParams); err == nil {
			addrs = append(addrs, addr)
		}
		return PubKeyTy, addrs, 1, nil
	}

	details := extractMultisigScriptDetails(pkScript, true)
	if details.valid {
		addrs := make([]btcutil.Address, 0, len(details.pubKeys))
		for _, pubkey := range details.pubKeys {
			addr, err := btcutil.NewAddressPubKey(pubkey, chainParams)
			if err == nil {
				addrs = append(addrs, addr)
			}
		}
		return MultiSigTy, addrs, details.requiredSigs, nil
	}

	if isNullDataScript(pkScript) {
		return NullDataTy, nil, 0, nil
	}

	switch class := GetScriptClass(pkScript); class {
	case WitnessV0PubKeyHashTy:
		var addrs []btcutil.Address
		addr, err := btcutil.NewAddressWitnessPubKeyHash(pkScript[2:], chainParams)
		if err == nil {
			addrs = append(addrs, addr)
		}
		return class, addrs, 1, nil

	case WitnessV0ScriptHashTy:
		var addrs []btcutil.Address
		addr, err := btcutil.NewAddressWitnessScriptHash(pkScript[2:], chainParams)
		if err == nil {
			addrs = append(addrs, addr)
		}
		return class, addrs, 1, nil

	case WitnessUnknownTy:
		return class, nil, 1, nil
	}

	return NonStandardTy, nil, 0, nil
}
