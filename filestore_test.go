package bpfsscript

import (
	"bytes"
	"encoding/hex"
	"path/filepath"
	"testing"

	"github.com/btcsuite/btcd/chaincfg/chainhash"
	"github.com/btcsuite/btcd/wire"
	"github.com/spf13/afero"
	"github.com/stretchr/testify/require"
)

func TestFileStore(t *testing.T) {
	t.Parallel()

	fs, err := NewFileStoreWithFs(afero.NewMemMapFs(), "/base")
	require.NoError(t, err)

	require.NoError(t, fs.CreateFile("sub", "empty"))
	data, err := fs.ReadFile(filepath.Join("sub", "empty"))
	require.NoError(t, err)
	require.Empty(t, data)

	require.NoError(t, fs.WriteFile("a/b/c.txt", []byte("hello")))
	data, err = fs.ReadFile("/base/a/b/c.txt")
	require.NoError(t, err)
	require.Equal(t, []byte("hello"), data)

	_, err = fs.ReadFile("missing")
	require.Error(t, err)

	require.NoError(t, fs.WriteFile("hex", []byte(" 00ff10\n")))
	decoded, err := fs.ReadHexFile("hex")
	require.NoError(t, err)
	require.Equal(t, []byte{0x00, 0xff, 0x10}, decoded)

	require.NoError(t, fs.WriteFile("badhex", []byte("zz")))
	_, err = fs.ReadHexFile("badhex")
	require.Error(t, err)
}

func TestFileStoreReadTx(t *testing.T) {
	t.Parallel()

	fs, err := NewFileStoreWithFs(afero.NewMemMapFs(), "/txs")
	require.NoError(t, err)

	tx := wire.NewMsgTx(wire.TxVersion)
	tx.AddTxIn(wire.NewTxIn(wire.NewOutPoint(&chainhash.Hash{3}, 1), []byte{0x51},
		wire.TxWitness{{0x01, 0x02}}))
	tx.AddTxOut(wire.NewTxOut(42, []byte{0x51}))

	var buf bytes.Buffer
	require.NoError(t, tx.Serialize(&buf))
	require.NoError(t, fs.WriteFile("tx.hex", []byte(hex.EncodeToString(buf.Bytes()))))

	got, err := fs.ReadTx("tx.hex")
	require.NoError(t, err)
	require.Equal(t, tx.TxHash(), got.TxHash())
	require.Equal(t, tx.TxIn[0].Witness, got.TxIn[0].Witness)

	_, err = DecodeTx([]byte{0x01})
	require.Error(t, err)
}
