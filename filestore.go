// 定义文件存储，用于读写交易、测试向量和更新包

package bpfsscript

import (
	"bytes"
	"encoding/hex"
	"path/filepath"

	"github.com/btcsuite/btcd/wire"
	"github.com/pkg/errors"
	"github.com/spf13/afero"
)

// FileStore 封装了文件存储的操作
type FileStore struct {
	Fs       afero.Fs
	BasePath string
}

// NewFileStore 在操作系统文件系统上创建一个新的FileStore实例
func NewFileStore(basePath string) (*FileStore, error) {
	return NewFileStoreWithFs(afero.NewOsFs(), basePath)
}

// NewFileStoreWithFs 使用指定的文件系统创建FileStore实例
func NewFileStoreWithFs(fs afero.Fs, basePath string) (*FileStore, error) {
	if err := fs.MkdirAll(basePath, 0755); err != nil {
		return nil, errors.Wrap(err, "failed to create base directory")
	}
	return &FileStore{Fs: fs, BasePath: basePath}, nil
}

// path 返回文件的完整路径，绝对路径原样返回
func (fs *FileStore) path(name string) string {
	if filepath.IsAbs(name) {
		return name
	}
	return filepath.Join(fs.BasePath, name)
}

// CreateFile 在指定子目录创建一个新文件
func (fs *FileStore) CreateFile(subDir, fileName string) error {
	dir := filepath.Join(fs.BasePath, subDir)
	if err := fs.Fs.MkdirAll(dir, 0755); err != nil {
		return errors.Wrap(err, "failed to create directory")
	}
	file, err := fs.Fs.Create(filepath.Join(dir, fileName))
	if err != nil {
		return errors.Wrap(err, "failed to create file")
	}
	return file.Close()
}

// WriteFile 写入文件，必要时创建上级目录
func (fs *FileStore) WriteFile(name string, data []byte) error {
	path := fs.path(name)
	if err := fs.Fs.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return errors.Wrap(err, "failed to create directory")
	}
	return errors.Wrap(afero.WriteFile(fs.Fs, path, data, 0644), "failed to write file")
}

// ReadFile 读取文件内容
func (fs *FileStore) ReadFile(name string) ([]byte, error) {
	data, err := afero.ReadFile(fs.Fs, fs.path(name))
	if err != nil {
		return nil, errors.Wrapf(err, "failed to read %s", name)
	}
	return data, nil
}

// ReadHexFile 读取十六进制文本文件并解码，忽略首尾空白
func (fs *FileStore) ReadHexFile(name string) ([]byte, error) {
	data, err := fs.ReadFile(name)
	if err != nil {
		return nil, err
	}
	decoded, err := hex.DecodeString(string(bytes.TrimSpace(data)))
	if err != nil {
		return nil, errors.Wrapf(err, "failed to decode hex in %s", name)
	}
	return decoded, nil
}

// ReadTx 读取十六进制编码的交易文件
func (fs *FileStore) ReadTx(name string) (*wire.MsgTx, error) {
	raw, err := fs.ReadHexFile(name)
	if err != nil {
		return nil, err
	}
	return DecodeTx(raw)
}

// DecodeTx 反序列化交易，兼容带见证和不带见证的编码
func DecodeTx(raw []byte) (*wire.MsgTx, error) {
	tx := new(wire.MsgTx)
	if err := tx.Deserialize(bytes.NewReader(raw)); err != nil {
		return nil, errors.Wrap(err, "failed to deserialize transaction")
	}
	return tx, nil
}
