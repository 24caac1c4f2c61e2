// 前序输出库：以 badger 保存 outpoint 到被花费输出（金额和公钥脚本）的映射

package bpfsscript

import (
	"os"
	"path/filepath"
	"strings"
	"sync"
	"syscall"
	"time"

	"github.com/btcsuite/btcd/wire"
	"github.com/dgraph-io/badger/v4"
	"github.com/pkg/errors"
	"github.com/qinglongcn/bpfsscript/txscript"
	"github.com/sirupsen/logrus"
)

var (
	prevOutPrefix = []byte("prevout-") // 键值前缀

	// ErrPrevOutNotFound 表示库中没有所需的前序输出
	ErrPrevOutNotFound = errors.New("前序输出不存在")
)

// prevOutRecord 是保存在库中的值
type prevOutRecord struct {
	Value    int64  // 金额，单位聪
	PkScript []byte // 公钥脚本
}

// PrevOutStore 保存验证输入时需要的前序输出
type PrevOutStore struct {
	mu       sync.Mutex // 保护写入
	Database *badger.DB // 数据库的句柄
}

var _ txscript.PrevOutputFetcher = (*PrevOutStore)(nil)

// OpenPrevOutStore 打开位于 path 的前序输出库，inMemory 为 true 时不落盘
func OpenPrevOutStore(path string, inMemory bool) (*PrevOutStore, error) {
	var opts badger.Options
	if inMemory {
		opts = badger.DefaultOptions("").WithInMemory(true)
	} else {
		opts = badger.DefaultOptions(path) // 设置 Badger 数据库选项
		opts.ValueDir = path
	}
	opts = opts.WithLoggingLevel(badger.WARNING)

	db, err := openDB(path, opts)
	if err != nil {
		return nil, errors.Wrap(err, "打开前序输出库")
	}
	return &PrevOutStore{Database: db}, nil
}

// prevOutKey 由前缀、交易哈希和小端序输出下标组成
func prevOutKey(op wire.OutPoint) []byte {
	key := make([]byte, 0, len(prevOutPrefix)+len(op.Hash)+4)
	key = append(key, prevOutPrefix...)
	key = append(key, op.Hash[:]...)
	return append(key, ToBytes(op.Index)...)
}

// putTxn 在事务中写入一条前序输出
func putTxn(txn *badger.Txn, op wire.OutPoint, txOut *wire.TxOut) error {
	value, err := EncodeToBytes(prevOutRecord{Value: txOut.Value, PkScript: txOut.PkScript})
	if err != nil {
		return err
	}
	return txn.Set(prevOutKey(op), value)
}

// Put 保存一条前序输出
func (s *PrevOutStore) Put(op wire.OutPoint, txOut *wire.TxOut) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.Database.Update(func(txn *badger.Txn) error {
		return putTxn(txn, op, txOut)
	})
}

// PutTx 在一个事务中保存交易的全部输出，返回写入的条数
func (s *PrevOutStore) PutTx(tx *wire.MsgTx) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	txHash := tx.TxHash()
	err := s.Database.Update(func(txn *badger.Txn) error {
		for i, txOut := range tx.TxOut {
			op := wire.OutPoint{Hash: txHash, Index: uint32(i)}
			if err := putTxn(txn, op, txOut); err != nil {
				return errors.Wrapf(err, "保存输出 %v", op)
			}
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	return len(tx.TxOut), nil
}

// Get 读取一条前序输出，不存在时返回 ErrPrevOutNotFound
func (s *PrevOutStore) Get(op wire.OutPoint) (*wire.TxOut, error) {
	var record prevOutRecord
	err := s.Database.View(func(txn *badger.Txn) error {
		item, err := txn.Get(prevOutKey(op))
		if err != nil {
			if err == badger.ErrKeyNotFound {
				return errors.Wrapf(ErrPrevOutNotFound, "%v", op)
			}
			return err
		}

		value, err := item.ValueCopy(nil)
		if err != nil {
			return err
		}
		return DecodeFromBytes(value, &record)
	})
	if err != nil {
		return nil, err
	}

	return wire.NewTxOut(record.Value, record.PkScript), nil
}

// FetchPrevOutput 实现 txscript.PrevOutputFetcher，找不到或读取失败时返回 nil
func (s *PrevOutStore) FetchPrevOutput(op wire.OutPoint) *wire.TxOut {
	txOut, err := s.Get(op)
	if err != nil {
		if errors.Cause(err) != ErrPrevOutNotFound {
			logrus.Errorf("[FetchPrevOutput] 读取 %v 失败: %v", op, err)
		}
		return nil
	}
	return txOut
}

// Delete 删除一条前序输出
func (s *PrevOutStore) Delete(op wire.OutPoint) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.Database.Update(func(txn *badger.Txn) error {
		return txn.Delete(prevOutKey(op))
	})
}

// Len 返回库中前序输出的条数
func (s *PrevOutStore) Len() (int, error) {
	count := 0
	err := s.Database.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		// 只需要键
		opts.PrefetchValues = false
		it := txn.NewIterator(opts)
		defer it.Close()

		for it.Seek(prevOutPrefix); it.ValidForPrefix(prevOutPrefix); it.Next() {
			count++
		}
		return nil
	})
	return count, err
}

// Close 关闭数据库
func (s *PrevOutStore) Close() error {
	return s.Database.Close()
}

// openDB 打开数据库，如果因为存在 LOCK 文件打开失败，执行 retry 确保打开
func openDB(path string, opts badger.Options) (*badger.DB, error) {
	db, err := badger.Open(opts)
	if err != nil && strings.Contains(err.Error(), "LOCK") {
		db, err = retry(path, opts)
		if err != nil {
			return nil, errors.Wrap(err, "无法解锁数据库")
		}
		return db, nil
	} else if err != nil {
		return nil, err
	}
	return db, nil
}

// retry 删除 lock 文件，并再次尝试打开数据库
func retry(path string, opts badger.Options) (*badger.DB, error) {
	lockPath := filepath.Join(path, "LOCK")

	// 检查锁文件是否可以安全删除
	if err := checkLock(lockPath); err != nil {
		return nil, err
	}

	if err := os.Remove(lockPath); err != nil {
		return nil, errors.Wrap(err, "移除 LOCK")
	}

	var db *badger.DB
	var err error
	for i := 0; i < 3; i++ {
		db, err = badger.Open(opts)
		if err == nil {
			return db, nil
		}
		logrus.Errorf("打开数据库失败，%d 秒后重试", i+1)
		time.Sleep(time.Duration(i+1) * time.Second)
	}

	return nil, errors.Wrap(err, "打开数据库失败")
}

// checkLock 检查锁文件是否可以安全删除
func checkLock(path string) error {
	file, err := os.Open(path)
	if err != nil {
		return errors.Wrap(err, "打开 LOCK 文件失败")
	}
	defer file.Close()

	// 尝试获取文件锁
	err = syscall.Flock(int(file.Fd()), syscall.LOCK_EX|syscall.LOCK_NB)
	if err != nil {
		return errors.Wrap(err, "数据库正被其他进程使用")
	}
	return syscall.Flock(int(file.Fd()), syscall.LOCK_UN)
}
