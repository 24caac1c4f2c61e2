package bpfsscript

import (
	"time"

	"github.com/pkg/errors"
)

const (
	auditTable = "audit" // 审计表名
)

// InitDBTable 数据库表
func (s *SqliteDB) InitDBTable() error {
	// 创建审计表
	if err := s.createAuditTable(); err != nil {
		return err
	}

	return nil
}

// createAuditTable 创建审计表
func (s *SqliteDB) createAuditTable() error {
	table := []string{
		"id INTEGER PRIMARY KEY AUTOINCREMENT", // 自增长主键
		"txid VARCHAR(64)",                     // 交易哈希
		"inputIndex INTEGER",                   // 输入下标
		"flags VARCHAR(300)",                   // 验证标志
		"result VARCHAR(60)",                   // 结果名称
		"errMsg TEXT",                          // 错误描述
		"createdAt INTEGER",                    // 验证时间，Unix 纳秒
	}

	if err := s.CreateTable(auditTable, table); err != nil {
		return errors.Wrap(err, "创建审计表")
	}

	return nil
}

// AuditRecord 是一次输入验证的审计记录
type AuditRecord struct {
	Id         int       // 自增长主键
	TxID       string    // 交易哈希
	InputIndex int       // 输入下标
	Flags      string    // 验证标志
	Result     string    // 结果名称，成功为 OK
	ErrMsg     string    // 错误描述
	CreatedAt  time.Time // 验证时间
}

// Save 保存审计记录到数据库
func (ar *AuditRecord) Save(s *SqliteDB) error {
	data := map[string]interface{}{
		"txid":       ar.TxID,
		"inputIndex": ar.InputIndex,
		"flags":      ar.Flags,
		"result":     ar.Result,
		"errMsg":     ar.ErrMsg,
		"createdAt":  ar.CreatedAt.UnixNano(),
	}

	if err := s.Insert(auditTable, data); err != nil {
		return errors.Wrap(err, "保存审计记录")
	}

	return nil
}

// ExistsAuditRecord 判断交易输入是否有审计记录
func ExistsAuditRecord(s *SqliteDB, txid string, inputIndex int) (bool, error) {
	conditions := []string{"txid=?", "inputIndex=?"} // 查询条件
	args := []interface{}{txid, inputIndex}          // 查询条件对应的值
	return s.Exists(auditTable, conditions, args)
}

// ListAuditRecords 按时间倒序返回审计记录，txid 不为空时只返回该交易的记录
func ListAuditRecords(s *SqliteDB, txid string, limit int) ([]*AuditRecord, error) {
	var conditions []string
	var args []interface{}
	if txid != "" {
		conditions = append(conditions, "txid=?")
		args = append(args, txid)
	}

	columns := []string{"id", "txid", "inputIndex", "flags", "result", "errMsg", "createdAt"}
	rows, err := s.Query(auditTable, columns, conditions, args, "id DESC", limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var records []*AuditRecord
	for rows.Next() {
		var ar AuditRecord
		var createdAt int64
		if err := rows.Scan(&ar.Id, &ar.TxID, &ar.InputIndex, &ar.Flags,
			&ar.Result, &ar.ErrMsg, &createdAt); err != nil {

			return nil, errors.Wrap(err, "读取审计记录")
		}
		ar.CreatedAt = time.Unix(0, createdAt)
		records = append(records, &ar)
	}

	return records, errors.Wrap(rows.Err(), "遍历审计记录")
}
