// sqlite 数据库的通用操作

package bpfsscript

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	_ "github.com/mattn/go-sqlite3"
	"github.com/pkg/errors"
)

// SqliteDB 封装了 sqlite 数据库连接
type SqliteDB struct {
	mu sync.Mutex
	DB *sql.DB
}

// NewSqliteDB 在 dir 目录下打开或创建名为 file 的数据库，file 为 ":memory:" 时使用内存库
func NewSqliteDB(dir, file string) (*SqliteDB, error) {
	dsn := file
	if file != ":memory:" {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, errors.Wrap(err, "创建数据库目录")
		}
		dsn = filepath.Join(dir, file)
	}

	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, errors.Wrapf(err, "打开数据库 %s", dsn)
	}
	// sqlite 只允许一个写入者，内存库的每个连接也是独立的库
	db.SetMaxOpenConns(1)

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, errors.Wrapf(err, "连接数据库 %s", dsn)
	}

	return &SqliteDB{DB: db}, nil
}

// CreateTable 创建表，表已存在时不做任何事
func (s *SqliteDB) CreateTable(name string, columns []string) error {
	query := fmt.Sprintf("CREATE TABLE IF NOT EXISTS %s (%s)", name,
		strings.Join(columns, ", "))
	if _, err := s.DB.Exec(query); err != nil {
		return errors.Wrapf(err, "创建表 %s", name)
	}
	return nil
}

// Insert 插入一行数据，键为列名
func (s *SqliteDB) Insert(table string, data map[string]interface{}) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	// 列名排序，保证生成的语句稳定
	columns := make([]string, 0, len(data))
	for column := range data {
		columns = append(columns, column)
	}
	sort.Strings(columns)

	placeholders := make([]string, len(columns))
	args := make([]interface{}, len(columns))
	for i, column := range columns {
		placeholders[i] = "?"
		args[i] = data[column]
	}

	query := fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s)", table,
		strings.Join(columns, ", "), strings.Join(placeholders, ", "))
	if _, err := s.DB.Exec(query, args...); err != nil {
		return errors.Wrapf(err, "插入表 %s", table)
	}
	return nil
}

// whereClause 用 AND 连接查询条件
func whereClause(conditions []string) string {
	if len(conditions) == 0 {
		return ""
	}
	return " WHERE " + strings.Join(conditions, " AND ")
}

// Exists 判断满足条件的行是否存在
func (s *SqliteDB) Exists(table string, conditions []string, args []interface{}) (bool, error) {
	query := fmt.Sprintf("SELECT EXISTS(SELECT 1 FROM %s%s)", table,
		whereClause(conditions))

	var exists bool
	if err := s.DB.QueryRow(query, args...).Scan(&exists); err != nil {
		return false, errors.Wrapf(err, "查询表 %s", table)
	}
	return exists, nil
}

// Query 查询满足条件的行，orderBy 为空时不排序，limit 小于等于 0 时不限制条数
func (s *SqliteDB) Query(table string, columns, conditions []string,
	args []interface{}, orderBy string, limit int) (*sql.Rows, error) {

	query := fmt.Sprintf("SELECT %s FROM %s%s", strings.Join(columns, ", "),
		table, whereClause(conditions))
	if orderBy != "" {
		query += " ORDER BY " + orderBy
	}
	if limit > 0 {
		query += fmt.Sprintf(" LIMIT %d", limit)
	}

	rows, err := s.DB.Query(query, args...)
	if err != nil {
		return nil, errors.Wrapf(err, "查询表 %s", table)
	}
	return rows, nil
}

// Close 关闭数据库
func (s *SqliteDB) Close() error {
	return s.DB.Close()
}
