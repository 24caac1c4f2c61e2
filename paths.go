// 实例目录布局

package bpfsscript

import (
	"os"
	"path/filepath"
)

const (
	// DbFile 是审计数据库的文件名
	DbFile = "audit.db"
	// defaultRootName 是默认根目录的名称
	defaultRootName = ".bpfsscript"
)

// Paths 描述一个实例在根目录下使用的各个目录
type Paths struct {
	Root    string // 根目录
	Logs    string // 日志目录
	DB      string // 数据库目录
	PrevOut string // 前序输出 badger 目录
	Audit   string // 审计 sqlite 目录
	Files   string // 交易、向量和更新文件目录
}

// NewPaths 根据根目录生成目录布局
func NewPaths(root string) Paths {
	db := filepath.Join(root, "db")
	return Paths{
		Root:    root,
		Logs:    filepath.Join(root, "logs"),
		DB:      db,
		PrevOut: filepath.Join(db, "prevout"),
		Audit:   filepath.Join(db, "audit"),
		Files:   filepath.Join(root, "files"),
	}
}

// defaultRootPath 返回用户主目录下的默认根目录，取不到主目录时使用当前目录
func defaultRootPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return defaultRootName
	}
	return filepath.Join(home, defaultRootName)
}

// initDirectories 确保所有预定义的文件夹都存在
func (p Paths) initDirectories() error {
	directories := []string{
		p.Logs,    // 日志目录
		p.DB,      // 数据库目录
		p.PrevOut, // 前序输出目录
		p.Audit,   // 审计目录
		p.Files,   // 文件目录
	}

	for _, dir := range directories {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return err
		}
	}

	return nil
}
