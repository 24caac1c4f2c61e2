package bpfsscript

import (
	"bytes"
	"crypto/rand"
	"encoding/binary"
	"encoding/gob"
	"fmt"
	"math/big"
	"os"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/mattn/go-colorable"
	"github.com/pkg/errors"
	"github.com/qinglongcn/bpfsscript/txscript"
	"github.com/sirupsen/logrus"
	"github.com/snowzach/rotatefilehook"
	"github.com/vrecan/death/v3"
)

// EncodeToBytes 使用 gob 编码将任意数据转换为 []byte
func EncodeToBytes(data interface{}) ([]byte, error) {
	var buffer bytes.Buffer
	encoder := gob.NewEncoder(&buffer)

	if err := encoder.Encode(data); err != nil {
		return nil, err
	}

	return buffer.Bytes(), nil
}

// DecodeFromBytes 使用 gob 解码将 []byte 转换为指定的数据结构
func DecodeFromBytes(data []byte, result interface{}) error {
	decoder := gob.NewDecoder(bytes.NewBuffer(data))
	return decoder.Decode(result)
}

// ToBytes 泛型函数，用于将定长数据按小端序转换为 []byte
func ToBytes[T any](data T) []byte {
	var buf bytes.Buffer

	switch v := any(data).(type) {
	case int:
		// 转换 int 为 int64 以确保一致性
		if err := binary.Write(&buf, binary.LittleEndian, int64(v)); err != nil {
			panic(err)
		}
	default:
		if err := binary.Write(&buf, binary.LittleEndian, data); err != nil {
			panic(err)
		}
	}

	return buf.Bytes()
}

// FromBytes 泛型函数，用于将 []byte 转换回指定类型
func FromBytes[T any](data []byte) (T, error) {
	var value T
	err := binary.Read(bytes.NewReader(data), binary.LittleEndian, &value)
	return value, err
}

// WaitForShutdown 阻塞直到收到终止信号，然后执行清理函数
// 同步执行：阻塞，直到收到程序终止信号
// 异步执行：启动协程，命令运行期间收到终止信号时关闭数据库并退出
func WaitForShutdown(cleanup func()) {
	// syscall.SIGINT ctr+c触发
	// syscall.SIGTERM 当前进程被kill
	d := death.NewDeath(syscall.SIGINT, syscall.SIGTERM, os.Interrupt)
	d.WaitForDeathWithFunc(cleanup)
}

const (
	logName = "console"
)

// SetLog 为每一个实例创建一个log文件，记录日志信息
func SetLog(logsDir, instanceId string, level logrus.Level) error {
	filename := filepath.Join(logsDir, fmt.Sprintf("%s.log", logName))
	if instanceId != "" {
		filename = filepath.Join(logsDir, fmt.Sprintf("%s_%s.log", logName, instanceId))
	}
	// logrus 的回调钩子
	rotateFileHook, err := rotatefilehook.NewRotateFileHook(rotatefilehook.RotateFileConfig{
		Filename:   filename,
		MaxSize:    50, // 文件最大50M
		MaxBackups: 3,
		MaxAge:     28, // 存储28天
		Level:      level,
		Formatter: &logrus.JSONFormatter{
			TimestampFormat: "2006-01-02 15:04:05",
		},
	})
	if err != nil {
		return errors.Wrap(err, "初始化文件回调钩子失败")
	}

	logrus.SetLevel(level)
	logrus.SetOutput(colorable.NewColorableStdout())
	logrus.SetFormatter(&logrus.TextFormatter{
		ForceColors:     true,
		FullTimestamp:   true,
		TimestampFormat: time.RFC822,
	})
	logrus.AddHook(rotateFileHook)

	// 脚本引擎的日志带上实例标识
	txscript.UseLogger(logrus.WithFields(logrus.Fields{
		"module":   "txscript",
		"instance": instanceId,
	}))
	return nil
}

// generateRandomString 生成一个指定长度的随机字符串
func generateRandomString(length int) (string, error) {
	const letters = "0123456789ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz"
	var result strings.Builder
	for i := 0; i < length; i++ {
		num, err := rand.Int(rand.Reader, big.NewInt(int64(len(letters))))
		if err != nil {
			return "", err
		}
		result.WriteByte(letters[num.Int64()])
	}
	return result.String(), nil
}
