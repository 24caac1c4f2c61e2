package bpfsscript

import (
	"bytes"
	"crypto"
	"os"
	"os/exec"
	"runtime"
	"syscall"
	"time"

	"github.com/inconshreveable/go-update"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
)

// ApplyUpdate 用 data 替换 targetPath 指向的可执行文件，targetPath 为空时替换当前程序
// checksum 不为空时先校验 data 的 SHA256
func ApplyUpdate(targetPath string, data, checksum []byte) error {
	opts := update.Options{
		TargetPath: targetPath,
		Checksum:   checksum,
		Hash:       crypto.SHA256,
	}

	if err := update.Apply(bytes.NewReader(data), opts); err != nil {
		// 回滚到之前的版本
		if rerr := update.RollbackError(err); rerr != nil {
			return errors.Wrapf(rerr, "失败回滚到之前版本")
		}
		return errors.Wrap(err, "应用更新")
	}
	return nil
}

// Selfupdate 更新当前程序并重启
func Selfupdate(data, checksum []byte) error {
	if err := ApplyUpdate("", data, checksum); err != nil {
		return err
	}

	// 重启程序
	return RestartSelf()
}

// RestartSelf 优雅地关闭当前进程，并启动一个新的进程
func RestartSelf() error {
	// 获取可执行文件的路径
	exe, err := os.Executable()
	if err != nil {
		logrus.Printf("无法获取可执行文件路径: %v", err)
		return err
	}

	args := os.Args
	env := os.Environ()

	// 在Windows上，由于syscall.Exec不可用，需要特殊处理
	if runtime.GOOS == "windows" {
		cmd := exec.Command(exe, args[1:]...)
		cmd.Stdout = os.Stdout
		cmd.Stderr = os.Stderr
		cmd.Stdin = os.Stdin
		cmd.Env = env

		if err := cmd.Start(); err != nil {
			logrus.Printf("无法启动新进程: %v", err)
			return err
		}

		// 给一些时间让新进程启动
		time.Sleep(2 * time.Second)

		// 退出当前进程
		os.Exit(0)
	}

	// 在Linux和其他Unix系统上，使用syscall.Exec
	return syscall.Exec(exe, args, env)
}
