// 定义脚本引擎的日志记录器以及延迟求值的日志闭包。

package txscript

import "github.com/sirupsen/logrus"

// log 是脚本引擎使用的日志记录器，默认输出到 logrus 的标准记录器。
var log = logrus.WithField("module", "txscript")

// UseLogger 设置脚本引擎使用的日志记录器。
func UseLogger(logger *logrus.Entry) {
	log = logger
}

// logClosure 是一个可以用 %v 打印的闭包，只有日志级别足够时才会计算其内容。
type logClosure func() string

func (c logClosure) String() string {
	return c()
}

func newLogClosure(c func() string) logClosure {
	return logClosure(c)
}
