package input

import "github.com/sirupsen/logrus"

// log 输入模块的日志记录器
var log = logrus.WithField("module", "input")
