package bpfsscript

import (
	"strconv"
	"strings"

	"github.com/sirupsen/logrus"
)

// Version 是当前程序的版本号
const Version = "0.1.0"

// CompareVersions 比较两个版本号，如果v1 < v2返回-1，如果v1 == v2返回0，如果v1 > v2返回1
// 无法解析的版本号视为相同
func CompareVersions(v1, v2 string) int {
	v1Parts := strings.Split(strings.TrimPrefix(v1, "v"), ".")
	v2Parts := strings.Split(strings.TrimPrefix(v2, "v"), ".")

	for i := 0; i < len(v1Parts) || i < len(v2Parts); i++ {
		var v1Part, v2Part int
		var err error

		if i < len(v1Parts) {
			v1Part, err = strconv.Atoi(v1Parts[i])
			if err != nil {
				logrus.Warnf("版本解析错误: %v", err)
				return 0
			}
		}

		if i < len(v2Parts) {
			v2Part, err = strconv.Atoi(v2Parts[i])
			if err != nil {
				logrus.Warnf("版本解析错误: %v", err)
				return 0
			}
		}

		if v1Part < v2Part {
			return -1
		} else if v1Part > v2Part {
			return 1
		}
	}

	return 0
}

// IsNewerVersion 判断 available 是否比当前版本新
func IsNewerVersion(available string) bool {
	return CompareVersions(Version, available) < 0
}
