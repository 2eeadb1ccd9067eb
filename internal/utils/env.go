// 包 utils：环境变量读取与外部连接（PostgreSQL、Redis）的统一入口
package utils

import (
	"os"
	"strconv"
)

// EnvString：读取字符串变量，未设置或为空时返回默认值
func EnvString(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

// EnvInt：读取整数变量，解析失败或为负时回退默认值
func EnvInt(key string, def int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n >= 0 {
			return n
		}
	}
	return def
}

// EnvBool：仅 "true"/"false"（及 strconv 认可的写法）生效，其余回退默认值
func EnvBool(key string, def bool) bool {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			return b
		}
	}
	return def
}
