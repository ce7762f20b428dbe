package util

import (
	"crypto/md5"
	"encoding/hex"
)

// MD5 返回文本MD5摘要的十六进制表示，用作导出文档的校验和
func MD5(text string) string {
	sum := md5.Sum([]byte(text))
	return hex.EncodeToString(sum[:])
}
