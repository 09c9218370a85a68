/*
 * @module service/utils/charset
 * @description 字符集转换工具，处理上游历史接口的Latin-1编码响应
 * @architecture 工具函数模式
 * @documentReference ai_docs/sync_requirements.md
 * @stateFlow 无状态转换：输入字节流 -> 解码 -> UTF-8输出
 * @rules 解码失败返回错误，由调用方决定是否降级使用原始字节
 * @dependencies golang.org/x/text/encoding/charmap, golang.org/x/text/transform
 * @refs client/sienge_client.go
 */

package utils

import (
	"bytes"
	"fmt"
	"io"
	"unicode/utf8"

	"golang.org/x/text/encoding/charmap"
	"golang.org/x/text/transform"
)

// DecodeLatin1 将ISO-8859-1编码的字节流转换为UTF-8
func DecodeLatin1(data []byte) ([]byte, error) {
	reader := transform.NewReader(bytes.NewReader(data), charmap.ISO8859_1.NewDecoder())
	decoded, err := io.ReadAll(reader)
	if err != nil {
		return nil, fmt.Errorf("Latin-1解码失败: %w", err)
	}
	return decoded, nil
}

// EncodeLatin1 将UTF-8字节流转换为ISO-8859-1，不可表示的字符报错
func EncodeLatin1(data []byte) ([]byte, error) {
	reader := transform.NewReader(bytes.NewReader(data), charmap.ISO8859_1.NewEncoder())
	encoded, err := io.ReadAll(reader)
	if err != nil {
		return nil, fmt.Errorf("Latin-1编码失败: %w", err)
	}
	return encoded, nil
}

// IsValidUTF8 检查字节流是否为合法UTF-8
func IsValidUTF8(data []byte) bool {
	return utf8.Valid(data)
}
