package qlearn

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// ErrBadKey 状态键编码无法解析
var ErrBadKey = errors.New("qlearn: malformed state key")

// State 离散状态：每个入口车道一个拥堵等级
type State []int

// Key 状态的规范编码
// 说明：以逗号连接的十进制整数序列（如"2,0,1"），空状态编码为空串；
// 相同状态产生相同键，作为Q表与持久化文件的键使用
func (s State) Key() string {
	if len(s) == 0 {
		return ""
	}
	var b strings.Builder
	for i, v := range s {
		if i > 0 {
			b.WriteByte(',')
		}
		b.WriteString(strconv.Itoa(v))
	}
	return b.String()
}

// ParseKey 解析规范编码的状态键
// 功能：Key的逆操作，仅接受逗号分隔的十进制整数序列
func ParseKey(key string) (State, error) {
	if key == "" {
		return State{}, nil
	}
	parts := strings.Split(key, ",")
	s := make(State, len(parts))
	for i, p := range parts {
		v, err := strconv.Atoi(p)
		if err != nil {
			return nil, fmt.Errorf("part %q of key %q: %w", p, key, ErrBadKey)
		}
		s[i] = v
	}
	return s, nil
}
