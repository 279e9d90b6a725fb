// 信号灯策略（Q表）的持久化
package qstore

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/tsinghua-fib-lab/signet-sim/entity/signal/qlearn"
)

// Store 策略存取接口
type Store interface {
	// Load 加载指定路口的Q表，无历史策略时返回空表而非错误
	Load(id int64) (qlearn.Table, error)
	// Save 持久化指定路口的Q表
	Save(id int64, table qlearn.Table) error
}

// FileStore 基于本地文件的策略存储
// 说明：每个路口一个JSON文件（q_table_<id>.json），
// 多个训练回合间在同一目录下累积学习成果
type FileStore struct {
	dir string
}

// NewFileStore 创建文件策略存储
// 参数：dir-存储目录，不存在时自动创建
func NewFileStore(dir string) (*FileStore, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create policy dir %s: %w", dir, err)
	}
	return &FileStore{dir: dir}, nil
}

func (s *FileStore) path(id int64) string {
	return filepath.Join(s.dir, fmt.Sprintf("q_table_%d.json", id))
}

// Load 从文件加载Q表
// 说明：文件不存在视作从零开始学习，返回空表
func (s *FileStore) Load(id int64) (qlearn.Table, error) {
	data, err := os.ReadFile(s.path(id))
	if os.IsNotExist(err) {
		return qlearn.Table{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("load policy for signal %d: %w", id, err)
	}
	var table qlearn.Table
	if err := json.Unmarshal(data, &table); err != nil {
		return nil, fmt.Errorf("decode policy for signal %d: %w", id, err)
	}
	return table, nil
}

// Save 将Q表写入文件
func (s *FileStore) Save(id int64, table qlearn.Table) error {
	data, err := json.Marshal(table)
	if err != nil {
		return fmt.Errorf("encode policy for signal %d: %w", id, err)
	}
	if err := os.WriteFile(s.path(id), data, 0o644); err != nil {
		return fmt.Errorf("save policy for signal %d: %w", id, err)
	}
	return nil
}
