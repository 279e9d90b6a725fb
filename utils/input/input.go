package input

import (
	"context"
	"fmt"
	"os"

	"git.fiblab.net/general/common/v2/mongoutil"
	"github.com/tsinghua-fib-lab/signet-sim/entity/roadnet"
	"github.com/tsinghua-fib-lab/signet-sim/utils/config"
	"go.mongodb.org/mongo-driver/bson"
	"gopkg.in/yaml.v2"
)

// NodeRecord 路网节点的输入记录
type NodeRecord struct {
	ID int64   `yaml:"id" bson:"id"`
	X  float64 `yaml:"x" bson:"x"`
	Y  float64 `yaml:"y" bson:"y"`
}

// EdgeRecord 路段的输入记录
// 说明：key用于区分同一对节点间的平行边；
// travel_time缺省时按长度与限速推导；congestion为初始拥堵程度
type EdgeRecord struct {
	U          int64   `yaml:"u" bson:"u"`
	V          int64   `yaml:"v" bson:"v"`
	Key        int     `yaml:"key,omitempty" bson:"key,omitempty"`
	Length     float64 `yaml:"length" bson:"length"`
	SpeedKph   float64 `yaml:"speed_kph" bson:"speed_kph"`
	TravelTime float64 `yaml:"travel_time,omitempty" bson:"travel_time,omitempty"`
	Congestion float64 `yaml:"congestion,omitempty" bson:"congestion,omitempty"`
}

// GraphData 路网输入数据
type GraphData struct {
	Nodes []NodeRecord `yaml:"nodes" bson:"nodes"`
	Edges []EdgeRecord `yaml:"edges" bson:"edges"`
}

// Load 加载路网
// 功能：根据配置从文件或MongoDB加载路网数据并构建路网图
// 说明：文件数据源优先级高于MongoDB
func Load(cfg config.Input) (*roadnet.RoadGraph, error) {
	var data *GraphData
	var err error
	switch {
	case cfg.Graph.File != "":
		data, err = loadFile(cfg.Graph.File)
	case cfg.URI != "" && cfg.Graph.DB != "" && cfg.Graph.Col != "":
		data, err = loadMongo(cfg.URI, cfg.Graph.DB, cfg.Graph.Col)
	default:
		return nil, fmt.Errorf("input: no graph source, set input.graph.file or input.uri+db+col")
	}
	if err != nil {
		return nil, err
	}
	return Build(data)
}

// loadFile 从YAML文件加载路网数据
func loadFile(file string) (*GraphData, error) {
	raw, err := os.ReadFile(file)
	if err != nil {
		return nil, fmt.Errorf("input: read graph file: %w", err)
	}
	var data GraphData
	if err := yaml.UnmarshalStrict(raw, &data); err != nil {
		return nil, fmt.Errorf("input: decode graph file %s: %w", file, err)
	}
	log.Infof("load graph from file %s", file)
	return &data, nil
}

// mongoRecord MongoDB中的路网记录
// 说明：节点与路段共用一个集合，以class字段区分
type mongoRecord struct {
	Class string      `bson:"class"`
	Node  *NodeRecord `bson:"node,omitempty"`
	Edge  *EdgeRecord `bson:"edge,omitempty"`
}

// loadMongo 从MongoDB集合加载路网数据
func loadMongo(uri, db, col string) (*GraphData, error) {
	client := mongoutil.NewClient(uri)
	defer client.Disconnect(context.Background())

	cursor, err := client.Database(db).Collection(col).Find(context.Background(), bson.D{})
	if err != nil {
		return nil, fmt.Errorf("input: query graph collection %s.%s: %w", db, col, err)
	}
	var records []mongoRecord
	if err := cursor.All(context.Background(), &records); err != nil {
		return nil, fmt.Errorf("input: decode graph collection %s.%s: %w", db, col, err)
	}
	data := &GraphData{}
	for _, r := range records {
		switch r.Class {
		case "node":
			if r.Node != nil {
				data.Nodes = append(data.Nodes, *r.Node)
			}
		case "edge":
			if r.Edge != nil {
				data.Edges = append(data.Edges, *r.Edge)
			}
		default:
			log.Warnf("unknown record class %q in %s.%s", r.Class, db, col)
		}
	}
	log.Infof("load graph from mongodb %s.%s", db, col)
	return data, nil
}

// Build 根据输入数据构建路网图
// 功能：添加全部节点与路段，应用初始拥堵程度，并做基本健康检查
func Build(data *GraphData) (*roadnet.RoadGraph, error) {
	g := roadnet.New()
	for _, n := range data.Nodes {
		if err := g.AddNode(n.ID, n.X, n.Y); err != nil {
			return nil, err
		}
	}
	congestion := make(map[roadnet.EdgeID]float64)
	for _, e := range data.Edges {
		id := roadnet.EdgeID{U: e.U, V: e.V, Key: e.Key}
		if err := g.AddEdge(id, e.Length, e.SpeedKph, e.TravelTime); err != nil {
			return nil, err
		}
		if e.Congestion > 0 {
			congestion[id] = e.Congestion
		}
	}
	g.ApplyCongestion(congestion)

	isolated := 0
	for _, node := range g.Nodes() {
		if g.Degree(node) == 0 {
			isolated++
		}
	}
	if isolated > 0 {
		log.Warnf("graph has %d isolated nodes", isolated)
	}
	log.Infof("build graph: %d nodes, %d edges", g.NodeCount(), g.EdgeCount())
	return g, nil
}
