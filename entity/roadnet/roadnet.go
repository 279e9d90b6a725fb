// 路网模块，维护有向多重图形式的道路网络
// 节点为路口，边为有向路段，边上携带长度、限速、通行时间与实时拥堵程度
package roadnet

import (
	"errors"
	"fmt"
	"math"
	"sort"

	"git.fiblab.net/general/common/v2/geometry"
	"github.com/samber/lo"
	"gonum.org/v1/gonum/graph"
	"gonum.org/v1/gonum/graph/path"
	"gonum.org/v1/gonum/graph/simple"
)

var (
	// ErrInvalidGraph 路网数据缺失必要属性（构建期致命错误）
	ErrInvalidGraph = errors.New("roadnet: invalid graph data")
	// ErrNoPath 起终点之间不存在可达路径
	ErrNoPath = errors.New("roadnet: no path between nodes")
)

// EdgeID 有向边的唯一标识
// 说明：路网为多重图，Key用于区分同一对节点间的平行边；
// 车辆排队、拥堵查询、信控仲裁统一使用该类型，不存在(u,v)与(u,v,key)双轨记账
type EdgeID struct {
	U   int64 // 起点节点ID
	V   int64 // 终点节点ID
	Key int   // 平行边序号，默认0
}

// SameRoad 判断两条边是否为同一对起终点
// 说明：信号灯绿灯判定只比较(u,v)，忽略平行边序号
func (e EdgeID) SameRoad(other EdgeID) bool {
	return e.U == other.U && e.V == other.V
}

func (e EdgeID) String() string {
	if e.Key == 0 {
		return fmt.Sprintf("%d->%d", e.U, e.V)
	}
	return fmt.Sprintf("%d->%d#%d", e.U, e.V, e.Key)
}

// Node 路口节点
type Node struct {
	id int64
	xy geometry.Point
}

func (n *Node) ID() int64          { return n.id }
func (n *Node) XY() geometry.Point { return n.xy }

// Edge 有向路段
type Edge struct {
	id         EdgeID
	length     float64 // 长度（米）
	speedKph   float64 // 限速（km/h）
	travelTime float64 // 通行时间（秒）
	congestion float64 // 拥堵程度，[0,1]，越大越拥堵，由外部路况数据更新
}

func (e *Edge) ID() EdgeID          { return e.id }
func (e *Edge) Length() float64     { return e.length }
func (e *Edge) SpeedKph() float64   { return e.speedKph }
func (e *Edge) TravelTime() float64 { return e.travelTime }
func (e *Edge) Congestion() float64 { return e.congestion }

// RoadGraph 路网
// 功能：存储节点与多重边的属性，并维护一份用于路径规划的gonum有权图
// 说明：构建完成后拓扑只读，运行期唯一的写入是边的拥堵属性更新（两步之间）
type RoadGraph struct {
	nodes map[int64]*Node
	edges map[EdgeID]*Edge
	in    map[int64][]*Edge // 进入每个节点的边（确定性排序）
	out   map[int64][]*Edge // 离开每个节点的边（确定性排序）

	// 路径规划用有权图：每对(u,v)只保留长度最短的平行边
	routing  *simple.WeightedDirectedGraph
	bestEdge map[[2]int64]*Edge
}

// New 创建空路网
func New() *RoadGraph {
	return &RoadGraph{
		nodes:    make(map[int64]*Node),
		edges:    make(map[EdgeID]*Edge),
		in:       make(map[int64][]*Edge),
		out:      make(map[int64][]*Edge),
		routing:  simple.NewWeightedDirectedGraph(0, math.Inf(1)),
		bestEdge: make(map[[2]int64]*Edge),
	}
}

// AddNode 添加路口节点
// 参数：id-节点ID，x/y-平面坐标
func (g *RoadGraph) AddNode(id int64, x, y float64) error {
	if _, ok := g.nodes[id]; ok {
		return fmt.Errorf("duplicated node %d: %w", id, ErrInvalidGraph)
	}
	g.nodes[id] = &Node{id: id, xy: geometry.Point{X: x, Y: y}}
	g.routing.AddNode(simple.Node(id))
	return nil
}

// AddEdge 添加有向路段
// 功能：校验必要属性并维护进出边索引与路径规划图
// 参数：travelTime非正时按 length/1000/speedKph*3600 推导
func (g *RoadGraph) AddEdge(id EdgeID, length, speedKph, travelTime float64) error {
	if _, ok := g.nodes[id.U]; !ok {
		return fmt.Errorf("edge %v references unknown node %d: %w", id, id.U, ErrInvalidGraph)
	}
	if _, ok := g.nodes[id.V]; !ok {
		return fmt.Errorf("edge %v references unknown node %d: %w", id, id.V, ErrInvalidGraph)
	}
	if _, ok := g.edges[id]; ok {
		return fmt.Errorf("duplicated edge %v: %w", id, ErrInvalidGraph)
	}
	if length <= 0 || math.IsInf(length, 0) || math.IsNaN(length) {
		return fmt.Errorf("edge %v: length must be positive, got %v: %w", id, length, ErrInvalidGraph)
	}
	if speedKph <= 0 || math.IsInf(speedKph, 0) || math.IsNaN(speedKph) {
		return fmt.Errorf("edge %v: speed_kph must be positive, got %v: %w", id, speedKph, ErrInvalidGraph)
	}
	if travelTime <= 0 {
		travelTime = length / 1000 / speedKph * 3600
	}
	e := &Edge{
		id:         id,
		length:     length,
		speedKph:   speedKph,
		travelTime: travelTime,
	}
	g.edges[id] = e
	g.in[id.V] = insertSorted(g.in[id.V], e)
	g.out[id.U] = insertSorted(g.out[id.U], e)

	// 自环不参与路径规划（简单有权图不支持，最短路径中也不会出现）
	if id.U != id.V {
		key := [2]int64{id.U, id.V}
		if best, ok := g.bestEdge[key]; !ok || e.length < best.length {
			g.bestEdge[key] = e
			g.routing.SetWeightedEdge(simple.WeightedEdge{
				F: simple.Node(id.U),
				T: simple.Node(id.V),
				W: e.length,
			})
		}
	}
	return nil
}

// insertSorted 按(U,V,Key)插入，保证进出边列表的确定性顺序
func insertSorted(edges []*Edge, e *Edge) []*Edge {
	edges = append(edges, e)
	sort.Slice(edges, func(i, j int) bool {
		a, b := edges[i].id, edges[j].id
		if a.U != b.U {
			return a.U < b.U
		}
		if a.V != b.V {
			return a.V < b.V
		}
		return a.Key < b.Key
	})
	return edges
}

// HasNode 判断节点是否存在
func (g *RoadGraph) HasNode(id int64) bool {
	_, ok := g.nodes[id]
	return ok
}

// Node 获取节点
func (g *RoadGraph) Node(id int64) (*Node, bool) {
	n, ok := g.nodes[id]
	return n, ok
}

// Edge 获取边
func (g *RoadGraph) Edge(id EdgeID) (*Edge, bool) {
	e, ok := g.edges[id]
	return e, ok
}

// Nodes 获取全部节点ID（升序）
// 说明：固定迭代顺序，保证随机采样结果可复现
func (g *RoadGraph) Nodes() []int64 {
	ids := lo.Keys(g.nodes)
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}

// NodeCount 节点数
func (g *RoadGraph) NodeCount() int { return len(g.nodes) }

// EdgeCount 边数（含平行边）
func (g *RoadGraph) EdgeCount() int { return len(g.edges) }

// InEdges 获取进入指定节点的边ID列表
// 说明：顺序在构建后固定，是信号灯动作空间的定义顺序
func (g *RoadGraph) InEdges(node int64) []EdgeID {
	return lo.Map(g.in[node], func(e *Edge, _ int) EdgeID { return e.id })
}

// Degree 节点度数（入度+出度，含平行边）
// 说明：度数大于2的节点视作需要信控的路口
func (g *RoadGraph) Degree(node int64) int {
	return len(g.in[node]) + len(g.out[node])
}

// Congestion 查询边的拥堵程度
// 返回：[0,1]内的拥堵值，边不存在或无数据时为0
func (g *RoadGraph) Congestion(id EdgeID) float64 {
	if e, ok := g.edges[id]; ok {
		return lo.Clamp(e.congestion, 0, 1)
	}
	return 0
}

// ApplyCongestion 批量更新边的拥堵程度
// 功能：外部路况数据源在两个模拟步之间调用，取值截断到[0,1]
// 返回：实际更新的边数
func (g *RoadGraph) ApplyCongestion(values map[EdgeID]float64) int {
	updated := 0
	for id, v := range values {
		e, ok := g.edges[id]
		if !ok {
			continue
		}
		if math.IsNaN(v) {
			continue
		}
		e.congestion = lo.Clamp(v, 0, 1)
		updated++
	}
	return updated
}

// CountCongested 统计拥堵程度超过阈值的边数
func (g *RoadGraph) CountCongested(threshold float64) int {
	n := 0
	for _, e := range g.edges {
		if e.congestion > threshold {
			n++
		}
	}
	return n
}

// ShortestPath 按长度计算最短路径
// 功能：返回节点序列以及逐跳解析后的具体边ID（每跳取长度最短的平行边）
// 返回：节点路径、边路径、错误（不可达时为ErrNoPath）
func (g *RoadGraph) ShortestPath(source, destination int64) ([]int64, []EdgeID, error) {
	if _, ok := g.nodes[source]; !ok {
		return nil, nil, fmt.Errorf("unknown source node %d: %w", source, ErrInvalidGraph)
	}
	if _, ok := g.nodes[destination]; !ok {
		return nil, nil, fmt.Errorf("unknown destination node %d: %w", destination, ErrInvalidGraph)
	}
	shortest := path.DijkstraFrom(g.routing.Node(source), g.routing)
	nodes, weight := shortest.To(destination)
	if math.IsInf(weight, 1) || len(nodes) == 0 {
		return nil, nil, fmt.Errorf("from %d to %d: %w", source, destination, ErrNoPath)
	}
	ids := lo.Map(nodes, func(n graph.Node, _ int) int64 { return n.ID() })
	edges := make([]EdgeID, 0, len(ids)-1)
	for i := 0; i+1 < len(ids); i++ {
		edges = append(edges, g.bestEdge[[2]int64{ids[i], ids[i+1]}].id)
	}
	return ids, edges, nil
}
