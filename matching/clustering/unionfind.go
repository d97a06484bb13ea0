package clustering

// UnionFind структура непересекающихся множеств над индексами арены.
// Листинги представлены целыми индексами в массиве parent — без
// графов на указателях. Амортизированно почти O(1) на операцию.
type UnionFind struct {
	parent []int
	rank   []int
	count  int // число компонент
}

// NewUnionFind создает структуру для n элементов, каждый в своей компоненте
func NewUnionFind(n int) *UnionFind {
	uf := &UnionFind{
		parent: make([]int, n),
		rank:   make([]int, n),
		count:  n,
	}
	for i := range uf.parent {
		uf.parent[i] = i
	}
	return uf
}

// Find возвращает корень компоненты элемента x (со сжатием пути)
func (uf *UnionFind) Find(x int) int {
	for uf.parent[x] != x {
		uf.parent[x] = uf.parent[uf.parent[x]] // сжатие пути делением пополам
		x = uf.parent[x]
	}
	return x
}

// Union объединяет компоненты элементов x и y.
// Возвращает false, если элементы уже были в одной компоненте.
func (uf *UnionFind) Union(x, y int) bool {
	rootX := uf.Find(x)
	rootY := uf.Find(y)
	if rootX == rootY {
		return false
	}

	// Объединение по рангу: меньшее дерево под большее
	if uf.rank[rootX] < uf.rank[rootY] {
		rootX, rootY = rootY, rootX
	}
	uf.parent[rootY] = rootX
	if uf.rank[rootX] == uf.rank[rootY] {
		uf.rank[rootX]++
	}

	uf.count--
	return true
}

// Connected проверяет, лежат ли элементы в одной компоненте
func (uf *UnionFind) Connected(x, y int) bool {
	return uf.Find(x) == uf.Find(y)
}

// Count возвращает текущее число компонент
func (uf *UnionFind) Count() int {
	return uf.count
}

// Components группирует индексы по корням компонент
func (uf *UnionFind) Components() map[int][]int {
	components := make(map[int][]int)
	for i := range uf.parent {
		root := uf.Find(i)
		components[root] = append(components[root], i)
	}
	return components
}
