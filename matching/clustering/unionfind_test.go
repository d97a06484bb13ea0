package clustering

import "testing"

func TestUnionFind_Basic(t *testing.T) {
	uf := NewUnionFind(5)

	if uf.Count() != 5 {
		t.Fatalf("Count = %d, want 5", uf.Count())
	}

	if !uf.Union(0, 1) {
		t.Error("первое объединение должно вернуть true")
	}
	if uf.Union(0, 1) {
		t.Error("повторное объединение должно вернуть false")
	}
	if !uf.Connected(0, 1) {
		t.Error("0 и 1 должны быть в одной компоненте")
	}
	if uf.Connected(0, 2) {
		t.Error("0 и 2 не должны быть в одной компоненте")
	}
	if uf.Count() != 4 {
		t.Errorf("Count = %d, want 4", uf.Count())
	}
}

// Транзитивность: компоненты сливаются через цепочку
func TestUnionFind_Transitivity(t *testing.T) {
	uf := NewUnionFind(4)

	uf.Union(0, 1)
	uf.Union(1, 2)

	if !uf.Connected(0, 2) {
		t.Error("0 и 2 должны быть связаны через 1")
	}
	if uf.Connected(0, 3) {
		t.Error("3 не должен входить в компоненту")
	}
}

func TestUnionFind_Components(t *testing.T) {
	uf := NewUnionFind(6)

	uf.Union(0, 1)
	uf.Union(2, 3)
	uf.Union(3, 4)

	components := uf.Components()
	if len(components) != 3 {
		t.Fatalf("число компонент = %d, want 3 (две группы и одиночка)", len(components))
	}

	sizes := make(map[int]int)
	for _, members := range components {
		sizes[len(members)]++
	}
	if sizes[2] != 1 || sizes[3] != 1 || sizes[1] != 1 {
		t.Errorf("неожиданные размеры компонент: %v", sizes)
	}
}
