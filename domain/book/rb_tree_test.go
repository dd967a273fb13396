package book

import (
	"math/rand"
	"sort"
	"testing"
)

func TestRBTreeInsertFindDelete(t *testing.T) {
	tree := NewRBTree()
	pl1 := tree.UpsertLevel(100)
	if pl1 == nil {
		t.Fatal("UpsertLevel failed")
	}
	if pl2 := tree.FindLevel(100); pl2 != pl1 {
		t.Error("FindLevel did not return same PriceLevel")
	}

	tree.UpsertLevel(200)
	if tree.MinLevel().Price != 100 {
		t.Error("expected min=100")
	}
	if tree.MaxLevel().Price != 200 {
		t.Error("expected max=200")
	}

	if !tree.DeleteLevel(100) {
		t.Error("DeleteLevel failed")
	}
	if tree.FindLevel(100) != nil {
		t.Error("expected level 100 to be gone")
	}
}

func TestDeleteNonExistentLevel(t *testing.T) {
	tree := NewRBTree()
	if tree.DeleteLevel(123) {
		t.Error("expected false when deleting non-existent level")
	}
}

func TestEmptyTreeMinMax(t *testing.T) {
	tree := NewRBTree()
	if tree.MinLevel() != nil || tree.MaxLevel() != nil {
		t.Error("expected nil for min/max on empty tree")
	}
}

func TestUpsertDuplicateLevel(t *testing.T) {
	tree := NewRBTree()
	pl1 := tree.UpsertLevel(150)
	pl2 := tree.UpsertLevel(150)
	if pl1 != pl2 {
		t.Error("Upsert should return the same node for duplicate level")
	}
	if tree.Size() != 1 {
		t.Errorf("size = %d, want 1", tree.Size())
	}
}

func TestRandomizedOrderingInvariant(t *testing.T) {
	rng := rand.New(rand.NewSource(7))
	tree := NewRBTree()

	prices := map[int64]bool{}
	for i := 0; i < 2000; i++ {
		p := int64(rng.Intn(500) + 1)
		tree.UpsertLevel(p)
		prices[p] = true
	}
	// delete a random half
	var all []int64
	for p := range prices {
		all = append(all, p)
	}
	sort.Slice(all, func(i, j int) bool { return all[i] < all[j] })
	for i, p := range all {
		if i%2 == 0 {
			if !tree.DeleteLevel(p) {
				t.Fatalf("delete %d failed", p)
			}
			delete(prices, p)
		}
	}

	if tree.Size() != len(prices) {
		t.Fatalf("size = %d, want %d", tree.Size(), len(prices))
	}

	var walked []int64
	tree.ForEachAscending(func(lvl *PriceLevel) bool {
		walked = append(walked, lvl.Price)
		return true
	})
	if len(walked) != len(prices) {
		t.Fatalf("walk visited %d levels, want %d", len(walked), len(prices))
	}
	for i := 1; i < len(walked); i++ {
		if walked[i-1] >= walked[i] {
			t.Fatalf("ascending walk out of order at %d: %v >= %v", i, walked[i-1], walked[i])
		}
	}

	var down []int64
	tree.ForEachDescending(func(lvl *PriceLevel) bool {
		down = append(down, lvl.Price)
		return true
	})
	for i := 1; i < len(down); i++ {
		if down[i-1] <= down[i] {
			t.Fatalf("descending walk out of order at %d", i)
		}
	}
}

func TestForEachEarlyStop(t *testing.T) {
	tree := NewRBTree()
	for _, p := range []int64{10, 20, 30, 40} {
		tree.UpsertLevel(p)
	}
	count := 0
	tree.ForEachAscending(func(*PriceLevel) bool {
		count++
		return count < 2
	})
	if count != 2 {
		t.Errorf("walk should stop after 2 visits, made %d", count)
	}
}

func TestPriceLevelFIFO(t *testing.T) {
	lvl := &PriceLevel{Price: 100}
	o1 := &Order{ID: 1, Qty: 5}
	o2 := &Order{ID: 2, Qty: 3}
	o3 := &Order{ID: 3, Qty: 2}
	lvl.Enqueue(o1)
	lvl.Enqueue(o2)
	lvl.Enqueue(o3)

	if lvl.TotalQty != 10 || lvl.OrderCount != 3 {
		t.Fatalf("level bookkeeping wrong: %v", lvl)
	}

	// unlink from the middle
	lvl.unlink(o2)
	if lvl.Head().ID != 1 || lvl.Head().Next().ID != 3 {
		t.Error("middle unlink broke the chain")
	}
	if lvl.TotalQty != 7 || lvl.OrderCount != 2 {
		t.Errorf("bookkeeping after unlink: %v", lvl)
	}

	lvl.unlink(o1)
	lvl.unlink(o3)
	if !lvl.Empty() || lvl.TotalQty != 0 {
		t.Error("level should be empty")
	}
}
