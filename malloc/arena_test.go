package malloc

import "testing"

func TestNewarena(t *testing.T) {
	capacity := int64(10 * 1024)
	marena := NewArena(capacity)
	if x, _, y, _ := marena.Info(); x != capacity {
		t.Errorf("expected %v, got %v", capacity, x)
	} else if y != 0 {
		t.Errorf("expected %v, got %v", 0, y)
	}
	marena.Release()

	// panic cases
	func() {
		defer func() {
			if r := recover(); r == nil {
				t.Errorf("expected panic")
			}
		}()
		NewArena(0)
	}()
	func() {
		defer func() {
			if r := recover(); r == nil {
				t.Errorf("expected panic")
			}
		}()
		NewArena(Maxarenasize + 1)
	}()
}

func TestArenaAlloc(t *testing.T) {
	capacity := int64(1024)
	marena := NewArena(capacity)
	offsets := make([]int64, 0, 64)
	for i := int64(0); i < 64; i++ {
		off, ok := marena.Alloc(10)
		if ok == false {
			t.Errorf("unexpected allocation failure at %v", i)
		} else if (off % Alignment) != 0 {
			t.Errorf("offset %v is not %v byte aligned", off, Alignment)
		} else if y := i * 16; off != y {
			t.Errorf("expected %v, got %v", y, off)
		}
		offsets = append(offsets, off)
	}
	// regions must not overlap, aligned size for 10 is 16.
	for i := 1; i < len(offsets); i++ {
		if x := offsets[i] - offsets[i-1]; x < 16 {
			t.Errorf("overlapping regions %v, %v", offsets[i-1], offsets[i])
		}
	}
	// arena is full, failed alloc leaves the watermark untouched.
	if _, ok := marena.Alloc(8); ok {
		t.Errorf("expected arena to be exhausted")
	}
	_, _, used, _ := marena.Info()
	if used != capacity {
		t.Errorf("expected %v, got %v", capacity, used)
	}
	marena.Release()
}

func TestArenaWatermark(t *testing.T) {
	capacity := int64(128)
	marena := NewArena(capacity)
	if _, ok := marena.Alloc(100); ok == false {
		t.Errorf("unexpected allocation failure")
	}
	_, _, used, _ := marena.Info()
	if used != 104 {
		t.Errorf("expected %v, got %v", 104, used)
	}
	// 104 + 32 > 128, watermark should stay at 104.
	if _, ok := marena.Alloc(32); ok {
		t.Errorf("expected allocation failure")
	}
	if _, _, x, _ := marena.Info(); x != used {
		t.Errorf("expected %v, got %v", used, x)
	}
	// 104 + 24 == 128 fits exactly.
	if _, ok := marena.Alloc(24); ok == false {
		t.Errorf("unexpected allocation failure")
	}
	marena.Release()
}

func TestArenaReset(t *testing.T) {
	capacity := int64(1024)
	marena := NewArena(capacity)
	for i := 0; i < 10; i++ {
		marena.Alloc(64)
	}
	if x := marena.Utilization(); x < 62 || x > 63 {
		t.Errorf("unexpected utilization %v", x)
	}
	marena.Reset()
	if _, _, used, _ := marena.Info(); used != 0 {
		t.Errorf("expected %v, got %v", 0, used)
	}
	// buffer is reusable after reset.
	off, ok := marena.Alloc(64)
	if ok == false {
		t.Errorf("unexpected allocation failure")
	} else if off != 0 {
		t.Errorf("expected %v, got %v", 0, off)
	}
	marena.Release()
}

func TestArenaBytes(t *testing.T) {
	marena := NewArena(1024)
	off, _ := marena.Alloc(21)
	block := marena.Bytes(off, 21)
	if len(block) != 21 {
		t.Errorf("expected %v, got %v", 21, len(block))
	} else if cap(block) != 21 {
		t.Errorf("expected %v, got %v", 21, cap(block))
	}
	for i := range block {
		block[i] = 0xab
	}
	if x := marena.Bytes(off, 21)[20]; x != 0xab {
		t.Errorf("expected %v, got %v", 0xab, x)
	}
	marena.Release()

	// use after release
	func() {
		defer func() {
			if r := recover(); r == nil {
				t.Errorf("expected panic")
			}
		}()
		marena.Alloc(8)
	}()
}

func BenchmarkArenaAlloc(b *testing.B) {
	capacity := int64(100 * 1024 * 1024)
	marena := NewArena(capacity)
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		if _, ok := marena.Alloc(96); ok == false {
			marena.Reset()
		}
	}
	marena.Release()
}

func BenchmarkArenaReset(b *testing.B) {
	capacity := int64(1024 * 1024)
	marena := NewArena(capacity)
	for i := 0; i < b.N; i++ {
		marena.Alloc(96)
		marena.Reset()
	}
	marena.Release()
}
