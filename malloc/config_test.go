package malloc

import "testing"

func TestDefaultsettings(t *testing.T) {
	setts := Defaultsettings()
	if x := setts.Int64("arena.capacity"); x < 1024*1024 {
		t.Errorf("unexpected arena.capacity %v", x)
	}
	if x := setts.Int64("stack.capacity"); x < 1024*1024 {
		t.Errorf("unexpected stack.capacity %v", x)
	}
	if x := setts.Int64("pool.blocksize"); x != 64 {
		t.Errorf("expected %v, got %v", 64, x)
	}
	if x := setts.Int64("pool.blockschunk"); x != 1024 {
		t.Errorf("expected %v, got %v", 1024, x)
	}
	if x := setts.Int64("pool.maxchunks"); x != Maxchunks {
		t.Errorf("expected %v, got %v", Maxchunks, x)
	}
	if setts.Bool("tracker.logleaks") == false {
		t.Errorf("expected tracker.logleaks to default true")
	}
}

func TestFromsettings(t *testing.T) {
	setts := Defaultsettings()
	setts["arena.capacity"] = int64(1024 * 1024)
	setts["stack.capacity"] = int64(1024 * 1024)

	marena := Arenafromsetts(setts)
	if capacity, _, _, _ := marena.Info(); capacity != 1024*1024 {
		t.Errorf("expected %v, got %v", 1024*1024, capacity)
	}
	marena.Release()

	mstack, err := Stackfromsetts(setts)
	if err != nil {
		t.Fatalf("unexpected error %v", err)
	}
	mstack.Release()

	pool, err := Blockpoolfromsetts(setts)
	if err != nil {
		t.Fatalf("unexpected error %v", err)
	} else if x := pool.Blocksize(); x != 64 {
		t.Errorf("expected %v, got %v", 64, x)
	}
	pool.Release()

	setts["tracker.logleaks"] = false
	tracker := Trackerfromsetts(setts)
	if tracker.logleaks {
		t.Errorf("expected logleaks false")
	}
	tracker.Release()
}

func TestGetsysmem(t *testing.T) {
	total, _, free := getsysmem()
	if total == 0 {
		t.Errorf("expected non-zero total memory")
	} else if free > total {
		t.Errorf("free %v exceeds total %v", free, total)
	}
}
