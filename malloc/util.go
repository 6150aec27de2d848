package malloc

import "fmt"

// alignup size to the next multiple of Alignment.
func alignup(size int64) int64 {
	return (size + Alignment - 1) &^ (Alignment - 1)
}

func panicerr(fmsg string, args ...interface{}) {
	panic(fmt.Errorf(fmsg, args...))
}

var poolblkinit = make([]byte, 1024)
var zeroblkinit = make([]byte, 1024)

func init() {
	for i := 0; i < len(poolblkinit); i++ {
		poolblkinit[i] = 0xff
	}
}

func fillblock(block, pattern []byte) {
	for n := copy(block, pattern); n < len(block); {
		n += copy(block[n:], pattern)
	}
}
