//go:build debug

package malloc

// poison freshly handed out blocks, stale reads show up as 0xff.
func initblock(block []byte) {
	fillblock(block, poolblkinit)
}
