//go:build !debug

package malloc

func initblock(block []byte) {
	fillblock(block, zeroblkinit)
}
