// Package bitfield tracks which pieces of a torrent are present, one bit per
// piece with the high bit of the first byte being piece 0
package bitfield

// Bitfield holds one bit per piece
type Bitfield []byte

// New returns a bitfield big enough for n pieces, all unset
func New(n int) Bitfield {
	return make(Bitfield, (n+7)/8)
}

func (b Bitfield) HasPiece(index int) bool {
	byteIndex := index / 8
	if index < 0 || byteIndex >= len(b) {
		return false
	}
	offset := index % 8
	mask := 1 << (7 - offset)

	return (byte(mask) & b[byteIndex]) != 0
}

func (b Bitfield) SetPiece(index int) {
	byteIndex := index / 8
	// discard if index is out of range of bitfield
	if index < 0 || byteIndex >= len(b) {
		return
	}
	offset := index % 8
	mask := 1 << (7 - offset)
	b[byteIndex] |= byte(mask)
}

// Count returns how many of the first n pieces are set
func (b Bitfield) Count(n int) int {
	var count int
	for i := 0; i < n; i++ {
		if b.HasPiece(i) {
			count++
		}
	}
	return count
}

// Missing lists the indexes of the first n pieces that are not set
func (b Bitfield) Missing(n int) []int {
	var missing []int
	for i := 0; i < n; i++ {
		if !b.HasPiece(i) {
			missing = append(missing, i)
		}
	}
	return missing
}
