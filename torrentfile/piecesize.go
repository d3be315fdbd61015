package torrentfile

import (
	"math"
)

// Process wide piece size bounds, used wherever no bounds are passed
// explicitly
var (
	PieceSizeMin int64 = 16 * 1024
	PieceSizeMax int64 = 256 * 1024 * 1024
)

const (
	kib = 1 << 10
	mib = 1 << 20
	gib = 1 << 30
)

// CalculatePieceSize picks a power of two piece size for content of the
// given size so the piece table stays a reasonable size. The result is
// clamped to [minSize, maxSize].
func CalculatePieceSize(size, minSize, maxSize int64) int64 {
	var pieceSize int64
	switch {
	case size <= 2*gib:
		// aim for ~1024 pieces
		pieceSize = nearestPowerOfTwo(size / kib)
		if pieceSize > mib {
			pieceSize = mib
		}
	case size <= 6*gib:
		pieceSize = 2 * mib
	case size <= 8*gib:
		pieceSize = 4 * mib
	case size <= 80*gib:
		pieceSize = 8 * mib
	case size <= 160*gib:
		pieceSize = 16 * mib
	case size <= 320*gib:
		pieceSize = 32 * mib
	case size < 1000*gib:
		pieceSize = 64 * mib
	case size < 4000*gib:
		pieceSize = 128 * mib
	default:
		pieceSize = 256 * mib
	}

	if pieceSize > maxSize {
		pieceSize = maxSize
	}
	if pieceSize < minSize {
		pieceSize = minSize
	}
	return pieceSize
}

// ValidatePieceSize checks that size is a power of two within [minSize, maxSize]
func ValidatePieceSize(size, minSize, maxSize int64) error {
	if !isPowerOfTwo(size) {
		return &PieceSizeError{Size: size}
	}
	if size < minSize || size > maxSize {
		return &PieceSizeError{Size: size, Min: minSize, Max: maxSize}
	}
	return nil
}

// PieceSize returns the piece length of the torrent, 0 if it isn't set
func (t *Torrent) PieceSize() int64 {
	n, _ := toInt64(t.readInfo()["piece length"])
	return n
}

// SetPieceSize sets the piece length using the process wide bounds. A size of
// 0 picks one based on the content size, or removes the piece length if the
// size isn't known.
func (t *Torrent) SetPieceSize(size int64) error {
	return t.SetPieceSizeWithin(size, PieceSizeMin, PieceSizeMax)
}

// SetPieceSizeWithin is SetPieceSize with explicit bounds. The piece table is
// dropped whenever the piece length changes.
func (t *Torrent) SetPieceSizeWithin(size, minSize, maxSize int64) error {
	if size == 0 {
		total, ok := t.Size()
		if !ok {
			info := t.info()
			delete(info, "piece length")
			delete(info, "pieces")
			return nil
		}
		size = CalculatePieceSize(total, minSize, maxSize)
	} else if err := ValidatePieceSize(size, minSize, maxSize); err != nil {
		return err
	}

	info := t.info()
	if old, ok := toInt64(info["piece length"]); !ok || old != size {
		delete(info, "pieces")
	}
	info["piece length"] = size
	return nil
}

func isPowerOfTwo(n int64) bool {
	return n > 0 && n&(n-1) == 0
}

func nearestPowerOfTwo(n int64) int64 {
	if n < 1 {
		return 1
	}
	return 1 << int(math.Round(math.Log2(float64(n))))
}
