package imaging

import (
	"image"
	"image/color"
	"math/bits"

	"github.com/nfnt/resize"
)

// HashBits длина перцептивного хэша в битах
const HashBits = 64

// hashSide сторона миниатюры: 8x8 пикселей дают 64 бита
const hashSide = 8

// Hash перцептивный хэш изображения (average hash).
// Устойчив к изменению размера и перекодированию, но не к обрезке
// и повороту за пределами небольшого допуска.
type Hash uint64

// ComputeHash вычисляет 64-битный перцептивный хэш изображения.
// Изображение сжимается до миниатюры 8x8 в оттенках серого; бит
// устанавливается, если яркость пикселя не ниже средней по миниатюре.
func ComputeHash(img image.Image) Hash {
	thumb := resize.Resize(hashSide, hashSide, img, resize.Bilinear)

	var pixels [hashSide * hashSide]uint32
	var sum uint64

	i := 0
	bounds := thumb.Bounds()
	for y := bounds.Min.Y; y < bounds.Max.Y; y++ {
		for x := bounds.Min.X; x < bounds.Max.X; x++ {
			gray := color.GrayModel.Convert(thumb.At(x, y)).(color.Gray)
			pixels[i] = uint32(gray.Y)
			sum += uint64(gray.Y)
			i++
		}
	}

	mean := uint32(sum / uint64(len(pixels)))

	var hash Hash
	for idx, p := range pixels {
		if p >= mean {
			hash |= 1 << uint(idx)
		}
	}

	return hash
}

// HammingDistance возвращает число различающихся битов двух хэшей
func HammingDistance(a, b Hash) int {
	return bits.OnesCount64(uint64(a ^ b))
}

// Similarity вычисляет визуальную схожесть двух хэшей:
// 1 - hammingDistance / hashBitLength, значение в [0, 1]
func (h Hash) Similarity(other Hash) float64 {
	return 1.0 - float64(HammingDistance(h, other))/float64(HashBits)
}
