package optimize

import "golang.org/x/sync/errgroup"

// blend smooths p in place, one 4-byte pixel group at a time. Inside a group
// each channel after the first is blended with the already updated channel
// before it; the first channel is left as is. Groups are aligned to the start
// of p and a trailing partial group keeps the channels it has.
func blend(p []byte, weight int, signed bool) {
	if signed {
		blendSigned(p, weight)
		return
	}
	blendUnsigned(p, weight)
}

func blendUnsigned(p []byte, weight int) {
	div := weight + 1
	for j := 0; j < len(p); j += 4 {
		end := min(j+4, len(p))
		for i := j + 1; i < end; i++ {
			p[i] = byte((int(p[i])*weight + int(p[i-1])) / div)
		}
	}
}

// blendSigned is blendUnsigned over two's complement values. Go's integer
// division truncates toward zero, which is what negative channels rely on.
func blendSigned(p []byte, weight int) {
	div := weight + 1
	for j := 0; j < len(p); j += 4 {
		end := min(j+4, len(p))
		for i := j + 1; i < end; i++ {
			v := int(int8(p[i]))
			prev := int(int8(p[i-1]))
			p[i] = byte(int8((v*weight + prev) / div))
		}
	}
}

// blendParallel splits p into spans aligned to blockSize and blends them
// concurrently. Blocks never share a pixel group, so the result matches a
// sequential pass.
func blendParallel(p []byte, lp levelParams, workers int) {
	span := (len(p) + workers - 1) / workers
	span = (span + lp.blockSize - 1) / lp.blockSize * lp.blockSize

	var g errgroup.Group
	g.SetLimit(workers)
	for off := 0; off < len(p); off += span {
		part := p[off:min(off+span, len(p))]
		g.Go(func() error {
			blend(part, lp.weight, lp.signed)
			return nil
		})
	}
	_ = g.Wait()
}
