// Package optimize implements the tiered texture smoothing pass used by TXPacker.
//
// An Optimizer owns the active optimization level and a small pool of staging
// blocks. Process rewrites a pixel buffer in place:
//   - LevelNone leaves the buffer untouched
//   - LevelBasic stages the buffer through 512 KiB pool blocks, one at a time
//   - LevelAdvanced and LevelMax blend in place and fan out across goroutines
//     for large buffers
//
// Every level blends each byte with the byte before it inside its 4-byte
// pixel group. The output has the same length as the input; this is a lossy
// blur, not a codec.
package optimize
