package nus3

import (
	"fmt"
	"testing"
)

func benchFiles(n, size int) []AudioFile {
	files := make([]AudioFile, n)
	for i := range files {
		files[i] = AudioFile{
			ID:   uint32(i), //nolint:gosec // small benchmark counts
			Name: fmt.Sprintf("track%04d.idsp", i),
			Data: make([]byte, size),
		}
	}
	return files
}

func BenchmarkEstimateSize(b *testing.B) {
	for _, n := range []int{1, 16, 256} {
		b.Run(fmt.Sprintf("entries=%d", n), func(b *testing.B) {
			sizes := make([]FileSize, n)
			for i := range sizes {
				sizes[i] = FileSize{Name: fmt.Sprintf("track%04d.idsp", i), Size: 4096}
			}
			b.ReportAllocs()
			for b.Loop() {
				_ = EstimateSize(sizes)
			}
		})
	}
}

func BenchmarkBuild(b *testing.B) {
	for _, tc := range []struct{ n, size int }{{1, 1 << 20}, {16, 64 << 10}, {256, 4 << 10}} {
		b.Run(fmt.Sprintf("entries=%d/size=%d", tc.n, tc.size), func(b *testing.B) {
			files := benchFiles(tc.n, tc.size)
			b.SetBytes(int64(EstimateSize(sizesOf(files)))) //nolint:gosec // bounded benchmark sizes
			b.ReportAllocs()
			for b.Loop() {
				if _, err := Build(files); err != nil {
					b.Fatal(err)
				}
			}
		})
	}
}

func BenchmarkOpen(b *testing.B) {
	data, err := Build(benchFiles(256, 512))
	if err != nil {
		b.Fatal(err)
	}
	b.ReportAllocs()
	for b.Loop() {
		if _, err := Open(data); err != nil {
			b.Fatal(err)
		}
	}
}
