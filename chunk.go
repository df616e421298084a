package ngramindex

import (
	"fmt"
	"path/filepath"
	"strconv"
)

// Chunk is a contiguous slice [Offset, Offset+Width) of the rows of one order.
type Chunk struct {
	Order  int
	Index  int64
	Offset int64
	Width  int64
}

// PlanChunks partitions [0, totalRows) into chunks of chunkSize rows; the last
// chunk may be shorter.
func PlanChunks(order int, totalRows, chunkSize int64) []Chunk {
	if chunkSize <= 0 || totalRows <= 0 {
		return nil
	}
	chunks := make([]Chunk, 0, (totalRows+chunkSize-1)/chunkSize)
	for offset := int64(0); offset < totalRows; offset += chunkSize {
		chunks = append(chunks, Chunk{
			Order:  order,
			Index:  offset / chunkSize,
			Offset: offset,
			Width:  min(chunkSize, totalRows-offset),
		})
	}
	return chunks
}

// ChunkCountLabel is the "of N" part of shard names. It is totalRows/chunkSize+1
// and so overcounts by one when totalRows is a multiple of chunkSize; shard
// trees written by earlier runs depend on these names.
func ChunkCountLabel(totalRows, chunkSize int64) int64 {
	return totalRows/chunkSize + 1
}

// ShardName formats "<order>-<index:05>-of-<label:05>".
func ShardName(order int, index, label int64) string {
	return fmt.Sprintf("%d-%05d-of-%05d", order, index, label)
}

// ShardPath returns <outputDir>/<order>/<ShardName>.
func ShardPath(outputDir string, order int, index, label int64) string {
	return filepath.Join(orderDir(outputDir, order), ShardName(order, index, label))
}

func orderDir(outputDir string, order int) string {
	return filepath.Join(outputDir, strconv.Itoa(order))
}
