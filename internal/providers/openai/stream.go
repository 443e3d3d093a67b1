package openai

import "bytes"

var doneMarker = []byte("[DONE]")

// chunkRewriter rewrites the model field of each streamed chunk. Upstream
// [DONE] markers are dropped; the lifecycle always appends its own.
type chunkRewriter struct {
	model string
}

func (c *chunkRewriter) Next(data []byte) [][]byte {
	if bytes.Equal(bytes.TrimSpace(data), doneMarker) {
		return nil
	}
	return [][]byte{rewriteModel(data, c.model)}
}

func (c *chunkRewriter) Finish() [][]byte { return nil }
